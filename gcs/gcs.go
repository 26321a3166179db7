// Package gcs provides access to datasets stored in Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/genomeio/binquery/api"
	"github.com/genomeio/binquery/internal/bai"
)

var errMissingOrInvalidToken = errors.New("missing or invalid token")

// BucketSource is an api.Source reading datasets from one GCS bucket:
// dataset id maps to the objects <id>.bam and <id>.bam.bai.
type BucketSource struct {
	client *storage.Client
	bucket string
}

// NewBucketSource returns a BucketSource reading bucket through client.
func NewBucketSource(client *storage.Client, bucket string) *BucketSource {
	return &BucketSource{client: client, bucket: bucket}
}

// Data opens the dataset's BAM object.
func (s *BucketSource) Data(ctx context.Context, id string) (io.ReadCloser, error) {
	return s.client.Bucket(s.bucket).Object(id + ".bam").NewReader(ctx)
}

// Index reads and parses the dataset's BAI object.
func (s *BucketSource) Index(ctx context.Context, id string) (*bai.File, error) {
	r, err := s.client.Bucket(s.bucket).Object(id + ".bam.bai").NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening index object: %v", err)
	}
	defer r.Close()
	return bai.Open(r)
}

var (
	defaultStorageClient           *storage.Client
	initializeDefaultStorageClient sync.Once
)

func newSourceWithOptions(bucket string, opts ...option.ClientOption) (api.Source, error) {
	initializeDefaultStorageClient.Do(func() {
		gcs, err := storage.NewClient(context.Background(), opts...)
		if err != nil {
			log.Fatalf("Creating default storage client: %v", err)
		}
		defaultStorageClient = gcs
	})
	return NewBucketSource(defaultStorageClient, bucket), nil
}

// NewDefaultSource returns an api.NewSourceFunc that reads bucket using the
// application default credentials.  The storage client is cached for
// efficiency.
func NewDefaultSource(bucket string) api.NewSourceFunc {
	return func(_ *http.Request) (api.Source, error) {
		return newSourceWithOptions(bucket)
	}
}

// NewPublicSource returns an api.NewSourceFunc that reads bucket without any
// form of client authorization.  It can only read publicly-readable objects.
func NewPublicSource(bucket string) api.NewSourceFunc {
	return func(_ *http.Request) (api.Source, error) {
		return newSourceWithOptions(bucket, option.WithHTTPClient(http.DefaultClient))
	}
}

// NewBearerTokenSource returns an api.NewSourceFunc that reads bucket using
// the OAuth2 bearer token found on each incoming request, so object access
// is checked against the caller's own credentials.
func NewBearerTokenSource(bucket string) api.NewSourceFunc {
	return func(req *http.Request) (api.Source, error) {
		authorization := req.Header.Get("Authorization")

		fields := strings.Split(authorization, " ")
		if len(fields) != 2 || fields[0] != "Bearer" {
			return nil, errMissingOrInvalidToken
		}

		token := oauth2.Token{
			TokenType:   fields[0],
			AccessToken: fields[1],
		}
		client, err := storage.NewClient(req.Context(), option.WithTokenSource(oauth2.StaticTokenSource(&token)))
		if err != nil {
			return nil, fmt.Errorf("creating client with token source: %v", err)
		}
		return NewBucketSource(client, bucket), nil
	}
}
