// Copyright 2019 Genome IO Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api implements the HTTP span-query service.  Each dataset is a BAM
// file with a BAI index; the service answers which byte ranges of the BAM
// could hold records overlapping a genomic interval, without touching the
// record data itself.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/genomeio/binquery/bgzf"
	"github.com/genomeio/binquery/internal/bai"
	"github.com/genomeio/binquery/internal/bam"
	"github.com/genomeio/binquery/internal/genomics"
	"github.com/genomeio/binquery/query"
)

var errMissingReferenceName = errors.New("no reference name specified")

// Source resolves dataset ids to their data and index objects.
type Source interface {
	// Data opens the BAM data object for a dataset.  Only the header is
	// ever read from it.
	Data(ctx context.Context, id string) (io.ReadCloser, error)
	// Index opens and parses the BAI index object for a dataset.
	Index(ctx context.Context, id string) (*bai.File, error)
}

// NewSourceFunc constructs the Source that should satisfy an incoming
// request.  Sources that authenticate per request (bearer tokens) return a
// new instance per call; static sources return themselves.
type NewSourceFunc func(*http.Request) (Source, error)

// Server answers span queries over datasets resolved through a Source.
// Parsed indexes and their query engines are kept per dataset for the life
// of the server.
type Server struct {
	newSource      NewSourceFunc
	blockSizeLimit uint64

	mu      sync.Mutex
	engines map[string]*engineEntry
}

// engineEntry serializes queries against one dataset's engine.  The engine's
// cache slot is not safe for concurrent mutation, so the entry lock covers
// every call into it.
type engineEntry struct {
	mu     sync.Mutex
	engine *query.CachingIndex
}

// NewServer returns a Server resolving datasets through newSource.  Span
// responses merge chunks whose combined size estimate stays within
// blockSizeLimit bytes; a zero limit disables merging.
func NewServer(newSource NewSourceFunc, blockSizeLimit uint64) *Server {
	return &Server{
		newSource:      newSource,
		blockSizeLimit: blockSizeLimit,
		engines:        make(map[string]*engineEntry),
	}
}

// Export registers the query endpoints on router.
func (s *Server) Export(router *gin.Engine) {
	router.GET("/span/:id", s.serveSpan)
	router.GET("/bins/:id", s.serveBins)
	router.GET("/stats/:id", s.serveStats)
}

type chunkJSON struct {
	// Start and End are BGZF virtual addresses in hexadecimal, parseable
	// with bgzf.ParseAddress.
	Start string `json:"start"`
	End   string `json:"end"`
}

type spanJSON struct {
	Reference int32       `json:"reference"`
	Chunks    []chunkJSON `json:"chunks"`
}

type binsJSON struct {
	Reference int32    `json:"reference"`
	Bins      []uint32 `json:"bins"`
}

type statsJSON struct {
	CacheHits   uint64 `json:"cacheHits"`
	CacheMisses uint64 `json:"cacheMisses"`
}

func (s *Server) serveSpan(c *gin.Context) {
	region, entry, ok := s.prepare(c)
	if !ok {
		return
	}

	entry.mu.Lock()
	span, err := entry.engine.SpanOverlapping(region.ReferenceID, region.Start, region.End)
	entry.mu.Unlock()
	if err != nil {
		c.String(http.StatusInternalServerError, "reading index: %v", err)
		return
	}
	if span == nil {
		c.String(http.StatusNotFound, "no index data for region %v", region)
		return
	}

	list := span.Chunks
	if s.blockSizeLimit > 0 {
		list = bgzf.Merge(list, s.blockSizeLimit)
	}
	chunks := make([]chunkJSON, 0, len(list))
	for _, chunk := range list {
		chunks = append(chunks, chunkJSON{Start: chunk.Start.String(), End: chunk.End.String()})
	}
	c.JSON(http.StatusOK, spanJSON{Reference: region.ReferenceID, Chunks: chunks})
}

func (s *Server) serveBins(c *gin.Context) {
	region, entry, ok := s.prepare(c)
	if !ok {
		return
	}

	entry.mu.Lock()
	bins := entry.engine.BinsOverlapping(region.ReferenceID, region.Start, region.End)
	entry.mu.Unlock()
	if bins == nil {
		c.String(http.StatusBadRequest, "invalid region %v", region)
		return
	}
	c.JSON(http.StatusOK, binsJSON{Reference: bins.ReferenceID, Bins: bins.Bins})
}

func (s *Server) serveStats(c *gin.Context) {
	s.mu.Lock()
	entry := s.engines[c.Param("id")]
	s.mu.Unlock()
	if entry == nil {
		c.String(http.StatusNotFound, "no open dataset %q", c.Param("id"))
		return
	}

	entry.mu.Lock()
	stats := statsJSON{CacheHits: entry.engine.CacheHits(), CacheMisses: entry.engine.CacheMisses()}
	entry.mu.Unlock()
	c.JSON(http.StatusOK, stats)
}

// prepare resolves the request's source, region and engine, writing the
// error response itself when any step fails.
func (s *Server) prepare(c *gin.Context) (genomics.Region, *engineEntry, bool) {
	id := c.Param("id")
	source, err := s.newSource(c.Request)
	if err != nil {
		c.String(http.StatusUnauthorized, "resolving source: %v", err)
		return genomics.Region{}, nil, false
	}

	region, err := parseRegion(c, source, id)
	if err != nil {
		c.String(http.StatusBadRequest, "parsing region: %v", err)
		return genomics.Region{}, nil, false
	}

	entry, err := s.engine(c.Request.Context(), source, id)
	if err != nil {
		c.String(http.StatusNotFound, "opening index: %v", err)
		return genomics.Region{}, nil, false
	}
	return region, entry, true
}

// parseRegion reads referenceName, start and end from the request query and
// resolves the reference name against the dataset's BAM header.  Coordinates
// are 1-based inclusive; a missing start means the start of the reference
// and a missing or zero end means its end.
func parseRegion(c *gin.Context, source Source, id string) (genomics.Region, error) {
	name := c.Query("referenceName")
	if name == "" {
		return genomics.Region{}, errMissingReferenceName
	}

	data, err := source.Data(c.Request.Context(), id)
	if err != nil {
		return genomics.Region{}, fmt.Errorf("opening data: %v", err)
	}
	defer data.Close()

	referenceID, err := bam.GetReferenceID(data, name)
	if err != nil {
		return genomics.Region{}, fmt.Errorf("resolving reference name: %v", err)
	}

	region := genomics.Region{ReferenceID: referenceID, Start: 1}
	if raw := c.Query("start"); raw != "" {
		if region.Start, err = strconv.Atoi(raw); err != nil {
			return genomics.Region{}, fmt.Errorf("parsing start: %v", err)
		}
	}
	if raw := c.Query("end"); raw != "" {
		if region.End, err = strconv.Atoi(raw); err != nil {
			return genomics.Region{}, fmt.Errorf("parsing end: %v", err)
		}
	}
	if region.Start < 1 || (region.End != 0 && region.End < region.Start) {
		return genomics.Region{}, fmt.Errorf("invalid range %v: start > end", region)
	}
	return region, nil
}

// engine returns the dataset's engine entry, opening and parsing its index
// on first use.
func (s *Server) engine(ctx context.Context, source Source, id string) (*engineEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.engines[id]; ok {
		return entry, nil
	}

	file, err := source.Index(ctx, id)
	if err != nil {
		return nil, err
	}
	entry := &engineEntry{engine: query.New(file)}
	s.engines[id] = entry
	return entry, nil
}
