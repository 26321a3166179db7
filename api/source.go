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

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/genomeio/binquery/internal/bai"
)

// FileSource serves datasets from a local directory: dataset id maps to
// <dir>/<id>.bam and <dir>/<id>.bam.bai.
type FileSource string

// Data opens the dataset's BAM file.
func (dir FileSource) Data(_ context.Context, id string) (io.ReadCloser, error) {
	path, err := dir.resolve(id + ".bam")
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Index opens and parses the dataset's BAI file.
func (dir FileSource) Index(_ context.Context, id string) (*bai.File, error) {
	path, err := dir.resolve(id + ".bam.bai")
	if err != nil {
		return nil, err
	}
	return bai.OpenFile(path)
}

func (dir FileSource) resolve(name string) (string, error) {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid dataset name %q", name)
	}
	return filepath.Join(string(dir), name), nil
}

// StaticSource wraps a fixed Source as a NewSourceFunc.
func StaticSource(source Source) NewSourceFunc {
	return func(*http.Request) (Source, error) {
		return source, nil
	}
}
