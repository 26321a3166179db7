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

// Package bai reads BAI index containers (SAM specification section 5.2).
// Opening a container scans it once to record where each reference's section
// lies; the bins and linear index of a reference are only parsed when that
// reference is requested.
package bai

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/genomeio/binquery/bgzf"
	"github.com/genomeio/binquery/internal/binary"
	"github.com/genomeio/binquery/internal/index"
)

const (
	baiMagic = "BAI\x01"

	// This ID is used as a virtual bin ID for (unused) chunk metadata.
	metadataID = 37450
)

type extent struct {
	offset, length int64
}

// File is an open BAI container.  It implements index.Loader.
type File struct {
	data []byte
	refs []extent

	unmapped    uint64
	hasUnmapped bool
}

// Open reads a complete BAI container from r and scans its layout.  The
// container is held in memory; BAI files are small compared to the data they
// index.
func Open(r io.Reader) (*File, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading index data: %v", err)
	}

	br := bytes.NewReader(data)
	if err := binary.ExpectBytes(br, []byte(baiMagic)); err != nil {
		return nil, err
	}

	var references int32
	if err := binary.Read(br, &references); err != nil {
		return nil, fmt.Errorf("reading reference count: %v", err)
	}
	if references < 0 {
		return nil, fmt.Errorf("invalid reference count (%d references)", references)
	}

	refs := make([]extent, references)
	for i := range refs {
		start := position(br)
		if err := skipReference(br); err != nil {
			return nil, fmt.Errorf("scanning reference %d: %v", i, err)
		}
		refs[i] = extent{offset: start, length: position(br) - start}
	}

	file := &File{data: data, refs: refs}
	if br.Len() >= 8 {
		if err := binary.Read(br, &file.unmapped); err != nil {
			return nil, fmt.Errorf("reading unmapped count: %v", err)
		}
		file.hasUnmapped = true
	}
	return file, nil
}

// OpenFile opens the BAI container at path.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index: %v", err)
	}
	defer f.Close()
	return Open(f)
}

// References returns the number of reference sections in the container.
func (f *File) References() int {
	return len(f.refs)
}

// UnmappedCount returns the count of unplaced unmapped records, if the
// container carries one.
func (f *File) UnmappedCount() (uint64, bool) {
	return f.unmapped, f.hasUnmapped
}

// LoadReferenceContent parses the bins and linear index of one reference.
// References outside the container, and references whose section is empty,
// have no index content and yield (nil, nil).
func (f *File) LoadReferenceContent(referenceID int32) (*index.ReferenceContent, error) {
	if referenceID < 0 || int(referenceID) >= len(f.refs) {
		return nil, nil
	}

	section := f.refs[referenceID]
	r := bytes.NewReader(f.data[section.offset : section.offset+section.length])

	var binCount int32
	if err := binary.Read(r, &binCount); err != nil {
		return nil, fmt.Errorf("reading bin count: %v", err)
	}

	bins := make([]*index.Bin, 0, binCount)
	for j := int32(0); j < binCount; j++ {
		var bin struct {
			ID     uint32
			Chunks int32
		}
		if err := binary.Read(r, &bin); err != nil {
			return nil, fmt.Errorf("reading bin header: %v", err)
		}

		chunks := make([]bgzf.Chunk, bin.Chunks)
		for k := range chunks {
			if err := binary.Read(r, &chunks[k]); err != nil {
				return nil, fmt.Errorf("reading chunk: %v", err)
			}
		}
		if bin.ID == metadataID {
			continue
		}
		bins = append(bins, index.NewBin(referenceID, bin.ID, chunks))
	}

	var intervals int32
	if err := binary.Read(r, &intervals); err != nil {
		return nil, fmt.Errorf("reading interval count: %v", err)
	}
	offsets := make([]uint64, intervals)
	if err := binary.Read(r, &offsets); err != nil {
		return nil, fmt.Errorf("reading offsets: %v", err)
	}
	linear := make(index.LinearIndex, len(offsets))
	for w, offset := range offsets {
		linear[w] = bgzf.Address(offset)
	}

	if len(bins) == 0 && len(linear) == 0 {
		return nil, nil
	}
	return index.NewReferenceContent(referenceID, bins, linear), nil
}

func position(r *bytes.Reader) int64 {
	return r.Size() - int64(r.Len())
}

// skipReference advances r past one reference section without retaining its
// contents.
func skipReference(r *bytes.Reader) error {
	var binCount int32
	if err := binary.Read(r, &binCount); err != nil {
		return fmt.Errorf("reading bin count: %v", err)
	}
	if binCount < 0 {
		return fmt.Errorf("invalid bin count (%d bins)", binCount)
	}
	for j := int32(0); j < binCount; j++ {
		var bin struct {
			ID     uint32
			Chunks int32
		}
		if err := binary.Read(r, &bin); err != nil {
			return fmt.Errorf("reading bin header: %v", err)
		}
		if bin.Chunks < 0 {
			return fmt.Errorf("invalid chunk count (%d chunks)", bin.Chunks)
		}
		if err := skip(r, int64(bin.Chunks)*16); err != nil {
			return fmt.Errorf("reading past chunks: %v", err)
		}
	}

	var intervals int32
	if err := binary.Read(r, &intervals); err != nil {
		return fmt.Errorf("reading interval count: %v", err)
	}
	if intervals < 0 {
		return fmt.Errorf("invalid interval count (%d intervals)", intervals)
	}
	if err := skip(r, int64(intervals)*8); err != nil {
		return fmt.Errorf("reading past offsets: %v", err)
	}
	return nil
}

func skip(r *bytes.Reader, n int64) error {
	pos, err := r.Seek(n, io.SeekCurrent)
	if err != nil {
		return err
	}
	if pos > r.Size() {
		return io.ErrUnexpectedEOF
	}
	return nil
}
