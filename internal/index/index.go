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

// Package index holds the in-memory form of one reference's binning index:
// the bin tree mapping bin ids to chunk lists and the linear index used to
// prune chunks that precede a query's start position.
package index

import (
	"github.com/genomeio/binquery/bgzf"
	"github.com/genomeio/binquery/internal/binning"
)

// Bin is one node of the bin tree.  It covers a fixed genomic interval
// determined by its ID and owns the chunks of records filed under it.  The
// owned chunk list is immutable; consumers that need to reorder or merge
// chunks must work on the copy returned by ChunkList.
type Bin struct {
	// ReferenceID identifies the reference sequence this bin belongs to.
	ReferenceID int32
	// ID is the bin number within the binning scheme.
	ID uint32

	chunks []bgzf.Chunk
}

// NewBin returns a bin owning a copy of chunks.
func NewBin(referenceID int32, id uint32, chunks []bgzf.Chunk) *Bin {
	return &Bin{ReferenceID: referenceID, ID: id, chunks: append([]bgzf.Chunk(nil), chunks...)}
}

// ChunkList returns a copy of the bin's chunks in index order.
func (b *Bin) ChunkList() []bgzf.Chunk {
	return append([]bgzf.Chunk(nil), b.chunks...)
}

// ChunkCount returns the number of chunks filed under the bin.
func (b *Bin) ChunkCount() int {
	return len(b.chunks)
}

// LinearIndex maps fixed-width genomic windows to the lowest virtual address
// that can hold a record starting in or after that window.
type LinearIndex []bgzf.Address

// MinimumOffset returns the lowest virtual address of any record that could
// overlap a query starting at the 1-based locus.  Loci past the end of the
// indexed region yield zero, which prunes nothing.
func (idx LinearIndex) MinimumOffset(locus int) bgzf.Address {
	window := binning.WindowForLocus(locus)
	if window >= len(idx) {
		return 0
	}
	return idx[window]
}

// ReferenceContent is the complete index content for one reference sequence.
// It is immutable once constructed.
type ReferenceContent struct {
	referenceID int32
	bins        map[uint32]*Bin
	order       []uint32
	linear      LinearIndex
}

// NewReferenceContent returns content owning the provided bins and linear
// index.  Bin iteration order follows the order bins were provided in.
func NewReferenceContent(referenceID int32, bins []*Bin, linear LinearIndex) *ReferenceContent {
	content := &ReferenceContent{
		referenceID: referenceID,
		bins:        make(map[uint32]*Bin, len(bins)),
		order:       make([]uint32, 0, len(bins)),
		linear:      linear,
	}
	for _, bin := range bins {
		content.bins[bin.ID] = bin
		content.order = append(content.order, bin.ID)
	}
	return content
}

// ReferenceID returns the reference sequence this content describes.
func (c *ReferenceContent) ReferenceID() int32 {
	return c.referenceID
}

// Bin returns the bin with the given id, if the tree contains it.  Sparse
// trees are the norm: most ids computed from query arithmetic have no entry.
func (c *ReferenceContent) Bin(id uint32) (*Bin, bool) {
	bin, ok := c.bins[id]
	return bin, ok
}

// ContainsBin reports whether the tree has an entry for the given id.
func (c *ReferenceContent) ContainsBin(id uint32) bool {
	_, ok := c.bins[id]
	return ok
}

// BinCount returns the number of bins in the tree.
func (c *ReferenceContent) BinCount() int {
	return len(c.bins)
}

// BinIDs returns the tree's bin ids in construction order.
func (c *ReferenceContent) BinIDs() []uint32 {
	return append([]uint32(nil), c.order...)
}

// Linear returns the reference's linear index.
func (c *ReferenceContent) Linear() LinearIndex {
	return c.linear
}

// Loader constructs per-reference index content from an underlying index
// container.  Implementations return (nil, nil) when the container has no
// content for the reference; errors are reserved for failures reading or
// parsing the container and must not be swallowed by callers.  Loading the
// same reference repeatedly must yield equivalent content.
type Loader interface {
	LoadReferenceContent(referenceID int32) (*ReferenceContent, error)
}
