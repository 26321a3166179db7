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

// Package query answers range-overlap queries against a binning index,
// caching the content of the most recently queried reference.
//
// A query names a reference and a 1-based inclusive interval and yields the
// chunks of the underlying compressed stream that can hold overlapping
// records.  Two outcomes that both read as "nothing to scan" stay distinct
// throughout: a nil *Span means the reference has no index content (or the
// interval was invalid), while a Span with no chunks means the index exists
// but holds nothing for that exact interval.
package query

import (
	"fmt"

	"github.com/genomeio/binquery/bgzf"
	"github.com/genomeio/binquery/internal/binning"
	"github.com/genomeio/binquery/internal/index"
)

// Span is the final merged set of chunks to scan for one query.
type Span struct {
	Chunks []bgzf.Chunk
}

// IsEmpty reports whether the span has nothing to scan.
func (s *Span) IsEmpty() bool {
	return len(s.Chunks) == 0
}

// BinList binds a set of candidate bin ids to a reference without resolving
// them to chunks.
type BinList struct {
	ReferenceID int32
	Bins        []uint32
}

// CachingIndex runs overlap queries over an index.Loader, keeping the most
// recently loaded reference's content in a single cache slot.  Sequential
// reference-ordered access therefore hits the cache almost always, while
// random cross-reference access degenerates to a miss per query.
//
// A CachingIndex is not safe for concurrent use: callers running queries
// from multiple goroutines must serialize them externally.
type CachingIndex struct {
	loader index.Loader
	slot   cacheSlot
	hits   uint64
	misses uint64
}

// cacheSlot is the cache's full state.  When loaded is false nothing has
// been cached yet.  When loaded is true, content holds what the loader
// returned for referenceID; a nil content is the cached form of "this
// reference has no index content" and is as valid a cache entry as any.
type cacheSlot struct {
	loaded      bool
	referenceID int32
	content     *index.ReferenceContent
}

// New returns a CachingIndex reading index content through loader.
func New(loader index.Loader) *CachingIndex {
	return &CachingIndex{loader: loader}
}

// SpanOverlapping returns the chunks that can hold records overlapping the
// 1-based inclusive interval [startPos, endPos] on the given reference.  An
// endPos at or below zero means "to the end of the reference".  The result
// is nil (with no error) when the reference has no index content or the
// interval is invalid; it is a non-nil empty span when the index simply has
// nothing overlapping the interval.  Loader failures are returned as errors.
func (c *CachingIndex) SpanOverlapping(referenceID int32, startPos, endPos int) (*Span, error) {
	content, err := c.queryResults(referenceID)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}

	bins := binning.RegionToBins(startPos, endPos)
	if bins == nil {
		return nil, nil
	}

	var chunks []bgzf.Chunk
	for _, id := range bins {
		if bin, ok := content.Bin(id); ok {
			chunks = append(chunks, bin.ChunkList()...)
		}
	}
	minOffset := content.Linear().MinimumOffset(startPos)
	return &Span{Chunks: bgzf.Optimize(chunks, minOffset)}, nil
}

// BinSpanOverlapping returns the chunks that can hold records overlapping
// the interval covered by bin.  The bin's own chunks are gathered first,
// then those of each ancestor present in the tree, nearest parent first;
// ancestors absent from a sparse tree contribute nothing.
func (c *CachingIndex) BinSpanOverlapping(bin *index.Bin) (*Span, error) {
	if bin == nil {
		return nil, nil
	}
	content, err := c.queryResults(bin.ReferenceID)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}

	var chunks []bgzf.Chunk
	if owned, ok := content.Bin(bin.ID); ok {
		chunks = append(chunks, owned.ChunkList()...)
	}
	for _, ancestor := range binning.Ancestors(bin.ID) {
		if parent, ok := content.Bin(ancestor); ok {
			chunks = append(chunks, parent.ChunkList()...)
		}
	}

	minOffset := content.Linear().MinimumOffset(binning.FirstLocusInBin(bin.ID))
	return &Span{Chunks: bgzf.Optimize(chunks, minOffset)}, nil
}

// BinsOverlapping returns the ids of every bin that could hold records
// overlapping the interval, bound to the reference but not yet resolved to
// chunks.  It returns nil for invalid intervals and consults no index data.
func (c *CachingIndex) BinsOverlapping(referenceID int32, startPos, endPos int) *BinList {
	bins := binning.RegionToBins(startPos, endPos)
	if bins == nil {
		return nil
	}
	return &BinList{ReferenceID: referenceID, Bins: bins}
}

// CacheHits returns the number of queries answered from the cache slot.
func (c *CachingIndex) CacheHits() uint64 {
	return c.hits
}

// CacheMisses returns the number of queries that had to invoke the loader.
func (c *CachingIndex) CacheMisses() uint64 {
	return c.misses
}

// queryResults returns the index content for the reference, from the cache
// slot when it matches and through the loader otherwise.  A successful load
// replaces whatever the slot held; a failed load leaves the slot untouched
// and counts as neither hit nor miss.
func (c *CachingIndex) queryResults(referenceID int32) (*index.ReferenceContent, error) {
	if c.slot.loaded && c.slot.referenceID == referenceID {
		c.hits++
		return c.slot.content, nil
	}

	content, err := c.loader.LoadReferenceContent(referenceID)
	if err != nil {
		return nil, fmt.Errorf("loading reference %d: %v", referenceID, err)
	}
	c.misses++
	c.slot = cacheSlot{loaded: true, referenceID: referenceID, content: content}
	return content, nil
}
