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

package index

import (
	"reflect"
	"testing"

	"github.com/genomeio/binquery/bgzf"
	"github.com/genomeio/binquery/internal/binning"
)

func TestBinOwnsItsChunks(t *testing.T) {
	chunks := []bgzf.Chunk{
		{Start: bgzf.NewAddress(100, 0), End: bgzf.NewAddress(500, 0)},
		{Start: bgzf.NewAddress(600, 0), End: bgzf.NewAddress(700, 0)},
	}
	bin := NewBin(0, 4681, chunks)

	// Mutating either the source slice or a returned copy must not reach
	// the bin's owned list.
	chunks[0].Start = bgzf.NewAddress(999, 0)
	first := bin.ChunkList()
	first[1].End = bgzf.NewAddress(1, 1)

	second := bin.ChunkList()
	want := []bgzf.Chunk{
		{Start: bgzf.NewAddress(100, 0), End: bgzf.NewAddress(500, 0)},
		{Start: bgzf.NewAddress(600, 0), End: bgzf.NewAddress(700, 0)},
	}
	if !reflect.DeepEqual(second, want) {
		t.Fatalf("Bin chunks were mutated: got %v, want %v", second, want)
	}
	if got, want := bin.ChunkCount(), 2; got != want {
		t.Errorf("Wrong chunk count: got %d, want %d", got, want)
	}
}

func TestLinearIndexMinimumOffset(t *testing.T) {
	idx := LinearIndex{
		bgzf.NewAddress(10, 0),
		bgzf.NewAddress(20, 0),
		bgzf.NewAddress(30, 0),
	}
	testCases := []struct {
		name  string
		locus int
		want  bgzf.Address
	}{
		{"first window", 1, bgzf.NewAddress(10, 0)},
		{"end of first window", binning.WindowSize, bgzf.NewAddress(10, 0)},
		{"second window", binning.WindowSize + 1, bgzf.NewAddress(20, 0)},
		{"past the indexed region", 10 * binning.WindowSize, 0},
		{"non-positive locus", 0, bgzf.NewAddress(10, 0)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := idx.MinimumOffset(tc.locus); got != tc.want {
				t.Fatalf("Wrong minimum offset: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestReferenceContentLookup(t *testing.T) {
	bins := []*Bin{
		NewBin(2, 0, []bgzf.Chunk{{Start: 1, End: 2}}),
		NewBin(2, 4681, nil),
	}
	content := NewReferenceContent(2, bins, nil)

	if got, want := content.ReferenceID(), int32(2); got != want {
		t.Errorf("Wrong reference ID: got %d, want %d", got, want)
	}
	if got, want := content.BinCount(), 2; got != want {
		t.Errorf("Wrong bin count: got %d, want %d", got, want)
	}
	if !content.ContainsBin(0) || !content.ContainsBin(4681) {
		t.Error("Expected bins 0 and 4681 to be present")
	}
	if content.ContainsBin(9) {
		t.Error("Bin 9 should be absent from a sparse tree")
	}
	if _, ok := content.Bin(9); ok {
		t.Error("Lookup of an absent bin should report absence")
	}
	if got, want := content.BinIDs(), []uint32{0, 4681}; !reflect.DeepEqual(got, want) {
		t.Errorf("Wrong bin order: got %v, want %v", got, want)
	}
}
