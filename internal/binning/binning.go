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

// Package binning implements the fixed multi-resolution binning scheme used
// by BAI indexes, as specified in the SAM specification section 5.1.1.  The
// genome is covered by six levels of bins; each level is eight times finer
// than its parent and bin ids are assigned level by level, coarsest first.
package binning

import "fmt"

const (
	// GenomicSpan is the total addressable coordinate space in base pairs.
	GenomicSpan = 1 << 29

	// MaxCoordinate is the largest valid 1-based locus.
	MaxCoordinate = GenomicSpan

	// Levels is the number of resolution levels in the bin tree.
	Levels = 6

	// MaxBins is the total number of bins across all levels.
	MaxBins = 37449

	// WindowSize is the width of one linear index window, as specified in
	// the SAM specification section 5.1.3.
	WindowSize = 1 << 14
)

// levelStarts[n] is the id of the first bin at level n.
var levelStarts = [Levels]uint32{0, 1, 9, 73, 585, 4681}

// RegionToBins returns the ids of every bin whose window intersects the
// 1-based inclusive interval [start, end].  An end at or below zero means
// "to the end of the reference".  It returns nil when the interval is
// invalid: start outside [1, MaxCoordinate], end beyond MaxCoordinate, or
// end before start.  Any valid interval intersects the level zero bin, so
// the result is never empty for valid input.
func RegionToBins(start, end int) []uint32 {
	if end <= 0 {
		end = MaxCoordinate
	}
	if start < 1 || start > MaxCoordinate || end > MaxCoordinate || end < start {
		return nil
	}

	s, e := uint32(start-1), uint32(end-1)
	bins := []uint32{0}
	for level := 1; level < Levels; level++ {
		shift := uint(29 - 3*level)
		first := levelStarts[level]
		for id := first + s>>shift; id <= first+e>>shift; id++ {
			bins = append(bins, id)
		}
	}
	return bins
}

// LevelForBin returns the resolution level that bin id belongs to.  It
// panics when id is not a valid bin, since every id handed to it must come
// from the scheme's own arithmetic.
func LevelForBin(id uint32) int {
	if id >= MaxBins {
		panic(fmt.Sprintf("binning: bin %d out of range", id))
	}
	for level := Levels - 1; level > 0; level-- {
		if id >= levelStarts[level] {
			return level
		}
	}
	return 0
}

// FirstBinInLevel returns the id of the first bin at the given level.
func FirstBinInLevel(level int) uint32 {
	return levelStarts[level]
}

// LevelSize returns the number of bins at the given level.
func LevelSize(level int) int {
	if level < 0 || level >= Levels {
		panic(fmt.Sprintf("binning: level %d out of range", level))
	}
	return 1 << uint(3*level)
}

// WidthAtLevel returns the number of base pairs covered by one bin at the
// given level.
func WidthAtLevel(level int) int {
	return GenomicSpan / LevelSize(level)
}

// FirstLocusInBin returns the 1-based locus of the first position covered by
// the given bin.
func FirstLocusInBin(id uint32) int {
	level := LevelForBin(id)
	return int(id-levelStarts[level])*WidthAtLevel(level) + 1
}

// LastLocusInBin returns the 1-based locus of the last position covered by
// the given bin.
func LastLocusInBin(id uint32) int {
	return FirstLocusInBin(id) + WidthAtLevel(LevelForBin(id)) - 1
}

// Ancestors returns the chain of bins containing the given bin, nearest
// parent first and ending with the level zero bin.  The chain is derived
// purely from bin arithmetic and does not depend on which bins an index
// actually contains.
func Ancestors(id uint32) []uint32 {
	level := LevelForBin(id)
	locus := FirstLocusInBin(id)
	ancestors := make([]uint32, 0, level)
	for level--; level >= 0; level-- {
		ancestors = append(ancestors, levelStarts[level]+uint32((locus-1)/WidthAtLevel(level)))
	}
	return ancestors
}

// WindowForLocus returns the linear index window containing the 1-based
// locus.
func WindowForLocus(locus int) int {
	if locus < 1 {
		return 0
	}
	return (locus - 1) / WindowSize
}
