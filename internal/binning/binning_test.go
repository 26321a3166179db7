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

package binning

import (
	"reflect"
	"testing"
)

func TestRegionToBins(t *testing.T) {
	testCases := []struct {
		name       string
		start, end int
		want       []uint32
	}{
		{
			"single base at origin",
			1, 1,
			[]uint32{0, 1, 9, 73, 585, 4681},
		},
		{
			"interval inside the first window",
			1, 1000,
			[]uint32{0, 1, 9, 73, 585, 4681},
		},
		{
			"interval spanning two finest bins",
			16384, 16385,
			[]uint32{0, 1, 9, 73, 585, 4681, 4682},
		},
		{
			"unbounded end",
			MaxCoordinate - WindowSize + 1, 0,
			[]uint32{0, 8, 72, 584, 4680, 37448},
		},
		{
			"last addressable base",
			MaxCoordinate, MaxCoordinate,
			[]uint32{0, 8, 72, 584, 4680, 37448},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := RegionToBins(tc.start, tc.end)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Wrong bins: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRegionToBins_NeverEmptyForValidIntervals(t *testing.T) {
	intervals := []struct{ start, end int }{
		{1, 1},
		{1, MaxCoordinate},
		{MaxCoordinate, MaxCoordinate},
		{123456, 654321},
		{7, 0},
	}
	for _, interval := range intervals {
		bins := RegionToBins(interval.start, interval.end)
		if len(bins) == 0 {
			t.Errorf("Got no bins for [%d, %d]", interval.start, interval.end)
		}
		if bins[0] != 0 {
			t.Errorf("Level zero bin missing for [%d, %d]", interval.start, interval.end)
		}
	}
}

func TestRegionToBins_InvalidIntervals(t *testing.T) {
	testCases := []struct {
		name       string
		start, end int
	}{
		{"end before start", 100, 99},
		{"zero start", 0, 100},
		{"negative start", -5, 100},
		{"start beyond addressable space", MaxCoordinate + 1, 0},
		{"end beyond addressable space", 1, MaxCoordinate + 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RegionToBins(tc.start, tc.end); got != nil {
				t.Fatalf("Expected no bins, got %v", got)
			}
		})
	}
}

func TestLevelArithmetic(t *testing.T) {
	testCases := []struct {
		id    uint32
		level int
		first int
		last  int
	}{
		{0, 0, 1, GenomicSpan},
		{1, 1, 1, 1 << 26},
		{8, 1, 7<<26 + 1, GenomicSpan},
		{9, 2, 1, 1 << 23},
		{4681, 5, 1, WindowSize},
		{4682, 5, WindowSize + 1, 2 * WindowSize},
		{37448, 5, GenomicSpan - WindowSize + 1, GenomicSpan},
	}
	for _, tc := range testCases {
		if got := LevelForBin(tc.id); got != tc.level {
			t.Errorf("LevelForBin(%d): got %d, want %d", tc.id, got, tc.level)
		}
		if got := FirstLocusInBin(tc.id); got != tc.first {
			t.Errorf("FirstLocusInBin(%d): got %d, want %d", tc.id, got, tc.first)
		}
		if got := LastLocusInBin(tc.id); got != tc.last {
			t.Errorf("LastLocusInBin(%d): got %d, want %d", tc.id, got, tc.last)
		}
	}
}

func TestLevelForBin_PanicsOnImpossibleBin(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Expected panic for out of range bin")
		}
	}()
	LevelForBin(MaxBins)
}

func TestAncestors(t *testing.T) {
	testCases := []struct {
		name string
		id   uint32
		want []uint32
	}{
		{"root has no ancestors", 0, []uint32{}},
		{"first bin of every level", 4681, []uint32{585, 73, 9, 1, 0}},
		{"last bin of every level", 37448, []uint32{4680, 584, 72, 8, 0}},
		{"mid level bin", 74, []uint32{9, 1, 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Ancestors(tc.id)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Wrong ancestors: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAncestors_ContainFirstLocus(t *testing.T) {
	for _, id := range []uint32{0, 5, 100, 600, 5000, 37448} {
		locus := FirstLocusInBin(id)
		for _, ancestor := range Ancestors(id) {
			if first, last := FirstLocusInBin(ancestor), LastLocusInBin(ancestor); locus < first || locus > last {
				t.Errorf("Ancestor %d of bin %d covers [%d, %d], missing locus %d", ancestor, id, first, last, locus)
			}
		}
	}
}

func TestWindowForLocus(t *testing.T) {
	testCases := []struct {
		locus int
		want  int
	}{
		{1, 0},
		{WindowSize, 0},
		{WindowSize + 1, 1},
		{0, 0},
		{MaxCoordinate, GenomicSpan/WindowSize - 1},
	}
	for _, tc := range testCases {
		if got := WindowForLocus(tc.locus); got != tc.want {
			t.Errorf("WindowForLocus(%d): got %d, want %d", tc.locus, got, tc.want)
		}
	}
}
