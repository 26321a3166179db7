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

package bam

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/genomeio/binquery/internal/binary"
)

// buildHeader produces a gzip compressed BAM header naming the provided
// references, in order.
func buildHeader(t *testing.T, references ...string) []byte {
	t.Helper()
	var raw bytes.Buffer
	raw.WriteString(bamMagic)
	write := func(v interface{}) {
		if err := binary.Write(&raw, v); err != nil {
			t.Fatalf("Failed to write test header: %v", err)
		}
	}
	write(int32(0)) // No SAM header text.
	write(int32(len(references)))
	for _, name := range references {
		write(int32(len(name) + 1))
		raw.WriteString(name)
		raw.WriteByte(0)
		write(int32(0)) // Reference length.
	}

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(raw.Bytes()); err != nil {
		t.Fatalf("Failed to compress test header: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("Failed to close gzip writer: %v", err)
	}
	return compressed.Bytes()
}

func TestGetReferenceID_Success(t *testing.T) {
	header := buildHeader(t, "1", "20", "GL000249.1")
	testCases := []struct {
		name string
		id   int32
	}{
		{"1", 0},
		{"20", 1},
		{"GL000249.1", 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if id, err := GetReferenceID(bytes.NewReader(header), tc.name); err != nil {
				t.Fatalf("GetReferenceID() returned error: %v", err)
			} else if id != tc.id {
				t.Fatalf("Wrong reference ID: got %d, want %d", id, tc.id)
			}
		})
	}
}

func TestGetReferenceID_Errors(t *testing.T) {
	testCases := []struct {
		name      string
		reference string
		data      []byte
	}{
		{"zero-length", "", nil},
		{"not gzip", "X", []byte{'B', 'A', 'M', 1}},
		{"missing reference", "X", buildHeader(t, "1", "2")},
		{"empty reference list", "X", buildHeader(t)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := GetReferenceID(bytes.NewReader(tc.data), tc.reference); err == nil {
				t.Fatal("Expected error resolving reference ID")
			}
		})
	}
}
