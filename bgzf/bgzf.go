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

// Package bgzf provides support for BGZF virtual addresses, chunks and
// blocks.
package bgzf

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// MaximumBlockSize is the maximum BGZF block size.
const MaximumBlockSize = 65536

// Address stores a BGZF "virtual address".  The lower 16 bits store the data
// offset inside the uncompressed stream and upper 48 bits store the block
// offset inside the compressed archive set.
type Address uint64

// BlockOffset returns the offset to the start of the compressed block.
func (v Address) BlockOffset() uint64 {
	return uint64(v >> 16)
}

// DataOffset returns the offset to the data in the uncompressed block.
func (v Address) DataOffset() uint16 {
	return uint16(v & 0xffff)
}

// String returns a representation of v that can be parsed with ParseAddress.
func (v Address) String() string {
	return strconv.FormatUint(uint64(v), 16)
}

// ParseAddress attempts to parse input into an Address.
func ParseAddress(input string) (Address, error) {
	v, err := strconv.ParseUint(input, 16, 64)
	return Address(v), err
}

// NewAddress returns a new Address with the provided offsets.
func NewAddress(blockOffset uint64, dataOffset uint16) Address {
	return Address(blockOffset<<16 | uint64(dataOffset))
}

// Chunk specifies a region from Start to End (inclusive) inside a BGZF file.
type Chunk struct {
	Start, End Address
}

// String returns a human readable description of the receiver.
func (v Chunk) String() string {
	return fmt.Sprintf("[%s-%s]", v.Start, v.End)
}

// Optimize reduces input to the minimal ascending set of chunks that can
// still contain data at or after minOffset.  Chunks that end at or before
// minOffset are dropped entirely.  The survivors are sorted by start address
// and merged whenever one starts in or before the compressed block that ends
// the previous chunk, since a reader scanning the previous chunk has already
// paid for decompressing that block.  The input slice is left unmodified and
// an empty input yields an empty (non-nil) result.
func Optimize(input []Chunk, minOffset Address) []Chunk {
	chunks := make([]Chunk, 0, len(input))
	for _, chunk := range input {
		if chunk.End <= minOffset {
			continue
		}
		chunks = append(chunks, chunk)
	}
	if len(chunks) < 2 {
		return chunks
	}

	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Start != chunks[j].Start {
			return chunks[i].Start < chunks[j].Start
		}
		return chunks[i].End < chunks[j].End
	})

	merged := chunks[:1]
	for _, chunk := range chunks[1:] {
		last := &merged[len(merged)-1]
		if chunk.Start.BlockOffset() <= last.End.BlockOffset() {
			if chunk.End > last.End {
				last.End = chunk.End
			}
			continue
		}
		merged = append(merged, chunk)
	}
	return merged
}

// Merge coalesces runs of nearby chunks so that a caller can retrieve the
// same data in fewer ranges.  Consecutive chunks are combined whenever the
// size estimate for the combined chunk stays within sizeLimit bytes, even if
// a gap separates them; a single chunk already larger than sizeLimit is
// passed through unsplit.  The input must be ascending and non-overlapping,
// as produced by Optimize, and is left unmodified.
func Merge(input []Chunk, sizeLimit uint64) []Chunk {
	if len(input) < 2 {
		return append([]Chunk(nil), input...)
	}
	merged := []Chunk{input[0]}
	for _, chunk := range input[1:] {
		last := &merged[len(merged)-1]
		if estimateSize(last.Start, chunk.End) <= sizeLimit {
			if chunk.End > last.End {
				last.End = chunk.End
			}
			continue
		}
		merged = append(merged, chunk)
	}
	return merged
}

// estimateSize bounds the count of compressed bytes between two addresses.
// Within a single block the data offsets bound it exactly; otherwise the
// size of the final block is unknown and assumed maximal.
func estimateSize(start, end Address) uint64 {
	if start.BlockOffset() == end.BlockOffset() {
		return uint64(end.DataOffset() - start.DataOffset())
	}
	return end.BlockOffset() - start.BlockOffset() + MaximumBlockSize
}

// DecodeBlock decodes a single BGZF block from r and returns the uncompressed
// data and the original block size (or an error).  Note that DecodeBlock may
// read bytes past the end of the block if r does not implement io.ByteReader.
func DecodeBlock(r io.Reader) ([]byte, uint16, error) {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("initializing gzip reader: %v", err)
	}
	defer gzr.Close()

	extra := gzr.Header.Extra
	if len(extra) < 6 {
		return nil, 0, fmt.Errorf("truncated extra field (%d bytes)", len(extra))
	}
	if extra[0] != 0x42 || extra[1] != 0x43 {
		return nil, 0, fmt.Errorf("unexpected extra ID: %x", extra[0:2])
	}
	if extra[2] != 2 || extra[3] != 0 {
		return nil, 0, fmt.Errorf("unexpected extra length: %x", extra[2:4])
	}

	gzr.Multistream(false)
	var buffer bytes.Buffer
	if _, err := io.Copy(&buffer, gzr); err != nil {
		return nil, 0, fmt.Errorf("decompressing data: %v", err)
	}
	return buffer.Bytes(), (uint16(extra[4]) | uint16(extra[5])<<8) + 1, nil
}

// EncodeBlock returns a single BGZF block that encodes the bytes in data.
func EncodeBlock(data []byte) ([]byte, error) {
	if len(data) > MaximumBlockSize {
		return nil, errors.New("data exceeds maximum block size")
	}

	var buffer bytes.Buffer
	gzw := gzip.NewWriter(&buffer)

	gzw.Header.Extra = []byte{
		0x42, 0x43, // Extra ID.
		0x02, 0x00, // Length of extra data (2 bytes).
		0x88, 0x88, // BSIZE (filled in after writing the archive).
	}
	if _, err := gzw.Write(data); err != nil {
		return nil, fmt.Errorf("writing compressed data: %v", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("closing writer: %v", err)
	}
	bsize := buffer.Len() - 1
	encoded := buffer.Bytes()
	encoded[16] = byte(bsize)
	encoded[17] = byte(bsize >> 8)
	return encoded, nil
}
