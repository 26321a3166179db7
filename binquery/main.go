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

// This binary answers overlap queries against local BAM/BAI pairs, printing
// the byte ranges a reader would have to scan.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/profile"

	"github.com/genomeio/binquery/bgzf"
	"github.com/genomeio/binquery/internal/bai"
	"github.com/genomeio/binquery/internal/bam"
	"github.com/genomeio/binquery/query"
)

var (
	reference = flag.String("r", "", "reference name")
	start     = flag.Int("s", 1, "1-based inclusive start position")
	end       = flag.Int("e", 0, "1-based inclusive end position (0 means the end of the reference)")
	verify    = flag.Bool("verify", false, "decode the first BGZF block of each chunk")
	profiling = flag.Bool("profile", false, "enable CPU profiling")
)

func main() {
	flag.Parse()

	if *reference == "" {
		log.Fatalf("You must specify a reference name with -r.")
	}
	if *profiling {
		defer profile.Start().Stop()
	}

	for _, target := range flag.Args() {
		if err := run(target); err != nil {
			log.Fatalf("Querying %q: %v", target, err)
		}
	}
}

func run(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening data: %v", err)
	}
	defer f.Close()

	referenceID, err := bam.GetReferenceID(f, *reference)
	if err != nil {
		return fmt.Errorf("resolving reference name: %v", err)
	}

	idx, err := bai.OpenFile(path + ".bai")
	if err != nil {
		return fmt.Errorf("opening index: %v", err)
	}

	engine := query.New(idx)
	span, err := engine.SpanOverlapping(referenceID, *start, *end)
	if err != nil {
		return fmt.Errorf("running query: %v", err)
	}
	if span == nil {
		return fmt.Errorf("no index data for reference %q", *reference)
	}

	log.Printf("%d chunks for %s:%d-%d", len(span.Chunks), *reference, *start, *end)
	for _, chunk := range span.Chunks {
		fmt.Printf("%s\t%s\n", chunk.Start, chunk.End)
		if *verify {
			if err := verifyChunk(f, chunk); err != nil {
				return fmt.Errorf("verifying chunk %v: %v", chunk, err)
			}
		}
	}
	return nil
}

// verifyChunk decodes the block a chunk starts in to confirm the chunk
// points at a real BGZF block boundary.
func verifyChunk(f io.ReadSeeker, chunk bgzf.Chunk) error {
	if _, err := f.Seek(int64(chunk.Start.BlockOffset()), io.SeekStart); err != nil {
		return fmt.Errorf("seeking to block: %v", err)
	}
	data, size, err := bgzf.DecodeBlock(f)
	if err != nil {
		return fmt.Errorf("decoding block: %v", err)
	}
	log.Printf("Block at %d: %d compressed, %d uncompressed", chunk.Start.BlockOffset(), size, len(data))
	return nil
}
