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

// This binary provides a span query server over local or GCS datasets.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/genomeio/binquery/api"
	"github.com/genomeio/binquery/gcs"
)

var (
	port      = flag.Int("port", 80, "HTTP service port")
	directory = flag.String("dir", "", "serve datasets from this local directory")
	bucket    = flag.String("bucket", "", "serve datasets from this GCS bucket")
	auth      = flag.String("auth", "public", "GCS authentication mode: public, default or bearer")
	blockSize = flag.Uint64("block_size", 1024*1024*1024, "merge response chunks up to this many bytes (0 disables merging)")
)

func main() {
	flag.Parse()

	var newSource api.NewSourceFunc
	switch {
	case *directory != "" && *bucket != "":
		log.Fatalf("Specify only one of -dir and -bucket.")
	case *directory != "":
		newSource = api.StaticSource(api.FileSource(*directory))
	case *bucket != "":
		switch *auth {
		case "public":
			newSource = gcs.NewPublicSource(*bucket)
		case "default":
			newSource = gcs.NewDefaultSource(*bucket)
		case "bearer":
			newSource = gcs.NewBearerTokenSource(*bucket)
		default:
			log.Fatalf("Unknown authentication mode %q.", *auth)
		}
	default:
		log.Fatalf("You must specify either -dir or -bucket.")
	}

	router := gin.Default()
	api.NewServer(newSource, *blockSize).Export(router)

	log.Printf("Instance %s listening on port %d", uuid.New(), *port)
	if err := router.Run(fmt.Sprintf(":%d", *port)); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
