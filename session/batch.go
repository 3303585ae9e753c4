// phlip-doc-management - incremental highlight annotations for PDF files
// Copyright (C) 2026  The phlip-doc-management authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package session

import (
	"context"
	"sync"
)

// Input is one document of a batch.
type Input struct {
	Name     string
	Data     []byte
	Requests []Request
}

// Result is the outcome for one document of a batch.
type Result struct {
	Name string

	// Data is the annotated file.  If the file could not be processed,
	// this is the original file.
	Data []byte

	// Warning is set if some or all annotations could not be added.
	Warning error
}

// ProcessBatch annotates documents concurrently, using at most workers
// goroutines.  A document which fails is returned unchanged, together with
// a warning; other documents are not affected.  Results are in input order.
func ProcessBatch(ctx context.Context, inputs []Input, workers int, opts *Options) []Result {
	log := opts.logger()
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(inputs))
	jobs := make(chan int, workers*2)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = processOne(ctx, &inputs[i], opts)
			}
		}()
	}

	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	failed := 0
	for _, res := range results {
		if res.Warning != nil {
			failed++
		}
	}
	log.Info("batch finished", "documents", len(inputs), "warnings", failed)

	return results
}

func processOne(ctx context.Context, in *Input, opts *Options) Result {
	log := opts.logger().With("doc", in.Name)
	log.Info("starting processing")

	if len(in.Requests) == 0 {
		log.Info("document does not have annotations")
		return Result{Name: in.Name, Data: in.Data}
	}
	if err := ctx.Err(); err != nil {
		return Result{Name: in.Name, Data: in.Data, Warning: err}
	}

	out, err := Annotate(ctx, in.Name, in.Data, in.Requests, opts)
	if out == nil {
		log.Error("ERROR processing document, keeping original", "error", err)
		return Result{Name: in.Name, Data: in.Data, Warning: err}
	}
	if err != nil {
		log.Warn("some annotations were skipped", "error", err)
	} else {
		log.Info("finished adding annotations")
	}
	return Result{Name: in.Name, Data: out, Warning: err}
}
