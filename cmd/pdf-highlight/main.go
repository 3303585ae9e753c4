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

// Pdf-highlight adds highlight annotations to PDF files.
//
// In single-file mode, the annotations are read from a JSON file given
// with -r, in the format
//
//	[{"startPage": 0, "endPage": 0, "rects": [
//	    {"pageNumber": 0, "pdfPoints": {"x": 72, "y": 700, "endX": 300, "endY": 688}}]}]
//
// Page numbers start at 0.  In batch mode (-batch), a manifest lists
// several files together with their annotations; files which cannot be
// annotated are copied unchanged.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"golang.org/x/term"

	"github.com/LaudateCorpus1/phlip-doc-management/session"
)

// job is an entry of a batch manifest.
type job struct {
	Input       string            `json:"input"`
	Output      string            `json:"output"`
	Annotations []session.Request `json:"annotations"`
}

func main() {
	in := flag.String("i", "", "input PDF file")
	reqFile := flag.String("r", "", "JSON file with the annotations")
	out := flag.String("o", "", "output file name, \"-\" for standard output")
	force := flag.Bool("f", false, "overwrite output file if it exists")
	batch := flag.String("batch", "", "JSON manifest for batch mode")
	configFile := flag.String("config", "", "YAML configuration file")
	qpdfPath := flag.String("qpdf", "", "qpdf executable")
	timeout := flag.Duration("timeout", 0, "time limit for each qpdf run")
	normalizer := flag.String("normalizer", "", "normalizer: auto, qpdf, pdfcpu or none")
	workers := flag.Int("workers", 0, "number of files processed concurrently in batch mode")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	cfg := &session.Config{}
	if *configFile != "" {
		var err error
		cfg, err = session.LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "qpdf":
			cfg.QPDFPath = *qpdfPath
		case "timeout":
			cfg.Timeout = *timeout
		case "normalizer":
			cfg.Normalizer = *normalizer
		case "workers":
			cfg.Workers = *workers
		case "v":
			if *verbose {
				cfg.LogLevel = "debug"
			}
		}
	})
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	norm, err := cfg.NewNormalizer(logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	opts := &session.Options{
		Normalizer: norm,
		Logger:     logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *batch != "" {
		err = runBatch(ctx, *batch, cfg.Workers, *force, opts)
	} else {
		err = runSingle(ctx, *in, *reqFile, *out, *force, opts)
	}
	if err != nil {
		logger.Error("failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func runSingle(ctx context.Context, in, reqFile, out string, force bool, opts *session.Options) error {
	if in == "" || reqFile == "" {
		flag.Usage()
		return errors.New("both -i and -r are required")
	}
	if out == "" {
		out = "-"
	}
	if out == "-" && term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("refusing to write PDF data to a terminal, use -o")
	}

	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	var reqs []session.Request
	err = readJSON(reqFile, &reqs)
	if err != nil {
		return err
	}

	start := time.Now()
	s, err := session.Open(ctx, in, data, opts)
	if err != nil {
		return err
	}
	n, err := s.Apply(session.SplitByPage(reqs))
	if err != nil {
		opts.Logger.Warn("some annotations were skipped", "error", err)
	}
	opts.Logger.Info("annotations added",
		"file", in, "count", n, "duration", time.Since(start))

	if out == "-" {
		_, err = s.Doc.WriteTo(os.Stdout)
		return err
	}
	f, err := createOutput(out, force)
	if err != nil {
		return err
	}
	_, err = s.Doc.WriteTo(f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

func runBatch(ctx context.Context, manifest string, workers int, force bool, opts *session.Options) error {
	var jobs []job
	err := readJSON(manifest, &jobs)
	if err != nil {
		return err
	}

	inputs := make([]session.Input, len(jobs))
	for i, j := range jobs {
		if j.Input == "" || j.Output == "" {
			return fmt.Errorf("manifest entry %d: input and output are required", i)
		}
		data, err := os.ReadFile(j.Input)
		if err != nil {
			return err
		}
		inputs[i] = session.Input{
			Name:     j.Input,
			Data:     data,
			Requests: j.Annotations,
		}
	}

	results := session.ProcessBatch(ctx, inputs, workers, opts)
	for i, res := range results {
		if res.Warning != nil {
			opts.Logger.Warn("document processed with warnings", "doc", res.Name, "error", res.Warning)
		}
		err := writeFile(jobs[i].Output, res.Data, force)
		if err != nil {
			return err
		}
	}
	return nil
}

func readJSON(fname string, v any) error {
	data, err := os.ReadFile(fname)
	if err != nil {
		return err
	}
	err = json.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("%s: %w", fname, err)
	}
	return nil
}

func writeFile(fname string, data []byte, force bool) error {
	f, err := createOutput(fname, force)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

// createOutput creates the file fname.  Unless force is set, an existing
// file is not overwritten.
func createOutput(fname string, force bool) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(fname, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("output file %q already exists", fname)
	}
	return f, err
}
