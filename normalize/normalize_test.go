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

package normalize

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/LaudateCorpus1/phlip-doc-management/internal/testpdf"
	"github.com/LaudateCorpus1/phlip-doc-management/pdf"
)

// fakeQPDF writes a shell script which stands in for qpdf.  The script
// receives the same arguments as qpdf: $3 is the input file and $4 the
// output file.
func fakeQPDF(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not available")
	}
	name := filepath.Join(t.TempDir(), "qpdf")
	err := os.WriteFile(name, []byte("#!/bin/sh\n"+body+"\n"), 0o755)
	if err != nil {
		t.Fatal(err)
	}
	return name
}

func TestQPDFCopy(t *testing.T) {
	tmp := t.TempDir()
	q := &QPDF{
		Path:    fakeQPDF(t, `cp "$3" "$4"`),
		TempDir: tmp,
	}
	in := testpdf.OnePage().Build().Data
	out, err := q.Normalize(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(in, out) {
		t.Error("output differs from input")
	}

	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%d temporary entries left behind", len(entries))
	}
}

func TestQPDFExitCode(t *testing.T) {
	q := &QPDF{
		Path:    fakeQPDF(t, `echo "broken file" >&2; exit 2`),
		TempDir: t.TempDir(),
	}
	_, err := q.Normalize(context.Background(), []byte("%PDF-1.4\n"))
	var fail *NormalizationFailure
	if !errors.As(err, &fail) {
		t.Fatalf("expected NormalizationFailure, got %v", err)
	}
	if fail.ExitCode != 2 || fail.Stderr != "broken file\n" {
		t.Errorf("wrong failure %+v", fail)
	}
}

func TestQPDFWarnings(t *testing.T) {
	q := &QPDF{
		Path:    fakeQPDF(t, `cp "$3" "$4"; exit 3`),
		TempDir: t.TempDir(),
	}
	out, err := q.Normalize(context.Background(), []byte("%PDF-1.4\n"))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "%PDF-1.4\n" {
		t.Errorf("got %q", out)
	}
}

func TestQPDFTimeout(t *testing.T) {
	tmp := t.TempDir()
	q := &QPDF{
		Path:    fakeQPDF(t, `exec sleep 10`),
		Timeout: 100 * time.Millisecond,
		TempDir: tmp,
	}
	start := time.Now()
	_, err := q.Normalize(context.Background(), []byte("%PDF-1.4\n"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
	if d := time.Since(start); d > 5*time.Second {
		t.Errorf("timeout took %s", d)
	}
	entries, _ := os.ReadDir(tmp)
	if len(entries) != 0 {
		t.Errorf("%d temporary entries left behind", len(entries))
	}
}

func TestQPDFMissingTool(t *testing.T) {
	q := &QPDF{
		Path:    filepath.Join(t.TempDir(), "does-not-exist"),
		TempDir: t.TempDir(),
	}
	_, err := q.Normalize(context.Background(), []byte("%PDF-1.4\n"))
	var fail *NormalizationFailure
	if !errors.As(err, &fail) || fail.ExitCode != -1 {
		t.Errorf("unexpected error %v", err)
	}
}

// Concurrent calls must each get their own working directory.
func TestQPDFConcurrent(t *testing.T) {
	q := &QPDF{
		Path:    fakeQPDF(t, `pwd > "$4"`),
		TempDir: t.TempDir(),
	}

	const n = 8
	dirs := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := q.Normalize(context.Background(), []byte("%PDF-1.4\n"))
			dirs[i] = string(bytes.TrimSpace(out))
			errs[i] = err
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatal(errs[i])
		}
		if seen[dirs[i]] {
			t.Errorf("directory %s used twice", dirs[i])
		}
		seen[dirs[i]] = true
		if _, err := os.Stat(dirs[i]); !os.IsNotExist(err) {
			t.Errorf("directory %s was not removed", dirs[i])
		}
	}
}

type fixed struct {
	out []byte
	err error
}

func (f fixed) Normalize(context.Context, []byte) ([]byte, error) {
	return f.out, f.err
}

func TestChain(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")

	out, err := Chain{fixed{err: errA}, fixed{out: []byte("ok")}}.Normalize(context.Background(), nil)
	if err != nil || string(out) != "ok" {
		t.Errorf("got %q, %v", out, err)
	}

	_, err = Chain{fixed{err: errA}, fixed{err: errB}}.Normalize(context.Background(), nil)
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("wrong error %v", err)
	}

	_, err = Chain{}.Normalize(context.Background(), nil)
	var fail *NormalizationFailure
	if !errors.As(err, &fail) {
		t.Errorf("wrong error %v", err)
	}
}

func TestPDFCPU(t *testing.T) {
	in := testpdf.OnePage().Build().Data
	out, err := (&PDFCPU{}).Normalize(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	st := pdf.Inspect(out)
	if st.XRefStreams || st.ObjectStreams {
		t.Errorf("output still needs normalization: %+v", st)
	}
	if _, err := pdf.Open(out); err != nil {
		t.Error(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = (&PDFCPU{}).Normalize(ctx, in)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("wrong error %v", err)
	}
}
