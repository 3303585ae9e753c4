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
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/rect"

	"github.com/LaudateCorpus1/phlip-doc-management/annotation"
	"github.com/LaudateCorpus1/phlip-doc-management/internal/testpdf"
	"github.com/LaudateCorpus1/phlip-doc-management/normalize"
	"github.com/LaudateCorpus1/phlip-doc-management/pagetree"
	"github.com/LaudateCorpus1/phlip-doc-management/pdf"
)

var quiet = &Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

var line = annotation.Rect{X: 72, Y: 700, EndX: 300, EndY: 688}

// normalizerFunc adapts a function to the normalize.Normalizer interface.
type normalizerFunc func(ctx context.Context, data []byte) ([]byte, error)

func (f normalizerFunc) Normalize(ctx context.Context, data []byte) ([]byte, error) {
	return f(ctx, data)
}

// objectStreamFile returns a file which uses an object stream.
func objectStreamFile() []byte {
	return testpdf.OnePage().
		Update().Add(5, "<< /Type /ObjStm /N 0 /First 0 /Length 0 >>\nstream\n\nendstream").
		Build().Data
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), "one.pdf", testpdf.OnePage().Build().Data, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Pages) != 1 || s.Normalized || s.NextFree() != 5 {
		t.Errorf("unexpected session %+v", s)
	}
}

func TestOpenNormalizes(t *testing.T) {
	clean := testpdf.OnePage().Build().Data
	calls := 0
	opts := &Options{
		Logger: quiet.Logger,
		Normalizer: normalizerFunc(func(ctx context.Context, data []byte) ([]byte, error) {
			calls++
			return clean, nil
		}),
	}

	s, err := Open(context.Background(), "objstm.pdf", objectStreamFile(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 || !s.Normalized {
		t.Errorf("normalizer called %d times, Normalized=%t", calls, s.Normalized)
	}

	// classic files are not normalized
	_, err = Open(context.Background(), "one.pdf", clean, opts)
	if err != nil || calls != 1 {
		t.Errorf("classic file: %d calls, %v", calls, err)
	}
}

func TestOpenNormalizationErrors(t *testing.T) {
	data := objectStreamFile()

	_, err := Open(context.Background(), "x.pdf", data, quiet)
	if !errors.Is(err, pdf.ErrNeedsNormalization) {
		t.Errorf("without normalizer: %v", err)
	}

	failing := &Options{
		Logger: quiet.Logger,
		Normalizer: normalizerFunc(func(context.Context, []byte) ([]byte, error) {
			return nil, &normalize.NormalizationFailure{Tool: "fake", ExitCode: 2}
		}),
	}
	_, err = Open(context.Background(), "x.pdf", data, failing)
	var fail *normalize.NormalizationFailure
	if !errors.As(err, &fail) || fail.ExitCode != 2 {
		t.Errorf("failing normalizer: %v", err)
	}

	noop := &Options{
		Logger: quiet.Logger,
		Normalizer: normalizerFunc(func(_ context.Context, data []byte) ([]byte, error) {
			return data, nil
		}),
	}
	_, err = Open(context.Background(), "x.pdf", data, noop)
	if !errors.As(err, &fail) || !errors.Is(err, pdf.ErrNeedsNormalization) {
		t.Errorf("ineffective normalizer: %v", err)
	}
}

func TestAddHighlight(t *testing.T) {
	b, _ := testpdf.Tree(1, 3)
	s, err := Open(context.Background(), "three.pdf", b.Build().Data, quiet)
	if err != nil {
		t.Fatal(err)
	}

	g, err := s.AddHighlight(&Annotation{Page: 2, Rects: []annotation.Rect{line}, Contents: "note"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Pages[2].Annots.Kind != pagetree.AnnotsInline {
		t.Errorf("page annotations not updated")
	}
	if d := cmp.Diff([]pdf.Reference{g.Annot()}, s.Pages[2].Annots.Refs()); d != "" {
		t.Error(d)
	}

	_, err = s.AddHighlight(&Annotation{Page: 3, Rects: []annotation.Rect{line}})
	var geomErr *annotation.GeometryError
	if !errors.As(err, &geomErr) {
		t.Errorf("page out of range: %v", err)
	}
}

func TestApplySkipsFailures(t *testing.T) {
	s, err := Open(context.Background(), "one.pdf", testpdf.OnePage().Build().Data, quiet)
	if err != nil {
		t.Fatal(err)
	}
	n, err := s.Apply([]Annotation{
		{Page: 0, Rects: []annotation.Rect{line}},
		{Page: 0},
		{Page: 7, Rects: []annotation.Rect{line}},
		{Page: 0, Rects: []annotation.Rect{line}},
	})
	if n != 2 {
		t.Errorf("%d annotations applied, want 2", n)
	}
	var geomErr *annotation.GeometryError
	if !errors.As(err, &geomErr) {
		t.Errorf("wrong error %v", err)
	}
	if len(s.Doc.Revisions()) != 2 {
		t.Errorf("%d revisions written, want 2", len(s.Doc.Revisions()))
	}
}

func TestOpenMalformedMediaBox(t *testing.T) {
	data := testpdf.New(1).
		Add(1, "<< /Type /Catalog /Pages 2 0 R >>").
		Add(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612] >>").
		Add(3, "<< /Type /Page /Parent 2 0 R >>").
		Build().Data
	s, err := Open(context.Background(), "box.pdf", data, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddHighlight(&Annotation{Page: 0, Rects: []annotation.Rect{line}}); err != nil {
		t.Error(err)
	}
}

func TestAddHighlightOutsideMediaBox(t *testing.T) {
	buf := &bytes.Buffer{}
	opts := &Options{Logger: slog.New(slog.NewTextHandler(buf, nil))}
	s, err := Open(context.Background(), "one.pdf", testpdf.OnePage().Build().Data, opts)
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.AddHighlight(&Annotation{Page: 0, Rects: []annotation.Rect{line}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "beyond the media box") {
		t.Error("warning for a highlight inside the page")
	}

	wide := annotation.Rect{X: 500, Y: 700, EndX: 700, EndY: 688}
	_, err = s.AddHighlight(&Annotation{Page: 0, Rects: []annotation.Rect{wide}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "beyond the media box") {
		t.Error("no warning for a highlight outside the page")
	}
	if len(s.Doc.Revisions()) != 2 {
		t.Errorf("%d revisions written, want 2", len(s.Doc.Revisions()))
	}
}

func TestInside(t *testing.T) {
	box := rect.Rect{URx: 612, URy: 792}
	cases := []struct {
		r    annotation.Rect
		want bool
	}{
		{line, true},
		{annotation.Rect{X: 0, Y: 792, EndX: 612, EndY: 0}, true},
		{annotation.Rect{X: -1, Y: 700, EndX: 100, EndY: 688}, false},
		{annotation.Rect{X: 10, Y: 800, EndX: 100, EndY: 788}, false},
		{annotation.Rect{X: 300, Y: 700, EndX: 72, EndY: 688}, true},
	}
	for i, c := range cases {
		if got := inside(box, []annotation.Rect{c.r}); got != c.want {
			t.Errorf("%d: inside = %t, want %t", i, got, c.want)
		}
	}
}
