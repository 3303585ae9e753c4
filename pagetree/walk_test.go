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

package pagetree_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/rect"

	"github.com/LaudateCorpus1/phlip-doc-management/internal/testpdf"
	"github.com/LaudateCorpus1/phlip-doc-management/pagetree"
	"github.com/LaudateCorpus1/phlip-doc-management/pdf"
)

func open(t *testing.T, b *testpdf.Builder) *pdf.Document {
	t.Helper()
	doc, err := pdf.Open(b.Build().Data)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func pageNumbers(pages []*pagetree.PageNode) []int {
	var res []int
	for _, p := range pages {
		res = append(res, p.Ref.Number)
	}
	return res
}

func TestWalkOrder(t *testing.T) {
	for _, shape := range []struct{ depth, fanout int }{
		{1, 1}, {1, 5}, {2, 3}, {3, 2},
	} {
		b, leaves := testpdf.Tree(shape.depth, shape.fanout)
		doc := open(t, b)

		pages, err := pagetree.Walk(doc, doc.Trailer.Root)
		if err != nil {
			t.Fatal(err)
		}
		if d := cmp.Diff(leaves, pageNumbers(pages)); d != "" {
			t.Errorf("depth %d, fanout %d: wrong page order (-want +got):\n%s",
				shape.depth, shape.fanout, d)
		}
		for _, p := range pages {
			want := rect.Rect{URx: 612, URy: 792}
			if p.MediaBox != want {
				t.Errorf("page %d: inherited MediaBox %v", p.Ref.Number, p.MediaBox)
			}
		}
	}
}

func TestWalkAnnots(t *testing.T) {
	doc := open(t, testpdf.OnePage())
	pages, err := pagetree.Walk(doc, doc.Trailer.Root)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 || pages[0].Annots.Kind != pagetree.AnnotsNone {
		t.Errorf("unexpected pages %+v", pages)
	}

	doc = open(t, testpdf.InlineAnnots())
	pages, err = pagetree.Walk(doc, doc.Trailer.Root)
	if err != nil {
		t.Fatal(err)
	}
	annots := pages[0].Annots
	if annots.Kind != pagetree.AnnotsInline {
		t.Errorf("kind = %s, want inline", annots.Kind)
	}
	want := []pdf.Reference{pdf.NewReference(5, 0), pdf.NewReference(6, 0)}
	if d := cmp.Diff(want, annots.Refs()); d != "" {
		t.Error(d)
	}

	doc = open(t, testpdf.IndirectAnnots())
	pages, err = pagetree.Walk(doc, doc.Trailer.Root)
	if err != nil {
		t.Fatal(err)
	}
	annots = pages[0].Annots
	if annots.Kind != pagetree.AnnotsIndirect || annots.Ref != pdf.NewReference(5, 0) {
		t.Errorf("annots = %+v", annots)
	}
	if d := cmp.Diff([]pdf.Reference{pdf.NewReference(6, 0)}, annots.Refs()); d != "" {
		t.Error(d)
	}
}

func TestAnnotsAppend(t *testing.T) {
	a := &pagetree.Annots{Kind: pagetree.AnnotsInline, Items: pdf.Array{pdf.NewReference(5, 0)}}
	got := a.Append(pdf.NewReference(9, 0))
	want := pdf.Array{pdf.NewReference(5, 0), pdf.NewReference(9, 0)}
	if d := cmp.Diff(want, got); d != "" {
		t.Error(d)
	}
	if len(a.Items) != 1 {
		t.Error("Append modified the original array")
	}
}

func TestWalkLatestDefinition(t *testing.T) {
	b := testpdf.OnePage().
		Update().Add(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 100 200] /Annots [7 0 R] >>")
	doc := open(t, b)
	pages, err := pagetree.Walk(doc, doc.Trailer.Root)
	if err != nil {
		t.Fatal(err)
	}
	if pages[0].Annots.Kind != pagetree.AnnotsInline {
		t.Errorf("page was read from an old revision")
	}
	if pages[0].MediaBox != (rect.Rect{URx: 100, URy: 200}) {
		t.Errorf("MediaBox = %v", pages[0].MediaBox)
	}
}

func TestWalkCycle(t *testing.T) {
	b := testpdf.New(1).
		Add(1, "<< /Type /Catalog /Pages 2 0 R >>").
		Add(2, "<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 >>").
		Add(3, "<< /Type /Pages /Kids [2 0 R 5 0 R] /Count 1 >>").
		Add(4, "<< /Type /Page /Parent 2 0 R >>").
		Add(5, "<< /Type /Page /Parent 3 0 R >>")
	doc := open(t, b)
	pages, err := pagetree.Walk(doc, doc.Trailer.Root)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([]int{5, 4}, pageNumbers(pages)); d != "" {
		t.Error(d)
	}
}

func TestWalkErrors(t *testing.T) {
	cases := []*testpdf.Builder{
		// catalog without /Pages
		testpdf.New(1).Add(1, "<< /Type /Catalog >>"),
		// catalog missing
		testpdf.New(7).Add(1, "<< /Type /Catalog /Pages 2 0 R >>"),
		// /Pages points to a missing object
		testpdf.New(1).Add(1, "<< /Type /Catalog /Pages 9 0 R >>"),
		// direct kid
		testpdf.New(1).
			Add(1, "<< /Type /Catalog /Pages 2 0 R >>").
			Add(2, "<< /Type /Pages /Kids [<< /Type /Page >>] /Count 1 >>"),
		// bad /Annots
		testpdf.New(1).
			Add(1, "<< /Type /Catalog /Pages 2 0 R >>").
			Add(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>").
			Add(3, "<< /Type /Page /Parent 2 0 R /Annots /None >>"),
	}
	for i, b := range cases {
		doc := open(t, b)
		_, err := pagetree.Walk(doc, doc.Trailer.Root)
		var pageErr *pagetree.PageResolutionError
		if !errors.As(err, &pageErr) {
			t.Errorf("%d: expected PageResolutionError, got %v", i, err)
		}
	}
}

func TestWalkMalformedMediaBox(t *testing.T) {
	b := testpdf.New(1).
		Add(1, "<< /Type /Catalog /Pages 2 0 R >>").
		Add(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612] >>").
		Add(3, "<< /Type /Page /Parent 2 0 R >>")
	doc := open(t, b)
	pages, err := pagetree.Walk(doc, doc.Trailer.Root)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 || !pages[0].MediaBox.IsZero() {
		t.Errorf("unexpected pages %+v", pages)
	}
}
