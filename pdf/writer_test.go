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

package pdf

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/LaudateCorpus1/phlip-doc-management/internal/testpdf"
)

var startXRefPat = regexp.MustCompile(`startxref\s+(\d+)\s+%%EOF\s*$`)

func lastStartXRefValue(t *testing.T, data []byte) int64 {
	t.Helper()
	m := startXRefPat.FindSubmatch(data)
	if m == nil {
		t.Fatal("startxref not found at end of file")
	}
	x, err := strconv.ParseInt(string(m[1]), 10, 64)
	if err != nil {
		t.Fatal(err)
	}
	return x
}

func TestAppend(t *testing.T) {
	orig := testpdf.OnePage().Build().Data
	doc, err := Open(orig)
	if err != nil {
		t.Fatal(err)
	}
	origStartXRef := doc.Trailer.StartXRef

	annot := NewReference(doc.NextFree, 0)
	page := NewReference(3, 0)
	rev, err := doc.Append([]Record{
		{Ref: annot, Obj: Dict{"Type": Name("Annot"), "Contents": String("a (note)")}},
		{Ref: page, Obj: Dict{
			"Type":   Name("Page"),
			"Parent": NewReference(2, 0),
			"Annots": Array{annot},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	out := doc.Bytes()
	if !bytes.HasPrefix(out, orig) {
		t.Fatal("original bytes were modified")
	}
	if rev.Offset != int64(len(orig)) {
		t.Errorf("update starts at %d, want %d", rev.Offset, len(orig))
	}
	if doc.NextFree != 6 {
		t.Errorf("NextFree = %d, want 6", doc.NextFree)
	}

	for _, rec := range rev.Objects {
		header := strconv.Itoa(rec.Ref.Number) + " 0 obj"
		if !bytes.HasPrefix(out[rec.Offset:], []byte(header)) {
			t.Errorf("object %d: offset %d points at %q", rec.Ref.Number, rec.Offset, out[rec.Offset:rec.Offset+10])
		}
	}

	xref := lastStartXRefValue(t, out)
	if xref != rev.XRefPos || !bytes.HasPrefix(out[xref:], []byte("xref\n")) {
		t.Errorf("startxref %d does not point at the xref keyword", xref)
	}

	// every entry of the new section is exactly 20 bytes long
	section := out[xref:]
	section = section[:bytes.Index(section, []byte("trailer"))]
	for _, line := range strings.SplitAfter(string(section), "\n") {
		if strings.HasSuffix(line, "\r\n") && len(line) != 20 {
			t.Errorf("xref entry %q has %d bytes", line, len(line))
		}
	}

	doc2, err := Open(out)
	if err != nil {
		t.Fatal(err)
	}
	if doc2.Index.Revisions() != 2 {
		t.Errorf("reopened file has %d revisions", doc2.Index.Revisions())
	}
	if doc2.Trailer.Dict["Prev"] != Integer(origStartXRef) {
		t.Errorf("Prev = %v, want %d", doc2.Trailer.Dict["Prev"], origStartXRef)
	}
	if doc2.Trailer.Size != 6 {
		t.Errorf("Size = %d, want 6", doc2.Trailer.Size)
	}
	pageDict, err := GetDict(doc2, page)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(Array{annot}, pageDict["Annots"]); d != "" {
		t.Error(d)
	}
	annotDict, err := GetDict(doc2, annot)
	if err != nil {
		t.Fatal(err)
	}
	if c, _ := annotDict["Contents"].(String); string(c) != "a (note)" {
		t.Errorf("Contents = %q", c)
	}
}

func TestAppendStacked(t *testing.T) {
	doc, err := Open(testpdf.OnePage().Build().Data)
	if err != nil {
		t.Fatal(err)
	}

	var revs []*Revision
	for i := 0; i < 3; i++ {
		ref := NewReference(doc.NextFree, 0)
		rev, err := doc.Append([]Record{{Ref: ref, Obj: Integer(i)}})
		if err != nil {
			t.Fatal(err)
		}
		revs = append(revs, rev)

		// objects of earlier updates are visible without reparsing
		obj, err := doc.GetRef(ref)
		if err != nil {
			t.Fatal(err)
		}
		if obj.Obj != Integer(i) {
			t.Errorf("object %s = %v", ref, obj.Obj)
		}
	}

	out := doc.Bytes()
	doc2, err := Open(out)
	if err != nil {
		t.Fatal(err)
	}
	if doc2.Index.Revisions() != 4 {
		t.Errorf("reopened file has %d revisions, want 4", doc2.Index.Revisions())
	}
	if doc2.Trailer.Dict["Prev"] != Integer(revs[1].XRefPos) {
		t.Errorf("Prev = %v, want %d", doc2.Trailer.Dict["Prev"], revs[1].XRefPos)
	}
	for i, num := range []int{5, 6, 7} {
		obj, err := doc2.Get(num)
		if err != nil {
			t.Fatal(err)
		}
		if obj.Obj != Integer(i) {
			t.Errorf("object %d = %v", num, obj.Obj)
		}
		if obj.Pos != revs[i].Objects[0].Offset {
			t.Errorf("object %d at %d, want %d", num, obj.Pos, revs[i].Objects[0].Offset)
		}
	}

	buf := &bytes.Buffer{}
	n, err := doc.WriteTo(buf)
	if err != nil || n != doc.Len() || !bytes.Equal(buf.Bytes(), out) {
		t.Errorf("WriteTo: %d %v", n, err)
	}
}

func TestAppendMissingEOL(t *testing.T) {
	data := testpdf.OnePage().Build().Data
	data = bytes.TrimRight(data, "\n")
	doc, err := Open(data)
	if err != nil {
		t.Fatal(err)
	}
	rev, err := doc.Append([]Record{{Ref: NewReference(5, 0), Obj: Bool(true)}})
	if err != nil {
		t.Fatal(err)
	}
	if rev.Data[0] != '\n' {
		t.Error("update does not start on a new line")
	}
	if !bytes.HasSuffix(doc.Bytes()[:rev.Offset+1], []byte("%%EOF\n")) {
		t.Error("end-of-file marker was not terminated")
	}
}

func TestAppendErrors(t *testing.T) {
	doc, err := Open(testpdf.OnePage().Build().Data)
	if err != nil {
		t.Fatal(err)
	}
	before := doc.Len()

	cases := [][]Record{
		nil,
		{{Ref: NewReference(0, 0), Obj: Integer(1)}},
		{{Ref: NewReference(5, 0), Obj: Integer(1)}, {Ref: NewReference(5, 0), Obj: Integer(2)}},
		{{Ref: NewReference(-3, 0), Obj: Integer(1)}},
	}
	for i, objs := range cases {
		_, err := doc.Append(objs)
		if err == nil {
			t.Errorf("%d: no error", i)
		}
	}
	if doc.Len() != before || doc.NextFree != 5 || len(doc.Revisions()) != 0 {
		t.Error("failed update modified the document")
	}
}

func TestWriteXRefSection(t *testing.T) {
	recs := []Record{
		{Ref: NewReference(10, 0), Offset: 300},
		{Ref: NewReference(7, 0), Offset: 100},
		{Ref: NewReference(8, 1), Offset: 200},
	}
	buf := &bytes.Buffer{}
	writeXRefSection(buf, recs)

	want := "xref\n" +
		"0 1\n" +
		"0000000000 65535 f\r\n" +
		"7 2\n" +
		"0000000100 00000 n\r\n" +
		"0000000200 00001 n\r\n" +
		"10 1\n" +
		"0000000300 00000 n\r\n"
	if d := cmp.Diff(want, buf.String()); d != "" {
		t.Error(d)
	}
	if recs[0].Ref.Number != 10 {
		t.Error("input was reordered")
	}
}
