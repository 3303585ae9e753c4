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

// Package testpdf builds small classic-layout PDF files for tests.  All
// byte offsets in the generated cross-reference tables are exact.
package testpdf

import (
	"bytes"
	"fmt"
	"sort"
)

// Builder assembles a PDF file from raw object bodies.  Objects are
// grouped into sections: the first section is the original file, every
// further section is an incremental update.
type Builder struct {
	sections [][]object
	root     int
}

type object struct {
	num, gen int
	body     string
}

// Layout describes a file produced by a Builder.
type Layout struct {
	Data []byte

	// Offsets gives, for every section, the byte offset of each object.
	Offsets []map[int]int64

	// XRef gives the position of the "xref" keyword of every section.
	XRef []int64

	// Size is the /Size value of the last trailer.
	Size int
}

// New returns a builder for a file with the given catalog object.
func New(root int) *Builder {
	return &Builder{
		sections: [][]object{nil},
		root:     root,
	}
}

// Add adds an object with generation 0 to the current section.
func (b *Builder) Add(num int, body string) *Builder {
	return b.AddGen(num, 0, body)
}

// AddGen adds an object to the current section.
func (b *Builder) AddGen(num, gen int, body string) *Builder {
	k := len(b.sections) - 1
	b.sections[k] = append(b.sections[k], object{num: num, gen: gen, body: body})
	return b
}

// Update starts a new incremental update section.
func (b *Builder) Update() *Builder {
	b.sections = append(b.sections, nil)
	return b
}

// Build writes the file.
func (b *Builder) Build() *Layout {
	buf := &bytes.Buffer{}
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	res := &Layout{}
	size := 0
	prev := int64(-1)
	for k, sec := range b.sections {
		offsets := make(map[int]int64)
		gens := make(map[int]int)
		for _, obj := range sec {
			offsets[obj.num] = int64(buf.Len())
			gens[obj.num] = obj.gen
			fmt.Fprintf(buf, "%d %d obj\n%s\nendobj\n", obj.num, obj.gen, obj.body)
			size = max(size, obj.num+1)
		}

		xref := int64(buf.Len())
		buf.WriteString("xref\n")
		if k == 0 {
			fmt.Fprintf(buf, "0 %d\n", size)
			buf.WriteString("0000000000 65535 f\r\n")
			for num := 1; num < size; num++ {
				if pos, ok := offsets[num]; ok {
					fmt.Fprintf(buf, "%010d %05d n\r\n", pos, gens[num])
				} else {
					buf.WriteString("0000000000 00000 f\r\n")
				}
			}
		} else {
			nums := make([]int, 0, len(offsets))
			for num := range offsets {
				nums = append(nums, num)
			}
			sort.Ints(nums)
			for i := 0; i < len(nums); {
				j := i + 1
				for j < len(nums) && nums[j] == nums[j-1]+1 {
					j++
				}
				fmt.Fprintf(buf, "%d %d\n", nums[i], j-i)
				for _, num := range nums[i:j] {
					fmt.Fprintf(buf, "%010d %05d n\r\n", offsets[num], gens[num])
				}
				i = j
			}
		}

		fmt.Fprintf(buf, "trailer\n<< /Size %d /Root %d 0 R", size, b.root)
		if prev >= 0 {
			fmt.Fprintf(buf, " /Prev %d", prev)
		}
		fmt.Fprintf(buf, " /ID [<0123456789abcdef> <0123456789abcdef>] >>\nstartxref\n%d\n%%%%EOF\n", xref)

		res.Offsets = append(res.Offsets, offsets)
		res.XRef = append(res.XRef, xref)
		prev = xref
	}
	res.Data = buf.Bytes()
	res.Size = size
	return res
}

// contentStream is a page content stream including binary data, which
// must not confuse structural parsing.
const contentStream = "<< /Length 41 >>\nstream\nBT /F1 12 Tf 72 712 Td (Hello) Tj ET\n\x00\xff%\xfe\nendstream"

// OnePage returns a single page file without annotations.  Objects: 1
// catalog, 2 page tree root, 3 page, 4 content stream.
func OnePage() *Builder {
	return New(1).
		Add(1, "<< /Type /Catalog /Pages 2 0 R >>").
		Add(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>").
		Add(3, "<< /Type /Page /Parent 2 0 R /Resources << >> /Contents 4 0 R >>").
		Add(4, contentStream)
}

// InlineAnnots returns a single page file whose page (object 3) has an
// inline /Annots array referencing objects 5 and 6.
func InlineAnnots() *Builder {
	return New(1).
		Add(1, "<< /Type /Catalog /Pages 2 0 R >>").
		Add(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>").
		Add(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Annots [5 0 R 6 0 R] /Contents 4 0 R >>").
		Add(4, contentStream).
		Add(5, "<< /Type /Annot /Subtype /Text /Rect [10 10 20 20] /Contents (note \\(1\\)) >>").
		Add(6, "<< /Type /Annot /Subtype /Text /Rect [30 30 40 40] >>")
}

// IndirectAnnots returns a single page file whose page (object 3) refers
// to its annotations via the indirect array object 5.
func IndirectAnnots() *Builder {
	return New(1).
		Add(1, "<< /Type /Catalog /Pages 2 0 R >>").
		Add(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>").
		Add(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Annots 5 0 R /Contents 4 0 R >>").
		Add(4, contentStream).
		Add(5, "[ 6 0 R ]").
		Add(6, "<< /Type /Annot /Subtype /Text /Rect [30 30 40 40] >>")
}

// Tree returns a file with a page tree of the given depth, where each
// intermediate node has fanout children.  Object numbers are assigned in
// reverse reading order, so that ascending object numbers do not match the
// page order.  The leaf object numbers are returned in reading order.
func Tree(depth, fanout int) (*Builder, []int) {
	nodes := 1
	for level, n := 0, 1; level < depth; level++ {
		n *= fanout
		nodes += n
	}

	// allocate object numbers counting down
	next := nodes + 2
	alloc := func() int {
		next--
		return next
	}

	b := New(1)
	b.Add(1, "<< /Type /Catalog /Pages 2 0 R >>")

	var leaves []int
	var build func(num, parent, level int)
	build = func(num, parent, level int) {
		if level == depth {
			leaves = append(leaves, num)
			b.Add(num, fmt.Sprintf("<< /Type /Page /Parent %d 0 R /Resources << >> >>", parent))
			return
		}
		kids := make([]int, fanout)
		for i := range kids {
			kids[i] = alloc()
		}
		sub := 1
		for i := level; i < depth; i++ {
			sub *= fanout
		}
		body := &bytes.Buffer{}
		if parent == 0 {
			fmt.Fprintf(body, "<< /Type /Pages /Count %d /MediaBox [0 0 612 792] /Kids [", sub)
		} else {
			fmt.Fprintf(body, "<< /Type /Pages /Parent %d 0 R /Count %d /Kids [", parent, sub)
		}
		for i, kid := range kids {
			if i > 0 {
				body.WriteString(" ")
			}
			fmt.Fprintf(body, "%d 0 R", kid)
		}
		body.WriteString("] >>")
		b.Add(num, body.String())
		for _, kid := range kids {
			build(kid, num, level+1)
		}
	}
	build(2, 0, 0)

	return b, leaves
}
