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
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
)

// Append writes an incremental update containing objs.  Objects are
// written in the given order.  Each object must either be new (number at
// least d.NextFree) or be a new definition of an object already present in
// the index.
//
// On success the index, the trailer and NextFree are updated, so that
// further updates can be stacked on top.  On error the document is left
// unchanged.
func (d *Document) Append(objs []Record) (*Revision, error) {
	if len(objs) == 0 {
		return nil, errors.New("no objects to write")
	}
	maxNum := 0
	seen := make(map[int]bool, len(objs))
	for _, obj := range objs {
		num := obj.Ref.Number
		if num <= 0 {
			return nil, fmt.Errorf("invalid object number %d", num)
		}
		if seen[num] {
			return nil, fmt.Errorf("object %d written twice in one update", num)
		}
		seen[num] = true
		if _, exists := d.Index.Lookup(num); !exists && num < d.NextFree {
			return nil, fmt.Errorf("object %d was never allocated", num)
		}
		maxNum = max(maxNum, num)
	}

	start := d.size
	buf := &bytes.Buffer{}
	if c, ok := d.lastByte(); ok && c != '\n' && c != '\r' {
		buf.WriteByte('\n')
	}

	recs := make([]Record, len(objs))
	bounds := make([][2]int, len(objs))
	for i, obj := range objs {
		buf.WriteByte('\n')
		from := buf.Len()
		fmt.Fprintf(buf, "%d %d obj\n", obj.Ref.Number, obj.Ref.Generation)
		if obj.Obj == nil {
			buf.WriteString("null")
		} else if err := obj.Obj.PDF(buf); err != nil {
			return nil, fmt.Errorf("object %d: %w", obj.Ref.Number, err)
		}
		buf.WriteString("\nendobj\n")
		bounds[i] = [2]int{from, buf.Len() - 1}

		recs[i] = Record{
			Ref:    obj.Ref,
			Obj:    obj.Obj,
			Offset: start + int64(from),
		}
	}

	xRefPos := start + int64(buf.Len())
	size := max(maxNum+1, d.NextFree, d.Trailer.Size)
	trailer := d.Trailer.Next(size)

	writeXRefSection(buf, recs)
	buf.WriteString("trailer\n")
	err := trailer.PDF(buf)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(buf, "\nstartxref\n%d\n%%%%EOF\n", xRefPos)

	data := buf.Bytes()
	for i := range recs {
		recs[i].raw = data[bounds[i][0]:bounds[i][1]]
	}
	rev := &Revision{
		Offset:  start,
		XRefPos: xRefPos,
		Data:    data,
		Objects: recs,
	}

	// commit
	revIdx := d.Index.Revisions()
	for _, rec := range recs {
		d.Index.add(&IndexEntry{
			Number:     rec.Ref.Number,
			Generation: rec.Ref.Generation,
			Offset:     rec.Offset,
			Revision:   revIdx,
		})
	}
	d.Index.revisions++
	d.revisions = append(d.revisions, rev)
	d.size += int64(len(data))
	d.Trailer.Dict = trailer
	d.Trailer.Size = size
	d.Trailer.StartXRef = xRefPos
	d.NextFree = max(d.NextFree, maxNum+1)

	return rev, nil
}

// writeXRefSection writes the cross-reference section for an update: the
// head of the free list, followed by one subsection per run of consecutive
// object numbers.
func writeXRefSection(buf *bytes.Buffer, recs []Record) {
	buf.WriteString("xref\n0 1\n")
	buf.WriteString(formatXRefEntry(0, 65535, true))

	sorted := slices.Clone(recs)
	slices.SortFunc(sorted, func(a, b Record) int {
		return a.Ref.Number - b.Ref.Number
	})
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && sorted[j].Ref.Number == sorted[j-1].Ref.Number+1 {
			j++
		}
		fmt.Fprintf(buf, "%d %d\n", sorted[i].Ref.Number, j-i)
		for _, rec := range sorted[i:j] {
			buf.WriteString(formatXRefEntry(rec.Offset, rec.Ref.Generation, false))
		}
		i = j
	}
}

// formatXRefEntry returns a 20-byte cross-reference table entry.
func formatXRefEntry(offset int64, generation uint16, free bool) string {
	tp := 'n'
	if free {
		tp = 'f'
	}
	return fmt.Sprintf("%010d %05d %c\r\n", offset, generation, tp)
}
