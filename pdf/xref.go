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
	"fmt"
	"strconv"

	"golang.org/x/exp/slices"
)

// IndexEntry describes one sighting of an object number in a cross-reference
// table.
type IndexEntry struct {
	Number     int
	Generation uint16

	// Offset is the byte offset of the object.  For free entries this
	// is the number of the next free object.
	Offset int64

	// Occurrence counts earlier sightings of the same object number, in
	// document order.  The first sighting has occurrence 0.
	Occurrence int

	// Revision is the index of the cross-reference section which listed
	// the entry, in document order.
	Revision int

	Free bool
}

// Ref returns a reference to the object described by the entry.
func (e *IndexEntry) Ref() Reference {
	return Reference{Number: e.Number, Generation: e.Generation}
}

// Index maps object numbers to their cross-reference entries, across all
// revisions of a file.
type Index struct {
	entries   map[int][]*IndexEntry
	revisions int

	// NextFree is one more than the largest object number seen.
	NextFree int
}

func newIndex() *Index {
	return &Index{
		entries:  make(map[int][]*IndexEntry),
		NextFree: 1,
	}
}

// BuildIndex parses every "xref ... trailer" block of the projection proj in
// document order.  A StructureError is returned if there is no such block,
// i.e. if the file does not use classic cross-reference tables.
func BuildIndex(proj []byte) (*Index, error) {
	blocks := findXRefBlocks(proj)
	if len(blocks) == 0 {
		return nil, &StructureError{Err: errNoXRef}
	}

	idx := newIndex()
	for _, block := range blocks {
		err := idx.addSection(block)
		if err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func (x *Index) addSection(block []byte) error {
	fields := bytes.Fields(block)
	rev := x.revisions
	for i := 0; i < len(fields); {
		if i+2 > len(fields) {
			return &StructureError{Err: fmt.Errorf("truncated xref subsection header in section %d", rev)}
		}
		first, err1 := strconv.Atoi(string(fields[i]))
		count, err2 := strconv.Atoi(string(fields[i+1]))
		if err1 != nil || err2 != nil || first < 0 || count < 0 {
			return &StructureError{Err: fmt.Errorf("invalid xref subsection header %q %q", fields[i], fields[i+1])}
		}
		i += 2

		for k := 0; k < count; k++ {
			if i+3 > len(fields) {
				return &StructureError{Err: fmt.Errorf("xref subsection %d %d is truncated", first, count)}
			}
			offset, err := strconv.ParseInt(string(fields[i]), 10, 64)
			if err != nil {
				return &StructureError{Err: fmt.Errorf("invalid xref offset %q", fields[i])}
			}
			gen, err := strconv.ParseUint(string(fields[i+1]), 10, 16)
			if err != nil {
				return &StructureError{Err: fmt.Errorf("invalid xref generation %q", fields[i+1])}
			}
			var free bool
			switch string(fields[i+2]) {
			case "n":
				free = false
			case "f":
				free = true
			default:
				return &StructureError{Err: fmt.Errorf("invalid xref entry type %q", fields[i+2])}
			}
			i += 3

			x.add(&IndexEntry{
				Number:     first + k,
				Generation: uint16(gen),
				Offset:     offset,
				Revision:   rev,
				Free:       free,
			})
		}
	}
	x.revisions++
	return nil
}

// add records a new sighting.  Occurrence is filled in by add.
func (x *Index) add(e *IndexEntry) {
	prev := x.entries[e.Number]
	if e.Number != 0 {
		e.Occurrence = len(prev)
	}
	x.entries[e.Number] = append(prev, e)
	if e.Number >= x.NextFree {
		x.NextFree = e.Number + 1
	}
}

// Lookup returns the current entry for the given object number.
//
// The latest occurrence always wins: once an object has been redefined by
// an incremental update, the newest definition is used for all lookups,
// including page tree traversal.  Earlier definitions remain available via
// LookupOccurrence.
func (x *Index) Lookup(num int) (*IndexEntry, bool) {
	list := x.entries[num]
	if len(list) == 0 {
		return nil, false
	}
	return list[len(list)-1], true
}

// LookupOccurrence returns the entry for the given occurrence of an object
// number.
func (x *Index) LookupOccurrence(num, occurrence int) (*IndexEntry, bool) {
	list := x.entries[num]
	if occurrence < 0 || occurrence >= len(list) {
		return nil, false
	}
	return list[occurrence], true
}

// Occurrences returns the number of sightings of an object number.
func (x *Index) Occurrences(num int) int {
	return len(x.entries[num])
}

// Numbers returns all object numbers in the index, in increasing order.
func (x *Index) Numbers() []int {
	res := make([]int, 0, len(x.entries))
	for num := range x.entries {
		res = append(res, num)
	}
	slices.Sort(res)
	return res
}

// Revisions returns the number of cross-reference sections in the index.
func (x *Index) Revisions() int {
	return x.revisions
}

// findXRefBlocks returns the contents between each "xref" keyword and the
// following "trailer" keyword.
func findXRefBlocks(proj []byte) [][]byte {
	var res [][]byte
	pos := 0
	for {
		idx := bytes.Index(proj[pos:], []byte("xref"))
		if idx < 0 {
			return res
		}
		start := pos + idx
		end := start + 4
		pos = end
		if start > 0 && !isSpace[proj[start-1]] {
			continue // "startxref" or part of a name
		}
		if end < len(proj) && !isSpace[proj[end]] {
			continue
		}
		tIdx := bytes.Index(proj[end:], []byte("trailer"))
		if tIdx < 0 {
			return res
		}
		res = append(res, proj[end:end+tIdx])
		pos = end + tIdx
	}
}
