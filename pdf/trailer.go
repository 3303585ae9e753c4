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
)

// Trailer holds the information from the last trailer of a file which is
// needed to chain a new incremental update to it.
type Trailer struct {
	// Dict is the last trailer dictionary.  Keys other than /Size and
	// /Prev are passed through to new updates unchanged.
	Dict Dict

	// Size is the value of /Size in Dict.
	Size int

	// Root is the reference to the document catalog.
	Root Reference

	// StartXRef is the byte offset given after the last "startxref"
	// keyword.  It becomes /Prev of the next update.
	StartXRef int64
}

// ResolveTrailer extracts the last trailer dictionary, the last startxref
// value and the catalog reference from a projection.
func ResolveTrailer(proj []byte) (*Trailer, error) {
	pos := bytes.LastIndex(proj, []byte("trailer"))
	if pos < 0 {
		return nil, &StructureError{Err: errNoTrailer}
	}
	s := newScanner(proj, pos+len("trailer"), nil)
	s.SkipWhiteSpace()
	dict, err := s.ReadDict()
	if err != nil {
		return nil, err
	}

	startXRef, err := lastStartXRef(proj)
	if err != nil {
		return nil, err
	}

	root, ok := dict["Root"].(Reference)
	if !ok {
		return nil, &StructureError{Err: errNoRoot}
	}

	t := &Trailer{
		Dict:      dict,
		Root:      root,
		StartXRef: startXRef,
	}
	if size, ok := dict["Size"].(Integer); ok {
		t.Size = int(size)
	}
	return t, nil
}

func lastStartXRef(proj []byte) (int64, error) {
	pos := bytes.LastIndex(proj, []byte("startxref"))
	if pos < 0 {
		return 0, &StructureError{Err: errNoStartXRef}
	}
	s := newScanner(proj, pos+len("startxref"), nil)
	s.SkipWhiteSpace()
	x, err := s.ReadInteger()
	if err != nil {
		return 0, err
	}
	if x < 0 {
		return 0, &StructureError{Err: errors.New("negative startxref value")}
	}
	return int64(x), nil
}

// Next returns the trailer dictionary for a new update section.  The new
// /Prev points to the current startxref value.
func (t *Trailer) Next(size int) Dict {
	dict := t.Dict.Clone()
	delete(dict, "XRefStm")
	dict["Size"] = Integer(size)
	dict["Prev"] = Integer(t.StartXRef)
	return dict
}
