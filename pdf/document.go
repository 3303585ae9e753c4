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
	"errors"
	"io"
)

// ErrNeedsNormalization is wrapped by the StructureError which Open returns
// for linearized files and for files using cross-reference or object
// streams.  Such files must be rewritten into the classic layout first.
var ErrNeedsNormalization = errors.New("file must be normalized to classic xref tables")

var errEncrypted = errors.New("encrypted files are not supported")

// Document is a PDF file open for incremental updates.
//
// The original file contents are never modified.  Updates are kept as an
// append-only list of revisions; Bytes concatenates everything in a single
// pass.
type Document struct {
	Structure Structure
	Index     *Index
	Trailer   *Trailer

	// NextFree is the first object number which is not yet used.  It only
	// advances when an update is appended successfully.
	NextFree int

	base          []byte
	baseRevisions int
	revisions     []*Revision
	size          int64

	// loading holds the objects currently being read from base.  A
	// stream whose /Length leads back to itself is read without it.
	loading map[Reference]bool
}

// Revision is an incremental update which was appended to a document.
type Revision struct {
	// Offset is the position of the first byte of the update in the
	// complete file.
	Offset int64

	// XRefPos is the position of the "xref" keyword in the complete file.
	XRefPos int64

	Data    []byte
	Objects []Record
}

// Record is an indirect object which is written in an update.
type Record struct {
	Ref Reference
	Obj Object

	// Offset is filled in when the record is written.
	Offset int64

	raw []byte
}

// Open prepares the PDF file contents data for incremental updates.  The
// buffer must use classic cross-reference tables; linearized files and files
// with cross-reference or object streams give a StructureError wrapping
// ErrNeedsNormalization.
//
// The document keeps a reference to data; the caller must not modify it.
func Open(data []byte) (*Document, error) {
	proj := Project(data)
	st := Classify(proj)
	if st.Encrypted {
		return nil, &StructureError{Err: errEncrypted}
	}
	if st.NeedsNormalization() {
		return nil, &StructureError{Err: ErrNeedsNormalization}
	}

	idx, err := BuildIndex(proj)
	if err != nil {
		return nil, err
	}
	trailer, err := ResolveTrailer(proj)
	if err != nil {
		return nil, err
	}

	d := &Document{
		Structure:     st,
		Index:         idx,
		Trailer:       trailer,
		NextFree:      max(idx.NextFree, trailer.Size),
		base:          data,
		baseRevisions: idx.Revisions(),
		size:          int64(len(data)),
		loading:       make(map[Reference]bool),
	}
	return d, nil
}

// Len returns the total size of the document in bytes, including all
// appended revisions.
func (d *Document) Len() int64 {
	return d.size
}

// Revisions returns the updates appended since the document was opened.
func (d *Document) Revisions() []*Revision {
	return d.revisions
}

// Bytes returns the complete file contents, including all appended
// revisions.
func (d *Document) Bytes() []byte {
	res := make([]byte, 0, d.size)
	res = append(res, d.base...)
	for _, rev := range d.revisions {
		res = append(res, rev.Data...)
	}
	return res
}

// WriteTo writes the complete file contents to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var total int64
	n, err := w.Write(d.base)
	total += int64(n)
	if err != nil {
		return total, err
	}
	for _, rev := range d.revisions {
		n, err = w.Write(rev.Data)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// lastByte returns the final byte of the complete file.
func (d *Document) lastByte() (byte, bool) {
	if k := len(d.revisions); k > 0 {
		data := d.revisions[k-1].Data
		return data[len(data)-1], true
	}
	if len(d.base) == 0 {
		return 0, false
	}
	return d.base[len(d.base)-1], true
}
