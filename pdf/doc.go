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

// Package pdf implements the low-level structure of classic PDF files, as
// far as needed to append incremental updates.
//
// A Document is opened from the complete file contents.  Its textual
// projection (see Project) is used to classify the file layout, to index
// all cross-reference tables and to locate the last trailer.  Objects are
// read on demand from the original bytes, using the offsets from the index.
//
// New and changed objects are written with Document.Append, which adds a
// new revision consisting of the objects, a cross-reference section and a
// trailer chained to the previous one via /Prev.  Existing bytes are never
// modified:
//
//	doc, err := pdf.Open(data)
//	if err != nil {
//	    return err
//	}
//	ref := pdf.NewReference(doc.NextFree, 0)
//	_, err = doc.Append([]pdf.Record{{Ref: ref, Obj: pdf.Integer(42)}})
//	if err != nil {
//	    return err
//	}
//	out := doc.Bytes()
//
// Linearized files and files using cross-reference streams or object
// streams must be converted into the classic layout before they can be
// opened; see the normalize package.
package pdf
