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

package pagetree

import (
	"fmt"

	"github.com/LaudateCorpus1/phlip-doc-management/pdf"
)

// AnnotsKind tells where the annotation array of a page is stored.
type AnnotsKind int

const (
	// AnnotsNone means the page has no /Annots entry.
	AnnotsNone AnnotsKind = iota

	// AnnotsInline means the array is stored inside the page dictionary.
	AnnotsInline

	// AnnotsIndirect means the page dictionary refers to a separate array
	// object.
	AnnotsIndirect
)

func (k AnnotsKind) String() string {
	switch k {
	case AnnotsNone:
		return "none"
	case AnnotsInline:
		return "inline"
	case AnnotsIndirect:
		return "indirect"
	default:
		return fmt.Sprintf("AnnotsKind(%d)", int(k))
	}
}

// Annots is the annotation list of a page.
type Annots struct {
	Kind AnnotsKind

	// Ref is the array object, if Kind is AnnotsIndirect.
	Ref pdf.Reference

	// Items is the current content of the array.
	Items pdf.Array
}

// Refs returns the references contained in the array.  Direct annotation
// dictionaries, which are allowed but rare, are skipped.
func (a *Annots) Refs() []pdf.Reference {
	var res []pdf.Reference
	for _, item := range a.Items {
		if ref, ok := item.(pdf.Reference); ok {
			res = append(res, ref)
		}
	}
	return res
}

// Append returns a copy of the annotation array with ref added at the end.
func (a *Annots) Append(ref pdf.Reference) pdf.Array {
	res := make(pdf.Array, 0, len(a.Items)+1)
	res = append(res, a.Items...)
	return append(res, ref)
}

func getAnnots(r pdf.Getter, obj pdf.Object) (Annots, error) {
	switch obj := obj.(type) {
	case nil:
		return Annots{Kind: AnnotsNone}, nil
	case pdf.Array:
		return Annots{Kind: AnnotsInline, Items: obj}, nil
	case pdf.Reference:
		items, err := pdf.GetArray(r, obj)
		if err != nil {
			return Annots{}, fmt.Errorf("annotation array %d %d: %w", obj.Number, obj.Generation, err)
		}
		return Annots{Kind: AnnotsIndirect, Ref: obj, Items: items}, nil
	default:
		return Annots{}, errInvalidAnnot
	}
}
