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

// Package pagetree locates the pages of a PDF document in reading order.
package pagetree

import (
	"errors"
	"fmt"

	"seehuhn.de/go/geom/rect"

	"github.com/LaudateCorpus1/phlip-doc-management/pdf"
)

// PageNode is a leaf of the page tree.
type PageNode struct {
	Ref  pdf.Reference
	Dict pdf.Dict

	// Annots describes how the page stores its annotation list.
	Annots Annots

	// MediaBox is the page's media box, possibly inherited from an
	// ancestor node.  It is the zero rectangle if no node in the path
	// specifies one, or if the box is malformed.
	MediaBox rect.Rect
}

// PageResolutionError is returned when the page tree cannot be resolved.
type PageResolutionError struct {
	Ref pdf.Reference
	Err error
}

func (err *PageResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve page tree node %d %d: %v",
		err.Ref.Number, err.Ref.Generation, err.Err)
}

func (err *PageResolutionError) Unwrap() error {
	return err.Err
}

var (
	errNoPages      = errors.New("catalog has no /Pages reference")
	errDirectKid    = errors.New("page tree node is not an indirect object")
	errInvalidKids  = errors.New("/Kids is not an array")
	errInvalidAnnot = errors.New("/Annots is neither an array nor a reference")
)

// Walk returns all pages reachable from the document catalog root, in
// reading order.  The tree is traversed depth-first following the order of
// the /Kids arrays; object numbers play no role.  Nodes which are reached a
// second time, for example because of a cycle, are ignored.
func Walk(r pdf.Getter, root pdf.Reference) ([]*PageNode, error) {
	catalog, err := pdf.GetDict(r, root)
	if err != nil {
		return nil, &PageResolutionError{Ref: root, Err: err}
	}
	if catalog == nil {
		return nil, &PageResolutionError{Ref: root, Err: errors.New("catalog is null")}
	}
	pagesRef, ok := catalog["Pages"].(pdf.Reference)
	if !ok {
		return nil, &PageResolutionError{Ref: root, Err: errNoPages}
	}

	type item struct {
		ref      pdf.Reference
		mediaBox pdf.Object
	}

	var res []*PageNode
	todo := []item{{ref: pagesRef}}
	seen := map[pdf.Reference]bool{
		pagesRef: true,
	}
	for len(todo) > 0 {
		k := len(todo) - 1
		cur := todo[k]
		todo = todo[:k]

		node, err := pdf.GetDict(r, cur.ref)
		if err != nil {
			return nil, &PageResolutionError{Ref: cur.ref, Err: err}
		}
		if node == nil {
			return nil, &PageResolutionError{Ref: cur.ref, Err: errors.New("page tree node is null")}
		}

		mediaBox := cur.mediaBox
		if box, ok := node["MediaBox"]; ok {
			mediaBox = box
		}

		kidsObj, isIntermediate := node["Kids"]
		if !isIntermediate {
			page := &PageNode{
				Ref:  cur.ref,
				Dict: node,
			}
			if box, err := getRect(r, mediaBox); err == nil {
				page.MediaBox = box
			}
			page.Annots, err = getAnnots(r, node["Annots"])
			if err != nil {
				return nil, &PageResolutionError{Ref: cur.ref, Err: err}
			}
			res = append(res, page)
			continue
		}

		kids, err := pdf.GetArray(r, kidsObj)
		if err != nil {
			return nil, &PageResolutionError{Ref: cur.ref, Err: fmt.Errorf("%w: %v", errInvalidKids, err)}
		}
		for i := len(kids) - 1; i >= 0; i-- {
			kidRef, ok := kids[i].(pdf.Reference)
			if !ok {
				return nil, &PageResolutionError{Ref: cur.ref, Err: errDirectKid}
			}
			if seen[kidRef] {
				continue
			}
			seen[kidRef] = true
			todo = append(todo, item{ref: kidRef, mediaBox: mediaBox})
		}
	}

	return res, nil
}

// getRect converts a PDF rectangle array into a normalized rect.Rect.
// A missing rectangle gives the zero rectangle.
func getRect(r pdf.Getter, obj pdf.Object) (rect.Rect, error) {
	a, err := pdf.GetArray(r, obj)
	if err != nil || a == nil {
		return rect.Rect{}, err
	}
	if len(a) != 4 {
		return rect.Rect{}, fmt.Errorf("rectangle has %d elements", len(a))
	}
	var x [4]float64
	for i, v := range a {
		x[i], err = pdf.GetNumber(r, v)
		if err != nil {
			return rect.Rect{}, err
		}
	}
	return rect.Rect{
		LLx: min(x[0], x[2]),
		LLy: min(x[1], x[3]),
		URx: max(x[0], x[2]),
		URy: max(x[1], x[3]),
	}, nil
}
