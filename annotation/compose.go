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

package annotation

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"github.com/LaudateCorpus1/phlip-doc-management/pagetree"
	"github.com/LaudateCorpus1/phlip-doc-management/pdf"
)

// ObjectCount is the number of new indirect objects used by every
// highlight annotation.
const ObjectCount = 13

// Defaults for the optional fields of a Highlight.
var (
	DefaultColor   = []float64{0.194, 0.757, 0.889}
	DefaultOpacity = 0.3999994
)

// Highlight describes a highlight annotation on a single page.
type Highlight struct {
	// Rects lists the highlighted lines, in reading order.  At least one
	// rectangle is required.
	Rects []Rect

	// Contents is the text shown in the pop-up note.
	Contents string

	// Author is stored in the /T entry, if non-empty.
	Author string

	// Name is the unique annotation name (/NM).  If this is empty,
	// "annot-<N>" is used, where N is the annotation's object number.
	Name string

	// Color is the highlight colour, with 1 (gray), 3 (RGB) or 4 (CMYK)
	// components.  If this is nil, DefaultColor is used.
	Color []float64

	// Opacity is the constant opacity of the highlight, between 0 and 1.
	// If this is nil, DefaultOpacity is used.
	Opacity *float64
}

// Graph is the set of objects which make up one highlight annotation.
type Graph struct {
	// Refs holds the new object numbers in allocation order: annotation,
	// rect, quad points, colour, border, appearance dictionary, appearance
	// form, its bounding box, its length, transparency group form, its
	// length, drawing form, its length.
	Refs [ObjectCount]pdf.Reference

	Rect       rect.Rect
	QuadPoints []vec.Vec2

	// BBox is the bounding box of the appearance stream, in form space.
	BBox rect.Rect

	// Page is the update of the page's annotation list: either the page
	// dictionary or the indirect /Annots array.
	Page pdf.Record

	// Objects holds the new objects, in allocation order.
	Objects []pdf.Record

	// Annots is the annotation list of the page after the update.
	Annots pagetree.Annots
}

// Annot returns the reference to the annotation dictionary.
func (g *Graph) Annot() pdf.Reference {
	return g.Refs[0]
}

// Records returns all objects to be written, in file order.
func (g *Graph) Records() []pdf.Record {
	res := make([]pdf.Record, 0, len(g.Objects)+1)
	res = append(res, g.Page)
	return append(res, g.Objects...)
}

// Compose builds the objects for a highlight on the given page.  The new
// objects use the numbers first, first+1, ..., first+12.  Compose does not
// modify page; the geometry is checked before any number is used.
func Compose(page *pagetree.PageNode, h *Highlight, first int) (*Graph, error) {
	if err := checkRects(h.Rects); err != nil {
		return nil, err
	}
	color := h.Color
	if color == nil {
		color = DefaultColor
	}
	switch len(color) {
	case 1, 3, 4:
		// pass
	default:
		return nil, fmt.Errorf("highlight colour has %d components", len(color))
	}
	opacity := DefaultOpacity
	if h.Opacity != nil {
		opacity = *h.Opacity
	}
	if opacity < 0 || opacity > 1 || math.IsNaN(opacity) {
		return nil, fmt.Errorf("opacity %g out of range", opacity)
	}
	if first <= 0 {
		return nil, errors.New("invalid first object number")
	}

	g := &Graph{}
	for i := range g.Refs {
		g.Refs[i] = pdf.NewReference(first+i, 0)
	}
	var (
		annotRef     = g.Refs[0]
		rectRef      = g.Refs[1]
		quadRef      = g.Refs[2]
		colorRef     = g.Refs[3]
		borderRef    = g.Refs[4]
		apRef        = g.Refs[5]
		apFormRef    = g.Refs[6]
		bboxRef      = g.Refs[7]
		apLenRef     = g.Refs[8]
		groupRef     = g.Refs[9]
		groupLenRef  = g.Refs[10]
		drawRef      = g.Refs[11]
		drawLenRef   = g.Refs[12]
		apContent    = []byte("/R0 gs\n/R1 gs\n/ANForm Do")
		groupContent = []byte("/Form Do")
	)

	g.Rect = Bounds(h.Rects)
	g.QuadPoints = QuadPoints(h.Rects)
	g.BBox = rect.Rect{
		URx: math.Ceil(g.Rect.Dx()),
		URy: math.Ceil(g.Rect.Dy()),
	}
	drawContent := formContent(h.Rects, color)

	name := h.Name
	if name == "" {
		name = "annot-" + strconv.Itoa(annotRef.Number)
	}
	annot := pdf.Dict{
		"Type":       pdf.Name("Annot"),
		"Subtype":    pdf.Name("Highlight"),
		"Rect":       rectRef,
		"QuadPoints": quadRef,
		"C":          colorRef,
		"CA":         pdf.Real(opacity),
		"Border":     borderRef,
		"AP":         apRef,
		"NM":         pdf.TextString(name),
		"F":          pdf.Integer(0),
		"P":          page.Ref,
		"Contents":   pdf.TextString(h.Contents),
	}
	if h.Author != "" {
		annot["T"] = pdf.TextString(h.Author)
	}

	quad := make(pdf.Array, 0, 2*len(g.QuadPoints))
	for _, v := range g.QuadPoints {
		quad = append(quad, pdf.Real(round3(v.X)), pdf.Real(round3(v.Y)))
	}

	procSet := pdf.Array{pdf.Name("PDF")}
	apForm := &pdf.Stream{
		Dict: pdf.Dict{
			"Type":     pdf.Name("XObject"),
			"Subtype":  pdf.Name("Form"),
			"FormType": pdf.Integer(1),
			"BBox":     bboxRef,
			"Matrix":   matrixArray(matrix.Identity),
			"Resources": pdf.Dict{
				"ExtGState": pdf.Dict{
					"R0": pdf.Dict{
						"Type": pdf.Name("ExtGState"),
						"AIS":  pdf.Bool(false),
						"CA":   pdf.Real(opacity),
						"ca":   pdf.Real(opacity),
					},
					"R1": pdf.Dict{
						"Type": pdf.Name("ExtGState"),
						"AIS":  pdf.Bool(false),
						"BM":   pdf.Name("Multiply"),
					},
				},
				"ProcSet": procSet,
				"XObject": pdf.Dict{"ANForm": groupRef},
			},
			"Length": apLenRef,
		},
		Data: apContent,
	}

	group := &pdf.Stream{
		Dict: pdf.Dict{
			"Type":     pdf.Name("XObject"),
			"Subtype":  pdf.Name("Form"),
			"FormType": pdf.Integer(1),
			"BBox":     rectArray(g.BBox),
			"Group":    pdf.Dict{"S": pdf.Name("Transparency")},
			"Matrix":   matrixArray(matrix.Identity),
			"Resources": pdf.Dict{
				"ProcSet": procSet,
				"XObject": pdf.Dict{"Form": drawRef},
			},
			"Length": groupLenRef,
		},
		Data: groupContent,
	}

	draw := &pdf.Stream{
		Dict: pdf.Dict{
			"Type":      pdf.Name("XObject"),
			"Subtype":   pdf.Name("Form"),
			"FormType":  pdf.Integer(1),
			"BBox":      rectArray(g.Rect),
			"Matrix":    matrixArray(matrix.Translate(-g.Rect.LLx, -g.Rect.LLy)),
			"Resources": pdf.Dict{"ProcSet": procSet},
			"Length":    drawLenRef,
		},
		Data: drawContent,
	}

	colorArray := make(pdf.Array, len(color))
	for i, c := range color {
		colorArray[i] = pdf.Real(c)
	}

	g.Objects = []pdf.Record{
		{Ref: annotRef, Obj: annot},
		{Ref: rectRef, Obj: rectArray(g.Rect)},
		{Ref: quadRef, Obj: quad},
		{Ref: colorRef, Obj: colorArray},
		{Ref: borderRef, Obj: pdf.Array{pdf.Integer(0), pdf.Integer(0), pdf.Integer(0)}},
		{Ref: apRef, Obj: pdf.Dict{"N": apFormRef}},
		{Ref: apFormRef, Obj: apForm},
		{Ref: bboxRef, Obj: rectArray(g.BBox)},
		{Ref: apLenRef, Obj: pdf.Integer(len(apContent))},
		{Ref: groupRef, Obj: group},
		{Ref: groupLenRef, Obj: pdf.Integer(len(groupContent))},
		{Ref: drawRef, Obj: draw},
		{Ref: drawLenRef, Obj: pdf.Integer(len(drawContent))},
	}

	// Update the annotation list of the page.  An indirect array is
	// rewritten on its own, otherwise the page dictionary is rewritten
	// with an inline array.
	items := page.Annots.Append(annotRef)
	switch page.Annots.Kind {
	case pagetree.AnnotsIndirect:
		g.Page = pdf.Record{Ref: page.Annots.Ref, Obj: items}
		g.Annots = pagetree.Annots{Kind: pagetree.AnnotsIndirect, Ref: page.Annots.Ref, Items: items}
	default:
		dict := page.Dict.Clone()
		if dict == nil {
			dict = pdf.Dict{}
		}
		dict["Annots"] = items
		g.Page = pdf.Record{Ref: page.Ref, Obj: dict}
		g.Annots = pagetree.Annots{Kind: pagetree.AnnotsInline, Items: items}
	}

	return g, nil
}

// Add composes a highlight on the given page and appends it to doc as a
// new incremental update.  On success the page's dictionary and annotation
// list are updated in place, so that further highlights on the same page
// keep the earlier ones.  On failure neither doc nor page is modified.
func Add(doc *pdf.Document, page *pagetree.PageNode, h *Highlight) (*Graph, error) {
	g, err := Compose(page, h, doc.NextFree)
	if err != nil {
		return nil, err
	}
	_, err = doc.Append(g.Records())
	if err != nil {
		return nil, err
	}

	if g.Page.Ref == page.Ref {
		page.Dict = g.Page.Obj.(pdf.Dict)
	}
	page.Annots = g.Annots
	return g, nil
}

func rectArray(r rect.Rect) pdf.Array {
	return pdf.Array{
		number(r.LLx), number(r.LLy), number(r.URx), number(r.URy),
	}
}

func matrixArray(m matrix.Matrix) pdf.Array {
	res := make(pdf.Array, len(m))
	for i, x := range m {
		res[i] = number(x)
	}
	return res
}

// number returns an Integer for integral values and a Real otherwise.
func number(x float64) pdf.Object {
	if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
		return pdf.Integer(x)
	}
	return pdf.Real(x)
}
