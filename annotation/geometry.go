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
	"fmt"
	"math"
	"strconv"
	"strings"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// Margin is the distance, in PDF units, by which the annotation rectangle
// and the rounded line ends extend beyond the text.
const Margin = 3

// lineWidth is set in the appearance stream before the lines are filled.
const lineWidth = "0.8075"

// Rect is the extent of one line of highlighted text in PDF user space.
// Y is the top edge and EndY the bottom edge of the line.
type Rect struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	EndX float64 `json:"endX"`
	EndY float64 `json:"endY"`
}

// GeometryError indicates that the rectangles of a highlight cannot be
// turned into an annotation.
type GeometryError struct {
	// Index is the offending rectangle, or -1 if the error concerns the
	// highlight as a whole.
	Index  int
	Reason string
}

func (err *GeometryError) Error() string {
	if err.Index < 0 {
		return "invalid highlight geometry: " + err.Reason
	}
	return fmt.Sprintf("invalid highlight geometry: rectangle %d: %s", err.Index, err.Reason)
}

func checkRects(rects []Rect) error {
	if len(rects) == 0 {
		return &GeometryError{Index: -1, Reason: "no rectangles"}
	}
	for i, r := range rects {
		for _, x := range []float64{r.X, r.Y, r.EndX, r.EndY} {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return &GeometryError{Index: i, Reason: "coordinate is not finite"}
			}
		}
	}
	return nil
}

// Bounds returns the annotation rectangle: the smallest rectangle enclosing
// all lines, grown by Margin on every side.  Coordinates are rounded to
// three decimal places.
func Bounds(rects []Rect) rect.Rect {
	minX, minEndY := rects[0].X, rects[0].EndY
	maxEndX, maxY := rects[0].EndX, rects[0].Y
	for _, r := range rects[1:] {
		minX = min(minX, r.X)
		minEndY = min(minEndY, r.EndY)
		maxEndX = max(maxEndX, r.EndX)
		maxY = max(maxY, r.Y)
	}
	return rect.Rect{
		LLx: round3(minX - Margin),
		LLy: round3(minEndY - Margin),
		URx: round3(maxEndX + Margin),
		URy: round3(maxY + Margin),
	}
}

// QuadPoints returns four corners per line: top-left, top-right,
// bottom-left, bottom-right.
func QuadPoints(rects []Rect) []vec.Vec2 {
	res := make([]vec.Vec2, 0, 4*len(rects))
	for _, r := range rects {
		res = append(res,
			vec.Vec2{X: r.X, Y: r.Y},
			vec.Vec2{X: r.EndX, Y: r.Y},
			vec.Vec2{X: r.X, Y: r.EndY},
			vec.Vec2{X: r.EndX, Y: r.EndY},
		)
	}
	return res
}

// linePath returns the content stream operators which fill one line.  The
// left and right ends are cubic Bézier curves bulging out by Margin.
func linePath(r Rect) string {
	topLeft := vec.Vec2{X: r.X, Y: r.Y}
	topRight := vec.Vec2{X: r.EndX, Y: r.Y}
	bottomLeft := vec.Vec2{X: r.X, Y: r.EndY}
	bottomRight := vec.Vec2{X: r.EndX, Y: r.EndY}

	b := &strings.Builder{}
	fmt.Fprintf(b, "%s m\n", fmtPoint(bottomLeft))
	fmt.Fprintf(b, "%s %s %s c\n",
		fmtPoint(bottomLeft.Add(vec.Vec2{X: -Margin, Y: Margin})),
		fmtPoint(topLeft.Add(vec.Vec2{X: -Margin, Y: -Margin})),
		fmtPoint(topLeft))
	fmt.Fprintf(b, "%s l\n", fmtPoint(topRight))
	fmt.Fprintf(b, "%s %s %s c\n",
		fmtPoint(topRight.Add(vec.Vec2{X: Margin, Y: -Margin})),
		fmtPoint(bottomRight.Add(vec.Vec2{X: Margin, Y: Margin})),
		fmtPoint(bottomRight))
	b.WriteString("f")
	return b.String()
}

// formContent returns the content of the form XObject which paints all
// lines of a highlight.
func formContent(rects []Rect, color []float64) []byte {
	b := &strings.Builder{}
	for i, c := range color {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(c, 'f', -1, 64))
	}
	switch len(color) {
	case 1:
		b.WriteString(" g\n")
	case 4:
		b.WriteString(" k\n")
	default:
		b.WriteString(" rg\n")
	}
	b.WriteString(lineWidth + " w\n")
	for i, r := range rects {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(linePath(r))
	}
	return []byte(b.String())
}

func fmtPoint(v vec.Vec2) string {
	return strconv.FormatFloat(v.X, 'f', 3, 64) + " " + strconv.FormatFloat(v.Y, 'f', 3, 64)
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
