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

// Package annotation creates highlight annotations and appends them to a
// PDF document as incremental updates.
//
// A highlight covers one or more text lines on a single page.  Each line is
// given as a [Rect] in PDF user space.  [Compose] turns a [Highlight] into a
// fixed graph of thirteen new indirect objects, plus the update of the page's
// annotation list.  [Add] composes a highlight and writes it to a document.
//
// The appearance stream draws every line as a filled shape with rounded
// ends, using a multiply blend mode so that the underlying text stays
// readable.
package annotation
