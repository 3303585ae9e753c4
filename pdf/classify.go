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

import "bytes"

// Structure summarizes the layout features of a PDF file which determine
// whether the file can be addressed by the classic xref table parser.
type Structure struct {
	Linearized     bool
	XRefStreams    bool
	ObjectStreams  bool
	Encrypted      bool
	XRefTableCount int
}

// NeedsNormalization reports whether the file must be rewritten into the
// classic layout (xref tables, no object streams) before it can be updated.
func (s Structure) NeedsNormalization() bool {
	return s.Linearized || s.XRefStreams || s.ObjectStreams
}

// Classify inspects a projection, as returned by Project, for layout
// features.
func Classify(proj []byte) Structure {
	return Structure{
		Linearized:     hasName(proj, "Linearized"),
		XRefStreams:    hasNamePrefix(proj, "XRef"),
		ObjectStreams:  hasName(proj, "ObjStm"),
		Encrypted:      hasName(proj, "Encrypt"),
		XRefTableCount: len(findXRefBlocks(proj)),
	}
}

// Inspect is a shortcut for Classify(Project(data)).
func Inspect(data []byte) Structure {
	return Classify(Project(data))
}

// hasName reports whether the name /name occurs as a complete token.
func hasName(proj []byte, name string) bool {
	pat := []byte("/" + name)
	for pos := 0; ; {
		idx := bytes.Index(proj[pos:], pat)
		if idx < 0 {
			return false
		}
		end := pos + idx + len(pat)
		if end >= len(proj) || isSpace[proj[end]] || isDelimiter[proj[end]] {
			return true
		}
		pos = end
	}
}

// hasNamePrefix reports whether a name starting with /prefix occurs.  This
// matches both /XRef and /XRefStm, the latter being used by hybrid files.
func hasNamePrefix(proj []byte, prefix string) bool {
	return bytes.Contains(proj, []byte("/"+prefix))
}
