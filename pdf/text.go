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
	"golang.org/x/text/encoding/unicode"
)

var utf16BOM = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)

// TextString creates a String object using the "text string" encoding.
// Plain ASCII text is stored as is, everything else is encoded as UTF-16BE
// with a byte order mark.
func TextString(s string) String {
	if isPlainASCII(s) {
		return String(s)
	}
	enc, err := utf16BOM.NewEncoder().String(s)
	if err != nil {
		// only happens for invalid UTF-8; keep what we can
		return String(s)
	}
	return String(enc)
}

func isPlainASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 0x20 || c > 0x7e) && c != '\n' && c != '\r' && c != '\t' {
			return false
		}
	}
	return true
}
