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

// Project returns the textual projection of a PDF file which is used for
// structural matching.  Compared to the input,
//
//   - the payload of every stream is removed, leaving only the "stream" and
//     "endstream" keywords,
//   - comments are removed, except for the "%PDF-" header line and the
//     "%%EOF" markers,
//   - runs of white space other than line breaks are collapsed to a single
//     space, and
//   - every "%%EOF" marker is followed by a newline.
//
// Literal and hexadecimal strings are copied unchanged.  Offsets in the
// projection do not correspond to offsets in data.  Project is idempotent.
func Project(data []byte) []byte {
	out := make([]byte, 0, len(data))
	n := len(data)
	i := 0
	for i < n {
		c := data[i]
		switch {
		case c == '%':
			switch {
			case bytes.HasPrefix(data[i:], []byte("%%EOF")):
				out = append(out, "%%EOF\n"...)
				i += 5
				if bytes.HasPrefix(data[i:], []byte("\r\n")) {
					i += 2
				} else if i < n && (data[i] == '\n' || data[i] == '\r') {
					i++
				}
			case bytes.HasPrefix(data[i:], []byte("%PDF-")):
				j := lineEnd(data, i)
				out = append(out, data[i:j]...)
				i = j
			default:
				i = lineEnd(data, i)
			}

		case c == '(':
			j := literalStringEnd(data, i)
			out = append(out, data[i:j]...)
			i = j

		case c == '<' && i+1 < n && data[i+1] == '<':
			out = append(out, "<<"...)
			i += 2

		case c == '<':
			j := bytes.IndexByte(data[i:], '>')
			if j < 0 {
				j = n
			} else {
				j += i + 1
			}
			out = append(out, data[i:j]...)
			i = j

		case c == '\r' || c == '\n':
			out = append(out, c)
			i++

		case isSpace[c]:
			for i < n && isSpace[data[i]] && data[i] != '\r' && data[i] != '\n' {
				i++
			}
			out = append(out, ' ')

		case c == 's' && isStreamKeyword(data, i):
			out = append(out, "stream\nendstream"...)
			idx := bytes.Index(data[i+6:], []byte("endstream"))
			if idx < 0 {
				return out
			}
			i += 6 + idx + len("endstream")

		default:
			out = append(out, c)
			i++
		}
	}
	return out
}

// isStreamKeyword reports whether data[i:] starts with a "stream" keyword
// which introduces stream data.
func isStreamKeyword(data []byte, i int) bool {
	if !bytes.HasPrefix(data[i:], []byte("stream")) {
		return false
	}
	if i > 0 && !isSpace[data[i-1]] && data[i-1] != '>' {
		return false // "endstream" or part of a longer token
	}
	j := i + 6
	return j < len(data) && (data[j] == '\n' || data[j] == '\r')
}

// lineEnd returns the index of the first line break at or after i.
func lineEnd(data []byte, i int) int {
	for i < len(data) && data[i] != '\n' && data[i] != '\r' {
		i++
	}
	return i
}

// literalStringEnd returns the index just after the literal string which
// starts at data[i] == '('.
func literalStringEnd(data []byte, i int) int {
	level := 0
	for i < len(data) {
		switch data[i] {
		case '\\':
			i++
		case '(':
			level++
		case ')':
			level--
			if level == 0 {
				return i + 1
			}
		}
		i++
	}
	return len(data)
}
