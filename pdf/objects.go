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
	"bytes"
	"encoding/hex"
	"io"
	"maps"
	"slices"
	"strconv"
)

// Object is a PDF object.  The types in this package which implement
// Object are Array, Bool, Dict, Integer, Name, Real, Reference, Stream and
// String.  A nil Object is the PDF null object.
type Object interface {
	// PDF writes the file representation of the object to w.
	PDF(w io.Writer) error
}

// Bool is a PDF boolean.
type Bool bool

// Integer is a PDF integer.
type Integer int64

// Real is a PDF real number.
type Real float64

// String is a PDF string, stored as raw bytes.
type String []byte

// Name is a PDF name, without the leading slash.
type Name string

// Array is a PDF array.
type Array []Object

// Dict is a PDF dictionary.  Entries with a nil value are omitted when the
// dictionary is written.
type Dict map[Name]Object

// Clone returns a shallow copy of the dictionary.
func (x Dict) Clone() Dict {
	return maps.Clone(x)
}

// Stream is a PDF stream.  Data holds the stream contents exactly as they
// appear in the file.
type Stream struct {
	Dict
	Data []byte
}

// Reference points to an indirect object.
type Reference struct {
	Number     int
	Generation uint16
}

// NewReference returns a reference to the given object.
func NewReference(number int, generation uint16) Reference {
	return Reference{Number: number, Generation: generation}
}

func (x Reference) String() string {
	res := "obj_" + strconv.Itoa(x.Number)
	if x.Generation > 0 {
		res += "@" + strconv.FormatUint(uint64(x.Generation), 10)
	}
	return res
}

// PDF implements the Object interface.
func (x Bool) PDF(w io.Writer) error { return writeObject(w, x) }

// PDF implements the Object interface.
func (x Integer) PDF(w io.Writer) error { return writeObject(w, x) }

// PDF implements the Object interface.
func (x Real) PDF(w io.Writer) error { return writeObject(w, x) }

// PDF implements the Object interface.
func (x String) PDF(w io.Writer) error { return writeObject(w, x) }

// PDF implements the Object interface.
func (x Name) PDF(w io.Writer) error { return writeObject(w, x) }

// PDF implements the Object interface.
func (x Array) PDF(w io.Writer) error { return writeObject(w, x) }

// PDF implements the Object interface.  Keys are written in sorted order,
// one entry per line.
func (x Dict) PDF(w io.Writer) error { return writeObject(w, x) }

// PDF implements the Object interface.
func (x *Stream) PDF(w io.Writer) error { return writeObject(w, x) }

// PDF implements the Object interface.
func (x Reference) PDF(w io.Writer) error { return writeObject(w, x) }

// Format returns the PDF representation of obj as a string.
func Format(obj Object) string {
	return string(appendObject(nil, obj))
}

func writeObject(w io.Writer, obj Object) error {
	_, err := w.Write(appendObject(nil, obj))
	return err
}

// appendObject appends the file representation of obj to buf.
func appendObject(buf []byte, obj Object) []byte {
	switch x := obj.(type) {
	case nil:
		return append(buf, "null"...)
	case Bool:
		return strconv.AppendBool(buf, bool(x))
	case Integer:
		return strconv.AppendInt(buf, int64(x), 10)
	case Real:
		start := len(buf)
		buf = strconv.AppendFloat(buf, float64(x), 'f', -1, 64)
		if bytes.IndexByte(buf[start:], '.') < 0 {
			// keep reals distinguishable from integers
			buf = append(buf, '.')
		}
		return buf
	case String:
		return appendString(buf, x)
	case Name:
		return appendName(buf, x)
	case Reference:
		buf = strconv.AppendInt(buf, int64(x.Number), 10)
		buf = append(buf, ' ')
		buf = strconv.AppendUint(buf, uint64(x.Generation), 10)
		return append(buf, " R"...)
	case Array:
		buf = append(buf, '[')
		for i, elem := range x {
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = appendObject(buf, elem)
		}
		return append(buf, ']')
	case Dict:
		if x == nil {
			return append(buf, "null"...)
		}
		keys := slices.Sorted(maps.Keys(x))
		buf = append(buf, "<<"...)
		for _, key := range keys {
			if x[key] == nil {
				continue
			}
			buf = append(buf, '\n')
			buf = appendName(buf, key)
			buf = append(buf, ' ')
			buf = appendObject(buf, x[key])
		}
		return append(buf, "\n>>"...)
	case *Stream:
		buf = appendObject(buf, x.Dict)
		buf = append(buf, "\nstream\n"...)
		buf = append(buf, x.Data...)
		return append(buf, "\nendstream"...)
	default:
		out := &bytes.Buffer{}
		if err := obj.PDF(out); err != nil {
			return append(buf, "null"...)
		}
		return append(buf, out.Bytes()...)
	}
}

// appendString writes text as a literal string and everything else in
// hexadecimal.
func appendString(buf []byte, s String) []byte {
	for _, c := range s {
		if (c < 0x20 || c > 0x7e) && c != '\n' && c != '\t' && c != '\r' {
			buf = append(buf, '<')
			buf = hex.AppendEncode(buf, s)
			return append(buf, '>')
		}
	}

	buf = append(buf, '(')
	for _, c := range s {
		switch c {
		case '(', ')', '\\':
			buf = append(buf, '\\', c)
		case '\r':
			buf = append(buf, '\\', 'r')
		default:
			buf = append(buf, c)
		}
	}
	return append(buf, ')')
}

const hexDigits = "0123456789ABCDEF"

func appendName(buf []byte, n Name) []byte {
	buf = append(buf, '/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c < '!' || c > '~' || c == '#' || isDelimiter[c] {
			buf = append(buf, '#', hexDigits[c>>4], hexDigits[c&15])
			continue
		}
		buf = append(buf, c)
	}
	return buf
}
