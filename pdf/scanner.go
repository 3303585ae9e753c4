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
	"errors"
	"fmt"
	"io"
	"strconv"
)

// scanner reads PDF objects from an in-memory buffer.  All positions are
// byte offsets into buf.
type scanner struct {
	buf []byte
	pos int

	// getInt resolves the /Length of streams.  It may be nil, in which
	// case only direct integers are used.
	getInt func(Object) (Integer, error)
}

func newScanner(buf []byte, pos int, getInt func(Object) (Integer, error)) *scanner {
	return &scanner{
		buf:    buf,
		pos:    pos,
		getInt: getInt,
	}
}

func (s *scanner) errorf(format string, args ...any) error {
	return &StructureError{
		Pos: int64(s.pos),
		Err: fmt.Errorf(format, args...),
	}
}

// Peek returns a view of the next n bytes of input.  Near the end of the
// buffer, the returned slice may be shorter than n.
func (s *scanner) Peek(n int) []byte {
	end := s.pos + n
	if end > len(s.buf) {
		end = len(s.buf)
	}
	return s.buf[s.pos:end]
}

// ReadIndirectObject reads an object of the form "n g obj ... endobj".
func (s *scanner) ReadIndirectObject() (*Indirect, error) {
	// Some files point the xref entries at the end of the previous line.
	// Try to fix this up by skipping any leading white space.
	s.SkipWhiteSpace()
	start := s.pos

	number, err := s.ReadInteger()
	if err != nil {
		return nil, err
	}
	s.SkipWhiteSpace()
	generation, err := s.ReadInteger()
	if err != nil {
		return nil, err
	}
	if number < 0 || generation < 0 || generation > 65535 {
		return nil, s.errorf("invalid object header %d %d", number, generation)
	}
	s.SkipWhiteSpace()
	err = s.SkipString("obj")
	if err != nil {
		return nil, err
	}
	s.SkipWhiteSpace()

	obj, err := s.ReadObject()
	if err != nil {
		return nil, err
	}
	s.SkipWhiteSpace()

	if a, ok := obj.(Integer); ok {
		// Check whether this is a reference to another indirect object.
		if ref, ok := s.tryReference(a); ok {
			obj = ref
			s.SkipWhiteSpace()
		}
	}

	err = s.SkipString("endobj")
	if err != nil {
		return nil, err
	}

	return &Indirect{
		Ref: Reference{Number: int(number), Generation: uint16(generation)},
		Obj: obj,
		Pos: int64(start),
		Raw: s.buf[start:s.pos],
	}, nil
}

// ReadObject reads a single direct object.  Integers are returned as such;
// it is the caller's responsibility to check whether an integer starts a
// reference.
func (s *scanner) ReadObject() (Object, error) {
	buf := s.Peek(5) // len("false") == 5

	switch {
	case len(buf) == 0:
		return nil, &StructureError{Pos: int64(s.pos), Err: io.ErrUnexpectedEOF}
	case bytes.HasPrefix(buf, []byte("null")):
		s.pos += 4
		return nil, nil
	case bytes.HasPrefix(buf, []byte("true")):
		s.pos += 4
		return Bool(true), nil
	case bytes.HasPrefix(buf, []byte("false")):
		s.pos += 5
		return Bool(false), nil
	case buf[0] == '/':
		return s.ReadName()
	case buf[0] >= '0' && buf[0] <= '9', buf[0] == '+', buf[0] == '-', buf[0] == '.':
		return s.ReadNumber()
	case bytes.HasPrefix(buf, []byte("<<")):
		dict, err := s.ReadDict()
		if err != nil {
			return nil, err
		}

		// check whether this is the start of a stream
		save := s.pos
		s.SkipWhiteSpace()
		if !bytes.HasPrefix(s.Peek(6), []byte("stream")) {
			s.pos = save
			return dict, nil
		}
		return s.ReadStreamData(dict)
	case buf[0] == '(':
		s.pos++
		return s.ReadQuotedString()
	case buf[0] == '<':
		s.pos++
		return s.ReadHexString()
	case buf[0] == '[':
		s.pos++
		return s.ReadArray()
	}
	return nil, s.errorf("unexpected %q", string(buf))
}

// tryReference checks whether the integer a just read is followed by
// "g R".  If not, the scanner position is left unchanged.
func (s *scanner) tryReference(a Integer) (Reference, bool) {
	save := s.pos
	s.SkipWhiteSpace()
	b, err := s.ReadInteger()
	if err == nil && a >= 0 && b >= 0 && b <= 65535 {
		s.SkipWhiteSpace()
		buf := s.Peek(2)
		if len(buf) > 0 && buf[0] == 'R' && (len(buf) == 1 || isSpace[buf[1]] || isDelimiter[buf[1]]) {
			s.pos++
			return Reference{Number: int(a), Generation: uint16(b)}, true
		}
	}
	s.pos = save
	return Reference{}, false
}

// ReadInteger reads an integer.
func (s *scanner) ReadInteger() (Integer, error) {
	start := s.pos
	if s.pos < len(s.buf) && (s.buf[s.pos] == '+' || s.buf[s.pos] == '-') {
		s.pos++
	}
	for s.pos < len(s.buf) && s.buf[s.pos] >= '0' && s.buf[s.pos] <= '9' {
		s.pos++
	}

	x, err := strconv.ParseInt(string(s.buf[start:s.pos]), 10, 64)
	if err != nil {
		s.pos = start
		return 0, &StructureError{Pos: int64(start), Err: err}
	}
	return Integer(x), nil
}

// ReadNumber reads an integer or real number.
func (s *scanner) ReadNumber() (Object, error) {
	start := s.pos
	hasDot := false
	first := true
	for s.pos < len(s.buf) {
		c := s.buf[s.pos]
		if !hasDot && c == '.' {
			hasDot = true
		} else if first && (c == '+' || c == '-') {
			// sign
		} else if c < '0' || c > '9' {
			break
		}
		first = false
		s.pos++
	}
	text := string(s.buf[start:s.pos])

	if hasDot {
		x, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &StructureError{Pos: int64(start), Err: err}
		}
		return Real(x), nil
	}

	x, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, &StructureError{Pos: int64(start), Err: err}
	}
	return Integer(x), nil
}

// ReadQuotedString reads a ()-delimited string, starting after the opening
// bracket.
func (s *scanner) ReadQuotedString() (String, error) {
	res := []byte{}
	parenCount := 0
	for s.pos < len(s.buf) {
		c := s.buf[s.pos]
		s.pos++
		switch c {
		case '\\':
			if s.pos >= len(s.buf) {
				return nil, s.errorf("unterminated string")
			}
			c = s.buf[s.pos]
			s.pos++
			switch c {
			case '\n':
				continue
			case '\r':
				if s.pos < len(s.buf) && s.buf[s.pos] == '\n' {
					s.pos++
				}
				continue
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			}
			if c >= '0' && c <= '7' {
				val := c - '0'
				for k := 0; k < 2 && s.pos < len(s.buf); k++ {
					d := s.buf[s.pos]
					if d < '0' || d > '7' {
						break
					}
					val = val*8 + (d - '0')
					s.pos++
				}
				c = val
			}
		case '(':
			parenCount++
		case ')':
			if parenCount == 0 {
				return String(res), nil
			}
			parenCount--
		case '\r':
			c = '\n'
			if s.pos < len(s.buf) && s.buf[s.pos] == '\n' {
				s.pos++
			}
		}
		res = append(res, c)
	}
	return nil, s.errorf("unterminated string")
}

// ReadHexString reads a <>-delimited string, starting after the opening
// angled bracket.
func (s *scanner) ReadHexString() (String, error) {
	res := []byte{}
	var hexVal byte
	first := true
	for s.pos < len(s.buf) {
		c := s.buf[s.pos]
		s.pos++
		var d byte
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case c == '>':
			if !first {
				res = append(res, 16*hexVal)
			}
			return String(res), nil
		default:
			continue
		}
		if first {
			hexVal = d
		} else {
			res = append(res, 16*hexVal+d)
		}
		first = !first
	}
	return nil, s.errorf("unterminated hex string")
}

// ReadName reads a PDF name object.
func (s *scanner) ReadName() (Name, error) {
	err := s.SkipString("/")
	if err != nil {
		return "", err
	}

	var res []byte
	for s.pos < len(s.buf) {
		c := s.buf[s.pos]
		if isSpace[c] || isDelimiter[c] {
			break
		}
		s.pos++
		if c == '#' && s.pos+1 < len(s.buf) {
			v, err := strconv.ParseUint(string(s.buf[s.pos:s.pos+2]), 16, 8)
			if err == nil {
				c = byte(v)
				s.pos += 2
			}
		}
		res = append(res, c)
	}
	return Name(res), nil
}

// ReadArray reads an array, starting after the opening "[".
func (s *scanner) ReadArray() (Array, error) {
	array := Array{}
	integersSeen := 0
	for {
		s.SkipWhiteSpace()

		buf := s.Peek(1)
		if len(buf) == 0 {
			return nil, s.errorf("unterminated array")
		}
		if buf[0] == ']' {
			break
		}
		if integersSeen >= 2 && buf[0] == 'R' {
			s.pos++
			k := len(array)
			a := array[k-2].(Integer)
			b := array[k-1].(Integer)
			if b > 65535 {
				return nil, s.errorf("invalid generation number %d", b)
			}
			array = append(array[:k-2], Reference{Number: int(a), Generation: uint16(b)})
			integersSeen = 0
			continue
		}

		obj, err := s.ReadObject()
		if err != nil {
			return nil, err
		}

		if x, isInt := obj.(Integer); isInt && x >= 0 {
			integersSeen++
		} else {
			integersSeen = 0
		}

		array = append(array, obj)
	}
	s.pos++ // we have already seen the closing "]"

	return array, nil
}

// ReadDict reads a PDF dictionary.
func (s *scanner) ReadDict() (Dict, error) {
	err := s.SkipString("<<")
	if err != nil {
		return nil, err
	}

	dict := Dict{}
	for {
		s.SkipWhiteSpace()
		buf := s.Peek(2)
		if bytes.Equal(buf, []byte(">>")) {
			break
		}
		if len(buf) == 0 || buf[0] != '/' {
			return nil, s.errorf("expected name in dictionary but found %q", string(buf))
		}
		key, err := s.ReadName()
		if err != nil {
			return nil, err
		}

		s.SkipWhiteSpace()
		val, err := s.ReadObject()
		if err != nil {
			return nil, err
		}

		// If we found an integer, check whether this is a reference to an
		// indirect object.
		if a, isInt := val.(Integer); isInt {
			if ref, ok := s.tryReference(a); ok {
				val = ref
			}
		}

		dict[key] = val
	}
	s.pos += 2

	return dict, nil
}

// ReadStreamData reads the data of a PDF Stream, starting after the Dict.
// If /Length cannot be used, the data extends to the next "endstream".
func (s *scanner) ReadStreamData(dict Dict) (*Stream, error) {
	s.SkipWhiteSpace()
	err := s.SkipString("stream")
	if err != nil {
		return nil, err
	}

	buf := s.Peek(2)
	if bytes.HasPrefix(buf, []byte("\r\n")) {
		s.pos += 2
	} else if len(buf) > 0 && (buf[0] == '\n' || buf[0] == '\r') {
		s.pos++
	} else {
		return nil, s.errorf("missing end of line after stream keyword")
	}
	start := s.pos

	end := -1
	if length, ok := s.streamLength(dict); ok && start+length <= len(s.buf) {
		tail := newScanner(s.buf, start+length, nil)
		tail.SkipWhiteSpace()
		if bytes.HasPrefix(tail.Peek(9), []byte("endstream")) {
			end = start + length
			s.pos = tail.pos
		}
	}
	if end < 0 {
		idx := bytes.Index(s.buf[start:], []byte("endstream"))
		if idx < 0 {
			return nil, &StructureError{Pos: int64(start), Err: errors.New("endstream not found")}
		}
		s.pos = start + idx
		end = s.pos
		if end > start && s.buf[end-1] == '\n' {
			end--
		}
		if end > start && s.buf[end-1] == '\r' {
			end--
		}
	}
	s.pos += len("endstream")

	return &Stream{
		Dict: dict,
		Data: s.buf[start:end],
	}, nil
}

func (s *scanner) streamLength(dict Dict) (int, bool) {
	var length Integer
	switch l := dict["Length"].(type) {
	case Integer:
		length = l
	case Reference:
		if s.getInt == nil {
			return 0, false
		}
		x, err := s.getInt(l)
		if err != nil {
			return 0, false
		}
		length = x
	default:
		return 0, false
	}
	if length < 0 {
		return 0, false
	}
	return int(length), true
}

// SkipWhiteSpace skips white space and comments.
func (s *scanner) SkipWhiteSpace() {
	isComment := false
	for s.pos < len(s.buf) {
		c := s.buf[s.pos]
		if isComment {
			if c == '\r' || c == '\n' {
				isComment = false
			}
		} else if c == '%' {
			isComment = true
		} else if !isSpace[c] {
			return
		}
		s.pos++
	}
}

// SkipString skips the literal pat, which must come next in the input.
func (s *scanner) SkipString(pat string) error {
	buf := s.Peek(len(pat))
	if string(buf) != pat {
		return s.errorf("expected %q but found %q", pat, string(buf))
	}
	s.pos += len(pat)
	return nil
}

var (
	isSpace = [256]bool{
		0:  true,
		9:  true,
		10: true,
		12: true,
		13: true,
		32: true,
	}
	isDelimiter = [256]bool{
		'(': true,
		')': true,
		'<': true,
		'>': true,
		'[': true,
		']': true,
		'{': true,
		'}': true,
		'/': true,
		'%': true,
	}
)
