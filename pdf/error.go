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
	"errors"
	"strconv"
)

var (
	errNoXRef      = errors.New("no xref ... trailer block found")
	errNoTrailer   = errors.New("trailer not found")
	errNoStartXRef = errors.New("startxref not found")
	errNoRoot      = errors.New("trailer has no /Root reference")
)

// StructureError indicates that a required marker or pattern is absent,
// i.e. the file is malformed or uses an unsupported layout.
type StructureError struct {
	Pos int64
	Err error
}

func (err *StructureError) Error() string {
	middle := ""
	if err.Err != nil {
		middle = ": " + err.Err.Error()
	}
	tail := ""
	if err.Pos > 0 {
		tail = " (at byte " + strconv.FormatInt(err.Pos, 10) + ")"
	}
	return "unsupported PDF structure" + middle + tail
}

func (err *StructureError) Unwrap() error {
	return err.Err
}

// ObjectNotFoundError is returned when an object lookup fails.
type ObjectNotFoundError struct {
	Ref Reference

	// Occurrence is the requested occurrence, or -1 for the latest one.
	Occurrence int
}

func (err *ObjectNotFoundError) Error() string {
	msg := "object " + strconv.Itoa(err.Ref.Number) + " " +
		strconv.FormatUint(uint64(err.Ref.Generation), 10) + " not found"
	if err.Occurrence >= 0 {
		msg += " (occurrence " + strconv.Itoa(err.Occurrence) + ")"
	}
	return msg
}

// IsNotFound reports whether err indicates a missing object.
func IsNotFound(err error) bool {
	var e *ObjectNotFoundError
	return errors.As(err, &e)
}
