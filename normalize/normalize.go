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

// Package normalize rewrites PDF files into the classic layout, with plain
// cross-reference tables and without object streams, so that they can be
// updated incrementally.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Normalizer rewrites a PDF file.  Implementations must not modify data.
type Normalizer interface {
	Normalize(ctx context.Context, data []byte) ([]byte, error)
}

// NormalizationFailure is returned when a file cannot be normalized.
type NormalizationFailure struct {
	Tool string

	// ExitCode is the exit status of an external tool, or -1 if the tool
	// did not run to completion.
	ExitCode int

	Stderr string
	Err    error
}

func (err *NormalizationFailure) Error() string {
	msg := err.Tool + " failed"
	if err.ExitCode >= 0 {
		msg += fmt.Sprintf(" with exit code %d", err.ExitCode)
	}
	if err.Err != nil {
		msg += ": " + err.Err.Error()
	}
	if s := strings.TrimSpace(err.Stderr); s != "" {
		if len(s) > 200 {
			s = s[:200] + "..."
		}
		msg += " (" + s + ")"
	}
	return msg
}

func (err *NormalizationFailure) Unwrap() error {
	return err.Err
}

// Chain tries a list of normalizers in order.  The first successful result
// is returned.
type Chain []Normalizer

// Normalize implements the Normalizer interface.
func (c Chain) Normalize(ctx context.Context, data []byte) ([]byte, error) {
	if len(c) == 0 {
		return nil, &NormalizationFailure{Tool: "chain", ExitCode: -1, Err: errors.New("no normalizers configured")}
	}
	var errs []error
	for _, n := range c {
		out, err := n.Normalize(ctx, data)
		if err == nil {
			return out, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
