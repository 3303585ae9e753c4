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

package normalize

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// DefaultTimeout limits the run time of a qpdf invocation.
const DefaultTimeout = 60 * time.Second

// qpdfWarnings is the exit status qpdf uses when it succeeded with
// warnings.
const qpdfWarnings = 3

// QPDF runs the qpdf command-line tool.  Every call works in its own
// temporary directory, which is removed before Normalize returns, so that
// concurrent calls do not interfere.
type QPDF struct {
	// Path is the qpdf executable.  If this is empty, "qpdf" is looked up
	// in $PATH.
	Path string

	// Timeout limits the run time of a single invocation.  If this is
	// zero, DefaultTimeout is used.
	Timeout time.Duration

	// TempDir is the directory in which the per-call directories are
	// created.  If this is empty, the system default is used.
	TempDir string

	Logger *slog.Logger
}

// Normalize implements the Normalizer interface.
func (q *QPDF) Normalize(ctx context.Context, data []byte) ([]byte, error) {
	log := logger(q.Logger)
	path := q.Path
	if path == "" {
		path = "qpdf"
	}
	timeout := q.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dir, err := os.MkdirTemp(q.TempDir, "pdf-normalize-")
	if err != nil {
		return nil, &NormalizationFailure{Tool: "qpdf", ExitCode: -1, Err: err}
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn("cannot remove temporary directory", "dir", dir, "error", err)
		}
	}()

	inName := filepath.Join(dir, "in.pdf")
	outName := filepath.Join(dir, "out.pdf")
	err = os.WriteFile(inName, data, 0o600)
	if err != nil {
		return nil, &NormalizationFailure{Tool: "qpdf", ExitCode: -1, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := exec.CommandContext(ctx, path, "--qdf", "--object-streams=disable", inName, outName)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err = cmd.Run()
	log.Debug("qpdf finished",
		"duration", time.Since(start),
		"stdout", stdout.String(),
		"stderr", stderr.String())

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, &NormalizationFailure{
			Tool:     "qpdf",
			ExitCode: -1,
			Stderr:   stderr.String(),
			Err:      ctxErr,
		}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, &NormalizationFailure{Tool: "qpdf", ExitCode: -1, Stderr: stderr.String(), Err: err}
		}
		if exitErr.ExitCode() != qpdfWarnings {
			return nil, &NormalizationFailure{
				Tool:     "qpdf",
				ExitCode: exitErr.ExitCode(),
				Stderr:   stderr.String(),
			}
		}
		log.Warn("qpdf reported warnings", "stderr", stderr.String())
	}

	out, err := os.ReadFile(outName)
	if err != nil {
		return nil, &NormalizationFailure{Tool: "qpdf", ExitCode: -1, Stderr: stderr.String(), Err: err}
	}
	return out, nil
}
