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
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFCPU rewrites files in-process, using the pdfcpu library.  The output
// uses a classic cross-reference table and no object streams.
type PDFCPU struct {
	Logger *slog.Logger
}

// Normalize implements the Normalizer interface.
func (p *PDFCPU) Normalize(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &NormalizationFailure{Tool: "pdfcpu", ExitCode: -1, Err: err}
	}

	conf := model.NewDefaultConfiguration()
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	conf.ValidationMode = model.ValidationRelaxed

	out := &bytes.Buffer{}
	err := api.Optimize(bytes.NewReader(data), out, conf)
	if err != nil {
		return nil, &NormalizationFailure{Tool: "pdfcpu", ExitCode: -1, Err: err}
	}
	logger(p.Logger).Debug("pdfcpu rewrote file", "in", len(data), "out", out.Len())
	return out.Bytes(), nil
}
