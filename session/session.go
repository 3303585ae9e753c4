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

// Package session applies highlight annotations to PDF files.
//
// A session takes a file through the complete pipeline: layout
// classification, optional normalization into the classic layout, indexing,
// page tree resolution, and finally one incremental update per annotation.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"seehuhn.de/go/geom/rect"

	"github.com/LaudateCorpus1/phlip-doc-management/annotation"
	"github.com/LaudateCorpus1/phlip-doc-management/normalize"
	"github.com/LaudateCorpus1/phlip-doc-management/pagetree"
	"github.com/LaudateCorpus1/phlip-doc-management/pdf"
)

// Options control how a session is opened.
type Options struct {
	// Normalizer is used for linearized files and for files with
	// cross-reference streams or object streams.  If this is nil, such
	// files cannot be annotated.
	Normalizer normalize.Normalizer

	Logger *slog.Logger
}

func (opts *Options) logger() *slog.Logger {
	if opts == nil || opts.Logger == nil {
		return slog.Default()
	}
	return opts.Logger
}

// Annotation is a highlight on a single page.
type Annotation struct {
	// Page is the 0-based page index, in reading order.
	Page int

	Rects    []annotation.Rect
	Contents string
	Author   string
}

// Session is a PDF file open for annotation.
type Session struct {
	Name  string
	Doc   *pdf.Document
	Pages []*pagetree.PageNode

	// Normalized is set if the file was rewritten before indexing.
	Normalized bool

	log *slog.Logger
}

// Open prepares data for annotation.  The name is only used for logging.
// Structure and normalization errors are returned before anything is
// written.
func Open(ctx context.Context, name string, data []byte, opts *Options) (*Session, error) {
	log := opts.logger().With("doc", name)

	normalized := false
	st := pdf.Inspect(data)
	if st.NeedsNormalization() && !st.Encrypted && opts != nil && opts.Normalizer != nil {
		log.Info("normalizing file",
			"linearized", st.Linearized,
			"xrefStreams", st.XRefStreams,
			"objectStreams", st.ObjectStreams)
		out, err := opts.Normalizer.Normalize(ctx, data)
		if err != nil {
			log.Error("normalization failed", "error", err)
			return nil, err
		}
		if pdf.Inspect(out).NeedsNormalization() {
			return nil, &normalize.NormalizationFailure{
				Tool:     fmt.Sprintf("%T", opts.Normalizer),
				ExitCode: -1,
				Err:      pdf.ErrNeedsNormalization,
			}
		}
		data = out
		normalized = true
	}

	doc, err := pdf.Open(data)
	if err != nil {
		log.Error("cannot open file", "error", err)
		return nil, err
	}
	pages, err := pagetree.Walk(doc, doc.Trailer.Root)
	if err != nil {
		log.Error("cannot resolve pages", "error", err)
		return nil, err
	}
	log.Debug("file opened",
		"pages", len(pages),
		"revisions", doc.Index.Revisions(),
		"nextFree", doc.NextFree)

	s := &Session{
		Name:       name,
		Doc:        doc,
		Pages:      pages,
		Normalized: normalized,
		log:        log,
	}
	return s, nil
}

// AddHighlight appends one highlight annotation as a new incremental
// update.  On error the file is left unchanged.
func (s *Session) AddHighlight(a *Annotation) (*annotation.Graph, error) {
	if a.Page < 0 || a.Page >= len(s.Pages) {
		return nil, &annotation.GeometryError{
			Index:  -1,
			Reason: fmt.Sprintf("page %d out of range [0, %d)", a.Page, len(s.Pages)),
		}
	}
	s.log.Info("adding annotation", "page", a.Page, "rects", len(a.Rects))
	if box := s.Pages[a.Page].MediaBox; !box.IsZero() && !inside(box, a.Rects) {
		s.log.Warn("highlight extends beyond the media box",
			"page", a.Page, "mediaBox", box)
	}

	h := &annotation.Highlight{
		Rects:    a.Rects,
		Contents: a.Contents,
		Author:   a.Author,
	}
	g, err := annotation.Add(s.Doc, s.Pages[a.Page], h)
	if err != nil {
		return nil, err
	}
	s.log.Debug("annotation written",
		"annot", g.Annot().Number,
		"nextFree", s.Doc.NextFree)
	return g, nil
}

// inside reports whether all rectangles lie within box.
func inside(box rect.Rect, rects []annotation.Rect) bool {
	for _, r := range rects {
		if min(r.X, r.EndX) < box.LLx || max(r.X, r.EndX) > box.URx ||
			min(r.Y, r.EndY) < box.LLy || max(r.Y, r.EndY) > box.URy {
			return false
		}
	}
	return true
}

// Apply adds all annotations in order.  An annotation which cannot be
// added is skipped; the other annotations are still applied.  The number of
// annotations written is returned, together with the errors for the skipped
// ones.
func (s *Session) Apply(annots []Annotation) (int, error) {
	var errs []error
	count := 0
	for i := range annots {
		_, err := s.AddHighlight(&annots[i])
		if err != nil {
			s.log.Warn("skipping annotation", "page", annots[i].Page, "error", err)
			errs = append(errs, fmt.Errorf("annotation %d: %w", i, err))
			continue
		}
		count++
	}
	return count, errors.Join(errs...)
}

// Bytes returns the current file contents.
func (s *Session) Bytes() []byte {
	return s.Doc.Bytes()
}

// NextFree returns the first unused object number.
func (s *Session) NextFree() int {
	return s.Doc.NextFree
}
