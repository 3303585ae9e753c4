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

package session

import (
	"context"
	"sort"

	"github.com/LaudateCorpus1/phlip-doc-management/annotation"
)

// PageRect is a highlighted line together with its page.
type PageRect struct {
	PageNumber int             `json:"pageNumber"`
	Points     annotation.Rect `json:"pdfPoints"`
}

// Request is a highlight as submitted by a client.  A request may span
// several pages.
type Request struct {
	StartPage int        `json:"startPage"`
	EndPage   int        `json:"endPage"`
	Rects     []PageRect `json:"rects"`
	Contents  string     `json:"contents,omitempty"`
	Author    string     `json:"author,omitempty"`
}

// SplitByPage converts requests into single-page annotations.  A request
// spanning several pages gives one annotation per page which has at least
// one rectangle.  The result is ordered by page; annotations on the same
// page keep the order of the requests.
func SplitByPage(reqs []Request) []Annotation {
	var res []Annotation
	for _, req := range reqs {
		if req.StartPage == req.EndPage {
			res = append(res, Annotation{
				Page:     req.StartPage,
				Rects:    points(req.Rects),
				Contents: req.Contents,
				Author:   req.Author,
			})
			continue
		}

		for page := req.StartPage; page <= req.EndPage; page++ {
			var rects []annotation.Rect
			for _, r := range req.Rects {
				if r.PageNumber == page {
					rects = append(rects, r.Points)
				}
			}
			if len(rects) == 0 {
				continue
			}
			res = append(res, Annotation{
				Page:     page,
				Rects:    rects,
				Contents: req.Contents,
				Author:   req.Author,
			})
		}
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Page < res[j].Page
	})
	return res
}

func points(rects []PageRect) []annotation.Rect {
	res := make([]annotation.Rect, len(rects))
	for i, r := range rects {
		res[i] = r.Points
	}
	return res
}

// Annotate applies all requests to the PDF file data and returns the
// updated file.  If the file cannot be opened, the returned data is nil.
// Otherwise, if some annotations fail, the returned data contains all
// annotations which succeeded and the error describes the failed ones.
// The input buffer is never modified.
func Annotate(ctx context.Context, name string, data []byte, reqs []Request, opts *Options) ([]byte, error) {
	s, err := Open(ctx, name, data, opts)
	if err != nil {
		return nil, err
	}
	_, err = s.Apply(SplitByPage(reqs))
	return s.Bytes(), err
}
