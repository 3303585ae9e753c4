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
	"fmt"
	"regexp"
)

// Indirect is an indirect object read from a document.
type Indirect struct {
	Ref Reference
	Obj Object

	// Pos is the byte offset of the object header in the complete file.
	Pos int64

	// Raw is the file representation, from the object number to the
	// "endobj" keyword.
	Raw []byte
}

// Getter resolves references to indirect objects.
type Getter interface {
	GetRef(ref Reference) (*Indirect, error)
}

// Get returns the current definition of the object with the given number,
// using the generation and latest occurrence recorded in the index.
func (d *Document) Get(num int) (*Indirect, error) {
	e, ok := d.Index.Lookup(num)
	if !ok || e.Free {
		return nil, &ObjectNotFoundError{Ref: Reference{Number: num}, Occurrence: -1}
	}
	return d.load(e)
}

// GetRef returns the object for ref.  If the latest definition of the
// object has a different generation, the most recent definition with the
// requested generation is used.
func (d *Document) GetRef(ref Reference) (*Indirect, error) {
	for occ := d.Index.Occurrences(ref.Number) - 1; occ >= 0; occ-- {
		e, _ := d.Index.LookupOccurrence(ref.Number, occ)
		if e.Generation == ref.Generation {
			if e.Free {
				break
			}
			return d.load(e)
		}
	}
	return nil, &ObjectNotFoundError{Ref: ref, Occurrence: -1}
}

// GetOccurrence returns a specific historical definition of an object.
// Occurrence 0 is the first definition in document order.
func (d *Document) GetOccurrence(num, occurrence int) (*Indirect, error) {
	e, ok := d.Index.LookupOccurrence(num, occurrence)
	if !ok || e.Free {
		return nil, &ObjectNotFoundError{Ref: Reference{Number: num}, Occurrence: occurrence}
	}
	return d.load(e)
}

func (d *Document) load(e *IndexEntry) (*Indirect, error) {
	if e.Revision >= d.baseRevisions {
		k := e.Revision - d.baseRevisions
		if k < len(d.revisions) {
			for _, rec := range d.revisions[k].Objects {
				if rec.Ref == e.Ref() {
					return &Indirect{Ref: rec.Ref, Obj: rec.Obj, Pos: rec.Offset, Raw: rec.raw}, nil
				}
			}
		}
		return nil, &ObjectNotFoundError{Ref: e.Ref(), Occurrence: e.Occurrence}
	}

	ref := e.Ref()
	if d.loading[ref] {
		return nil, &StructureError{Pos: e.Offset, Err: fmt.Errorf("object %d %d refers to itself", ref.Number, ref.Generation)}
	}
	d.loading[ref] = true
	defer delete(d.loading, ref)

	if e.Offset >= 0 && e.Offset < int64(len(d.base)) {
		s := newScanner(d.base, int(e.Offset), d.getInt)
		obj, err := s.ReadIndirectObject()
		if err == nil && obj.Ref == ref {
			return obj, nil
		}
	}

	// The offset is stale or wrong.  Fall back to a textual search for the
	// object definition.
	return d.findDefinition(ref, e.Occurrence)
}

// findDefinition locates the given occurrence of "num gen obj" in the
// original file.
func (d *Document) findDefinition(ref Reference, occurrence int) (*Indirect, error) {
	pat := regexp.MustCompile(fmt.Sprintf(`(?:^|[^0-9])(%d\s+%d\s+obj)`, ref.Number, ref.Generation))
	matches := pat.FindAllSubmatchIndex(d.base, -1)
	if occurrence >= len(matches) {
		return nil, &ObjectNotFoundError{Ref: ref, Occurrence: occurrence}
	}
	s := newScanner(d.base, matches[occurrence][2], d.getInt)
	obj, err := s.ReadIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("object %d %d: %w", ref.Number, ref.Generation, err)
	}
	return obj, nil
}

// getInt resolves stream lengths given as indirect objects.
func (d *Document) getInt(obj Object) (Integer, error) {
	x, err := Resolve(d, obj)
	if err != nil {
		return 0, err
	}
	i, ok := x.(Integer)
	if !ok {
		return 0, fmt.Errorf("expected Integer but got %T", x)
	}
	return i, nil
}

// maxRefDepth limits chains of references to references.
const maxRefDepth = 16

// Resolve follows references until a direct object is found.
func Resolve(r Getter, obj Object) (Object, error) {
	for i := 0; i < maxRefDepth; i++ {
		ref, ok := obj.(Reference)
		if !ok {
			return obj, nil
		}
		ind, err := r.GetRef(ref)
		if err != nil {
			return nil, err
		}
		obj = ind.Obj
	}
	return nil, fmt.Errorf("too many levels of indirection")
}

// GetDict resolves obj and checks that it is a dictionary.  A null object
// gives a nil dictionary.  The dictionary of a stream is returned as well.
func GetDict(r Getter, obj Object) (Dict, error) {
	x, err := Resolve(r, obj)
	if err != nil {
		return nil, err
	}
	switch x := x.(type) {
	case nil:
		return nil, nil
	case Dict:
		return x, nil
	case *Stream:
		return x.Dict, nil
	default:
		return nil, fmt.Errorf("wrong type, expected Dict but got %T", x)
	}
}

// GetArray resolves obj and checks that it is an array.
func GetArray(r Getter, obj Object) (Array, error) {
	x, err := Resolve(r, obj)
	if err != nil {
		return nil, err
	}
	switch x := x.(type) {
	case nil:
		return nil, nil
	case Array:
		return x, nil
	default:
		return nil, fmt.Errorf("wrong type, expected Array but got %T", x)
	}
}

// GetName resolves obj and checks that it is a name.
func GetName(r Getter, obj Object) (Name, error) {
	x, err := Resolve(r, obj)
	if err != nil {
		return "", err
	}
	name, ok := x.(Name)
	if !ok && x != nil {
		return "", fmt.Errorf("wrong type, expected Name but got %T", x)
	}
	return name, nil
}

// GetNumber resolves obj and returns its numeric value.
func GetNumber(r Getter, obj Object) (float64, error) {
	x, err := Resolve(r, obj)
	if err != nil {
		return 0, err
	}
	switch x := x.(type) {
	case Integer:
		return float64(x), nil
	case Real:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("wrong type, expected number but got %T", x)
	}
}
