package game

import (
	"errors"
	"sort"
)

// ShapeKind names an entry of the shape catalog.
type ShapeKind string

const (
	ShortLine   ShapeKind = "shortLine"
	MediumLine  ShapeKind = "mediumLine"
	LongLine    ShapeKind = "longLine"
	SmallSquare ShapeKind = "smallSquare"
	LargeSquare ShapeKind = "largeSquare"
)

var ErrUnknownShapeKind = errors.New("unknown shape kind")

// ShapeSpec is the immutable catalog entry for a kind. Ratios are fractions of
// the field width.
type ShapeSpec struct {
	WidthRatio  float64 `json:"width_ratio"`
	HeightRatio float64 `json:"height_ratio"`
	IsLine      bool    `json:"is_line"`
}

var catalog = map[ShapeKind]ShapeSpec{
	ShortLine:   {WidthRatio: 0.06, HeightRatio: 0.005, IsLine: true},
	MediumLine:  {WidthRatio: 0.12, HeightRatio: 0.005, IsLine: true},
	LongLine:    {WidthRatio: 0.20, HeightRatio: 0.005, IsLine: true},
	SmallSquare: {WidthRatio: 0.03, HeightRatio: 0.03},
	LargeSquare: {WidthRatio: 0.06, HeightRatio: 0.06},
}

// Spec returns the catalog entry for k.
func (k ShapeKind) Spec() (ShapeSpec, bool) {
	s, ok := catalog[k]
	return s, ok
}

// Valid reports whether k is in the catalog.
func (k ShapeKind) Valid() bool {
	_, ok := catalog[k]
	return ok
}

// IsLine reports whether k collides as a thin capsule.
func (k ShapeKind) IsLine() bool {
	return catalog[k].IsLine
}

// Size returns the body size of k in field units. Lines use the fixed line
// thickness instead of their height ratio.
func (k ShapeKind) Size() (width, height float64) {
	s := catalog[k]
	width = s.WidthRatio * FieldWidth
	if s.IsLine {
		return width, LineThickness
	}
	return width, s.HeightRatio * FieldWidth
}

// ParseShapeKind validates a kind received from outside the core.
func ParseShapeKind(s string) (ShapeKind, error) {
	k := ShapeKind(s)
	if !k.Valid() {
		return "", ErrUnknownShapeKind
	}
	return k, nil
}

// ShapeKinds lists the catalog in a stable order.
func ShapeKinds() []ShapeKind {
	kinds := make([]ShapeKind, 0, len(catalog))
	for k := range catalog {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		wi, _ := kinds[i].Size()
		wj, _ := kinds[j].Size()
		if kinds[i].IsLine() != kinds[j].IsLine() {
			return kinds[i].IsLine()
		}
		return wi < wj
	})
	return kinds
}
