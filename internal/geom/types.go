package geom

import (
	"strings"

	"github.com/paulmach/orb"
)

// BBox is an axis-aligned rectangle. In screen space Y grows downwards.
type BBox struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

func (b BBox) Width() float64  { return b.MaxX - b.MinX }
func (b BBox) Height() float64 { return b.MaxY - b.MinY }

// Center returns the midpoint.
func (b BBox) Center() (float64, float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}

// Empty reports a zero-area or inverted box.
func (b BBox) Empty() bool { return !(b.MaxX > b.MinX) || !(b.MaxY > b.MinY) }

// Extend grows the box to include (x, y). The zero BBox is treated as unset
// only through the ok flag the caller tracks.
func (b BBox) Extend(x, y float64) BBox {
	if x < b.MinX {
		b.MinX = x
	}
	if y < b.MinY {
		b.MinY = y
	}
	if x > b.MaxX {
		b.MaxX = x
	}
	if y > b.MaxY {
		b.MaxY = y
	}
	return b
}

// Feature is a country: ring geometry in lon/lat degrees, a display name and
// its ISO identity. ISO2/ISO3 are empty when the name could not be resolved.
type Feature struct {
	Name       string
	ISO2       string
	ISO3       string
	Geometry   orb.MultiPolygon
	Properties map[string]any

	bound    orb.Bound
	hasBound bool
}

// NewFeature builds a feature and caches its lon/lat bound.
func NewFeature(name string, mp orb.MultiPolygon, props map[string]any) *Feature {
	return &Feature{
		Name:       name,
		Geometry:   mp,
		Properties: props,
		bound:      mp.Bound(),
		hasBound:   true,
	}
}

// Key is the stable identity: ISO3, else ISO2, else "".
func (f *Feature) Key() string {
	if f.ISO3 != "" {
		return f.ISO3
	}
	return f.ISO2
}

// HasCode reports whether the feature matches an alpha-2 or alpha-3 code,
// ignoring case.
func (f *Feature) HasCode(code string) bool {
	if code == "" {
		return false
	}
	return strings.EqualFold(f.ISO3, code) || strings.EqualFold(f.ISO2, code)
}

// Bound returns the lon/lat bound, cached for features built with NewFeature.
func (f *Feature) Bound() orb.Bound {
	if f.hasBound {
		return f.bound
	}
	return f.Geometry.Bound()
}

// Rings counts exterior and interior rings.
func (f *Feature) Rings() int {
	n := 0
	for _, p := range f.Geometry {
		n += len(p)
	}
	return n
}

// FeatureCollection is an ordered, read-only set of country features.
type FeatureCollection struct {
	Features []*Feature
}

// ByCode returns the first feature carrying code as alpha-2 or alpha-3.
func (fc *FeatureCollection) ByCode(code string) *Feature {
	if fc == nil {
		return nil
	}
	for _, f := range fc.Features {
		if f.HasCode(code) {
			return f
		}
	}
	return nil
}

// Bound is the union of all feature bounds.
func (fc *FeatureCollection) Bound() (orb.Bound, bool) {
	var b orb.Bound
	ok := false
	for _, f := range fc.Features {
		if len(f.Geometry) == 0 {
			continue
		}
		if !ok {
			b, ok = f.Bound(), true
			continue
		}
		b = b.Union(f.Bound())
	}
	return b, ok
}
