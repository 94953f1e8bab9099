// Package projection maps lon/lat degrees to screen pixels and back. A
// Projection is an immutable value fitted to one viewport and one feature
// collection; build a new one when either changes.
package projection

import (
	"errors"
	"math"

	"globemap/internal/geom"
)

var (
	ErrEmptyViewport = errors.New("projection: viewport has no area")
	ErrNoGeometry    = errors.New("projection: nothing projectable to fit")
)

const (
	rad = math.Pi / 180
	deg = 180 / math.Pi
)

// Projection is a raw family plus scale, translate and a central meridian.
// Screen y grows downwards.
type Projection struct {
	raw       Raw
	k         float64
	tx, ty    float64
	centerLon float64
	width     float64
	height    float64
}

type fitOptions struct {
	raw       Raw
	padding   float64
	centerLon float64
}

type Option func(*fitOptions)

// WithFamily selects the raw projection; NaturalEarth is the default.
func WithFamily(r Raw) Option {
	return func(o *fitOptions) { o.raw = r }
}

// WithPadding keeps pad pixels free on every side.
func WithPadding(pad float64) Option {
	return func(o *fitOptions) { o.padding = pad }
}

// WithCenterLon rotates the globe so lon sits on the central meridian.
func WithCenterLon(lon float64) Option {
	return func(o *fitOptions) { o.centerLon = lon }
}

// New builds a projection from explicit parameters.
func New(raw Raw, scale, tx, ty, centerLon, width, height float64) *Projection {
	return &Projection{raw: raw, k: scale, tx: tx, ty: ty, centerLon: centerLon, width: width, height: height}
}

// Fit chooses scale and translate so the projected extent of fc fills a
// width×height viewport, centered.
func Fit(width, height float64, fc *geom.FeatureCollection, opts ...Option) (*Projection, error) {
	o := fitOptions{raw: NaturalEarth{}}
	for _, opt := range opts {
		opt(&o)
	}
	w := width - 2*o.padding
	h := height - 2*o.padding
	if !(w > 0) || !(h > 0) {
		return nil, ErrEmptyViewport
	}

	unit := &Projection{raw: o.raw, k: 1, centerLon: o.centerLon}
	var b geom.BBox
	found := false
	if fc != nil {
		for _, f := range fc.Features {
			for _, poly := range f.Geometry {
				for _, ring := range poly {
					for _, pt := range ring {
						x, y, ok := unit.Project(pt[0], pt[1])
						if !ok {
							continue
						}
						if !found {
							b = geom.BBox{MinX: x, MinY: y, MaxX: x, MaxY: y}
							found = true
							continue
						}
						b = b.Extend(x, y)
					}
				}
			}
		}
	}
	if !found || b.Empty() {
		return nil, ErrNoGeometry
	}

	k := math.Min(w/b.Width(), h/b.Height())
	// unit has tx=ty=0, so b is in k=1 screen orientation already.
	tx := (width - k*(b.MinX+b.MaxX)) / 2
	ty := (height - k*(b.MinY+b.MaxY)) / 2
	return &Projection{
		raw:       o.raw,
		k:         k,
		tx:        tx,
		ty:        ty,
		centerLon: o.centerLon,
		width:     width,
		height:    height,
	}, nil
}

// Project maps degrees to screen pixels. ok is false for input the family
// cannot represent; callers skip such points.
func (p *Projection) Project(lon, lat float64) (x, y float64, ok bool) {
	if !finite(lon, lat) || math.Abs(lat) > 90 {
		return 0, 0, false
	}
	rx, ry, ok := p.raw.Forward(wrapLon(lon-p.centerLon)*rad, lat*rad)
	if !ok {
		return 0, 0, false
	}
	return p.tx + p.k*rx, p.ty - p.k*ry, true
}

// Unproject maps screen pixels to degrees. ok is false when the point lies
// outside the projection's valid lon/lat domain.
func (p *Projection) Unproject(x, y float64) (lon, lat float64, ok bool) {
	if !finite(x, y) || p.k == 0 {
		return 0, 0, false
	}
	lambda, phi, ok := p.raw.Inverse((x-p.tx)/p.k, (p.ty-y)/p.k)
	if !ok {
		return 0, 0, false
	}
	lon, lat = lambda*deg, phi*deg
	if math.Abs(lon) > 180+domainSlack || math.Abs(lat) > 90+domainSlack {
		return 0, 0, false
	}
	return wrapLon(lon + p.centerLon), lat, true
}

func (p *Projection) Family() Raw                   { return p.raw }
func (p *Projection) Scale() float64                { return p.k }
func (p *Projection) Translate() (float64, float64) { return p.tx, p.ty }
func (p *Projection) CenterLon() float64            { return p.centerLon }
func (p *Projection) Viewport() (float64, float64)  { return p.width, p.height }

// wrapLon folds longitudes outside [-180, 180] back into range. Values
// within rounding distance of ±180 are clamped rather than wrapped.
func wrapLon(lon float64) float64 {
	switch {
	case lon > 180+domainSlack || lon < -180-domainSlack:
		lon = math.Mod(lon+180, 360)
		if lon < 0 {
			lon += 360
		}
		return lon - 180
	case lon > 180:
		return 180
	case lon < -180:
		return -180
	}
	return lon
}
