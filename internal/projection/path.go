package projection

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"

	"globemap/internal/geom"
)

// Path is a feature's rings in screen pixels. Every ring is closed.
type Path struct {
	Key   string
	Rings []orb.Ring
}

// PathFor projects every ring vertex of f in order. Unprojectable vertices
// are skipped, each ring is closed, and rings left with fewer than two
// valid vertices are dropped.
func (p *Projection) PathFor(f *geom.Feature) Path {
	path := Path{Key: f.Key()}
	for _, poly := range f.Geometry {
		for _, ring := range poly {
			out := make(orb.Ring, 0, len(ring)+1)
			for _, pt := range ring {
				x, y, ok := p.Project(pt[0], pt[1])
				if !ok {
					continue
				}
				out = append(out, orb.Point{x, y})
			}
			if len(out) > 1 && out[0] == out[len(out)-1] {
				out = out[:len(out)-1]
			}
			if len(out) < 2 {
				continue
			}
			out = append(out, out[0])
			path.Rings = append(path.Rings, out)
		}
	}
	return path
}

// Empty reports a path with no drawable ring.
func (pa Path) Empty() bool { return len(pa.Rings) == 0 }

// Points counts vertices across rings.
func (pa Path) Points() int {
	n := 0
	for _, r := range pa.Rings {
		n += len(r)
	}
	return n
}

// SVG renders the path as SVG path data with two decimals.
func (pa Path) SVG() string {
	var b strings.Builder
	for _, r := range pa.Rings {
		for i, pt := range r {
			if i == len(r)-1 && i > 0 && pt == r[0] {
				b.WriteByte('Z')
				break
			}
			if i == 0 {
				b.WriteByte('M')
			} else {
				b.WriteByte('L')
			}
			b.WriteString(strconv.FormatFloat(pt[0], 'f', 2, 64))
			b.WriteByte(',')
			b.WriteString(strconv.FormatFloat(pt[1], 'f', 2, 64))
		}
	}
	return b.String()
}

// Simplify returns a copy reduced with Douglas-Peucker at tol pixels. Rings
// that collapse below a triangle are dropped.
func (pa Path) Simplify(tol float64) Path {
	if tol <= 0 {
		return pa
	}
	dp := simplify.DouglasPeucker(tol)
	out := Path{Key: pa.Key, Rings: make([]orb.Ring, 0, len(pa.Rings))}
	for _, r := range pa.Rings {
		s := dp.Ring(r.Clone())
		if len(s) < 4 {
			continue
		}
		out.Rings = append(out.Rings, s)
	}
	return out
}

// Bound is the pixel extent of the path.
func (pa Path) Bound() (geom.BBox, bool) {
	var b geom.BBox
	found := false
	for _, r := range pa.Rings {
		for _, pt := range r {
			if !found {
				b = geom.BBox{MinX: pt[0], MinY: pt[1], MaxX: pt[0], MaxY: pt[1]}
				found = true
				continue
			}
			b = b.Extend(pt[0], pt[1])
		}
	}
	return b, found
}

// BoundsOf is the screen-space bounding box of f under p.
func (p *Projection) BoundsOf(f *geom.Feature) (geom.BBox, bool) {
	return p.PathFor(f).Bound()
}

// CentroidOf is the area-weighted screen-space centroid of f, falling back
// to the vertex mean for zero-area geometry.
func (p *Projection) CentroidOf(f *geom.Feature) (float64, float64, bool) {
	var mp orb.MultiPolygon
	for _, poly := range f.Geometry {
		var out orb.Polygon
		for _, ring := range poly {
			r := make(orb.Ring, 0, len(ring))
			for _, pt := range ring {
				if x, y, ok := p.Project(pt[0], pt[1]); ok {
					r = append(r, orb.Point{x, y})
				}
			}
			if len(r) == 0 {
				continue
			}
			out = append(out, r)
		}
		if len(out) > 0 {
			mp = append(mp, out)
		}
	}
	if len(mp) == 0 {
		return 0, 0, false
	}
	c, area := planar.CentroidArea(mp)
	if area != 0 && finite(c[0], c[1]) {
		return c[0], c[1], true
	}
	var sx, sy float64
	n := 0
	for _, poly := range mp {
		for _, r := range poly {
			for _, pt := range r {
				sx += pt[0]
				sy += pt[1]
				n++
			}
		}
	}
	cx, cy := sx/float64(n), sy/float64(n)
	if !finite(cx, cy) {
		return 0, 0, false
	}
	return cx, cy, true
}

// GeoBoundsOf is the lon/lat extent of f.
func GeoBoundsOf(f *geom.Feature) (orb.Bound, bool) {
	if len(f.Geometry) == 0 {
		return orb.Bound{}, false
	}
	b := f.Bound()
	if math.IsNaN(b.Min[0]) {
		return orb.Bound{}, false
	}
	return b, true
}
