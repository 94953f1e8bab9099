// Package hittest maps a screen point to the country under it, on the flat
// map by point-in-polygon and on the globe by ray casting. Both testers are
// pure functions of their inputs.
package hittest

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"globemap/internal/camera"
	"globemap/internal/geom"
	"globemap/internal/metrics"
	"globemap/internal/projection"
)

// Planar hit-tests the 2D map.
type Planar struct{}

// HitTest inverts the camera transform and the projection, then returns the
// first feature whose geometry contains the point. Points that do not
// unproject, and the ocean, yield nil.
func (Planar) HitTest(screenX, screenY float64, tr camera.Transform, proj *projection.Projection, fc *geom.FeatureCollection) *geom.Feature {
	start := time.Now()
	f := planarHit(screenX, screenY, tr, proj, fc)
	metrics.RecordHitTest("2d", time.Since(start), f != nil)
	return f
}

func planarHit(screenX, screenY float64, tr camera.Transform, proj *projection.Projection, fc *geom.FeatureCollection) *geom.Feature {
	if proj == nil || fc == nil {
		return nil
	}
	w, h := proj.Viewport()
	x, y := tr.ToContent(camera.Size{Width: w, Height: h}, screenX, screenY)
	lon, lat, ok := proj.Unproject(x, y)
	if !ok {
		return nil
	}
	return Locate(fc, lon, lat)
}

// Locate returns the first feature containing lon/lat, holes excluded.
func Locate(fc *geom.FeatureCollection, lon, lat float64) *geom.Feature {
	pt := orb.Point{lon, lat}
	for _, f := range fc.Features {
		if !f.Bound().Contains(pt) {
			continue
		}
		if planar.MultiPolygonContains(f.Geometry, pt) {
			return f
		}
	}
	return nil
}
