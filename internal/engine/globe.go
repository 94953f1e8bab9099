package engine

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/thejerf/suture/v4"

	"globemap/internal/asset"
	"globemap/internal/camera"
	"globemap/internal/geodata"
	"globemap/internal/geom"
	"globemap/internal/hittest"
	"globemap/internal/logging"
	"globemap/internal/syncer"
)

// Globe is the 3D orbit view over country meshes.
type Globe struct {
	base

	orbit *camera.Orbit
	slot  *syncer.AssetSlot
	loop  *syncer.RenderLoop[Frame]
	live  syncer.Latest[camera.OrbitState]

	mu sync.RWMutex
	vp camera.Size
}

// NewGlobe wires a globe. With a nil loader the meshes are triangulated
// from data in process.
func NewGlobe(data Boundaries, loader asset.Loader, r Renderer, opts Options) *Globe {
	g := &Globe{}
	g.loop = &syncer.RenderLoop[Frame]{FPS: opts.FPS, Stepper: g, Snapshot: g.Frame, Renderer: r}
	g.base.init(data, opts, logging.Component("engine").With().Str("mode", "globe").Logger(),
		globeGestures{g}, g.loop.Invalidate)

	if loader == nil {
		loader = asset.GlobeBuilder{
			Features: func(ctx context.Context) (*geom.FeatureCollection, error) {
				fc, _, err := data.LoadWithFallback(ctx, geodata.Low)
				return fc, err
			},
			Options: opts.Globe,
		}
	}
	g.slot = syncer.NewAssetSlot(loader, opts.AssetTimeout)
	g.slot.OnSettle = func(syncer.SlotState) { g.loop.Invalidate() }

	g.orbit = camera.NewOrbit(opts.Orbit, func(s camera.OrbitState) {
		g.live.Store(s)
		g.loop.Invalidate()
	})
	g.live.Store(g.orbit.State())
	g.orbit.Subscribe(func(camera.OrbitState) { g.sel.settle() })
	return g
}

// Services are the render loop and the first asset load.
func (g *Globe) Services() []suture.Service {
	return []suture.Service{g.loop, g.slot}
}

// ReloadAsset discards the mesh index and loads the globe asset again.
// Taps are ignored until the new index is published.
func (g *Globe) ReloadAsset(ctx context.Context) error {
	g.loop.Invalidate()
	return g.slot.Reload(ctx)
}

func (g *Globe) Orbit() *camera.Orbit { return g.orbit }

// Asset exposes the mesh slot, mostly for its state and error.
func (g *Globe) Asset() *syncer.AssetSlot { return g.slot }

// Load fetches the boundaries used for names, outlines and focusing.
func (g *Globe) Load(ctx context.Context) error {
	if _, err := g.loadFeatures(ctx); err != nil {
		return err
	}
	g.loop.Invalidate()
	return nil
}

func (g *Globe) SetViewport(width, height float64) {
	g.mu.Lock()
	g.vp = camera.Size{Width: width, Height: height}
	g.mu.Unlock()
	g.loop.Invalidate()
}

func (g *Globe) Viewport() camera.Size {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.vp
}

func (g *Globe) Step(dt time.Duration) bool {
	g.FlushGestures(time.Now())
	return g.orbit.Step(dt)
}

// Tap selects the country mesh under (x, y); a miss clears the selection.
// Taps while the camera animates or before the asset is loaded do nothing
// and report false.
func (g *Globe) Tap(x, y float64) bool {
	if g.orbit.Mode() == camera.Animating {
		return false
	}
	idx := g.slot.Index()
	if idx == nil {
		return false
	}
	iso, ok := hittest.Spatial{}.HitTest(x, y, g.Viewport(), g.orbit.Camera(), idx)
	if !ok {
		g.selectFeature(nil, "")
		return true
	}
	g.selectFeature(g.featureFor(iso), iso)
	return true
}

// featureFor finds the boundary feature for a mesh code, or a bare
// feature carrying the code when the boundaries lack it.
func (g *Globe) featureFor(iso string) *geom.Feature {
	if fc := g.Features(); fc != nil {
		if f := fc.ByCode(iso); f != nil {
			return f
		}
	}
	f := geom.NewFeature(iso, nil, nil)
	f.ISO3 = iso
	if c, ok := g.colors.table.ByCode(iso); ok {
		f.Name, f.ISO2, f.ISO3 = c.Name, c.Alpha2, c.Alpha3
	}
	return f
}

// DoubleTap flies to the tapped point, or resets when already zoomed in.
func (g *Globe) DoubleTap(x, y float64) {
	if g.orbit.Mode() == camera.Animating {
		return
	}
	if g.orbit.Zoom() > g.opts.Orbit.MinZoom+1e-6 {
		g.ResetView()
		return
	}
	lat, lon, ok := g.surfacePoint(x, y)
	if !ok {
		g.orbit.ZoomBy(2)
		return
	}
	g.orbit.FocusOn(lat, lon)
}

// surfacePoint intersects the tap ray with the globe sphere.
func (g *Globe) surfacePoint(x, y float64) (lat, lon float64, ok bool) {
	origin, dir, ok := g.orbit.Camera().Ray(g.Viewport(), x, y)
	if !ok {
		return 0, 0, false
	}
	r := g.opts.Orbit.Radius
	b := origin.Dot(dir)
	c := origin.Dot(origin) - r*r
	disc := b*b - c
	if disc < 0 {
		return 0, 0, false
	}
	t := -b - math.Sqrt(disc)
	if t < 0 {
		return 0, 0, false
	}
	lat, lon = toLatLon(origin.Add(dir.Mul(t)))
	return lat, lon, true
}

// ZoomToCountry selects the country and turns the globe to face it at
// the focus zoom.
func (g *Globe) ZoomToCountry(code string) error {
	f, err := g.find(code)
	if err != nil {
		if f, ok := g.meshOnly(code); ok {
			return g.focus(f, code)
		}
		return fmt.Errorf("zoom to %q: %w", code, err)
	}
	return g.focus(f, code)
}

func (g *Globe) focus(f *geom.Feature, code string) error {
	lat, lon, ok := focusPoint(f)
	if !ok {
		lat, lon, ok = g.meshCenter(f.Key())
	}
	if !ok {
		return fmt.Errorf("zoom to %q: no geometry: %w", code, ErrUnknownCode)
	}
	g.sel.set(&Selection{ISO: f.Key(), Feature: f, Transitioning: true})
	g.orbit.FocusOn(lat, lon)
	return nil
}

// meshOnly resolves a code present in the mesh index but not in the
// boundary data.
func (g *Globe) meshOnly(code string) (*geom.Feature, bool) {
	c, ok := g.colors.table.ByCode(code)
	if !ok || len(g.slot.Index().Lookup(c.Alpha3)) == 0 {
		return nil, false
	}
	return g.featureFor(c.Alpha3), true
}

func (g *Globe) meshCenter(iso string) (lat, lon float64, ok bool) {
	entries := g.slot.Index().Lookup(iso)
	if len(entries) == 0 {
		return 0, 0, false
	}
	var sum mgl64.Vec3
	for _, e := range entries {
		sum = sum.Add(e.Min.Add(e.Max).Mul(0.5))
	}
	if sum.Len() == 0 {
		return 0, 0, false
	}
	lat, lon = toLatLon(sum)
	return lat, lon, true
}

// ZoomToBounds turns the globe to the center of b, given in lon/lat
// degrees.
func (g *Globe) ZoomToBounds(b geom.BBox) {
	lon, lat := b.Center()
	g.orbit.FocusOn(lat, lon)
}

// ResetView clears the selection and returns to the initial orbit.
func (g *Globe) ResetView() {
	g.sel.set(nil)
	g.orbit.Reset()
}

// Nudge rotates as if dragged by (dx, dy) pixels.
func (g *Globe) Nudge(dx, dy float64) {
	s := g.orbit.State()
	k := g.opts.Orbit.RadiansPerPixel / s.Zoom
	s.RotationY -= dx * k
	s.RotationX += dy * k
	g.orbit.RotateTo(s)
}

func (g *Globe) ZoomBy(factor float64) { g.orbit.ZoomBy(factor) }

func (g *Globe) CurrentZoom() float64 { return g.orbit.Zoom() }

func (g *Globe) WatchZoom(fn func(float64)) func() {
	return g.orbit.Subscribe(func(s camera.OrbitState) { fn(s.Zoom) })
}

// Locate is the lon/lat on the globe surface under a screen point.
func (g *Globe) Locate(x, y float64) (lon, lat float64, ok bool) {
	lat, lon, ok = g.surfacePoint(x, y)
	return lon, lat, ok
}

func (g *Globe) Frame() Frame {
	s, _ := g.live.Load()
	f := Frame{
		Mode:     ModeGlobe,
		Viewport: g.Viewport(),
		Features: g.Features(),
		Orbit:    s,
		Camera:   g.orbit.CameraFor(s),
		Index:    g.slot.Index(),
		AssetErr: g.slot.Err(),
		Color:    g.ColorFor,
	}
	f.Selection, f.HasSelection = g.Selection()
	return f
}

// focusPoint is the centroid of the largest polygon, in degrees, which
// stays on land for countries spanning the antimeridian.
func focusPoint(f *geom.Feature) (lat, lon float64, ok bool) {
	var best orb.Polygon
	bestArea := 0.0
	for _, p := range f.Geometry {
		if a := math.Abs(planar.Area(p)); a > bestArea {
			best, bestArea = p, a
		}
	}
	if best == nil {
		return 0, 0, false
	}
	c, _ := planar.CentroidArea(best)
	return c[1], c[0], true
}

func toLatLon(p mgl64.Vec3) (lat, lon float64) {
	n := p.Normalize()
	return mgl64.RadToDeg(math.Asin(n.Z())), mgl64.RadToDeg(math.Atan2(n.Y(), n.X()))
}

type globeGestures struct{ g *Globe }

func (h globeGestures) Tap(x, y float64)           { h.g.Tap(x, y) }
func (h globeGestures) DoubleTap(x, y float64)     { h.g.DoubleTap(x, y) }
func (h globeGestures) PanBegin(_, _ float64)      { h.g.orbit.BeginGesture() }
func (h globeGestures) Pan(dx, dy float64)         { h.g.orbit.RotateBy(dx, dy) }
func (h globeGestures) PanEnd(vx, vy float64)      { h.g.orbit.EndGesture(vx, vy) }
func (h globeGestures) PinchBegin(_, _ float64)    { h.g.orbit.BeginGesture() }
func (h globeGestures) Pinch(s, _, _ float64)      { h.g.orbit.PinchTo(s) }
func (h globeGestures) PinchEnd()                  { h.g.orbit.EndGesture(0, 0) }
func (h globeGestures) Wheel(factor, _, _ float64) { h.g.orbit.ZoomBy(factor) }
