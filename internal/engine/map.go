package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"

	"globemap/internal/camera"
	"globemap/internal/geom"
	"globemap/internal/hittest"
	"globemap/internal/logging"
	"globemap/internal/projection"
	"globemap/internal/syncer"
)

// Map is the flat 2D map.
type Map struct {
	base

	cam     *camera.Controller
	regen   *syncer.PathRegenerator
	commits *syncer.Committer[camera.Transform]
	loop    *syncer.RenderLoop[Frame]

	live  syncer.Latest[camera.Transform]
	paths syncer.Latest[syncer.PathSet]

	mu   sync.RWMutex
	vp   camera.Size
	proj *projection.Projection
}

// NewMap wires a map over data. r receives frames from the render loop
// once the services returned by Services are running.
func NewMap(data Boundaries, r Renderer, opts Options) *Map {
	m := &Map{}
	m.loop = &syncer.RenderLoop[Frame]{FPS: opts.FPS, Stepper: m, Snapshot: m.Frame, Renderer: r}
	m.base.init(data, opts, logging.Component("engine").With().Str("mode", "map").Logger(),
		mapGestures{m}, m.loop.Invalidate)

	m.regen = &syncer.PathRegenerator{
		Source:            data,
		HighZoomThreshold: opts.HighZoomThreshold,
		Out:               &m.paths,
	}
	m.commits = syncer.NewCommitter("path-regenerator", func(ctx context.Context, t camera.Transform) error {
		defer m.loop.Invalidate()
		return m.regen.Regenerate(ctx, t)
	})
	m.cam = camera.NewController(opts.Camera, camera.Size{}, func(t camera.Transform) {
		m.live.Store(t)
		m.loop.Invalidate()
	})
	m.live.Store(camera.Identity())
	m.cam.Subscribe(func(t camera.Transform) {
		m.sel.settle()
		m.commits.Commit(t)
	})
	return m
}

// Services are the render loop and the path regenerator, for a
// syncer.Supervisor.
func (m *Map) Services() []suture.Service {
	return []suture.Service{m.loop, m.commits}
}

func (m *Map) Camera() *camera.Controller { return m.cam }

// Load fetches boundaries and fits the projection. A failed load can be
// retried; a concurrent call returns ErrBusy.
func (m *Map) Load(ctx context.Context) error {
	if _, err := m.loadFeatures(ctx); err != nil {
		return err
	}
	m.refit()
	m.commits.Commit(m.cam.Transform())
	m.loop.Invalidate()
	return nil
}

// SetViewport resizes the map; the projection is refit to the new size.
func (m *Map) SetViewport(width, height float64) {
	m.mu.Lock()
	m.vp = camera.Size{Width: width, Height: height}
	m.mu.Unlock()
	m.refit()
	m.cam.SetViewport(camera.Size{Width: width, Height: height})
}

func (m *Map) Viewport() camera.Size {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vp
}

// Projection is the fitted projection, nil before Load and a viewport.
func (m *Map) Projection() *projection.Projection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.proj
}

func (m *Map) refit() {
	fc := m.Features()
	vp := m.Viewport()
	if fc == nil || vp.Width <= 0 || vp.Height <= 0 {
		return
	}
	proj, err := projection.Fit(vp.Width, vp.Height, fc,
		projection.WithFamily(m.opts.Family),
		projection.WithPadding(m.opts.Padding),
		projection.WithCenterLon(m.opts.CenterLon))
	if err != nil {
		m.log.Warn().Err(err).Msg("projection fit failed")
		return
	}
	m.mu.Lock()
	m.proj = proj
	m.mu.Unlock()
	m.regen.SetProjection(proj)
}

// Step advances camera animations and releases deferred taps. The render
// loop calls it every tick.
func (m *Map) Step(dt time.Duration) bool {
	m.FlushGestures(time.Now())
	return m.cam.Step(dt)
}

// hitFeatures prefers the collection currently on screen.
func (m *Map) hitFeatures() *geom.FeatureCollection {
	if ps, ok := m.paths.Load(); ok && ps.Features != nil {
		return ps.Features
	}
	return m.Features()
}

// Tap selects the country under (x, y) or clears the selection on the
// ocean. It does nothing, and reports false, while the camera is animating
// or before data is loaded.
func (m *Map) Tap(x, y float64) bool {
	if m.cam.State() == camera.Animating {
		return false
	}
	proj, fc := m.Projection(), m.hitFeatures()
	if proj == nil || fc == nil {
		return false
	}
	f := hittest.Planar{}.HitTest(x, y, m.cam.Transform(), proj, fc)
	if f == nil {
		m.selectFeature(nil, "")
		return true
	}
	m.selectFeature(f, f.Key())
	return true
}

// DoubleTap zooms in on the point, or resets when already zoomed in.
func (m *Map) DoubleTap(x, y float64) {
	if m.cam.State() == camera.Animating {
		return
	}
	t := m.cam.Transform()
	if t.Scale > m.opts.Camera.MinZoom+1e-6 {
		m.ResetView()
		return
	}
	cx, cy := t.ToContent(m.cam.Viewport(), x, y)
	m.cam.ZoomToPoint(cx, cy, t.Scale*2)
}

// ZoomToCountry selects the country and frames its projected bounds.
func (m *Map) ZoomToCountry(code string) error {
	f, err := m.find(code)
	if err != nil {
		return fmt.Errorf("zoom to %q: %w", code, err)
	}
	proj := m.Projection()
	if proj == nil {
		return fmt.Errorf("zoom to %q: %w", code, ErrNotLoaded)
	}
	b, ok := proj.BoundsOf(f)
	if !ok {
		return fmt.Errorf("zoom to %q: no projectable geometry: %w", code, ErrUnknownCode)
	}
	m.sel.set(&Selection{ISO: f.Key(), Feature: f, Transitioning: true})
	m.cam.ZoomToBounds(b)
	return nil
}

// ZoomToBounds frames b, given in unzoomed map pixels.
func (m *Map) ZoomToBounds(b geom.BBox) { m.cam.ZoomToBounds(b) }

// ResetView clears the selection and springs back to the whole map.
func (m *Map) ResetView() {
	m.sel.set(nil)
	m.cam.Reset()
}

// Nudge pans by a screen delta, for keyboard control.
func (m *Map) Nudge(dx, dy float64) { m.cam.Nudge(dx, dy) }

// ZoomBy zooms about the viewport center, for keyboard control.
func (m *Map) ZoomBy(factor float64) {
	cx, cy := m.cam.Viewport().Center()
	m.cam.ZoomBy(factor, cx, cy)
}

func (m *Map) CurrentZoom() float64 { return m.cam.Zoom() }

// WatchZoom calls fn with every committed zoom; the returned func stops it.
func (m *Map) WatchZoom(fn func(float64)) func() {
	return m.cam.Subscribe(func(t camera.Transform) { fn(t.Scale) })
}

// Locate inverts the live transform and projection at a screen point.
func (m *Map) Locate(x, y float64) (lon, lat float64, ok bool) {
	proj := m.Projection()
	if proj == nil {
		return 0, 0, false
	}
	t, _ := m.live.Load()
	cx, cy := t.ToContent(m.Viewport(), x, y)
	return proj.Unproject(cx, cy)
}

// Frame snapshots the newest transform and path set.
func (m *Map) Frame() Frame {
	t, _ := m.live.Load()
	f := Frame{
		Mode:      ModeMap,
		Viewport:  m.Viewport(),
		Features:  m.Features(),
		Transform: t,
		Color:     m.ColorFor,
	}
	if ps, ok := m.paths.Load(); ok {
		f.Paths = &ps
	}
	f.Selection, f.HasSelection = m.Selection()
	return f
}

// mapGestures drives the controller from recognized gestures.
type mapGestures struct{ m *Map }

func (g mapGestures) Tap(x, y float64)           { g.m.Tap(x, y) }
func (g mapGestures) DoubleTap(x, y float64)     { g.m.DoubleTap(x, y) }
func (g mapGestures) PanBegin(_, _ float64)      { g.m.cam.BeginGesture() }
func (g mapGestures) Pan(dx, dy float64)         { g.m.cam.PanBy(dx, dy) }
func (g mapGestures) PanEnd(vx, vy float64)      { g.m.cam.EndGesture(vx, vy) }
func (g mapGestures) PinchBegin(_, _ float64)    { g.m.cam.BeginGesture() }
func (g mapGestures) Pinch(s, fx, fy float64)    { g.m.cam.PinchTo(s, fx, fy) }
func (g mapGestures) PinchEnd()                  { g.m.cam.EndGesture(0, 0) }
func (g mapGestures) Wheel(factor, x, y float64) { g.m.cam.ZoomBy(factor, x, y) }
