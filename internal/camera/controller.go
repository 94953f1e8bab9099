package camera

import (
	"math"
	"sync"
	"time"

	"globemap/internal/geom"
	"globemap/internal/metrics"
)

// Controller is the 2D pan/zoom state machine. Gesture updates are O(1)
// and clamped before they are published; programmatic moves animate and
// are deferred while a gesture is active.
type Controller struct {
	mu sync.Mutex

	opts     Options
	viewport Size
	content  Size

	state   State
	cur     Transform
	start   Transform
	anim    animation
	pending func()

	sink      func(Transform)
	listeners map[int]func(Transform)
	nextID    int
}

type animation interface {
	step(dt time.Duration, c *Controller) (Transform, bool)
}

// NewController starts at identity. sink, when non-nil, receives every
// published transform (gesture frames included); use Subscribe for commits.
func NewController(opts Options, viewport Size, sink func(Transform)) *Controller {
	return &Controller{
		opts:      opts,
		viewport:  viewport,
		content:   viewport,
		cur:       Identity(),
		sink:      sink,
		listeners: make(map[int]func(Transform)),
	}
}

// SetViewport resizes both viewport and content. The transform is
// re-clamped and committed.
func (c *Controller) SetViewport(vp Size) {
	c.mu.Lock()
	c.viewport = vp
	c.content = vp
	c.cur = c.clamp(c.cur)
	t := c.cur
	c.mu.Unlock()
	c.publish(t)
	c.commit(t)
}

// SetContentSize overrides the unzoomed content extent used for the pan
// envelope.
func (c *Controller) SetContentSize(s Size) {
	c.mu.Lock()
	c.content = s
	c.cur = c.clamp(c.cur)
	c.mu.Unlock()
}

func (c *Controller) Viewport() Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewport
}

func (c *Controller) Transform() Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *Controller) Zoom() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur.Scale
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Options() Options { return c.opts }

// Subscribe registers fn for committed transforms: gesture end, animation
// settle, programmatic jumps. The returned func unsubscribes.
func (c *Controller) Subscribe(fn func(Transform)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// BeginGesture enters Gesturing. An in-flight animation is dropped where it
// stands.
func (c *Controller) BeginGesture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anim = nil
	c.state = Gesturing
	c.start = c.cur
}

// PanBy translates by a screen delta.
func (c *Controller) PanBy(dx, dy float64) {
	c.mu.Lock()
	if c.state != Gesturing {
		c.mu.Unlock()
		return
	}
	t := c.cur
	t.TranslateX += dx
	t.TranslateY += dy
	c.cur = c.clamp(t)
	t = c.cur
	c.mu.Unlock()
	c.publish(t)
}

// PinchTo sets the scale to start·scale, where scale is cumulative since
// BeginGesture, keeping the content under (fx, fy) fixed on screen.
func (c *Controller) PinchTo(scale, fx, fy float64) {
	c.mu.Lock()
	if c.state != Gesturing || !(scale > 0) {
		c.mu.Unlock()
		return
	}
	c.cur = c.clamp(c.zoomAbout(c.cur, c.opts.clampZoom(c.start.Scale*scale), fx, fy))
	t := c.cur
	c.mu.Unlock()
	c.publish(t)
}

// EndGesture leaves Gesturing and commits. A queued programmatic move runs
// now; otherwise a fast enough release (px/s) coasts with decay.
func (c *Controller) EndGesture(vx, vy float64) {
	c.mu.Lock()
	if c.state != Gesturing {
		c.mu.Unlock()
		return
	}
	c.state = Idle
	t := c.cur
	pending := c.pending
	c.pending = nil
	if pending == nil && math.Hypot(vx, vy) > c.opts.MinFlingSpeed {
		c.anim = &decay{vx: vx, vy: vy}
		c.state = Animating
		metrics.RecordAnimation("decay")
	}
	c.mu.Unlock()

	c.commit(t)
	if pending != nil {
		pending()
	}
}

// ZoomBy multiplies the scale by factor about (fx, fy) immediately.
func (c *Controller) ZoomBy(factor, fx, fy float64) {
	c.program(func() {
		c.jumpLocked(c.zoomAbout(c.cur, c.opts.clampZoom(c.cur.Scale*factor), fx, fy))
	})
}

// Nudge pans by a screen delta immediately.
func (c *Controller) Nudge(dx, dy float64) {
	c.program(func() {
		t := c.cur
		t.TranslateX += dx
		t.TranslateY += dy
		c.jumpLocked(t)
	})
}

// ZoomToBounds frames b (unzoomed content pixels): zoom is
// min(vw/bw, vh/bh)·FramePadding, clamped, centered on b's midpoint.
func (c *Controller) ZoomToBounds(b geom.BBox) {
	c.program(func() {
		c.animateLocked(c.frameLocked(b), "bounds")
	})
}

// ZoomToPoint centers the content point (x, y) at zoom.
func (c *Controller) ZoomToPoint(x, y, zoom float64) {
	c.program(func() {
		s := c.opts.clampZoom(zoom)
		cx, cy := c.viewport.Center()
		c.animateLocked(Transform{Scale: s, TranslateX: -(x - cx) * s, TranslateY: -(y - cy) * s}, "point")
	})
}

// Reset springs back to identity.
func (c *Controller) Reset() {
	c.program(func() {
		c.animateLocked(Identity(), "reset")
	})
}

// FrameFor returns the clamped target transform ZoomToBounds would use.
func (c *Controller) FrameFor(b geom.BBox) Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frameLocked(b)
}

func (c *Controller) frameLocked(b geom.BBox) Transform {
	var s float64
	switch {
	case b.Width() <= 0 && b.Height() <= 0:
		s = c.opts.MaxZoom
	case b.Width() <= 0:
		s = c.viewport.Height / b.Height() * c.opts.FramePadding
	case b.Height() <= 0:
		s = c.viewport.Width / b.Width() * c.opts.FramePadding
	default:
		s = math.Min(c.viewport.Width/b.Width(), c.viewport.Height/b.Height()) * c.opts.FramePadding
	}
	s = c.opts.clampZoom(s)
	mx, my := b.Center()
	cx, cy := c.viewport.Center()
	return c.clamp(Transform{Scale: s, TranslateX: -(mx - cx) * s, TranslateY: -(my - cy) * s})
}

// Step advances the running animation by dt. It reports whether an
// animation is still running.
func (c *Controller) Step(dt time.Duration) bool {
	c.mu.Lock()
	if c.state != Animating || c.anim == nil {
		c.mu.Unlock()
		return false
	}
	t, done := c.anim.step(dt, c)
	c.cur = c.clamp(t)
	t = c.cur
	if done {
		c.anim = nil
		c.state = Idle
	}
	c.mu.Unlock()

	c.publish(t)
	if done {
		c.commit(t)
	}
	return !done
}

// program runs fn under the lock, or queues it (latest wins) while a
// gesture is active.
func (c *Controller) program(fn func()) {
	c.mu.Lock()
	if c.state == Gesturing {
		c.pending = func() { c.program(fn) }
		c.mu.Unlock()
		return
	}
	fn()
	t, settled := c.cur, c.state == Idle
	c.mu.Unlock()

	c.publish(t)
	if settled {
		c.commit(t)
	}
}

// jumpLocked sets the transform without animation; the caller commits.
func (c *Controller) jumpLocked(t Transform) {
	c.anim = nil
	c.state = Idle
	c.cur = c.clamp(t)
}

// animateLocked replaces any running animation with a spring to target.
func (c *Controller) animateLocked(target Transform, kind string) {
	target = c.clamp(target)
	c.anim = &springTo{from: c.cur, to: target, s: newSpring(c.opts.Spring)}
	c.state = Animating
	metrics.RecordAnimation(kind)
}

func (c *Controller) zoomAbout(t Transform, s, fx, fy float64) Transform {
	if t.Scale == 0 {
		return t
	}
	cx, cy := c.viewport.Center()
	ratio := s / t.Scale
	return Transform{
		Scale:      s,
		TranslateX: (fx - cx) - (fx-cx-t.TranslateX)*ratio,
		TranslateY: (fy - cy) - (fy-cy-t.TranslateY)*ratio,
	}
}

// clamp enforces the zoom range and the pan envelope for the clamped zoom.
func (c *Controller) clamp(t Transform) Transform {
	t.Scale = c.opts.clampZoom(t.Scale)
	ex, ey := Envelope(c.viewport, c.content, t.Scale)
	t.TranslateX = clampAbs(t.TranslateX, ex)
	t.TranslateY = clampAbs(t.TranslateY, ey)
	return t
}

func (c *Controller) publish(t Transform) {
	if c.sink != nil {
		c.sink(t)
	}
}

func (c *Controller) commit(t Transform) {
	metrics.CurrentZoom.Set(t.Scale)
	c.mu.Lock()
	fns := make([]func(Transform), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(t)
	}
}

type springTo struct {
	from, to Transform
	s        *spring
}

func (a *springTo) step(dt time.Duration, _ *Controller) (Transform, bool) {
	p, done := a.s.step(dt)
	if done {
		return a.to, true
	}
	return a.from.lerp(a.to, p), false
}

type decay struct {
	vx, vy float64
}

func (a *decay) step(dt time.Duration, c *Controller) (Transform, bool) {
	sec := dt.Seconds()
	t := c.cur
	t.TranslateX += a.vx * sec
	t.TranslateY += a.vy * sec
	clamped := c.clamp(t)
	// velocity into a wall is spent
	if clamped.TranslateX != t.TranslateX {
		a.vx = 0
	}
	if clamped.TranslateY != t.TranslateY {
		a.vy = 0
	}
	f := math.Pow(c.opts.Deceleration, sec)
	a.vx *= f
	a.vy *= f
	return clamped, math.Hypot(a.vx, a.vy) < math.Max(c.opts.MinFlingSpeed/4, 1)
}
