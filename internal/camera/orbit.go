package camera

import (
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"globemap/internal/metrics"
)

// MaxTilt bounds RotationX so the camera never passes over a pole.
const MaxTilt = math.Pi / 2.2

// OrbitState is the 3D view: the camera sits above latitude RotationX and
// longitude RotationY (radians) at Zoom.
type OrbitState struct {
	RotationX float64
	RotationY float64
	Zoom      float64
}

// OrbitOptions extend Options with globe geometry.
type OrbitOptions struct {
	Options
	// Radius of the globe surface.
	Radius float64
	// Distance of the eye from the globe center at zoom 1.
	Distance float64
	FovY     float64 // radians
	// RadiansPerPixel is the drag sensitivity at zoom 1.
	RadiansPerPixel float64
}

func DefaultOrbitOptions() OrbitOptions {
	return OrbitOptions{
		Options:         DefaultOptions(),
		Radius:          10.05,
		Distance:        32,
		FovY:            mgl64.DegToRad(45),
		RadiansPerPixel: 0.005,
	}
}

// Orbit is the globe counterpart of Controller with the same state
// machine and queueing rules.
type Orbit struct {
	mu sync.Mutex

	opts  OrbitOptions
	state State
	cur   OrbitState
	start OrbitState

	anim    orbitAnimation
	pending func()

	sink      func(OrbitState)
	listeners map[int]func(OrbitState)
	nextID    int
}

type orbitAnimation interface {
	step(dt time.Duration, o *Orbit) (OrbitState, bool)
}

func NewOrbit(opts OrbitOptions, sink func(OrbitState)) *Orbit {
	return &Orbit{
		opts:      opts,
		cur:       OrbitState{Zoom: 1},
		sink:      sink,
		listeners: make(map[int]func(OrbitState)),
	}
}

func (o *Orbit) State() OrbitState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cur
}

func (o *Orbit) Mode() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orbit) Zoom() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cur.Zoom
}

func (o *Orbit) Options() OrbitOptions { return o.opts }

func (o *Orbit) Subscribe(fn func(OrbitState)) func() {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	o.mu.Unlock()
	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

func (o *Orbit) BeginGesture() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.anim = nil
	o.state = Gesturing
	o.start = o.cur
}

// RotateBy turns the globe under a screen drag of (dx, dy) pixels.
func (o *Orbit) RotateBy(dx, dy float64) {
	o.mu.Lock()
	if o.state != Gesturing {
		o.mu.Unlock()
		return
	}
	s := o.cur
	k := o.opts.RadiansPerPixel / s.Zoom
	s.RotationY -= dx * k
	s.RotationX += dy * k
	o.cur = o.clamp(s)
	s = o.cur
	o.mu.Unlock()
	o.publish(s)
}

// PinchTo sets zoom to start·scale, scale cumulative since BeginGesture.
func (o *Orbit) PinchTo(scale float64) {
	o.mu.Lock()
	if o.state != Gesturing || !(scale > 0) {
		o.mu.Unlock()
		return
	}
	s := o.cur
	s.Zoom = o.start.Zoom * scale
	o.cur = o.clamp(s)
	s = o.cur
	o.mu.Unlock()
	o.publish(s)
}

// EndGesture commits; a fast release (px/s) keeps spinning with decay.
func (o *Orbit) EndGesture(vx, vy float64) {
	o.mu.Lock()
	if o.state != Gesturing {
		o.mu.Unlock()
		return
	}
	o.state = Idle
	s := o.cur
	pending := o.pending
	o.pending = nil
	if pending == nil && math.Hypot(vx, vy) > o.opts.MinFlingSpeed {
		k := o.opts.RadiansPerPixel / s.Zoom
		o.anim = &spin{wy: -vx * k, wx: vy * k}
		o.state = Animating
		metrics.RecordAnimation("decay")
	}
	o.mu.Unlock()

	o.commit(s)
	if pending != nil {
		pending()
	}
}

// ZoomBy multiplies zoom immediately.
func (o *Orbit) ZoomBy(factor float64) {
	o.program(func() {
		s := o.cur
		s.Zoom *= factor
		o.jumpLocked(s)
	})
}

// RotateTo jumps without animation.
func (o *Orbit) RotateTo(s OrbitState) {
	o.program(func() { o.jumpLocked(s) })
}

// FocusOn springs the camera over (lat, lon) degrees at the focus zoom.
func (o *Orbit) FocusOn(lat, lon float64) {
	o.program(func() {
		target := OrbitState{
			RotationX: mgl64.DegToRad(lat),
			RotationY: nearestAngle(o.cur.RotationY, mgl64.DegToRad(lon)),
			Zoom:      o.opts.FocusZoom,
		}
		o.animateLocked(target, "focus")
	})
}

// Reset springs back to the initial view.
func (o *Orbit) Reset() {
	o.program(func() {
		o.animateLocked(OrbitState{RotationY: nearestAngle(o.cur.RotationY, 0), Zoom: 1}, "reset")
	})
}

func (o *Orbit) Step(dt time.Duration) bool {
	o.mu.Lock()
	if o.state != Animating || o.anim == nil {
		o.mu.Unlock()
		return false
	}
	s, done := o.anim.step(dt, o)
	o.cur = o.clamp(s)
	s = o.cur
	if done {
		o.anim = nil
		o.state = Idle
		o.cur.RotationY = normalizeAngle(o.cur.RotationY)
		s = o.cur
	}
	o.mu.Unlock()

	o.publish(s)
	if done {
		o.commit(s)
	}
	return !done
}

// Camera derives the perspective camera for the current state.
func (o *Orbit) Camera() Camera {
	o.mu.Lock()
	s := o.cur
	o.mu.Unlock()
	return o.CameraFor(s)
}

// CameraFor derives the camera for s. The eye distance shrinks towards
// the surface as zoom grows but never reaches it.
func (o *Orbit) CameraFor(s OrbitState) Camera {
	d := o.opts.Radius + (o.opts.Distance-o.opts.Radius)/s.Zoom
	dir := Direction(s.RotationX, s.RotationY)
	return Camera{
		Eye:    dir.Mul(d),
		Target: mgl64.Vec3{0, 0, 0},
		Up:     mgl64.Vec3{0, 0, 1},
		FovY:   o.opts.FovY,
		Near:   math.Max(0.01, d-o.opts.Radius*1.5),
		Far:    d + o.opts.Radius*1.5,
	}
}

func (o *Orbit) program(fn func()) {
	o.mu.Lock()
	if o.state == Gesturing {
		o.pending = func() { o.program(fn) }
		o.mu.Unlock()
		return
	}
	fn()
	s, settled := o.cur, o.state == Idle
	o.mu.Unlock()

	o.publish(s)
	if settled {
		o.commit(s)
	}
}

func (o *Orbit) jumpLocked(s OrbitState) {
	o.anim = nil
	o.state = Idle
	o.cur = o.clamp(s)
}

func (o *Orbit) animateLocked(target OrbitState, kind string) {
	o.anim = &orbitSpring{from: o.cur, to: o.clamp(target), s: newSpring(o.opts.Spring)}
	o.state = Animating
	metrics.RecordAnimation(kind)
}

func (o *Orbit) clamp(s OrbitState) OrbitState {
	s.Zoom = o.opts.clampZoom(s.Zoom)
	s.RotationX = mgl64.Clamp(s.RotationX, -MaxTilt, MaxTilt)
	return s
}

func (o *Orbit) publish(s OrbitState) {
	if o.sink != nil {
		o.sink(s)
	}
}

func (o *Orbit) commit(s OrbitState) {
	metrics.CurrentZoom.Set(s.Zoom)
	o.mu.Lock()
	fns := make([]func(OrbitState), 0, len(o.listeners))
	for _, fn := range o.listeners {
		fns = append(fns, fn)
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

type orbitSpring struct {
	from, to OrbitState
	s        *spring
}

func (a *orbitSpring) step(dt time.Duration, _ *Orbit) (OrbitState, bool) {
	p, done := a.s.step(dt)
	if done {
		return a.to, true
	}
	return OrbitState{
		RotationX: lerp(a.from.RotationX, a.to.RotationX, p),
		RotationY: lerp(a.from.RotationY, a.to.RotationY, p),
		Zoom:      lerp(a.from.Zoom, a.to.Zoom, p),
	}, false
}

// spin coasts angular velocity (rad/s) with the same decay as 2D flings.
type spin struct {
	wx, wy float64
}

func (a *spin) step(dt time.Duration, o *Orbit) (OrbitState, bool) {
	sec := dt.Seconds()
	s := o.cur
	s.RotationX += a.wx * sec
	s.RotationY += a.wy * sec
	if math.Abs(s.RotationX) >= MaxTilt {
		a.wx = 0
	}
	f := math.Pow(o.opts.Deceleration, sec)
	a.wx *= f
	a.wy *= f
	stop := o.opts.RadiansPerPixel * math.Max(o.opts.MinFlingSpeed/4, 1)
	return s, math.Hypot(a.wx, a.wy) < stop
}

// nearestAngle returns target shifted by whole turns to lie within π of
// from, so springs take the short way round.
func nearestAngle(from, target float64) float64 {
	d := math.Remainder(target-from, 2*math.Pi)
	return from + d
}

// normalizeAngle folds a into (-π, π].
func normalizeAngle(a float64) float64 {
	a = math.Remainder(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
