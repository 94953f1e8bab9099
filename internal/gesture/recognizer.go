// Package gesture turns raw pointer events into taps, double taps, pans
// and pinches. Taps race manipulations: whichever group crosses its
// threshold first owns the touch sequence.
package gesture

import (
	"math"
	"time"

	"globemap/internal/config"
)

type Kind int

const (
	Down Kind = iota
	Move
	Up
	Cancel
)

// Event is one pointer sample.
type Event struct {
	Kind Kind
	ID   int
	X, Y float64
	Time time.Time
}

// Handler receives recognized gestures. Each manipulation opens with
// exactly one PanBegin or PinchBegin and closes with exactly one PanEnd or
// PinchEnd; pan and pinch hand over to each other in between without
// re-opening. Pinch scale is cumulative since the manipulation began.
type Handler interface {
	Tap(x, y float64)
	DoubleTap(x, y float64)
	PanBegin(x, y float64)
	Pan(dx, dy float64)
	PanEnd(vx, vy float64)
	PinchBegin(fx, fy float64)
	Pinch(scale, fx, fy float64)
	PinchEnd()
	Wheel(factor, x, y float64)
}

type Options struct {
	TapSlop           float64
	TapTimeout        time.Duration
	DoubleTapInterval time.Duration
	PanSlop           float64
	// PinchSlop is the relative finger-distance change that starts a pinch.
	PinchSlop float64
	WheelStep float64
}

func DefaultOptions() Options {
	return Options{
		TapSlop:           10,
		TapTimeout:        300 * time.Millisecond,
		DoubleTapInterval: 300 * time.Millisecond,
		PanSlop:           10,
		PinchSlop:         0.05,
		WheelStep:         1.2,
	}
}

func OptionsFromConfig(c config.GestureConfig) Options {
	return Options{
		TapSlop:           c.TapSlop,
		TapTimeout:        c.TapTimeout,
		DoubleTapInterval: c.DoubleTapInterval,
		PanSlop:           c.PanSlop,
		PinchSlop:         c.PinchSlop,
		WheelStep:         c.WheelStep,
	}
}

type phase int

const (
	idle     phase = iota
	possible       // pointers down, no group has won yet
	panning
	pinching
)

type point struct{ x, y float64 }

type pointer struct {
	start point
	cur   point
}

type tap struct {
	at   point
	time time.Time
}

// Recognizer is not safe for concurrent use; feed it from one goroutine.
type Recognizer struct {
	opts Options
	h    Handler

	pointers  map[int]*pointer
	phase     phase
	downAt    time.Time
	maxTouch  int
	pending   *tap
	track     tracker
	lastFocus point
	startDist float64
	baseScale float64
	scale     float64
	began     phase
}

func NewRecognizer(opts Options, h Handler) *Recognizer {
	return &Recognizer{opts: opts, h: h, pointers: make(map[int]*pointer)}
}

// Handle consumes one pointer event.
func (r *Recognizer) Handle(ev Event) {
	switch ev.Kind {
	case Down:
		r.down(ev)
	case Move:
		r.move(ev)
	case Up:
		r.up(ev)
	case Cancel:
		r.cancel()
	}
}

// Flush emits a deferred single tap once the double-tap window has passed.
// Call it periodically, e.g. from the render loop.
func (r *Recognizer) Flush(now time.Time) {
	if r.pending != nil && now.Sub(r.pending.time) >= r.opts.DoubleTapInterval {
		t := r.pending
		r.pending = nil
		r.h.Tap(t.at.x, t.at.y)
	}
}

// Scroll maps wheel notches to a focal zoom step; steps > 0 zooms in.
func (r *Recognizer) Scroll(x, y float64, steps int) {
	if steps == 0 {
		return
	}
	r.h.Wheel(math.Pow(r.opts.WheelStep, float64(steps)), x, y)
}

// Active reports whether any pointer is down.
func (r *Recognizer) Active() bool { return len(r.pointers) > 0 }

func (r *Recognizer) down(ev Event) {
	r.Flush(ev.Time)
	p := point{ev.X, ev.Y}
	r.pointers[ev.ID] = &pointer{start: p, cur: p}
	if len(r.pointers) > r.maxTouch {
		r.maxTouch = len(r.pointers)
	}

	switch r.phase {
	case idle:
		r.phase = possible
		r.downAt = ev.Time
		r.maxTouch = 1
		r.track.reset()
		r.track.add(ev.Time, p)
	case possible:
		r.resetPinchBase()
	case panning:
		if len(r.pointers) >= 2 {
			r.phase = pinching
			r.resetPinchBase()
		}
	case pinching:
		r.resetPinchBase()
	}
}

func (r *Recognizer) move(ev Event) {
	p, ok := r.pointers[ev.ID]
	if !ok {
		return
	}
	p.cur = point{ev.X, ev.Y}

	switch r.phase {
	case possible:
		r.arbitrate(ev.Time)
	case panning:
		f := r.focus()
		r.h.Pan(f.x-r.lastFocus.x, f.y-r.lastFocus.y)
		r.lastFocus = f
		r.track.add(ev.Time, f)
	case pinching:
		r.emitPinch(ev.Time)
	}
}

// arbitrate decides the race while the sequence is still open.
func (r *Recognizer) arbitrate(now time.Time) {
	f := r.focus()
	if len(r.pointers) >= 2 {
		if d := r.spread(); r.startDist > 0 && math.Abs(d/r.startDist-1) > r.opts.PinchSlop {
			r.flushPendingTap()
			r.phase, r.began = pinching, pinching
			r.baseScale, r.scale = 1, 1
			r.h.PinchBegin(f.x, f.y)
			r.emitPinch(now)
			return
		}
	}
	start := r.startFocus()
	if math.Hypot(f.x-start.x, f.y-start.y) > r.opts.PanSlop {
		r.flushPendingTap()
		r.phase, r.began = panning, panning
		r.baseScale, r.scale = 1, 1
		if len(r.pointers) >= 2 {
			r.phase = pinching
		}
		r.h.PanBegin(start.x, start.y)
		r.h.Pan(f.x-start.x, f.y-start.y)
		r.lastFocus = f
		r.track.add(now, f)
	}
}

func (r *Recognizer) emitPinch(now time.Time) {
	f := r.focus()
	if r.startDist > 0 {
		r.scale = r.baseScale * r.spread() / r.startDist
	}
	r.h.Pan(f.x-r.lastFocus.x, f.y-r.lastFocus.y)
	r.h.Pinch(r.scale, f.x, f.y)
	r.lastFocus = f
	r.track.add(now, f)
}

func (r *Recognizer) up(ev Event) {
	p, ok := r.pointers[ev.ID]
	if !ok {
		return
	}
	p.cur = point{ev.X, ev.Y}
	delete(r.pointers, ev.ID)

	switch r.phase {
	case possible:
		if len(r.pointers) > 0 {
			// maxTouch > 1 already rules out a tap
			r.resetPinchBase()
			return
		}
		r.phase = idle
		moved := math.Hypot(p.cur.x-p.start.x, p.cur.y-p.start.y)
		if r.maxTouch == 1 && moved <= r.opts.TapSlop && ev.Time.Sub(r.downAt) <= r.opts.TapTimeout {
			r.registerTap(p.cur, ev.Time)
		}
	case panning:
		if len(r.pointers) == 0 {
			r.end(ev.Time)
			return
		}
		r.lastFocus = r.focus()
	case pinching:
		if len(r.pointers) == 0 {
			r.end(ev.Time)
			return
		}
		r.baseScale = r.scale
		if len(r.pointers) == 1 {
			r.phase = panning
		} else {
			r.resetPinchBase()
		}
		r.lastFocus = r.focus()
	}
}

func (r *Recognizer) registerTap(at point, now time.Time) {
	if t := r.pending; t != nil {
		r.pending = nil
		if now.Sub(t.time) <= r.opts.DoubleTapInterval &&
			math.Hypot(at.x-t.at.x, at.y-t.at.y) <= 2*r.opts.TapSlop {
			r.h.DoubleTap(at.x, at.y)
			return
		}
		r.h.Tap(t.at.x, t.at.y)
	}
	r.pending = &tap{at: at, time: now}
}

func (r *Recognizer) flushPendingTap() {
	if t := r.pending; t != nil {
		r.pending = nil
		r.h.Tap(t.at.x, t.at.y)
	}
}

func (r *Recognizer) end(now time.Time) {
	switch r.began {
	case pinching:
		r.h.PinchEnd()
	default:
		vx, vy := r.track.velocity(now)
		r.h.PanEnd(vx, vy)
	}
	r.phase = idle
	r.began = idle
}

func (r *Recognizer) cancel() {
	switch r.phase {
	case panning, pinching:
		if r.began == pinching {
			r.h.PinchEnd()
		} else {
			r.h.PanEnd(0, 0)
		}
	}
	r.pointers = make(map[int]*pointer)
	r.phase = idle
	r.began = idle
	r.pending = nil
}

func (r *Recognizer) resetPinchBase() {
	r.startDist = r.spread()
	if r.scale > 0 {
		r.baseScale = r.scale
	}
	r.lastFocus = r.focus()
}

// focus is the centroid of active pointers.
func (r *Recognizer) focus() point {
	var f point
	if len(r.pointers) == 0 {
		return f
	}
	for _, p := range r.pointers {
		f.x += p.cur.x
		f.y += p.cur.y
	}
	n := float64(len(r.pointers))
	return point{f.x / n, f.y / n}
}

func (r *Recognizer) startFocus() point {
	var f point
	if len(r.pointers) == 0 {
		return f
	}
	for _, p := range r.pointers {
		f.x += p.start.x
		f.y += p.start.y
	}
	n := float64(len(r.pointers))
	return point{f.x / n, f.y / n}
}

// spread is the mean pointer distance from the centroid.
func (r *Recognizer) spread() float64 {
	if len(r.pointers) < 2 {
		return 0
	}
	f := r.focus()
	var d float64
	for _, p := range r.pointers {
		d += math.Hypot(p.cur.x-f.x, p.cur.y-f.y)
	}
	return d / float64(len(r.pointers))
}
