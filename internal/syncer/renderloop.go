package syncer

import (
	"context"
	"sync/atomic"
	"time"

	"globemap/internal/metrics"
)

// Stepper advances camera animations; it reports whether one is running.
type Stepper interface {
	Step(dt time.Duration) bool
}

type Renderer[F any] interface {
	Render(F)
}

// RenderLoop ticks at a fixed cadence. Each tick steps the camera, and
// when anything moved or Invalidate was called, snapshots a frame and hands
// it to the renderer.
type RenderLoop[F any] struct {
	FPS      int
	Stepper  Stepper
	Snapshot func() F
	Renderer Renderer[F]

	dirty  atomic.Bool
	frames atomic.Uint64
}

// Invalidate forces a frame on the next tick.
func (l *RenderLoop[F]) Invalidate() { l.dirty.Store(true) }

// FramesRendered counts frames handed to the renderer.
func (l *RenderLoop[F]) FramesRendered() uint64 { return l.frames.Load() }

// Tick runs one iteration and reports whether a frame was rendered.
func (l *RenderLoop[F]) Tick(dt time.Duration) bool {
	moving := false
	if l.Stepper != nil {
		moving = l.Stepper.Step(dt)
	}
	dirty := l.dirty.Swap(false)
	if !moving && !dirty {
		return false
	}
	l.Renderer.Render(l.Snapshot())
	l.frames.Add(1)
	metrics.FramesRendered.Inc()
	return true
}

// Serve implements suture.Service.
func (l *RenderLoop[F]) Serve(ctx context.Context) error {
	fps := l.FPS
	if fps <= 0 {
		fps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	l.Invalidate()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			l.Tick(now.Sub(last))
			last = now
		}
	}
}

func (l *RenderLoop[F]) String() string { return "render-loop" }
