package syncer

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"globemap/internal/camera"
	"globemap/internal/geodata"
	"globemap/internal/geom"
	"globemap/internal/logging"
	"globemap/internal/metrics"
	"globemap/internal/projection"
)

// PathSet is one regenerated view: the visible, simplified country paths
// in content space for a committed transform.
type PathSet struct {
	Transform  camera.Transform
	Level      geodata.Level
	Projection *projection.Projection
	Features   *geom.FeatureCollection
	Paths      []projection.Path
}

// FeatureSource serves boundaries per detail level; *geodata.Store
// satisfies it.
type FeatureSource interface {
	LoadWithFallback(ctx context.Context, preferred geodata.Level) (*geom.FeatureCollection, geodata.Level, error)
}

// PathRegenerator rebuilds the path set when the camera commits.
type PathRegenerator struct {
	Source FeatureSource
	// HighZoomThreshold switches to high detail at or above this zoom;
	// zero keeps low detail.
	HighZoomThreshold float64
	// Tolerance is the simplification tolerance in screen pixels.
	Tolerance float64
	// CullMargin widens the kept area by this many viewports on each side,
	// so a pan or zoom-out before the next commit still has paths to show.
	// Zero means one viewport; negative culls to the exact viewport.
	CullMargin float64
	Workers    int
	Out        *Latest[PathSet]

	mu   sync.RWMutex
	proj *projection.Projection
}

// SetProjection swaps the projection used by later regenerations.
func (r *PathRegenerator) SetProjection(p *projection.Projection) {
	r.mu.Lock()
	r.proj = p
	r.mu.Unlock()
}

func (r *PathRegenerator) current() *projection.Projection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.proj
}

// LevelFor picks the detail level for a zoom.
func (r *PathRegenerator) LevelFor(zoom float64) geodata.Level {
	if r.HighZoomThreshold > 0 && zoom >= r.HighZoomThreshold {
		return geodata.High
	}
	return geodata.Low
}

// Regenerate projects, culls and simplifies every feature for tr and
// publishes the result. Without a projection it does nothing.
func (r *PathRegenerator) Regenerate(ctx context.Context, tr camera.Transform) error {
	proj := r.current()
	if proj == nil {
		return nil
	}
	start := time.Now()
	fc, level, err := r.Source.LoadWithFallback(ctx, r.LevelFor(tr.Scale))
	if err != nil {
		return err
	}

	w, h := proj.Viewport()
	vp := camera.Size{Width: w, Height: h}
	minX, minY := tr.ToContent(vp, 0, 0)
	maxX, maxY := tr.ToContent(vp, w, h)
	margin := r.CullMargin
	if margin == 0 {
		margin = 1
	} else if margin < 0 {
		margin = 0
	}
	mx, my := (maxX-minX)*margin, (maxY-minY)*margin
	visible := geom.BBox{MinX: minX - mx, MinY: minY - my, MaxX: maxX + mx, MaxY: maxY + my}

	tol := r.Tolerance
	if tol <= 0 {
		tol = 0.5
	}
	if tr.Scale > 0 {
		tol /= tr.Scale
	}

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	paths := make([]projection.Path, len(fc.Features))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range fc.Features {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := proj.PathFor(f)
			b, ok := p.Bound()
			if !ok || !overlaps(b, visible) {
				return nil
			}
			paths[i] = p.Simplify(tol)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := paths[:0]
	for _, p := range paths {
		if !p.Empty() {
			out = append(out, p)
		}
	}

	r.Out.Store(PathSet{Transform: tr, Level: level, Projection: proj, Features: fc, Paths: out})
	metrics.PathRegenerations.Inc()
	metrics.PathsVisible.Set(float64(len(out)))
	logging.Debug().
		Str("level", level.String()).
		Float64("zoom", tr.Scale).
		Int("paths", len(out)).
		Dur("took", time.Since(start)).
		Msg("paths regenerated")
	return nil
}

func overlaps(a, b geom.BBox) bool {
	return a.MinX <= b.MaxX && a.MaxX >= b.MinX && a.MinY <= b.MaxY && a.MaxY >= b.MinY
}
