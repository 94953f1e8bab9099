package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/suture/v4"

	"globemap/internal/asset"
	"globemap/internal/camera"
	"globemap/internal/geodata"
	"globemap/internal/geom"
	"globemap/internal/mesh"
	"globemap/internal/projection"
)

func TestLatest(t *testing.T) {
	t.Parallel()

	var l Latest[int]
	_, ok := l.Load()
	assert.False(t, ok)

	l.Store(1)
	l.Store(2)
	v, ok := l.Load()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	l.Clear()
	_, ok = l.Load()
	assert.False(t, ok)
}

func TestCommitterCoalesces(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var mu sync.Mutex
	var seen []int
	c := NewCommitter("test", func(ctx context.Context, v int) error {
		mu.Lock()
		seen = append(seen, v)
		first := len(seen) == 1
		mu.Unlock()
		if first {
			<-release
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Serve(ctx) }()

	c.Commit(1)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, time.Second, time.Millisecond)

	for v := 2; v <= 10; v++ {
		c.Commit(v)
	}
	close(release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1] == 10
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 10}, seen, "intermediate commits are dropped")
}

func TestCommitterSurvivesWorkErrors(t *testing.T) {
	t.Parallel()

	c := NewCommitter("failing", func(context.Context, int) error { return errors.New("nope") })
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Serve(ctx) }()

	c.Commit(1)
	require.Eventually(t, func() bool { return c.Processed() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

type stepper struct{ moving int }

func (s *stepper) Step(time.Duration) bool {
	if s.moving > 0 {
		s.moving--
		return true
	}
	return false
}

type frameRecorder struct {
	mu     sync.Mutex
	frames []int
}

func (r *frameRecorder) Render(f int) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
}

func (r *frameRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func TestRenderLoopTick(t *testing.T) {
	t.Parallel()

	st := &stepper{moving: 2}
	rec := &frameRecorder{}
	n := 0
	loop := &RenderLoop[int]{
		Stepper:  st,
		Snapshot: func() int { n++; return n },
		Renderer: rec,
	}

	assert.True(t, loop.Tick(time.Millisecond))
	assert.True(t, loop.Tick(time.Millisecond))
	assert.False(t, loop.Tick(time.Millisecond), "idle and clean")

	loop.Invalidate()
	assert.True(t, loop.Tick(time.Millisecond))
	assert.False(t, loop.Tick(time.Millisecond))

	assert.Equal(t, []int{1, 2, 3}, rec.frames)
	assert.Equal(t, uint64(3), loop.FramesRendered())
}

func TestSupervisedRenderLoop(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	loop := &RenderLoop[int]{
		FPS:      200,
		Stepper:  &stepper{moving: 1000},
		Snapshot: func() int { return 0 },
		Renderer: rec,
	}
	sup := NewSupervisor("test")
	sup.Add(loop)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)
	require.Eventually(t, func() bool { return rec.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-errCh
}

func TestAssetSlotPublishes(t *testing.T) {
	t.Parallel()

	scene := &mesh.Scene{Nodes: []*mesh.Node{{
		Name:      "GEO-FRA",
		Triangles: []mesh.Triangle{{{10, 0, 0}, {0, 10, 0}, {0, 0, 10}}},
	}}}
	slot := NewAssetSlot(asset.LoaderFunc(func(context.Context) (*mesh.Scene, error) { return scene, nil }), time.Second)
	var got *mesh.Index
	slot.OnReady = func(ix *mesh.Index) { got = ix }

	assert.Nil(t, slot.Index())
	assert.Equal(t, SlotLoading, slot.State())

	err := slot.Serve(context.Background())
	assert.ErrorIs(t, err, suture.ErrDoNotRestart)
	<-slot.Done()
	assert.Equal(t, SlotReady, slot.State())
	require.NotNil(t, slot.Index())
	assert.Same(t, slot.Index(), got)
	assert.Len(t, slot.Index().Lookup("FRA"), 1)

	assert.ErrorIs(t, slot.Serve(context.Background()), suture.ErrDoNotRestart, "first load runs once")
}

func TestAssetSlotRecordsFailure(t *testing.T) {
	t.Parallel()

	slot := NewAssetSlot(asset.LoaderFunc(func(ctx context.Context) (*mesh.Scene, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), 5*time.Millisecond)

	assert.ErrorIs(t, slot.Serve(context.Background()), suture.ErrDoNotRestart)
	assert.Equal(t, SlotFailed, slot.State())
	assert.ErrorIs(t, slot.Err(), asset.ErrLoadTimeout)
	assert.Nil(t, slot.Index())
}

func TestAssetSlotReloadReplacesIndex(t *testing.T) {
	t.Parallel()

	scene := &mesh.Scene{Nodes: []*mesh.Node{{
		Name:      "GEO-FRA",
		Triangles: []mesh.Triangle{{{10, 0, 0}, {0, 10, 0}, {0, 0, 10}}},
	}}}
	var calls atomic.Int32
	slot := NewAssetSlot(asset.LoaderFunc(func(context.Context) (*mesh.Scene, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("disk hiccup")
		}
		return scene, nil
	}), time.Second)
	var settled []SlotState
	slot.OnSettle = func(st SlotState) { settled = append(settled, st) }

	assert.ErrorIs(t, slot.Serve(context.Background()), suture.ErrDoNotRestart)
	assert.Equal(t, SlotFailed, slot.State())
	failedDone := slot.Done()
	<-failedDone

	require.NoError(t, slot.Reload(context.Background()))
	<-slot.Done()
	assert.NotEqual(t, failedDone, slot.Done())
	assert.Equal(t, SlotReady, slot.State())
	assert.NoError(t, slot.Err())
	first := slot.Index()
	require.NotNil(t, first)

	require.NoError(t, slot.Reload(context.Background()))
	require.NotNil(t, slot.Index())
	assert.NotSame(t, first, slot.Index())
	assert.Len(t, slot.Index().Lookup("FRA"), 1)
	assert.Equal(t, []SlotState{SlotFailed, SlotReady, SlotReady}, settled)
	assert.ErrorIs(t, slot.Serve(context.Background()), suture.ErrDoNotRestart)
	assert.EqualValues(t, 3, calls.Load())
}

func TestAssetSlotReloadFailureClearsIndex(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	boom := errors.New("asset removed")
	slot := NewAssetSlot(asset.LoaderFunc(func(context.Context) (*mesh.Scene, error) {
		if calls.Add(1) > 1 {
			return nil, boom
		}
		return &mesh.Scene{}, nil
	}), time.Second)

	_ = slot.Serve(context.Background())
	require.NotNil(t, slot.Index())

	assert.ErrorIs(t, slot.Reload(context.Background()), boom)
	assert.Nil(t, slot.Index(), "stale index is not kept")
	assert.Equal(t, SlotFailed, slot.State())
	assert.ErrorIs(t, slot.Err(), boom)
}

type levelSource struct {
	mu    sync.Mutex
	asked []geodata.Level
	fc    *geom.FeatureCollection
}

func (s *levelSource) LoadWithFallback(_ context.Context, l geodata.Level) (*geom.FeatureCollection, geodata.Level, error) {
	s.mu.Lock()
	s.asked = append(s.asked, l)
	s.mu.Unlock()
	return s.fc, l, nil
}

func box(name, iso3 string, minLon, minLat, maxLon, maxLat float64) *geom.Feature {
	f := geom.NewFeature(name, orb.MultiPolygon{{{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}}}, nil)
	f.ISO3 = iso3
	return f
}

func TestPathRegenerator(t *testing.T) {
	t.Parallel()

	fc := &geom.FeatureCollection{Features: []*geom.Feature{
		box("West", "WWW", -170, -60, -100, 60),
		box("East", "EEE", 100, -60, 170, 60),
	}}
	proj, err := projection.Fit(400, 200, fc)
	require.NoError(t, err)

	src := &levelSource{fc: fc}
	out := &Latest[PathSet]{}
	r := &PathRegenerator{Source: src, HighZoomThreshold: 4, Out: out}

	require.NoError(t, r.Regenerate(context.Background(), camera.Identity()))
	_, ok := out.Load()
	assert.False(t, ok, "no projection yet")

	r.SetProjection(proj)
	require.NoError(t, r.Regenerate(context.Background(), camera.Identity()))
	ps, ok := out.Load()
	require.True(t, ok)
	assert.Equal(t, geodata.Low, ps.Level)
	assert.Len(t, ps.Paths, 2)

	// Zoomed onto the west box, the east one is culled.
	west, ok := proj.BoundsOf(fc.Features[0])
	require.True(t, ok)
	cx, cy := west.Center()
	vp := camera.Size{Width: 400, Height: 200}
	vcx, vcy := vp.Center()
	tr := camera.Transform{Scale: 5, TranslateX: (vcx - cx) * 5, TranslateY: (vcy - cy) * 5}
	require.NoError(t, r.Regenerate(context.Background(), tr))
	ps, _ = out.Load()
	assert.Equal(t, geodata.High, ps.Level)
	require.Len(t, ps.Paths, 1)
	assert.Equal(t, "WWW", ps.Paths[0].Key)
	assert.Equal(t, []geodata.Level{geodata.Low, geodata.High}, src.asked)

	// Just off screen to the left of the east box: it lies in the margin.
	east, ok := proj.BoundsOf(fc.Features[1])
	require.True(t, ok)
	_, ecy := east.Center()
	ox := east.MinX - 60
	tr = camera.Transform{Scale: 5, TranslateX: (vcx - ox) * 5, TranslateY: (vcy - ecy) * 5}
	require.NoError(t, r.Regenerate(context.Background(), tr))
	ps, _ = out.Load()
	require.Len(t, ps.Paths, 1)
	assert.Equal(t, "EEE", ps.Paths[0].Key)

	r.CullMargin = -1
	require.NoError(t, r.Regenerate(context.Background(), tr))
	ps, _ = out.Load()
	assert.Empty(t, ps.Paths, "exact culling drops the off-screen box")
}
