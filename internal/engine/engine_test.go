package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"globemap/internal/asset"
	"globemap/internal/camera"
	"globemap/internal/geodata"
	"globemap/internal/geom"
	"globemap/internal/gesture"
	"globemap/internal/mesh"
)

const world = `{"type": "FeatureCollection", "features": [
  {"type": "Feature", "properties": {"name": "France"},
   "geometry": {"type": "Polygon", "coordinates": [[[-5, 43], [8, 43], [8, 51], [-5, 51], [-5, 43]]]}},
  {"type": "Feature", "properties": {"name": "Spain"},
   "geometry": {"type": "Polygon", "coordinates": [[[-9, 36], [3, 36], [3, 43], [-9, 43], [-9, 36]]]}},
  {"type": "Feature", "properties": {"name": "Brazil"},
   "geometry": {"type": "Polygon", "coordinates": [[[-70, -30], [-40, -30], [-40, 0], [-70, 0], [-70, -30]]]}}
]}`

const parisLon, parisLat = 2.3522, 48.8566

var noFrames = RendererFunc(func(Frame) {})

func newStore() *geodata.Store {
	fs := fstest.MapFS{"low.json": {Data: []byte(world)}}
	return geodata.New(geodata.FSSource{FS: fs, LowPath: "low.json"})
}

func settle(t *testing.T, step func(time.Duration) bool) {
	t.Helper()
	for i := 0; i < 5000; i++ {
		if !step(16 * time.Millisecond) {
			return
		}
	}
	t.Fatal("animation did not settle")
}

func loadedMap(t *testing.T) *Map {
	t.Helper()
	m := NewMap(newStore(), noFrames, DefaultOptions())
	m.SetViewport(800, 400)
	require.NoError(t, m.Load(context.Background()))
	require.NotNil(t, m.Projection())
	return m
}

func TestMapTapSelectsAndOceanClears(t *testing.T) {
	t.Parallel()
	m := loadedMap(t)

	var mu sync.Mutex
	var got []*geom.Feature
	m.OnCountrySelect(func(f *geom.Feature) {
		mu.Lock()
		got = append(got, f)
		mu.Unlock()
	})

	x, y, ok := m.Projection().Project(parisLon, parisLat)
	require.True(t, ok)
	require.True(t, m.Tap(x, y))

	sel, ok := m.Selection()
	require.True(t, ok)
	assert.Equal(t, "FRA", sel.ISO)
	assert.Equal(t, "FR", sel.Feature.ISO2)
	assert.False(t, sel.Transitioning)

	sx, sy, ok := m.Projection().Project(-20, 20)
	require.True(t, ok)
	require.True(t, m.Tap(sx, sy))
	_, ok = m.Selection()
	assert.False(t, ok)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, "France", got[0].Name)
	assert.Nil(t, got[1])
}

func TestMapTapBeforeLoadIsNoop(t *testing.T) {
	t.Parallel()
	m := NewMap(newStore(), noFrames, DefaultOptions())
	m.SetViewport(800, 400)
	assert.False(t, m.Tap(10, 10))

	assert.ErrorIs(t, m.ZoomToCountry("FR"), ErrNotLoaded)
}

func TestMapZoomToCountry(t *testing.T) {
	t.Parallel()
	m := loadedMap(t)

	var zooms []float64
	stop := m.WatchZoom(func(z float64) { zooms = append(zooms, z) })
	defer stop()

	require.NoError(t, m.ZoomToCountry("fr"))
	sel, ok := m.Selection()
	require.True(t, ok)
	assert.True(t, sel.Transitioning)
	assert.Equal(t, camera.Animating, m.Camera().State())

	x, y, _ := m.Projection().Project(-3, 40)
	assert.False(t, m.Tap(x, y), "taps during the flight are ignored")

	settle(t, m.Step)
	sel, _ = m.Selection()
	assert.False(t, sel.Transitioning)
	assert.Equal(t, "FRA", sel.ISO)
	assert.Greater(t, m.CurrentZoom(), 1.0)
	require.NotEmpty(t, zooms)
	assert.InDelta(t, m.CurrentZoom(), zooms[len(zooms)-1], 1e-9)

	assert.ErrorIs(t, m.ZoomToCountry("ZZ"), ErrUnknownCode)

	m.ResetView()
	settle(t, m.Step)
	_, ok = m.Selection()
	assert.False(t, ok)
	assert.Equal(t, camera.Identity(), m.Camera().Transform())
}

func TestMapZoomToBoundsScenario(t *testing.T) {
	t.Parallel()
	m := NewMap(newStore(), noFrames, DefaultOptions())
	m.SetViewport(300, 300)
	m.ZoomToBounds(geom.BBox{MinX: 0, MinY: 0, MaxX: 100, MaxY: 50})
	settle(t, m.Step)
	assert.InDelta(t, 2.1, m.CurrentZoom(), 1e-9)
}

func TestMapGestures(t *testing.T) {
	t.Parallel()
	m := loadedMap(t)

	m.Scroll(400, 200, 1)
	assert.InDelta(t, 1.2, m.CurrentZoom(), 1e-9)

	t0 := time.Now()
	m.Pointer(gesture.Event{Kind: gesture.Down, ID: 1, X: 400, Y: 200, Time: t0})
	m.Pointer(gesture.Event{Kind: gesture.Move, ID: 1, X: 450, Y: 200, Time: t0.Add(50 * time.Millisecond)})
	m.Pointer(gesture.Event{Kind: gesture.Up, ID: 1, X: 450, Y: 200, Time: t0.Add(60 * time.Millisecond)})
	assert.InDelta(t, 50, m.Camera().Transform().TranslateX, 1e-9)

	settle(t, m.Step)
	ex, _ := camera.Envelope(m.Viewport(), m.Viewport(), m.CurrentZoom())
	assert.LessOrEqual(t, math.Abs(m.Camera().Transform().TranslateX), ex+1e-9)
}

func TestMapDeferredTapThroughRecognizer(t *testing.T) {
	t.Parallel()
	m := loadedMap(t)
	x, y, _ := m.Projection().Project(parisLon, parisLat)

	t0 := time.Now().Add(time.Hour)
	m.Pointer(gesture.Event{Kind: gesture.Down, ID: 1, X: x, Y: y, Time: t0})
	m.Pointer(gesture.Event{Kind: gesture.Up, ID: 1, X: x, Y: y, Time: t0.Add(40 * time.Millisecond)})
	_, ok := m.Selection()
	assert.False(t, ok, "single taps wait for the double-tap window")

	m.FlushGestures(t0.Add(time.Second))
	sel, ok := m.Selection()
	require.True(t, ok)
	assert.Equal(t, "FRA", sel.ISO)
}

func TestMapFrame(t *testing.T) {
	t.Parallel()
	m := loadedMap(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.commits.Serve(ctx) }()
	require.Eventually(t, func() bool { return m.Frame().Paths != nil }, time.Second, time.Millisecond)

	f := m.Frame()
	assert.Equal(t, ModeMap, f.Mode)
	assert.Len(t, f.Paths.Paths, 3)
	assert.Equal(t, camera.Size{Width: 800, Height: 400}, f.Viewport)
	assert.Equal(t, DefaultPalette().Default, f.Color("BRA"))
}

func TestColorFor(t *testing.T) {
	t.Parallel()
	m := loadedMap(t)
	p := DefaultPalette()

	m.SetStatuses(map[string]Status{"FR": StatusPlanned, "BRA": StatusNone})
	m.SetVisited([]string{"ES", "BR"})

	assert.Equal(t, p.Status[StatusPlanned], m.ColorFor("FRA"))
	assert.Equal(t, p.Status[StatusPlanned], m.ColorFor("fr"))
	assert.Equal(t, p.Visited, m.ColorFor("ESP"))
	assert.Equal(t, p.Visited, m.ColorFor("BRA"), "none status falls through to visited")
	assert.Equal(t, p.Default, m.ColorFor("DEU"))
	assert.Equal(t, p.Default, m.ColorFor(""))
	assert.Equal(t, StatusPlanned, m.Status("FRA"))

	x, y, _ := m.Projection().Project(parisLon, parisLat)
	m.Tap(x, y)
	assert.Equal(t, p.Selected, m.ColorFor("FR"))
}

type blockingSource struct {
	release chan struct{}
	fc      *geom.FeatureCollection
}

func (b *blockingSource) LoadWithFallback(ctx context.Context, _ geodata.Level) (*geom.FeatureCollection, geodata.Level, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, geodata.Low, ctx.Err()
	}
	if b.fc == nil {
		return nil, geodata.Low, errors.New("no data")
	}
	return b.fc, geodata.Low, nil
}

func (b *blockingSource) FindByCode(context.Context, string, geodata.Level) (*geom.Feature, bool, error) {
	return nil, false, nil
}

func TestLoadRejectsConcurrentLoadAndAllowsRetry(t *testing.T) {
	t.Parallel()
	src := &blockingSource{release: make(chan struct{})}
	m := NewMap(src, noFrames, DefaultOptions())

	errCh := make(chan error, 1)
	go func() { errCh <- m.Load(context.Background()) }()
	require.Eventually(t, func() bool { return m.loading.Load() }, time.Second, time.Millisecond)
	assert.ErrorIs(t, m.Load(context.Background()), ErrBusy)

	close(src.release)
	assert.Error(t, <-errCh)
	assert.Nil(t, m.Features())

	fc, err := newStore().Load(context.Background(), geodata.Low)
	require.NoError(t, err)
	src.fc = fc
	require.NoError(t, m.Load(context.Background()))
	assert.Same(t, fc, m.Features())
}

func loadedGlobe(t *testing.T, loader asset.Loader) *Globe {
	t.Helper()
	g := NewGlobe(newStore(), loader, noFrames, DefaultOptions())
	g.SetViewport(640, 480)
	require.NoError(t, g.Load(context.Background()))
	return g
}

func lookAt(g *Globe, lat, lon float64) {
	g.Orbit().RotateTo(camera.OrbitState{
		RotationX: mgl64.DegToRad(lat),
		RotationY: mgl64.DegToRad(lon),
		Zoom:      1,
	})
}

func TestGlobeTap(t *testing.T) {
	t.Parallel()
	g := loadedGlobe(t, nil)

	lookAt(g, parisLat, parisLon)
	assert.False(t, g.Tap(320, 240), "no meshes yet")

	_ = g.Asset().Serve(context.Background())
	require.NotNil(t, g.Asset().Index())

	require.True(t, g.Tap(320, 240))
	sel, ok := g.Selection()
	require.True(t, ok)
	assert.Equal(t, "FRA", sel.ISO)
	assert.Equal(t, "France", sel.Feature.Name)

	lookAt(g, 0, 180)
	require.True(t, g.Tap(320, 240))
	_, ok = g.Selection()
	assert.False(t, ok, "ocean tap clears the previous selection")
}

func TestGlobeZoomToCountry(t *testing.T) {
	t.Parallel()
	g := loadedGlobe(t, nil)

	require.NoError(t, g.ZoomToCountry("ES"))
	settle(t, g.Step)

	s := g.Orbit().State()
	assert.InDelta(t, 39.5, mgl64.RadToDeg(s.RotationX), 1e-3)
	assert.InDelta(t, -3, mgl64.RadToDeg(s.RotationY), 1e-3)
	assert.InDelta(t, DefaultOptions().Orbit.FocusZoom, g.CurrentZoom(), 1e-9)

	sel, ok := g.Selection()
	require.True(t, ok)
	assert.Equal(t, "ESP", sel.ISO)
	assert.False(t, sel.Transitioning)

	assert.ErrorIs(t, g.ZoomToCountry("ZZ"), ErrUnknownCode)
}

func TestGlobeAssetFailure(t *testing.T) {
	t.Parallel()
	boom := errors.New("corrupt model")
	g := loadedGlobe(t, asset.LoaderFunc(func(context.Context) (*mesh.Scene, error) { return nil, boom }))

	_ = g.Asset().Serve(context.Background())
	f := g.Frame()
	assert.ErrorIs(t, f.AssetErr, boom)
	assert.Nil(t, f.Index)
	assert.False(t, g.Tap(320, 240))
}

func TestGlobeReloadAssetAfterFailure(t *testing.T) {
	t.Parallel()
	store := newStore()
	builder := asset.GlobeBuilder{
		Features: func(ctx context.Context) (*geom.FeatureCollection, error) {
			fc, _, err := store.LoadWithFallback(ctx, geodata.Low)
			return fc, err
		},
		Options: DefaultOptions().Globe,
	}
	var calls atomic.Int32
	loader := asset.LoaderFunc(func(ctx context.Context) (*mesh.Scene, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("mount not ready")
		}
		return builder.Load(ctx)
	})
	g := loadedGlobe(t, loader)
	lookAt(g, parisLat, parisLon)

	_ = g.Asset().Serve(context.Background())
	require.Error(t, g.Frame().AssetErr)
	assert.False(t, g.Tap(320, 240))

	require.NoError(t, g.ReloadAsset(context.Background()))
	f := g.Frame()
	assert.NoError(t, f.AssetErr)
	require.NotNil(t, f.Index)
	first := f.Index

	require.True(t, g.Tap(320, 240))
	sel, ok := g.Selection()
	require.True(t, ok)
	assert.Equal(t, "FRA", sel.ISO)

	require.NoError(t, g.ReloadAsset(context.Background()))
	assert.NotSame(t, first, g.Asset().Index(), "reload publishes a fresh index")
	assert.EqualValues(t, 3, calls.Load())
}

func TestSelectionNotifiesEveryCallback(t *testing.T) {
	t.Parallel()
	m := loadedMap(t)

	var mu sync.Mutex
	var names []string
	for _, tag := range []string{"a", "b"} {
		m.OnCountrySelect(func(f *geom.Feature) {
			mu.Lock()
			defer mu.Unlock()
			names = append(names, tag+":"+f.Name)
		})
	}
	require.NoError(t, m.ZoomToCountry("ES"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a:Spain", "b:Spain"}, names)
}

func TestGlobeLocate(t *testing.T) {
	t.Parallel()
	g := loadedGlobe(t, nil)
	lookAt(g, 20, 30)

	lon, lat, ok := g.Locate(320, 240)
	require.True(t, ok)
	assert.InDelta(t, 30, lon, 1e-6)
	assert.InDelta(t, 20, lat, 1e-6)

	_, _, ok = g.Locate(0, 0)
	assert.False(t, ok)
}
