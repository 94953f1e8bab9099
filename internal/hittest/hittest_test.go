package hittest

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"globemap/internal/camera"
	"globemap/internal/geom"
	"globemap/internal/mesh"
	"globemap/internal/projection"
)

func country(name, iso2, iso3 string, mp orb.MultiPolygon) *geom.Feature {
	f := geom.NewFeature(name, mp, nil)
	f.ISO2, f.ISO3 = iso2, iso3
	return f
}

func europe() *geom.FeatureCollection {
	return &geom.FeatureCollection{Features: []*geom.Feature{
		country("Spain", "ES", "ESP", orb.MultiPolygon{{{{-9, 36}, {3, 36}, {3, 43}, {-9, 43}, {-9, 36}}}}),
		country("France", "FR", "FRA", orb.MultiPolygon{{
			{{-5, 43}, {8, 43}, {8, 51}, {-5, 51}, {-5, 43}},
			// Lake around 0°E 45°N.
			{{-1, 44}, {1, 44}, {1, 46}, {-1, 46}, {-1, 44}},
		}}),
	}}
}

const parisLon, parisLat = 2.3522, 48.8566

func TestPlanarHitsParis(t *testing.T) {
	t.Parallel()
	fc := europe()
	proj, err := projection.Fit(800, 400, fc)
	require.NoError(t, err)

	x, y, ok := proj.Project(parisLon, parisLat)
	require.True(t, ok)

	tests := []struct {
		name string
		tr   camera.Transform
	}{
		{"identity", camera.Identity()},
		{"zoomed and panned", camera.Transform{Scale: 3, TranslateX: -120, TranslateY: 40}},
	}
	vp := camera.Size{Width: 800, Height: 400}
	for _, tt := range tests {
		sx, sy := tt.tr.ToScreen(vp, x, y)
		f := Planar{}.HitTest(sx, sy, tt.tr, proj, fc)
		require.NotNil(t, f, tt.name)
		assert.Equal(t, "FR", f.ISO2, tt.name)
		assert.Equal(t, "FRA", f.ISO3, tt.name)
	}
}

func TestPlanarMisses(t *testing.T) {
	t.Parallel()
	fc := europe()
	proj, err := projection.Fit(800, 400, fc)
	require.NoError(t, err)
	tr := camera.Identity()

	lakeX, lakeY, ok := proj.Project(0, 45)
	require.True(t, ok)
	assert.Nil(t, Planar{}.HitTest(lakeX, lakeY, tr, proj, fc), "holes are not land")

	seaX, seaY, ok := proj.Project(5, 40)
	require.True(t, ok)
	assert.Nil(t, Planar{}.HitTest(seaX, seaY, tr, proj, fc))

	assert.Nil(t, Planar{}.HitTest(1e9, 1e9, tr, proj, fc))
	assert.Nil(t, Planar{}.HitTest(0, 0, tr, nil, fc))
}

func TestPlanarIsPure(t *testing.T) {
	t.Parallel()
	fc := europe()
	proj, err := projection.Fit(800, 400, fc)
	require.NoError(t, err)
	x, y, _ := proj.Project(-3, 40)

	first := Planar{}.HitTest(x, y, camera.Identity(), proj, fc)
	for i := 0; i < 5; i++ {
		assert.Same(t, first, Planar{}.HitTest(x, y, camera.Identity(), proj, fc))
	}
	require.NotNil(t, first)
	assert.Equal(t, "ESP", first.ISO3)
}

func globeIndex() *mesh.Index {
	return mesh.BuildIndex(mesh.BuildGlobe(europe(), mesh.DefaultGlobeOptions()), mesh.DefaultNameTable())
}

func cameraOver(lat, lon float64) camera.Camera {
	o := camera.NewOrbit(camera.DefaultOrbitOptions(), nil)
	return o.CameraFor(camera.OrbitState{
		RotationX: mgl64.DegToRad(lat),
		RotationY: mgl64.DegToRad(lon),
		Zoom:      1,
	})
}

func TestSpatialHitsParis(t *testing.T) {
	t.Parallel()
	idx := globeIndex()
	vp := camera.Size{Width: 640, Height: 480}

	iso, ok := Spatial{}.HitTest(320, 240, vp, cameraOver(parisLat, parisLon), idx)
	require.True(t, ok)
	assert.Equal(t, "FRA", iso)

	iso, ok = Spatial{}.HitTest(320, 240, vp, cameraOver(39, -4), idx)
	require.True(t, ok)
	assert.Equal(t, "ESP", iso)
}

func TestSpatialMisses(t *testing.T) {
	t.Parallel()
	idx := globeIndex()
	vp := camera.Size{Width: 640, Height: 480}

	_, ok := Spatial{}.HitTest(320, 240, vp, cameraOver(0, 180), idx)
	assert.False(t, ok, "open ocean")

	_, ok = Spatial{}.HitTest(320, 240, vp, cameraOver(-parisLat, parisLon-180), idx)
	assert.False(t, ok, "France seen through the globe faces away")

	_, ok = Spatial{}.HitTest(0, 0, vp, cameraOver(parisLat, parisLon), idx)
	assert.False(t, ok, "sky")

	_, ok = Spatial{}.HitTest(320, 240, vp, cameraOver(parisLat, parisLon), nil)
	assert.False(t, ok, "asset not loaded")
}

func TestIntersect(t *testing.T) {
	t.Parallel()
	tri := mesh.Triangle{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}

	d, ok := Intersect(mgl64.Vec3{0.2, 0.2, 5}, mgl64.Vec3{0, 0, -1}, tri)
	require.True(t, ok)
	assert.InDelta(t, 5, d, 1e-12)

	_, ok = Intersect(mgl64.Vec3{2, 2, 5}, mgl64.Vec3{0, 0, -1}, tri)
	assert.False(t, ok)

	_, ok = Intersect(mgl64.Vec3{0.2, 0.2, 5}, mgl64.Vec3{0, 0, 1}, tri)
	assert.False(t, ok, "behind the origin")
}
