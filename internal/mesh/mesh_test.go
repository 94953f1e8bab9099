package mesh

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"globemap/internal/geom"
)

func area(verts []orb.Point, tris [][3]int) float64 {
	var s float64
	for _, t := range tris {
		c := cross(verts[t[0]], verts[t[1]], verts[t[2]])
		s += c / 2
	}
	return s
}

func TestTriangulate(t *testing.T) {
	t.Parallel()

	square := orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	hole := orb.Ring{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}}
	lShape := orb.Ring{{0, 0}, {10, 0}, {10, 2}, {2, 2}, {2, 10}, {0, 10}, {0, 0}}

	tests := []struct {
		name  string
		outer orb.Ring
		holes []orb.Ring
		area  float64
		tris  int
	}{
		{name: "square", outer: square, area: 100, tris: 2},
		{name: "clockwise square", outer: orb.Ring{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}}, area: 100, tris: 2},
		{name: "concave", outer: lShape, area: 36, tris: 4},
		{name: "square with hole", outer: square, holes: []orb.Ring{hole}, area: 96, tris: 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			verts, tris, err := triangulate(tt.outer, tt.holes)
			require.NoError(t, err)
			assert.Len(t, tris, tt.tris)
			assert.InDelta(t, tt.area, area(verts, tris), 1e-9)
			for _, tri := range tris {
				assert.Positive(t, cross(verts[tri[0]], verts[tri[1]], verts[tri[2]]), "triangles are CCW")
			}
		})
	}
}

func TestTriangulateDegenerate(t *testing.T) {
	t.Parallel()

	_, _, err := triangulate(orb.Ring{{0, 0}, {1, 1}, {0, 0}}, nil)
	assert.ErrorIs(t, err, errDegenerate)
}

func TestResolveName(t *testing.T) {
	t.Parallel()

	nt := DefaultNameTable()
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"GEO-FRA", "FRA", true},
		{"GEO-FRA.001", "FRA", true},
		{"geo-de", "DEU", true},
		{"GEO-France", "FRA", true},
		{"United_States_of_America", "USA", true},
		{"Ocean", "", false},
		{"GEO-", "", false},
	}
	for _, tt := range tests {
		got, ok := nt.ResolveName(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestResolvePrefersMetadata(t *testing.T) {
	t.Parallel()

	n := &Node{Name: "GEO-FRA", Metadata: map[string]any{MetaCountryCode: "es"}}
	got, ok := DefaultNameTable().Resolve(n)
	require.True(t, ok)
	assert.Equal(t, "ESP", got)

	n.Metadata[MetaCountryCode] = "??"
	got, ok = DefaultNameTable().Resolve(n)
	require.True(t, ok)
	assert.Equal(t, "FRA", got)
}

func TestResolveOverrides(t *testing.T) {
	t.Parallel()

	nt := DefaultNameTable()
	nt.Overrides = map[string]string{"Frankreich": "FR"}
	got, ok := nt.ResolveName("GEO-Frankreich.002")
	require.True(t, ok)
	assert.Equal(t, "FRA", got)
}

func tri(a, b, c mgl64.Vec3) Triangle { return Triangle{a, b, c} }

func TestBuildIndex(t *testing.T) {
	t.Parallel()

	scene := &Scene{Nodes: []*Node{
		{Name: "GEO-FRA", Triangles: []Triangle{tri(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 2, 3})}},
		{Name: "GEO-FRA.001", Triangles: []Triangle{tri(mgl64.Vec3{5, 5, 5}, mgl64.Vec3{6, 5, 5}, mgl64.Vec3{5, 6, 5})}},
		{Name: "Ocean", Triangles: []Triangle{tri(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0})}},
		{Name: "GEO-DEU"},
	}}

	ix := BuildIndex(scene, DefaultNameTable())
	assert.Equal(t, 2, ix.Len())
	assert.Equal(t, 1, ix.Countries())
	assert.Equal(t, []string{"Ocean"}, ix.Unresolved())

	fra := ix.Lookup("FRA")
	require.Len(t, fra, 2)
	assert.Equal(t, mgl64.Vec3{0, 0, 0}, fra[0].Min)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, fra[0].Max)
	assert.Empty(t, ix.Lookup("DEU"))

	var nilIndex *Index
	assert.Zero(t, nilIndex.Len())
	assert.Nil(t, nilIndex.Entries())
}

func TestBuildGlobe(t *testing.T) {
	t.Parallel()

	fr := geom.NewFeature("France", orb.MultiPolygon{{
		{{-5, 42}, {8, 42}, {8, 51}, {-5, 51}, {-5, 42}},
		{{0, 45}, {2, 45}, {2, 47}, {0, 47}, {0, 45}},
	}}, nil)
	fr.ISO2, fr.ISO3 = "FR", "FRA"
	uncoded := geom.NewFeature("Nowhere", orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}}, nil)
	fc := &geom.FeatureCollection{Features: []*geom.Feature{fr, uncoded}}

	scene := BuildGlobe(fc, DefaultGlobeOptions())
	require.Len(t, scene.Nodes, 1)
	node := scene.Nodes[0]
	assert.Equal(t, "GEO-FRA", node.Name)
	code, _ := node.Meta(MetaCountryCode)
	assert.Equal(t, "FRA", code)
	assert.NotEmpty(t, node.Triangles)

	for _, tr := range node.Triangles {
		for _, v := range tr {
			assert.InDelta(t, DefaultRadius, v.Len(), 1e-9)
		}
		n := tr.Normal()
		assert.Positive(t, n.Dot(tr.Centroid()), "faces point away from the centre")
	}

	ix := BuildIndex(scene, DefaultNameTable())
	assert.Len(t, ix.Lookup("FRA"), 1)
}

func TestSpherePoint(t *testing.T) {
	t.Parallel()

	p := SpherePoint(orb.Point{90, 0}, 2)
	assert.InDelta(t, 0, p.X(), 1e-12)
	assert.InDelta(t, 2, p.Y(), 1e-12)
	assert.InDelta(t, 0, p.Z(), 1e-12)

	north := SpherePoint(orb.Point{0, 90}, 1)
	assert.InDelta(t, 1, north.Z(), 1e-12)
	assert.False(t, math.IsNaN(north.X()))
}

func rect(minLon, minLat, maxLon, maxLat float64) orb.Ring {
	return orb.Ring{{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat}}
}

// covers reports whether any triangle of n, taken back to lon/lat, holds p.
func covers(n *Node, p orb.Point) bool {
	for _, tr := range n.Triangles {
		var ring orb.Ring
		for _, v := range tr {
			lon := math.Atan2(v.Y(), v.X()) * 180 / math.Pi
			lat := math.Asin(v.Z()/v.Len()) * 180 / math.Pi
			ring = append(ring, orb.Point{lon, lat})
		}
		ring = append(ring, ring[0])
		if planar.RingContains(ring, p) {
			return true
		}
	}
	return false
}

func southernAfrica() *geom.FeatureCollection {
	zaf := geom.NewFeature("South Africa", orb.MultiPolygon{{
		rect(16, -35, 33, -22),
		rect(27, -30.5, 29.5, -28.5), // Lesotho
		rect(20, -30, 21, -29),       // salt pan
	}}, nil)
	zaf.ISO2, zaf.ISO3 = "ZA", "ZAF"
	lso := geom.NewFeature("Lesotho", orb.MultiPolygon{{rect(27, -30.5, 29.5, -28.5)}}, nil)
	lso.ISO2, lso.ISO3 = "LS", "LSO"
	return &geom.FeatureCollection{Features: []*geom.Feature{zaf, lso}}
}

func nodeFor(t *testing.T, s *Scene, name string) *Node {
	t.Helper()
	for _, n := range s.Nodes {
		if n.Name == name {
			return n
		}
	}
	t.Fatalf("no node %s", name)
	return nil
}

func TestBuildGlobeKeepsOnlyEnclaveHoles(t *testing.T) {
	t.Parallel()

	var reports []TopologyReport
	opts := DefaultGlobeOptions()
	opts.OnReport = func(r TopologyReport) { reports = append(reports, r) }
	scene := BuildGlobe(southernAfrica(), opts)

	zaf := nodeFor(t, scene, "GEO-ZAF")
	assert.False(t, covers(zaf, orb.Point{28.25, -29.5}), "Lesotho stays a hole")
	assert.True(t, covers(zaf, orb.Point{20.5, -29.5}), "salt pan is filled in")
	assert.True(t, covers(zaf, orb.Point{24, -25}))
	assert.True(t, covers(nodeFor(t, scene, "GEO-LSO"), orb.Point{28.25, -29.5}))

	require.Len(t, reports, 2)
	r := reports[0]
	assert.Equal(t, "ZAF", r.ISO)
	assert.Equal(t, 1, r.ExpectedEnclaves)
	assert.Equal(t, 2, r.InitialHoles)
	assert.Equal(t, 1, r.FinalHoles)
	assert.InDelta(t, 17*13-2.5*2-1, r.InitialArea, 1e-9)
	assert.InDelta(t, 17*13-2.5*2, r.FinalArea, 1e-9)
	assert.Negative(t, r.AreaDeltaPct, "filling a hole grows the area")
	assert.Equal(t, 0, reports[1].ExpectedEnclaves)
}

func TestBuildGlobeWithoutEnclaveTableDropsTinyHoles(t *testing.T) {
	t.Parallel()

	fc := southernAfrica()
	fc.Features[0].Geometry[0] = append(fc.Features[0].Geometry[0], rect(24, -25, 24.001, -24.999))
	opts := DefaultGlobeOptions()
	opts.Enclaves = nil
	opts.SimplifyTolerance = 0

	var zafReport TopologyReport
	opts.OnReport = func(r TopologyReport) {
		if r.ISO == "ZAF" {
			zafReport = r
		}
	}
	zaf := nodeFor(t, BuildGlobe(fc, opts), "GEO-ZAF")
	assert.False(t, covers(zaf, orb.Point{28.25, -29.5}))
	assert.False(t, covers(zaf, orb.Point{20.5, -29.5}), "large holes survive")
	assert.Equal(t, 3, zafReport.InitialHoles)
	assert.Equal(t, 2, zafReport.FinalHoles)
}

func TestBuildGlobeFiltersCodes(t *testing.T) {
	t.Parallel()

	opts := DefaultGlobeOptions()
	opts.Codes = []string{"ls"}
	scene := BuildGlobe(southernAfrica(), opts)
	require.Len(t, scene.Nodes, 1)
	assert.Equal(t, "GEO-LSO", scene.Nodes[0].Name)
}

func TestCleanPolygonSimplifies(t *testing.T) {
	t.Parallel()

	jagged := orb.Ring{{0, 0}, {5, 0.001}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	got := cleanPolygon(orb.Polygon{jagged}, nil, GlobeOptions{SimplifyTolerance: 0.02, Enclaves: KnownEnclaves})
	require.Len(t, got, 1)
	assert.Len(t, got[0], 5)
	assert.Len(t, jagged, 6, "input is not modified")

	// a ring the tolerance would collapse is kept as is
	tiny := rect(0, 0, 0.01, 0.01)
	got = cleanPolygon(orb.Polygon{tiny}, nil, GlobeOptions{SimplifyTolerance: 0.02})
	assert.Equal(t, tiny, got[0])
}
