package asset

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"globemap/internal/geom"
	"globemap/internal/mesh"
)

const meshJSON = `{
  "FRA": {"name": "France", "verts": [[10,0,0],[0,10,0],[0,0,10]], "faces": [[0,1,2]]},
  "BEL": {"name": "Belgium", "verts": [[1,2,3],[4,5,6],[7,8,9],[1,1,1]], "faces": [[0,1,2],[1,2,3]]}
}`

func TestReadMeshData(t *testing.T) {
	t.Parallel()

	scene, err := ReadMeshData(context.Background(), strings.NewReader(meshJSON))
	require.NoError(t, err)
	require.Len(t, scene.Nodes, 2)
	assert.Equal(t, "BEL", scene.Nodes[0].Name)
	assert.Len(t, scene.Nodes[0].Triangles, 2)
	assert.Equal(t, mgl64.Vec3{10, 0, 0}, scene.Nodes[1].Triangles[0][0])

	ix := mesh.BuildIndex(scene, mesh.DefaultNameTable())
	assert.Equal(t, 2, ix.Countries())
}

func TestReadMeshDataRejectsBadFaces(t *testing.T) {
	t.Parallel()

	_, err := ReadMeshData(context.Background(),
		strings.NewReader(`{"FRA": {"name": "France", "verts": [[0,0,0]], "faces": [[0,1,2]]}}`))
	assert.ErrorContains(t, err, "out of range")

	_, err = ReadMeshData(context.Background(), strings.NewReader(`[`))
	assert.Error(t, err)
}

func TestWriteMeshDataIsReadable(t *testing.T) {
	t.Parallel()

	scene, err := ReadMeshData(context.Background(), strings.NewReader(meshJSON))
	require.NoError(t, err)
	scene.Nodes = append(scene.Nodes, &mesh.Node{Name: "Ocean", Triangles: scene.Nodes[0].Triangles})

	var buf bytes.Buffer
	require.NoError(t, WriteMeshData(&buf, scene, mesh.DefaultNameTable()))

	back, err := ReadMeshData(context.Background(), &buf)
	require.NoError(t, err)
	require.Len(t, back.Nodes, 2)
	assert.Equal(t, scene.Nodes[0].Triangles, back.Nodes[0].Triangles)
}

func TestLoadWithTimeout(t *testing.T) {
	t.Parallel()

	slow := LoaderFunc(func(ctx context.Context) (*mesh.Scene, error) {
		time.Sleep(200 * time.Millisecond)
		return &mesh.Scene{}, nil
	})
	_, err := LoadWithTimeout(context.Background(), slow, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrLoadTimeout)

	polite := LoaderFunc(func(ctx context.Context) (*mesh.Scene, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	_, err = LoadWithTimeout(context.Background(), polite, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrLoadTimeout)

	boom := errors.New("boom")
	_, err = LoadWithTimeout(context.Background(), LoaderFunc(func(context.Context) (*mesh.Scene, error) {
		return nil, boom
	}), time.Second)
	assert.ErrorIs(t, err, boom)

	scene, err := LoadWithTimeout(context.Background(), LoaderFunc(func(context.Context) (*mesh.Scene, error) {
		return nil, nil
	}), 0)
	require.NoError(t, err)
	assert.NotNil(t, scene)
}

func TestGlobeBuilder(t *testing.T) {
	t.Parallel()

	fr := geom.NewFeature("France", orb.MultiPolygon{{{{-5, 43}, {8, 43}, {8, 51}, {-5, 51}, {-5, 43}}}}, nil)
	fr.ISO2, fr.ISO3 = "FR", "FRA"
	b := GlobeBuilder{
		Features: func(context.Context) (*geom.FeatureCollection, error) {
			return &geom.FeatureCollection{Features: []*geom.Feature{fr}}, nil
		},
		Options: mesh.DefaultGlobeOptions(),
	}
	scene, err := b.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, scene.Nodes, 1)
	assert.Equal(t, "GEO-FRA", scene.Nodes[0].Name)
}

func TestForPath(t *testing.T) {
	t.Parallel()

	assert.IsType(t, GLBLoader{}, ForPath("globe.GLB"))
	assert.IsType(t, MeshDataLoader{}, ForPath("country_meshes.json"))
}

func TestSceneFromDocument(t *testing.T) {
	t.Parallel()

	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Attributes: map[string]int{gltf.POSITION: pos},
		}},
	}}
	doc.Nodes = []*gltf.Node{
		{Name: "Countries", Children: []int{1}, Translation: [3]float64{0, 0, 5}, Scale: [3]float64{1, 1, 1}, Rotation: [4]float64{0, 0, 0, 1}},
		{Name: "GEO-FRA.001", Mesh: gltf.Index(0), Extras: map[string]any{"country_code": "FRA", "weight": 3.0}},
	}
	doc.Scenes = []*gltf.Scene{{Nodes: []int{0}}}
	doc.Scene = gltf.Index(0)

	scene, err := SceneFromDocument(context.Background(), doc, false)
	require.NoError(t, err)
	require.Len(t, scene.Nodes, 1)

	n := scene.Nodes[0]
	assert.Equal(t, "GEO-FRA.001", n.Name)
	code, ok := n.Meta(mesh.MetaCountryCode)
	require.True(t, ok)
	assert.Equal(t, "FRA", code)
	assert.NotContains(t, n.Metadata, "weight")
	require.Len(t, n.Triangles, 1)
	assert.InDelta(t, 5, n.Triangles[0][1].Z(), 1e-9)
	assert.InDelta(t, 1, n.Triangles[0][1].X(), 1e-9)
}
