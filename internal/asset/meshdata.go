package asset

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/goccy/go-json"

	"globemap/internal/mesh"
)

// CountryMesh is one entry of the JSON mesh format keyed by ISO3:
// {"FRA": {"name": "France", "verts": [[x,y,z],...], "faces": [[a,b,c],...]}}.
type CountryMesh struct {
	Name  string       `json:"name"`
	Verts [][3]float64 `json:"verts"`
	Faces [][3]int     `json:"faces"`
}

// MeshDataLoader reads pre-triangulated country meshes from JSON.
type MeshDataLoader struct {
	Path string
}

func (l MeshDataLoader) Load(ctx context.Context) (*mesh.Scene, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadMeshData(ctx, f)
}

// ReadMeshData decodes the JSON mesh format. Nodes are named by their key
// and carry it as country_code metadata, in sorted key order.
func ReadMeshData(ctx context.Context, r io.Reader) (*mesh.Scene, error) {
	var data map[string]CountryMesh
	if err := json.NewDecoder(r).DecodeContext(ctx, &data); err != nil {
		return nil, fmt.Errorf("decode mesh data: %w", err)
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	scene := &mesh.Scene{Nodes: make([]*mesh.Node, 0, len(keys))}
	for _, iso := range keys {
		cm := data[iso]
		node := &mesh.Node{
			Name:     iso,
			Metadata: map[string]any{mesh.MetaCountryCode: iso, "name": cm.Name},
		}
		for i, face := range cm.Faces {
			var tri mesh.Triangle
			for j, vi := range face {
				if vi < 0 || vi >= len(cm.Verts) {
					return nil, fmt.Errorf("%s face %d: vertex %d out of range", iso, i, vi)
				}
				tri[j] = mgl64.Vec3(cm.Verts[vi])
			}
			node.Triangles = append(node.Triangles, tri)
		}
		scene.Nodes = append(scene.Nodes, node)
	}
	return scene, nil
}

// WriteMeshData encodes scene in the JSON mesh format. Nodes without a
// resolvable code are skipped; vertices are not shared between faces.
func WriteMeshData(w io.Writer, scene *mesh.Scene, names mesh.NameTable) error {
	out := make(map[string]*CountryMesh)
	for _, n := range scene.Nodes {
		iso, ok := names.Resolve(n)
		if !ok {
			continue
		}
		cm, ok := out[iso]
		if !ok {
			name, _ := n.Meta("name")
			cm = &CountryMesh{Name: name}
			out[iso] = cm
		}
		for _, t := range n.Triangles {
			base := len(cm.Verts)
			for _, v := range t {
				cm.Verts = append(cm.Verts, [3]float64(v))
			}
			cm.Faces = append(cm.Faces, [3]int{base, base + 1, base + 2})
		}
	}
	return json.NewEncoder(w).Encode(out)
}
