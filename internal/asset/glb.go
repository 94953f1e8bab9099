package asset

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"globemap/internal/mesh"
)

var errIndexRange = errors.New("triangle index out of range")

// GLBLoader reads triangle meshes from a glTF/GLB file, applying each
// node's transform chain.
type GLBLoader struct {
	Path string
	// YUp converts glTF's Y-up axes to the globe's Z-up frame.
	YUp bool
}

func (l GLBLoader) Load(ctx context.Context) (*mesh.Scene, error) {
	doc, err := gltf.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.Path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return SceneFromDocument(ctx, doc, l.YUp)
}

// SceneFromDocument flattens the document's default scene (or every root
// when none is set) into world-space nodes.
func SceneFromDocument(ctx context.Context, doc *gltf.Document, yUp bool) (*mesh.Scene, error) {
	root := mgl64.Ident4()
	if yUp {
		// (x, y, z) → (x, -z, y)
		root = mgl64.HomogRotate3DX(mgl64.DegToRad(90))
	}

	var roots []int
	switch {
	case doc.Scene != nil && *doc.Scene < len(doc.Scenes):
		roots = doc.Scenes[*doc.Scene].Nodes
	case len(doc.Scenes) > 0:
		for _, s := range doc.Scenes {
			roots = append(roots, s.Nodes...)
		}
	default:
		roots = rootNodes(doc)
	}

	scene := &mesh.Scene{}
	w := walker{doc: doc, scene: scene, seen: make(map[int]bool)}
	for _, i := range roots {
		if err := w.visit(ctx, i, root, ""); err != nil {
			return nil, err
		}
	}
	return scene, nil
}

type walker struct {
	doc   *gltf.Document
	scene *mesh.Scene
	seen  map[int]bool
}

func (w *walker) visit(ctx context.Context, i int, parent mgl64.Mat4, parentName string) error {
	if i < 0 || i >= len(w.doc.Nodes) || w.seen[i] {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	w.seen[i] = true
	n := w.doc.Nodes[i]
	world := parent.Mul4(localMatrix(n))

	name := n.Name
	if name == "" {
		name = parentName
	}
	if n.Mesh != nil && *n.Mesh < len(w.doc.Meshes) {
		tris, err := w.triangles(w.doc.Meshes[*n.Mesh], world)
		if err != nil {
			return fmt.Errorf("node %q: %w", name, err)
		}
		if len(tris) > 0 {
			w.scene.Nodes = append(w.scene.Nodes, &mesh.Node{
				Name:      name,
				Metadata:  extras(n.Extras),
				Triangles: tris,
			})
		}
	}
	for _, c := range n.Children {
		if err := w.visit(ctx, c, world, name); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) triangles(m *gltf.Mesh, world mgl64.Mat4) ([]mesh.Triangle, error) {
	var out []mesh.Triangle
	for _, p := range m.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			continue
		}
		pi, ok := p.Attributes[gltf.POSITION]
		if !ok || pi >= len(w.doc.Accessors) {
			continue
		}
		pos, err := modeler.ReadPosition(w.doc, w.doc.Accessors[pi], nil)
		if err != nil {
			return nil, fmt.Errorf("read positions: %w", err)
		}
		verts := make([]mgl64.Vec3, len(pos))
		for j, v := range pos {
			verts[j] = world.Mul4x1(mgl64.Vec4{float64(v[0]), float64(v[1]), float64(v[2]), 1}).Vec3()
		}

		var idx []uint32
		if p.Indices != nil && *p.Indices < len(w.doc.Accessors) {
			idx, err = modeler.ReadIndices(w.doc, w.doc.Accessors[*p.Indices], nil)
			if err != nil {
				return nil, fmt.Errorf("read indices: %w", err)
			}
		} else {
			idx = make([]uint32, len(verts))
			for j := range idx {
				idx[j] = uint32(j)
			}
		}
		for j := 0; j+2 < len(idx); j += 3 {
			a, b, c := int(idx[j]), int(idx[j+1]), int(idx[j+2])
			if a >= len(verts) || b >= len(verts) || c >= len(verts) {
				return nil, errIndexRange
			}
			out = append(out, mesh.Triangle{verts[a], verts[b], verts[c]})
		}
	}
	return out, nil
}

func localMatrix(n *gltf.Node) mgl64.Mat4 {
	if m := n.MatrixOrDefault(); m != gltf.DefaultMatrix {
		return mgl64.Mat4(m)
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	q := mgl64.Quat{W: r[3], V: mgl64.Vec3{r[0], r[1], r[2]}}
	return mgl64.Translate3D(t[0], t[1], t[2]).
		Mul4(q.Mat4()).
		Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
}

func rootNodes(doc *gltf.Document) []int {
	child := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			child[c] = true
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !child[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// extras keeps string-valued node extras such as country_code.
func extras(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, x := range m {
		if s, ok := x.(string); ok {
			out[k] = s
		}
	}
	return out
}
