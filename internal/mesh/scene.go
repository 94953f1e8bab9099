// Package mesh holds the globe's country meshes in world space and the
// immutable index that maps each mesh to a country code.
package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MetaCountryCode is the node metadata key carrying an explicit ISO code.
const MetaCountryCode = "country_code"

// Triangle is three world-space vertices.
type Triangle [3]mgl64.Vec3

// Normal is the unnormalized face normal (b-a)×(c-a).
func (t Triangle) Normal() mgl64.Vec3 {
	return t[1].Sub(t[0]).Cross(t[2].Sub(t[0]))
}

// Centroid is the vertex mean.
func (t Triangle) Centroid() mgl64.Vec3 {
	return t[0].Add(t[1]).Add(t[2]).Mul(1.0 / 3)
}

// Node is one named mesh. Triangles are already in world space.
type Node struct {
	Name      string
	Metadata  map[string]any
	Triangles []Triangle
}

// Meta returns the string metadata value for key.
func (n *Node) Meta(key string) (string, bool) {
	if n.Metadata == nil {
		return "", false
	}
	s, ok := n.Metadata[key].(string)
	return s, ok && s != ""
}

// Bounds is the node's axis-aligned box; ok is false when the node is empty.
func (n *Node) Bounds() (min, max mgl64.Vec3, ok bool) {
	if len(n.Triangles) == 0 {
		return min, max, false
	}
	min = mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	max = mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, t := range n.Triangles {
		for _, v := range t {
			for i := 0; i < 3; i++ {
				min[i] = math.Min(min[i], v[i])
				max[i] = math.Max(max[i], v[i])
			}
		}
	}
	return min, max, true
}

// Scene is a flat list of nodes.
type Scene struct {
	Nodes []*Node
}

// Triangles counts triangles across all nodes.
func (s *Scene) Triangles() int {
	n := 0
	for _, node := range s.Nodes {
		n += len(node.Triangles)
	}
	return n
}
