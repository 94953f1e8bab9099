package geom

import (
	"sort"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
)

type topology struct {
	Type      string                     `json:"type"`
	Transform *topoTransform             `json:"transform"`
	Objects   map[string]json.RawMessage `json:"objects"`
	Arcs      [][][]float64              `json:"arcs"`
}

type topoTransform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

type topoGeometry struct {
	Type       string          `json:"type"`
	ID         any             `json:"id"`
	Properties map[string]any  `json:"properties"`
	Arcs       json.RawMessage `json:"arcs"`
	Geometries []topoGeometry  `json:"geometries"`
}

// DefaultObject is the conventional name of the country layer in
// world-atlas topologies.
const DefaultObject = "countries"

// DecodeTopology converts a TopoJSON document into country features. When
// object is empty DefaultObject is used, falling back to the first object
// in name order. Arcs are shared between neighbours; quantized topologies
// are delta-decoded through the transform.
func DecodeTopology(data []byte, object string) (*FeatureCollection, error) {
	var topo topology
	if err := json.Unmarshal(data, &topo); err != nil {
		return nil, &TopologyError{Reason: "invalid json", Err: err}
	}
	if topo.Type != "Topology" {
		return nil, &TopologyError{Reason: "type is " + quote(topo.Type) + ", want \"Topology\""}
	}
	if len(topo.Objects) == 0 {
		return nil, &TopologyError{Reason: "no objects"}
	}

	name := object
	if name == "" {
		name = DefaultObject
		if _, ok := topo.Objects[name]; !ok {
			names := make([]string, 0, len(topo.Objects))
			for n := range topo.Objects {
				names = append(names, n)
			}
			sort.Strings(names)
			name = names[0]
		}
	}
	raw, ok := topo.Objects[name]
	if !ok {
		return nil, &TopologyError{Object: name, Reason: "object not found"}
	}

	var root topoGeometry
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, &TopologyError{Object: name, Reason: "invalid object", Err: err}
	}

	d := &topoDecoder{arcs: decodeArcs(topo.Arcs, topo.Transform), object: name}
	fc := &FeatureCollection{}
	if err := d.collect(root, fc); err != nil {
		return nil, err
	}
	if len(fc.Features) == 0 {
		return nil, &TopologyError{Object: name, Reason: "no polygon features"}
	}
	return fc, nil
}

// decodeArcs resolves quantized delta encoding into absolute lon/lat.
func decodeArcs(raw [][][]float64, tr *topoTransform) [][]orb.Point {
	arcs := make([][]orb.Point, len(raw))
	for i, arc := range raw {
		pts := make([]orb.Point, 0, len(arc))
		var x, y float64
		for _, p := range arc {
			if len(p) < 2 {
				continue
			}
			if tr == nil {
				pts = append(pts, orb.Point{p[0], p[1]})
				continue
			}
			x += p[0]
			y += p[1]
			pts = append(pts, orb.Point{
				x*tr.Scale[0] + tr.Translate[0],
				y*tr.Scale[1] + tr.Translate[1],
			})
		}
		arcs[i] = pts
	}
	return arcs
}

type topoDecoder struct {
	arcs   [][]orb.Point
	object string
}

func (d *topoDecoder) collect(g topoGeometry, fc *FeatureCollection) error {
	switch g.Type {
	case "GeometryCollection":
		for _, child := range g.Geometries {
			if err := d.collect(child, fc); err != nil {
				return err
			}
		}
		return nil
	case "Polygon":
		var rings [][]int
		if err := json.Unmarshal(g.Arcs, &rings); err != nil {
			return &TopologyError{Object: d.object, Reason: "invalid polygon arcs", Err: err}
		}
		poly, err := d.polygon(rings)
		if err != nil {
			return err
		}
		if len(poly) > 0 {
			fc.Features = append(fc.Features, d.feature(g, orb.MultiPolygon{poly}))
		}
		return nil
	case "MultiPolygon":
		var polys [][][]int
		if err := json.Unmarshal(g.Arcs, &polys); err != nil {
			return &TopologyError{Object: d.object, Reason: "invalid multipolygon arcs", Err: err}
		}
		mp := make(orb.MultiPolygon, 0, len(polys))
		for _, rings := range polys {
			poly, err := d.polygon(rings)
			if err != nil {
				return err
			}
			if len(poly) > 0 {
				mp = append(mp, poly)
			}
		}
		if len(mp) > 0 {
			fc.Features = append(fc.Features, d.feature(g, mp))
		}
		return nil
	default:
		// null geometries, points and lines carry no country area
		return nil
	}
}

func (d *topoDecoder) polygon(rings [][]int) (orb.Polygon, error) {
	poly := make(orb.Polygon, 0, len(rings))
	for i, refs := range rings {
		ring, err := d.ring(refs)
		if err != nil {
			return nil, err
		}
		if len(ring) < 4 {
			if i == 0 {
				// without an exterior the holes mean nothing
				return nil, nil
			}
			continue
		}
		poly = append(poly, ring)
	}
	return poly, nil
}

// ring stitches arcs end to start; each arc after the first drops its
// leading point, which repeats the previous arc's last point.
func (d *topoDecoder) ring(refs []int) (orb.Ring, error) {
	var ring orb.Ring
	for _, ref := range refs {
		idx := ref
		if ref < 0 {
			idx = ^ref
		}
		if idx >= len(d.arcs) {
			return nil, &TopologyError{Object: d.object, Reason: "arc index out of range"}
		}
		arc := d.arcs[idx]
		if len(arc) == 0 {
			continue
		}
		if len(ring) > 0 {
			ring = ring[:len(ring)-1]
		}
		start := len(ring)
		ring = append(ring, arc...)
		if ref < 0 {
			tail := ring[start:]
			for i, j := 0, len(tail)-1; i < j; i, j = i+1, j-1 {
				tail[i], tail[j] = tail[j], tail[i]
			}
		}
	}
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring, nil
}

func (d *topoDecoder) feature(g topoGeometry, mp orb.MultiPolygon) *Feature {
	props := g.Properties
	if props == nil {
		props = map[string]any{}
	}
	if g.ID != nil {
		if _, ok := props["id"]; !ok {
			props["id"] = g.ID
		}
	}
	f := NewFeature(propString(props, nameKeys...), mp, props)
	f.ISO2 = isoProp(props, 2, iso2Keys...)
	f.ISO3 = isoProp(props, 3, iso3Keys...)
	return f
}

func quote(s string) string { return "\"" + s + "\"" }
