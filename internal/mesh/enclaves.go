package mesh

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"

	"globemap/internal/geom"
)

// Enclave is a country lying wholly inside a host country.
type Enclave struct {
	Child string
	Host  string
}

// KnownEnclaves are the enclaves whose holes survive hole filtering.
var KnownEnclaves = []Enclave{
	{Child: "LSO", Host: "ZAF"},
	{Child: "SMR", Host: "ITA"},
	{Child: "VAT", Host: "ITA"},
}

// TopologyReport describes what cleaning did to one country. Areas are in
// square degrees.
type TopologyReport struct {
	ISO              string  `json:"iso"`
	ExpectedEnclaves int     `json:"expected_enclaves"`
	InitialHoles     int     `json:"initial_holes"`
	FinalHoles       int     `json:"final_holes"`
	InitialArea      float64 `json:"initial_area"`
	FinalArea        float64 `json:"final_area"`
	AreaDeltaPct     float64 `json:"area_delta_pct"`
}

// enclavePoints maps each host code to one interior point per enclave
// present in fc.
func enclavePoints(fc *geom.FeatureCollection, table []Enclave) map[string][]orb.Point {
	out := make(map[string][]orb.Point)
	for _, e := range table {
		child := fc.ByCode(e.Child)
		if child == nil {
			continue
		}
		if p, ok := interiorPoint(child.Geometry); ok {
			host := strings.ToUpper(e.Host)
			out[host] = append(out[host], p)
		}
	}
	return out
}

func expectedEnclaves(table []Enclave, host string) int {
	n := 0
	for _, e := range table {
		if strings.EqualFold(e.Host, host) {
			n++
		}
	}
	return n
}

// interiorPoint is the centroid of the largest polygon, or its first
// vertex when the centroid falls outside a concave outline.
func interiorPoint(mp orb.MultiPolygon) (orb.Point, bool) {
	var best orb.Polygon
	bestArea := 0.0
	for _, p := range mp {
		if len(p) == 0 || len(p[0]) == 0 {
			continue
		}
		if a := planar.Area(p); a > bestArea {
			best, bestArea = p, a
		}
	}
	if best == nil {
		return orb.Point{}, false
	}
	if c, _ := planar.CentroidArea(best); planar.PolygonContains(best, c) {
		return c, true
	}
	return best[0][0], true
}

// cleanPolygon drops holes that hold no enclave, then simplifies. Rings
// that the simplifier would collapse are kept as they were.
func cleanPolygon(poly orb.Polygon, enclaves []orb.Point, opts GlobeOptions) orb.Polygon {
	out := orb.Polygon{poly[0]}
	for _, h := range poly[1:] {
		if keepHole(h, enclaves, opts) {
			out = append(out, h)
		}
	}
	if opts.SimplifyTolerance <= 0 {
		return out
	}
	dp := simplify.DouglasPeucker(opts.SimplifyTolerance)
	for i, r := range out {
		if s := dp.Ring(r.Clone()); len(s) >= 4 {
			out[i] = s
		}
	}
	return out
}

// keepHole keeps a hole that contains an enclave. Without an enclave table
// every hole of at least MinHoleAreaKm2 is kept instead.
func keepHole(h orb.Ring, enclaves []orb.Point, opts GlobeOptions) bool {
	for _, p := range enclaves {
		if planar.RingContains(h, p) {
			return true
		}
	}
	if opts.Enclaves != nil {
		return false
	}
	return geo.Area(h)/1e6 >= opts.MinHoleAreaKm2
}
