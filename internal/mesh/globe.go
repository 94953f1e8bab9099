package mesh

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rs/zerolog"

	"globemap/internal/geom"
	"globemap/internal/logging"
)

const (
	// DefaultRadius lifts country meshes just above the ocean sphere.
	DefaultRadius = 10.05
	// OceanRadius is the radius of the ocean sphere beneath the countries.
	OceanRadius = 10.0
)

// GlobeOptions controls BuildGlobe.
type GlobeOptions struct {
	Radius float64
	// MaxEdge is the longest triangle edge in degrees before it is split.
	// Zero disables subdivision.
	MaxEdge float64
	Prefix  string
	// SimplifyTolerance is the Douglas-Peucker tolerance in degrees applied
	// before triangulation. Zero keeps the rings as they are.
	SimplifyTolerance float64
	// Enclaves decides which holes survive: a host keeps only the holes
	// holding one of its enclaves. With a nil table every hole of at least
	// MinHoleAreaKm2 is kept.
	Enclaves       []Enclave
	MinHoleAreaKm2 float64
	// Codes limits the build to these alpha-2 or alpha-3 codes.
	Codes []string
	// OnReport receives the topology report of every built country.
	OnReport func(TopologyReport)
}

// areaWarnPct is the area loss from cleaning that gets logged.
const areaWarnPct = 5.0

func DefaultGlobeOptions() GlobeOptions {
	return GlobeOptions{
		Radius:            DefaultRadius,
		MaxEdge:           4,
		Prefix:            "GEO-",
		SimplifyTolerance: 0.02,
		Enclaves:          KnownEnclaves,
		MinHoleAreaKm2:    1,
	}
}

func wanted(f *geom.Feature, codes []string) bool {
	if len(codes) == 0 {
		return true
	}
	for _, c := range codes {
		if f.HasCode(c) {
			return true
		}
	}
	return false
}

// BuildGlobe triangulates every coded country onto a sphere. Each country
// becomes one node named Prefix+ISO3 with country_code metadata. Holes are
// filtered and rings simplified first. A polygon whose holes defeat the
// triangulator is retried without holes; one that still fails is skipped.
func BuildGlobe(fc *geom.FeatureCollection, opts GlobeOptions) *Scene {
	log := logging.Component("mesh")
	if opts.Radius <= 0 {
		opts.Radius = DefaultRadius
	}
	if opts.Prefix == "" {
		opts.Prefix = "GEO-"
	}
	scene := &Scene{}
	if fc == nil {
		return scene
	}
	enclaves := enclavePoints(fc, opts.Enclaves)

	skipped := 0
	for _, f := range fc.Features {
		key := f.Key()
		if key == "" || !wanted(f, opts.Codes) {
			continue
		}
		node := &Node{
			Name: opts.Prefix + key,
			Metadata: map[string]any{
				MetaCountryCode: key,
				"name":          f.Name,
			},
		}
		report := TopologyReport{ISO: key, ExpectedEnclaves: expectedEnclaves(opts.Enclaves, key)}
		for _, poly := range f.Geometry {
			if len(poly) == 0 {
				continue
			}
			report.InitialHoles += len(poly) - 1
			report.InitialArea += planar.Area(poly)
			poly = cleanPolygon(poly, enclaves[strings.ToUpper(key)], opts)
			report.FinalHoles += len(poly) - 1
			report.FinalArea += planar.Area(poly)

			verts, tris, err := triangulate(poly[0], poly[1:])
			if err != nil && len(poly) > 1 {
				log.Debug().Err(err).Str("country", key).Msg("retrying triangulation without holes")
				verts, tris, err = triangulate(poly[0], nil)
			}
			if err != nil {
				skipped++
				log.Warn().Err(err).Str("country", key).Msg("polygon skipped")
				continue
			}
			for _, t := range tris {
				node.Triangles = appendSubdivided(node.Triangles,
					verts[t[0]], verts[t[1]], verts[t[2]], opts, 0)
			}
		}
		if report.InitialArea > 0 {
			report.AreaDeltaPct = (report.InitialArea - report.FinalArea) / report.InitialArea * 100
		}
		logTopology(log, report)
		if opts.OnReport != nil {
			opts.OnReport(report)
		}
		if len(node.Triangles) > 0 {
			scene.Nodes = append(scene.Nodes, node)
		}
	}

	log.Info().
		Int("nodes", len(scene.Nodes)).
		Int("triangles", scene.Triangles()).
		Int("skipped", skipped).
		Msg("globe built")
	return scene
}

func logTopology(log zerolog.Logger, r TopologyReport) {
	if r.FinalHoles > r.ExpectedEnclaves {
		log.Warn().Str("country", r.ISO).Int("holes", r.FinalHoles).
			Int("enclaves", r.ExpectedEnclaves).Msg("more holes than known enclaves")
	}
	if r.AreaDeltaPct > areaWarnPct {
		log.Warn().Str("country", r.ISO).Float64("lost_pct", r.AreaDeltaPct).Msg("area lost during cleaning")
	}
}

const maxSubdivision = 6

func appendSubdivided(dst []Triangle, a, b, c orb.Point, opts GlobeOptions, depth int) []Triangle {
	if opts.MaxEdge > 0 && depth < maxSubdivision &&
		math.Max(dist(a, b), math.Max(dist(b, c), dist(c, a))) > opts.MaxEdge {
		ab, bc, ca := mid(a, b), mid(b, c), mid(c, a)
		dst = appendSubdivided(dst, a, ab, ca, opts, depth+1)
		dst = appendSubdivided(dst, ab, b, bc, opts, depth+1)
		dst = appendSubdivided(dst, ca, bc, c, opts, depth+1)
		return appendSubdivided(dst, ab, bc, ca, opts, depth+1)
	}
	return append(dst, Triangle{
		SpherePoint(a, opts.Radius),
		SpherePoint(b, opts.Radius),
		SpherePoint(c, opts.Radius),
	})
}

// SpherePoint places a lon/lat degree point on a sphere, z up.
func SpherePoint(p orb.Point, radius float64) mgl64.Vec3 {
	lon := p[0] * math.Pi / 180
	lat := p[1] * math.Pi / 180
	cl := math.Cos(lat)
	return mgl64.Vec3{radius * cl * math.Cos(lon), radius * cl * math.Sin(lon), radius * math.Sin(lat)}
}

func dist(a, b orb.Point) float64 { return math.Hypot(b[0]-a[0], b[1]-a[1]) }

func mid(a, b orb.Point) orb.Point { return orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2} }
