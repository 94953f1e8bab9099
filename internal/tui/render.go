package tui

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"

	"globemap/internal/camera"
	"globemap/internal/engine"
	"globemap/internal/mesh"
)

const oceanColor engine.Color = "#1E3A5F"

// renderFrame rasterizes a frame into a w x h cell canvas. The engine
// viewport is expected to be the canvas in micro-pixels.
func renderFrame(f engine.Frame, w, h int) string {
	br := newBrailleBuf(w, h)
	switch f.Mode {
	case engine.ModeGlobe:
		drawGlobe(br, f)
	default:
		drawMap(br, f)
	}
	return strings.Join(br.toLines(), "\n")
}

func colorOf(f engine.Frame, code string) engine.Color {
	if f.Color == nil {
		return ""
	}
	return f.Color(code)
}

func micro(x, y float64) [2]int {
	return [2]int{int(math.Floor(x)), int(math.Floor(y))}
}

// drawMap shades and outlines the latest path set under the live
// transform. Paths are regenerated only on commit, so during a gesture
// they move with the transform rather than being re-projected.
func drawMap(br *brailleBuf, f engine.Frame) {
	if f.Paths == nil {
		return
	}
	for _, p := range f.Paths.Paths {
		col := colorOf(f, p.Key)
		rings := make([][][2]int, 0, len(p.Rings))
		for _, r := range p.Rings {
			pts := make([][2]int, 0, len(r))
			for _, pt := range r {
				pts = append(pts, micro(f.Transform.ToScreen(f.Viewport, pt[0], pt[1])))
			}
			rings = append(rings, pts)
		}
		br.shadeRings(rings, col)
		for _, r := range rings {
			br.drawRing(r, col)
		}
	}
}

// drawGlobe draws the limb, shades front-facing country triangles and
// outlines front-facing boundary segments.
func drawGlobe(br *brailleBuf, f engine.Frame) {
	cam, vp := f.Camera, f.Viewport
	if vp.Width <= 0 || vp.Height <= 0 {
		return
	}
	drawLimb(br, cam, vp)

	if f.Index != nil {
		for _, e := range f.Index.Entries() {
			col := colorOf(f, e.ISO)
			for _, tri := range e.Node.Triangles {
				if !facing(cam.Eye, tri.Centroid()) {
					continue
				}
				var pts [3][2]int
				ok := true
				for i, v := range tri {
					x, y, vis := cam.Project(vp, v)
					if !vis {
						ok = false
						break
					}
					pts[i] = micro(x, y)
				}
				if ok {
					br.shadeTriangle(pts, col)
				}
			}
		}
	}

	if f.Features == nil {
		return
	}
	for _, ft := range f.Features.Features {
		col := colorOf(f, ft.Key())
		for _, poly := range ft.Geometry {
			for _, ring := range poly {
				drawSphereRing(br, cam, vp, ring, col)
			}
		}
	}
}

func drawSphereRing(br *brailleBuf, cam camera.Camera, vp camera.Size, ring orb.Ring, col engine.Color) {
	var prev [2]int
	havePrev := false
	for _, pt := range ring {
		p := mesh.SpherePoint(pt, mesh.DefaultRadius)
		if !facing(cam.Eye, p) {
			havePrev = false
			continue
		}
		x, y, ok := cam.Project(vp, p)
		if !ok {
			havePrev = false
			continue
		}
		cur := micro(x, y)
		if havePrev {
			br.drawLineMicro(prev[0], prev[1], cur[0], cur[1], col)
		}
		prev, havePrev = cur, true
	}
}

// facing reports whether the surface at p, on a sphere centred at the
// origin, faces the eye.
func facing(eye, p mgl64.Vec3) bool {
	return eye.Dot(p) > p.Dot(p)
}

// drawLimb traces the ocean sphere's silhouette: the circle of tangent
// points seen from the eye.
func drawLimb(br *brailleBuf, cam camera.Camera, vp camera.Size) {
	r := mesh.OceanRadius
	d := cam.Eye.Len()
	if d <= r {
		return
	}
	n := cam.Eye.Mul(1 / d)
	u := n.Cross(cam.Up)
	if u.Len() < 1e-9 {
		u = n.Cross(mgl64.Vec3{1, 0, 0})
	}
	u = u.Normalize()
	v := n.Cross(u)
	c := n.Mul(r * r / d)
	rad := r * math.Sqrt(1-(r/d)*(r/d))

	const steps = 180
	var prev [2]int
	for i := 0; i <= steps; i++ {
		a := 2 * math.Pi * float64(i) / steps
		p := c.Add(u.Mul(rad * math.Cos(a))).Add(v.Mul(rad * math.Sin(a)))
		x, y, ok := cam.Project(vp, p)
		if !ok {
			return
		}
		cur := micro(x, y)
		if i > 0 {
			br.drawLineMicro(prev[0], prev[1], cur[0], cur[1], oceanColor)
		}
		prev = cur
	}
}
