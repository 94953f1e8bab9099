package hittest

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"globemap/internal/camera"
	"globemap/internal/mesh"
	"globemap/internal/metrics"
)

const rayEpsilon = 1e-9

// Spatial hit-tests the globe's country meshes.
type Spatial struct{}

// HitTest casts a ray through the screen point and returns the code of the
// nearest country mesh it meets from the outside. A nil index (asset not
// loaded yet) is a miss.
func (Spatial) HitTest(screenX, screenY float64, vp camera.Size, cam camera.Camera, idx *mesh.Index) (string, bool) {
	if idx.Len() == 0 {
		return "", false
	}
	start := time.Now()
	iso, ok := spatialHit(screenX, screenY, vp, cam, idx)
	metrics.RecordHitTest("3d", time.Since(start), ok)
	return iso, ok
}

func spatialHit(screenX, screenY float64, vp camera.Size, cam camera.Camera, idx *mesh.Index) (string, bool) {
	origin, dir, ok := cam.Ray(vp, screenX, screenY)
	if !ok {
		return "", false
	}
	invDir := mgl64.Vec3{1 / dir.X(), 1 / dir.Y(), 1 / dir.Z()}

	best := math.Inf(1)
	iso := ""
	for _, e := range idx.Entries() {
		near, hit := slab(origin, invDir, e.Min, e.Max)
		if !hit || near > best {
			continue
		}
		for _, tri := range e.Node.Triangles {
			t, ok := Intersect(origin, dir, tri)
			if !ok || t >= best || !frontFacing(tri, dir) {
				continue
			}
			best, iso = t, e.ISO
		}
	}
	return iso, iso != ""
}

// slab is the ray/AABB slab test; it returns the entry distance.
func slab(origin, invDir, min, max mgl64.Vec3) (float64, bool) {
	tmin, tmax := math.Inf(-1), math.Inf(1)
	for i := 0; i < 3; i++ {
		t1 := (min[i] - origin[i]) * invDir[i]
		t2 := (max[i] - origin[i]) * invDir[i]
		if math.IsNaN(t1) || math.IsNaN(t2) {
			// Ray parallel to and inside this slab's plane.
			continue
		}
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
	}
	if tmax < math.Max(tmin, 0) {
		return 0, false
	}
	return math.Max(tmin, 0), true
}

// Intersect is Möller–Trumbore; it returns the ray parameter of the hit.
// Both windings count.
func Intersect(origin, dir mgl64.Vec3, tri mesh.Triangle) (float64, bool) {
	e1 := tri[1].Sub(tri[0])
	e2 := tri[2].Sub(tri[0])
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < rayEpsilon {
		return 0, false
	}
	inv := 1 / det
	s := origin.Sub(tri[0])
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	if t <= rayEpsilon {
		return 0, false
	}
	return t, true
}

// frontFacing orients the face normal away from the globe centre and
// requires it to oppose the ray.
func frontFacing(tri mesh.Triangle, dir mgl64.Vec3) bool {
	n := tri.Normal()
	if n.Dot(tri.Centroid()) < 0 {
		n = n.Mul(-1)
	}
	return n.Dot(dir) < 0
}
