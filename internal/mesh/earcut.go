package mesh

import (
	"errors"
	"math"
	"sort"

	"github.com/paulmach/orb"
)

var (
	errDegenerate = errors.New("polygon has fewer than three distinct vertices")
	errNoEar      = errors.New("ear clipping stalled")
	errNoBridge   = errors.New("hole cannot be bridged to its exterior")
)

const areaEpsilon = 1e-12

// triangulate ear-clips a polygon given as an exterior ring and holes.
// It returns the vertex list (exterior followed by holes) and CCW index
// triples into it.
func triangulate(outer orb.Ring, holes []orb.Ring) ([]orb.Point, [][3]int, error) {
	ext := cleanRing(outer)
	if len(ext) < 3 {
		return nil, nil, errDegenerate
	}
	if signedArea(ext) < 0 {
		reverse(ext)
	}

	verts := append([]orb.Point(nil), ext...)
	poly := make([]int, len(ext))
	for i := range poly {
		poly[i] = i
	}

	type hole struct {
		idx  []int
		maxX float64
	}
	var hs []hole
	for _, r := range holes {
		h := cleanRing(r)
		if len(h) < 3 {
			continue
		}
		if signedArea(h) > 0 {
			reverse(h)
		}
		ho := hole{maxX: math.Inf(-1)}
		for _, p := range h {
			ho.idx = append(ho.idx, len(verts))
			verts = append(verts, p)
			ho.maxX = math.Max(ho.maxX, p[0])
		}
		hs = append(hs, ho)
	}
	sort.SliceStable(hs, func(i, j int) bool { return hs[i].maxX > hs[j].maxX })

	for _, h := range hs {
		var err error
		poly, err = bridge(verts, poly, h.idx)
		if err != nil {
			return nil, nil, err
		}
	}

	tris, err := earClip(verts, poly)
	if err != nil {
		return nil, nil, err
	}
	return verts, tris, nil
}

// bridge splices hole into poly through a mutually visible vertex pair.
func bridge(verts []orb.Point, poly, hole []int) ([]int, error) {
	m := 0
	for i, vi := range hole {
		if verts[vi][0] > verts[hole[m]][0] {
			m = i
		}
	}
	M := verts[hole[m]]

	// Nearest edge crossed by the ray from M towards +x.
	best := math.Inf(1)
	edge := -1
	var hitX float64
	n := len(poly)
	for i := 0; i < n; i++ {
		a, b := verts[poly[i]], verts[poly[(i+1)%n]]
		if a[1] == b[1] || (a[1] > M[1]) == (b[1] > M[1]) {
			continue
		}
		x := a[0] + (M[1]-a[1])*(b[0]-a[0])/(b[1]-a[1])
		if x < M[0] || x-M[0] >= best {
			continue
		}
		best = x - M[0]
		edge = i
		hitX = x
	}
	if edge < 0 {
		return nil, errNoBridge
	}

	p := edge
	if verts[poly[(edge+1)%n]][0] > verts[poly[edge]][0] {
		p = (edge + 1) % n
	}
	I := orb.Point{hitX, M[1]}
	P := verts[poly[p]]

	// A reflex vertex inside M-I-P may hide P; take the one closest in
	// angle to the ray.
	if P != I {
		bestAngle := math.Inf(1)
		bestDist := math.Inf(1)
		for i, vi := range poly {
			v := verts[vi]
			if i == p || v == M || !inTriangle(v, M, I, P) || !reflex(verts, poly, i) {
				continue
			}
			dx, dy := v[0]-M[0], v[1]-M[1]
			angle := math.Abs(math.Atan2(dy, dx))
			dist := dx*dx + dy*dy
			if angle < bestAngle || (angle == bestAngle && dist < bestDist) {
				bestAngle, bestDist = angle, dist
				p = i
			}
		}
	}

	out := make([]int, 0, len(poly)+len(hole)+2)
	out = append(out, poly[:p+1]...)
	for k := 0; k <= len(hole); k++ {
		out = append(out, hole[(m+k)%len(hole)])
	}
	out = append(out, poly[p])
	out = append(out, poly[p+1:]...)
	return out, nil
}

func earClip(verts []orb.Point, poly []int) ([][3]int, error) {
	idx := append([]int(nil), poly...)
	tris := make([][3]int, 0, len(idx))
	i, misses := 0, 0
	for len(idx) > 3 {
		n := len(idx)
		i %= n
		prev, cur, next := idx[(i+n-1)%n], idx[i], idx[(i+1)%n]
		if isEar(verts, idx, i) {
			tris = append(tris, [3]int{prev, cur, next})
			idx = append(idx[:i], idx[i+1:]...)
			if i > 0 {
				i--
			}
			misses = 0
			continue
		}
		i++
		misses++
		if misses < n {
			continue
		}
		// No ear in a full cycle: drop one collinear or duplicate vertex,
		// else give up.
		dropped := false
		for j := 0; j < n; j++ {
			a, b, c := verts[idx[(j+n-1)%n]], verts[idx[j]], verts[idx[(j+1)%n]]
			if math.Abs(cross(a, b, c)) <= areaEpsilon {
				idx = append(idx[:j], idx[j+1:]...)
				dropped = true
				break
			}
		}
		if !dropped {
			return nil, errNoEar
		}
		misses = 0
	}
	if len(idx) == 3 && cross(verts[idx[0]], verts[idx[1]], verts[idx[2]]) > areaEpsilon {
		tris = append(tris, [3]int{idx[0], idx[1], idx[2]})
	}
	return tris, nil
}

func isEar(verts []orb.Point, idx []int, i int) bool {
	n := len(idx)
	a, b, c := verts[idx[(i+n-1)%n]], verts[idx[i]], verts[idx[(i+1)%n]]
	if cross(a, b, c) <= areaEpsilon {
		return false
	}
	for j := 0; j < n; j++ {
		if j == i || j == (i+n-1)%n || j == (i+1)%n {
			continue
		}
		v := verts[idx[j]]
		if v == a || v == b || v == c {
			continue
		}
		if reflex(verts, idx, j) && inTriangle(v, a, b, c) {
			return false
		}
	}
	return true
}

func reflex(verts []orb.Point, idx []int, i int) bool {
	n := len(idx)
	return cross(verts[idx[(i+n-1)%n]], verts[idx[i]], verts[idx[(i+1)%n]]) <= 0
}

func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// inTriangle includes the boundary.
func inTriangle(p, a, b, c orb.Point) bool {
	d1 := cross(a, b, p)
	d2 := cross(b, c, p)
	d3 := cross(c, a, p)
	neg := d1 < 0 || d2 < 0 || d3 < 0
	pos := d1 > 0 || d2 > 0 || d3 > 0
	return !(neg && pos)
}

func signedArea(r []orb.Point) float64 {
	var s float64
	for i := range r {
		j := (i + 1) % len(r)
		s += r[i][0]*r[j][1] - r[j][0]*r[i][1]
	}
	return s / 2
}

// cleanRing drops the closing point and consecutive duplicates.
func cleanRing(r orb.Ring) []orb.Point {
	out := make([]orb.Point, 0, len(r))
	for _, p := range r {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

func reverse(r []orb.Point) {
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
}
