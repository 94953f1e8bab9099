package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is a perspective look-at camera in globe space (z up).
type Camera struct {
	Eye    mgl64.Vec3
	Target mgl64.Vec3
	Up     mgl64.Vec3
	FovY   float64
	Near   float64
	Far    float64
}

func (c Camera) View() mgl64.Mat4 {
	return mgl64.LookAtV(c.Eye, c.Target, c.Up)
}

func (c Camera) Projection(aspect float64) mgl64.Mat4 {
	return mgl64.Perspective(c.FovY, aspect, c.Near, c.Far)
}

// ViewProjection is Projection·View for a viewport.
func (c Camera) ViewProjection(vp Size) mgl64.Mat4 {
	aspect := 1.0
	if vp.Height > 0 {
		aspect = vp.Width / vp.Height
	}
	return c.Projection(aspect).Mul4(c.View())
}

// Ray returns the world-space ray through screen (x, y).
func (c Camera) Ray(vp Size, x, y float64) (origin, dir mgl64.Vec3, ok bool) {
	if vp.Width <= 0 || vp.Height <= 0 {
		return origin, dir, false
	}
	ndcX := 2*x/vp.Width - 1
	ndcY := 1 - 2*y/vp.Height
	inv := c.ViewProjection(vp).Inv()
	near := inv.Mul4x1(mgl64.Vec4{ndcX, ndcY, -1, 1})
	far := inv.Mul4x1(mgl64.Vec4{ndcX, ndcY, 1, 1})
	if near.W() == 0 || far.W() == 0 {
		return origin, dir, false
	}
	n := near.Vec3().Mul(1 / near.W())
	f := far.Vec3().Mul(1 / far.W())
	d := f.Sub(n)
	if d.Len() == 0 {
		return origin, dir, false
	}
	return n, d.Normalize(), true
}

// Project maps a world point to screen pixels; ok is false behind the eye.
func (c Camera) Project(vp Size, p mgl64.Vec3) (float64, float64, bool) {
	clip := c.ViewProjection(vp).Mul4x1(p.Vec4(1))
	if clip.W() <= 0 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	return (ndc.X() + 1) / 2 * vp.Width, (1 - ndc.Y()) / 2 * vp.Height, true
}

// Direction is the unit vector for latitude/longitude in radians, using
// x = cos φ cos λ, y = cos φ sin λ, z = sin φ.
func Direction(lat, lon float64) mgl64.Vec3 {
	cl := math.Cos(lat)
	return mgl64.Vec3{cl * math.Cos(lon), cl * math.Sin(lon), math.Sin(lat)}
}
