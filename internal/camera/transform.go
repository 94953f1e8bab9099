package camera

import "math"

// Transform is the 2D view: content is scaled about the viewport center,
// then translated. Identity is {1, 0, 0}.
type Transform struct {
	Scale      float64
	TranslateX float64
	TranslateY float64
}

func Identity() Transform { return Transform{Scale: 1} }

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64
	Height float64
}

func (s Size) Center() (float64, float64) { return s.Width / 2, s.Height / 2 }

// ToScreen maps an unzoomed content point to the screen.
func (t Transform) ToScreen(vp Size, x, y float64) (float64, float64) {
	cx, cy := vp.Center()
	return cx + (x-cx)*t.Scale + t.TranslateX, cy + (y-cy)*t.Scale + t.TranslateY
}

// ToContent inverts ToScreen.
func (t Transform) ToContent(vp Size, sx, sy float64) (float64, float64) {
	cx, cy := vp.Center()
	if t.Scale == 0 {
		return math.NaN(), math.NaN()
	}
	return cx + (sx-cx-t.TranslateX)/t.Scale, cy + (sy-cy-t.TranslateY)/t.Scale
}

// Envelope is the largest |translate| per axis that keeps scaled content
// covering the viewport: max(0, (content·scale − viewport)/2).
func Envelope(vp, content Size, scale float64) (float64, float64) {
	return math.Max(0, (content.Width*scale-vp.Width)/2),
		math.Max(0, (content.Height*scale-vp.Height)/2)
}

func clampAbs(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

func (t Transform) lerp(to Transform, p float64) Transform {
	return Transform{
		Scale:      lerp(t.Scale, to.Scale, p),
		TranslateX: lerp(t.TranslateX, to.TranslateX, p),
		TranslateY: lerp(t.TranslateY, to.TranslateY, p),
	}
}
