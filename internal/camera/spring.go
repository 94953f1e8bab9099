package camera

import (
	"math"
	"time"
)

// SpringParams describe a damped harmonic oscillator.
type SpringParams struct {
	Stiffness float64
	Damping   float64
	Mass      float64
}

const (
	settleDisplacement = 1e-3
	settleVelocity     = 1e-3
	maxSubstep         = time.Second / 240
)

// spring drives a progress value from 0 towards 1. Every animated
// parameter interpolates on the same progress, so they settle together.
type spring struct {
	p      SpringParams
	pos    float64
	vel    float64
	settle bool
}

func newSpring(p SpringParams) *spring {
	if p.Mass <= 0 {
		p.Mass = 1
	}
	return &spring{p: p}
}

// step advances by dt and returns the progress and whether it settled.
func (s *spring) step(dt time.Duration) (float64, bool) {
	if s.settle {
		return 1, true
	}
	for dt > 0 {
		h := dt
		if h > maxSubstep {
			h = maxSubstep
		}
		dt -= h
		sec := h.Seconds()
		x := s.pos - 1
		acc := (-s.p.Stiffness*x - s.p.Damping*s.vel) / s.p.Mass
		s.vel += acc * sec
		s.pos += s.vel * sec
	}
	if math.Abs(s.pos-1) < settleDisplacement && math.Abs(s.vel) < settleVelocity {
		s.pos, s.vel, s.settle = 1, 0, true
	}
	return s.pos, s.settle
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
