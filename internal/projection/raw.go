package projection

import (
	"fmt"
	"math"
)

// Raw is a projection family in radians, before scale and translate.
type Raw interface {
	Name() string
	Forward(lambda, phi float64) (x, y float64, ok bool)
	Inverse(x, y float64) (lambda, phi float64, ok bool)
}

// Family returns the raw projection registered under name.
func Family(name string) (Raw, error) {
	switch name {
	case "equal-earth", "equalearth":
		return EqualEarth{}, nil
	case "natural-earth", "naturalearth", "":
		return NaturalEarth{}, nil
	case "mercator":
		return Mercator{}, nil
	}
	return nil, fmt.Errorf("unknown projection family %q", name)
}

const (
	epsilon     = 1e-12
	domainSlack = 1e-9
)

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// EqualEarth is the Šavrič, Patterson and Jenny equal-area projection.
type EqualEarth struct{}

const (
	eeA1 = 1.340264
	eeA2 = -0.081106
	eeA3 = 0.000893
	eeA4 = 0.003796
)

var eeM = math.Sqrt(3) / 2

func (EqualEarth) Name() string { return "equal-earth" }

func (EqualEarth) Forward(lambda, phi float64) (float64, float64, bool) {
	if !finite(lambda, phi) {
		return 0, 0, false
	}
	l := math.Asin(eeM * math.Sin(phi))
	l2 := l * l
	l6 := l2 * l2 * l2
	x := lambda * math.Cos(l) / (eeM * (eeA1 + 3*eeA2*l2 + l6*(7*eeA3+9*eeA4*l2)))
	y := l * (eeA1 + eeA2*l2 + l6*(eeA3+eeA4*l2))
	return x, y, true
}

// Inverse solves the latitude polynomial by Newton iteration. Latitudes
// within a few micro-degrees of the poles come back to about 1e-6°.
func (EqualEarth) Inverse(x, y float64) (float64, float64, bool) {
	if !finite(x, y) {
		return 0, 0, false
	}
	l := y
	l2 := l * l
	l6 := l2 * l2 * l2
	for i := 0; i < 12; i++ {
		fy := l*(eeA1+eeA2*l2+l6*(eeA3+eeA4*l2)) - y
		fpy := eeA1 + 3*eeA2*l2 + l6*(7*eeA3+9*eeA4*l2)
		delta := fy / fpy
		l -= delta
		l2 = l * l
		l6 = l2 * l2 * l2
		if math.Abs(delta) < epsilon {
			break
		}
	}
	s := math.Sin(l) / eeM
	if math.Abs(s) > 1+domainSlack {
		return 0, 0, false
	}
	s = math.Max(-1, math.Min(1, s))
	cl := math.Cos(l)
	if cl == 0 {
		return 0, 0, false
	}
	lambda := eeM * x * (eeA1 + 3*eeA2*l2 + l6*(7*eeA3+9*eeA4*l2)) / cl
	phi := math.Asin(s)
	return lambda, phi, finite(lambda, phi)
}

// NaturalEarth is the Natural Earth I pseudocylindrical projection.
type NaturalEarth struct{}

func (NaturalEarth) Name() string { return "natural-earth" }

func (NaturalEarth) Forward(lambda, phi float64) (float64, float64, bool) {
	if !finite(lambda, phi) {
		return 0, 0, false
	}
	phi2 := phi * phi
	phi4 := phi2 * phi2
	x := lambda * (0.8707 - 0.131979*phi2 + phi4*(-0.013791+phi4*(0.003971*phi2-0.001529*phi4)))
	y := phi * (1.007226 + phi2*(0.015085+phi4*(-0.044475+0.028874*phi2-0.005916*phi4)))
	return x, y, true
}

func (NaturalEarth) Inverse(x, y float64) (float64, float64, bool) {
	if !finite(x, y) {
		return 0, 0, false
	}
	phi := y
	for i := 0; i < 25; i++ {
		phi2 := phi * phi
		phi4 := phi2 * phi2
		f := phi*(1.007226+phi2*(0.015085+phi4*(-0.044475+0.028874*phi2-0.005916*phi4))) - y
		fp := 1.007226 + phi2*(0.015085*3+phi4*(-0.044475*7+0.028874*9*phi2-0.005916*11*phi4))
		delta := f / fp
		phi -= delta
		if math.Abs(delta) < epsilon {
			break
		}
	}
	phi2 := phi * phi
	lambda := x / (0.8707 + phi2*(-0.131979+phi2*(-0.013791+phi2*phi2*phi2*(0.003971-0.001529*phi2))))
	return lambda, phi, finite(lambda, phi)
}

// Mercator is the conformal cylindrical projection, clipped at the
// latitude where the map becomes square.
type Mercator struct{}

// MercatorMaxLat is the usual web-map latitude limit in degrees.
const MercatorMaxLat = 85.0511287798

func (Mercator) Name() string { return "mercator" }

func (Mercator) Forward(lambda, phi float64) (float64, float64, bool) {
	if !finite(lambda, phi) || math.Abs(phi) > MercatorMaxLat*math.Pi/180+domainSlack {
		return 0, 0, false
	}
	return lambda, math.Log(math.Tan(math.Pi/4 + phi/2)), true
}

func (Mercator) Inverse(x, y float64) (float64, float64, bool) {
	if !finite(x, y) {
		return 0, 0, false
	}
	return x, 2*math.Atan(math.Exp(y)) - math.Pi/2, true
}
