// Package camera owns the live view state: a 2D pan/zoom transform and a 3D
// orbit. Gestures mutate it directly; programmatic moves animate with a
// damped spring; flings coast with exponential decay.
package camera

import (
	"globemap/internal/config"
)

// Options parameterize both controllers.
type Options struct {
	MinZoom float64
	MaxZoom float64
	// FramePadding is the share of the viewport a framed bounds may fill.
	FramePadding float64
	// FocusZoom is the zoom used by fixed-zoom focus moves.
	FocusZoom float64
	Spring    SpringParams
	// Deceleration is the fraction of fling velocity left after one second.
	Deceleration float64
	// MinFlingSpeed (px/s) below which a released gesture does not coast.
	MinFlingSpeed float64
}

func DefaultOptions() Options {
	return Options{
		MinZoom:       1,
		MaxZoom:       8,
		FramePadding:  0.7,
		FocusZoom:     2.5,
		Spring:        SpringParams{Stiffness: 120, Damping: 20, Mass: 1},
		Deceleration:  0.05,
		MinFlingSpeed: 50,
	}
}

// OptionsFromConfig maps the camera config section.
func OptionsFromConfig(c config.CameraConfig) Options {
	o := DefaultOptions()
	o.MinZoom = c.MinZoom
	o.MaxZoom = c.MaxZoom
	o.FramePadding = c.FramePadding
	o.FocusZoom = c.FocusZoom
	o.Spring = SpringParams{Stiffness: c.SpringStiffness, Damping: c.SpringDamping, Mass: c.SpringMass}
	o.Deceleration = c.Deceleration
	return o
}

func (o Options) clampZoom(z float64) float64 {
	if z < o.MinZoom {
		return o.MinZoom
	}
	if z > o.MaxZoom {
		return o.MaxZoom
	}
	return z
}

// State is the controller's interaction state.
type State int

const (
	Idle State = iota
	Gesturing
	Animating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Gesturing:
		return "gesturing"
	case Animating:
		return "animating"
	}
	return "unknown"
}
