// Package engine is the map and globe facade: it wires the boundary store,
// projection, camera, gesture recognizer, hit testers and render loop
// together and exposes selection and imperative camera entry points.
package engine

import (
	"globemap/internal/camera"
	"globemap/internal/geom"
	"globemap/internal/mesh"
	"globemap/internal/syncer"
)

// Mode tells flat map frames from globe frames.
type Mode int

const (
	ModeMap Mode = iota
	ModeGlobe
)

func (m Mode) String() string {
	if m == ModeGlobe {
		return "globe"
	}
	return "map"
}

// Frame is everything a renderer needs for one picture. Renderers must
// treat it as read-only.
type Frame struct {
	Mode     Mode
	Viewport camera.Size
	Features *geom.FeatureCollection

	// Map mode.
	Transform camera.Transform
	Paths     *syncer.PathSet

	// Globe mode.
	Orbit  camera.OrbitState
	Camera camera.Camera
	Index  *mesh.Index
	// AssetErr is set once when the globe asset failed to load.
	AssetErr error

	Selection    Selection
	HasSelection bool
	Color        func(code string) Color
}

// Renderer draws frames. It is called from the render loop goroutine.
type Renderer interface {
	Render(Frame)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Frame)

func (f RendererFunc) Render(fr Frame) { f(fr) }
