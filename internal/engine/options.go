package engine

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"globemap/internal/camera"
	"globemap/internal/config"
	"globemap/internal/gesture"
	"globemap/internal/isocode"
	"globemap/internal/mesh"
	"globemap/internal/projection"
)

// Options configure Map and Globe.
type Options struct {
	Camera  camera.Options
	Orbit   camera.OrbitOptions
	Gesture gesture.Options

	Family    projection.Raw
	Padding   float64 // pixels kept free around the fitted map
	CenterLon float64

	HighZoomThreshold float64
	FPS               int

	AssetTimeout time.Duration
	Globe        mesh.GlobeOptions

	Palette Palette
	Table   *isocode.Table
}

func DefaultOptions() Options {
	return Options{
		Camera:            camera.DefaultOptions(),
		Orbit:             camera.DefaultOrbitOptions(),
		Gesture:           gesture.DefaultOptions(),
		Family:            projection.NaturalEarth{},
		HighZoomThreshold: 4,
		FPS:               60,
		AssetTimeout:      15 * time.Second,
		Globe:             mesh.DefaultGlobeOptions(),
		Palette:           DefaultPalette(),
		Table:             isocode.Default(),
	}
}

// OptionsFromConfig maps a validated config.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	family, err := projection.Family(cfg.Projection.Family)
	if err != nil {
		return Options{}, err
	}
	o := DefaultOptions()
	o.Camera = camera.OptionsFromConfig(cfg.Camera)
	o.Orbit = camera.OrbitOptions{
		Options:         o.Camera,
		Radius:          cfg.Globe.Radius,
		Distance:        cfg.Globe.Distance,
		FovY:            mgl64.DegToRad(cfg.Globe.FovDegrees),
		RadiansPerPixel: camera.DefaultOrbitOptions().RadiansPerPixel,
	}
	o.Gesture = gesture.OptionsFromConfig(cfg.Gesture)
	o.Family = family
	o.Padding = cfg.Projection.Padding
	o.CenterLon = cfg.Projection.CenterLon
	o.HighZoomThreshold = cfg.Data.HighZoomThreshold
	o.FPS = cfg.Render.FPS
	o.AssetTimeout = cfg.Globe.AssetTimeout
	o.Globe.Radius = cfg.Globe.Radius
	o.Globe.SimplifyTolerance = cfg.Globe.SimplifyTolerance
	return o, nil
}
