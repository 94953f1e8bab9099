// Package config loads globemap settings from struct defaults, an optional
// YAML file and GLOBEMAP_* environment variables, in that order.
package config

import (
	"time"
)

// Config is the root configuration.
type Config struct {
	Data       DataConfig       `koanf:"data"`
	Projection ProjectionConfig `koanf:"projection"`
	Camera     CameraConfig     `koanf:"camera"`
	Globe      GlobeConfig      `koanf:"globe"`
	Render     RenderConfig     `koanf:"render"`
	Gesture    GestureConfig    `koanf:"gesture"`
	Logging    LoggingConfig    `koanf:"logging"`
	Metrics    MetricsConfig    `koanf:"metrics"`
}

// DataConfig points at the boundary topologies and the optional
// country-status sheet and visited list supplied by the data layer.
type DataConfig struct {
	LowPath     string `koanf:"low_path" validate:"required"`
	HighPath    string `koanf:"high_path"`
	StatusPath  string `koanf:"status_path"`
	VisitedPath string `koanf:"visited_path"`
	// HighZoomThreshold switches rendering to the high-detail collection.
	HighZoomThreshold float64 `koanf:"high_zoom_threshold" validate:"gte=0"`
}

type ProjectionConfig struct {
	Family    string  `koanf:"family" validate:"oneof=equal-earth natural-earth mercator"`
	Padding   float64 `koanf:"padding" validate:"gte=0"`
	CenterLon float64 `koanf:"center_lon" validate:"gte=-180,lte=180"`
}

// CameraConfig parameterizes both the 2D controller and the globe orbit.
type CameraConfig struct {
	MinZoom float64 `koanf:"min_zoom" validate:"gt=0"`
	MaxZoom float64 `koanf:"max_zoom" validate:"gt=0"`
	// FramePadding is the fraction of the viewport a framed bounds occupies.
	FramePadding float64 `koanf:"frame_padding" validate:"gt=0,lte=1"`
	// FocusZoom is the fixed zoom used when focusing a single country.
	FocusZoom       float64 `koanf:"focus_zoom" validate:"gt=0"`
	SpringStiffness float64 `koanf:"spring_stiffness" validate:"gt=0"`
	SpringDamping   float64 `koanf:"spring_damping" validate:"gt=0"`
	SpringMass      float64 `koanf:"spring_mass" validate:"gt=0"`
	// Deceleration is the per-second velocity retention of inertial pans.
	Deceleration float64 `koanf:"deceleration" validate:"gt=0,lt=1"`
}

type GlobeConfig struct {
	AssetPath    string        `koanf:"asset_path"`
	AssetTimeout time.Duration `koanf:"asset_timeout" validate:"gt=0"`
	Radius       float64       `koanf:"radius" validate:"gt=0"`
	FovDegrees   float64       `koanf:"fov_degrees" validate:"gt=0,lt=180"`
	Distance     float64       `koanf:"distance" validate:"gt=0"`
	// SimplifyTolerance is in degrees and applies to in-process meshes.
	SimplifyTolerance float64 `koanf:"simplify_tolerance" validate:"gte=0"`
}

type RenderConfig struct {
	FPS int `koanf:"fps" validate:"gte=1,lte=240"`
}

type GestureConfig struct {
	TapSlop           float64       `koanf:"tap_slop" validate:"gt=0"`
	TapTimeout        time.Duration `koanf:"tap_timeout" validate:"gt=0"`
	DoubleTapInterval time.Duration `koanf:"double_tap_interval" validate:"gt=0"`
	PanSlop           float64       `koanf:"pan_slop" validate:"gt=0"`
	PinchSlop         float64       `koanf:"pinch_slop" validate:"gt=0"`
	WheelStep         float64       `koanf:"wheel_step" validate:"gt=1"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
	// File receives log output when set; the TUI needs this to keep the
	// alternate screen clean.
	File string `koanf:"file"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Listen  string `koanf:"listen" validate:"required_if=Enabled true"`
}
