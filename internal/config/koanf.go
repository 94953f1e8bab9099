package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "GLOBEMAP_CONFIG"

// EnvPrefix marks environment overrides; "__" separates nesting levels,
// e.g. GLOBEMAP_CAMERA__MAX_ZOOM=12.
const EnvPrefix = "GLOBEMAP_"

// DefaultPaths are searched in order when PathEnvVar is unset.
var DefaultPaths = []string{
	"globemap.yaml",
	"globemap.yml",
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			LowPath:           "data/countries-110m.json",
			HighPath:          "data/countries-50m.json",
			HighZoomThreshold: 4,
		},
		Projection: ProjectionConfig{
			Family:  "natural-earth",
			Padding: 0,
		},
		Camera: CameraConfig{
			MinZoom:         1,
			MaxZoom:         8,
			FramePadding:    0.7,
			FocusZoom:       2.5,
			SpringStiffness: 120,
			SpringDamping:   20,
			SpringMass:      1,
			Deceleration:    0.05,
		},
		Globe: GlobeConfig{
			AssetTimeout:      15 * time.Second,
			Radius:            10.05,
			FovDegrees:        45,
			SimplifyTolerance: 0.02,
			Distance:          32,
		},
		Render: RenderConfig{FPS: 60},
		Gesture: GestureConfig{
			TapSlop:           10,
			TapTimeout:        300 * time.Millisecond,
			DoubleTapInterval: 300 * time.Millisecond,
			PanSlop:           10,
			PinchSlop:         0.05,
			WheelStep:         1.2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Listen: "127.0.0.1:9464",
		},
	}
}

// Load resolves the configuration. An explicit path wins over PathEnvVar and
// DefaultPaths; an empty path means "search".
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envKey maps GLOBEMAP_CAMERA__MAX_ZOOM to camera.max_zoom.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	if s == "CONFIG" {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// WatchFile calls onChange whenever path is written or replaced. It is
// used for sheets edited while the program runs, such as the status CSV.
// The returned function stops watching.
func WatchFile(path string, onChange func()) (func() error, error) {
	provider := file.Provider(path)
	err := provider.Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		onChange()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	return provider.Unwatch, nil
}
