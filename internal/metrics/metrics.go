// Package metrics exposes Prometheus collectors for data loading, camera
// state, hit testing and the render loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Data layer
	TopologyLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "globemap_topology_loads_total",
			Help: "Boundary topology loads by detail level and outcome",
		},
		[]string{"level", "outcome"}, // outcome: "ok", "error", "cached"
	)

	TopologyLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "globemap_topology_load_duration_seconds",
			Help:    "Time to fetch and decode a boundary topology",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"level"},
	)

	// Camera
	CurrentZoom = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "globemap_current_zoom",
			Help: "Committed zoom factor of the active camera",
		},
	)

	CameraAnimations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "globemap_camera_animations_total",
			Help: "Programmatic camera animations started",
		},
		[]string{"kind"}, // "bounds", "point", "reset", "focus", "decay"
	)

	// Selection
	HitTests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "globemap_hit_tests_total",
			Help: "Tap hit tests by mode and result",
		},
		[]string{"mode", "result"}, // mode: "2d", "3d"; result: "hit", "miss"
	)

	HitTestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "globemap_hit_test_duration_seconds",
			Help:    "Latency of a single tap hit test",
			Buckets: []float64{.00005, .0001, .0005, .001, .005, .01, .05},
		},
		[]string{"mode"},
	)

	// Render pipeline
	FramesRendered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "globemap_frames_rendered_total",
			Help: "Frames handed to the renderer",
		},
	)

	PathRegenerations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "globemap_path_regenerations_total",
			Help: "Projected path sets rebuilt after a committed camera change",
		},
	)

	PathsVisible = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "globemap_paths_visible",
			Help: "Country paths in the most recently published path set",
		},
	)

	// Globe asset
	AssetLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "globemap_asset_loads_total",
			Help: "Globe asset load attempts by outcome",
		},
		[]string{"outcome"}, // "ok", "error", "timeout"
	)
)

func RecordTopologyLoad(level string, duration time.Duration, cached bool, err error) {
	switch {
	case err != nil:
		TopologyLoads.WithLabelValues(level, "error").Inc()
	case cached:
		TopologyLoads.WithLabelValues(level, "cached").Inc()
		return
	default:
		TopologyLoads.WithLabelValues(level, "ok").Inc()
	}
	TopologyLoadDuration.WithLabelValues(level).Observe(duration.Seconds())
}

func RecordHitTest(mode string, duration time.Duration, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	HitTests.WithLabelValues(mode, result).Inc()
	HitTestDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

func RecordAnimation(kind string) {
	CameraAnimations.WithLabelValues(kind).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
