package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Render error kinds.
const (
	KindEmptyLibrary   = "empty_library"
	KindDecodeFailure  = "decode_failure"
	KindInvalidSurface = "invalid_surface"
	KindInvalidConfig  = "invalid_config"
	KindSurface        = "surface"
)

// Metrics holds the collectors of one wallpaper instance.
type Metrics struct {
	// FramesTotal tracks completed frames
	FramesTotal prometheus.Counter

	// RenderErrorsTotal tracks failed frames by kind
	RenderErrorsTotal *prometheus.CounterVec

	// DecodeFailuresTotal tracks tiles that could not be decoded, including skipped ones
	DecodeFailuresTotal prometheus.Counter

	// RenderDuration tracks how long a frame takes from listing to posting
	RenderDuration prometheus.Histogram

	// Cycle tracks the current rotation cycle
	Cycle prometheus.Gauge

	// Visible tracks whether the wallpaper is visible (1) or hidden (0)
	Visible prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FramesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "photowall_frames_total",
				Help: "Total frames drawn",
			},
		),
		RenderErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photowall_render_errors_total",
				Help: "Total failed frames by kind",
			},
			[]string{"kind"},
		),
		DecodeFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "photowall_decode_failures_total",
				Help: "Total images that could not be decoded",
			},
		),
		RenderDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "photowall_render_duration_seconds",
				Help:    "Frame render duration in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		Cycle: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "photowall_cycle",
				Help: "Current rotation cycle",
			},
		),
		Visible: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "photowall_visible",
				Help: "1 if the wallpaper is visible, 0 if hidden",
			},
		),
	}
}

// SetVisible records the visibility flag.
func (m *Metrics) SetVisible(visible bool) {
	if visible {
		m.Visible.Set(1)
	} else {
		m.Visible.Set(0)
	}
}
