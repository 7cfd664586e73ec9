package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Frame pipeline counters
	FramesComposited atomic.Uint64
	FramesBroadcast  atomic.Uint64
	FramesDropped    atomic.Uint64
	FramesExported   atomic.Uint64

	// Error counters
	DecodeErrors  atomic.Uint64
	EncodeErrors  atomic.Uint64
	OverlayErrors atomic.Uint64

	// Latency tracking
	ComposeLatencyMs atomic.Uint64 // Average compositing latency in ms

	// Stream client tracking
	ActiveClients   atomic.Uint64
	TotalClients    atomic.Uint64
	RejectedClients atomic.Uint64

	// Stream state
	StreamActive atomic.Uint64 // 0 = idle, 1 = streaming
	ExportActive atomic.Uint64 // 0 = idle, 1 = exporting

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "slidestream_frames_composited_total",
			Help: "Total frames produced by the transition and effect engines",
		},
		func() float64 { return float64(m.FramesComposited.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "slidestream_frames_broadcast_total",
			Help: "Total JPEG frames pushed to stream clients",
		},
		func() float64 { return float64(m.FramesBroadcast.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "slidestream_frames_dropped_total",
			Help: "Total frames dropped on slow stream clients",
		},
		func() float64 { return float64(m.FramesDropped.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "slidestream_frames_exported_total",
			Help: "Total frames written to the export muxer",
		},
		func() float64 { return float64(m.FramesExported.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "slidestream_decode_errors_total",
			Help: "Total image decode errors",
		},
		func() float64 { return float64(m.DecodeErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "slidestream_encode_errors_total",
			Help: "Total frame encode errors",
		},
		func() float64 { return float64(m.EncodeErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "slidestream_overlay_errors_total",
			Help: "Total OSD overlay errors",
		},
		func() float64 { return float64(m.OverlayErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "slidestream_compose_latency_ms",
			Help: "Average compositing latency in milliseconds",
		},
		func() float64 { return float64(m.ComposeLatencyMs.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "slidestream_active_clients",
			Help: "Number of connected stream clients",
		},
		func() float64 { return float64(m.ActiveClients.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "slidestream_total_clients",
			Help: "Total stream clients connected since start",
		},
		func() float64 { return float64(m.TotalClients.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "slidestream_rejected_clients_total",
			Help: "Stream connections refused by limit or blacklist",
		},
		func() float64 { return float64(m.RejectedClients.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "slidestream_stream_active",
			Help: "Stream state (0=idle, 1=streaming)",
		},
		func() float64 { return float64(m.StreamActive.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "slidestream_export_active",
			Help: "Export state (0=idle, 1=exporting)",
		},
		func() float64 { return float64(m.ExportActive.Load()) },
	))
}

// UpdateComposeLatency updates the average compositing latency
func (m *Metrics) UpdateComposeLatency(duration time.Duration) {
	m.ComposeLatencyMs.Store(uint64(duration.Milliseconds()))
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
