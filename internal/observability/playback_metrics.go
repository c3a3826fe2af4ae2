package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// PlaybackCollector exposes playback and export metrics. It satisfies both
// playback.MetricsRecorder and export.MetricsRecorder.
type PlaybackCollector struct {
	gatherer prometheus.Gatherer

	Advances    prometheus.Counter
	Seeks       prometheus.Counter
	Toggles     *prometheus.CounterVec
	CurrentStep prometheus.Gauge
	Playing     prometheus.Gauge

	Exports     prometheus.Counter
	ExportBytes prometheus.Histogram
}

// NewPlaybackCollector registers playback metrics against the provided registerer.
func NewPlaybackCollector(reg prometheus.Registerer) (*PlaybackCollector, error) {
	reg, gatherer := resolveRegistry(reg)

	advances, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playback_advances_total",
		Help: "Number of playback step advances, timer driven or manual.",
	}), "playback_advances_total")
	if err != nil {
		return nil, err
	}
	seeks, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playback_seeks_total",
		Help: "Number of seek operations.",
	}), "playback_seeks_total")
	if err != nil {
		return nil, err
	}
	toggles, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "playback_toggles_total",
		Help: "Number of play/pause toggles, labeled by the resulting state.",
	}, []string{"playing"}), "playback_toggles_total")
	if err != nil {
		return nil, err
	}
	current, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "playback_current_step",
		Help: "Step currently shown by the playback controller.",
	}), "playback_current_step")
	if err != nil {
		return nil, err
	}
	playing, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "playback_playing",
		Help: "1 while playback is running, 0 while paused.",
	}), "playback_playing")
	if err != nil {
		return nil, err
	}
	exports, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "export_snapshots_total",
		Help: "Number of export documents produced.",
	}), "export_snapshots_total")
	if err != nil {
		return nil, err
	}
	exportBytes, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "export_snapshot_bytes",
		Help:    "Size of produced export documents in bytes.",
		Buckets: prometheus.ExponentialBuckets(512, 2, 10),
	}), "export_snapshot_bytes")
	if err != nil {
		return nil, err
	}

	return &PlaybackCollector{
		gatherer:    gatherer,
		Advances:    advances,
		Seeks:       seeks,
		Toggles:     toggles,
		CurrentStep: current,
		Playing:     playing,
		Exports:     exports,
		ExportBytes: exportBytes,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *PlaybackCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveAdvance records a step advance landing on step.
func (c *PlaybackCollector) ObserveAdvance(step int) {
	if c == nil {
		return
	}
	c.Advances.Inc()
	c.CurrentStep.Set(float64(step))
}

// ObserveSeek records a seek landing on step.
func (c *PlaybackCollector) ObserveSeek(step int) {
	if c == nil {
		return
	}
	c.Seeks.Inc()
	c.CurrentStep.Set(float64(step))
}

// ObserveToggle records a play/pause transition.
func (c *PlaybackCollector) ObserveToggle(playing bool) {
	if c == nil {
		return
	}
	c.Toggles.WithLabelValues(strconv.FormatBool(playing)).Inc()
	if playing {
		c.Playing.Set(1)
	} else {
		c.Playing.Set(0)
	}
}

// ObserveExport records a produced export document.
func (c *PlaybackCollector) ObserveExport(bytes int) {
	if c == nil {
		return
	}
	c.Exports.Inc()
	c.ExportBytes.Observe(float64(bytes))
}
