package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPlaybackCollectorRecordsActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPlaybackCollector(reg)
	if err != nil {
		t.Fatalf("NewPlaybackCollector: %v", err)
	}

	c.ObserveToggle(true)
	c.ObserveAdvance(1)
	c.ObserveAdvance(2)
	c.ObserveSeek(40)
	c.ObserveToggle(false)

	if got := testutil.ToFloat64(c.Advances); got != 2 {
		t.Fatalf("playback_advances_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Seeks); got != 1 {
		t.Fatalf("playback_seeks_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.CurrentStep); got != 40 {
		t.Fatalf("playback_current_step = %v, want 40", got)
	}
	if got := testutil.ToFloat64(c.Playing); got != 0 {
		t.Fatalf("playback_playing = %v, want 0", got)
	}
	if got := testutil.ToFloat64(c.Toggles.WithLabelValues("true")); got != 1 {
		t.Fatalf("playback_toggles_total{playing=true} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Toggles.WithLabelValues("false")); got != 1 {
		t.Fatalf("playback_toggles_total{playing=false} = %v, want 1", got)
	}
}

func TestPlaybackCollectorRecordsExports(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPlaybackCollector(reg)
	if err != nil {
		t.Fatalf("NewPlaybackCollector: %v", err)
	}
	c.ObserveExport(2048)
	c.ObserveExport(4096)

	if got := testutil.ToFloat64(c.Exports); got != 2 {
		t.Fatalf("export_snapshots_total = %v, want 2", got)
	}
	if count := histogramSampleCount(t, reg, "export_snapshot_bytes", map[string]string{}); count != 2 {
		t.Fatalf("export_snapshot_bytes sample_count = %d, want 2", count)
	}
	if c.Gatherer() != reg {
		t.Fatalf("Gatherer() did not return the registry")
	}
}

func TestPlaybackCollectorNilSafe(t *testing.T) {
	var c *PlaybackCollector
	c.ObserveAdvance(1)
	c.ObserveSeek(1)
	c.ObserveToggle(true)
	c.ObserveExport(1)
	if c.Gatherer() != nil {
		t.Fatalf("nil collector Gatherer() = non-nil, want nil")
	}
}

func TestRegisterRejectsIncompatibleCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPlaybackCollector(reg); err != nil {
		t.Fatalf("NewPlaybackCollector: %v", err)
	}
	clash := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "playback_seeks_total",
		Help: "Number of seek operations.",
	}, []string{"x"})
	if _, err := register(reg, clash, "playback_seeks_total"); err == nil {
		t.Fatalf("register() with clashing descriptor = nil error, want error")
	}
}
