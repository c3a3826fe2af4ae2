// Package export serialises the static experiment dataset into the
// downloadable snapshot document.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/signalsfoundry/rlnc-dashboard/internal/logging"
	"github.com/signalsfoundry/rlnc-dashboard/model"
	"github.com/signalsfoundry/rlnc-dashboard/timectrl"
)

const tracerName = "github.com/signalsfoundry/rlnc-dashboard/export"

// TimestampLayout matches an ISO-8601 UTC instant with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Document is the exported snapshot. Everything except Timestamp is a
// verbatim copy of the dataset; playback position never leaks in.
type Document struct {
	Timestamp          string                    `json:"timestamp"`
	SimulationConfig   model.NetworkConfig       `json:"simulation_config"`
	PerformanceResults []model.PerformanceSample `json:"performance_results"`
	ClusterAnalysis    []model.ClusterStat       `json:"cluster_analysis"`
	FinalMetrics       model.FinalMetrics        `json:"final_metrics"`
	ActiveNodes        []model.Node              `json:"active_nodes"`
}

// Source provides the dataset to snapshot. *kb.KnowledgeBase satisfies it.
type Source interface {
	Dataset() *model.Dataset
}

// Snapshot copies the dataset into a Document stamped with now.
func Snapshot(src Source, now time.Time) Document {
	ds := src.Dataset()
	return Document{
		Timestamp:          now.UTC().Format(TimestampLayout),
		SimulationConfig:   ds.NetworkConfig,
		PerformanceResults: orEmpty(ds.PerformanceData),
		ClusterAnalysis:    orEmpty(ds.ClusterStats),
		FinalMetrics:       ds.FinalMetrics,
		ActiveNodes:        orEmpty(ds.FinalNodes),
	}
}

// orEmpty keeps absent lists encoding as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Marshal encodes doc as two-space indented JSON.
func Marshal(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// FileName is the download name for a snapshot taken at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("rlnc-simulation-%s.json", now.UTC().Format(time.DateOnly))
}

// MetricsRecorder receives export activity for instrumentation.
type MetricsRecorder interface {
	ObserveExport(bytes int)
}

// Exporter produces snapshots of a fixed source.
type Exporter struct {
	src     Source
	clock   timectrl.Clock
	log     logging.Logger
	metrics MetricsRecorder
}

// Option customises an Exporter.
type Option func(*Exporter)

// WithClock sets the clock used for timestamps and file names.
func WithClock(c timectrl.Clock) Option {
	return func(e *Exporter) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Exporter) { e.log = logging.OrNoop(l) }
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(e *Exporter) { e.metrics = m }
}

// NewExporter builds an Exporter over src.
func NewExporter(src Source, opts ...Option) *Exporter {
	e := &Exporter{
		src:   src,
		clock: timectrl.RealClock{},
		log:   logging.Noop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export serialises a fresh snapshot and returns its file name and bytes.
func (e *Exporter) Export(ctx context.Context) (string, []byte, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "export.Snapshot")
	defer span.End()

	now := e.clock.Now()
	data, err := Marshal(Snapshot(e.src, now))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.log.Error(ctx, "snapshot export failed", logging.Err(err))
		return "", nil, err
	}

	name := FileName(now)
	span.SetAttributes(
		attribute.String("export.file_name", name),
		attribute.Int("export.bytes", len(data)),
	)
	if e.metrics != nil {
		e.metrics.ObserveExport(len(data))
	}
	e.log.Info(ctx, "snapshot exported",
		logging.String("file", name),
		logging.String("size", humanize.Bytes(uint64(len(data)))),
	)
	return name, data, nil
}

// WriteFile exports a snapshot into dir. The file appears atomically: the
// bytes go to a temporary file in dir which is then renamed into place.
func (e *Exporter) WriteFile(ctx context.Context, dir string) (string, error) {
	name, data, err := e.Export(ctx)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, ".rlnc-export-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close snapshot: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename snapshot: %w", err)
	}
	return path, nil
}
