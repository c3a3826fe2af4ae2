// Package server exposes the dashboard over HTTP, WebSocket and gRPC.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/rlnc-dashboard/internal/logging"
	"github.com/signalsfoundry/rlnc-dashboard/internal/observability"
	"github.com/signalsfoundry/rlnc-dashboard/kb"
	"github.com/signalsfoundry/rlnc-dashboard/playback"
	"github.com/signalsfoundry/rlnc-dashboard/viz"
)

// Playback is the controller surface the server needs.
type Playback interface {
	Commander
	State() playback.State
	Subscribe(s playback.Sink) (unsubscribe func())
}

// Exporter produces named export documents.
type Exporter interface {
	Export(ctx context.Context) (name string, data []byte, err error)
}

// Server owns the HTTP routes and the WebSocket hub.
type Server struct {
	store    *kb.KnowledgeBase
	ctl      Playback
	exporter Exporter
	log      logging.Logger
	metrics  *observability.APICollector
	layout   viz.Layout

	mux         *http.ServeMux
	hub         *Hub
	unsubscribe func()
	page        *pageRenderer

	graph       viz.Graph
	performance viz.ChartData
	comparison  viz.ChartData
	clusters    []viz.ClusterCard
}

// Option customises Server construction.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		s.log = logging.OrNoop(l)
	}
}

// WithAPICollector records HTTP and WebSocket metrics and serves /metrics
// from the collector's registry.
func WithAPICollector(c *observability.APICollector) Option {
	return func(s *Server) {
		s.metrics = c
	}
}

// WithLayout overrides the network graph layout.
func WithLayout(l viz.Layout) Option {
	return func(s *Server) {
		s.layout = l
	}
}

// New wires the routes for store, ctl and exporter. The hub subscribes to
// ctl immediately; call Close to detach it.
func New(store *kb.KnowledgeBase, ctl Playback, exporter Exporter, opts ...Option) (*Server, error) {
	if store == nil || ctl == nil || exporter == nil {
		return nil, fmt.Errorf("server requires a knowledge base, playback controller and exporter")
	}
	s := &Server{
		store:    store,
		ctl:      ctl,
		exporter: exporter,
		log:      logging.Noop(),
		layout:   viz.DefaultLayout,
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	page, err := newPageRenderer()
	if err != nil {
		return nil, err
	}
	s.page = page

	samples := store.Samples()
	s.graph = viz.BuildGraph(store.Nodes(), store.Config(), s.layout)
	s.performance = viz.PerformanceChart(samples)
	s.comparison = viz.ComparisonChart(samples, store.FinalMetrics())
	s.clusters = viz.ClusterSummary(store.ClusterStats())

	var tracker ConnTracker
	if s.metrics != nil {
		tracker = s.metrics
	}
	s.hub = NewHub(ctl, s.log, tracker)
	s.unsubscribe = ctl.Subscribe(s.hub)

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.handle("GET /{$}", s.handleIndex)
	s.handle("GET /healthz", s.handleHealthz)
	s.handle("GET /api/dataset", s.handleDataset)
	s.handle("GET /api/graph", s.handleGraph)
	s.handle("GET /api/charts/{name}", s.handleChart)
	s.handle("GET /api/clusters", s.handleClusters)
	s.handle("GET /api/playback", s.handlePlayback)
	s.handle("POST /api/playback/toggle", s.handleToggle)
	s.handle("POST /api/playback/advance", s.handleAdvance)
	s.handle("POST /api/playback/seek", s.handleSeek)
	s.handle("GET /api/export", s.handleExport)
	s.handle("GET /ws", s.hub.ServeHTTP)

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	} else {
		s.mux.Handle("GET /metrics", promhttp.Handler())
	}
}

// handle registers h under pattern, instrumented with the pattern's path
// as the route label.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	route := pattern
	if _, path, ok := strings.Cut(pattern, " "); ok {
		route = path
	}
	var handler http.Handler = traced(route, h)
	handler = s.metrics.Middleware(route, handler)
	s.mux.Handle(pattern, handler)
}

// Handler returns the root handler with request IDs attached.
func (s *Server) Handler() http.Handler {
	return requestID(s.log, s.mux)
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close detaches the hub from the controller and drops every client.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.hub.Close()
}
