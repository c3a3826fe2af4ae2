package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/rlnc-dashboard/internal/logging"
	"github.com/signalsfoundry/rlnc-dashboard/playback"
	"github.com/signalsfoundry/rlnc-dashboard/viz"
)

// PlaybackResponse is returned by every playback endpoint.
type PlaybackResponse struct {
	State playback.State `json:"state"`
	Frame playback.Frame `json:"frame"`
}

// ClustersResponse carries the cluster cards and their text rendering.
type ClustersResponse struct {
	Clusters []viz.ClusterCard `json:"clusters"`
	Summary  string            `json:"summary"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.store.Dataset())
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.graph)
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	summary := viz.ClusterSummaryText(s.clusters)
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(summary))
		return
	}
	s.writeJSON(w, r, http.StatusOK, ClustersResponse{Clusters: s.clusters, Summary: summary})
}

// handleChart serves /api/charts/{kind} as chart data and
// /api/charts/{kind}.{png|svg} as a rendered image.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	kind, ext, _ := strings.Cut(r.PathValue("name"), ".")

	var (
		data   viz.ChartData
		render func(io.Writer, viz.ChartData, viz.ImageFormat) error
	)
	switch kind {
	case "performance":
		data = s.performance
		render = viz.RenderPerformance
	case "comparison":
		data = s.comparison
		render = viz.RenderComparison
	default:
		s.writeError(w, r, http.StatusNotFound, "unknown chart "+strconv.Quote(kind))
		return
	}

	if ext == "" {
		s.writeJSON(w, r, http.StatusOK, data)
		return
	}
	format := viz.ImageFormat(ext)
	if format != viz.PNG && format != viz.SVG {
		s.writeError(w, r, http.StatusNotFound, "unsupported image format "+strconv.Quote(ext))
		return
	}

	var buf bytes.Buffer
	if err := render(&buf, data, format); err != nil {
		s.log.Error(r.Context(), "render chart failed", logging.String("chart", kind), logging.Err(err))
		s.writeError(w, r, http.StatusInternalServerError, "render chart failed")
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "max-age=300")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	s.writePlayback(w, r, s.ctl.Frame())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.ctl.Toggle()
	s.writePlayback(w, r, s.ctl.Frame())
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s.writePlayback(w, r, s.ctl.Advance())
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("step")
	if raw == "" {
		s.writeError(w, r, http.StatusBadRequest, "step is required")
		return
	}
	step, err := strconv.Atoi(raw)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "step must be an integer")
		return
	}
	s.writePlayback(w, r, s.ctl.Seek(step))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.exporter.Export(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Config:     s.store.Config(),
		Final:      s.store.FinalMetrics(),
		Graph:      s.graph,
		Edges:      graphEdges(s.graph),
		Clusters:   s.clusters,
		Comparison: s.comparison,
		State:      s.ctl.State(),
		Frame:      s.ctl.Frame(),
	}
	var buf bytes.Buffer
	if err := s.page.render(&buf, data); err != nil {
		s.log.Error(r.Context(), "render dashboard page failed", logging.Err(err))
		s.writeError(w, r, http.StatusInternalServerError, "render page failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) writePlayback(w http.ResponseWriter, r *http.Request, frame playback.Frame) {
	s.writeJSON(w, r, http.StatusOK, PlaybackResponse{State: s.ctl.State(), Frame: frame})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error(r.Context(), "failed to encode JSON response", logging.Err(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.writeJSON(w, r, status, map[string]any{
		"error": message,
	})
}
