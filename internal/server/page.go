package server

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/signalsfoundry/rlnc-dashboard/model"
	"github.com/signalsfoundry/rlnc-dashboard/playback"
	"github.com/signalsfoundry/rlnc-dashboard/viz"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var funcMap = template.FuncMap{
	"ratio":   playback.FormatRatio,
	"fixed1":  func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"percent": func(v float64) string { return fmt.Sprintf("%+.2f%%", v) },
	"comma":   func(n int) string { return humanize.Comma(int64(n)) },
	"add":     func(a, b int) int { return a + b },
}

type pageEdge struct {
	X1, Y1, X2, Y2 float64
}

type pageData struct {
	Config     model.NetworkConfig
	Final      model.FinalMetrics
	Graph      viz.Graph
	Edges      []pageEdge
	Clusters   []viz.ClusterCard
	Comparison viz.ChartData
	State      playback.State
	Frame      playback.Frame
}

type pageRenderer struct {
	tmpl *template.Template
}

func newPageRenderer() (*pageRenderer, error) {
	t, err := template.New("dashboard.html").Funcs(funcMap).ParseFS(templateFS, "templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}
	return &pageRenderer{tmpl: t}, nil
}

func (p *pageRenderer) render(w io.Writer, data pageData) error {
	return p.tmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// graphEdges resolves link endpoints to coordinates; links naming unknown
// nodes are skipped.
func graphEdges(g viz.Graph) []pageEdge {
	pos := make(map[int]viz.GraphNode, len(g.Nodes))
	for _, n := range g.Nodes {
		pos[n.ID] = n
	}
	edges := make([]pageEdge, 0, len(g.Links))
	for _, l := range g.Links {
		a, okA := pos[l.Source]
		b, okB := pos[l.Target]
		if !okA || !okB {
			continue
		}
		edges = append(edges, pageEdge{X1: a.X, Y1: a.Y, X2: b.X, Y2: b.Y})
	}
	return edges
}
