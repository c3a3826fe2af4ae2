// Package viz derives the arrays the dashboard's graph and chart renderers
// consume. It never reaches into the renderers themselves.
package viz

import (
	"math"
	"math/rand/v2"

	"github.com/signalsfoundry/rlnc-dashboard/model"
)

// ClusterColors is the palette indexed by cluster ID.
var ClusterColors = []string{"#1FB8CD", "#FFC185", "#B4413C", "#5D878F"}

// FallbackColor is used for clusters beyond the palette.
const FallbackColor = "#888"

// ClusterColor returns the palette colour for a cluster.
func ClusterColor(id int) string {
	if id < 0 || id >= len(ClusterColors) {
		return FallbackColor
	}
	return ClusterColors[id]
}

// GraphNode is a node positioned for the force layout.
type GraphNode struct {
	ID        int     `json:"node_id"`
	Cluster   int     `json:"cluster_id"`
	Active    bool    `json:"is_active"`
	Bandwidth float64 `json:"bandwidth"`
	Latency   float64 `json:"latency"`
	EWMAPDR   float64 `json:"ewma_pdr"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Radius    float64 `json:"radius"`
	Color     string  `json:"color"`
}

// GraphLink joins two nodes by node ID.
type GraphLink struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

// Graph is the {nodes, links} document of the force-directed view.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// Layout bounds the initial node placement.
type Layout struct {
	Width  float64
	Height float64
	// Seed fixes the placement and link draw so repeated requests agree.
	Seed uint64
}

// DefaultLayout matches the dashboard's graph panel.
var DefaultLayout = Layout{Width: 800, Height: 500, Seed: 1}

// NodeRadius sizes a node by its bandwidth.
func NodeRadius(bandwidth float64) float64 {
	return math.Sqrt(bandwidth)/15 + 8
}

// BuildGraph scatters nodes inside a 50px margin and links each pair with
// the configured connection probability.
func BuildGraph(nodes []model.Node, cfg model.NetworkConfig, layout Layout) Graph {
	rng := rand.New(rand.NewPCG(layout.Seed, layout.Seed^0x9e3779b97f4a7c15))

	g := Graph{
		Nodes: make([]GraphNode, 0, len(nodes)),
		Links: []GraphLink{},
	}
	for _, n := range nodes {
		g.Nodes = append(g.Nodes, GraphNode{
			ID:        n.ID,
			Cluster:   n.ClusterID,
			Active:    n.Active,
			Bandwidth: n.Bandwidth,
			Latency:   n.Latency,
			EWMAPDR:   n.EWMAPDR,
			X:         rng.Float64()*math.Max(layout.Width-100, 0) + 50,
			Y:         rng.Float64()*math.Max(layout.Height-100, 0) + 50,
			Radius:    NodeRadius(n.Bandwidth),
			Color:     ClusterColor(n.ClusterID),
		})
	}

	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			if rng.Float64() < cfg.ConnectionProbability {
				g.Links = append(g.Links, GraphLink{Source: nodes[i].ID, Target: nodes[j].ID})
			}
		}
	}
	return g
}
