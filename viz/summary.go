package viz

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/signalsfoundry/rlnc-dashboard/model"
)

// ClusterCard is the textual summary of one cluster.
type ClusterCard struct {
	ClusterID    int    `json:"cluster_id"`
	Title        string `json:"title"`
	Nodes        int    `json:"nodes"`
	AvgBandwidth string `json:"avg_bandwidth"`
	AvgPDR       string `json:"avg_pdr"`
	Color        string `json:"color"`
}

var printer = message.NewPrinter(language.English)

// ClusterSummary formats the cluster aggregates for display.
func ClusterSummary(stats []model.ClusterStat) []ClusterCard {
	cards := make([]ClusterCard, 0, len(stats))
	for _, s := range stats {
		cards = append(cards, ClusterCard{
			ClusterID:    s.ClusterID,
			Title:        "Cluster " + strconv.Itoa(s.ClusterID),
			Nodes:        s.Nodes,
			AvgBandwidth: printer.Sprintf("%.1f", s.AvgBandwidth),
			AvgPDR:       printer.Sprintf("%.3f", s.AvgPDR),
			Color:        ClusterColor(s.ClusterID),
		})
	}
	return cards
}

// ClusterSummaryText renders the cards as plain text, one block per cluster.
func ClusterSummaryText(cards []ClusterCard) string {
	var b strings.Builder
	for i, c := range cards {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(c.Title + "\n")
		b.WriteString("  Nodes: " + strconv.Itoa(c.Nodes) + "\n")
		b.WriteString("  Avg Bandwidth: " + c.AvgBandwidth + "\n")
		b.WriteString("  Avg PDR: " + c.AvgPDR + "\n")
	}
	return b.String()
}

func stepLabel(step int) string {
	return "Step " + strconv.Itoa(step)
}
