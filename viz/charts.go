package viz

import (
	"github.com/signalsfoundry/rlnc-dashboard/model"
)

// ChartDataset is one series of a chart document.
type ChartDataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BorderColor     string    `json:"borderColor"`
	BackgroundColor string    `json:"backgroundColor"`
	BorderDash      []int     `json:"borderDash,omitempty"`
	Tension         float64   `json:"tension,omitempty"`
	Fill            bool      `json:"fill"`
}

// ChartData is the {labels, datasets} document a chart renderer consumes.
type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

var dashed = []int{5, 5}

// PerformanceChart plots adaptive and baseline resilience and PDR across the
// sampled steps.
func PerformanceChart(samples []model.PerformanceSample) ChartData {
	labels := make([]string, len(samples))
	ar := make([]float64, len(samples))
	br := make([]float64, len(samples))
	ap := make([]float64, len(samples))
	bp := make([]float64, len(samples))
	for i, s := range samples {
		labels[i] = stepLabel(s.Step)
		ar[i] = s.AdaptiveResilience
		br[i] = s.BaselineResilience
		ap[i] = s.AdaptivePDR
		bp[i] = s.BaselinePDR
	}

	return ChartData{
		Labels: labels,
		Datasets: []ChartDataset{
			{Label: "Adaptive Resilience", Data: ar, BorderColor: ClusterColors[0], BackgroundColor: "rgba(31, 184, 205, 0.1)", Tension: 0.4},
			{Label: "Baseline Resilience", Data: br, BorderColor: ClusterColors[2], BackgroundColor: "rgba(180, 65, 60, 0.1)", BorderDash: dashed, Tension: 0.4},
			{Label: "Adaptive PDR", Data: ap, BorderColor: ClusterColors[1], BackgroundColor: "rgba(255, 193, 133, 0.1)", Tension: 0.4},
			{Label: "Baseline PDR", Data: bp, BorderColor: ClusterColors[3], BackgroundColor: "rgba(93, 135, 143, 0.1)", BorderDash: dashed, Tension: 0.4},
		},
	}
}

// ComparisonLabels are the categories of the adaptive-vs-baseline chart.
var ComparisonLabels = []string{"Resilience", "PDR", "Active Nodes", "Redundancy Efficiency"}

// ComparisonChart compares the final adaptive and baseline outcomes. The
// resilience and PDR bars come from the last sample; the baseline has no
// redundancy gain by definition.
func ComparisonChart(samples []model.PerformanceSample, final model.FinalMetrics) ChartData {
	var last model.PerformanceSample
	if len(samples) > 0 {
		last = samples[len(samples)-1]
	}
	return ChartData{
		Labels: append([]string(nil), ComparisonLabels...),
		Datasets: []ChartDataset{
			{
				Label:           "Adaptive",
				Data:            []float64{last.AdaptiveResilience, last.AdaptivePDR, float64(final.ActiveNodesAdaptive), final.RedundancyImprovement},
				BorderColor:     ClusterColors[0],
				BackgroundColor: ClusterColors[0],
			},
			{
				Label:           "Baseline",
				Data:            []float64{last.BaselineResilience, last.BaselinePDR, float64(final.ActiveNodesBaseline), 0},
				BorderColor:     ClusterColors[2],
				BackgroundColor: ClusterColors[2],
			},
		},
	}
}
