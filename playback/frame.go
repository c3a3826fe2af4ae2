package playback

import (
	"fmt"

	"github.com/signalsfoundry/rlnc-dashboard/model"
)

// Resolver supplies the timeline lookups a frame is built from.
// *kb.KnowledgeBase satisfies it.
type Resolver interface {
	Resolve(step int) model.PerformanceSample
	ActiveNodeCount(step int) int
}

// Frame is the set of display values for one playback position.
type Frame struct {
	Step               int                     `json:"step"`
	Label              string                  `json:"label"`
	AdaptivePDR        string                  `json:"adaptive_pdr"`
	AdaptiveResilience string                  `json:"adaptive_resilience"`
	ActiveNodes        int                     `json:"active_nodes"`
	Playing            bool                    `json:"playing"`
	Sample             model.PerformanceSample `json:"sample"`
}

// NewFrame resolves the sample for step and formats the readouts.
func NewFrame(r Resolver, step int, playing bool) Frame {
	sample := r.Resolve(step)
	return Frame{
		Step:               step,
		Label:              StepLabel(step),
		AdaptivePDR:        FormatRatio(sample.AdaptivePDR),
		AdaptiveResilience: FormatRatio(sample.AdaptiveResilience),
		ActiveNodes:        r.ActiveNodeCount(step),
		Playing:            playing,
		Sample:             sample,
	}
}

// StepLabel renders the slider readout, e.g. "Step 12".
func StepLabel(step int) string {
	return fmt.Sprintf("Step %d", step)
}

// FormatRatio renders a 0-1 metric with three decimals.
func FormatRatio(v float64) string {
	return fmt.Sprintf("%.3f", v)
}
