package kb

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/signalsfoundry/rlnc-dashboard/model"
)

var (
	// ErrInvalidDataset indicates the dataset failed structural validation.
	ErrInvalidDataset = errors.New("invalid dataset")
	// ErrEmptyTimeline indicates the dataset carries no performance samples.
	ErrEmptyTimeline = errors.New("performance timeline is empty")
	// ErrUnsortedTimeline indicates performance samples are not ordered by step.
	ErrUnsortedTimeline = errors.New("performance timeline is not sorted by step")
)

// KnowledgeBase holds the static experiment dataset. It is populated once and
// never mutated afterwards, so every accessor is safe for concurrent use.
type KnowledgeBase struct {
	ds *model.Dataset
}

// NewKnowledgeBase validates ds and wraps a private copy of it.
func NewKnowledgeBase(ds *model.Dataset) (*KnowledgeBase, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: dataset is nil", ErrInvalidDataset)
	}
	if err := Validate(ds); err != nil {
		return nil, err
	}
	return &KnowledgeBase{ds: ds.Clone()}, nil
}

// Dataset returns a deep copy of the stored dataset.
func (kb *KnowledgeBase) Dataset() *model.Dataset {
	return kb.ds.Clone()
}

// Config returns the network configuration.
func (kb *KnowledgeBase) Config() model.NetworkConfig {
	return kb.ds.NetworkConfig
}

// Nodes returns a copy of the node list.
func (kb *KnowledgeBase) Nodes() []model.Node {
	return append([]model.Node(nil), kb.ds.FinalNodes...)
}

// Samples returns a copy of the ordered performance timeline.
func (kb *KnowledgeBase) Samples() []model.PerformanceSample {
	return append([]model.PerformanceSample(nil), kb.ds.PerformanceData...)
}

// ClusterStats returns a copy of the cluster aggregates.
func (kb *KnowledgeBase) ClusterStats() []model.ClusterStat {
	return append([]model.ClusterStat(nil), kb.ds.ClusterStats...)
}

// FinalMetrics returns the end-of-run summary.
func (kb *KnowledgeBase) FinalMetrics() model.FinalMetrics {
	return kb.ds.FinalMetrics
}

// Resolve returns the last sample whose step is <= step, or the first
// sample when step precedes the whole timeline. Values are held between
// samples; nothing is interpolated.
func (kb *KnowledgeBase) Resolve(step int) model.PerformanceSample {
	samples := kb.ds.PerformanceData
	// First index whose step is strictly after the query.
	idx := sort.Search(len(samples), func(i int) bool {
		return samples[i].Step > step
	})
	if idx == 0 {
		return samples[0]
	}
	return samples[idx-1]
}

// ActiveNodeCount estimates how many nodes are still up at step by decaying
// the node count with the churn rate, never dropping below the final adaptive
// active-node count.
func (kb *KnowledgeBase) ActiveNodeCount(step int) int {
	total := len(kb.ds.FinalNodes)
	churn := int(math.Floor(float64(step) * kb.ds.NetworkConfig.ChurnRate * float64(total)))
	return max(total-churn, kb.ds.FinalMetrics.ActiveNodesAdaptive)
}

// Validate checks the structural invariants the resolver and formatter rely on.
func Validate(ds *model.Dataset) error {
	if len(ds.PerformanceData) == 0 {
		return ErrEmptyTimeline
	}
	if len(ds.FinalNodes) == 0 {
		return fmt.Errorf("%w: final_nodes must not be empty", ErrInvalidDataset)
	}

	cfg := ds.NetworkConfig
	if !unitInterval(cfg.ChurnRate) {
		return fmt.Errorf("%w: churn_rate must be between 0 and 1, got %g", ErrInvalidDataset, cfg.ChurnRate)
	}
	if !unitInterval(cfg.ConnectionProbability) {
		return fmt.Errorf("%w: connection_probability must be between 0 and 1, got %g", ErrInvalidDataset, cfg.ConnectionProbability)
	}
	if ds.FinalMetrics.ActiveNodesAdaptive < 0 {
		return fmt.Errorf("%w: active_nodes_adaptive cannot be negative", ErrInvalidDataset)
	}

	prev := -1
	for i, s := range ds.PerformanceData {
		if s.Step < 0 {
			return fmt.Errorf("%w: sample %d has negative step %d", ErrInvalidDataset, i, s.Step)
		}
		if s.Step < prev {
			return fmt.Errorf("%w: sample %d (step %d) follows step %d", ErrUnsortedTimeline, i, s.Step, prev)
		}
		prev = s.Step

		for _, m := range []struct {
			name string
			v    float64
		}{
			{"adaptive_resilience", s.AdaptiveResilience},
			{"adaptive_pdr", s.AdaptivePDR},
			{"baseline_resilience", s.BaselineResilience},
			{"baseline_pdr", s.BaselinePDR},
		} {
			if !unitInterval(m.v) {
				return fmt.Errorf("%w: sample %d %s must be between 0 and 1, got %g", ErrInvalidDataset, i, m.name, m.v)
			}
		}
	}
	return nil
}

// unitInterval reports whether v lies in [0, 1]. NaN is rejected.
func unitInterval(v float64) bool {
	return v >= 0 && v <= 1
}
