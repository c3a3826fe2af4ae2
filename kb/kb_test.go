package kb

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/signalsfoundry/rlnc-dashboard/model"
)

func mustDefault(t *testing.T) *KnowledgeBase {
	t.Helper()
	store, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	return store
}

// churnDataset has 30 nodes, churn 0.02, and a floor of 12 active nodes.
func churnDataset() *model.Dataset {
	nodes := make([]model.Node, 30)
	for i := range nodes {
		nodes[i] = model.Node{ID: i, Active: true, Bandwidth: 100}
	}
	return &model.Dataset{
		NetworkConfig: model.NetworkConfig{NumNodes: 30, ChurnRate: 0.02, ConnectionProbability: 0.3},
		FinalNodes:    nodes,
		PerformanceData: []model.PerformanceSample{
			{Step: 0, AdaptiveResilience: 1, AdaptivePDR: 0.9, BaselineResilience: 1, BaselinePDR: 0.9},
		},
		FinalMetrics: model.FinalMetrics{ActiveNodesAdaptive: 12},
	}
}

func TestResolveHoldsLastSampleAtOrBefore(t *testing.T) {
	store := mustDefault(t)

	cases := []struct {
		step int
		want int
	}{
		{0, 0},
		{5, 0},
		{9, 0},
		{10, 10},
		{25, 20},
		{39, 30},
		{48, 40},
		{49, 49},
	}
	for _, tc := range cases {
		if got := store.Resolve(tc.step).Step; got != tc.want {
			t.Fatalf("Resolve(%d).Step = %d, want %d", tc.step, got, tc.want)
		}
	}
}

func TestResolveMatchesLinearScanForWholeRange(t *testing.T) {
	store := mustDefault(t)
	samples := store.Samples()

	for step := 0; step <= 49; step++ {
		want := samples[0]
		for _, s := range samples {
			if s.Step <= step {
				want = s
			} else {
				break
			}
		}
		if got := store.Resolve(step); got != want {
			t.Fatalf("Resolve(%d) = %+v, want %+v", step, got, want)
		}
	}
}

func TestResolveBeforeFirstSampleReturnsFirst(t *testing.T) {
	ds := churnDataset()
	ds.PerformanceData = []model.PerformanceSample{
		{Step: 5, AdaptivePDR: 0.5},
		{Step: 15, AdaptivePDR: 0.6},
	}
	store, err := NewKnowledgeBase(ds)
	if err != nil {
		t.Fatalf("NewKnowledgeBase error: %v", err)
	}
	if got := store.Resolve(2); got.Step != 5 {
		t.Fatalf("Resolve(2).Step = %d, want 5", got.Step)
	}
	if got := store.Resolve(1000); got.Step != 15 {
		t.Fatalf("Resolve(1000).Step = %d, want 15", got.Step)
	}
}

func TestResolveDuplicateStepsPicksLast(t *testing.T) {
	ds := churnDataset()
	ds.PerformanceData = []model.PerformanceSample{
		{Step: 0, AdaptivePDR: 0.1},
		{Step: 10, AdaptivePDR: 0.2},
		{Step: 10, AdaptivePDR: 0.3},
	}
	store, err := NewKnowledgeBase(ds)
	if err != nil {
		t.Fatalf("NewKnowledgeBase error: %v", err)
	}
	if got := store.Resolve(12).AdaptivePDR; got != 0.3 {
		t.Fatalf("Resolve(12).AdaptivePDR = %v, want 0.3", got)
	}
}

func TestActiveNodeCountAtStepZeroIsTotal(t *testing.T) {
	store, err := NewKnowledgeBase(churnDataset())
	if err != nil {
		t.Fatalf("NewKnowledgeBase error: %v", err)
	}
	if got := store.ActiveNodeCount(0); got != 30 {
		t.Fatalf("ActiveNodeCount(0) = %d, want 30", got)
	}
	// 7 * 0.02 * 30 = 4.2 -> 4 nodes churned.
	if got := store.ActiveNodeCount(7); got != 26 {
		t.Fatalf("ActiveNodeCount(7) = %d, want 26", got)
	}
	// 33 * 0.02 * 30 = 19.8 -> 19 churned, clamped to the floor.
	if got := store.ActiveNodeCount(33); got != 12 {
		t.Fatalf("ActiveNodeCount(33) = %d, want 12", got)
	}
}

func TestActiveNodeCountMonotonicUntilFloor(t *testing.T) {
	store, err := NewKnowledgeBase(churnDataset())
	if err != nil {
		t.Fatalf("NewKnowledgeBase error: %v", err)
	}

	prev := store.ActiveNodeCount(0)
	reachedFloor := false
	for step := 1; step <= 100; step++ {
		got := store.ActiveNodeCount(step)
		if got > prev {
			t.Fatalf("ActiveNodeCount(%d) = %d increased from %d", step, got, prev)
		}
		if reachedFloor && got != 12 {
			t.Fatalf("ActiveNodeCount(%d) = %d after reaching floor, want 12", step, got)
		}
		if got == 12 {
			reachedFloor = true
		}
		prev = got
	}
	if !reachedFloor {
		t.Fatalf("expected the floor to be reached within 100 steps")
	}
}

func TestActiveNodeCountDefaultDatasetStaysAtFloor(t *testing.T) {
	store := mustDefault(t)
	// The shipped dataset keeps 12 nodes and a floor of 12.
	for _, step := range []int{0, 10, 49} {
		if got := store.ActiveNodeCount(step); got != 12 {
			t.Fatalf("ActiveNodeCount(%d) = %d, want 12", step, got)
		}
	}
}

func TestValidateRejectsBadDatasets(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*model.Dataset)
		want   error
	}{
		{"empty timeline", func(ds *model.Dataset) { ds.PerformanceData = nil }, ErrEmptyTimeline},
		{"unsorted", func(ds *model.Dataset) {
			ds.PerformanceData = []model.PerformanceSample{{Step: 10}, {Step: 5}}
		}, ErrUnsortedTimeline},
		{"negative step", func(ds *model.Dataset) {
			ds.PerformanceData = []model.PerformanceSample{{Step: -1}}
		}, ErrInvalidDataset},
		{"pdr out of range", func(ds *model.Dataset) { ds.PerformanceData[0].AdaptivePDR = 1.5 }, ErrInvalidDataset},
		{"churn out of range", func(ds *model.Dataset) { ds.NetworkConfig.ChurnRate = 2 }, ErrInvalidDataset},
		{"resilience NaN", func(ds *model.Dataset) { ds.PerformanceData[0].AdaptiveResilience = math.NaN() }, ErrInvalidDataset},
		{"churn NaN", func(ds *model.Dataset) { ds.NetworkConfig.ChurnRate = math.NaN() }, ErrInvalidDataset},
		{"connection probability NaN", func(ds *model.Dataset) {
			ds.NetworkConfig.ConnectionProbability = math.NaN()
		}, ErrInvalidDataset},
		{"no nodes", func(ds *model.Dataset) { ds.FinalNodes = nil }, ErrInvalidDataset},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ds := churnDataset()
			tc.mutate(ds)
			if _, err := NewKnowledgeBase(ds); !errors.Is(err, tc.want) {
				t.Fatalf("NewKnowledgeBase error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestValidateReportsFirstBadMetricInFieldOrder(t *testing.T) {
	ds := churnDataset()
	ds.PerformanceData[0].AdaptiveResilience = 2
	ds.PerformanceData[0].AdaptivePDR = -1
	ds.PerformanceData[0].BaselinePDR = 3

	for range 20 {
		err := Validate(ds)
		if err == nil || !strings.Contains(err.Error(), "adaptive_resilience") {
			t.Fatalf("Validate error = %v, want adaptive_resilience reported first", err)
		}
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	store := mustDefault(t)

	nodes := store.Nodes()
	nodes[0].Bandwidth = -1
	if store.Nodes()[0].Bandwidth == -1 {
		t.Fatalf("Nodes() leaked the backing slice")
	}

	ds := store.Dataset()
	ds.PerformanceData[0].AdaptivePDR = 0
	if store.Resolve(0).AdaptivePDR == 0 {
		t.Fatalf("Dataset() leaked the backing timeline")
	}
}

func TestNewKnowledgeBaseNil(t *testing.T) {
	if _, err := NewKnowledgeBase(nil); !errors.Is(err, ErrInvalidDataset) {
		t.Fatalf("NewKnowledgeBase(nil) error = %v, want ErrInvalidDataset", err)
	}
}
