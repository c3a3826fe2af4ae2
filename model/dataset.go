package model

// NetworkConfig captures the simulation parameters the experiment ran with.
// It is read-only once loaded.
type NetworkConfig struct {
	NumNodes              int     `json:"num_nodes" yaml:"num_nodes"`
	ConnectionProbability float64 `json:"connection_probability" yaml:"connection_probability"`
	GenerationSize        int     `json:"generation_size" yaml:"generation_size"`
	ChurnRate             float64 `json:"churn_rate" yaml:"churn_rate"`
	FiniteFieldSize       int     `json:"finite_field_size" yaml:"finite_field_size"`
}

// Node is a single surviving node at the end of the experiment.
type Node struct {
	ID        int     `json:"node_id" yaml:"node_id"`
	Active    bool    `json:"is_active" yaml:"is_active"`
	Bandwidth float64 `json:"bandwidth" yaml:"bandwidth"`
	Latency   float64 `json:"latency" yaml:"latency"`
	EWMAPDR   float64 `json:"ewma_pdr" yaml:"ewma_pdr"`
	ClusterID int     `json:"cluster_id" yaml:"cluster_id"`
}

// PerformanceSample is one sparse point of the precomputed timeline. Values
// hold until the next sample.
type PerformanceSample struct {
	Step               int     `json:"step" yaml:"step"`
	AdaptiveResilience float64 `json:"adaptive_resilience" yaml:"adaptive_resilience"`
	AdaptivePDR        float64 `json:"adaptive_pdr" yaml:"adaptive_pdr"`
	BaselineResilience float64 `json:"baseline_resilience" yaml:"baseline_resilience"`
	BaselinePDR        float64 `json:"baseline_pdr" yaml:"baseline_pdr"`
}

// ClusterStat is the aggregate view of one node cluster.
type ClusterStat struct {
	ClusterID    int     `json:"cluster_id" yaml:"cluster_id"`
	Nodes        int     `json:"nodes" yaml:"nodes"`
	AvgBandwidth float64 `json:"avg_bandwidth" yaml:"avg_bandwidth"`
	AvgPDR       float64 `json:"avg_pdr" yaml:"avg_pdr"`
}

// FinalMetrics summarises the end state of the adaptive and baseline runs.
type FinalMetrics struct {
	ActiveNodesAdaptive   int     `json:"active_nodes_adaptive" yaml:"active_nodes_adaptive"`
	ActiveNodesBaseline   int     `json:"active_nodes_baseline" yaml:"active_nodes_baseline"`
	ResilienceImprovement float64 `json:"resilience_improvement" yaml:"resilience_improvement"`
	PDRImprovement        float64 `json:"pdr_improvement" yaml:"pdr_improvement"`
	RedundancyImprovement float64 `json:"redundancy_improvement" yaml:"redundancy_improvement"`
}

// Dataset is the full static experiment result the dashboard displays.
type Dataset struct {
	NetworkConfig   NetworkConfig       `json:"network_config" yaml:"network_config"`
	FinalNodes      []Node              `json:"final_nodes" yaml:"final_nodes"`
	PerformanceData []PerformanceSample `json:"performance_data" yaml:"performance_data"`
	ClusterStats    []ClusterStat       `json:"cluster_stats" yaml:"cluster_stats"`
	FinalMetrics    FinalMetrics        `json:"final_metrics" yaml:"final_metrics"`
}

// Clone returns a deep copy so callers can hand the dataset out without
// exposing the backing slices.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	out := *d
	out.FinalNodes = append([]Node(nil), d.FinalNodes...)
	out.PerformanceData = append([]PerformanceSample(nil), d.PerformanceData...)
	out.ClusterStats = append([]ClusterStat(nil), d.ClusterStats...)
	return &out
}
