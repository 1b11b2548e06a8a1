package passes

import "github.com/roach88/neuromap/internal/ir"

// GraphMetrics summarizes the shape of a network.
type GraphMetrics struct {
	Nodes     int     `json:"nodes" yaml:"nodes"`
	Edges     int     `json:"edges" yaml:"edges"`
	Neurons   int64   `json:"neurons" yaml:"neurons"`
	Synapses  int64   `json:"synapses" yaml:"synapses"`
	AvgFanIn  float64 `json:"avg_fan_in" yaml:"avg_fan_in"`
	AvgFanOut float64 `json:"avg_fan_out" yaml:"avg_fan_out"`
	MaxFanIn  int64   `json:"max_fan_in" yaml:"max_fan_in"`
	MaxFanOut int64   `json:"max_fan_out" yaml:"max_fan_out"`
}

// ComputeMetrics returns population-level graph metrics. Fan-in and fan-out
// count projections, so averages are edges/nodes for a well-formed graph.
// An empty network yields all zeros.
func ComputeMetrics(net *ir.Network) GraphMetrics {
	index := net.PopulationIndex()
	in, out := fanCounts(net, index)

	m := GraphMetrics{
		Nodes:   len(net.Populations),
		Edges:   len(net.Projections),
		Neurons: net.TotalNeurons(),
	}
	for i := range net.Projections {
		m.Synapses += net.Synapses(&net.Projections[i], index)
	}

	var sumIn, sumOut int64
	for i := range in {
		sumIn += in[i]
		sumOut += out[i]
		m.MaxFanIn = max(m.MaxFanIn, in[i])
		m.MaxFanOut = max(m.MaxFanOut, out[i])
	}
	if m.Nodes > 0 {
		m.AvgFanIn = float64(sumIn) / float64(m.Nodes)
		m.AvgFanOut = float64(sumOut) / float64(m.Nodes)
	}
	return m
}

// fanCounts returns incoming and outgoing projection counts per population,
// indexed like net.Populations. Dangling endpoints are ignored.
func fanCounts(net *ir.Network, index map[string]int) (in, out []int64) {
	in = make([]int64, len(net.Populations))
	out = make([]int64, len(net.Populations))
	for _, proj := range net.Projections {
		if s, ok := index[proj.Src]; ok {
			out[s]++
		}
		if d, ok := index[proj.Dst]; ok {
			in[d]++
		}
	}
	return in, out
}
