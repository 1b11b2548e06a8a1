package ir

import "math"

// ConnectivityMode is the connection pattern of a projection.
type ConnectivityMode string

const (
	ConnectivityDense  ConnectivityMode = "dense"
	ConnectivitySparse ConnectivityMode = "sparse"
)

// TransmissionKind is how activity travels along a projection.
type TransmissionKind string

const (
	TransmissionSpike  TransmissionKind = "spike"
	TransmissionRate   TransmissionKind = "rate"
	TransmissionAnalog TransmissionKind = "analog"
)

// ValidTransmissionKinds defines allowed transmission kinds.
// The empty kind is accepted and treated as spike.
var ValidTransmissionKinds = map[TransmissionKind]bool{
	"":                 true,
	TransmissionSpike:  true,
	TransmissionRate:   true,
	TransmissionAnalog: true,
}

// Network is the hardware-independent graph handed to the pipeline.
//
// Populations and Projections are ordered; every pass iterates them in
// declaration order. Attributes is the open annotation map carried in from
// the graph file. Passes never delete or rename keys in it.
type Network struct {
	Name        string         `json:"name" yaml:"name"`
	DT          float64        `json:"dt" yaml:"dt"` // seconds, must be > 0
	Populations []Population   `json:"populations" yaml:"populations"`
	Projections []Projection   `json:"projections" yaml:"projections"`
	Attributes  map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Population is a homogeneous group of neuron-like units.
type Population struct {
	ID     string          `json:"id" yaml:"id"`
	Size   int64           `json:"size" yaml:"size"`
	Model  string          `json:"model" yaml:"model"` // neuron type tag, e.g. "LIF"
	Params map[string]any  `json:"params,omitempty" yaml:"params,omitempty"`
	Hints  PopulationHints `json:"hints,omitzero" yaml:"hints,omitempty"`
}

// PopulationHints are optional resource hints supplied by the model author.
type PopulationHints struct {
	MemoryEstimateBytes *int64   `json:"memory_estimate_bytes,omitempty" yaml:"memory_estimate_bytes,omitempty"`
	ColocateWith        []string `json:"colocate_with,omitempty" yaml:"colocate_with,omitempty"`
	ShardPreference     *int     `json:"shard_preference,omitempty" yaml:"shard_preference,omitempty"` // part index, breaks equal-load ties
	SpikeRateHz         *float64 `json:"spike_rate_hz,omitempty" yaml:"spike_rate_hz,omitempty"`
}

// IsZero reports whether no hint is set.
func (h PopulationHints) IsZero() bool {
	return h.MemoryEstimateBytes == nil && len(h.ColocateWith) == 0 &&
		h.ShardPreference == nil && h.SpikeRateHz == nil
}

// Projection is directed, weighted and delayed connectivity between two
// populations.
type Projection struct {
	ID           string           `json:"id" yaml:"id"`
	Src          string           `json:"src" yaml:"src"`
	Dst          string           `json:"dst" yaml:"dst"`
	Connectivity Connectivity     `json:"connectivity" yaml:"connectivity"`
	Weight       Weight           `json:"weight,omitzero" yaml:"weight,omitempty"`
	Delay        Delay            `json:"delay,omitzero" yaml:"delay,omitempty"`
	Plasticity   string           `json:"plasticity,omitempty" yaml:"plasticity,omitempty"`
	Transmission TransmissionKind `json:"transmission,omitempty" yaml:"transmission,omitempty"`
	SpikeRateHz  *float64         `json:"spike_rate_hz,omitempty" yaml:"spike_rate_hz,omitempty"`
}

// Connectivity describes how many synapses a projection instantiates.
type Connectivity struct {
	Mode ConnectivityMode `json:"mode" yaml:"mode"`
	// Density is the connection probability for sparse projections, in (0, 1].
	Density float64 `json:"density,omitempty" yaml:"density,omitempty"`
	// EdgeCount overrides the derived synapse count when set.
	EdgeCount *int64 `json:"edge_count,omitempty" yaml:"edge_count,omitempty"`
}

// Weight is an opaque weight descriptor. The pipeline never inspects values.
type Weight struct {
	Kind   string         `json:"kind,omitempty" yaml:"kind,omitempty"` // "constant", "normal", "matrix", ...
	Value  float64        `json:"value,omitempty" yaml:"value,omitempty"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// IsZero reports whether the descriptor is empty.
func (w Weight) IsZero() bool {
	return w.Kind == "" && w.Value == 0 && len(w.Params) == 0
}

// Delay is either a continuous delay in seconds or an explicit tick count.
// Neither set means zero delay.
type Delay struct {
	Seconds *float64 `json:"seconds,omitempty" yaml:"seconds,omitempty"`
	Ticks   *int64   `json:"ticks,omitempty" yaml:"ticks,omitempty"`
}

// IsZero reports whether no delay is declared.
func (d Delay) IsZero() bool {
	return d.Seconds == nil && d.Ticks == nil
}

// DelaySeconds returns a Delay of s seconds.
func DelaySeconds(s float64) Delay {
	return Delay{Seconds: &s}
}

// DelayTicks returns a Delay of n ticks.
func DelayTicks(n int64) Delay {
	return Delay{Ticks: &n}
}

// PopulationIndex maps population id to its position in net.Populations.
// Duplicate ids keep the first occurrence.
func (net *Network) PopulationIndex() map[string]int {
	idx := make(map[string]int, len(net.Populations))
	for i, p := range net.Populations {
		if _, ok := idx[p.ID]; !ok {
			idx[p.ID] = i
		}
	}
	return idx
}

// Population returns the population with the given id.
func (net *Network) Population(id string) (*Population, bool) {
	for i := range net.Populations {
		if net.Populations[i].ID == id {
			return &net.Populations[i], true
		}
	}
	return nil, false
}

// TotalNeurons returns the sum of all population sizes.
func (net *Network) TotalNeurons() int64 {
	var total int64
	for _, p := range net.Populations {
		total += p.Size
	}
	return total
}

// SynapseCount returns the number of synapses (edges) the projection
// instantiates between populations of the given sizes.
//
//   - explicit EdgeCount wins
//   - dense: srcSize × dstSize
//   - sparse: ceil(Density × srcSize × dstSize)
func (p *Projection) SynapseCount(srcSize, dstSize int64) int64 {
	if p.Connectivity.EdgeCount != nil {
		return max(*p.Connectivity.EdgeCount, 0)
	}
	full := srcSize * dstSize
	if p.Connectivity.Mode == ConnectivitySparse {
		return int64(math.Ceil(p.Connectivity.Density * float64(full)))
	}
	return full
}

// Synapses returns the synapse count of a projection of this network.
// Dangling endpoints count as size zero.
func (net *Network) Synapses(p *Projection, index map[string]int) int64 {
	var srcSize, dstSize int64
	if i, ok := index[p.Src]; ok {
		srcSize = net.Populations[i].Size
	}
	if i, ok := index[p.Dst]; ok {
		dstSize = net.Populations[i].Size
	}
	return p.SynapseCount(srcSize, dstSize)
}
