package ir

// Report is the typed result a pass leaves in the Annotations side-table.
type Report interface {
	// PassName identifies the pass that produced the report.
	PassName() string
}

// ViolationKind classifies violations by the resource they concern.
type ViolationKind string

const (
	KindCapacity ViolationKind = "capacity"
	KindRouting  ViolationKind = "routing"
	KindTiming   ViolationKind = "timing"
)

// Violation codes. Codes are stable identifiers; collaborators render them.
const (
	CodePopulationExceedsCore   = "PopulationExceedsCore"
	CodeColocationUnsatisfied   = "ColocationUnsatisfied"
	CodeCoreMemoryExceeded      = "CoreMemoryExceeded"
	CodeSynapseCapacityExceeded = "SynapseCapacityExceeded"
	CodeFanInExceeded           = "FanInExceeded"
	CodeFanOutExceeded          = "FanOutExceeded"
	CodeBandwidthExceeded       = "BandwidthExceeded"
	CodeDelayOutOfRange         = "DelayOutOfRange"
)

// ViolationCodes returns every violation code in a fixed order.
func ViolationCodes() []string {
	return []string{
		CodePopulationExceedsCore,
		CodeColocationUnsatisfied,
		CodeCoreMemoryExceeded,
		CodeSynapseCapacityExceeded,
		CodeFanInExceeded,
		CodeFanOutExceeded,
		CodeBandwidthExceeded,
		CodeDelayOutOfRange,
	}
}

// NoPart marks a violation that is network-wide rather than tied to a part.
const NoPart = -1

// Violation is one collected capacity, routing or timing finding.
// Violations are values in reports; they are never returned as errors.
type Violation struct {
	Code     string        `json:"code" yaml:"code"`
	Kind     ViolationKind `json:"kind" yaml:"kind"`
	Part     int           `json:"part" yaml:"part"`                             // NoPart when network-wide
	Subject  string        `json:"subject,omitempty" yaml:"subject,omitempty"`   // population or projection id
	Subjects []string      `json:"subjects,omitempty" yaml:"subjects,omitempty"` // all named elements, sorted
	Value    float64       `json:"value" yaml:"value"`
	Limit    float64       `json:"limit" yaml:"limit"`
	Message  string        `json:"message" yaml:"message"`
}

// StructuralError is one structural finding of the validate pass.
type StructuralError struct {
	Code    string `json:"code" yaml:"code"`
	Field   string `json:"field" yaml:"field"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// Error implements the error interface.
func (e StructuralError) Error() string {
	return "[" + e.Code + "] " + e.Field + ": " + e.Message
}

// ValidationReport is the validate pass result and doubles as the
// "validated" marker in the side-table.
type ValidationReport struct {
	Valid  bool              `json:"valid" yaml:"valid"`
	Errors []StructuralError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func (*ValidationReport) PassName() string { return "validate" }

// PartAssignment maps one population to its part.
type PartAssignment struct {
	Population string `json:"population" yaml:"population"`
	Part       int    `json:"part" yaml:"part"`
}

// PartitionPlan is the total population → part mapping.
// Assignment holds exactly one entry per population, in population
// declaration order. A plan is never modified once produced.
type PartitionPlan struct {
	Parts      int              `json:"parts" yaml:"parts"`
	Strategy   string           `json:"strategy" yaml:"strategy"` // "cap-aware" or "single"
	Assignment []PartAssignment `json:"assignment" yaml:"assignment"`
	Loads      []int64          `json:"loads" yaml:"loads"` // neurons per part
	Violations []Violation      `json:"violations,omitempty" yaml:"violations,omitempty"`
}

func (*PartitionPlan) PassName() string { return "partition" }

// Index returns a fresh population id → part map.
func (p *PartitionPlan) Index() map[string]int {
	idx := make(map[string]int, len(p.Assignment))
	for _, a := range p.Assignment {
		idx[a.Population] = a.Part
	}
	return idx
}

// PartOf returns the part index of a population.
func (p *PartitionPlan) PartOf(pop string) (int, bool) {
	for _, a := range p.Assignment {
		if a.Population == pop {
			return a.Part, true
		}
	}
	return 0, false
}

// PopulationStat is a per-population count.
type PopulationStat struct {
	Population string `json:"population" yaml:"population"`
	Count      int64  `json:"count" yaml:"count"`
}

// PlacementReport holds per-part resource estimates.
type PlacementReport struct {
	MemoryKiB  []float64        `json:"memory_kib" yaml:"memory_kib"` // indexed by part
	Synapses   []int64          `json:"synapses" yaml:"synapses"`     // destination-charged, indexed by part
	FanIn      []PopulationStat `json:"fan_in" yaml:"fan_in"`
	FanOut     []PopulationStat `json:"fan_out" yaml:"fan_out"`
	Violations []Violation      `json:"violations,omitempty" yaml:"violations,omitempty"`
}

func (*PlacementReport) PassName() string { return "placement" }

// PartPair is the directed cross traffic from one part to another.
type PartPair struct {
	Src         int      `json:"src" yaml:"src"`
	Dst         int      `json:"dst" yaml:"dst"`
	Mbps        float64  `json:"mbps" yaml:"mbps"`
	Projections []string `json:"projections" yaml:"projections"`
}

// RoutingReport holds the closed-form interconnect demand estimate.
type RoutingReport struct {
	Pairs            []PartPair  `json:"pairs" yaml:"pairs"` // sorted by (src, dst)
	CrossProjections []string    `json:"cross_projections" yaml:"cross_projections"`
	TotalMbps        float64     `json:"total_mbps" yaml:"total_mbps"`
	Violations       []Violation `json:"violations,omitempty" yaml:"violations,omitempty"`
}

func (*RoutingReport) PassName() string { return "routing" }

// TickEntry is the discretized delay of one projection.
type TickEntry struct {
	Projection    string `json:"projection" yaml:"projection"`
	SimTicks      int64  `json:"sim_ticks" yaml:"sim_ticks"`
	HardwareTicks *int64 `json:"hardware_ticks,omitempty" yaml:"hardware_ticks,omitempty"`
}

// TimingReport holds the tick schedules.
type TimingReport struct {
	Entries    []TickEntry `json:"entries" yaml:"entries"`
	Violations []Violation `json:"violations,omitempty" yaml:"violations,omitempty"`
}

func (*TimingReport) PassName() string { return "timing" }

// Ticks returns the entry for a projection.
func (r *TimingReport) Ticks(projection string) (TickEntry, bool) {
	for _, e := range r.Entries {
		if e.Projection == projection {
			return e, true
		}
	}
	return TickEntry{}, false
}

// QuantizedWeight is the grid value of one projection's scalar weight.
type QuantizedWeight struct {
	Projection string  `json:"projection" yaml:"projection"`
	Weight     float64 `json:"weight" yaml:"weight"`
	Quantized  float64 `json:"quantized" yaml:"quantized"`
	Error      float64 `json:"error" yaml:"error"` // |quantized - weight|
}

// QuantizationReport maps scalar weights onto a symmetric [-1, 1] grid.
// The network keeps its weights; consumers read the quantized values here.
type QuantizationReport struct {
	Bits     int               `json:"bits" yaml:"bits"`
	Levels   float64           `json:"levels" yaml:"levels"`
	Weights  []QuantizedWeight `json:"weights" yaml:"weights"`
	Skipped  []string          `json:"skipped,omitempty" yaml:"skipped,omitempty"` // non-scalar weight descriptors
	MaxError float64           `json:"max_error" yaml:"max_error"`
}

func (*QuantizationReport) PassName() string { return "quantize" }

// Quantized returns the entry for a projection.
func (r *QuantizationReport) Quantized(projection string) (QuantizedWeight, bool) {
	for _, w := range r.Weights {
		if w.Projection == projection {
			return w, true
		}
	}
	return QuantizedWeight{}, false
}

// Severity classifies a merged violation.
type Severity string

const (
	SeverityWarning  Severity = "Warning"
	SeverityBlocking Severity = "Blocking"
)

// ResourceEntry is one classified violation in the merged report.
type ResourceEntry struct {
	Violation `yaml:",inline"`
	Pass      string   `json:"pass" yaml:"pass"`
	Severity  Severity `json:"severity" yaml:"severity"`
}

// ResourceReport is the merged, ordered, classified violation report.
// A code generator must treat any Blocking entry as a hard stop.
type ResourceReport struct {
	Entries   []ResourceEntry `json:"entries" yaml:"entries"`
	Succeeded bool            `json:"succeeded" yaml:"succeeded"`
}

func (*ResourceReport) PassName() string { return "resource-check" }

// Blocking returns the Blocking entries.
func (r *ResourceReport) Blocking() []ResourceEntry {
	var out []ResourceEntry
	for _, e := range r.Entries {
		if e.Severity == SeverityBlocking {
			out = append(out, e)
		}
	}
	return out
}

// NoOpReport is produced by the no-op pass.
type NoOpReport struct{}

func (*NoOpReport) PassName() string { return "no-op" }
