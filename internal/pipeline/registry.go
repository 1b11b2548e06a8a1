package pipeline

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/neuromap/internal/passes"
)

// Factory builds a pass configured from the driver options.
type Factory func(Options) passes.Pass

// Entry describes one registered pass.
type Entry struct {
	// Factory builds the pass.
	Factory Factory

	// Requires lists passes that must run earlier in the same pipeline.
	Requires []string

	// Summary is a one-line description for listings.
	Summary string
}

// Registry maps pass names to entries. It is built by the caller and passed
// to New; aliases are additional keys sharing an entry.
type Registry map[string]Entry

// Names returns the registered names in sorted order.
func (r Registry) Names() []string {
	return slices.Sorted(maps.Keys(r))
}

// DefaultPasses returns the standard pipeline order.
func DefaultPasses() []string {
	return []string{
		passes.NameValidate,
		passes.NamePartition,
		passes.NamePlacement,
		passes.NameRouting,
		passes.NameTiming,
		passes.NameResourceCheck,
	}
}

// DefaultRegistry returns a fresh registry holding every built-in pass and
// its aliases. Each call returns a new map the caller may modify.
func DefaultRegistry() Registry {
	noop := Entry{
		Factory: func(Options) passes.Pass { return passes.NoOpPass{} },
		Summary: "does nothing",
	}
	resourceCheck := Entry{
		Factory: func(o Options) passes.Pass { return passes.ResourceCheckPass{Policy: o.Policy} },
		Summary: "merge and classify violations",
	}

	quantize := func(bits int) Entry {
		return Entry{
			Factory:  func(Options) passes.Pass { return passes.QuantizePass{Bits: bits} },
			Requires: []string{passes.NameValidate},
			Summary:  fmt.Sprintf("quantize scalar weights to %d bits on [-1, 1]", bits),
		}
	}

	return Registry{
		passes.NameNoOp: noop,
		"noop":          noop,
		passes.NameValidate: {
			Factory: func(Options) passes.Pass { return passes.ValidatePass{} },
			Summary: "check structural invariants",
		},
		passes.NamePartition: {
			Factory:  func(o Options) passes.Pass { return passes.PartitionPass{FailFast: o.FailFast} },
			Requires: []string{passes.NameValidate},
			Summary:  "assign populations to parts",
		},
		passes.NamePlacement: {
			Factory:  func(Options) passes.Pass { return passes.PlacementPass{} },
			Requires: []string{passes.NamePartition},
			Summary:  "estimate per-part memory, synapses and fan-in/out",
		},
		passes.NameRouting: {
			Factory:  func(Options) passes.Pass { return passes.RoutingPass{} },
			Requires: []string{passes.NamePartition},
			Summary:  "estimate cross-part interconnect bandwidth",
		},
		passes.NameTiming: {
			Factory:  func(o Options) passes.Pass { return passes.TimingPass{MaxDelayTicks: o.MaxDelayTicks} },
			Requires: []string{passes.NameValidate},
			Summary:  "discretize delays into tick schedules",
		},
		passes.NameQuantize4:     quantize(4),
		passes.NameQuantize8:     quantize(8),
		passes.NameQuantize16:    quantize(16),
		passes.NameResourceCheck: resourceCheck,
		"resource_check":         resourceCheck,
	}
}
