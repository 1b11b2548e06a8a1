package manifest

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/neuromap/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// Manifest is a decoded target manifest.
type Manifest struct {
	Name         string       `json:"name"`
	Vendor       string       `json:"vendor"`
	Family       string       `json:"family,omitempty"`
	Version      string       `json:"version,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	Capabilities Capabilities `json:"capabilities"`

	// Path is the file the manifest was read from, empty for in-memory
	// sources.
	Path string `json:"-"`
}

// Capabilities is the manifest capability block. Pointer fields are
// absent when nil.
type Capabilities struct {
	MaxNeuronsPerCore         *int64   `json:"max_neurons_per_core,omitempty"`
	MaxSynapsesPerCore        *int64   `json:"max_synapses_per_core,omitempty"`
	MaxFanIn                  *int64   `json:"max_fan_in,omitempty"`
	MaxFanOut                 *int64   `json:"max_fan_out,omitempty"`
	CoreMemoryKiB             *float64 `json:"core_memory_kib,omitempty"`
	InterconnectBandwidthMbps *float64 `json:"interconnect_bandwidth_mbps,omitempty"`
	TimeResolutionNs          *int64   `json:"time_resolution_ns,omitempty"`
	NeuronMemKiBPer           *float64 `json:"neuron_mem_kib_per,omitempty"`
	SynMemKiBPer              *float64 `json:"syn_mem_kib_per,omitempty"`
	BytesPerEvent             *int64   `json:"bytes_per_event,omitempty"`
	DefaultSpikeRateHz        *float64 `json:"default_spike_rate_hz,omitempty"`

	WeightPrecisions      []int64  `json:"weight_precisions,omitempty"`
	NeuronModels          []string `json:"neuron_models,omitempty"`
	OnChipLearning        *bool    `json:"on_chip_learning,omitempty"`
	OnChipPlasticityRules []string `json:"on_chip_plasticity_rules,omitempty"`
	SupportsSparse        *bool    `json:"supports_sparse,omitempty"`
	Analog                *bool    `json:"analog,omitempty"`
}

// Snapshot flattens the capabilities for the pipeline.
func (m *Manifest) Snapshot() ir.Capabilities {
	c := m.Capabilities
	return ir.Capabilities{
		MaxNeuronsPerCore:         opt(c.MaxNeuronsPerCore),
		MaxSynapsesPerCore:        opt(c.MaxSynapsesPerCore),
		MaxFanIn:                  opt(c.MaxFanIn),
		MaxFanOut:                 opt(c.MaxFanOut),
		CoreMemoryKiB:             opt(c.CoreMemoryKiB),
		InterconnectBandwidthMbps: opt(c.InterconnectBandwidthMbps),
		TimeResolutionNs:          opt(c.TimeResolutionNs),
		NeuronMemKiBPer:           opt(c.NeuronMemKiBPer),
		SynMemKiBPer:              opt(c.SynMemKiBPer),
		BytesPerEvent:             opt(c.BytesPerEvent),
		DefaultSpikeRateHz:        opt(c.DefaultSpikeRateHz),
	}
}

func opt[T ir.Number](p *T) ir.Opt[T] {
	if p == nil {
		return ir.Opt[T]{}
	}
	return ir.Some(*p)
}

// LoadError is a manifest error with source position when available.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadFile reads and validates a manifest file.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	m.Path = path
	return m, nil
}

// Parse compiles CUE source, unifies its target with the schema and
// decodes it. filename is used in error positions.
func Parse(src []byte, filename string) (*Manifest, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("manifest schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	target := v.LookupPath(cue.ParsePath("target"))
	if !target.Exists() {
		return nil, &LoadError{Field: "target", Message: "target is required", Pos: v.Pos()}
	}

	unified := schema.LookupPath(cue.ParsePath("#Manifest")).Unify(target)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var m Manifest
	if err := unified.Decode(&m); err != nil {
		return nil, formatCUEError(err)
	}
	return &m, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info, preferring the manifest
	// file over the embedded schema.
	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) == 0 {
		return err
	}
	pos := positions[0]
	for _, p := range positions {
		if p.Filename() != "schema.cue" {
			pos = p
			break
		}
	}
	return &LoadError{
		Field:   "cue",
		Message: first.Error(),
		Pos:     pos,
	}
}
