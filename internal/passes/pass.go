package passes

import (
	"errors"
	"fmt"

	"github.com/roach88/neuromap/internal/ir"
)

// Pass is one stage of the mapping pipeline.
type Pass interface {
	// Name is the registry name of the pass.
	Name() string

	// Run computes the pass report. It may read net, caps and reports of
	// earlier passes in ann, and must not modify any of them.
	Run(net *ir.Network, caps ir.Capabilities, ann *ir.Annotations) (ir.Report, error)
}

// Pass names.
const (
	NameNoOp          = "no-op"
	NameValidate      = "validate"
	NamePartition     = "partition"
	NamePlacement     = "placement"
	NameRouting       = "routing"
	NameTiming        = "timing"
	NameResourceCheck = "resource-check"
)

// ErrMissingReport is returned when a pass needs the report of a pass that
// has not run.
var ErrMissingReport = errors.New("required report missing")

func missingReport(pass, needs string) error {
	return fmt.Errorf("%s: %w: %s", pass, ErrMissingReport, needs)
}

// Conservative defaults for absent capability fields.
const (
	// DefaultNeuronMemKiB is the per-neuron state cost (128 bytes).
	DefaultNeuronMemKiB = 0.125

	// DefaultSynMemKiB is the per-synapse cost (8 bytes).
	DefaultSynMemKiB = 0.0078125

	// DefaultBytesPerEvent is the interconnect payload of one event.
	DefaultBytesPerEvent = 4

	// DefaultSpikeRateHz is the mean event rate assumed per edge.
	DefaultSpikeRateHz = 10.0
)

// NoOpPass does nothing. Useful for exercising the driver.
type NoOpPass struct{}

func (NoOpPass) Name() string { return NameNoOp }

func (NoOpPass) Run(*ir.Network, ir.Capabilities, *ir.Annotations) (ir.Report, error) {
	return &ir.NoOpReport{}, nil
}
