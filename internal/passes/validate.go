package passes

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/neuromap/internal/ir"
)

// Structural error codes (S100-S199)
const (
	// Network errors (S100)
	ErrInvalidDT = "S100" // dt must be finite and > 0

	// Population errors (S101-S109)
	ErrPopulationIDEmpty   = "S101" // id is required
	ErrDuplicatePopulation = "S102" // population id used twice
	ErrInvalidSize         = "S103" // size must be > 0
	ErrModelEmpty          = "S104" // neuron type tag is required

	// Projection errors (S110-S119)
	ErrProjectionIDEmpty     = "S110" // id is required
	ErrDuplicateProjection   = "S111" // projection id used twice
	ErrDanglingSource        = "S112" // src references no population
	ErrDanglingDestination   = "S113" // dst references no population
	ErrInvalidConnectivity   = "S114" // unknown mode, density or edge count
	ErrInvalidDelay          = "S115" // negative, non-finite or doubly specified
	ErrInvalidTransmission   = "S116" // unknown transmission kind
	ErrInvalidProjectionHint = "S117" // non-positive spike rate

	// Hint errors (S120-S129)
	ErrDanglingColocation = "S120" // colocate_with references no population
	ErrInvalidHint        = "S121" // negative memory estimate or non-positive rate
)

// ValidatePass checks structural invariants and collects every finding in
// input order (does not fail-fast). Its report is the "validated" marker
// later passes rely on for referential integrity.
type ValidatePass struct{}

func (ValidatePass) Name() string { return NameValidate }

func (ValidatePass) Run(net *ir.Network, _ ir.Capabilities, _ *ir.Annotations) (ir.Report, error) {
	errs := Validate(net)
	return &ir.ValidationReport{Valid: len(errs) == 0, Errors: errs}, nil
}

// Validate returns all structural errors of a network.
func Validate(net *ir.Network) []ir.StructuralError {
	var errs []ir.StructuralError

	// S100: dt must be positive
	if math.IsNaN(net.DT) || math.IsInf(net.DT, 0) || net.DT <= 0 {
		errs = append(errs, ir.StructuralError{
			Field:   "dt",
			Message: fmt.Sprintf("time step must be finite and > 0, got %v", net.DT),
			Code:    ErrInvalidDT,
		})
	}

	popIDs := make(map[string]bool, len(net.Populations))
	for i, p := range net.Populations {
		field := fmt.Sprintf("populations[%d]", i)

		if strings.TrimSpace(p.ID) == "" {
			errs = append(errs, ir.StructuralError{
				Field:   field + ".id",
				Message: "population id is required",
				Code:    ErrPopulationIDEmpty,
			})
		} else if popIDs[p.ID] {
			errs = append(errs, ir.StructuralError{
				Field:   field + ".id",
				Subject: p.ID,
				Message: fmt.Sprintf("duplicate population id %q", p.ID),
				Code:    ErrDuplicatePopulation,
			})
		}
		popIDs[p.ID] = true

		if p.Size <= 0 {
			errs = append(errs, ir.StructuralError{
				Field:   field + ".size",
				Subject: p.ID,
				Message: fmt.Sprintf("population %q size must be > 0, got %d", p.ID, p.Size),
				Code:    ErrInvalidSize,
			})
		}

		if strings.TrimSpace(p.Model) == "" {
			errs = append(errs, ir.StructuralError{
				Field:   field + ".model",
				Subject: p.ID,
				Message: fmt.Sprintf("population %q is missing a neuron model", p.ID),
				Code:    ErrModelEmpty,
			})
		}

		errs = append(errs, validatePopulationHints(field, p)...)
	}

	// Colocation hints can reference populations declared later.
	for i, p := range net.Populations {
		for j, other := range p.Hints.ColocateWith {
			if !popIDs[other] {
				errs = append(errs, ir.StructuralError{
					Field:   fmt.Sprintf("populations[%d].hints.colocate_with[%d]", i, j),
					Subject: p.ID,
					Message: fmt.Sprintf("population %q colocates with unknown population %q", p.ID, other),
					Code:    ErrDanglingColocation,
				})
			}
		}
	}

	projIDs := make(map[string]bool, len(net.Projections))
	for i, proj := range net.Projections {
		field := fmt.Sprintf("projections[%d]", i)

		if strings.TrimSpace(proj.ID) == "" {
			errs = append(errs, ir.StructuralError{
				Field:   field + ".id",
				Message: "projection id is required",
				Code:    ErrProjectionIDEmpty,
			})
		} else if projIDs[proj.ID] {
			errs = append(errs, ir.StructuralError{
				Field:   field + ".id",
				Subject: proj.ID,
				Message: fmt.Sprintf("duplicate projection id %q", proj.ID),
				Code:    ErrDuplicateProjection,
			})
		}
		projIDs[proj.ID] = true

		if !popIDs[proj.Src] {
			errs = append(errs, ir.StructuralError{
				Field:   field + ".src",
				Subject: proj.ID,
				Message: fmt.Sprintf("projection %q source %q not found", proj.ID, proj.Src),
				Code:    ErrDanglingSource,
			})
		}
		if !popIDs[proj.Dst] {
			errs = append(errs, ir.StructuralError{
				Field:   field + ".dst",
				Subject: proj.ID,
				Message: fmt.Sprintf("projection %q destination %q not found", proj.ID, proj.Dst),
				Code:    ErrDanglingDestination,
			})
		}

		errs = append(errs, validateConnectivity(field, proj)...)
		errs = append(errs, validateDelay(field, proj)...)

		if !ir.ValidTransmissionKinds[proj.Transmission] {
			errs = append(errs, ir.StructuralError{
				Field:   field + ".transmission",
				Subject: proj.ID,
				Message: fmt.Sprintf("invalid transmission %q, must be \"spike\", \"rate\" or \"analog\"", proj.Transmission),
				Code:    ErrInvalidTransmission,
			})
		}

		if proj.SpikeRateHz != nil && !positiveFinite(*proj.SpikeRateHz) {
			errs = append(errs, ir.StructuralError{
				Field:   field + ".spike_rate_hz",
				Subject: proj.ID,
				Message: fmt.Sprintf("spike rate must be finite and > 0, got %v", *proj.SpikeRateHz),
				Code:    ErrInvalidProjectionHint,
			})
		}
	}

	return errs
}

func validatePopulationHints(field string, p ir.Population) []ir.StructuralError {
	var errs []ir.StructuralError
	if m := p.Hints.MemoryEstimateBytes; m != nil && *m < 0 {
		errs = append(errs, ir.StructuralError{
			Field:   field + ".hints.memory_estimate_bytes",
			Subject: p.ID,
			Message: fmt.Sprintf("memory estimate must be >= 0, got %d", *m),
			Code:    ErrInvalidHint,
		})
	}
	if r := p.Hints.SpikeRateHz; r != nil && !positiveFinite(*r) {
		errs = append(errs, ir.StructuralError{
			Field:   field + ".hints.spike_rate_hz",
			Subject: p.ID,
			Message: fmt.Sprintf("spike rate must be finite and > 0, got %v", *r),
			Code:    ErrInvalidHint,
		})
	}
	return errs
}

func validateConnectivity(field string, proj ir.Projection) []ir.StructuralError {
	var errs []ir.StructuralError
	conn := proj.Connectivity

	switch conn.Mode {
	case "", ir.ConnectivityDense:
	case ir.ConnectivitySparse:
		if conn.EdgeCount == nil && (math.IsNaN(conn.Density) || conn.Density <= 0 || conn.Density > 1) {
			errs = append(errs, ir.StructuralError{
				Field:   field + ".connectivity.density",
				Subject: proj.ID,
				Message: fmt.Sprintf("sparse density must be in (0, 1], got %v", conn.Density),
				Code:    ErrInvalidConnectivity,
			})
		}
	default:
		errs = append(errs, ir.StructuralError{
			Field:   field + ".connectivity.mode",
			Subject: proj.ID,
			Message: fmt.Sprintf("invalid connectivity mode %q, must be \"dense\" or \"sparse\"", conn.Mode),
			Code:    ErrInvalidConnectivity,
		})
	}

	if conn.EdgeCount != nil && *conn.EdgeCount < 0 {
		errs = append(errs, ir.StructuralError{
			Field:   field + ".connectivity.edge_count",
			Subject: proj.ID,
			Message: fmt.Sprintf("edge count must be >= 0, got %d", *conn.EdgeCount),
			Code:    ErrInvalidConnectivity,
		})
	}
	return errs
}

func validateDelay(field string, proj ir.Projection) []ir.StructuralError {
	var errs []ir.StructuralError
	d := proj.Delay

	if d.Seconds != nil && d.Ticks != nil {
		errs = append(errs, ir.StructuralError{
			Field:   field + ".delay",
			Subject: proj.ID,
			Message: "delay must be given in seconds or ticks, not both",
			Code:    ErrInvalidDelay,
		})
	}
	if s := d.Seconds; s != nil && (math.IsNaN(*s) || math.IsInf(*s, 0) || *s < 0) {
		errs = append(errs, ir.StructuralError{
			Field:   field + ".delay.seconds",
			Subject: proj.ID,
			Message: fmt.Sprintf("delay must be finite and >= 0, got %v", *s),
			Code:    ErrInvalidDelay,
		})
	}
	if n := d.Ticks; n != nil && *n < 0 {
		errs = append(errs, ir.StructuralError{
			Field:   field + ".delay.ticks",
			Subject: proj.ID,
			Message: fmt.Sprintf("delay ticks must be >= 0, got %d", *n),
			Code:    ErrInvalidDelay,
		})
	}
	return errs
}

func positiveFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
