package store

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/neuromap/internal/ir"
	"github.com/roach88/neuromap/internal/pipeline"
)

// Run is one recorded pipeline invocation.
type Run struct {
	ID  string `json:"id" yaml:"id"`
	Seq int64  `json:"seq" yaml:"seq"` // assigned by the store

	Network          string   `json:"network" yaml:"network"`
	NetworkHash      string   `json:"network_hash" yaml:"network_hash"`
	CapabilitiesHash string   `json:"capabilities_hash" yaml:"capabilities_hash"`
	Target           string   `json:"target,omitempty" yaml:"target,omitempty"`
	Passes           []string `json:"passes" yaml:"passes"`
	Policy           string   `json:"policy" yaml:"policy"`
	Seed             int64    `json:"seed" yaml:"seed"`

	PlanHash     string             `json:"plan_hash,omitempty" yaml:"plan_hash,omitempty"`
	Succeeded    bool               `json:"succeeded" yaml:"succeeded"`
	ErrorCode    string             `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	Blocking     int                `json:"blocking" yaml:"blocking"`
	Warnings     int                `json:"warnings" yaml:"warnings"`
	Report       *ir.ResourceReport `json:"report,omitempty" yaml:"report,omitempty"`

	// StartedAt is informational; history is ordered by Seq.
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration_ns"`

	CompilerVersion string `json:"compiler_version" yaml:"compiler_version"`
	IRVersion       string `json:"ir_version" yaml:"ir_version"`

	PassRecords []PassRecord `json:"passes_run,omitempty" yaml:"passes_run,omitempty"`
}

// PassRecord is the per-pass row of a run.
type PassRecord struct {
	Step       int           `json:"step" yaml:"step"`
	Pass       string        `json:"pass" yaml:"pass"`
	Duration   time.Duration `json:"duration_ns" yaml:"duration_ns"`
	Violations int           `json:"violations" yaml:"violations"`
}

// IDGenerator produces run ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RunInput is everything NewRun needs to describe one invocation.
type RunInput struct {
	Network      *ir.Network
	Capabilities ir.Capabilities
	Target       string
	Passes       []string
	Policy       string
	Seed         int64
	StartedAt    time.Time

	// Result and Err are the return values of pipeline.Driver.Run.
	Result *pipeline.Result
	Err    error
}

// NewRun builds a run record from a pipeline outcome. The run is not
// stored; pass it to Store.RecordRun.
func NewRun(gen IDGenerator, in RunInput) (Run, error) {
	netHash, err := ir.NetworkFingerprint(in.Network)
	if err != nil {
		return Run{}, err
	}
	capsHash, err := ir.Fingerprint(ir.DomainCapabilities, in.Capabilities)
	if err != nil {
		return Run{}, err
	}

	run := Run{
		ID:               gen.Generate(),
		Network:          in.Network.Name,
		NetworkHash:      netHash,
		CapabilitiesHash: capsHash,
		Target:           in.Target,
		Passes:           in.Passes,
		Policy:           in.Policy,
		Seed:             in.Seed,
		StartedAt:        in.StartedAt,
		CompilerVersion:  ir.CompilerVersion,
		IRVersion:        ir.IRVersion,
	}
	if run.Passes == nil {
		run.Passes = []string{}
	}

	if res := in.Result; res != nil {
		run.PlanHash = res.PlanFingerprint
		run.Report = res.Report
		run.Succeeded = in.Err == nil && res.Succeeded
		for step, st := range res.Stats {
			rec := PassRecord{Step: step, Pass: st.Pass, Duration: st.Duration}
			if r, ok := res.Annotations.Get(st.Pass); ok {
				rec.Violations = len(violationsOf(r))
			}
			run.PassRecords = append(run.PassRecords, rec)
			run.Duration += st.Duration
		}
	}
	if run.Report != nil {
		for _, e := range run.Report.Entries {
			if e.Severity == ir.SeverityBlocking {
				run.Blocking++
			} else {
				run.Warnings++
			}
		}
	}

	if in.Err != nil {
		run.Succeeded = false
		run.ErrorMessage = in.Err.Error()
		var perr *pipeline.Error
		if errors.As(in.Err, &perr) {
			run.ErrorCode = string(perr.Code)
		}
	}
	return run, nil
}

func violationsOf(r ir.Report) []ir.Violation {
	switch r := r.(type) {
	case *ir.PartitionPlan:
		return r.Violations
	case *ir.PlacementReport:
		return r.Violations
	case *ir.RoutingReport:
		return r.Violations
	case *ir.TimingReport:
		return r.Violations
	case *ir.ResourceReport:
		vs := make([]ir.Violation, len(r.Entries))
		for i, e := range r.Entries {
			vs[i] = e.Violation
		}
		return vs
	}
	return nil
}
