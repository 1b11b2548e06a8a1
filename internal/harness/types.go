package harness

import (
	"github.com/roach88/neuromap/internal/ir"
	"github.com/roach88/neuromap/internal/pipeline"
)

// PassEvent is one entry of the pass trace: a pass that ran and the
// number of violations its report carried.
type PassEvent struct {
	Step       int    `json:"step"`
	Pass       string `json:"pass"`
	Violations int    `json:"violations"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if the expectation and every assertion match.
	Pass bool `json:"pass"`

	// Trace lists the passes that ran, in order.
	Trace []PassEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Plan is the partition plan, nil if partition did not run.
	Plan *ir.PartitionPlan `json:"plan,omitempty"`

	// CrossProjections lists projections whose endpoints sit in different
	// parts. Nil if routing did not run.
	CrossProjections []string `json:"cross_projections,omitempty"`

	// Report is the merged resource report, nil if resource-check did not run.
	Report *ir.ResourceReport `json:"report,omitempty"`

	// Succeeded mirrors pipeline.Result.Succeeded; false when the run aborted.
	Succeeded bool `json:"succeeded"`

	// ErrorCode is the code of the error that aborted the run, if any.
	ErrorCode pipeline.ErrorCode `json:"error_code,omitempty"`

	// RunID is the id the run was recorded under in the history store.
	RunID string `json:"run_id"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []PassEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddPassTrace adds a pass to the trace.
func (r *Result) AddPassTrace(step int, pass string, violations int) {
	r.Trace = append(r.Trace, PassEvent{Step: step, Pass: pass, Violations: violations})
}
