package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/neuromap/internal/ir"
	"github.com/roach88/neuromap/internal/passes"
)

// PassStats is the per-pass profile of one run.
type PassStats struct {
	Pass        string        `json:"pass" yaml:"pass"`
	Duration    time.Duration `json:"duration_ns" yaml:"duration_ns"`
	Populations int           `json:"populations" yaml:"populations"`
	Projections int           `json:"projections" yaml:"projections"`
}

// Result is the outcome of one run.
type Result struct {
	Annotations *ir.Annotations
	Stats       []PassStats

	// Report is the resource-check report, nil when that pass did not run.
	Report *ir.ResourceReport

	Seed int64

	// Succeeded is true when every pass ran and no violation is Blocking.
	Succeeded bool

	// PlanFingerprint identifies the partition plan, empty without one.
	PlanFingerprint string
}

// Driver runs a fixed, validated list of passes.
//
// A Driver holds no per-run state; Run may be called concurrently from
// several goroutines with distinct networks.
type Driver struct {
	names  []string
	passes []passes.Pass
	opts   Options
}

// New resolves names against reg and checks that every pass's required
// predecessors appear earlier in the list. All problems are reported
// together as a configuration error before any pass runs.
func New(reg Registry, names []string, opts ...Option) (*Driver, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var problems []string
	if len(names) == 0 {
		problems = append(problems, "no passes requested")
	}

	d := &Driver{opts: o}
	seen := make(map[string]bool)
	for i, name := range names {
		entry, ok := reg[name]
		if !ok || entry.Factory == nil {
			problems = append(problems, fmt.Sprintf("unknown pass %q (known: %s)", name, strings.Join(reg.Names(), ", ")))
			continue
		}
		p := entry.Factory(o)
		canonical := p.Name()
		if seen[canonical] {
			problems = append(problems, fmt.Sprintf("pass %q listed more than once", canonical))
			continue
		}
		for _, req := range entry.Requires {
			if !seen[req] {
				problems = append(problems, fmt.Sprintf("pass %q at position %d requires %q to run before it", canonical, i, req))
			}
		}
		seen[canonical] = true
		d.names = append(d.names, canonical)
		d.passes = append(d.passes, p)
	}

	if len(problems) > 0 {
		return nil, NewConfigurationError(problems)
	}
	return d, nil
}

// Passes returns the canonical names of the configured passes in order.
func (d *Driver) Passes() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Options returns the resolved driver options.
func (d *Driver) Options() Options {
	return d.opts
}

// Run executes the passes in order on a fresh side-table.
//
// On error the returned Result holds the reports and statistics of the
// passes that completed, so callers can still inspect or dump them.
func (d *Driver) Run(net *ir.Network, caps ir.Capabilities) (*Result, error) {
	log := d.opts.Logger
	res := &Result{
		Annotations: ir.NewAnnotations(),
		Seed:        d.opts.Seed,
	}

	log.Debug("pipeline starting",
		"network", net.Name,
		"passes", len(d.passes),
		"populations", len(net.Populations),
		"projections", len(net.Projections),
		"seed", d.opts.Seed,
	)

	for step, p := range d.passes {
		name := d.names[step]
		log.Debug("pass starting", "pass", name, "step", step)

		start := d.opts.Clock.Now()
		report, err := p.Run(net, caps, res.Annotations)
		elapsed := d.opts.Clock.Now().Sub(start)

		res.Stats = append(res.Stats, PassStats{
			Pass:        name,
			Duration:    elapsed,
			Populations: len(net.Populations),
			Projections: len(net.Projections),
		})

		if err != nil {
			var perr *passes.PartitionError
			if errors.As(err, &perr) {
				log.Debug("pass aborted", "pass", name, "error", err)
				return res, NewPartitionError(perr)
			}
			return res, NewPassError(name, err)
		}
		if report == nil {
			return res, NewInvariantError(name, "pass produced no report")
		}
		if err := res.Annotations.Put(name, report); err != nil {
			return res, NewInvariantError(name, err.Error())
		}

		if err := d.check(net, name, report); err != nil {
			return res, err
		}

		log.Debug("pass finished", "pass", name, "step", step, "duration", elapsed)

		if d.opts.AfterPass != nil {
			if err := d.opts.AfterPass(step, name, net, res.Annotations); err != nil {
				return res, fmt.Errorf("after pass %s: %w", name, err)
			}
		}
	}

	if plan, ok := ir.ReportOf[*ir.PartitionPlan](res.Annotations); ok {
		fp, err := ir.PlanFingerprint(plan)
		if err != nil {
			return res, NewInvariantError(passes.NamePartition, err.Error())
		}
		res.PlanFingerprint = fp
	}

	res.Report, _ = ir.ReportOf[*ir.ResourceReport](res.Annotations)
	res.Succeeded = res.Report == nil || res.Report.Succeeded

	log.Debug("pipeline finished", "network", net.Name, "succeeded", res.Succeeded)
	return res, nil
}

// check enforces the abort conditions that follow a pass.
func (d *Driver) check(net *ir.Network, name string, report ir.Report) error {
	switch r := report.(type) {
	case *ir.ValidationReport:
		if !r.Valid {
			return NewStructuralError(r.Errors)
		}
	case *ir.PartitionPlan:
		if err := checkTotality(net, r); err != nil {
			return NewInvariantError(name, err.Error())
		}
	}
	return nil
}

// checkTotality verifies that every population is assigned exactly once to
// an existing part and that the loads add up.
func checkTotality(net *ir.Network, plan *ir.PartitionPlan) error {
	if plan.Parts < 1 {
		return fmt.Errorf("plan has %d parts", plan.Parts)
	}
	if len(plan.Assignment) != len(net.Populations) {
		return fmt.Errorf("plan assigns %d populations, network has %d", len(plan.Assignment), len(net.Populations))
	}
	if len(plan.Loads) != plan.Parts {
		return fmt.Errorf("plan has %d loads for %d parts", len(plan.Loads), plan.Parts)
	}
	loads := make([]int64, plan.Parts)
	for i, a := range plan.Assignment {
		pop := net.Populations[i]
		if a.Population != pop.ID {
			return fmt.Errorf("assignment %d names %q, expected %q", i, a.Population, pop.ID)
		}
		if a.Part < 0 || a.Part >= plan.Parts {
			return fmt.Errorf("population %q assigned to part %d of %d", pop.ID, a.Part, plan.Parts)
		}
		loads[a.Part] += pop.Size
	}
	for part := range loads {
		if loads[part] != plan.Loads[part] {
			return fmt.Errorf("part %d load is %d, plan records %d", part, loads[part], plan.Loads[part])
		}
	}
	return nil
}
