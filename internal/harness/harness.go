package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/neuromap/internal/graphio"
	"github.com/roach88/neuromap/internal/ir"
	"github.com/roach88/neuromap/internal/manifest"
	"github.com/roach88/neuromap/internal/passes"
	"github.com/roach88/neuromap/internal/pipeline"
	"github.com/roach88/neuromap/internal/store"
	"github.com/roach88/neuromap/internal/testutil"
)

// Harness runs scenarios with a deterministic clock and run id.
type Harness struct {
	store  *store.Store
	clock  *testutil.SteppingClock
	runIDs *testutil.FixedRunIDGenerator
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory history database for isolation.
//
// Execution flow:
// 1. Load the graph and resolve the capability snapshot
// 2. Build the driver from the scenario's pass list and policy
// 3. Run the pipeline and record the run in the history store
// 4. Check the expectation and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		clock:  testutil.NewSteppingClock(time.Millisecond),
		runIDs: testutil.NewFixedRunIDGenerator(scenario.RunID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	net, err := loadNetwork(scenario)
	if err != nil {
		return nil, err
	}
	target, caps, err := capabilities(scenario)
	if err != nil {
		return nil, err
	}

	policy := passes.DefaultPolicy()
	if scenario.Policy != "" {
		if policy, err = passes.PolicyByName(scenario.Policy); err != nil {
			return nil, err
		}
	}
	names := scenario.Passes
	if len(names) == 0 {
		names = pipeline.DefaultPasses()
	}

	opts := []pipeline.Option{
		pipeline.WithPolicy(policy),
		pipeline.WithFailFast(scenario.FailFast),
		pipeline.WithSeed(scenario.Seed),
		pipeline.WithClock(h.clock),
		pipeline.WithLogger(h.logger),
	}
	if scenario.MaxDelayTicks != nil {
		opts = append(opts, pipeline.WithMaxDelayTicks(*scenario.MaxDelayTicks))
	}
	driver, err := pipeline.New(pipeline.DefaultRegistry(), names, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	res, runErr := driver.Run(net, caps)

	run, err := store.NewRun(h.runIDs, store.RunInput{
		Network:      net,
		Capabilities: caps,
		Target:       target,
		Passes:       driver.Passes(),
		Policy:       policy.String(),
		Seed:         scenario.Seed,
		StartedAt:    testutil.Epoch,
		Result:       res,
		Err:          runErr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build run record: %w", err)
	}
	if run, err = h.store.RecordRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	result := NewResult()
	result.RunID = run.ID
	for _, p := range run.PassRecords {
		result.AddPassTrace(p.Step, p.Pass, p.Violations)
	}
	if res != nil {
		result.Succeeded = runErr == nil && res.Succeeded
		result.Report = res.Report
		result.Plan, _ = ir.ReportOf[*ir.PartitionPlan](res.Annotations)
		if routing, ok := ir.ReportOf[*ir.RoutingReport](res.Annotations); ok {
			result.CrossProjections = routing.CrossProjections
		}
	}
	var perr *pipeline.Error
	if errors.As(runErr, &perr) {
		result.ErrorCode = perr.Code
	} else if runErr != nil {
		return nil, fmt.Errorf("pipeline failed: %w", runErr)
	}

	h.logger.Info("scenario mapped",
		"scenario", scenario.Name,
		"run_id", run.ID,
		"succeeded", result.Succeeded,
		"error_code", result.ErrorCode,
	)

	for _, msg := range checkExpect(scenario.Expect, result) {
		result.AddError(msg)
	}

	actx := &AssertionContext{
		Store: h.store,
		Ctx:   ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// checkExpect compares the run outcome with the scenario's expectation.
// A nil expectation requires a successful, unaborted run.
func checkExpect(expect *ExpectClause, result *Result) []string {
	want := ExpectClause{Succeeded: true}
	if expect != nil {
		want = *expect
	}

	var errs []string
	if string(result.ErrorCode) != want.Error {
		errs = append(errs, (&AssertionError{
			Type:     "expect",
			Expected: fmt.Sprintf("error code %q", want.Error),
			Actual:   fmt.Sprintf("error code %q", result.ErrorCode),
			Trace:    result.Trace,
		}).Error())
	}
	if result.Succeeded != want.Succeeded {
		errs = append(errs, (&AssertionError{
			Type:     "expect",
			Expected: fmt.Sprintf("succeeded = %t", want.Succeeded),
			Actual:   fmt.Sprintf("succeeded = %t", result.Succeeded),
			Trace:    result.Trace,
		}).Error())
	}
	return errs
}

func loadNetwork(s *Scenario) (*ir.Network, error) {
	if s.Graph != nil {
		return s.Graph, nil
	}
	net, err := graphio.LoadFile(s.Network)
	if err != nil {
		return nil, fmt.Errorf("failed to load network: %w", err)
	}
	return net, nil
}

// capabilities returns the target name and capability snapshot of a
// scenario. Inline capabilities have no target name.
func capabilities(s *Scenario) (string, ir.Capabilities, error) {
	var (
		m   *manifest.Manifest
		err error
	)
	switch {
	case s.Capabilities != nil:
		return "", *s.Capabilities, nil
	case s.Manifest != "":
		m, err = manifest.LoadFile(s.Manifest)
	case s.Target != "":
		m, err = manifest.LoadBuiltin(s.Target)
	default:
		return "", ir.Capabilities{}, nil
	}
	if err != nil {
		return "", ir.Capabilities{}, fmt.Errorf("failed to load target: %w", err)
	}
	return m.Name, m.Snapshot(), nil
}
