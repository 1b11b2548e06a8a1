package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/neuromap/internal/ir"
	"github.com/roach88/neuromap/internal/store"
)

func sampleResult() *Result {
	r := NewResult()
	r.Trace = []PassEvent{{Step: 0, Pass: "validate"}, {Step: 1, Pass: "partition"}, {Step: 2, Pass: "placement", Violations: 1}}
	r.Plan = &ir.PartitionPlan{
		Parts: 2,
		Assignment: []ir.PartAssignment{
			{Population: "A", Part: 0},
			{Population: "B", Part: 0},
			{Population: "C", Part: 1},
		},
		Loads: []int64{20, 10},
	}
	r.CrossProjections = []string{"bc", "ac"}
	r.Report = &ir.ResourceReport{Entries: []ir.ResourceEntry{
		{
			Violation: ir.Violation{Code: ir.CodeFanInExceeded, Part: 1, Subject: "C"},
			Pass:      "placement",
			Severity:  ir.SeverityBlocking,
		},
		{
			Violation: ir.Violation{Code: ir.CodeBandwidthExceeded, Part: ir.NoPart, Subject: "ac"},
			Pass:      "routing",
			Severity:  ir.SeverityWarning,
		},
	}}
	return r
}

func intPtr(v int) *int { return &v }

func TestEvaluateAssertions(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string // empty means pass
	}{
		{"parts match", Assertion{Type: AssertParts, Count: 2}, ""},
		{"parts mismatch", Assertion{Type: AssertParts, Count: 3}, "Actual: 2 parts"},
		{"same part", Assertion{Type: AssertSamePart, Populations: []string{"A", "B"}}, ""},
		{"same part spread", Assertion{Type: AssertSamePart, Populations: []string{"A", "C"}}, "spread over 2 parts"},
		{"same part unknown", Assertion{Type: AssertSamePart, Populations: []string{"A", "Z"}}, "population Z in the plan"},
		{"separate", Assertion{Type: AssertSeparateParts, Populations: []string{"A", "C"}}, ""},
		{"separate shared", Assertion{Type: AssertSeparateParts, Populations: []string{"A", "B", "C"}}, "A and B share part 0"},
		{"cross any order", Assertion{Type: AssertCrossProjections, Projections: []string{"ac", "bc"}}, ""},
		{"cross mismatch", Assertion{Type: AssertCrossProjections, Projections: []string{"ac"}}, "cross projections [ac bc]"},
		{"violation by code", Assertion{Type: AssertViolation, Code: ir.CodeFanInExceeded}, ""},
		{"violation all filters", Assertion{Type: AssertViolation, Code: ir.CodeFanInExceeded, Subject: "C", Severity: "blocking", Pass: "placement", Part: intPtr(1)}, ""},
		{"violation wrong severity", Assertion{Type: AssertViolation, Code: ir.CodeFanInExceeded, Severity: "warning"}, "Expected: code=FanInExceeded severity=warning"},
		{"violation wrong part", Assertion{Type: AssertViolation, Code: ir.CodeBandwidthExceeded, Part: intPtr(0)}, "part=0"},
		{"count all", Assertion{Type: AssertViolationCount, Count: 2}, ""},
		{"count warnings", Assertion{Type: AssertViolationCount, Severity: "warning", Count: 1}, ""},
		{"count mismatch", Assertion{Type: AssertViolationCount, Code: ir.CodeDelayOutOfRange, Count: 1}, "0 entries"},
		{"unknown type", Assertion{Type: "vibes"}, `unknown assertion type "vibes"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion}, nil)
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestEvaluateAssertions_MissingReports(t *testing.T) {
	empty := NewResult()
	assertions := []Assertion{
		{Type: AssertParts, Count: 1},
		{Type: AssertSamePart, Populations: []string{"A", "B"}},
		{Type: AssertCrossProjections},
		{Type: AssertViolation, Code: ir.CodeFanInExceeded},
	}

	errs := EvaluateAssertions(empty, assertions, nil)
	require.Len(t, errs, 4)
	assert.Contains(t, errs[0], "no partition plan")
	assert.Contains(t, errs[1], "no partition plan")
	assert.Contains(t, errs[2], "no routing report")
	assert.Contains(t, errs[3], "no resource report")

	// A report with no entries satisfies a zero count.
	assert.Empty(t, EvaluateAssertions(empty, []Assertion{{Type: AssertViolationCount}}, nil))
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertParts,
		Expected: "2 parts",
		Actual:   "1 parts",
		Trace:    []PassEvent{{Step: 0, Pass: "validate"}, {Step: 1, Pass: "partition", Violations: 2}},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: parts")
	assert.Contains(t, msg, "Expected: 2 parts")
	assert.Contains(t, msg, "Actual: 1 parts")
	assert.Contains(t, msg, "[1] partition violations=2")
}

func newHistory(t *testing.T) *AssertionContext {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	_, err = st.DB().Exec(`INSERT INTO runs (id, seq, network, network_hash, capabilities_hash, target, passes,
		policy, seed, plan_hash, succeeded, error_code, error_message, blocking, warnings, report,
		started_at_ms, duration_ns, compiler_version, ir_version)
		VALUES ('r1', 1, 'net', 'nh', 'ch', 'loihi2', '[]', 'default', 7, 'ph', 1, '', '', 0, 2, '', 0, 5, 'v', 'v')`)
	require.NoError(t, err)
	_, err = st.DB().Exec(`INSERT INTO run_passes (run_id, step, pass, duration_ns, violations) VALUES
		('r1', 0, 'validate', 1, 0), ('r1', 1, 'partition', 1, 0)`)
	require.NoError(t, err)

	return &AssertionContext{Store: st, Ctx: context.Background()}
}

func TestAssertFinalState(t *testing.T) {
	actx := newHistory(t)

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{
			name: "match",
			assertion: Assertion{Type: AssertFinalState, Table: "runs", Where: map[string]interface{}{"id": "r1"},
				Expect: map[string]interface{}{"target": "loihi2", "seed": 7, "succeeded": true, "warnings": int64(2)}},
		},
		{
			name: "bool where clause",
			assertion: Assertion{Type: AssertFinalState, Table: "runs", Where: map[string]interface{}{"succeeded": true},
				Expect: map[string]interface{}{"id": "r1"}},
		},
		{
			name: "value mismatch",
			assertion: Assertion{Type: AssertFinalState, Table: "runs",
				Expect: map[string]interface{}{"blocking": 1}},
			wantErr: `field "blocking" = 1`,
		},
		{
			name: "missing column",
			assertion: Assertion{Type: AssertFinalState, Table: "runs",
				Expect: map[string]interface{}{"color": "red"}},
			wantErr: `field "color" not present`,
		},
		{
			name: "no row",
			assertion: Assertion{Type: AssertFinalState, Table: "runs", Where: map[string]interface{}{"id": "r2"},
				Expect: map[string]interface{}{"seed": 7}},
			wantErr: "row not found",
		},
		{
			name: "ambiguous",
			assertion: Assertion{Type: AssertFinalState, Table: "run_passes", Where: map[string]interface{}{"run_id": "r1"},
				Expect: map[string]interface{}{"step": 0}},
			wantErr: "multiple rows matched",
		},
		{
			name: "bad table name",
			assertion: Assertion{Type: AssertFinalState, Table: "runs; DROP TABLE runs",
				Expect: map[string]interface{}{"seed": 7}},
			wantErr: "invalid table name",
		},
		{
			name: "bad column name",
			assertion: Assertion{Type: AssertFinalState, Table: "runs", Where: map[string]interface{}{"id OR 1": "x"},
				Expect: map[string]interface{}{"seed": 7}},
			wantErr: "invalid column name",
		},
		{
			name: "unknown table",
			assertion: Assertion{Type: AssertFinalState, Table: "nope",
				Expect: map[string]interface{}{"seed": 7}},
			wantErr: "query error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(NewResult(), []Assertion{tt.assertion}, actx)
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestAssertFinalState_NeedsStore(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{
		{Type: AssertFinalState, Table: "runs", Expect: map[string]interface{}{"seed": 1}},
	}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "final_state requires database context")
}

func TestStateValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected interface{}
		actual   interface{}
		want     bool
	}{
		{"string", "a", "a", true},
		{"string from bytes", "a", []byte("a"), true},
		{"string mismatch", "a", "b", false},
		{"int vs int64", 3, int64(3), true},
		{"int64", int64(3), int64(4), false},
		{"float", 1.5, 1.5, true},
		{"float vs int64", 2.0, int64(2), true},
		{"bool from int", true, int64(1), true},
		{"bool false from int", false, int64(0), true},
		{"bool mismatch", true, int64(0), false},
		{"nil both", nil, nil, true},
		{"nil actual", "a", nil, false},
		{"type mismatch", "3", int64(3), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stateValuesEqual(tt.expected, tt.actual))
		})
	}
}
