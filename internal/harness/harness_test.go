package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/neuromap/internal/ir"
	"github.com/roach88/neuromap/internal/pipeline"
	"github.com/roach88/neuromap/internal/testutil"
)

func caps(fn func(*ir.Capabilities)) *ir.Capabilities {
	c := &ir.Capabilities{}
	fn(c)
	return c
}

func TestRun_TwoPopulations(t *testing.T) {
	scenario := &Scenario{
		Name:        "two-pop",
		Description: "two populations over two parts",
		Graph: testutil.Network("two-pop",
			[]ir.Population{testutil.Population("A", 600), testutil.Population("B", 600)},
			testutil.Dense("ab", "A", "B")),
		Capabilities: caps(func(c *ir.Capabilities) { c.MaxNeuronsPerCore = ir.Some[int64](1000) }),
		Assertions: []Assertion{
			{Type: AssertParts, Count: 2},
			{Type: AssertSeparateParts, Populations: []string{"A", "B"}},
			{Type: AssertCrossProjections, Projections: []string{"ab"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, "%v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.True(t, result.Succeeded)
	assert.Equal(t, "test-run-default", result.RunID)

	require.Len(t, result.Trace, len(pipeline.DefaultPasses()))
	for i, name := range pipeline.DefaultPasses() {
		assert.Equal(t, PassEvent{Step: i, Pass: name}, result.Trace[i])
	}
}

func TestRun_PassList(t *testing.T) {
	scenario := &Scenario{
		Name:        "partial",
		Description: "partition only",
		Graph:       testutil.Chain(3, 100),
		Passes:      []string{"validate", "partition"},
		Assertions:  []Assertion{{Type: AssertParts, Count: 1}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "%v", result.Errors)
	assert.Len(t, result.Trace, 2)
	assert.Nil(t, result.Report)
	assert.Nil(t, result.CrossProjections)
	assert.True(t, result.Succeeded)
}

func TestRun_ExpectationMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:         "fan-in",
		Description:  "fan-in exceeded but expected to succeed",
		Graph:        testutil.FanIn(5, 10),
		Capabilities: caps(func(c *ir.Capabilities) { c.MaxFanIn = ir.Some[int64](4) }),
		Expect:       &ExpectClause{Succeeded: true},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "succeeded = true")
	assert.Contains(t, result.Errors[0], "placement violations=1")
}

func TestRun_Policy(t *testing.T) {
	scenario := &Scenario{
		Name:         "fan-in-lenient",
		Description:  "lenient policy turns fan-in into a warning",
		Graph:        testutil.FanIn(5, 10),
		Capabilities: caps(func(c *ir.Capabilities) { c.MaxFanIn = ir.Some[int64](4) }),
		Policy:       "lenient",
		Assertions: []Assertion{
			{Type: AssertViolation, Code: ir.CodeFanInExceeded, Severity: "warning"},
			{Type: AssertFinalState, Table: "runs", Expect: map[string]interface{}{"policy": "lenient", "warnings": 1}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "%v", result.Errors)
}

func TestRun_AbortedRuns(t *testing.T) {
	tests := []struct {
		name     string
		scenario *Scenario
		wantCode pipeline.ErrorCode
		wantLen  int
	}{
		{
			name: "structural",
			scenario: &Scenario{
				Graph: testutil.Network("bad", []ir.Population{testutil.Population("A", 0)}),
			},
			wantCode: pipeline.ErrCodeStructural,
			wantLen:  1,
		},
		{
			name: "partition fail-fast",
			scenario: &Scenario{
				Graph:        testutil.Network("big", []ir.Population{testutil.Population("A", 600)}),
				Capabilities: caps(func(c *ir.Capabilities) { c.MaxNeuronsPerCore = ir.Some[int64](500) }),
				FailFast:     true,
			},
			wantCode: pipeline.ErrCodePartition,
			wantLen:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.scenario.Name = tt.name
			tt.scenario.Description = tt.name
			tt.scenario.Expect = &ExpectClause{Error: string(tt.wantCode)}

			result, err := Run(tt.scenario)
			require.NoError(t, err)

			assert.True(t, result.Pass, "%v", result.Errors)
			assert.Equal(t, tt.wantCode, result.ErrorCode)
			assert.False(t, result.Succeeded)
			assert.Len(t, result.Trace, tt.wantLen)
		})
	}
}

func TestRun_BuiltinTarget(t *testing.T) {
	scenario := &Scenario{
		Name:        "loihi2",
		Description: "chain on loihi2",
		Graph:       testutil.Chain(3, 100),
		Target:      "loihi2",
		RunID:       "run-loihi2",
		Assertions: []Assertion{
			{Type: AssertParts, Count: 1},
			{Type: AssertFinalState, Table: "runs", Where: map[string]interface{}{"id": "run-loihi2"},
				Expect: map[string]interface{}{"target": "loihi2"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "%v", result.Errors)
	assert.Equal(t, "run-loihi2", result.RunID)
}

func TestRun_SetupErrors(t *testing.T) {
	tests := []struct {
		name     string
		scenario *Scenario
		wantErr  string
	}{
		{
			name:     "unknown pass",
			scenario: &Scenario{Graph: testutil.Chain(2, 10), Passes: []string{"bogus"}},
			wantErr:  "failed to build pipeline",
		},
		{
			name:     "unknown target",
			scenario: &Scenario{Graph: testutil.Chain(2, 10), Target: "abacus"},
			wantErr:  "failed to load target",
		},
		{
			name:     "missing network",
			scenario: &Scenario{Network: "nope.yaml"},
			wantErr:  "failed to load network",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tt.scenario)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("../../testdata/scenarios/scenario_c.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
