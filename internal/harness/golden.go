package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/neuromap/internal/ir"
)

// ReportSnapshot captures the mapping outcome of a scenario.
// It is serialized as canonical JSON for deterministic comparison.
type ReportSnapshot struct {
	Scenario         string              `json:"scenario"`
	Passes           []string            `json:"passes"`
	Parts            int                 `json:"parts"`
	Assignment       []ir.PartAssignment `json:"assignment"`
	CrossProjections []string            `json:"cross_projections"`
	Entries          []ir.ResourceEntry  `json:"entries"`
	Succeeded        bool                `json:"succeeded"`
	ErrorCode        string              `json:"error_code,omitempty"`
}

// Snapshot builds the report snapshot of a result. Absent reports become
// empty lists so snapshots of partial pipelines stay comparable.
func Snapshot(name string, result *Result) ReportSnapshot {
	s := ReportSnapshot{
		Scenario:         name,
		Passes:           make([]string, 0, len(result.Trace)),
		Assignment:       []ir.PartAssignment{},
		CrossProjections: []string{},
		Entries:          []ir.ResourceEntry{},
		Succeeded:        result.Succeeded,
		ErrorCode:        string(result.ErrorCode),
	}
	for _, event := range result.Trace {
		s.Passes = append(s.Passes, event.Pass)
	}
	if result.Plan != nil {
		s.Parts = result.Plan.Parts
		s.Assignment = append(s.Assignment, result.Plan.Assignment...)
	}
	s.CrossProjections = append(s.CrossProjections, result.CrossProjections...)
	if result.Report != nil {
		s.Entries = append(s.Entries, result.Report.Entries...)
	}
	return s
}

// RunWithGolden executes a scenario and compares its report snapshot
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares a result's report snapshot against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := ir.MarshalCanonical(Snapshot(scenarioName, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)

	return nil
}
