// Package harness runs mapping scenarios as executable contract tests.
//
// A scenario names a graph, a target and a pass list, runs the pipeline
// and asserts on the partition plan, the merged resource report and the
// run recorded in an in-memory history database.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: two-populations
//	description: "Two populations that cannot share a core"
//	network: networks/two_pop.yaml   # or an inline graph: {...}
//	capabilities:                    # or target: loihi2 / manifest: x.cue
//	  max_neurons_per_core: 1000
//	passes: [validate, partition, routing]
//	policy: default
//	expect:
//	  succeeded: true
//	assertions:
//	  - type: parts
//	    count: 2
//	  - type: separate_parts
//	    populations: [A, B]
//	  - type: cross_projections
//	    projections: [ab]
//	  - type: final_state
//	    table: runs
//	    where: { id: test-run-default }
//	    expect: { blocking: 0 }
//
// # Assertion Types
//
//   - parts: Verifies the plan has exactly N parts
//   - same_part, separate_parts: Verify how populations are grouped
//   - cross_projections: Verifies the exact set of cross-part projections
//   - violation: Verifies a report entry matches code, subject, severity, pass, part
//   - violation_count: Verifies how many report entries match
//   - final_state: Queries a history table and verifies expected values
//
// # Deterministic Testing
//
// Scenarios run with a stepping clock (every pass takes one millisecond),
// a fixed run id (scenario.run_id or "test-run-default") and a fresh
// in-memory SQLite database, so identical scenarios produce identical
// reports, history rows and golden snapshots.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/scenario_a.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
