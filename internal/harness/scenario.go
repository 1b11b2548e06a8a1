package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/neuromap/internal/ir"
	"github.com/roach88/neuromap/internal/passes"
	"github.com/roach88/neuromap/internal/pipeline"
)

// Scenario defines a mapping scenario: a graph, a target, a pass list and
// the outcome the mapping must produce.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Network is the path of a YAML or JSON graph file.
	// Relative paths are resolved against the scenario file location.
	Network string `yaml:"network,omitempty"`

	// Graph is an inline graph, used when Network is empty.
	Graph *ir.Network `yaml:"graph,omitempty"`

	// Target names a built-in target.
	Target string `yaml:"target,omitempty"`

	// Manifest is the path of a target manifest (.cue).
	Manifest string `yaml:"manifest,omitempty"`

	// Capabilities is an inline capability snapshot. At most one of Target,
	// Manifest and Capabilities may be set; none means unconstrained.
	Capabilities *ir.Capabilities `yaml:"capabilities,omitempty"`

	// Passes is the pass list. Empty means the default pipeline.
	Passes []string `yaml:"passes,omitempty"`

	// Policy is the violation policy name. Empty means default.
	Policy string `yaml:"policy,omitempty"`

	FailFast      bool   `yaml:"fail_fast,omitempty"`
	MaxDelayTicks *int64 `yaml:"max_delay_ticks,omitempty"`
	Seed          int64  `yaml:"seed,omitempty"`

	// Expect is the overall outcome. Nil means the run must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate the plan, the reports and the recorded run.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run id for deterministic history records.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// ExpectClause specifies the expected outcome of the run.
type ExpectClause struct {
	// Succeeded is whether the merged report holds no Blocking violation.
	Succeeded bool `yaml:"succeeded"`

	// Error is the pipeline error code the run must abort with
	// (e.g. "STRUCTURAL", "PARTITION"). Empty means no abort.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the mapping outcome.
type Assertion struct {
	// Type specifies the assertion type:
	// - "parts": Check the plan has Count parts
	// - "same_part": Check all Populations share one part
	// - "separate_parts": Check no two Populations share a part
	// - "cross_projections": Check the exact set of cross-part projections
	// - "violation": Check the report holds a matching entry
	// - "violation_count": Check the number of matching entries
	// - "final_state": Query a history table and verify expected values
	Type string `yaml:"type"`

	// Count is the expected part or violation count.
	Count int `yaml:"count,omitempty"`

	// Populations are population ids (used by same_part, separate_parts).
	Populations []string `yaml:"populations,omitempty"`

	// Projections are projection ids (used by cross_projections).
	Projections []string `yaml:"projections,omitempty"`

	// Code, Subject, Severity, Pass and Part filter report entries
	// (used by violation, violation_count). Empty fields match anything.
	Code     string `yaml:"code,omitempty"`
	Subject  string `yaml:"subject,omitempty"`
	Severity string `yaml:"severity,omitempty"`
	Pass     string `yaml:"pass,omitempty"`
	Part     *int   `yaml:"part,omitempty"`

	// Table is the history table name (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by final_state).
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected column values (used by final_state).
	// Subset match - only specified columns are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertParts            = "parts"
	AssertSamePart         = "same_part"
	AssertSeparateParts    = "separate_parts"
	AssertCrossProjections = "cross_projections"
	AssertViolation        = "violation"
	AssertViolationCount   = "violation_count"
	AssertFinalState       = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. Relative graph and
// manifest paths are resolved against the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving graph and manifest paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve paths BEFORE validation so existence checks see real paths
	scenario.Network = resolvePath(scenario.Network, basePath)
	scenario.Manifest = resolvePath(scenario.Manifest, basePath)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func resolvePath(p, basePath string) string {
	if p == "" || filepath.IsAbs(p) || basePath == "" {
		return p
	}
	return filepath.Join(basePath, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Network == "" && s.Graph == nil:
		return fmt.Errorf("one of network or graph is required")
	case s.Network != "" && s.Graph != nil:
		return fmt.Errorf("network and graph are mutually exclusive")
	}

	targets := 0
	for _, set := range []bool{s.Target != "", s.Manifest != "", s.Capabilities != nil} {
		if set {
			targets++
		}
	}
	if targets > 1 {
		return fmt.Errorf("at most one of target, manifest and capabilities may be set")
	}

	for _, p := range []string{s.Network, s.Manifest} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", p)
		}
	}

	if s.Policy != "" {
		if _, err := passes.PolicyByName(s.Policy); err != nil {
			return err
		}
	}

	if s.MaxDelayTicks != nil && *s.MaxDelayTicks < 0 {
		return fmt.Errorf("max_delay_ticks must be >= 0")
	}

	if s.Expect != nil && s.Expect.Error != "" {
		if !knownErrorCode(s.Expect.Error) {
			return fmt.Errorf("expect.error: unknown error code %q", s.Expect.Error)
		}
		if s.Expect.Succeeded {
			return fmt.Errorf("expect: an aborted run cannot succeed")
		}
	}

	if len(s.Assertions) == 0 && s.Expect == nil {
		return fmt.Errorf("assertions list is required unless expect is set")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func knownErrorCode(code string) bool {
	switch pipeline.ErrorCode(code) {
	case pipeline.ErrCodeConfiguration, pipeline.ErrCodeStructural, pipeline.ErrCodePartition,
		pipeline.ErrCodeInternalInvariant, pipeline.ErrCodePassFailed:
		return true
	}
	return false
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertParts:
		if a.Count < 1 {
			return fmt.Errorf("assertions[%d]: count must be >= 1 for parts", index)
		}
	case AssertSamePart, AssertSeparateParts:
		if len(a.Populations) < 2 {
			return fmt.Errorf("assertions[%d]: at least two populations are required for %s", index, a.Type)
		}
	case AssertCrossProjections:
		// An empty list asserts that no projection crosses parts.
	case AssertViolation:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for violation", index)
		}
	case AssertViolationCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for violation_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Severity != "" {
		if _, err := passes.ParseSeverity(a.Severity); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	}

	return nil
}
