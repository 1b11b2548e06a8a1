package passes

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/neuromap/internal/ir"
)

// Policy names.
const (
	PolicyDefault = "default"
	PolicyStrict  = "strict"
	PolicyLenient = "lenient"
)

// Policy classifies violation codes as Warning or Blocking.
//
// PopulationExceedsCore is Blocking under every policy: a population that
// does not fit a core can never be emitted.
type Policy struct {
	Name      string
	Fallback  ir.Severity
	Overrides map[string]ir.Severity
}

// DefaultPolicy blocks on everything except an unsatisfied colocation hint
// and an interconnect overcommit.
func DefaultPolicy() Policy {
	return Policy{
		Name:     PolicyDefault,
		Fallback: ir.SeverityBlocking,
		Overrides: map[string]ir.Severity{
			ir.CodeColocationUnsatisfied: ir.SeverityWarning,
			ir.CodeBandwidthExceeded:     ir.SeverityWarning,
		},
	}
}

// StrictPolicy blocks on every violation.
func StrictPolicy() Policy {
	return Policy{Name: PolicyStrict, Fallback: ir.SeverityBlocking}
}

// LenientPolicy only blocks on populations that exceed a core.
func LenientPolicy() Policy {
	return Policy{Name: PolicyLenient, Fallback: ir.SeverityWarning}
}

// PolicyByName returns a built-in policy. The empty name is the default.
func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyDefault:
		return DefaultPolicy(), nil
	case PolicyStrict:
		return StrictPolicy(), nil
	case PolicyLenient:
		return LenientPolicy(), nil
	}
	return Policy{}, fmt.Errorf("unknown policy %q (want %s, %s or %s)", name, PolicyDefault, PolicyStrict, PolicyLenient)
}

// ParseSeverity accepts "warning" or "blocking" in any case.
func ParseSeverity(s string) (ir.Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warning", "warn":
		return ir.SeverityWarning, nil
	case "blocking", "block", "error":
		return ir.SeverityBlocking, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// With returns a copy of p with code overridden to sev.
func (p Policy) With(code string, sev ir.Severity) Policy {
	p = p.orDefault()
	overrides := maps.Clone(p.Overrides)
	if overrides == nil {
		overrides = make(map[string]ir.Severity)
	}
	overrides[code] = sev
	p.Overrides = overrides
	return p
}

// Classify returns the severity of a violation code.
func (p Policy) Classify(code string) ir.Severity {
	if code == ir.CodePopulationExceedsCore {
		return ir.SeverityBlocking
	}
	p = p.orDefault()
	if sev, ok := p.Overrides[code]; ok {
		return sev
	}
	return p.Fallback
}

// String renders the policy name and its overrides in code order.
func (p Policy) String() string {
	p = p.orDefault()
	if len(p.Overrides) == 0 {
		return p.Name
	}
	var b strings.Builder
	b.WriteString(p.Name)
	for _, code := range slices.Sorted(maps.Keys(p.Overrides)) {
		fmt.Fprintf(&b, " %s=%s", code, p.Overrides[code])
	}
	return b.String()
}

// orDefault treats the zero Policy as DefaultPolicy.
func (p Policy) orDefault() Policy {
	if p.Fallback == "" {
		return DefaultPolicy()
	}
	return p
}
