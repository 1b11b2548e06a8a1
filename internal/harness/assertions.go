package harness

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/neuromap/internal/ir"
	"github.com/roach88/neuromap/internal/passes"
	"github.com/roach88/neuromap/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Trace    []PassEvent // Passes that ran, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nPasses:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s violations=%d\n", event.Step, event.Pass, event.Violations)
		}
	}

	return buf.String()
}

// assertParts checks the number of parts in the plan.
func assertParts(result *Result, assertion Assertion) error {
	if result.Plan == nil {
		return &AssertionError{
			Type:     AssertParts,
			Expected: fmt.Sprintf("%d parts", assertion.Count),
			Actual:   "no partition plan",
			Trace:    result.Trace,
		}
	}
	if result.Plan.Parts != assertion.Count {
		return &AssertionError{
			Type:     AssertParts,
			Expected: fmt.Sprintf("%d parts", assertion.Count),
			Actual:   fmt.Sprintf("%d parts", result.Plan.Parts),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertPlacement checks that the listed populations share one part
// (same) or that no two of them do (!same).
func assertPlacement(result *Result, assertion Assertion, same bool) error {
	if result.Plan == nil {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("populations %v placed", assertion.Populations),
			Actual:   "no partition plan",
			Trace:    result.Trace,
		}
	}

	index := result.Plan.Index()
	seen := make(map[int]string)
	for _, pop := range assertion.Populations {
		part, ok := index[pop]
		if !ok {
			return &AssertionError{
				Type:     assertion.Type,
				Expected: fmt.Sprintf("population %s in the plan", pop),
				Actual:   "not assigned",
				Trace:    result.Trace,
			}
		}
		if prev, dup := seen[part]; dup && !same {
			return &AssertionError{
				Type:     assertion.Type,
				Expected: fmt.Sprintf("%v in separate parts", assertion.Populations),
				Actual:   fmt.Sprintf("%s and %s share part %d", prev, pop, part),
				Trace:    result.Trace,
			}
		}
		seen[part] = pop
	}

	if same && len(seen) > 1 {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("%v in one part", assertion.Populations),
			Actual:   fmt.Sprintf("spread over %d parts", len(seen)),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertCrossProjections checks the exact set of cross-part projections.
// Order is ignored.
func assertCrossProjections(result *Result, assertion Assertion) error {
	if result.CrossProjections == nil {
		return &AssertionError{
			Type:     AssertCrossProjections,
			Expected: fmt.Sprintf("cross projections %v", assertion.Projections),
			Actual:   "no routing report",
			Trace:    result.Trace,
		}
	}

	want := slices.Sorted(slices.Values(assertion.Projections))
	got := slices.Sorted(slices.Values(result.CrossProjections))
	if !slices.Equal(want, got) {
		return &AssertionError{
			Type:     AssertCrossProjections,
			Expected: fmt.Sprintf("cross projections %v", want),
			Actual:   fmt.Sprintf("cross projections %v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// matchingEntries returns the report entries matching every filter the
// assertion sets.
func matchingEntries(report *ir.ResourceReport, assertion Assertion) []ir.ResourceEntry {
	if report == nil {
		return nil
	}
	var severity ir.Severity
	if assertion.Severity != "" {
		severity, _ = passes.ParseSeverity(assertion.Severity)
	}

	var out []ir.ResourceEntry
	for _, e := range report.Entries {
		switch {
		case assertion.Code != "" && e.Code != assertion.Code:
		case assertion.Subject != "" && e.Subject != assertion.Subject:
		case severity != "" && e.Severity != severity:
		case assertion.Pass != "" && e.Pass != assertion.Pass:
		case assertion.Part != nil && e.Part != *assertion.Part:
		default:
			out = append(out, e)
		}
	}
	return out
}

func describeFilter(assertion Assertion) string {
	var parts []string
	for _, f := range []struct{ name, value string }{
		{"code", assertion.Code},
		{"subject", assertion.Subject},
		{"severity", assertion.Severity},
		{"pass", assertion.Pass},
	} {
		if f.value != "" {
			parts = append(parts, f.name+"="+f.value)
		}
	}
	if assertion.Part != nil {
		parts = append(parts, fmt.Sprintf("part=%d", *assertion.Part))
	}
	if len(parts) == 0 {
		return "any entry"
	}
	return strings.Join(parts, " ")
}

func describeEntries(report *ir.ResourceReport) string {
	if report == nil {
		return "no resource report"
	}
	if len(report.Entries) == 0 {
		return "empty report"
	}
	lines := make([]string, len(report.Entries))
	for i, e := range report.Entries {
		lines[i] = fmt.Sprintf("%s %s part=%d %s (%s)", e.Severity, e.Code, e.Part, e.Subject, e.Pass)
	}
	return strings.Join(lines, "; ")
}

// assertViolation checks that at least one report entry matches.
func assertViolation(result *Result, assertion Assertion) error {
	if len(matchingEntries(result.Report, assertion)) > 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertViolation,
		Expected: describeFilter(assertion),
		Actual:   describeEntries(result.Report),
		Trace:    result.Trace,
	}
}

// assertViolationCount checks the number of matching report entries.
func assertViolationCount(result *Result, assertion Assertion) error {
	count := len(matchingEntries(result.Report, assertion))
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertViolationCount,
			Expected: fmt.Sprintf("%d entries matching %s", assertion.Count, describeFilter(assertion)),
			Actual:   fmt.Sprintf("%d entries: %s", count, describeEntries(result.Report)),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertFinalState queries a history table and compares one row.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	if assertion.Table == "" {
		return fmt.Errorf("final_state assertion requires table name")
	}

	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.DB().QueryContext(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]interface{})
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	for _, key := range slices.Sorted(maps.Keys(assertion.Expect)) {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}

		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}

	return nil
}

// buildWhereClause builds a parameterized WHERE clause with keys in sorted
// order.
func buildWhereClause(where map[string]interface{}) (string, []interface{}, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML scalar to a SQLite parameter.
// Booleans are stored as 0/1.
func toSQLValue(v interface{}) interface{} {
	switch val := v.(type) {
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case int:
		return int64(val)
	default:
		return val
	}
}

func formatWhereClause(where map[string]interface{}) string {
	if len(where) == 0 {
		return "(all rows)"
	}
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, where[k])
	}
	return strings.Join(parts, ", ")
}

// stateValuesEqual compares a YAML-decoded expected value with a value
// scanned from SQLite.
func stateValuesEqual(expected, actual interface{}) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if b, ok := actual.([]byte); ok {
		actual = string(b)
	}

	switch exp := expected.(type) {
	case string:
		actualStr, ok := actual.(string)
		return ok && exp == actualStr
	case int:
		return intEqual(int64(exp), actual)
	case int64:
		return intEqual(exp, actual)
	case float64:
		switch a := actual.(type) {
		case float64:
			return exp == a
		case int64:
			return exp == float64(a)
		}
		return false
	case bool:
		// SQLite stores booleans as integers
		if actualBool, ok := actual.(bool); ok {
			return exp == actualBool
		}
		if actualInt, ok := actual.(int64); ok {
			return exp == (actualInt != 0)
		}
		return false
	}
	return false
}

func intEqual(exp int64, actual interface{}) bool {
	switch a := actual.(type) {
	case int64:
		return exp == a
	case int:
		return exp == int64(a)
	case float64:
		return float64(exp) == a
	}
	return false
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertParts:
			err = assertParts(result, assertion)
		case AssertSamePart:
			err = assertPlacement(result, assertion, true)
		case AssertSeparateParts:
			err = assertPlacement(result, assertion, false)
		case AssertCrossProjections:
			err = assertCrossProjections(result, assertion)
		case AssertViolation:
			err = assertViolation(result, assertion)
		case AssertViolationCount:
			err = assertViolationCount(result, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
