package cli

import (
	"bufio"
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/neuromap/internal/pipeline"
)

// Profile metric names.
const (
	MetricPassDurationMs = "pass_duration_ms"
	MetricParts          = "parts"
	MetricBlocking       = "violations_blocking"
	MetricWarnings       = "violations_warning"
)

// ProfileRecord is one JSONL line of a profile file.
type ProfileRecord struct {
	TsMs   int64             `json:"ts_ms"`
	Metric string            `json:"metric"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels"`
}

// MetricSummary aggregates all records of one metric.
type MetricSummary struct {
	Metric string  `json:"metric"`
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// profileRecords turns the statistics of a run into profile records.
// Timestamps advance from start by each pass duration.
func profileRecords(res *pipeline.Result, labels map[string]string, start time.Time) []ProfileRecord {
	withPass := func(pass string) map[string]string {
		l := make(map[string]string, len(labels)+1)
		for k, v := range labels {
			l[k] = v
		}
		if pass != "" {
			l["pass"] = pass
		}
		return l
	}

	var records []ProfileRecord
	ts := start
	for _, st := range res.Stats {
		ts = ts.Add(st.Duration)
		records = append(records, ProfileRecord{
			TsMs:   ts.UnixMilli(),
			Metric: MetricPassDurationMs,
			Value:  float64(st.Duration) / float64(time.Millisecond),
			Labels: withPass(st.Pass),
		})
	}

	if plan, ok := planOf(res); ok {
		records = append(records, ProfileRecord{
			TsMs: ts.UnixMilli(), Metric: MetricParts, Value: float64(plan.Parts), Labels: withPass(""),
		})
	}
	if res.Report != nil {
		blocking := len(res.Report.Blocking())
		records = append(records,
			ProfileRecord{TsMs: ts.UnixMilli(), Metric: MetricBlocking, Value: float64(blocking), Labels: withPass("")},
			ProfileRecord{TsMs: ts.UnixMilli(), Metric: MetricWarnings, Value: float64(len(res.Report.Entries) - blocking), Labels: withPass("")},
		)
	}
	return records
}

// writeProfile writes records as JSON Lines, one object per line.
func writeProfile(path string, records []ProfileRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write profile: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return f.Close()
}

// readProfile parses JSON Lines. Blank and malformed lines are skipped and
// counted.
func readProfile(r io.Reader) ([]ProfileRecord, int, error) {
	var (
		records []ProfileRecord
		skipped int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec ProfileRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil || rec.Metric == "" {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("failed to read profile: %w", err)
	}
	return records, skipped, nil
}

// summarizeProfile returns count, sum, min and max per metric, sorted by
// metric name.
func summarizeProfile(records []ProfileRecord) []MetricSummary {
	byMetric := make(map[string]*MetricSummary)
	for _, r := range records {
		s, ok := byMetric[r.Metric]
		if !ok {
			s = &MetricSummary{Metric: r.Metric, Min: math.Inf(1), Max: math.Inf(-1)}
			byMetric[r.Metric] = s
		}
		s.Count++
		s.Sum += r.Value
		s.Min = min(s.Min, r.Value)
		s.Max = max(s.Max, r.Value)
	}

	out := make([]MetricSummary, 0, len(byMetric))
	for _, s := range byMetric {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b MetricSummary) int { return cmp.Compare(a.Metric, b.Metric) })
	return out
}

// NewProfileCommand creates the profile command.
func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <file.jsonl>",
		Short: "Summarize a JSONL profile written by compile --profile",
		Long: `Summarize a JSON Lines profile into count, sum, min and max per metric.

Each line holds one record: {"ts_ms": ..., "metric": ..., "value": ..., "labels": {...}}.
Malformed lines are skipped.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(rootOpts, args[0], cmd)
		},
	}
}

func runProfile(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	f, err := os.Open(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("profile not found: %s", path), nil)
	}
	defer f.Close()

	records, skipped, err := readProfile(f)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, err.Error(), nil)
	}
	formatter.VerboseLog("Read %d record(s), skipped %d malformed line(s)", len(records), skipped)
	summary := summarizeProfile(records)

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	if len(summary) == 0 {
		fmt.Fprintln(formatter.Writer, "No profile records")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "%-24s %6s %12s %12s %12s\n", "METRIC", "COUNT", "SUM", "MIN", "MAX")
	for _, s := range summary {
		fmt.Fprintf(formatter.Writer, "%-24s %6d %12.3f %12.3f %12.3f\n", s.Metric, s.Count, s.Sum, s.Min, s.Max)
	}
	return nil
}
