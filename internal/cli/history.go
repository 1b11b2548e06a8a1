package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/neuromap/internal/store"
)

// HistoryOptions holds flags for the history commands.
type HistoryOptions struct {
	*RootOptions
	DB      string
	Network string
	Limit   int
}

// NewHistoryCommand creates the history command with its list and show
// subcommands.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect runs recorded with compile --db",
	}
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "run history database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List recorded runs, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(opts, cmd)
		},
	}
	list.Flags().StringVar(&opts.Network, "network", "", "only runs of this network name")
	list.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of runs (0 for all)")

	show := &cobra.Command{
		Use:           "show <run-id>",
		Short:         "Show one run (a unique id prefix is enough)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(opts, args[0], cmd)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

// openHistory opens an existing database; it never creates one.
func openHistory(formatter *OutputFormatter, path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", path), nil)
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeHistory, err.Error(), nil)
	}
	return s, nil
}

func runHistoryList(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := openHistory(formatter, opts.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns(cmd.Context(), store.ListFilter{Network: opts.Network, Limit: opts.Limit})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeHistory, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded")
		return nil
	}
	for _, r := range runs {
		status := "ok"
		switch {
		case r.ErrorCode != "":
			status = r.ErrorCode
		case !r.Succeeded:
			status = "blocked"
		}
		fmt.Fprintf(formatter.Writer, "%4d  %s  %-20s %-10s %-8s blocking=%d warnings=%d plan=%s\n",
			r.Seq, r.ID, r.Network, orDash(r.Target), status, r.Blocking, r.Warnings, shortHash(r.PlanHash))
	}
	return nil
}

func runHistoryShow(opts *HistoryOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := openHistory(formatter, opts.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	run, err := s.GetRun(cmd.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeHistory, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(run)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (#%d)\n", run.ID, run.Seq)
	fmt.Fprintf(w, "  network:      %s (%s)\n", run.Network, shortHash(run.NetworkHash))
	fmt.Fprintf(w, "  target:       %s\n", orDash(run.Target))
	fmt.Fprintf(w, "  policy:       %s\n", run.Policy)
	fmt.Fprintf(w, "  seed:         %d\n", run.Seed)
	fmt.Fprintf(w, "  succeeded:    %t\n", run.Succeeded)
	if run.ErrorCode != "" || run.ErrorMessage != "" {
		fmt.Fprintf(w, "  error:        %s %s\n", run.ErrorCode, run.ErrorMessage)
	}
	fmt.Fprintf(w, "  plan:         %s\n", orDash(run.PlanHash))
	fmt.Fprintf(w, "  violations:   %d blocking, %d warning\n", run.Blocking, run.Warnings)
	fmt.Fprintf(w, "  started:      %s\n", run.StartedAt.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(w, "  duration:     %v\n", run.Duration)
	fmt.Fprintf(w, "  versions:     compiler %s, ir %s\n", run.CompilerVersion, run.IRVersion)
	if len(run.PassRecords) > 0 {
		fmt.Fprintln(w, "  passes:")
		for _, p := range run.PassRecords {
			fmt.Fprintf(w, "    %d %-16s %v violations=%d\n", p.Step, p.Pass, p.Duration, p.Violations)
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return orDash(h)
}
