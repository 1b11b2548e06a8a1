package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/neuromap/internal/graphio"
	"github.com/roach88/neuromap/internal/ir"
	"github.com/roach88/neuromap/internal/pipeline"
	"github.com/roach88/neuromap/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	PipelineFlags

	Output  string // result file (.json or .yaml)
	Profile string // JSONL profile path
	DB      string // run history database
}

// CompileResult is the outcome of one mapping run as written to --output
// and to JSON stdout.
type CompileResult struct {
	Network         string               `json:"network" yaml:"network"`
	Target          string               `json:"target,omitempty" yaml:"target,omitempty"`
	Passes          []string             `json:"passes" yaml:"passes"`
	Policy          string               `json:"policy" yaml:"policy"`
	Seed            int64                `json:"seed" yaml:"seed"`
	Succeeded       bool                 `json:"succeeded" yaml:"succeeded"`
	PlanFingerprint string               `json:"plan_fingerprint,omitempty" yaml:"plan_fingerprint,omitempty"`
	Plan            *ir.PartitionPlan    `json:"plan,omitempty" yaml:"plan,omitempty"`
	Report          *ir.ResourceReport   `json:"report,omitempty" yaml:"report,omitempty"`
	Stats           []pipeline.PassStats `json:"stats" yaml:"stats"`
	RunID           string               `json:"run_id,omitempty" yaml:"run_id,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <graph>",
		Short: "Map a graph onto a target",
		Long: `Run the mapping pipeline on a YAML or JSON graph.

The target's capabilities come from --target, --manifest or the selected
profile; without one every pass uses its conservative defaults. The run
fails with exit code 1 when the merged report holds a Blocking violation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the result to a .json or .yaml file")
	cmd.Flags().StringVar(&opts.Profile, "profile", "", "write pass statistics as JSONL profile records")
	cmd.Flags().StringVar(&opts.DB, "db", "", "record the run in this history database")

	return cmd
}

func runCompile(opts *CompileOptions, graphPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.Logger(cmd.ErrOrStderr())

	net, err := loadGraph(formatter, graphPath)
	if err != nil {
		return err
	}

	profile, err := opts.profile(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, err.Error(), nil)
	}
	target, caps, err := capabilities(profile, opts.TargetsDir)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, err.Error(), nil)
	}
	targetName := ""
	if target != nil {
		targetName = target.Name
	}
	formatter.VerboseLog("Mapping %s (%d populations, %d projections) with profile %q, target %q",
		net.Name, len(net.Populations), len(net.Projections), profile.Name, targetName)

	driverOpts := append(profile.Options(), pipeline.WithLogger(logger))
	dumper, err := profile.Dumper()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
	}
	if dumper != nil {
		driverOpts = append(driverOpts, pipeline.WithAfterPass(dumper.Dump))
	}

	driver, err := pipeline.New(pipeline.DefaultRegistry(), profile.Passes, driverOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfiguration, err.Error(), problemsOf(err))
	}

	started := time.Now()
	res, runErr := driver.Run(net, caps)

	result := &CompileResult{
		Network: net.Name,
		Target:  targetName,
		Passes:  driver.Passes(),
		Policy:  profile.Policy.String(),
		Seed:    profile.Seed,
	}
	if res != nil {
		result.Succeeded = runErr == nil && res.Succeeded
		result.PlanFingerprint = res.PlanFingerprint
		result.Plan, _ = planOf(res)
		result.Report = res.Report
		result.Stats = res.Stats
	}

	if opts.Profile != "" && res != nil {
		labels := map[string]string{"network": net.Name}
		if targetName != "" {
			labels["target"] = targetName
		}
		if err := writeProfile(opts.Profile, profileRecords(res, labels, started)); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
		}
		formatter.VerboseLog("Wrote profile to %s", opts.Profile)
	}

	if opts.DB != "" {
		runID, err := recordRun(cmd.Context(), opts.DB, store.RunInput{
			Network:      net,
			Capabilities: caps,
			Target:       targetName,
			Passes:       driver.Passes(),
			Policy:       profile.Policy.String(),
			Seed:         profile.Seed,
			StartedAt:    started,
			Result:       res,
			Err:          runErr,
		})
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeHistory, err.Error(), nil)
		}
		result.RunID = runID
		formatter.VerboseLog("Recorded run %s in %s", runID, opts.DB)
	}

	if opts.Output != "" {
		if err := writeResult(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
		}
	}

	if runErr != nil {
		return outputRunError(formatter, runErr)
	}
	return outputCompileResult(formatter, result, opts.Output)
}

func planOf(res *pipeline.Result) (*ir.PartitionPlan, bool) {
	if res == nil {
		return nil, false
	}
	return ir.ReportOf[*ir.PartitionPlan](res.Annotations)
}

func recordRun(ctx context.Context, dbPath string, in store.RunInput) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer s.Close()

	run, err := store.NewRun(store.UUIDv7Generator{}, in)
	if err != nil {
		return "", err
	}
	run, err = s.RecordRun(ctx, run)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func writeResult(result *CompileResult, path string) error {
	format, err := graphio.FormatOf(path)
	if err != nil {
		return err
	}
	data, err := graphio.Encode(result, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// problemsOf returns the listed problems of a configuration error.
func problemsOf(err error) []string {
	var perr *pipeline.Error
	if errors.As(err, &perr) {
		return perr.Problems
	}
	return nil
}

// outputRunError reports a pipeline abort and returns its exit error.
func outputRunError(formatter *OutputFormatter, err error) error {
	code, exit := RunErrorCode(err)
	if code != ErrCodeStructural {
		return formatter.Fail(exit, code, err.Error(), nil)
	}

	errs := pipeline.StructuralErrors(err)
	if formatter.Format == "json" {
		_ = formatter.Error(code, "graph failed validation", errs)
	} else {
		fmt.Fprintf(formatter.Writer, "✗ Graph is invalid (%d error(s))\n\n", len(errs))
		for _, e := range errs {
			fmt.Fprintf(formatter.Writer, "  %s\n", e.Error())
		}
	}
	return NewExitError(exit, fmt.Sprintf("%s: graph failed validation", code))
}

func outputCompileResult(formatter *OutputFormatter, result *CompileResult, outputFile string) error {
	blocking := 0
	if result.Report != nil {
		blocking = len(result.Report.Blocking())
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result, RunID: result.RunID}
		if !result.Succeeded {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeBlocking,
				Message: fmt.Sprintf("%d blocking violation(s)", blocking),
			}
		}
		if err := formatter.Respond(resp); err != nil {
			return err
		}
	} else {
		printCompileText(formatter, result, blocking, outputFile)
	}

	if !result.Succeeded {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d blocking violation(s)", ErrCodeBlocking, blocking))
	}
	return nil
}

func printCompileText(formatter *OutputFormatter, result *CompileResult, blocking int, outputFile string) {
	w := formatter.Writer
	parts := 0
	if result.Plan != nil {
		parts = result.Plan.Parts
	}
	target := result.Target
	if target == "" {
		target = "none"
	}

	if result.Succeeded {
		fmt.Fprintf(w, "✓ Mapped %s onto %d part(s) [target %s, policy %s]\n\n", result.Network, parts, target, result.Policy)
	} else {
		fmt.Fprintf(w, "✗ Mapping %s has %d blocking violation(s) [target %s, policy %s]\n\n", result.Network, blocking, target, result.Policy)
	}

	fmt.Fprintln(w, "Passes:")
	for _, st := range result.Stats {
		fmt.Fprintf(w, "  %-16s %v\n", st.Pass, st.Duration)
	}
	fmt.Fprintln(w)

	if result.Report != nil && len(result.Report.Entries) > 0 {
		fmt.Fprintln(w, "Violations:")
		for _, e := range result.Report.Entries {
			where := fmt.Sprintf("part %d", e.Part)
			if e.Part == ir.NoPart {
				where = "network"
			}
			fmt.Fprintf(w, "  [%s] %s %s %s (%s): %s\n", e.Severity, e.Code, where, e.Subject, e.Pass, e.Message)
		}
		fmt.Fprintln(w)
	}

	if result.PlanFingerprint != "" {
		fmt.Fprintf(w, "Plan fingerprint: %s\n", result.PlanFingerprint)
	}
	if result.RunID != "" {
		fmt.Fprintf(w, "Recorded run %s\n", result.RunID)
	}
	if outputFile != "" {
		fmt.Fprintf(w, "Wrote result to %s\n", outputFile)
	}
}
