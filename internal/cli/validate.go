package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/neuromap/internal/ir"
	"github.com/roach88/neuromap/internal/passes"
	"github.com/roach88/neuromap/internal/pipeline"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Network string               `json:"network"`
	Valid   bool                 `json:"valid"`
	Errors  []ir.StructuralError `json:"errors,omitempty"`
	Metrics passes.GraphMetrics  `json:"metrics"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <graph>",
		Short: "Check a graph's structure without mapping it",
		Long: `Run only the validate pass and print every structural error together
with graph metrics (node and edge counts, fan-in and fan-out).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, graphPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	net, err := loadGraph(formatter, graphPath)
	if err != nil {
		return err
	}

	driver, err := pipeline.New(pipeline.DefaultRegistry(), []string{passes.NameValidate},
		pipeline.WithLogger(opts.Logger(cmd.ErrOrStderr())))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfiguration, err.Error(), nil)
	}

	result := ValidationResult{
		Network: net.Name,
		Valid:   true,
		Metrics: passes.ComputeMetrics(net),
	}
	if _, err := driver.Run(net, ir.Capabilities{}); err != nil {
		if !pipeline.IsStructuralError(err) {
			return outputRunError(formatter, err)
		}
		result.Valid = false
		result.Errors = pipeline.StructuralErrors(err)
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeStructural,
				Message: fmt.Sprintf("%d structural error(s)", len(result.Errors)),
			}
		}
		if err := formatter.Respond(resp); err != nil {
			return err
		}
	} else {
		printValidationText(formatter, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d structural error(s)", ErrCodeStructural, len(result.Errors)))
	}
	return nil
}

func printValidationText(formatter *OutputFormatter, result ValidationResult) {
	w := formatter.Writer
	if result.Valid {
		fmt.Fprintf(w, "✓ %s is valid\n\n", result.Network)
	} else {
		fmt.Fprintf(w, "✗ %s has %d structural error(s)\n\n", result.Network, len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", e.Error())
		}
		fmt.Fprintln(w)
	}

	m := result.Metrics
	fmt.Fprintln(w, "Metrics:")
	fmt.Fprintf(w, "  populations: %d (%d neurons)\n", m.Nodes, m.Neurons)
	fmt.Fprintf(w, "  projections: %d (%d synapses)\n", m.Edges, m.Synapses)
	fmt.Fprintf(w, "  fan-in:  avg %.2f, max %d\n", m.AvgFanIn, m.MaxFanIn)
	fmt.Fprintf(w, "  fan-out: avg %.2f, max %d\n", m.AvgFanOut, m.MaxFanOut)
}
