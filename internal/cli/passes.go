package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/neuromap/internal/pipeline"
)

// PassInfo describes one registered pass name.
type PassInfo struct {
	Name      string   `json:"name"`
	Canonical string   `json:"canonical"`
	Requires  []string `json:"requires,omitempty"`
	Summary   string   `json:"summary"`
	Default   bool     `json:"default"` // part of the default pipeline
}

// NewPassesCommand creates the passes command.
func NewPassesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "passes",
		Short:         "List the registered passes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPasses(rootOpts, cmd)
		},
	}
}

// listPasses returns every registered name, aliases included, sorted.
func listPasses(reg pipeline.Registry) []PassInfo {
	defaults := pipeline.DefaultPasses()
	var out []PassInfo
	for _, name := range reg.Names() {
		entry := reg[name]
		canonical := entry.Factory(pipeline.Options{}).Name()
		out = append(out, PassInfo{
			Name:      name,
			Canonical: canonical,
			Requires:  entry.Requires,
			Summary:   entry.Summary,
			Default:   name == canonical && slices.Contains(defaults, name),
		})
	}
	return out
}

func runPasses(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	infos := listPasses(pipeline.DefaultRegistry())

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Default pipeline: %s\n\n", strings.Join(pipeline.DefaultPasses(), " → "))
	for _, p := range infos {
		line := fmt.Sprintf("  %-16s %s", p.Name, p.Summary)
		if p.Name != p.Canonical {
			line = fmt.Sprintf("  %-16s alias of %s", p.Name, p.Canonical)
		}
		if len(p.Requires) > 0 {
			line += fmt.Sprintf(" (requires %s)", strings.Join(p.Requires, ", "))
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
