package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/neuromap/internal/manifest"
)

// TargetInfo is one row of the targets listing.
type TargetInfo struct {
	Name    string `json:"name"`
	Vendor  string `json:"vendor"`
	Family  string `json:"family,omitempty"`
	Source  string `json:"source"` // "builtin" or a file path
	Shadows bool   `json:"shadows,omitempty"`
}

// NewTargetsCommand creates the targets command.
func NewTargetsCommand(rootOpts *RootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "targets [name]",
		Short: "List target manifests or show one",
		Long: `Without a name, list the built-in targets and those found in --targets-dir.
With a name, print the resolved manifest and its capability snapshot.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runTargetShow(rootOpts, args[0], dir, cmd)
			}
			return runTargetList(rootOpts, dir, cmd)
		},
	}

	cmd.Flags().StringVar(&dir, "targets-dir", "", "directory of target manifests")
	return cmd
}

func listTargets(dir string) ([]TargetInfo, error) {
	var out []TargetInfo
	local := make(map[string]bool)
	if dir != "" {
		ms, err := manifest.LoadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, m := range ms {
			local[m.Name] = true
			out = append(out, TargetInfo{Name: m.Name, Vendor: m.Vendor, Family: m.Family, Source: m.Path})
		}
	}
	for _, name := range manifest.Builtin() {
		m, err := manifest.LoadBuiltin(name)
		if err != nil {
			return nil, err
		}
		if local[m.Name] {
			for i := range out {
				if out[i].Name == m.Name {
					out[i].Shadows = true
				}
			}
			continue
		}
		out = append(out, TargetInfo{Name: m.Name, Vendor: m.Vendor, Family: m.Family, Source: "builtin"})
	}
	return out, nil
}

func runTargetList(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	targets, err := listTargets(dir)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(targets)
	}
	for _, t := range targets {
		note := ""
		if t.Shadows {
			note = " (overrides built-in)"
		}
		fmt.Fprintf(formatter.Writer, "  %-14s %-10s %s%s\n", t.Name, t.Vendor, t.Source, note)
	}
	return nil
}

func runTargetShow(opts *RootOptions, name, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	m, err := manifest.Resolve(name, dir)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}

	snapshot := m.Snapshot()
	if formatter.Format == "json" {
		return formatter.Success(map[string]interface{}{
			"manifest":     m,
			"capabilities": snapshot,
		})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s (%s", m.Name, m.Vendor)
	if m.Family != "" {
		fmt.Fprintf(w, " %s", m.Family)
	}
	fmt.Fprintln(w, ")")
	if m.Notes != "" {
		fmt.Fprintf(w, "  %s\n", m.Notes)
	}
	fmt.Fprintln(w)

	rows := []struct {
		name  string
		value fmt.Stringer
	}{
		{"max_neurons_per_core", snapshot.MaxNeuronsPerCore},
		{"max_synapses_per_core", snapshot.MaxSynapsesPerCore},
		{"max_fan_in", snapshot.MaxFanIn},
		{"max_fan_out", snapshot.MaxFanOut},
		{"core_memory_kib", snapshot.CoreMemoryKiB},
		{"interconnect_bandwidth_mbps", snapshot.InterconnectBandwidthMbps},
		{"time_resolution_ns", snapshot.TimeResolutionNs},
		{"neuron_mem_kib_per", snapshot.NeuronMemKiBPer},
		{"syn_mem_kib_per", snapshot.SynMemKiBPer},
		{"bytes_per_event", snapshot.BytesPerEvent},
		{"default_spike_rate_hz", snapshot.DefaultSpikeRateHz},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %-28s %s\n", r.name, r.value)
	}
	return nil
}
