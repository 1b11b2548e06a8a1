package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/neuromap/internal/config"
	"github.com/roach88/neuromap/internal/graphio"
	"github.com/roach88/neuromap/internal/ir"
	"github.com/roach88/neuromap/internal/manifest"
	"github.com/roach88/neuromap/internal/passes"
)

// PipelineFlags are the flags shared by commands that run the pipeline.
// Flags given explicitly override the values of the selected profile.
type PipelineFlags struct {
	Config   string
	Pipeline string
	Vars     []string

	Target     string
	Manifest   string
	TargetsDir string

	Passes        []string
	Policy        string
	Severities    []string
	FailFast      bool
	MaxDelayTicks int64
	Seed          int64

	DumpDir     string
	DumpFormats []string
}

func (f *PipelineFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.Config, "config", "c", "", "HCL pipeline profile file")
	fl.StringVar(&f.Pipeline, "pipeline", "", "pipeline block to use from --config")
	fl.StringArrayVar(&f.Vars, "var", nil, "profile variable as name=value (repeatable)")

	fl.StringVarP(&f.Target, "target", "t", "", "target name (built-in or from --targets-dir)")
	fl.StringVar(&f.Manifest, "manifest", "", "target manifest file (.cue)")
	fl.StringVar(&f.TargetsDir, "targets-dir", "", "directory of target manifests searched before built-ins")

	fl.StringSliceVar(&f.Passes, "passes", nil, "comma-separated pass list (default: full pipeline)")
	fl.StringVar(&f.Policy, "policy", "", "violation policy (default|strict|lenient)")
	fl.StringArrayVar(&f.Severities, "severity", nil, "per-code severity override as Code=warning|blocking (repeatable)")
	fl.BoolVar(&f.FailFast, "fail-fast", false, "stop at the first population larger than a core")
	fl.Int64Var(&f.MaxDelayTicks, "max-delay-ticks", 0, "backend delay limit in ticks")
	fl.Int64Var(&f.Seed, "seed", 0, "seed recorded on the run")

	fl.StringVar(&f.DumpDir, "dump-dir", "", "write the annotated graph after every pass into this directory")
	fl.StringSliceVar(&f.DumpFormats, "dump-format", nil, "dump formats: json, yaml (repeat or comma-separated)")
}

// profile loads the selected profile and applies explicitly set flags.
func (f *PipelineFlags) profile(cmd *cobra.Command) (*config.Profile, error) {
	p := config.Default()
	if f.Config != "" {
		vars, err := parseVars(f.Vars)
		if err != nil {
			return nil, err
		}
		file, err := config.LoadFile(f.Config, vars)
		if err != nil {
			return nil, err
		}
		if p, err = file.Profile(f.Pipeline); err != nil {
			return nil, err
		}
	} else if f.Pipeline != "" || len(f.Vars) > 0 {
		return nil, errors.New("--pipeline and --var require --config")
	}

	changed := cmd.Flags().Changed
	if changed("target") {
		p.Target, p.Manifest = f.Target, ""
	}
	if changed("manifest") {
		p.Target, p.Manifest = "", f.Manifest
	}
	if changed("passes") {
		p.Passes = f.Passes
	}
	if changed("policy") {
		policy, err := passes.PolicyByName(f.Policy)
		if err != nil {
			return nil, err
		}
		p.Policy = policy
	}
	for _, s := range f.Severities {
		code, level, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --severity %q: want Code=warning|blocking", s)
		}
		sev, err := passes.ParseSeverity(level)
		if err != nil {
			return nil, fmt.Errorf("invalid --severity %q: %w", s, err)
		}
		p.Policy = p.Policy.With(strings.TrimSpace(code), sev)
	}
	if changed("fail-fast") {
		p.FailFast = f.FailFast
	}
	if changed("max-delay-ticks") {
		if f.MaxDelayTicks < 0 {
			return nil, fmt.Errorf("--max-delay-ticks must be >= 0, got %d", f.MaxDelayTicks)
		}
		p.MaxDelayTicks = ir.Some(f.MaxDelayTicks)
	}
	if changed("seed") {
		p.Seed = f.Seed
	}
	if changed("dump-dir") {
		p.DumpDir = f.DumpDir
	}
	if changed("dump-format") {
		p.DumpFormats = nil
		for _, name := range f.DumpFormats {
			format, err := graphio.ParseFormat(name)
			if err != nil {
				return nil, err
			}
			p.DumpFormats = append(p.DumpFormats, format)
		}
	}
	return p, nil
}

// capabilities resolves the profile's target into a capability snapshot.
// Without a target the snapshot is empty and every pass uses its defaults.
func capabilities(p *config.Profile, targetsDir string) (*manifest.Manifest, ir.Capabilities, error) {
	var (
		m   *manifest.Manifest
		err error
	)
	switch {
	case p.Manifest != "":
		m, err = manifest.LoadFile(p.Manifest)
	case p.Target != "":
		m, err = manifest.Resolve(p.Target, targetsDir)
	default:
		return nil, ir.Capabilities{}, nil
	}
	if err != nil {
		return nil, ir.Capabilities{}, err
	}
	return m, m.Snapshot(), nil
}

func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --var %q: want name=value", pair)
		}
		vars[strings.TrimSpace(name)] = value
	}
	return vars, nil
}

// loadGraph reads a graph file and reports a missing file as not found.
func loadGraph(formatter *OutputFormatter, path string) (*ir.Network, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("graph file not found: %s", path), nil)
	}
	net, err := graphio.LoadFile(path)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeInvalidInput, err.Error(), nil)
	}
	return net, nil
}
