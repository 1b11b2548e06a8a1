package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"

	"github.com/roach88/neuromap/internal/graphio"
	"github.com/roach88/neuromap/internal/ir"
	"github.com/roach88/neuromap/internal/passes"
	"github.com/roach88/neuromap/internal/pipeline"
)

// Profile is one resolved pipeline block.
type Profile struct {
	Name string

	// Target names a built-in or directory manifest; Manifest is a path to
	// a manifest file, resolved against the profile file's directory.
	Target   string
	Manifest string

	Passes        []string
	Policy        passes.Policy
	FailFast      bool
	MaxDelayTicks ir.Opt[int64]
	Seed          int64

	DumpDir     string
	DumpFormats []graphio.Format

	// Path is the file the profile was read from.
	Path string
}

// Default returns the profile used when no profile file is given.
func Default() *Profile {
	return &Profile{
		Name:   "default",
		Passes: pipeline.DefaultPasses(),
		Policy: passes.DefaultPolicy(),
	}
}

// Options converts the profile into driver options. Dumping is not part
// of the options; see Dumper.
func (p *Profile) Options() []pipeline.Option {
	opts := []pipeline.Option{
		pipeline.WithPolicy(p.Policy),
		pipeline.WithFailFast(p.FailFast),
		pipeline.WithSeed(p.Seed),
	}
	if ticks, ok := p.MaxDelayTicks.Get(); ok {
		opts = append(opts, pipeline.WithMaxDelayTicks(ticks))
	}
	return opts
}

// Dumper returns a dumper for the profile's dump block, or nil when the
// profile does not dump.
func (p *Profile) Dumper() (*graphio.Dumper, error) {
	if p.DumpDir == "" {
		return nil, nil
	}
	return graphio.NewDumper(p.DumpDir, p.DumpFormats...)
}

// File is a parsed profile file.
type File struct {
	Path     string
	Profiles []*Profile
}

// Names returns the profile names in declaration order.
func (f *File) Names() []string {
	names := make([]string, len(f.Profiles))
	for i, p := range f.Profiles {
		names[i] = p.Name
	}
	return names
}

// Profile selects a profile by name. The empty name selects the only
// profile of a single-profile file.
func (f *File) Profile(name string) (*Profile, error) {
	if name == "" {
		if len(f.Profiles) == 1 {
			return f.Profiles[0], nil
		}
		return nil, fmt.Errorf("%s declares %d pipelines, choose one of: %s",
			f.Path, len(f.Profiles), strings.Join(f.Names(), ", "))
	}
	for _, p := range f.Profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%s: no pipeline %q (have: %s)", f.Path, name, strings.Join(f.Names(), ", "))
}

// resolve turns a decoded block into a Profile. Problems are reported as
// diagnostics against the block.
func (b *pipelineBlock) resolve(path string) (*Profile, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	errorf := func(rng hcl.Range, summary, format string, args ...any) {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  summary,
			Detail:   fmt.Sprintf(format, args...),
			Subject:  rng.Ptr(),
		})
	}

	p := &Profile{
		Name:   b.Name,
		Passes: b.Passes,
		Path:   path,
	}
	if len(p.Passes) == 0 {
		p.Passes = pipeline.DefaultPasses()
	}
	if b.Target != nil {
		p.Target = *b.Target
	}
	if b.Manifest != nil {
		p.Manifest = *b.Manifest
		if !filepath.IsAbs(p.Manifest) {
			p.Manifest = filepath.Join(filepath.Dir(path), p.Manifest)
		}
	}
	if p.Target != "" && p.Manifest != "" {
		errorf(b.DefRange, "Conflicting target", "pipeline %q sets both target and manifest", b.Name)
	}
	if b.FailFast != nil {
		p.FailFast = *b.FailFast
	}
	if b.Seed != nil {
		p.Seed = *b.Seed
	}
	if b.MaxDelayTicks != nil {
		if *b.MaxDelayTicks < 0 {
			errorf(b.DefRange, "Invalid max_delay_ticks", "max_delay_ticks must be >= 0, got %d", *b.MaxDelayTicks)
		}
		p.MaxDelayTicks = ir.Some(*b.MaxDelayTicks)
	}

	policyName := ""
	if b.Policy != nil {
		policyName = *b.Policy
	}
	policy, err := passes.PolicyByName(policyName)
	if err != nil {
		errorf(b.DefRange, "Invalid policy", "%s", err)
	}
	known := ir.ViolationCodes()
	for _, s := range b.Severities {
		if !slices.Contains(known, s.Code) {
			errorf(s.DefRange, "Unknown violation code", "unknown violation code %q (known: %s)", s.Code, strings.Join(known, ", "))
			continue
		}
		sev, err := passes.ParseSeverity(s.Level)
		if err != nil {
			errorf(s.DefRange, "Invalid severity", "%s", err)
			continue
		}
		policy = policy.With(s.Code, sev)
	}
	p.Policy = policy

	if b.Dump != nil {
		p.DumpDir = b.Dump.Dir
		if !filepath.IsAbs(p.DumpDir) {
			p.DumpDir = filepath.Join(filepath.Dir(path), p.DumpDir)
		}
		for _, name := range b.Dump.Formats {
			f, err := graphio.ParseFormat(name)
			if err != nil {
				errorf(b.Dump.DefRange, "Invalid dump format", "%s", err)
				continue
			}
			p.DumpFormats = append(p.DumpFormats, f)
		}
	}
	return p, diags
}
