package config

import (
	"fmt"
	"maps"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// variablesFile is the first decoding stage: variable blocks only, with
// everything else left for the second stage.
type variablesFile struct {
	Variables []*variableBlock `hcl:"variable,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type variableBlock struct {
	Name    string         `hcl:"name,label"`
	Default hcl.Expression `hcl:"default,optional"`
}

type pipelinesFile struct {
	Pipelines []*pipelineBlock `hcl:"pipeline,block"`
}

type pipelineBlock struct {
	Name          string           `hcl:"name,label"`
	Target        *string          `hcl:"target,optional"`
	Manifest      *string          `hcl:"manifest,optional"`
	Passes        []string         `hcl:"passes,optional"`
	Policy        *string          `hcl:"policy,optional"`
	FailFast      *bool            `hcl:"fail_fast,optional"`
	MaxDelayTicks *int64           `hcl:"max_delay_ticks,optional"`
	Seed          *int64           `hcl:"seed,optional"`
	Severities    []*severityBlock `hcl:"severity,block"`
	Dump          *dumpBlock       `hcl:"dump,block"`
	DefRange      hcl.Range        `hcl:",def_range"`
}

type severityBlock struct {
	Code     string    `hcl:"code,label"`
	Level    string    `hcl:"level"`
	DefRange hcl.Range `hcl:",def_range"`
}

type dumpBlock struct {
	Dir      string    `hcl:"dir"`
	Formats  []string  `hcl:"formats,optional"`
	DefRange hcl.Range `hcl:",def_range"`
}

// LoadFile parses a profile file. vars override declared variable
// defaults; every value given on the command line is a string and is
// converted where the attribute needs a number or bool.
func LoadFile(path string, vars map[string]string) (*File, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %s", path, diags.Error())
	}
	return decode(path, file.Body, vars)
}

// Parse parses profile source held in memory. filename is used in
// diagnostics and to resolve relative paths.
func Parse(src []byte, filename string, vars map[string]string) (*File, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %s", filename, diags.Error())
	}
	return decode(filename, file.Body, vars)
}

func decode(path string, body hcl.Body, vars map[string]string) (*File, error) {
	var vf variablesFile
	if diags := gohcl.DecodeBody(body, nil, &vf); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %s", path, diags.Error())
	}

	ctx, diags := evalContext(vf.Variables, vars)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %s", path, diags.Error())
	}

	var pf pipelinesFile
	if diags := gohcl.DecodeBody(vf.Remain, ctx, &pf); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %s", path, diags.Error())
	}
	if len(pf.Pipelines) == 0 {
		return nil, fmt.Errorf("%s: no pipeline blocks", path)
	}

	out := &File{Path: path}
	seen := make(map[string]bool)
	for _, b := range pf.Pipelines {
		if seen[b.Name] {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate pipeline",
				Detail:   fmt.Sprintf("pipeline %q is declared more than once", b.Name),
				Subject:  b.DefRange.Ptr(),
			})
			continue
		}
		seen[b.Name] = true
		p, pdiags := b.resolve(path)
		diags = append(diags, pdiags...)
		out.Profiles = append(out.Profiles, p)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid profile file %s: %s", path, diags.Error())
	}
	return out, nil
}

// evalContext exposes variables as the var object.
func evalContext(decls []*variableBlock, overrides map[string]string) (*hcl.EvalContext, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	values := make(map[string]cty.Value)
	declared := make(map[string]bool)

	for _, v := range decls {
		if declared[v.Name] {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate variable",
				Detail:   fmt.Sprintf("variable %q is declared more than once", v.Name),
				Subject:  v.Default.Range().Ptr(),
			})
			continue
		}
		declared[v.Name] = true

		if s, ok := overrides[v.Name]; ok {
			values[v.Name] = cty.StringVal(s)
			continue
		}
		val, vdiags := v.Default.Value(nil)
		diags = append(diags, vdiags...)
		if vdiags.HasErrors() {
			continue
		}
		if val.IsNull() {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Missing variable value",
				Detail:   fmt.Sprintf("variable %q has no default and no value was given", v.Name),
				Subject:  v.Default.Range().Ptr(),
			})
			continue
		}
		values[v.Name] = val
	}

	for _, name := range slices.Sorted(maps.Keys(overrides)) {
		if !declared[name] {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Undeclared variable",
				Detail:   fmt.Sprintf("a value was given for undeclared variable %q", name),
			})
		}
	}

	obj := cty.EmptyObjectVal
	if len(values) > 0 {
		obj = cty.ObjectVal(values)
	}
	return &hcl.EvalContext{Variables: map[string]cty.Value{"var": obj}}, diags
}
