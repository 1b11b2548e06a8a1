package manifest

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

//go:embed targets/*.cue
var builtinFS embed.FS

// Builtin returns the names of the manifests shipped with neuromap, sorted.
func Builtin() []string {
	entries, err := fs.ReadDir(builtinFS, "targets")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && path.Ext(e.Name()) == ".cue" {
			names = append(names, strings.TrimSuffix(e.Name(), ".cue"))
		}
	}
	slices.Sort(names)
	return names
}

// LoadBuiltin returns a shipped manifest by name.
func LoadBuiltin(name string) (*Manifest, error) {
	data, err := builtinFS.ReadFile(path.Join("targets", name+".cue"))
	if err != nil {
		return nil, fmt.Errorf("unknown built-in target %q (known: %s)", name, strings.Join(Builtin(), ", "))
	}
	return Parse(data, name+".cue")
}

// FindCUEFiles walks the directory and returns all .cue file paths, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(p) == ".cue" {
			files = append(files, p)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}

// LoadDir loads every manifest under dir. All files are attempted; the
// returned error joins every failure.
func LoadDir(dir string) ([]*Manifest, error) {
	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("error scanning directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	var (
		out  []*Manifest
		errs []string
	)
	for _, f := range files {
		m, err := LoadFile(f)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		out = append(out, m)
	}
	if len(errs) > 0 {
		return out, fmt.Errorf("%d of %d manifests invalid:\n  %s", len(errs), len(files), strings.Join(errs, "\n  "))
	}
	return out, nil
}

// Resolve finds a target by name: first among the manifests in dir (when
// dir is not empty), then among the built-in targets.
func Resolve(name, dir string) (*Manifest, error) {
	if dir != "" {
		ms, err := LoadDir(dir)
		for _, m := range ms {
			if m.Name == name {
				return m, nil
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return LoadBuiltin(name)
}
