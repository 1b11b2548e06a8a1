package graphio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/neuromap/internal/ir"
)

// Dump is the annotated network after one pass.
type Dump struct {
	Step        int             `json:"step" yaml:"step"`
	Pass        string          `json:"pass" yaml:"pass"`
	Network     *ir.Network     `json:"network" yaml:"network"`
	Annotations []ir.Annotation `json:"annotations" yaml:"annotations"`
}

// Dumper writes one file per pass and format into Dir, named
// "<step>-<pass>.<ext>" with a two-digit step.
type Dumper struct {
	Dir     string
	Formats []Format
}

// NewDumper creates the dump directory.
func NewDumper(dir string, formats ...Format) (*Dumper, error) {
	if len(formats) == 0 {
		formats = []Format{FormatJSON}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dump directory: %w", err)
	}
	return &Dumper{Dir: dir, Formats: formats}, nil
}

// Dump writes the annotated network. Its signature matches
// pipeline.AfterPassFunc.
func (d *Dumper) Dump(step int, pass string, net *ir.Network, ann *ir.Annotations) error {
	doc := Dump{Step: step, Pass: pass, Network: net, Annotations: ann.Entries()}
	for _, f := range d.Formats {
		data, err := Encode(doc, f)
		if err != nil {
			return fmt.Errorf("encode %s dump: %w", f, err)
		}
		if err := os.WriteFile(d.Path(step, pass, f), data, 0o644); err != nil {
			return fmt.Errorf("failed to write dump: %w", err)
		}
	}
	return nil
}

// Path returns the file a dump is written to.
func (d *Dumper) Path(step int, pass string, f Format) string {
	return filepath.Join(d.Dir, fmt.Sprintf("%02d-%s.%s", step, pass, f.Ext()))
}
