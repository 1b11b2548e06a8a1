package ir

import "fmt"

// Annotation is one side-table entry: the report a pass produced.
type Annotation struct {
	Pass   string `json:"pass" yaml:"pass"`
	Report Report `json:"report" yaml:"report"`
}

// Annotations is the typed side-table threaded through one pipeline run.
//
// Entries are kept in the order passes ran. Keys are never deleted or
// renamed; a pass that runs twice replaces nothing and fails instead, since
// a report is produced once per invocation and then only read.
//
// Annotations is owned by one pipeline invocation and is not safe for
// concurrent mutation.
type Annotations struct {
	entries []Annotation
	index   map[string]int
}

// NewAnnotations returns an empty side-table.
func NewAnnotations() *Annotations {
	return &Annotations{index: make(map[string]int)}
}

// Put records the report of a pass. Recording a second report under the
// same pass name is an error.
func (a *Annotations) Put(pass string, r Report) error {
	if a.index == nil {
		a.index = make(map[string]int)
	}
	if _, exists := a.index[pass]; exists {
		return fmt.Errorf("annotation %q already recorded", pass)
	}
	a.index[pass] = len(a.entries)
	a.entries = append(a.entries, Annotation{Pass: pass, Report: r})
	return nil
}

// Get returns the report recorded under a pass name.
func (a *Annotations) Get(pass string) (Report, bool) {
	i, ok := a.index[pass]
	if !ok {
		return nil, false
	}
	return a.entries[i].Report, true
}

// Entries returns the recorded annotations in pass order.
// The returned slice is a copy; the reports themselves are shared.
func (a *Annotations) Entries() []Annotation {
	out := make([]Annotation, len(a.entries))
	copy(out, a.entries)
	return out
}

// Len returns the number of recorded reports.
func (a *Annotations) Len() int {
	return len(a.entries)
}

// ReportOf returns the first recorded report of type T.
//
// Example:
//
//	plan, ok := ir.ReportOf[*ir.PartitionPlan](ann)
func ReportOf[T Report](a *Annotations) (T, bool) {
	var zero T
	if a == nil {
		return zero, false
	}
	for _, e := range a.entries {
		if r, ok := e.Report.(T); ok {
			return r, true
		}
	}
	return zero, false
}
