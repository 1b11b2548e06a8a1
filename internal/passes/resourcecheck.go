package passes

import (
	"cmp"
	"slices"
	"strings"

	"github.com/roach88/neuromap/internal/ir"
)

// ResourceCheckPass merges the violations of the partition, placement,
// routing and timing reports into one ordered, classified report. Missing
// reports contribute nothing. It computes no new estimates.
type ResourceCheckPass struct {
	Policy Policy
}

func (ResourceCheckPass) Name() string { return NameResourceCheck }

func (p ResourceCheckPass) Run(_ *ir.Network, _ ir.Capabilities, ann *ir.Annotations) (ir.Report, error) {
	entries := []ir.ResourceEntry{}
	add := func(pass string, vs []ir.Violation) {
		for _, v := range vs {
			entries = append(entries, ir.ResourceEntry{
				Violation: v,
				Pass:      pass,
				Severity:  p.Policy.Classify(v.Code),
			})
		}
	}

	if r, ok := ir.ReportOf[*ir.PartitionPlan](ann); ok {
		add(NamePartition, r.Violations)
	}
	if r, ok := ir.ReportOf[*ir.PlacementReport](ann); ok {
		add(NamePlacement, r.Violations)
	}
	if r, ok := ir.ReportOf[*ir.RoutingReport](ann); ok {
		add(NameRouting, r.Violations)
	}
	if r, ok := ir.ReportOf[*ir.TimingReport](ann); ok {
		add(NameTiming, r.Violations)
	}

	slices.SortStableFunc(entries, func(a, b ir.ResourceEntry) int {
		return cmp.Or(
			cmp.Compare(a.Part, b.Part),
			strings.Compare(a.Subject, b.Subject),
			strings.Compare(a.Code, b.Code),
			strings.Compare(a.Pass, b.Pass),
		)
	})

	succeeded := true
	for _, e := range entries {
		if e.Severity == ir.SeverityBlocking {
			succeeded = false
			break
		}
	}
	return &ir.ResourceReport{Entries: entries, Succeeded: succeeded}, nil
}
