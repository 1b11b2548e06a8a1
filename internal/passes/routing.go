package passes

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/neuromap/internal/ir"
)

// RoutingPass estimates interconnect demand in closed form. Every
// projection whose endpoints sit in different parts contributes
//
//	mbps = edges × bytes_per_event × rate_hz × 8 / 1e6
//
// where rate_hz is the projection hint, else the source population hint,
// else default_spike_rate_hz, else DefaultSpikeRateHz.
type RoutingPass struct{}

func (RoutingPass) Name() string { return NameRouting }

func (RoutingPass) Run(net *ir.Network, caps ir.Capabilities, ann *ir.Annotations) (ir.Report, error) {
	plan, ok := ir.ReportOf[*ir.PartitionPlan](ann)
	if !ok {
		return nil, missingReport(NameRouting, NamePartition)
	}
	parts, err := populationParts(net, plan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", NameRouting, err)
	}

	index := net.PopulationIndex()
	bytes := float64(caps.BytesPerEvent.Or(DefaultBytesPerEvent))
	defaultRate := caps.DefaultSpikeRateHz.Or(DefaultSpikeRateHz)

	r := &ir.RoutingReport{
		Pairs:            []ir.PartPair{},
		CrossProjections: []string{},
	}
	pairs := make(map[[2]int]*ir.PartPair)

	for i := range net.Projections {
		proj := &net.Projections[i]
		s, okS := index[proj.Src]
		d, okD := index[proj.Dst]
		if !okS || !okD || parts[s] == parts[d] {
			continue
		}

		rate := defaultRate
		if proj.SpikeRateHz != nil {
			rate = *proj.SpikeRateHz
		} else if hint := net.Populations[s].Hints.SpikeRateHz; hint != nil {
			rate = *hint
		}
		mbps := float64(net.Synapses(proj, index)) * bytes * rate * 8 / 1e6

		key := [2]int{parts[s], parts[d]}
		pair, ok := pairs[key]
		if !ok {
			pair = &ir.PartPair{Src: key[0], Dst: key[1]}
			pairs[key] = pair
		}
		pair.Mbps += mbps
		pair.Projections = append(pair.Projections, proj.ID)
		r.CrossProjections = append(r.CrossProjections, proj.ID)
		r.TotalMbps += mbps
	}

	for _, pair := range pairs {
		r.Pairs = append(r.Pairs, *pair)
	}
	slices.SortFunc(r.Pairs, func(a, b ir.PartPair) int {
		return cmp.Or(cmp.Compare(a.Src, b.Src), cmp.Compare(a.Dst, b.Dst))
	})

	if limit, ok := caps.InterconnectBandwidthMbps.Get(); ok && r.TotalMbps > limit {
		r.Violations = append(r.Violations, ir.Violation{
			Code:     ir.CodeBandwidthExceeded,
			Kind:     ir.KindRouting,
			Part:     ir.NoPart,
			Subjects: slices.Sorted(slices.Values(r.CrossProjections)),
			Value:    r.TotalMbps,
			Limit:    limit,
			Message:  fmt.Sprintf("interconnect demand %.3f Mbps exceeds %.3f Mbps", r.TotalMbps, limit),
		})
	}
	return r, nil
}
