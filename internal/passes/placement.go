package passes

import (
	"fmt"

	"github.com/roach88/neuromap/internal/ir"
)

// PlacementPass estimates per-part memory and synapse load and checks them,
// together with per-population fan-in and fan-out, against the capability
// snapshot. Synapse memory is charged to the part holding the destination
// population. Findings are violations on the report; the pass never aborts
// on them.
type PlacementPass struct{}

func (PlacementPass) Name() string { return NamePlacement }

func (PlacementPass) Run(net *ir.Network, caps ir.Capabilities, ann *ir.Annotations) (ir.Report, error) {
	plan, ok := ir.ReportOf[*ir.PartitionPlan](ann)
	if !ok {
		return nil, missingReport(NamePlacement, NamePartition)
	}
	parts, err := populationParts(net, plan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", NamePlacement, err)
	}

	index := net.PopulationIndex()
	neuronKiB := caps.NeuronMemKiBPer.Or(DefaultNeuronMemKiB)
	synKiB := caps.SynMemKiBPer.Or(DefaultSynMemKiB)

	r := &ir.PlacementReport{
		MemoryKiB: make([]float64, plan.Parts),
		Synapses:  make([]int64, plan.Parts),
		FanIn:     make([]ir.PopulationStat, len(net.Populations)),
		FanOut:    make([]ir.PopulationStat, len(net.Populations)),
	}

	for i, pop := range net.Populations {
		if hint := pop.Hints.MemoryEstimateBytes; hint != nil {
			r.MemoryKiB[parts[i]] += float64(*hint) / 1024
			continue
		}
		r.MemoryKiB[parts[i]] += float64(pop.Size) * neuronKiB
	}
	for i := range net.Projections {
		proj := &net.Projections[i]
		d, ok := index[proj.Dst]
		if !ok {
			continue
		}
		r.Synapses[parts[d]] += net.Synapses(proj, index)
	}
	for part, syn := range r.Synapses {
		r.MemoryKiB[part] += float64(syn) * synKiB
	}

	if limit, ok := caps.CoreMemoryKiB.Get(); ok {
		for part, kib := range r.MemoryKiB {
			if kib > limit {
				r.Violations = append(r.Violations, ir.Violation{
					Code:    ir.CodeCoreMemoryExceeded,
					Kind:    ir.KindCapacity,
					Part:    part,
					Value:   kib,
					Limit:   limit,
					Message: fmt.Sprintf("part %d needs %.3f KiB, core memory is %.3f KiB", part, kib, limit),
				})
			}
		}
	}
	if limit, ok := caps.MaxSynapsesPerCore.Get(); ok {
		for part, syn := range r.Synapses {
			if syn > limit {
				r.Violations = append(r.Violations, ir.Violation{
					Code:    ir.CodeSynapseCapacityExceeded,
					Kind:    ir.KindCapacity,
					Part:    part,
					Value:   float64(syn),
					Limit:   float64(limit),
					Message: fmt.Sprintf("part %d holds %d synapses, core limit is %d", part, syn, limit),
				})
			}
		}
	}

	in, out := fanCounts(net, index)
	maxIn, hasIn := caps.MaxFanIn.Get()
	maxOut, hasOut := caps.MaxFanOut.Get()
	for i, pop := range net.Populations {
		r.FanIn[i] = ir.PopulationStat{Population: pop.ID, Count: in[i]}
		r.FanOut[i] = ir.PopulationStat{Population: pop.ID, Count: out[i]}
		if hasIn && in[i] > maxIn {
			r.Violations = append(r.Violations, fanViolation(ir.CodeFanInExceeded, "fan-in", parts[i], pop.ID, in[i], maxIn))
		}
		if hasOut && out[i] > maxOut {
			r.Violations = append(r.Violations, fanViolation(ir.CodeFanOutExceeded, "fan-out", parts[i], pop.ID, out[i], maxOut))
		}
	}
	return r, nil
}

func fanViolation(code, what string, part int, pop string, count, limit int64) ir.Violation {
	return ir.Violation{
		Code:    code,
		Kind:    ir.KindCapacity,
		Part:    part,
		Subject: pop,
		Value:   float64(count),
		Limit:   float64(limit),
		Message: fmt.Sprintf("population %q has %s %d, limit is %d", pop, what, count, limit),
	}
}

// populationParts returns the part of every population, indexed like
// net.Populations. A population the plan does not cover is an error.
func populationParts(net *ir.Network, plan *ir.PartitionPlan) ([]int, error) {
	byID := plan.Index()
	parts := make([]int, len(net.Populations))
	for i, pop := range net.Populations {
		part, ok := byID[pop.ID]
		if !ok {
			return nil, fmt.Errorf("population %q has no part", pop.ID)
		}
		if part < 0 || part >= plan.Parts {
			return nil, fmt.Errorf("population %q assigned to part %d of %d", pop.ID, part, plan.Parts)
		}
		parts[i] = part
	}
	return parts, nil
}
