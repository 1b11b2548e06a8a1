package passes

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/neuromap/internal/ir"
)

// Partition strategies recorded on the plan.
const (
	StrategySingle   = "single"
	StrategyCapAware = "cap-aware"
)

// PartitionError reports a colocation cluster that cannot fit any part.
// It is only returned in fail-fast mode; in collect-all mode the same
// finding is a PopulationExceedsCore violation on the plan.
type PartitionError struct {
	Populations []string
	Size        int64
	Limit       int64
}

// Error implements the error interface.
func (e *PartitionError) Error() string {
	return fmt.Sprintf("partition: %s needs %d neurons, core limit is %d",
		strings.Join(e.Populations, ", "), e.Size, e.Limit)
}

// PartitionPass assigns every population to exactly one part.
//
// Algorithm:
//  1. Union colocate_with edges into clusters.
//  2. parts = max(1, ceil(neurons / max_neurons_per_core)). Synapse
//     capacity is checked by placement, not used to open parts.
//  3. Clusters too big for one part are split into their members.
//  4. Pack units in descending size (ties: smallest member id first) into
//     the least-loaded feasible part. Among equally loaded parts prefer the
//     unit's shard_preference, then the one holding more projection
//     endpoints of the unit, then the lowest index. A new part opens only
//     when none is feasible.
//
// The result depends on input content only, never on map iteration order.
type PartitionPass struct {
	// FailFast stops at the first population that exceeds a core alone.
	FailFast bool
}

func (PartitionPass) Name() string { return NamePartition }

// packUnit is a set of populations that must share a part.
type packUnit struct {
	members []int // population indices, sorted by id
	size    int64
}

func (u packUnit) firstID(net *ir.Network) string {
	return net.Populations[u.members[0]].ID
}

func (p PartitionPass) Run(net *ir.Network, caps ir.Capabilities, _ *ir.Annotations) (ir.Report, error) {
	index := net.PopulationIndex()
	total := net.TotalNeurons()

	limit, hasLimit := caps.MaxNeuronsPerCore.Get()
	if !hasLimit || limit <= 0 {
		return singlePartPlan(net, total), nil
	}
	parts := max(1, int(ceilDiv(total, limit)))

	var violations []ir.Violation
	units := make([]packUnit, 0, len(net.Populations))
	for _, cluster := range colocationClusters(net, index) {
		var size int64
		for _, m := range cluster {
			size += net.Populations[m].Size
		}
		if size <= limit || len(cluster) == 1 {
			units = append(units, packUnit{members: cluster, size: size})
			continue
		}
		// The hint cannot be honored; pack members on their own.
		ids := memberIDs(net, cluster)
		violations = append(violations, ir.Violation{
			Code:     ir.CodeColocationUnsatisfied,
			Kind:     ir.KindCapacity,
			Part:     ir.NoPart,
			Subject:  ids[0],
			Subjects: ids,
			Value:    float64(size),
			Limit:    float64(limit),
			Message:  fmt.Sprintf("colocation group of %d neurons exceeds core limit %d", size, limit),
		})
		for _, m := range cluster {
			units = append(units, packUnit{members: []int{m}, size: net.Populations[m].Size})
		}
	}

	slices.SortStableFunc(units, func(a, b packUnit) int {
		if c := cmp.Compare(b.size, a.size); c != 0 {
			return c
		}
		return strings.Compare(a.firstID(net), b.firstID(net))
	})

	neighbors := projectionNeighbors(net, index)
	assigned := make([]int, len(net.Populations))
	for i := range assigned {
		assigned[i] = -1
	}
	loads := make([]int64, parts)

	for _, u := range units {
		if u.size > limit {
			ids := memberIDs(net, u.members)
			if p.FailFast {
				return nil, &PartitionError{Populations: ids, Size: u.size, Limit: limit}
			}
			part := emptyPart(loads)
			if part < 0 {
				loads = append(loads, 0)
				part = len(loads) - 1
			}
			place(u, part, assigned, loads)
			violations = append(violations, ir.Violation{
				Code:     ir.CodePopulationExceedsCore,
				Kind:     ir.KindCapacity,
				Part:     part,
				Subject:  ids[0],
				Subjects: ids,
				Value:    float64(u.size),
				Limit:    float64(limit),
				Message:  fmt.Sprintf("population needs %d neurons, core limit is %d", u.size, limit),
			})
			continue
		}

		part := bestPart(u, loads, limit, shardPreference(net, u), affinity(u, neighbors, assigned))
		if part < 0 {
			loads = append(loads, 0)
			part = len(loads) - 1
		}
		place(u, part, assigned, loads)
	}

	// Violations name parts, so renumber before attaching them.
	assigned, loads, remap := compactParts(assigned, loads)
	for i := range violations {
		if violations[i].Part != ir.NoPart {
			violations[i].Part = remap[violations[i].Part]
		}
	}

	plan := &ir.PartitionPlan{
		Parts:      len(loads),
		Strategy:   StrategyCapAware,
		Assignment: make([]ir.PartAssignment, len(net.Populations)),
		Loads:      loads,
		Violations: violations,
	}
	for i, pop := range net.Populations {
		plan.Assignment[i] = ir.PartAssignment{Population: pop.ID, Part: assigned[i]}
	}
	return plan, nil
}

func singlePartPlan(net *ir.Network, total int64) *ir.PartitionPlan {
	plan := &ir.PartitionPlan{
		Parts:      1,
		Strategy:   StrategySingle,
		Assignment: make([]ir.PartAssignment, len(net.Populations)),
		Loads:      []int64{total},
	}
	for i, pop := range net.Populations {
		plan.Assignment[i] = ir.PartAssignment{Population: pop.ID, Part: 0}
	}
	return plan
}

// colocationClusters returns the connected components of colocate_with
// edges, each sorted by population id, ordered by their first id.
func colocationClusters(net *ir.Network, index map[string]int) [][]int {
	parent := make([]int, len(net.Populations))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	for i, pop := range net.Populations {
		if index[pop.ID] != i {
			continue // duplicate id; validate reports it
		}
		for _, other := range pop.Hints.ColocateWith {
			j, ok := index[other]
			if !ok {
				continue
			}
			ri, rj := find(i), find(j)
			if ri != rj {
				parent[max(ri, rj)] = min(ri, rj)
			}
		}
	}

	groups := make(map[int][]int)
	var roots []int
	for i := range net.Populations {
		r := find(i)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], i)
	}

	clusters := make([][]int, 0, len(roots))
	for _, r := range roots {
		members := groups[r]
		slices.SortFunc(members, func(a, b int) int {
			return cmp.Or(strings.Compare(net.Populations[a].ID, net.Populations[b].ID), cmp.Compare(a, b))
		})
		clusters = append(clusters, members)
	}
	slices.SortFunc(clusters, func(a, b []int) int {
		return cmp.Or(strings.Compare(net.Populations[a[0]].ID, net.Populations[b[0]].ID), cmp.Compare(a[0], b[0]))
	})
	return clusters
}

// projectionNeighbors lists, per population, the other endpoint of every
// projection touching it (with multiplicity). Self-loops are skipped.
func projectionNeighbors(net *ir.Network, index map[string]int) [][]int {
	neighbors := make([][]int, len(net.Populations))
	for _, proj := range net.Projections {
		s, okS := index[proj.Src]
		d, okD := index[proj.Dst]
		if !okS || !okD || s == d {
			continue
		}
		neighbors[s] = append(neighbors[s], d)
		neighbors[d] = append(neighbors[d], s)
	}
	return neighbors
}

// affinity counts, per part, projections between the unit and populations
// already placed there.
func affinity(u packUnit, neighbors [][]int, assigned []int) map[int]int {
	aff := make(map[int]int)
	for _, m := range u.members {
		for _, n := range neighbors[m] {
			if part := assigned[n]; part >= 0 {
				aff[part]++
			}
		}
	}
	return aff
}

// bestPart returns the least-loaded part that can take the unit, or -1.
// Among equally loaded parts the preferred shard wins, then affinity,
// then the lowest index.
func bestPart(u packUnit, loads []int64, limit int64, preferred int, aff map[int]int) int {
	best := -1
	for part, load := range loads {
		if load > limit-u.size {
			continue
		}
		if best < 0 || load < loads[best] {
			best = part
			continue
		}
		if load > loads[best] || best == preferred {
			continue
		}
		if part == preferred || aff[part] > aff[best] {
			best = part
		}
	}
	return best
}

// shardPreference returns the shard_preference hint of the first member
// that sets one, or -1.
func shardPreference(net *ir.Network, u packUnit) int {
	for _, m := range u.members {
		if pref := net.Populations[m].Hints.ShardPreference; pref != nil && *pref >= 0 {
			return *pref
		}
	}
	return -1
}

func emptyPart(loads []int64) int {
	for part, load := range loads {
		if load == 0 {
			return part
		}
	}
	return -1
}

func place(u packUnit, part int, assigned []int, loads []int64) {
	for _, m := range u.members {
		assigned[m] = part
	}
	loads[part] += u.size
}

// compactParts drops parts that received no population, keeping order.
// At least one part always remains.
func compactParts(assigned []int, loads []int64) ([]int, []int64, []int) {
	used := make([]bool, len(loads))
	for _, part := range assigned {
		used[part] = true
	}
	remap := make([]int, len(loads))
	kept := make([]int64, 0, len(loads))
	for part, load := range loads {
		if !used[part] && !(len(kept) == 0 && part == len(loads)-1) {
			remap[part] = -1
			continue
		}
		remap[part] = len(kept)
		kept = append(kept, load)
	}
	for i, part := range assigned {
		assigned[i] = remap[part]
	}
	return assigned, kept, remap
}

func memberIDs(net *ir.Network, members []int) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = net.Populations[m].ID
	}
	return ids
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
