package passes

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/neuromap/internal/ir"
)

func partition(t *testing.T, net *ir.Network, caps ir.Capabilities) *ir.PartitionPlan {
	t.Helper()
	r, err := PartitionPass{}.Run(net, caps, ir.NewAnnotations())
	require.NoError(t, err)
	return r.(*ir.PartitionPlan)
}

func TestPartition_ScenarioA(t *testing.T) {
	net := network([]ir.Population{pop("A", 600), pop("B", 600)}, dense("ab", "A", "B"))
	plan := partition(t, net, ir.Capabilities{MaxNeuronsPerCore: ir.Some[int64](1000)})

	assert.Equal(t, 2, plan.Parts)
	assert.Equal(t, StrategyCapAware, plan.Strategy)
	a, _ := plan.PartOf("A")
	b, _ := plan.PartOf("B")
	assert.NotEqual(t, a, b)
	assert.Equal(t, []int64{600, 600}, plan.Loads)
	assert.Empty(t, plan.Violations)
}

func TestPartition_ScenarioB(t *testing.T) {
	net := network([]ir.Population{pop("A", 600), pop("B", 600)}, dense("ab", "A", "B"))
	net.Populations[0].Hints.ColocateWith = []string{"B"}
	plan := partition(t, net, ir.Capabilities{MaxNeuronsPerCore: ir.Some[int64](2000)})

	assert.Equal(t, 1, plan.Parts)
	assert.Equal(t, []int64{1200}, plan.Loads)
	assert.Empty(t, plan.Violations)
}

func TestPartition_NoLimitIsSinglePart(t *testing.T) {
	net := chainNet(5, 1_000_000)
	plan := partition(t, net, ir.Capabilities{})

	assert.Equal(t, 1, plan.Parts)
	assert.Equal(t, StrategySingle, plan.Strategy)
	assert.Equal(t, []int64{5_000_000}, plan.Loads)
	for _, a := range plan.Assignment {
		assert.Equal(t, 0, a.Part)
	}
}

func TestPartition_EmptyNetwork(t *testing.T) {
	plan := partition(t, network(nil), ir.Capabilities{MaxNeuronsPerCore: ir.Some[int64](10)})
	assert.Equal(t, 1, plan.Parts)
	assert.Empty(t, plan.Assignment)
	assert.Equal(t, []int64{0}, plan.Loads)
}

func TestPartition_Totality(t *testing.T) {
	tests := []struct {
		name  string
		net   *ir.Network
		limit int64
	}{
		{"chain fits", chainNet(10, 100), 1000},
		{"chain tight", chainNet(10, 100), 100},
		{"chain uneven", chainNet(7, 300), 1000},
		{"many small", chainNet(40, 7), 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := partition(t, tt.net, ir.Capabilities{MaxNeuronsPerCore: ir.Some(tt.limit)})

			require.Len(t, plan.Assignment, len(tt.net.Populations))
			require.Len(t, plan.Loads, plan.Parts)

			loads := make([]int64, plan.Parts)
			for i, a := range plan.Assignment {
				assert.Equal(t, tt.net.Populations[i].ID, a.Population)
				require.GreaterOrEqual(t, a.Part, 0)
				require.Less(t, a.Part, plan.Parts)
				loads[a.Part] += tt.net.Populations[i].Size
			}
			assert.Equal(t, loads, plan.Loads)
			for part, load := range plan.Loads {
				assert.Positive(t, load, "part %d is empty", part)
				assert.LessOrEqual(t, load, tt.limit)
			}
			assert.Empty(t, plan.Violations)
		})
	}
}

func TestPartition_Deterministic(t *testing.T) {
	net := chainNet(12, 130)
	net.Populations[3].Hints.ColocateWith = []string{"p07"}
	caps := ir.Capabilities{MaxNeuronsPerCore: ir.Some[int64](400)}

	first := partition(t, net, caps)
	for range 5 {
		assert.Equal(t, first, partition(t, net, caps))
	}

	// Declaration order does not change where a population lands.
	reversed := network(slices.Clone(net.Populations), net.Projections...)
	slices.Reverse(reversed.Populations)
	assert.Equal(t, first.Index(), partition(t, reversed, caps).Index())
}

func TestPartition_ProjectionAffinityBreaksLoadTies(t *testing.T) {
	pops := []ir.Population{pop("W", 50), pop("X", 50), pop("Y", 50), pop("Z", 50)}
	caps := ir.Capabilities{MaxNeuronsPerCore: ir.Some[int64](100)}

	plain := partition(t, network(pops), caps)
	assert.Equal(t, map[string]int{"W": 0, "X": 1, "Y": 0, "Z": 1}, plain.Index())

	linked := partition(t, network(pops, dense("xy", "X", "Y")), caps)
	assert.Equal(t, map[string]int{"W": 0, "X": 1, "Y": 1, "Z": 0}, linked.Index())
}

func TestPartition_SynapseLimitKeepsTrivialCase(t *testing.T) {
	net := network([]ir.Population{pop("A", 10), pop("B", 10)}, dense("ab", "A", "B"))

	tests := []struct {
		name     string
		caps     ir.Capabilities
		strategy string
	}{
		{
			name:     "neuron and synapse limits",
			caps:     ir.Capabilities{MaxNeuronsPerCore: ir.Some[int64](1000), MaxSynapsesPerCore: ir.Some[int64](50)},
			strategy: StrategyCapAware,
		},
		{
			name:     "synapse limit only",
			caps:     ir.Capabilities{MaxSynapsesPerCore: ir.Some[int64](40)},
			strategy: StrategySingle,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := partition(t, net, tt.caps)
			assert.Equal(t, 1, plan.Parts)
			assert.Equal(t, tt.strategy, plan.Strategy)
			assert.Equal(t, map[string]int{"A": 0, "B": 0}, plan.Index())
			assert.Empty(t, plan.Violations)
		})
	}
}

func TestPartition_SynapseOverflowReportedByPlacement(t *testing.T) {
	net := network([]ir.Population{pop("A", 10), pop("B", 10)}, dense("ab", "A", "B"))
	caps := ir.Capabilities{MaxNeuronsPerCore: ir.Some[int64](1000), MaxSynapsesPerCore: ir.Some[int64](50)}

	ann := ir.NewAnnotations()
	plan := partition(t, net, caps)
	require.NoError(t, ann.Put(NamePartition, plan))

	r, err := PlacementPass{}.Run(net, caps, ann)
	require.NoError(t, err)
	placement := r.(*ir.PlacementReport)

	assert.Equal(t, []int64{100}, placement.Synapses)
	require.Len(t, placement.Violations, 1)
	assert.Equal(t, ir.CodeSynapseCapacityExceeded, placement.Violations[0].Code)
	assert.Equal(t, 0, placement.Violations[0].Part)
}

func TestPartition_ShardPreferenceBreaksLoadTies(t *testing.T) {
	caps := ir.Capabilities{MaxNeuronsPerCore: ir.Some[int64](1000)}

	plain := partition(t, network([]ir.Population{pop("A", 600), pop("B", 600)}), caps)
	assert.Equal(t, map[string]int{"A": 0, "B": 1}, plain.Index())

	pref := 1
	pops := []ir.Population{pop("A", 600), pop("B", 600)}
	pops[0].Hints.ShardPreference = &pref
	preferred := partition(t, network(pops), caps)
	assert.Equal(t, map[string]int{"A": 1, "B": 0}, preferred.Index())

	// A preference for a part that is not open is ignored.
	far := 7
	pops[0].Hints.ShardPreference = &far
	assert.Equal(t, plain.Index(), partition(t, network(pops), caps).Index())
}

func TestPartition_ShardPreferenceDoesNotOverrideLoad(t *testing.T) {
	pref := 0
	pops := []ir.Population{pop("A", 600), pop("B", 500), pop("C", 100)}
	pops[2].Hints.ShardPreference = &pref
	plan := partition(t, network(pops), ir.Capabilities{MaxNeuronsPerCore: ir.Some[int64](1000)})

	// C prefers part 0, which fits it, but part 1 is lighter.
	assert.Equal(t, map[string]int{"A": 0, "B": 1, "C": 1}, plan.Index())
}

func TestPartition_OversizedPopulation(t *testing.T) {
	net := network([]ir.Population{pop("A", 1500), pop("B", 200), pop("C", 1200)})
	caps := ir.Capabilities{MaxNeuronsPerCore: ir.Some[int64](1000)}

	t.Run("collect all", func(t *testing.T) {
		plan := partition(t, net, caps)

		require.Len(t, plan.Violations, 2)
		for _, v := range plan.Violations {
			assert.Equal(t, ir.CodePopulationExceedsCore, v.Code)
			assert.Equal(t, ir.KindCapacity, v.Kind)
			assert.Equal(t, float64(1000), v.Limit)
			part, _ := plan.PartOf(v.Subject)
			assert.Equal(t, part, v.Part)
		}
		assert.Equal(t, "A", plan.Violations[0].Subject)
		assert.Equal(t, "C", plan.Violations[1].Subject)

		a, _ := plan.PartOf("A")
		b, _ := plan.PartOf("B")
		c, _ := plan.PartOf("C")
		assert.NotEqual(t, a, b)
		assert.NotEqual(t, a, c)
		assert.NotEqual(t, b, c)
	})

	t.Run("fail fast", func(t *testing.T) {
		_, err := PartitionPass{FailFast: true}.Run(net, caps, ir.NewAnnotations())
		require.Error(t, err)

		var perr *PartitionError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, []string{"A"}, perr.Populations)
		assert.Equal(t, int64(1500), perr.Size)
		assert.Contains(t, err.Error(), "core limit is 1000")
	})
}

func TestPartition_ColocationTooLargeIsSplit(t *testing.T) {
	net := network([]ir.Population{pop("A", 600), pop("B", 600)})
	net.Populations[1].Hints.ColocateWith = []string{"A"}
	plan := partition(t, net, ir.Capabilities{MaxNeuronsPerCore: ir.Some[int64](1000)})

	require.Len(t, plan.Violations, 1)
	v := plan.Violations[0]
	assert.Equal(t, ir.CodeColocationUnsatisfied, v.Code)
	assert.Equal(t, ir.NoPart, v.Part)
	assert.Equal(t, []string{"A", "B"}, v.Subjects)
	assert.Equal(t, float64(1200), v.Value)
	assert.Equal(t, 2, plan.Parts)
}

func TestPartition_ColocationIsTransitive(t *testing.T) {
	net := network([]ir.Population{pop("A", 10), pop("B", 10), pop("C", 10), pop("D", 25)})
	net.Populations[0].Hints.ColocateWith = []string{"B"}
	net.Populations[2].Hints.ColocateWith = []string{"B"}
	plan := partition(t, net, ir.Capabilities{MaxNeuronsPerCore: ir.Some[int64](30)})

	idx := plan.Index()
	assert.Equal(t, idx["A"], idx["B"])
	assert.Equal(t, idx["B"], idx["C"])
	assert.NotEqual(t, idx["A"], idx["D"])
	assert.Empty(t, plan.Violations)
}
