package passes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/neuromap/internal/ir"
)

func route(t *testing.T, net *ir.Network, caps ir.Capabilities, ann *ir.Annotations) *ir.RoutingReport {
	t.Helper()
	r, err := RoutingPass{}.Run(net, caps, ann)
	require.NoError(t, err)
	return r.(*ir.RoutingReport)
}

func TestRouting_ScenarioA(t *testing.T) {
	net := network([]ir.Population{pop("A", 600), pop("B", 600)}, dense("ab", "A", "B"))
	caps := ir.Capabilities{MaxNeuronsPerCore: ir.Some[int64](1000)}
	ann := run(t, net, caps, ValidatePass{}, PartitionPass{}, RoutingPass{})

	r := report[*ir.RoutingReport](t, ann)
	assert.Equal(t, []string{"ab"}, r.CrossProjections)
	require.Len(t, r.Pairs, 1)
	assert.Equal(t, []string{"ab"}, r.Pairs[0].Projections)
	// 360000 edges × 4 bytes × 10 Hz × 8 bits
	assert.InDelta(t, 115.2, r.TotalMbps, 1e-9)
	assert.Empty(t, r.Violations)
}

func TestRouting_ScenarioB(t *testing.T) {
	net := network([]ir.Population{pop("A", 600), pop("B", 600)}, dense("ab", "A", "B"))
	net.Populations[1].Hints.ColocateWith = []string{"A"}
	caps := ir.Capabilities{MaxNeuronsPerCore: ir.Some[int64](2000)}
	ann := run(t, net, caps, ValidatePass{}, PartitionPass{}, RoutingPass{})

	r := report[*ir.RoutingReport](t, ann)
	assert.Empty(t, r.CrossProjections)
	assert.Empty(t, r.Pairs)
	assert.Zero(t, r.TotalMbps)
}

func TestRouting_RatePrecedence(t *testing.T) {
	projRate, popRate := 100.0, 50.0
	tests := []struct {
		name     string
		projHint *float64
		popHint  *float64
		caps     ir.Capabilities
		expected float64
	}{
		{"built-in default", nil, nil, ir.Capabilities{}, 10 * 4 * 8 / 1e6 * 1000},
		{"capability default", nil, nil, ir.Capabilities{DefaultSpikeRateHz: ir.Some(20.0)}, 20 * 4 * 8 / 1e6 * 1000},
		{"population hint", nil, &popRate, ir.Capabilities{DefaultSpikeRateHz: ir.Some(20.0)}, 50 * 4 * 8 / 1e6 * 1000},
		{"projection hint", &projRate, &popRate, ir.Capabilities{DefaultSpikeRateHz: ir.Some(20.0)}, 100 * 4 * 8 / 1e6 * 1000},
		{"bytes per event", nil, nil, ir.Capabilities{BytesPerEvent: ir.Some[int64](16)}, 10 * 16 * 8 / 1e6 * 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := network([]ir.Population{pop("A", 1), pop("B", 1)}, edges("ab", "A", "B", 1000))
			net.Projections[0].SpikeRateHz = tt.projHint
			net.Populations[0].Hints.SpikeRateHz = tt.popHint
			ann := withPlan(t, 2, map[string]int{"A": 0, "B": 1}, net)

			r := route(t, net, tt.caps, ann)
			assert.InDelta(t, tt.expected, r.TotalMbps, 1e-9)
		})
	}
}

func TestRouting_PairsAggregatedAndSorted(t *testing.T) {
	net := network(
		[]ir.Population{pop("A", 1), pop("B", 1), pop("C", 1)},
		edges("ca", "C", "A", 1000),
		edges("ab", "A", "B", 1000),
		edges("cb", "C", "B", 1000),
		edges("ab2", "A", "B", 1000),
		edges("bb", "B", "B", 1000),
	)
	ann := withPlan(t, 3, map[string]int{"A": 0, "B": 1, "C": 2}, net)

	r := route(t, net, ir.Capabilities{}, ann)
	require.Len(t, r.Pairs, 3)
	assert.Equal(t, [2]int{0, 1}, [2]int{r.Pairs[0].Src, r.Pairs[0].Dst})
	assert.Equal(t, []string{"ab", "ab2"}, r.Pairs[0].Projections)
	assert.Equal(t, [2]int{2, 0}, [2]int{r.Pairs[1].Src, r.Pairs[1].Dst})
	assert.Equal(t, [2]int{2, 1}, [2]int{r.Pairs[2].Src, r.Pairs[2].Dst})
	assert.InDelta(t, 2*r.Pairs[1].Mbps, r.Pairs[0].Mbps, 1e-12)
	assert.Equal(t, []string{"ca", "ab", "cb", "ab2"}, r.CrossProjections)
}

func TestRouting_BandwidthExceeded(t *testing.T) {
	net := network([]ir.Population{pop("A", 600), pop("B", 600)}, dense("ab", "A", "B"))
	ann := withPlan(t, 2, map[string]int{"A": 0, "B": 1}, net)

	r := route(t, net, ir.Capabilities{InterconnectBandwidthMbps: ir.Some(100.0)}, ann)
	require.Len(t, r.Violations, 1)
	v := r.Violations[0]
	assert.Equal(t, ir.CodeBandwidthExceeded, v.Code)
	assert.Equal(t, ir.KindRouting, v.Kind)
	assert.Equal(t, ir.NoPart, v.Part)
	assert.Equal(t, []string{"ab"}, v.Subjects)

	r = route(t, net, ir.Capabilities{InterconnectBandwidthMbps: ir.Some(200.0)}, ann)
	assert.Empty(t, r.Violations)
}

// More edges or a higher rate never lowers the estimate.
func TestRouting_Monotonic(t *testing.T) {
	var last float64
	for _, n := range []int64{0, 1, 10, 1000, 1_000_000} {
		net := network([]ir.Population{pop("A", 1), pop("B", 1)}, edges("ab", "A", "B", n))
		r := route(t, net, ir.Capabilities{}, withPlan(t, 2, map[string]int{"A": 0, "B": 1}, net))
		assert.GreaterOrEqual(t, r.TotalMbps, last)
		last = r.TotalMbps
	}

	last = 0
	for _, rate := range []float64{1, 5, 10, 200} {
		net := network([]ir.Population{pop("A", 1), pop("B", 1)}, edges("ab", "A", "B", 100))
		r := route(t, net, ir.Capabilities{DefaultSpikeRateHz: ir.Some(rate)}, withPlan(t, 2, map[string]int{"A": 0, "B": 1}, net))
		assert.Greater(t, r.TotalMbps, last)
		last = r.TotalMbps
	}
}

func TestRouting_RequiresPartition(t *testing.T) {
	_, err := RoutingPass{}.Run(chainNet(2, 1), ir.Capabilities{}, ir.NewAnnotations())
	assert.True(t, errors.Is(err, ErrMissingReport))
}
