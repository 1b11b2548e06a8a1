package passes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/neuromap/internal/ir"
)

func timing(t *testing.T, p TimingPass, net *ir.Network, caps ir.Capabilities) *ir.TimingReport {
	t.Helper()
	r, err := p.Run(net, caps, ir.NewAnnotations())
	require.NoError(t, err)
	return r.(*ir.TimingReport)
}

func TestTiming_SimulationTicks(t *testing.T) {
	tests := []struct {
		name     string
		dt       float64
		delay    ir.Delay
		expected int64
	}{
		{"one step", 0.001, ir.DelaySeconds(0.001), 1},
		{"half step rounds to even zero", 0.001, ir.DelaySeconds(0.0005), 0},
		{"two and a half rounds down to even", 0.5, ir.DelaySeconds(1.25), 2},
		{"one and a half rounds up to even", 0.5, ir.DelaySeconds(0.75), 2},
		{"zero delay", 0.001, ir.DelaySeconds(0), 0},
		{"no delay", 0.001, ir.Delay{}, 0},
		{"explicit ticks", 0.001, ir.DelayTicks(7), 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := network([]ir.Population{pop("A", 1)}, dense("aa", "A", "A"))
			net.DT = tt.dt
			net.Projections[0].Delay = tt.delay

			r := timing(t, TimingPass{}, net, ir.Capabilities{})
			require.Len(t, r.Entries, 1)
			assert.Equal(t, "aa", r.Entries[0].Projection)
			assert.Equal(t, tt.expected, r.Entries[0].SimTicks)
			assert.Nil(t, r.Entries[0].HardwareTicks)
		})
	}
}

func TestTiming_HardwareTicks(t *testing.T) {
	net := network([]ir.Population{pop("A", 1)}, dense("s", "A", "A"), dense("k", "A", "A"))
	net.Projections[0].Delay = ir.DelaySeconds(0.001)
	net.Projections[1].Delay = ir.DelayTicks(3)

	r := timing(t, TimingPass{}, net, ir.Capabilities{TimeResolutionNs: ir.Some[int64](1000)})

	s, ok := r.Ticks("s")
	require.True(t, ok)
	assert.Equal(t, int64(1), s.SimTicks)
	require.NotNil(t, s.HardwareTicks)
	assert.Equal(t, int64(1000), *s.HardwareTicks)

	k, ok := r.Ticks("k")
	require.True(t, ok)
	assert.Equal(t, int64(3), k.SimTicks)
	require.NotNil(t, k.HardwareTicks)
	assert.Equal(t, int64(3000), *k.HardwareTicks)

	_, ok = r.Ticks("missing")
	assert.False(t, ok)
}

func TestTiming_DelayOutOfRange(t *testing.T) {
	net := network([]ir.Population{pop("A", 1)},
		dense("short", "A", "A"), dense("long", "A", "A"))
	net.Projections[0].Delay = ir.DelayTicks(5)
	net.Projections[1].Delay = ir.DelayTicks(6)
	pass := TimingPass{MaxDelayTicks: ir.Some[int64](5)}

	r := timing(t, pass, net, ir.Capabilities{})
	require.Len(t, r.Violations, 1)
	v := r.Violations[0]
	assert.Equal(t, ir.CodeDelayOutOfRange, v.Code)
	assert.Equal(t, ir.KindTiming, v.Kind)
	assert.Equal(t, "long", v.Subject)
	assert.Equal(t, float64(6), v.Value)
	assert.Contains(t, v.Message, "simulation ticks")

	// The hardware schedule is checked when present: 6 ms at 1 ms resolution.
	r = timing(t, pass, net, ir.Capabilities{TimeResolutionNs: ir.Some[int64](1_000_000)})
	require.Len(t, r.Violations, 1)
	assert.Contains(t, r.Violations[0].Message, "hardware ticks")

	r = timing(t, TimingPass{}, net, ir.Capabilities{})
	assert.Empty(t, r.Violations)
}

func TestRoundTicks(t *testing.T) {
	assert.Equal(t, int64(0), roundTicks(math.NaN()))
	assert.Equal(t, int64(0), roundTicks(-3))
	assert.Equal(t, int64(4), roundTicks(4.5))
	assert.Equal(t, int64(math.MaxInt64), roundTicks(math.Inf(1)))
	assert.Equal(t, int64(math.MaxInt64), roundTicks(1e300))
}
