package passes

import (
	"fmt"
	"math"

	"github.com/roach88/neuromap/internal/ir"
)

// TimingPass discretizes projection delays.
//
// The simulation schedule is round-half-to-even(seconds / dt), or the
// explicit tick count. With time_resolution_ns the hardware schedule is
// round-half-to-even(seconds × 1e9 / resolution); explicit ticks are
// converted to seconds through dt first.
type TimingPass struct {
	// MaxDelayTicks is the backend delay limit. Absent disables the check.
	MaxDelayTicks ir.Opt[int64]
}

func (TimingPass) Name() string { return NameTiming }

func (p TimingPass) Run(net *ir.Network, caps ir.Capabilities, _ *ir.Annotations) (ir.Report, error) {
	res, hasRes := caps.TimeResolutionNs.Get()
	hasRes = hasRes && res > 0
	maxTicks, hasMax := p.MaxDelayTicks.Get()

	r := &ir.TimingReport{Entries: make([]ir.TickEntry, len(net.Projections))}
	for i, proj := range net.Projections {
		var seconds float64
		entry := ir.TickEntry{Projection: proj.ID}
		switch {
		case proj.Delay.Ticks != nil:
			entry.SimTicks = max(*proj.Delay.Ticks, 0)
			seconds = float64(entry.SimTicks) * net.DT
		case proj.Delay.Seconds != nil:
			seconds = *proj.Delay.Seconds
			entry.SimTicks = roundTicks(seconds / net.DT)
		}
		if hasRes {
			hw := roundTicks(seconds * 1e9 / float64(res))
			entry.HardwareTicks = &hw
		}
		r.Entries[i] = entry

		if !hasMax {
			continue
		}
		check, schedule := entry.SimTicks, "simulation"
		if entry.HardwareTicks != nil {
			check, schedule = *entry.HardwareTicks, "hardware"
		}
		if check > maxTicks {
			r.Violations = append(r.Violations, ir.Violation{
				Code:    ir.CodeDelayOutOfRange,
				Kind:    ir.KindTiming,
				Part:    ir.NoPart,
				Subject: proj.ID,
				Value:   float64(check),
				Limit:   float64(maxTicks),
				Message: fmt.Sprintf("projection %q delay is %d %s ticks, backend maximum is %d", proj.ID, check, schedule, maxTicks),
			})
		}
	}
	return r, nil
}

// roundTicks rounds half to even and clamps to [0, MaxInt64].
// NaN maps to zero.
func roundTicks(x float64) int64 {
	if math.IsNaN(x) || x <= 0 {
		return 0
	}
	t := math.RoundToEven(x)
	if t >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(t)
}
