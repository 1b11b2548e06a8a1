package testutil

import (
	"fmt"

	"github.com/roach88/neuromap/internal/ir"
)

// Population returns a LIF population.
func Population(id string, size int64) ir.Population {
	return ir.Population{ID: id, Size: size, Model: "LIF"}
}

// Dense returns a dense projection.
func Dense(id, src, dst string) ir.Projection {
	return ir.Projection{
		ID:           id,
		Src:          src,
		Dst:          dst,
		Connectivity: ir.Connectivity{Mode: ir.ConnectivityDense},
	}
}

// Network returns a network with dt = 1 ms.
func Network(name string, pops []ir.Population, projs ...ir.Projection) *ir.Network {
	return &ir.Network{Name: name, DT: 0.001, Populations: pops, Projections: projs}
}

// Chain returns n populations p0..p(n-1) linked p0 -> p1 -> ... by dense
// projections e1..e(n-1).
func Chain(n int, size int64) *ir.Network {
	net := Network(fmt.Sprintf("chain-%d", n), nil)
	for i := range n {
		net.Populations = append(net.Populations, Population(fmt.Sprintf("p%d", i), size))
		if i > 0 {
			net.Projections = append(net.Projections,
				Dense(fmt.Sprintf("e%d", i), fmt.Sprintf("p%d", i-1), fmt.Sprintf("p%d", i)))
		}
	}
	return net
}

// Star returns a hub projecting to n spokes s1..sn.
func Star(n int, hubSize, spokeSize int64) *ir.Network {
	net := Network(fmt.Sprintf("star-%d", n), []ir.Population{Population("hub", hubSize)})
	for i := 1; i <= n; i++ {
		spoke := fmt.Sprintf("s%d", i)
		net.Populations = append(net.Populations, Population(spoke, spokeSize))
		net.Projections = append(net.Projections, Dense("hub_"+spoke, "hub", spoke))
	}
	return net
}

// FanIn returns n sources s1..sn all projecting to one sink.
func FanIn(n int, size int64) *ir.Network {
	net := Network(fmt.Sprintf("fan-in-%d", n), []ir.Population{Population("sink", size)})
	for i := 1; i <= n; i++ {
		src := fmt.Sprintf("s%d", i)
		net.Populations = append(net.Populations, Population(src, size))
		net.Projections = append(net.Projections, Dense(src+"_sink", src, "sink"))
	}
	return net
}
