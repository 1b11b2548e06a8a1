package passes

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/neuromap/internal/ir"
)

func pop(id string, size int64) ir.Population {
	return ir.Population{ID: id, Size: size, Model: "LIF"}
}

func dense(id, src, dst string) ir.Projection {
	return ir.Projection{ID: id, Src: src, Dst: dst, Connectivity: ir.Connectivity{Mode: ir.ConnectivityDense}}
}

func edges(id, src, dst string, n int64) ir.Projection {
	p := dense(id, src, dst)
	p.Connectivity.EdgeCount = &n
	return p
}

func network(pops []ir.Population, projs ...ir.Projection) *ir.Network {
	return &ir.Network{Name: "test", DT: 0.001, Populations: pops, Projections: projs}
}

// run executes passes in order on a fresh side-table.
func run(t *testing.T, net *ir.Network, caps ir.Capabilities, ps ...Pass) *ir.Annotations {
	t.Helper()
	ann := ir.NewAnnotations()
	for _, p := range ps {
		r, err := p.Run(net, caps, ann)
		require.NoError(t, err, p.Name())
		require.NoError(t, ann.Put(p.Name(), r))
	}
	return ann
}

func report[T ir.Report](t *testing.T, ann *ir.Annotations) T {
	t.Helper()
	r, ok := ir.ReportOf[T](ann)
	require.True(t, ok, "report %T missing", r)
	return r
}

func codes(vs []ir.Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Code
	}
	return out
}

// chainNet returns n populations p00..p(n-1) of the given size linked in a chain.
func chainNet(n int, size int64) *ir.Network {
	net := network(nil)
	for i := range n {
		net.Populations = append(net.Populations, pop(fmt.Sprintf("p%02d", i), size))
		if i > 0 {
			net.Projections = append(net.Projections,
				dense(fmt.Sprintf("e%02d", i), fmt.Sprintf("p%02d", i-1), fmt.Sprintf("p%02d", i)))
		}
	}
	return net
}
