package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChain(t *testing.T) {
	net := Chain(4, 10)
	assert.Len(t, net.Populations, 4)
	assert.Len(t, net.Projections, 3)
	assert.Equal(t, "p2", net.Projections[2].Src)
	assert.Equal(t, "p3", net.Projections[2].Dst)
	assert.Equal(t, int64(40), net.TotalNeurons())
}

func TestStar(t *testing.T) {
	net := Star(5, 100, 10)
	assert.Len(t, net.Populations, 6)
	assert.Len(t, net.Projections, 5)
	for _, p := range net.Projections {
		assert.Equal(t, "hub", p.Src)
	}
}

func TestFanIn(t *testing.T) {
	net := FanIn(5, 10)
	assert.Len(t, net.Projections, 5)
	for _, p := range net.Projections {
		assert.Equal(t, "sink", p.Dst)
	}
}
