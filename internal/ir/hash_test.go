package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePlan() *PartitionPlan {
	return &PartitionPlan{
		Parts:    2,
		Strategy: "cap-aware",
		Assignment: []PartAssignment{
			{Population: "A", Part: 0},
			{Population: "B", Part: 1},
		},
		Loads: []int64{600, 600},
	}
}

func TestPlanFingerprintDeterminism(t *testing.T) {
	fp1, err := PlanFingerprint(samplePlan())
	require.NoError(t, err)
	fp2, err := PlanFingerprint(samplePlan())
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2, "fingerprint must be deterministic")
	assert.Len(t, fp1, 64, "SHA-256 hex is 64 characters")
}

func TestPlanFingerprintChangesWithInput(t *testing.T) {
	moved := samplePlan()
	moved.Assignment[1].Part = 0

	assert.NotEqual(t, MustFingerprint(DomainPlan, samplePlan()), MustFingerprint(DomainPlan, moved))
}

func TestFingerprintDomainSeparation(t *testing.T) {
	plan := samplePlan()
	assert.NotEqual(t, MustFingerprint(DomainPlan, plan), MustFingerprint(DomainReport, plan),
		"same data under different domains must hash differently")
}

func TestNetworkFingerprintIgnoresMapOrder(t *testing.T) {
	a := &Network{Name: "n", DT: 0.001, Attributes: map[string]any{"x": 1, "y": "z"}}
	b := &Network{Name: "n", DT: 0.001, Attributes: map[string]any{"y": "z", "x": 1}}

	fa, err := NetworkFingerprint(a)
	require.NoError(t, err)
	fb, err := NetworkFingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
}

func TestMustFingerprintPanicsOnUnsupportedValue(t *testing.T) {
	assert.Panics(t, func() {
		MustFingerprint(DomainReport, make(chan int))
	})
}
