package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/neuromap/internal/ir"
)

func TestPolicy_Classify(t *testing.T) {
	allCodes := []string{
		ir.CodePopulationExceedsCore,
		ir.CodeColocationUnsatisfied,
		ir.CodeCoreMemoryExceeded,
		ir.CodeSynapseCapacityExceeded,
		ir.CodeFanInExceeded,
		ir.CodeFanOutExceeded,
		ir.CodeBandwidthExceeded,
		ir.CodeDelayOutOfRange,
	}
	B, W := ir.SeverityBlocking, ir.SeverityWarning

	tests := []struct {
		policy   Policy
		expected []ir.Severity
	}{
		{DefaultPolicy(), []ir.Severity{B, W, B, B, B, B, W, B}},
		{Policy{}, []ir.Severity{B, W, B, B, B, B, W, B}},
		{StrictPolicy(), []ir.Severity{B, B, B, B, B, B, B, B}},
		{LenientPolicy(), []ir.Severity{B, W, W, W, W, W, W, W}},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			for i, code := range allCodes {
				assert.Equal(t, tt.expected[i], tt.policy.Classify(code), code)
			}
		})
	}
}

func TestPolicy_With(t *testing.T) {
	base := DefaultPolicy()
	p := base.With(ir.CodeFanInExceeded, ir.SeverityWarning).
		With(ir.CodeBandwidthExceeded, ir.SeverityBlocking)

	assert.Equal(t, ir.SeverityWarning, p.Classify(ir.CodeFanInExceeded))
	assert.Equal(t, ir.SeverityBlocking, p.Classify(ir.CodeBandwidthExceeded))
	assert.Equal(t, ir.SeverityBlocking, base.Classify(ir.CodeFanInExceeded), "base policy is not modified")
	assert.Equal(t, ir.SeverityWarning, base.Classify(ir.CodeBandwidthExceeded))

	// Populations that exceed a core cannot be downgraded.
	p = LenientPolicy().With(ir.CodePopulationExceedsCore, ir.SeverityWarning)
	assert.Equal(t, ir.SeverityBlocking, p.Classify(ir.CodePopulationExceedsCore))
}

func TestPolicyByName(t *testing.T) {
	for name, expected := range map[string]string{
		"":         PolicyDefault,
		"default":  PolicyDefault,
		" Strict ": PolicyStrict,
		"LENIENT":  PolicyLenient,
	} {
		p, err := PolicyByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, expected, p.Name)
	}

	_, err := PolicyByName("paranoid")
	assert.ErrorContains(t, err, `unknown policy "paranoid"`)
}

func TestParseSeverity(t *testing.T) {
	sev, err := ParseSeverity("Warning")
	require.NoError(t, err)
	assert.Equal(t, ir.SeverityWarning, sev)

	sev, err = ParseSeverity("blocking")
	require.NoError(t, err)
	assert.Equal(t, ir.SeverityBlocking, sev)

	_, err = ParseSeverity("fatal")
	assert.Error(t, err)
}

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "strict", StrictPolicy().String())
	assert.Equal(t, "default BandwidthExceeded=Warning ColocationUnsatisfied=Warning", DefaultPolicy().String())
}
