package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/neuromap/internal/pipeline"
)

func TestListPasses(t *testing.T) {
	infos := listPasses(pipeline.DefaultRegistry())

	byName := make(map[string]PassInfo, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
	}

	for _, name := range pipeline.DefaultPasses() {
		info, ok := byName[name]
		require.True(t, ok, name)
		assert.True(t, info.Default, name)
		assert.Equal(t, name, info.Canonical)
		assert.NotEmpty(t, info.Summary)
	}

	alias := byName["resource_check"]
	assert.Equal(t, "resource-check", alias.Canonical)
	assert.False(t, alias.Default)
	assert.False(t, byName["no-op"].Default)
	assert.Equal(t, []string{"partition"}, byName["placement"].Requires)
}

func TestPassesCommand(t *testing.T) {
	out, err := execute(t, "passes")
	require.NoError(t, err)

	assert.Contains(t, out, "Default pipeline: validate → partition → placement → routing → timing → resource-check")
	assert.Contains(t, out, "alias of resource-check")
	assert.Contains(t, out, "(requires validate)")
}

func TestPassesCommand_JSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "passes")
	require.NoError(t, err)

	resp, infos := decodeResponse[[]PassInfo](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, infos, len(pipeline.DefaultRegistry()))
}
