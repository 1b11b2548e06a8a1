package graphio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/neuromap/internal/ir"
)

func TestLoadFile_YAMLAndJSONAgree(t *testing.T) {
	fromYAML, err := LoadFile("testdata/two_pops.yaml")
	require.NoError(t, err)
	fromJSON, err := LoadFile("testdata/two_pops.json")
	require.NoError(t, err)

	assert.Equal(t, "two-pops", fromYAML.Name)
	assert.Equal(t, 0.001, fromYAML.DT)
	require.Len(t, fromYAML.Populations, 2)
	require.Len(t, fromYAML.Projections, 2)

	b := fromYAML.Populations[1]
	assert.Equal(t, []string{"A"}, b.Hints.ColocateWith)
	require.NotNil(t, b.Hints.MemoryEstimateBytes)
	assert.Equal(t, int64(4096), *b.Hints.MemoryEstimateBytes)

	ab := fromYAML.Projections[0]
	assert.Equal(t, ir.ConnectivitySparse, ab.Connectivity.Mode)
	assert.Equal(t, 0.1, ab.Connectivity.Density)
	require.NotNil(t, ab.Delay.Seconds)
	assert.Equal(t, 0.002, *ab.Delay.Seconds)
	assert.Equal(t, ir.TransmissionSpike, ab.Transmission)

	ba := fromYAML.Projections[1]
	require.NotNil(t, ba.Delay.Ticks)
	assert.Equal(t, int64(3), *ba.Delay.Ticks)
	require.NotNil(t, ba.Connectivity.EdgeCount)
	assert.Equal(t, int64(42), *ba.Connectivity.EdgeCount)

	// Both encodings describe the same network.
	yfp, err := ir.NetworkFingerprint(fromYAML)
	require.NoError(t, err)
	jfp, err := ir.NetworkFingerprint(fromJSON)
	require.NoError(t, err)
	assert.Equal(t, yfp, jfp)
}

func TestLoadFile_NameDefaultsToFileName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unnamed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dt: 0.001\npopulations: []\nprojections: []\n"), 0o644))

	net, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "unnamed", net.Name)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	tests := []struct {
		name    string
		path    string
		message string
	}{
		{"missing file", filepath.Join(dir, "absent.yaml"), "failed to read graph file"},
		{"unknown extension", write("graph.toml", "dt = 1"), `unknown format "toml"`},
		{"no extension", write("graph", "dt: 1"), "no file extension"},
		{"unknown yaml field", write("typo.yaml", "dt: 0.001\npopulatoins: []\n"), "field populatoins not found"},
		{"unknown json field", write("typo.json", `{"dt": 0.001, "projectoins": []}`), `unknown field "projectoins"`},
		{"empty yaml", write("empty.yaml", ""), "empty graph document"},
		{"bad yaml", write("bad.yaml", "dt: [1, 2"), "failed to parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParseFormat(t *testing.T) {
	for in, expected := range map[string]Format{"yaml": FormatYAML, "YML": FormatYAML, " json ": FormatJSON} {
		f, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, expected, f)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestEncodeRoundTripsThroughDecode(t *testing.T) {
	net, err := LoadFile("testdata/two_pops.yaml")
	require.NoError(t, err)

	for _, f := range []Format{FormatYAML, FormatJSON} {
		data, err := Encode(net, f)
		require.NoError(t, err)
		back, err := Decode(data, f)
		require.NoError(t, err, string(data))
		assert.Equal(t, net, back, f)
	}
}
