package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/neuromap/internal/graphio"
	"github.com/roach88/neuromap/internal/manifest"
	"github.com/roach88/neuromap/internal/pipeline"
	"github.com/roach88/neuromap/internal/testutil"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeResponse decodes a JSON CLIResponse whose data has type T.
func decodeResponse[T any](t *testing.T, out string) (CLIResponse, T) {
	t.Helper()
	var raw struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	var data T
	if len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, &data))
	}
	return raw.CLIResponse, data
}

func testdata(name ...string) string {
	return filepath.Join(append([]string{"testdata"}, name...)...)
}

// runScenarioC maps scenario C onto the fan-in limited target with a
// stepping clock.
func runScenarioC(t *testing.T) *pipeline.Result {
	t.Helper()
	net, err := graphio.LoadFile(testdata("scenario_c.yaml"))
	require.NoError(t, err)
	m, err := manifest.LoadFile(testdata("targets", "fanin.cue"))
	require.NoError(t, err)

	d, err := pipeline.New(pipeline.DefaultRegistry(), pipeline.DefaultPasses(),
		pipeline.WithClock(testutil.NewSteppingClock(time.Millisecond)))
	require.NoError(t, err)
	res, err := d.Run(net, m.Snapshot())
	require.NoError(t, err)
	return res
}
