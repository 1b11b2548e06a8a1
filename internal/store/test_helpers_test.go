package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/neuromap/internal/ir"
	"github.com/roach88/neuromap/internal/testutil"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with minimal required fields.
func createTestRun(id string) Run {
	return Run{
		ID:               id,
		Network:          "chain-3",
		NetworkHash:      "net-hash",
		CapabilitiesHash: "caps-hash",
		Passes:           []string{"validate", "partition"},
		Policy:           "default",
		Succeeded:        true,
		StartedAt:        testutil.Epoch,
		Duration:         2 * time.Millisecond,
		CompilerVersion:  ir.CompilerVersion,
		IRVersion:        ir.IRVersion,
		PassRecords: []PassRecord{
			{Step: 0, Pass: "validate", Duration: time.Millisecond},
			{Step: 1, Pass: "partition", Duration: time.Millisecond},
		},
	}
}
