package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/neuromap/internal/ir"
)

// RecordRun inserts a run and its pass records in one transaction and
// returns the run with its assigned seq.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: recording an id a
// second time returns the stored run unchanged.
func (s *Store) RecordRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		return Run{}, errors.New("record run: id is required")
	}

	passesJSON, err := ir.MarshalCanonical(run.Passes)
	if err != nil {
		return Run{}, fmt.Errorf("record run: marshal passes: %w", err)
	}
	reportJSON := ""
	if run.Report != nil {
		data, err := ir.MarshalCanonical(run.Report)
		if err != nil {
			return Run{}, fmt.Errorf("record run: marshal report: %w", err)
		}
		reportJSON = string(data)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("record run: begin: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, run.ID).Scan(&existing)
	switch {
	case err == nil:
		if err := tx.Commit(); err != nil {
			return Run{}, fmt.Errorf("record run: commit: %w", err)
		}
		return s.GetRun(ctx, run.ID)
	case !errors.Is(err, sql.ErrNoRows):
		return Run{}, fmt.Errorf("record run: lookup: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return Run{}, fmt.Errorf("record run: next seq: %w", err)
	}
	run.Seq = seq

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, network, network_hash, capabilities_hash, target, passes, policy, seed,
		 plan_hash, succeeded, error_code, error_message, blocking, warnings, report,
		 started_at_ms, duration_ns, compiler_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Seq,
		run.Network,
		run.NetworkHash,
		run.CapabilitiesHash,
		run.Target,
		string(passesJSON),
		run.Policy,
		run.Seed,
		run.PlanHash,
		boolToInt(run.Succeeded),
		run.ErrorCode,
		run.ErrorMessage,
		run.Blocking,
		run.Warnings,
		reportJSON,
		run.StartedAt.UnixMilli(),
		int64(run.Duration),
		run.CompilerVersion,
		run.IRVersion,
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: insert: %w", err)
	}

	for _, rec := range run.PassRecords {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_passes (run_id, step, pass, duration_ns, violations)
			VALUES (?, ?, ?, ?, ?)
		`, run.ID, rec.Step, rec.Pass, int64(rec.Duration), rec.Violations)
		if err != nil {
			return Run{}, fmt.Errorf("record run: insert pass %s: %w", rec.Pass, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("record run: commit: %w", err)
	}
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unmarshalPasses(s string) ([]string, error) {
	var passes []string
	if err := json.Unmarshal([]byte(s), &passes); err != nil {
		return nil, fmt.Errorf("unmarshal passes: %w", err)
	}
	if passes == nil {
		passes = []string{}
	}
	return passes, nil
}

func unmarshalReport(s string) (*ir.ResourceReport, error) {
	if s == "" {
		return nil, nil
	}
	var r ir.ResourceReport
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	if r.Entries == nil {
		r.Entries = []ir.ResourceEntry{}
	}
	return &r, nil
}
