package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, seq, network, network_hash, capabilities_hash, target, passes, policy, seed,
	plan_hash, succeeded, error_code, error_message, blocking, warnings, report,
	started_at_ms, duration_ns, compiler_version, ir_version`

// ListFilter narrows ListRuns.
type ListFilter struct {
	// NetworkHash restricts the listing to one network.
	NetworkHash string

	// Network restricts the listing to one network name.
	Network string

	// Limit caps the number of runs; zero means no cap.
	Limit int
}

// ListRuns returns runs newest first (seq DESC). Reports and pass records
// are loaded; use GetRun for a single run.
func (s *Store) ListRuns(ctx context.Context, f ListFilter) ([]Run, error) {
	var (
		where []string
		args  []any
	)
	if f.NetworkHash != "" {
		where = append(where, "network_hash = ?")
		args = append(args, f.NetworkHash)
	}
	if f.Network != "" {
		where = append(where, "network = ?")
		args = append(args, f.Network)
	}

	query := "SELECT " + runColumns + " FROM runs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC, id COLLATE BINARY ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		recs, err := s.readPassRecords(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].PassRecords = recs
	}
	return runs, nil
}

// GetRun retrieves a run by id or by a unique id prefix.
// Returns ErrRunNotFound if nothing matches.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	if id == "" {
		return Run{}, ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE id = ? OR substr(id, 1, ?) = ? ORDER BY seq ASC LIMIT 2",
		id, len(id), id)
	if err != nil {
		return Run{}, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterate runs: %w", err)
	}

	var run Run
	switch {
	case len(matches) == 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case len(matches) == 1:
		run = matches[0]
	default:
		exact := false
		for _, m := range matches {
			if m.ID == id {
				run, exact = m, true
			}
		}
		if !exact {
			return Run{}, fmt.Errorf("run id prefix %q is ambiguous", id)
		}
	}

	run.PassRecords, err = s.readPassRecords(ctx, run.ID)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// LatestRun returns the most recent run of a network, by content hash.
func (s *Store) LatestRun(ctx context.Context, networkHash string) (Run, bool, error) {
	runs, err := s.ListRuns(ctx, ListFilter{NetworkHash: networkHash, Limit: 1})
	if err != nil {
		return Run{}, false, err
	}
	if len(runs) == 0 {
		return Run{}, false, nil
	}
	return runs[0], true, nil
}

func (s *Store) readPassRecords(ctx context.Context, runID string) ([]PassRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step, pass, duration_ns, violations
		FROM run_passes
		WHERE run_id = ?
		ORDER BY step ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run passes: %w", err)
	}
	defer rows.Close()

	var recs []PassRecord
	for rows.Next() {
		var rec PassRecord
		var ns int64
		if err := rows.Scan(&rec.Step, &rec.Pass, &ns, &rec.Violations); err != nil {
			return nil, fmt.Errorf("scan run pass: %w", err)
		}
		rec.Duration = time.Duration(ns)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run passes: %w", err)
	}
	return recs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run                    Run
		passesJSON, reportJSON string
		succeeded              int
		startedMs, durationNs  int64
	)
	if err := row.Scan(
		&run.ID, &run.Seq, &run.Network, &run.NetworkHash, &run.CapabilitiesHash,
		&run.Target, &passesJSON, &run.Policy, &run.Seed,
		&run.PlanHash, &succeeded, &run.ErrorCode, &run.ErrorMessage,
		&run.Blocking, &run.Warnings, &reportJSON,
		&startedMs, &durationNs, &run.CompilerVersion, &run.IRVersion,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	var err error
	if run.Passes, err = unmarshalPasses(passesJSON); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if run.Report, err = unmarshalReport(reportJSON); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	run.Succeeded = succeeded != 0
	run.StartedAt = time.UnixMilli(startedMs).UTC()
	run.Duration = time.Duration(durationNs)
	return run, nil
}
