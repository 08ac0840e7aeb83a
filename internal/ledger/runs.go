package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xtal-search/grader/internal/types"
)

// CreateRun starts a new run record in the running state and prunes the run
// index down to its bound.
func (s *Store) CreateRun(ctx context.Context, storeURL string, source types.RunSource) (*types.GraderRunLog, error) {
	run := &types.GraderRunLog{
		ID:        uuid.NewString(),
		StoreURL:  storeURL,
		Platform:  types.PlatformCustom,
		Status:    types.RunStatusRunning,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		Source:    source,
	}

	data, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO grader_runs (id, store_url, status, source, data, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.StoreURL, run.Status, run.Source, data, time.Now().UTC().Add(TTLRun),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	// Bound the index: drop everything beyond the newest MaxIndexedRuns.
	_, err = s.pool.Exec(ctx,
		`DELETE FROM grader_runs WHERE id IN (
			SELECT id FROM grader_runs ORDER BY created_at DESC OFFSET $1)`,
		MaxIndexedRuns,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to prune run index: %w", err)
	}

	return run, nil
}

// UpdateRun replaces the stored run record wholesale. Writes are whole-record
// replace; a run id is only driven by one pipeline invocation at a time.
func (s *Store) UpdateRun(ctx context.Context, run *types.GraderRunLog) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE grader_runs SET status = $1, data = $2 WHERE id = $3`,
		run.Status, data, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", run.ID, err)
	}
	return nil
}

// CompleteRun transitions a run to complete, stores its report and caches
// the URL-to-report mapping.
func (s *Store) CompleteRun(ctx context.Context, run *types.GraderRunLog, report *types.GraderReport) error {
	run.Status = types.RunStatusComplete
	run.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	run.Report = report

	if err := s.UpdateRun(ctx, run); err != nil {
		return err
	}

	reportData, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO grader_reports (id, run_id, data, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET data = $3`,
		report.ID, run.ID, reportData, time.Now().UTC().Add(TTLReport),
	)
	if err != nil {
		return fmt.Errorf("failed to store report %s: %w", report.ID, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO grader_url_cache (url_hash, report_id, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (url_hash) DO UPDATE SET report_id = $2, expires_at = $3`,
		HashURL(run.StoreURL), report.ID, time.Now().UTC().Add(TTLURLCache),
	)
	if err != nil {
		return fmt.Errorf("failed to cache report URL: %w", err)
	}

	return nil
}

// FailRun transitions a run to failed, attaching the error to the step that
// was most recently in flight.
func (s *Store) FailRun(ctx context.Context, run *types.GraderRunLog, message string) error {
	ApplyFailure(run, message)
	run.Status = types.RunStatusFailed
	run.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	return s.UpdateRun(ctx, run)
}

// ApplyFailure attaches an error message to the most recently started step:
// evaluate, else search, else analyze. An error already recorded on a step
// is never overwritten.
func ApplyFailure(run *types.GraderRunLog, message string) {
	switch {
	case run.Steps.Evaluate != nil:
		if run.Steps.Evaluate.Error == "" {
			run.Steps.Evaluate.Error = message
		}
	case run.Steps.Search != nil:
		if run.Steps.Search.Error == "" {
			run.Steps.Search.Error = message
		}
	case run.Steps.Analyze != nil:
		if run.Steps.Analyze.Error == "" {
			run.Steps.Analyze.Error = message
		}
	}
}

// GetRun retrieves a run by id. Returns nil without error when the run does
// not exist or has expired.
func (s *Store) GetRun(ctx context.Context, id string) (*types.GraderRunLog, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM grader_runs WHERE id = $1 AND expires_at > NOW()`,
		id,
	).Scan(&data)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	var run types.GraderRunLog
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", id, err)
	}
	return &run, nil
}

// RunPage is one page of the run index.
type RunPage struct {
	Runs  []types.GraderRunLog `json:"runs"`
	Total int                  `json:"total"`
}

// ListRuns returns runs newest-first with the total count of live runs.
func (s *Store) ListRuns(ctx context.Context, offset, limit int) (*RunPage, error) {
	if limit <= 0 {
		limit = 50
	}

	var total int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM grader_runs WHERE expires_at > NOW()`,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT data FROM grader_runs WHERE expires_at > NOW()
		 ORDER BY created_at DESC OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	page := &RunPage{Runs: []types.GraderRunLog{}, Total: total}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		var run types.GraderRunLog
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run: %w", err)
		}
		page.Runs = append(page.Runs, run)
	}
	return page, nil
}
