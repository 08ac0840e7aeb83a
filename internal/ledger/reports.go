package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/xtal-search/grader/internal/types"
)

// GetReport retrieves a report by id. Returns nil without error when the
// report does not exist or has expired.
func (s *Store) GetReport(ctx context.Context, id string) (*types.GraderReport, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM grader_reports WHERE id = $1 AND expires_at > NOW()`,
		id,
	).Scan(&data)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report %s: %w", id, err)
	}

	var report types.GraderReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report %s: %w", id, err)
	}
	return &report, nil
}

// CachedReportID returns the id of a recent report for the same store URL,
// or empty when no live cache entry exists.
func (s *Store) CachedReportID(ctx context.Context, storeURL string) (string, error) {
	var reportID string
	err := s.pool.QueryRow(ctx,
		`SELECT report_id FROM grader_url_cache WHERE url_hash = $1 AND expires_at > NOW()`,
		HashURL(storeURL),
	).Scan(&reportID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to check URL cache: %w", err)
	}
	return reportID, nil
}

// MarkEmailCaptured flips the emailCaptured flag on a report and records the
// address on its run.
func (s *Store) MarkEmailCaptured(ctx context.Context, reportID, email string) error {
	report, err := s.GetReport(ctx, reportID)
	if err != nil {
		return err
	}
	if report == nil {
		return fmt.Errorf("report not found: %s", reportID)
	}

	report.EmailCaptured = true
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		`UPDATE grader_reports SET data = $1 WHERE id = $2`, data, reportID,
	); err != nil {
		return fmt.Errorf("failed to update report %s: %w", reportID, err)
	}

	var runID string
	err = s.pool.QueryRow(ctx,
		`SELECT run_id FROM grader_reports WHERE id = $1`, reportID,
	).Scan(&runID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil
		}
		return fmt.Errorf("failed to find run for report %s: %w", reportID, err)
	}

	run, err := s.GetRun(ctx, runID)
	if err != nil || run == nil {
		return err
	}
	run.EmailCaptured = true
	run.EmailAddress = email
	if run.Report != nil {
		run.Report.EmailCaptured = true
	}
	return s.UpdateRun(ctx, run)
}

// HashURL derives the cache key for a store URL. Scheme, case and trailing
// slashes are normalized away so the same store maps to the same entry.
func HashURL(rawURL string) string {
	normalized := strings.ToLower(strings.TrimSpace(rawURL))
	normalized = strings.TrimPrefix(normalized, "https://")
	normalized = strings.TrimPrefix(normalized, "http://")
	normalized = strings.TrimRight(normalized, "/")

	var hash int32
	for _, r := range normalized {
		hash = hash<<5 - hash + int32(r)
	}
	// Negate in 64 bits: -MinInt32 does not fit in an int32.
	h := int64(hash)
	if h < 0 {
		h = -h
	}
	return strconv.FormatInt(h, 36)
}
