package ledger

import (
	"context"
	"fmt"
)

// RateLimitResult reports whether a caller is under the per-window cap.
// Not-allowed is a normal control-flow outcome, not an error.
type RateLimitResult struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
}

// CheckRateLimit atomically increments the caller's counter and checks it
// against the cap. The counter resets when its window has lapsed. The
// increment happens inside a single upsert so concurrent callers cannot
// race past the cap.
func (s *Store) CheckRateLimit(ctx context.Context, ip string) (*RateLimitResult, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`INSERT INTO grader_rate_limits (key, count, window_started_at)
		 VALUES ($1, 1, NOW())
		 ON CONFLICT (key) DO UPDATE SET
			count = CASE
				WHEN grader_rate_limits.window_started_at < NOW() - $2::interval THEN 1
				ELSE grader_rate_limits.count + 1
			END,
			window_started_at = CASE
				WHEN grader_rate_limits.window_started_at < NOW() - $2::interval THEN NOW()
				ELSE grader_rate_limits.window_started_at
			END
		 RETURNING count`,
		ip, fmt.Sprintf("%d seconds", int(TTLRateLimit.Seconds())),
	).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}

	remaining := RateLimitCap - count
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitResult{
		Allowed:   count <= RateLimitCap,
		Remaining: remaining,
	}, nil
}
