package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xtal-search/grader/internal/types"
)

// promptHistoryLimit bounds how many archived versions each prompt keeps.
const promptHistoryLimit = 50

// GetPrompt returns the stored override for a prompt key, or nil when no
// override exists and the embedded default should be used.
func (s *Store) GetPrompt(ctx context.Context, key string) (*types.PromptEntry, error) {
	var entry types.PromptEntry
	var updatedAt time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT key, content, updated_at FROM grader_prompts WHERE key = $1`,
		key,
	).Scan(&entry.Key, &entry.Content, &updatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get prompt %s: %w", key, err)
	}
	entry.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	return &entry, nil
}

// SavePrompt stores a new version of a prompt override and archives it in
// the history, trimming history to its bound.
func (s *Store) SavePrompt(ctx context.Context, key, content string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin prompt save: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO grader_prompts (key, content, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET content = $2, updated_at = NOW()`,
		key, content,
	); err != nil {
		return fmt.Errorf("failed to save prompt %s: %w", key, err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO grader_prompt_history (key, content) VALUES ($1, $2)`,
		key, content,
	); err != nil {
		return fmt.Errorf("failed to archive prompt %s: %w", key, err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM grader_prompt_history WHERE key = $1 AND id NOT IN (
			SELECT id FROM grader_prompt_history WHERE key = $1
			ORDER BY created_at DESC LIMIT $2)`,
		key, promptHistoryLimit,
	); err != nil {
		return fmt.Errorf("failed to trim prompt history %s: %w", key, err)
	}

	return tx.Commit(ctx)
}

// PromptHistory returns archived versions of a prompt, newest first.
func (s *Store) PromptHistory(ctx context.Context, key string) ([]types.PromptHistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, content, created_at FROM grader_prompt_history
		 WHERE key = $1 ORDER BY created_at DESC LIMIT $2`,
		key, promptHistoryLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompt history %s: %w", key, err)
	}
	defer rows.Close()

	entries := []types.PromptHistoryEntry{}
	for rows.Next() {
		var entry types.PromptHistoryEntry
		var createdAt time.Time
		if err := rows.Scan(&entry.Key, &entry.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan prompt history: %w", err)
		}
		entry.Timestamp = createdAt.UTC().Format(time.RFC3339)
		entries = append(entries, entry)
	}
	return entries, nil
}

// ResolvePrompt returns the override content for a key when one exists,
// falling back to empty so callers can apply their default.
func (s *Store) ResolvePrompt(ctx context.Context, key string) (string, error) {
	entry, err := s.GetPrompt(ctx, key)
	if err != nil {
		return "", err
	}
	if entry == nil {
		return "", nil
	}
	return entry.Content, nil
}
