package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jkeller/fecdash/internal/model"
)

// CheckpointStore persists crawl progress and per-candidate failures.
// The checkpoint row is owned exclusively by the crawl loop; there is
// never a concurrent writer for one cycle.
type CheckpointStore struct {
	db *sql.DB
}

// NewCheckpointStore creates a new CheckpointStore
func NewCheckpointStore(db *sql.DB) *CheckpointStore {
	return &CheckpointStore{db: db}
}

// Get retrieves the checkpoint for a cycle, or nil if none exists
func (s *CheckpointStore) Get(ctx context.Context, cycle int) (*model.CrawlCheckpoint, error) {
	query := `
		SELECT id, cycle, cursor, last_candidate_id, candidates, filings,
		       failures, completed, started_at, updated_at
		FROM crawl_checkpoints
		WHERE cycle = $1
	`

	var cp model.CrawlCheckpoint
	err := s.db.QueryRowContext(ctx, query, cycle).Scan(
		&cp.ID,
		&cp.Cycle,
		&cp.Cursor,
		&cp.LastCandidateID,
		&cp.Candidates,
		&cp.Filings,
		&cp.Failures,
		&cp.Completed,
		&cp.StartedAt,
		&cp.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint for cycle %d: %w", cycle, err)
	}

	return &cp, nil
}

// Save upserts the checkpoint for a cycle
func (s *CheckpointStore) Save(ctx context.Context, cp *model.CrawlCheckpoint) error {
	query := `
		INSERT INTO crawl_checkpoints (cycle, cursor, last_candidate_id, candidates,
		                               filings, failures, completed, started_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $8)
		ON CONFLICT (cycle) DO UPDATE SET
			cursor = EXCLUDED.cursor,
			last_candidate_id = EXCLUDED.last_candidate_id,
			candidates = EXCLUDED.candidates,
			filings = EXCLUDED.filings,
			failures = EXCLUDED.failures,
			completed = FALSE,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		cp.Cycle,
		cp.Cursor,
		cp.LastCandidateID,
		cp.Candidates,
		cp.Filings,
		cp.Failures,
		cp.StartedAt,
		time.Now(),
	).Scan(&cp.ID)

	if err != nil {
		return fmt.Errorf("failed to save checkpoint for cycle %d: %w", cp.Cycle, err)
	}

	return nil
}

// MarkCompleted archives the cycle's checkpoint so the next crawl of
// the cycle starts fresh
func (s *CheckpointStore) MarkCompleted(ctx context.Context, cycle int) error {
	query := `
		UPDATE crawl_checkpoints
		SET completed = TRUE, updated_at = NOW()
		WHERE cycle = $1
	`

	if _, err := s.db.ExecContext(ctx, query, cycle); err != nil {
		return fmt.Errorf("failed to mark checkpoint completed for cycle %d: %w", cycle, err)
	}

	return nil
}

// RecordFailure upserts a per-candidate failure for later re-crawl
func (s *CheckpointStore) RecordFailure(ctx context.Context, f *model.CrawlFailure) error {
	query := `
		INSERT INTO crawl_failures (cycle, candidate_id, stage, message, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cycle, candidate_id) DO UPDATE SET
			stage = EXCLUDED.stage,
			message = EXCLUDED.message,
			occurred_at = EXCLUDED.occurred_at
	`

	_, err := s.db.ExecContext(ctx, query,
		f.Cycle,
		f.CandidateID,
		f.Stage,
		f.Message,
		f.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record failure for %s: %w", f.CandidateID, err)
	}

	return nil
}

// ListFailures retrieves all recorded failures for a cycle
func (s *CheckpointStore) ListFailures(ctx context.Context, cycle int) ([]model.CrawlFailure, error) {
	query := `
		SELECT id, cycle, candidate_id, stage, message, occurred_at
		FROM crawl_failures
		WHERE cycle = $1
		ORDER BY candidate_id
	`

	rows, err := s.db.QueryContext(ctx, query, cycle)
	if err != nil {
		return nil, fmt.Errorf("failed to list failures for cycle %d: %w", cycle, err)
	}
	defer rows.Close()

	var failures []model.CrawlFailure
	for rows.Next() {
		var f model.CrawlFailure
		err := rows.Scan(&f.ID, &f.Cycle, &f.CandidateID, &f.Stage, &f.Message, &f.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		failures = append(failures, f)
	}

	return failures, rows.Err()
}

// ClearFailure removes a failure record once the candidate has been
// re-crawled successfully
func (s *CheckpointStore) ClearFailure(ctx context.Context, cycle int, candidateID string) error {
	query := `DELETE FROM crawl_failures WHERE cycle = $1 AND candidate_id = $2`

	if _, err := s.db.ExecContext(ctx, query, cycle, candidateID); err != nil {
		return fmt.Errorf("failed to clear failure for %s: %w", candidateID, err)
	}

	return nil
}
