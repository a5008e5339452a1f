package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jkeller/fecdash/internal/model"
)

// CommitteeStore handles database operations for cycle-scoped
// committee designations
type CommitteeStore struct {
	db *sql.DB
}

// NewCommitteeStore creates a new CommitteeStore
func NewCommitteeStore(db *sql.DB) *CommitteeStore {
	return &CommitteeStore{db: db}
}

// UpsertDesignations inserts or updates cycle-scoped designation rows
func (s *CommitteeStore) UpsertDesignations(ctx context.Context, designations []model.CommitteeDesignation) error {
	query := `
		INSERT INTO committee_designations (committee_id, committee_name, cycle,
		                                    designation, candidate_id, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (committee_id, cycle, candidate_id) DO UPDATE SET
			committee_name = EXCLUDED.committee_name,
			designation = EXCLUDED.designation,
			fetched_at = EXCLUDED.fetched_at
	`

	for _, d := range designations {
		_, err := s.db.ExecContext(ctx, query,
			d.CommitteeID,
			d.CommitteeName,
			d.Cycle,
			d.Designation,
			d.CandidateID,
			d.FetchedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert designation %s/%d: %w", d.CommitteeID, d.Cycle, err)
		}
	}

	return nil
}

// ListDesignationsForCandidate retrieves a candidate's cycle-scoped
// committee designations
func (s *CommitteeStore) ListDesignationsForCandidate(ctx context.Context, candidateID string, cycle int) ([]model.CommitteeDesignation, error) {
	query := `
		SELECT id, committee_id, committee_name, cycle, designation, candidate_id, fetched_at
		FROM committee_designations
		WHERE candidate_id = $1 AND cycle = $2
		ORDER BY committee_id
	`

	rows, err := s.db.QueryContext(ctx, query, candidateID, cycle)
	if err != nil {
		return nil, fmt.Errorf("failed to list designations for %s: %w", candidateID, err)
	}
	defer rows.Close()

	return scanDesignations(rows)
}

// ListDesignationsForCommittee retrieves a committee's full
// cycle-by-cycle designation record
func (s *CommitteeStore) ListDesignationsForCommittee(ctx context.Context, committeeID string) ([]model.CommitteeDesignation, error) {
	query := `
		SELECT id, committee_id, committee_name, cycle, designation, candidate_id, fetched_at
		FROM committee_designations
		WHERE committee_id = $1
		ORDER BY cycle
	`

	rows, err := s.db.QueryContext(ctx, query, committeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list designations for committee %s: %w", committeeID, err)
	}
	defer rows.Close()

	return scanDesignations(rows)
}

func scanDesignations(rows *sql.Rows) ([]model.CommitteeDesignation, error) {
	var designations []model.CommitteeDesignation
	for rows.Next() {
		var d model.CommitteeDesignation
		err := rows.Scan(
			&d.ID,
			&d.CommitteeID,
			&d.CommitteeName,
			&d.Cycle,
			&d.Designation,
			&d.CandidateID,
			&d.FetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan designation: %w", err)
		}
		designations = append(designations, d)
	}

	return designations, rows.Err()
}
