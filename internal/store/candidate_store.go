package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jkeller/fecdash/internal/model"
)

// CandidateStore handles database operations for candidates
type CandidateStore struct {
	db *sql.DB
}

// NewCandidateStore creates a new CandidateStore
func NewCandidateStore(db *sql.DB) *CandidateStore {
	return &CandidateStore{db: db}
}

// UpsertCandidate inserts or updates a candidate registration. The
// person link is preserved on re-crawl; only the identity resolver
// writes it.
func (s *CandidateStore) UpsertCandidate(ctx context.Context, c *model.Candidate) error {
	query := `
		INSERT INTO candidates (candidate_id, name, party, state, district, office,
		                        cycle, active, has_raised_funds, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (candidate_id, cycle) DO UPDATE SET
			name = EXCLUDED.name,
			party = EXCLUDED.party,
			state = EXCLUDED.state,
			district = EXCLUDED.district,
			office = EXCLUDED.office,
			active = EXCLUDED.active,
			has_raised_funds = EXCLUDED.has_raised_funds,
			fetched_at = EXCLUDED.fetched_at
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		c.CandidateID,
		c.Name,
		c.Party,
		c.State,
		c.District,
		c.Office,
		c.Cycle,
		c.Active,
		c.HasRaisedFunds,
		c.FetchedAt,
	).Scan(&c.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert candidate %s: %w", c.CandidateID, err)
	}

	return nil
}

// GetCandidate retrieves one candidate registration
func (s *CandidateStore) GetCandidate(ctx context.Context, candidateID string, cycle int) (*model.Candidate, error) {
	query := `
		SELECT id, candidate_id, name, party, state, district, office, cycle,
		       active, has_raised_funds, person_slug, fetched_at, created_at
		FROM candidates
		WHERE candidate_id = $1 AND cycle = $2
	`

	var c model.Candidate
	err := s.db.QueryRowContext(ctx, query, candidateID, cycle).Scan(
		&c.ID,
		&c.CandidateID,
		&c.Name,
		&c.Party,
		&c.State,
		&c.District,
		&c.Office,
		&c.Cycle,
		&c.Active,
		&c.HasRaisedFunds,
		&c.PersonSlug,
		&c.FetchedAt,
		&c.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate %s: %w", candidateID, err)
	}

	return &c, nil
}

// ListCandidates retrieves all candidates for a cycle ordered by
// candidate ID
func (s *CandidateStore) ListCandidates(ctx context.Context, cycle int) ([]model.Candidate, error) {
	query := `
		SELECT id, candidate_id, name, party, state, district, office, cycle,
		       active, has_raised_funds, person_slug, fetched_at, created_at
		FROM candidates
		WHERE cycle = $1
		ORDER BY candidate_id
	`

	rows, err := s.db.QueryContext(ctx, query, cycle)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates for cycle %d: %w", cycle, err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// ListCandidatesSorted retrieves a cycle's candidates with custom
// sorting for the read API
func (s *CandidateStore) ListCandidatesSorted(ctx context.Context, cycle int, sortBy, order string) ([]model.Candidate, error) {
	// Whitelist valid sort columns to prevent SQL injection
	validColumns := map[string]string{
		"candidate_id": "candidate_id",
		"name":         "name",
		"state":        "state",
		"party":        "party",
		"office":       "office",
	}

	column, ok := validColumns[sortBy]
	if !ok {
		column = "candidate_id"
	}

	sortOrder := "ASC"
	if order == "desc" {
		sortOrder = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT id, candidate_id, name, party, state, district, office, cycle,
		       active, has_raised_funds, person_slug, fetched_at, created_at
		FROM candidates
		WHERE cycle = $1
		ORDER BY %s %s
	`, column, sortOrder)

	rows, err := s.db.QueryContext(ctx, query, cycle)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates for cycle %d: %w", cycle, err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// ListCandidatesForPerson retrieves every registration linked to a
// person across all cycles
func (s *CandidateStore) ListCandidatesForPerson(ctx context.Context, slug string) ([]model.Candidate, error) {
	query := `
		SELECT id, candidate_id, name, party, state, district, office, cycle,
		       active, has_raised_funds, person_slug, fetched_at, created_at
		FROM candidates
		WHERE person_slug = $1
		ORDER BY cycle, candidate_id
	`

	rows, err := s.db.QueryContext(ctx, query, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates for person %s: %w", slug, err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

func scanCandidates(rows *sql.Rows) ([]model.Candidate, error) {
	var candidates []model.Candidate
	for rows.Next() {
		var c model.Candidate
		err := rows.Scan(
			&c.ID,
			&c.CandidateID,
			&c.Name,
			&c.Party,
			&c.State,
			&c.District,
			&c.Office,
			&c.Cycle,
			&c.Active,
			&c.HasRaisedFunds,
			&c.PersonSlug,
			&c.FetchedAt,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}
