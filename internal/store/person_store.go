package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jkeller/fecdash/internal/model"
	"github.com/shopspring/decimal"
)

// PersonStore handles database operations for political persons and
// their candidate links
type PersonStore struct {
	db *sql.DB
}

// NewPersonStore creates a new PersonStore
func NewPersonStore(db *sql.DB) *PersonStore {
	return &PersonStore{db: db}
}

// UpsertPerson inserts or updates a political person. Persons are
// never deleted; re-applying a seed refreshes the descriptive fields.
func (s *PersonStore) UpsertPerson(ctx context.Context, p *model.PoliticalPerson) error {
	query := `
		INSERT INTO persons (slug, display_name, party, state, current_office, incumbent, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (slug) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			party = EXCLUDED.party,
			state = EXCLUDED.state,
			current_office = EXCLUDED.current_office,
			incumbent = EXCLUDED.incumbent,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		p.Slug,
		p.DisplayName,
		p.Party,
		p.State,
		p.CurrentOffice,
		p.Incumbent,
		p.UpdatedAt,
	).Scan(&p.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert person %s: %w", p.Slug, err)
	}

	return nil
}

// LinkCandidate sets a candidate registration's person link. Linking a
// candidate that is already linked elsewhere re-points it; a candidate
// holds at most one person link.
func (s *PersonStore) LinkCandidate(ctx context.Context, candidateID string, cycle int, personSlug string) error {
	query := `
		UPDATE candidates
		SET person_slug = $1
		WHERE candidate_id = $2 AND cycle = $3
	`

	res, err := s.db.ExecContext(ctx, query, personSlug, candidateID, cycle)
	if err != nil {
		return fmt.Errorf("failed to link candidate %s to %s: %w", candidateID, personSlug, err)
	}

	// A seed naming a candidate we never crawled is a curation error
	// worth surfacing, not silently ignoring.
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check link result for %s: %w", candidateID, err)
	}
	if affected == 0 {
		return fmt.Errorf("candidate %s (cycle %d) not found for person link %s", candidateID, cycle, personSlug)
	}

	return nil
}

// GetBySlug retrieves a person by slug
func (s *PersonStore) GetBySlug(ctx context.Context, slug string) (*model.PoliticalPerson, error) {
	query := `
		SELECT id, slug, display_name, party, state, current_office, incumbent,
		       created_at, updated_at
		FROM persons
		WHERE slug = $1
	`

	var p model.PoliticalPerson
	err := s.db.QueryRowContext(ctx, query, slug).Scan(
		&p.ID,
		&p.Slug,
		&p.DisplayName,
		&p.Party,
		&p.State,
		&p.CurrentOffice,
		&p.Incumbent,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person %s: %w", slug, err)
	}

	return &p, nil
}

// ListPersons retrieves all persons ordered by display name
func (s *PersonStore) ListPersons(ctx context.Context) ([]model.PoliticalPerson, error) {
	query := `
		SELECT id, slug, display_name, party, state, current_office, incumbent,
		       created_at, updated_at
		FROM persons
		ORDER BY display_name
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	defer rows.Close()

	var persons []model.PoliticalPerson
	for rows.Next() {
		var p model.PoliticalPerson
		err := rows.Scan(
			&p.ID,
			&p.Slug,
			&p.DisplayName,
			&p.Party,
			&p.State,
			&p.CurrentOffice,
			&p.Incumbent,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		persons = append(persons, p)
	}

	return persons, rows.Err()
}

// PersonFundraising is one cycle of a person's combined
// principal-committee activity across all their candidate IDs.
type PersonFundraising struct {
	Cycle         int             `json:"cycle"`
	CandidateIDs  []string        `json:"candidate_ids"`
	Receipts      decimal.Decimal `json:"receipts"`
	Disbursements decimal.Decimal `json:"disbursements"`
}

// CombinedFundraising answers the query the identity layer exists for:
// a person's fundraising per cycle summed over every candidate
// registration linked to them, counting only periods filed by
// committees designated principal for that candidate and cycle.
func (s *PersonStore) CombinedFundraising(ctx context.Context, slug string) ([]PersonFundraising, error) {
	query := `
		SELECT pf.cycle,
		       ARRAY_AGG(DISTINCT pf.candidate_id) AS candidate_ids,
		       COALESCE(SUM(pf.receipts), 0) AS receipts,
		       COALESCE(SUM(pf.disbursements), 0) AS disbursements
		FROM period_filings pf
		JOIN candidates c
		  ON c.candidate_id = pf.candidate_id AND c.cycle = pf.cycle
		JOIN committee_designations cd
		  ON cd.committee_id = pf.committee_id
		 AND cd.cycle = pf.cycle
		 AND cd.candidate_id = pf.candidate_id
		 AND cd.designation = 'P'
		WHERE c.person_slug = $1
		GROUP BY pf.cycle
		ORDER BY pf.cycle
	`

	rows, err := s.db.QueryContext(ctx, query, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get combined fundraising for %s: %w", slug, err)
	}
	defer rows.Close()

	var results []PersonFundraising
	for rows.Next() {
		var pf PersonFundraising
		var ids []byte
		err := rows.Scan(&pf.Cycle, &ids, &pf.Receipts, &pf.Disbursements)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fundraising row: %w", err)
		}
		pf.CandidateIDs = parseTextArray(ids)
		results = append(results, pf)
	}

	return results, rows.Err()
}

// parseTextArray decodes a Postgres text[] literal like
// {H4VA07234,S6VA00093}. Candidate IDs are alphanumeric, so the quoted
// and escaped forms never occur.
func parseTextArray(raw []byte) []string {
	s := string(raw)
	if len(s) < 2 || s == "{}" {
		return nil
	}
	s = s[1 : len(s)-1]

	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
