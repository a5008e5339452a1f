package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// NewDB opens and verifies a PostgreSQL connection
func NewDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// schema holds the uniqueness keys the pipeline's upserts depend on.
// Inserting a true duplicate must violate a constraint here rather
// than silently accumulate.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS persons (
		id SERIAL PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		party TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		current_office TEXT NOT NULL DEFAULT '',
		incumbent BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS candidates (
		id SERIAL PRIMARY KEY,
		candidate_id TEXT NOT NULL,
		name TEXT NOT NULL,
		party TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		district TEXT,
		office TEXT NOT NULL,
		cycle INTEGER NOT NULL,
		active BOOLEAN NOT NULL DEFAULT FALSE,
		has_raised_funds BOOLEAN NOT NULL DEFAULT FALSE,
		person_slug TEXT REFERENCES persons(slug),
		fetched_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (candidate_id, cycle)
	)`,
	`CREATE TABLE IF NOT EXISTS committee_designations (
		id SERIAL PRIMARY KEY,
		committee_id TEXT NOT NULL,
		committee_name TEXT NOT NULL DEFAULT '',
		cycle INTEGER NOT NULL,
		designation TEXT NOT NULL,
		candidate_id TEXT NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL,
		UNIQUE (committee_id, cycle, candidate_id)
	)`,
	`CREATE TABLE IF NOT EXISTS period_filings (
		id SERIAL PRIMARY KEY,
		candidate_id TEXT NOT NULL,
		committee_id TEXT NOT NULL,
		cycle INTEGER NOT NULL,
		report_type TEXT NOT NULL,
		report_period TEXT NOT NULL,
		coverage_start DATE NOT NULL,
		coverage_end DATE NOT NULL,
		receipts NUMERIC(14,2) NOT NULL,
		disbursements NUMERIC(14,2) NOT NULL,
		cash_beginning NUMERIC(14,2) NOT NULL,
		cash_ending NUMERIC(14,2) NOT NULL,
		file_number BIGINT,
		amended BOOLEAN NOT NULL DEFAULT FALSE,
		receipt_date TIMESTAMPTZ,
		UNIQUE (candidate_id, cycle, report_period, coverage_start, coverage_end)
	)`,
	`CREATE TABLE IF NOT EXISTS cycle_summaries (
		id SERIAL PRIMARY KEY,
		candidate_id TEXT NOT NULL,
		cycle INTEGER NOT NULL,
		total_receipts NUMERIC(14,2) NOT NULL,
		total_disbursements NUMERIC(14,2) NOT NULL,
		cash_on_hand NUMERIC(14,2) NOT NULL,
		last_coverage_end DATE,
		fetched_at TIMESTAMPTZ NOT NULL,
		UNIQUE (candidate_id, cycle)
	)`,
	`CREATE TABLE IF NOT EXISTS anomalies (
		id SERIAL PRIMARY KEY,
		kind TEXT NOT NULL,
		candidate_id TEXT NOT NULL,
		cycle INTEGER NOT NULL,
		expected NUMERIC(14,2) NOT NULL,
		actual NUMERIC(14,2) NOT NULL,
		detail TEXT NOT NULL,
		detected_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS crawl_checkpoints (
		id SERIAL PRIMARY KEY,
		cycle INTEGER NOT NULL UNIQUE,
		cursor INTEGER NOT NULL,
		last_candidate_id TEXT NOT NULL DEFAULT '',
		candidates INTEGER NOT NULL DEFAULT 0,
		filings INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		started_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS crawl_failures (
		id SERIAL PRIMARY KEY,
		cycle INTEGER NOT NULL,
		candidate_id TEXT NOT NULL,
		stage TEXT NOT NULL,
		message TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		UNIQUE (cycle, candidate_id)
	)`,
	`CREATE TABLE IF NOT EXISTS cycle_metrics (
		cycle INTEGER PRIMARY KEY,
		total_candidates INTEGER NOT NULL,
		funded_candidates INTEGER NOT NULL,
		total_receipts NUMERIC(16,2) NOT NULL,
		total_disbursements NUMERIC(16,2) NOT NULL,
		top_fundraiser TEXT NOT NULL DEFAULT '',
		top_fundraiser_total NUMERIC(14,2) NOT NULL DEFAULT 0,
		open_anomalies INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the schema if it does not exist
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

// Records bundles the record stores into the single persistence
// surface the crawl orchestrator writes through.
type Records struct {
	*CandidateStore
	*FilingStore
	*CommitteeStore
}

// NewRecords creates the bundled record stores over one connection
func NewRecords(db *sql.DB) *Records {
	return &Records{
		CandidateStore: NewCandidateStore(db),
		FilingStore:    NewFilingStore(db),
		CommitteeStore: NewCommitteeStore(db),
	}
}
