package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jkeller/fecdash/internal/model"
)

// FilingStore handles database operations for period filings, cycle
// summaries, and anomalies
type FilingStore struct {
	db *sql.DB
}

// NewFilingStore creates a new FilingStore
func NewFilingStore(db *sql.DB) *FilingStore {
	return &FilingStore{db: db}
}

// ReplacePeriodFilings replaces a candidate's reconciled periods for a
// cycle in one transaction. Superseded rows from earlier crawls are
// deleted rather than left beside their replacements, so the table
// never holds two versions of one period.
func (s *FilingStore) ReplacePeriodFilings(ctx context.Context, candidateID string, cycle int, records []model.FinancialPeriodRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleteQuery := `DELETE FROM period_filings WHERE candidate_id = $1 AND cycle = $2`
	if _, err := tx.ExecContext(ctx, deleteQuery, candidateID, cycle); err != nil {
		return fmt.Errorf("failed to clear period filings for %s: %w", candidateID, err)
	}

	insertQuery := `
		INSERT INTO period_filings (candidate_id, committee_id, cycle, report_type,
		                            report_period, coverage_start, coverage_end,
		                            receipts, disbursements, cash_beginning, cash_ending,
		                            file_number, amended, receipt_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`

	for i := range records {
		rec := &records[i]
		err := tx.QueryRowContext(ctx, insertQuery,
			rec.CandidateID,
			rec.CommitteeID,
			rec.Cycle,
			rec.ReportType,
			rec.ReportPeriod,
			rec.CoverageStart,
			rec.CoverageEnd,
			rec.Receipts,
			rec.Disbursements,
			rec.CashBeginning,
			rec.CashEnding,
			rec.FileNumber,
			rec.Amended,
			rec.ReceiptDate,
		).Scan(&rec.ID)
		if err != nil {
			return fmt.Errorf("failed to insert period filing %s/%s: %w", rec.CandidateID, rec.ReportPeriod, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListPeriodFilings retrieves a candidate's reconciled periods for a
// cycle in coverage order
func (s *FilingStore) ListPeriodFilings(ctx context.Context, candidateID string, cycle int) ([]model.FinancialPeriodRecord, error) {
	query := `
		SELECT id, candidate_id, committee_id, cycle, report_type, report_period,
		       coverage_start, coverage_end, receipts, disbursements,
		       cash_beginning, cash_ending, file_number, amended, receipt_date
		FROM period_filings
		WHERE candidate_id = $1 AND cycle = $2
		ORDER BY coverage_end
	`

	rows, err := s.db.QueryContext(ctx, query, candidateID, cycle)
	if err != nil {
		return nil, fmt.Errorf("failed to list period filings for %s: %w", candidateID, err)
	}
	defer rows.Close()

	var records []model.FinancialPeriodRecord
	for rows.Next() {
		var rec model.FinancialPeriodRecord
		err := rows.Scan(
			&rec.ID,
			&rec.CandidateID,
			&rec.CommitteeID,
			&rec.Cycle,
			&rec.ReportType,
			&rec.ReportPeriod,
			&rec.CoverageStart,
			&rec.CoverageEnd,
			&rec.Receipts,
			&rec.Disbursements,
			&rec.CashBeginning,
			&rec.CashEnding,
			&rec.FileNumber,
			&rec.Amended,
			&rec.ReceiptDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan period filing: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// UpsertCycleSummary inserts or updates a candidate's cycle totals
func (s *FilingStore) UpsertCycleSummary(ctx context.Context, sum *model.CycleSummary) error {
	query := `
		INSERT INTO cycle_summaries (candidate_id, cycle, total_receipts,
		                             total_disbursements, cash_on_hand,
		                             last_coverage_end, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (candidate_id, cycle) DO UPDATE SET
			total_receipts = EXCLUDED.total_receipts,
			total_disbursements = EXCLUDED.total_disbursements,
			cash_on_hand = EXCLUDED.cash_on_hand,
			last_coverage_end = EXCLUDED.last_coverage_end,
			fetched_at = EXCLUDED.fetched_at
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		sum.CandidateID,
		sum.Cycle,
		sum.TotalReceipts,
		sum.TotalDisbursements,
		sum.CashOnHand,
		sum.LastCoverageEnd,
		sum.FetchedAt,
	).Scan(&sum.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert cycle summary for %s: %w", sum.CandidateID, err)
	}

	return nil
}

// GetCycleSummary retrieves a candidate's cycle totals
func (s *FilingStore) GetCycleSummary(ctx context.Context, candidateID string, cycle int) (*model.CycleSummary, error) {
	query := `
		SELECT id, candidate_id, cycle, total_receipts, total_disbursements,
		       cash_on_hand, last_coverage_end, fetched_at
		FROM cycle_summaries
		WHERE candidate_id = $1 AND cycle = $2
	`

	var sum model.CycleSummary
	err := s.db.QueryRowContext(ctx, query, candidateID, cycle).Scan(
		&sum.ID,
		&sum.CandidateID,
		&sum.Cycle,
		&sum.TotalReceipts,
		&sum.TotalDisbursements,
		&sum.CashOnHand,
		&sum.LastCoverageEnd,
		&sum.FetchedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle summary for %s: %w", candidateID, err)
	}

	return &sum, nil
}

// SaveAnomalies replaces a candidate's flagged anomalies for a cycle.
// Re-validating after a re-crawl clears findings that no longer hold.
func (s *FilingStore) SaveAnomalies(ctx context.Context, candidateID string, cycle int, anomalies []model.Anomaly) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleteQuery := `DELETE FROM anomalies WHERE candidate_id = $1 AND cycle = $2`
	if _, err := tx.ExecContext(ctx, deleteQuery, candidateID, cycle); err != nil {
		return fmt.Errorf("failed to clear anomalies for %s: %w", candidateID, err)
	}

	insertQuery := `
		INSERT INTO anomalies (kind, candidate_id, cycle, expected, actual, detail, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, a := range anomalies {
		_, err := tx.ExecContext(ctx, insertQuery,
			a.Kind,
			a.CandidateID,
			a.Cycle,
			a.Expected,
			a.Actual,
			a.Detail,
			a.DetectedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert anomaly for %s: %w", a.CandidateID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListAnomalies retrieves all flagged anomalies for a cycle
func (s *FilingStore) ListAnomalies(ctx context.Context, cycle int) ([]model.Anomaly, error) {
	query := `
		SELECT id, kind, candidate_id, cycle, expected, actual, detail, detected_at
		FROM anomalies
		WHERE cycle = $1
		ORDER BY candidate_id
	`

	rows, err := s.db.QueryContext(ctx, query, cycle)
	if err != nil {
		return nil, fmt.Errorf("failed to list anomalies for cycle %d: %w", cycle, err)
	}
	defer rows.Close()

	var anomalies []model.Anomaly
	for rows.Next() {
		var a model.Anomaly
		err := rows.Scan(
			&a.ID,
			&a.Kind,
			&a.CandidateID,
			&a.Cycle,
			&a.Expected,
			&a.Actual,
			&a.Detail,
			&a.DetectedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		anomalies = append(anomalies, a)
	}

	return anomalies, rows.Err()
}
