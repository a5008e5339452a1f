package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// MetricsService calculates and stores per-cycle rollup metrics after
// a crawl.
type MetricsService struct {
	db *sql.DB
}

// NewMetricsService creates a new MetricsService
func NewMetricsService(db *sql.DB) *MetricsService {
	return &MetricsService{db: db}
}

// CycleMetrics represents calculated rollups for one cycle
type CycleMetrics struct {
	Cycle              int
	TotalCandidates    int
	FundedCandidates   int
	TotalReceipts      decimal.Decimal
	TotalDisbursements decimal.Decimal
	TopFundraiser      string
	TopFundraiserTotal decimal.Decimal
	OpenAnomalies      int
}

// CalculateAndStore calculates cycle metrics and stores them
func (m *MetricsService) CalculateAndStore(ctx context.Context, cycle int) (*CycleMetrics, error) {
	metrics := &CycleMetrics{Cycle: cycle}

	candidateQuery := `
		SELECT
			COUNT(*) AS total_candidates,
			COUNT(*) FILTER (WHERE has_raised_funds) AS funded_candidates
		FROM candidates
		WHERE cycle = $1
	`
	err := m.db.QueryRowContext(ctx, candidateQuery, cycle).Scan(
		&metrics.TotalCandidates,
		&metrics.FundedCandidates,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate candidate metrics: %w", err)
	}

	totalsQuery := `
		SELECT
			COALESCE(SUM(total_receipts), 0),
			COALESCE(SUM(total_disbursements), 0)
		FROM cycle_summaries
		WHERE cycle = $1
	`
	err = m.db.QueryRowContext(ctx, totalsQuery, cycle).Scan(
		&metrics.TotalReceipts,
		&metrics.TotalDisbursements,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate financial totals: %w", err)
	}

	topQuery := `
		SELECT c.name, s.total_receipts
		FROM cycle_summaries s
		JOIN candidates c ON c.candidate_id = s.candidate_id AND c.cycle = s.cycle
		WHERE s.cycle = $1
		ORDER BY s.total_receipts DESC
		LIMIT 1
	`
	err = m.db.QueryRowContext(ctx, topQuery, cycle).Scan(
		&metrics.TopFundraiser,
		&metrics.TopFundraiserTotal,
	)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to find top fundraiser: %w", err)
	}

	anomalyQuery := `SELECT COUNT(*) FROM anomalies WHERE cycle = $1`
	err = m.db.QueryRowContext(ctx, anomalyQuery, cycle).Scan(&metrics.OpenAnomalies)
	if err != nil {
		return nil, fmt.Errorf("failed to count anomalies: %w", err)
	}

	storeQuery := `
		INSERT INTO cycle_metrics (cycle, total_candidates, funded_candidates,
		                           total_receipts, total_disbursements,
		                           top_fundraiser, top_fundraiser_total, open_anomalies)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (cycle) DO UPDATE SET
			total_candidates = EXCLUDED.total_candidates,
			funded_candidates = EXCLUDED.funded_candidates,
			total_receipts = EXCLUDED.total_receipts,
			total_disbursements = EXCLUDED.total_disbursements,
			top_fundraiser = EXCLUDED.top_fundraiser,
			top_fundraiser_total = EXCLUDED.top_fundraiser_total,
			open_anomalies = EXCLUDED.open_anomalies,
			updated_at = NOW()
	`
	_, err = m.db.ExecContext(ctx, storeQuery,
		metrics.Cycle,
		metrics.TotalCandidates,
		metrics.FundedCandidates,
		metrics.TotalReceipts,
		metrics.TotalDisbursements,
		metrics.TopFundraiser,
		metrics.TopFundraiserTotal,
		metrics.OpenAnomalies,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to store cycle metrics: %w", err)
	}

	return metrics, nil
}

// Get retrieves stored metrics for a cycle
func (m *MetricsService) Get(ctx context.Context, cycle int) (*CycleMetrics, error) {
	query := `
		SELECT cycle, total_candidates, funded_candidates, total_receipts,
		       total_disbursements, top_fundraiser, top_fundraiser_total, open_anomalies
		FROM cycle_metrics
		WHERE cycle = $1
	`

	var metrics CycleMetrics
	err := m.db.QueryRowContext(ctx, query, cycle).Scan(
		&metrics.Cycle,
		&metrics.TotalCandidates,
		&metrics.FundedCandidates,
		&metrics.TotalReceipts,
		&metrics.TotalDisbursements,
		&metrics.TopFundraiser,
		&metrics.TopFundraiserTotal,
		&metrics.OpenAnomalies,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics for cycle %d: %w", cycle, err)
	}

	return &metrics, nil
}
