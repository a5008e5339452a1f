package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/jkeller/fecdash/internal/model"
	"github.com/shopspring/decimal"
)

// Default validation thresholds. Tolerance absorbs rounding between
// independently sourced per-period and cycle-cumulative figures;
// materiality keeps the suspicious-zero check from flagging candidates
// who plausibly filed nothing.
var (
	DefaultTolerance   = decimal.NewFromInt(100)
	DefaultMateriality = decimal.NewFromInt(50000)
)

// Reconcile deduplicates raw filings into one FinancialPeriodRecord
// per reporting period. Amendments share the period identity key
// (candidate, cycle, derived period, coverage window); among colliding
// filings exactly one survives: the latest by receipt date, preferring
// the source's most-recent flag and, as a final tiebreak, the higher
// file number (FEC file numbers grow monotonically per submission).
//
// Reconcile is idempotent: feeding its output back through produces
// the identical set.
func Reconcile(candidateID string, cycle int, raw []model.RawFiling) []model.FinancialPeriodRecord {
	type periodKey struct {
		period        string
		coverageStart time.Time
		coverageEnd   time.Time
	}

	winners := make(map[periodKey]model.RawFiling)
	superseded := make(map[periodKey]bool)
	var order []periodKey

	for _, filing := range raw {
		key := periodKey{
			period:        PeriodFor(filing.CoverageEnd),
			coverageStart: filing.CoverageStart,
			coverageEnd:   filing.CoverageEnd,
		}

		current, exists := winners[key]
		if !exists {
			winners[key] = filing
			order = append(order, key)
			continue
		}

		superseded[key] = true
		if supersedes(filing, current) {
			winners[key] = filing
		}
	}

	records := make([]model.FinancialPeriodRecord, 0, len(order))
	for _, key := range order {
		w := winners[key]
		records = append(records, model.FinancialPeriodRecord{
			CandidateID:   candidateID,
			CommitteeID:   w.CommitteeID,
			Cycle:         cycle,
			ReportType:    w.ReportType,
			ReportPeriod:  key.period,
			CoverageStart: w.CoverageStart,
			CoverageEnd:   w.CoverageEnd,
			Receipts:      w.Receipts,
			Disbursements: w.Disbursements,
			CashBeginning: w.CashBeginning,
			CashEnding:    w.CashEnding,
			FileNumber:    w.FileNumber,
			Amended:       superseded[key] || w.Amendment,
			ReceiptDate:   w.ReceiptDate,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CoverageEnd.Before(records[j].CoverageEnd)
	})

	return records
}

// supersedes reports whether a should replace b for the same period.
func supersedes(a, b model.RawFiling) bool {
	if a.MostRecent != b.MostRecent {
		return a.MostRecent
	}
	if !a.ReceiptDate.Equal(b.ReceiptDate) {
		return a.ReceiptDate.After(b.ReceiptDate)
	}
	if a.FileNumber.Valid && b.FileNumber.Valid {
		return a.FileNumber.Int64 > b.FileNumber.Int64
	}
	return false
}

// Validator checks reconciled records against independently sourced
// cycle totals.
type Validator struct {
	Tolerance   decimal.Decimal
	Materiality decimal.Decimal
}

// NewValidator creates a validator with the default thresholds.
func NewValidator() *Validator {
	return &Validator{
		Tolerance:   DefaultTolerance,
		Materiality: DefaultMateriality,
	}
}

// Validate returns structured findings for a candidate's reconciled
// records. Findings are never fatal; the crawl records them and moves
// on, and downstream consumers decide whether to alert or re-crawl.
//
// Conservation: the sum of non-superseded period receipts must match
// the cycle-cumulative total within tolerance. The two figures come
// from different endpoints, so a large gap means filings were missed
// or double-counted.
//
// Suspicious zero: a candidate whose cycle total exceeds materiality
// but who has zero reconciled periods almost always marks an upstream
// step that returned empty instead of failing loudly. Those candidates
// must surface for re-crawl, never vanish.
func (v *Validator) Validate(candidateID string, cycle int, records []model.FinancialPeriodRecord, summary *model.CycleSummary) []model.Anomaly {
	var anomalies []model.Anomaly
	now := time.Now()

	if summary == nil {
		return nil
	}

	if len(records) == 0 {
		if summary.TotalReceipts.GreaterThan(v.Materiality) {
			anomalies = append(anomalies, model.Anomaly{
				Kind:        model.AnomalySuspiciousZero,
				CandidateID: candidateID,
				Cycle:       cycle,
				Expected:    summary.TotalReceipts,
				Actual:      decimal.Zero,
				Detail: fmt.Sprintf("cycle totals report %s in receipts but no period filings were reconciled",
					summary.TotalReceipts.StringFixed(2)),
				DetectedAt: now,
			})
		}
		return anomalies
	}

	sum := decimal.Zero
	for _, rec := range records {
		sum = sum.Add(rec.Receipts)
	}

	if sum.Sub(summary.TotalReceipts).Abs().GreaterThan(v.Tolerance) {
		anomalies = append(anomalies, model.Anomaly{
			Kind:        model.AnomalyConservation,
			CandidateID: candidateID,
			Cycle:       cycle,
			Expected:    summary.TotalReceipts,
			Actual:      sum,
			Detail: fmt.Sprintf("period receipts sum to %s but cycle totals report %s (diff %s)",
				sum.StringFixed(2), summary.TotalReceipts.StringFixed(2),
				sum.Sub(summary.TotalReceipts).Abs().StringFixed(2)),
			DetectedAt: now,
		})
	}

	return anomalies
}
