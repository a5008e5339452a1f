package model

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// RawFiling is one period report as returned by the FEC reports
// endpoint, before amendment deduplication. File numbers are frequently
// null in source data, so they never participate in identity.
type RawFiling struct {
	CommitteeID   string
	ReportType    string
	CoverageStart time.Time
	CoverageEnd   time.Time
	Receipts      decimal.Decimal
	Disbursements decimal.Decimal
	CashBeginning decimal.Decimal
	CashEnding    decimal.Decimal
	FileNumber    sql.NullInt64
	Amendment     bool
	MostRecent    bool
	ReceiptDate   time.Time // when the FEC received this version
}

// FinancialPeriodRecord is one reconciled reporting period for a
// candidate. Uniqueness key: (candidate_id, cycle, report_period,
// coverage_start, coverage_end). Amendments sharing that key are
// resolved before a record is ever stored, so exactly one version of
// each period survives.
type FinancialPeriodRecord struct {
	ID            int
	CandidateID   string
	CommitteeID   string
	Cycle         int
	ReportType    string
	ReportPeriod  string // derived from coverage end date, e.g. "2025-Q3"
	CoverageStart time.Time
	CoverageEnd   time.Time
	Receipts      decimal.Decimal
	Disbursements decimal.Decimal
	CashBeginning decimal.Decimal
	CashEnding    decimal.Decimal
	FileNumber    sql.NullInt64
	Amended       bool // true if this record superseded an earlier version
	ReceiptDate   time.Time
}

// Anomaly kinds reported by reconciliation validation.
const (
	AnomalyConservation   = "conservation_mismatch"
	AnomalySuspiciousZero = "suspicious_zero_filings"
)

// Anomaly is a structured validation finding. Anomalies are not errors:
// they are surfaced for review or targeted re-crawl, never dropped and
// never fatal to the crawl that found them.
type Anomaly struct {
	ID          int
	Kind        string
	CandidateID string
	Cycle       int
	Expected    decimal.Decimal
	Actual      decimal.Decimal
	Detail      string
	DetectedAt  time.Time
}
