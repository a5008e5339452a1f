package model

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Candidate represents one FEC candidate registration for one cycle.
// The same candidate ID appears once per cycle it was active in;
// (candidate_id, cycle) is the uniqueness key.
type Candidate struct {
	ID             int
	CandidateID    string
	Name           string
	Party          string
	State          string
	District       sql.NullString // null for Senate and President
	Office         string         // "H", "S", or "P"
	Cycle          int
	Active         bool
	HasRaisedFunds bool
	PersonSlug     sql.NullString // set by the identity resolver
	FetchedAt      time.Time
	CreatedAt      time.Time
}

// CycleSummary is the cycle-cumulative financial total for a candidate,
// sourced independently from the per-period filings it is validated against.
type CycleSummary struct {
	ID                 int
	CandidateID        string
	Cycle              int
	TotalReceipts      decimal.Decimal
	TotalDisbursements decimal.Decimal
	CashOnHand         decimal.Decimal
	LastCoverageEnd    sql.NullTime
	FetchedAt          time.Time
}
