package model

import "time"

// CrawlCheckpoint tracks progress of a cycle crawl so a multi-hour,
// rate-limited run can resume after interruption. The cursor is the
// index of the last candidate fully processed in the cycle's
// enumeration order.
type CrawlCheckpoint struct {
	ID              int
	Cycle           int
	Cursor          int
	LastCandidateID string
	Candidates      int
	Filings         int
	Failures        int
	Completed       bool
	StartedAt       time.Time
	UpdatedAt       time.Time
}

// CrawlFailure records a candidate whose processing failed after the
// fetch client exhausted its retries. Failures do not abort the cycle;
// they are stored for a later targeted re-crawl.
type CrawlFailure struct {
	ID          int
	Cycle       int
	CandidateID string
	Stage       string // "committees", "filings", or "totals"
	Message     string
	OccurredAt  time.Time
}
