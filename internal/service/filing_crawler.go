package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jkeller/fecdash/internal/model"
)

// FilingCrawler paginates a committee's period reports for a cycle.
// Quarterly, monthly, pre/post-election, and year-end reports are all
// requested; filtering to "regular" quarterlies undercounts cycle
// activity because special reports carry real money.
type FilingCrawler struct {
	client  *FECClient
	perPage int
}

// NewFilingCrawler creates a crawler fetching perPage reports per call.
func NewFilingCrawler(client *FECClient, perPage int) *FilingCrawler {
	return &FilingCrawler{client: client, perPage: perPage}
}

// Crawl returns every raw period filing the committee submitted for
// the cycle. An empty result with a nil error means the committee
// genuinely has no reports yet.
func (fc *FilingCrawler) Crawl(ctx context.Context, committeeID string, cycle int) ([]model.RawFiling, error) {
	var all []model.RawFiling

	page := 1
	for {
		filings, pages, err := fc.client.FetchCommitteeReportsPage(ctx, committeeID, cycle, page, fc.perPage)
		if err != nil {
			return nil, fmt.Errorf("fetching reports page %d for %s: %w", page, committeeID, err)
		}

		all = append(all, filings...)

		if page >= pages || len(filings) == 0 {
			return all, nil
		}
		page++
	}
}

// PeriodFor derives the reporting period from a coverage end date.
// The report-type label is not reliable: an "April Quarterly" covers a
// period ending March 31, which is Q1. Only the coverage window says
// what period the money belongs to.
func PeriodFor(coverageEnd time.Time) string {
	quarter := (int(coverageEnd.Month())-1)/3 + 1
	return fmt.Sprintf("%d-Q%d", coverageEnd.Year(), quarter)
}
