package service

import (
	"context"
	"fmt"

	"github.com/jkeller/fecdash/internal/model"
)

// CandidateCrawler enumerates the candidates active in an election
// cycle, page by page.
type CandidateCrawler struct {
	client  *FECClient
	perPage int
}

// NewCandidateCrawler creates a crawler fetching perPage candidates per
// API call.
func NewCandidateCrawler(client *FECClient, perPage int) *CandidateCrawler {
	return &CandidateCrawler{client: client, perPage: perPage}
}

// Crawl walks the cycle's candidate enumeration in pagination order,
// invoking fn with each candidate and its zero-based index. startIndex
// skips candidates already processed, so a checkpointed crawl resumes
// mid-enumeration without refetching completed work beyond the page
// the cursor falls in. fn returning an error stops the crawl.
func (cc *CandidateCrawler) Crawl(ctx context.Context, cycle, startIndex int, fn func(index int, cand model.Candidate) error) error {
	if cycle <= 0 {
		return fmt.Errorf("invalid cycle %d", cycle)
	}

	index := 0
	page := 1
	if startIndex > 0 {
		// Land on the page containing startIndex.
		page = startIndex/cc.perPage + 1
		index = (page - 1) * cc.perPage
	}

	for {
		candidates, pages, err := cc.client.FetchCandidatesPage(ctx, cycle, page, cc.perPage)
		if err != nil {
			return fmt.Errorf("fetching candidates page %d: %w", page, err)
		}

		for _, cand := range candidates {
			if index >= startIndex {
				if err := fn(index, cand); err != nil {
					return err
				}
			}
			index++
		}

		if page >= pages || len(candidates) == 0 {
			return nil
		}
		page++
	}
}
