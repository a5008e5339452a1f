package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jkeller/fecdash/internal/model"
)

// CommitteeResolver determines which committee was a candidate's
// principal campaign committee in a given cycle.
//
// Designation must come from the committee's history, never its
// current state: a principal committee that later converted into a
// leadership PAC reports designation "D" today, and trusting that
// answer silently drops the candidate's entire campaign history.
type CommitteeResolver struct {
	client *FECClient

	// historyCache memoizes designation history per committee for the
	// lifetime of one crawl. History is immutable for past cycles, so
	// one fetch per committee is enough.
	historyCache map[string][]model.CommitteeDesignation
}

// NewCommitteeResolver creates a resolver backed by the given client.
func NewCommitteeResolver(client *FECClient) *CommitteeResolver {
	return &CommitteeResolver{
		client:       client,
		historyCache: make(map[string][]model.CommitteeDesignation),
	}
}

// ResolvePrincipal returns the committee ID of the candidate's
// principal campaign committee for the cycle, together with every
// cycle-scoped designation row observed along the way (for
// persistence). A candidate with no principal committee for the cycle
// returns an empty ID and no error; that is valid domain state the
// caller may still flag during validation.
func (r *CommitteeResolver) ResolvePrincipal(ctx context.Context, candidateID string, cycle int) (string, []model.CommitteeDesignation, error) {
	refs, err := r.client.FetchCandidateCommittees(ctx, candidateID, cycle)
	if err != nil {
		return "", nil, fmt.Errorf("fetching committees for %s: %w", candidateID, err)
	}

	principal := ""
	var observed []model.CommitteeDesignation

	for _, ref := range refs {
		history, err := r.history(ctx, ref.CommitteeID)
		if err != nil {
			return "", nil, fmt.Errorf("fetching history for committee %s: %w", ref.CommitteeID, err)
		}

		for _, rec := range history {
			if rec.Cycle != cycle {
				continue
			}
			rec.CandidateID = candidateID
			if rec.CommitteeName == "" {
				rec.CommitteeName = ref.Name
			}
			rec.FetchedAt = time.Now()
			observed = append(observed, rec)

			if rec.IsPrincipal() && principal == "" {
				principal = rec.CommitteeID
			}
		}
	}

	return principal, observed, nil
}

func (r *CommitteeResolver) history(ctx context.Context, committeeID string) ([]model.CommitteeDesignation, error) {
	if cached, ok := r.historyCache[committeeID]; ok {
		return cached, nil
	}

	history, err := r.client.FetchCommitteeHistory(ctx, committeeID)
	if err != nil {
		return nil, err
	}

	r.historyCache[committeeID] = history
	return history, nil
}
