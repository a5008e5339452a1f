package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jkeller/fecdash/internal/model"
)

// RecordStore is the persistence surface for normalized output
// records. Every write is an idempotent upsert keyed by the record's
// uniqueness key, so an interrupted crawl never corrupts stored data.
type RecordStore interface {
	UpsertCandidate(ctx context.Context, c *model.Candidate) error
	GetCandidate(ctx context.Context, candidateID string, cycle int) (*model.Candidate, error)
	ListCandidates(ctx context.Context, cycle int) ([]model.Candidate, error)
	UpsertCycleSummary(ctx context.Context, s *model.CycleSummary) error
	UpsertDesignations(ctx context.Context, designations []model.CommitteeDesignation) error
	ReplacePeriodFilings(ctx context.Context, candidateID string, cycle int, records []model.FinancialPeriodRecord) error
	SaveAnomalies(ctx context.Context, candidateID string, cycle int, anomalies []model.Anomaly) error
}

// CheckpointStore persists crawl progress and per-candidate failures.
type CheckpointStore interface {
	Get(ctx context.Context, cycle int) (*model.CrawlCheckpoint, error)
	Save(ctx context.Context, cp *model.CrawlCheckpoint) error
	MarkCompleted(ctx context.Context, cycle int) error
	RecordFailure(ctx context.Context, f *model.CrawlFailure) error
	ListFailures(ctx context.Context, cycle int) ([]model.CrawlFailure, error)
	ClearFailure(ctx context.Context, cycle int, candidateID string) error
}

// CrawlStats is the accounting a finished crawl always reports. A run
// never ends with a bare "done": skipped-as-empty, failed, and flagged
// counts are part of the contract.
type CrawlStats struct {
	Processed   int
	NoCommittee int
	Filings     int
	Superseded  int
	Failed      int
	Anomalies   int
	Linked      int
	Suggestions int
}

// Clean reports whether the crawl finished with nothing needing review.
func (s *CrawlStats) Clean() bool {
	return s.Failed == 0 && s.Anomalies == 0 && s.Suggestions == 0
}

// CycleCrawler orchestrates one cycle's crawl: enumerate candidates,
// resolve principal committees, crawl and reconcile filings, validate,
// persist, checkpoint.
//
// The crawl is deliberately sequential. The binding constraint is the
// shared hourly API quota, and parallel candidates would only race each
// other into the rate limiter without raising effective throughput.
type CycleCrawler struct {
	candidates  *CandidateCrawler
	committees  *CommitteeResolver
	filings     *FilingCrawler
	validator   *Validator
	identity    *IdentityResolver
	records     RecordStore
	checkpoints CheckpointStore

	// CheckpointEvery is how many candidates are processed between
	// checkpoint writes; an interruption loses at most one batch.
	CheckpointEvery int

	logger    *log.Logger
	errLogger *log.Logger
}

// NewCycleCrawler wires together the crawl pipeline.
func NewCycleCrawler(
	candidates *CandidateCrawler,
	committees *CommitteeResolver,
	filings *FilingCrawler,
	identity *IdentityResolver,
	records RecordStore,
	checkpoints CheckpointStore,
	checkpointEvery int,
) *CycleCrawler {
	return &CycleCrawler{
		candidates:      candidates,
		committees:      committees,
		filings:         filings,
		validator:       NewValidator(),
		identity:        identity,
		records:         records,
		checkpoints:     checkpoints,
		CheckpointEvery: checkpointEvery,
		logger:          log.New(os.Stdout, "", log.LstdFlags),
		errLogger:       log.New(os.Stderr, "ERROR: ", log.LstdFlags),
	}
}

// Run crawls one cycle. With resume set, an unfinished checkpoint for
// the cycle restarts the enumeration at the saved cursor instead of
// from zero. Individual candidate failures are recorded and skipped;
// only enumeration failures, checkpoint failures, misconfiguration,
// and cancellation abort the run.
func (c *CycleCrawler) Run(ctx context.Context, cycle int, resume bool, seeds []model.PersonSeed) (*CrawlStats, error) {
	if cycle <= 0 || cycle%2 != 0 {
		return nil, fmt.Errorf("cycle must be a positive even year, got %d", cycle)
	}

	stats := &CrawlStats{}

	checkpoint := &model.CrawlCheckpoint{Cycle: cycle, Cursor: -1, StartedAt: time.Now()}
	startIndex := 0
	if resume {
		existing, err := c.checkpoints.Get(ctx, cycle)
		if err != nil {
			return nil, fmt.Errorf("reading checkpoint for cycle %d: %w", cycle, err)
		}
		if existing != nil && !existing.Completed {
			checkpoint = existing
			startIndex = existing.Cursor + 1
			stats.Processed = existing.Candidates
			stats.Filings = existing.Filings
			stats.Failed = existing.Failures
			c.logger.Printf("Resuming cycle %d crawl at candidate index %d", cycle, startIndex)
		}
	}

	c.logger.Printf("Crawling candidates for cycle %d...", cycle)

	sinceCheckpoint := 0
	err := c.candidates.Crawl(ctx, cycle, startIndex, func(index int, cand model.Candidate) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := c.processCandidate(ctx, cand, stats); err != nil {
			return err
		}

		checkpoint.Cursor = index
		checkpoint.LastCandidateID = cand.CandidateID
		checkpoint.Candidates = stats.Processed
		checkpoint.Filings = stats.Filings
		checkpoint.Failures = stats.Failed

		sinceCheckpoint++
		if sinceCheckpoint >= c.CheckpointEvery {
			if err := c.checkpoints.Save(ctx, checkpoint); err != nil {
				return fmt.Errorf("saving checkpoint at index %d: %w", index, err)
			}
			sinceCheckpoint = 0
		}
		return nil
	})
	if err != nil {
		// Persist progress so the interrupted run can resume.
		if checkpoint.Cursor >= 0 {
			if saveErr := c.checkpoints.Save(context.WithoutCancel(ctx), checkpoint); saveErr != nil {
				c.errLogger.Printf("Failed to save checkpoint on abort: %v", saveErr)
			}
		}
		return stats, err
	}

	if err := c.checkpoints.MarkCompleted(ctx, cycle); err != nil {
		return stats, fmt.Errorf("archiving checkpoint for cycle %d: %w", cycle, err)
	}

	if err := c.resolveIdentities(ctx, cycle, seeds, stats); err != nil {
		return stats, err
	}

	return stats, nil
}

// processCandidate runs the candidate -> committee -> filings ->
// reconcile -> validate chain for one candidate. Fetch failures after
// the client's retries are exhausted are recorded and skipped, never
// allowed to abort the cycle; nothing below the fetch client is
// permitted to turn an error into an empty result.
func (c *CycleCrawler) processCandidate(ctx context.Context, cand model.Candidate, stats *CrawlStats) error {
	if err := c.records.UpsertCandidate(ctx, &cand); err != nil {
		return fmt.Errorf("upserting candidate %s: %w", cand.CandidateID, err)
	}

	principal, designations, err := c.committees.ResolvePrincipal(ctx, cand.CandidateID, cand.Cycle)
	if err != nil {
		return c.recordFailure(ctx, cand, "committees", err, stats)
	}
	if len(designations) > 0 {
		if err := c.records.UpsertDesignations(ctx, designations); err != nil {
			return fmt.Errorf("upserting designations for %s: %w", cand.CandidateID, err)
		}
	}

	summary, err := c.client().FetchCandidateTotals(ctx, cand.CandidateID, cand.Cycle)
	if err != nil {
		return c.recordFailure(ctx, cand, "totals", err, stats)
	}
	if summary != nil {
		if err := c.records.UpsertCycleSummary(ctx, summary); err != nil {
			return fmt.Errorf("upserting cycle summary for %s: %w", cand.CandidateID, err)
		}
	}

	var records []model.FinancialPeriodRecord
	if principal == "" {
		// Valid for candidates who have not formed a committee yet;
		// validation decides whether it is suspicious.
		stats.NoCommittee++
	} else {
		raw, err := c.filings.Crawl(ctx, principal, cand.Cycle)
		if err != nil {
			return c.recordFailure(ctx, cand, "filings", err, stats)
		}

		records = Reconcile(cand.CandidateID, cand.Cycle, raw)
		stats.Filings += len(records)
		stats.Superseded += len(raw) - len(records)

		if err := c.records.ReplacePeriodFilings(ctx, cand.CandidateID, cand.Cycle, records); err != nil {
			return fmt.Errorf("replacing period filings for %s: %w", cand.CandidateID, err)
		}
	}

	anomalies := c.validator.Validate(cand.CandidateID, cand.Cycle, records, summary)
	if len(anomalies) > 0 {
		stats.Anomalies += len(anomalies)
		for _, a := range anomalies {
			c.errLogger.Printf("Anomaly [%s] candidate %s cycle %d: %s", a.Kind, a.CandidateID, a.Cycle, a.Detail)
		}
		if err := c.records.SaveAnomalies(ctx, cand.CandidateID, cand.Cycle, anomalies); err != nil {
			return fmt.Errorf("saving anomalies for %s: %w", cand.CandidateID, err)
		}
	}

	stats.Processed++
	return nil
}

// recordFailure logs and persists a per-candidate fetch failure.
// Cancellation and storage errors still abort the run.
func (c *CycleCrawler) recordFailure(ctx context.Context, cand model.Candidate, stage string, err error, stats *CrawlStats) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		// Not a fetch failure; something structural broke.
		return err
	}

	c.errLogger.Printf("Candidate %s failed at %s stage: %v", cand.CandidateID, stage, err)
	stats.Failed++

	failure := &model.CrawlFailure{
		Cycle:       cand.Cycle,
		CandidateID: cand.CandidateID,
		Stage:       stage,
		Message:     err.Error(),
		OccurredAt:  time.Now(),
	}
	if err := c.checkpoints.RecordFailure(ctx, failure); err != nil {
		return fmt.Errorf("recording failure for %s: %w", cand.CandidateID, err)
	}

	return nil
}

// resolveIdentities applies curated seed merges and reports heuristic
// merge suggestions for the cycle's candidates.
func (c *CycleCrawler) resolveIdentities(ctx context.Context, cycle int, seeds []model.PersonSeed, stats *CrawlStats) error {
	if len(seeds) > 0 {
		linked, err := c.identity.Apply(ctx, seeds, cycle)
		stats.Linked = linked
		if err != nil {
			return fmt.Errorf("applying person seeds: %w", err)
		}
		c.logger.Printf("Linked %d candidate registrations to persons", linked)
	}

	candidates, err := c.records.ListCandidates(ctx, cycle)
	if err != nil {
		return fmt.Errorf("listing candidates for merge suggestions: %w", err)
	}

	suggestions := SuggestMerges(candidates)
	stats.Suggestions = len(suggestions)
	for _, s := range suggestions {
		c.logger.Printf("Merge suggestion: %s (%s) candidate IDs %v: %s", s.Name, s.State, s.CandidateIDs, s.Reason)
	}

	return nil
}

// RecrawlFailed reprocesses the candidates recorded as failed in an
// earlier run of the cycle, clearing each failure that now succeeds.
func (c *CycleCrawler) RecrawlFailed(ctx context.Context, cycle int) (*CrawlStats, error) {
	failures, err := c.checkpoints.ListFailures(ctx, cycle)
	if err != nil {
		return nil, fmt.Errorf("listing failures for cycle %d: %w", cycle, err)
	}

	stats := &CrawlStats{}
	c.logger.Printf("Re-crawling %d failed candidates for cycle %d", len(failures), cycle)

	for _, failure := range failures {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		cand, err := c.records.GetCandidate(ctx, failure.CandidateID, cycle)
		if err != nil {
			return stats, fmt.Errorf("loading candidate %s: %w", failure.CandidateID, err)
		}
		if cand == nil {
			c.errLogger.Printf("Failed candidate %s no longer in store, skipping", failure.CandidateID)
			continue
		}

		before := stats.Failed
		if err := c.processCandidate(ctx, *cand, stats); err != nil {
			return stats, err
		}
		if stats.Failed == before {
			if err := c.checkpoints.ClearFailure(ctx, cycle, failure.CandidateID); err != nil {
				return stats, fmt.Errorf("clearing failure for %s: %w", failure.CandidateID, err)
			}
		}
	}

	return stats, nil
}

// client returns the underlying fetch client shared by the crawl
// stages.
func (c *CycleCrawler) client() *FECClient {
	return c.candidates.client
}

// PrintSummary prints the crawl accounting.
func (c *CycleCrawler) PrintSummary(cycle int, stats *CrawlStats) {
	c.logger.Println("")
	c.logger.Printf("=== Cycle %d Crawl Summary ===", cycle)
	c.logger.Printf("Candidates processed:  %d", stats.Processed)
	c.logger.Printf("No principal committee: %d", stats.NoCommittee)
	c.logger.Printf("Period filings kept:   %d", stats.Filings)
	c.logger.Printf("Amendments superseded: %d", stats.Superseded)
	c.logger.Printf("Failures logged:       %d", stats.Failed)
	c.logger.Printf("Anomalies flagged:     %d", stats.Anomalies)
	c.logger.Printf("Persons linked:        %d", stats.Linked)
	c.logger.Printf("Merge suggestions:     %d", stats.Suggestions)
}
