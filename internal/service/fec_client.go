package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jkeller/fecdash/internal/model"
	"github.com/shopspring/decimal"
)

const (
	defaultTimeout = 60 * time.Second

	// Transient errors (timeouts, 5xx) use a short schedule.
	transientRetries = 4
	transientBackoff = 2 * time.Second

	// Rate-limit responses use a long schedule: the FEC quota is a
	// rolling hourly window, so quick retries only burn attempts.
	rateLimitRetries = 5
	rateLimitBackoff = 60 * time.Second
	maxBackoff       = 16 * time.Minute

	minRequestDelay = 250 * time.Millisecond
)

// APIError is the terminal failure returned once retries are exhausted
// or the API rejects a request outright. It always carries enough
// context to reproduce the call; callers decide whether to skip-and-log
// or abort, but never receive an empty result in place of an error.
type APIError struct {
	Endpoint   string
	Params     string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fec api %s?%s failed after %d attempt(s) (status %d): %v",
		e.Endpoint, e.Params, e.Attempts, e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// FECClient handles communication with the OpenFEC API. All calls are
// paced through a shared rate limiter and retried with backoff; every
// failure path surfaces as a typed error.
type FECClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *RateLimiter

	// Backoff schedules. Tests shrink these.
	transientBase time.Duration
	rateLimitBase time.Duration
	backoffCap    time.Duration
}

// NewFECClient creates a client for the given base URL and API key,
// pacing calls to hourlyBudget requests per rolling hour.
func NewFECClient(baseURL, apiKey string, hourlyBudget int) *FECClient {
	return &FECClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultTimeout},
		limiter: NewRateLimiter(hourlyBudget, time.Hour, minRequestDelay),

		transientBase: transientBackoff,
		rateLimitBase: rateLimitBackoff,
		backoffCap:    maxBackoff,
	}
}

// pagination is the envelope every OpenFEC list endpoint carries.
type pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
}

// getJSON performs a paced, retried GET and decodes the body into out.
func (c *FECClient) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)

	fullURL := c.baseURL + endpoint + "?" + params.Encode()
	// Redact the key from anything that ends up in errors or logs.
	params.Del("api_key")
	paramStr := params.Encode()

	var lastErr error
	var lastStatus int
	attempts := 0
	transientLeft := transientRetries
	rateLimitLeft := rateLimitRetries
	transientDelay := c.transientBase
	rateLimitDelay := c.rateLimitBase

	for transientLeft > 0 && rateLimitLeft > 0 {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		attempts++
		body, status, err := c.doOnce(ctx, fullURL)
		lastStatus = status

		switch {
		case err == nil && status == http.StatusOK:
			if err := json.Unmarshal(body, out); err != nil {
				return &APIError{Endpoint: endpoint, Params: paramStr, StatusCode: status, Attempts: attempts,
					Err: fmt.Errorf("decoding response: %w", err)}
			}
			return nil

		case status == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (HTTP 429)")
			rateLimitLeft--
			if rateLimitLeft == 0 {
				break
			}
			if err := sleepCtx(ctx, rateLimitDelay); err != nil {
				return err
			}
			rateLimitDelay = minDuration(rateLimitDelay*2, c.backoffCap)
			continue

		case err != nil || status >= http.StatusInternalServerError:
			if err != nil {
				lastErr = err
			} else {
				lastErr = fmt.Errorf("server error (HTTP %d)", status)
			}
			transientLeft--
			if transientLeft == 0 {
				break
			}
			if err := sleepCtx(ctx, transientDelay); err != nil {
				return err
			}
			transientDelay = minDuration(transientDelay*2, c.backoffCap)
			continue

		default:
			// 4xx other than 429: the request itself is wrong.
			// Retrying cannot help.
			return &APIError{Endpoint: endpoint, Params: paramStr, StatusCode: status, Attempts: attempts,
				Err: fmt.Errorf("request rejected (HTTP %d)", status)}
		}
		break
	}

	return &APIError{Endpoint: endpoint, Params: paramStr, StatusCode: lastStatus, Attempts: attempts, Err: lastErr}
}

// doOnce performs a single HTTP GET without retry logic.
func (c *FECClient) doOnce(ctx context.Context, fullURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	return body, resp.StatusCode, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// candidateJSON is a candidate row from /candidates/.
type candidateJSON struct {
	CandidateID     string  `json:"candidate_id"`
	Name            string  `json:"name"`
	Party           string  `json:"party"`
	State           string  `json:"state"`
	District        *string `json:"district"`
	Office          string  `json:"office"`
	CandidateStatus string  `json:"candidate_status"`
	HasRaisedFunds  bool    `json:"has_raised_funds"`
}

type candidatesResponse struct {
	Pagination pagination      `json:"pagination"`
	Results    []candidateJSON `json:"results"`
}

// FetchCandidatesPage retrieves one page of candidates active in the
// given cycle. The cycle parameter captures all activity in the 2-year
// window; the election_year parameter is narrower and under-returns,
// so it is never used here.
func (c *FECClient) FetchCandidatesPage(ctx context.Context, cycle, page, perPage int) ([]model.Candidate, int, error) {
	params := url.Values{}
	params.Set("cycle", fmt.Sprintf("%d", cycle))
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("per_page", fmt.Sprintf("%d", perPage))
	params.Set("sort", "candidate_id")

	var resp candidatesResponse
	if err := c.getJSON(ctx, "/candidates/", params, &resp); err != nil {
		return nil, 0, err
	}

	now := time.Now()
	candidates := make([]model.Candidate, len(resp.Results))
	for i, r := range resp.Results {
		cand := model.Candidate{
			CandidateID:    r.CandidateID,
			Name:           r.Name,
			Party:          r.Party,
			State:          r.State,
			Office:         r.Office,
			Cycle:          cycle,
			Active:         r.CandidateStatus == "C",
			HasRaisedFunds: r.HasRaisedFunds,
			FetchedAt:      now,
		}
		if r.District != nil && *r.District != "" {
			cand.District = sql.NullString{String: *r.District, Valid: true}
		}
		candidates[i] = cand
	}

	return candidates, resp.Pagination.Pages, nil
}

// committeeRefJSON is a committee association from /candidate/{id}/committees/.
type committeeRefJSON struct {
	CommitteeID string `json:"committee_id"`
	Name        string `json:"name"`
}

type committeesResponse struct {
	Pagination pagination         `json:"pagination"`
	Results    []committeeRefJSON `json:"results"`
}

// CommitteeRef identifies a committee associated with a candidate.
type CommitteeRef struct {
	CommitteeID string
	Name        string
}

// FetchCandidateCommittees retrieves the committees associated with a
// candidate for the given cycle. The association list says nothing
// about historical designation; callers must consult committee history.
func (c *FECClient) FetchCandidateCommittees(ctx context.Context, candidateID string, cycle int) ([]CommitteeRef, error) {
	params := url.Values{}
	params.Set("cycle", fmt.Sprintf("%d", cycle))

	var resp committeesResponse
	if err := c.getJSON(ctx, "/candidate/"+candidateID+"/committees/", params, &resp); err != nil {
		return nil, err
	}

	refs := make([]CommitteeRef, len(resp.Results))
	for i, r := range resp.Results {
		refs[i] = CommitteeRef{CommitteeID: r.CommitteeID, Name: r.Name}
	}

	return refs, nil
}

// historyJSON is one cycle's record from /committee/{id}/history/.
type historyJSON struct {
	CommitteeID  string   `json:"committee_id"`
	Name         string   `json:"name"`
	Cycle        int      `json:"cycle"`
	Designation  string   `json:"designation"`
	CandidateIDs []string `json:"candidate_ids"`
}

type historyResponse struct {
	Pagination pagination    `json:"pagination"`
	Results    []historyJSON `json:"results"`
}

// FetchCommitteeHistory retrieves a committee's full designation
// history, one record per cycle the committee existed in.
func (c *FECClient) FetchCommitteeHistory(ctx context.Context, committeeID string) ([]model.CommitteeDesignation, error) {
	var resp historyResponse
	if err := c.getJSON(ctx, "/committee/"+committeeID+"/history/", nil, &resp); err != nil {
		return nil, err
	}

	now := time.Now()
	var records []model.CommitteeDesignation
	for _, r := range resp.Results {
		rec := model.CommitteeDesignation{
			CommitteeID:   r.CommitteeID,
			CommitteeName: r.Name,
			Cycle:         r.Cycle,
			Designation:   r.Designation,
			FetchedAt:     now,
		}
		if len(r.CandidateIDs) > 0 {
			rec.CandidateID = r.CandidateIDs[0]
		}
		records = append(records, rec)
	}

	return records, nil
}

// reportJSON is one period report from /committee/{id}/reports/.
type reportJSON struct {
	CommitteeID        string          `json:"committee_id"`
	ReportType         string          `json:"report_type"`
	CoverageStartDate  string          `json:"coverage_start_date"`
	CoverageEndDate    string          `json:"coverage_end_date"`
	TotalReceipts      decimal.Decimal `json:"total_receipts_period"`
	TotalDisbursements decimal.Decimal `json:"total_disbursements_period"`
	CashBeginning      decimal.Decimal `json:"cash_on_hand_beginning_period"`
	CashEnding         decimal.Decimal `json:"cash_on_hand_end_period"`
	FileNumber         *int64          `json:"file_number"`
	IsAmended          bool            `json:"is_amended"`
	MostRecent         bool            `json:"most_recent"`
	ReceiptDate        string          `json:"receipt_date"`
}

type reportsResponse struct {
	Pagination pagination   `json:"pagination"`
	Results    []reportJSON `json:"results"`
}

// FetchCommitteeReportsPage retrieves one page of a committee's period
// reports for the given cycle, all report types included.
func (c *FECClient) FetchCommitteeReportsPage(ctx context.Context, committeeID string, cycle, page, perPage int) ([]model.RawFiling, int, error) {
	params := url.Values{}
	params.Set("cycle", fmt.Sprintf("%d", cycle))
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("per_page", fmt.Sprintf("%d", perPage))

	var resp reportsResponse
	if err := c.getJSON(ctx, "/committee/"+committeeID+"/reports/", params, &resp); err != nil {
		return nil, 0, err
	}

	filings := make([]model.RawFiling, 0, len(resp.Results))
	for _, r := range resp.Results {
		coverageStart, err := parseDay(r.CoverageStartDate)
		if err != nil {
			return nil, 0, fmt.Errorf("report for %s has bad coverage_start_date %q: %w", committeeID, r.CoverageStartDate, err)
		}
		coverageEnd, err := parseDay(r.CoverageEndDate)
		if err != nil {
			return nil, 0, fmt.Errorf("report for %s has bad coverage_end_date %q: %w", committeeID, r.CoverageEndDate, err)
		}

		filing := model.RawFiling{
			CommitteeID:   r.CommitteeID,
			ReportType:    r.ReportType,
			CoverageStart: coverageStart,
			CoverageEnd:   coverageEnd,
			Receipts:      r.TotalReceipts,
			Disbursements: r.TotalDisbursements,
			CashBeginning: r.CashBeginning,
			CashEnding:    r.CashEnding,
			Amendment:     r.IsAmended,
			MostRecent:    r.MostRecent,
		}
		if r.FileNumber != nil {
			filing.FileNumber = sql.NullInt64{Int64: *r.FileNumber, Valid: true}
		}
		if r.ReceiptDate != "" {
			t, err := parseTimestamp(r.ReceiptDate)
			if err != nil {
				return nil, 0, fmt.Errorf("report for %s has bad receipt_date %q: %w", committeeID, r.ReceiptDate, err)
			}
			filing.ReceiptDate = t
		}
		filings = append(filings, filing)
	}

	return filings, resp.Pagination.Pages, nil
}

// totalsJSON is a cycle-cumulative row from /candidate/{id}/totals/.
type totalsJSON struct {
	CandidateID     string          `json:"candidate_id"`
	Cycle           int             `json:"cycle"`
	Receipts        decimal.Decimal `json:"receipts"`
	Disbursements   decimal.Decimal `json:"disbursements"`
	CashOnHandEnd   decimal.Decimal `json:"last_cash_on_hand_end_period"`
	CoverageEndDate string          `json:"coverage_end_date"`
}

type totalsResponse struct {
	Pagination pagination   `json:"pagination"`
	Results    []totalsJSON `json:"results"`
}

// FetchCandidateTotals retrieves the cycle-cumulative totals for a
// candidate. Returns nil (not an error) when the candidate has no
// totals for the cycle, which is valid domain state for candidates who
// have not yet filed.
func (c *FECClient) FetchCandidateTotals(ctx context.Context, candidateID string, cycle int) (*model.CycleSummary, error) {
	params := url.Values{}
	params.Set("cycle", fmt.Sprintf("%d", cycle))

	var resp totalsResponse
	if err := c.getJSON(ctx, "/candidate/"+candidateID+"/totals/", params, &resp); err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 {
		return nil, nil
	}

	r := resp.Results[0]
	summary := &model.CycleSummary{
		CandidateID:        candidateID,
		Cycle:              cycle,
		TotalReceipts:      r.Receipts,
		TotalDisbursements: r.Disbursements,
		CashOnHand:         r.CashOnHandEnd,
		FetchedAt:          time.Now(),
	}
	if r.CoverageEndDate != "" {
		t, err := parseTimestamp(r.CoverageEndDate)
		if err != nil {
			return nil, fmt.Errorf("totals for %s have bad coverage_end_date %q: %w", candidateID, r.CoverageEndDate, err)
		}
		summary.LastCoverageEnd = sql.NullTime{Time: t, Valid: true}
	}

	return summary, nil
}

// parseDay parses an ISO calendar date, tolerating the timestamp form
// the API sometimes returns for date fields.
func parseDay(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
