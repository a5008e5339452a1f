package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient points a client at a test server with backoff schedules
// shrunk so retry paths run in milliseconds.
func newTestClient(srv *httptest.Server) *FECClient {
	c := NewFECClient(srv.URL, "test-key", 0)
	c.limiter = NewRateLimiter(0, time.Hour, 0)
	c.transientBase = time.Millisecond
	c.rateLimitBase = time.Millisecond
	c.backoffCap = 10 * time.Millisecond
	return c
}

func TestClientSendsAPIKey(t *testing.T) {
	var gotKey atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey.Store(r.URL.Query().Get("api_key"))
		fmt.Fprint(w, `{"pagination":{"page":1,"pages":1,"count":0,"per_page":100},"results":[]}`)
	}))
	defer srv.Close()

	client := newTestClient(srv)
	if _, _, err := client.FetchCandidatesPage(context.Background(), 2026, 1, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey.Load() != "test-key" {
		t.Fatalf("expected api_key to be sent, got %v", gotKey.Load())
	}
}

func TestClientRetriesRateLimitThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"pagination":{"page":1,"pages":1,"count":1,"per_page":100},"results":[{"candidate_id":"H4VA07234","name":"TEST, CANDIDATE","office":"H"}]}`)
	}))
	defer srv.Close()

	client := newTestClient(srv)
	candidates, pages, err := client.FetchCandidatesPage(context.Background(), 2026, 1, 100)
	if err != nil {
		t.Fatalf("expected success after rate-limit retries, got %v", err)
	}
	if pages != 1 || len(candidates) != 1 || candidates[0].CandidateID != "H4VA07234" {
		t.Fatalf("unexpected result: pages=%d candidates=%+v", pages, candidates)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestClientExhaustedRetriesCarryContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(srv)
	_, _, err := client.FetchCandidatesPage(context.Background(), 2026, 3, 100)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Endpoint != "/candidates/" {
		t.Fatalf("expected endpoint in error, got %q", apiErr.Endpoint)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503 in error, got %d", apiErr.StatusCode)
	}
	if apiErr.Attempts != transientRetries {
		t.Fatalf("expected %d attempts, got %d", transientRetries, apiErr.Attempts)
	}
	if !strings.Contains(apiErr.Params, "page=3") {
		t.Fatalf("expected request params in error, got %q", apiErr.Params)
	}
	if strings.Contains(apiErr.Params, "api_key") {
		t.Fatalf("api key must not leak into errors: %q", apiErr.Params)
	}
}

func TestClientDoesNotRetryBadRequests(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := newTestClient(srv)
	_, _, err := client.FetchCandidatesPage(context.Background(), 2026, 1, 100)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("4xx responses must not be retried, got %d calls", calls)
	}
}

func TestClientEmptyTotalsIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pagination":{"page":1,"pages":1,"count":0,"per_page":100},"results":[]}`)
	}))
	defer srv.Close()

	client := newTestClient(srv)
	summary, err := client.FetchCandidateTotals(context.Background(), "H0NEW00001", 2026)
	if err != nil {
		t.Fatalf("empty totals must be valid domain state, got %v", err)
	}
	if summary != nil {
		t.Fatalf("expected nil summary, got %+v", summary)
	}
}

func TestRateLimiterEnforcesMinDelay(t *testing.T) {
	limiter := NewRateLimiter(100, time.Hour, 20*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("expected at least 40ms of pacing, got %v", elapsed)
	}
}

func TestRateLimiterWindowBudget(t *testing.T) {
	limiter := NewRateLimiter(2, 50*time.Millisecond, 0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// Third call must wait for the first to age out of the window.
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("expected third call to wait for the window, got %v", elapsed)
	}
}

func TestRateLimiterRespectsCancellation(t *testing.T) {
	limiter := NewRateLimiter(1, time.Hour, 0)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
