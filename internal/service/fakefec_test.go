package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

// fakeFEC is an in-process OpenFEC API serving canned fixtures.
type fakeFEC struct {
	srv *httptest.Server

	candidatePages [][]candidateJSON            // page 1 at index 0
	committees     map[string][]committeeRefJSON // by candidate ID
	histories      map[string][]historyJSON      // by committee ID
	reports        map[string][]reportJSON       // by committee ID
	totals         map[string]totalsJSON         // by candidate ID

	// failTotals makes /totals/ return 500 for a candidate, simulating
	// a persistent upstream failure.
	failTotals map[string]bool

	historyCalls map[string]int

	// onRequest, when set, observes every request path before it is
	// handled. Tests use it to interrupt a crawl at a chosen point.
	onRequest func(path string)
}

func newFakeFEC(t *testing.T) *fakeFEC {
	f := &fakeFEC{
		committees:   make(map[string][]committeeRefJSON),
		histories:    make(map[string][]historyJSON),
		reports:      make(map[string][]reportJSON),
		totals:       make(map[string]totalsJSON),
		failTotals:   make(map[string]bool),
		historyCalls: make(map[string]int),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

// client returns a fast-retry client pointed at the fake server.
func (f *fakeFEC) client() *FECClient {
	c := NewFECClient(f.srv.URL, "test-key", 0)
	c.limiter = NewRateLimiter(0, time.Hour, 0)
	c.transientBase = time.Millisecond
	c.rateLimitBase = time.Millisecond
	c.backoffCap = 10 * time.Millisecond
	return c
}

func (f *fakeFEC) handle(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.URL.Path, "/")
	parts := strings.Split(path, "/")

	if f.onRequest != nil {
		f.onRequest(path)
	}

	switch {
	case path == "candidates":
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		var results []candidateJSON
		if page <= len(f.candidatePages) {
			results = f.candidatePages[page-1]
		}
		writeEnvelope(w, page, len(f.candidatePages), results)

	case len(parts) == 3 && parts[0] == "candidate" && parts[2] == "committees":
		writeEnvelope(w, 1, 1, f.committees[parts[1]])

	case len(parts) == 3 && parts[0] == "candidate" && parts[2] == "totals":
		candidateID := parts[1]
		if f.failTotals[candidateID] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var results []totalsJSON
		if tot, ok := f.totals[candidateID]; ok {
			results = []totalsJSON{tot}
		}
		writeEnvelope(w, 1, 1, results)

	case len(parts) == 3 && parts[0] == "committee" && parts[2] == "history":
		f.historyCalls[parts[1]]++
		writeEnvelope(w, 1, 1, f.histories[parts[1]])

	case len(parts) == 3 && parts[0] == "committee" && parts[2] == "reports":
		writeEnvelope(w, 1, 1, f.reports[parts[1]])

	default:
		http.NotFound(w, r)
	}
}

func writeEnvelope(w http.ResponseWriter, page, pages int, results any) {
	if results == nil {
		results = []struct{}{}
	}
	resp := map[string]any{
		"pagination": map[string]int{"page": page, "pages": pages, "count": 0, "per_page": 100},
		"results":    results,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
