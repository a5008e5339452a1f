package service

import (
	"context"
	"testing"

	"github.com/jkeller/fecdash/internal/model"
)

func candidateFixture(id string) candidateJSON {
	return candidateJSON{CandidateID: id, Name: "DOE, JANE", Office: "H", State: "VA"}
}

func TestCandidateCrawlerPaginates(t *testing.T) {
	fec := newFakeFEC(t)
	fec.candidatePages = [][]candidateJSON{
		{candidateFixture("H0AAA00001"), candidateFixture("H0AAA00002")},
		{candidateFixture("H0AAA00003"), candidateFixture("H0AAA00004")},
		{candidateFixture("H0AAA00005")},
	}

	crawler := NewCandidateCrawler(fec.client(), 2)

	var seen []string
	err := crawler.Crawl(context.Background(), 2026, 0, func(index int, cand model.Candidate) error {
		if index != len(seen) {
			t.Fatalf("expected index %d, got %d", len(seen), index)
		}
		seen = append(seen, cand.CandidateID)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"H0AAA00001", "H0AAA00002", "H0AAA00003", "H0AAA00004", "H0AAA00005"}
	if len(seen) != len(want) {
		t.Fatalf("expected %d candidates, got %d", len(want), len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("candidate %d: expected %s, got %s", i, want[i], seen[i])
		}
	}
}

func TestCandidateCrawlerResumesFromOffset(t *testing.T) {
	fec := newFakeFEC(t)
	fec.candidatePages = [][]candidateJSON{
		{candidateFixture("H0AAA00001"), candidateFixture("H0AAA00002")},
		{candidateFixture("H0AAA00003"), candidateFixture("H0AAA00004")},
	}

	crawler := NewCandidateCrawler(fec.client(), 2)

	var seen []string
	err := crawler.Crawl(context.Background(), 2026, 3, func(index int, cand model.Candidate) error {
		seen = append(seen, cand.CandidateID)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seen) != 1 || seen[0] != "H0AAA00004" {
		t.Fatalf("expected resume at index 3 to yield only H0AAA00004, got %v", seen)
	}
}

func TestCandidateCrawlerRejectsInvalidCycle(t *testing.T) {
	fec := newFakeFEC(t)
	crawler := NewCandidateCrawler(fec.client(), 100)

	err := crawler.Crawl(context.Background(), 0, 0, func(int, model.Candidate) error { return nil })
	if err == nil {
		t.Fatal("expected error for cycle 0")
	}
}
