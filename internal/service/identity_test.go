package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jkeller/fecdash/internal/model"
)

func TestApplySeedsLinksCandidates(t *testing.T) {
	store := newMemStore()
	for _, c := range []model.Candidate{
		{CandidateID: "H4VA07234", Name: "SPANBERGER, ABIGAIL", State: "VA", Office: "H", Cycle: 2024},
		{CandidateID: "S6VA00093", Name: "SPANBERGER, ABIGAIL", State: "VA", Office: "S", Cycle: 2024},
	} {
		cand := c
		if err := store.UpsertCandidate(context.Background(), &cand); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	seeds := []model.PersonSeed{{
		Slug:         "abigail-spanberger",
		DisplayName:  "Abigail Spanberger",
		State:        "VA",
		CandidateIDs: []string{"H4VA07234", "S6VA00093"},
	}}

	resolver := NewIdentityResolver(store)
	linked, err := resolver.Apply(context.Background(), seeds, 2024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if linked != 2 {
		t.Fatalf("expected 2 links, got %d", linked)
	}

	if _, ok := store.persons["abigail-spanberger"]; !ok {
		t.Fatal("expected person created")
	}
	for _, id := range []string{"H4VA07234", "S6VA00093"} {
		cand := store.candidates[key(id, 2024)]
		if !cand.PersonSlug.Valid || cand.PersonSlug.String != "abigail-spanberger" {
			t.Fatalf("expected %s linked, got %+v", id, cand.PersonSlug)
		}
	}
}

func TestApplySeedsFailsForUnknownCandidate(t *testing.T) {
	store := newMemStore()
	resolver := NewIdentityResolver(store)

	seeds := []model.PersonSeed{{
		Slug:         "ghost",
		DisplayName:  "Ghost Candidate",
		CandidateIDs: []string{"H0NOPE0001"},
	}}

	if _, err := resolver.Apply(context.Background(), seeds, 2024); err == nil {
		t.Fatal("expected error linking a candidate that was never crawled")
	}
}

func TestLoadSeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.json")
	content := `[{"display_name":"Jane Doe","state":"VA","candidate_ids":["H0VA00001","S0VA00001"]}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seeds, err := LoadSeeds(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seeds) != 1 {
		t.Fatalf("expected 1 seed, got %d", len(seeds))
	}
	if seeds[0].Slug != "jane-doe" {
		t.Fatalf("expected slug derived from display name, got %q", seeds[0].Slug)
	}
}

func TestLoadSeedsRejectsEmptyCandidateList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.json")
	content := `[{"slug":"nobody","display_name":"No Body","candidate_ids":[]}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := LoadSeeds(path); err == nil {
		t.Fatal("expected error for seed without candidates")
	}
}

func TestSuggestMergesFindsOfficeTransition(t *testing.T) {
	candidates := []model.Candidate{
		{CandidateID: "H4VA07234", Name: "SPANBERGER, ABIGAIL DAVIS", State: "VA", Office: "H", Cycle: 2024},
		{CandidateID: "S6VA00093", Name: "SPANBERGER, ABIGAIL", State: "VA", Office: "S", Cycle: 2024},
		{CandidateID: "H2TX00001", Name: "GARCIA, MARIA", State: "TX", Office: "H", Cycle: 2024},
	}

	suggestions := SuggestMerges(candidates)
	if len(suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(suggestions))
	}
	s := suggestions[0]
	if len(s.CandidateIDs) != 2 || s.CandidateIDs[0] != "H4VA07234" || s.CandidateIDs[1] != "S6VA00093" {
		t.Fatalf("unexpected candidate IDs: %v", s.CandidateIDs)
	}
}

func TestSuggestMergesIgnoresSameOfficeAndLinked(t *testing.T) {
	// Same office twice: not an office-transition pattern.
	sameOffice := []model.Candidate{
		{CandidateID: "H0VA00001", Name: "DOE, JANE", State: "VA", Office: "H", Cycle: 2024},
		{CandidateID: "H0VA00002", Name: "DOE, JANE", State: "VA", Office: "H", Cycle: 2024},
	}
	if got := SuggestMerges(sameOffice); len(got) != 0 {
		t.Fatalf("expected no suggestions for same-office pair, got %v", got)
	}

	// Already-linked candidates are settled; no suggestion.
	linked := []model.Candidate{
		{CandidateID: "H4VA07234", Name: "SPANBERGER, ABIGAIL", State: "VA", Office: "H", Cycle: 2024},
		{CandidateID: "S6VA00093", Name: "SPANBERGER, ABIGAIL", State: "VA", Office: "S", Cycle: 2024},
	}
	linked[0].PersonSlug.String = "abigail-spanberger"
	linked[0].PersonSlug.Valid = true
	linked[1].PersonSlug.String = "abigail-spanberger"
	linked[1].PersonSlug.Valid = true
	if got := SuggestMerges(linked); len(got) != 0 {
		t.Fatalf("expected no suggestions for linked candidates, got %v", got)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Abigail Spanberger":    "abigail-spanberger",
		"O'Brien, Patrick Jr.":  "o-brien-patrick-jr",
		"  Mixed   CASE Name  ": "mixed-case-name",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
