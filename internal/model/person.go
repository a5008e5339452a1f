package model

import "time"

// PoliticalPerson is one real human, linked to every candidate
// registration they have run under. A House member who later runs for
// Senate holds two candidate IDs but remains one person.
type PoliticalPerson struct {
	ID            int
	Slug          string
	DisplayName   string
	Party         string
	State         string
	CurrentOffice string
	Incumbent     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PersonSeed is a curated merge instruction: every listed candidate ID
// belongs to the named person.
type PersonSeed struct {
	Slug          string   `json:"slug"`
	DisplayName   string   `json:"display_name"`
	Party         string   `json:"party"`
	State         string   `json:"state"`
	CurrentOffice string   `json:"current_office"`
	Incumbent     bool     `json:"incumbent"`
	CandidateIDs  []string `json:"candidate_ids"`
}

// MergeSuggestion is a heuristic match between candidate registrations
// that likely belong to one person. Suggestions require human
// confirmation before becoming seeds; they are never applied
// automatically.
type MergeSuggestion struct {
	CandidateIDs []string
	Name         string
	State        string
	Offices      []string
	Reason       string
}
