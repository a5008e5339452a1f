package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jkeller/fecdash/internal/model"
)

// PersonStore is the storage surface the identity resolver needs.
type PersonStore interface {
	UpsertPerson(ctx context.Context, p *model.PoliticalPerson) error
	LinkCandidate(ctx context.Context, candidateID string, cycle int, personSlug string) error
}

// IdentityResolver merges candidate registrations into political
// persons. Merges come only from the curated seed list; the heuristic
// layer produces suggestions for human review and never merges on its
// own.
type IdentityResolver struct {
	store PersonStore
}

// NewIdentityResolver creates a resolver writing through the given
// store.
func NewIdentityResolver(store PersonStore) *IdentityResolver {
	return &IdentityResolver{store: store}
}

// LoadSeeds reads a JSON seed file of curated person merges.
func LoadSeeds(path string) ([]model.PersonSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var seeds []model.PersonSeed
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", path, err)
	}

	for i, seed := range seeds {
		if len(seed.CandidateIDs) == 0 {
			return nil, fmt.Errorf("seed %d (%s) lists no candidate IDs", i, seed.Slug)
		}
		if seeds[i].Slug == "" {
			seeds[i].Slug = Slugify(seed.DisplayName)
		}
	}

	return seeds, nil
}

// Apply upserts one person per seed and links every constituent
// candidate registration for the given cycle to it. A person is
// created only together with its links, so no person ever exists with
// zero candidates.
func (r *IdentityResolver) Apply(ctx context.Context, seeds []model.PersonSeed, cycle int) (int, error) {
	linked := 0

	for _, seed := range seeds {
		person := &model.PoliticalPerson{
			Slug:          seed.Slug,
			DisplayName:   seed.DisplayName,
			Party:         seed.Party,
			State:         seed.State,
			CurrentOffice: seed.CurrentOffice,
			Incumbent:     seed.Incumbent,
			UpdatedAt:     time.Now(),
		}

		if err := r.store.UpsertPerson(ctx, person); err != nil {
			return linked, fmt.Errorf("upserting person %s: %w", seed.Slug, err)
		}

		for _, candidateID := range seed.CandidateIDs {
			if err := r.store.LinkCandidate(ctx, candidateID, cycle, seed.Slug); err != nil {
				return linked, fmt.Errorf("linking %s to %s: %w", candidateID, seed.Slug, err)
			}
			linked++
		}
	}

	return linked, nil
}

// SuggestMerges scans a cycle's candidates for registrations that look
// like one person under multiple candidate IDs: same normalized name
// and state, different offices (the House-to-Senate pattern). Already
// linked candidates are skipped. The result is advisory output for the
// crawl summary, not an instruction the pipeline acts on.
func SuggestMerges(candidates []model.Candidate) []model.MergeSuggestion {
	type nameKey struct {
		name  string
		state string
	}

	groups := make(map[nameKey][]model.Candidate)
	for _, cand := range candidates {
		if cand.PersonSlug.Valid {
			continue
		}
		key := nameKey{name: normalizeName(cand.Name), state: cand.State}
		groups[key] = append(groups[key], cand)
	}

	var suggestions []model.MergeSuggestion
	for key, group := range groups {
		if len(group) < 2 {
			continue
		}

		offices := make(map[string]bool)
		var ids []string
		for _, cand := range group {
			offices[cand.Office] = true
			ids = append(ids, cand.CandidateID)
		}
		if len(offices) < 2 {
			// Same office twice is usually a data quirk, not a person
			// changing office; leave it to manual curation.
			continue
		}

		sort.Strings(ids)
		var officeList []string
		for office := range offices {
			officeList = append(officeList, office)
		}
		sort.Strings(officeList)

		suggestions = append(suggestions, model.MergeSuggestion{
			CandidateIDs: ids,
			Name:         group[0].Name,
			State:        key.state,
			Offices:      officeList,
			Reason: fmt.Sprintf("same name and state across offices %s",
				strings.Join(officeList, "/")),
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		return suggestions[i].CandidateIDs[0] < suggestions[j].CandidateIDs[0]
	})

	return suggestions
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a stable person identifier from a display name.
func Slugify(name string) string {
	slug := nonAlnum.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

// normalizeName reduces an FEC "LAST, FIRST MIDDLE" name to a
// comparison key of last and first name only, since middle names and
// suffixes drift between registrations.
func normalizeName(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	parts := strings.SplitN(name, ",", 2)
	if len(parts) != 2 {
		return name
	}

	last := strings.TrimSpace(parts[0])
	firstFields := strings.Fields(strings.TrimSpace(parts[1]))
	if len(firstFields) == 0 {
		return last
	}
	return last + ", " + firstFields[0]
}
