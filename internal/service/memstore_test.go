package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/jkeller/fecdash/internal/model"
)

// memStore is an in-memory RecordStore, CheckpointStore, and
// PersonStore for exercising the orchestrator without PostgreSQL.
type memStore struct {
	mu           sync.Mutex
	candidates   map[string]model.Candidate
	summaries    map[string]model.CycleSummary
	designations map[string]model.CommitteeDesignation
	filings      map[string][]model.FinancialPeriodRecord
	anomalies    map[string][]model.Anomaly
	checkpoints  map[int]model.CrawlCheckpoint
	failures     map[string]model.CrawlFailure
	persons      map[string]model.PoliticalPerson
}

func newMemStore() *memStore {
	return &memStore{
		candidates:   make(map[string]model.Candidate),
		summaries:    make(map[string]model.CycleSummary),
		designations: make(map[string]model.CommitteeDesignation),
		filings:      make(map[string][]model.FinancialPeriodRecord),
		anomalies:    make(map[string][]model.Anomaly),
		checkpoints:  make(map[int]model.CrawlCheckpoint),
		failures:     make(map[string]model.CrawlFailure),
		persons:      make(map[string]model.PoliticalPerson),
	}
}

func key(candidateID string, cycle int) string {
	return fmt.Sprintf("%s|%d", candidateID, cycle)
}

func (m *memStore) UpsertCandidate(ctx context.Context, c *model.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(c.CandidateID, c.Cycle)
	if existing, ok := m.candidates[k]; ok {
		c.PersonSlug = existing.PersonSlug
	}
	m.candidates[k] = *c
	return nil
}

func (m *memStore) GetCandidate(ctx context.Context, candidateID string, cycle int) (*model.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.candidates[key(candidateID, cycle)]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *memStore) ListCandidates(ctx context.Context, cycle int) ([]model.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Candidate
	for _, c := range m.candidates {
		if c.Cycle == cycle {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) UpsertCycleSummary(ctx context.Context, s *model.CycleSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[key(s.CandidateID, s.Cycle)] = *s
	return nil
}

func (m *memStore) UpsertDesignations(ctx context.Context, designations []model.CommitteeDesignation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range designations {
		m.designations[fmt.Sprintf("%s|%d|%s", d.CommitteeID, d.Cycle, d.CandidateID)] = d
	}
	return nil
}

func (m *memStore) ReplacePeriodFilings(ctx context.Context, candidateID string, cycle int, records []model.FinancialPeriodRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filings[key(candidateID, cycle)] = append([]model.FinancialPeriodRecord(nil), records...)
	return nil
}

func (m *memStore) SaveAnomalies(ctx context.Context, candidateID string, cycle int, anomalies []model.Anomaly) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anomalies[key(candidateID, cycle)] = append([]model.Anomaly(nil), anomalies...)
	return nil
}

func (m *memStore) Get(ctx context.Context, cycle int) (*model.CrawlCheckpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cp, ok := m.checkpoints[cycle]; ok {
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) Save(ctx context.Context, cp *model.CrawlCheckpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := *cp
	saved.Completed = false
	m.checkpoints[cp.Cycle] = saved
	return nil
}

func (m *memStore) MarkCompleted(ctx context.Context, cycle int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := m.checkpoints[cycle]
	cp.Cycle = cycle
	cp.Completed = true
	m.checkpoints[cycle] = cp
	return nil
}

func (m *memStore) RecordFailure(ctx context.Context, f *model.CrawlFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[key(f.CandidateID, f.Cycle)] = *f
	return nil
}

func (m *memStore) ListFailures(ctx context.Context, cycle int) ([]model.CrawlFailure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CrawlFailure
	for _, f := range m.failures {
		if f.Cycle == cycle {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memStore) ClearFailure(ctx context.Context, cycle int, candidateID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, key(candidateID, cycle))
	return nil
}

func (m *memStore) UpsertPerson(ctx context.Context, p *model.PoliticalPerson) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persons[p.Slug] = *p
	return nil
}

func (m *memStore) LinkCandidate(ctx context.Context, candidateID string, cycle int, personSlug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(candidateID, cycle)
	c, ok := m.candidates[k]
	if !ok {
		return fmt.Errorf("candidate %s (cycle %d) not found", candidateID, cycle)
	}
	c.PersonSlug.String = personSlug
	c.PersonSlug.Valid = true
	m.candidates[k] = c
	return nil
}
