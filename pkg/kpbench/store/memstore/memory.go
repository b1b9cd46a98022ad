package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/kpbench/pkg/kpbench/store"
)

type docKey struct {
	run string
	doc string
}

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu         sync.RWMutex
	runs       map[string]store.Run
	keyphrases map[docKey][]store.Keyphrase
	measures   map[docKey][]store.Measure
	failures   map[string][]store.Failure
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		runs:       make(map[string]store.Run),
		keyphrases: make(map[docKey][]store.Keyphrase),
		measures:   make(map[docKey][]store.Measure),
		failures:   make(map[string][]store.Failure),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertRun inserts or updates a run, keyed by ID.
func (s *Store) UpsertRun(ctx context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = r
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	return r, ok, nil
}

// ListRuns returns all runs ordered by start time.
func (s *Store) ListRuns(ctx context.Context) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// PutKeyphrases replaces the keyphrases of a document.
func (s *Store) PutKeyphrases(ctx context.Context, runID, docID string, kps []store.Keyphrase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyphrases[docKey{runID, docID}] = append([]store.Keyphrase(nil), kps...)
	return nil
}

// GetKeyphrases returns the keyphrases of a document in rank order.
func (s *Store) GetKeyphrases(ctx context.Context, runID, docID string) ([]store.Keyphrase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.Keyphrase(nil), s.keyphrases[docKey{runID, docID}]...), nil
}

// PutMeasures replaces the measures of a document.
func (s *Store) PutMeasures(ctx context.Context, runID, docID string, ms []store.Measure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.measures[docKey{runID, docID}] = append([]store.Measure(nil), ms...)
	return nil
}

// GetMeasures returns the measures of a document.
func (s *Store) GetMeasures(ctx context.Context, runID, docID string) ([]store.Measure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.Measure(nil), s.measures[docKey{runID, docID}]...), nil
}

// AddFailure records a failure.
func (s *Store) AddFailure(ctx context.Context, f store.Failure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[f.RunID] = append(s.failures[f.RunID], f)
	return nil
}

// Failures returns the failures of a run ordered by document.
func (s *Store) Failures(ctx context.Context, runID string) ([]store.Failure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]store.Failure(nil), s.failures[runID]...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocID != out[j].DocID {
			return out[i].DocID < out[j].DocID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
