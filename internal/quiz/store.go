package quiz

import (
	"context"
	"sort"
	"sync"
)

// ResultStore is the append-only history of accepted submissions.
type ResultStore interface {
	Insert(ctx context.Context, r Result) error
	// ListByLearner returns results newest first. An empty typ lists every type.
	ListByLearner(ctx context.Context, learnerID string, typ Type) ([]Result, error)
}

type memoryStore struct {
	mu      sync.RWMutex
	results map[string]Result
}

func NewInMemoryStore() ResultStore {
	return &memoryStore{results: map[string]Result{}}
}

func (m *memoryStore) Insert(_ context.Context, r Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.results[r.ID]; ok {
		return StorageFailure("insert result", errDuplicateID(r.ID))
	}
	m.results[r.ID] = cloneResult(r)
	return nil
}

func (m *memoryStore) ListByLearner(_ context.Context, learnerID string, typ Type) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Result{}
	for _, r := range m.results {
		if r.LearnerID != learnerID || (typ != "" && r.Type != typ) {
			continue
		}
		out = append(out, cloneResult(r))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

type errDuplicateID string

func (e errDuplicateID) Error() string { return "duplicate result id " + string(e) }

func cloneResult(r Result) Result {
	if r.Answers != nil {
		a := make(map[string]string, len(r.Answers))
		for k, v := range r.Answers {
			a[k] = v
		}
		r.Answers = a
	}
	if r.Scores != nil {
		s := make(map[string]float64, len(r.Scores))
		for k, v := range r.Scores {
			s[k] = v
		}
		r.Scores = s
	}
	if r.Percentage != nil {
		p := *r.Percentage
		r.Percentage = &p
	}
	return r
}
