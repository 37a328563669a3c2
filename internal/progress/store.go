package progress

import (
	"context"
	"sync"
	"time"

	"github.com/mind-engage/mindengage-progress/internal/quiz"
)

// Store persists one Progress record per learner.
type Store interface {
	// Get returns a NotFound error when the learner has no progress record.
	Get(ctx context.Context, learnerID string) (Progress, error)
	// Update loads the learner's progress, runs fn on it and writes the result
	// back as one atomic read-modify-write. If fn returns an error nothing is
	// written and that error is returned unchanged.
	Update(ctx context.Context, learnerID string, fn func(*Progress) error) (Progress, error)
}

type MemoryStore struct {
	mu   sync.Mutex
	byID map[string]Progress
	now  func() time.Time
}

// NewInMemoryStore returns a Store holding empty progress for learnerIDs.
func NewInMemoryStore(learnerIDs ...string) *MemoryStore {
	m := &MemoryStore{byID: map[string]Progress{}, now: time.Now}
	for _, id := range learnerIDs {
		m.byID[id] = Progress{LearnerID: id}
	}
	return m
}

// Create adds an empty progress record if the learner has none.
func (m *MemoryStore) Create(_ context.Context, learnerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[learnerID]; !ok {
		m.byID[learnerID] = Progress{LearnerID: learnerID}
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, learnerID string) (Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[learnerID]
	if !ok {
		return Progress{}, quiz.NotFound("learner not found")
	}
	return p.clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, learnerID string, fn func(*Progress) error) (Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[learnerID]
	if !ok {
		return Progress{}, quiz.NotFound("learner not found")
	}
	next := cur.clone()
	if err := fn(&next); err != nil {
		return Progress{}, err
	}
	next.Version = cur.Version + 1
	next.UpdatedAt = m.now().UTC()
	m.byID[learnerID] = next
	return next.clone(), nil
}
