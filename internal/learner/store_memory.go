package learner

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-progress/internal/quiz"
)

// ProgressCreator is the part of the in-memory progress store used to give
// new learners an empty record.
type ProgressCreator interface {
	Create(ctx context.Context, learnerID string) error
}

type memLearner struct {
	Learner
	hash []byte
}

type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]memLearner
	progress ProgressCreator
}

// NewInMemoryStore returns a Store; progress may be nil.
func NewInMemoryStore(progress ProgressCreator) *MemoryStore {
	return &MemoryStore{byID: map[string]memLearner{}, progress: progress}
}

func (m *MemoryStore) Get(_ context.Context, id string) (Learner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.byID[id]
	if !ok {
		return Learner{}, quiz.NotFound("learner not found")
	}
	return l.Learner, nil
}

func (m *MemoryStore) Authenticate(_ context.Context, username, password string) (Learner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.byID {
		if l.Username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword(l.hash, []byte(password)) != nil {
			return Learner{}, ErrInvalidCredentials
		}
		return l.Learner, nil
	}
	return Learner{}, ErrInvalidCredentials
}

// BulkUpsert validates every row before touching the map, so a bad row
// leaves the store unchanged.
func (m *MemoryStore) BulkUpsert(ctx context.Context, rows []Row) (UpsertStats, error) {
	prep, err := prepare(rows)
	if err != nil {
		return UpsertStats{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[string]memLearner, len(m.byID)+len(rows))
	for k, v := range m.byID {
		next[k] = v
	}
	var st UpsertStats
	now := time.Now().UTC()
	for _, r := range prep {
		cur, exists := next[r.ID]
		if !exists && r.hash == nil {
			return UpsertStats{}, passwordRequired(r.Username)
		}
		if !exists {
			cur = memLearner{Learner: Learner{ID: r.ID, CreatedAt: now}}
			st.Inserted++
		} else {
			st.Updated++
		}
		cur.Username, cur.Name, cur.Role = r.Username, r.Name, r.role
		if r.hash != nil {
			cur.hash = r.hash
		}
		next[r.ID] = cur
	}
	if m.progress != nil {
		for _, r := range rows {
			if err := m.progress.Create(ctx, r.ID); err != nil {
				return UpsertStats{}, asStorageFailure("bulk upsert learners", err)
			}
		}
	}
	m.byID = next
	return st, nil
}
