package progress

import (
	"context"
	"sync"
)

// Locker serialises work on a single learner. The returned unlock must be
// called exactly once.
type Locker interface {
	Lock(ctx context.Context, learnerID string) (unlock func(), err error)
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// MemLocker is an in-process keyed mutex. Entries are dropped once no
// goroutine holds or waits for them.
type MemLocker struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

func NewMemLocker() *MemLocker {
	return &MemLocker{entries: map[string]*lockEntry{}}
}

func (l *MemLocker) Lock(ctx context.Context, learnerID string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[learnerID]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		l.entries[learnerID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(learnerID, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(learnerID, e)
		})
	}, nil
}

func (l *MemLocker) release(learnerID string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, learnerID)
	}
}

// held reports how many learners currently have lock entries.
func (l *MemLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
