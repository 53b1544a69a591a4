package store

import (
	"sync"

	"github.com/google/uuid"
)

// rowLocks hands out one mutex per article id. Entries are reference counted
// so the map does not grow with every id ever touched.
type rowLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*rowLock
}

type rowLock struct {
	sync.Mutex
	refs int
}

func newRowLocks() *rowLocks {
	return &rowLocks{locks: make(map[uuid.UUID]*rowLock)}
}

// lock blocks until id is free and returns the matching unlock func.
func (l *rowLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	rl, ok := l.locks[id]
	if !ok {
		rl = &rowLock{}
		l.locks[id] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.Lock()
	return func() {
		rl.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
