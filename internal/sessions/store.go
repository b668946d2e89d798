package sessions

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by Get when no live session exists for the id.
var ErrNotFound = errors.New("sessions: not found")

// Store maps session ids to booking sessions.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
	// SweepExpired evicts sessions idle for longer than the store TTL and
	// returns how many were removed.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// Locker serializes turns for one session id.
type Locker interface {
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

// KeyedMutex is an in-process Locker with one mutex per session id. An
// entry lives while any caller holds or waits for it.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *KeyedMutex) Lock(_ context.Context, id string) (func(), error) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedEntry)
	}
	entry, ok := k.locks[id]
	if !ok {
		entry = &keyedEntry{}
		k.locks[id] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()
			k.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(k.locks, id)
			}
			k.mu.Unlock()
		})
	}, nil
}

// Len reports how many ids currently have a holder or waiter.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
