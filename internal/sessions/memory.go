package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps sessions in a process-local map. Sessions are stored as
// encoded copies so callers never share mutable state through the store.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
	seen  map[string]time.Time
	ttl   time.Duration
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		items: make(map[string][]byte),
		seen:  make(map[string]time.Time),
		ttl:   ttl,
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	data, ok := m.items[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("sessions: decode %s: %w", id, err)
	}
	return &s, nil
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("sessions: session id required")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("sessions: encode %s: %w", s.ID, err)
	}
	m.mu.Lock()
	m.items[s.ID] = data
	m.seen[s.ID] = s.LastUpdated
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.items, id)
	delete(m.seen, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) SweepExpired(_ context.Context, now time.Time) (int, error) {
	if m.ttl <= 0 {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, last := range m.seen {
		if now.Sub(last) > m.ttl {
			delete(m.items, id)
			delete(m.seen, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// List returns decoded copies of every stored session.
func (m *MemoryStore) List(ctx context.Context) ([]*Session, error) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	out := make([]*Session, 0, len(ids))
	for _, id := range ids {
		s, err := m.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
