package hospital

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

//go:embed seed.json
var seedJSON []byte

// MemoryStore keeps beds in process.
type MemoryStore struct {
	mu   sync.RWMutex
	beds map[int64]Bed
}

func NewMemoryStore(beds []Bed) *MemoryStore {
	s := &MemoryStore{beds: make(map[int64]Bed, len(beds))}
	for _, b := range beds {
		s.beds[b.ID] = b
	}
	return s
}

// SeedBeds returns the built-in bed inventory.
func SeedBeds() ([]Bed, error) {
	var beds []Bed
	if err := json.Unmarshal(seedJSON, &beds); err != nil {
		return nil, fmt.Errorf("hospital: decode seed: %w", err)
	}
	return beds, nil
}

func NewSeededStore() (*MemoryStore, error) {
	beds, err := SeedBeds()
	if err != nil {
		return nil, err
	}
	return NewMemoryStore(beds), nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Bed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Bed, 0, len(s.beds))
	for _, b := range s.beds {
		if filter.matches(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (*Bed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.beds[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (s *MemoryStore) Update(_ context.Context, bed Bed) error {
	if !bed.Ward.Valid() {
		return ErrInvalidWard
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.beds[bed.ID]; !ok {
		return ErrNotFound
	}
	s.beds[bed.ID] = bed
	return nil
}

func (s *MemoryStore) AvailableCount(_ context.Context, ward Ward) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, b := range s.beds {
		if b.Available && (ward == "" || b.Ward == ward) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st Stats
	for _, b := range s.beds {
		if !b.Available {
			continue
		}
		st.Total++
		switch b.Ward {
		case WardICU:
			st.ICU++
		case WardGeneral:
			st.General++
		case WardEmergency:
			st.Emergency++
		}
	}
	return st, nil
}
