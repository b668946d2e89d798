package appointments

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps appointments in process with auto-increment ids.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]Appointment
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		items:  make(map[int64]Appointment),
		now:    time.Now,
	}
}

// Create assigns an id and stores the appointment. A Scheduled appointment
// for an occupied slot is rejected with ErrSlotTaken.
func (s *MemoryStore) Create(_ context.Context, appt Appointment) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if appt.Status == "" {
		appt.Status = StatusScheduled
	}
	if appt.Status == StatusScheduled && s.occupiedLocked(appt.DoctorID, appt.Date, appt.Time) {
		return nil, ErrSlotTaken
	}
	appt.ID = s.nextID
	s.nextID++
	appt.CreatedAt = s.now().UTC()
	s.items[appt.ID] = appt
	out := appt
	return &out, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appt, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &appt, nil
}

func (s *MemoryStore) ExistsAt(_ context.Context, doctorID int64, date time.Time, clock string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.occupiedLocked(doctorID, DateKey(date), clock), nil
}

func (s *MemoryStore) BookedTimes(_ context.Context, doctorID int64, date time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := DateKey(date)
	var out []string
	for _, appt := range s.items {
		if appt.DoctorID == doctorID && appt.Date == key && appt.Status == StatusScheduled {
			out = append(out, appt.Time)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) ListByDoctor(_ context.Context, doctorID int64, date time.Time) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Appointment
	key := ""
	if !date.IsZero() {
		key = DateKey(date)
	}
	for _, appt := range s.items {
		if appt.DoctorID != doctorID {
			continue
		}
		if key != "" && appt.Date != key {
			continue
		}
		out = append(out, appt)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id int64, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	appt, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	appt.Status = status
	s.items[id] = appt
	return nil
}

func (s *MemoryStore) occupiedLocked(doctorID int64, dateKey, clock string) bool {
	for _, appt := range s.items {
		if appt.DoctorID == doctorID && appt.Date == dateKey && appt.Time == clock && appt.Status == StatusScheduled {
			return true
		}
	}
	return false
}
