package doctors

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Specialization is a doctor's medical department.
type Specialization string

const (
	Cardiologist     Specialization = "Cardiologist"
	Neurologist      Specialization = "Neurologist"
	Orthopedic       Specialization = "Orthopedic"
	Pediatrician     Specialization = "Pediatrician"
	GeneralPhysician Specialization = "General Physician"
	Dentist          Specialization = "Dentist"
	ENT              Specialization = "ENT"
	Dermatologist    Specialization = "Dermatologist"
)

// ErrNotFound is returned when no doctor matches a lookup.
var ErrNotFound = errors.New("doctors: not found")

// ScheduleEntry is a recurring weekly working window. Times are "HH:MM".
type ScheduleEntry struct {
	Day       string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Doctor is read-only reference data for the booking flow.
type Doctor struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Specialization  Specialization  `json:"specialization"`
	Available       bool            `json:"available"`
	ConsultationFee float64         `json:"consultationFee"`
	Schedule        []ScheduleEntry `json:"schedule"`
	Phone           string          `json:"phone,omitempty"`
	Email           string          `json:"email,omitempty"`
}

// Directory looks up doctors.
type Directory interface {
	FindByID(ctx context.Context, id int64) (*Doctor, error)
	FindByName(ctx context.Context, name string) (*Doctor, error)
	// FindBySpecialization returns available doctors only, sorted by name.
	FindBySpecialization(ctx context.Context, spec Specialization) ([]Doctor, error)
	ListAvailable(ctx context.Context) ([]Doctor, error)
}

// ScheduleFor returns the schedule entry for the given weekday.
func (d *Doctor) ScheduleFor(day time.Weekday) (ScheduleEntry, bool) {
	if d == nil {
		return ScheduleEntry{}, false
	}
	name := day.String()
	for _, entry := range d.Schedule {
		if strings.EqualFold(entry.Day, name) {
			return entry, true
		}
	}
	return ScheduleEntry{}, false
}

// WorksOn reports whether the doctor has a schedule entry for the weekday.
func (d *Doctor) WorksOn(day time.Weekday) bool {
	_, ok := d.ScheduleFor(day)
	return ok
}

// Window returns the entry's start and end as minutes since midnight.
func (e ScheduleEntry) Window() (start, end int, err error) {
	start, err = ClockMinutes(e.StartTime)
	if err != nil {
		return 0, 0, err
	}
	end, err = ClockMinutes(e.EndTime)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// ClockMinutes parses "HH:MM" or "HH:MM:SS" into minutes since midnight.
func ClockMinutes(clock string) (int, error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("doctors: invalid clock %q", clock)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("doctors: invalid hour in %q: %w", clock, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("doctors: invalid minute in %q: %w", clock, err)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 {
		return 0, fmt.Errorf("doctors: clock out of range %q", clock)
	}
	return h*60 + m, nil
}

// NameMatches reports whether a fuzzy name query refers to the doctor. Both
// sides drop a leading "Dr."/"Doctor" and are compared case-insensitively by
// substring in either direction.
func NameMatches(doctorName, query string) bool {
	q := strings.ToLower(stripTitle(query))
	n := strings.ToLower(stripTitle(doctorName))
	if q == "" || n == "" {
		return false
	}
	return strings.Contains(n, q) || strings.Contains(q, n)
}

func stripTitle(name string) string {
	name = strings.TrimSpace(name)
	lower := strings.ToLower(name)
	if lower == "dr" || lower == "doctor" {
		return ""
	}
	for _, prefix := range []string{"doctor ", "dr.", "dr "} {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(name[len(prefix):])
		}
	}
	return name
}
