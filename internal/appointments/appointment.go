package appointments

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
	StatusNoShow    Status = "No-Show"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

var (
	ErrNotFound      = errors.New("appointments: not found")
	ErrSlotTaken     = errors.New("appointments: slot already booked")
	ErrInvalidStatus = errors.New("appointments: invalid status")
)

// DateLayout is the calendar date format used for storage and keys.
const DateLayout = "2006-01-02"

// Appointment is a booked consultation.
type Appointment struct {
	ID           int64     `json:"id"`
	PatientName  string    `json:"patientName"`
	PatientPhone string    `json:"patientPhone"`
	PatientAge   int       `json:"patientAge,omitempty"`
	DoctorID     int64     `json:"doctorId"`
	Date         string    `json:"appointmentDate"`
	Time         string    `json:"appointmentTime"`
	Status       Status    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store persists appointments.
type Store interface {
	Create(ctx context.Context, appt Appointment) (*Appointment, error)
	Get(ctx context.Context, id int64) (*Appointment, error)
	// ExistsAt reports whether a Scheduled appointment occupies the exact slot.
	ExistsAt(ctx context.Context, doctorID int64, date time.Time, clock string) (bool, error)
	// BookedTimes lists the HH:MM:SS times of Scheduled appointments on date.
	BookedTimes(ctx context.Context, doctorID int64, date time.Time) ([]string, error)
	ListByDoctor(ctx context.Context, doctorID int64, date time.Time) ([]Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
}

// DateKey formats a date as YYYY-MM-DD in its own location.
func DateKey(date time.Time) string {
	return date.Format(DateLayout)
}
