package events

import (
	"strconv"
	"time"
)

// AppointmentBookedV1 is published after a consultation is stored.
type AppointmentBookedV1 struct {
	AppointmentID  int64     `json:"appointment_id"`
	DoctorID       int64     `json:"doctor_id"`
	DoctorName     string    `json:"doctor_name"`
	Specialization string    `json:"specialization"`
	PatientName    string    `json:"patient_name"`
	PatientPhone   string    `json:"patient_phone"`
	PatientAge     int       `json:"patient_age,omitempty"`
	Date           string    `json:"appointment_date"`
	Time           string    `json:"appointment_time"`
	Reason         string    `json:"reason,omitempty"`
	BookedAt       time.Time `json:"booked_at"`
}

func (AppointmentBookedV1) EventType() string {
	return "appointment.booked"
}

func (e AppointmentBookedV1) AggregateID() string {
	if e.AppointmentID <= 0 {
		return ""
	}
	return "appointment:" + strconv.FormatInt(e.AppointmentID, 10)
}

func (e AppointmentBookedV1) OccurredAt() time.Time {
	return e.BookedAt
}
