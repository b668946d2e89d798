package sessions

import (
	"time"
)

// State is the informational dialogue state of a booking session.
type State string

const (
	StateCollectingInfo         State = "collecting_info"
	StateCheckingAvailability   State = "checking_availability"
	StateSuggestingAlternatives State = "suggesting_alternatives"
	StateConfirming             State = "confirming"
	StateCompleted              State = "completed"
)

// Field identifies a question the assistant can have outstanding.
type Field string

const (
	FieldNone   Field = ""
	FieldDoctor Field = "doctor"
	FieldDate   Field = "date"
	FieldTime   Field = "time"
	FieldName   Field = "name"
	FieldAge    Field = "age"
	FieldPhone  Field = "phone"
)

// Language is the fixed reply language of a session.
type Language string

const (
	LanguageUnset   Language = ""
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

// Role tags a history entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the audit transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is one caller's in-progress booking conversation.
type Session struct {
	ID               string   `json:"sessionId"`
	State            State    `json:"state"`
	BookingInitiated bool     `json:"bookingInitiated"`
	LastAskedField   Field    `json:"lastAskedField,omitempty"`
	LastPrompt       string   `json:"lastPrompt,omitempty"`
	Language         Language `json:"preferredLanguage,omitempty"`

	PatientName     string    `json:"patientName,omitempty"`
	PatientAge      int       `json:"patientAge,omitempty"`
	PatientPhone    string    `json:"patientPhone,omitempty"`
	AppointmentDate time.Time `json:"appointmentDate"`
	AppointmentTime string    `json:"appointmentTime,omitempty"`
	DoctorID        int64     `json:"doctorId,omitempty"`
	Department      string    `json:"department,omitempty"`
	Problem         string    `json:"problem,omitempty"`
	DoctorAnnounced bool      `json:"doctorAnnounced,omitempty"`

	History     []Message `json:"conversationHistory"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// New returns a fresh session in the collecting state.
func New(id string, now time.Time) *Session {
	return &Session{
		ID:          id,
		State:       StateCollectingInfo,
		LastUpdated: now,
	}
}

func (s *Session) HasDate() bool   { return !s.AppointmentDate.IsZero() }
func (s *Session) HasTime() bool   { return s.AppointmentTime != "" }
func (s *Session) HasDoctor() bool { return s.DoctorID != 0 }

// HasConcern reports whether a doctor, department or problem is known.
func (s *Session) HasConcern() bool {
	return s.DoctorID != 0 || s.Department != "" || s.Problem != ""
}

// HasPatientDetails reports whether name, age and phone are all known.
func (s *Session) HasPatientDetails() bool {
	return s.PatientName != "" && s.PatientAge > 0 && s.PatientPhone != ""
}

// HasSlot reports whether doctor, date and time are all known.
func (s *Session) HasSlot() bool {
	return s.HasDoctor() && s.HasDate() && s.HasTime()
}

// Complete reports whether all six required fields are present.
func (s *Session) Complete() bool {
	return s.HasSlot() && s.HasPatientDetails()
}

// HasCollectedData reports whether any booking field has been captured.
func (s *Session) HasCollectedData() bool {
	return s.PatientName != "" || s.PatientAge > 0 || s.PatientPhone != "" ||
		s.HasConcern() || s.HasDate() || s.HasTime()
}

// NextMissingField returns the highest-priority unset field: concern, date,
// time, name, age, phone.
func (s *Session) NextMissingField() Field {
	switch {
	case !s.HasConcern():
		return FieldDoctor
	case !s.HasDate():
		return FieldDate
	case !s.HasTime():
		return FieldTime
	case s.PatientName == "":
		return FieldName
	case s.PatientAge <= 0:
		return FieldAge
	case s.PatientPhone == "":
		return FieldPhone
	}
	return FieldNone
}

// MissingFields lists every unset field in the clarification order used when
// a caller asks what is still needed.
func (s *Session) MissingFields() []Field {
	var out []Field
	if s.PatientName == "" {
		out = append(out, FieldName)
	}
	if s.PatientAge <= 0 {
		out = append(out, FieldAge)
	}
	if s.PatientPhone == "" {
		out = append(out, FieldPhone)
	}
	if !s.HasConcern() {
		out = append(out, FieldDoctor)
	}
	if !s.HasDate() {
		out = append(out, FieldDate)
	}
	if !s.HasTime() {
		out = append(out, FieldTime)
	}
	return out
}

// Append records a transcript entry.
func (s *Session) Append(role Role, content string) {
	s.History = append(s.History, Message{Role: role, Content: content})
}

// Expired reports whether the session has been idle longer than ttl.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.LastUpdated) > ttl
}

// Fields is a comparable snapshot of the collected booking fields.
type Fields struct {
	PatientName     string
	PatientAge      int
	PatientPhone    string
	AppointmentDate time.Time
	AppointmentTime string
	DoctorID        int64
	Department      string
	Problem         string
}

// Snapshot captures the current field values.
func (s *Session) Snapshot() Fields {
	return Fields{
		PatientName:     s.PatientName,
		PatientAge:      s.PatientAge,
		PatientPhone:    s.PatientPhone,
		AppointmentDate: s.AppointmentDate,
		AppointmentTime: s.AppointmentTime,
		DoctorID:        s.DoctorID,
		Department:      s.Department,
		Problem:         s.Problem,
	}
}

// Changes describes which fields differ between two snapshots.
type Changes struct {
	Name, Age, Phone, Date, Time, Concern bool
}

// Any reports whether anything changed.
func (c Changes) Any() bool {
	return c.Name || c.Age || c.Phone || c.Date || c.Time || c.Concern
}

// Diff compares before with the session's current values.
func (s *Session) Diff(before Fields) Changes {
	return Changes{
		Name:    s.PatientName != before.PatientName && s.PatientName != "",
		Age:     s.PatientAge != before.PatientAge && s.PatientAge > 0,
		Phone:   s.PatientPhone != before.PatientPhone && s.PatientPhone != "",
		Date:    !s.AppointmentDate.Equal(before.AppointmentDate) && s.HasDate(),
		Time:    s.AppointmentTime != before.AppointmentTime && s.HasTime(),
		Concern: s.DoctorID != before.DoctorID || s.Department != before.Department || s.Problem != before.Problem,
	}
}
