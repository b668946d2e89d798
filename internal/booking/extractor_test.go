package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvamit/aya-helthcare-demo/internal/doctors"
	"github.com/tvamit/aya-helthcare-demo/internal/sessions"
)

// Monday.
var extractToday = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func day(month time.Month, d int) time.Time {
	return time.Date(2026, month, d, 0, 0, 0, 0, time.UTC)
}

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	dir, err := doctors.NewSeededDirectory()
	require.NoError(t, err)
	return NewExtractor(dir)
}

func extract(t *testing.T, e *Extractor, s *sessions.Session, text string, today time.Time) *sessions.Session {
	t.Helper()
	if s == nil {
		s = sessions.New("test", today)
	}
	require.NoError(t, e.Extract(context.Background(), text, s, today))
	return s
}

func TestExtractDates(t *testing.T) {
	e := newTestExtractor(t)
	tests := []struct {
		text string
		want time.Time
	}{
		{"today please", day(10, 19)},
		{"tomorrow", day(10, 20)},
		{"कल आना है", day(10, 20)},
		{"day after tomorrow", day(10, 21)},
		{"next friday", day(10, 23)},
		{"next monday", day(10, 26)},
		{"this monday", day(10, 19)},
		{"on monday", day(10, 26)},
		{"सोमवार को", day(10, 26)},
		{"25/12/2026", day(12, 25)},
		{"5-11-26", day(11, 5)},
		{"next week", day(10, 26)},
		{"in 3 days", day(10, 22)},
		{"3 दिन बाद", day(10, 22)},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			s := extract(t, e, nil, tc.text, extractToday)
			assert.True(t, tc.want.Equal(s.AppointmentDate), "got %s", s.AppointmentDate)
		})
	}
}

func TestExtractRejectsImpossibleDate(t *testing.T) {
	s := extract(t, newTestExtractor(t), nil, "31/02/2026", extractToday)
	assert.False(t, s.HasDate())
}

func TestNextMondayFromWednesday(t *testing.T) {
	wednesday := day(10, 21)
	s := extract(t, newTestExtractor(t), nil, "book for next Monday", wednesday)
	require.True(t, s.HasDate())
	assert.Equal(t, time.Monday, s.AppointmentDate.Weekday())
	ahead := s.AppointmentDate.Sub(wednesday).Hours() / 24
	assert.Greater(t, ahead, 0.0)
	assert.LessOrEqual(t, ahead, 13.0)
}

func TestDateOnlyReopenedByReschedulingOrAlternatives(t *testing.T) {
	e := newTestExtractor(t)
	s := extract(t, e, nil, "tomorrow", extractToday)

	extract(t, e, s, "friday", extractToday)
	assert.True(t, day(10, 20).Equal(s.AppointmentDate), "set date is kept")

	extract(t, e, s, "book friday instead", extractToday)
	assert.True(t, day(10, 23).Equal(s.AppointmentDate))

	s.State = sessions.StateSuggestingAlternatives
	extract(t, e, s, "wednesday", extractToday)
	assert.True(t, day(10, 21).Equal(s.AppointmentDate))
}

func TestExtractTimes(t *testing.T) {
	e := newTestExtractor(t)
	tests := []struct {
		text      string
		lastAsked sessions.Field
		want      string
	}{
		{"tomorrow at 5pm", "", "17:00:00"},
		{"9 a.m.", "", "09:00:00"},
		{"2:30 PM", "", "14:30:00"},
		{"14:30", "", "14:30:00"},
		{"morning 9 AM", "", "09:00:00"},
		{"evening 6 pm", "", "18:00:00"},
		{"12 am", "", "00:00:00"},
		{"12 pm", "", "12:00:00"},
		{"at 5 o'clock", "", "05:00:00"},
		{"5 बजे", "", "05:00:00"},
		{"17 hours", "", "17:00:00"},
		{"16", sessions.FieldTime, "16:00:00"},
		{"25:00", "", ""},
		{"I have 10 appointments", "", ""},
		{"45 and healthy", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			s := sessions.New("test", extractToday)
			s.LastAskedField = tc.lastAsked
			extract(t, e, s, tc.text, extractToday)
			assert.Equal(t, tc.want, s.AppointmentTime)
		})
	}
}

func TestExtractNames(t *testing.T) {
	e := newTestExtractor(t)
	tests := []struct {
		text string
		want string
	}{
		{"My name is Rahul Sharma", "Rahul Sharma"},
		{"my name is Rahul and age is 45", "Rahul"},
		{"I am Priya", "Priya"},
		{"call me Amit", "Amit"},
		{"मेरा नाम Rahul है", "Rahul"},
		{"I am having chest pain", ""},
		{"name is X", ""},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			s := extract(t, e, nil, tc.text, extractToday)
			assert.Equal(t, tc.want, s.PatientName)
		})
	}
}

func TestNameNotOverwritten(t *testing.T) {
	e := newTestExtractor(t)
	s := extract(t, e, nil, "my name is Rahul", extractToday)
	extract(t, e, s, "my name is Vikas", extractToday)
	assert.Equal(t, "Rahul", s.PatientName)
}

func TestExtractAges(t *testing.T) {
	e := newTestExtractor(t)
	tests := []struct {
		text      string
		lastAsked sessions.Field
		want      int
	}{
		{"age is 45", "", 45},
		{"I am 32 years old", "", 32},
		{"मैं 30 साल का हूं", "", 30},
		{"45", sessions.FieldAge, 45},
		{"45", "", 45},
		{"200 years", "", 0},
		{"0", sessions.FieldAge, 0},
		{"I have 2 kids and 45 minutes", "", 0},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			s := sessions.New("test", extractToday)
			s.LastAskedField = tc.lastAsked
			extract(t, e, s, tc.text, extractToday)
			assert.Equal(t, tc.want, s.PatientAge)
		})
	}
}

func TestPhoneNormalization(t *testing.T) {
	e := newTestExtractor(t)
	for _, text := range []string{
		"8469946600",
		"846-994-6600",
		"+91 8469946600",
		"08469946600",
		"my phone is 84699 46600",
		"+91 84699 46600",
		"91-84699-46600",
	} {
		t.Run(text, func(t *testing.T) {
			s := extract(t, e, nil, text, extractToday)
			assert.Equal(t, "8469946600", s.PatientPhone)
		})
	}
}

func TestPhoneCountryCodeWhenAsked(t *testing.T) {
	s := sessions.New("test", extractToday)
	s.LastAskedField = sessions.FieldPhone
	s = extract(t, newTestExtractor(t), s, "+91 98765 43210", extractToday)
	assert.Equal(t, "9876543210", s.PatientPhone)
}

func TestPhoneRejectsTwelveDigitsWithoutCountryCode(t *testing.T) {
	s := extract(t, newTestExtractor(t), nil, "12 34567 89012", extractToday)
	assert.Empty(t, s.PatientPhone)
}

func TestPhoneRejectsShortNumbers(t *testing.T) {
	s := extract(t, newTestExtractor(t), nil, "call 12345", extractToday)
	assert.Empty(t, s.PatientPhone)
}

func TestPatientList(t *testing.T) {
	s := extract(t, newTestExtractor(t), nil, "Rahul, 45, 9876543210", extractToday)
	assert.Equal(t, "Rahul", s.PatientName)
	assert.Equal(t, 45, s.PatientAge)
	assert.Equal(t, "9876543210", s.PatientPhone)
}

func TestExtractDepartmentAndProblem(t *testing.T) {
	e := newTestExtractor(t)

	s := extract(t, e, nil, "I have chest pain, book appointment", extractToday)
	assert.Equal(t, string(doctors.Cardiologist), s.Department)
	assert.Equal(t, "I have chest pain, book appointment", s.Problem)

	s = extract(t, e, nil, "I need a dentist", extractToday)
	assert.Equal(t, string(doctors.Dentist), s.Department)
	assert.Empty(t, s.Problem)

	s = extract(t, e, nil, "stomach problem", extractToday)
	assert.Empty(t, s.Department)
	assert.Equal(t, "stomach problem", s.Problem)

	extract(t, e, s, "actually my skin itches", extractToday)
	assert.Empty(t, s.Department, "department is only read while nothing is known")
}

func TestExtractDoctorByName(t *testing.T) {
	e := newTestExtractor(t)
	tests := []struct {
		text   string
		wantID int64
		spec   doctors.Specialization
	}{
		{"I want to see Dr. Sharma", 2, doctors.Neurologist},
		{"Dr. Gupta tomorrow at 10am", 1, doctors.Cardiologist},
		{"doctor Amit Patel please", 3, doctors.Orthopedic},
		{"Gupta doctor se milna hai", 1, doctors.Cardiologist},
		{"doctor for chest pain", 0, ""},
		{"doctor at 5pm", 0, ""},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			s := extract(t, e, nil, tc.text, extractToday)
			assert.Equal(t, tc.wantID, s.DoctorID)
			if tc.wantID != 0 {
				assert.Equal(t, string(tc.spec), s.Department)
			}
		})
	}
}
