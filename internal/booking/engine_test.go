package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvamit/aya-helthcare-demo/internal/appointments"
	"github.com/tvamit/aya-helthcare-demo/internal/doctors"
	"github.com/tvamit/aya-helthcare-demo/internal/observability/metrics"
	"github.com/tvamit/aya-helthcare-demo/internal/scheduling"
	"github.com/tvamit/aya-helthcare-demo/internal/sessions"
)

// Monday morning.
var engineNow = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func everyDay(start, end string) []doctors.ScheduleEntry {
	var out []doctors.ScheduleEntry
	for d := time.Sunday; d <= time.Saturday; d++ {
		out = append(out, doctors.ScheduleEntry{Day: d.String(), StartTime: start, EndTime: end})
	}
	return out
}

func allWeekDirectory() *doctors.MemoryDirectory {
	return doctors.NewMemoryDirectory([]doctors.Doctor{
		{ID: 10, Name: "Dr. Meera Iyer", Specialization: doctors.Cardiologist, Available: true, Schedule: everyDay("09:00", "21:00")},
		{ID: 11, Name: "Dr. Arjun Mehta", Specialization: doctors.GeneralPhysician, Available: true, Schedule: everyDay("09:00", "21:00")},
	})
}

func seededDirectory(t *testing.T) *doctors.MemoryDirectory {
	t.Helper()
	dir, err := doctors.NewSeededDirectory()
	require.NoError(t, err)
	return dir
}

type engineHarness struct {
	engine   *Engine
	sessions *sessions.MemoryStore
	ledger   *appointments.MemoryStore
}

func newHarness(t *testing.T, dir doctors.Directory, opts ...Option) engineHarness {
	t.Helper()
	store := sessions.NewMemoryStore(30 * time.Minute)
	ledger := appointments.NewMemoryStore()
	base := []Option{
		WithClock(func() time.Time { return engineNow }),
		WithPicker(FirstPicker{}),
		WithMetrics(metrics.NewAssistantMetrics(prometheus.NewRegistry())),
	}
	return engineHarness{
		engine:   NewEngine(store, dir, ledger, append(base, opts...)...),
		sessions: store,
		ledger:   ledger,
	}
}

func (h engineHarness) say(t *testing.T, sessionID, text string) Reply {
	t.Helper()
	reply, err := h.engine.ProcessTurn(context.Background(), sessionID, text)
	require.NoError(t, err)
	return reply
}

func (h engineHarness) session(t *testing.T, id string) *sessions.Session {
	t.Helper()
	s, err := h.sessions.Get(context.Background(), id)
	require.NoError(t, err)
	return s
}

// confirmingSession is ready for the yes/no answer.
func confirmingSession(id string) *sessions.Session {
	s := sessions.New(id, engineNow)
	s.State = sessions.StateConfirming
	s.BookingInitiated = true
	s.Language = sessions.LanguageEnglish
	s.DoctorID = 10
	s.Department = string(doctors.Cardiologist)
	s.DoctorAnnounced = true
	s.AppointmentDate = time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	s.AppointmentTime = "10:00:00"
	s.PatientName = "Rahul"
	s.PatientAge = 45
	s.PatientPhone = "9876543210"
	return s
}

type recordingObserver struct {
	mu     sync.Mutex
	booked []appointments.Appointment
	docs   []doctors.Doctor
	err    error
}

func (r *recordingObserver) AppointmentBooked(_ context.Context, appt appointments.Appointment, doc doctors.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.booked = append(r.booked, appt)
	r.docs = append(r.docs, doc)
	return r.err
}

func TestHappyPathBooking(t *testing.T) {
	observer := &recordingObserver{err: errors.New("mail relay down")}
	h := newHarness(t, allWeekDirectory(), WithObserver(observer))

	reply := h.say(t, "s1", "I have chest pain, book appointment")
	assert.True(t, reply.Handled)
	assert.Equal(t, sessions.LanguageEnglish, reply.Language)
	assert.Equal(t, sessions.StateCollectingInfo, reply.State)
	assert.Equal(t, "When would you like to schedule the appointment?", reply.Text)
	s := h.session(t, "s1")
	assert.Equal(t, string(doctors.Cardiologist), s.Department)
	assert.Equal(t, int64(10), s.DoctorID)
	assert.Equal(t, sessions.FieldDate, s.LastAskedField)

	reply = h.say(t, "s1", "tomorrow at 5pm")
	assert.Equal(t, sessions.StateCheckingAvailability, reply.State)
	assert.Equal(t, "Perfect! I've scheduled your appointment for Tuesday, October 20 at 5:00 PM. May I know your name, please?", reply.Text)
	s = h.session(t, "s1")
	assert.Equal(t, "2026-10-20", appointments.DateKey(s.AppointmentDate))
	assert.Equal(t, "17:00:00", s.AppointmentTime)

	reply = h.say(t, "s1", "Rahul, 45, 9876543210")
	assert.Equal(t, sessions.StateConfirming, reply.State)
	assert.Contains(t, reply.Text, "Thank you! I can book you with Dr. Meera Iyer (Cardiologist).")
	assert.Contains(t, reply.Text, "Please confirm your appointment:\nDoctor: Dr. Meera Iyer (Cardiologist)\nPatient: Rahul\nAge: 45\nPhone: 9876543210")

	reply = h.say(t, "s1", "yes")
	assert.Equal(t, sessions.StateCompleted, reply.State)
	assert.Equal(t, int64(1), reply.AppointmentID)
	assert.Contains(t, reply.Text, "Appointment ID: 1")

	_, err := h.sessions.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, sessions.ErrNotFound)

	appt, err := h.ledger.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusScheduled, appt.Status)
	assert.Equal(t, "2026-10-20", appt.Date)
	assert.Equal(t, "17:00:00", appt.Time)
	assert.Equal(t, "I have chest pain, book appointment", appt.Reason)

	require.Len(t, observer.booked, 1, "observer errors do not change the reply")
	assert.Equal(t, int64(1), observer.booked[0].ID)
	assert.Equal(t, "Dr. Meera Iyer", observer.docs[0].Name)
}

func TestDayOffSuggestsNextWorkingDay(t *testing.T) {
	h := newHarness(t, seededDirectory(t))

	reply := h.say(t, "s1", "book appointment with Dr. Gupta on Tuesday at 11am")
	assert.Equal(t, sessions.StateSuggestingAlternatives, reply.State)
	assert.Equal(t, "Sorry, Doctor does not work on this day\n"+
		"Dr. Rajesh Gupta works on Mon, Wed, Fri: 9:00 AM - 5:00 PM\n\n"+
		"Suggestion: Dr. Rajesh Gupta is next available on Wednesday, October 21.\n"+
		"Which time or doctor would you prefer?", reply.Text)
	assert.Equal(t, sessions.FieldTime, h.session(t, "s1").LastAskedField)

	reply = h.say(t, "s1", "Wednesday at 11am then")
	assert.Equal(t, sessions.StateCheckingAvailability, reply.State)
	assert.Equal(t, "Perfect! I've set Wednesday, October 21 for your appointment. May I know your name, please?", reply.Text)
}

func TestBookedSlotOffersClosestTimes(t *testing.T) {
	h := newHarness(t, seededDirectory(t))
	_, err := h.ledger.Create(context.Background(), appointments.Appointment{
		PatientName: "Asha", PatientPhone: "9000000000", DoctorID: 1,
		Date: "2026-10-21", Time: "11:00:00", Status: appointments.StatusScheduled,
	})
	require.NoError(t, err)

	reply := h.say(t, "s1", "book Dr. Gupta on Wednesday at 11am")
	assert.Equal(t, sessions.StateSuggestingAlternatives, reply.State)
	assert.Contains(t, reply.Text, "Sorry, Time slot is already booked")
	assert.Contains(t, reply.Text, "Alternative times: 10:30:00, 11:30:00, 10:00:00")
}

func TestCancellationClearsSession(t *testing.T) {
	h := newHarness(t, allWeekDirectory())
	require.NoError(t, h.sessions.Put(context.Background(), confirmingSession("s1")))

	reply := h.say(t, "s1", "no, cancel it")
	assert.Equal(t, "Booking has been cancelled.", reply.Text)
	assert.Equal(t, sessions.StateCompleted, reply.State)
	assert.Zero(t, reply.AppointmentID)

	reply = h.say(t, "s1", "What are the visiting hours?")
	assert.False(t, reply.Handled)
	s := h.session(t, "s1")
	assert.False(t, s.BookingInitiated)
	assert.False(t, s.HasCollectedData())
	assert.Equal(t, sessions.StateCollectingInfo, s.State)
}

func TestConfirmingWithoutAnswerRepeatsSummary(t *testing.T) {
	h := newHarness(t, allWeekDirectory())
	require.NoError(t, h.sessions.Put(context.Background(), confirmingSession("s1")))

	reply := h.say(t, "s1", "hmm")
	assert.Equal(t, sessions.StateConfirming, reply.State)
	assert.Contains(t, reply.Text, "Please confirm your appointment:")
	assert.Zero(t, reply.AppointmentID)
}

func TestEarlyConfirmationBooksWithoutSummary(t *testing.T) {
	h := newHarness(t, allWeekDirectory())
	s := confirmingSession("s1")
	s.State = sessions.StateCheckingAvailability
	require.NoError(t, h.sessions.Put(context.Background(), s))

	reply := h.say(t, "s1", "yes please")
	assert.Equal(t, sessions.StateCompleted, reply.State)
	assert.Equal(t, int64(1), reply.AppointmentID)
}

func TestRephrasesIgnoredQuestion(t *testing.T) {
	h := newHarness(t, allWeekDirectory())
	s := confirmingSession("s1")
	s.State = sessions.StateCheckingAvailability
	s.PatientAge = 0
	s.PatientPhone = ""
	s.LastAskedField = sessions.FieldAge
	s.LastPrompt = "How old are you?"
	require.NoError(t, h.sessions.Put(context.Background(), s))

	first := h.say(t, "s1", "hmm")
	second := h.say(t, "s1", "hmm")
	assert.Equal(t, "Could you tell me your age?", first.Text)
	assert.Equal(t, "I still need your age, please.", second.Text)
}

func TestConsecutivePromptsNeverRepeat(t *testing.T) {
	h := newHarness(t, allWeekDirectory(), WithPicker(RandomPicker{}))
	s := confirmingSession("s1")
	s.State = sessions.StateCheckingAvailability
	s.PatientName = ""
	s.PatientAge = 0
	s.PatientPhone = ""
	require.NoError(t, h.sessions.Put(context.Background(), s))

	previous := ""
	for i := 0; i < 10; i++ {
		reply := h.say(t, "s1", "umm")
		assert.NotEqual(t, previous, reply.Text)
		previous = reply.Text
	}
}

func TestClarificationListsMissingFields(t *testing.T) {
	h := newHarness(t, seededDirectory(t))
	h.say(t, "s1", "book with Dr. Gupta on Wednesday")

	reply := h.say(t, "s1", "what information do you need?")
	assert.Equal(t, "I still need this information: name, age, phone number, appointment time. Please provide these details.", reply.Text)
}

func TestScheduleQueryShowsTimetable(t *testing.T) {
	h := newHarness(t, seededDirectory(t))
	h.say(t, "s1", "book with Dr. Gupta")

	reply := h.say(t, "s1", "what time is the doctor available?")
	assert.Equal(t, "Dr. Rajesh Gupta works on Mon, Wed, Fri: 9:00 AM - 5:00 PM\n"+
		"Available times for today: 09:00:00, 09:30:00, 10:00:00, 10:30:00, 11:00:00\n"+
		"Which day would you like to book?", reply.Text)
	assert.Equal(t, sessions.FieldDate, h.session(t, "s1").LastAskedField)
}

func TestHindiDialogue(t *testing.T) {
	h := newHarness(t, allWeekDirectory())

	reply := h.say(t, "s1", "मुझे कल दिल की जांच के लिए appointment चाहिए")
	assert.Equal(t, sessions.LanguageHindi, reply.Language)
	assert.Equal(t, "बिल्कुल! Tuesday, October 20 की date नोट कर ली। किस समय आप आ सकते हैं?", reply.Text)

	// The language is fixed for the rest of the session.
	reply = h.say(t, "s1", "5pm")
	assert.Equal(t, sessions.LanguageHindi, reply.Language)

	lang, ok, err := h.engine.PreferredLanguage(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sessions.LanguageHindi, lang)
}

func TestNonBookingTurnIsNotHandled(t *testing.T) {
	h := newHarness(t, allWeekDirectory())

	reply := h.say(t, "", "Is there an ICU bed available?")
	assert.False(t, reply.Handled)
	assert.Empty(t, reply.Text)

	lang, ok, err := h.engine.PreferredLanguage(context.Background(), DefaultSessionID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sessions.LanguageEnglish, lang)
}

func TestResetDropsSession(t *testing.T) {
	h := newHarness(t, allWeekDirectory())
	h.say(t, "s1", "book an appointment for tomorrow")
	require.NoError(t, h.engine.Reset(context.Background(), "s1"))

	_, ok, err := h.engine.PreferredLanguage(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

type failingLedger struct {
	*appointments.MemoryStore
	err error
}

func (f failingLedger) Create(context.Context, appointments.Appointment) (*appointments.Appointment, error) {
	return nil, f.err
}

func TestBookingFailureKeepsSession(t *testing.T) {
	store := sessions.NewMemoryStore(30 * time.Minute)
	engine := NewEngine(store, allWeekDirectory(),
		failingLedger{MemoryStore: appointments.NewMemoryStore(), err: errors.New("connection reset")},
		WithClock(func() time.Time { return engineNow }),
		WithPicker(FirstPicker{}),
	)
	require.NoError(t, store.Put(context.Background(), confirmingSession("s1")))

	reply, err := engine.ProcessTurn(context.Background(), "s1", "yes")
	require.NoError(t, err)
	assert.Equal(t, "Sorry, there was an issue booking the appointment. Please try again.", reply.Text)
	assert.Equal(t, sessions.StateConfirming, reply.State)

	s, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, sessions.StateConfirming, s.State)
}

func TestLostRaceBecomesConflict(t *testing.T) {
	store := sessions.NewMemoryStore(30 * time.Minute)
	engine := NewEngine(store, allWeekDirectory(),
		failingLedger{MemoryStore: appointments.NewMemoryStore(), err: appointments.ErrSlotTaken},
		WithClock(func() time.Time { return engineNow }),
		WithPicker(FirstPicker{}),
	)
	require.NoError(t, store.Put(context.Background(), confirmingSession("s1")))

	reply, err := engine.ProcessTurn(context.Background(), "s1", "yes")
	require.NoError(t, err)
	assert.Equal(t, sessions.StateSuggestingAlternatives, reply.State)
	assert.Contains(t, reply.Text, "Time slot is already booked")
}

func TestConfirmingRequiresCompleteSession(t *testing.T) {
	dialogues := [][]string{
		{"book an appointment", "Rahul, 45, 9876543210", "ok", "tomorrow", "yes"},
		{"heart checkup booking", "today 3pm", "my name is Anil", "yes", "9988776655", "age is 61", "yes"},
		{"I need a dentist appointment", "ok", "next friday at 10am", "call me Sita", "30", "yes"},
	}
	for i, lines := range dialogues {
		h := newHarness(t, allWeekDirectory())
		for _, line := range lines {
			reply := h.say(t, "s1", line)
			if reply.State == sessions.StateCompleted {
				break
			}
			s := h.session(t, "s1")
			if s.State == sessions.StateConfirming {
				assert.True(t, s.Complete(), "dialogue %d, line %q", i, line)
			}
		}
	}
}

func TestNextState(t *testing.T) {
	full := confirmingSession("x")
	noSlot := confirmingSession("x")
	noSlot.AppointmentTime = ""
	noDetails := confirmingSession("x")
	noDetails.PatientPhone = ""

	ok := scheduling.Availability{Available: true}
	dayOff := scheduling.Availability{Reason: scheduling.ReasonDayOff}

	assert.Equal(t, sessions.StateCollectingInfo, nextState(noSlot, &ok))
	assert.Equal(t, sessions.StateCheckingAvailability, nextState(full, nil))
	assert.Equal(t, sessions.StateSuggestingAlternatives, nextState(full, &dayOff))
	assert.Equal(t, sessions.StateConfirming, nextState(full, &ok))
	assert.Equal(t, sessions.StateCheckingAvailability, nextState(noDetails, &ok))
}

func TestObserversRunEveryObserver(t *testing.T) {
	first := &recordingObserver{err: errors.New("mail relay down")}
	second := &recordingObserver{}
	appt := appointments.Appointment{ID: 3, DoctorID: 10}
	doc := doctors.Doctor{ID: 10, Name: "Dr. Meera Iyer"}

	err := Observers{first, nil, second}.AppointmentBooked(context.Background(), appt, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mail relay down")
	assert.Len(t, first.booked, 1)
	assert.Len(t, second.booked, 1)

	assert.NoError(t, Observers{second}.AppointmentBooked(context.Background(), appt, doc))
}

func TestConcurrentConfirmationsBookOnce(t *testing.T) {
	h := newHarness(t, allWeekDirectory())
	require.NoError(t, h.sessions.Put(context.Background(), confirmingSession("s1")))

	const turns = 8
	replies := make([]Reply, turns)
	errs := make([]error, turns)
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			replies[i], errs[i] = h.engine.ProcessTurn(context.Background(), "s1", "yes")
		}(i)
	}
	wg.Wait()

	booked := 0
	for i := range replies {
		require.NoError(t, errs[i])
		if replies[i].AppointmentID != 0 {
			booked++
		}
	}
	assert.Equal(t, 1, booked)

	list, err := h.ledger.ListByDoctor(context.Background(), 10, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	keyed, ok := h.engine.locker.(*sessions.KeyedMutex)
	require.True(t, ok)
	assert.Zero(t, keyed.Len())
}
