package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tvamit/aya-helthcare-demo/internal/appointments"
	"github.com/tvamit/aya-helthcare-demo/internal/doctors"
	"github.com/tvamit/aya-helthcare-demo/internal/observability/metrics"
	"github.com/tvamit/aya-helthcare-demo/internal/scheduling"
	"github.com/tvamit/aya-helthcare-demo/internal/sessions"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

// DefaultSessionID is used when a caller does not send one.
const DefaultSessionID = "default"

const defaultSessionTTL = 30 * time.Minute

// BookingObserver is notified after an appointment is stored. Errors are
// logged and never change the caller's reply.
type BookingObserver interface {
	AppointmentBooked(ctx context.Context, appt appointments.Appointment, doc doctors.Doctor) error
}

// Observers fans a booking out to several observers. Every observer runs
// even when an earlier one fails.
type Observers []BookingObserver

func (o Observers) AppointmentBooked(ctx context.Context, appt appointments.Appointment, doc doctors.Doctor) error {
	var errs []error
	for _, obs := range o {
		if obs == nil {
			continue
		}
		if err := obs.AppointmentBooked(ctx, appt, doc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reply is the outcome of one booking turn.
type Reply struct {
	Text string
	// Handled is false when the utterance is not part of a booking dialogue
	// and should be answered elsewhere.
	Handled       bool
	Language      sessions.Language
	State         sessions.State
	AppointmentID int64
}

// Engine drives the per-session appointment booking dialogue.
type Engine struct {
	store     sessions.Store
	locker    sessions.Locker
	directory doctors.Directory
	ledger    appointments.Store
	resolver  *scheduling.Resolver
	extractor *Extractor
	composer  *Composer
	observer  BookingObserver
	metrics   *metrics.AssistantMetrics
	logger    *logging.Logger
	tracer    trace.Tracer
	now       func() time.Time
	location  *time.Location
	ttl       time.Duration
	picker    Picker
}

// Option configures an Engine.
type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the hospital time zone used to resolve "today".
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(e *Engine) { e.ttl = ttl }
}

// WithPicker replaces the random phrase picker.
func WithPicker(p Picker) Option {
	return func(e *Engine) { e.picker = p }
}

func WithObserver(o BookingObserver) Option {
	return func(e *Engine) { e.observer = o }
}

func WithMetrics(m *metrics.AssistantMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithLocker overrides per-session serialization. Stores that implement
// sessions.Locker are used automatically.
func WithLocker(l sessions.Locker) Option {
	return func(e *Engine) {
		if l != nil {
			e.locker = l
		}
	}
}

func NewEngine(store sessions.Store, directory doctors.Directory, ledger appointments.Store, opts ...Option) *Engine {
	if store == nil {
		panic("booking: session store cannot be nil")
	}
	if directory == nil {
		panic("booking: doctor directory cannot be nil")
	}
	if ledger == nil {
		panic("booking: appointment store cannot be nil")
	}
	e := &Engine{
		store:     store,
		directory: directory,
		ledger:    ledger,
		logger:    logging.Default(),
		tracer:    otel.Tracer("aya.internal.booking"),
		now:       time.Now,
		location:  time.UTC,
		ttl:       defaultSessionTTL,
	}
	if locker, ok := store.(sessions.Locker); ok {
		e.locker = locker
	} else {
		e.locker = &sessions.KeyedMutex{}
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resolver = scheduling.NewResolver(directory, ledger, scheduling.WithClock(e.now))
	e.extractor = NewExtractor(directory)
	e.composer = NewComposer(e.picker)
	return e
}

// turn carries the mutable state of one request through the dialogue steps.
type turn struct {
	session *sessions.Session
	text    string
	lower   string
	lang    sessions.Language
	today   time.Time
	logger  *logging.Logger

	done          bool
	appointmentID int64
}

// ProcessTurn runs one utterance through the booking dialogue for sessionID.
// Turns for the same session are serialized.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID, text string) (Reply, error) {
	ctx, span := e.tracer.Start(ctx, "booking.process_turn")
	defer span.End()

	if strings.TrimSpace(sessionID) == "" {
		sessionID = DefaultSessionID
	}
	now := e.now().In(e.location)
	logger := e.logger.WithSession(sessionID)

	if removed, err := e.store.SweepExpired(ctx, now); err != nil {
		logger.Warn("session sweep failed", "error", err)
	} else if removed > 0 {
		logger.Debug("expired sessions evicted", "count", removed)
	}

	unlock, err := e.locker.Lock(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return Reply{}, fmt.Errorf("booking: %w", err)
	}
	defer unlock()

	s := e.load(ctx, sessionID, now, logger)
	if s.Language == sessions.LanguageUnset {
		s.Language = DetectLanguage(text)
	}
	s.LastUpdated = now

	t := &turn{
		session: s,
		text:    text,
		lower:   strings.ToLower(text),
		lang:    s.Language,
		today:   scheduling.StartOfDay(now),
		logger:  logger,
	}

	if !e.isBookingTurn(t) {
		if err := e.store.Put(ctx, s); err != nil {
			logger.Warn("failed to persist session", "error", err)
		}
		return Reply{Handled: false, Language: s.Language, State: s.State}, nil
	}

	s.BookingInitiated = true
	s.Append(sessions.RoleUser, text)

	response, err := e.respond(ctx, t)
	if err != nil {
		span.RecordError(err)
		logger.Error("booking turn failed", "error", err)
		return Reply{Text: e.composer.TurnFailed(t.lang), Handled: true, Language: t.lang, State: s.State}, err
	}
	s.Append(sessions.RoleAssistant, response)
	span.SetAttributes(
		attribute.String("booking.state", string(s.State)),
		attribute.String("booking.language", string(t.lang)),
	)
	e.metrics.ObserveBookingTurn(string(s.State))

	if t.done {
		if err := e.store.Delete(ctx, sessionID); err != nil {
			logger.Warn("failed to delete finished session", "error", err)
		}
	} else if err := e.store.Put(ctx, s); err != nil {
		span.RecordError(err)
		return Reply{}, fmt.Errorf("booking: persist session: %w", err)
	}

	logger.Info("booking turn",
		"state", s.State,
		"last_asked", s.LastAskedField,
		"doctor_id", s.DoctorID,
		"phone", logging.RedactPhone(s.PatientPhone),
	)
	return Reply{
		Text:          response,
		Handled:       true,
		Language:      t.lang,
		State:         s.State,
		AppointmentID: t.appointmentID,
	}, nil
}

// Reset discards any booking in progress for sessionID.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	if err := e.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("booking: reset %s: %w", sessionID, err)
	}
	return nil
}

// PreferredLanguage reports the language fixed for a live session.
func (e *Engine) PreferredLanguage(ctx context.Context, sessionID string) (sessions.Language, bool, error) {
	s, err := e.store.Get(ctx, sessionID)
	if errors.Is(err, sessions.ErrNotFound) {
		return sessions.LanguageUnset, false, nil
	}
	if err != nil {
		return sessions.LanguageUnset, false, fmt.Errorf("booking: load %s: %w", sessionID, err)
	}
	if s.Language == sessions.LanguageUnset {
		return sessions.LanguageUnset, false, nil
	}
	return s.Language, true, nil
}

// load returns the live session for id or a fresh one. Missing, expired and
// unreadable sessions all start over.
func (e *Engine) load(ctx context.Context, id string, now time.Time, logger *logging.Logger) *sessions.Session {
	s, err := e.store.Get(ctx, id)
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		return sessions.New(id, now)
	case err != nil:
		logger.Warn("session unreadable, starting fresh", "error", err)
		return sessions.New(id, now)
	case s.Expired(now, e.ttl):
		return sessions.New(id, now)
	}
	return s
}

func (e *Engine) isBookingTurn(t *turn) bool {
	s := t.session
	return IsBookingIntent(t.text) ||
		s.BookingInitiated ||
		s.HasCollectedData() ||
		s.State != sessions.StateCollectingInfo
}

// nextState is the single place the dialogue state is derived. avail is nil
// until the availability check has run for this turn.
func nextState(s *sessions.Session, avail *scheduling.Availability) sessions.State {
	switch {
	case !s.HasSlot():
		return sessions.StateCollectingInfo
	case avail == nil:
		return sessions.StateCheckingAvailability
	case !avail.Available:
		return sessions.StateSuggestingAlternatives
	case s.HasPatientDetails():
		return sessions.StateConfirming
	default:
		return sessions.StateCheckingAvailability
	}
}

func (e *Engine) respond(ctx context.Context, t *turn) (string, error) {
	s := t.session

	if s.State == sessions.StateConfirming {
		if s.Complete() {
			return e.confirm(ctx, t)
		}
		s.State = sessions.StateCollectingInfo
	}

	before := s.Snapshot()
	if err := e.extractor.Extract(ctx, t.text, s, t.today); err != nil {
		return "", err
	}
	if s.DoctorID != before.DoctorID && s.DoctorID != 0 {
		// A doctor the caller named needs no introduction.
		s.DoctorAnnounced = true
	}
	if err := e.ensureDoctorAssigned(ctx, s); err != nil {
		return "", err
	}
	changes := s.Diff(before)
	s.State = nextState(s, nil)

	if s.Complete() && earlyConfirmKeywords.in(t.lower) {
		return e.confirm(ctx, t)
	}

	clarifying := clarificationKeywords.in(t.lower)
	if clarifying {
		if missing := s.MissingFields(); len(missing) > 0 {
			return e.composer.StillNeed(t.lang, missing), nil
		}
	}

	if !clarifying && scheduleQueryKeywords.in(t.lower) && s.HasDoctor() {
		return e.scheduleReply(ctx, t)
	}

	var prefix string
	if s.HasPatientDetails() && s.HasDoctor() && !s.DoctorAnnounced {
		doc, err := e.doctor(ctx, s.DoctorID)
		if err != nil {
			return "", err
		}
		s.DoctorAnnounced = true
		if doc != nil {
			slots, err := e.resolver.AlternativeTimes(ctx, doc.ID, e.targetDate(t), "")
			if err != nil {
				return "", err
			}
			announcement, asked := e.composer.Announcement(t.lang, doc, s, slots)
			if !s.HasSlot() {
				s.LastAskedField = asked
				s.LastPrompt = ""
				return announcement, nil
			}
			prefix = announcement
		}
	}

	if s.HasSlot() {
		avail, err := e.resolver.CheckAvailability(ctx, s.DoctorID, s.AppointmentDate, s.AppointmentTime)
		if err != nil {
			return "", err
		}
		s.State = nextState(s, &avail)
		if !avail.Available {
			conflict, err := e.conflict(ctx, t, avail)
			if err != nil {
				return "", err
			}
			return joinParagraphs(prefix, conflict), nil
		}
		if s.State == sessions.StateConfirming {
			doc, err := e.doctor(ctx, s.DoctorID)
			if err != nil {
				return "", err
			}
			s.LastAskedField = sessions.FieldNone
			s.LastPrompt = ""
			if prefix == "" {
				prefix = e.composer.Acknowledge(t.lang, s, changes)
			}
			return joinParagraphs(prefix, e.composer.Summary(t.lang, s, doc)), nil
		}
	}

	return e.askNext(t, changes), nil
}

// askNext prompts for the highest-priority missing field, rephrasing when the
// caller ignored the same question last turn.
func (e *Engine) askNext(t *turn, changes sessions.Changes) string {
	s := t.session
	field := s.NextMissingField()
	if field == sessions.FieldNone {
		// A concern is known but no doctor could be matched.
		field = sessions.FieldDoctor
	}

	var question, ack string
	if !changes.Any() && s.LastAskedField == field {
		question = e.composer.Rephrase(t.lang, field, s.LastPrompt)
	} else {
		previous := ""
		if s.LastAskedField == field {
			previous = s.LastPrompt
		}
		question = e.composer.Question(t.lang, field, previous)
		ack = e.composer.Acknowledge(t.lang, s, changes)
	}
	s.LastAskedField = field
	s.LastPrompt = question
	if ack == "" {
		return question
	}
	return ack + " " + question
}

func (e *Engine) scheduleReply(ctx context.Context, t *turn) (string, error) {
	s := t.session
	doc, err := e.doctor(ctx, s.DoctorID)
	if err != nil {
		return "", err
	}
	slots, err := e.resolver.AlternativeTimes(ctx, s.DoctorID, e.targetDate(t), "")
	if err != nil {
		return "", err
	}
	var date *time.Time
	if s.HasDate() {
		d := s.AppointmentDate
		date = &d
	}
	reply, asked := e.composer.ScheduleReply(t.lang, doc, date, slots, s.HasTime())
	if asked != sessions.FieldNone {
		s.LastAskedField = asked
		s.LastPrompt = ""
	}
	return reply, nil
}

func (e *Engine) conflict(ctx context.Context, t *turn, avail scheduling.Availability) (string, error) {
	s := t.session
	e.metrics.ObserveAvailabilityConflict(string(avail.Reason))
	t.logger.Info("requested slot unavailable",
		"doctor_id", s.DoctorID,
		"date", appointments.DateKey(s.AppointmentDate),
		"time", s.AppointmentTime,
		"reason", avail.Reason,
	)

	doc, err := e.doctor(ctx, s.DoctorID)
	if err != nil {
		return "", err
	}
	times, err := e.resolver.AlternativeTimes(ctx, s.DoctorID, s.AppointmentDate, s.AppointmentTime)
	if err != nil {
		return "", err
	}
	docs, err := e.resolver.AlternativeDoctors(ctx, s.DoctorID, s.AppointmentDate, s.AppointmentTime)
	if err != nil {
		return "", err
	}
	c := Conflict{Doctor: doc, Availability: avail, AlternativeTimes: times, AlternativeDocs: docs}
	if avail.Reason == scheduling.ReasonDayOff {
		if next, ok := scheduling.NextAvailableDay(doc, s.AppointmentDate); ok {
			c.NextDay = &next
		}
	}
	s.State = sessions.StateSuggestingAlternatives
	s.LastAskedField = sessions.FieldTime
	s.LastPrompt = ""
	return e.composer.Conflict(t.lang, c), nil
}

// confirm handles the caller's answer to the confirmation summary.
func (e *Engine) confirm(ctx context.Context, t *turn) (string, error) {
	s := t.session
	if cancelKeywords.in(t.lower) {
		s.State = sessions.StateCompleted
		t.done = true
		e.metrics.ObserveBookingOutcome("cancelled")
		t.logger.Info("booking cancelled")
		return e.composer.Cancelled(t.lang), nil
	}
	if !s.Complete() {
		s.State = sessions.StateCollectingInfo
		return e.composer.ProvideAll(t.lang), nil
	}
	if !confirmKeywords.in(t.lower) {
		doc, err := e.doctor(ctx, s.DoctorID)
		if err != nil {
			return "", err
		}
		s.State = sessions.StateConfirming
		return e.composer.Summary(t.lang, s, doc), nil
	}
	return e.book(ctx, t)
}

func (e *Engine) book(ctx context.Context, t *turn) (string, error) {
	s := t.session

	avail, err := e.resolver.CheckAvailability(ctx, s.DoctorID, s.AppointmentDate, s.AppointmentTime)
	if err != nil {
		return "", err
	}
	if !avail.Available {
		return e.conflict(ctx, t, avail)
	}

	appt, err := e.ledger.Create(ctx, appointments.Appointment{
		PatientName:  s.PatientName,
		PatientPhone: s.PatientPhone,
		PatientAge:   s.PatientAge,
		DoctorID:     s.DoctorID,
		Date:         appointments.DateKey(s.AppointmentDate),
		Time:         s.AppointmentTime,
		Status:       appointments.StatusScheduled,
		Reason:       s.Problem,
	})
	if errors.Is(err, appointments.ErrSlotTaken) {
		return e.conflict(ctx, t, scheduling.Availability{Reason: scheduling.ReasonSlotBooked})
	}
	if err != nil {
		e.metrics.ObserveBookingOutcome("failed")
		t.logger.Error("appointment create failed", "error", err)
		s.State = sessions.StateConfirming
		return e.composer.BookingFailed(t.lang), nil
	}

	s.State = sessions.StateCompleted
	t.done = true
	t.appointmentID = appt.ID
	e.metrics.ObserveBookingOutcome("booked")
	t.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"doctor_id", appt.DoctorID,
		"date", appt.Date,
		"time", appt.Time,
	)
	e.notify(ctx, t, *appt)
	return e.composer.Booked(t.lang, appt.ID), nil
}

func (e *Engine) notify(ctx context.Context, t *turn, appt appointments.Appointment) {
	if e.observer == nil {
		return
	}
	doc, err := e.doctor(ctx, appt.DoctorID)
	if err != nil || doc == nil {
		t.logger.Warn("booking observer skipped, doctor lookup failed", "error", err)
		return
	}
	if err := e.observer.AppointmentBooked(ctx, appt, *doc); err != nil {
		t.logger.Warn("booking observer failed", "appointment_id", appt.ID, "error", err)
	}
}

// ensureDoctorAssigned picks a doctor for a known department or problem. It
// is idempotent and leaves an explicitly chosen doctor alone.
func (e *Engine) ensureDoctorAssigned(ctx context.Context, s *sessions.Session) error {
	if s.DoctorID != 0 || (s.Department == "" && s.Problem == "") {
		return nil
	}
	spec := doctors.Specialization(s.Department)
	if spec == "" {
		spec = doctors.GeneralPhysician
		if mapped, ok := DepartmentFor(s.Problem); ok {
			spec = mapped
		}
	}

	candidates, err := e.directory.FindBySpecialization(ctx, spec)
	if err != nil {
		return fmt.Errorf("booking: doctors for %s: %w", spec, err)
	}
	if len(candidates) == 0 && spec != doctors.GeneralPhysician {
		if candidates, err = e.directory.FindBySpecialization(ctx, doctors.GeneralPhysician); err != nil {
			return fmt.Errorf("booking: general physicians: %w", err)
		}
	}
	if len(candidates) == 0 {
		if candidates, err = e.directory.ListAvailable(ctx); err != nil {
			return fmt.Errorf("booking: available doctors: %w", err)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	s.DoctorID = candidates[0].ID
	s.Department = string(candidates[0].Specialization)
	return nil
}

func (e *Engine) doctor(ctx context.Context, id int64) (*doctors.Doctor, error) {
	doc, err := e.directory.FindByID(ctx, id)
	if errors.Is(err, doctors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("booking: load doctor %d: %w", id, err)
	}
	return doc, nil
}

func (e *Engine) targetDate(t *turn) time.Time {
	if t.session.HasDate() {
		return t.session.AppointmentDate
	}
	return t.today
}

func joinParagraphs(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
