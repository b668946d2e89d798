package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tvamit/aya-helthcare-demo/internal/doctors"
)

const (
	slotMinutes        = 30
	maxAlternativeTime = 5
	maxAlternativeDocs = 3
	nextDaySearchDays  = 14
)

// Reason classifies why a slot cannot be booked.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonDoctorUnavailable Reason = "doctor_unavailable"
	ReasonDayOff            Reason = "day_off"
	ReasonOutsideHours      Reason = "outside_hours"
	ReasonSlotBooked        Reason = "slot_booked"
)

// Availability is the outcome of a slot check. Window is set for
// ReasonOutsideHours.
type Availability struct {
	Available bool
	Reason    Reason
	Window    doctors.ScheduleEntry
}

// Message renders the English reason text.
func (a Availability) Message() string {
	switch a.Reason {
	case ReasonDoctorUnavailable:
		return "Doctor is currently unavailable"
	case ReasonDayOff:
		return "Doctor does not work on this day"
	case ReasonOutsideHours:
		return fmt.Sprintf("Doctor is available from %s to %s", a.Window.StartTime, a.Window.EndTime)
	case ReasonSlotBooked:
		return "Time slot is already booked"
	}
	return ""
}

// AlternativeDoctor is another doctor free at the requested slot.
type AlternativeDoctor struct {
	Doctor doctors.Doctor
	Time   string
}

// Ledger is the part of the appointment store the resolver reads.
type Ledger interface {
	ExistsAt(ctx context.Context, doctorID int64, date time.Time, clock string) (bool, error)
	BookedTimes(ctx context.Context, doctorID int64, date time.Time) ([]string, error)
}

// Resolver answers availability questions against the doctor directory and
// the appointment ledger.
type Resolver struct {
	directory doctors.Directory
	ledger    Ledger
	now       func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the resolver clock.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

func NewResolver(directory doctors.Directory, ledger Ledger, opts ...Option) *Resolver {
	if directory == nil {
		panic("scheduling: doctor directory required")
	}
	if ledger == nil {
		panic("scheduling: appointment ledger required")
	}
	r := &Resolver{directory: directory, ledger: ledger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CheckAvailability verifies, in order, that the doctor is active, works on
// the date's weekday, covers the time within [start, end) and has no
// Scheduled appointment at that exact slot.
func (r *Resolver) CheckAvailability(ctx context.Context, doctorID int64, date time.Time, clock string) (Availability, error) {
	doc, err := r.directory.FindByID(ctx, doctorID)
	if errors.Is(err, doctors.ErrNotFound) {
		return Availability{Reason: ReasonDoctorUnavailable}, nil
	}
	if err != nil {
		return Availability{}, fmt.Errorf("scheduling: load doctor: %w", err)
	}
	return r.check(ctx, doc, date, clock)
}

func (r *Resolver) check(ctx context.Context, doc *doctors.Doctor, date time.Time, clock string) (Availability, error) {
	if doc == nil || !doc.Available {
		return Availability{Reason: ReasonDoctorUnavailable}, nil
	}
	entry, ok := doc.ScheduleFor(date.Weekday())
	if !ok {
		return Availability{Reason: ReasonDayOff}, nil
	}
	requested, err := doctors.ClockMinutes(clock)
	if err != nil {
		return Availability{}, fmt.Errorf("scheduling: %w", err)
	}
	start, end, err := entry.Window()
	if err != nil {
		return Availability{}, fmt.Errorf("scheduling: doctor %d: %w", doc.ID, err)
	}
	if requested < start || requested >= end {
		return Availability{Reason: ReasonOutsideHours, Window: entry}, nil
	}
	booked, err := r.ledger.ExistsAt(ctx, doc.ID, date, clock)
	if err != nil {
		return Availability{}, fmt.Errorf("scheduling: check slot: %w", err)
	}
	if booked {
		return Availability{Reason: ReasonSlotBooked}, nil
	}
	return Availability{Available: true}, nil
}

// AlternativeTimes lists up to five free 30-minute slots in the doctor's
// window on date. With a preferred time the slots are ordered by distance
// from it, otherwise ascending. Slots already past are skipped for today.
func (r *Resolver) AlternativeTimes(ctx context.Context, doctorID int64, date time.Time, preferred string) ([]string, error) {
	doc, err := r.directory.FindByID(ctx, doctorID)
	if errors.Is(err, doctors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling: load doctor: %w", err)
	}
	entry, ok := doc.ScheduleFor(date.Weekday())
	if !ok {
		return nil, nil
	}
	start, end, err := entry.Window()
	if err != nil {
		return nil, fmt.Errorf("scheduling: doctor %d: %w", doc.ID, err)
	}

	bookedList, err := r.ledger.BookedTimes(ctx, doc.ID, date)
	if err != nil {
		return nil, fmt.Errorf("scheduling: booked times: %w", err)
	}
	booked := make(map[string]struct{}, len(bookedList))
	for _, b := range bookedList {
		booked[b] = struct{}{}
	}

	earliest := -1
	now := r.now().In(date.Location())
	if sameDay(now, date) {
		earliest = now.Hour()*60 + now.Minute()
	}

	var slots []int
	for m := start; m < end; m += slotMinutes {
		if m <= earliest {
			continue
		}
		if _, taken := booked[FormatClock(m)]; taken {
			continue
		}
		slots = append(slots, m)
	}

	if preferred != "" {
		if pref, err := doctors.ClockMinutes(preferred); err == nil {
			sort.SliceStable(slots, func(i, j int) bool {
				return absInt(slots[i]-pref) < absInt(slots[j]-pref)
			})
		}
	}

	if len(slots) > maxAlternativeTime {
		slots = slots[:maxAlternativeTime]
	}
	out := make([]string, len(slots))
	for i, m := range slots {
		out[i] = FormatClock(m)
	}
	return out, nil
}

// AlternativeDoctors returns up to three other doctors with the same
// specialization who are free at the same date and time.
func (r *Resolver) AlternativeDoctors(ctx context.Context, doctorID int64, date time.Time, clock string) ([]AlternativeDoctor, error) {
	doc, err := r.directory.FindByID(ctx, doctorID)
	if errors.Is(err, doctors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling: load doctor: %w", err)
	}
	candidates, err := r.directory.FindBySpecialization(ctx, doc.Specialization)
	if err != nil {
		return nil, fmt.Errorf("scheduling: candidates: %w", err)
	}

	var out []AlternativeDoctor
	for i := range candidates {
		candidate := candidates[i]
		if candidate.ID == doc.ID {
			continue
		}
		avail, err := r.check(ctx, &candidate, date, clock)
		if err != nil {
			return nil, err
		}
		if !avail.Available {
			continue
		}
		out = append(out, AlternativeDoctor{Doctor: candidate, Time: clock})
		if len(out) == maxAlternativeDocs {
			break
		}
	}
	return out, nil
}

// NextAvailableDay scans the fourteen days after from and returns the first
// one on which the doctor works.
func NextAvailableDay(doc *doctors.Doctor, from time.Time) (time.Time, bool) {
	if doc == nil || len(doc.Schedule) == 0 {
		return time.Time{}, false
	}
	day := StartOfDay(from)
	for i := 1; i <= nextDaySearchDays; i++ {
		candidate := day.AddDate(0, 0, i)
		if doc.WorksOn(candidate.Weekday()) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// FormatClock renders minutes since midnight as HH:MM:00.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d:00", minutes/60, minutes%60)
}

// StartOfDay truncates t to midnight in its location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
