package booking

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/tvamit/aya-helthcare-demo/internal/doctors"
	"github.com/tvamit/aya-helthcare-demo/internal/scheduling"
	"github.com/tvamit/aya-helthcare-demo/internal/sessions"
)

// Picker chooses one of n phrasings.
type Picker interface {
	Pick(n int) int
}

// RandomPicker picks uniformly at random.
type RandomPicker struct{}

func (RandomPicker) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	return rand.IntN(n)
}

// FirstPicker always picks the first candidate.
type FirstPicker struct{}

func (FirstPicker) Pick(int) int { return 0 }

// Composer renders every user-visible booking reply in English or Hindi.
type Composer struct {
	picker Picker
}

func NewComposer(picker Picker) *Composer {
	if picker == nil {
		picker = RandomPicker{}
	}
	return &Composer{picker: picker}
}

func (c *Composer) pick(options []string, avoid string) string {
	candidates := options
	if avoid != "" {
		filtered := make([]string, 0, len(options))
		for _, o := range options {
			if o != avoid {
				filtered = append(filtered, o)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	i := c.picker.Pick(len(candidates))
	if i < 0 || i >= len(candidates) {
		i = 0
	}
	return candidates[i]
}

func (c *Composer) variant(v variants, lang sessions.Language, avoid string) string {
	options := v[lang]
	if len(options) == 0 {
		options = v[sessions.LanguageEnglish]
	}
	return c.pick(options, avoid)
}

// Question asks for field, avoiding the previous prompt text.
func (c *Composer) Question(lang sessions.Language, field sessions.Field, previous string) string {
	return c.variant(questions[field], lang, previous)
}

// Rephrase re-asks for field with wording different from previous.
func (c *Composer) Rephrase(lang sessions.Language, field sessions.Field, previous string) string {
	return c.variant(rephrasings[field], lang, previous)
}

// Acknowledge confirms the most relevant value learned this turn. It returns
// an empty string when nothing worth acknowledging changed.
func (c *Composer) Acknowledge(lang sessions.Language, s *sessions.Session, changes sessions.Changes) string {
	switch {
	case changes.Date && changes.Time:
		return fmt.Sprintf(c.variant(dateTimeAcks, lang, ""), FormatDate(s.AppointmentDate), DisplayTime(s.AppointmentTime))
	case changes.Date:
		return fmt.Sprintf(c.variant(dateAcks, lang, ""), FormatDate(s.AppointmentDate))
	case changes.Time:
		return fmt.Sprintf(c.variant(timeAcks, lang, ""), DisplayTime(s.AppointmentTime))
	case changes.Name:
		return fmt.Sprintf(c.variant(nameAcks, lang, ""), s.PatientName)
	case changes.Age:
		return fmt.Sprintf(c.variant(ageAcks, lang, ""), s.PatientAge)
	case changes.Phone:
		return fmt.Sprintf(c.variant(phoneAcks, lang, ""), DisplayPhone(s.PatientPhone))
	}
	return ""
}

// StillNeed lists the fields the caller has not supplied yet.
func (c *Composer) StillNeed(lang sessions.Language, missing []sessions.Field) string {
	labels := make([]string, 0, len(missing))
	for _, f := range missing {
		labels = append(labels, missingFieldLabels[f].in(lang))
	}
	return fmt.Sprintf(msgStillNeed.in(lang), strings.Join(labels, ", "))
}

// Summary is the yes/no confirmation prompt shown before booking.
func (c *Composer) Summary(lang sessions.Language, s *sessions.Session, doc *doctors.Doctor) string {
	department := s.Department
	if department == "" {
		department = msgSpecialist.in(lang)
	}
	name := msgDoctorWord.in(lang)
	if doc != nil {
		name = doc.Name
	}
	return fmt.Sprintf(msgSummary.in(lang), name, department, s.PatientName, s.PatientAge,
		s.PatientPhone, FormatDate(s.AppointmentDate), s.AppointmentTime)
}

func (c *Composer) Booked(lang sessions.Language, id int64) string {
	return fmt.Sprintf(msgBooked.in(lang), id)
}

func (c *Composer) BookingFailed(lang sessions.Language) string { return msgBookingFailed.in(lang) }
func (c *Composer) Cancelled(lang sessions.Language) string     { return msgCancelled.in(lang) }
func (c *Composer) ProvideAll(lang sessions.Language) string    { return msgProvideAll.in(lang) }
func (c *Composer) TurnFailed(lang sessions.Language) string    { return msgTurnFailed.in(lang) }

// Schedule renders a doctor's weekly timetable, grouping days that share a
// window: "Dr. X works on Mon, Wed, Fri: 9:00 AM - 5:00 PM".
func (c *Composer) Schedule(lang sessions.Language, doc *doctors.Doctor) string {
	if doc == nil || len(doc.Schedule) == 0 {
		name := msgDoctorWord.in(lang)
		if doc != nil {
			name = doc.Name
		}
		return fmt.Sprintf(msgNoSchedule.in(lang), name)
	}

	type group struct {
		start, end string
		days       []string
	}
	var groups []*group
	index := make(map[string]*group)
	for _, entry := range doc.Schedule {
		key := entry.StartTime + "-" + entry.EndTime
		g, ok := index[key]
		if !ok {
			g = &group{start: entry.StartTime, end: entry.EndTime}
			index[key] = g
			groups = append(groups, g)
		}
		g.days = append(g.days, shortDay(entry.Day, lang))
	}

	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		parts = append(parts, fmt.Sprintf("%s: %s - %s", strings.Join(g.days, ", "), DisplayTime(g.start), DisplayTime(g.end)))
	}
	return fmt.Sprintf(msgWorksOn.in(lang), doc.Name, strings.Join(parts, "; "))
}

func shortDay(day string, lang sessions.Language) string {
	if t, ok := shortDayNames[day]; ok {
		return t.in(lang)
	}
	if len(day) > 3 {
		return day[:3]
	}
	return day
}

// ScheduleReply answers "when is the doctor available". date is nil when the
// caller has not picked a day yet, in which case slots are for today.
func (c *Composer) ScheduleReply(lang sessions.Language, doc *doctors.Doctor, date *time.Time, slots []string, hasTime bool) (string, sessions.Field) {
	var b strings.Builder
	b.WriteString(c.Schedule(lang, doc))

	asked := sessions.FieldNone
	switch {
	case date != nil && len(slots) > 0:
		b.WriteString("\n" + fmt.Sprintf(msgAvailableTimes.in(lang), FormatDate(*date), strings.Join(slots, ", ")))
	case date != nil:
		b.WriteString("\n" + fmt.Sprintf(msgNoSlots.in(lang), FormatDate(*date)))
	case len(slots) > 0:
		b.WriteString("\n" + fmt.Sprintf(msgAvailableTimes.in(lang), msgToday.in(lang), strings.Join(slots, ", ")))
	}

	switch {
	case date == nil:
		b.WriteString("\n" + msgWhichDay.in(lang))
		asked = sessions.FieldDate
	case !hasTime && len(slots) > 0:
		b.WriteString("\n" + msgWhichSlot.in(lang))
		asked = sessions.FieldTime
	}
	return b.String(), asked
}

// Announcement introduces the doctor picked from the caller's concern.
// It returns the follow-up field to ask, if any.
func (c *Composer) Announcement(lang sessions.Language, doc *doctors.Doctor, s *sessions.Session, slots []string) (string, sessions.Field) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(c.variant(doctorAnnouncements, lang, ""), doc.Name, s.Department))

	dateText := msgToday.in(lang)
	if s.HasDate() {
		dateText = FormatDate(s.AppointmentDate)
	}

	switch {
	case s.HasDate() && s.HasTime():
		b.WriteString("\n" + fmt.Sprintf(msgAppointmentOn.in(lang), dateText, s.AppointmentTime))
		return b.String(), sessions.FieldNone
	case len(slots) > 0:
		b.WriteString("\n" + fmt.Sprintf(msgAvailableTimes.in(lang), dateText, strings.Join(slots, ", ")))
	default:
		b.WriteString("\n" + c.Schedule(lang, doc) + "\n" + msgChooseDay.in(lang))
	}

	if !s.HasDate() {
		b.WriteString("\n" + msgWhenDateAndTime.in(lang))
		return b.String(), sessions.FieldDate
	}
	b.WriteString("\n" + fmt.Sprintf(msgWhatTimeOn.in(lang), dateText))
	return b.String(), sessions.FieldTime
}

// Conflict is everything known about a rejected slot.
type Conflict struct {
	Doctor           *doctors.Doctor
	Availability     scheduling.Availability
	NextDay          *time.Time
	AlternativeTimes []string
	AlternativeDocs  []scheduling.AlternativeDoctor
}

// Conflict explains why a slot cannot be booked and offers alternatives.
func (c *Composer) Conflict(lang sessions.Language, conflict Conflict) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(msgSorry.in(lang), c.Reason(lang, conflict.Availability)))

	if conflict.Availability.Reason == scheduling.ReasonDayOff {
		b.WriteString("\n" + c.Schedule(lang, conflict.Doctor))
		if conflict.NextDay != nil && conflict.Doctor != nil {
			b.WriteString("\n\n" + fmt.Sprintf(msgSuggestion.in(lang), conflict.Doctor.Name, FormatDate(*conflict.NextDay)))
		}
	}
	if len(conflict.AlternativeTimes) > 0 {
		times := conflict.AlternativeTimes
		if len(times) > 3 {
			times = times[:3]
		}
		b.WriteString("\n" + fmt.Sprintf(msgAltTimes.in(lang), strings.Join(times, ", ")))
	}
	if len(conflict.AlternativeDocs) > 0 {
		names := make([]string, 0, len(conflict.AlternativeDocs))
		for _, alt := range conflict.AlternativeDocs {
			names = append(names, alt.Doctor.Name)
		}
		b.WriteString("\n" + fmt.Sprintf(msgAltDoctors.in(lang), strings.Join(names, ", ")))
	}
	b.WriteString("\n" + msgWhichTimeOrDoc.in(lang))
	return b.String()
}

// Reason localizes an availability failure.
func (c *Composer) Reason(lang sessions.Language, a scheduling.Availability) string {
	switch a.Reason {
	case scheduling.ReasonDoctorUnavailable:
		return msgReasonUnavail.in(lang)
	case scheduling.ReasonDayOff:
		return msgReasonDayOff.in(lang)
	case scheduling.ReasonOutsideHours:
		return fmt.Sprintf(msgReasonHours.in(lang), a.Window.StartTime, a.Window.EndTime)
	case scheduling.ReasonSlotBooked:
		return msgReasonBooked.in(lang)
	}
	return ""
}

// FormatDate renders a date as "Monday, January 5".
func FormatDate(t time.Time) string {
	return t.Format("Monday, January 2")
}

// DisplayTime renders "HH:MM[:SS]" as "H:MM AM/PM". Unparseable input is
// returned unchanged.
func DisplayTime(clock string) string {
	parts := strings.Split(clock, ":")
	if len(parts) < 2 {
		return clock
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return clock
	}
	meridiem := "AM"
	if hour >= 12 {
		meridiem = "PM"
	}
	hour12 := hour % 12
	if hour12 == 0 {
		hour12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour12, minute, meridiem)
}

// DisplayPhone groups a ten digit number as "98765 43210".
func DisplayPhone(phone string) string {
	if len(phone) != 10 {
		return phone
	}
	return phone[:5] + " " + phone[5:]
}
