package booking

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/tvamit/aya-helthcare-demo/internal/doctors"
	"github.com/tvamit/aya-helthcare-demo/internal/sessions"
)

// utterance is the read-only input every extraction rule sees.
type utterance struct {
	raw       string
	lower     string
	trimmed   string
	lastAsked sessions.Field
	today     time.Time
}

// rule is one independent pattern for a field; the first rule that yields a
// value wins.
type rule[T any] struct {
	name  string
	match func(u utterance) (T, bool)
}

func firstMatch[T any](rules []rule[T], u utterance) (T, string, bool) {
	for _, r := range rules {
		if v, ok := r.match(u); ok {
			return v, r.name, true
		}
	}
	var zero T
	return zero, "", false
}

// Extractor fills booking fields from free-form English, Hindi and Hinglish
// text. It holds no per-session state.
type Extractor struct {
	directory doctors.Directory
	names     []rule[string]
	ages      []rule[int]
	phones    []rule[string]
	dates     []rule[time.Time]
	times     []rule[string]
}

func NewExtractor(directory doctors.Directory) *Extractor {
	if directory == nil {
		panic("booking: doctor directory cannot be nil")
	}
	return &Extractor{
		directory: directory,
		names:     nameRules,
		ages:      ageRules,
		phones:    phoneRules,
		dates:     dateRules,
		times:     timeRules,
	}
}

// Extract writes every field it can find in text into s. today is the current
// calendar day at midnight in the hospital's time zone. Only directory lookups
// can fail.
func (e *Extractor) Extract(ctx context.Context, text string, s *sessions.Session, today time.Time) error {
	u := utterance{
		raw:       text,
		lower:     strings.ToLower(text),
		trimmed:   strings.TrimSpace(text),
		lastAsked: s.LastAskedField,
		today:     today,
	}

	if name, age, phone, ok := patientList(u); ok {
		if s.PatientName == "" {
			s.PatientName = name
		}
		if s.PatientAge == 0 {
			s.PatientAge = age
		}
		if s.PatientPhone == "" {
			s.PatientPhone = phone
		}
	}

	if s.PatientName == "" {
		if name, _, ok := firstMatch(e.names, u); ok {
			s.PatientName = name
		}
	}
	if s.PatientAge == 0 {
		if age, _, ok := firstMatch(e.ages, u); ok {
			s.PatientAge = age
		}
	}
	if s.PatientPhone == "" {
		if phone, ok := phoneFromDigits(u); ok {
			s.PatientPhone = phone
		} else if phone, _, ok := firstMatch(e.phones, u); ok {
			s.PatientPhone = phone
		}
	}

	reopen := s.State == sessions.StateSuggestingAlternatives || mentionsRescheduling(u.lower)
	if !s.HasDate() || reopen {
		if date, _, ok := firstMatch(e.dates, u); ok {
			s.AppointmentDate = date
		}
	}
	if !s.HasTime() || reopen {
		if clock, _, ok := firstMatch(e.times, u); ok {
			s.AppointmentTime = clock
		}
	}

	if s.Department == "" && s.Problem == "" {
		if spec, ok := DepartmentFor(u.lower); ok {
			s.Department = string(spec)
		}
		if problemKeywords.in(u.lower) {
			s.Problem = u.trimmed
		}
	}

	if s.DoctorID == 0 {
		doc, err := e.doctorByName(ctx, u)
		if err != nil {
			return err
		}
		if doc != nil {
			s.DoctorID = doc.ID
			s.Department = string(doc.Specialization)
		}
	}
	return nil
}

// --- name ---

var nameStopWords = map[string]bool{
	"and": true, "aur": true, "age": true, "phone": true, "mobile": true,
	"number": true, "my": true, "from": true, "years": true, "year": true,
	"calling": true, "i": true,
}

// Words that follow "I am" in sentences that are not introductions.
var notNames = map[string]bool{
	"a": true, "an": true, "the": true, "having": true, "suffering": true,
	"feeling": true, "looking": true, "not": true, "in": true, "at": true,
	"here": true, "calling": true, "interested": true, "sick": true,
	"fine": true, "good": true, "ok": true, "okay": true, "booking": true,
	"trying": true, "going": true, "want": true, "wanting": true, "very": true,
	"so": true, "still": true, "also": true, "available": true, "free": true,
	"busy": true, "sorry": true, "unable": true, "getting": true,
}

var (
	nameIsPattern   = regexp.MustCompile(`(?i)(?:\bname|मेरा नाम|नाम)\s*(?:is|है|:|)\s*([A-Za-z\s]+)`)
	iAmPattern      = regexp.MustCompile(`(?i)^(?:i am|i'm|मैं)\s+([A-Za-z\s]+)`)
	callMePattern   = regexp.MustCompile(`(?i)(?:call me|मुझे कहते हैं)\s+([A-Za-z\s]+)`)
	latinLetter     = regexp.MustCompile(`[A-Za-z]`)
	patientListExpr = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z ]*[A-Za-z])\s*,\s*(\d{1,3})\s*,\s*([\d\s\-+()]{10,})\s*$`)
)

var nameRules = []rule[string]{
	{name: "name-is", match: func(u utterance) (string, bool) { return captureName(nameIsPattern, u.raw, false) }},
	{name: "i-am", match: func(u utterance) (string, bool) { return captureName(iAmPattern, u.trimmed, true) }},
	{name: "call-me", match: func(u utterance) (string, bool) { return captureName(callMePattern, u.raw, false) }},
}

func captureName(re *regexp.Regexp, text string, introduction bool) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return cleanName(m[1], introduction)
}

// cleanName cuts a captured name at the first connector word and validates it.
func cleanName(captured string, introduction bool) (string, bool) {
	words := strings.Fields(captured)
	if len(words) == 0 {
		return "", false
	}
	if introduction && notNames[strings.ToLower(words[0])] {
		return "", false
	}
	var kept []string
	for _, w := range words {
		if nameStopWords[strings.ToLower(w)] {
			break
		}
		kept = append(kept, w)
	}
	name := strings.Join(kept, " ")
	if len(name) < 2 || !latinLetter.MatchString(name) {
		return "", false
	}
	return name, true
}

// patientList recognizes "Rahul, 45, 9876543210".
func patientList(u utterance) (string, int, string, bool) {
	m := patientListExpr.FindStringSubmatch(u.raw)
	if m == nil {
		return "", 0, "", false
	}
	name, ok := cleanName(m[1], false)
	if !ok {
		return "", 0, "", false
	}
	age, ok := validAge(m[2])
	if !ok {
		return "", 0, "", false
	}
	phone, ok := normalizePhone(m[3])
	if !ok {
		return "", 0, "", false
	}
	return name, age, phone, true
}

// --- age ---

var (
	ageIsPattern    = regexp.MustCompile(`(?i)(?:\bage|उम्र)\s*(?:is|है|:|)\s*(\d+)`)
	ageYearsPattern = regexp.MustCompile(`(?i)(\d+)\s*(?:years?|साल|वर्ष)`)
	iAmAgePattern   = regexp.MustCompile(`(?i)(?:i am|मैं)\s+(\d+)\s*(?:years?|साल)`)
	bareAgePattern  = regexp.MustCompile(`^(\d{1,3})$`)
)

var ageRules = []rule[int]{
	{name: "age-is", match: func(u utterance) (int, bool) { return captureAge(ageIsPattern, u.raw) }},
	{name: "n-years", match: func(u utterance) (int, bool) { return captureAge(ageYearsPattern, u.raw) }},
	{name: "i-am-n", match: func(u utterance) (int, bool) { return captureAge(iAmAgePattern, u.raw) }},
	{name: "bare-number", match: func(u utterance) (int, bool) {
		if u.lastAsked != sessions.FieldAge && !bareAgePattern.MatchString(u.trimmed) {
			return 0, false
		}
		return captureAge(bareAgePattern, u.trimmed)
	}},
}

func captureAge(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return validAge(m[1])
}

func validAge(digits string) (int, bool) {
	age, err := strconv.Atoi(digits)
	if err != nil || age <= 0 || age >= 150 {
		return 0, false
	}
	return age, true
}

// --- phone ---

var (
	groupedPhonePattern = regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)?\(?(\d{3})\)?[-.\s]?(\d{3})[-.\s]?(\d{4})`)
	keywordPhonePattern = regexp.MustCompile(`(?i)(?:phone|mobile|फोन|नंबर)\s*(?:is|है|:|number|no\.?)?\s*([+\d\s\-()]{10,})`)
	digitRunPattern     = regexp.MustCompile(`(\d{10,})`)
)

var phoneRules = []rule[string]{
	{name: "grouped", match: func(u utterance) (string, bool) {
		m := groupedPhonePattern.FindStringSubmatch(u.raw)
		if m == nil {
			return "", false
		}
		return normalizePhone(strings.Join(m[1:], ""))
	}},
	{name: "keyword", match: func(u utterance) (string, bool) {
		m := keywordPhonePattern.FindStringSubmatch(u.raw)
		if m == nil {
			return "", false
		}
		return normalizePhone(m[1])
	}},
	{name: "digit-run", match: func(u utterance) (string, bool) {
		m := digitRunPattern.FindStringSubmatch(u.raw)
		if m == nil {
			return "", false
		}
		return normalizePhone(m[1])
	}},
}

// phoneFromDigits accepts an utterance that is mostly a 10 or 11 digit
// number, or a 12 digit one carrying the 91 country code.
func phoneFromDigits(u utterance) (string, bool) {
	digits := onlyDigits(u.raw)
	switch {
	case len(digits) == 10, len(digits) == 11:
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
	default:
		return "", false
	}
	nonSpace := 0
	for _, r := range u.raw {
		if !unicode.IsSpace(r) {
			nonSpace++
		}
	}
	if nonSpace == 0 {
		return "", false
	}
	if float64(len(digits))/float64(nonSpace) < 0.6 && u.lastAsked != sessions.FieldPhone {
		return "", false
	}
	return digits[len(digits)-10:], true
}

// normalizePhone keeps the last ten digits of a 10 to 15 digit number, which
// drops a leading trunk zero or country code.
func normalizePhone(s string) (string, bool) {
	digits := onlyDigits(s)
	if len(digits) < 10 || len(digits) > 15 {
		return "", false
	}
	return digits[len(digits)-10:], true
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// --- date ---

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
	"रविवार": time.Sunday, "सोमवार": time.Monday, "मंगलवार": time.Tuesday,
	"बुधवार": time.Wednesday, "गुरुवार": time.Thursday, "शुक्रवार": time.Friday,
	"शनिवार": time.Saturday,
}

const weekdayAlternation = `monday|tuesday|wednesday|thursday|friday|saturday|sunday|सोमवार|मंगलवार|बुधवार|गुरुवार|शुक्रवार|शनिवार|रविवार`

var (
	dayAfterTomorrowPattern = regexp.MustCompile(`(?i)day after tomorrow|परसों`)
	todayPattern            = regexp.MustCompile(`(?i)today|आज`)
	tomorrowPattern         = regexp.MustCompile(`(?i)tomorrow|कल`)
	nextWeekdayPattern      = regexp.MustCompile(`(?i)(?:next|अगले|अगला)\s+(?:week\s+)?(` + weekdayAlternation + `)`)
	thisWeekdayPattern      = regexp.MustCompile(`(?i)(?:this|इस)\s+(?:week\s+)?(` + weekdayAlternation + `)`)
	bareWeekdayPattern      = regexp.MustCompile(`(?i)(` + weekdayAlternation + `)`)
	numericDatePattern      = regexp.MustCompile(`(\d{1,2})[-/](\d{1,2})[-/](\d{2,4})`)
	nextWeekPattern         = regexp.MustCompile(`(?i)(?:next|अगले)\s+(?:week|सप्ताह|हफ्ते)`)
	daysLaterPattern        = regexp.MustCompile(`(?i)\bin\s+(\d{1,2})\s+days?\b|(\d{1,2})\s*(?:days?|दिन)\s*(?:from now|later|बाद)`)
)

var dateRules = []rule[time.Time]{
	{name: "day-after-tomorrow", match: func(u utterance) (time.Time, bool) {
		return u.today.AddDate(0, 0, 2), dayAfterTomorrowPattern.MatchString(u.raw)
	}},
	{name: "today", match: func(u utterance) (time.Time, bool) {
		return u.today, todayPattern.MatchString(u.raw)
	}},
	{name: "tomorrow", match: func(u utterance) (time.Time, bool) {
		return u.today.AddDate(0, 0, 1), tomorrowPattern.MatchString(u.raw)
	}},
	{name: "next-weekday", match: func(u utterance) (time.Time, bool) {
		return weekdayDate(nextWeekdayPattern, u, func(offset int) bool { return offset <= 0 })
	}},
	{name: "this-weekday", match: func(u utterance) (time.Time, bool) {
		return weekdayDate(thisWeekdayPattern, u, func(offset int) bool { return offset < 0 })
	}},
	{name: "weekday", match: func(u utterance) (time.Time, bool) {
		return weekdayDate(bareWeekdayPattern, u, func(offset int) bool { return offset <= 0 })
	}},
	{name: "numeric", match: func(u utterance) (time.Time, bool) {
		m := numericDatePattern.FindStringSubmatch(u.raw)
		if m == nil {
			return time.Time{}, false
		}
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		return calendarDate(year, month, day, u.today.Location())
	}},
	{name: "next-week", match: func(u utterance) (time.Time, bool) {
		return u.today.AddDate(0, 0, 7), nextWeekPattern.MatchString(u.raw)
	}},
	{name: "days-later", match: func(u utterance) (time.Time, bool) {
		m := daysLaterPattern.FindStringSubmatch(u.raw)
		if m == nil {
			return time.Time{}, false
		}
		count := m[1]
		if count == "" {
			count = m[2]
		}
		n, err := strconv.Atoi(count)
		if err != nil || n <= 0 || n > 60 {
			return time.Time{}, false
		}
		return u.today.AddDate(0, 0, n), true
	}},
}

// weekdayDate resolves a captured weekday name relative to today, adding a
// week when roll reports the raw offset as too early.
func weekdayDate(re *regexp.Regexp, u utterance, roll func(offset int) bool) (time.Time, bool) {
	m := re.FindStringSubmatch(u.raw)
	if m == nil {
		return time.Time{}, false
	}
	target, ok := weekdays[strings.ToLower(m[1])]
	if !ok {
		return time.Time{}, false
	}
	offset := int(target) - int(u.today.Weekday())
	if roll(offset) {
		offset += 7
	}
	return u.today.AddDate(0, 0, offset), true
}

// calendarDate rejects dates such as 31/02 that do not exist.
func calendarDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// --- time ---

var (
	abbreviatedMeridiem = regexp.MustCompile(`(?i)(?:^|\D)(\d{1,2})\s*([ap])(?:\.?m\b\.?|\.|\b)`)
	partOfDayMeridiem   = regexp.MustCompile(`(?i)(?:morning|evening|afternoon)\s+(\d{1,2})\s*(am|pm)\b`)
	clockWithMeridiem   = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})\s*(am|pm)?`)
	compactMeridiem     = regexp.MustCompile(`(?i)(\d{1,2})(pm|am)\b`)
	spacedMeridiem      = regexp.MustCompile(`(?i)(\d{1,2})\s+(pm|am)\b`)
	atHourMeridiem      = regexp.MustCompile(`(?i)(?:at|पर|for)\s+(\d{1,2})\s*(pm|am)\b`)
	atClock             = regexp.MustCompile(`(?i)(?:at|पर|for)\s+(\d{1,2}):(\d{2})`)
	oClock              = regexp.MustCompile(`(?i)(?:at|पर)\s+(\d{1,2})\s*(?:o'clock|बजे)`)
	trailingClock       = regexp.MustCompile(`(?i)(?:^|\s)(?:(at|पर|for)\s*)?(\d{1,2})(?::?(\d{2}))?\s*(hours?|hrs?|बजे)?\s*$`)
)

var timeRules = []rule[string]{
	{name: "abbreviated-meridiem", match: meridiemRule(abbreviatedMeridiem, 1, 0, 2)},
	{name: "part-of-day", match: meridiemRule(partOfDayMeridiem, 1, 0, 2)},
	{name: "clock", match: meridiemRule(clockWithMeridiem, 1, 2, 3)},
	{name: "compact-meridiem", match: meridiemRule(compactMeridiem, 1, 0, 2)},
	{name: "spaced-meridiem", match: meridiemRule(spacedMeridiem, 1, 0, 2)},
	{name: "at-hour-meridiem", match: meridiemRule(atHourMeridiem, 1, 0, 2)},
	{name: "at-clock", match: meridiemRule(atClock, 1, 2, 0)},
	{name: "o-clock", match: meridiemRule(oClock, 1, 0, 0)},
	{name: "trailing-clock", match: func(u utterance) (string, bool) {
		m := trailingClock.FindStringSubmatch(u.trimmed)
		if m == nil {
			return "", false
		}
		// A trailing number is only a time when it is marked as one or when
		// the caller was just asked for a time.
		if m[1] == "" && m[4] == "" && u.lastAsked != sessions.FieldTime {
			return "", false
		}
		return clockFrom(m[2], m[3], "")
	}},
}

func meridiemRule(re *regexp.Regexp, hourIdx, minuteIdx, meridiemIdx int) func(u utterance) (string, bool) {
	return func(u utterance) (string, bool) {
		m := re.FindStringSubmatch(u.raw)
		if m == nil {
			return "", false
		}
		var minutes, meridiem string
		if minuteIdx > 0 {
			minutes = m[minuteIdx]
		}
		if meridiemIdx > 0 {
			meridiem = m[meridiemIdx]
		}
		return clockFrom(m[hourIdx], minutes, meridiem)
	}
}

// clockFrom converts hour, minute and an optional meridiem to HH:MM:00.
func clockFrom(hourText, minuteText, meridiem string) (string, bool) {
	hour, err := strconv.Atoi(hourText)
	if err != nil {
		return "", false
	}
	minute := 0
	if minuteText != "" {
		if minute, err = strconv.Atoi(minuteText); err != nil {
			return "", false
		}
	}
	switch strings.ToLower(meridiem) {
	case "p", "pm":
		if hour != 12 {
			hour += 12
		}
	case "a", "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d:00", hour, minute), true
}

// --- doctor name ---

var (
	doctorPrefixPattern = regexp.MustCompile(`(?i)(?:\bdr\.?|\bdoctor|डॉक्टर)\s+([A-Za-z][A-Za-z\s]+)`)
	doctorSuffixPattern = regexp.MustCompile(`(?i)^([A-Za-z][A-Za-z\s]+)\s+(?:doctor|dr\.?)`)
)

var doctorStopWords = map[string]bool{
	"for": true, "at": true, "on": true, "in": true, "the": true, "a": true,
	"an": true, "appointment": true, "appointments": true, "today": true,
	"tomorrow": true, "please": true, "and": true, "with": true, "to": true,
	"is": true, "available": true, "schedule": true, "timing": true, "ko": true,
	"se": true, "ka": true, "ki": true, "who": true, "which": true, "about": true,
}

// doctorByName resolves "Dr. Gupta ..." or "... Gupta doctor" against the
// directory. Prefix captures are shortened from the right and suffix captures
// from the left until a doctor matches.
func (e *Extractor) doctorByName(ctx context.Context, u utterance) (*doctors.Doctor, error) {
	if m := doctorPrefixPattern.FindStringSubmatch(u.raw); m != nil {
		words := strings.Fields(m[1])
		for n := len(words); n >= 1; n-- {
			doc, err := e.lookupDoctor(ctx, words[:n])
			if doc != nil || err != nil {
				return doc, err
			}
		}
	}
	if m := doctorSuffixPattern.FindStringSubmatch(u.trimmed); m != nil {
		words := strings.Fields(m[1])
		for start := 0; start < len(words); start++ {
			doc, err := e.lookupDoctor(ctx, words[start:])
			if doc != nil || err != nil {
				return doc, err
			}
		}
	}
	return nil, nil
}

func (e *Extractor) lookupDoctor(ctx context.Context, words []string) (*doctors.Doctor, error) {
	if len(words) == 0 || doctorStopWords[strings.ToLower(words[0])] || doctorStopWords[strings.ToLower(words[len(words)-1])] {
		return nil, nil
	}
	query := strings.Join(words, " ")
	if utf8.RuneCountInString(query) < 3 {
		return nil, nil
	}
	doc, err := e.directory.FindByName(ctx, query)
	if errors.Is(err, doctors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("booking: doctor lookup: %w", err)
	}
	return doc, nil
}
