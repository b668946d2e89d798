package booking

import (
	"strings"
	"unicode/utf8"

	"github.com/tvamit/aya-helthcare-demo/internal/doctors"
)

// keywords matches a fixed phrase list against lowercased text. Latin phrases
// must sit on word boundaries (an optional plural "s" is tolerated) so "no"
// does not fire inside "know" and "ear" does not fire inside "heart".
// Devanagari phrases match as substrings.
type keywords []string

func (k keywords) in(lower string) bool {
	_, ok := k.first(lower)
	return ok
}

func (k keywords) first(lower string) (string, bool) {
	for _, kw := range k {
		if containsKeyword(lower, kw, true) {
			return kw, true
		}
	}
	return "", false
}

func containsKeyword(lower, kw string, allowPlural bool) bool {
	if kw == "" {
		return false
	}
	if !isASCII(kw) {
		return strings.Contains(lower, kw)
	}
	for offset := 0; offset < len(lower); {
		idx := strings.Index(lower[offset:], kw)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(kw)
		if boundaryBefore(lower, start) && boundaryAfter(lower, end, allowPlural) {
			return true
		}
		offset = start + 1
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	return i == 0 || !isWordByte(s[i-1])
}

func boundaryAfter(s string, i int, allowPlural bool) bool {
	if i >= len(s) || !isWordByte(s[i]) {
		return true
	}
	return allowPlural && s[i] == 's' && (i+1 == len(s) || !isWordByte(s[i+1]))
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

var (
	bookingKeywords = keywords{
		"appointment", "book", "booking", "schedule", "appointment चाहिए",
		"appointment book", "बुक करना", "डॉक्टर मिलेगा", "consultation",
	}

	// Used by the confirmation handler once the summary has been shown.
	confirmKeywords = keywords{
		"yes", "हां", "हाँ", "confirm", "book", "ok", "ठीक है", "sahi", "correct",
		"alright", "all right", "right", "sure", "go ahead", "proceed",
		"please do", "do it", "book it", "confirm it", "thank you", "thanks",
		"fine", "good", "perfect", "absolutely", "definitely", "of course",
		"yeah", "yep", "yup", "okay", "okey", "done", "agreed",
	}

	// Accepting before the summary was shown; scheduling verbs are excluded so
	// "book it for Rahul" still gets a summary first.
	earlyConfirmKeywords = keywords{
		"yes", "हां", "हाँ", "confirm", "ok", "ठीक है", "sahi", "correct",
		"alright", "all right", "sure", "go ahead", "proceed", "please do",
		"do it", "confirm it", "thank you", "thanks", "perfect", "absolutely",
		"definitely", "of course", "yeah", "yep", "yup", "okay", "okey", "agreed",
	}

	cancelKeywords = keywords{"no", "नहीं", "cancel", "रद्द", "not now", "maybe later"}

	clarificationKeywords = keywords{
		"what information", "what info", "what do you need", "what details",
		"क्या जानकारी", "कौन सी जानकारी", "क्या चाहिए",
	}

	scheduleQueryKeywords = keywords{
		"tell me about the time", "tell me about time", "what time",
		"when is doctor available", "doctor schedule", "doctor timing",
		"available time", "when does doctor work", "doctor available time",
		"समय बताओ", "डॉक्टर का समय", "कब उपलब्ध", "schedule बताओ",
		"timing बताओ", "कौन से दिन", "कब मिलेगा",
	}

	problemKeywords = keywords{
		"problem", "issue", "symptom", "pain", "problem है", "दिक्कत",
		"तकलीफ", "hurt", "hurting", "दर्द",
	}

	// Scheduling verbs reopen an already captured date or time.
	reschedulingVerbs = []string{"schedule", "book", "रखो", "करो", "बुक"}
)

type departmentKeyword struct {
	keyword        string
	specialization doctors.Specialization
}

// departmentMap is scanned in order; the first keyword found wins.
var departmentMap = []departmentKeyword{
	{"dental", doctors.Dentist},
	{"dentist", doctors.Dentist},
	{"tooth", doctors.Dentist},
	{"teeth", doctors.Dentist},
	{"दांत", doctors.Dentist},
	{"cardiology", doctors.Cardiologist},
	{"cardiac", doctors.Cardiologist},
	{"heart", doctors.Cardiologist},
	{"chest", doctors.Cardiologist},
	{"दिल", doctors.Cardiologist},
	{"सीने", doctors.Cardiologist},
	{"neurology", doctors.Neurologist},
	{"neurological", doctors.Neurologist},
	{"brain", doctors.Neurologist},
	{"head", doctors.Neurologist},
	{"headache", doctors.Neurologist},
	{"सिरदर्द", doctors.Neurologist},
	{"orthopedic", doctors.Orthopedic},
	{"bone", doctors.Orthopedic},
	{"fracture", doctors.Orthopedic},
	{"joint", doctors.Orthopedic},
	{"pediatric", doctors.Pediatrician},
	{"pediatrician", doctors.Pediatrician},
	{"child", doctors.Pediatrician},
	{"baby", doctors.Pediatrician},
	{"बच्चा", doctors.Pediatrician},
	{"ent", doctors.ENT},
	{"ear", doctors.ENT},
	{"nose", doctors.ENT},
	{"throat", doctors.ENT},
	{"dermatology", doctors.Dermatologist},
	{"dermatologist", doctors.Dermatologist},
	{"skin", doctors.Dermatologist},
	{"rash", doctors.Dermatologist},
	{"त्वचा", doctors.Dermatologist},
}

// DepartmentFor maps symptom or department words in text to a specialization.
func DepartmentFor(text string) (doctors.Specialization, bool) {
	lower := strings.ToLower(text)
	for _, entry := range departmentMap {
		if containsKeyword(lower, entry.keyword, true) {
			return entry.specialization, true
		}
	}
	return "", false
}

// IsBookingIntent reports whether text asks to book or schedule a visit.
func IsBookingIntent(text string) bool {
	return bookingKeywords.in(strings.ToLower(text))
}

func mentionsRescheduling(lower string) bool {
	for _, verb := range reschedulingVerbs {
		if strings.Contains(lower, verb) {
			return true
		}
	}
	return false
}
