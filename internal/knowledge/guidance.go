package knowledge

import (
	"encoding/json"
	"strings"
)

// symptomOrder is the priority in which complaints are checked.
var symptomOrder = []string{"chestPain", "fever", "headache", "stomachAche", "breathingProblem", "cough", "injury", "diabetes"}

var symptomTriggers = map[string][]string{
	"chestPain":        {"chest", "सीने", "दिल", "heart"},
	"fever":            {"fever", "बुखार", "temperature"},
	"headache":         {"headache", "सिरदर्द", "head pain"},
	"stomachAche":      {"stomach", "पेट", "pet dard"},
	"breathingProblem": {"breath", "सांस", "sans", "breathing"},
	"cough":            {"cough", "खांसी", "khansi"},
	"injury":           {"injury", "चोट", "accident", "fracture"},
	"diabetes":         {"diabetes", "sugar", "डायबिटीज"},
}

// SymptomGuidance returns triage advice for the first complaint found in
// query, rendered as indented JSON.
func (k *Knowledge) SymptomGuidance(query string) (string, bool) {
	lower := strings.ToLower(query)
	for _, key := range symptomOrder {
		if !containsAny(lower, symptomTriggers[key]) {
			continue
		}
		s, ok := k.MedicalGuidance.Symptoms[key]
		if !ok {
			continue
		}
		out, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return "", false
		}
		return string(out), true
	}
	return "", false
}

var realTimeTriggers = []string{
	"available", "abhi", "currently", "right now", "kitne bed", "bed available",
	"doctor available", "free", "खाली", "उपलब्ध", "अभी",
}

// NeedsRealTimeData reports whether a query asks about current bed or
// doctor availability.
func NeedsRealTimeData(query string) bool {
	return containsAny(strings.ToLower(query), realTimeTriggers)
}
