package knowledge

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed hospital.json
var hospitalJSON []byte

// Department is one clinical department of the hospital.
type Department struct {
	Name        string          `json:"name"`
	HindiName   string          `json:"hindiName"`
	Description string          `json:"description"`
	Services    []string        `json:"services"`
	Floor       json.RawMessage `json:"floorNumber"`
	OPD         string          `json:"opd"`
}

// Symptom is triage guidance for a common complaint.
type Symptom struct {
	Hindi      string `json:"hindi"`
	Urgency    string `json:"urgency"`
	Advice     string `json:"advice"`
	Department string `json:"department"`
}

// Knowledge is the static hospital reference used when retrieval is
// unavailable and to seed the embedding index.
type Knowledge struct {
	HospitalInfo    json.RawMessage   `json:"hospitalInfo"`
	Departments     []Department      `json:"departments"`
	Doctors         []json.RawMessage `json:"doctors"`
	Facilities      []json.RawMessage `json:"facilities"`
	Services        []json.RawMessage `json:"services"`
	Policies        json.RawMessage   `json:"policies"`
	MedicalGuidance struct {
		Symptoms map[string]Symptom `json:"symptoms"`
	} `json:"medicalGuidance"`
	BookingProcess   json.RawMessage   `json:"bookingProcess"`
	EmergencyNumbers map[string]string `json:"emergencyNumbers"`
}

var loadDefault = sync.OnceValues(func() (*Knowledge, error) {
	return Parse(hospitalJSON)
})

// Default returns the embedded hospital knowledge.
func Default() (*Knowledge, error) {
	return loadDefault()
}

func Parse(data []byte) (*Knowledge, error) {
	var k Knowledge
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("knowledge: decode: %w", err)
	}
	return &k, nil
}

type section struct {
	title    string
	triggers []string
	render   func(k *Knowledge) string
}

var sections = []section{
	{
		title:    "DEPARTMENTS",
		triggers: []string{"department", "विभाग", "doctor", "specialist"},
		render:   func(k *Knowledge) string { return indent(k.Departments) },
	},
	{
		title:    "DOCTORS",
		triggers: []string{"department", "विभाग", "doctor", "specialist"},
		render:   func(k *Knowledge) string { return indent(k.Doctors) },
	},
	{
		title:    "FACILITIES & BEDS",
		triggers: []string{"bed", "room", "ward", "icu", "कमरा"},
		render:   func(k *Knowledge) string { return indent(k.Facilities) },
	},
	{
		title:    "SERVICES",
		triggers: []string{"service", "pharmacy", "lab", "ambulance", "test", "जांच"},
		render:   func(k *Knowledge) string { return indent(k.Services) },
	},
	{
		title:    "BOOKING PROCESS",
		triggers: []string{"book", "appointment", "admission", "कैसे"},
		render:   func(k *Knowledge) string { return indent(k.BookingProcess) },
	},
	{
		title:    "POLICIES",
		triggers: []string{"visit", "timing", "insurance", "policy"},
		render:   func(k *Knowledge) string { return indent(k.Policies) },
	},
}

// BuildContext selects the knowledge sections a query touches. Queries that
// match nothing get a short overview.
func (k *Knowledge) BuildContext(query string) string {
	lower := strings.ToLower(query)
	var b strings.Builder
	for _, s := range sections {
		if !containsAny(lower, s.triggers) {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n%s\n", s.title, s.render(k))
	}
	if b.Len() == 0 {
		return k.Overview()
	}
	return b.String()
}

// Overview lists departments and round-the-clock services.
func (k *Knowledge) Overview() string {
	names := make([]string, 0, len(k.Departments))
	for _, d := range k.Departments {
		names = append(names, d.Name)
	}
	return fmt.Sprintf("DEPARTMENTS: %s\nSERVICES: Pharmacy, Lab, Ambulance, Blood Bank (all 24/7)\nEMERGENCY: 24/7 Available",
		strings.Join(names, ", "))
}

// Documents flattens the knowledge into standalone passages for indexing.
func (k *Knowledge) Documents() []string {
	var docs []string
	docs = append(docs, "Hospital information: "+compact(k.HospitalInfo))
	for _, d := range k.Departments {
		docs = append(docs, fmt.Sprintf("Department %s (%s): %s. Services: %s. Floor: %s. OPD: %s.",
			d.Name, d.HindiName, d.Description, strings.Join(d.Services, ", "), strings.Trim(string(d.Floor), `"`), d.OPD))
	}
	for _, raw := range k.Doctors {
		docs = append(docs, "Doctor: "+compact(raw))
	}
	for _, raw := range k.Facilities {
		docs = append(docs, "Facility: "+compact(raw))
	}
	for _, raw := range k.Services {
		docs = append(docs, "Service: "+compact(raw))
	}
	docs = append(docs, "Policies: "+compact(k.Policies))
	docs = append(docs, "Booking process: "+compact(k.BookingProcess))
	for _, key := range symptomOrder {
		if s, ok := k.MedicalGuidance.Symptoms[key]; ok {
			docs = append(docs, fmt.Sprintf("Symptom %s (%s): urgency %s. %s Department: %s.", key, s.Hindi, s.Urgency, s.Advice, s.Department))
		}
	}
	numbers := make([]string, 0, len(k.EmergencyNumbers))
	for _, key := range []string{"mainReception", "ambulance", "emergency", "pharmacy", "diagnostics"} {
		if n, ok := k.EmergencyNumbers[key]; ok {
			numbers = append(numbers, key+": "+n)
		}
	}
	docs = append(docs, "Emergency numbers: "+strings.Join(numbers, ", "))
	return docs
}

func indent(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}

func compact(raw json.RawMessage) string {
	var out bytes.Buffer
	if err := json.Compact(&out, raw); err != nil {
		return string(raw)
	}
	return out.String()
}

func containsAny(lower string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
