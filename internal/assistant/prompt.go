package assistant

import (
	"fmt"
	"strings"

	"github.com/tvamit/aya-helthcare-demo/internal/hospital"
	"github.com/tvamit/aya-helthcare-demo/internal/sessions"
)

const (
	fallbackEnglish = "Sorry, I couldn't help. Please contact reception: %s"
	fallbackHindi   = "क्षमा करें, मैं आपकी मदद नहीं कर सका। कृपया reception से संपर्क करें: %s"
)

func fallbackText(lang sessions.Language, emergency string) string {
	if lang == sessions.LanguageHindi {
		return fmt.Sprintf(fallbackHindi, emergency)
	}
	return fmt.Sprintf(fallbackEnglish, emergency)
}

// realTime is the live occupancy snapshot quoted to the model.
type realTime struct {
	beds             hospital.Stats
	availableDoctors int
}

func (r realTime) String() string {
	return fmt.Sprintf("REAL-TIME DATA (Current Status):\n- Available Beds: ICU=%d, General=%d, Total=%d\n- Doctors Available Right Now: %d",
		r.beds.ICU, r.beds.General, r.beds.Total, r.availableDoctors)
}

type promptInput struct {
	language  sessions.Language
	context   string
	realTime  *realTime
	guidance  string
	emergency string
}

func systemPrompt(in promptInput) string {
	language, register := "English", "English"
	if in.language == sessions.LanguageHindi {
		language, register = "Hindi", "Hindi/Hinglish"
	}

	var b strings.Builder
	b.WriteString("You are Apollo Hospital's AI Assistant. You are helpful, knowledgeable, and professional.\n\n")
	b.WriteString("CRITICAL INSTRUCTIONS:\n")
	fmt.Fprintf(&b, "- Respond in %s (%s)\n", language, register)
	b.WriteString("- Be natural and conversational like a hospital receptionist\n")
	b.WriteString("- Keep responses concise but informative (50-80 words)\n")
	b.WriteString("- For emergencies, clearly state \"तुरंत Emergency में आएं\" or \"Go to Emergency immediately\"\n")
	b.WriteString("- Always provide specific details like floor numbers, timings, prices when relevant\n\n")

	b.WriteString("RELEVANT HOSPITAL INFORMATION:\n")
	b.WriteString(strings.TrimSpace(in.context))
	b.WriteString("\n\n")

	if in.realTime != nil {
		b.WriteString(in.realTime.String())
		b.WriteString("\n\n")
	}
	if in.guidance != "" {
		b.WriteString("MEDICAL GUIDANCE FOR USER'S SYMPTOM:\n")
		b.WriteString(in.guidance)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "EMERGENCY CONTACT: %s\n\n", in.emergency)
	b.WriteString("RESPONSE GUIDELINES:\n")
	b.WriteString("- If asking about symptoms: Provide medical guidance, urgency level, and which department to visit\n")
	b.WriteString("- If asking about doctors: Give doctor names, timings, fees, specialization\n")
	b.WriteString("- If asking about facilities: Provide floor number, timings, services available\n")
	b.WriteString("- If asking about booking: Explain step-by-step process\n")
	b.WriteString("- If asking current availability: Use REAL-TIME DATA above\n")
	b.WriteString("- Always be empathetic and helpful\n")
	return b.String()
}
