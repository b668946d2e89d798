package booking

import (
	"github.com/tvamit/aya-helthcare-demo/internal/sessions"
)

// variants holds interchangeable phrasings per language. Templates that take
// values use fmt verbs.
type variants map[sessions.Language][]string

var questions = map[sessions.Field]variants{
	sessions.FieldDoctor: {
		sessions.LanguageEnglish: {
			"Which doctor would you like to see, or what's your medical concern?",
			"What kind of doctor do you need? Or tell me about your problem.",
			"Who would you like to consult, or what health issue are you facing?",
		},
		sessions.LanguageHindi: {
			"आप किस डॉक्टर से मिलना चाहेंगे, या आपकी क्या समस्या है?",
			"आपको किस तरह के डॉक्टर की जरूरत है? या अपनी परेशानी बताएं।",
			"कौन से डॉक्टर से consult करना चाहेंगे, या आपकी health issue क्या है?",
		},
	},
	sessions.FieldDate: {
		sessions.LanguageEnglish: {
			"When would you like to schedule the appointment?",
			"What day works best for you?",
			"Which date would be convenient for you?",
		},
		sessions.LanguageHindi: {
			"आप कब अपॉइंटमेंट लेना चाहेंगे?",
			"कौन सा दिन आपके लिए ठीक रहेगा?",
			"किस तारीख पर आप आ सकते हैं?",
		},
	},
	sessions.FieldTime: {
		sessions.LanguageEnglish: {
			"What time would work for you?",
			"Which time slot would you prefer?",
			"What time suits you best?",
		},
		sessions.LanguageHindi: {
			"किस समय आप आ सकते हैं?",
			"कौन सा time slot आपको सूट करेगा?",
			"आपके लिए कौन सा समय बेहतर रहेगा?",
		},
	},
	sessions.FieldName: {
		sessions.LanguageEnglish: {
			"May I know your name, please?",
			"What should I call you?",
			"Could you tell me your name?",
		},
		sessions.LanguageHindi: {
			"कृपया अपना नाम बताएं?",
			"आपका नाम क्या है?",
			"आपको कैसे संबोधित करूं?",
		},
	},
	sessions.FieldAge: {
		sessions.LanguageEnglish: {
			"How old are you?",
			"What's your age?",
			"Could you tell me your age?",
		},
		sessions.LanguageHindi: {
			"आपकी उम्र क्या है?",
			"आप कितने साल के हैं?",
			"कृपया अपनी उम्र बताएं?",
		},
	},
	sessions.FieldPhone: {
		sessions.LanguageEnglish: {
			"Could you share your contact number?",
			"What's your phone number?",
			"May I have your mobile number?",
		},
		sessions.LanguageHindi: {
			"कृपया अपना contact number share करें?",
			"आपका फोन नंबर क्या है?",
			"आपका mobile number मिल सकता है?",
		},
	},
}

var rephrasings = map[sessions.Field]variants{
	sessions.FieldDoctor: {
		sessions.LanguageEnglish: {
			"Which doctor would you like to see?",
			"What's your medical concern?",
			"Tell me about your health issue or preferred doctor.",
		},
		sessions.LanguageHindi: {
			"आप किस डॉक्टर से मिलना चाहेंगे?",
			"आपकी medical problem क्या है?",
			"अपनी health issue या preferred doctor बताएं।",
		},
	},
	sessions.FieldDate: {
		sessions.LanguageEnglish: {
			"When would you like to schedule?",
			"Which date works for you?",
			"What day would you prefer?",
		},
		sessions.LanguageHindi: {
			"आप कब schedule करना चाहेंगे?",
			"कौन सी date आपके लिए ठीक है?",
			"कौन सा दिन prefer करेंगे?",
		},
	},
	sessions.FieldTime: {
		sessions.LanguageEnglish: {
			"What time would work?",
			"Which time slot do you prefer?",
			"When would you like to come?",
		},
		sessions.LanguageHindi: {
			"कौन सा समय ठीक रहेगा?",
			"आप कौन सा time slot prefer करेंगे?",
			"आप कब आना चाहेंगे?",
		},
	},
	sessions.FieldName: {
		sessions.LanguageEnglish: {
			"I didn't catch your name. Could you tell me again?",
			"Sorry, I still need your name. What should I call you?",
			"May I have your name, please?",
		},
		sessions.LanguageHindi: {
			"मुझे आपका नाम नहीं मिला। कृपया फिर से बताएं?",
			"क्षमा करें, अभी भी आपका नाम चाहिए। आपका नाम क्या है?",
			"कृपया अपना नाम बताएं?",
		},
	},
	sessions.FieldAge: {
		sessions.LanguageEnglish: {
			"Could you tell me your age?",
			"I still need your age, please.",
			"How old are you?",
		},
		sessions.LanguageHindi: {
			"कृपया अपनी उम्र बताएं?",
			"अभी भी आपकी उम्र चाहिए।",
			"आप कितने साल के हैं?",
		},
	},
	sessions.FieldPhone: {
		sessions.LanguageEnglish: {
			"Could you share your phone number?",
			"I still need your contact number, please.",
			"What's your mobile number?",
		},
		sessions.LanguageHindi: {
			"कृपया अपना फोन नंबर share करें?",
			"अभी भी आपका contact number चाहिए।",
			"आपका mobile number क्या है?",
		},
	},
}

var (
	dateAcks = variants{
		sessions.LanguageEnglish: {
			"Perfect! I've set %s for your appointment.",
			"Great! %s works.",
			"Done! I've scheduled it for %s.",
		},
		sessions.LanguageHindi: {
			"बिल्कुल! %s की date नोट कर ली।",
			"ठीक है, %s schedule कर लिया।",
			"Perfect! %s fix कर दिया है।",
		},
	}
	timeAcks = variants{
		sessions.LanguageEnglish: {
			"Perfect! I've set the time for %s.",
			"Great! %s it is.",
			"Done! Time is fixed for %s.",
		},
		sessions.LanguageHindi: {
			"बिल्कुल! %s का time fix कर दिया।",
			"ठीक है, %s पर appointment है।",
			"Perfect! %s schedule कर लिया।",
		},
	}
	dateTimeAcks = variants{
		sessions.LanguageEnglish: {
			"Perfect! I've scheduled your appointment for %s at %s.",
			"Excellent! Your appointment is set for %s at %s.",
			"Great! I've booked you for %s at %s.",
		},
		sessions.LanguageHindi: {
			"बिल्कुल perfect! %s को %s पर appointment fix हो गई।",
			"ठीक है! %s को %s schedule कर दिया है।",
			"Great! %s को %s पर आपकी appointment है।",
		},
	}
	nameAcks = variants{
		sessions.LanguageEnglish: {
			"Nice to meet you, %s!",
			"Got it, %s. Thanks!",
			"Perfect, %s.",
		},
		sessions.LanguageHindi: {
			"बहुत अच्छा %sजी!",
			"ठीक है %sजी, नोट कर लिया।",
			"धन्यवाद %sजी!",
		},
	}
	ageAcks = variants{
		sessions.LanguageEnglish: {
			"Got it, %d years old. Thanks!",
			"Perfect, %d years.",
			"Noted, %d years.",
		},
		sessions.LanguageHindi: {
			"ठीक है, %d साल। धन्यवाद!",
			"नोट कर लिया, %d साल।",
			"अच्छा, %d साल।",
		},
	}
	phoneAcks = variants{
		sessions.LanguageEnglish: {
			"Perfect! I've saved %s.",
			"Got it! Your number %s is noted.",
			"Thanks! I've recorded %s.",
		},
		sessions.LanguageHindi: {
			"बिल्कुल, %s नोट कर लिया।",
			"ठीक है, फोन नंबर %s लिख लिया।",
			"धन्यवाद, %s सेव कर दिया।",
		},
	}
	doctorAnnouncements = variants{
		sessions.LanguageEnglish: {
			"Thank you! I can book you with %s (%s).",
			"Great! %s (%s) is an excellent choice for you.",
			"Perfect! Let's schedule you with %s (%s).",
		},
		sessions.LanguageHindi: {
			"धन्यवाद! मैं %s (%s) के साथ आपकी अपॉइंटमेंट बुक कर सकता हूं।",
			"बहुत अच्छा! %s (%s) आपके लिए बेहतरीन विकल्प हैं।",
			"परफेक्ट! %s (%s) से consult करते हैं।",
		},
	}
)

// text is a fixed phrase in both languages.
type text struct{ en, hi string }

func (t text) in(lang sessions.Language) string {
	if lang == sessions.LanguageHindi {
		return t.hi
	}
	return t.en
}

var (
	msgCancelled     = text{"Booking has been cancelled.", "बुकिंग रद्द कर दी गई है।"}
	msgBooked        = text{"✅ Appointment booked successfully!\nAppointment ID: %d\nPlease arrive on time.", "✅ अपॉइंटमेंट बुक हो गई है!\nAppointment ID: %d\nकृपया समय पर पहुंचें।"}
	msgBookingFailed = text{"Sorry, there was an issue booking the appointment. Please try again.", "क्षमा करें, अपॉइंटमेंट बुक करने में समस्या आई। कृपया फिर से कोशिश करें।"}
	msgProvideAll    = text{"Please provide all information.", "कृपया सभी जानकारी प्रदान करें।"}
	msgStillNeed     = text{"I still need this information: %s. Please provide these details.", "मुझे अभी भी ये जानकारी चाहिए: %s। कृपया इन्हें दें।"}
	msgTurnFailed    = text{"Sorry, something went wrong. Please try again.", "क्षमा करें, कुछ गड़बड़ हो गई। कृपया फिर से कोशिश करें।"}

	msgSummary = text{
		"Please confirm your appointment:\nDoctor: %s (%s)\nPatient: %s\nAge: %d\nPhone: %s\nDate: %s\nTime: %s\nDo you want to book? (yes/no)",
		"पुष्टि करें:\nडॉक्टर: %s (%s)\nमरीज: %s\nउम्र: %d\nफोन: %s\nतारीख: %s\nसमय: %s\nक्या आप बुक करना चाहते हैं? (हां/नहीं)",
	}

	msgWorksOn         = text{"%s works on %s", "%s इन दिनों काम करते हैं: %s"}
	msgNoSchedule      = text{"%s schedule is not available.", "%s की schedule उपलब्ध नहीं है।"}
	msgAvailableTimes  = text{"Available times for %s: %s", "%s के लिए उपलब्ध समय: %s"}
	msgNoSlots         = text{"No slots available for %s. Please choose another day.", "%s के लिए कोई slot उपलब्ध नहीं है। कृपया किसी अन्य दिन का चयन करें।"}
	msgWhichDay        = text{"Which day would you like to book?", "आप किस दिन appointment चाहते हैं?"}
	msgWhichSlot       = text{"Which time slot would you prefer?", "कौन सा time slot चुनेंगे?"}
	msgToday           = text{"today", "आज"}
	msgAppointmentOn   = text{"Your appointment is on %s at %s.", "आपका अपॉइंटमेंट %s को %s पर है।"}
	msgChooseDay       = text{"Please choose one of the available days.", "कृपया उपलब्ध दिनों में से एक चुनें।"}
	msgWhenDateAndTime = text{"What date and time would you prefer?", "किस दिन और समय पर अपॉइंटमेंट चाहिए?"}
	msgWhatTimeOn      = text{"What time on %s?", "%s को किस समय चाहिए?"}
	msgSorry           = text{"Sorry, %s", "क्षमा करें, %s"}
	msgSuggestion      = text{"Suggestion: %s is next available on %s.", "सुझाव: %s अगली बार %s को उपलब्ध हैं।"}
	msgAltTimes        = text{"Alternative times: %s", "वैकल्पिक समय: %s"}
	msgAltDoctors      = text{"Alternative doctors: %s", "वैकल्पिक डॉक्टर: %s"}
	msgWhichTimeOrDoc  = text{"Which time or doctor would you prefer?", "कौन सा समय या डॉक्टर चुनेंगे?"}
	msgReasonUnavail   = text{"Doctor is currently unavailable", "डॉक्टर अभी उपलब्ध नहीं हैं"}
	msgReasonDayOff    = text{"Doctor does not work on this day", "डॉक्टर इस दिन काम नहीं करते"}
	msgReasonHours     = text{"Doctor is available from %s to %s", "डॉक्टर %s से %s तक उपलब्ध हैं"}
	msgReasonBooked    = text{"Time slot is already booked", "यह time slot पहले से बुक है"}
	msgSpecialist      = text{"Specialist", "Specialist"}
	msgDoctorWord      = text{"Doctor", "डॉक्टर"}
)

var missingFieldLabels = map[sessions.Field]text{
	sessions.FieldName:   {"name", "नाम"},
	sessions.FieldAge:    {"age", "उम्र"},
	sessions.FieldPhone:  {"phone number", "फोन नंबर"},
	sessions.FieldDoctor: {"doctor or medical concern", "डॉक्टर या समस्या"},
	sessions.FieldDate:   {"appointment date", "तारीख"},
	sessions.FieldTime:   {"appointment time", "समय"},
}

var shortDayNames = map[string]text{
	"Monday":    {"Mon", "सोम"},
	"Tuesday":   {"Tue", "मंगल"},
	"Wednesday": {"Wed", "बुध"},
	"Thursday":  {"Thu", "गुरु"},
	"Friday":    {"Fri", "शुक्र"},
	"Saturday":  {"Sat", "शनि"},
	"Sunday":    {"Sun", "रवि"},
}
