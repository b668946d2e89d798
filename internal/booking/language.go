package booking

import (
	"strings"
	"unicode"

	"github.com/tvamit/aya-helthcare-demo/internal/sessions"
)

// Romanized Hindi function words; matched on whole-word boundaries so "mein"
// fires in "mein hu" but not inside longer English words.
var hindiWords = []string{
	"hai", "kya", "kaise", "kab", "kitne", "mein", "ke", "ki", "aur",
	"ka", "ko", "se", "par", "toh", "yeh", "woh",
}

// DetectLanguage classifies text as Hindi when it contains Devanagari or a
// romanized Hindi function word, and English otherwise.
func DetectLanguage(text string) sessions.Language {
	for _, r := range text {
		if unicode.Is(unicode.Devanagari, r) {
			return sessions.LanguageHindi
		}
	}
	lower := strings.ToLower(text)
	for _, word := range hindiWords {
		if containsKeyword(lower, word, false) {
			return sessions.LanguageHindi
		}
	}
	return sessions.LanguageEnglish
}
