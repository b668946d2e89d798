package speech

import (
	"context"
	"errors"
	"strings"

	"github.com/tvamit/aya-helthcare-demo/internal/sessions"
)

var (
	ErrEmptyTranscript = errors.New("speech: empty transcript")
	ErrEmptyAudio      = errors.New("speech: empty audio")
)

// Transcript is recognized speech.
type Transcript struct {
	Text     string
	Language sessions.Language
}

// Transcriber converts recorded audio to text. lang is a hint; LanguageUnset
// lets the backend pick.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string, lang sessions.Language) (Transcript, error)
}

// Synthesizer converts text to audio and reports its content type.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, lang sessions.Language) ([]byte, string, error)
}

// languageCode maps a session language onto the short code the speech
// services expect. Hindi is the default for unset sessions.
func languageCode(lang sessions.Language) string {
	if lang == sessions.LanguageEnglish {
		return "en"
	}
	return "hi"
}

// parseLanguage accepts short codes, names and BCP-47 tags such as "hi-in".
func parseLanguage(code string) sessions.Language {
	code = strings.ToLower(strings.TrimSpace(code))
	if base, _, ok := strings.Cut(code, "-"); ok {
		code = base
	}
	switch code {
	case "en", "english":
		return sessions.LanguageEnglish
	case "hi", "hindi":
		return sessions.LanguageHindi
	}
	return sessions.LanguageUnset
}
