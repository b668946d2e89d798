package speech

import (
	"context"
	"fmt"
	"strings"

	gspeech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/sony/gobreaker"
	"google.golang.org/api/option"

	"github.com/tvamit/aya-helthcare-demo/internal/resilience"
	"github.com/tvamit/aya-helthcare-demo/internal/sessions"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

// RecognizeAPI is the part of the Cloud Speech client used for transcription.
type RecognizeAPI interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
}

// GoogleTranscriber sends 16 kHz mono LINEAR16 audio to Cloud Speech.
type GoogleTranscriber struct {
	api        RecognizeAPI
	sampleRate int32
	breaker    *gobreaker.CircuitBreaker
	logger     *logging.Logger
	close      func() error
}

func NewGoogleTranscriber(api RecognizeAPI, logger *logging.Logger) *GoogleTranscriber {
	if api == nil {
		panic("speech: recognize client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GoogleTranscriber{
		api:        api,
		sampleRate: 16000,
		breaker:    resilience.NewBreaker("google-stt", logger),
		logger:     logger,
	}
}

// DialGoogleTranscriber connects to Cloud Speech. An empty credentialsFile
// uses application default credentials.
func DialGoogleTranscriber(ctx context.Context, credentialsFile string, logger *logging.Logger) (*GoogleTranscriber, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gspeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech: create cloud speech client: %w", err)
	}
	t := NewGoogleTranscriber(client, logger)
	t.close = client.Close
	return t, nil
}

func (t *GoogleTranscriber) Close() error {
	if t.close == nil {
		return nil
	}
	return t.close()
}

func localeFor(lang sessions.Language) string {
	if lang == sessions.LanguageEnglish {
		return "en-IN"
	}
	return "hi-IN"
}

func (t *GoogleTranscriber) Transcribe(ctx context.Context, audio []byte, _ string, lang sessions.Language) (Transcript, error) {
	if len(audio) == 0 {
		return Transcript{}, ErrEmptyAudio
	}
	primary := localeFor(lang)
	alternative := "en-IN"
	if primary == alternative {
		alternative = "hi-IN"
	}
	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            t.sampleRate,
			AudioChannelCount:          1,
			LanguageCode:               primary,
			AlternativeLanguageCodes:   []string{alternative},
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}

	resp, err := resilience.Call(t.breaker, func() (*speechpb.RecognizeResponse, error) {
		return t.api.Recognize(ctx, req)
	})
	if err != nil {
		return Transcript{}, fmt.Errorf("speech: recognize: %w", err)
	}

	var (
		b        strings.Builder
		detected sessions.Language
	)
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(alts[0].GetTranscript()))
		if detected == sessions.LanguageUnset {
			detected = parseLanguage(result.GetLanguageCode())
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return Transcript{}, ErrEmptyTranscript
	}
	if detected == sessions.LanguageUnset {
		detected = lang
	}
	t.logger.Debug("audio transcribed", "language", detected, "chars", len(text))
	return Transcript{Text: text, Language: detected}, nil
}
