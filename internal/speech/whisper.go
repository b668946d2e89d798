package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tvamit/aya-helthcare-demo/internal/resilience"
	"github.com/tvamit/aya-helthcare-demo/internal/sessions"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

// Option configures the HTTP speech clients.
type Option func(*httpService)

func WithHTTPClient(c *http.Client) Option {
	return func(s *httpService) {
		if c != nil {
			s.client = c
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *httpService) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

type httpService struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger
}

func newHTTPService(name, baseURL string, logger *logging.Logger, opts []Option) httpService {
	if logger == nil {
		logger = logging.Default()
	}
	s := httpService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
		breaker: resilience.NewBreaker(name, logger),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WhisperClient calls the Whisper transcription service.
type WhisperClient struct {
	httpService
}

func NewWhisperClient(baseURL string, logger *logging.Logger, opts ...Option) *WhisperClient {
	return &WhisperClient{httpService: newHTTPService("whisper-stt", baseURL, logger, opts)}
}

type whisperResponse struct {
	Success  *bool  `json:"success"`
	Text     string `json:"text"`
	Language string `json:"language"`
	Error    string `json:"error"`
}

func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte, filename string, lang sessions.Language) (Transcript, error) {
	if len(audio) == 0 {
		return Transcript{}, ErrEmptyAudio
	}
	out, err := resilience.Call(c.breaker, func() (Transcript, error) {
		return c.transcribe(ctx, audio, filename, lang)
	})
	if err != nil {
		return Transcript{}, err
	}
	if out.Text == "" {
		return Transcript{}, ErrEmptyTranscript
	}
	c.logger.Debug("audio transcribed", "language", out.Language, "chars", len(out.Text))
	return out, nil
}

func (c *WhisperClient) transcribe(ctx context.Context, audio []byte, filename string, lang sessions.Language) (Transcript, error) {
	if filename == "" {
		filename = "audio.wav"
	}
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("audio", filename)
	if err != nil {
		return Transcript{}, fmt.Errorf("speech: build form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return Transcript{}, fmt.Errorf("speech: write audio: %w", err)
	}
	if err := form.WriteField("language", languageCode(lang)); err != nil {
		return Transcript{}, fmt.Errorf("speech: write language: %w", err)
	}
	if err := form.Close(); err != nil {
		return Transcript{}, fmt.Errorf("speech: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &body)
	if err != nil {
		return Transcript{}, fmt.Errorf("speech: build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("speech: transcribe: %w", err)
	}
	defer resp.Body.Close()

	var decoded whisperResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return Transcript{}, fmt.Errorf("speech: decode transcription (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 || (decoded.Success != nil && !*decoded.Success) {
		return Transcript{}, fmt.Errorf("speech: transcription failed with status %d: %s", resp.StatusCode, decoded.Error)
	}

	detected := parseLanguage(decoded.Language)
	if detected == sessions.LanguageUnset {
		detected = lang
	}
	return Transcript{Text: strings.TrimSpace(decoded.Text), Language: detected}, nil
}
