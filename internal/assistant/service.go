package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tvamit/aya-helthcare-demo/internal/booking"
	"github.com/tvamit/aya-helthcare-demo/internal/doctors"
	"github.com/tvamit/aya-helthcare-demo/internal/hospital"
	"github.com/tvamit/aya-helthcare-demo/internal/knowledge"
	"github.com/tvamit/aya-helthcare-demo/internal/llm"
	"github.com/tvamit/aya-helthcare-demo/internal/observability/metrics"
	"github.com/tvamit/aya-helthcare-demo/internal/sessions"
	"github.com/tvamit/aya-helthcare-demo/internal/speech"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

// Routes reported on every answer.
const (
	RouteBooking  = "booking"
	RouteLLM      = "llm"
	RouteFallback = "fallback"
)

const (
	defaultTopK            = 7
	defaultEmergencyNumber = "1860-500-1066"
	answerMaxTokens        = 300
	answerTemperature      = 0.5
)

// ErrSpeechDisabled is returned by VoiceQuery when no transcriber is configured.
var ErrSpeechDisabled = errors.New("assistant: speech is not configured")

// Answer is the reply to one text query.
type Answer struct {
	Text          string
	Route         string
	Language      sessions.Language
	State         sessions.State
	AppointmentID int64
}

// VoiceAnswer is the reply to one spoken query. Audio is empty when speech
// synthesis is unavailable.
type VoiceAnswer struct {
	Transcription string
	ResponseText  string
	Language      sessions.Language
	Audio         []byte
	ContentType   string
}

// Service answers caller queries, routing booking dialogue to the booking
// engine and everything else to the LLM with hospital context.
type Service struct {
	engine      *booking.Engine
	llm         llm.Client
	kb          *knowledge.Knowledge
	retriever   knowledge.Retriever
	beds        hospital.Store
	directory   doctors.Directory
	transcriber speech.Transcriber
	synthesizer speech.Synthesizer
	metrics     *metrics.AssistantMetrics
	logger      *logging.Logger
	tracer      trace.Tracer
	topK        int
	emergency   string
	model       string
	now         func() time.Time
}

type Option func(*Service)

// WithRetriever sets the semantic search used for hospital context. Without
// one the static knowledge sections are used.
func WithRetriever(r knowledge.Retriever) Option {
	return func(s *Service) { s.retriever = r }
}

// WithBeds enables live bed counts for availability questions.
func WithBeds(store hospital.Store) Option {
	return func(s *Service) { s.beds = store }
}

func WithSpeech(t speech.Transcriber, syn speech.Synthesizer) Option {
	return func(s *Service) {
		s.transcriber = t
		s.synthesizer = syn
	}
}

func WithMetrics(m *metrics.AssistantMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

func WithEmergencyNumber(n string) Option {
	return func(s *Service) {
		if strings.TrimSpace(n) != "" {
			s.emergency = strings.TrimSpace(n)
		}
	}
}

// WithModel overrides the provider model id on each completion.
func WithModel(id string) Option {
	return func(s *Service) { s.model = strings.TrimSpace(id) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(engine *booking.Engine, client llm.Client, kb *knowledge.Knowledge, directory doctors.Directory, opts ...Option) *Service {
	if engine == nil {
		panic("assistant: booking engine cannot be nil")
	}
	if client == nil {
		panic("assistant: llm client cannot be nil")
	}
	if kb == nil {
		panic("assistant: knowledge cannot be nil")
	}
	if directory == nil {
		panic("assistant: doctor directory cannot be nil")
	}
	s := &Service{
		engine:    engine,
		llm:       client,
		kb:        kb,
		directory: directory,
		logger:    logging.Default(),
		tracer:    otel.Tracer("aya.internal.assistant"),
		topK:      defaultTopK,
		emergency: defaultEmergencyNumber,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessQuery answers one utterance for sessionID.
func (s *Service) ProcessQuery(ctx context.Context, text, sessionID string) (Answer, error) {
	ctx, span := s.tracer.Start(ctx, "assistant.process_query")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return Answer{}, errors.New("assistant: query is required")
	}
	if strings.TrimSpace(sessionID) == "" {
		sessionID = booking.DefaultSessionID
	}
	started := s.now()
	logger := s.logger.WithSession(sessionID)

	answer := s.route(ctx, text, sessionID, logger)

	span.SetAttributes(
		attribute.String("assistant.route", answer.Route),
		attribute.String("assistant.language", string(answer.Language)),
	)
	s.metrics.ObserveQuery(answer.Route, string(answer.Language), s.now().Sub(started).Seconds())
	logger.Info("query answered", "route", answer.Route, "language", answer.Language)
	return answer, nil
}

func (s *Service) route(ctx context.Context, text, sessionID string, logger *logging.Logger) Answer {
	reply, err := s.engine.ProcessTurn(ctx, sessionID, text)
	if err != nil {
		logger.Error("booking turn failed", "error", err)
		lang := reply.Language
		if lang == sessions.LanguageUnset {
			lang = booking.DetectLanguage(text)
		}
		if reply.Text != "" {
			return Answer{Text: reply.Text, Route: RouteBooking, Language: lang, State: reply.State}
		}
		return Answer{Text: fallbackText(lang, s.emergency), Route: RouteFallback, Language: lang}
	}
	if reply.Handled {
		return Answer{
			Text:          reply.Text,
			Route:         RouteBooking,
			Language:      reply.Language,
			State:         reply.State,
			AppointmentID: reply.AppointmentID,
		}
	}

	lang := reply.Language
	if lang == sessions.LanguageUnset {
		lang = booking.DetectLanguage(text)
	}
	answered, route := s.answer(ctx, text, lang, logger)
	return Answer{Text: answered, Route: route, Language: lang, State: reply.State}
}

// answer runs the knowledge-grounded LLM path.
func (s *Service) answer(ctx context.Context, query string, lang sessions.Language, logger *logging.Logger) (string, string) {
	in := promptInput{
		language:  lang,
		context:   s.hospitalContext(ctx, query, logger),
		emergency: s.emergency,
	}
	if knowledge.NeedsRealTimeData(query) {
		in.realTime = s.realTime(ctx, logger)
	}
	if guidance, ok := s.kb.SymptomGuidance(query); ok {
		in.guidance = guidance
	}

	resp, err := s.llm.Complete(ctx, llm.Request{
		Model:       s.model,
		System:      []string{systemPrompt(in)},
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: query}},
		MaxTokens:   answerMaxTokens,
		Temperature: answerTemperature,
	})
	if err != nil {
		logger.Error("llm completion failed", "error", err)
		return fallbackText(lang, s.emergency), RouteFallback
	}
	reply := strings.TrimSpace(resp.Text)
	if reply == "" {
		return fallbackText(lang, s.emergency), RouteFallback
	}
	return reply, RouteLLM
}

func (s *Service) hospitalContext(ctx context.Context, query string, logger *logging.Logger) string {
	if s.retriever != nil {
		results, err := s.retriever.Search(ctx, query, s.topK)
		switch {
		case err != nil:
			logger.Warn("knowledge search failed, using static context", "error", err)
		case len(results) > 0:
			return strings.Join(results, "\n")
		}
	}
	return s.kb.BuildContext(query)
}

// realTime returns nil when no live figures could be read.
func (s *Service) realTime(ctx context.Context, logger *logging.Logger) *realTime {
	var snap realTime
	ok := false
	if s.beds != nil {
		stats, err := s.beds.Stats(ctx)
		if err != nil {
			logger.Warn("bed stats unavailable", "error", err)
		} else {
			snap.beds = stats
			ok = true
		}
	}
	available, err := s.directory.ListAvailable(ctx)
	if err != nil {
		logger.Warn("doctor availability unavailable", "error", err)
	} else {
		snap.availableDoctors = len(available)
		ok = true
	}
	if !ok {
		return nil
	}
	return &snap
}

// ResetSession drops any conversation state for sessionID.
func (s *Service) ResetSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		sessionID = booking.DefaultSessionID
	}
	return s.engine.Reset(ctx, sessionID)
}

// PreferredLanguage reports the language fixed for sessionID, if any.
func (s *Service) PreferredLanguage(ctx context.Context, sessionID string) (sessions.Language, bool, error) {
	return s.engine.PreferredLanguage(ctx, sessionID)
}

// VoiceQuery transcribes audio, answers it, and speaks the answer back in
// the answer's language.
func (s *Service) VoiceQuery(ctx context.Context, audio []byte, filename, sessionID string) (VoiceAnswer, error) {
	if s.transcriber == nil {
		return VoiceAnswer{}, ErrSpeechDisabled
	}
	if strings.TrimSpace(sessionID) == "" {
		sessionID = booking.DefaultSessionID
	}
	ctx, span := s.tracer.Start(ctx, "assistant.voice_query")
	defer span.End()
	logger := s.logger.WithSession(sessionID)

	hint, _, err := s.engine.PreferredLanguage(ctx, sessionID)
	if err != nil {
		logger.Warn("preferred language lookup failed", "error", err)
		hint = sessions.LanguageUnset
	}

	transcript, err := s.transcriber.Transcribe(ctx, audio, filename, hint)
	if err != nil {
		span.RecordError(err)
		return VoiceAnswer{}, fmt.Errorf("assistant: transcribe: %w", err)
	}
	logger.Info("voice transcribed", "language", transcript.Language, "chars", len(transcript.Text))

	answer, err := s.ProcessQuery(ctx, transcript.Text, sessionID)
	if err != nil {
		return VoiceAnswer{}, err
	}
	out := VoiceAnswer{
		Transcription: transcript.Text,
		ResponseText:  answer.Text,
		Language:      answer.Language,
	}
	if s.synthesizer == nil {
		return out, nil
	}
	voice, contentType, err := s.synthesizer.Synthesize(ctx, answer.Text, answer.Language)
	if err != nil {
		span.RecordError(err)
		logger.Warn("speech synthesis failed, returning text only", "error", err)
		return out, nil
	}
	out.Audio = voice
	out.ContentType = contentType
	return out, nil
}
