package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvamit/aya-helthcare-demo/internal/appointments"
	"github.com/tvamit/aya-helthcare-demo/internal/booking"
	"github.com/tvamit/aya-helthcare-demo/internal/doctors"
	"github.com/tvamit/aya-helthcare-demo/internal/hospital"
	"github.com/tvamit/aya-helthcare-demo/internal/knowledge"
	"github.com/tvamit/aya-helthcare-demo/internal/llm"
	"github.com/tvamit/aya-helthcare-demo/internal/observability/metrics"
	"github.com/tvamit/aya-helthcare-demo/internal/sessions"
	"github.com/tvamit/aya-helthcare-demo/internal/speech"
)

var fixedNow = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

type stubLLM struct {
	mu       sync.Mutex
	requests []llm.Request
	text     string
	err      error
}

func (s *stubLLM) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return llm.Response{Text: s.text}, nil
}

func (s *stubLLM) last(t *testing.T) llm.Request {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.requests)
	return s.requests[len(s.requests)-1]
}

type stubRetriever struct {
	results []string
	err     error
	k       int
}

func (s *stubRetriever) Search(_ context.Context, _ string, k int) ([]string, error) {
	s.k = k
	return s.results, s.err
}

type stubTranscriber struct {
	transcript speech.Transcript
	err        error
	hint       sessions.Language
}

func (s *stubTranscriber) Transcribe(_ context.Context, _ []byte, _ string, lang sessions.Language) (speech.Transcript, error) {
	s.hint = lang
	return s.transcript, s.err
}

type stubSynthesizer struct {
	err  error
	lang sessions.Language
	text string
}

func (s *stubSynthesizer) Synthesize(_ context.Context, text string, lang sessions.Language) ([]byte, string, error) {
	s.text = text
	s.lang = lang
	if s.err != nil {
		return nil, "", s.err
	}
	return []byte("mp3"), "audio/mpeg", nil
}

type harness struct {
	service  *Service
	llm      *stubLLM
	registry *prometheus.Registry
}

func newHarness(t *testing.T, opts ...Option) harness {
	t.Helper()
	dir, err := doctors.NewSeededDirectory()
	require.NoError(t, err)
	beds, err := hospital.NewSeededStore()
	require.NoError(t, err)
	kb, err := knowledge.Default()
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.NewAssistantMetrics(reg)
	engine := booking.NewEngine(sessions.NewMemoryStore(30*time.Minute), dir, appointments.NewMemoryStore(),
		booking.WithClock(func() time.Time { return fixedNow }),
		booking.WithPicker(booking.FirstPicker{}),
		booking.WithMetrics(m),
	)
	client := &stubLLM{text: "The ICU is on the 3rd floor."}
	base := []Option{WithBeds(beds), WithMetrics(m), WithClock(func() time.Time { return fixedNow })}
	return harness{
		service:  New(engine, client, kb, dir, append(base, opts...)...),
		llm:      client,
		registry: reg,
	}
}

func TestBookingIntentGoesToEngine(t *testing.T) {
	h := newHarness(t)

	answer, err := h.service.ProcessQuery(context.Background(), "I want to book an appointment", "s1")
	require.NoError(t, err)
	assert.Equal(t, RouteBooking, answer.Route)
	assert.NotEmpty(t, answer.Text)
	assert.Equal(t, sessions.LanguageEnglish, answer.Language)
	assert.Empty(t, h.llm.requests)
}

func TestGeneralQuestionUsesLLMWithRetrievedContext(t *testing.T) {
	retriever := &stubRetriever{results: []string{"Cardiology is on the 2nd floor.", "OPD runs 9 AM to 5 PM."}}
	h := newHarness(t, WithRetriever(retriever))

	answer, err := h.service.ProcessQuery(context.Background(), "Where is cardiology?", "s1")
	require.NoError(t, err)
	assert.Equal(t, RouteLLM, answer.Route)
	assert.Equal(t, "The ICU is on the 3rd floor.", answer.Text)
	assert.Equal(t, defaultTopK, retriever.k)

	req := h.llm.last(t)
	assert.Equal(t, int32(300), req.MaxTokens)
	assert.InDelta(t, 0.5, req.Temperature, 0.001)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "Where is cardiology?", req.Messages[0].Content)
	require.Len(t, req.System, 1)
	prompt := req.System[0]
	assert.Contains(t, prompt, "You are Apollo Hospital's AI Assistant.")
	assert.Contains(t, prompt, "Respond in English (English)")
	assert.Contains(t, prompt, "Cardiology is on the 2nd floor.\nOPD runs 9 AM to 5 PM.")
	assert.Contains(t, prompt, "EMERGENCY CONTACT: 1860-500-1066")
	assert.NotContains(t, prompt, "REAL-TIME DATA")
}

func TestRetrieverFailureFallsBackToStaticKnowledge(t *testing.T) {
	kb, err := knowledge.Default()
	require.NoError(t, err)
	h := newHarness(t, WithRetriever(&stubRetriever{err: errors.New("vector service down")}))

	_, err = h.service.ProcessQuery(context.Background(), "Where is cardiology?", "s1")
	require.NoError(t, err)
	assert.Contains(t, h.llm.last(t).System[0], kb.BuildContext("Where is cardiology?"))
}

func TestAvailabilityQuestionIncludesLiveCounts(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.ProcessQuery(context.Background(), "Is an ICU bed available right now?", "s1")
	require.NoError(t, err)
	prompt := h.llm.last(t).System[0]
	assert.Contains(t, prompt, "Available Beds: ICU=3, General=4, Total=12")
	assert.Contains(t, prompt, "Doctors Available Right Now: 5")
}

func TestSymptomQuestionIncludesGuidance(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.ProcessQuery(context.Background(), "I have had a fever since yesterday", "s1")
	require.NoError(t, err)
	assert.Contains(t, h.llm.last(t).System[0], "MEDICAL GUIDANCE FOR USER'S SYMPTOM:")
}

func TestLLMFailureReturnsLocalizedFallback(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
		lang  sessions.Language
	}{
		{"english", "What are the visiting hours?", "Sorry, I couldn't help. Please contact reception: 1860-500-1066", sessions.LanguageEnglish},
		{"hindi", "क्या ICU खाली है?", "क्षमा करें, मैं आपकी मदद नहीं कर सका। कृपया reception से संपर्क करें: 1860-500-1066", sessions.LanguageHindi},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.llm.err = errors.New("throttled")

			answer, err := h.service.ProcessQuery(context.Background(), tt.query, "s-"+tt.name)
			require.NoError(t, err)
			assert.Equal(t, RouteFallback, answer.Route)
			assert.Equal(t, tt.want, answer.Text)
			assert.Equal(t, tt.lang, answer.Language)
		})
	}
}

func TestSessionLanguageStaysFixed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.service.ProcessQuery(ctx, "क्या ICU खाली है?", "s1")
	require.NoError(t, err)
	answer, err := h.service.ProcessQuery(ctx, "Where is the pharmacy?", "s1")
	require.NoError(t, err)
	assert.Equal(t, sessions.LanguageHindi, answer.Language)
	assert.Contains(t, h.llm.last(t).System[0], "Respond in Hindi (Hindi/Hinglish)")

	lang, ok, err := h.service.PreferredLanguage(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sessions.LanguageHindi, lang)

	require.NoError(t, h.service.ResetSession(ctx, "s1"))
	_, ok, err = h.service.PreferredLanguage(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmptyQueryIsRejected(t *testing.T) {
	h := newHarness(t)
	_, err := h.service.ProcessQuery(context.Background(), "   ", "s1")
	assert.Error(t, err)
}

func TestQueriesAreCounted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.service.ProcessQuery(ctx, "Where is the pharmacy?", "a")
	require.NoError(t, err)
	_, err = h.service.ProcessQuery(ctx, "book an appointment", "b")
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(h.registry, "hospital_assistant_queries_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestVoiceQuery(t *testing.T) {
	stt := &stubTranscriber{transcript: speech.Transcript{Text: "Where is the pharmacy?", Language: sessions.LanguageEnglish}}
	tts := &stubSynthesizer{}
	h := newHarness(t, WithSpeech(stt, tts))

	answer, err := h.service.VoiceQuery(context.Background(), []byte("wav"), "q.wav", "v1")
	require.NoError(t, err)
	assert.Equal(t, sessions.LanguageUnset, stt.hint)
	assert.Equal(t, "Where is the pharmacy?", answer.Transcription)
	assert.Equal(t, "The ICU is on the 3rd floor.", answer.ResponseText)
	assert.Equal(t, []byte("mp3"), answer.Audio)
	assert.Equal(t, "audio/mpeg", answer.ContentType)
	assert.Equal(t, sessions.LanguageEnglish, tts.lang)
	assert.Equal(t, answer.ResponseText, tts.text)
}

func TestVoiceQueryUsesSessionLanguageHint(t *testing.T) {
	stt := &stubTranscriber{transcript: speech.Transcript{Text: "pharmacy kahan hai", Language: sessions.LanguageHindi}}
	h := newHarness(t, WithSpeech(stt, &stubSynthesizer{}))
	ctx := context.Background()

	_, err := h.service.ProcessQuery(ctx, "क्या ICU खाली है?", "v1")
	require.NoError(t, err)
	_, err = h.service.VoiceQuery(ctx, []byte("wav"), "", "v1")
	require.NoError(t, err)
	assert.Equal(t, sessions.LanguageHindi, stt.hint)
}

func TestVoiceQueryWithoutSynthesisReturnsText(t *testing.T) {
	stt := &stubTranscriber{transcript: speech.Transcript{Text: "Where is the pharmacy?"}}
	h := newHarness(t, WithSpeech(stt, &stubSynthesizer{err: errors.New("tts down")}))

	answer, err := h.service.VoiceQuery(context.Background(), []byte("wav"), "", "v1")
	require.NoError(t, err)
	assert.Empty(t, answer.Audio)
	assert.NotEmpty(t, answer.ResponseText)
}

func TestVoiceQueryErrors(t *testing.T) {
	h := newHarness(t)
	_, err := h.service.VoiceQuery(context.Background(), []byte("wav"), "", "v1")
	assert.ErrorIs(t, err, ErrSpeechDisabled)

	h = newHarness(t, WithSpeech(&stubTranscriber{err: speech.ErrEmptyTranscript}, nil))
	_, err = h.service.VoiceQuery(context.Background(), []byte("wav"), "", "v1")
	assert.ErrorIs(t, err, speech.ErrEmptyTranscript)
}
