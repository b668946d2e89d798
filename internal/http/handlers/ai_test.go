package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvamit/aya-helthcare-demo/internal/assistant"
	"github.com/tvamit/aya-helthcare-demo/internal/sessions"
	"github.com/tvamit/aya-helthcare-demo/internal/speech"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

type fakeAssistant struct {
	mu        sync.Mutex
	queries   []string
	sessions  []string
	answer    assistant.Answer
	queryErr  error
	voice     assistant.VoiceAnswer
	voiceErr  error
	audio     []byte
	reset     []string
	languages map[string]sessions.Language
}

func (f *fakeAssistant) ProcessQuery(_ context.Context, text, sessionID string) (assistant.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, text)
	f.sessions = append(f.sessions, sessionID)
	return f.answer, f.queryErr
}

func (f *fakeAssistant) VoiceQuery(_ context.Context, audio []byte, _, sessionID string) (assistant.VoiceAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = audio
	f.sessions = append(f.sessions, sessionID)
	return f.voice, f.voiceErr
}

func (f *fakeAssistant) ResetSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset = append(f.reset, sessionID)
	return nil
}

func (f *fakeAssistant) PreferredLanguage(_ context.Context, sessionID string) (sessions.Language, bool, error) {
	lang, ok := f.languages[sessionID]
	return lang, ok, nil
}

func newAIRouter(a Assistant) http.Handler {
	h := NewAIHandler(a, ServiceStatus{LLMProvider: "bedrock", SpeechToText: "whisper", TextToSpeech: true}, logging.Default())
	r := chi.NewRouter()
	r.Post("/ai/text-query", h.TextQuery)
	r.Post("/ai/voice-query", h.VoiceQuery)
	r.Post("/ai/reset-session", h.ResetSession)
	r.Get("/ai/session/{id}/language", h.SessionLanguage)
	r.Get("/ai/health", h.Health)
	return r
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTextQuery(t *testing.T) {
	a := &fakeAssistant{answer: assistant.Answer{Text: "ICU is on floor 3", Route: assistant.RouteLLM, Language: sessions.LanguageEnglish}}
	rec := postJSON(t, newAIRouter(a), "/ai/text-query", map[string]string{"query": "Where is ICU?", "sessionId": "kiosk-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Where is ICU?", body["query"])
	assert.Equal(t, "ICU is on floor 3", body["response"])
	assert.Equal(t, "kiosk-1", body["sessionId"])
	assert.Equal(t, []string{"kiosk-1"}, a.sessions)
}

func TestTextQueryDefaultsSession(t *testing.T) {
	a := &fakeAssistant{}
	rec := postJSON(t, newAIRouter(a), "/ai/text-query", map[string]string{"query": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"default"}, a.sessions)
}

func TestTextQueryValidation(t *testing.T) {
	router := newAIRouter(&fakeAssistant{})
	rec := postJSON(t, router, "/ai/text-query", map[string]string{"query": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/ai/text-query", bytes.NewBufferString("{not json"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTextQueryHidesInternalErrors(t *testing.T) {
	a := &fakeAssistant{queryErr: errors.New("pq: connection refused")}
	rec := postJSON(t, newAIRouter(a), "/ai/text-query", map[string]string{"query": "hello"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func audioRequest(t *testing.T, path, contentType string, payload []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="audio"; filename="query.wav"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestVoiceQueryReturnsAudio(t *testing.T) {
	a := &fakeAssistant{voice: assistant.VoiceAnswer{
		Transcription: "ICU bed available hai?",
		ResponseText:  "हाँ, 3 ICU beds खाली हैं",
		Audio:         []byte("mp3-bytes"),
		ContentType:   "audio/mpeg",
	}}
	rec := httptest.NewRecorder()
	newAIRouter(a).ServeHTTP(rec, audioRequest(t, "/ai/voice-query?sessionId=v1", "audio/wav", []byte("RIFF")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "mp3-bytes", rec.Body.String())
	assert.Equal(t, []byte("RIFF"), a.audio)
	assert.Equal(t, []string{"v1"}, a.sessions)

	transcript, err := url.PathUnescape(rec.Header().Get("X-Transcription"))
	require.NoError(t, err)
	assert.Equal(t, "ICU bed available hai?", transcript)
	assert.Equal(t, "ICU%20bed%20available%20hai%3F", rec.Header().Get("X-Transcription"))
	reply, err := url.PathUnescape(rec.Header().Get("X-Response-Text"))
	require.NoError(t, err)
	assert.Equal(t, "हाँ, 3 ICU beds खाली हैं", reply)
}

func TestVoiceQueryWithoutAudioFallsBackToJSON(t *testing.T) {
	a := &fakeAssistant{voice: assistant.VoiceAnswer{Transcription: "hello", ResponseText: "Hi there"}}
	rec := httptest.NewRecorder()
	newAIRouter(a).ServeHTTP(rec, audioRequest(t, "/ai/voice-query", "audio/webm", []byte("webm")))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Hi there", body["response"])
	assert.Equal(t, "default", body["sessionId"])
}

func TestVoiceQueryErrors(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		err         error
		want        int
	}{
		{"not audio", "image/png", nil, http.StatusBadRequest},
		{"silence", "audio/wav", speech.ErrEmptyTranscript, http.StatusUnprocessableEntity},
		{"disabled", "audio/wav", assistant.ErrSpeechDisabled, http.StatusServiceUnavailable},
		{"upstream", "audio/wav", errors.New("whisper down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newAIRouter(&fakeAssistant{voiceErr: tt.err}).ServeHTTP(rec, audioRequest(t, "/ai/voice-query", tt.contentType, []byte("x")))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestVoiceQueryRequiresFile(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/ai/voice-query", nil)
	rec := httptest.NewRecorder()
	newAIRouter(&fakeAssistant{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetSession(t *testing.T) {
	a := &fakeAssistant{}
	rec := postJSON(t, newAIRouter(a), "/ai/reset-session", map[string]string{"sessionId": "s9"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"s9"}, a.reset)
	assert.Contains(t, rec.Body.String(), "Session reset successfully")
}

func TestSessionLanguage(t *testing.T) {
	a := &fakeAssistant{languages: map[string]sessions.Language{"s1": sessions.LanguageHindi}}
	router := newAIRouter(a)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ai/session/s1/language", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sessionId":"s1","language":"hi"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ai/session/nope/language", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newAIRouter(&fakeAssistant{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ai/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ai", body["service"])
	assert.Equal(t, "bedrock", body["llmProvider"])
}
