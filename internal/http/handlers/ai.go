package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tvamit/aya-helthcare-demo/internal/assistant"
	"github.com/tvamit/aya-helthcare-demo/internal/booking"
	"github.com/tvamit/aya-helthcare-demo/internal/sessions"
	"github.com/tvamit/aya-helthcare-demo/internal/speech"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

const maxAudioBytes = 10 << 20

// Assistant is the conversation surface the AI endpoints call.
type Assistant interface {
	ProcessQuery(ctx context.Context, text, sessionID string) (assistant.Answer, error)
	VoiceQuery(ctx context.Context, audio []byte, filename, sessionID string) (assistant.VoiceAnswer, error)
	ResetSession(ctx context.Context, sessionID string) error
	PreferredLanguage(ctx context.Context, sessionID string) (sessions.Language, bool, error)
}

// ServiceStatus is reported by the AI health check.
type ServiceStatus struct {
	LLMProvider        string `json:"llmProvider"`
	SpeechToText       string `json:"speechToText,omitempty"`
	TextToSpeech       bool   `json:"textToSpeech"`
	KnowledgeRetrieval bool   `json:"knowledgeRetrieval"`
}

// AIHandler serves the /ai endpoints.
type AIHandler struct {
	assistant Assistant
	status    ServiceStatus
	logger    *logging.Logger
}

func NewAIHandler(a Assistant, status ServiceStatus, logger *logging.Logger) *AIHandler {
	if a == nil {
		panic("handlers: assistant cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AIHandler{assistant: a, status: status, logger: logger}
}

type textQueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId"`
}

type textQueryResponse struct {
	Success       bool   `json:"success"`
	Query         string `json:"query"`
	Response      string `json:"response"`
	SessionID     string `json:"sessionId"`
	Language      string `json:"language,omitempty"`
	Route         string `json:"route,omitempty"`
	AppointmentID int64  `json:"appointmentId,omitempty"`
}

// TextQuery handles POST /ai/text-query.
func (h *AIHandler) TextQuery(w http.ResponseWriter, r *http.Request) {
	var req textQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "No query provided")
		return
	}
	sessionID := sessionOrDefault(req.SessionID)

	answer, err := h.assistant.ProcessQuery(r.Context(), req.Query, sessionID)
	if err != nil {
		h.logger.Error("text query failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process query")
		return
	}
	writeJSON(w, http.StatusOK, textQueryResponse{
		Success:       true,
		Query:         req.Query,
		Response:      answer.Text,
		SessionID:     sessionID,
		Language:      string(answer.Language),
		Route:         answer.Route,
		AppointmentID: answer.AppointmentID,
	})
}

type voiceTextResponse struct {
	Success       bool   `json:"success"`
	Transcription string `json:"transcription"`
	Response      string `json:"response"`
	SessionID     string `json:"sessionId"`
}

// VoiceQuery handles POST /ai/voice-query. The answer is returned as audio
// with the transcript and reply text URL-escaped in headers, or as JSON when
// speech synthesis is unavailable.
func (h *AIHandler) VoiceQuery(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionOrDefault(r.URL.Query().Get("sessionId"))
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes+1<<16)
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()
	if ct := header.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "audio/") && ct != "application/octet-stream" {
		writeError(w, http.StatusBadRequest, "Only audio files allowed")
		return
	}
	audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes))
	if err != nil || len(audio) == 0 {
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}

	answer, err := h.assistant.VoiceQuery(r.Context(), audio, header.Filename, sessionID)
	switch {
	case errors.Is(err, speech.ErrEmptyTranscript):
		writeError(w, http.StatusUnprocessableEntity, "Could not understand the audio")
		return
	case errors.Is(err, assistant.ErrSpeechDisabled):
		writeError(w, http.StatusServiceUnavailable, "Voice queries are not enabled")
		return
	case err != nil:
		h.logger.Error("voice query failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process voice query")
		return
	}

	w.Header().Set("X-Transcription", url.PathEscape(answer.Transcription))
	w.Header().Set("X-Response-Text", url.PathEscape(answer.ResponseText))
	if len(answer.Audio) == 0 {
		writeJSON(w, http.StatusOK, voiceTextResponse{
			Success:       true,
			Transcription: answer.Transcription,
			Response:      answer.ResponseText,
			SessionID:     sessionID,
		})
		return
	}
	contentType := answer.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(answer.Audio)
}

type resetRequest struct {
	SessionID string `json:"sessionId"`
}

type resetResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// ResetSession handles POST /ai/reset-session.
func (h *AIHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sessionID := sessionOrDefault(req.SessionID)
	if err := h.assistant.ResetSession(r.Context(), sessionID); err != nil {
		h.logger.Error("reset session failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to reset session")
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{Success: true, Message: "Session reset successfully", SessionID: sessionID})
}

type languageResponse struct {
	SessionID string `json:"sessionId"`
	Language  string `json:"language,omitempty"`
}

// SessionLanguage handles GET /ai/session/{id}/language.
func (h *AIHandler) SessionLanguage(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionOrDefault(chi.URLParam(r, "id"))
	lang, ok, err := h.assistant.PreferredLanguage(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("session language lookup failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, languageResponse{SessionID: sessionID, Language: string(lang)})
}

type aiHealthResponse struct {
	Status  string `json:"status"`
	Success bool   `json:"success"`
	Service string `json:"service"`
	ServiceStatus
}

// Health handles GET|POST /ai/health.
func (h *AIHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, aiHealthResponse{Status: "ok", Success: true, Service: "ai", ServiceStatus: h.status})
}

// Liveness handles GET /health.
func Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func sessionOrDefault(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return booking.DefaultSessionID
	}
	return id
}
