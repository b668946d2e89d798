package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tvamit/aya-helthcare-demo/internal/resilience"
	"github.com/tvamit/aya-helthcare-demo/internal/sessions"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

const maxAudioBytes = 10 << 20

// TTSClient calls the text-to-speech service, which answers with an MP3 body.
type TTSClient struct {
	httpService
}

func NewTTSClient(baseURL string, logger *logging.Logger, opts ...Option) *TTSClient {
	return &TTSClient{httpService: newHTTPService("tts", baseURL, logger, opts)}
}

type synthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type synthesized struct {
	audio       []byte
	contentType string
}

func (c *TTSClient) Synthesize(ctx context.Context, text string, lang sessions.Language) ([]byte, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", fmt.Errorf("speech: nothing to synthesize")
	}
	out, err := resilience.Call(c.breaker, func() (synthesized, error) {
		return c.synthesize(ctx, text, lang)
	})
	if err != nil {
		return nil, "", err
	}
	return out.audio, out.contentType, nil
}

func (c *TTSClient) synthesize(ctx context.Context, text string, lang sessions.Language) (synthesized, error) {
	payload, err := json.Marshal(synthesizeRequest{Text: text, Language: languageCode(lang)})
	if err != nil {
		return synthesized{}, fmt.Errorf("speech: encode synthesize: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/synthesize", bytes.NewReader(payload))
	if err != nil {
		return synthesized{}, fmt.Errorf("speech: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return synthesized{}, fmt.Errorf("speech: synthesize: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return synthesized{}, fmt.Errorf("speech: read audio: %w", err)
	}
	if resp.StatusCode >= 300 {
		var failure struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &failure)
		return synthesized{}, fmt.Errorf("speech: synthesize failed with status %d: %s", resp.StatusCode, failure.Error)
	}
	if len(body) == 0 {
		return synthesized{}, ErrEmptyAudio
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/json") {
		contentType = "audio/mpeg"
	}
	return synthesized{audio: body, contentType: contentType}, nil
}
