package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/tvamit/aya-helthcare-demo/internal/booking"
	appconfig "github.com/tvamit/aya-helthcare-demo/internal/config"
	"github.com/tvamit/aya-helthcare-demo/internal/events"
	"github.com/tvamit/aya-helthcare-demo/internal/knowledge"
	"github.com/tvamit/aya-helthcare-demo/internal/llm"
	"github.com/tvamit/aya-helthcare-demo/internal/notify"
	"github.com/tvamit/aya-helthcare-demo/internal/observability/metrics"
	"github.com/tvamit/aya-helthcare-demo/internal/speech"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

const (
	providerBedrock = "bedrock"
	providerGemini  = "gemini"
)

var errAWSRequired = errors.New("bootstrap: AWS config required")

// BuildLLMClient returns the configured provider, instrumented, optionally
// followed by the other provider when LLM_FALLBACK_ENABLED is set. The
// returned closers release provider connections.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, m *metrics.AssistantMetrics, logger *logging.Logger) (llm.Client, []func() error, error) {
	if logger == nil {
		logger = logging.Default()
	}
	var closers []func() error

	primaryName := cfg.LLMProvider
	if primaryName == "" {
		primaryName = providerBedrock
	}
	primary, closer, err := buildProvider(ctx, primaryName, cfg, awsCfg)
	if err != nil {
		return nil, nil, err
	}
	if closer != nil {
		closers = append(closers, closer)
	}
	client := llm.Client(llm.NewInstrumented(primary, primaryName, m))
	logger.Info("llm provider configured", "provider", primaryName)

	if !cfg.LLMFallbackEnabled {
		return client, closers, nil
	}
	fallbackName := providerGemini
	if primaryName == providerGemini {
		fallbackName = providerBedrock
	}
	fallback, closer, err := buildProvider(ctx, fallbackName, cfg, awsCfg)
	if err != nil {
		logger.Warn("llm fallback unavailable", "provider", fallbackName, "error", err)
		return client, closers, nil
	}
	if closer != nil {
		closers = append(closers, closer)
	}
	logger.Info("llm fallback configured", "provider", fallbackName)
	return llm.NewFallbackClient(client, llm.NewInstrumented(fallback, fallbackName, m), logger), closers, nil
}

func buildProvider(ctx context.Context, name string, cfg *appconfig.Config, awsCfg *aws.Config) (llm.Client, func() error, error) {
	switch name {
	case providerBedrock:
		if awsCfg == nil {
			return nil, nil, errAWSRequired
		}
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, nil, errors.New("bootstrap: BEDROCK_MODEL_ID is required for bedrock")
		}
		return llm.NewBedrockClient(bedrockruntime.NewFromConfig(*awsCfg), cfg.BedrockModelID), nil, nil
	case providerGemini:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, nil, errors.New("bootstrap: GEMINI_API_KEY is required for gemini")
		}
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: gemini: %w", err)
		}
		return client, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown LLM_PROVIDER %q", name)
	}
}

// BuildRetriever chains the vector service and an embedding index seeded with
// the hospital knowledge documents. It returns nil when neither is configured.
func BuildRetriever(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, kb *knowledge.Knowledge, logger *logging.Logger) knowledge.Retriever {
	if logger == nil {
		logger = logging.Default()
	}
	var retrievers []knowledge.Retriever
	if url := strings.TrimSpace(cfg.VectorServiceURL); url != "" {
		retrievers = append(retrievers, knowledge.NewHTTPRetriever(url, logger))
		logger.Info("knowledge retriever: vector service", "url", url)
	}
	if model := strings.TrimSpace(cfg.BedrockEmbeddingModelID); model != "" {
		if awsCfg == nil {
			logger.Warn("knowledge retriever: embedding index needs AWS config")
		} else {
			index := knowledge.NewEmbeddingIndex(knowledge.NewBedrockEmbedder(bedrockruntime.NewFromConfig(*awsCfg), model))
			if err := index.Add(ctx, kb.Documents()); err != nil {
				logger.Warn("knowledge retriever: embedding index unavailable", "error", err)
			} else {
				retrievers = append(retrievers, index)
				logger.Info("knowledge retriever: embedding index", "model", model, "documents", index.Len())
			}
		}
	}
	if len(retrievers) == 0 {
		return nil
	}
	return knowledge.NewChain(logger, retrievers...)
}

// BuildSpeech returns the configured transcriber and synthesizer; either may
// be nil. sttName is reported by the AI health check.
func BuildSpeech(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (stt speech.Transcriber, tts speech.Synthesizer, sttName string, closers []func() error, err error) {
	if logger == nil {
		logger = logging.Default()
	}
	opts := []speech.Option{speech.WithTimeout(cfg.SpeechTimeout)}

	switch cfg.STTProvider {
	case "", "none":
	case "whisper":
		if url := strings.TrimSpace(cfg.WhisperURL); url != "" {
			stt, sttName = speech.NewWhisperClient(url, logger, opts...), "whisper"
		}
	case "google":
		google, dialErr := speech.DialGoogleTranscriber(ctx, cfg.GoogleApplicationCredentials, logger)
		if dialErr != nil {
			return nil, nil, "", nil, fmt.Errorf("bootstrap: %w", dialErr)
		}
		stt, sttName = google, "google"
		closers = append(closers, google.Close)
	default:
		return nil, nil, "", nil, fmt.Errorf("bootstrap: unknown STT_PROVIDER %q", cfg.STTProvider)
	}

	if url := strings.TrimSpace(cfg.TTSURL); url != "" {
		tts = speech.NewTTSClient(url, logger, opts...)
	}
	logger.Info("speech configured", "stt", sttName, "tts", tts != nil)
	return stt, tts, sttName, closers, nil
}

// BuildEmailSender prefers SendGrid, then SES, then a logging stub.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		return sg
	}
	if strings.TrimSpace(cfg.SESFromEmail) != "" && awsCfg != nil {
		if ses := notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); ses != nil {
			return ses
		}
	}
	return notify.NewStubEmailSender(logger)
}

// BookingSinks are the side effects of a confirmed booking.
type BookingSinks struct {
	Observers booking.Observers
	// Deliverer drains the outbox to SQS; nil unless both are configured.
	Deliverer *events.Deliverer
}

// BuildBookingSinks wires the front-desk email and the appointment.booked
// event. With a database the event goes through the outbox.
func BuildBookingSinks(cfg *appconfig.Config, awsCfg *aws.Config, pool events.PgxPool, logger *logging.Logger) BookingSinks {
	if logger == nil {
		logger = logging.Default()
	}
	var sinks BookingSinks

	if recipients := splitList(cfg.NotifyToEmail); len(recipients) > 0 {
		sinks.Observers = append(sinks.Observers, notify.NewBookingNotifier(BuildEmailSender(cfg, awsCfg, logger), recipients, logger))
	}

	queueURL := strings.TrimSpace(cfg.AppointmentEventsQueueURL)
	if queueURL == "" {
		return sinks
	}
	if awsCfg == nil {
		logger.Warn("appointment events disabled", "error", errAWSRequired)
		return sinks
	}
	publisher := events.NewSQSPublisher(sqs.NewFromConfig(*awsCfg), queueURL)
	if pool == nil {
		sinks.Observers = append(sinks.Observers, events.NewBookingPublisher(nil, publisher, logger))
		return sinks
	}
	outbox := events.NewOutboxStore(pool)
	sinks.Observers = append(sinks.Observers, events.NewBookingPublisher(outbox, nil, logger))
	sinks.Deliverer = events.NewDeliverer(outbox, publisher, logger)
	return sinks
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
