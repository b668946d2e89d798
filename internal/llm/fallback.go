package llm

import (
	"context"
	"time"

	"github.com/tvamit/aya-helthcare-demo/internal/observability/metrics"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

// Instrumented records per-provider latency for every completion.
type Instrumented struct {
	next     Client
	provider string
	metrics  *metrics.AssistantMetrics
}

func NewInstrumented(next Client, provider string, m *metrics.AssistantMetrics) *Instrumented {
	if next == nil {
		panic("llm: client cannot be nil")
	}
	return &Instrumented{next: next, provider: provider, metrics: m}
}

func (c *Instrumented) Complete(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	resp, err := c.next.Complete(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.ObserveLLMLatency(c.provider, status, time.Since(start).Seconds())
	return resp, err
}

// FallbackClient retries a failed completion on a second provider.
type FallbackClient struct {
	primary  Client
	fallback Client
	logger   *logging.Logger
}

// NewFallbackClient wraps primary. A nil fallback disables the retry.
func NewFallbackClient(primary, fallback Client, logger *logging.Logger) *FallbackClient {
	if primary == nil {
		panic("llm: primary client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackClient{primary: primary, fallback: fallback, logger: logger}
}

func (c *FallbackClient) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	c.logger.Warn("primary llm failed", "error", err, "fallback_available", c.fallback != nil)
	if c.fallback == nil || ctx.Err() != nil {
		return Response{}, err
	}

	resp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("fallback llm also failed", "primary_error", err, "fallback_error", fallbackErr)
		return Response{}, fallbackErr
	}
	c.logger.Info("fallback llm succeeded after primary failure")
	return resp, nil
}
