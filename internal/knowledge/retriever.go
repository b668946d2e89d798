package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tvamit/aya-helthcare-demo/internal/resilience"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

// Retriever returns the passages most relevant to a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

const maxResults = 20

// HTTPRetriever queries the vector search service.
type HTTPRetriever struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger
}

type HTTPRetrieverOption func(*HTTPRetriever)

func WithHTTPClient(c *http.Client) HTTPRetrieverOption {
	return func(r *HTTPRetriever) {
		if c != nil {
			r.client = c
		}
	}
}

func NewHTTPRetriever(baseURL string, logger *logging.Logger, opts ...HTTPRetrieverOption) *HTTPRetriever {
	if logger == nil {
		logger = logging.Default()
	}
	r := &HTTPRetriever{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
		breaker: resilience.NewBreaker("vector-search", logger),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type searchRequest struct {
	Query    string `json:"query"`
	NResults int    `json:"n_results"`
}

type searchResponse struct {
	Success bool     `json:"success"`
	Results []string `json:"results"`
	Count   int      `json:"count"`
	Error   string   `json:"error"`
}

func (r *HTTPRetriever) Search(ctx context.Context, query string, k int) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if k < 1 || k > maxResults {
		k = 5
	}
	return resilience.Call(r.breaker, func() ([]string, error) {
		return r.search(ctx, query, k)
	})
}

func (r *HTTPRetriever) search(ctx context.Context, query string, k int) ([]string, error) {
	body, err := json.Marshal(searchRequest{Query: query, NResults: k})
	if err != nil {
		return nil, fmt.Errorf("knowledge: encode search: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("knowledge: build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("knowledge: search: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("knowledge: read search response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("knowledge: search returned status %d", resp.StatusCode)
	}
	var decoded searchResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("knowledge: decode search response: %w", err)
	}
	if !decoded.Success {
		return nil, fmt.Errorf("knowledge: search failed: %s", decoded.Error)
	}
	r.logger.Debug("vector search", "results", len(decoded.Results))
	return decoded.Results, nil
}

// Chain tries each retriever in order and returns the first non-empty result.
// Failures are logged and skipped.
type Chain struct {
	retrievers []Retriever
	logger     *logging.Logger
}

func NewChain(logger *logging.Logger, retrievers ...Retriever) *Chain {
	if logger == nil {
		logger = logging.Default()
	}
	var kept []Retriever
	for _, r := range retrievers {
		if r != nil {
			kept = append(kept, r)
		}
	}
	return &Chain{retrievers: kept, logger: logger}
}

func (c *Chain) Search(ctx context.Context, query string, k int) ([]string, error) {
	var lastErr error
	for _, r := range c.retrievers {
		results, err := r.Search(ctx, query, k)
		if err != nil {
			c.logger.Warn("retriever failed", "error", err)
			lastErr = err
			continue
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	return nil, lastErr
}
