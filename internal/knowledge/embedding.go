package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Embedder turns texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// InvokeModelAPI is the part of the Bedrock runtime client used for
// embeddings.
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockEmbedder calls a Titan text embedding model.
type BedrockEmbedder struct {
	api     InvokeModelAPI
	modelID string
}

func NewBedrockEmbedder(api InvokeModelAPI, modelID string) *BedrockEmbedder {
	if api == nil {
		panic("knowledge: bedrock runtime client cannot be nil")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "amazon.titan-embed-text-v2:0"
	}
	return &BedrockEmbedder{api: api, modelID: modelID}
}

func (e *BedrockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		payload, err := json.Marshal(map[string]any{"inputText": text})
		if err != nil {
			return nil, fmt.Errorf("knowledge: embedding request: %w", err)
		}
		resp, err := e.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(e.modelID),
			ContentType: aws.String("application/json"),
			Accept:      aws.String("application/json"),
			Body:        payload,
		})
		if err != nil {
			return nil, fmt.Errorf("knowledge: invoke embedding model: %w", err)
		}
		var decoded struct {
			Embedding []float64 `json:"embedding"`
		}
		if err := json.Unmarshal(resp.Body, &decoded); err != nil {
			return nil, fmt.Errorf("knowledge: embedding response: %w", err)
		}
		if len(decoded.Embedding) == 0 {
			return nil, errors.New("knowledge: embedding response was empty")
		}
		vec := make([]float32, len(decoded.Embedding))
		for i, f := range decoded.Embedding {
			vec[i] = float32(f)
		}
		out = append(out, vec)
	}
	return out, nil
}

type entry struct {
	text   string
	vector []float32
	norm   float64
}

// EmbeddingIndex is an in-memory cosine similarity index.
type EmbeddingIndex struct {
	embedder Embedder
	mu       sync.RWMutex
	entries  []entry
}

func NewEmbeddingIndex(embedder Embedder) *EmbeddingIndex {
	if embedder == nil {
		panic("knowledge: embedder cannot be nil")
	}
	return &EmbeddingIndex{embedder: embedder}
}

// Add embeds and stores docs.
func (x *EmbeddingIndex) Add(ctx context.Context, docs []string) error {
	if len(docs) == 0 {
		return nil
	}
	vectors, err := x.embedder.Embed(ctx, docs)
	if err != nil {
		return err
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("knowledge: got %d embeddings for %d documents", len(vectors), len(docs))
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	for i, doc := range docs {
		x.entries = append(x.entries, entry{text: doc, vector: vectors[i], norm: norm(vectors[i])})
	}
	return nil
}

func (x *EmbeddingIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

func (x *EmbeddingIndex) Search(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	vectors, err := x.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	q := vectors[0]
	qn := norm(q)

	x.mu.RLock()
	type scored struct {
		text  string
		score float64
	}
	ranked := make([]scored, 0, len(x.entries))
	for _, e := range x.entries {
		ranked = append(ranked, scored{text: e.text, score: cosine(q, qn, e.vector, e.norm)})
	}
	x.mu.RUnlock()

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.text
	}
	return out, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
