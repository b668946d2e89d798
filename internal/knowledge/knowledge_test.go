package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvamit/aya-helthcare-demo/internal/resilience"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

func quietLogger() *logging.Logger {
	return logging.NewWithWriter(&bytes.Buffer{}, "error")
}

func TestDefaultKnowledgeLoads(t *testing.T) {
	k, err := Default()
	require.NoError(t, err)
	assert.Len(t, k.Departments, 10)
	assert.Len(t, k.Doctors, 8)
	assert.Equal(t, "1860-500-1066", k.EmergencyNumbers["mainReception"])
	assert.Equal(t, `"Ground Floor"`, string(k.Departments[9].Floor))
}

func TestBuildContextSelectsSections(t *testing.T) {
	k, err := Default()
	require.NoError(t, err)

	ctx := k.BuildContext("Is an ICU bed free?")
	assert.Contains(t, ctx, "FACILITIES & BEDS:")
	assert.NotContains(t, ctx, "DOCTORS:")

	ctx = k.BuildContext("What are the visiting timings and insurance policy?")
	assert.Contains(t, ctx, "POLICIES:")
	assert.Contains(t, ctx, "11 AM - 1 PM, 5 PM - 7 PM")

	ctx = k.BuildContext("hello")
	assert.True(t, strings.HasPrefix(ctx, "DEPARTMENTS: Cardiology, Neurology"))
	assert.Contains(t, ctx, "Blood Bank (all 24/7)")
}

func TestSymptomGuidance(t *testing.T) {
	k, err := Default()
	require.NoError(t, err)

	got, ok := k.SymptomGuidance("I have chest pain since morning")
	require.True(t, ok)
	var s Symptom
	require.NoError(t, json.Unmarshal([]byte(got), &s))
	assert.Equal(t, "Cardiology / Emergency", s.Department)

	got, ok = k.SymptomGuidance("मुझे बुखार है")
	require.True(t, ok)
	assert.Contains(t, got, "General Physician")

	_, ok = k.SymptomGuidance("where is the cafeteria")
	assert.False(t, ok)
}

func TestNeedsRealTimeData(t *testing.T) {
	assert.True(t, NeedsRealTimeData("Is any bed available right now?"))
	assert.True(t, NeedsRealTimeData("abhi kitne bed khali hai"))
	assert.True(t, NeedsRealTimeData("क्या ICU बेड खाली है"))
	assert.False(t, NeedsRealTimeData("Where is the pharmacy?"))
}

func TestDocumentsCoverEverySection(t *testing.T) {
	k, err := Default()
	require.NoError(t, err)
	docs := k.Documents()
	// info + 10 departments + 8 doctors + 5 facilities + 6 services + policies
	// + booking + 8 symptoms + emergency numbers
	assert.Len(t, docs, 1+10+8+5+6+1+1+8+1)
	assert.Contains(t, docs[10], "Emergency & Trauma")
	assert.Contains(t, docs[10], "Floor: Ground Floor")
}

func TestHTTPRetrieverSearch(t *testing.T) {
	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(searchResponse{Success: true, Results: []string{"ICU has 50 beds"}, Count: 1})
	}))
	defer srv.Close()

	r := NewHTTPRetriever(srv.URL+"/", quietLogger())
	results, err := r.Search(context.Background(), "icu beds", 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"ICU has 50 beds"}, results)
	assert.Equal(t, searchRequest{Query: "icu beds", NResults: 7}, got)
}

func TestHTTPRetrieverClampsResultCount(t *testing.T) {
	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(searchResponse{Success: true})
	}))
	defer srv.Close()

	_, err := NewHTTPRetriever(srv.URL, quietLogger()).Search(context.Background(), "q", 50)
	require.NoError(t, err)
	assert.Equal(t, 5, got.NResults)
}

func TestHTTPRetrieverOpensBreaker(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewHTTPRetriever(srv.URL, quietLogger())
	for i := 0; i < 3; i++ {
		_, err := r.Search(context.Background(), "q", 5)
		require.Error(t, err)
	}
	_, err := r.Search(context.Background(), "q", 5)
	assert.ErrorIs(t, err, resilience.ErrUnavailable)
	assert.Equal(t, 3, hits)
}

// keywordEmbedder maps texts onto a fixed vocabulary so similarity is
// predictable.
type keywordEmbedder struct {
	vocab []string
	err   error
}

func (e keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		vec := make([]float32, len(e.vocab))
		for j, w := range e.vocab {
			if strings.Contains(lower, w) {
				vec[j] = 1
			}
		}
		out[i] = vec
	}
	return out, nil
}

func TestEmbeddingIndexRanksByCosine(t *testing.T) {
	idx := NewEmbeddingIndex(keywordEmbedder{vocab: []string{"icu", "bed", "pharmacy", "medicine"}})
	require.NoError(t, idx.Add(context.Background(), []string{
		"Pharmacy sells medicine 24/7",
		"ICU has 50 bed capacity",
		"General ward bed costs 1500",
	}))
	assert.Equal(t, 3, idx.Len())

	got, err := idx.Search(context.Background(), "icu bed", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"ICU has 50 bed capacity", "General ward bed costs 1500"}, got)
}

func TestChainFallsThrough(t *testing.T) {
	failing := NewEmbeddingIndex(keywordEmbedder{err: errors.New("throttled")})
	working := NewEmbeddingIndex(keywordEmbedder{vocab: []string{"icu"}})
	require.NoError(t, working.Add(context.Background(), []string{"ICU visiting is 30 minutes"}))

	got, err := NewChain(quietLogger(), failing, nil, working).Search(context.Background(), "icu", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"ICU visiting is 30 minutes"}, got)

	_, err = NewChain(quietLogger(), failing).Search(context.Background(), "icu", 3)
	assert.Error(t, err)
}

type fakeInvoker struct {
	inputs []*bedrockruntime.InvokeModelInput
}

func (f *fakeInvoker) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.inputs = append(f.inputs, in)
	return &bedrockruntime.InvokeModelOutput{Body: []byte(`{"embedding":[0.5,0.25]}`)}, nil
}

func TestBedrockEmbedder(t *testing.T) {
	api := &fakeInvoker{}
	vecs, err := NewBedrockEmbedder(api, "").Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, 0.25}, {0.5, 0.25}}, vecs)
	require.Len(t, api.inputs, 2)
	assert.Equal(t, "amazon.titan-embed-text-v2:0", aws.ToString(api.inputs[0].ModelId))
	assert.JSONEq(t, `{"inputText":"a"}`, string(api.inputs[0].Body))
}
