package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hunterwarburton/ferret/internal/config"
	"github.com/hunterwarburton/ferret/internal/core"
	"github.com/hunterwarburton/ferret/internal/similarity"
	"github.com/hunterwarburton/ferret/internal/store"
	"github.com/hunterwarburton/ferret/internal/synthesis"
	"github.com/hunterwarburton/ferret/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValidator struct {
	result validate.Result
}

func (f *fakeValidator) Validate(context.Context, string) validate.Result { return f.result }

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.6, 0.8}, nil
}

type fakeDetector struct {
	verdict core.Verdict
	err     error
}

func (f *fakeDetector) Detect(context.Context, core.QueryRecord) (core.Verdict, error) {
	return f.verdict, f.err
}

type fakeRetriever struct {
	sources []core.SourceRecord
	err     error
	calls   int
}

func (f *fakeRetriever) Retrieve(context.Context, string) ([]core.SourceRecord, error) {
	f.calls++
	return f.sources, f.err
}

type fakeSynthesizer struct {
	result synthesis.Result
	err    error
}

func (f *fakeSynthesizer) Synthesize(context.Context, string, []core.SourceRecord) (synthesis.Result, error) {
	return f.result, f.err
}

func acceptAll() *fakeValidator {
	return &fakeValidator{result: validate.Result{Valid: true, Confidence: 0.9}}
}

func testTagger() *similarity.Tagger {
	return similarity.NewTagger(config.DefaultRules())
}

func rankedSources() []core.SourceRecord {
	return []core.SourceRecord{
		{URL: "https://a.example.com", Title: "A", FetchStatus: core.FetchSuccess, RelevanceScore: 0.8, CombinedScore: 0.7},
		{URL: "https://b.example.com", Title: "B", FetchStatus: core.FetchTimeout},
	}
}

func TestHandleQueryRejectsInvalid(t *testing.T) {
	validator := &fakeValidator{result: validate.Result{Valid: false, Confidence: 0.95, Reason: "personal action"}}
	retriever := &fakeRetriever{}
	svc := NewService(validator, &fakeEmbedder{}, testTagger(), &fakeDetector{}, store.NewMemoryStore(), retriever, &fakeSynthesizer{})

	resp, err := svc.HandleQuery(context.Background(), "walk my dog")
	require.NoError(t, err)

	assert.False(t, resp.Valid)
	assert.Equal(t, "personal action", resp.Message)
	assert.Zero(t, retriever.calls, "rejected queries must not trigger retrieval")
}

func TestHandleQueryCacheMissResearchesAndStores(t *testing.T) {
	st := store.NewMemoryStore()
	retriever := &fakeRetriever{sources: rankedSources()}
	synthesizer := &fakeSynthesizer{result: synthesis.Result{
		Summary:    core.Summary{Text: "Fusion power remains experimental.", Method: "llm_primary", Confidence: 0.9},
		Sources:    []core.SourceSummary{{URL: "https://a.example.com", Title: "A", FetchStatus: "success", Score: 0.7}},
		Confidence: 0.81,
	}}
	svc := NewService(acceptAll(), &fakeEmbedder{}, testTagger(), &fakeDetector{}, st, retriever, synthesizer)

	resp, err := svc.HandleQuery(context.Background(), "status of fusion power")
	require.NoError(t, err)

	assert.True(t, resp.Valid)
	assert.False(t, resp.FromCache)
	assert.Equal(t, "Fusion power remains experimental.", resp.CombinedSummary)
	assert.Equal(t, 0.81, resp.Confidence)
	assert.Equal(t, 1, resp.SuccessfulScrapes)
	assert.Equal(t, 2, resp.TotalSources)

	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "answered queries are recorded")
}

func TestHandleQueryCacheHitSkipsRetrieval(t *testing.T) {
	st := store.NewMemoryStore()
	prior := core.QueryRecord{
		ID:             "prior-1",
		RawText:        "latest developments in AI",
		NormalizedText: "latest developments in ai",
		Embedding:      []float32{0.6, 0.8},
		QueryHash:      core.QueryHash("latest developments in ai"),
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, st.Append(context.Background(), prior, core.StoredResult{
		QueryID:         prior.ID,
		Sources:         rankedSources(),
		CombinedSummary: "AI systems keep improving.",
		SummaryMethod:   "llm_primary",
		Confidence:      0.8,
	}))

	detector := &fakeDetector{verdict: core.Verdict{IsSimilar: true, Confidence: 0.88, Matched: &prior}}
	retriever := &fakeRetriever{}
	svc := NewService(acceptAll(), &fakeEmbedder{}, testTagger(), detector, st, retriever, &fakeSynthesizer{})

	resp, err := svc.HandleQuery(context.Background(), "recent progress in artificial intelligence")
	require.NoError(t, err)

	assert.True(t, resp.FromCache)
	assert.Equal(t, "AI systems keep improving.", resp.CombinedSummary)
	assert.Equal(t, 0.8, resp.Confidence)
	assert.Equal(t, 1, resp.SuccessfulScrapes)
	assert.Equal(t, 2, resp.TotalSources)
	assert.Zero(t, retriever.calls, "cache hits must not trigger retrieval")
}

func TestHandleQueryMissingCachedResultFallsThrough(t *testing.T) {
	ghost := core.QueryRecord{ID: "ghost", RawText: "x", NormalizedText: "x", QueryHash: core.QueryHash("x")}
	detector := &fakeDetector{verdict: core.Verdict{IsSimilar: true, Matched: &ghost}}
	retriever := &fakeRetriever{sources: rankedSources()}
	synthesizer := &fakeSynthesizer{result: synthesis.Result{
		Summary:    core.Summary{Text: "fresh answer", Method: "extractive", Confidence: 0.7},
		Confidence: 0.6,
	}}
	svc := NewService(acceptAll(), &fakeEmbedder{}, testTagger(), detector, store.NewMemoryStore(), retriever, synthesizer)

	resp, err := svc.HandleQuery(context.Background(), "orphaned similarity hit")
	require.NoError(t, err)

	assert.False(t, resp.FromCache)
	assert.Equal(t, "fresh answer", resp.CombinedSummary)
	assert.Equal(t, 1, retriever.calls)
}

func TestHandleQueryDetectorErrorTreatedAsMiss(t *testing.T) {
	detector := &fakeDetector{err: errors.New("vector store down")}
	retriever := &fakeRetriever{sources: rankedSources()}
	synthesizer := &fakeSynthesizer{result: synthesis.Result{
		Summary: core.Summary{Text: "answer", Method: "extractive", Confidence: 0.7},
	}}
	svc := NewService(acceptAll(), &fakeEmbedder{}, testTagger(), detector, store.NewMemoryStore(), retriever, synthesizer)

	resp, err := svc.HandleQuery(context.Background(), "resilient pipeline")
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.CombinedSummary)
}

func TestHandleQueryNoUsableSources(t *testing.T) {
	st := store.NewMemoryStore()
	retriever := &fakeRetriever{sources: []core.SourceRecord{
		{URL: "https://a.example.com", FetchStatus: core.FetchBlocked},
	}}
	synthesizer := &fakeSynthesizer{err: synthesis.ErrNoUsableSources}
	svc := NewService(acceptAll(), &fakeEmbedder{}, testTagger(), &fakeDetector{}, st, retriever, synthesizer)

	resp, err := svc.HandleQuery(context.Background(), "obscure question")
	require.NoError(t, err)

	assert.True(t, resp.Valid)
	assert.NotEmpty(t, resp.Message)
	assert.Empty(t, resp.CombinedSummary)
	assert.Equal(t, 1, resp.TotalSources)

	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "unanswered queries are not recorded")
}

func TestHandleQueryEmbedderError(t *testing.T) {
	svc := NewService(acceptAll(), &fakeEmbedder{err: errors.New("embedding api down")},
		testTagger(), &fakeDetector{}, store.NewMemoryStore(), &fakeRetriever{}, &fakeSynthesizer{})

	_, err := svc.HandleQuery(context.Background(), "anything")
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.Append(context.Background(), core.QueryRecord{
		ID: "q1", NormalizedText: "a", QueryHash: core.QueryHash("a"),
	}, core.StoredResult{QueryID: "q1"}))

	svc := NewService(acceptAll(), &fakeEmbedder{}, testTagger(), &fakeDetector{}, st, &fakeRetriever{}, &fakeSynthesizer{})

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.CachedQueries)
}
