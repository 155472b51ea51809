package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hunterwarburton/ferret/internal/config"
	"github.com/hunterwarburton/ferret/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSummarizer struct {
	lastReq core.SummaryRequest
	summary core.Summary
	err     error
}

func (f *fakeSummarizer) Summarize(_ context.Context, req core.SummaryRequest) (core.Summary, error) {
	f.lastReq = req
	return f.summary, f.err
}

func testSynthesisConfig() config.Synthesis {
	return config.Synthesis{MaxSentences: 4, ContentBudget: 12000}
}

func usableSource(url, title, content string, relevance, combined float64) core.SourceRecord {
	return core.SourceRecord{
		URL:            url,
		Title:          title,
		RawContent:     content,
		FetchStatus:    core.FetchSuccess,
		RelevanceScore: relevance,
		CombinedScore:  combined,
	}
}

func TestSynthesizeUsesLLMSummary(t *testing.T) {
	summarizer := &fakeSummarizer{summary: core.Summary{Text: "Go is a compiled language.", Method: "llm_primary", Confidence: 0.9}}
	engine := NewEngine(summarizer, testSynthesisConfig())

	sources := []core.SourceRecord{
		usableSource("https://a.example.com", "Go intro", "Go is a compiled language designed at Google. It ships a garbage collector.", 0.8, 0.7),
		{URL: "https://down.example.com", Title: "Down", FetchStatus: core.FetchTimeout},
	}

	got, err := engine.Synthesize(context.Background(), "what is go", sources)
	require.NoError(t, err)

	assert.Equal(t, "llm_primary", got.Summary.Method)
	assert.Equal(t, "Go is a compiled language.", got.Summary.Text)
	assert.Contains(t, summarizer.lastReq.Content, "https://a.example.com")
	assert.Equal(t, "what is go", summarizer.lastReq.Query)

	require.Len(t, got.Sources, 2)
	assert.NotEmpty(t, got.Sources[0].Summary)
	assert.Empty(t, got.Sources[1].Summary)
	assert.Equal(t, "timeout", got.Sources[1].FetchStatus)

	// usable 1/2 at 0.3, mean relevance 0.8 at 0.3, method 0.9 at 0.4
	assert.InDelta(t, 0.5*0.3+0.8*0.3+0.9*0.4, got.Confidence, 1e-9)
}

func TestSynthesizeFallsBackToExtractive(t *testing.T) {
	summarizer := &fakeSummarizer{err: errors.New("model unavailable")}
	engine := NewEngine(summarizer, testSynthesisConfig())

	content := "The race detector finds data races in running programs. " +
		"It instruments memory accesses at compile time. " +
		"Completely unrelated filler text about gardening tools here."
	sources := []core.SourceRecord{usableSource("https://a.example.com", "Race detector", content, 0.9, 0.8)}

	got, err := engine.Synthesize(context.Background(), "how does the go race detector work", sources)
	require.NoError(t, err)

	assert.Equal(t, "extractive", got.Summary.Method)
	assert.InDelta(t, 0.7, got.Summary.Confidence, 1e-9)
	assert.Contains(t, got.Summary.Text, "race detector")
}

func TestSynthesizeNilSummarizerIsExtractive(t *testing.T) {
	engine := NewEngine(nil, testSynthesisConfig())

	sources := []core.SourceRecord{usableSource("https://a.example.com", "Channels",
		"Channels carry typed values between goroutines. Unbuffered channels synchronize sender and receiver.", 0.7, 0.6)}

	got, err := engine.Synthesize(context.Background(), "go channels", sources)
	require.NoError(t, err)
	assert.Equal(t, "extractive", got.Summary.Method)
	assert.NotEmpty(t, got.Summary.Text)
}

func TestSynthesizeNoUsableSources(t *testing.T) {
	engine := NewEngine(nil, testSynthesisConfig())

	sources := []core.SourceRecord{
		{URL: "https://a.example.com", FetchStatus: core.FetchBlocked},
		{URL: "https://b.example.com", FetchStatus: core.FetchNetworkError},
	}

	_, err := engine.Synthesize(context.Background(), "anything", sources)
	assert.ErrorIs(t, err, ErrNoUsableSources)
}

func TestAssembleDropsRepeatedSentences(t *testing.T) {
	summarizer := &fakeSummarizer{summary: core.Summary{Text: "ok", Method: "llm_primary", Confidence: 0.9}}
	engine := NewEngine(summarizer, testSynthesisConfig())

	shared := "Go modules were introduced in version 1.11."
	sources := []core.SourceRecord{
		usableSource("https://a.example.com", "Modules", shared+" They replaced GOPATH based builds.", 0.8, 0.8),
		usableSource("https://b.example.com", "Mirror", shared+" Proxies cache module downloads for reliability.", 0.7, 0.7),
	}

	_, err := engine.Synthesize(context.Background(), "go modules", sources)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(summarizer.lastReq.Content, shared))
	assert.Contains(t, summarizer.lastReq.Content, "Proxies cache module downloads")
}

func TestAssembleRespectsContentBudget(t *testing.T) {
	summarizer := &fakeSummarizer{summary: core.Summary{Text: "ok", Method: "llm_primary", Confidence: 0.9}}
	cfg := config.Synthesis{MaxSentences: 4, ContentBudget: 300}
	engine := NewEngine(summarizer, cfg)

	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("Sentence number ")
		b.WriteString(strings.Repeat("x", i%7+1))
		b.WriteString(" carries distinct payload about schedulers. ")
	}
	sources := []core.SourceRecord{usableSource("https://a.example.com", "Long", b.String(), 0.8, 0.8)}

	_, err := engine.Synthesize(context.Background(), "schedulers", sources)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(summarizer.lastReq.Content), 300)
}

func TestSummaryCollapsesRepeatedSentences(t *testing.T) {
	summarizer := &fakeSummarizer{summary: core.Summary{
		Text:       "Fusion power remains experimental. Fusion power remains experimental. Progress continues.",
		Method:     "llm_primary",
		Confidence: 0.9,
	}}
	engine := NewEngine(summarizer, testSynthesisConfig())

	sources := []core.SourceRecord{usableSource("https://a.example.com", "Fusion",
		"Fusion reactors confine plasma with magnetic fields. Net energy gain was first reported in 2022.", 0.8, 0.8)}

	got, err := engine.Synthesize(context.Background(), "fusion power status", sources)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(got.Summary.Text, "Fusion power remains experimental."))
	assert.Contains(t, got.Summary.Text, "Progress continues.")
}

func TestSummaryStripsBoilerplate(t *testing.T) {
	summarizer := &fakeSummarizer{summary: core.Summary{
		Text:       "Battery costs fell sharply over the decade. Subscribe to our newsletter for weekly updates. Grid storage deployments doubled.",
		Method:     "llm_primary",
		Confidence: 0.9,
	}}
	engine := NewEngine(summarizer, testSynthesisConfig())

	sources := []core.SourceRecord{usableSource("https://a.example.com", "Storage",
		"Grid scale batteries smooth renewable output. Lithium prices drive deployment economics.", 0.8, 0.8)}

	got, err := engine.Synthesize(context.Background(), "battery storage trends", sources)
	require.NoError(t, err)

	assert.NotContains(t, got.Summary.Text, "newsletter")
	assert.Contains(t, got.Summary.Text, "Battery costs fell sharply")
	assert.Contains(t, got.Summary.Text, "Grid storage deployments doubled.")
}

func TestSourceSummariesExtractPerSource(t *testing.T) {
	sources := []core.SourceRecord{
		usableSource("https://a.example.com", "Raft", "Raft elects a single leader per term. Followers replicate the leader's log entries. Unrelated musings about breakfast foods.", 0.9, 0.8),
		{URL: "https://down.example.com", Title: "Down", FetchStatus: core.FetchBlocked, SearchRank: 2},
	}

	got := SourceSummaries("raft leader election", sources)
	require.Len(t, got, 2)

	assert.Equal(t, "https://a.example.com", got[0].URL)
	assert.Contains(t, got[0].Summary, "leader")
	assert.Empty(t, got[1].Summary)
	assert.Equal(t, "blocked", got[1].FetchStatus)
}

func TestAssembleTruncatesAtSentenceBoundary(t *testing.T) {
	summarizer := &fakeSummarizer{summary: core.Summary{Text: "ok", Method: "llm_primary", Confidence: 0.9}}
	cfg := config.Synthesis{MaxSentences: 4, ContentBudget: 300}
	engine := NewEngine(summarizer, cfg)

	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("Sentence number ")
		b.WriteString(strings.Repeat("x", i%7+1))
		b.WriteString(" carries distinct payload about schedulers. ")
	}
	sources := []core.SourceRecord{usableSource("https://a.example.com", "Long", b.String(), 0.8, 0.8)}

	_, err := engine.Synthesize(context.Background(), "schedulers", sources)
	require.NoError(t, err)

	content := summarizer.lastReq.Content
	require.NotEmpty(t, content)
	assert.True(t, strings.HasSuffix(content, "."), "assembled content should end on a sentence boundary, got %q", content)
}

func TestTrimToSentenceEnd(t *testing.T) {
	assert.Equal(t, "Short text.", trimToSentenceEnd("Short text.", 100))
	assert.Equal(t, "First point. Second point.", trimToSentenceEnd("First point. Second point. Third point trails off", 30))
	assert.Equal(t, "", trimToSentenceEnd("no terminator anywhere in this text", 20))
	assert.Equal(t, "", trimToSentenceEnd("anything", 0))
}

func TestExtractorPrefersQuerySentences(t *testing.T) {
	e := NewExtractor()
	content := "Gardening requires patience and good soil. " +
		"The garbage collector in Go runs concurrently with the program. " +
		"It uses a tri-color mark and sweep algorithm. " +
		"Cats enjoy sitting near warm windows."

	got := e.Summarize("go garbage collector algorithm", content, 2)
	assert.Contains(t, got, "garbage collector")
	assert.NotContains(t, got, "Cats enjoy")
}

func TestExtractorPreservesOriginalOrder(t *testing.T) {
	e := NewExtractor()
	content := "Compilers translate source code into machine code. " +
		"Linkers combine object files into executables. " +
		"Loaders place executables into memory."

	got := e.Summarize("compilers linkers loaders", content, 3)
	first := strings.Index(got, "Compilers")
	second := strings.Index(got, "Linkers")
	third := strings.Index(got, "Loaders")
	require.GreaterOrEqual(t, first, 0)
	assert.Greater(t, second, first)
	assert.Greater(t, third, second)
}

func TestExtractorEmptyContent(t *testing.T) {
	e := NewExtractor()
	assert.Empty(t, e.Summarize("query", "", 3))
}
