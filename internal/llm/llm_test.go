package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hunterwarburton/ferret/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": reply}},
			},
		})
	}))
}

func TestCompleteReturnsAssistantText(t *testing.T) {
	srv := chatServer(t, "hello there")
	defer srv.Close()

	c := NewOpenRouterClient("key", "test/model", WithBaseURL(srv.URL))
	got, err := c.Complete(context.Background(), "system", "user", 64)
	require.NoError(t, err)
	assert.Equal(t, "hello there", got)
}

func TestCompleteSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model overloaded", "code": 429},
		})
	}))
	defer srv.Close()

	c := NewOpenRouterClient("key", "test/model", WithBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), "", "user", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestJudgeParsesVerdict(t *testing.T) {
	srv := chatServer(t, `{"equivalent": true, "confidence": 0.92, "reason": "same intent"}`)
	defer srv.Close()

	j := NewJudge(NewOpenRouterClient("key", "test/model", WithBaseURL(srv.URL)))
	got, err := j.Judge(context.Background(), "best python web framework", "top python web frameworks")
	require.NoError(t, err)
	assert.True(t, got.Equivalent)
	assert.InDelta(t, 0.92, got.Confidence, 1e-9)
	assert.Equal(t, "same intent", got.Reason)
}

func TestJudgeToleratesFencedJSON(t *testing.T) {
	srv := chatServer(t, "Here is my answer:\n```json\n{\"equivalent\": false, \"confidence\": 0.8, \"reason\": \"different companies\"}\n```")
	defer srv.Close()

	j := NewJudge(NewOpenRouterClient("key", "test/model", WithBaseURL(srv.URL)))
	got, err := j.Judge(context.Background(), "tata steel share price", "tata motors share price")
	require.NoError(t, err)
	assert.False(t, got.Equivalent)
}

func TestJudgeRejectsGarbage(t *testing.T) {
	srv := chatServer(t, "I cannot answer that.")
	defer srv.Close()

	j := NewJudge(NewOpenRouterClient("key", "test/model", WithBaseURL(srv.URL)))
	_, err := j.Judge(context.Background(), "a", "b")
	assert.Error(t, err)
}

func TestJudgeRejectsOutOfRangeConfidence(t *testing.T) {
	_, err := parseJudgeResponse(`{"equivalent": true, "confidence": 1.7}`)
	assert.Error(t, err)
}

func TestJudgePromptShowsWorkedExamples(t *testing.T) {
	assert.Contains(t, judgeSystemPrompt, `"how to install playwright" vs "how to install selenium" -> not equivalent`)
	assert.Contains(t, judgeSystemPrompt, `"tata steel share price" vs "tata motors share price" -> not equivalent`)
	assert.Contains(t, judgeSystemPrompt, "-> equivalent")
}

type fakeModelCompleter struct {
	replies map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeModelCompleter) CompleteWithModel(_ context.Context, model, _, _ string, _ int) (string, error) {
	f.calls = append(f.calls, model)
	if err, ok := f.errs[model]; ok {
		return "", err
	}
	return f.replies[model], nil
}

func TestSummarizerPrimary(t *testing.T) {
	fc := &fakeModelCompleter{replies: map[string]string{"primary": "Go is a fast language."}}
	s := NewSummarizer(fc, "primary", "secondary")

	got, err := s.Summarize(context.Background(), core.SummaryRequest{Query: "what is go", Content: "..."})
	require.NoError(t, err)
	assert.Equal(t, "llm_primary", got.Method)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	assert.Equal(t, []string{"primary"}, fc.calls)
}

func TestSummarizerFallsBackToSecondary(t *testing.T) {
	fc := &fakeModelCompleter{
		replies: map[string]string{"secondary": "Summary text."},
		errs:    map[string]error{"primary": errors.New("unavailable")},
	}
	s := NewSummarizer(fc, "primary", "secondary")

	got, err := s.Summarize(context.Background(), core.SummaryRequest{Query: "q", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, "llm_secondary", got.Method)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)
	assert.Equal(t, []string{"primary", "secondary"}, fc.calls)
}

func TestSummarizerBothFail(t *testing.T) {
	fc := &fakeModelCompleter{errs: map[string]error{
		"primary":   errors.New("down"),
		"secondary": errors.New("also down"),
	}}
	s := NewSummarizer(fc, "primary", "secondary")

	_, err := s.Summarize(context.Background(), core.SummaryRequest{Query: "q", Content: "c"})
	assert.Error(t, err)
}
