package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hunterwarburton/ferret/internal/core"
	"github.com/hunterwarburton/ferret/internal/logger"
)

// ModelCompleter runs a chat completion against an explicit model.
type ModelCompleter interface {
	CompleteWithModel(ctx context.Context, model, system, user string, maxTokens int) (string, error)
}

const summarySystemPrompt = `You write concise research summaries. Using only the provided source material, answer the user's question in clear complete sentences. Do not invent facts that are not in the sources. Do not mention the sources or the summarization process itself.`

// Summarizer condenses research content with a primary model and falls
// back to a secondary model when the primary is unavailable.
type Summarizer struct {
	completer ModelCompleter
	primary   string
	secondary string
}

// NewSummarizer creates a two-model LLM summarizer.
func NewSummarizer(completer ModelCompleter, primary, secondary string) *Summarizer {
	return &Summarizer{completer: completer, primary: primary, secondary: secondary}
}

// Summarize tries the primary model first and the secondary model on
// failure. Both failing is an error; the caller falls back to
// non-LLM summarization.
func (s *Summarizer) Summarize(ctx context.Context, req core.SummaryRequest) (core.Summary, error) {
	user := buildSummaryPrompt(req)

	text, err := s.completer.CompleteWithModel(ctx, s.primary, summarySystemPrompt, user, 1024)
	if err == nil {
		if text = strings.TrimSpace(text); text != "" {
			return core.Summary{Text: text, Method: "llm_primary", Confidence: 0.9}, nil
		}
		err = errors.New("primary model returned empty summary")
	}
	logger.Debug("Primary summarizer model failed: %v", err)

	if s.secondary == "" || s.secondary == s.primary {
		return core.Summary{}, fmt.Errorf("llm summarization failed: %w", err)
	}

	text, err2 := s.completer.CompleteWithModel(ctx, s.secondary, summarySystemPrompt, user, 1024)
	if err2 != nil {
		return core.Summary{}, fmt.Errorf("llm summarization failed: %w", errors.Join(err, err2))
	}
	if text = strings.TrimSpace(text); text == "" {
		return core.Summary{}, errors.New("llm summarization failed: secondary model returned empty summary")
	}
	return core.Summary{Text: text, Method: "llm_secondary", Confidence: 0.8}, nil
}

func buildSummaryPrompt(req core.SummaryRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", req.Query)
	if req.MaxSentences > 0 {
		fmt.Fprintf(&b, "Answer in at most %d sentences.\n\n", req.MaxSentences)
	}
	b.WriteString("Source material:\n")
	b.WriteString(req.Content)
	return b.String()
}
