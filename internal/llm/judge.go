package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hunterwarburton/ferret/internal/core"
	"github.com/hunterwarburton/ferret/internal/logger"
)

// Completer is the chat capability the judge and summarizer need.
type Completer interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

const judgeSystemPrompt = `You compare two search queries and decide whether they ask for the same information, so that a cached answer for one can safely serve the other.

Be strict. Queries about different products, versions, companies, technologies or time periods are NOT equivalent even when the wording is close.

Examples:
"how to install playwright" vs "how to install selenium" -> not equivalent (different tools)
"latest developments in AI" vs "recent progress in artificial intelligence" -> equivalent (same topic, same timeframe)
"tata steel share price" vs "tata motors share price" -> not equivalent (different companies)
"python 2 end of life" vs "python 3 end of life" -> not equivalent (different versions)

Respond with JSON only, no prose:
{"equivalent": true|false, "confidence": 0.0-1.0, "reason": "short explanation"}`

// Judge asks an LLM whether two queries are semantically equivalent.
type Judge struct {
	completer Completer
}

// NewJudge creates a Judge on top of a chat completer.
func NewJudge(completer Completer) *Judge {
	return &Judge{completer: completer}
}

// Judge returns the model's equivalence decision. Any transport or
// parse failure is returned as an error; callers decide what a missing
// verdict means.
func (j *Judge) Judge(ctx context.Context, a, b string) (core.JudgeResult, error) {
	user := fmt.Sprintf("Query A: %s\nQuery B: %s", a, b)

	raw, err := j.completer.Complete(ctx, judgeSystemPrompt, user, 256)
	if err != nil {
		return core.JudgeResult{}, fmt.Errorf("judge completion failed: %w", err)
	}

	verdict, err := parseJudgeResponse(raw)
	if err != nil {
		logger.Debug("Unparseable judge response: %q", raw)
		return core.JudgeResult{}, err
	}
	return verdict, nil
}

// parseJudgeResponse extracts the JSON verdict from a model response,
// tolerating surrounding prose and markdown fences.
func parseJudgeResponse(raw string) (core.JudgeResult, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return core.JudgeResult{}, fmt.Errorf("no JSON object in judge response")
	}

	var out struct {
		Equivalent bool    `json:"equivalent"`
		Confidence float64 `json:"confidence"`
		Reason     string  `json:"reason"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
		return core.JudgeResult{}, fmt.Errorf("failed to parse judge response: %w", err)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return core.JudgeResult{}, fmt.Errorf("judge confidence %v out of range", out.Confidence)
	}

	return core.JudgeResult{
		Equivalent: out.Equivalent,
		Confidence: out.Confidence,
		Reason:     out.Reason,
	}, nil
}
