package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hunterwarburton/ferret/internal/config"
	"github.com/hunterwarburton/ferret/internal/core"
	"github.com/hunterwarburton/ferret/internal/logger"
	"github.com/hunterwarburton/ferret/internal/textutil"
)

// ErrNoUsableSources is returned when every fetched source failed or
// came back empty.
var ErrNoUsableSources = errors.New("no usable sources to synthesize from")

// sentenceOverlapThreshold marks two sentences as the same statement.
const sentenceOverlapThreshold = 0.9

// Result is a synthesized answer plus the citation list behind it.
type Result struct {
	Summary    core.Summary
	Sources    []core.SourceSummary
	Confidence float64
}

// Engine combines ranked sources into one answer. It prefers the LLM
// summarizer and degrades to extractive summarization, then plain
// truncation, so a broken model never blocks an answer.
type Engine struct {
	summarizer core.Summarizer
	extractor  *Extractor
	normalizer *textutil.Normalizer
	cfg        config.Synthesis
}

// NewEngine wires a synthesis engine. summarizer may be nil, in which
// case every answer is extractive.
func NewEngine(summarizer core.Summarizer, cfg config.Synthesis) *Engine {
	return &Engine{
		summarizer: summarizer,
		extractor:  NewExtractor(),
		normalizer: textutil.NewNormalizer(),
		cfg:        cfg,
	}
}

// Synthesize produces a combined answer for query from ranked sources.
// Sources must be ordered best first; failed fetches are carried into
// the citation list but contribute no content.
func (e *Engine) Synthesize(ctx context.Context, query string, sources []core.SourceRecord) (Result, error) {
	content, usable := e.assemble(sources)
	if usable == 0 {
		return Result{}, ErrNoUsableSources
	}

	summary := e.summarize(ctx, query, content)
	logger.Info("Synthesized answer via %s from %d sources", summary.Method, usable)

	return Result{
		Summary:    summary,
		Sources:    SourceSummaries(query, sources),
		Confidence: e.confidence(sources, usable, summary.Confidence),
	}, nil
}

// assemble concatenates usable source content best-first under the
// content budget, dropping sentences already contributed by a better
// source.
func (e *Engine) assemble(sources []core.SourceRecord) (string, int) {
	seen := make(map[string]bool)
	var keptTokens [][]string
	var b strings.Builder
	usable := 0

	for _, src := range sources {
		if !src.FetchStatus.Usable() || strings.TrimSpace(src.RawContent) == "" {
			continue
		}
		usable++
		if b.Len() >= e.cfg.ContentBudget {
			continue
		}

		var fresh []string
		for _, sentence := range textutil.SplitSentences(src.RawContent) {
			key := textutil.SentenceKey(sentence)
			if key == "" || seen[key] {
				continue
			}
			tokens := e.normalizer.Tokenize(sentence)
			if nearDuplicate(tokens, keptTokens) {
				continue
			}
			seen[key] = true
			keptTokens = append(keptTokens, tokens)
			fresh = append(fresh, sentence)
		}
		if len(fresh) == 0 {
			continue
		}

		section := fmt.Sprintf("[%s] %s\n%s\n\n", src.URL, src.Title, strings.Join(fresh, " "))
		remaining := e.cfg.ContentBudget - b.Len()
		if len(section) > remaining {
			section = trimToSentenceEnd(section, remaining)
			if section == "" {
				continue
			}
		}
		b.WriteString(section)
	}
	return b.String(), usable
}

// trimToSentenceEnd cuts text to at most limit bytes, ending at the
// last complete sentence so no dangling fragment survives.
func trimToSentenceEnd(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	end := strings.LastIndexAny(cut, ".!?")
	if end < 0 {
		return ""
	}
	return cut[:end+1]
}

func nearDuplicate(tokens []string, kept [][]string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, prev := range kept {
		if textutil.TokenOverlap(tokens, prev) > sentenceOverlapThreshold {
			return true
		}
	}
	return false
}

func (e *Engine) summarize(ctx context.Context, query, content string) core.Summary {
	summary := e.rawSummary(ctx, query, content)
	summary.Text = e.postProcess(summary.Text)
	return summary
}

func (e *Engine) rawSummary(ctx context.Context, query, content string) core.Summary {
	if e.summarizer != nil {
		summary, err := e.summarizer.Summarize(ctx, core.SummaryRequest{
			Query:        query,
			Content:      content,
			MaxSentences: e.cfg.MaxSentences,
		})
		if err == nil {
			return summary
		}
		logger.Warn("LLM summarization failed, falling back to extractive: %v", err)
	}

	if text := e.extractor.Summarize(query, content, e.cfg.MaxSentences); text != "" {
		return core.Summary{Text: text, Method: "extractive", Confidence: 0.7}
	}

	// Last resort: hand back the head of the assembled content.
	text := trimToSentenceEnd(content, 500)
	if text == "" {
		text = content
		if len(text) > 500 {
			text = text[:500]
		}
	}
	return core.Summary{Text: strings.TrimSpace(text), Method: "truncation", Confidence: 0.5}
}

// summaryBoilerplate marks sentences that are site chrome rather than
// answer content, regardless of which ladder rung produced them.
var summaryBoilerplate = []string{
	"subscribe to",
	"sign up for",
	"click here",
	"cookie",
	"newsletter",
	"all rights reserved",
	"advertisement",
	"read more at",
}

func isBoilerplate(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, marker := range summaryBoilerplate {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// postProcess cleans a produced summary: boilerplate sentences are
// dropped and no two surviving sentences share more than 90% of their
// tokens, whichever rung produced the text.
func (e *Engine) postProcess(text string) string {
	sentences := textutil.SplitSentences(text)
	seen := make(map[string]bool)
	var keptTokens [][]string
	kept := make([]string, 0, len(sentences))

	for _, sentence := range sentences {
		if isBoilerplate(sentence) {
			continue
		}
		key := textutil.SentenceKey(sentence)
		if key == "" || seen[key] {
			continue
		}
		tokens := e.normalizer.Tokenize(sentence)
		if nearDuplicate(tokens, keptTokens) {
			continue
		}
		seen[key] = true
		keptTokens = append(keptTokens, tokens)
		kept = append(kept, sentence)
	}
	return strings.Join(kept, " ")
}

// perSourceSentences caps how much of each source the citation view
// carries.
const perSourceSentences = 2

// SourceSummaries builds the outward per-source view: title, URL,
// fetch outcome, score and a short extractive summary of each usable
// source's content.
func SourceSummaries(query string, sources []core.SourceRecord) []core.SourceSummary {
	extractor := NewExtractor()
	out := make([]core.SourceSummary, len(sources))
	for i, src := range sources {
		out[i] = core.SourceSummary{
			URL:         src.URL,
			Title:       src.Title,
			FetchStatus: string(src.FetchStatus),
			Score:       src.CombinedScore,
		}
		if src.FetchStatus.Usable() && src.RawContent != "" {
			out[i].Summary = extractor.Summarize(query, src.RawContent, perSourceSentences)
		}
	}
	return out
}

// confidence blends how many fetches succeeded, how relevant the kept
// sources are and how trustworthy the summarization method is.
func (e *Engine) confidence(sources []core.SourceRecord, usable int, methodConfidence float64) float64 {
	if len(sources) == 0 {
		return 0
	}
	usableFraction := float64(usable) / float64(len(sources))

	var relevanceSum float64
	for _, src := range sources {
		if src.FetchStatus.Usable() {
			relevanceSum += src.RelevanceScore
		}
	}
	meanRelevance := relevanceSum / float64(usable)

	return usableFraction*0.3 + meanRelevance*0.3 + methodConfidence*0.4
}
