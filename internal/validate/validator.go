// Package validate classifies incoming queries as web-researchable
// questions or personal action commands. Only researchable queries are
// allowed through to retrieval.
package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/hunterwarburton/ferret/internal/logger"
)

// Classifier runs a chat completion. *llm.OpenRouterClient satisfies it.
type Classifier interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// Result describes one validation decision.
type Result struct {
	Valid      bool    `json:"is_valid"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Category   string  `json:"category,omitempty"`
	Method     string  `json:"validation_method"`
}

// maxCacheEntries bounds the in-process decision cache.
const maxCacheEntries = 1000

var strongInvalidPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(call|text|message|send)\s+\w+`),
	regexp.MustCompile(`\b(turn\s+on|turn\s+off|start|stop|pause|play)\s+\w+`),
	regexp.MustCompile(`\b(add\s+to|remove\s+from|delete)\s+\w+`),
	regexp.MustCompile(`\b(remind\s+me|remember\s+to|don't\s+forget)`),
	regexp.MustCompile(`\b(open|close|launch|quit)\s+\w+`),
	regexp.MustCompile(`\b(walk|feed|take)\s+my\s+\w+`),
	regexp.MustCompile(`\b(buy|purchase|order)\s+\w+`),
	regexp.MustCompile(`\b(schedule|book|cancel)\s+\w+`),
	regexp.MustCompile(`\bmy\s+(password|pin|address|phone)`),
}

var strongValidPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(what\s+is|what\s+are|what\s+does|what\s+means)`),
	regexp.MustCompile(`\b(how\s+to|how\s+do|how\s+can|how\s+does)`),
	regexp.MustCompile(`\b(why\s+is|why\s+do|why\s+does|why\s+would)`),
	regexp.MustCompile(`\b(when\s+is|when\s+do|when\s+does|when\s+was)`),
	regexp.MustCompile(`\b(where\s+is|where\s+can|where\s+to)`),
	regexp.MustCompile(`\b(best\s+\w+|top\s+\w+|review\s+of|comparison\s+of)`),
	regexp.MustCompile(`\b(tutorial|guide|instructions|documentation)`),
	regexp.MustCompile(`\b(definition\s+of|meaning\s+of|explain\s+\w+)`),
	regexp.MustCompile(`\b(difference\s+between|compare\s+\w+)`),
	regexp.MustCompile(`\b(latest\s+news|current\s+events|recent\s+\w+)`),
}

type contextPattern struct {
	re         *regexp.Regexp
	confidence float64
	category   string
}

var invalidContextPatterns = []contextPattern{
	{regexp.MustCompile(`\b(call|text|message|send|email)\s+\w+`), 0.9, "social_interaction"},
	{regexp.MustCompile(`\b(turn\s+on|turn\s+off|start|stop|pause|play)\s+\w+`), 0.9, "device_control"},
	{regexp.MustCompile(`\b(add\s+to|remove\s+from|delete|create|make)\s+\w+`), 0.8, "file_management"},
	{regexp.MustCompile(`\b(remind|remember|note|write\s+down)`), 0.9, "personal_reminder"},
	{regexp.MustCompile(`\b(book|schedule|cancel|reserve)\s+\w+`), 0.8, "scheduling"},
	{regexp.MustCompile(`\b(walk|feed|take|bring)\s+my\s+\w+`), 0.95, "personal_action"},
	{regexp.MustCompile(`\b(buy|purchase|order|shop)\s+\w+`), 0.8, "personal_action"},
}

var validContextPatterns = []contextPattern{
	{regexp.MustCompile(`\b(what|how|why|when|where|who|which)\s+`), 0.8, "information_search"},
	{regexp.MustCompile(`\b(best|top|good|better|worst|review|rating)\s+`), 0.7, "product_research"},
	{regexp.MustCompile(`\b(tutorial|guide|learn|study|understand)\s+`), 0.8, "educational_content"},
	{regexp.MustCompile(`\b(definition|meaning|explain|describe)\s+`), 0.9, "definition_lookup"},
	{regexp.MustCompile(`\b(compare|comparison|vs|versus|difference)\s+`), 0.8, "comparison_analysis"},
	{regexp.MustCompile(`\b(latest|recent|current|news|update)\s+`), 0.7, "news_current_events"},
	{regexp.MustCompile(`\b(problem|issue|error|fix|solve|troubleshoot)\s+`), 0.7, "troubleshooting"},
}

var actionVerbs = map[string]bool{
	"call": true, "text": true, "send": true, "buy": true, "get": true,
	"take": true, "make": true, "do": true, "go": true, "come": true,
}

var questionIndicators = map[string]bool{
	"what": true, "how": true, "why": true, "when": true, "where": true,
	"who": true, "which": true, "does": true, "is": true, "are": true,
	"can": true, "will": true, "should": true,
}

const classifierSystemPrompt = `You classify queries for a web research agent. A query is VALID when it seeks information that web search can answer (facts, how-to guides, definitions, comparisons, product research, news, technical documentation, troubleshooting). A query is INVALID when it is a personal task, device command, reminder, message, purchase, or scheduling action that web search cannot perform.

Edge cases matter: "play music" is invalid (device control) but "play music history" is valid (information search). "call mom" is invalid but "call center best practices" is valid.

Respond with ONLY a JSON object:
{"is_valid": boolean, "confidence": number between 0 and 1, "reason": "brief explanation", "category": "short category name"}`

// Validator decides whether a query should be researched at all. An
// optional LLM classifier handles ambiguous queries; without one the
// decision falls back to layered heuristics.
type Validator struct {
	classifier Classifier

	mu    sync.Mutex
	cache map[string]Result
	order []string
}

// New creates a Validator. classifier may be nil.
func New(classifier Classifier) *Validator {
	return &Validator{
		classifier: classifier,
		cache:      make(map[string]Result),
	}
}

// Validate classifies query. Decisions are cached per normalized query.
func (v *Validator) Validate(ctx context.Context, query string) Result {
	if strings.TrimSpace(query) == "" {
		return Result{Valid: false, Confidence: 1.0, Reason: "empty query", Method: "basic"}
	}

	key := strings.ToLower(strings.TrimSpace(query))
	if res, ok := v.cached(key); ok {
		res.Method = "cached"
		return res
	}

	res := v.heuristicCheck(key)
	if res.Confidence > 0.9 {
		v.store(key, res)
		return res
	}

	if v.classifier != nil {
		res = v.llmValidate(ctx, query)
	} else {
		res = v.enhancedHeuristic(key)
	}
	v.store(key, res)
	return res
}

func (v *Validator) cached(key string) (Result, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	res, ok := v.cache[key]
	return res, ok
}

func (v *Validator) store(key string, res Result) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists := v.cache[key]; !exists {
		v.order = append(v.order, key)
	}
	v.cache[key] = res
	for len(v.order) > maxCacheEntries {
		oldest := v.order[0]
		v.order = v.order[1:]
		delete(v.cache, oldest)
	}
}

// heuristicCheck catches the obvious cases cheaply. Only a match on a
// strong invalid pattern is confident enough to skip the classifier.
func (v *Validator) heuristicCheck(query string) Result {
	for _, re := range strongInvalidPatterns {
		if re.MatchString(query) {
			return Result{
				Valid:      false,
				Confidence: 0.95,
				Reason:     "contains personal action pattern",
				Category:   "personal_action",
				Method:     "heuristic",
			}
		}
	}
	for _, re := range strongValidPatterns {
		if re.MatchString(query) {
			return Result{
				Valid:      true,
				Confidence: 0.9,
				Reason:     "contains information-seeking pattern",
				Category:   "information_search",
				Method:     "heuristic",
			}
		}
	}
	return Result{
		Valid:      true,
		Confidence: 0.6,
		Reason:     "no clear indicators",
		Category:   "information_search",
		Method:     "heuristic",
	}
}

func (v *Validator) llmValidate(ctx context.Context, query string) Result {
	raw, err := v.classifier.Complete(ctx, classifierSystemPrompt, "Classify this query: "+query, 150)
	if err != nil {
		logger.Warn("LLM query classification failed, using heuristics: %v", err)
		return v.enhancedHeuristic(strings.ToLower(strings.TrimSpace(query)))
	}

	res, err := parseClassifierResponse(raw)
	if err != nil {
		logger.Warn("Unparseable classifier response, using heuristics: %v", err)
		return v.enhancedHeuristic(strings.ToLower(strings.TrimSpace(query)))
	}
	res.Method = "llm"
	return res
}

func parseClassifierResponse(raw string) (Result, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Result{}, fmt.Errorf("no JSON object in classifier response %q", raw)
	}
	var res Result
	if err := json.Unmarshal([]byte(raw[start:end+1]), &res); err != nil {
		return Result{}, fmt.Errorf("decoding classifier response: %w", err)
	}
	if res.Confidence < 0 || res.Confidence > 1 {
		return Result{}, fmt.Errorf("classifier confidence %.2f out of range", res.Confidence)
	}
	return res, nil
}

// enhancedHeuristic is the full fallback ladder used when no classifier
// is configured or it fails.
func (v *Validator) enhancedHeuristic(query string) Result {
	for _, p := range invalidContextPatterns {
		if p.re.MatchString(query) {
			return Result{
				Valid:      false,
				Confidence: p.confidence,
				Reason:     "matches " + p.category + " pattern",
				Category:   p.category,
				Method:     "enhanced_heuristic",
			}
		}
	}
	for _, p := range validContextPatterns {
		if p.re.MatchString(query) {
			return Result{
				Valid:      true,
				Confidence: p.confidence,
				Reason:     "matches " + p.category + " pattern",
				Category:   p.category,
				Method:     "enhanced_heuristic",
			}
		}
	}

	words := strings.Fields(query)
	if len(words) <= 3 {
		for _, w := range words {
			if actionVerbs[w] {
				return Result{
					Valid:      false,
					Confidence: 0.7,
					Reason:     "short query with action verb",
					Category:   "personal_action",
					Method:     "enhanced_heuristic",
				}
			}
		}
	}

	limit := len(words)
	if limit > 3 {
		limit = 3
	}
	for _, w := range words[:limit] {
		if questionIndicators[w] {
			return Result{
				Valid:      true,
				Confidence: 0.8,
				Reason:     "question structure",
				Category:   "information_search",
				Method:     "enhanced_heuristic",
			}
		}
	}

	return Result{
		Valid:      true,
		Confidence: 0.6,
		Reason:     "no clear indicators",
		Category:   "information_search",
		Method:     "enhanced_heuristic",
	}
}
