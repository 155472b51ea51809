// Package agent chains validation, cache lookup, retrieval and
// synthesis into the single entry point every surface calls.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hunterwarburton/ferret/internal/core"
	"github.com/hunterwarburton/ferret/internal/logger"
	"github.com/hunterwarburton/ferret/internal/similarity"
	"github.com/hunterwarburton/ferret/internal/synthesis"
	"github.com/hunterwarburton/ferret/internal/textutil"
	"github.com/hunterwarburton/ferret/internal/validate"
)

// Validator decides whether a query is researchable at all.
type Validator interface {
	Validate(ctx context.Context, query string) validate.Result
}

// Detector decides whether a stored query already answers this one.
type Detector interface {
	Detect(ctx context.Context, query core.QueryRecord) (core.Verdict, error)
}

// Retriever fetches and ranks fresh sources for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]core.SourceRecord, error)
}

// Synthesizer combines ranked sources into an answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, sources []core.SourceRecord) (synthesis.Result, error)
}

// Stats is a snapshot of the agent's stored state.
type Stats struct {
	CachedQueries int64 `json:"cached_queries"`
}

// Service runs the full research pipeline for one query at a time.
type Service struct {
	validator   Validator
	embedder    core.Embedder
	tagger      *similarity.Tagger
	detector    Detector
	store       core.QueryStore
	retriever   Retriever
	synthesizer Synthesizer
	normalizer  *textutil.Normalizer
}

// NewService wires the pipeline. All dependencies are required except
// validator, which may be nil to accept every query.
func NewService(validator Validator, embedder core.Embedder, tagger *similarity.Tagger, detector Detector, store core.QueryStore, retriever Retriever, synthesizer Synthesizer) *Service {
	return &Service{
		validator:   validator,
		embedder:    embedder,
		tagger:      tagger,
		detector:    detector,
		store:       store,
		retriever:   retriever,
		synthesizer: synthesizer,
		normalizer:  textutil.NewNormalizer(),
	}
}

// HandleQuery answers one research query, from cache when a previous
// query asked the same thing, otherwise by fresh retrieval. The new
// query and its answer are recorded for future cache hits.
func (s *Service) HandleQuery(ctx context.Context, query string) (core.Response, error) {
	if s.validator != nil {
		if res := s.validator.Validate(ctx, query); !res.Valid {
			logger.Info("Rejected query %q: %s", query, res.Reason)
			return core.Response{Valid: false, Message: res.Reason, Confidence: res.Confidence}, nil
		}
	}

	normalized := s.normalizer.Normalize(query)
	embedding, err := s.embedder.Embed(ctx, normalized)
	if err != nil {
		return core.Response{}, fmt.Errorf("embedding query: %w", err)
	}

	rec := core.QueryRecord{
		ID:             uuid.NewString(),
		RawText:        query,
		NormalizedText: normalized,
		Embedding:      embedding,
		DomainTags:     s.tagger.Tags(normalized),
		QueryHash:      core.QueryHash(normalized),
		CreatedAt:      time.Now().UTC(),
	}

	verdict, err := s.detector.Detect(ctx, rec)
	if err != nil {
		logger.Warn("Similarity detection failed, treating as cache miss: %v", err)
		verdict = core.Verdict{}
	}
	if verdict.IsSimilar && verdict.Matched != nil {
		if resp, ok := s.cachedResponse(ctx, verdict); ok {
			return resp, nil
		}
		logger.Warn("Cache hit on query %s but its result is missing, researching fresh", verdict.Matched.ID)
	}

	return s.research(ctx, rec)
}

// cachedResponse loads the stored result behind a similarity hit.
func (s *Service) cachedResponse(ctx context.Context, verdict core.Verdict) (core.Response, bool) {
	stored, err := s.store.ResultFor(ctx, verdict.Matched.ID)
	if err != nil {
		logger.Warn("Loading cached result for %s: %v", verdict.Matched.ID, err)
		return core.Response{}, false
	}
	if stored == nil {
		return core.Response{}, false
	}

	logger.Info("Cache hit: %q matched stored query %q (confidence %.2f)",
		verdict.Matched.RawText, verdict.Matched.NormalizedText, verdict.Confidence)
	return core.Response{
		Valid:             true,
		FromCache:         true,
		CombinedSummary:   stored.CombinedSummary,
		Sources:           synthesis.SourceSummaries(verdict.Matched.RawText, stored.Sources),
		Confidence:        stored.Confidence,
		SuccessfulScrapes: countUsable(stored.Sources),
		TotalSources:      len(stored.Sources),
	}, true
}

// research answers a cache miss with fresh retrieval and records the
// result for future queries.
func (s *Service) research(ctx context.Context, rec core.QueryRecord) (core.Response, error) {
	sources, err := s.retriever.Retrieve(ctx, rec.RawText)
	if err != nil {
		return core.Response{}, fmt.Errorf("retrieving sources: %w", err)
	}

	result, err := s.synthesizer.Synthesize(ctx, rec.RawText, sources)
	if err != nil {
		if errors.Is(err, synthesis.ErrNoUsableSources) {
			return core.Response{
				Valid:        true,
				Message:      "no usable sources found for this query",
				Sources:      synthesis.SourceSummaries(rec.RawText, sources),
				TotalSources: len(sources),
			}, nil
		}
		return core.Response{}, fmt.Errorf("synthesizing answer: %w", err)
	}

	stored := core.StoredResult{
		QueryID:         rec.ID,
		Sources:         sources,
		CombinedSummary: result.Summary.Text,
		SummaryMethod:   result.Summary.Method,
		Confidence:      result.Confidence,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.Append(ctx, rec, stored); err != nil {
		logger.Error("Recording query result: %v", err)
	}

	return core.Response{
		Valid:             true,
		CombinedSummary:   result.Summary.Text,
		Sources:           result.Sources,
		Confidence:        result.Confidence,
		SuccessfulScrapes: countUsable(sources),
		TotalSources:      len(sources),
	}, nil
}

// Stats reports how many queries the store holds.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting stored queries: %w", err)
	}
	return Stats{CachedQueries: n}, nil
}

func countUsable(sources []core.SourceRecord) int {
	n := 0
	for _, src := range sources {
		if src.FetchStatus.Usable() {
			n++
		}
	}
	return n
}
