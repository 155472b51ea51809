package retrieval

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hunterwarburton/ferret/internal/config"
	"github.com/hunterwarburton/ferret/internal/core"
	"github.com/hunterwarburton/ferret/internal/logger"
)

// keyTopicCount is how many salient terms are kept per source.
const keyTopicCount = 6

// Orchestrator runs the full retrieval pass for one query: search,
// bounded concurrent fetch, scoring, disambiguation, dedup and ranking.
type Orchestrator struct {
	search   core.SearchProvider
	fetcher  core.PageFetcher
	scorer   *Scorer
	disambig *Disambiguator
	cfg      config.Retrieval
}

// NewOrchestrator wires a retrieval pipeline.
func NewOrchestrator(search core.SearchProvider, fetcher core.PageFetcher, disambig *Disambiguator, cfg config.Retrieval) *Orchestrator {
	return &Orchestrator{
		search:   search,
		fetcher:  fetcher,
		scorer:   NewScorer(),
		disambig: disambig,
		cfg:      cfg,
	}
}

// Retrieve returns ranked sources for the query. Failed fetches are
// included with zero scores for transparency; only successes count
// toward the MaxSources budget. Identical inputs produce identical
// ordering.
func (o *Orchestrator) Retrieve(ctx context.Context, query string) ([]core.SourceRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.OverallTimeout)
	defer cancel()

	rule := o.disambig.Match(query)
	searchQuery := o.disambig.EnhanceQuery(query)

	candidates, err := o.search.Candidates(ctx, searchQuery, o.cfg.Overfetch)
	if err != nil {
		return nil, fmt.Errorf("candidate search failed: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	logger.Info("Fetching %d candidates for query %q", len(candidates), query)

	records := make([]core.SourceRecord, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.FetchConcurrency)
	for i, cand := range candidates {
		g.Go(func() error {
			records[i] = o.fetchAndScore(gctx, query, rule, cand)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in the records

	// Drop successes that are too weak to cite, keep failures visible.
	filtered := records[:0]
	for _, rec := range records {
		if rec.FetchStatus.Usable() &&
			(rec.ContentQualityScore <= o.cfg.MinQuality || rec.RelevanceScore <= o.cfg.MinRelevance) {
			logger.Debug("Filtering weak source %s (quality %.2f, relevance %.2f)",
				rec.URL, rec.ContentQualityScore, rec.RelevanceScore)
			continue
		}
		filtered = append(filtered, rec)
	}

	ranked := rank(filtered)
	ranked = dedupe(ranked)
	ranked = capPerDomain(ranked, o.cfg.PerDomainCap)
	return o.budget(ranked), nil
}

func (o *Orchestrator) fetchAndScore(ctx context.Context, query string, rule *config.EntityRule, cand core.Candidate) core.SourceRecord {
	rec := core.SourceRecord{
		URL:        cand.URL,
		Title:      cand.Title,
		SearchRank: cand.Rank,
	}

	fetchCtx, cancel := context.WithTimeout(ctx, o.cfg.FetchTimeout)
	defer cancel()

	page, err := o.fetcher.Fetch(fetchCtx, cand.URL)
	if err != nil {
		logger.Warn("Fetch of %s failed: %v", cand.URL, err)
		rec.FetchStatus = core.FetchNetworkError
		return rec
	}
	rec.FetchStatus = page.Status
	if !page.Status.Usable() {
		return rec
	}
	if page.Title != "" {
		rec.Title = page.Title
	}
	rec.RawContent = page.Content

	relevance := o.scorer.Relevance(query, rec.Title, page.Content, cand.Snippet)
	relevance = o.disambig.AdjustRelevance(rule, page.Content, relevance)

	rec.RelevanceScore = relevance
	rec.AuthorityScore = o.scorer.Authority(cand.URL)
	rec.ContentQualityScore = o.scorer.Quality(page.Content)
	rec.CombinedScore = o.scorer.Combined(rec.RelevanceScore, rec.AuthorityScore, rec.ContentQualityScore)
	rec.KeyTopics = o.scorer.KeyTopics(page.Content, keyTopicCount)
	return rec
}

// rank sorts successes by combined score, ties broken by the original
// search order, with failed fetches trailing in search order.
func rank(records []core.SourceRecord) []core.SourceRecord {
	out := make([]core.SourceRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		ui, uj := out[i].FetchStatus.Usable(), out[j].FetchStatus.Usable()
		if ui != uj {
			return ui
		}
		if !ui {
			return out[i].SearchRank < out[j].SearchRank
		}
		if out[i].CombinedScore != out[j].CombinedScore {
			return out[i].CombinedScore > out[j].CombinedScore
		}
		return out[i].SearchRank < out[j].SearchRank
	})
	return out
}

// budget keeps the top MaxSources successes plus every failure record.
func (o *Orchestrator) budget(records []core.SourceRecord) []core.SourceRecord {
	out := make([]core.SourceRecord, 0, len(records))
	successes := 0
	for _, rec := range records {
		if rec.FetchStatus.Usable() {
			if successes >= o.cfg.MaxSources {
				continue
			}
			successes++
		}
		out = append(out, rec)
	}
	return out
}
