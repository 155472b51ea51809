package similarity

import (
	"context"
	"fmt"
	"sort"

	"github.com/hunterwarburton/ferret/internal/config"
	"github.com/hunterwarburton/ferret/internal/core"
	"github.com/hunterwarburton/ferret/internal/logger"
	"github.com/hunterwarburton/ferret/internal/textutil"
)

// Stage names, in pipeline order.
const (
	StageExactMatch     = "exact_match"
	StageKNNSearch      = "knn_search"
	StageDomain         = "domain_validation"
	StageTechnology     = "technology_check"
	StageTextual        = "textual_similarity"
	StageJudge          = "llm_validation"
	StageFinalEmbedding = "final_embedding_check"
)

// Detector runs the staged cache-hit pipeline. Every stage can only
// veto: a candidate must survive all of them to count as a hit, so a
// failure anywhere degrades to a cache miss, never into serving a
// wrong answer.
type Detector struct {
	store  core.QueryStore
	judge  core.SemanticJudge
	tagger *Tagger
	tech   *techMatcher
	cfg    config.Similarity
}

// NewDetector assembles a Detector. The judge may be nil, in which
// case the stricter embedding re-check substitutes for it.
func NewDetector(store core.QueryStore, judge core.SemanticJudge, rules *config.Rules, cfg config.Similarity) *Detector {
	return &Detector{
		store:  store,
		judge:  judge,
		tagger: NewTagger(rules),
		tech:   newTechMatcher(rules.TechnologyGroups),
		cfg:    cfg,
	}
}

// Tagger exposes the detector's domain tagger so callers can tag new
// records consistently.
func (d *Detector) Tagger() *Tagger { return d.tagger }

// attempt is the evaluation of one candidate against the incoming query.
type attempt struct {
	verdict core.Verdict
	depth   int
}

// Detect decides whether an equivalent query is already stored.
func (d *Detector) Detect(ctx context.Context, query core.QueryRecord) (core.Verdict, error) {
	// Identical normalized text short-circuits the whole pipeline.
	exact, err := d.store.FindExact(ctx, query.QueryHash)
	if err != nil {
		return core.Verdict{}, fmt.Errorf("exact lookup failed: %w", err)
	}
	if exact != nil {
		return core.Verdict{
			IsSimilar:         true,
			Confidence:        1.0,
			Matched:           exact,
			BestSimilarity:    1.0,
			TextualSimilarity: 1.0,
			Stages:            []string{StageExactMatch},
			Reason:            "identical normalized query",
		}, nil
	}

	neighbors, err := d.store.NearestNeighbors(ctx, query.Embedding, d.cfg.Neighbors)
	if err != nil {
		return core.Verdict{}, fmt.Errorf("neighbor search failed: %w", err)
	}

	candidates := neighbors[:0]
	for _, n := range neighbors {
		if n.Similarity >= d.cfg.EmbeddingFloor {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return core.Verdict{
			Stages: []string{StageExactMatch, StageKNNSearch},
			Reason: "no stored query above the embedding floor",
		}, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})

	best := attempt{verdict: core.Verdict{
		Stages: []string{StageExactMatch, StageKNNSearch},
		Reason: "no stored query above the embedding floor",
	}}
	for _, cand := range candidates {
		a := d.evaluate(ctx, query, cand)
		if a.verdict.IsSimilar {
			return a.verdict, nil
		}
		if a.depth > best.depth {
			best = a
		}
	}
	return best.verdict, nil
}

// evaluate runs one candidate through the veto stages.
func (d *Detector) evaluate(ctx context.Context, query core.QueryRecord, cand core.Neighbor) attempt {
	v := core.Verdict{
		BestSimilarity: cand.Similarity,
		Stages:         []string{StageExactMatch, StageKNNSearch},
	}
	depth := 2

	reject := func(reason string) attempt {
		v.Reason = reason
		return attempt{verdict: v, depth: depth}
	}

	// Domain validation
	v.Stages = append(v.Stages, StageDomain)
	depth++
	candTags := cand.Record.DomainTags
	if len(candTags) == 0 {
		candTags = d.tagger.Tags(cand.Record.NormalizedText)
	}
	if !d.tagger.Compatible(query.DomainTags, candTags) {
		return reject(fmt.Sprintf("incompatible domains %v vs %v", query.DomainTags, candTags))
	}

	// Technology mismatch veto
	v.Stages = append(v.Stages, StageTechnology)
	depth++
	if conflict, detail := d.tech.conflict(query.NormalizedText, cand.Record.NormalizedText); conflict {
		return reject("technology mismatch: " + detail)
	}

	// Textual structure floor
	v.Stages = append(v.Stages, StageTextual)
	depth++
	v.TextualSimilarity = textutil.Ratio(query.NormalizedText, cand.Record.NormalizedText)
	if v.TextualSimilarity < d.cfg.TextualFloor {
		return reject(fmt.Sprintf("textual similarity %.2f below floor %.2f", v.TextualSimilarity, d.cfg.TextualFloor))
	}

	// LLM adjudication
	v.Stages = append(v.Stages, StageJudge)
	depth++
	if d.judge != nil {
		judgeCtx := ctx
		var cancel context.CancelFunc
		if d.cfg.JudgeTimeout > 0 {
			judgeCtx, cancel = context.WithTimeout(ctx, d.cfg.JudgeTimeout)
		}
		res, err := d.judge.Judge(judgeCtx, query.RawText, cand.Record.RawText)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			v.JudgeRan = true
			v.JudgeConfidence = res.Confidence
			if !res.Equivalent {
				return reject("judge rejected equivalence: " + res.Reason)
			}
			if res.Confidence < d.cfg.JudgeConfidence {
				return reject(fmt.Sprintf("judge confidence %.2f below %.2f", res.Confidence, d.cfg.JudgeConfidence))
			}
			v.IsSimilar = true
			v.Matched = &cand.Record
			v.Confidence = d.confidence(cand.Similarity, v.TextualSimilarity, res.Confidence, true)
			v.Reason = "judge confirmed equivalence"
			return attempt{verdict: v, depth: depth}
		}
		logger.Warn("Judge unavailable, applying strict embedding re-check: %v", err)
	}

	// Judge skipped or unavailable: require a stricter embedding match.
	v.Stages = append(v.Stages, StageFinalEmbedding)
	depth++
	strict := d.cfg.EmbeddingFloor + d.cfg.StrictMargin
	if cand.Similarity < strict {
		return reject(fmt.Sprintf("embedding %.3f below strict threshold %.3f without judge", cand.Similarity, strict))
	}
	v.IsSimilar = true
	v.Matched = &cand.Record
	v.Confidence = d.confidence(cand.Similarity, v.TextualSimilarity, 0, false)
	v.Reason = "strict embedding match without judge"
	return attempt{verdict: v, depth: depth}
}

// confidence blends the stage signals. When the judge did not run its
// weight is redistributed over the remaining signals.
func (d *Detector) confidence(embedding, textual, judge float64, judgeRan bool) float64 {
	if judgeRan {
		return 0.4*embedding + 0.3*textual + 0.3*judge
	}
	return (0.4*embedding + 0.3*textual) / 0.7
}
