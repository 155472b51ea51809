package core

import "time"

// FetchStatus classifies the outcome of fetching a single source page.
type FetchStatus string

const (
	FetchSuccess      FetchStatus = "success"
	FetchBlocked      FetchStatus = "blocked"
	FetchTimeout      FetchStatus = "timeout"
	FetchNetworkError FetchStatus = "network_error"
	FetchParseError   FetchStatus = "parse_error"
)

// Usable reports whether a fetch produced content that can be scored
// and synthesized. Anything other than a clean success is kept only
// for transparency in the ranked output.
func (s FetchStatus) Usable() bool {
	return s == FetchSuccess
}

// QueryRecord is one stored research query. Records are append-only:
// once written they are never mutated or deleted.
type QueryRecord struct {
	ID             string    `json:"id"`
	RawText        string    `json:"raw_text"`
	NormalizedText string    `json:"normalized_text"`
	Embedding      []float32 `json:"embedding"`
	DomainTags     []string  `json:"domain_tags"`
	QueryHash      string    `json:"query_hash"`
	CreatedAt      time.Time `json:"created_at"`
}

// SourceRecord is a single fetched and scored source page.
type SourceRecord struct {
	URL                 string      `json:"url"`
	Title               string      `json:"title"`
	RawContent          string      `json:"raw_content,omitempty"`
	FetchStatus         FetchStatus `json:"fetch_status"`
	RelevanceScore      float64     `json:"relevance_score"`
	AuthorityScore      float64     `json:"authority_score"`
	ContentQualityScore float64     `json:"content_quality_score"`
	CombinedScore       float64     `json:"combined_score"`
	KeyTopics           []string    `json:"key_topics,omitempty"`
	SearchRank          int         `json:"search_rank"`
}

// StoredResult is the synthesized answer stored alongside a QueryRecord.
type StoredResult struct {
	QueryID         string         `json:"query_id"`
	Sources         []SourceRecord `json:"sources"`
	CombinedSummary string         `json:"combined_summary"`
	SummaryMethod   string         `json:"summary_method"`
	Confidence      float64        `json:"confidence"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Neighbor is a stored query returned from a nearest-neighbor lookup.
type Neighbor struct {
	Record     QueryRecord
	Similarity float64
}

// Verdict is the outcome of the similarity pipeline for one incoming query.
type Verdict struct {
	IsSimilar         bool         `json:"is_similar"`
	Confidence        float64      `json:"confidence"`
	Matched           *QueryRecord `json:"matched,omitempty"`
	BestSimilarity    float64      `json:"best_similarity"`
	TextualSimilarity float64      `json:"textual_similarity"`
	JudgeConfidence   float64      `json:"judge_confidence"`
	JudgeRan          bool         `json:"judge_ran"`
	Stages            []string     `json:"stages"`
	Reason            string       `json:"reason"`
}

// Candidate is a search-engine result before any page fetch.
type Candidate struct {
	URL     string
	Title   string
	Snippet string
	Rank    int
}

// Page is the parsed content of one fetched URL.
type Page struct {
	URL     string
	Title   string
	Content string
	Status  FetchStatus
}

// SummaryRequest carries the assembled source content into a summarizer.
type SummaryRequest struct {
	Query        string
	Content      string
	MaxSentences int
}

// Summary is the summarizer output along with which method produced it.
type Summary struct {
	Text       string
	Method     string
	Confidence float64
}

// JudgeResult is the parsed decision of an LLM semantic equivalence check.
type JudgeResult struct {
	Equivalent bool
	Confidence float64
	Reason     string
}

// SourceSummary is the per-source view returned to callers.
type SourceSummary struct {
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Summary     string  `json:"summary,omitempty"`
	FetchStatus string  `json:"fetch_status"`
	Score       float64 `json:"score"`
}

// Response is the final answer to one research query.
type Response struct {
	Valid             bool            `json:"valid"`
	FromCache         bool            `json:"from_cache"`
	CombinedSummary   string          `json:"combined_summary,omitempty"`
	Sources           []SourceSummary `json:"sources,omitempty"`
	Confidence        float64         `json:"confidence"`
	Message           string          `json:"message,omitempty"`
	SuccessfulScrapes int             `json:"successful_scrapes"`
	TotalSources      int             `json:"total_sources"`
}
