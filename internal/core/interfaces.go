package core

import "context"

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchProvider returns candidate URLs for a query, best first.
type SearchProvider interface {
	Candidates(ctx context.Context, query string, n int) ([]Candidate, error)
}

// PageFetcher retrieves and parses one URL. Fetch failures are reported
// through Page.Status rather than an error wherever the failure mode is
// one of the known FetchStatus values.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// Summarizer condenses source content into a short answer.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (Summary, error)
}

// SemanticJudge decides whether two queries ask for the same information.
type SemanticJudge interface {
	Judge(ctx context.Context, a, b string) (JudgeResult, error)
}

// QueryStore persists query records and their results. The store is
// append-only: implementations never expose update or delete.
type QueryStore interface {
	Append(ctx context.Context, rec QueryRecord, res StoredResult) error
	NearestNeighbors(ctx context.Context, embedding []float32, k int) ([]Neighbor, error)
	FindExact(ctx context.Context, queryHash string) (*QueryRecord, error)
	ResultFor(ctx context.Context, queryID string) (*StoredResult, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}
