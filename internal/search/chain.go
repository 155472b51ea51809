package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/hunterwarburton/ferret/internal/core"
	"github.com/hunterwarburton/ferret/internal/logger"
)

// named is implemented by providers that can identify themselves.
type named interface {
	Name() string
}

// Chain tries search providers in order until one returns results.
type Chain struct {
	providers []core.SearchProvider
}

// NewChain builds a fallback chain over the given providers.
func NewChain(providers ...core.SearchProvider) *Chain {
	return &Chain{providers: providers}
}

// Candidates asks each provider in turn. Empty result sets count as
// failures so a rate-limited engine falls through to the next one.
func (c *Chain) Candidates(ctx context.Context, query string, n int) ([]core.Candidate, error) {
	var errs []error
	for _, p := range c.providers {
		candidates, err := p.Candidates(ctx, query, n)
		if err == nil && len(candidates) > 0 {
			return candidates, nil
		}
		if err == nil {
			err = errors.New("no results")
		}
		logger.Warn("Search provider %s failed: %v", providerName(p), err)
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("all search providers failed: %w", errors.Join(errs...))
}

func providerName(p core.SearchProvider) string {
	if n, ok := p.(named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", p)
}
