package provider

import (
	"context"
	"fmt"

	"bell24h-workers/internal/matching"
	"bell24h-workers/internal/models"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to the wrapped provider. A call that cannot
// get a token before its deadline fails without reaching the provider.
type RateLimited struct {
	next    matching.Provider
	limiter *rate.Limiter
}

func NewRateLimited(next matching.Provider, limiter *rate.Limiter) *RateLimited {
	return &RateLimited{next: next, limiter: limiter}
}

func (r *RateLimited) Name() string { return r.next.Name() }

func (r *RateLimited) Match(ctx context.Context, req models.MatchRequest, candidates []models.Candidate) ([]models.ScoredCandidate, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limited: %w", err)
	}
	return r.next.Match(ctx, req, candidates)
}
