package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	httpclient "bell24h-workers/internal/common/http"
	"bell24h-workers/internal/models"
)

const matchPath = "/api/ai/match-suppliers"

// HTTP calls the Bell24h AI matching service.
type HTTP struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
}

func NewHTTP(baseURL, apiKey string, timeout time.Duration) *HTTP {
	return &HTTP{
		client:  httpclient.NewClient(timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

func (p *HTTP) Name() string { return KindHTTP }

type httpMatchRequest struct {
	Request    models.MatchRequest `json:"request"`
	Candidates []models.Candidate  `json:"candidates"`
}

func (p *HTTP) Match(ctx context.Context, req models.MatchRequest, candidates []models.Candidate) ([]models.ScoredCandidate, error) {
	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	var resp matchResponse
	payload := httpMatchRequest{Request: req, Candidates: candidates}
	if err := p.client.PostJSON(ctx, p.baseURL+matchPath, headers, payload, &resp); err != nil {
		return nil, fmt.Errorf("match service call failed: %w", err)
	}
	return resolve(resp.Matches, candidates), nil
}
