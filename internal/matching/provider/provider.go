// Package provider holds the external matching services the Matcher can
// consult before falling back to local scoring.
package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bell24h-workers/internal/common/config"
	"bell24h-workers/internal/matching"
	"bell24h-workers/internal/models"

	"golang.org/x/time/rate"
)

const (
	KindNone   = "none"
	KindHTTP   = "http"
	KindOpenAI = "openai"
)

// NewFromConfig builds the configured provider. It returns nil when external
// matching is switched off.
func NewFromConfig(cfg config.ExternalMatchingConfig) (matching.Provider, error) {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond

	var p matching.Provider
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", KindNone:
		return nil, nil
	case KindHTTP:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("http matching provider requires base_url")
		}
		p = NewHTTP(cfg.BaseURL, cfg.APIKey, timeout)
	case KindOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai matching provider requires api_key")
		}
		p = NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("matching provider %q is not supported", cfg.Provider)
	}

	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		p = NewRateLimited(p, rate.NewLimiter(rate.Limit(cfg.RateLimit), burst))
	}
	return p, nil
}

// match is one entry of a provider reply.
type match struct {
	SupplierID supplierID `json:"supplierId"`
	Score      float64    `json:"score"`
}

type matchResponse struct {
	Matches []match `json:"matches"`
}

// supplierID accepts both "42" and 42, since upstream services disagree.
type supplierID string

func (s *supplierID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = supplierID(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("supplierId must be a string or number: %w", err)
	}
	*s = supplierID(num.String())
	return nil
}

// resolve attaches each match to its input candidate. Unknown ids are kept
// as bare candidates so the Matcher can reject the whole reply.
func resolve(matches []match, candidates []models.Candidate) []models.ScoredCandidate {
	byID := make(map[string]models.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	out := make([]models.ScoredCandidate, 0, len(matches))
	for _, m := range matches {
		id := string(m.SupplierID)
		c, ok := byID[id]
		if !ok {
			c = models.Candidate{ID: id}
		}
		out = append(out, models.ScoredCandidate{Candidate: c, Score: m.Score})
	}
	return out
}
