// internal/workers/matching/rank-suppliers/models.go
package ranksuppliers

import "bell24h-workers/internal/models"

type Input struct {
	RFQID      string              `json:"rfqId,omitempty"`
	Request    models.MatchRequest `json:"request"`
	Candidates []models.Candidate  `json:"candidates"`
	MaxResults *int                `json:"maxResults,omitempty"`
}

type Output struct {
	RankedSuppliers []models.RankedSupplier `json:"rankedSuppliers"`
	MatchSource     models.MatchSource      `json:"matchSource"`
	MatchCount      int                     `json:"matchCount"`
	MatchRunID      string                  `json:"matchRunId"`
	MatchedAt       string                  `json:"matchedAt"`
}
