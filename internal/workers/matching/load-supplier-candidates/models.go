// internal/workers/matching/load-supplier-candidates/models.go
package loadsuppliercandidates

import "bell24h-workers/internal/models"

type Input struct {
	RFQID              string            `json:"rfqId,omitempty"`
	IndustryOrCategory string            `json:"industryOrCategory"`
	DataSource         models.DataSource `json:"dataSource,omitempty"`
	Limit              int               `json:"limit,omitempty"`
}

type Output struct {
	Candidates     []models.Candidate `json:"candidates"`
	CandidateCount int                `json:"candidateCount"`
	DataSource     models.DataSource  `json:"dataSource"`
	CacheHit       bool               `json:"cacheHit"`
}

// supplierDocument is the search index shape of a supplier.
type supplierDocument struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	IndustryCategory string   `json:"industryCategory"`
	Rating           *float64 `json:"rating"`
	IsVerified       *bool    `json:"isVerified"`
}
