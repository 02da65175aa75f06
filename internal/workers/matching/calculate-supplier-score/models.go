// internal/workers/matching/calculate-supplier-score/models.go
package calculatesupplierscore

import (
	"bell24h-workers/internal/matching"
	"bell24h-workers/internal/models"
)

type Input struct {
	Request   models.MatchRequest `json:"request"`
	Candidate models.Candidate    `json:"candidate"`
}

type Output struct {
	SupplierID string           `json:"supplierId"`
	Score      float64          `json:"score"`
	Matched    bool             `json:"matched"`
	Factors    matching.Factors `json:"factors"`
	Breakdown  Breakdown        `json:"breakdown"`
}

// Breakdown is the weighted contribution of each factor.
type Breakdown struct {
	Category     float64 `json:"category"`
	Rating       float64 `json:"rating"`
	Verification float64 `json:"verification"`
}
