package matching

import "math"

// Weights sum to MaxScore.
const (
	CategoryWeight = 50.0
	RatingWeight   = 30.0
	VerifiedWeight = 20.0
	MaxScore       = CategoryWeight + RatingWeight + VerifiedWeight
)

// ScoreBreakdown is the per-factor contribution to a score.
type ScoreBreakdown struct {
	Category     float64 `json:"category"`
	Rating       float64 `json:"rating"`
	Verification float64 `json:"verification"`
	Total        float64 `json:"total"`
}

// Score returns 0 when the category gate fails, otherwise a value in [50, 100].
func Score(f Factors) float64 {
	return Breakdown(f).Total
}

func Breakdown(f Factors) ScoreBreakdown {
	if !f.CategoryMatch {
		return ScoreBreakdown{}
	}

	b := ScoreBreakdown{
		Category: CategoryWeight,
		Rating:   math.Min(math.Max(f.Rating, 0), 1) * RatingWeight,
	}
	if f.Verified {
		b.Verification = VerifiedWeight
	}
	b.Total = math.Min(math.Max(b.Category+b.Rating+b.Verification, 0), MaxScore)
	return b
}
