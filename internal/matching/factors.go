// Package matching ranks suppliers against an RFQ. The local path is a pure
// weighted score; Matcher optionally consults an external provider first and
// falls back to the local path on any failure.
package matching

import (
	"math"
	"strings"

	"bell24h-workers/internal/models"
)

const MaxRating = 5.0

// Factors are the normalized scoring inputs for one request/candidate pair.
type Factors struct {
	CategoryMatch bool    `json:"categoryMatch"`
	Rating        float64 `json:"normalizedRating"` // 0..1
	Verified      bool    `json:"verified"`
}

// ExtractFactors never fails: missing optional fields degrade to zero values.
func ExtractFactors(req models.MatchRequest, c models.Candidate) Factors {
	return Factors{
		CategoryMatch: categoryMatches(req.IndustryOrCategory, c.IndustryOrCategory),
		Rating:        normalizeRating(c.Rating),
		Verified:      c.IsVerified != nil && *c.IsVerified,
	}
}

func categoryMatches(requested, offered string) bool {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return false
	}
	return requested == strings.TrimSpace(offered)
}

func normalizeRating(rating *float64) float64 {
	if rating == nil || math.IsNaN(*rating) {
		return 0
	}
	return ClampRating(*rating) / MaxRating
}

// ClampRating bounds a raw rating to [0, MaxRating].
func ClampRating(r float64) float64 {
	return math.Min(math.Max(r, 0), MaxRating)
}
