package matching

import (
	"sort"
	"strconv"

	"bell24h-workers/internal/models"
)

// Rank drops non-matching candidates and orders the rest by score desc,
// then by id asc. The input slice is not modified and the result is never nil.
func Rank(req models.MatchRequest, candidates []models.Candidate) []models.ScoredCandidate {
	ranked := make([]models.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		score := Score(ExtractFactors(req, c))
		if score <= 0 {
			continue
		}
		ranked = append(ranked, models.ScoredCandidate{Candidate: c, Score: score})
	}

	SortScored(ranked)
	return ranked
}

// SortScored sorts in place by score desc with a deterministic id tiebreak.
func SortScored(scored []models.ScoredCandidate) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return compareIDs(scored[i].Candidate.ID, scored[j].Candidate.ID) < 0
	})
}

// compareIDs is a total order: integer ids come first in numeric order,
// every other id follows in lexical order.
func compareIDs(a, b string) int {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
