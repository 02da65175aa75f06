package matching

import (
	"math"
	"testing"

	"bell24h-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steelRequest() models.MatchRequest {
	return models.MatchRequest{RFQID: "rfq-1", IndustryOrCategory: "Steel"}
}

func candidate(id, category string, rating *float64, verified *bool) models.Candidate {
	return models.Candidate{ID: id, IndustryOrCategory: category, Rating: rating, IsVerified: verified}
}

func TestExtractFactors(t *testing.T) {
	tests := []struct {
		name string
		req  models.MatchRequest
		c    models.Candidate
		want Factors
	}{
		{
			name: "full match",
			req:  steelRequest(),
			c:    candidate("1", "Steel", models.Float64Ptr(5), models.BoolPtr(true)),
			want: Factors{CategoryMatch: true, Rating: 1, Verified: true},
		},
		{
			name: "missing optionals",
			req:  steelRequest(),
			c:    candidate("1", "Steel", nil, nil),
			want: Factors{CategoryMatch: true},
		},
		{
			name: "surrounding whitespace ignored",
			req:  models.MatchRequest{IndustryOrCategory: " Steel "},
			c:    candidate("1", "Steel\t", nil, nil),
			want: Factors{CategoryMatch: true},
		},
		{
			name: "case sensitive",
			req:  steelRequest(),
			c:    candidate("1", "steel", nil, nil),
			want: Factors{},
		},
		{
			name: "empty request category never matches",
			req:  models.MatchRequest{},
			c:    candidate("1", "", nil, nil),
			want: Factors{},
		},
		{
			name: "rating above range clamped",
			req:  steelRequest(),
			c:    candidate("1", "Steel", models.Float64Ptr(7), nil),
			want: Factors{CategoryMatch: true, Rating: 1},
		},
		{
			name: "negative rating clamped",
			req:  steelRequest(),
			c:    candidate("1", "Steel", models.Float64Ptr(-2), nil),
			want: Factors{CategoryMatch: true, Rating: 0},
		},
		{
			name: "NaN rating treated as absent",
			req:  steelRequest(),
			c:    candidate("1", "Steel", models.Float64Ptr(math.NaN()), nil),
			want: Factors{CategoryMatch: true, Rating: 0},
		},
		{
			name: "explicit unverified",
			req:  steelRequest(),
			c:    candidate("1", "Steel", models.Float64Ptr(2.5), models.BoolPtr(false)),
			want: Factors{CategoryMatch: true, Rating: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFactors(tt.req, tt.c))
		})
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		f    Factors
		want float64
	}{
		{name: "category gate", f: Factors{CategoryMatch: false, Rating: 1, Verified: true}, want: 0},
		{name: "base only", f: Factors{CategoryMatch: true}, want: 50},
		{name: "perfect", f: Factors{CategoryMatch: true, Rating: 1, Verified: true}, want: 100},
		{name: "half rating", f: Factors{CategoryMatch: true, Rating: 0.5}, want: 65},
		{name: "verified only", f: Factors{CategoryMatch: true, Verified: true}, want: 70},
		{name: "out of range factor clamped", f: Factors{CategoryMatch: true, Rating: 3, Verified: true}, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.f), 1e-9)
		})
	}
}

func TestWeightsSumToMaxScore(t *testing.T) {
	assert.Equal(t, 100.0, MaxScore)
	assert.Equal(t, MaxScore, CategoryWeight+RatingWeight+VerifiedWeight)
}

func TestBreakdown(t *testing.T) {
	b := Breakdown(ExtractFactors(steelRequest(), candidate("1", "Steel", models.Float64Ptr(7), models.BoolPtr(true))))

	assert.Equal(t, CategoryWeight, b.Category)
	assert.Equal(t, 30.0, b.Rating)
	assert.Equal(t, VerifiedWeight, b.Verification)
	assert.Equal(t, 100.0, b.Total)

	assert.Equal(t, ScoreBreakdown{}, Breakdown(Factors{Rating: 1, Verified: true}))
}

func TestScore_MonotonicInRating(t *testing.T) {
	prev := -1.0
	for r := 0.0; r <= 1.0; r += 0.05 {
		s := Score(Factors{CategoryMatch: true, Rating: r})
		assert.GreaterOrEqual(t, s, prev)
		prev = s
	}
}

func TestScore_VerifiedBonusIsExactlyTwenty(t *testing.T) {
	for _, r := range []float64{0, 0.2, 0.5, 0.8, 1} {
		without := Score(Factors{CategoryMatch: true, Rating: r})
		with := Score(Factors{CategoryMatch: true, Rating: r, Verified: true})
		assert.InDelta(t, VerifiedWeight, with-without, 1e-9, "rating %v", r)
	}
}

func TestRank_Example(t *testing.T) {
	candidates := []models.Candidate{
		candidate("1", "Steel", models.Float64Ptr(5), models.BoolPtr(true)),
		candidate("2", "Textiles", models.Float64Ptr(5), models.BoolPtr(true)),
		candidate("3", "Steel", nil, nil),
	}

	ranked := Rank(steelRequest(), candidates)

	require.Len(t, ranked, 2)
	assert.Equal(t, "1", ranked[0].Candidate.ID)
	assert.Equal(t, 100.0, ranked[0].Score)
	assert.Equal(t, "3", ranked[1].Candidate.ID)
	assert.Equal(t, 50.0, ranked[1].Score)
}

func TestRank_EmptyInput(t *testing.T) {
	ranked := Rank(steelRequest(), nil)
	require.NotNil(t, ranked)
	assert.Empty(t, ranked)

	ranked = Rank(steelRequest(), []models.Candidate{})
	require.NotNil(t, ranked)
	assert.Empty(t, ranked)
}

func TestRank_NoMatches(t *testing.T) {
	ranked := Rank(steelRequest(), []models.Candidate{candidate("1", "Textiles", models.Float64Ptr(5), models.BoolPtr(true))})
	require.NotNil(t, ranked)
	assert.Empty(t, ranked)
}

func TestRank_TieBreakByID(t *testing.T) {
	candidates := []models.Candidate{
		candidate("B", "Steel", models.Float64Ptr(4), nil),
		candidate("A", "Steel", models.Float64Ptr(4), nil),
	}

	ranked := Rank(steelRequest(), candidates)

	require.Len(t, ranked, 2)
	assert.Equal(t, "A", ranked[0].Candidate.ID)
	assert.Equal(t, "B", ranked[1].Candidate.ID)
}

func TestRank_NumericIDsCompareNumerically(t *testing.T) {
	candidates := []models.Candidate{
		candidate("10", "Steel", nil, nil),
		candidate("9", "Steel", nil, nil),
		candidate("100", "Steel", nil, nil),
	}

	ranked := Rank(steelRequest(), candidates)

	ids := make([]string, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.Candidate.ID)
	}
	assert.Equal(t, []string{"9", "10", "100"}, ids)
}

func TestRank_DeterministicRegardlessOfInputOrder(t *testing.T) {
	a := []models.Candidate{
		candidate("3", "Steel", models.Float64Ptr(3), nil),
		candidate("1", "Steel", models.Float64Ptr(3), nil),
		candidate("2", "Steel", models.Float64Ptr(5), models.BoolPtr(true)),
		candidate("4", "Wood", models.Float64Ptr(5), nil),
	}
	b := []models.Candidate{a[3], a[2], a[1], a[0]}

	assert.Equal(t, Rank(steelRequest(), a), Rank(steelRequest(), b))
}

func TestRank_RatingSevenGetsFullRatingPoints(t *testing.T) {
	ranked := Rank(steelRequest(), []models.Candidate{candidate("1", "Steel", models.Float64Ptr(7), nil)})

	require.Len(t, ranked, 1)
	assert.Equal(t, 80.0, ranked[0].Score)
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	candidates := []models.Candidate{
		candidate("2", "Steel", nil, nil),
		candidate("1", "Steel", models.Float64Ptr(5), nil),
	}
	before := append([]models.Candidate(nil), candidates...)

	_ = Rank(steelRequest(), candidates)

	assert.Equal(t, before, candidates)
}

func TestRank_NeverReturnsZeroScores(t *testing.T) {
	candidates := []models.Candidate{
		candidate("1", "Steel", models.Float64Ptr(0), models.BoolPtr(false)),
		candidate("2", "", nil, nil),
		candidate("3", "Wood", models.Float64Ptr(5), models.BoolPtr(true)),
	}

	for _, r := range Rank(steelRequest(), candidates) {
		assert.Greater(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, MaxScore)
	}
}

func TestCompareIDs(t *testing.T) {
	assert.Equal(t, -1, compareIDs("2", "10"))
	assert.Equal(t, 1, compareIDs("b", "a"))
	assert.Equal(t, 0, compareIDs("7", "7"))
	assert.Equal(t, -1, compareIDs("10", "9a"))
	// integers sort ahead of non-integers
	assert.Equal(t, -1, compareIDs("100", "1a"))
	assert.Equal(t, 1, compareIDs("1a", "2"))
	assert.Equal(t, -1, compareIDs("a", "b"))
}

func TestRank_MixedIDsTieBreakIsTotal(t *testing.T) {
	ids := []string{"2", "10", "1a"}
	orders := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}

	for _, order := range orders {
		candidates := make([]models.Candidate, 0, len(order))
		for _, i := range order {
			candidates = append(candidates, candidate(ids[i], "Steel", models.Float64Ptr(4), nil))
		}

		ranked := Rank(steelRequest(), candidates)

		got := make([]string, 0, len(ranked))
		for _, r := range ranked {
			got = append(got, r.Candidate.ID)
		}
		assert.Equal(t, []string{"2", "10", "1a"}, got, "input order %v", order)
	}
}
