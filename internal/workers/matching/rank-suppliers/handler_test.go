// internal/workers/matching/rank-suppliers/handler_test.go
package ranksuppliers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "bell24h-workers/internal/common/errors"
	"bell24h-workers/internal/common/logger"
	"bell24h-workers/internal/common/validation"
	"bell24h-workers/internal/matching"
	"bell24h-workers/internal/models"
	"bell24h-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type stubProvider struct {
	result []models.ScoredCandidate
	err    error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Match(ctx context.Context, req models.MatchRequest, candidates []models.Candidate) ([]models.ScoredCandidate, error) {
	return s.result, s.err
}

func createTestConfig() *Config {
	cfg := LoadConfig()
	cfg.Timeout = 5 * time.Second
	return cfg
}

func createValidator(t *testing.T) *validation.SchemaValidator {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	v, err := validation.NewSchemaValidator(reg)
	require.NoError(t, err)
	return v
}

func createHandler(t *testing.T, cfg *Config, provider matching.Provider) *Handler {
	t.Helper()
	log := logger.NewTestLogger(t)
	opts := []matching.Option{}
	if provider != nil {
		opts = append(opts, matching.WithProvider(provider))
	}
	matcher := matching.NewMatcher(matching.Config{ExternalTimeout: time.Second}, log, opts...)
	return NewHandler(cfg, matcher, createValidator(t), nil, log)
}

func createMockJob(variables map[string]interface{}) entities.Job {
	varsJSON, _ := json.Marshal(variables)
	return entities.Job{
		ActivatedJob: &pb.ActivatedJob{
			Key:                12345,
			Type:               TaskType,
			ProcessInstanceKey: 67890,
			Retries:            3,
			Variables:          string(varsJSON),
		},
	}
}

func exampleCandidates() []models.Candidate {
	return []models.Candidate{
		{ID: "1", IndustryOrCategory: "Steel", Rating: models.Float64Ptr(5), IsVerified: models.BoolPtr(true)},
		{ID: "2", IndustryOrCategory: "Textiles", Rating: models.Float64Ptr(5), IsVerified: models.BoolPtr(true)},
		{ID: "3", IndustryOrCategory: "Steel"},
	}
}

func createTestInput() *Input {
	return &Input{
		RFQID:      "rfq-100",
		Request:    models.MatchRequest{RFQID: "rfq-100", IndustryOrCategory: "Steel"},
		Candidates: exampleCandidates(),
	}
}

// ==========================
// Tests
// ==========================

func TestExecute_LocalRanking(t *testing.T) {
	handler := createHandler(t, createTestConfig(), nil)

	output, err := handler.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.Equal(t, models.MatchSourceLocal, output.MatchSource)
	assert.Equal(t, 2, output.MatchCount)
	assert.Equal(t, []models.RankedSupplier{
		{SupplierID: "1", Score: 100},
		{SupplierID: "3", Score: 50},
	}, output.RankedSuppliers)
	assert.NotEmpty(t, output.MatchRunID)
	_, err = time.Parse(time.RFC3339, output.MatchedAt)
	assert.NoError(t, err)
}

func TestExecute_ExternalRanking(t *testing.T) {
	cands := exampleCandidates()
	provider := &stubProvider{result: []models.ScoredCandidate{
		{Candidate: cands[2], Score: 77},
		{Candidate: cands[0], Score: 66},
	}}
	handler := createHandler(t, createTestConfig(), provider)

	output, err := handler.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.Equal(t, models.MatchSourceExternal, output.MatchSource)
	assert.Equal(t, "3", output.RankedSuppliers[0].SupplierID)
	assert.Equal(t, 77.0, output.RankedSuppliers[0].Score)
}

func TestExecute_ExternalFailureFallsBack(t *testing.T) {
	handler := createHandler(t, createTestConfig(), &stubProvider{err: errors.New("bad gateway")})

	output, err := handler.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.Equal(t, models.MatchSourceLocal, output.MatchSource)
	assert.Len(t, output.RankedSuppliers, 2)
}

func TestExecute_EmptyCandidatesYieldsEmptyArray(t *testing.T) {
	handler := createHandler(t, createTestConfig(), nil)
	input := createTestInput()
	input.Candidates = nil

	output, err := handler.Execute(context.Background(), input)

	require.NoError(t, err)
	require.NotNil(t, output.RankedSuppliers)
	assert.Empty(t, output.RankedSuppliers)

	encoded, err := json.Marshal(output)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"rankedSuppliers":[]`)
}

func TestExecute_MaxResults(t *testing.T) {
	cfg := createTestConfig()
	cfg.MaxResults = 1
	handler := createHandler(t, cfg, nil)

	output, err := handler.Execute(context.Background(), createTestInput())
	require.NoError(t, err)
	assert.Equal(t, 1, output.MatchCount)
	assert.Equal(t, "1", output.RankedSuppliers[0].SupplierID)

	// job-level maxResults wins over config; zero disables the cap
	input := createTestInput()
	zero := 0
	input.MaxResults = &zero
	output, err = handler.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 2, output.MatchCount)
}

func TestExecute_NilInput(t *testing.T) {
	handler := createHandler(t, createTestConfig(), nil)

	_, err := handler.Execute(context.Background(), nil)

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidMatchInput, apperrors.Normalize(err).Code)
}

func TestParseInput(t *testing.T) {
	handler := createHandler(t, createTestConfig(), nil)

	tests := []struct {
		name      string
		variables map[string]interface{}
		wantErr   bool
	}{
		{
			name: "valid",
			variables: map[string]interface{}{
				"rfqId":   "rfq-7",
				"request": map[string]interface{}{"industryOrCategory": "Steel"},
				"candidates": []interface{}{
					map[string]interface{}{"id": "1", "industryOrCategory": "Steel", "rating": 4, "isVerified": true},
				},
			},
		},
		{
			name:      "missing request",
			variables: map[string]interface{}{"candidates": []interface{}{}},
			wantErr:   true,
		},
		{
			name: "candidate without id",
			variables: map[string]interface{}{
				"request":    map[string]interface{}{"industryOrCategory": "Steel"},
				"candidates": []interface{}{map[string]interface{}{"industryOrCategory": "Steel"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := createMockJob(tt.variables)
			input, err := handler.ParseInput(job.Variables)
			if tt.wantErr {
				require.Error(t, err)
				stdErr := apperrors.Normalize(err)
				assert.Equal(t, apperrors.ErrCodeInvalidMatchInput, stdErr.Code)
				assert.False(t, stdErr.Retryable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "rfq-7", input.Request.RFQID)
			require.Len(t, input.Candidates, 1)
			assert.Equal(t, 4.0, *input.Candidates[0].Rating)
		})
	}
}

func TestParseInput_MalformedJSON(t *testing.T) {
	handler := createHandler(t, createTestConfig(), nil)

	_, err := handler.ParseInput("{not json")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidMatchInput, apperrors.Normalize(err).Code)
}

func TestParseInput_NumericCandidateIDs(t *testing.T) {
	handler := createHandler(t, createTestConfig(), nil)

	job := createMockJob(map[string]interface{}{
		"request": map[string]interface{}{"industryOrCategory": "Steel"},
		"candidates": []interface{}{
			map[string]interface{}{"id": 1, "industryOrCategory": "Steel", "rating": 5, "isVerified": true},
			map[string]interface{}{"id": 2, "industryOrCategory": "Textiles", "rating": 5, "isVerified": true},
			map[string]interface{}{"id": 3, "industryOrCategory": "Steel"},
		},
	})

	input, err := handler.ParseInput(job.Variables)
	require.NoError(t, err)

	output, err := handler.Execute(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, output.RankedSuppliers, 2)
	assert.Equal(t, "1", output.RankedSuppliers[0].SupplierID)
	assert.Equal(t, 100.0, output.RankedSuppliers[0].Score)
	assert.Equal(t, "3", output.RankedSuppliers[1].SupplierID)
	assert.Equal(t, 50.0, output.RankedSuppliers[1].Score)
}

func TestParseInput_FractionalCandidateIDRejected(t *testing.T) {
	handler := createHandler(t, createTestConfig(), nil)

	job := createMockJob(map[string]interface{}{
		"request":    map[string]interface{}{"industryOrCategory": "Steel"},
		"candidates": []interface{}{map[string]interface{}{"id": 1.5, "industryOrCategory": "Steel"}},
	})

	_, err := handler.ParseInput(job.Variables)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidMatchInput, apperrors.Normalize(err).Code)
}

func TestTruncate(t *testing.T) {
	ranked := []models.ScoredCandidate{{Score: 3}, {Score: 2}, {Score: 1}}

	assert.Len(t, truncate(ranked, 0), 3)
	assert.Len(t, truncate(ranked, 2), 2)
	assert.Len(t, truncate(ranked, 10), 3)
	assert.Equal(t, 3.0, truncate(ranked, 1)[0].Score)
}

type slowRanker struct {
	delay time.Duration
}

func (s slowRanker) Rank(ctx context.Context, req models.MatchRequest, candidates []models.Candidate) matching.Result {
	time.Sleep(s.delay)
	return matching.Result{Suppliers: []models.ScoredCandidate{}, Source: models.MatchSourceLocal}
}

func TestExecute_SlowRankingStillCompletes(t *testing.T) {
	cfg := createTestConfig()
	cfg.SlowThreshold = time.Millisecond
	handler := NewHandler(cfg, slowRanker{delay: 5 * time.Millisecond}, nil, nil, logger.NewNoOpLogger())

	output, err := handler.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.Equal(t, 0, output.MatchCount)
}
