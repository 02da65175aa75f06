// internal/workers/matching/rank-suppliers/handler.go
package ranksuppliers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bell24h-workers/internal/common/camunda"
	apperrors "bell24h-workers/internal/common/errors"
	"bell24h-workers/internal/common/logger"
	"bell24h-workers/internal/common/validation"
	"bell24h-workers/internal/matching"
	"bell24h-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "rank-suppliers"

var ErrNilInput = errors.New("input cannot be nil")

// Ranker is satisfied by *matching.Matcher.
type Ranker interface {
	Rank(ctx context.Context, req models.MatchRequest, candidates []models.Candidate) matching.Result
}

type Handler struct {
	config    *Config
	ranker    Ranker
	validator *validation.SchemaValidator
	reporter  *camunda.JobReporter
	logger    logger.Logger
}

func NewHandler(config *Config, ranker Ranker, validator *validation.SchemaValidator, reporter *camunda.JobReporter, log logger.Logger) *Handler {
	if config.SlowThreshold <= 0 {
		config.SlowThreshold = 500 * time.Millisecond
	}
	return &Handler{
		config:    config,
		ranker:    ranker,
		validator: validator,
		reporter:  reporter,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := h.parseInput(job.Variables)
	if err != nil {
		h.reporter.Fail(context.Background(), client, job, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, input)
	if err != nil {
		h.reporter.Fail(context.Background(), client, job, err)
		return
	}

	if err := h.reporter.Complete(context.Background(), client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
	}
}

// parseInput validates the raw job variables against the registry schema
// before decoding them.
func (h *Handler) parseInput(variables string) (*Input, error) {
	if h.validator != nil {
		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(variables), &raw); err != nil {
			return nil, apperrors.NewInvalidMatchInputError(fmt.Sprintf("parse input: %v", err))
		}
		result, err := h.validator.ValidateInput(TaskType, raw)
		if err != nil {
			return nil, apperrors.NewInvalidMatchInputError(err.Error())
		}
		if !result.Valid {
			return nil, apperrors.NewInvalidMatchInputError(result.Summary())
		}
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInvalidMatchInputError(fmt.Sprintf("parse input: %v", err))
	}
	if input.Request.RFQID == "" {
		input.Request.RFQID = input.RFQID
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInvalidMatchInputError(ErrNilInput.Error())
	}

	start := time.Now()
	runID := uuid.NewString()

	result := h.ranker.Rank(ctx, input.Request, input.Candidates)
	ranked := truncate(result.Suppliers, h.maxResults(input))

	output := &Output{
		RankedSuppliers: models.ToRankedSuppliers(ranked),
		MatchSource:     result.Source,
		MatchCount:      len(ranked),
		MatchRunID:      runID,
		MatchedAt:       time.Now().UTC().Format(time.RFC3339),
	}

	duration := time.Since(start)
	fields := map[string]interface{}{
		"rfqId":           input.Request.RFQID,
		"matchRunId":      runID,
		"candidateCount":  len(input.Candidates),
		"matchCount":      output.MatchCount,
		"matchSource":     string(result.Source),
		"externalOutcome": string(result.Outcome),
		"durationMs":      duration.Milliseconds(),
	}
	if duration > h.config.SlowThreshold {
		h.logger.Warn("ranking exceeded threshold", fields)
	}
	h.logger.Info("ranking completed", fields)

	return output, nil
}

func (h *Handler) maxResults(input *Input) int {
	if input.MaxResults != nil {
		return *input.MaxResults
	}
	return h.config.MaxResults
}

// truncate keeps the first n entries; n <= 0 keeps everything.
func truncate(ranked []models.ScoredCandidate, n int) []models.ScoredCandidate {
	if n <= 0 || len(ranked) <= n {
		return ranked
	}
	return ranked[:n]
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// ParseInput is exported for tests that start from raw job variables.
func (h *Handler) ParseInput(variables string) (*Input, error) {
	return h.parseInput(variables)
}
