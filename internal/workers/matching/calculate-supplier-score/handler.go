// internal/workers/matching/calculate-supplier-score/handler.go
package calculatesupplierscore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"bell24h-workers/internal/common/camunda"
	apperrors "bell24h-workers/internal/common/errors"
	"bell24h-workers/internal/common/logger"
	"bell24h-workers/internal/common/validation"
	"bell24h-workers/internal/matching"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "calculate-supplier-score"

type Handler struct {
	config    *Config
	validator *validation.SchemaValidator
	reporter  *camunda.JobReporter
	logger    logger.Logger
}

func NewHandler(config *Config, validator *validation.SchemaValidator, reporter *camunda.JobReporter, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
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

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(job.Variables), &raw); err != nil {
		h.reporter.Fail(context.Background(), client, job, apperrors.NewInvalidMatchInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}
	if err := h.validate(raw); err != nil {
		h.reporter.Fail(context.Background(), client, job, err)
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.reporter.Fail(context.Background(), client, job, apperrors.NewInvalidMatchInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
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

func (h *Handler) validate(raw map[string]interface{}) error {
	if h.validator == nil {
		return nil
	}
	result, err := h.validator.ValidateInput(TaskType, raw)
	if err != nil {
		return apperrors.NewInvalidMatchInputError(err.Error())
	}
	if !result.Valid {
		return apperrors.NewInvalidMatchInputError(result.Summary())
	}
	return nil
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInvalidMatchInputError("input cannot be nil")
	}

	factors := matching.ExtractFactors(input.Request, input.Candidate)
	breakdown := matching.Breakdown(factors)
	if math.IsNaN(breakdown.Total) || breakdown.Total < 0 || breakdown.Total > matching.MaxScore {
		return nil, apperrors.NewScoringFailedError(fmt.Errorf("score %v out of range", breakdown.Total))
	}

	output := &Output{
		SupplierID: input.Candidate.ID,
		Score:      breakdown.Total,
		Matched:    breakdown.Total > 0,
		Factors:    factors,
		Breakdown: Breakdown{
			Category:     breakdown.Category,
			Rating:       breakdown.Rating,
			Verification: breakdown.Verification,
		},
	}

	h.logger.Debug("supplier scored", map[string]interface{}{
		"supplierId":    output.SupplierID,
		"score":         output.Score,
		"categoryMatch": factors.CategoryMatch,
	})
	return output, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// Validate is exported for tests that start from raw job variables.
func (h *Handler) Validate(raw map[string]interface{}) error {
	return h.validate(raw)
}
