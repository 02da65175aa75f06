// internal/workers/matching/load-supplier-candidates/handler.go
package loadsuppliercandidates

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bell24h-workers/internal/common/camunda"
	"bell24h-workers/internal/common/database"
	apperrors "bell24h-workers/internal/common/errors"
	"bell24h-workers/internal/common/logger"
	"bell24h-workers/internal/common/validation"
	"bell24h-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const TaskType = "load-supplier-candidates"

const supplierQuery = `SELECT id::text, COALESCE(name, ''), industry_category, rating, is_verified
FROM suppliers
WHERE industry_category = $1 AND is_active = true
ORDER BY id
LIMIT $2`

// Searcher is satisfied by *database.ElasticsearchClient.
type Searcher interface {
	Search(ctx context.Context, index string, query map[string]interface{}) ([]database.SearchHit, error)
}

type Handler struct {
	config    *Config
	db        *sql.DB
	search    Searcher
	redis     *redis.Client
	validator *validation.SchemaValidator
	reporter  *camunda.JobReporter
	logger    logger.Logger
}

// NewHandler builds the handler. search and redisClient may be nil; without
// a search client the search_index source is rejected, and without redis
// nothing is cached.
func NewHandler(config *Config, db *sql.DB, search Searcher, redisClient *redis.Client, validator *validation.SchemaValidator, reporter *camunda.JobReporter, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		db:        db,
		search:    search,
		redis:     redisClient,
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
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInvalidMatchInputError("input cannot be nil")
	}

	category := strings.TrimSpace(input.IndustryOrCategory)
	if category == "" {
		return nil, apperrors.NewInvalidMatchInputError("industryOrCategory is required")
	}

	source := input.DataSource
	if source == "" {
		source = models.DataSourceInternalDB
	}
	if !h.supports(source) {
		return nil, apperrors.NewUnsupportedDataSourceError(string(source))
	}

	limit := h.limit(input.Limit)
	cacheKey := h.cacheKey(source, category, limit)

	start := time.Now()
	if cached, ok := h.getFromCache(ctx, cacheKey); ok {
		h.logger.Debug("candidates served from cache", map[string]interface{}{
			"cacheKey":       cacheKey,
			"candidateCount": len(cached),
		})
		return &Output{Candidates: cached, CandidateCount: len(cached), DataSource: source, CacheHit: true}, nil
	}

	var candidates []models.Candidate
	var err error
	if source == models.DataSourceSearchIndex {
		candidates, err = h.querySearchIndex(ctx, category, limit)
	} else {
		candidates, err = h.queryDatabase(ctx, category, limit)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewCandidateLookupTimeoutError(string(source))
		}
		return nil, apperrors.NewCandidateLookupFailedError(string(source), err).
			WithMetadata(map[string]interface{}{"rfqId": input.RFQID})
	}

	h.setCache(ctx, cacheKey, candidates)

	h.logger.Info("candidates loaded", map[string]interface{}{
		"rfqId":          input.RFQID,
		"dataSource":     string(source),
		"category":       category,
		"candidateCount": len(candidates),
		"durationMs":     time.Since(start).Milliseconds(),
	})

	return &Output{Candidates: candidates, CandidateCount: len(candidates), DataSource: source}, nil
}

func (h *Handler) supports(source models.DataSource) bool {
	switch source {
	case models.DataSourceInternalDB:
		return h.db != nil
	case models.DataSourceSearchIndex:
		return h.search != nil
	}
	return false
}

func (h *Handler) limit(requested int) int {
	limit := requested
	if limit <= 0 {
		limit = h.config.DefaultLimit
	}
	if h.config.MaxLimit > 0 && limit > h.config.MaxLimit {
		limit = h.config.MaxLimit
	}
	return limit
}

// cacheKey keeps the category's case: both sources match it exactly.
func (h *Handler) cacheKey(source models.DataSource, category string, limit int) string {
	return fmt.Sprintf("%s:%s:%s:%d", h.config.CacheKeyPrefix, source, category, limit)
}

func (h *Handler) queryDatabase(ctx context.Context, category string, limit int) ([]models.Candidate, error) {
	rows, err := h.db.QueryContext(ctx, supplierQuery, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]models.Candidate, 0)
	for rows.Next() {
		var (
			c        models.Candidate
			rating   sql.NullFloat64
			verified sql.NullBool
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.IndustryOrCategory, &rating, &verified); err != nil {
			return nil, fmt.Errorf("scan supplier row: %w", err)
		}
		if rating.Valid {
			c.Rating = models.Float64Ptr(rating.Float64)
		}
		if verified.Valid {
			c.IsVerified = models.BoolPtr(verified.Bool)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (h *Handler) querySearchIndex(ctx context.Context, category string, limit int) ([]models.Candidate, error) {
	query := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"industryCategory": category}},
					map[string]interface{}{"term": map[string]interface{}{"isActive": true}},
				},
			},
		},
	}

	hits, err := h.search.Search(ctx, h.config.SupplierIndex, query)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(hits))
	for _, hit := range hits {
		var doc supplierDocument
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			h.logger.Warn("skipping unreadable supplier document", map[string]interface{}{
				"documentId": hit.ID,
				"error":      err.Error(),
			})
			continue
		}
		id := doc.ID
		if id == "" {
			id = hit.ID
		}
		candidates = append(candidates, models.Candidate{
			ID:                 id,
			Name:               doc.Name,
			IndustryOrCategory: doc.IndustryCategory,
			Rating:             doc.Rating,
			IsVerified:         doc.IsVerified,
		})
	}
	return candidates, nil
}

func (h *Handler) getFromCache(ctx context.Context, key string) ([]models.Candidate, bool) {
	if h.redis == nil {
		return nil, false
	}
	val, err := h.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			h.logger.Warn("candidate cache read failed", map[string]interface{}{
				"cacheKey": key,
				"error":    err.Error(),
			})
		}
		return nil, false
	}

	var candidates []models.Candidate
	if err := json.Unmarshal([]byte(val), &candidates); err != nil {
		h.logger.Warn("discarding corrupt cache entry", map[string]interface{}{
			"cacheKey": key,
			"error":    err.Error(),
		})
		return nil, false
	}
	if candidates == nil {
		candidates = []models.Candidate{}
	}
	return candidates, true
}

func (h *Handler) setCache(ctx context.Context, key string, candidates []models.Candidate) {
	if h.redis == nil || h.config.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(candidates)
	if err != nil {
		return
	}
	if err := h.redis.Set(ctx, key, data, h.config.CacheTTL).Err(); err != nil {
		h.logger.Warn("candidate cache write failed", map[string]interface{}{
			"cacheKey": key,
			"error":    err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// ParseInput is exported for tests that start from raw job variables.
func (h *Handler) ParseInput(variables string) (*Input, error) {
	return h.parseInput(variables)
}
