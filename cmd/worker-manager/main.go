// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bell24h-workers/internal/common/camunda"
	"bell24h-workers/internal/common/config"
	"bell24h-workers/internal/common/database"
	apperrors "bell24h-workers/internal/common/errors"
	"bell24h-workers/internal/common/logger"
	"bell24h-workers/internal/common/metrics"
	"bell24h-workers/internal/common/observability"
	"bell24h-workers/internal/common/validation"
	"bell24h-workers/internal/matching"
	"bell24h-workers/internal/matching/provider"
	"bell24h-workers/pkg/registry"

	css "bell24h-workers/internal/workers/matching/calculate-supplier-score"
	lsc "bell24h-workers/internal/workers/matching/load-supplier-candidates"
	rs "bell24h-workers/internal/workers/matching/rank-suppliers"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("Starting worker manager...", zap.String("environment", cfg.App.Environment))

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("otel metrics disabled", zap.Error(err))
	}
	defer obs.Shutdown()

	reg, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}
	if err := reg.Validate(); err != nil {
		zapLog.Fatal("activity registry invalid", zap.Error(err))
	}
	validator, err := validation.NewSchemaValidator(reg)
	if err != nil {
		zapLog.Fatal("activity schemas invalid", zap.Error(err))
	}

	ctx := context.Background()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ClientConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis ---
	redisClient := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Elasticsearch (optional) ---
	var search lsc.Searcher
	if cfg.Database.Elasticsearch.Enabled() {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		search = esClient
		zapLog.Info("Elasticsearch connected successfully")
	} else {
		zapLog.Info("Elasticsearch not configured, search_index data source disabled")
	}

	// --- Matching ---
	externalProvider, err := provider.NewFromConfig(cfg.APIs.Matching)
	if err != nil {
		zapLog.Fatal("matching provider init failed", zap.Error(err))
	}
	matcherOpts := []matching.Option{
		matching.WithRecorder(matching.Recorders(metrics.Recorder{}, obs)),
		matching.WithTracer(obs.Tracer("bell24h-workers/matching")),
	}
	providerName := provider.KindNone
	if externalProvider != nil {
		matcherOpts = append(matcherOpts, matching.WithProvider(externalProvider))
		providerName = externalProvider.Name()
	}
	matcher := matching.NewMatcher(
		matching.Config{ExternalTimeout: config.GetDuration(cfg.APIs.Matching.Timeout)},
		log,
		matcherOpts...,
	)
	zapLog.Info("Supplier matcher ready", zap.String("provider", providerName))

	errorHandler := apperrors.NewErrorHandler(log)
	client := zeebe.GetClient()
	var workers []*camunda.Worker

	// --- Workers ---
	{
		wcfg := config.GetWorkerConfig(cfg, lsc.TaskType)
		lcfg := lsc.LoadConfig()
		lcfg.Timeout = workerTimeout(reg, lsc.TaskType, wcfg)
		lcfg.CacheTTL = time.Duration(cfg.Matching.CandidateCacheTTL) * time.Second
		lcfg.DefaultLimit = cfg.Matching.CandidateLimit
		lcfg.SupplierIndex = cfg.Database.Elasticsearch.SupplierIndex
		handler := lsc.NewHandler(
			lcfg,
			pg.DB, search, redisClient.Client, validator,
			camunda.NewJobReporter(lsc.TaskType, errorHandler, obs),
			log,
		)
		workers = appendWorker(workers, camunda.StartWorker(client, lsc.TaskType, wcfg, handler.Handle, obs, log))
	}
	{
		wcfg := config.GetWorkerConfig(cfg, rs.TaskType)
		handler := rs.NewHandler(
			&rs.Config{
				Timeout:    workerTimeout(reg, rs.TaskType, wcfg),
				MaxResults: cfg.Matching.MaxResults,
			},
			matcher, validator,
			camunda.NewJobReporter(rs.TaskType, errorHandler, obs),
			log,
		)
		workers = appendWorker(workers, camunda.StartWorker(client, rs.TaskType, wcfg, handler.Handle, obs, log))
	}
	{
		wcfg := config.GetWorkerConfig(cfg, css.TaskType)
		handler := css.NewHandler(
			&css.Config{Timeout: workerTimeout(reg, css.TaskType, wcfg)},
			validator,
			camunda.NewJobReporter(css.TaskType, errorHandler, obs),
			log,
		)
		workers = appendWorker(workers, camunda.StartWorker(client, css.TaskType, wcfg, handler.Handle, obs, log))
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK
		for name, check := range map[string]func(context.Context) error{
			"zeebe":    zeebe.HealthCheck,
			"postgres": pg.Ping,
			"redis":    redisClient.Ping,
		} {
			if err := check(checkCtx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		checks["status"] = "ready"
		if status != http.StatusOK {
			checks["status"] = "not ready"
		}
		writeStatus(w, status, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.Metrics.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Close()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// workerTimeout prefers the configured worker timeout and falls back to the
// registry's activity timeout.
func workerTimeout(reg *registry.ActivityRegistry, taskType string, wcfg config.WorkerConfig) time.Duration {
	if wcfg.Timeout > 0 {
		return config.GetDuration(wcfg.Timeout)
	}
	if activity, ok := reg.FindByTaskType(taskType); ok {
		return activity.TimeoutDuration(30 * time.Second)
	}
	return 30 * time.Second
}

func appendWorker(workers []*camunda.Worker, w *camunda.Worker) []*camunda.Worker {
	if w == nil {
		return workers
	}
	return append(workers, w)
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	body["time"] = time.Now().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
