// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bell24h-workers/internal/common/config"
	"bell24h-workers/internal/common/database"
	"bell24h-workers/internal/common/logger"
	"bell24h-workers/internal/common/validation"
	"bell24h-workers/internal/matching"
	"bell24h-workers/internal/models"
	"bell24h-workers/pkg/registry"

	lsc "bell24h-workers/internal/workers/matching/load-supplier-candidates"
	rs "bell24h-workers/internal/workers/matching/rank-suppliers"
)

// These tests talk to the docker-compose stack (postgres, redis and,
// optionally, elasticsearch). Set E2E=1 to run them.
func TestMain(m *testing.M) {
	if os.Getenv("E2E") == "" {
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)

	cfg.Database.Postgres.Host = envOr("E2E_POSTGRES_HOST", "localhost")
	cfg.Database.Redis.Address = envOr("E2E_REDIS_ADDRESS", "localhost:6379")
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func seedSuppliers(t *testing.T, pg *database.PostgresClient) {
	t.Helper()
	ctx := context.Background()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS suppliers (
			id BIGSERIAL PRIMARY KEY,
			name TEXT,
			industry_category TEXT NOT NULL,
			rating DOUBLE PRECISION,
			is_verified BOOLEAN,
			is_active BOOLEAN NOT NULL DEFAULT true
		)`,
		`DELETE FROM suppliers WHERE industry_category IN ('E2E Steel', 'E2E Textiles')`,
		`INSERT INTO suppliers (name, industry_category, rating, is_verified) VALUES
			('Forge A', 'E2E Steel', 5, true),
			('Loom B', 'E2E Textiles', 5, true),
			('Forge C', 'E2E Steel', NULL, NULL),
			('Forge D', 'E2E Steel', 7, false)`,
		`INSERT INTO suppliers (name, industry_category, rating, is_verified, is_active) VALUES
			('Forge Closed', 'E2E Steel', 5, true, false)`,
	}
	for _, stmt := range stmts {
		_, err := pg.DB.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
}

func TestSupplierMatchingPipeline(t *testing.T) {
	cfg := loadConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	log := logger.NewTestLogger(t)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	defer pg.Close()
	require.NoError(t, pg.Ping(ctx), "postgres not reachable")

	rdb := database.NewRedis(cfg.Database.Redis)
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx), "redis not reachable")
	require.NoError(t, rdb.Client.Del(ctx, "match:candidates:internal_db:E2E Steel:50").Err())

	seedSuppliers(t, pg)

	reg, err := registry.Default()
	require.NoError(t, err)
	validator, err := validation.NewSchemaValidator(reg)
	require.NoError(t, err)

	loader := lsc.NewHandler(&lsc.Config{
		Timeout:        10 * time.Second,
		CacheTTL:       time.Minute,
		DefaultLimit:   50,
		MaxLimit:       100,
		SupplierIndex:  cfg.Database.Elasticsearch.SupplierIndex,
		CacheKeyPrefix: "match:candidates",
	}, pg.DB, nil, rdb.Client, validator, nil, log)

	loaded, err := loader.Execute(ctx, &lsc.Input{RFQID: "e2e-rfq", IndustryOrCategory: "E2E Steel"})
	require.NoError(t, err)
	require.Equal(t, 3, loaded.CandidateCount, "inactive suppliers must be excluded")

	matcher := matching.NewMatcher(matching.DefaultConfig(), log)
	ranker := rs.NewHandler(&rs.Config{Timeout: 10 * time.Second}, matcher, validator, nil, log)

	// Textiles supplier is appended to prove the category gate still applies.
	candidates := append(loaded.Candidates, models.Candidate{ID: "textiles-1", IndustryOrCategory: "E2E Textiles", Rating: models.Float64Ptr(5), IsVerified: models.BoolPtr(true)})
	ranked, err := ranker.Execute(ctx, &rs.Input{
		RFQID:      "e2e-rfq",
		Request:    models.MatchRequest{RFQID: "e2e-rfq", IndustryOrCategory: "E2E Steel"},
		Candidates: candidates,
	})
	require.NoError(t, err)

	assert.Equal(t, models.MatchSourceLocal, ranked.MatchSource)
	require.Len(t, ranked.RankedSuppliers, 3)
	assert.Equal(t, 100.0, ranked.RankedSuppliers[0].Score)
	assert.Equal(t, 80.0, ranked.RankedSuppliers[1].Score)
	assert.Equal(t, 50.0, ranked.RankedSuppliers[2].Score)

	again, err := loader.Execute(ctx, &lsc.Input{RFQID: "e2e-rfq", IndustryOrCategory: "E2E Steel"})
	require.NoError(t, err)
	assert.True(t, again.CacheHit)
}
