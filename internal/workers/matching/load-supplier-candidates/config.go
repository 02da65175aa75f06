// internal/workers/matching/load-supplier-candidates/config.go
package loadsuppliercandidates

import "time"

type Config struct {
	Timeout        time.Duration
	CacheTTL       time.Duration
	DefaultLimit   int
	MaxLimit       int
	SupplierIndex  string
	CacheKeyPrefix string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        10 * time.Second,
		CacheTTL:       5 * time.Minute,
		DefaultLimit:   200,
		MaxLimit:       1000,
		SupplierIndex:  "suppliers",
		CacheKeyPrefix: "match:candidates",
	}
}
