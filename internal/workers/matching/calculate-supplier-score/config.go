// internal/workers/matching/calculate-supplier-score/config.go
package calculatesupplierscore

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}
