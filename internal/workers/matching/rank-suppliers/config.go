// internal/workers/matching/rank-suppliers/config.go
package ranksuppliers

import "time"

type Config struct {
	Timeout time.Duration
	// MaxResults caps the ranked list when the job does not set maxResults; 0 means no cap.
	MaxResults    int
	SlowThreshold time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       30 * time.Second,
		SlowThreshold: 500 * time.Millisecond,
	}
}
