// internal/stages/financialanalysis/config.go
package financialanalysis

import "time"

type Config struct {
	LoanCoverageRatio float64
	Timeout           time.Duration
}

func LoadConfig() *Config {
	return &Config{
		LoanCoverageRatio: 0.6,
		Timeout:           15 * time.Second,
	}
}
