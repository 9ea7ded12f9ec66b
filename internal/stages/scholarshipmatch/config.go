// internal/stages/scholarshipmatch/config.go
package scholarshipmatch

import "time"

type Config struct {
	MaxCandidates int
	FairCutoff    int
	Timeout       time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MaxCandidates: 5,
		FairCutoff:    45,
		Timeout:       15 * time.Second,
	}
}
