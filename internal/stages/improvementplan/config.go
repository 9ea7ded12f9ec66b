// internal/stages/improvementplan/config.go
package improvementplan

import "time"

type Config struct {
	MaxActions int
	Timeout    time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MaxActions: 6,
		Timeout:    15 * time.Second,
	}
}
