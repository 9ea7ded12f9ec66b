// internal/stages/contingencyplan/config.go
package contingencyplan

import "time"

type Config struct {
	MaxOptions int
	Timeout    time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MaxOptions: 4,
		Timeout:    15 * time.Second,
	}
}
