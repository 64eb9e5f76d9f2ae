// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`

	// Workers > 1 shards records across goroutines by client id.
	Workers int `env:"WORKERS" envDefault:"1"`

	// Optional snapshot sinks. Empty disables the sink.
	DatabaseURL string        `env:"DATABASE_URL"`
	RedisURL    string        `env:"REDIS_URL"`
	RedisTTL    time.Duration `env:"REDIS_TTL" envDefault:"1h"`

	ServeAddr       string        `env:"SERVE_ADDR"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("config.Load: WORKERS must be at least 1, got %d", cfg.Workers)
	}
	return &cfg, nil
}
