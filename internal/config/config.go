package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "password",
}

type Config struct {
	Port int `env:"PORT" envDefault:"8080"`
	// Empty DATABASE_URL selects the in-memory record store (dev/test runs).
	DatabaseURL string `env:"DATABASE_URL"`
	// Empty REDIS_ADDR disables the lifecycle event feed.
	RedisAddr           string   `env:"REDIS_ADDR"`
	JWTSecret           string   `env:"JWT_SECRET,required,notEmpty"`
	RoomTokenTTLSeconds int      `env:"ROOM_TOKEN_TTL_SECONDS" envDefault:"300"`
	LogLevel            string   `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins      []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) RoomTokenTTL() time.Duration {
	return time.Duration(c.RoomTokenTTLSeconds) * time.Second
}

func (c *Config) Validate() error {
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters (generate with: openssl rand -base64 32)")
	}
	for _, weak := range knownWeakSecrets {
		if c.JWTSecret == weak {
			return fmt.Errorf("JWT_SECRET is a known weak default; set a strong secret")
		}
	}
	if c.RoomTokenTTLSeconds <= 0 {
		return fmt.Errorf("ROOM_TOKEN_TTL_SECONDS must be positive")
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
