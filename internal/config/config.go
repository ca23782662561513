package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrConfiguration marks fatal configuration problems such as missing or
// malformed key material in production.
var ErrConfiguration = errors.New("config: invalid configuration")

// Config holds the runtime configuration for the trust core and its HTTP
// surface. Values come from the environment, optionally seeded from a .env
// file during local development.
type Config struct {
	Env        string
	ListenAddr string

	// Token signing
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Field-level encryption (32 bytes, hex or base64)
	DataEncryptionKey string

	// Postgres (optional; memory stores are used when empty)
	PostgresDSN string

	// Redis revocation store (optional; memory store is used when empty)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads configuration from the environment. A .env file in the working
// directory or one level up is honored when present.
func Load() Config {
	for _, path := range []string{".env", "../.env"} {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}

	return Config{
		Env:               getEnv("STRIDELOG_ENV", "development"),
		ListenAddr:        getEnv("STRIDELOG_LISTEN_ADDR", ":8080"),
		JWTSecret:         os.Getenv("STRIDELOG_JWT_SECRET"),
		AccessTokenTTL:    getDuration("STRIDELOG_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:   getDuration("STRIDELOG_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		DataEncryptionKey: os.Getenv("STRIDELOG_DATA_ENCRYPTION_KEY"),
		PostgresDSN:       os.Getenv("STRIDELOG_PG_DSN"),
		RedisAddr:         os.Getenv("STRIDELOG_REDIS_ADDR"),
		RedisPassword:     os.Getenv("STRIDELOG_REDIS_PASSWORD"),
		RedisDB:           getInt("STRIDELOG_REDIS_DB", 0),
	}
}

// IsProduction reports whether the service runs in a production-like
// environment where generated fallback keys are not acceptable.
func (c Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Env))
	return env == "production" || env == "staging"
}

// Validate fails fast on missing key material in production. Development
// environments may run without keys; the caller generates ephemeral ones.
func (c Config) Validate() error {
	if !c.IsProduction() {
		return nil
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("%w: STRIDELOG_JWT_SECRET is required in %s", ErrConfiguration, c.Env)
	}
	if strings.TrimSpace(c.DataEncryptionKey) == "" {
		return fmt.Errorf("%w: STRIDELOG_DATA_ENCRYPTION_KEY is required in %s", ErrConfiguration, c.Env)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
