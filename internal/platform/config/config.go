package config

import (
	"os"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr            string
	DatabaseURL     string
	RedisURL        string
	ShutdownTimeout time.Duration
	IdempotencyTTL  time.Duration
}

// FromEnv builds a Server config from environment variables so main stays
// lean. An empty DATABASE_URL selects the in-memory stores, an empty
// REDIS_URL disables the idempotency cache.
func FromEnv() Server {
	addr := os.Getenv("RESCAR_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	return Server{
		Addr:            addr,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		ShutdownTimeout: 10 * time.Second,
		IdempotencyTTL:  24 * time.Hour,
	}
}
