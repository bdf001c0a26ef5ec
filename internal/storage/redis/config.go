package redis

import "time"

// Config holds the Redis connection settings for the tournament store
type Config struct {
	// URL is a redis:// or rediss:// connection URL
	URL string

	PoolSize     int
	MinIdleConns int

	// ConnectTimeout bounds the startup ping
	ConnectTimeout time.Duration

	// MaxTxRetries bounds how often a guarded write is retried after a
	// watched key changed underneath it.
	MaxTxRetries int
}

// DefaultConfig returns defaults for a local Redis
func DefaultConfig() Config {
	return Config{
		URL:            "redis://localhost:6379",
		PoolSize:       10,
		MinIdleConns:   2,
		ConnectTimeout: 5 * time.Second,
		MaxTxRetries:   50,
	}
}
