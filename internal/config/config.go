package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	Store     StoreConfig
	Exec      ExecConfig
	Translate TranslateConfig
}

type StoreConfig struct {
	DSN          string        // Backing store connection string
	MaxOpenConns int           // Connection pool size (0 = driver default)
	MaxIdleConns int           // Idle connections kept in the pool
	ConnLifetime time.Duration // Recycle connections older than this (0 = never)
}

type ExecConfig struct {
	QueryTimeout         time.Duration // Per-query deadline applied when the caller's context has none (0 = none)
	MaxConcurrentQueries int           // Bound on in-flight materializations (0 = unlimited)
	RetryInitialDelay    time.Duration // First backoff step for transient failures
	RetryMaxDelay        time.Duration // Backoff cap
	MaxRetries           int           // Retry bound for transient connection failures
}

type TranslateConfig struct {
	CacheSize int // Translated-SQL LRU entries (0 = cache disabled)
}

func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			// Named in-memory database, unique per config: connections in
			// one pool share it, separate handles do not.
			DSN:          fmt.Sprintf("file:lazyq-%s?mode=memory&cache=shared", uuid.NewString()),
			MaxOpenConns: 2 * runtime.NumCPU(),
			MaxIdleConns: runtime.NumCPU(),
			ConnLifetime: 0,
		},
		Exec: ExecConfig{
			QueryTimeout:         30 * time.Second,
			MaxConcurrentQueries: 100,
			RetryInitialDelay:    10 * time.Millisecond,
			RetryMaxDelay:        time.Second,
			MaxRetries:           3,
		},
		Translate: TranslateConfig{
			CacheSize: 256,
		},
	}
}
