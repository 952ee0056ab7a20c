package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/diogoX451/bazaar/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{
			ServerID:       "node-test",
			Port:           "0",
			Responder:      true,
			RequestTimeout: time.Second,
		},
		Messaging: config.MessagingConfig{Service: "memory", Subject: "bazaar.test", DedupBackend: "local"},
		Storage: config.StorageConfig{
			Driver: "sqlite",
			DSN:    "file:" + filepath.Join(t.TempDir(), "bazaar.db"),
		},
		Cache:  config.CacheConfig{Backend: "memory"},
		Market: config.MarketConfig{MaxListingsPerUser: 5, IncrementRate: 0.1},
	}
}

// run devolve o erro em vez de encerrar o processo, então os defers rodam
func TestRunReturnsStartupErrors(t *testing.T) {
	t.Run("unsupported driver", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage.Driver = "oracle"
		assert.ErrorContains(t, run(cfg, zerolog.Nop()), "invalid storage config")
	})

	t.Run("storage init", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage.DSN = ""
		assert.ErrorContains(t, run(cfg, zerolog.Nop()), "storage init")
	})

	t.Run("redis after storage is open", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Cache.Backend = "redis"
		cfg.Redis.Addr = "127.0.0.1:1"
		assert.ErrorContains(t, run(cfg, zerolog.Nop()), "redis connection")
	})
}
