package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Messaging MessagingConfig `mapstructure:"messaging"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Market    MarketConfig    `mapstructure:"market"`
}

type AppConfig struct {
	ServerID string `mapstructure:"server_id"`
	LogLevel string `mapstructure:"log_level"`
	Port     string `mapstructure:"port"`
	// Responder: este nó executa os Requests recebidos contra o storage e
	// roda a expiração. Um cluster tem exatamente um responder; os demais nós
	// sobem com BAZAAR_APP_RESPONDER=false. Sem nenhum, todo Request expira.
	Responder      bool          `mapstructure:"responder"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ExpirySweep    time.Duration `mapstructure:"expiry_sweep"`
}

type MessagingConfig struct {
	Service      string        `mapstructure:"service"` // nats | redis | memory
	Subject      string        `mapstructure:"subject"`
	DedupWindow  time.Duration `mapstructure:"dedup_window"`
	DedupMax     int           `mapstructure:"dedup_max"`
	DedupBackend string        `mapstructure:"dedup_backend"` // local | redis
}

type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Stream        string        `mapstructure:"stream"`
	Durable       bool          `mapstructure:"durable"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type StorageConfig struct {
	Driver            string        `mapstructure:"driver"` // postgres | sqlite
	DSN               string        `mapstructure:"dsn"`
	TablePrefix       string        `mapstructure:"table_prefix"`
	Workers           int           `mapstructure:"workers"`
	QueueSize         int           `mapstructure:"queue_size"`
	MaxPoolSize       int           `mapstructure:"max_pool_size"`
	MinIdle           int           `mapstructure:"min_idle"`
	MaxLifetime       time.Duration `mapstructure:"max_lifetime"`
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout"`
}

type CacheConfig struct {
	Backend string `mapstructure:"backend"` // memory | redis
}

type MarketConfig struct {
	IncrementRate      float64       `mapstructure:"increment_rate"`
	MinPrice           float64       `mapstructure:"min_price"`
	MaxPrice           float64       `mapstructure:"max_price"`
	MaxListingsPerUser int           `mapstructure:"max_listings_per_user"`
	ListingMinTime     time.Duration `mapstructure:"listing_min_time"`
	ListingMaxTime     time.Duration `mapstructure:"listing_max_time"`
	ListingTime        time.Duration `mapstructure:"listing_time"`
}

var envKeys = []string{
	"app.server_id", "app.log_level", "app.port", "app.responder", "app.request_timeout", "app.expiry_sweep",
	"messaging.service", "messaging.subject", "messaging.dedup_window", "messaging.dedup_max", "messaging.dedup_backend",
	"nats.url", "nats.max_reconnects", "nats.reconnect_wait", "nats.stream", "nats.durable",
	"redis.addr", "redis.password", "redis.db", "redis.pool_size",
	"storage.driver", "storage.dsn", "storage.table_prefix", "storage.workers", "storage.queue_size",
	"storage.max_pool_size", "storage.min_idle", "storage.max_lifetime", "storage.connection_timeout",
	"cache.backend",
	"market.increment_rate", "market.min_price", "market.max_price", "market.max_listings_per_user",
	"market.listing_min_time", "market.listing_max_time", "market.listing_time",
}

// Load lê defaults, bazaar.yaml (opcional) e variáveis BAZAAR_*
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("app.server_id", "node-1")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.responder", true)
	v.SetDefault("app.request_timeout", "10s")
	v.SetDefault("app.expiry_sweep", "1m")

	v.SetDefault("messaging.service", "nats")
	v.SetDefault("messaging.subject", "bazaar.market")
	v.SetDefault("messaging.dedup_window", "10m")
	v.SetDefault("messaging.dedup_max", 100000)
	v.SetDefault("messaging.dedup_backend", "local")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream", "BAZAAR")
	v.SetDefault("nats.durable", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "file:bazaar.db?_pragma=journal_mode(WAL)")
	v.SetDefault("storage.table_prefix", "gts_")
	v.SetDefault("storage.workers", 4)
	v.SetDefault("storage.queue_size", 256)
	v.SetDefault("storage.max_pool_size", 10)
	v.SetDefault("storage.min_idle", 2)
	v.SetDefault("storage.max_lifetime", "30m")
	v.SetDefault("storage.connection_timeout", "5s")

	v.SetDefault("cache.backend", "memory")

	v.SetDefault("market.increment_rate", 0.1)
	v.SetDefault("market.min_price", 1)
	v.SetDefault("market.max_price", 10000000)
	v.SetDefault("market.max_listings_per_user", 5)
	v.SetDefault("market.listing_min_time", "15m")
	v.SetDefault("market.listing_max_time", "168h")
	v.SetDefault("market.listing_time", "24h")

	v.SetConfigName("bazaar")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/bazaar")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	v.SetEnvPrefix("BAZAAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.Messaging.Service {
	case "nats", "redis", "memory":
	default:
		return errors.New("messaging.service must be nats, redis or memory")
	}
	switch c.Messaging.DedupBackend {
	case "local", "redis":
	default:
		return errors.New("messaging.dedup_backend must be local or redis")
	}
	// barramento em memória não sai do processo: ninguém mais responderia
	if c.Messaging.Service == "memory" && !c.App.Responder {
		return errors.New("app.responder must be true with messaging.service=memory")
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return errors.New("cache.backend must be memory or redis")
	}
	if c.Market.MinPrice > c.Market.MaxPrice {
		return errors.New("market.min_price is above market.max_price")
	}
	if c.Market.ListingMinTime > c.Market.ListingMaxTime {
		return errors.New("market.listing_min_time is above market.listing_max_time")
	}
	if c.Market.IncrementRate < 0 {
		return errors.New("market.increment_rate cannot be negative")
	}
	return nil
}
