package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SlowThreshold   time.Duration `yaml:"slow_threshold"`
	} `yaml:"server"`
	Logging struct {
		Level     string `yaml:"level"`
		Format    string `yaml:"format"`
		Output    string `yaml:"output"`
		Collector struct {
			Enabled   bool          `yaml:"enabled"`
			Topic     string        `yaml:"topic"`
			Interval  time.Duration `yaml:"interval"`
			Threshold int           `yaml:"threshold"`
		} `yaml:"collector"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Deals struct {
		MinScore        *float64      `yaml:"min_score"`
		SearchTerms     []string      `yaml:"search_terms"`
		WindowDays      int           `yaml:"window_days"`
		Workers         int           `yaml:"workers"`
		Timeout         time.Duration `yaml:"timeout"`
		RefreshInterval time.Duration `yaml:"refresh_interval"`
		RateLimit       struct {
			Capacity     float64 `yaml:"capacity"`
			RefillPerSec float64 `yaml:"refill_per_sec"`
		} `yaml:"rate_limit"`
	} `yaml:"deals"`
	Sources struct {
		Listings string `yaml:"listings"` // http | postgres
		Sales    string `yaml:"sales"`    // http | clickhouse
	} `yaml:"sources"`
	Marketplace struct {
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout"`
		Retries int           `yaml:"retries"`
	} `yaml:"marketplace"`
	Postgres struct {
		DSN             string        `yaml:"dsn"`
		MaxOpenConns    int           `yaml:"max_open_conns"`
		MaxIdleConns    int           `yaml:"max_idle_conns"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		Table           string        `yaml:"table"`
	} `yaml:"postgres"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		DealsTopic   string   `yaml:"deals_topic"`
		SalesTopic   string   `yaml:"sales_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Cache struct {
		Enabled    bool          `yaml:"enabled"`
		TTL        time.Duration `yaml:"ttl"`
		MemorySize int           `yaml:"memory_size"`
		Redis      struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, fills defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("COMICSCOUT_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("MARKETPLACE_URL"); v != "" {
		c.Marketplace.BaseURL = v
	}
	if v := os.Getenv("MARKETPLACE_API_KEY"); v != "" {
		c.Marketplace.APIKey = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Redis.Host = host
		if ok {
			var p int
			if _, err := fmt.Sscanf(port, "%d", &p); err == nil {
				c.Cache.Redis.Port = p
			}
		}
		c.Cache.Redis.Enabled = true
	}
	if v := os.Getenv("LISTINGS_SOURCE"); v != "" {
		c.Sources.Listings = v
	}
	if v := os.Getenv("SALES_SOURCE"); v != "" {
		c.Sources.Sales = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Deals.MinScore == nil {
		v := 10.0
		c.Deals.MinScore = &v
	}
	if c.Deals.WindowDays == 0 {
		c.Deals.WindowDays = 30
	}
	if c.Deals.Workers == 0 {
		c.Deals.Workers = 8
	}
	if c.Deals.Timeout == 0 {
		c.Deals.Timeout = 20 * time.Second
	}
	if c.Deals.RateLimit.Capacity == 0 {
		c.Deals.RateLimit.Capacity = 20
	}
	if c.Deals.RateLimit.RefillPerSec == 0 {
		c.Deals.RateLimit.RefillPerSec = 5
	}
	if c.Sources.Listings == "" {
		c.Sources.Listings = "http"
	}
	if c.Sources.Sales == "" {
		c.Sources.Sales = "http"
	}
	if c.Postgres.Table == "" {
		c.Postgres.Table = "live_listings"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 15 * time.Minute
	}
	if c.Cache.MemorySize == 0 {
		c.Cache.MemorySize = 1000
	}
}

// DealsMinScore returns the configured threshold. An explicit 0 is kept.
func (c *Config) DealsMinScore() float64 {
	if c.Deals.MinScore == nil {
		return 10
	}
	return *c.Deals.MinScore
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if ms := c.DealsMinScore(); ms < 0 || ms > 100 {
		return fmt.Errorf("deals.min_score must be within [0,100], got %v", ms)
	}
	if c.Deals.Workers < 1 {
		return fmt.Errorf("deals.workers must be positive")
	}
	switch c.Sources.Listings {
	case "http":
		if c.Marketplace.BaseURL == "" {
			return fmt.Errorf("marketplace.base_url is required for listings source 'http'")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for listings source 'postgres'")
		}
	default:
		return fmt.Errorf("sources.listings must be 'http' or 'postgres', got '%s'", c.Sources.Listings)
	}
	switch c.Sources.Sales {
	case "http":
		if c.Marketplace.BaseURL == "" {
			return fmt.Errorf("marketplace.base_url is required for sales source 'http'")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for sales source 'clickhouse'")
		}
	default:
		return fmt.Errorf("sources.sales must be 'http' or 'clickhouse', got '%s'", c.Sources.Sales)
	}
	if c.Kafka.Consumer.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when the consumer is enabled")
		}
		if c.Kafka.SalesTopic == "" {
			return fmt.Errorf("kafka.sales_topic is required when the consumer is enabled")
		}
		if c.Sources.Sales != "clickhouse" {
			return fmt.Errorf("sale ingestion requires sources.sales 'clickhouse'")
		}
	}
	if c.Logging.Collector.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("logging.collector requires kafka.brokers")
	}
	return nil
}
