package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Application
	App AppConfig `mapstructure:"app"`

	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// Link cache
	Cache CacheConfig `mapstructure:"cache"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

type AppConfig struct {
	// BaseURL is the public prefix used when rendering short URLs.
	BaseURL string `mapstructure:"base_url"`
	Listen  string `mapstructure:"listen"`

	// CodeStrategy selects how codes are minted: "sequence" (base62 of
	// an allocated identifier) or "random".
	CodeStrategy string `mapstructure:"code_strategy"`

	// RandomCodeLength applies to the random strategy only.
	RandomCodeLength int `mapstructure:"random_code_length"`

	// MaxCodeAttempts bounds conflict retries before the service gives
	// up with a capacity error.
	MaxCodeAttempts int `mapstructure:"max_code_attempts"`

	// SequenceBlock is how many identifiers each allocator round trip
	// claims from Postgres.
	SequenceBlock int64 `mapstructure:"sequence_block"`

	// SweepInterval is how often expired links are deactivated.
	SweepInterval string `mapstructure:"sweep_interval"`
}

type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	Database          string `mapstructure:"database"`
	Port              int    `mapstructure:"port"`
	SSLMode           string `mapstructure:"sslmode"`
	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	TTL         string  `mapstructure:"ttl"`
	NegativeTTL string  `mapstructure:"negative_ttl"`
	BloomItems  uint    `mapstructure:"bloom_items"`
	BloomFPRate float64 `mapstructure:"bloom_fp_rate"`
}

type NATSConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	MonitorPort int    `mapstructure:"monitor_port"`
}

type PrometheusConfig struct {
	Port           int    `mapstructure:"port"`
	Retention      string `mapstructure:"retention"`
	ScrapeInterval string `mapstructure:"scrape_interval"`
	Target         string `mapstructure:"target"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Preserve legacy env variable names.
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("app.listen", ":8080")
	v.SetDefault("app.code_strategy", "sequence")
	v.SetDefault("app.random_code_length", 7)
	v.SetDefault("app.max_code_attempts", 5)
	v.SetDefault("app.sequence_block", 512)
	v.SetDefault("app.sweep_interval", "1m")

	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.negative_ttl", "1m")
	v.SetDefault("cache.bloom_items", 1000000)
	v.SetDefault("cache.bloom_fp_rate", 0.01)
}

func bindEnvVars(v *viper.Viper) {
	// Application
	v.BindEnv("app.base_url", "APP_BASE_URL")
	v.BindEnv("app.listen", "APP_LISTEN")
	v.BindEnv("app.code_strategy", "APP_CODE_STRATEGY")
	v.BindEnv("app.random_code_length", "APP_RANDOM_CODE_LENGTH")
	v.BindEnv("app.max_code_attempts", "APP_MAX_CODE_ATTEMPTS")
	v.BindEnv("app.sequence_block", "APP_SEQUENCE_BLOCK")
	v.BindEnv("app.sweep_interval", "APP_SWEEP_INTERVAL")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// Cache
	v.BindEnv("cache.ttl", "CACHE_TTL")
	v.BindEnv("cache.negative_ttl", "CACHE_NEGATIVE_TTL")

	// NATS
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")
	v.BindEnv("nats.monitor_port", "NATS_MONITOR_PORT")

	// Prometheus
	v.BindEnv("prometheus.port", "PROM_PORT")
	v.BindEnv("prometheus.retention", "PROM_RETENTION")
	v.BindEnv("prometheus.scrape_interval", "PROM_SCRAPE_INTERVAL")
	v.BindEnv("prometheus.target", "PROM_TARGET")
}

// Duration parses a config duration string, falling back when the value
// is empty or malformed.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
