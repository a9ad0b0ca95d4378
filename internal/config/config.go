package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `env:"ENV" default:"dev"`
	LogLevel string `env:"LOG_LEVEL" default:"info"`

	StateBackend string `env:"STATE_BACKEND" default:"memory"` // memory | mysql
	MySQLDSN     string `env:"DB_DSN" default:""`              // required when STATE_BACKEND or QUEUE_BACKEND is mysql

	// Optional: run migrations at startup (dev convenience)
	RunMigrations bool `env:"RUN_MIGRATIONS" default:"false"`

	Queue     QueueConfig
	Upstream  UpstreamConfig
	Scheduler SchedulerConfig

	WorkersPerQueue int           `env:"WORKERS_PER_QUEUE" default:"5"`
	PollEvery       time.Duration `env:"WORKER_POLL_EVERY" default:"1s"`
	InstanceID      string        `env:"INSTANCE_ID" default:"<hostname>"`

	MetricsAddr     string        `env:"METRICS_ADDR" default:":9090"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"30s"`
}

type QueueConfig struct {
	Backend        string        `env:"QUEUE_BACKEND" default:"memory"` // memory | mysql | redis
	RedisAddr      string        `env:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword  string        `env:"REDIS_PASSWORD" default:""`
	RedisDB        int           `env:"REDIS_DB" default:"0"`
	LeaseTTL       time.Duration `env:"QUEUE_LEASE_TTL" default:"5m"`
	ReconnectDelay time.Duration `env:"QUEUE_RECONNECT_DELAY" default:"5s"`

	// 0 keeps requeueing failed tasks forever.
	MaxAttempts int `env:"QUEUE_MAX_ATTEMPTS" default:"0"`
}

type UpstreamConfig struct {
	BaseURL        string        `env:"UPSTREAM_BASE_URL"`
	Timeout        time.Duration `env:"UPSTREAM_TIMEOUT" default:"30s"`
	DefaultContext string        `env:"UPSTREAM_DEFAULT_CONTEXT" default:"DEFAULT"`

	CredentialSource string `env:"CREDENTIAL_SOURCE" default:"static"` // static | store
	AccessToken      string `env:"UPSTREAM_ACCESS_TOKEN"`
}

type SchedulerConfig struct {
	Enabled              bool          `env:"SCHEDULER_ENABLED" default:"true"`
	BatchSize            int           `env:"SYNC_BATCH_SIZE" default:"30"`
	CategoriesEvery      time.Duration `env:"SYNC_CATEGORIES_EVERY" default:"30m"`
	ProductsEvery        time.Duration `env:"SYNC_PRODUCTS_EVERY" default:"5m"`
	ProductsInitialDelay time.Duration `env:"SYNC_PRODUCTS_INITIAL_DELAY" default:"10s"`
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:           getenv("ENV", "dev"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		StateBackend:  getenv("STATE_BACKEND", "memory"),
		MySQLDSN:      getenv("DB_DSN", ""),
		RunMigrations: getenvBool("RUN_MIGRATIONS", false),
		Queue: QueueConfig{
			Backend:        getenv("QUEUE_BACKEND", "memory"),
			RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:  getenv("REDIS_PASSWORD", ""),
			RedisDB:        getenvInt("REDIS_DB", 0),
			LeaseTTL:       getenvDuration("QUEUE_LEASE_TTL", 5*time.Minute),
			ReconnectDelay: getenvDuration("QUEUE_RECONNECT_DELAY", 5*time.Second),
			MaxAttempts:    getenvInt("QUEUE_MAX_ATTEMPTS", 0),
		},
		Upstream: UpstreamConfig{
			BaseURL:          getenv("UPSTREAM_BASE_URL", "https://merchant-api.ifood.com.br/catalog/v2.0"),
			Timeout:          getenvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
			DefaultContext:   getenv("UPSTREAM_DEFAULT_CONTEXT", "DEFAULT"),
			CredentialSource: getenv("CREDENTIAL_SOURCE", "static"),
			AccessToken:      getenv("UPSTREAM_ACCESS_TOKEN", ""),
		},
		Scheduler: SchedulerConfig{
			Enabled:              getenvBool("SCHEDULER_ENABLED", true),
			BatchSize:            getenvInt("SYNC_BATCH_SIZE", 30),
			CategoriesEvery:      getenvDuration("SYNC_CATEGORIES_EVERY", 30*time.Minute),
			ProductsEvery:        getenvDuration("SYNC_PRODUCTS_EVERY", 5*time.Minute),
			ProductsInitialDelay: getenvDuration("SYNC_PRODUCTS_INITIAL_DELAY", 10*time.Second),
		},
		WorkersPerQueue: getenvInt("WORKERS_PER_QUEUE", 5),
		PollEvery:       getenvDuration("WORKER_POLL_EVERY", time.Second),
		InstanceID:      getenv("INSTANCE_ID", hostname()),
		MetricsAddr:     getenv("METRICS_ADDR", ":9090"),
		ShutdownTimeout: getenvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
	return cfg
}

func getenv(key string, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(key string, fallback int) int {
	if i, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return i
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "catalogsync"
	}
	return h
}
