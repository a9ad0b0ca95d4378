package queue

import (
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type FactoryConfig struct {
	Backend string

	// mysql
	DB       *sqlx.DB
	LeaseTTL time.Duration

	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func NewBroker(cfg FactoryConfig) (Broker, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "memory"
	}

	switch backend {
	case "memory":
		return NewMemoryBroker(), nil

	case "mysql":
		if cfg.DB == nil {
			return nil, errors.New("QUEUE_BACKEND=mysql needs a database connection (set DB_DSN)")
		}
		return NewMySQLBroker(cfg.DB, cfg.LeaseTTL), nil

	case "redis":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return nil, errors.New("REDIS_ADDR is required when QUEUE_BACKEND=redis")
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedisBroker(rdb), nil

	default:
		return nil, errors.New("unknown QUEUE_BACKEND (use memory, mysql or redis)")
	}
}
