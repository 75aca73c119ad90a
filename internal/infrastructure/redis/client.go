package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	config "github.com/avatarctic/tabrefresh/configs"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const connectTimeout = 5 * time.Second

// Options maps the engine's Redis settings onto client options.
func Options(cfg *config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// NewRedisClient connects to Redis and fails fast when the server does not answer a PING.
func NewRedisClient(cfg *config.RedisConfig, logger *logrus.Logger) (*redis.Client, error) {
	client := redis.NewClient(Options(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", client.Options().Addr, err)
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"addr":      client.Options().Addr,
			"db":        cfg.DB,
			"pool_size": cfg.PoolSize,
		}).Info("Connected to Redis")
	}
	return client, nil
}
