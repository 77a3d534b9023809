package utils

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/fitquest/config"
)

var redisClient *redis.Client

// InitRedis connects to Redis and keeps the client only when it answers a ping.
// Callers treat a nil client as "no Redis" and use their in-process fallback.
func InitRedis(cfg config.AppConfig) *redis.Client {
	if cfg.RedisHost == "" {
		redisClient = nil
		return nil
	}
	cli := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		if Sugar != nil {
			Sugar.Warnf("redis unavailable at %s, using in-memory fallbacks: %v", cli.Options().Addr, err)
		}
		_ = cli.Close()
		redisClient = nil
		return nil
	}
	redisClient = cli
	return cli
}

// GetRedis returns the client set up by InitRedis, or nil.
func GetRedis() *redis.Client {
	return redisClient
}

// CloseRedis releases the client on shutdown.
func CloseRedis() {
	if redisClient != nil {
		_ = redisClient.Close()
		redisClient = nil
	}
}
