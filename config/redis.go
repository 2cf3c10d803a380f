package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// ConnectRedis establishes a connection to Redis for OTP rate limiting.
// Redis is optional: when no address is configured the client stays nil
// and rate limiting is disabled.
func ConnectRedis(cfg *Config) error {
	if cfg.RedisAddr == "" {
		log.Println("REDIS_ADDR not set, OTP rate limiting disabled")
		return nil
	}

	RedisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := RedisClient.Ping(ctx).Err(); err != nil {
		RedisClient = nil
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Println("Redis connection established successfully")
	return nil
}

// GetRedis returns the Redis client, nil when rate limiting is disabled
func GetRedis() *redis.Client {
	return RedisClient
}

// SetRedis sets the Redis client (used by tests)
func SetRedis(client *redis.Client) {
	RedisClient = client
}
