package cache

import (
	"context"
	"log"
	"time"

	"github.com/ManuelReschke/edupay/internal/pkg/config"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// SetupCache connects to Redis. A failed ping is only logged; callers decide
// whether they can run without it.
func SetupCache(cfg config.CacheConfig) *redis.Client {
	client = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to Redis cache: %v", err)
	} else {
		log.Printf("Successfully connected to Redis cache: %s", pong)
	}
	return client
}

func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}
