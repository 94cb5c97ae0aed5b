package ratelimit

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"
	goredis "github.com/redis/go-redis/v9"

	"github.com/titanfed/titan/internal/pkg/cache"
	"github.com/titanfed/titan/internal/pkg/env"
)

// NewStorage returns a Redis backed limiter storage on the cache server.
func NewStorage() fiber.Storage {
	return NewStorageForClient(cache.GetClient(), env.GetEnvInt("RATELIMIT_REDIS_DB", 2))
}

// NewStorageForClient derives host, port and password from an existing
// go-redis client so limiter counters live next to the cache, in their own
// database.
func NewStorageForClient(client *goredis.Client, database int) fiber.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client != nil {
		addr := client.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		// Prefer password from the underlying client if present
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: database,
		Reset:    false,
	})
}

// New returns a per-IP limiter allowing limit requests per window. A nil
// storage keeps counters in process memory.
func New(storage fiber.Storage, limit int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: window,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Path() + "|" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "rate_limited",
			})
		},
	})
}
