package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
}

// DefaultRateLimitConfig returns default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 10,
		Window:      2 * time.Second,
		KeyPrefix:   "curto:ratelimit",
	}
}

// HitCounter counts requests per key in fixed windows.
type HitCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

type redisCounter struct {
	rdb *redis.Client
}

// NewRedisCounter returns a HitCounter backed by INCR and EXPIRE NX.
func NewRedisCounter(rdb *redis.Client) HitCounter {
	return &redisCounter{rdb: rdb}
}

func (r *redisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RateLimit limits each client IP to MaxRequests per Window.
func RateLimit(counter HitCounter, config RateLimitConfig, logger *zap.Logger) fiber.Handler {
	if config.MaxRequests <= 0 || config.Window <= 0 {
		defaults := DefaultRateLimitConfig()
		config.MaxRequests, config.Window = defaults.MaxRequests, defaults.Window
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultRateLimitConfig().KeyPrefix
	}

	return func(c *fiber.Ctx) error {
		key := config.KeyPrefix + ":" + c.IP()

		hits, err := counter.Hit(c.UserContext(), key, config.Window)
		if err != nil {
			logger.Error("rate limit redis error", zap.Error(err))
			// Fail open: allow request if Redis is unavailable
			return c.Next()
		}

		remaining := config.MaxRequests - int(hits)
		c.Set("X-RateLimit-Limit", strconv.Itoa(config.MaxRequests))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, remaining)))

		if hits > int64(config.MaxRequests) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(config.Window.Seconds()+0.5)))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many requests",
			})
		}

		return c.Next()
	}
}

// LocalRateLimit applies the same per-IP limit with counters kept in
// process memory. It serves when Redis is unavailable at start-up.
func LocalRateLimit(config RateLimitConfig) fiber.Handler {
	if config.MaxRequests <= 0 || config.Window <= 0 {
		defaults := DefaultRateLimitConfig()
		config.MaxRequests, config.Window = defaults.MaxRequests, defaults.Window
	}

	return limiter.New(limiter.Config{
		Max:               config.MaxRequests,
		Expiration:        config.Window,
		LimiterMiddleware: limiter.FixedWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many requests",
			})
		},
	})
}
