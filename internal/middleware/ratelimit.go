package middleware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"bbs/internal/models"
	"bbs/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when the limiter store is down.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var errNoLimiterStore = errors.New("rate limit store unavailable")

// limiterBypassed reports whether write throttling is switched off for the
// current environment. Local and test runs are never throttled.
func limiterBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return true
	}
	return false
}

func rateKey(resource, id string) string {
	return fmt.Sprintf("rl:%s:%s", resource, id)
}

// CheckRateLimit counts one hit against resource for id and reports whether
// it is still within limit for the current window. The window starts at the
// first hit.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if limiterBypassed() {
		return true, nil
	}
	if rdb == nil {
		return false, errNoLimiterStore
	}

	key := rateKey(resource, id)
	pipe := rdb.TxPipeline()
	// SET NX opens the window with its expiry; INCR keeps the TTL.
	pipe.SetNX(ctx, key, 0, window)
	incr := pipe.Incr(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		observability.RedisErrorRate.WithLabelValues("rate_limit").Inc()
		return false, err
	}
	return incr.Val() <= int64(limit), nil
}

// RateLimit throttles a write endpoint to limit hits per window, keyed by the
// authenticated user when known and by client IP otherwise.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit store-failure policy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
			id = "user:" + strconv.FormatUint(uint64(uid), 10)
		}
		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		ctx := c.UserContext()
		allowed, err := CheckRateLimit(ctx, rdb, resource, id, limit, window)
		if err != nil {
			if policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(ctx, "rate limit store unavailable, refusing request",
				"resource", resource, "error", err)
			return models.RespondWithError(c, fiber.StatusServiceUnavailable,
				models.NewInternalError(err))
		}
		if allowed {
			return c.Next()
		}

		observability.RateLimited.WithLabelValues(resource).Inc()
		if ttl, terr := rdb.TTL(ctx, rateKey(resource, id)).Result(); terr == nil && ttl > 0 {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(ttl.Round(time.Second)/time.Second)))
		}
		return models.RespondWithError(c, fiber.StatusTooManyRequests,
			models.NewRateLimitedError("Too many requests, try again later."))
	}
}
