package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/DocLink/internal/infra/ratelimit"
	"go.uber.org/zap"
)

// RateLimit limits requests per client ip with limiter. Limiter failures let
// the request through.
func RateLimit(limiter ratelimit.Limiter, keyFunc func(*fiber.Ctx) string, logger *zap.Logger) fiber.Handler {
	if keyFunc == nil {
		keyFunc = func(c *fiber.Ctx) string { return c.IP() }
	}
	return func(c *fiber.Ctx) error {
		res, err := limiter.Limit(c.UserContext(), "api:"+keyFunc(c))
		if err != nil {
			logger.Error("rate limit store error", zap.Error(err))
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))

		if !res.Allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many requests. Please try again later.",
			})
		}

		return c.Next()
	}
}
