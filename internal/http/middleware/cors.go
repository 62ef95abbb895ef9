package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

const (
	corsMethods       = "GET, POST, OPTIONS"
	corsAllowHeaders  = "Origin, Content-Type, Accept, Authorization"
	corsExposeHeaders = "Content-Length, Content-Type, X-Request-ID, X-RateLimit-Remaining"
)

// CORS answers preflights and tags responses for cross-origin callers.
// With no origins configured any origin is allowed without credentials;
// otherwise listed origins are echoed back and may send the session cookie.
func CORS(allowedOrigins []string) fiber.Handler {
	origins := lo.FilterMap(allowedOrigins, func(o string, _ int) (string, bool) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		return o, o != ""
	})

	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)

		switch {
		case len(origins) == 0:
			c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		case origin != "" && lo.Contains(origins, origin):
			c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
			c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
			c.Vary(fiber.HeaderOrigin)
		default:
			c.Vary(fiber.HeaderOrigin)
			if c.Method() == fiber.MethodOptions {
				return c.SendStatus(fiber.StatusForbidden)
			}
			return c.Next()
		}

		c.Set(fiber.HeaderAccessControlAllowMethods, corsMethods)
		c.Set(fiber.HeaderAccessControlAllowHeaders, corsAllowHeaders)
		c.Set(fiber.HeaderAccessControlExposeHeaders, corsExposeHeaders)
		c.Set(fiber.HeaderAccessControlMaxAge, "86400")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}
