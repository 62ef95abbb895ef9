package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500. The panic is logged with its
// stack and flagged for alerting.
func Recovery(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			perr, ok := r.(error)
			if !ok {
				perr = fmt.Errorf("%v", r)
			}
			logger.Error("panic recovered",
				zap.Error(perr),
				zap.Stack("stack"),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("request_id", RequestIDFrom(c)),
				zap.Bool("alert", true),
			)

			err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Internal Server Error",
			})
		}()

		return c.Next()
	}
}
