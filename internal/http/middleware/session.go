package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	// SessionCookie carries the owner session JWT when no Authorization header is sent.
	SessionCookie = "doclink_session"

	userIDKey = "user_id"
)

// SessionClaims are the claims of an owner session token. Subject is the user id.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ParseSession validates an HS256 session token and returns its claims.
func ParseSession(secret []byte, raw string) (*SessionClaims, error) {
	if len(secret) == 0 {
		return nil, errors.New("session secret is not configured")
	}
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("session has no subject")
	}
	return claims, nil
}

// Session attaches the session user to the request when a valid token is
// present. Requests without one pass through anonymously.
func Session(secret []byte, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := sessionToken(c)
		if raw == "" {
			return c.Next()
		}
		claims, err := ParseSession(secret, raw)
		if err != nil {
			logger.Debug("ignoring invalid session", zap.Error(err))
			return c.Next()
		}
		c.Locals(userIDKey, claims.Subject)
		return c.Next()
	}
}

// RequireSession rejects requests without a session user.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if UserID(c) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Unauthorized",
			})
		}
		return c.Next()
	}
}

// UserID returns the session user of c, or "".
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}

func sessionToken(c *fiber.Ctx) string {
	if auth := c.Get(fiber.HeaderAuthorization); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return c.Cookies(SessionCookie)
}
