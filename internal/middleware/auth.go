package middleware

import (
	"strings"

	"socialhub/internal/auth"
	"socialhub/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const claimsKey = "claims"

// AuthRequired is a Fiber middleware that admits only requests carrying a
// valid token in the Authorization header, either bare or as "Bearer <token>".
// The decoded claims are stored for ClaimsFrom.
func AuthRequired(validator auth.TokenValidator, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c.Get(fiber.HeaderAuthorization))
		if tokenString == "" {
			metrics.TokensRejected.WithLabelValues("missing").Inc()
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing token",
			})
		}

		claims, err := validator.Validate(tokenString)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Path()).Msg("token rejected")
			metrics.TokensRejected.WithLabelValues("invalid").Inc()
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// ClaimsFrom returns the claims stored by AuthRequired, or nil when the
// request did not pass through it.
func ClaimsFrom(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(claimsKey).(*auth.Claims)
	return claims
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if strings.EqualFold(header, "bearer") {
		return ""
	}
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(rest)
	}
	return header
}
