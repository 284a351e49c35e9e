package handlers

import (
	"errors"
	"net/http"

	"socialhub/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
)

// failure pairs an unexpected error with the generic message shown to the client.
type failure struct {
	message string
	cause   error
}

func (f *failure) Error() string { return f.message + ": " + f.cause.Error() }
func (f *failure) Unwrap() error { return f.cause }

// fail reports cause as an internal error, showing only message to the
// client. Domain errors pass through unchanged.
func fail(message string, cause error) error {
	if isDomainError(cause) {
		return cause
	}
	return &failure{message: message, cause: cause}
}

// ErrorHandler renders every handler error as {"error": "<message>"}.
// Known domain errors map to 4xx codes with their own text; anything else
// is logged and answered with a generic 500 message.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, msg := resolveError(err)
		if code >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Interface("request_id", c.Locals(requestid.ConfigDefault.ContextKey)).
				Msg("request failed")
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}

// domainErrors maps service errors to status codes. Their text is the client message.
var domainErrors = []struct {
	err  error
	code int
}{
	{services.ErrDuplicateUsername, http.StatusConflict},
	{services.ErrUserNotFound, http.StatusNotFound},
	{services.ErrAccountNotFound, http.StatusNotFound},
	{services.ErrReceiverNotFound, http.StatusNotFound},
	{services.ErrWrongPassword, http.StatusUnauthorized},
	{services.ErrWrongPasswordCombination, http.StatusUnauthorized},
}

func resolveError(err error) (int, string) {
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			return d.code, d.err.Error()
		}
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}

	var f *failure
	if errors.As(err, &f) {
		return http.StatusInternalServerError, f.message
	}
	return http.StatusInternalServerError, "internal server error"
}

func isDomainError(err error) bool {
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			return true
		}
	}
	return false
}
