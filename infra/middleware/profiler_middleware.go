// Package middleware provides the fiber middleware stack of the results API:
// panic recovery, request IDs, request logging, and the apperr-aware error
// handler.
package middleware

import (
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mailprofiler/pkg/apperr"
	"mailprofiler/pkg/logger"
	"mailprofiler/pkg/response"
)

// =============================================================================
// Error Handler
// =============================================================================

// ErrorHandler renders every error escaping a handler as the standard
// envelope. AppErrors keep their code, status, and details; anything else
// becomes a 500 without leaking internals.
func ErrorHandler() fiber.ErrorHandler {
	log := logger.Component("http")
	return func(c *fiber.Ctx, err error) error {
		requestID, _ := c.Locals("request_id").(string)

		var status int
		var info response.ErrorInfo

		switch e := err.(type) {
		case *apperr.AppError:
			status = e.Status
			info = response.ErrorInfo{
				Code:    e.Code,
				Message: e.Message,
				Details: e.Details,
			}
			event := log.Warn()
			if status >= fiber.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Str("request_id", requestID).
				Str("code", e.Code).
				Err(e.Err).
				Msg(e.Message)

		case *fiber.Error:
			status = e.Code
			info = response.ErrorInfo{
				Code:    codeForStatus(e.Code),
				Message: e.Message,
			}

		default:
			status = fiber.StatusInternalServerError
			info = response.ErrorInfo{
				Code:    apperr.CodeInternalError,
				Message: "an unexpected error occurred",
			}
			log.Error().
				Str("request_id", requestID).
				Err(err).
				Str("stack", string(debug.Stack())).
				Msg("unexpected handler error")
		}

		return c.Status(status).JSON(response.Response{
			Success: false,
			Error:   &info,
		})
	}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return apperr.CodeBadRequest
	case fiber.StatusNotFound:
		return apperr.CodeNotFound
	case fiber.StatusGatewayTimeout:
		return apperr.CodeTimeout
	default:
		return apperr.CodeInternalError
	}
}

// =============================================================================
// Request Middleware
// =============================================================================

// RequestID tags every request with a unique id, honoring one supplied by
// the caller.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Locals("request_id", requestID)
		c.Set("X-Request-ID", requestID)
		return c.Next()
	}
}

// RequestLogger logs one line per request with method, path, status, and
// duration. Level follows the response status.
func RequestLogger() fiber.Handler {
	log := logger.Component("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		requestID, _ := c.Locals("request_id").(string)
		status := c.Response().StatusCode()

		var event *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			event = log.Error()
		case status >= fiber.StatusBadRequest:
			event = log.Warn()
		default:
			event = log.Info()
		}
		event.
			Str("request_id", requestID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("ip", c.IP()).
			Msg("request")

		return err
	}
}

// Recover converts handler panics into logged 500 responses.
func Recover() fiber.Handler {
	log := logger.Component("http")
	return func(c *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				requestID, _ := c.Locals("request_id").(string)
				log.Error().
					Str("request_id", requestID).
					Str("method", c.Method()).
					Str("path", c.Path()).
					Interface("panic", r).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")

				// Error() is unreachable here; the response is already written.
				_ = c.Status(fiber.StatusInternalServerError).JSON(response.Response{
					Success: false,
					Error: &response.ErrorInfo{
						Code:    apperr.CodeInternalError,
						Message: "an unexpected error occurred",
					},
				})
			}
		}()
		return c.Next()
	}
}
