package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"reqdesk/internal/logger"
)

// Logger writes one JSON line per request with request_id, method, path, status and
// latency in milliseconds. It also seeds the request context with request_id so
// anything logged further down carries it.
// Register it after RequestID.
func Logger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		ctx := log.WithRequestID(c.UserContext(), rid)
		c.SetUserContext(ctx)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		event := log.Zerolog(ctx).Info()
		if status >= fiber.StatusInternalServerError {
			event = log.Zerolog(ctx).Error()
		}
		if cause, ok := c.Locals(ErrorLocalKey).(error); ok {
			event = event.Err(cause)
		}
		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Float64("latency", float64(time.Since(start).Microseconds())/1000).
			Msg("http_request")

		return err
	}
}
