package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"docmanager/internal/logger"
)

// Logger logs one line per request and stores a request-scoped logger,
// tagged with request_id, in the request's user context. It must run after
// RequestID.
func Logger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		reqLog := log.With(zap.String("request_id", GetRequestID(c)))
		c.SetUserContext(logger.ContextWithLogger(c.UserContext(), reqLog))

		err := c.Next()

		status := responseStatus(c, err)
		level := zapcore.InfoLevel
		switch {
		case status >= fiber.StatusInternalServerError:
			level = zapcore.ErrorLevel
		case status >= fiber.StatusBadRequest:
			level = zapcore.WarnLevel
		}

		if ce := reqLog.Check(level, "http request"); ce != nil {
			ce.Write(
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", status),
				zap.Float64("latency_ms", float64(time.Since(start).Microseconds())/1000),
				zap.String("ip", c.IP()),
			)
		}
		return err
	}
}

// responseStatus returns the status the error handler will write for err,
// which has not run yet while middleware unwinds.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}
