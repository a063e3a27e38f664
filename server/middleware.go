package server

import (
	"time"

	"github.com/esimov/facedeform"
	"github.com/esimov/facedeform/logger"
	"github.com/esimov/facedeform/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the request identifier in both directions.
const RequestIDHeader = "X-Request-ID"

// NewRequestIDMiddleware reuses a safe client supplied identifier or issues a new ULID.
func NewRequestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDHeader)
		if !facedeform.ValidRequestID(requestID) {
			requestID = utils.NewRequestID()
		}

		c.Locals(RequestIDHeader, requestID)
		c.Set(RequestIDHeader, requestID)

		return c.Next()
	}
}

// GetRequestID returns the identifier assigned by the request id middleware.
func GetRequestID(c *fiber.Ctx) string {
	requestID, ok := c.Locals(RequestIDHeader).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

// NewLoggingMiddleware logs one entry per request once the handler returns.
func NewLoggingMiddleware(log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		entry := log.WithFields(logger.Fields{
			logger.RequestIDKey: GetRequestID(c),
			"method":            c.Method(),
			"path":              c.Path(),
			"status":            status,
			"latency_ms":        time.Since(start).Milliseconds(),
			"ip":                c.IP(),
			"response_size":     len(c.Response().Body()),
		})

		switch {
		case status >= 500:
			entry.Error("server error")
		case status >= 400:
			entry.Warn("client error")
		default:
			entry.Info("success")
		}
		return err
	}
}
