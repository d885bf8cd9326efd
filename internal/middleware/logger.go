package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripshare/internal/logger"
)

// KeyLogger holds the request-scoped logger.
const KeyLogger = "logger"

// RequestLogger tags every request with an id (kept from X-Request-ID when
// the client sent one), stores a request-scoped logger in the context and
// writes one access line when the handler returns.
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			l := log.WithRequestID(rid)
			c.Set(KeyLogger, l)

			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo render the error first so the status is final.
				c.Error(err)
			}

			fields := map[string]any{
				"method":  req.Method,
				"path":    c.Path(),
				"uri":     req.RequestURI,
				"status":  c.Response().Status,
				"latency": time.Since(start).String(),
				"ip":      c.RealIP(),
			}
			if id, ok := UserID(c); ok {
				fields["user_id"] = id
			}
			entry := l.WithFields(fields)
			switch s := c.Response().Status; {
			case s >= 500:
				entry.Error("request")
			case s >= 400:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
			return nil
		}
	}
}

// Log returns the request-scoped logger, or fallback outside RequestLogger.
func Log(c echo.Context, fallback *logger.Logger) *logger.Logger {
	if l, ok := c.Get(KeyLogger).(*logger.Logger); ok {
		return l
	}
	return fallback
}
