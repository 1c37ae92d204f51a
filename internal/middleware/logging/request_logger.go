package loggingmw

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"shop-backend/internal/logging"
)

// RequestLogger injects a request-scoped logger into the request
// context and emits one line per request once the handler returns.
// Handler errors are resolved through echo's error handler first so
// the logged status matches what the client saw.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			l := base.With(
				"method", req.Method,
				"route", c.Path(),
				"path", req.URL.Path,
				"ip", c.RealIP(),
			)
			if rid := requestID(c); rid != "" {
				l = l.With("request_id", rid)
			}

			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
			}

			status := c.Response().Status
			attrs := []any{
				"status", status,
				"latency_ms", time.Since(start).Milliseconds(),
				"resp_bytes", c.Response().Size,
			}
			if err != nil {
				attrs = append(attrs, "error", err.Error())
			}

			lvl := slog.LevelInfo
			switch {
			case status >= 500:
				lvl = slog.LevelError
			case status >= 400:
				lvl = slog.LevelWarn
			}
			l.Log(req.Context(), lvl, "http_request", attrs...)
			return nil
		}
	}
}

// requestID prefers the inbound header but falls back to the response
// header, where the RequestID middleware stores generated ids.
func requestID(c echo.Context) string {
	if rid := c.Request().Header.Get(echo.HeaderXRequestID); rid != "" {
		return rid
	}
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
