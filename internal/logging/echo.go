package logging

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const HeaderRequestID = "X-Request-ID"

// Middleware tags each request with an id (taken from X-Request-ID when
// present), stores a child logger in the request context and logs the
// outcome once the handler returns.
func Middleware(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			reqID := req.Header.Get(HeaderRequestID)
			if reqID == "" {
				reqID = uuid.New().String()
			}
			child := logger.With().
				Str(FieldRequestID, reqID).
				Str(FieldMethod, req.Method).
				Str(FieldPath, req.URL.Path).
				Str(FieldClientIP, c.RealIP()).
				Logger()

			c.Response().Header().Set(HeaderRequestID, reqID)
			c.SetRequest(req.WithContext(WithLogger(req.Context(), child)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			evt := child.Info()
			if status >= 500 {
				evt = child.Error().Err(err)
			}
			evt = evt.Int(FieldStatus, status).
				Float64(FieldLatency, float64(time.Since(start).Milliseconds()))
			if uid, ok := c.Get("uid").(string); ok && uid != "" {
				evt = evt.Str(FieldUID, uid)
			}
			evt.Msg("request completed")
			return nil
		}
	}
}
