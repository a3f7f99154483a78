package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lisa9300/HTTP-Proxy/internal/metrics"
)

// Metrics returns an Echo middleware that records Prometheus metrics for
// each admin request.
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			// Resolve the actual status code. When a handler returns an
			// *echo.HTTPError, the response status hasn't been written yet;
			// Echo's central error handler will do that later. We inspect
			// the error to get the correct code for metrics.
			statusCode := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					statusCode = he.Code
				}
			}

			status := strconv.Itoa(statusCode)
			path := metrics.NormalizeAdminPath(c.Request().URL.Path)
			duration := time.Since(start).Seconds()

			m.AdminRequestsTotal.WithLabelValues(c.Request().Method, status, path).Inc()
			m.AdminRequestDuration.WithLabelValues(c.Request().Method, status, path).Observe(duration)

			return err
		}
	}
}
