package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"zerocrash/internal/metrics"

	"github.com/labstack/echo/v4"
)

// limitClients applies one token bucket per client IP. Health and metrics
// are exempt so probes never get throttled.
func (s *Server) limitClients(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		switch c.Path() {
		case "/health", "/metrics":
			return next(c)
		}
		b := s.clients.Bucket(c.RealIP())
		if err := b.Acquire(); err != nil {
			st := b.State()
			wait := 1
			if s.perMinute > 0 {
				wait = int(math.Ceil((1 - st.TokensRemaining) * 60 / s.perMinute))
			}
			if wait < 1 {
				wait = 1
			}
			c.Response().Header().Set("Retry-After", strconv.Itoa(wait))
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		}
		return next(c)
	}
}

// countRequests records every response by route template and status code.
func (s *Server) countRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		code := c.Response().Status
		if err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				code = he.Code
			} else if !c.Response().Committed {
				code = http.StatusInternalServerError
			}
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		return err
	}
}
