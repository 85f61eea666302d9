package middleware

import (
	"math"
	"net"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/appforge/data-platform/internal/api/metrics"
	"github.com/appforge/data-platform/internal/core/domain"
	"github.com/appforge/data-platform/internal/ratelimit"
)

// RateLimit admits requests through the limiter for the given route
// class. Buckets are keyed by tenant when the tenant header is present,
// client IP otherwise. Limiter backend errors fail open: blocking all
// traffic because the limiter store is down hurts more than letting a
// burst through.
func RateLimit(limiter ratelimit.Limiter, class ratelimit.Class) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, _ := c.Get("tenant_id").(string)
			if key == "" {
				key = clientIP(c)
			}

			decision, err := limiter.Admit(c.Request().Context(), key, class)
			if err != nil {
				return next(c)
			}

			c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			if !decision.Allowed {
				metrics.RateLimitedTotal.WithLabelValues(string(class)).Inc()
				retry := int(math.Ceil(decision.RetryAfter.Seconds()))
				return domain.NewRateLimited(retry)
			}
			return next(c)
		}
	}
}

func clientIP(c echo.Context) string {
	if xf := c.Request().Header.Get("X-Forwarded-For"); xf != "" {
		return strings.TrimSpace(strings.Split(xf, ",")[0])
	}
	host, _, err := net.SplitHostPort(c.Request().RemoteAddr)
	if err == nil {
		return host
	}
	return c.Request().RemoteAddr
}
