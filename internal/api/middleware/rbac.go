package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/appforge/data-platform/internal/core/domain"
)

// RequireRole enforces a minimum role rank on a route group. Callers
// without a verified identity rank as guest.
func RequireRole(min domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if !domain.ParseRole(role).AtLeast(min) {
				return domain.NewForbidden("insufficient role")
			}
			return next(c)
		}
	}
}
