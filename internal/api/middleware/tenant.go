package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// TenantHeader carries the tenant identifier on every request.
const TenantHeader = "X-App-ID"

// Tenant extracts the tenant id header and injects it into context.
// Requests without a tenant are rejected before hitting any service.
func Tenant() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tenantID := c.Request().Header.Get(TenantHeader)
			if tenantID == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "missing "+TenantHeader+" header")
			}
			c.Set("tenant_id", tenantID)
			return next(c)
		}
	}
}
