package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/appforge/data-platform/internal/core/domain"
	"github.com/appforge/data-platform/internal/core/ports"
)

// TokenParser verifies a bearer token and resolves the identity behind
// it. Implemented by the auth service.
type TokenParser interface {
	ParseToken(ctx context.Context, token string) (*ports.TokenClaims, error)
}

// Auth resolves the caller's identity from the bearer token and injects
// the claims into context. When required is false a missing header leaves
// the caller anonymous (guest); a present-but-invalid token is always
// rejected, never silently downgraded to guest.
func Auth(parser TokenParser, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				if required {
					return domain.NewAuthRequired("missing authorization header")
				}
				return next(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return domain.NewAuthInvalid("invalid authorization header")
			}

			claims, err := parser.ParseToken(c.Request().Context(), parts[1])
			if err != nil {
				return err
			}

			// Token must belong to the tenant the request addresses.
			tenantID, _ := c.Get("tenant_id").(string)
			if tenantID != "" && claims.TenantID != tenantID {
				return domain.NewAuthInvalid("token issued for another tenant")
			}

			c.Set("identity_id", claims.IdentityID)
			c.Set("role", string(claims.Role))

			return next(c)
		}
	}
}
