package handler

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/appforge/data-platform/internal/core/domain"
	"github.com/appforge/data-platform/internal/core/policy"
)

// tenantID extracts the tenant injected by the Tenant middleware. The
// middleware rejects tenant-less requests, so an empty value here means a
// route was wired without it.
func tenantID(c echo.Context) (string, error) {
	id, _ := c.Get("tenant_id").(string)
	if id == "" {
		return "", domain.NewInternal(errors.New("tenant missing from request context"))
	}
	return id, nil
}

// caller builds the policy caller from the claims set by the Auth
// middleware. Requests that carried no token stay anonymous.
func caller(c echo.Context) policy.Caller {
	identityID, _ := c.Get("identity_id").(string)
	if identityID == "" {
		return policy.Anonymous
	}
	role, _ := c.Get("role").(string)
	return policy.Caller{
		IdentityID: identityID,
		Role:       domain.ParseRole(role),
	}
}

// identity returns the authenticated identity id, failing when the route
// requires one but the Auth middleware injected none.
func identity(c echo.Context) (string, error) {
	id, _ := c.Get("identity_id").(string)
	if id == "" {
		return "", domain.NewAuthRequired("authentication required")
	}
	return id, nil
}
