package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/appforge/data-platform/internal/core/domain"
	"github.com/appforge/data-platform/internal/core/ports"
)

type stubParser struct {
	claims *ports.TokenClaims
	err    error
}

func (p *stubParser) ParseToken(context.Context, string) (*ports.TokenClaims, error) {
	return p.claims, p.err
}

func newAuthContext(t *testing.T, header string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("tenant_id", "app_1")
	return c, rec
}

func TestAuth_ValidToken(t *testing.T) {
	parser := &stubParser{claims: &ports.TokenClaims{
		IdentityID: "u1", TenantID: "app_1", Role: domain.RoleEditor,
	}}
	c, rec := newAuthContext(t, "Bearer sometoken")

	called := false
	handler := Auth(parser, true)(func(c echo.Context) error {
		called = true
		if c.Get("identity_id") != "u1" {
			t.Fatal("identity_id not set")
		}
		if c.Get("role") != "editor" {
			t.Fatal("role not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatal("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuth_MissingHeader(t *testing.T) {
	parser := &stubParser{}

	// Required: reject.
	c, _ := newAuthContext(t, "")
	err := Auth(parser, true)(func(echo.Context) error {
		t.Fatal("should not reach next")
		return nil
	})(c)
	if domain.KindOf(err) != domain.KindAuthRequired {
		t.Fatalf("expected AUTH_REQUIRED, got %v", err)
	}

	// Optional: pass through as anonymous.
	c, _ = newAuthContext(t, "")
	called := false
	err = Auth(parser, false)(func(c echo.Context) error {
		called = true
		if c.Get("identity_id") != nil {
			t.Fatal("anonymous request should carry no identity")
		}
		return nil
	})(c)
	if err != nil || !called {
		t.Fatalf("optional auth should pass anonymous through, err=%v", err)
	}
}

func TestAuth_InvalidTokenNeverDowngrades(t *testing.T) {
	parser := &stubParser{err: domain.NewAuthInvalid("bad token")}

	// Even on an optional route a presented-but-bad token is rejected.
	c, _ := newAuthContext(t, "Bearer garbage")
	err := Auth(parser, false)(func(echo.Context) error {
		t.Fatal("should not reach next")
		return nil
	})(c)
	if domain.KindOf(err) != domain.KindAuthInvalid {
		t.Fatalf("expected AUTH_INVALID, got %v", err)
	}
}

func TestAuth_MalformedHeader(t *testing.T) {
	parser := &stubParser{claims: &ports.TokenClaims{IdentityID: "u1", TenantID: "app_1"}}

	for _, header := range []string{"sometoken", "Basic abc"} {
		c, _ := newAuthContext(t, header)
		err := Auth(parser, true)(func(echo.Context) error { return nil })(c)
		if domain.KindOf(err) != domain.KindAuthInvalid {
			t.Fatalf("header %q should be AUTH_INVALID, got %v", header, err)
		}
	}
}

func TestAuth_CrossTenantToken(t *testing.T) {
	parser := &stubParser{claims: &ports.TokenClaims{
		IdentityID: "u1", TenantID: "other_app", Role: domain.RoleUser,
	}}
	c, _ := newAuthContext(t, "Bearer sometoken")

	err := Auth(parser, true)(func(echo.Context) error {
		t.Fatal("should not reach next")
		return nil
	})(c)
	if domain.KindOf(err) != domain.KindAuthInvalid {
		t.Fatalf("cross-tenant token should be AUTH_INVALID, got %v", err)
	}
}
