package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/appforge/data-platform/internal/core/domain"
	"github.com/appforge/data-platform/internal/core/ports"
)

type stubAuthService struct {
	signupIn *ports.SignupInput
	result   *ports.AuthResult
	err      error
}

func (s *stubAuthService) Signup(_ context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
	s.signupIn = &in
	return s.result, s.err
}

func (s *stubAuthService) Login(context.Context, string, string, string) (*ports.AuthResult, error) {
	return s.result, s.err
}

func (s *stubAuthService) ParseToken(context.Context, string) (*ports.TokenClaims, error) {
	return nil, s.err
}

func (s *stubAuthService) Me(context.Context, string, string) (*domain.EndUser, error) {
	if s.result != nil {
		return s.result.User, nil
	}
	return nil, s.err
}

func (s *stubAuthService) UpdateProfile(context.Context, ports.UpdateProfileInput) (*domain.EndUser, error) {
	if s.result != nil {
		return s.result.User, nil
	}
	return nil, s.err
}

func (s *stubAuthService) ChangeRole(context.Context, string, string, string, domain.Role) (*domain.EndUser, error) {
	if s.result != nil {
		return s.result.User, nil
	}
	return nil, s.err
}

func (s *stubAuthService) Ban(context.Context, string, string, string) error   { return s.err }
func (s *stubAuthService) Unban(context.Context, string, string, string) error { return s.err }

func (s *stubAuthService) RequestPasswordReset(context.Context, string, string) (string, error) {
	return "reset-token", s.err
}

func (s *stubAuthService) ResetPassword(context.Context, string, string, string) error {
	return s.err
}

func newHandlerContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("tenant_id", "app_1")
	return c, rec
}

func TestAuthHandler_Signup(t *testing.T) {
	svc := &stubAuthService{result: &ports.AuthResult{
		Token: "jwt",
		User:  &domain.EndUser{ID: "u1", TenantID: "app_1", Email: "a@b.com", Role: domain.RoleAdmin},
	}}
	h := NewAuthHandler(svc)

	c, rec := newHandlerContext(t, http.MethodPost, "/v1/auth/signup",
		`{"email":"a@b.com","password":"longenough","display_name":"Al"}`)

	if err := h.Signup(c); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if svc.signupIn.TenantID != "app_1" || svc.signupIn.Email != "a@b.com" {
		t.Fatalf("service input wrong: %+v", svc.signupIn)
	}

	var resp struct {
		Token string          `json:"token"`
		User  *domain.EndUser `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Token != "jwt" || resp.User.ID != "u1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAuthHandler_Signup_RequestValidation(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	cases := []string{
		`{"email":"","password":"longenough"}`,
		`{"email":"not-an-email","password":"longenough"}`,
		`{"email":"a@b.com","password":"short"}`,
		`{not json`,
	}
	for _, body := range cases {
		c, _ := newHandlerContext(t, http.MethodPost, "/v1/auth/signup", body)
		err := h.Signup(c)
		if domain.KindOf(err) != domain.KindValidation {
			t.Fatalf("body %q should be VALIDATION_ERROR, got %v", body, err)
		}
	}
}

func TestAuthHandler_Me_RequiresIdentity(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{result: &ports.AuthResult{
		User: &domain.EndUser{ID: "u1"},
	}})

	c, _ := newHandlerContext(t, http.MethodGet, "/v1/auth/me", "")
	if err := h.Me(c); domain.KindOf(err) != domain.KindAuthRequired {
		t.Fatalf("expected AUTH_REQUIRED without identity, got %v", err)
	}

	c, rec := newHandlerContext(t, http.MethodGet, "/v1/auth/me", "")
	c.Set("identity_id", "u1")
	if err := h.Me(c); err != nil {
		t.Fatalf("Me returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_ChangeRole_RejectsUnknownRole(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{result: &ports.AuthResult{
		User: &domain.EndUser{ID: "u2", Role: domain.RoleEditor},
	}})

	c, _ := newHandlerContext(t, http.MethodPut, "/v1/admin/users/u2/role", `{"role":"superuser"}`)
	c.Set("identity_id", "admin_1")
	c.SetParamNames("id")
	c.SetParamValues("u2")

	if err := h.ChangeRole(c); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("unknown role should fail request validation, got %v", err)
	}
}
