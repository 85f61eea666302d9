package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/appforge/data-platform/internal/api/metrics"
	"github.com/appforge/data-platform/internal/core/domain"
	"github.com/appforge/data-platform/internal/core/ports"
)

// AuthHandler handles HTTP requests for the identity lifecycle.
type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- Request / Response types ---

type signupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string          `json:"token"`
	User  *domain.EndUser `json:"user"`
}

type updateProfileRequest struct {
	DisplayName *string        `json:"display_name"`
	AvatarURL   *string        `json:"avatar_url"`
	ProfileData map[string]any `json:"profile_data"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=guest user editor admin"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// Signup creates an end-user identity within the tenant.
//
// @Summary      Sign up a new end user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-App-ID  header    string         true  "Tenant identifier"
// @Param        body      body      signupRequest  true  "Signup details"
// @Success      201       {object}  authResponse
// @Failure      409       {object}  map[string]string
// @Failure      422       {object}  map[string]string
// @Router       /v1/auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}

	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return domain.NewValidation("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.authService.Signup(c.Request().Context(), ports.SignupInput{
		TenantID:    tid,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return err
	}

	metrics.SignupsTotal.WithLabelValues(string(result.User.Role)).Inc()

	return c.JSON(http.StatusCreated, authResponse{Token: result.Token, User: result.User})
}

// Login authenticates an end user and returns a session token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-App-ID  header    string        true  "Tenant identifier"
// @Param        body      body      loginRequest  true  "Login credentials"
// @Success      200       {object}  authResponse
// @Failure      401       {object}  map[string]string
// @Router       /v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return domain.NewValidation("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.Request().Context(), tid, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, authResponse{Token: result.Token, User: result.User})
}

// Me returns the authenticated caller's own identity.
//
// @Summary      Get the current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.EndUser
// @Failure      401  {object}  map[string]string
// @Router       /v1/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	id, err := identity(c)
	if err != nil {
		return err
	}

	user, err := h.authService.Me(c.Request().Context(), tid, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile patches the caller's own profile. Absent fields stay as
// they are.
//
// @Summary      Update the current user's profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Profile fields to change"
// @Success      200   {object}  domain.EndUser
// @Failure      401   {object}  map[string]string
// @Router       /v1/auth/profile [patch]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	id, err := identity(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return domain.NewValidation("invalid payload")
	}

	user, err := h.authService.UpdateProfile(c.Request().Context(), ports.UpdateProfileInput{
		TenantID:    tid,
		IdentityID:  id,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		ProfileData: req.ProfileData,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// ChangeRole sets another user's role. Admin only.
//
// @Summary      Change a user's role
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Target user id"
// @Param        body  body      changeRoleRequest  true  "New role"
// @Success      200   {object}  domain.EndUser
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /v1/admin/users/{id}/role [put]
func (h *AuthHandler) ChangeRole(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	actorID, err := identity(c)
	if err != nil {
		return err
	}

	var req changeRoleRequest
	if err := c.Bind(&req); err != nil {
		return domain.NewValidation("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authService.ChangeRole(c.Request().Context(), tid, actorID, c.Param("id"), domain.Role(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Ban suspends a user. Admin only.
//
// @Summary      Ban a user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Target user id"
// @Success      204
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /v1/admin/users/{id}/ban [post]
func (h *AuthHandler) Ban(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	actorID, err := identity(c)
	if err != nil {
		return err
	}

	if err := h.authService.Ban(c.Request().Context(), tid, actorID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Unban lifts a suspension. Admin only.
//
// @Summary      Unban a user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Target user id"
// @Success      204
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /v1/admin/users/{id}/unban [post]
func (h *AuthHandler) Unban(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}
	actorID, err := identity(c)
	if err != nil {
		return err
	}

	if err := h.authService.Unban(c.Request().Context(), tid, actorID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ForgotPassword issues a single-use reset token. The token is returned
// in the response body; delivery to the user is left to the tenant's app.
//
// @Summary      Request a password reset token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-App-ID  header    string                 true  "Tenant identifier"
// @Param        body      body      forgotPasswordRequest  true  "Account email"
// @Success      200       {object}  map[string]string
// @Failure      404       {object}  map[string]string
// @Router       /v1/auth/password/forgot [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}

	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return domain.NewValidation("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	token, err := h.authService.RequestPasswordReset(c.Request().Context(), tid, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"reset_token": token})
}

// ResetPassword consumes a reset token and sets a new password.
//
// @Summary      Reset a password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-App-ID  header    string                true  "Tenant identifier"
// @Param        body      body      resetPasswordRequest  true  "Reset token and new password"
// @Success      204
// @Failure      401  {object}  map[string]string
// @Router       /v1/auth/password/reset [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}

	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return domain.NewValidation("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.authService.ResetPassword(c.Request().Context(), tid, req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
