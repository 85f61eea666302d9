package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/appforge/data-platform/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
// Details is populated for validation errors only.
type errorResponse struct {
	Error   string                  `json:"error"`
	Kind    string                  `json:"kind,omitempty"`
	Details []domain.FieldViolation `json:"details,omitempty"`
}

var kindStatus = map[domain.ErrorKind]int{
	domain.KindValidation:   http.StatusUnprocessableEntity,
	domain.KindAuthRequired: http.StatusUnauthorized,
	domain.KindAuthInvalid:  http.StatusUnauthorized,
	domain.KindForbidden:    http.StatusForbidden,
	domain.KindNotFound:     http.StatusNotFound,
	domain.KindConflict:     http.StatusConflict,
	domain.KindRateLimited:  http.StatusTooManyRequests,
	domain.KindInternal:     http.StatusInternalServerError,
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps the domain error taxonomy to transport statuses in one place.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope with machine-readable violation
//     details for validation failures.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		// Echo's own errors (bind failures, 404 from router, etc.)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)})
			return
		}

		var de *domain.Error
		if errors.As(err, &de) {
			status, ok := kindStatus[de.Kind]
			if !ok {
				status = http.StatusInternalServerError
			}
			if de.Kind == domain.KindInternal {
				log.Error().
					Err(errors.Unwrap(de)).
					Str("method", c.Request().Method).
					Str("path", c.Path()).
					Msg("internal error")
			}
			if de.Kind == domain.KindRateLimited && de.RetryAfter > 0 {
				c.Response().Header().Set("Retry-After", strconv.Itoa(de.RetryAfter))
			}
			_ = c.JSON(status, errorResponse{
				Error:   de.Message,
				Kind:    string(de.Kind),
				Details: de.Details,
			})
			return
		}

		// Untagged error: log the real cause, return a generic message.
		log.Error().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("unhandled error")

		_ = c.JSON(http.StatusInternalServerError, errorResponse{
			Error: "internal server error",
			Kind:  string(domain.KindInternal),
		})
	}
}
