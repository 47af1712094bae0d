package handler

import (
	"errors"
	"net/http"

	"auth-bridge/internal/domain"

	"github.com/labstack/echo/v4"
)

const msgNotAuthenticated = "Not authenticated"

// mapDomainError converts a domain error into an appropriate echo.HTTPError.
// Server-side failures carry generic messages; the cause is kept in Internal.
func mapDomainError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		he = echo.NewHTTPError(http.StatusUnauthorized, msgNotAuthenticated)

	case errors.Is(err, domain.ErrInvalidRequest):
		he = echo.NewHTTPError(http.StatusBadRequest, "invalid request")

	case errors.Is(err, domain.ErrUserNotFound):
		he = echo.NewHTTPError(http.StatusNotFound, "user not found")

	case errors.Is(err, domain.ErrTokenGeneration):
		he = echo.NewHTTPError(http.StatusInternalServerError, "token generation error")

	default:
		// Store and cache outages land here: the read path cannot proceed.
		he = echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
	return he.SetInternal(err)
}

// isAuthError reports whether err means the caller has no valid session.
func isAuthError(err error) bool {
	return errors.Is(err, domain.ErrSessionNotFound)
}
