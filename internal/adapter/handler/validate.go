package handler

import (
	"net/http"

	"auth-bridge/internal/usecase"

	"github.com/labstack/echo/v4"
)

// ValidateHandler answers reverse-proxy auth_request subrequests.
type ValidateHandler struct {
	lookup  *usecase.SessionLookup
	cookies CookieConfig
}

// NewValidateHandler creates a new validate handler.
func NewValidateHandler(lookup *usecase.SessionLookup, cookies CookieConfig) *ValidateHandler {
	return &ValidateHandler{lookup: lookup, cookies: cookies}
}

// Handle processes GET /validate. A valid session yields 200 with the
// user identity in response headers.
func (h *ValidateHandler) Handle(c echo.Context) error {
	res, err := h.lookup.Lookup(c.Request().Context(), h.cookies.sessionToken(c))
	if err != nil {
		return mapDomainError(err)
	}

	header := c.Response().Header()
	header.Set("X-User-Id", res.View.User.ID)
	header.Set("X-User-Email", res.View.User.Email)
	header.Set("X-Cache", cacheHeader(res.CacheHit))
	return c.NoContent(http.StatusOK)
}
