package handler

import (
	"net/http"
	"time"

	"auth-bridge/internal/usecase"

	"github.com/labstack/echo/v4"
)

// UserSessionHandler returns the caller's session view.
type UserSessionHandler struct {
	lookup  *usecase.SessionLookup
	cookies CookieConfig
}

// NewUserSessionHandler creates a new user session handler.
func NewUserSessionHandler(lookup *usecase.SessionLookup, cookies CookieConfig) *UserSessionHandler {
	return &UserSessionHandler{lookup: lookup, cookies: cookies}
}

// sessionInfo omits the token so it never leaves the cookie.
type sessionInfo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type userSessionResponse struct {
	User    bridgeUser  `json:"user"`
	Session sessionInfo `json:"session"`
}

// Handle processes GET /api/users/session.
func (h *UserSessionHandler) Handle(c echo.Context) error {
	res, err := h.lookup.Lookup(c.Request().Context(), h.cookies.sessionToken(c))
	if err != nil {
		return mapDomainError(err)
	}

	s := res.View.Session
	c.Response().Header().Set("X-Cache", cacheHeader(res.CacheHit))
	return c.JSON(http.StatusOK, userSessionResponse{
		User: toBridgeUser(res.View.User),
		Session: sessionInfo{
			ID:        s.ID,
			UserID:    s.UserID,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
		},
	})
}
