package handler

import (
	"net/http"
	"time"

	"auth-bridge/internal/domain"
	"auth-bridge/internal/usecase"

	"github.com/labstack/echo/v4"
)

// BridgeHandler serves the credential bridge endpoints under /api/bridge/auth.
type BridgeHandler struct {
	sync    *usecase.SyncSession
	logout  *usecase.Logout
	check   *usecase.CheckProvider
	cookies CookieConfig
}

// NewBridgeHandler creates a new bridge handler.
func NewBridgeHandler(s *usecase.SyncSession, l *usecase.Logout, cp *usecase.CheckProvider, cookies CookieConfig) *BridgeHandler {
	return &BridgeHandler{sync: s, logout: l, check: cp, cookies: cookies}
}

// bridgeUser is the user object returned by _sync.
type bridgeUser struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

type syncResponse struct {
	OK   bool       `json:"ok"`
	User bridgeUser `json:"user"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type checkProviderRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type checkProviderResponse struct {
	Provider string `json:"provider"`
}

// Sync handles GET /_sync: verifies the session cookie and sets the
// service token cookie.
func (h *BridgeHandler) Sync(c echo.Context) error {
	result, err := h.sync.Execute(c.Request().Context(), h.cookies.sessionToken(c))
	if err != nil {
		if isAuthError(err) {
			h.cookies.clearAll(c)
		}
		return mapDomainError(err)
	}

	h.cookies.setServiceToken(c, result.Token)
	c.Response().Header().Set("X-Cache", cacheHeader(result.CacheHit))

	return c.JSON(http.StatusOK, syncResponse{
		OK:   true,
		User: toBridgeUser(result.User),
	})
}

// Logout handles GET /logout. It always succeeds and always clears cookies.
func (h *BridgeHandler) Logout(c echo.Context) error {
	h.logout.Execute(c.Request().Context(), h.cookies.sessionToken(c))
	h.cookies.clearAll(c)
	return c.JSON(http.StatusOK, okResponse{OK: true})
}

// CheckProvider handles POST /check-provider.
func (h *BridgeHandler) CheckProvider(c echo.Context) error {
	var req checkProviderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	provider, err := h.check.Execute(c.Request().Context(), req.Email)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, checkProviderResponse{Provider: provider})
}

func toBridgeUser(u domain.User) bridgeUser {
	return bridgeUser{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}

func cacheHeader(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}
