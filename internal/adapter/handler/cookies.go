package handler

import (
	"net/http"
	"time"

	"auth-bridge/internal/domain"

	"github.com/labstack/echo/v4"
)

// CookieConfig holds the cookie names and attributes used by the bridge.
type CookieConfig struct {
	SessionName      string // provider session cookie read on every request
	ServiceTokenName string // downstream credential cookie
	Domain           string
	Secure           bool // production only
}

// sessionToken returns the caller's session token, or "" when absent.
func (cc CookieConfig) sessionToken(c echo.Context) string {
	cookie, err := c.Cookie(cc.SessionName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// setServiceToken sets the downstream credential cookie.
func (cc CookieConfig) setServiceToken(c echo.Context, tok *domain.ServiceToken) {
	c.SetCookie(&http.Cookie{
		Name:     cc.ServiceTokenName,
		Value:    tok.Value,
		Path:     "/",
		Domain:   cc.Domain,
		Expires:  tok.ExpiresAt,
		MaxAge:   int(time.Until(tok.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearAll expires the downstream credential and the provider session
// cookie. The session cookie is cleared in both its plain and Secure form
// since either may have been set.
func (cc CookieConfig) clearAll(c echo.Context) {
	c.SetCookie(cc.expired(cc.ServiceTokenName, cc.Secure))
	c.SetCookie(cc.expired(cc.SessionName, false))
	c.SetCookie(cc.expired(cc.SessionName, true))
}

func (cc CookieConfig) expired(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   cc.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
