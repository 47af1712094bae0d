package middleware

import "github.com/labstack/echo/v4"

// NoStoreValue is the Cache-Control value for credential-bearing responses.
const NoStoreValue = "no-store, no-cache, must-revalidate, proxy-revalidate"

// SecurityHeaders adds security-related HTTP headers to all responses.
// HSTS is only sent when hsts is true.
func SecurityHeaders(hsts bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			if hsts {
				h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
			}
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			return next(c)
		}
	}
}

// NoStore marks every response of the group as uncacheable by any intermediary.
func NoStore() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("Cache-Control", NoStoreValue)
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
			return next(c)
		}
	}
}
