package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"auth-bridge/metrics"

	"github.com/labstack/echo/v4"
)

// InternalAuthHeader carries the shared secret on internal requests.
const InternalAuthHeader = "X-Internal-Auth"

// Reject reasons reported by InternalAuth.
const (
	RejectMissingSecret = "missing"
	RejectWrongSecret   = "mismatch"
)

// InternalAuth guards the session management routes used by the identity
// provider. A missing secret is 401, a wrong one 403; both are counted and
// logged with the caller address. The comparison is constant-time.
func InternalAuth(sharedSecret string, logger *slog.Logger) echo.MiddlewareFunc {
	secret := []byte(sharedSecret)
	logger = logger.With("component", "internal_auth")

	reject := func(c echo.Context, code int, reason string) error {
		metrics.InternalAuthRejectsTotal.WithLabelValues(reason).Inc()
		logger.WarnContext(c.Request().Context(), "internal request rejected",
			"reason", reason,
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"remote_addr", c.RealIP())
		return echo.NewHTTPError(code, "internal authentication required")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			provided := []byte(c.Request().Header.Get(InternalAuthHeader))
			switch {
			case len(provided) == 0:
				return reject(c, http.StatusUnauthorized, RejectMissingSecret)
			case subtle.ConstantTimeCompare(provided, secret) != 1:
				return reject(c, http.StatusForbidden, RejectWrongSecret)
			}
			return next(c)
		}
	}
}
