// Package server assembles the HTTP surface of auth-bridge.
package server

import (
	"log/slog"

	"auth-bridge/internal/adapter/handler"
	appmiddleware "auth-bridge/middleware"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

const (
	checkProviderPerMinute = 60
	checkProviderBurst     = 10
	internalPerMinute      = 120
	internalBurst          = 20
)

// Handlers are the route handlers mounted by NewRouter.
type Handlers struct {
	Bridge      *handler.BridgeHandler
	Validate    *handler.ValidateHandler
	UserSession *handler.UserSessionHandler
	Internal    *handler.InternalSessionHandler
	Health      *handler.HealthHandler
}

// Options control middleware that depends on the environment.
type Options struct {
	Production       bool
	AllowedOrigins   []string
	AuthSharedSecret string // internal routes are not mounted when empty
	OTelEnabled      bool
	ServiceName      string
}

// Router is the configured echo instance plus the resources it owns.
type Router struct {
	*echo.Echo
	limiters []*appmiddleware.RateLimiter
}

// CloseLimiters stops the background work of the rate limiters.
func (r *Router) CloseLimiters() {
	for _, rl := range r.limiters {
		rl.Close()
	}
}

// NewRouter builds the echo instance with every route and middleware.
func NewRouter(h Handlers, opts Options, logger *slog.Logger) *Router {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(logger)
	e.Validator = handler.NewRequestValidator()

	e.Use(appmiddleware.SecurityHeaders(opts.Production))

	if opts.OTelEnabled {
		e.Use(otelecho.Middleware(opts.ServiceName))
		e.Use(appmiddleware.OTelStatusMiddleware())
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			switch c.Request().URL.Path {
			case "/health", "/metrics":
				return true
			}
			return false
		},
		LogStatus:  true,
		LogURI:     true,
		LogError:   true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			rctx := c.Request().Context()
			if v.Error == nil {
				logger.InfoContext(rctx, "request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			}
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{"X-Cache"},
	}))

	r := &Router{Echo: e}

	checkProviderRL := appmiddleware.NewRateLimiter(appmiddleware.PerMinute(checkProviderPerMinute), checkProviderBurst)
	r.limiters = append(r.limiters, checkProviderRL)

	bridge := e.Group("/api/bridge/auth", appmiddleware.NoStore())
	bridge.GET("/_sync", h.Bridge.Sync)
	bridge.GET("/logout", h.Bridge.Logout)
	bridge.POST("/check-provider", h.Bridge.CheckProvider, checkProviderRL.Middleware())

	e.GET("/validate", h.Validate.Handle, appmiddleware.NoStore())
	e.GET("/api/users/session", h.UserSession.Handle, appmiddleware.NoStore())

	e.GET("/health", h.Health.Handle)
	e.GET("/api/health", h.Health.Ready)
	e.GET("/api/health/ping", h.Health.Ping)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if opts.AuthSharedSecret != "" {
		internalRL := appmiddleware.NewRateLimiter(appmiddleware.PerMinute(internalPerMinute), internalBurst)
		r.limiters = append(r.limiters, internalRL)

		internal := e.Group("/internal",
			internalRL.Middleware(),
			appmiddleware.InternalAuth(opts.AuthSharedSecret, logger),
		)
		internal.POST("/sessions", h.Internal.Create)
		internal.DELETE("/sessions/:id", h.Internal.Revoke)
	} else {
		logger.Warn("AUTH_SHARED_SECRET not set, internal session routes disabled")
	}

	return r
}
