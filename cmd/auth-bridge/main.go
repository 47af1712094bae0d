package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auth-bridge/config"
	"auth-bridge/internal/adapter/handler"
	"auth-bridge/internal/domain"
	infracache "auth-bridge/internal/infrastructure/cache"
	"auth-bridge/internal/infrastructure/postgres"
	infratoken "auth-bridge/internal/infrastructure/token"
	"auth-bridge/internal/server"
	"auth-bridge/internal/usecase"
	"auth-bridge/utils/logger"
	"auth-bridge/utils/otel"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Handle healthcheck subcommand (for Docker healthcheck in distroless image)
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		if err := runHealthcheck(); err != nil {
			fmt.Fprintf(os.Stderr, "Healthcheck failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("auth-bridge exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("server exited properly")
}

func run(ctx context.Context) error {
	// Initialize OpenTelemetry
	otelCfg := otel.ConfigFromEnv()
	otelShutdown, err := otel.InitProvider(ctx, otelCfg)
	if err != nil {
		slog.Warn("failed to initialize OpenTelemetry, continuing without tracing", "error", err)
		otelCfg.Enabled = false
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown failed", "error", err)
		}
	}()

	log := logger.Init(os.Getenv("LOG_LEVEL"), otelCfg.Enabled)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log.InfoContext(ctx, "configuration loaded",
		"port", cfg.Port,
		"app_env", cfg.AppEnv,
		"redis", cfg.RedisURL != "",
		"cache_ttl", cfg.CacheTTL,
		"session_ttl", cfg.SessionTTL)

	// Infrastructure
	db, err := postgres.NewConnection(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	sessionCache, closeCache, err := newSessionCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	issuer, err := infratoken.NewJWTIssuer(infratoken.JWTConfig{
		Secret: cfg.ServiceTokenSecret,
		Issuer: cfg.ServiceTokenIssuer,
		TTL:    cfg.ServiceTokenTTL,
	})
	if err != nil {
		return fmt.Errorf("service token issuer: %w", err)
	}

	sessionStore := postgres.NewSessionStore(db.Pool(), log)
	accountStore := postgres.NewAccountStore(db.Pool(), log)

	// Usecases
	lookup := usecase.NewSessionLookup(sessionStore, sessionCache, log)
	lifecycle := usecase.NewSessionLifecycle(sessionStore, cfg.SessionTTL, log)
	usecase.NewSingleSessionEnforcer(sessionStore, sessionCache, log).Register(lifecycle)
	providers := usecase.NewProviderResolver(accountStore, log)

	// Handlers
	cookies := handler.CookieConfig{
		SessionName:      cfg.SessionCookieName,
		ServiceTokenName: cfg.ServiceTokenCookieName,
		Domain:           cfg.CookieDomain,
		Secure:           cfg.Production(),
	}
	router := server.NewRouter(server.Handlers{
		Bridge: handler.NewBridgeHandler(
			usecase.NewSyncSession(lookup, providers, issuer, log),
			usecase.NewLogout(lookup, providers, lifecycle, log),
			usecase.NewCheckProvider(providers),
			cookies,
		),
		Validate:    handler.NewValidateHandler(lookup, cookies),
		UserSession: handler.NewUserSessionHandler(lookup, cookies),
		Internal:    handler.NewInternalSessionHandler(lifecycle, log),
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"database": handler.PingFunc(db.HealthCheck),
			"cache":    sessionCache,
		}),
	}, server.Options{
		Production:       cfg.Production(),
		AllowedOrigins:   cfg.AllowedOrigins,
		AuthSharedSecret: cfg.AuthSharedSecret,
		OTelEnabled:      otelCfg.Enabled,
		ServiceName:      otelCfg.ServiceName,
	}, log)
	defer router.CloseLimiters()

	// Start server with errgroup for graceful shutdown
	address := fmt.Sprintf(":%s", cfg.Port)
	log.InfoContext(ctx, "starting auth-bridge server", "address", address)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := router.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := router.Shutdown(shutdownCtx)
		// Pending cache fills must land before the cache client closes.
		if drainErr := lookup.Drain(shutdownCtx); drainErr != nil {
			log.Warn("pending cache writes not drained", "error", drainErr)
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// cachePinger is a session cache that can report its availability.
type cachePinger interface {
	domain.SessionCache
	handler.Pinger
}

// newSessionCache selects Redis when REDIS_URL is set and the in-process
// cache otherwise.
func newSessionCache(ctx context.Context, cfg *config.Config, log *slog.Logger) (cachePinger, func(), error) {
	keys := infracache.Keys{TokenPrefix: cfg.SessionCachePrefix, IDPrefix: cfg.SessionDBPrefix}

	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not set, using in-process session cache")
		c := infracache.NewSessionCache(keys, cfg.CacheTTL)
		return c, func() { _ = c.Close() }, nil
	}

	client, err := infracache.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisTimeout)
	if err != nil {
		return nil, nil, err
	}
	log.Info("redis session cache connected", "addr", client.Options().Addr)

	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Warn("redis close failed", "error", err)
		}
	}
	return infracache.NewRedisSessionCache(client, keys, cfg.CacheTTL, cfg.RedisTimeout), closeFn, nil
}

// runHealthcheck performs a health check against the local server.
func runHealthcheck() error {
	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%s/health", port))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned status: %d", resp.StatusCode)
	}
	return nil
}
