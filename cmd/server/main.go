package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/rentwheels/internal/catalog"
	"github.com/yourorg/rentwheels/internal/events"
	"github.com/yourorg/rentwheels/internal/featureflags"
	"github.com/yourorg/rentwheels/internal/handler"
	"github.com/yourorg/rentwheels/internal/infrastructure/logger"
	"github.com/yourorg/rentwheels/internal/infrastructure/redis"
	"github.com/yourorg/rentwheels/internal/observability/metrics"
	"github.com/yourorg/rentwheels/internal/observability/tracing"
	"github.com/yourorg/rentwheels/internal/repository"
	"github.com/yourorg/rentwheels/internal/security"
	"github.com/yourorg/rentwheels/internal/security/audit"
	"github.com/yourorg/rentwheels/internal/security/auth"
	"github.com/yourorg/rentwheels/internal/security/middleware"
	"github.com/yourorg/rentwheels/internal/security/ratelimit"
	"github.com/yourorg/rentwheels/internal/service"
	"github.com/yourorg/rentwheels/internal/worker"
	"github.com/yourorg/rentwheels/pkg/config"
	"github.com/yourorg/rentwheels/pkg/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "rentwheels: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Load configuration
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel, cfg.Environment)
	log.Info("starting RentWheels server", slog.String("environment", cfg.Environment))

	// 3. Initialize tracing (no-op without OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdownTracing, err := tracing.Init(ctx, log, "rentwheels", cfg.Environment)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	// 4. Connect Postgres and apply the schema
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := pool.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// 5. Connect Redis for the availability catalog. Optional: the catalog
	// degrades to its in-memory tier without it.
	var redisClient *redis.Client
	if cfg.RedisURL != "" && featureflags.EnabledDefault("catalog_cache", true) {
		redisClient, err = redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, catalog runs in-memory only", slog.String("error", err.Error()))
		} else {
			defer redisClient.Close()
		}
	}

	// 6. Repositories
	db := pool.GetDB()
	userRepo := repository.NewPostgresUserRepository(db, log)
	vehicleRepo := repository.NewPostgresVehicleRepository(db, log)
	bookingRepo := repository.NewPostgresBookingRepository(db, log)

	// 7. Shared components
	vehicleCatalog := catalog.New(redisClient, cfg.CatalogTTL, log)
	hub := events.NewHub(log)
	defer hub.Close()

	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTValidity)
	authz := security.NewAuthorizationService(log)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	defer rateLimiter.Stop()
	auditLogger := audit.NewLogger(log)

	// 8. Services
	authService := service.NewAuthService(userRepo, tokenManager, log)
	userService := service.NewUserService(userRepo, log)
	vehicleService := service.NewVehicleService(vehicleRepo, vehicleCatalog, log)
	bookingService := service.NewBookingService(bookingRepo, vehicleRepo, userRepo, hub, vehicleCatalog, log)

	// 9. Handlers
	authHandler := handler.NewAuthHandler(authService, log)
	userHandler := handler.NewUserHandler(userService, log)
	vehicleHandler := handler.NewVehicleHandler(vehicleService, log)
	bookingHandler := handler.NewBookingHandler(bookingService, log)
	sweepHandler := handler.NewSweepHandler(bookingService, authz, log)
	healthHandler := handler.NewHealthHandler(pool, redisClient, log)
	eventsHandler := handler.NewEventsHandler(hub, tokenManager, authz, cfg.CORSAllowedOrigins, log)

	// 10. Routes
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/change-password", authHandler.ChangePassword)

	mux.HandleFunc("GET /api/v1/users", userHandler.List)
	mux.HandleFunc("GET /api/v1/users/{id}", userHandler.Get)
	mux.HandleFunc("PUT /api/v1/users/{id}", userHandler.Update)
	mux.HandleFunc("DELETE /api/v1/users/{id}", userHandler.Delete)

	mux.HandleFunc("POST /api/v1/vehicles", vehicleHandler.Create)
	mux.HandleFunc("GET /api/v1/vehicles", vehicleHandler.List)
	mux.HandleFunc("GET /api/v1/vehicles/available", vehicleHandler.ListAvailable)
	mux.HandleFunc("GET /api/v1/vehicles/{id}", vehicleHandler.Get)
	mux.HandleFunc("PUT /api/v1/vehicles/{id}", vehicleHandler.Update)
	mux.HandleFunc("DELETE /api/v1/vehicles/{id}", vehicleHandler.Delete)

	mux.HandleFunc("POST /api/v1/bookings", bookingHandler.Create)
	mux.HandleFunc("GET /api/v1/bookings", bookingHandler.List)
	mux.HandleFunc("GET /api/v1/bookings/{id}", bookingHandler.Get)
	mux.HandleFunc("PUT /api/v1/bookings/{id}", bookingHandler.Update)
	mux.HandleFunc("POST /api/v1/bookings/quote", bookingHandler.Quote)

	mux.Handle("POST /api/v1/admin/sweep", sweepHandler)
	mux.Handle("GET /ws/events", eventsHandler)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)

	// 11. Middleware chain: request id -> CORS -> metrics -> content type ->
	// JWT -> rate limit -> audit -> traced mux. Rate limiting sits after JWT
	// so authenticated callers are keyed by user id.
	var root http.Handler = otelhttp.NewHandler(mux, "http.server")
	root = middleware.AuditMiddleware(auditLogger)(root)
	root = middleware.RateLimitMiddleware(rateLimiter, cfg.AuthRateLimitPerMin, log)(root)
	root = middleware.JWTMiddleware(tokenManager, log)(root)
	root = middleware.ValidateJSONContentType(log)(root)
	root = metrics.HTTPMetricsMiddleware(root)
	root = middleware.CORSMiddleware(cfg.CORSAllowedOrigins)(root)
	root = middleware.RequestIDMiddleware(root)

	// 12. Start the overdue sweeper in the background
	sweeper := worker.NewSweeper(bookingService, log, cfg.SweepInterval)
	go sweeper.Start(ctx)

	// 13. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.Duration("sweep_interval", cfg.SweepInterval),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // stop the sweeper
	log.Info("server stopped")
	return nil
}
