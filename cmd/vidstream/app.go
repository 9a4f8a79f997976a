package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okonst/vidstream/internal/db"
	"github.com/okonst/vidstream/internal/handlers"
	"github.com/okonst/vidstream/internal/handlers/middleware"
	"github.com/okonst/vidstream/internal/logger"
	"github.com/okonst/vidstream/internal/repository/postgres"
	"github.com/okonst/vidstream/internal/service/auth"
	"github.com/okonst/vidstream/internal/service/auth/tokenmanager"
	"github.com/okonst/vidstream/internal/service/media"
	"github.com/okonst/vidstream/internal/service/user"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	accessTTL, err := time.ParseDuration(c.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid access token ttl %q. Err: %w", c.AccessTTL, err)
	}
	refreshTTL, err := time.ParseDuration(c.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token ttl %q. Err: %w", c.RefreshTTL, err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		AccessSecret:  c.AccessSecret,
		RefreshSecret: c.RefreshSecret,
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	authService, err := auth.NewService(auth.Config{Logger: logger}, tokenManager, storage.User())
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}
	userService := user.NewService(nil, storage)

	// Initialize handlers
	authHandler := handlers.NewAuth(authService)
	userHandler := handlers.NewUser(userService)
	channelHandler := handlers.NewChannel(userService)

	var mediaHandler *handlers.MediaHandler
	if c.S3Bucket != "" {
		mediaService, err := media.NewService(media.Config{
			Region:       c.S3Region,
			Bucket:       c.S3Bucket,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			BaseEndpoint: c.S3Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("error while creating media service. Err: %w", err)
		}
		mediaHandler = handlers.NewMedia(mediaService)
	}

	// Metrics registry with go runtime collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewHTTPMetrics(registry)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	mux := handlers.NewRouter(
		authHandler,
		userHandler,
		channelHandler,
		mediaHandler,
		middleware.AuthMiddleware(authService),
		middleware.MaybeAuthMiddleware(authService),
		metricsHandler,
		middleware.LoggerMiddleware(logger),
		middleware.MetricsMiddleware(httpMetrics),
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server")
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
