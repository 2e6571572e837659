// Package main initializes and starts the TodoKeeper HTTP server,
// setting up configuration, logging, the user directory, the tenant store
// registry, services, handlers and optional TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/TodoKeeper/internal/auth"
	"github.com/atinyakov/TodoKeeper/internal/config"
	"github.com/atinyakov/TodoKeeper/internal/db"
	"github.com/atinyakov/TodoKeeper/internal/logger"
	"github.com/atinyakov/TodoKeeper/internal/metrics"
	"github.com/atinyakov/TodoKeeper/internal/repository"
	"github.com/atinyakov/TodoKeeper/internal/server/handler/http"
	"github.com/atinyakov/TodoKeeper/internal/service"
	"github.com/atinyakov/TodoKeeper/internal/tenant"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command-line, file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	// A missing secret is a deployment error, not a per-request one.
	sessions, err := auth.NewManager(options.JWTSecret, time.Duration(options.TokenTTL), nil)
	if err != nil {
		zapLogger.Fatal("cannot init session manager", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize the user directory: PostgreSQL when a DSN is given,
	// otherwise a SQLite file in the data directory.
	var usersDB *sqlx.DB
	if options.DatabaseDSN != "" {
		usersDB, err = db.InitPostgres(options.DatabaseDSN)
	} else {
		usersDB, err = db.InitSQLite(options.UsersDBPath())
	}
	if err != nil {
		zapLogger.Fatal("cannot init user directory", zap.Error(err))
	}
	defer usersDB.Close()

	// Tenant stores are opened lazily, one file per user.
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	registry := tenant.NewRegistry(options.TodosDir(),
		tenant.WithLogger(zapLogger),
		tenant.WithMetrics(metrics.NewRegistryMetrics(promRegistry)),
	)
	defer func() {
		if err := registry.Close(); err != nil {
			zapLogger.Error("failed to close tenant stores", zap.Error(err))
		}
	}()

	// Keep tenant write-ahead logs short.
	if interval := time.Duration(options.CheckpointInterval); interval > 0 {
		db.StartCheckpointer(ctx, registry, interval, zapLogger)
	}

	// Initialize business-logic services.
	authService, err := service.NewAuthService(
		repository.NewUserRepository(usersDB), registry, options.BcryptCost, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot init auth service", zap.Error(err))
	}
	taskService := service.NewTaskService(registry, nil)

	// Create HTTP handlers for auth and todos endpoints.
	authHandler := &http.AuthHandler{
		AuthService:  authService,
		Sessions:     sessions,
		Log:          zapLogger,
		SecureCookie: options.SecureCookie,
	}
	todoHandler := &http.TodoHandler{Tasks: taskService, Log: zapLogger}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, todoHandler, sessions, promRegistry, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if options.TLSCert != "" && options.TLSKey != "" {
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Address))
			serveErr <- server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
			return
		}
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Address))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Error("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}
