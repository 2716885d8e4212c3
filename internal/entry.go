// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/vivenda/agenda/internal/agenda"
	"github.com/vivenda/agenda/internal/agendaservice"
	"github.com/vivenda/agenda/internal/api"
	"github.com/vivenda/agenda/internal/cache"
	"github.com/vivenda/agenda/internal/ical"
	"github.com/vivenda/agenda/internal/mcpserver"
	"github.com/vivenda/agenda/internal/settings"
	"github.com/vivenda/agenda/internal/sse"
	"github.com/vivenda/agenda/internal/upstream"
	pkgconfig "github.com/vivenda/agenda/pkg/config"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// In MCP mode stdout carries the protocol, so logs go to stderr.
	logOut := os.Stdout
	if app.mcp {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("upstream_base_url", cfg.Upstream.BaseURL),
		slog.String("cache_path", cfg.Cache.Path),
		slog.String("timezone", cfg.Agenda.Timezone),
		slog.String("log_level", cfg.App.LogLevel.String()))

	st, err := settings.Build(cfg.Agenda.Timezone, cfg.Agenda.DefaultDurationMin, cfg.Agenda.SlotGranularityMin)
	if err != nil {
		return fmt.Errorf("agenda settings: %w", err)
	}
	store := settings.NewStore(st)

	db, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer db.Close()

	client := upstream.New(cfg.Upstream.BaseURL, cfg.Upstream.Token,
		time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second)

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := agendaservice.New(client, db, store, broker, logger)

	// Warm the cache with the current month. Failure is tolerable, views
	// fall back to whatever the cache holds.
	warmStart, warmEnd := agenda.Controller{View: agenda.ViewMonth, Anchor: time.Now().In(st.Location)}.VisibleRange()
	if err := svc.RefreshRange(ctx, warmStart, warmEnd, ""); err != nil {
		logger.Warn("initial refresh failed", slog.String("error", err.Error()))
	}

	if app.mcp {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(svc).ServeStdio()
	}

	// Build API service and router.
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, ical.NewFeed(svc))

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Minute tick for the current-time indicator, plus a periodic
	// reconciliation refresh so remote edits eventually land in the cache.
	sched := cron.New()
	if _, err := sched.AddFunc("* * * * *", func() {
		broker.PublishTick(time.Now().In(store.Current().Location))
	}); err != nil {
		return fmt.Errorf("schedule tick: %w", err)
	}
	if _, err := sched.AddFunc("*/5 * * * *", func() {
		cur := store.Current()
		start, end := agenda.Controller{View: agenda.ViewMonth, Anchor: time.Now().In(cur.Location)}.VisibleRange()
		if err := svc.RefreshRange(context.Background(), start, end, ""); err != nil {
			logger.Warn("reconciliation refresh failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("schedule reconciliation: %w", err)
	}
	sched.Start()

	// Watch the config file and hot-swap agenda display settings.
	if app.configPath != "" {
		configPath := app.configPath
		g.Go(func() error {
			reload := func() (settings.Settings, error) {
				next := NewDefaultConfig()
				if err := pkgconfig.Load(configPath, next); err != nil {
					return settings.Settings{}, err
				}
				return settings.Build(next.Agenda.Timezone,
					next.Agenda.DefaultDurationMin, next.Agenda.SlotGranularityMin)
			}
			return settings.Watch(gCtx, store, configPath, reload, logger)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		stopCtx := sched.Stop()
		<-stopCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
