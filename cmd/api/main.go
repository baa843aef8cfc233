// Package main is the entry point for the event API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/stetsonscene/scene/backend/internal/calendar"
	"github.com/stetsonscene/scene/backend/internal/config"
	"github.com/stetsonscene/scene/backend/internal/handler"
	"github.com/stetsonscene/scene/backend/internal/middleware"
	"github.com/stetsonscene/scene/backend/internal/repo"
	"github.com/stetsonscene/scene/backend/internal/scheduler"
	"github.com/stetsonscene/scene/backend/internal/service"
	"github.com/stetsonscene/scene/backend/internal/source"
	"github.com/stetsonscene/scene/backend/migrations"
	"github.com/stetsonscene/scene/backend/spec"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// --- Database ---------------------------------------------------------
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if err := migrate(ctx, pool); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	// --- Session ----------------------------------------------------------
	client := source.NewRealtimeClient(cfg.EventSourceURL, cfg.EventSourceAuth, nil)
	session := service.NewSession(service.SessionDeps{
		Source:       client,
		Counter:      client,
		Calendar:     calendar.NewICSCalendar(cfg.CalendarPath),
		Flags:        repo.NewFlagRepo(pool),
		Locations:    repo.NewLocationRepo(pool),
		Location:     cfg.Location,
		Debounce:     cfg.FavoriteDebounce,
		InitialWeeks: cfg.InitialWeeks,
		Logger:       logger,
	})
	report, err := session.Start(ctx)
	if err != nil {
		slog.Error("failed to load events", "error", err)
		os.Exit(1)
	}
	slog.Info("events loaded", "admitted", report.Admitted, "invalid", report.Invalid)

	// Live feed is optional: without brokers the list only changes on
	// scheduled or manual refresh.
	var feed *source.KafkaFeed
	if len(cfg.KafkaBrokers) > 0 {
		feed = source.NewKafkaFeed(source.FeedConfig{
			Brokers:      cfg.KafkaBrokers,
			UpdateTopic:  cfg.KafkaUpdateTopic,
			CounterTopic: cfg.KafkaCounterTopic,
			GroupID:      cfg.KafkaGroupID,
		}, logger)
		go feed.Run(ctx)
		go func() {
			if err := session.Watch(ctx, feed); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("live feed stopped", "error", err)
			}
		}()
		slog.Info("live feed subscribed", "brokers", cfg.KafkaBrokers)
	}

	var sched *scheduler.Scheduler
	if cfg.RefreshCron != "" {
		sched, err = scheduler.New(cfg.RefreshCron, cfg.Location, session, logger)
		if err != nil {
			slog.Error("invalid refresh schedule", "error", err)
			os.Exit(1)
		}
		sched.Start()
	}

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID, RealIP, Logger, Recoverer,
	// then CORS and the body size cap.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	r.Mount("/", handler.NewServer(session, spec.OpenAPI).Routes())

	// --- HTTP Server ------------------------------------------------------
	// PUT /filter may fetch from the event source, so writes get more room
	// than reads.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	cancelRoot()
	if feed != nil {
		if err := feed.Close(); err != nil {
			slog.Error("live feed close error", "error", err)
		}
	}
	slog.Info("server stopped")
}

// migrate applies every pending migration embedded in the binary.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	slog.Info("migrations applied", "count", len(results))
	return nil
}
