// Command aludel-demo runs a small RESTful notes service that shows how the
// aludel pieces compose: a table collection for storage, the service toolkit
// for handlers, health probes and prometheus metrics on the side.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/praekelt/aludel/database"
	"github.com/praekelt/aludel/health"
	aludellog "github.com/praekelt/aludel/log"
	"github.com/praekelt/aludel/service"
)

type config struct {
	Listen   string `envconfig:"LISTEN" default:":8080"`
	DBPath   string `envconfig:"DB_PATH" default:"aludel-demo.sqlite"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Store    string `envconfig:"STORE" default:"main"`
}

func main() {
	var cfg config
	if err := envconfig.Process("ALUDEL", &cfg); err != nil {
		l := aludellog.Base()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	aludellog.Configure(aludellog.Config{
		Level:   cfg.LogLevel,
		Service: "aludel-demo",
	})
	logger := aludellog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBPath, database.DefaultConfig())
	if err != nil {
		logger.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("failed to open database")
	}
	defer func() { _ = db.Close() }()

	notes := newNotesStore(cfg.Store, db)
	if err := notes.Init(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to create notes collection")
	}

	svc := service.New(service.Config{
		Name:          "notes",
		EnableMetrics: true,
		RateLimit: service.RateLimitConfig{
			RequestLimit: 100,
			WindowSize:   time.Minute,
		},
	})
	notes.Register(svc)

	healthManager := health.NewManager(version)
	healthManager.RegisterChecker(health.NewDatabaseChecker("sqlite", db))
	svc.Router().Get("/healthz", healthManager.ServeHealth)
	svc.Router().Get("/readyz", healthManager.ServeReady)
	svc.Router().Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           svc,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("event", "server.listening").Str("addr", cfg.Listen).Msg("serving")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Str("event", "server.shutdown").Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
		os.Exit(1)
	}
}

var version = "dev"
