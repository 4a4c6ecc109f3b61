package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"polydelta/internal/alerts"
	"polydelta/internal/assistant"
	"polydelta/internal/config"
	"polydelta/internal/engine"
	"polydelta/internal/metrics"
	"polydelta/internal/polymarket"
	"polydelta/internal/positions"
	"polydelta/internal/server"
	"polydelta/internal/store"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file (env vars override it)")
	noEngine := flag.Bool("no-engine", false, "serve the API without the polling engine")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.LogLevel, cfg.LogFormat)

	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	m := metrics.New()

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Store unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.Ping(pingCtx); err != nil {
		slog.Warn("Store ping failed, continuing", "error", err)
	}
	cancelPing()

	var provider store.Provider = db
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		provider = store.NewCached(db, rdb, cfg.CacheTTL, slog.Default()).WithObserver(m)
		slog.Info("Redis cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	}

	var posDB *positions.DB
	if cfg.DBPath != "" {
		posDB, err = positions.NewDB(cfg.DBPath)
		if err != nil {
			slog.Warn("Position tracking disabled", "error", err)
			posDB = nil
		} else {
			defer posDB.Close()
		}
	}

	deps := server.Deps{
		Store:     provider,
		Depth:     polymarket.NewClient(cfg.CLOBBase),
		Assistant: assistant.NewOpenRouter(cfg.OpenRouterAPIKey, cfg.OpenRouterModel),
		Metrics:   m,
		Config:    cfg,
		Logger:    slog.Default(),
	}
	// keep the interface nil when tracking is off
	if posDB != nil {
		deps.Positions = posDB
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !*noEngine {
		var source engine.PositionSource
		if posDB != nil {
			source = posDB
		}
		notifier := alerts.NewNotifier(cfg.AlertCooldown, slog.Default())
		go engine.New(provider, source, notifier, m, cfg).Run(ctx)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.New(deps).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("PolyDelta started",
			"port", cfg.Port,
			"sports", cfg.Sports,
			"ev_threshold", cfg.EVThreshold,
			"taker_fee", cfg.TakerFee,
			"gas", cfg.GasCost,
			"positions", posDB != nil,
			"assistant", cfg.OpenRouterAPIKey != "",
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown error", "error", err)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		cfg := config.Load()
		return cfg, config.Validate(cfg)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return cfg, err
	}
	return cfg, config.Validate(cfg)
}

func setupLogger(levelName, format string) {
	var level slog.Level
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
