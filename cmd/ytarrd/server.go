package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	v1 "github.com/vmunix/ytarr/internal/api/v1"
	"github.com/vmunix/ytarr/internal/config"
	"github.com/vmunix/ytarr/internal/manifest"
	"github.com/vmunix/ytarr/internal/materializer"
	"github.com/vmunix/ytarr/internal/migrations"
	"github.com/vmunix/ytarr/internal/server"
	"github.com/vmunix/ytarr/internal/source"
	"github.com/vmunix/ytarr/internal/sync"
	"github.com/vmunix/ytarr/internal/ytdlp"
)

// historyRetentionDays bounds how far back sync history is kept.
const historyRetentionDays = 90

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 200 { // Only capture first WriteHeader call
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func runServer(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// Create logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))

	// Ensure database directory exists
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite", cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	// Run migrations
	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// Tracked sources and runtime settings live in a JSON document next
	// to the database. The config file only seeds the initial values.
	registry, err := source.Load(filepath.Join(dbDir, "sources.json"), source.Settings{
		ServerAddress:         cfg.Server.Address,
		CheckIntervalMinutes:  cfg.Sync.CheckIntervalMinutes,
		MediaPath:             cfg.Media.Root,
		Paused:                cfg.Sync.Paused,
		MaintainManifestCache: cfg.Manifest.Maintain,
	})
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}

	// === Services ===
	ytClient := ytdlp.New(cfg.YTDLP.Binary, cfg.YTDLP.Cookies, logger.With("component", "ytdlp"))
	mat := materializer.New(nil, ytClient, logger.With("component", "materializer"))

	store := manifest.NewStore(cfg.Manifest.CacheDir)
	if err := store.Ensure(); err != nil {
		return fmt.Errorf("manifest cache: %w", err)
	}
	resolver := manifest.NewResolver(ytClient, store, nil, logger.With("component", "manifest"))

	historyStore := sync.NewHistoryStore(db)
	if n, err := historyStore.Prune(time.Now().AddDate(0, 0, -historyRetentionDays)); err != nil {
		logger.Warn("history prune failed", "error", err)
	} else if n > 0 {
		logger.Info("pruned old sync history", "records", n)
	}

	engine := sync.NewEngine(registry, ytClient, mat, resolver, historyStore,
		time.Duration(cfg.Sync.ItemCooldownSeconds)*time.Second,
		logger.With("component", "sync"))

	// === Background Jobs ===
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := server.NewRunner(registry, engine, resolver, logger.With("component", "runner"))
	runnerDone := make(chan error, 1)
	go func() { runnerDone <- runner.Run(ctx) }()

	// === HTTP Setup ===
	mux := http.NewServeMux()

	apiV1 := v1.New(v1.Config{
		Registry: registry,
		Engine:   engine,
		Resolver: resolver,
		Streamer: ytClient,
		History:  historyStore,
		Logger:   logger.With("component", "api"),
		Version:  version,
		BaseCtx:  ctx,
	})
	apiV1.RegisterRoutes(mux)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("server starting",
		"addr", addr,
		"database", cfg.Database.Path,
		"media_root", cfg.Media.Root,
		"sources", len(registry.Snapshot()),
		"maintain_manifests", cfg.Manifest.Maintain,
		"log_level", cfg.Server.LogLevel,
	)

	// === HTTP Server ===
	srv := &http.Server{Addr: addr, Handler: logRequests(mux, logger)}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig.String())

	// Cancel background loops and wait for them to wind down
	cancel()
	<-runnerDone

	// Graceful HTTP shutdown with 30s timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
