package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Nyumat/NyumatFlix-sub000/internal/api"
	"github.com/Nyumat/NyumatFlix-sub000/internal/auth"
	"github.com/Nyumat/NyumatFlix-sub000/internal/cache"
	"github.com/Nyumat/NyumatFlix-sub000/internal/catalog"
	"github.com/Nyumat/NyumatFlix-sub000/internal/config"
	"github.com/Nyumat/NyumatFlix-sub000/internal/database"
	"github.com/Nyumat/NyumatFlix-sub000/internal/logging"
	"github.com/Nyumat/NyumatFlix-sub000/internal/services"
)

const (
	genreWarmupInterval  = 12 * time.Hour
	cacheCleanupInterval = time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("server.config.invalid", "error", err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	logger, logCloser := logging.Setup(logging.Options{Level: level, Format: cfg.LogFormat, File: cfg.LogFile})
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("server.starting", "addr", cfg.Addr(), "language", cfg.Language, "region", cfg.Region)

	ctx := context.Background()

	// Upstream response cache, with Redis when configured
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("server.redis.unavailable", "error", err)
			redisClient = nil
		} else {
			logger.Info("server.redis.connected")
		}
	}
	cacheManager, err := cache.NewManager(cfg.CacheSize, redisClient, logger)
	if err != nil {
		logger.Error("server.cache.init_failed", "error", err)
		os.Exit(1)
	}
	defer cacheManager.Close()

	tmdbClient := services.NewTMDBClient(cfg.TMDBAPIKey, services.TMDBOptions{
		BaseURL:   cfg.TMDBBaseURL,
		Language:  cfg.Language,
		Timeout:   cfg.TMDBTimeout,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Retries:   uint(cfg.Retries),
		Cache:     cacheManager,
		CacheTTL:  cfg.CacheTTL,
		GenreTTL:  cfg.GenreCacheTTL,
		Logger:    logger,
	})

	cat := catalog.New(tmdbClient, catalog.Options{
		Language:          cfg.Language,
		Region:            cfg.Region,
		FetchConcurrency:  cfg.FetchConcurrency,
		EnrichConcurrency: cfg.EnrichConcurrency,
		GenreTTL:          cfg.GenreCacheTTL,
		Logger:            logger,
	})

	// Watchlist store
	var (
		db        *sql.DB
		watchlist api.WatchlistRepository
		validator *auth.Validator
	)
	if cfg.WatchlistEnabled() {
		db, err = database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("server.database.unavailable", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := database.Migrate(db, "up"); err != nil {
			logger.Error("server.database.migrate_failed", "error", err)
			os.Exit(1)
		}
		watchlist = database.NewWatchlistStore(db)
		validator = auth.NewValidator(cfg.JWTSecret)
		logger.Info("server.watchlist.enabled")
	} else {
		logger.Info("server.watchlist.disabled", "reason", "DATABASE_URL and AUTH_JWT_SECRET are both required")
	}

	// Background services
	scheduler := services.NewServiceScheduler(logger)
	if err := scheduler.AddJob(services.ServiceGenreWarmup, "Refreshes movie and TV genre tables",
		genreWarmupInterval, time.Minute, cat.WarmGenres); err != nil {
		logger.Error("server.scheduler.init_failed", "service", services.ServiceGenreWarmup, "error", err)
		os.Exit(1)
	}
	if err := scheduler.AddJob(services.ServiceCacheCleanup, "Drops expired upstream responses from memory",
		cacheCleanupInterval, time.Minute, func(context.Context) error {
			removed := cacheManager.Cleanup()
			logger.Debug("cache.cleanup.completed", "removed", removed)
			return nil
		}); err != nil {
		logger.Error("server.scheduler.init_failed", "service", services.ServiceCacheCleanup, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	go func() {
		if err := scheduler.RunNow(ctx, services.ServiceGenreWarmup); err != nil {
			logger.Warn("server.genre_warmup.skipped", "error", err)
		}
	}()

	handler := api.NewHandler(cat, api.Options{
		Scheduler: scheduler,
		Cache:     cacheManager,
		Watchlist: watchlist,
		Validator: validator,
		Logger:    logger,
	})

	// Rows can take several sequential upstream pages, plus enrichment
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.SetupRoutes(handler),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server.listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("server.shutting_down", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server.listen_failed", "error", err)
	}

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server.shutdown.forced", "error", err)
	}

	logger.Info("server.stopped")
}
