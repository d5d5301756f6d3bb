package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sproutsync/sproutsync/internal/api"
	"github.com/sproutsync/sproutsync/internal/config"
	"github.com/sproutsync/sproutsync/internal/database"
	"github.com/sproutsync/sproutsync/internal/repositories"
	"github.com/sproutsync/sproutsync/internal/services"
)

func main() {
	issueToken := flag.String("issue-token", "", "issue an API token for the named consumer and exit")
	flag.Parse()

	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var tokens *services.TokenService
	if cfg.JWTSecret != "" {
		tokens = services.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)
	}

	if *issueToken != "" {
		if tokens == nil {
			logger.Error("JWT_SECRET is required to issue tokens")
			os.Exit(1)
		}
		token, expiresAt, err := tokens.Generate(*issueToken)
		if err != nil {
			logger.Error("failed to issue token", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
		logger.Info("issued token", "subject", *issueToken, "expires_at", expiresAt.Format(time.RFC3339))
		return
	}

	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer postgresPool.Close()

	if err := database.Migrate(ctx, postgresPool); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	store := repositories.NewPostgresStore(postgresPool)

	// The summary cache is optional; without REDIS_URL every summary read
	// goes to Postgres.
	var cache *repositories.SummaryCache
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to create redis client", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		cache = repositories.NewSummaryCache(redisClient, repositories.DefaultSummaryTTL)
	}

	if tokens == nil {
		logger.Warn("JWT_SECRET not set, API authentication disabled")
	}

	apiServer := api.NewServer(store, cache, tokens, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: apiServer.Router(),
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	logger.Info("starting server", "port", cfg.ServerPort)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
