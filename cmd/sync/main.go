package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/sproutsync/sproutsync/internal/config"
	"github.com/sproutsync/sproutsync/internal/database"
	"github.com/sproutsync/sproutsync/internal/procare"
	"github.com/sproutsync/sproutsync/internal/repositories"
	"github.com/sproutsync/sproutsync/internal/services"
)

func main() {
	kidID := flag.String("kid", "", "sync only this child")
	since := flag.String("since", "", "override the lower bound date (YYYY-MM-DD), requires -kid")
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

	if *since != "" && *kidID == "" {
		logger.Error("-since requires -kid")
		os.Exit(1)
	}

	token, err := resolveToken(ctx, cfg)
	if err != nil {
		logger.Error("failed to authenticate", "error", err)
		os.Exit(1)
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

	// Evict cached summaries for synced children so the read API serves
	// fresh data without waiting for TTL expiry.
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

	client := newClient(cfg, token, cfg.ProcareAuthMode)

	if err := run(ctx, cfg, client, store, cache, logger, *kidID, *since); err != nil {
		logger.Error("sync failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, client *procare.Client, store repositories.Store, cache *repositories.SummaryCache, logger *slog.Logger, kidID, since string) error {
	err := runSync(ctx, cfg, client, store, cache, logger, kidID, since)

	// Some deployments reject bearer auth; retry once with the token in the
	// query string before giving up.
	var apiErr *procare.APIError
	if errors.As(err, &apiErr) && apiErr.IsAuthError() && client.AuthMode() == procare.AuthModeBearer {
		logger.Warn("bearer auth rejected, retrying with query auth", "status", apiErr.StatusCode)
		fallback := newClient(cfg, cfg.ProcareAuthToken, procare.AuthModeQuery)
		return runSync(ctx, cfg, fallback, store, cache, logger, kidID, since)
	}
	return err
}

func runSync(ctx context.Context, cfg *config.Config, client *procare.Client, store repositories.Store, cache *repositories.SummaryCache, logger *slog.Logger, kidID, since string) error {
	engine := services.NewSyncService(client, store, services.SyncOptions{
		SyncDaysBack: cfg.SyncDaysBack,
		Logger:       logger,
	})

	if kidID != "" {
		result, err := engine.SyncKid(ctx, kidID, since)
		if err != nil {
			return err
		}
		invalidateSummaries(ctx, cache, logger, kidID)
		logger.Info("sync complete",
			"kid_id", result.KidID,
			"stored_activities", result.StoredActivities,
			"since_date", result.SinceDate,
		)
		return nil
	}

	result, err := engine.SyncAll(ctx)
	if err != nil {
		return err
	}
	for _, kid := range result.PerKid {
		invalidateSummaries(ctx, cache, logger, kid.KidID)
	}
	logger.Info("sync complete",
		"children", result.SyncedChildren,
		"activities", result.SyncedActivities,
		"synced_at", result.SyncedAt,
	)
	return nil
}

// Cache eviction is best-effort; entries expire on their own anyway.
func invalidateSummaries(ctx context.Context, cache *repositories.SummaryCache, logger *slog.Logger, kidID string) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, kidID); err != nil {
		logger.Warn("failed to invalidate cached summaries", "kid_id", kidID, "error", err)
	}
}

// resolveToken prefers a static token; otherwise it logs in with
// credentials.
func resolveToken(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.ProcareAuthToken != "" {
		return cfg.ProcareAuthToken, nil
	}
	if cfg.ProcareEmail == "" || cfg.ProcarePassword == "" {
		return "", errors.New("PROCARE_AUTH_TOKEN or PROCARE_EMAIL and PROCARE_PASSWORD are required")
	}

	result, err := procare.Authenticate(ctx, procare.AuthOptions{
		Email:    cfg.ProcareEmail,
		Password: cfg.ProcarePassword,
		BaseURL:  cfg.ProcareAuthBaseURL,
	})
	if err != nil {
		return "", err
	}
	// Keep the token around for the query-auth fallback path.
	cfg.ProcareAuthToken = result.AuthToken
	return result.AuthToken, nil
}

func newClient(cfg *config.Config, token string, mode procare.AuthMode) *procare.Client {
	return procare.NewClient(procare.ClientOptions{
		AuthToken:          token,
		BaseURL:            cfg.ProcareAPIBaseURL,
		AuthMode:           mode,
		MinRequestInterval: cfg.MinRequestInterval,
	})
}
