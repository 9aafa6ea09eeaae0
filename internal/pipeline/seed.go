package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"grifttracker/internal/adapter"
	"grifttracker/internal/config"
	"grifttracker/internal/models"
	"grifttracker/internal/repository"
)

// SeedSources upserts the configured source descriptors so a fresh
// deployment polls without manual registration. Existing rows keep their
// health state; only the fetch settings are refreshed.
func SeedSources(ctx context.Context, repo repository.Repository, cfg config.SourcesConfig, logger *zap.Logger) error {
	for _, seed := range cfg.Seed {
		if _, err := adapter.ForKind(adapter.Kind(seed.Kind), logger); err != nil {
			return fmt.Errorf("seed source %q: %w", seed.Name, err)
		}
		desc := &models.SourceDescriptor{
			Name:         seed.Name,
			Kind:         seed.Kind,
			Endpoint:     seed.Endpoint,
			AuthTokenEnv: seed.AuthTokenEnv,
			RateLimit:    seed.RateLimit,
			RatePeriod:   seed.RatePeriod.String(),
			Enabled:      seed.Enabled,
		}
		if err := repo.UpsertSourceDescriptor(ctx, desc); err != nil {
			return fmt.Errorf("seed source %q: %w", seed.Name, err)
		}
		logger.Info("source registered",
			zap.String("name", seed.Name), zap.String("kind", seed.Kind), zap.Bool("enabled", seed.Enabled))
	}
	return nil
}
