package di

import (
	"context"
	"fmt"

	"github.com/aristath/alphaseeker/internal/clients/advisor"
	"github.com/aristath/alphaseeker/internal/clients/eastmoney"
	"github.com/aristath/alphaseeker/internal/clients/pricing"
	"github.com/aristath/alphaseeker/internal/config"
	"github.com/aristath/alphaseeker/internal/events"
	"github.com/aristath/alphaseeker/internal/modules/portfolio"
	"github.com/aristath/alphaseeker/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeServices creates the repositories, clients and services and loads the
// persisted portfolio
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.PortfolioDB == nil {
		return fmt.Errorf("container has no portfolio database")
	}

	container.SnapshotRepo = portfolio.NewSnapshotRepository(container.PortfolioDB.Conn(), log)

	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)

	// Eastmoney first for Chinese fund codes, then the static table for the rest
	container.EastmoneyClient = eastmoney.NewClient(
		cfg.Pricing.EastmoneyBaseURL,
		cfg.Pricing.LookupTimeout,
		cfg.Pricing.RequestDelay,
		log,
	)
	container.PriceResolver = pricing.NewChain(log,
		pricing.NamedResolver{Name: eastmoney.SourceName, Resolver: container.EastmoneyClient},
		pricing.NamedResolver{Name: pricing.FallbackSourceName, Resolver: pricing.NewFallbackResolver(nil)},
	)

	container.PortfolioService = portfolio.NewService(
		container.SnapshotRepo,
		container.PriceResolver,
		container.EventManager,
		log,
	)
	if err := container.PortfolioService.Load(ctx); err != nil {
		return fmt.Errorf("failed to load portfolio: %w", err)
	}

	if cfg.Backup.Enabled() {
		store, err := reliability.NewS3Store(ctx, cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to initialize backup store: %w", err)
		}
		container.BackupService = reliability.NewBackupService(
			store,
			container.PortfolioService,
			container.EventManager,
			cfg.Backup.Prefix,
			log,
		)
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Snapshot backups enabled")
	}

	if cfg.Advisor.Enabled() {
		client, err := advisor.NewClient(ctx, cfg.Advisor.APIKey, cfg.Advisor.Model, log)
		if err != nil {
			return fmt.Errorf("failed to initialize advisor: %w", err)
		}
		container.Advisor = client
		log.Info().Str("model", client.Model()).Msg("Strategy advisor enabled")
	}

	return nil
}
