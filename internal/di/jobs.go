package di

import (
	"fmt"
	"time"

	"github.com/aristath/alphaseeker/internal/config"
	"github.com/aristath/alphaseeker/internal/reliability"
	"github.com/aristath/alphaseeker/internal/scheduler"
	"github.com/rs/zerolog"
)

// priceRefreshTimeout bounds one scheduled refresh of every holding
const priceRefreshTimeout = 5 * time.Minute

// RegisterJobs creates the scheduler and registers the background jobs.
// The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.PortfolioService == nil {
		return fmt.Errorf("container services are not initialized")
	}

	sched := scheduler.New(log)

	refresh := scheduler.NewRefreshPricesJob(container.PortfolioService, priceRefreshTimeout, log)
	if err := sched.AddJob(cfg.PriceRefreshSchedule, refresh); err != nil {
		return fmt.Errorf("failed to register %s job: %w", refresh.Name(), err)
	}

	maintenance := reliability.NewMaintenanceJob(container.PortfolioDB, cfg.DataDir, log)
	if err := sched.AddJob(cfg.MaintenanceSchedule, maintenance); err != nil {
		return fmt.Errorf("failed to register %s job: %w", maintenance.Name(), err)
	}

	if container.BackupService != nil {
		backup := scheduler.NewBackupSnapshotJob(container.BackupService, cfg.Backup.RetentionDays, log)
		if err := sched.AddJob(cfg.Backup.Schedule, backup); err != nil {
			return fmt.Errorf("failed to register %s job: %w", backup.Name(), err)
		}
	}

	container.Scheduler = sched
	return nil
}
