package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/alphaseeker/internal/modules/portfolio"
	"github.com/aristath/alphaseeker/internal/reliability"
	"github.com/rs/zerolog"
)

// PriceRefresher re-prices every holding. *portfolio.Service satisfies it.
type PriceRefresher interface {
	RefreshPrices(ctx context.Context) (portfolio.RefreshResult, error)
}

// RefreshPricesJob refreshes holding prices within a deadline
type RefreshPricesJob struct {
	refresher PriceRefresher
	timeout   time.Duration
	log       zerolog.Logger
}

// NewRefreshPricesJob creates the price refresh job
func NewRefreshPricesJob(refresher PriceRefresher, timeout time.Duration, log zerolog.Logger) *RefreshPricesJob {
	return &RefreshPricesJob{
		refresher: refresher,
		timeout:   timeout,
		log:       log.With().Str("job", "refresh_prices").Logger(),
	}
}

// Name returns the job name
func (j *RefreshPricesJob) Name() string {
	return "refresh_prices"
}

// Run executes the price refresh
func (j *RefreshPricesJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	result, err := j.refresher.RefreshPrices(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh prices: %w", err)
	}

	j.log.Info().
		Int("requested", result.Requested).
		Int("updated", result.Updated).
		Int("failed", len(result.Failed)).
		Msg("Price refresh completed")
	return nil
}

// SnapshotBackuper takes and rotates snapshot backups. *reliability.BackupService satisfies it.
type SnapshotBackuper interface {
	BackupNow(ctx context.Context) (reliability.BackupInfo, error)
	RotateOldBackups(ctx context.Context, retentionDays int) (int, error)
}

// BackupSnapshotJob uploads a snapshot and rotates old backups
type BackupSnapshotJob struct {
	backups       SnapshotBackuper
	retentionDays int
	timeout       time.Duration
	log           zerolog.Logger
}

// NewBackupSnapshotJob creates the backup job
func NewBackupSnapshotJob(backups SnapshotBackuper, retentionDays int, log zerolog.Logger) *BackupSnapshotJob {
	return &BackupSnapshotJob{
		backups:       backups,
		retentionDays: retentionDays,
		timeout:       2 * time.Minute,
		log:           log.With().Str("job", "backup_snapshot").Logger(),
	}
}

// Name returns the job name
func (j *BackupSnapshotJob) Name() string {
	return "backup_snapshot"
}

// Run uploads the backup; rotation failures are logged only
func (j *BackupSnapshotJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.backups.BackupNow(ctx); err != nil {
		return err
	}

	if _, err := j.backups.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}
