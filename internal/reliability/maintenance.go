package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/alphaseeker/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

const (
	criticalFreeBytes = 100 << 20 // halts maintenance
	lowFreeBytes      = 1 << 30
)

// MaintenanceJob checks database integrity, truncates the WAL, watches free disk space
// and compacts the database once a week.
type MaintenanceJob struct {
	db        *database.DB
	dataDir   string
	vacuumDay time.Weekday
	timeout   time.Duration
	log       zerolog.Logger
	now       func() time.Time
	diskUsage func(path string) (*disk.UsageStat, error)
}

// NewMaintenanceJob creates the database maintenance job
func NewMaintenanceJob(db *database.DB, dataDir string, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		db:        db,
		dataDir:   dataDir,
		vacuumDay: time.Sunday,
		timeout:   5 * time.Minute,
		log:       log.With().Str("job", "db_maintenance").Logger(),
		now:       time.Now,
		diskUsage: disk.Usage,
	}
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "db_maintenance"
}

// Run executes the maintenance steps in order
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	j.log.Info().Msg("Starting database maintenance")
	start := time.Now()

	if err := j.db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Msg("CRITICAL: database integrity check failed")
		return fmt.Errorf("integrity check failed: %w", err)
	}

	// Not fatal: the next run retries
	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	if j.now().Weekday() == j.vacuumDay {
		if err := j.vacuum(ctx); err != nil {
			j.log.Error().Err(err).Msg("VACUUM failed")
		}
	}

	j.log.Info().Dur("duration_ms", time.Since(start)).Msg("Database maintenance completed")
	return nil
}

func (j *MaintenanceJob) checkDiskSpace() error {
	usage, err := j.diskUsage(j.dataDir)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to read disk usage")
		return nil
	}

	freeMB := float64(usage.Free) / 1024 / 1024
	switch {
	case usage.Free < criticalFreeBytes:
		j.log.Error().Float64("free_mb", freeMB).Msg("CRITICAL: insufficient disk space")
		return fmt.Errorf("only %.0f MB free in %s", freeMB, j.dataDir)
	case usage.Free < lowFreeBytes:
		j.log.Warn().Float64("free_mb", freeMB).Msg("Disk space running low")
	default:
		j.log.Debug().Float64("free_mb", freeMB).Float64("used_percent", usage.UsedPercent).Msg("Disk space check")
	}
	return nil
}

func (j *MaintenanceJob) vacuum(ctx context.Context) error {
	before, err := j.db.GetStats()
	if err != nil {
		return err
	}
	if _, err := j.db.Conn().ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("VACUUM failed: %w", err)
	}
	after, err := j.db.GetStats()
	if err != nil {
		return err
	}

	j.log.Info().
		Int64("pages_before", before.PageCount).
		Int64("pages_after", after.PageCount).
		Int64("reclaimed_bytes", (before.PageCount-after.PageCount)*after.PageSize).
		Msg("VACUUM completed")
	return nil
}
