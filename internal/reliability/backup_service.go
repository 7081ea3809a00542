// Package reliability keeps the portfolio recoverable: off-site snapshot backups and
// routine database maintenance.
package reliability

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/aristath/alphaseeker/internal/events"
	"github.com/aristath/alphaseeker/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

const (
	backupFilePrefix = "snapshot-"
	backupFileSuffix = ".msgpack"
	backupTimeLayout = "20060102-150405"

	// minBackupsToKeep survive rotation regardless of age
	minBackupsToKeep = 3
)

// ErrInvalidBackupKey is returned when a key does not name a snapshot backup
var ErrInvalidBackupKey = errors.New("invalid backup key")

// SnapshotSource is the portfolio state being backed up and restored.
// *portfolio.Service satisfies it.
type SnapshotSource interface {
	Snapshot() domain.Snapshot
	Restore(ctx context.Context, snapshot domain.Snapshot) error
}

// EventEmitter publishes backup events
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// BackupInfo represents a snapshot backup stored in the object store
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// BackupService writes msgpack snapshots of the portfolio to an object store
type BackupService struct {
	store   ObjectStore
	source  SnapshotSource
	emitter EventEmitter
	prefix  string
	log     zerolog.Logger
	now     func() time.Time
}

// NewBackupService creates a backup service writing under prefix
func NewBackupService(store ObjectStore, source SnapshotSource, emitter EventEmitter, prefix string, log zerolog.Logger) *BackupService {
	return &BackupService{
		store:   store,
		source:  source,
		emitter: emitter,
		prefix:  strings.Trim(prefix, "/"),
		log:     log.With().Str("service", "backup").Logger(),
		now:     time.Now,
	}
}

// KeyFor returns the object key of a backup taken at t
func (s *BackupService) KeyFor(t time.Time) string {
	name := backupFilePrefix + t.UTC().Format(backupTimeLayout) + backupFileSuffix
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// BackupNow encodes the current snapshot and uploads it
func (s *BackupService) BackupNow(ctx context.Context) (BackupInfo, error) {
	start := s.now()
	snapshot := s.source.Snapshot()

	data, err := portfolio.EncodeSnapshot(snapshot, portfolio.FormatMsgpack)
	if err != nil {
		return BackupInfo{}, err
	}

	key := s.KeyFor(start)
	if err := s.store.Put(ctx, key, data); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("Snapshot backup failed")
		return BackupInfo{}, fmt.Errorf("failed to upload backup: %w", err)
	}

	info := BackupInfo{
		Key:       key,
		Timestamp: start.UTC().Truncate(time.Second),
		SizeBytes: int64(len(data)),
	}

	s.log.Info().
		Str("key", key).
		Int64("size_bytes", info.SizeBytes).
		Int("holdings", len(snapshot.Ledger.Holdings)).
		Dur("duration_ms", s.now().Sub(start)).
		Msg("Snapshot backup completed")

	if s.emitter != nil {
		s.emitter.EmitTyped("reliability", &events.BackupCompletedData{Key: key, SizeBytes: info.SizeBytes})
	}
	return info, nil
}

// ListBackups returns the stored backups, newest first
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	listPrefix := backupFilePrefix
	if s.prefix != "" {
		listPrefix = s.prefix + "/" + backupFilePrefix
	}

	objects, err := s.store.List(ctx, listPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		ts, err := parseBackupKey(obj.Key)
		if err != nil {
			s.log.Warn().Str("key", obj.Key).Msg("Skipping object that is not a snapshot backup")
			continue
		}
		backups = append(backups, BackupInfo{
			Key:       obj.Key,
			Timestamp: ts,
			SizeBytes: obj.SizeBytes,
			AgeHours:  int64(now.Sub(ts).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// Restore downloads a backup and replaces the portfolio state with it
func (s *BackupService) Restore(ctx context.Context, key string) (domain.Snapshot, error) {
	if _, err := parseBackupKey(key); err != nil {
		return domain.Snapshot{}, err
	}

	data, err := s.store.Get(ctx, key)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to download backup: %w", err)
	}

	snapshot, err := portfolio.DecodeSnapshot(data, portfolio.FormatMsgpack)
	if err != nil {
		return domain.Snapshot{}, err
	}

	if err := s.source.Restore(ctx, snapshot); err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to restore snapshot: %w", err)
	}

	s.log.Info().
		Str("key", key).
		Int("holdings", len(snapshot.Ledger.Holdings)).
		Msg("Portfolio restored from backup")
	return snapshot, nil
}

// RotateOldBackups deletes backups older than the retention period.
// The newest minBackupsToKeep are always kept; retentionDays 0 keeps everything.
func (s *BackupService) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= minBackupsToKeep {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, backup := range backups[minBackupsToKeep:] {
		if !backup.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, backup.Key); err != nil {
			s.log.Error().Err(err).Str("key", backup.Key).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")
	return deleted, nil
}

func parseBackupKey(key string) (time.Time, error) {
	name := path.Base(key)
	if !strings.HasPrefix(name, backupFilePrefix) || !strings.HasSuffix(name, backupFileSuffix) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidBackupKey, key)
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, backupFilePrefix), backupFileSuffix)
	ts, err := time.Parse(backupTimeLayout, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidBackupKey, key)
	}
	return ts, nil
}
