package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/alphaseeker/internal/modules/portfolio"
	"github.com/aristath/alphaseeker/internal/reliability"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) RefreshPrices(ctx context.Context) (portfolio.RefreshResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(portfolio.RefreshResult), args.Error(1)
}

type mockBackuper struct {
	mock.Mock
}

func (m *mockBackuper) BackupNow(ctx context.Context) (reliability.BackupInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(reliability.BackupInfo), args.Error(1)
}

func (m *mockBackuper) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	args := m.Called(ctx, retentionDays)
	return args.Int(0), args.Error(1)
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("0 0 20 * * MON-FRI", &countingJob{name: "refresh_prices"}))
	require.NoError(t, s.AddJob("@daily", &countingJob{name: "backup_snapshot"}))
	require.NoError(t, s.AddJob("*/5 * * * *", &countingJob{name: "five_field"}))
	assert.Error(t, s.AddJob("whenever", &countingJob{name: "bad"}))

	s.Start()
	defer s.Stop()

	jobs := s.Jobs()
	require.Len(t, jobs, 3)
	assert.Equal(t, "backup_snapshot", jobs[0].Name)
	assert.NotEmpty(t, jobs[0].NextRun)
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "tick", err: errors.New("failures are logged, not fatal")}

	require.NoError(t, s.AddJob("@every 1s", job))
	s.Start()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "manual"}

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestScheduler_RunByName(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "refresh_prices"}
	require.NoError(t, s.AddJob("@daily", job))

	require.NoError(t, s.RunByName("refresh_prices"))
	assert.Equal(t, int32(1), job.runs.Load())

	err := s.RunByName("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRefreshPricesJob(t *testing.T) {
	refresher := &mockRefresher{}
	refresher.On("RefreshPrices", mock.MatchedBy(func(ctx context.Context) bool {
		_, hasDeadline := ctx.Deadline()
		return hasDeadline
	})).Return(portfolio.RefreshResult{Requested: 3, Updated: 2, Failed: []string{"QQQ"}}, nil).Once()
	refresher.On("RefreshPrices", mock.Anything).
		Return(portfolio.RefreshResult{}, errors.New("store offline")).Once()

	job := NewRefreshPricesJob(refresher, time.Minute, zerolog.Nop())
	assert.Equal(t, "refresh_prices", job.Name())

	require.NoError(t, job.Run())
	assert.ErrorContains(t, job.Run(), "store offline")
	refresher.AssertExpectations(t)
}

func TestBackupSnapshotJob(t *testing.T) {
	t.Run("uploads and rotates", func(t *testing.T) {
		backups := &mockBackuper{}
		backups.On("BackupNow", mock.Anything).Return(reliability.BackupInfo{Key: "k"}, nil)
		backups.On("RotateOldBackups", mock.Anything, 30).Return(0, errors.New("list failed"))

		job := NewBackupSnapshotJob(backups, 30, zerolog.Nop())
		assert.Equal(t, "backup_snapshot", job.Name())
		require.NoError(t, job.Run(), "rotation failures do not fail the job")
		backups.AssertExpectations(t)
	})

	t.Run("upload failure skips rotation", func(t *testing.T) {
		backups := &mockBackuper{}
		backups.On("BackupNow", mock.Anything).Return(reliability.BackupInfo{}, errors.New("denied"))

		job := NewBackupSnapshotJob(backups, 30, zerolog.Nop())
		assert.ErrorContains(t, job.Run(), "denied")
		backups.AssertNotCalled(t, "RotateOldBackups", mock.Anything, mock.Anything)
	})
}
