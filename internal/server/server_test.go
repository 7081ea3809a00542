package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aristath/alphaseeker/internal/clients/advisor"
	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/aristath/alphaseeker/internal/events"
	"github.com/aristath/alphaseeker/internal/modules/portfolio"
	"github.com/aristath/alphaseeker/internal/reliability"
	"github.com/aristath/alphaseeker/internal/scheduler"
	testingpkg "github.com/aristath/alphaseeker/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobs struct {
	mu  sync.Mutex
	ran []string
	err error
}

func (f *fakeJobs) Jobs() []scheduler.JobStatus {
	return []scheduler.JobStatus{
		{Name: "backup_snapshot", NextRun: "2024-03-02T00:00:00Z"},
		{Name: "refresh_prices", NextRun: "2024-03-01T20:00:00Z"},
	}
}

func (f *fakeJobs) RunByName(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, name)
	return f.err
}

type fakeBackups struct {
	backups  []reliability.BackupInfo
	restored string
	err      error
}

func (f *fakeBackups) BackupNow(ctx context.Context) (reliability.BackupInfo, error) {
	if f.err != nil {
		return reliability.BackupInfo{}, f.err
	}
	info := reliability.BackupInfo{Key: "alphaseeker/snapshot-20240301-120000.msgpack", SizeBytes: 512}
	f.backups = append([]reliability.BackupInfo{info}, f.backups...)
	return info, nil
}

func (f *fakeBackups) ListBackups(ctx context.Context) ([]reliability.BackupInfo, error) {
	return f.backups, f.err
}

func (f *fakeBackups) Restore(ctx context.Context, key string) (domain.Snapshot, error) {
	if !strings.HasSuffix(key, ".msgpack") {
		return domain.Snapshot{}, fmt.Errorf("%w: %s", reliability.ErrInvalidBackupKey, key)
	}
	f.restored = key
	return testingpkg.NewSnapshotFixture(), nil
}

type fakeAdvisor struct {
	input advisor.Input
	err   error
}

func (f *fakeAdvisor) Model() string { return "test-model" }

func (f *fakeAdvisor) GenerateReport(ctx context.Context, in advisor.Input) (string, error) {
	f.input = in
	if f.err != nil {
		return "", f.err
	}
	return "## 策略报告", nil
}

type testEnv struct {
	server   *Server
	service  *portfolio.Service
	manager  *events.Manager
	jobs     *fakeJobs
	backups  *fakeBackups
	advisor  *fakeAdvisor
	handlers *SystemHandlers
}

func newTestEnv(t *testing.T, withOptional bool) *testEnv {
	t.Helper()

	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	t.Cleanup(cleanup)

	store := testingpkg.NewMemorySnapshotStore()
	require.NoError(t, store.Save(context.Background(), testingpkg.NewSnapshotFixture()))

	manager := events.NewManager(events.NewBus(), zerolog.Nop())
	service := portfolio.NewService(store, nil, manager, zerolog.Nop())
	require.NoError(t, service.Load(context.Background()))

	env := &testEnv{
		service: service,
		manager: manager,
		jobs:    &fakeJobs{},
		backups: &fakeBackups{},
		advisor: &fakeAdvisor{},
	}

	cfg := Config{
		Log:          zerolog.Nop(),
		DataDir:      t.TempDir(),
		DB:           db,
		Portfolio:    service,
		EventManager: manager,
		Jobs:         env.jobs,
		Port:         0,
		Version:      "test",
	}
	if withOptional {
		cfg.Backups = env.backups
		cfg.Advisor = env.advisor
	}

	env.server = New(cfg)
	env.handlers = env.server.systemHandlers
	env.handlers.cpuPercent = func() (float64, error) { return 12.5, nil }
	env.handlers.memory = func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{UsedPercent: 40, Used: 512 * 1024 * 1024}, nil
	}
	env.handlers.hostUptime = func() (uint64, error) { return 3600, nil }
	env.handlers.diskUsage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 2048 * 1024 * 1024}, nil
	}
	env.handlers.runInflight = func(fn func()) { fn() }
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do("GET", "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "alphaseeker", body["service"])
	assert.Equal(t, "test", body["version"])
}

func TestModuleRoutesMounted(t *testing.T) {
	env := newTestEnv(t, false)

	for _, path := range []string{
		"/api/portfolio/",
		"/api/portfolio/summary",
		"/api/allocation/",
		"/api/allocation/strategy",
		"/api/settlement/",
		"/api/settlement/config",
		"/api/system/jobs",
	} {
		rec := env.do("GET", path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), path)
	}
}

func TestOptionalRoutesAbsentWhenUnconfigured(t *testing.T) {
	env := newTestEnv(t, false)

	assert.Equal(t, http.StatusNotFound, env.do("GET", "/api/backups/", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do("POST", "/api/advisor/report", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, false)

	req := httptest.NewRequest("OPTIONS", "/api/portfolio/summary", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestSystemStatus(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do("GET", "/api/system/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, 12.5, status.CPUPercent)
	assert.Equal(t, 40.0, status.MemoryPercent)
	assert.Equal(t, 512.0, status.MemoryUsedMB)
	assert.Equal(t, 2048.0, status.DiskFreeMB)
	assert.Equal(t, uint64(3600), status.HostUptimeSeconds)
	require.NotNil(t, status.Database)
	assert.Greater(t, status.Database.PageSize, int64(0))
	assert.Len(t, status.Jobs, 2)
	assert.Empty(t, status.Warnings)
}

func TestSystemStatus_ProbeFailuresAreWarnings(t *testing.T) {
	env := newTestEnv(t, false)
	env.handlers.cpuPercent = func() (float64, error) { return 0, errors.New("no procfs") }

	status := env.handlers.GetSystemStatusSnapshot()
	assert.Equal(t, "healthy", status.Status)
	require.Len(t, status.Warnings, 1)
	assert.Contains(t, status.Warnings[0], "no procfs")
}

func TestTriggerJob(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do("POST", "/api/system/jobs/refresh_prices/run", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"refresh_prices"}, env.jobs.ran)

	rec = env.do("POST", "/api/system/jobs/unknown/run", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, env.jobs.ran, 1)
}

func TestBackupRoutes(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do("GET", "/api/backups/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, 0.0, body["count"])
	assert.Equal(t, []interface{}{}, body["backups"])

	rec = env.do("POST", "/api/backups/", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "alphaseeker/snapshot-20240301-120000.msgpack", decodeBody(t, rec)["key"])

	rec = env.do("POST", "/api/backups/restore", `{"key":"alphaseeker/snapshot-20240301-120000.msgpack"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 4.0, decodeBody(t, rec)["holdings"])
	assert.Equal(t, "alphaseeker/snapshot-20240301-120000.msgpack", env.backups.restored)

	rec = env.do("POST", "/api/backups/restore", `{"key":"notes.txt"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do("POST", "/api/backups/restore", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.backups.err = errors.New("bucket unreachable")
	rec = env.do("POST", "/api/backups/", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "bucket unreachable")
}

func TestAdvisorReport(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do("POST", "/api/advisor/report", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "test-model", body["model"])
	assert.Equal(t, "## 策略报告", body["report"])
	assert.Len(t, env.advisor.input.Holdings, 4)
	assert.Equal(t, env.service.Summary().TotalValue, env.advisor.input.Summary.TotalValue)

	rec = env.do("POST", "/api/advisor/report", `{"objective":"保本"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "保本", env.advisor.input.Objective)

	rec = env.do("POST", "/api/advisor/report", `{bad`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.advisor.err = advisor.ErrEmptyReport
	rec = env.do("POST", "/api/advisor/report", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStatusMonitor_EmitsOnTransitions(t *testing.T) {
	env := newTestEnv(t, false)

	var received []*events.Event
	env.manager.Bus().Subscribe(events.SystemStatusChanged, func(e *events.Event) {
		received = append(received, e)
	})

	monitor := NewStatusMonitor(env.manager, env.handlers, zerolog.Nop())
	monitor.checkStatus()
	monitor.checkStatus()
	require.Len(t, received, 1, "unchanged status is not re-emitted")
	assert.Equal(t, true, received[0].Data["healthy"])
	assert.Equal(t, 12.5, received[0].Data["cpu_percent"])

	monitor.Stop()
	monitor.Stop()
}
