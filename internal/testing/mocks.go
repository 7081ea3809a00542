package testing

import (
	"context"
	"sync"

	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/aristath/alphaseeker/internal/events"
	"github.com/stretchr/testify/mock"
)

// MockPriceResolver is a testify mock of domain.PriceResolver
type MockPriceResolver struct {
	mock.Mock
}

// Resolve returns the configured quote for a symbol
func (m *MockPriceResolver) Resolve(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PriceQuote), args.Error(1)
}

// MockSnapshotStore is a testify mock of domain.SnapshotStore
type MockSnapshotStore struct {
	mock.Mock
}

// Save records the snapshot
func (m *MockSnapshotStore) Save(ctx context.Context, snapshot domain.Snapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

// Load returns the configured snapshot
func (m *MockSnapshotStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

// MemorySnapshotStore is an in-memory domain.SnapshotStore that keeps every save
type MemorySnapshotStore struct {
	mu    sync.Mutex
	saves []domain.Snapshot
	err   error
}

// NewMemorySnapshotStore creates an empty in-memory store
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

// SetError makes subsequent saves fail
func (s *MemorySnapshotStore) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Save stores a snapshot
func (s *MemorySnapshotStore) Save(_ context.Context, snapshot domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saves = append(s.saves, snapshot)
	return nil
}

// Load returns the latest snapshot or nil
func (s *MemorySnapshotStore) Load(_ context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saves) == 0 {
		return nil, nil
	}
	latest := s.saves[len(s.saves)-1]
	return &latest, nil
}

// SaveCount returns how many snapshots were saved
func (s *MemorySnapshotStore) SaveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

// RecordingEmitter captures typed events
type RecordingEmitter struct {
	mu     sync.Mutex
	events []events.EventData
}

// EmitTyped records an event
func (r *RecordingEmitter) EmitTyped(_ string, data events.EventData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
}

// Types returns the recorded event types in order
func (r *RecordingEmitter) Types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

// Last returns the most recent event, or nil
func (r *RecordingEmitter) Last() events.EventData {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}
