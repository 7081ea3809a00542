package events

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDataTypes(t *testing.T) {
	cases := []struct {
		data     EventData
		expected EventType
	}{
		{&PortfolioChangedData{}, PortfolioChanged},
		{&PricesRefreshedData{}, PricesRefreshed},
		{&StrategyUpdatedData{}, StrategyUpdated},
		{&SettlementConfigUpdatedData{}, SettlementConfigUpdated},
		{&BackupCompletedData{}, BackupCompleted},
		{&SystemStatusChangedData{}, SystemStatusChanged},
		{&ErrorEventData{}, ErrorOccurred},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, tc.data.EventType())
	}
}

func TestBus_SubscribeByType(t *testing.T) {
	bus := NewBus()
	var got []EventType
	bus.Subscribe(PortfolioChanged, func(e *Event) { got = append(got, e.Type) })

	bus.Publish(&Event{Type: PortfolioChanged})
	bus.Publish(&Event{Type: PricesRefreshed})

	assert.Equal(t, []EventType{PortfolioChanged}, got)
}

func TestBus_SubscribeAllAndUnsubscribe(t *testing.T) {
	bus := NewBus()
	count := 0
	id := bus.SubscribeAll(func(*Event) { count++ })
	typed := bus.Subscribe(PricesRefreshed, func(*Event) { count += 10 })
	require.Equal(t, 2, bus.SubscriberCount())

	bus.Publish(&Event{Type: PricesRefreshed})
	assert.Equal(t, 11, count)

	bus.Unsubscribe(id)
	bus.Unsubscribe(typed)
	bus.Publish(&Event{Type: PricesRefreshed})
	assert.Equal(t, 11, count)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(*Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(&Event{Type: PortfolioChanged})
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, count)
}

func TestManager_EmitLogsAndPublishes(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus()
	manager := NewManager(bus, zerolog.New(&buf))

	var received *Event
	bus.Subscribe(PortfolioChanged, func(e *Event) { received = e })

	manager.EmitTyped("portfolio", &PortfolioChangedData{Action: "buy", Symbol: "518880", Holdings: 1})

	require.NotNil(t, received)
	assert.Equal(t, "portfolio", received.Module)
	assert.Equal(t, "buy", received.Data["action"])
	assert.Equal(t, "518880", received.Data["symbol"])
	assert.Contains(t, buf.String(), `"event_type":"PORTFOLIO_CHANGED"`)
	assert.Contains(t, buf.String(), "Event emitted")
}

func TestManager_EmitError(t *testing.T) {
	bus := NewBus()
	manager := NewManager(bus, zerolog.Nop())

	var received *Event
	bus.Subscribe(ErrorOccurred, func(e *Event) { received = e })

	manager.EmitError("pricing", errors.New("upstream down"), map[string]interface{}{"symbol": "518880"})

	require.NotNil(t, received)
	assert.Equal(t, "upstream down", received.Data["error"])
}

func TestManager_NilBusIsLogOnly(t *testing.T) {
	manager := NewManager(nil, zerolog.Nop())

	assert.NotPanics(t, func() {
		manager.Emit(PricesRefreshed, "scheduler", nil)
	})
}
