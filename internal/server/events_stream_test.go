package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/alphaseeker/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// readSSE returns the JSON payload of the next "data:" line
func readSSE(t *testing.T, reader *bufio.Reader) map[string]interface{} {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg))
		return msg
	}
}

func TestParseTypeFilter(t *testing.T) {
	assert.Nil(t, parseTypeFilter(""))
	assert.Nil(t, parseTypeFilter("  "))

	filter := parseTypeFilter("PORTFOLIO_CHANGED, PRICES_REFRESHED,")
	assert.Len(t, filter, 2)
	assert.True(t, filter[events.PortfolioChanged])
	assert.True(t, filter[events.PricesRefreshed])
}

func TestSubscribe_DropsWhenFull(t *testing.T) {
	bus := events.NewBus()
	ch, unsubscribe := subscribe(bus, nil, zerolog.Nop())

	for i := 0; i < streamBufferSize+10; i++ {
		bus.Publish(&events.Event{Type: events.PortfolioChanged})
	}
	assert.Len(t, ch, streamBufferSize)

	unsubscribe()
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestEventsStream_SSE(t *testing.T) {
	env := newTestEnv(t, false)
	srv := httptest.NewServer(env.server.Router())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/api/events/stream?types=PORTFOLIO_CHANGED", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	assert.Equal(t, "connected", readSSE(t, reader)["type"])

	// Filtered out, then delivered
	env.manager.Emit(events.PricesRefreshed, "portfolio", map[string]interface{}{"updated": 1})
	require.NoError(t, env.service.SetCash(context.Background(), 2000))

	msg := readSSE(t, reader)
	assert.Equal(t, "PORTFOLIO_CHANGED", msg["type"])
	assert.Equal(t, "portfolio", msg["module"])
	data, ok := msg["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "set_cash", data["action"])
}

func TestEventsStream_Heartbeat(t *testing.T) {
	bus := events.NewBus()
	handler := NewEventsStreamHandler(bus, zerolog.Nop())
	handler.heartbeat = 20 * time.Millisecond

	srv := httptest.NewServer(handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, "connected", readSSE(t, reader)["type"])
	assert.Equal(t, "heartbeat", readSSE(t, reader)["type"])
}

func TestEventsStream_WebSocket(t *testing.T) {
	env := newTestEnv(t, false)
	srv := httptest.NewServer(env.server.Router())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var msg map[string]interface{}
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, "connected", msg["type"])

	require.NoError(t, env.service.RecordLoss(context.Background(), 10))

	msg = nil
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, "PORTFOLIO_CHANGED", msg["type"])
	assert.NotEmpty(t, msg["timestamp"])
}
