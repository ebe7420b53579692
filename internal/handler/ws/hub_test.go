package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ComicScout/internal/domain/models"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/deals"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func newServer(t *testing.T, h *Hub) *httptest.Server {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func readSnapshot(t *testing.T, conn *websocket.Conn) models.DealsSnapshot {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var snap models.DealsSnapshot
	require.NoError(t, conn.ReadJSON(&snap))
	return snap
}

func TestHubSendsLatestOnConnect(t *testing.T) {
	h := NewHub(nil)
	h.Broadcast(models.DealsSnapshot{EventID: "first"})
	srv := newServer(t, h)

	conn := dial(t, srv)
	assert.Equal(t, "first", readSnapshot(t, conn).EventID)
}

func TestHubBroadcastsToSubscribers(t *testing.T) {
	h := NewHub(nil)
	srv := newServer(t, h)
	a := dial(t, srv)
	b := dial(t, srv)

	require.Eventually(t, func() bool { return h.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	h.Broadcast(models.DealsSnapshot{EventID: "evt-2", MinScore: 25})
	assert.Equal(t, "evt-2", readSnapshot(t, a).EventID)
	snap := readSnapshot(t, b)
	assert.Equal(t, "evt-2", snap.EventID)
	assert.Equal(t, 25.0, snap.MinScore)
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	h := NewHub(nil)
	srv := newServer(t, h)
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return h.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubClose(t *testing.T) {
	h := NewHub(nil)
	srv := newServer(t, h)
	dial(t, srv)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	h.Close()
	assert.Equal(t, 0, h.Clients())
}
