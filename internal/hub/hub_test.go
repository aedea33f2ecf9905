package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qaboard/internal/maintenance"
	"qaboard/internal/websocket"
	"qaboard/pkg/types"
)

func newTestHub(t *testing.T) (*Hub, *websocket.Registry, *maintenance.Machine) {
	t.Helper()

	registry := websocket.NewRegistry()
	maint := maintenance.New()
	h := NewHub(registry, maint, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, h.Start(ctx))
	t.Cleanup(func() { _ = h.Stop() })

	return h, registry, maint
}

// newTestConnPair upgrades a loopback WebSocket and returns the
// server-side wrapper plus the raw client side.
func newTestConnPair(t *testing.T) (*websocket.Connection, *gws.Conn) {
	t.Helper()

	serverCh := make(chan *gws.Conn, 1)
	up := gws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverCh <- ws
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, resp, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { client.Close() })

	conn := websocket.NewConnection(<-serverCh)
	t.Cleanup(func() { conn.Close() })

	return conn, client
}

func readEvent(t *testing.T, client *gws.Conn) types.Event {
	t.Helper()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)

	var event types.Event
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func expectNoEvent(t *testing.T, client *gws.Conn) {
	t.Helper()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := client.ReadMessage()
	assert.Error(t, err, "no event expected")
}

func TestHub_StartStop(t *testing.T) {
	registry := websocket.NewRegistry()
	h := NewHub(registry, maintenance.New(), zerolog.Nop())

	ctx := context.Background()
	require.NoError(t, h.Start(ctx))
	assert.ErrorIs(t, h.Start(ctx), ErrHubAlreadyRunning)

	require.NoError(t, h.Stop())
	assert.ErrorIs(t, h.Stop(), ErrHubNotRunning)
}

func TestHub_BroadcastReachesAllConnections(t *testing.T) {
	h, registry, _ := newTestHub(t)

	var clients []*gws.Conn
	for i := 0; i < 3; i++ {
		conn, client := newTestConnPair(t)
		require.NoError(t, registry.Register(conn))
		clients = append(clients, client)
	}

	h.Broadcast(types.Event{Type: types.EventQuestionsCleared})

	for _, client := range clients {
		event := readEvent(t, client)
		assert.Equal(t, types.EventQuestionsCleared, event.Type)
	}
}

func TestHub_BroadcastExceptSkipsExcluded(t *testing.T) {
	h, registry, _ := newTestHub(t)

	sender, senderClient := newTestConnPair(t)
	other, otherClient := newTestConnPair(t)
	require.NoError(t, registry.Register(sender))
	require.NoError(t, registry.Register(other))

	h.BroadcastExcept(types.Event{Type: types.EventTyping}, sender.ID())

	event := readEvent(t, otherClient)
	assert.Equal(t, types.EventTyping, event.Type)

	expectNoEvent(t, senderClient)
}

func TestHub_FailedConnectionDoesNotBlockOthers(t *testing.T) {
	h, registry, _ := newTestHub(t)

	broken, _ := newTestConnPair(t)
	healthy, healthyClient := newTestConnPair(t)
	require.NoError(t, registry.Register(broken))
	require.NoError(t, registry.Register(healthy))

	// The broken connection stays registered but can no longer accept
	// writes; delivery to the healthy one must still happen.
	require.NoError(t, broken.Close())

	h.Broadcast(types.Event{Type: types.EventQuestionDeleted})

	event := readEvent(t, healthyClient)
	assert.Equal(t, types.EventQuestionDeleted, event.Type)
}

func TestHub_OnConnectSendsWelcomeAndMaintenanceSync(t *testing.T) {
	h, registry, maint := newTestHub(t)
	maint.Enable("down for a bit", "", 0)

	conn, client := newTestConnPair(t)
	h.OnConnect(conn)
	assert.Equal(t, 1, registry.Count())

	welcome := readEvent(t, client)
	assert.Equal(t, types.EventConnected, welcome.Type)

	sync := readEvent(t, client)
	require.Equal(t, types.EventMaintenance, sync.Type)
	payload, ok := sync.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, payload["status"])
	assert.Equal(t, "down for a bit", payload["message"])
}

func TestHub_OnDisconnectBroadcastsUserLeft(t *testing.T) {
	h, registry, _ := newTestHub(t)

	leaving, _ := newTestConnPair(t)
	leaving.SetUsername("alice")
	watcher, watcherClient := newTestConnPair(t)
	require.NoError(t, registry.Register(leaving))
	require.NoError(t, registry.Register(watcher))

	h.OnDisconnect(leaving)
	assert.Equal(t, 1, registry.Count())

	event := readEvent(t, watcherClient)
	require.Equal(t, types.EventUserLeft, event.Type)
	payload, ok := event.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, leaving.ID(), payload["id"])
	assert.Equal(t, "alice", payload["username"])

	// A second disconnect of the same connection is silent.
	h.OnDisconnect(leaving)
	expectNoEvent(t, watcherClient)
}

func TestHub_EvictAllClearsRegistry(t *testing.T) {
	h, registry, _ := newTestHub(t)

	for i := 0; i < 3; i++ {
		conn, _ := newTestConnPair(t)
		require.NoError(t, registry.Register(conn))
	}
	require.Equal(t, 3, registry.Count())

	h.EvictAll(types.Event{Type: types.EventMaintenance})
	assert.Zero(t, registry.Count())
	assert.Zero(t, h.Count())
}

func TestHub_MembersIntrospection(t *testing.T) {
	h, registry, _ := newTestHub(t)

	conn, _ := newTestConnPair(t)
	conn.SetUsername("bob")
	require.NoError(t, registry.Register(conn))

	assert.Equal(t, 1, h.Count())
	members := h.Members()
	require.Len(t, members, 1)
	assert.Equal(t, "bob", members[0].Username)
}
