package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// newTestConnPair upgrades a loopback WebSocket and returns the
// server-side wrapper plus the raw client side for reading.
func newTestConnPair(t *testing.T) (*Connection, *gws.Conn) {
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

	conn := NewConnection(<-serverCh)
	t.Cleanup(func() { conn.Close() })

	return conn, client
}
