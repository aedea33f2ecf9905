package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"qaboard/pkg/types"
)

const (
	pongWait         = 60 * time.Second
	pingInterval     = 30 * time.Second
	controlWriteWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	CheckOrigin: func(r *http.Request) bool {
		// The board is an open service; origin policy matches the
		// allow-all CORS configuration of the HTTP API.
		return true
	},
}

// Lifecycle is the subset of the hub the handler needs: connection
// lifecycle hooks plus sender-excluding fan-out for inbound messages.
type Lifecycle interface {
	OnConnect(conn *Connection)
	OnDisconnect(conn *Connection)
	BroadcastExcept(event types.Event, exceptID string)
}

// Handler upgrades HTTP requests to WebSocket connections and runs their
// read loop.
type Handler struct {
	hub Lifecycle
	log zerolog.Logger
}

// NewHandler creates a WebSocket handler bound to the given hub.
func NewHandler(hub Lifecycle, log zerolog.Logger) *Handler {
	return &Handler{
		hub: hub,
		log: log.With().Str("component", "websocket").Logger(),
	}
}

// HandleWebSocket upgrades the request, registers the connection and
// starts reading client messages.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := NewConnection(ws)
	h.hub.OnConnect(conn)

	go h.readLoop(conn)
}

// readLoop handles inbound messages and keeps the connection alive with
// ping/pong heartbeats. It owns cleanup: on exit the connection is
// removed from the registry and closed.
func (h *Handler) readLoop(conn *Connection) {
	defer func() {
		h.hub.OnDisconnect(conn)
		_ = conn.Close()
	}()

	if err := conn.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	go h.pingLoop(conn)

	for {
		msgType, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Debug().Err(err).Str("member", conn.ID()).Msg("read error")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var msg types.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Debug().Err(err).Str("member", conn.ID()).Msg("malformed client message")
			continue
		}

		h.dispatch(conn, msg)
	}
}

// dispatch routes a client message. Unknown types are ignored.
func (h *Handler) dispatch(conn *Connection, msg types.ClientMessage) {
	switch msg.Type {
	case types.MessageSetUsername:
		if !conn.SetUsername(msg.Username) {
			return
		}
		h.log.Debug().Str("member", conn.ID()).Str("username", conn.Username()).Msg("member named")
		h.hub.BroadcastExcept(types.Event{
			Type:    types.EventUserJoined,
			Payload: conn.Member(),
		}, conn.ID())

	case types.MessageTyping:
		h.hub.BroadcastExcept(types.Event{
			Type: types.EventTyping,
			Payload: map[string]string{
				"questionId": msg.QuestionID,
				"username":   conn.Username(),
			},
		}, conn.ID())
	}
}

// pingLoop sends heartbeats until the connection is closed.
func (h *Handler) pingLoop(conn *Connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(controlWriteWait)
			if err := conn.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-conn.Done():
			return
		}
	}
}
