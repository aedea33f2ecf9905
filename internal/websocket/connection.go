package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"qaboard/pkg/types"
)

const (
	sendBufferSize = 100
	writeTimeout   = 5 * time.Second
)

// Connection wraps a WebSocket connection with a single-writer goroutine
// so concurrent broadcasts never race on the underlying socket. Each
// connection carries an ephemeral member identity: a fresh ID assigned on
// construction and a display name settable once.
type Connection struct {
	ws        *websocket.Conn
	sendCh    chan []byte
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu       sync.RWMutex
	id       string
	username string
	named    bool
}

// NewConnection wraps an upgraded WebSocket connection and starts its
// writer goroutine. The member starts as an unnamed guest.
func NewConnection(ws *websocket.Conn) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		ws:       ws,
		sendCh:   make(chan []byte, sendBufferSize),
		ctx:      ctx,
		cancel:   cancel,
		id:       uuid.New().String(),
		username: types.GuestName,
	}

	go c.writeLoop()

	return c
}

// writeLoop is the single writer for the underlying socket.
func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.sendCh:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// Send queues pre-serialized data for delivery. It never blocks: a full
// buffer or a closed connection returns an error the caller may ignore
// for best-effort delivery.
func (c *Connection) Send(data []byte) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.sendCh <- data:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

// SendJSON serializes v and queues it for delivery.
func (c *Connection) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Send(data)
}

// Close shuts the connection down exactly once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.ws.Close()
	})
	return err
}

// Done is closed when the connection has been shut down.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// ID returns the ephemeral member identifier.
func (c *Connection) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// Username returns the current display name.
func (c *Connection) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

// SetUsername assigns the display name. The name is settable once per
// connection; later attempts and empty names are rejected.
func (c *Connection) SetUsername(name string) bool {
	name = types.NormalizeUsername(name)
	if name == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.named {
		return false
	}
	c.username = name
	c.named = true
	return true
}

// Member returns the connection's identity snapshot.
func (c *Connection) Member() types.Member {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return types.Member{ID: c.id, Username: c.username}
}
