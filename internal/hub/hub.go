package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"qaboard/internal/maintenance"
	"qaboard/internal/websocket"
	"qaboard/pkg/types"
)

const eventBufferSize = 256

// outbound is one serialized event queued for fan-out. exceptID excludes
// a single connection from delivery.
type outbound struct {
	data     []byte
	exceptID string
}

// Hub fans typed events out to every registered connection. It owns the
// connection registry: connections enter and leave only through the
// OnConnect/OnDisconnect hooks. Delivery is best-effort — a failure on
// one connection never aborts delivery to the others and never surfaces
// to the caller.
type Hub struct {
	registry *websocket.Registry
	maint    *maintenance.Machine
	log      zerolog.Logger

	events   chan outbound
	shutdown chan struct{}

	mu      sync.RWMutex
	running bool
}

// NewHub creates a hub around the given registry and maintenance machine.
func NewHub(registry *websocket.Registry, maint *maintenance.Machine, log zerolog.Logger) *Hub {
	return &Hub{
		registry: registry,
		maint:    maint,
		log:      log.With().Str("component", "hub").Logger(),
		events:   make(chan outbound, eventBufferSize),
		shutdown: make(chan struct{}),
	}
}

// Start begins the fan-out loop.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return ErrHubAlreadyRunning
	}
	h.running = true
	h.mu.Unlock()

	go h.run(ctx)
	return nil
}

// Stop shuts the fan-out loop down. Queued events are dropped.
func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return ErrHubNotRunning
	}
	h.running = false

	select {
	case <-h.shutdown:
	default:
		close(h.shutdown)
	}
	return nil
}

// Broadcast queues an event for delivery to every registered connection.
func (h *Hub) Broadcast(event types.Event) {
	h.BroadcastExcept(event, "")
}

// BroadcastExcept queues an event for every registered connection except
// the one identified by exceptID.
func (h *Hub) BroadcastExcept(event types.Event, exceptID string) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("event", event.Type).Msg("event serialization failed")
		return
	}

	select {
	case h.events <- outbound{data: data, exceptID: exceptID}:
	default:
		// Fire-and-forget contract: a saturated queue drops the event
		// rather than blocking the mutating request.
		h.log.Warn().Str("event", event.Type).Msg("event queue full, dropping")
	}
}

// OnConnect registers a new connection and sends it — and only it — the
// welcome event and the current maintenance snapshot.
func (h *Hub) OnConnect(conn *websocket.Connection) {
	if err := h.registry.Register(conn); err != nil {
		h.log.Error().Err(err).Msg("connection registration failed")
		return
	}

	welcome := types.Event{
		Type:    types.EventConnected,
		Payload: map[string]any{"message": "Welcome", "id": conn.ID()},
	}
	if err := conn.SendJSON(welcome); err != nil {
		h.log.Debug().Err(err).Str("member", conn.ID()).Msg("welcome send failed")
	}

	sync := types.Event{Type: types.EventMaintenance, Payload: h.maint.Status()}
	if err := conn.SendJSON(sync); err != nil {
		h.log.Debug().Err(err).Str("member", conn.ID()).Msg("maintenance sync failed")
	}

	h.log.Info().Str("member", conn.ID()).Int("connections", h.registry.Count()).Msg("member connected")
}

// OnDisconnect removes a connection and announces the departure with the
// member's last known identity.
func (h *Hub) OnDisconnect(conn *websocket.Connection) {
	if !h.registry.Unregister(conn) {
		return
	}

	member := conn.Member()
	h.log.Info().Str("member", member.ID).Int("connections", h.registry.Count()).Msg("member disconnected")
	h.Broadcast(types.Event{Type: types.EventUserLeft, Payload: member})
}

// EvictAll delivers the event synchronously to every connection, then
// closes them all and clears the registry. Used for hard maintenance
// entry.
func (h *Hub) EvictAll(event types.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("event", event.Type).Msg("event serialization failed")
		data = nil
	}

	conns := h.registry.Clear()
	for _, conn := range conns {
		if data != nil {
			_ = conn.Send(data)
		}
		_ = conn.Close()
	}

	h.log.Info().Int("evicted", len(conns)).Msg("all members evicted")
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	return h.registry.Count()
}

// Members lists the identities of all live connections.
func (h *Hub) Members() []types.Member {
	return h.registry.Members()
}

// run drains the event queue and fans each event out.
func (h *Hub) run(ctx context.Context) {
	defer h.log.Debug().Msg("hub stopped")

	for {
		select {
		case out := <-h.events:
			h.fanOut(out)
		case <-h.shutdown:
			return
		case <-ctx.Done():
			return
		}
	}
}

// fanOut delivers one serialized event to every connection except the
// excluded one. Individual failures are logged and absorbed.
func (h *Hub) fanOut(out outbound) {
	for _, conn := range h.registry.All() {
		if out.exceptID != "" && conn.ID() == out.exceptID {
			continue
		}
		if err := conn.Send(out.data); err != nil {
			h.log.Debug().Err(err).Str("member", conn.ID()).Msg("delivery failed")
		}
	}
}
