package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"qaboard/internal/ai"
	"qaboard/internal/api"
	"qaboard/internal/config"
	"qaboard/internal/hub"
	"qaboard/internal/maintenance"
	"qaboard/internal/session"
	"qaboard/internal/store"
	"qaboard/internal/websocket"
	"qaboard/pkg/types"
)

// Application wires all components together and owns their lifecycle.
// Initialization follows dependency order:
// Store → Sessions → Maintenance → Registry → Hub → Generator → API → HTTP.
type Application struct {
	cfg        *config.Config
	log        zerolog.Logger
	store      *store.Store
	sessions   *session.Manager
	maint      *maintenance.Machine
	registry   *websocket.Registry
	eventHub   *hub.Hub
	apiServer  *api.Server
	httpServer *http.Server
}

// NewApplication builds a fully wired application from configuration.
func NewApplication(cfg *config.Config, log zerolog.Logger) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	contentStore := store.New()
	sessions := session.NewManager(cfg.Admin.Username, cfg.Admin.Password, cfg.Session.TokenSecret, cfg.Session.TokenTTL)
	maint := maintenance.New()
	registry := websocket.NewRegistry()
	eventHub := hub.NewHub(registry, maint, log)

	// Every maintenance transition broadcasts the new snapshot. Hard
	// evict mode closes all connections when maintenance turns on.
	hardEvict := cfg.Maintenance.Evict == config.EvictHard
	maint.SetOnChange(func(status types.MaintenanceStatus) {
		event := types.Event{Type: types.EventMaintenance, Payload: status}
		if status.Active && hardEvict {
			eventHub.EvictAll(event)
			return
		}
		eventHub.Broadcast(event)
	})

	generator := ai.NewClient(ai.Config{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	}, log)

	apiServer := api.NewServer(contentStore, sessions, maint, eventHub, generator, log)
	wsHandler := websocket.NewHandler(eventHub, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)
	mux.Handle("/", apiServer)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		cfg:        cfg,
		log:        log,
		store:      contentStore,
		sessions:   sessions,
		maint:      maint,
		registry:   registry,
		eventHub:   eventHub,
		apiServer:  apiServer,
		httpServer: httpServer,
	}, nil
}

// Start launches the hub and the HTTP server.
func (a *Application) Start(ctx context.Context) error {
	a.log.Info().Str("addr", a.httpServer.Addr).Msg("starting qaboard")

	if err := a.eventHub.Start(ctx); err != nil {
		return fmt.Errorf("starting hub: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		_ = a.eventHub.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		a.log.Info().Msg("qaboard started")
		return nil
	case <-ctx.Done():
		_ = a.eventHub.Stop()
		return ctx.Err()
	}
}

// Stop shuts everything down in reverse dependency order.
func (a *Application) Stop(ctx context.Context) error {
	a.log.Info().Msg("shutting down qaboard")

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Warn().Err(err).Msg("HTTP shutdown error")
	}

	for _, conn := range a.registry.Clear() {
		_ = conn.Close()
	}

	if err := a.eventHub.Stop(); err != nil {
		a.log.Warn().Err(err).Msg("hub shutdown error")
	}

	a.log.Info().Msg("qaboard shutdown complete")
	return nil
}

// Addr returns the server address.
func (a *Application) Addr() string {
	return a.httpServer.Addr
}
