// Package app assembles the engine. Initialization follows strict dependency
// order: metrics → feed → store → collaborator adapters → presence →
// dispatcher → controller → websocket → API → HTTP server.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/SaranshG2501/LifePath-sub000/internal/api"
	"github.com/SaranshG2501/LifePath-sub000/internal/classroom"
	"github.com/SaranshG2501/LifePath-sub000/internal/config"
	"github.com/SaranshG2501/LifePath-sub000/internal/feed"
	"github.com/SaranshG2501/LifePath-sub000/internal/notify"
	"github.com/SaranshG2501/LifePath-sub000/internal/observability"
	"github.com/SaranshG2501/LifePath-sub000/internal/presence"
	"github.com/SaranshG2501/LifePath-sub000/internal/reflection"
	"github.com/SaranshG2501/LifePath-sub000/internal/scenario"
	"github.com/SaranshG2501/LifePath-sub000/internal/store"
	"github.com/SaranshG2501/LifePath-sub000/internal/teacher"
	ws "github.com/SaranshG2501/LifePath-sub000/internal/websocket"
)

// Application owns every long-lived component and the HTTP server.
type Application struct {
	cfg        *config.Config
	metrics    *observability.Metrics
	feed       *feed.Feed
	store      *store.Store
	scenarios  *scenario.Store
	rosters    *classroom.RosterStore
	tracker    *presence.Tracker
	dispatcher *notify.Dispatcher
	controller *teacher.Controller
	httpServer *http.Server
}

// NewApplication builds a fully wired application from configuration.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	metrics := observability.NewMetrics("lifepath")
	changeFeed := feed.New(cfg.Feed.BufferSize, metrics)

	sessionStore, err := store.Open(store.Options{
		Path:      cfg.Database.Path,
		Timeout:   cfg.Database.Timeout,
		Publisher: changeFeed,
		Metrics:   metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	scenarios := scenario.NewStore()
	if cfg.Scenario.Path != "" {
		if err := scenarios.LoadFile(cfg.Scenario.Path); err != nil {
			_ = sessionStore.Close()
			return nil, err
		}
	}

	rosters := classroom.NewRosterStore()
	tracker := presence.NewTracker(sessionStore, cfg.Presence.MinInterval)
	dispatcher := notify.NewDispatcher(sessionStore, metrics)
	controller := teacher.NewController(sessionStore, scenarios, rosters, dispatcher, metrics)
	gate := reflection.NewGate(time.Now().UnixNano(), 0.5)
	wsHandler := ws.NewHandler(sessionStore, changeFeed, dispatcher, tracker, cfg.WebSocket)
	apiServer := api.NewServer(controller, sessionStore, scenarios, rosters, tracker, gate, wsHandler, metrics)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      apiServer,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		cfg:        cfg,
		metrics:    metrics,
		feed:       changeFeed,
		store:      sessionStore,
		scenarios:  scenarios,
		rosters:    rosters,
		tracker:    tracker,
		dispatcher: dispatcher,
		controller: controller,
		httpServer: httpServer,
	}, nil
}

// Start serves HTTP until the listener fails or Stop is called.
func (a *Application) Start() error {
	log.Printf("app: listening on %s", a.httpServer.Addr)
	if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop shuts everything down in reverse dependency order.
func (a *Application) Stop(ctx context.Context) error {
	log.Println("app: shutting down")

	if err := a.httpServer.Shutdown(ctx); err != nil {
		log.Printf("app: HTTP shutdown error: %v", err)
	}
	a.dispatcher.Close()
	a.feed.Close()
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}

	log.Println("app: shutdown complete")
	return nil
}

// Controller exposes the teacher command side for embedding and tests.
func (a *Application) Controller() *teacher.Controller { return a.controller }

// Store exposes the session store for embedding and tests.
func (a *Application) Store() *store.Store { return a.store }

// Feed exposes the change feed for embedding and tests.
func (a *Application) Feed() *feed.Feed { return a.feed }

// Rosters exposes the roster adapter for embedding and tests.
func (a *Application) Rosters() *classroom.RosterStore { return a.rosters }

// Tracker exposes the presence tracker for embedding and tests.
func (a *Application) Tracker() *presence.Tracker { return a.tracker }

// Dispatcher exposes the notification dispatcher for embedding and tests.
func (a *Application) Dispatcher() *notify.Dispatcher { return a.dispatcher }
