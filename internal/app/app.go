package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"overlayserver/internal/acquisition"
	"overlayserver/internal/catalog"
	"overlayserver/internal/config"
	"overlayserver/internal/handlers"
	"overlayserver/internal/logger"
	"overlayserver/internal/media"
	"overlayserver/internal/repository/sqlite"
	"overlayserver/internal/routes"
	"overlayserver/internal/services"
	"overlayserver/internal/services/emitter"
	"overlayserver/internal/services/storage"
	"overlayserver/internal/services/websocket"
	"overlayserver/internal/session"
	"overlayserver/internal/surface"
	"overlayserver/internal/vision"
)

const (
	bindingBufferLimit = 1000
	shutdownTimeout    = 5 * time.Second
)

type App struct {
	config        *config.Config
	logger        *logger.Logger
	db            *sqlite.DB
	tracker       *vision.Tracker
	adapter       *surface.Adapter
	bufferService *storage.BufferService
	hubService    *websocket.HubService
	mqtt          *emitter.MQTTEmitter
	manager       *services.Manager
	fetches       *sqlite.FetchRepository
	bindings      *sqlite.BindingRepository
}

// NewApp loads the catalog, opens the audit database and wires the
// recognition pipeline. Nothing runs until Run is called.
func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	descriptors, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	fetches := sqlite.NewFetchRepository(db)
	bindings := sqlite.NewBindingRepository(db)
	buffer := storage.NewBufferService(bindings, bindingBufferLimit, log)
	hub := websocket.NewHubService(log)

	tracker := vision.NewTracker(vision.Options{
		QueueSize:  cfg.FrameQueueSize,
		MinMatches: cfg.MinMatches,
		Ratio:      cfg.MatchRatio,
	}, log)

	player := media.NewGstPlayer(media.Options{VideoSink: cfg.VideoSink, AudioSink: cfg.AudioSink}, log)
	adapter := surface.NewAdapter(player, surface.Options{
		Width:  cfg.SurfaceWidth,
		Height: cfg.SurfaceHeight,
		Volume: cfg.Volume,
	}, log)

	acquirer := acquisition.NewAcquirer(acquisition.NewFetcher(cfg.FetchTimeout), vision.Decoder{}, cfg.PhysicalWidth)

	a := &App{
		config:        cfg,
		logger:        log,
		db:            db,
		tracker:       tracker,
		adapter:       adapter,
		bufferService: buffer,
		hubService:    hub,
		fetches:       fetches,
		bindings:      bindings,
	}

	var publishers []services.Publisher
	if cfg.MQTTBroker != "" {
		a.mqtt = emitter.NewMQTTEmitter(emitter.Options{
			Broker:   cfg.MQTTBroker,
			Topic:    cfg.MQTTTopic,
			ClientID: cfg.MQTTClientID,
		}, log)
		publishers = append(publishers, a.mqtt)
	}

	a.manager = services.NewManager(services.Dependencies{
		Catalog:    descriptors,
		Acquirer:   acquirer,
		Session:    session.NewManager(tracker),
		Surface:    adapter,
		Frames:     tracker,
		Viewers:    hub,
		Publishers: publishers,
		Fetches:    fetches,
		Bindings:   buffer,
	}, services.Options{
		BarrierPolicy: acquisition.Policy(cfg.BarrierPolicy),
		StrictBinding: cfg.StrictBinding,
	}, log)
	tracker.OnAnchor(a.manager.HandleAnchor)

	return a, nil
}

// Run serves HTTP and UDP camera traffic until ctx is done, then shuts
// everything down in order.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.mqtt != nil {
		if err := a.mqtt.Connect(ctx); err != nil {
			a.logger.Warning("MQTT unavailable, events go to viewers only: %v", err)
		}
		defer a.mqtt.Disconnect()
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); a.hubService.Run(ctx) }()
	go func() { defer wg.Done(); a.bufferService.Run(ctx, a.config.BindingFlushInterval) }()
	go func() { defer wg.Done(); handlers.UDPCameraHandler(ctx, a.manager, a.logger, a.config) }()
	a.tracker.Start(ctx)
	go a.manager.Run(ctx)

	router := routes.SetupRoutes(routes.Dependencies{
		Manager:  a.manager,
		Viewers:  a.hubService,
		Fetches:  a.fetches,
		Bindings: a.bindings,
	}, a.config, a.logger)

	addr := fmt.Sprintf(":%d", a.config.Port)
	server := &http.Server{Addr: addr, Handler: router}

	a.logger.Info("🚀 Overlay Server")
	a.logger.Info("📍 URL: http://localhost%s", addr)
	a.logger.Info("📷 Cameras: UDP port %d", a.config.CamerasPort)
	a.logger.Info("📚 Catalog: %s", a.config.CatalogPath)
	a.logger.Info("💾 Database: %s", a.config.DatabasePath)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down server...")
	case runErr = <-serverErr:
		a.logger.Error("Server failed: %v", runErr)
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Server shutdown failed: %v", err)
	}

	// The manager releases every overlay on the way out; wait for those
	// pipelines, and any still opening, to reach NULL before returning.
	cancel()
	a.manager.Wait()
	a.adapter.Wait()
	wg.Wait()
	return runErr
}

// Close releases OpenCV resources and the database. Run must have returned.
func (a *App) Close() error {
	a.tracker.Close()
	return a.db.Close()
}
