// FilePath: internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itsatony/soundscape/hub/api"
	"github.com/itsatony/soundscape/hub/internal/config"
	"github.com/itsatony/soundscape/hub/internal/database"
	"github.com/itsatony/soundscape/hub/internal/hubservice"
	"github.com/itsatony/soundscape/hub/internal/live"
	"github.com/itsatony/soundscape/hub/internal/monitoring"
	"github.com/itsatony/soundscape/hub/internal/repository"
	"github.com/itsatony/soundscape/hub/internal/repository/files"
	"github.com/itsatony/soundscape/hub/internal/repository/firestore"
	"github.com/itsatony/soundscape/hub/internal/repository/memory"
	"github.com/itsatony/soundscape/hub/internal/repository/postgres"
	"github.com/itsatony/soundscape/hub/internal/repository/redis"
	nuts "github.com/vaudience/go-nuts"
)

const connectTimeout = 10 * time.Second

// Server represents our HTTP server
type Server struct {
	config     *config.Config
	srv        *http.Server
	hubservice *hubservice.HubService
	monitoring *monitoring.Service
	cancel     context.CancelFunc
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout would cut off websocket clients
		IdleTimeout: 2 * cfg.Server.ReadTimeout,
	}

	return &Server{
		config: cfg,
		srv:    srv,
		monitoring: monitoring.NewService(monitoring.Config{
			Retention: time.Hour,
		}),
	}
}

// Start connects the backends, begins listening for requests and blocks
// until an interrupt arrives
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	svc, err := initializeHubService(ctx, s.config, s.monitoring)
	if err != nil {
		cancel()
		return err
	}
	s.hubservice = svc

	// Set up cleanup event handlers
	s.setupCleanupHandlers()

	if err := s.hubservice.Start(ctx); err != nil {
		cancel()
		return err
	}

	s.srv.Handler = api.NewRouter(s.hubservice, s.config.Server)

	// Start server
	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	// Closing the hub first ends the websocket streams so Shutdown can finish
	if err := s.hubservice.Close(ctx); err != nil {
		nuts.L.Errorf("[Server] Error releasing resources: %v", err)
	}
	s.cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

func (s *Server) setupCleanupHandlers() {
	for _, name := range []string{"store", "cache", "monitor", "publisher"} {
		event := name + ".released"
		s.hubservice.Cleanup.OnCleanup(event, func(id string) {
			s.monitoring.RecordEvent("resource_released", map[string]string{
				"resource": id,
			})
		})
	}
}

// initializeHubService creates and configures the hub service
func initializeHubService(ctx context.Context, cfg *config.Config, mon *monitoring.Service) (*hubservice.HubService, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	monitor := live.NewMonitor(store, streamsFromConfig(cfg.Subscriptions)).
		WithProbeLimit(cfg.Subscriptions.DiagnosticLimit)

	svc := hubservice.New(store, monitor, openCache(ctx, cfg.Redis), openClips(cfg.Clips), mon, hubservice.Options{
		ClipBaseURL: cfg.Clips.BaseURL,
		CacheTTL:    cfg.Redis.TTL,
	})
	if err := svc.Validate(); err != nil {
		return nil, err
	}
	return svc, nil
}

// openStore connects the configured document store. Failing to connect a
// configured backend is the only fatal startup error.
func openStore(ctx context.Context, cfg *config.Config) (repository.DocumentStore, error) {
	switch cfg.Store.Backend {
	case config.BackendFirestore:
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		store, err := firestore.NewStore(connectCtx, firestore.Config{
			ProjectID:       cfg.Store.ProjectID,
			CredentialsFile: cfg.Store.CredentialsFile,
			DatabaseID:      cfg.Store.DatabaseID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to firestore: %w", err)
		}
		return store, nil

	case config.BackendPostgres:
		db, err := database.NewPostgresDB(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to edge database: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := db.Ping(pingCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping edge database: %w", err)
		}
		nuts.L.Infof("[Server] Reading edge database %s@%s every %s", cfg.Database.DBName, cfg.Database.Host, cfg.Store.PollInterval)
		return postgres.NewStore(db, cfg.Store.PollInterval), nil

	case config.BackendMemory:
		store := memory.NewStore()
		if cfg.Store.Demo {
			go memory.NewDemo(store, cfg.Store.DemoInterval).Run(ctx)
		}
		nuts.L.Warnf("[Server] Using the in-memory store, nothing is persisted")
		return store, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// openCache connects Redis when configured. The cache is optional, so
// failures only disable it.
func openCache(ctx context.Context, cfg config.RedisConfig) repository.ViewCache {
	if !cfg.Enabled() {
		return nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	client, err := database.NewRedis(connectCtx, cfg)
	if err != nil {
		nuts.L.Warnf("[Server] View cache disabled: %v", err)
		return nil
	}
	nuts.L.Infof("[Server] Publishing views to redis %s:%d", cfg.Host, cfg.Port)
	return redis.NewViewCache(client, cfg.Key, cfg.Channel)
}

// openClips serves bat clips from a local directory when configured
func openClips(cfg config.ClipsConfig) repository.ClipStore {
	if cfg.Dir == "" {
		return nil
	}
	clips, err := files.NewClipRepository(files.ClipConfig{BasePath: cfg.Dir})
	if err != nil {
		nuts.L.Warnf("[Server] Clip serving disabled: %v", err)
		return nil
	}
	return clips
}

func streamsFromConfig(cfg config.SubscriptionsConfig) live.Streams {
	toQuery := func(s config.StreamConfig) repository.Query {
		q := repository.Query{Collection: s.Collection, Limit: s.Limit}
		if s.OrderField != "" {
			q.OrderBy = s.OrderField
			q.Direction = repository.Descending
		}
		return q
	}
	return live.Streams{
		Classifications: toQuery(cfg.Classifications),
		BatDetections:   toQuery(cfg.BatDetections),
		DeviceStatus:    toQuery(cfg.DeviceStatus),
	}
}
