// Package server orchestrates the gateway: config stores, cache, database, COMMS dispatch and
// audit events, the dispatcher and the HTTP transport.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/action-gateway/internal/config"
	"github.com/morezero/action-gateway/pkg/auth"
	"github.com/morezero/action-gateway/pkg/bootstrap"
	"github.com/morezero/action-gateway/pkg/cache"
	"github.com/morezero/action-gateway/pkg/commsutil"
	"github.com/morezero/action-gateway/pkg/db"
	"github.com/morezero/action-gateway/pkg/dispatcher"
	"github.com/morezero/action-gateway/pkg/events"
	"github.com/morezero/action-gateway/pkg/geo"
	"github.com/morezero/action-gateway/pkg/handlers"
	"github.com/morezero/action-gateway/pkg/props"
)

const logPrefix = "server:server"

// Version is reported by HEALTHCHECK and /health. Set with -ldflags "-X ...server.Version=...".
var Version = "dev"

const shutdownTimeout = 15 * time.Second

// Server is the action-gateway orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	sub        *comms.Subscription
	pool       *pgxpool.Pool
	httpServer *http.Server
	listener   net.Listener
	disp       *dispatcher.Dispatcher
	limiter    *ClientLimiter
	ready      atomic.Bool
}

// newServer wires the transport side around an already built dispatcher.
func newServer(cfg *config.Config, disp *dispatcher.Dispatcher) *Server {
	return &Server{
		cfg:     cfg,
		disp:    disp,
		limiter: NewClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 0),
	}
}

// dispatchDeps are the collaborators buildDispatcher assembles into a pipeline.
type dispatchDeps struct {
	boot       *bootstrap.Config
	store      props.Store
	cache      cache.Cache
	publisher  events.EventPublisher
	httpClient *http.Client
}

func buildDispatcher(d dispatchDeps) (*dispatcher.Dispatcher, error) {
	router, err := handlers.NewRouter(handlers.Deps{
		Geocoder:     geo.NewGeocoder(d.store, d.cache, d.httpClient),
		DepositTiers: d.boot.ActiveTiers(),
		Version:      Version,
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to build action router: %w", logPrefix, err)
	}
	return dispatcher.NewDispatcher(router, auth.NewAuthenticator(d.store), dispatcher.Options{
		Publisher: d.publisher,
	}), nil
}

// buildStores picks the Config Store and cache backends. Bootstrap properties are the last
// layer of every store so files can supply defaults that the environment or database override.
func buildStores(cfg *config.Config, boot *bootstrap.Config, pool *pgxpool.Pool) (props.Store, cache.Cache) {
	seed := props.NewMemoryStore(boot.Properties)

	var store props.Store
	switch cfg.StoreBackend {
	case config.BackendMemory:
		store = seed
	case config.BackendPostgres:
		store = props.Layered{db.NewPropertyStore(pool), props.NewEnvStore(cfg.PropertyPrefix), seed}
	default:
		store = props.Layered{props.NewEnvStore(cfg.PropertyPrefix), seed}
	}

	var c cache.Cache = cache.NewMemory()
	if cfg.CacheBackend == config.BackendPostgres {
		c = db.NewCacheStore(pool)
	}
	return store, c
}

// New connects every backing service named by cfg and builds the dispatcher. On error all
// connections opened so far are closed.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	if err := cfg.ValidateForServe(); err != nil {
		return nil, err
	}

	// Step 1: Load bootstrap config
	boot, err := bootstrap.LoadConfig(cfg.BootstrapFile)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load bootstrap config: %w", logPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Bootstrap %s %s: %d properties, %d deposit tiers",
		logPrefix, boot.Name, boot.Version, len(boot.Properties), len(boot.ActiveTiers())))

	s := &Server{cfg: cfg}
	built := false
	defer func() {
		if !built {
			s.closeBackends()
		}
	}()

	// Step 2: Connect to database when a backend needs it
	if cfg.UsesDatabase() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		s.pool = pool

		if cfg.RunMigrations {
			if err := db.ApplyMigrations(ctx, pool, cfg.MigrationPath); err != nil {
				return nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
			}
			if cfg.StoreBackend == config.BackendPostgres {
				if _, err := db.SeedProperties(ctx, db.NewPropertyStore(pool), boot); err != nil {
					return nil, fmt.Errorf("%s - failed to seed properties: %w", logPrefix, err)
				}
			}
		}
	}

	// Step 3: Connect to COMMS for dispatch and audit events
	var publisher events.EventPublisher = &events.NoOpPublisher{}
	if cfg.COMMSURL != "" {
		nc, err := commsutil.Connect(cfg.COMMSURL, cfg.ServiceName)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to connect to NATS: %w", logPrefix, err)
		}
		s.nc = nc
		publisher = events.NewCommsPublisher(nc, &events.CommsPublisherOpts{Subject: cfg.EventsSubject})
		slog.Info(fmt.Sprintf("%s - Connected to NATS at %s", logPrefix, cfg.COMMSURL))
	} else {
		slog.Info(fmt.Sprintf("%s - COMMS_URL not set, NATS dispatch and audit events disabled", logPrefix))
	}

	// Step 4: Stores, handlers and dispatcher
	store, c := buildStores(cfg, boot, s.pool)
	disp, err := buildDispatcher(dispatchDeps{
		boot:       boot,
		store:      store,
		cache:      c,
		publisher:  publisher,
		httpClient: &http.Client{Timeout: cfg.GeocodeTimeout},
	})
	if err != nil {
		return nil, err
	}
	s.disp = disp
	s.limiter = NewClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 0)
	slog.Info(fmt.Sprintf("%s - Backends: store=%s cache=%s", logPrefix, cfg.StoreBackend, cfg.CacheBackend))
	built = true
	return s, nil
}

// Start subscribes the dispatch subject (when COMMS is configured) and starts serving HTTP.
func (s *Server) Start() error {
	if s.nc != nil {
		if err := s.subscribeDispatch(); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("%s - failed to listen on %s: %w", logPrefix, s.cfg.ListenAddr(), err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, ln.Addr()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	s.ready.Store(true)
	slog.Info(fmt.Sprintf("%s - action-gateway is ready", logPrefix))
	return nil
}

// Addr returns the bound HTTP address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting work, drains in-flight requests and closes backends.
func (s *Server) Shutdown(ctx context.Context) {
	s.ready.Store(false)
	if s.sub != nil {
		if err := s.sub.Drain(); err != nil {
			slog.Warn(fmt.Sprintf("%s - dispatch subscription drain: %v", logPrefix, err))
		}
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			slog.Warn(fmt.Sprintf("%s - HTTP shutdown: %v", logPrefix, err))
		}
	}
	s.closeBackends()
	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
}

func (s *Server) closeBackends() {
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			s.nc.Close()
		}
		s.nc = nil
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}

// SetupLogging installs the process slog handler for level (debug|info|warn|error).
func SetupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	SetupLogging(cfg.LogLevel)
	slog.Info(fmt.Sprintf("%s - Starting %s %s", logPrefix, cfg.ServiceName, Version))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		s.Shutdown(ctx)
		return err
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	s.Shutdown(shutdownCtx)
	return nil
}
