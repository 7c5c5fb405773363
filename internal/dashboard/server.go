// Package dashboard is the HTTP surface of the cockpit: JSON reads over the
// snapshot service and store, validated mutations, and agent profile CRUD.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/cockpit/internal/agentstore"
	"github.com/zulandar/cockpit/internal/auth"
	"github.com/zulandar/cockpit/internal/dates"
	"github.com/zulandar/cockpit/internal/ratelimit"
	"github.com/zulandar/cockpit/internal/snapshot"
	"github.com/zulandar/cockpit/internal/store"
)

// DefaultPort is used when StartOpts.Port is unset.
const DefaultPort = 3000

// ClientConfig is what GET /api/client-config tells the browser.
type ClientConfig struct {
	AuthURL       string `json:"authUrl"`
	AnonKey       string `json:"anonKey"`
	DefaultUserID int64  `json:"userId"`
	Timezone      string `json:"timezone"`
	Environment   string `json:"environment"`
}

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	Store     *store.Store
	Snapshots *snapshot.Service
	Agents    *agentstore.Store
	Auth      *auth.Resolver
	Limiter   *ratelimit.Limiter
	Client    ClientConfig
	Logger    *slog.Logger
	Port      int
	Out       io.Writer

	// EventsInterval is how often /api/events polls for a new snapshot.
	EventsInterval time.Duration
}

// api carries the dependencies shared by every handler.
type api struct {
	store     *store.Store
	snapshots *snapshot.Service
	agents    *agentstore.Store
	clock     *dates.Clock
	client    ClientConfig
	logger    *slog.Logger
	interval  time.Duration
}

// NewRouter builds the gin engine without starting a listener.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New("dashboard: store is required")
	case opts.Snapshots == nil:
		return nil, errors.New("dashboard: snapshot service is required")
	case opts.Agents == nil:
		return nil, errors.New("dashboard: agent store is required")
	case opts.Auth == nil:
		return nil, errors.New("dashboard: auth resolver is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	interval := opts.EventsInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	setupValidator()

	a := &api{
		store:     opts.Store,
		snapshots: opts.Snapshots,
		agents:    opts.Agents,
		clock:     opts.Snapshots.Builder().Clock(),
		client:    opts.Client,
		logger:    logger,
		interval:  interval,
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID())
	if opts.Limiter != nil {
		router.Use(ratelimit.Middleware(opts.Limiter, logger))
	}
	registerRoutes(router, a, auth.Middleware(opts.Auth, logger))
	return router, nil
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = DefaultPort
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard server running on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
