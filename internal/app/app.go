// Package app is the composition root: it wires config, storage, the
// platform clients and the resilience kernel into a ready orchestrator.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/example/concierge/internal/authmgr"
	"github.com/example/concierge/internal/browser"
	"github.com/example/concierge/internal/config"
	"github.com/example/concierge/internal/credstore"
	"github.com/example/concierge/internal/db"
	"github.com/example/concierge/internal/domain/reservation"
	"github.com/example/concierge/internal/identity"
	"github.com/example/concierge/internal/metrics"
	"github.com/example/concierge/internal/migrate"
	"github.com/example/concierge/internal/orchestrator"
	"github.com/example/concierge/internal/platform/opentable"
	"github.com/example/concierge/internal/platform/resy"
	"github.com/example/concierge/internal/resilience"
	"github.com/example/concierge/internal/store"
)

type App struct {
	Cfg config.Config
	Log zerolog.Logger

	DB           *db.DB
	Restaurants  *store.Restaurants
	Reservations *store.Reservations
	Users        *store.Users
	Credentials  *credstore.Store

	Clients      []reservation.Client
	Auth         *authmgr.Manager
	Resolver     *identity.Resolver
	Breakers     *resilience.Registry
	Metrics      *metrics.Metrics
	Orchestrator *orchestrator.Orchestrator
}

// New builds the whole object graph. Migrations run unconditionally; the
// schema statements are idempotent.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	log := NewLogger(cfg.LogLevel)

	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if err := migrate.Up(ctx, d); err != nil {
		d.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	creds, err := credstore.Open(cfg.CredentialDir, log)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	m := metrics.New()
	breakers := newBreakerRegistry(cfg, log, m)

	restaurants := store.NewRestaurants(d)
	reservations := store.NewReservations(d)

	browserLogin := authmgr.NewBrowserLogin(func(ctx context.Context) (browser.Port, error) {
		return browser.NewChrome(ctx, log)
	}, log)
	auth := authmgr.NewManager(creds, nil, browserLogin, log)

	clients := []reservation.Client{
		resy.New(log),
		opentable.New(log, opentable.WithPersistedQueryHash(cfg.OpenTablePQHash)),
	}

	resolver := identity.NewResolver(restaurants, cfg.RegionToken, log)

	orch := orchestrator.New(
		clients,
		auth,
		resolver,
		restaurants,
		reservations,
		breakers,
		resilience.NewRetryPolicy(log),
		log,
		orchestrator.WithObserver(m),
	)

	return &App{
		Cfg:          cfg,
		Log:          log,
		DB:           d,
		Restaurants:  restaurants,
		Reservations: reservations,
		Users:        store.NewUsers(d),
		Credentials:  creds,
		Clients:      clients,
		Auth:         auth,
		Resolver:     resolver,
		Breakers:     breakers,
		Metrics:      m,
		Orchestrator: orch,
	}, nil
}

func (a *App) Close() {
	a.DB.Close()
}

func newBreakerRegistry(cfg config.Config, log zerolog.Logger, m *metrics.Metrics) *resilience.Registry {
	reg := resilience.NewRegistry(log, resilience.WithTransitionHook(m.BreakerTransition))

	// Explicit tuning pre-creates the breakers; Get options only apply on
	// first use, so this must happen before any call site reaches them.
	var opts []resilience.BreakerOption
	if cfg.BreakerFailMax > 0 {
		opts = append(opts, resilience.WithFailMax(cfg.BreakerFailMax))
	}
	if cfg.BreakerResetTimeout > 0 {
		opts = append(opts, resilience.WithResetTimeout(cfg.BreakerResetTimeout))
	}
	if len(opts) > 0 {
		for _, p := range reservation.Platforms {
			reg.Get(string(p), opts...)
		}
	}
	return reg
}

// NewLogger builds the process logger; level falls back to info.
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
