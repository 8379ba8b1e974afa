package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	payhooks "github.com/goliatone/go-payhooks"
	"github.com/goliatone/go-payhooks/adapters/gocommand"
	"github.com/goliatone/go-payhooks/adapters/gologger"
	"github.com/goliatone/go-payhooks/api"
	"github.com/goliatone/go-payhooks/core"
	"github.com/goliatone/go-payhooks/inbound"
	"github.com/goliatone/go-payhooks/migrations"
	"github.com/goliatone/go-payhooks/notify"
	"github.com/goliatone/go-payhooks/shipping"
	sqlstore "github.com/goliatone/go-payhooks/store/sql"
	"github.com/goliatone/go-payhooks/transport"
	"github.com/goliatone/go-payhooks/webhooks"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const defaultPingTimeout = 5 * time.Second

type persistenceConfig struct {
	cfg     core.PersistenceConfig
	service string
}

func (c persistenceConfig) GetDebug() bool                { return c.cfg.Debug }
func (c persistenceConfig) GetDriver() string             { return sqlDriverName(c.cfg.Driver) }
func (c persistenceConfig) GetServer() string             { return c.cfg.DSN }
func (c persistenceConfig) GetPingTimeout() time.Duration { return defaultPingTimeout }
func (c persistenceConfig) GetOtelIdentifier() string     { return c.service }

// app owns every long-lived collaborator built from one config.
type app struct {
	cfg        core.Config
	provider   *gologger.SlogProvider
	client     *persistence.Client
	factory    *sqlstore.RepositoryFactory
	dispatcher *inbound.Dispatcher
	runner     *inbound.BackgroundRunner
	bus        *gocommand.Bus
	handler    http.Handler
}

func newApp(ctx context.Context, cfg core.Config, root *gologger.SlogLogger) (*app, error) {
	provider := gologger.NewSlogProvider(root)
	a := &app{cfg: cfg, provider: provider}

	client, err := openPersistence(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.client = client

	cacheConfig := repositorycache.DefaultConfig()
	cacheConfig.TTL = cfg.Cache.TTL()
	cacheService, err := repositorycache.NewCacheService(cacheConfig)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("payhooks: user cache: %w", err)
	}
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, sqlstore.WithUserCache(cacheService))
	if err != nil {
		a.close()
		return nil, err
	}
	a.factory = factory

	observer := func(name string) *core.Observer {
		return core.NewObserver(name, provider, nil, nil)
	}
	shipments := shipping.NewRequester(
		transport.NewRESTAdapter(&http.Client{Timeout: cfg.Shipment.Timeout()}),
		cfg.Shipment,
		shipping.WithUserDirectory(factory.UserDirectory()),
		shipping.WithObserver(observer("payhooks.shipping")),
	)
	notifier := notify.NewNotifier(
		transport.NewRESTAdapter(&http.Client{Timeout: cfg.Messaging.Timeout()}),
		cfg.Messaging,
		notify.WithObserver(observer("payhooks.notify")),
	)

	dispatcher := inbound.NewDispatcher(
		webhooks.NewHMACVerifier(cfg.Webhook.SignatureHeader, cfg.Webhook.Secret),
		factory.Ledger(),
		inbound.WithShipmentRequester(shipments),
		inbound.WithNotifier(notifier),
		inbound.WithShipmentBudget(cfg.Shipment.Budget()),
		inbound.WithEventRecorder(factory.EventLogStore()),
		inbound.WithObserver(observer("payhooks.inbound")),
	)
	if cfg.SideEffects.Detached() {
		a.runner = inbound.NewBackgroundRunner(dispatcher, observer("payhooks.runner"))
		dispatcher.Runner = a.runner
	}
	a.dispatcher = dispatcher

	facade, err := payhooks.NewFacade(dispatcher, payhooks.WithEventLogReader(factory.EventLogStore()))
	if err != nil {
		a.close()
		return nil, err
	}
	handlers := facade.Commands()
	queries := facade.Queries()
	bus, err := gocommand.Register(gocommand.NewRegistryAdapter(nil), gocommand.Handlers{
		RequestShipment:      handlers.RequestShipment,
		UpdateTrackingNumber: handlers.UpdateTrackingNumber,
		GetOrder:             queries.GetOrder,
		ListOrderEvents:      queries.ListOrderEvents,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.bus = bus

	a.handler = api.NewRouter(api.NewHandler(dispatcher,
		api.WithWebhookPath(cfg.Webhook.Path),
		api.WithAdmin(bus, cfg.HTTP.AdminToken),
		api.WithObserver(observer("payhooks.api")),
	))
	return a, nil
}

// shutdown drains detached side effects before closing persistence.
func (a *app) shutdown(ctx context.Context) error {
	var errs []error
	if a.runner != nil {
		if err := a.runner.Drain(ctx); err != nil {
			errs = append(errs, fmt.Errorf("payhooks: drain side effects: %w", err))
		}
	}
	if err := a.close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *app) close() error {
	if a.bus != nil {
		a.bus.Close()
		a.bus = nil
	}
	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	return err
}

func openPersistence(ctx context.Context, cfg core.Config) (*persistence.Client, error) {
	dialect, err := migrations.DialectForDriver(cfg.Persistence.Driver)
	if err != nil {
		return nil, err
	}
	driver := sqlDriverName(cfg.Persistence.Driver)
	sqlDB, err := sql.Open(driver, cfg.Persistence.DSN)
	if err != nil {
		return nil, fmt.Errorf("payhooks: open %s: %w", driver, err)
	}
	var bunDialect schema.Dialect = pgdialect.New()
	if dialect == migrations.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
		bunDialect = sqlitedialect.New()
	}

	client, err := persistence.New(persistenceConfig{cfg: cfg.Persistence, service: cfg.ServiceName}, sqlDB, bunDialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("payhooks: persistence client: %w", err)
	}
	if _, err := migrations.RegisterClient(ctx, client, dialect); err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("payhooks: migrate: %w", err)
	}
	return client, nil
}

func sqlDriverName(driver string) string {
	switch strings.TrimSpace(strings.ToLower(driver)) {
	case "postgres", "postgresql", "pgx":
		return "postgres"
	default:
		return "sqlite3"
	}
}
