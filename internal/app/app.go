// Package app assembles the storage backend, change bus and services from
// configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"kasbook/backend/internal/apperr"
	"kasbook/backend/internal/broadcast"
	"kasbook/backend/internal/cache"
	"kasbook/backend/internal/config"
	"kasbook/backend/internal/domain"
	"kasbook/backend/internal/exchange"
	"kasbook/backend/internal/service"
	"kasbook/backend/internal/store"
	"kasbook/backend/internal/store/memory"
	pgstore "kasbook/backend/internal/store/postgres"
	redisstore "kasbook/backend/internal/store/redis"
	"kasbook/backend/internal/store/sqlite"
	"kasbook/backend/internal/xid"
)

type App struct {
	Origin   string
	Reporter *apperr.Reporter
	Bus      broadcast.Bus
	Backend  store.Backend

	Ledger    *service.Ledger
	Inventory *service.Inventory
	Debts     *service.Debts
	Contacts  *service.Contacts
	POS       *service.POS
	Settings  *service.Settings
	Importer  exchange.Importer

	log     zerolog.Logger
	closers []func() error
}

// New opens the configured backend and wires every service to it. The
// returned App owns all connections; call Close when done.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{
		Origin:   xid.New("proc"),
		Reporter: apperr.NewReporter(),
		log:      log,
	}

	var redisClient *goredis.Client
	if cfg.Storage.RedisAddr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
	}

	backend, err := openBackend(ctx, cfg.Storage, redisClient)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}
	a.Backend = backend
	a.closers = append(a.closers, backend.Close)

	switch {
	case !cfg.Storage.SyncEnabled:
		a.Bus = broadcast.NoopBus{}
	case redisClient != nil:
		a.Bus = broadcast.NewRedisBus(redisClient, cfg.Storage.SyncChannel, log.With().Str("component", "bus").Logger())
	default:
		a.Bus = broadcast.NewMemoryBus()
	}
	a.closers = append(a.closers, a.Bus.Close)
	if redisClient != nil {
		a.closers = append(a.closers, redisClient.Close)
	}

	a.Reporter.Register(a.logReported)

	storeLog := log.With().Str("component", "store").Logger()
	opts := store.Options{
		Backend:  backend,
		Cache:    cache.NewTTLCache(cfg.Storage.CacheTTL, nil),
		Bus:      a.Bus,
		Origin:   a.Origin,
		Reporter: a.Reporter,
		Log:      &storeLog,
	}
	deps := func(component string) service.Deps {
		return service.Deps{Reporter: a.Reporter, Log: log.With().Str("component", component).Logger()}
	}

	transactions := store.NewCollection[domain.Transaction](store.KeyTransactions, withMessages(opts, "transactions"))
	products := store.NewCollection[domain.Product](store.KeyProducts, withMessages(opts, "products"))
	debts := store.NewCollection[domain.DebtEntry](store.KeyDebts, withMessages(opts, "debts"))
	contacts := store.NewCollection[domain.Contact](store.KeyContacts, withMessages(opts, "contacts"))

	a.Ledger = service.NewLedger(transactions, deps("ledger"))
	a.Inventory = service.NewInventory(products, deps("inventory"))
	a.Debts = service.NewDebts(debts, a.Ledger, deps("debts"))
	a.Contacts = service.NewContacts(contacts, deps("contacts"))
	a.POS = service.NewPOS(a.Inventory, a.Ledger, a.Contacts, deps("pos"))
	a.Settings = service.NewSettings(opts, deps("settings"))

	a.closers = append([]func() error{func() error {
		transactions.Close()
		products.Close()
		debts.Close()
		contacts.Close()
		a.Settings.Close()
		return nil
	}}, a.closers...)

	log.Info().Str("backend", cfg.Storage.Backend).Str("origin", a.Origin).Bool("sync", cfg.Storage.SyncEnabled).Msg("storage ready")
	return a, nil
}

func openBackend(ctx context.Context, cfg config.StorageConfig, redisClient *goredis.Client) (store.Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewSeeded(cfg.QuotaBytes)
	case config.BackendSQLite:
		return sqlite.Open(cfg.SQLitePath, cfg.QuotaBytes)
	case config.BackendRedis:
		if redisClient == nil {
			return nil, errors.New("redis backend needs REDIS_ADDR")
		}
		return redisstore.New(ctx, redisClient, cfg.QuotaBytes)
	case config.BackendPostgres:
		pg, err := pgstore.New(ctx, cfg.DatabaseURL, cfg.QuotaBytes)
		if err != nil {
			return nil, fmt.Errorf("postgres unavailable: %w", err)
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func withMessages(opts store.Options, noun string) store.Options {
	opts.Messages = store.Messages{
		Load: fmt.Sprintf("Could not load %s", noun),
		Save: fmt.Sprintf("Could not save %s", noun),
		Full: fmt.Sprintf("Storage is full: %s were not saved. Export and archive old data to free space.", noun),
	}
	return opts
}

func (a *App) logReported(e *apperr.Error) {
	event := a.log.Warn()
	if e.Kind == apperr.KindStorage || e.Kind == apperr.KindUnknown {
		event = a.log.Error()
	}
	event.Str("kind", string(e.Kind)).Str("details", e.Details).Time("at", e.Timestamp).Msg(e.Message)
}

// Close releases collections, bus and backend in that order.
func (a *App) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
