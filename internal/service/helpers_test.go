package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"kasbook/backend/internal/apperr"
	"kasbook/backend/internal/broadcast"
	"kasbook/backend/internal/cache"
	"kasbook/backend/internal/domain"
	"kasbook/backend/internal/store"
	"kasbook/backend/internal/store/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// flakyBackend fails writes to the keys listed in failWrites.
type flakyBackend struct {
	*memory.Store
	mu         sync.Mutex
	failWrites map[string]error
}

func (b *flakyBackend) failOn(key string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWrites[key] = err
}

func (b *flakyBackend) Write(ctx context.Context, key, value string) error {
	b.mu.Lock()
	err := b.failWrites[key]
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.Store.Write(ctx, key, value)
}

type testEnv struct {
	clock    *fakeClock
	backend  *flakyBackend
	bus      *broadcast.MemoryBus
	reporter *apperr.Reporter
	reported []*apperr.Error

	ledger    *Ledger
	inventory *Inventory
	debts     *Debts
	contacts  *Contacts
	pos       *POS
	settings  *Settings
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	backend := &flakyBackend{Store: memory.New(memory.DefaultQuotaBytes), failWrites: map[string]error{}}
	return newTab(t, clock, backend, broadcast.NewMemoryBus(), "tab-1")
}

// newTab builds a second process view over the same backend and bus.
func newTab(t *testing.T, clock *fakeClock, backend *flakyBackend, bus *broadcast.MemoryBus, origin string) *testEnv {
	t.Helper()
	env := &testEnv{
		clock:    clock,
		backend:  backend,
		bus:      bus,
		reporter: apperr.NewReporter(),
	}
	env.reporter.Register(func(e *apperr.Error) { env.reported = append(env.reported, e) })

	opts := store.Options{
		Backend:  backend,
		Cache:    cache.NewTTLCache(5*time.Second, clock.Now),
		Bus:      bus,
		Origin:   origin,
		Reporter: env.reporter,
	}
	deps := Deps{Reporter: env.reporter, Log: zerolog.Nop(), Now: clock.Now}

	env.ledger = NewLedger(store.NewCollection[domain.Transaction](store.KeyTransactions, opts), deps)
	env.inventory = NewInventory(store.NewCollection[domain.Product](store.KeyProducts, opts), deps)
	env.debts = NewDebts(store.NewCollection[domain.DebtEntry](store.KeyDebts, opts), env.ledger, deps)
	env.contacts = NewContacts(store.NewCollection[domain.Contact](store.KeyContacts, opts), deps)
	env.pos = NewPOS(env.inventory, env.ledger, env.contacts, deps)
	env.settings = NewSettings(opts, deps)
	return env
}

func (e *testEnv) allTransactions(t *testing.T) []domain.Transaction {
	t.Helper()
	txs, err := e.ledger.Query(context.Background(), domain.TransactionFilter{})
	if err != nil {
		t.Fatalf("query ledger: %v", err)
	}
	return txs
}

var errDiskFailure = errors.New("disk failure")
