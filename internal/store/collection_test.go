package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasbook/backend/internal/apperr"
	"kasbook/backend/internal/broadcast"
	"kasbook/backend/internal/cache"
	"kasbook/backend/internal/store"
	"kasbook/backend/internal/store/memory"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// countingBackend wraps a memory store and counts reads.
type countingBackend struct {
	*memory.Store
	reads    int
	writeErr error
	readErr  error
}

func (b *countingBackend) Read(ctx context.Context, key string) (string, bool, error) {
	b.reads++
	if b.readErr != nil {
		return "", false, b.readErr
	}
	return b.Store.Read(ctx, key)
}

func (b *countingBackend) Write(ctx context.Context, key, value string) error {
	if b.writeErr != nil {
		return b.writeErr
	}
	return b.Store.Write(ctx, key, value)
}

type harness struct {
	backend  *countingBackend
	clock    *fakeClock
	bus      *broadcast.MemoryBus
	reporter *apperr.Reporter
	reported []*apperr.Error
}

func newHarness() *harness {
	h := &harness{
		backend:  &countingBackend{Store: memory.New(0)},
		clock:    &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		bus:      broadcast.NewMemoryBus(),
		reporter: apperr.NewReporter(),
	}
	h.reporter.Register(func(e *apperr.Error) { h.reported = append(h.reported, e) })
	return h
}

func (h *harness) collection(origin string) *store.Collection[item] {
	return store.NewCollection[item]("items", store.Options{
		Backend:  h.backend,
		Cache:    cache.NewTTLCache(5*time.Second, h.clock.Now),
		Bus:      h.bus,
		Origin:   origin,
		Reporter: h.reporter,
	})
}

func TestGetMissingKeyIsEmpty(t *testing.T) {
	h := newHarness()
	items, err := h.collection("tab-1").Get(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Empty(t, h.reported)
}

func TestSaveThenGet(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	c := h.collection("tab-1")

	require.NoError(t, c.Save(ctx, []item{{ID: "1", Name: "kopi"}}))
	items, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: "1", Name: "kopi"}}, items)
}

func TestGetServesCacheWithinTTL(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	c := h.collection("tab-1")
	require.NoError(t, c.Save(ctx, []item{{ID: "1"}}))

	_, err := c.Get(ctx)
	require.NoError(t, err)
	_, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.backend.reads)

	h.clock.Advance(5 * time.Second)
	_, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, h.backend.reads)
}

func TestCachedItemsAreCopies(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	c := h.collection("tab-1")
	require.NoError(t, c.Save(ctx, []item{{ID: "1", Name: "kopi"}}))

	first, _ := c.Get(ctx)
	first[0].Name = "mutated"

	second, _ := c.Get(ctx)
	assert.Equal(t, "kopi", second[0].Name)
}

func TestExternalWriteStaleOnlyUntilTTL(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	c := h.collection("tab-1")
	require.NoError(t, c.Save(ctx, []item{{ID: "1"}}))
	_, _ = c.Get(ctx)

	// Another process writes straight to the backend; no notification.
	require.NoError(t, h.backend.Store.Write(ctx, "items", `[{"id":"1"},{"id":"2"}]`))

	stale, _ := c.Get(ctx)
	assert.Len(t, stale, 1)

	h.clock.Advance(5*time.Second + time.Millisecond)
	fresh, _ := c.Get(ctx)
	assert.Len(t, fresh, 2)
}

func TestChangeFromOtherTabInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	tab1 := h.collection("tab-1")
	tab2 := h.collection("tab-2")

	require.NoError(t, tab1.Save(ctx, []item{{ID: "1"}}))
	_, _ = tab2.Get(ctx)

	var seen []broadcast.Change
	tab2.Watch(func(c broadcast.Change) { seen = append(seen, c) })

	require.NoError(t, tab1.Save(ctx, []item{{ID: "1"}, {ID: "2"}}))

	items, err := tab2.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	require.Len(t, seen, 1)
	assert.Equal(t, "items", seen[0].Key)
	assert.Equal(t, "tab-1", seen[0].Origin)
}

func TestOwnChangesDoNotTriggerWatch(t *testing.T) {
	h := newHarness()
	c := h.collection("tab-1")
	called := false
	c.Watch(func(broadcast.Change) { called = true })

	require.NoError(t, c.Save(context.Background(), []item{{ID: "1"}}))
	assert.False(t, called)
}

func TestClosedCollectionIgnoresChanges(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	tab1 := h.collection("tab-1")
	tab2 := h.collection("tab-2")
	called := false
	tab2.Watch(func(broadcast.Change) { called = true })
	tab2.Close()

	require.NoError(t, tab1.Save(ctx, []item{{ID: "1"}}))
	assert.False(t, called)
}

func TestCorruptValueDegradesToEmptyAndReports(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	require.NoError(t, h.backend.Store.Write(ctx, "items", "{not json"))

	items, err := h.collection("tab-1").Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	require.Len(t, h.reported, 1)
	assert.Equal(t, apperr.KindStorage, h.reported[0].Kind)
	assert.ErrorIs(t, h.reported[0], apperr.ErrLoadFailed)
}

func TestNonArrayValueIsEmpty(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	for _, raw := range []string{`{"id":"1"}`, `null`, `42`, `"text"`} {
		require.NoError(t, h.backend.Store.Write(ctx, "items", raw))
		items, err := h.collection("tab-1").Get(ctx)
		require.NoError(t, err, raw)
		assert.Empty(t, items, raw)
	}
	assert.Empty(t, h.reported)
}

func TestReadFailureIsReturned(t *testing.T) {
	h := newHarness()
	h.backend.readErr = errors.New("disk gone")

	_, err := h.collection("tab-1").Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrLoadFailed)
	assert.Len(t, h.reported, 1)
}

func TestSaveClassifiesQuota(t *testing.T) {
	h := newHarness()
	h.backend.writeErr = store.ErrQuotaExceeded

	err := h.collection("tab-1").Save(context.Background(), []item{{ID: "1"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrStorageFull)
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
	require.Len(t, h.reported, 1)
}

func TestSaveClassifiesOtherFailures(t *testing.T) {
	h := newHarness()
	h.backend.writeErr = errors.New("connection reset")

	err := h.collection("tab-1").Save(context.Background(), []item{{ID: "1"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrSaveFailed)
	assert.NotErrorIs(t, err, apperr.ErrStorageFull)
}

func TestFailedSaveKeepsCacheAndPublishesNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	c := h.collection("tab-1")
	require.NoError(t, c.Save(ctx, []item{{ID: "1"}}))
	_, _ = c.Get(ctx)

	published := 0
	h.bus.Subscribe(func(broadcast.Change) { published++ })
	h.backend.writeErr = store.ErrQuotaExceeded
	require.Error(t, c.Save(ctx, []item{{ID: "1"}, {ID: "2"}}))

	items, _ := c.Get(ctx)
	assert.Len(t, items, 1)
	assert.Zero(t, published)
}

func TestQuotaFromMemoryBackend(t *testing.T) {
	h := newHarness()
	c := store.NewCollection[item]("items", store.Options{
		Backend:  memory.New(16),
		Reporter: h.reporter,
	})
	err := c.Save(context.Background(), []item{{ID: "1", Name: "a long product name"}})
	assert.ErrorIs(t, err, apperr.ErrStorageFull)
}

func TestReloadBypassesCache(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	c := h.collection("tab-1")
	require.NoError(t, c.Save(ctx, []item{{ID: "1"}}))
	_, _ = c.Get(ctx)
	require.NoError(t, h.backend.Store.Write(ctx, "items", `[]`))

	items, err := c.Reload(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestValueFallbackAndSet(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	v := store.NewValue[string](store.KeyTheme, "light", store.Options{Backend: h.backend, Reporter: h.reporter})

	got, err := v.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "light", got)

	require.NoError(t, v.Set(ctx, "dark"))
	got, err = v.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dark", got)

	require.NoError(t, h.backend.Store.Write(ctx, store.KeyTheme, "dark"))
	got, err = v.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "light", got)
	assert.Len(t, h.reported, 1)
}
