package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"kasbook/backend/internal/apperr"
	"kasbook/backend/internal/broadcast"
	"kasbook/backend/internal/cache"
)

// Options wires an accessor to its collaborators. Zero values fall back to a
// no-op cache, a no-op bus, a fresh reporter and a disabled logger.
type Options struct {
	Backend  Backend
	Cache    cache.CollectionCache
	Bus      broadcast.Bus
	Origin   string
	Reporter *apperr.Reporter
	Log      *zerolog.Logger
	Messages Messages
}

// Messages are the user-facing strings reported for one key.
type Messages struct {
	Load string
	Save string
	Full string
}

func defaultMessages(key string) Messages {
	return Messages{
		Load: fmt.Sprintf("could not read %s", key),
		Save: fmt.Sprintf("could not save %s", key),
		Full: fmt.Sprintf("storage is full, %s were not saved", key),
	}
}

// accessor holds the mechanics shared by Collection and Value: cache first,
// backend second, publish after every successful write.
type accessor struct {
	key      string
	backend  Backend
	cache    cache.CollectionCache
	bus      broadcast.Bus
	origin   string
	reporter *apperr.Reporter
	log      zerolog.Logger
	messages Messages

	mu       sync.Mutex
	watchers map[int]func(broadcast.Change)
	nextID   int
	cancel   func()
}

func newAccessor(key string, opts Options) *accessor {
	a := &accessor{
		key:      key,
		backend:  opts.Backend,
		cache:    opts.Cache,
		bus:      opts.Bus,
		origin:   opts.Origin,
		reporter: opts.Reporter,
		messages: opts.Messages,
		watchers: make(map[int]func(broadcast.Change)),
	}
	if a.cache == nil {
		a.cache = cache.NoopCache{}
	}
	if a.bus == nil {
		a.bus = broadcast.NoopBus{}
	}
	if a.reporter == nil {
		a.reporter = apperr.NewReporter()
	}
	if opts.Log != nil {
		a.log = opts.Log.With().Str("key", key).Logger()
	} else {
		a.log = zerolog.Nop()
	}
	defaults := defaultMessages(key)
	if a.messages.Load == "" {
		a.messages.Load = defaults.Load
	}
	if a.messages.Save == "" {
		a.messages.Save = defaults.Save
	}
	if a.messages.Full == "" {
		a.messages.Full = defaults.Full
	}
	a.cancel = a.bus.Subscribe(a.onChange)
	return a
}

func (a *accessor) onChange(change broadcast.Change) {
	if change.Key != a.key || change.Origin == a.origin {
		return
	}
	a.cache.Invalidate(a.key)

	a.mu.Lock()
	fns := make([]func(broadcast.Change), 0, len(a.watchers))
	for _, fn := range a.watchers {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}

func (a *accessor) watch(fn func(broadcast.Change)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.watchers[id] = fn
	return func() {
		a.mu.Lock()
		delete(a.watchers, id)
		a.mu.Unlock()
	}
}

// read returns the raw serialized value, from cache when fresh. cached
// reports whether the payload came from the cache and was already accepted.
func (a *accessor) read(ctx context.Context) (payload []byte, found bool, cached bool, err error) {
	if payload, ok := a.cache.Get(a.key); ok {
		return payload, true, true, nil
	}
	value, found, err := a.backend.Read(ctx, a.key)
	if err != nil {
		failure := apperr.New(apperr.KindStorage, a.messages.Load, fmt.Errorf("%w: %w", apperr.ErrLoadFailed, err))
		a.log.Error().Err(err).Msg("backend read failed")
		a.reporter.Report(failure)
		return nil, false, false, failure
	}
	if !found {
		return nil, false, false, nil
	}
	return []byte(value), true, false, nil
}

// remember caches a payload that decoded cleanly.
func (a *accessor) remember(payload []byte) {
	a.cache.Set(a.key, payload)
}

// parseFailed reports a value that could not be decoded. The caller degrades
// to its empty value.
func (a *accessor) parseFailed(err error) {
	a.log.Error().Err(err).Msg("stored value is not valid JSON")
	a.reporter.Report(apperr.New(apperr.KindStorage, a.messages.Load, fmt.Errorf("%w: %w", apperr.ErrLoadFailed, err)))
}

func (a *accessor) write(ctx context.Context, payload []byte) error {
	if err := a.backend.Write(ctx, a.key, string(payload)); err != nil {
		var failure *apperr.Error
		if errors.Is(err, ErrQuotaExceeded) {
			failure = apperr.New(apperr.KindStorage, a.messages.Full, fmt.Errorf("%w: %w", apperr.ErrStorageFull, err))
		} else {
			failure = apperr.New(apperr.KindStorage, a.messages.Save, fmt.Errorf("%w: %w", apperr.ErrSaveFailed, err))
		}
		a.log.Error().Err(err).Int("bytes", len(payload)).Msg("backend write failed")
		a.reporter.Report(failure)
		return failure
	}

	a.cache.Invalidate(a.key)

	change := broadcast.Change{Key: a.key, NewValue: string(payload), Origin: a.origin}
	if err := a.bus.Publish(ctx, change); err != nil {
		a.log.Warn().Err(err).Msg("change notification not delivered")
	}
	return nil
}

func (a *accessor) invalidate() {
	a.cache.Invalidate(a.key)
}

func (a *accessor) close() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}
