package store

import (
	"context"
	"encoding/json"
	"fmt"

	"kasbook/backend/internal/apperr"
)

// Value is the accessor for a single JSON value, used for app-level settings.
type Value[T any] struct {
	a        *accessor
	fallback T
}

func NewValue[T any](key string, fallback T, opts Options) *Value[T] {
	return &Value[T]{a: newAccessor(key, opts), fallback: fallback}
}

func (v *Value[T]) Key() string {
	return v.a.key
}

// Get returns the stored value, or the fallback when nothing is stored or
// the stored value does not parse.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	payload, found, cached, err := v.a.read(ctx)
	if err != nil {
		return v.fallback, err
	}
	if !found {
		return v.fallback, nil
	}
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		if cached {
			v.a.invalidate()
		}
		v.a.parseFailed(err)
		return v.fallback, nil
	}
	if !cached {
		v.a.remember(payload)
	}
	return out, nil
}

func (v *Value[T]) Set(ctx context.Context, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		failure := apperr.New(apperr.KindStorage, v.a.messages.Save, fmt.Errorf("%w: %w", apperr.ErrSaveFailed, err))
		v.a.reporter.Report(failure)
		return failure
	}
	return v.a.write(ctx, payload)
}

func (v *Value[T]) Close() {
	v.a.close()
}
