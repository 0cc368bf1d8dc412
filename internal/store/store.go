package store

import (
	"context"
	"errors"
)

// ErrQuotaExceeded is returned by a Backend that refused a write for lack of
// space.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Backend is a flat key-value store holding one serialized value per key.
// Write replaces the whole value; the last write wins.
type Backend interface {
	Read(ctx context.Context, key string) (value string, found bool, err error)
	Write(ctx context.Context, key, value string) error
	Close() error
}

const (
	KeyTransactions = "transactions"
	KeyProducts     = "products"
	KeyDebts        = "debts"
	KeyContacts     = "contacts"

	KeyTheme          = "settings.theme"
	KeyCurrency       = "settings.currency"
	KeyCategories     = "settings.categories"
	KeyPaymentMethods = "settings.paymentMethods"
)
