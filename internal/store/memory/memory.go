package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"kasbook/backend/internal/domain"
	"kasbook/backend/internal/store"
)

// DefaultQuotaBytes mirrors the usual per-origin browser storage allowance.
const DefaultQuotaBytes = 5 << 20

// Store keeps every key in process memory. Usage is counted as the byte
// length of keys plus values across the whole store; a write that would push
// usage past the quota is refused with store.ErrQuotaExceeded.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
	used   int
	quota  int
}

// New returns an empty store. quota <= 0 disables the limit.
func New(quota int) *Store {
	return &Store{
		values: make(map[string]string),
		quota:  quota,
	}
}

// NewSeeded returns a store preloaded with a small demo catalog.
func NewSeeded(quota int) (*Store, error) {
	s := New(quota)
	now := time.Now().UTC()
	cost := func(v string) *decimal.Decimal {
		d := decimal.RequireFromString(v)
		return &d
	}

	products := []domain.Product{
		{ID: "prd-demo-coffee", Name: "Kopi Sachet", Category: "beverage", SKU: "SKU-KOPI-01", Price: decimal.RequireFromString("2600"), Cost: cost("1700"), StandaloneQuantity: 120},
		{ID: "prd-demo-sugar", Name: "Gula 1kg", Category: "grocery", SKU: "SKU-GULA-01", Price: decimal.RequireFromString("17400"), Cost: cost("15300"), StandaloneQuantity: 40},
		{ID: "prd-demo-bread", Name: "Roti Tawar", Category: "bakery", SKU: "SKU-ROTI-01", Price: decimal.RequireFromString("17800"), Cost: cost("12500"), StandaloneQuantity: 15},
		{
			ID: "prd-demo-shirt", Name: "Kaos Polos", Category: "apparel", Price: decimal.RequireFromString("55000"), Cost: cost("32000"),
			HasVariants: true,
			Variants: []domain.ProductVariant{
				{ID: "var-demo-shirt-s", Name: "S", Quantity: 6, SKU: "SKU-KAOS-S"},
				{ID: "var-demo-shirt-m", Name: "M", Quantity: 10, SKU: "SKU-KAOS-M"},
				{ID: "var-demo-shirt-l", Name: "L", Quantity: 4, SKU: "SKU-KAOS-L"},
			},
		},
	}
	for i := range products {
		products[i].CreatedAt = now
		products[i].UpdatedAt = now
		products[i].RecomputeTotal()
	}

	payload, err := json.Marshal(products)
	if err != nil {
		return nil, fmt.Errorf("memory: seed products: %w", err)
	}
	if err := s.Write(context.Background(), store.KeyProducts, string(payload)); err != nil {
		return nil, fmt.Errorf("memory: seed products: %w", err)
	}
	return s, nil
}

func (s *Store) Read(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *Store) Write(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.used + len(value)
	if old, ok := s.values[key]; ok {
		next -= len(old)
	} else {
		next += len(key)
	}
	if s.quota > 0 && next > s.quota {
		return fmt.Errorf("memory: write %q (%d bytes): %w", key, len(value), store.ErrQuotaExceeded)
	}

	s.values[key] = value
	s.used = next
	return nil
}

// Used reports the bytes currently counted against the quota.
func (s *Store) Used() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

func (s *Store) Close() error {
	return nil
}
