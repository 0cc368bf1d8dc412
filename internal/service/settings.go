package service

import (
	"context"
	"slices"
	"strings"

	"kasbook/backend/internal/domain"
	"kasbook/backend/internal/store"
)

type AppSettings struct {
	Theme          string   `json:"theme"`
	Currency       string   `json:"currency"`
	Categories     []string `json:"categories"`
	PaymentMethods []string `json:"paymentMethods"`
}

func DefaultSettings() AppSettings {
	return AppSettings{
		Theme:          "light",
		Currency:       "USD",
		Categories:     []string{"sales", "purchases", "debts", "services", "rent", "utilities", "salaries", "other"},
		PaymentMethods: []string{"cash", "card", "transfer"},
	}
}

// Settings keeps the app-level keys, each under its own storage key.
type Settings struct {
	theme          *store.Value[string]
	currency       *store.Value[string]
	categories     *store.Value[[]string]
	paymentMethods *store.Value[[]string]
	deps           Deps
}

func NewSettings(opts store.Options, deps Deps) *Settings {
	def := DefaultSettings()
	return &Settings{
		theme:          store.NewValue(store.KeyTheme, def.Theme, opts),
		currency:       store.NewValue(store.KeyCurrency, def.Currency, opts),
		categories:     store.NewValue(store.KeyCategories, def.Categories, opts),
		paymentMethods: store.NewValue(store.KeyPaymentMethods, def.PaymentMethods, opts),
		deps:           deps.withDefaults(),
	}
}

func (s *Settings) Get(ctx context.Context) (AppSettings, error) {
	var (
		out AppSettings
		err error
	)
	if out.Theme, err = s.theme.Get(ctx); err != nil {
		return AppSettings{}, err
	}
	if out.Currency, err = s.currency.Get(ctx); err != nil {
		return AppSettings{}, err
	}
	if out.Categories, err = s.categories.Get(ctx); err != nil {
		return AppSettings{}, err
	}
	if out.PaymentMethods, err = s.paymentMethods.Get(ctx); err != nil {
		return AppSettings{}, err
	}
	return out, nil
}

// Update writes the keys whose value differs from the stored one.
func (s *Settings) Update(ctx context.Context, next AppSettings) (AppSettings, error) {
	next.Theme = strings.ToLower(strings.TrimSpace(next.Theme))
	next.Currency = strings.ToUpper(strings.TrimSpace(next.Currency))
	next.Categories = cleanList(next.Categories)
	next.PaymentMethods = cleanList(next.PaymentMethods)

	var v domain.Validation
	v.Check(next.Theme == "light" || next.Theme == "dark", "theme", "must be light or dark")
	v.Check(len(next.Currency) == 3, "currency", "must be a three-letter code")
	v.Check(len(next.Categories) > 0, "categories", "at least one category is required")
	v.Check(len(next.PaymentMethods) > 0, "paymentMethods", "at least one payment method is required")
	if err := v.Err(); err != nil {
		return AppSettings{}, s.deps.fail(err, "invalid settings")
	}

	current, err := s.Get(ctx)
	if err != nil {
		return AppSettings{}, err
	}
	if current.Theme != next.Theme {
		if err := s.theme.Set(ctx, next.Theme); err != nil {
			return AppSettings{}, err
		}
	}
	if current.Currency != next.Currency {
		if err := s.currency.Set(ctx, next.Currency); err != nil {
			return AppSettings{}, err
		}
	}
	if !slices.Equal(current.Categories, next.Categories) {
		if err := s.categories.Set(ctx, next.Categories); err != nil {
			return AppSettings{}, err
		}
	}
	if !slices.Equal(current.PaymentMethods, next.PaymentMethods) {
		if err := s.paymentMethods.Set(ctx, next.PaymentMethods); err != nil {
			return AppSettings{}, err
		}
	}
	return next, nil
}

func (s *Settings) Close() {
	s.theme.Close()
	s.currency.Close()
	s.categories.Close()
	s.paymentMethods.Close()
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, item := range in {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
