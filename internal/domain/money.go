package domain

import "github.com/shopspring/decimal"

func init() {
	// Persisted collections keep amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

func Sum[T any](items []T, amount func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(amount(item))
	}
	return total
}
