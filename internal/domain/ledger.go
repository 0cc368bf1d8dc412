package domain

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Summarize totals a transaction list. Gross profit is inflow minus the
// recorded cost of goods sold; transactions without COGS count as pure margin.
func Summarize(txs []Transaction) LedgerSummary {
	summary := LedgerSummary{
		TotalInflow:  decimal.Zero,
		TotalOutflow: decimal.Zero,
		TotalCOGS:    decimal.Zero,
	}
	for _, tx := range txs {
		switch tx.Type {
		case TransactionInflow:
			summary.TotalInflow = summary.TotalInflow.Add(tx.Amount)
			summary.InflowCount++
			if tx.COGS != nil {
				summary.TotalCOGS = summary.TotalCOGS.Add(*tx.COGS)
			}
		case TransactionOutflow:
			summary.TotalOutflow = summary.TotalOutflow.Add(tx.Amount)
			summary.OutflowCount++
		}
	}
	summary.Balance = summary.TotalInflow.Sub(summary.TotalOutflow)
	summary.GrossProfit = summary.TotalInflow.Sub(summary.TotalCOGS)
	return summary
}

// TotalsByCategory groups by (type, category), largest total first.
func TotalsByCategory(txs []Transaction) []CategoryTotal {
	type groupKey struct {
		t        TransactionType
		category string
	}
	index := make(map[groupKey]int)
	out := make([]CategoryTotal, 0)
	for _, tx := range txs {
		category := strings.TrimSpace(tx.Category)
		if category == "" {
			category = "uncategorized"
		}
		k := groupKey{t: tx.Type, category: category}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, CategoryTotal{Category: category, Type: tx.Type, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(tx.Amount)
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}
