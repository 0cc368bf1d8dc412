package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSummarize(t *testing.T) {
	cogs := dec("12")
	txs := []Transaction{
		{Type: TransactionInflow, Amount: dec("20"), COGS: &cogs, Category: "sales"},
		{Type: TransactionInflow, Amount: dec("40"), Category: "debts"},
		{Type: TransactionOutflow, Amount: dec("15.50"), Category: "supplies"},
	}

	s := Summarize(txs)
	assert.True(t, s.TotalInflow.Equal(dec("60")))
	assert.True(t, s.TotalOutflow.Equal(dec("15.5")))
	assert.True(t, s.Balance.Equal(dec("44.5")))
	assert.True(t, s.TotalCOGS.Equal(dec("12")))
	assert.True(t, s.GrossProfit.Equal(dec("48")))
	assert.Equal(t, 2, s.InflowCount)
	assert.Equal(t, 1, s.OutflowCount)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.True(t, s.Balance.IsZero())
	assert.Zero(t, s.InflowCount)
}

func TestTotalsByCategory(t *testing.T) {
	txs := []Transaction{
		{Type: TransactionInflow, Amount: dec("10"), Category: "sales"},
		{Type: TransactionInflow, Amount: dec("30"), Category: "sales"},
		{Type: TransactionOutflow, Amount: dec("25"), Category: "sales"},
		{Type: TransactionOutflow, Amount: dec("5")},
	}

	totals := TotalsByCategory(txs)
	require.Len(t, totals, 3)
	assert.Equal(t, "sales", totals[0].Category)
	assert.Equal(t, TransactionInflow, totals[0].Type)
	assert.True(t, totals[0].Total.Equal(dec("40")))
	assert.Equal(t, 2, totals[0].Count)
	assert.Equal(t, "uncategorized", totals[2].Category)
}
