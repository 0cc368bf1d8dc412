package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)
	hundred := decimal.NewFromInt(100)

	tests := []struct {
		name string
		debt DebtEntry
		want DebtStatus
	}{
		{"pending before due", DebtEntry{Status: DebtPending, Amount: hundred, DueDate: tomorrow}, DebtPending},
		{"pending after due", DebtEntry{Status: DebtPending, Amount: hundred, DueDate: yesterday}, DebtOverdue},
		{"overdue stays overdue", DebtEntry{Status: DebtOverdue, Amount: hundred, DueDate: yesterday}, DebtOverdue},
		{"paid is terminal", DebtEntry{Status: DebtPaid, Amount: decimal.Zero, DueDate: yesterday}, DebtPaid},
		{"zero balance is paid", DebtEntry{Status: DebtOverdue, Amount: decimal.Zero, DueDate: yesterday}, DebtPaid},
		{"missing status before due", DebtEntry{Amount: hundred, DueDate: tomorrow}, DebtPending},
		{"missing status after due", DebtEntry{Amount: hundred, DueDate: yesterday}, DebtOverdue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.debt, now))
		})
	}
}

func TestBalanced(t *testing.T) {
	d := DebtEntry{
		OriginalAmount: decimal.NewFromInt(100),
		Amount:         decimal.NewFromInt(60),
		Payments:       []DebtPayment{{Amount: decimal.NewFromInt(40)}},
	}
	assert.True(t, d.Balanced())

	d.Amount = decimal.NewFromInt(50)
	assert.False(t, d.Balanced())
}

func TestSettlementType(t *testing.T) {
	assert.Equal(t, TransactionInflow, DebtEntry{Type: DebtReceivable}.SettlementType())
	assert.Equal(t, TransactionOutflow, DebtEntry{Type: DebtPayable}.SettlementType())
}
