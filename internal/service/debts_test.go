package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasbook/backend/internal/apperr"
	"kasbook/backend/internal/broadcast"
	"kasbook/backend/internal/domain"
	"kasbook/backend/internal/store"
)

func newDebt(due time.Time) NewDebt {
	return NewDebt{
		Type:         domain.DebtReceivable,
		Counterparty: "Toko Sinar",
		Amount:       decimal.NewFromInt(100),
		Description:  "Invoice 42",
		DueDate:      due,
	}
}

func assertBalanced(t *testing.T, d domain.DebtEntry) {
	t.Helper()
	assert.True(t, d.Balanced(), "amount %s != original %s - paid %s", d.Amount, d.OriginalAmount, d.PaidTotal())
	assert.Equal(t, d.Amount.IsZero(), d.Status == domain.DebtPaid)
}

func TestDebtCreateInitialStatus(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	future, err := env.debts.Create(ctx, newDebt(env.clock.Now().Add(48*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, domain.DebtPending, future.Status)
	assert.True(t, future.OriginalAmount.Equal(future.Amount))
	assert.NotNil(t, future.Payments)

	past, err := env.debts.Create(ctx, newDebt(env.clock.Now().Add(-24*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, domain.DebtOverdue, past.Status)
}

func TestDebtCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.debts.Create(context.Background(), NewDebt{Type: "loan", Amount: decimal.Zero})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestDebtPaymentScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	d, err := env.debts.Create(ctx, newDebt(env.clock.Now().Add(-24*time.Hour)))
	require.NoError(t, err)

	listed, err := env.debts.ListAll(ctx, domain.DebtFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, domain.DebtOverdue, listed[0].Status)

	d, err = env.debts.MakePartialPayment(ctx, d.ID, decimal.NewFromInt(40))
	require.NoError(t, err)
	assert.True(t, d.Amount.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, domain.DebtOverdue, d.Status)
	require.Len(t, d.Payments, 1)
	assert.Nil(t, d.PaidAt)
	assertBalanced(t, d)

	txs := env.allTransactions(t)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TransactionInflow, txs[0].Type)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, txs[0].ID, d.Payments[0].TransactionID)

	env.clock.Advance(time.Minute)
	d, err = env.debts.MakePartialPayment(ctx, d.ID, decimal.NewFromInt(60))
	require.NoError(t, err)
	assert.True(t, d.Amount.IsZero())
	assert.Equal(t, domain.DebtPaid, d.Status)
	require.NotNil(t, d.PaidAt)
	require.NotNil(t, d.LinkedTransactionID)
	assertBalanced(t, d)

	txs = env.allTransactions(t)
	require.Len(t, txs, 2)
	assert.Equal(t, txs[0].ID, *d.LinkedTransactionID, "linked to the last transaction")
}

func TestMakeFullPayment(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	d, err := env.debts.Create(ctx, NewDebt{
		Type:         domain.DebtPayable,
		Counterparty: "CV Maju",
		Amount:       decimal.RequireFromString("250.75"),
		DueDate:      env.clock.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)

	d, err = env.debts.MakeFullPayment(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DebtPaid, d.Status)
	assertBalanced(t, d)

	txs := env.allTransactions(t)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TransactionOutflow, txs[0].Type)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("250.75")))
	assert.Equal(t, txs[0].ID, *d.LinkedTransactionID)

	_, err = env.debts.MakeFullPayment(ctx, d.ID)
	assert.ErrorIs(t, err, domain.ErrDebtSettled)
	assert.Len(t, env.allTransactions(t), 1)
}

func TestPartialPaymentRejectsBadAmounts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	d, err := env.debts.Create(ctx, newDebt(env.clock.Now().Add(time.Hour)))
	require.NoError(t, err)

	for _, amount := range []string{"0", "-5", "100.01"} {
		_, err := env.debts.MakePartialPayment(ctx, d.ID, decimal.RequireFromString(amount))
		assert.ErrorIs(t, err, domain.ErrValidation, amount)
	}

	got, err := env.debts.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(100)))
	assert.Empty(t, got.Payments)
	assert.Empty(t, env.allTransactions(t))
}

func TestPaymentIsAtomicWhenLedgerFails(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	d, err := env.debts.Create(ctx, newDebt(env.clock.Now().Add(time.Hour)))
	require.NoError(t, err)

	env.backend.failOn(store.KeyTransactions, store.ErrQuotaExceeded)
	_, err = env.debts.MakePartialPayment(ctx, d.ID, decimal.NewFromInt(10))
	require.ErrorIs(t, err, apperr.ErrStorageFull)

	got, err := env.debts.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(100)))
	assert.Empty(t, got.Payments)
}

func TestPaymentIsAtomicWhenDebtSaveFails(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	d, err := env.debts.Create(ctx, newDebt(env.clock.Now().Add(time.Hour)))
	require.NoError(t, err)

	env.backend.failOn(store.KeyDebts, errDiskFailure)
	_, err = env.debts.MakePartialPayment(ctx, d.ID, decimal.NewFromInt(10))
	require.ErrorIs(t, err, apperr.ErrSaveFailed)

	assert.Empty(t, env.allTransactions(t), "orphan payment transaction is discarded")

	env.backend.failOn(store.KeyDebts, nil)
	got, err := env.debts.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(100)))
	assert.Empty(t, got.Payments)
}

func TestOverduePromotionIsPersisted(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	d, err := env.debts.Create(ctx, newDebt(env.clock.Now().Add(24*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, domain.DebtPending, d.Status)

	env.clock.Advance(48 * time.Hour)
	got, err := env.debts.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DebtOverdue, got.Status)

	// An independent reader with no clock logic sees the stored status.
	raw := store.NewCollection[domain.DebtEntry](store.KeyDebts, store.Options{Backend: env.backend})
	stored, err := raw.Get(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, domain.DebtOverdue, stored[0].Status)
}

func TestPromoteOverdueCountsChanges(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.debts.Create(ctx, newDebt(env.clock.Now().Add(time.Hour)))
	require.NoError(t, err)
	_, err = env.debts.Create(ctx, newDebt(env.clock.Now().Add(72*time.Hour)))
	require.NoError(t, err)

	env.clock.Advance(2 * time.Hour)
	n, err := env.debts.PromoteOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = env.debts.PromoteOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPromotionWriteFailureStillReturnsDerivedStatus(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.debts.Create(ctx, newDebt(env.clock.Now().Add(time.Hour)))
	require.NoError(t, err)

	env.clock.Advance(2 * time.Hour)
	env.backend.failOn(store.KeyDebts, errDiskFailure)

	listed, err := env.debts.ListAll(ctx, domain.DebtFilter{Status: domain.DebtOverdue})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestDebtListFiltersAndSummary(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	now := env.clock.Now()

	_, err := env.debts.Create(ctx, NewDebt{Type: domain.DebtReceivable, Counterparty: "Budi", Amount: decimal.NewFromInt(50), DueDate: now.Add(72 * time.Hour)})
	require.NoError(t, err)
	_, err = env.debts.Create(ctx, NewDebt{Type: domain.DebtPayable, Counterparty: "CV Maju", Amount: decimal.NewFromInt(80), DueDate: now.Add(-time.Hour)})
	require.NoError(t, err)
	paid, err := env.debts.Create(ctx, NewDebt{Type: domain.DebtReceivable, Counterparty: "Sari", Amount: decimal.NewFromInt(20), DueDate: now.Add(time.Hour)})
	require.NoError(t, err)
	_, err = env.debts.MakeFullPayment(ctx, paid.ID)
	require.NoError(t, err)

	all, err := env.debts.ListAll(ctx, domain.DebtFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "CV Maju", all[0].Counterparty, "earliest due first")

	receivables, _ := env.debts.ListAll(ctx, domain.DebtFilter{Type: domain.DebtReceivable})
	assert.Len(t, receivables, 2)
	searched, _ := env.debts.ListAll(ctx, domain.DebtFilter{SearchTerm: "budi"})
	assert.Len(t, searched, 1)

	summary, err := env.debts.Summarize(ctx)
	require.NoError(t, err)
	assert.True(t, summary.OutstandingReceivable.Equal(decimal.NewFromInt(50)))
	assert.True(t, summary.OutstandingPayable.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, 1, summary.OverdueCount)
	assert.Equal(t, 1, summary.PendingCount)
	assert.Equal(t, 1, summary.PaidCount)
}

func TestDebtDeleteKeepsTransactions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	d, err := env.debts.Create(ctx, newDebt(env.clock.Now().Add(time.Hour)))
	require.NoError(t, err)
	_, err = env.debts.MakePartialPayment(ctx, d.ID, decimal.NewFromInt(10))
	require.NoError(t, err)

	require.NoError(t, env.debts.Delete(ctx, d.ID))
	_, err = env.debts.GetByID(ctx, d.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, env.allTransactions(t), 1)
}

func TestPaymentSeenByOtherTab(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	other := newTab(t, env.clock, env.backend, env.bus, "tab-2")

	d, err := env.debts.Create(ctx, newDebt(env.clock.Now().Add(time.Hour)))
	require.NoError(t, err)
	_, err = other.debts.GetByID(ctx, d.ID)
	require.NoError(t, err)

	var changes []broadcast.Change
	other.debts.debts.Watch(func(c broadcast.Change) { changes = append(changes, c) })

	_, err = env.debts.MakePartialPayment(ctx, d.ID, decimal.NewFromInt(30))
	require.NoError(t, err)

	got, err := other.debts.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(70)), "cache dropped on notification")
	assert.Len(t, changes, 1)
}
