package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"kasbook/backend/internal/domain"
	"kasbook/backend/internal/store"
	"kasbook/backend/internal/xid"
)

const debtPaymentCategory = "debts"

type NewDebt struct {
	Type         domain.DebtType `json:"type"`
	Counterparty string          `json:"counterparty"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	DueDate      time.Time       `json:"dueDate"`
	Category     string          `json:"category,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

// Debts tracks receivables and payables. Payments go through the ledger so
// every settled amount has a matching transaction.
type Debts struct {
	mu     sync.Mutex
	debts  *store.Collection[domain.DebtEntry]
	ledger *Ledger
	deps   Deps
}

func NewDebts(debts *store.Collection[domain.DebtEntry], ledger *Ledger, deps Deps) *Debts {
	return &Debts{debts: debts, ledger: ledger, deps: deps.withDefaults()}
}

func (s *Debts) Create(ctx context.Context, in NewDebt) (domain.DebtEntry, error) {
	var v domain.Validation
	v.Check(in.Type.Valid(), "type", "must be receivable or payable")
	v.Check(strings.TrimSpace(in.Counterparty) != "", "counterparty", "is required")
	v.Check(in.Amount.IsPositive(), "amount", "must be greater than zero")
	v.Check(!in.DueDate.IsZero(), "dueDate", "is required")
	if err := v.Err(); err != nil {
		return domain.DebtEntry{}, s.deps.fail(err, "invalid debt")
	}

	now := s.deps.Now()
	debt := domain.DebtEntry{
		ID:             domain.DebtID(xid.New("debt")),
		Type:           in.Type,
		Counterparty:   strings.TrimSpace(in.Counterparty),
		Amount:         in.Amount,
		OriginalAmount: in.Amount,
		Description:    strings.TrimSpace(in.Description),
		DueDate:        in.DueDate,
		CreatedAt:      now,
		Category:       strings.TrimSpace(in.Category),
		Notes:          strings.TrimSpace(in.Notes),
		Payments:       []domain.DebtPayment{},
	}
	debt.Status = domain.DeriveStatus(debt, now)

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.debts.Get(ctx)
	if err != nil {
		return domain.DebtEntry{}, err
	}
	if err := s.debts.Save(ctx, append(all, debt)); err != nil {
		return domain.DebtEntry{}, err
	}
	return debt, nil
}

// ListAll promotes overdue debts, persisting the promotion, then filters and
// sorts by due date. A failed promotion write is logged and the derived
// statuses are still returned.
func (s *Debts) ListAll(ctx context.Context, filter domain.DebtFilter) ([]domain.DebtEntry, error) {
	all, err := s.loadPromoted(ctx)
	if err != nil {
		return nil, err
	}

	search := normalizeSearch(filter.SearchTerm)
	out := make([]domain.DebtEntry, 0, len(all))
	for _, d := range all {
		if filter.Type != "" && d.Type != filter.Type {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if search != "" && !containsFold(d.Counterparty, search) && !containsFold(d.Description, search) && !containsFold(d.Category, search) {
			continue
		}
		out = append(out, d)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out, nil
}

func (s *Debts) GetByID(ctx context.Context, id domain.DebtID) (domain.DebtEntry, error) {
	all, err := s.loadPromoted(ctx)
	if err != nil {
		return domain.DebtEntry{}, err
	}
	if idx := indexOfDebt(all, id); idx >= 0 {
		return all[idx], nil
	}
	return domain.DebtEntry{}, s.deps.fail(domain.ErrNotFound, "debt not found")
}

// PromoteOverdue rewrites the status of every debt whose derived status has
// moved on and persists the result. It returns how many debts changed.
func (s *Debts) PromoteOverdue(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.debts.Get(ctx)
	if err != nil {
		return 0, err
	}
	changed := derive(all, s.deps.Now())
	if changed == 0 {
		return 0, nil
	}
	if err := s.debts.Save(ctx, all); err != nil {
		return 0, err
	}
	return changed, nil
}

func (s *Debts) loadPromoted(ctx context.Context) ([]domain.DebtEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.debts.Get(ctx)
	if err != nil {
		return nil, err
	}
	if derive(all, s.deps.Now()) > 0 {
		if err := s.debts.Save(ctx, all); err != nil {
			s.deps.Log.Warn().Err(err).Msg("overdue promotion not persisted")
		}
	}
	return all, nil
}

func derive(all []domain.DebtEntry, now time.Time) int {
	changed := 0
	for i := range all {
		if status := domain.DeriveStatus(all[i], now); status != all[i].Status {
			all[i].Status = status
			changed++
		}
	}
	return changed
}

// MakeFullPayment settles the remaining balance with one ledger transaction.
func (s *Debts) MakeFullPayment(ctx context.Context, id domain.DebtID) (domain.DebtEntry, error) {
	return s.pay(ctx, id, nil)
}

// MakePartialPayment records a payment of 0 < amount <= balance. Reaching a
// zero balance settles the debt.
func (s *Debts) MakePartialPayment(ctx context.Context, id domain.DebtID, amount decimal.Decimal) (domain.DebtEntry, error) {
	if !amount.IsPositive() {
		return domain.DebtEntry{}, s.deps.fail(domain.NewValidationError("amount", "must be greater than zero"), "invalid payment")
	}
	return s.pay(ctx, id, &amount)
}

// pay writes the ledger transaction first and the debt second. When the debt
// cannot be saved the transaction is discarded again so the ledger never
// holds a payment the debt does not know about.
func (s *Debts) pay(ctx context.Context, id domain.DebtID, amount *decimal.Decimal) (domain.DebtEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.debts.Get(ctx)
	if err != nil {
		return domain.DebtEntry{}, err
	}
	idx := indexOfDebt(all, id)
	if idx < 0 {
		return domain.DebtEntry{}, s.deps.fail(domain.ErrNotFound, "debt not found")
	}
	debt := all[idx]
	if debt.Settled() || !debt.Amount.IsPositive() {
		return domain.DebtEntry{}, s.deps.fail(domain.ErrDebtSettled, "debt is already paid")
	}

	paid := debt.Amount
	if amount != nil {
		if amount.GreaterThan(debt.Amount) {
			return domain.DebtEntry{}, s.deps.fail(
				domain.NewValidationError("amount", fmt.Sprintf("exceeds the outstanding balance of %s", debt.Amount.StringFixed(2))),
				"invalid payment")
		}
		paid = *amount
	}

	tx, err := s.ledger.Add(ctx, NewTransaction{
		Type:        debt.SettlementType(),
		Description: paymentDescription(debt),
		Amount:      paid,
		Category:    defaultString(debt.Category, debtPaymentCategory),
		Reference:   string(debt.ID),
	})
	if err != nil {
		return domain.DebtEntry{}, err
	}

	now := s.deps.Now()
	debt.Payments = append(debt.Payments, domain.DebtPayment{
		ID:            domain.PaymentID(xid.New("pay")),
		Amount:        paid,
		Date:          now,
		TransactionID: tx.ID,
	})
	debt.Amount = debt.Amount.Sub(paid)
	if debt.Amount.IsZero() {
		txID := tx.ID
		debt.Status = domain.DebtPaid
		debt.PaidAt = &now
		debt.LinkedTransactionID = &txID
	} else {
		debt.Status = domain.DeriveStatus(debt, now)
	}
	all[idx] = debt

	if err := s.debts.Save(ctx, all); err != nil {
		if discardErr := s.ledger.discard(ctx, tx.ID); discardErr != nil {
			s.deps.Log.Error().Err(discardErr).
				Str("transaction_id", string(tx.ID)).
				Str("debt_id", string(debt.ID)).
				Msg("payment transaction left without debt record")
		}
		return domain.DebtEntry{}, err
	}
	return debt, nil
}

// Delete removes the debt. Linked transactions stay in the ledger.
func (s *Debts) Delete(ctx context.Context, id domain.DebtID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.debts.Get(ctx)
	if err != nil {
		return err
	}
	idx := indexOfDebt(all, id)
	if idx < 0 {
		return s.deps.fail(domain.ErrNotFound, "debt not found")
	}
	return s.debts.Save(ctx, append(all[:idx], all[idx+1:]...))
}

func (s *Debts) Summarize(ctx context.Context) (domain.DebtSummary, error) {
	all, err := s.loadPromoted(ctx)
	if err != nil {
		return domain.DebtSummary{}, err
	}
	summary := domain.DebtSummary{
		OutstandingReceivable: decimal.Zero,
		OutstandingPayable:    decimal.Zero,
	}
	for _, d := range all {
		switch d.Status {
		case domain.DebtPaid:
			summary.PaidCount++
			continue
		case domain.DebtOverdue:
			summary.OverdueCount++
		default:
			summary.PendingCount++
		}
		if d.Type == domain.DebtPayable {
			summary.OutstandingPayable = summary.OutstandingPayable.Add(d.Amount)
		} else {
			summary.OutstandingReceivable = summary.OutstandingReceivable.Add(d.Amount)
		}
	}
	return summary, nil
}

func paymentDescription(d domain.DebtEntry) string {
	if d.Type == domain.DebtPayable {
		return fmt.Sprintf("Payment to %s", d.Counterparty)
	}
	return fmt.Sprintf("Payment from %s", d.Counterparty)
}

func indexOfDebt(all []domain.DebtEntry, id domain.DebtID) int {
	for i := range all {
		if all[i].ID == id {
			return i
		}
	}
	return -1
}
