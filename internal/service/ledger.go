package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"kasbook/backend/internal/domain"
	"kasbook/backend/internal/exchange"
	"kasbook/backend/internal/store"
	"kasbook/backend/internal/xid"
)

// NewTransaction is the input for Ledger.Add. A zero Timestamp means now.
type NewTransaction struct {
	Type          domain.TransactionType
	Description   string
	Amount        decimal.Decimal
	Category      string
	PaymentMethod string
	Reference     string
	Items         []domain.LineItem
	COGS          *decimal.Decimal
	Timestamp     time.Time
}

// Ledger is the append-only cash ledger.
type Ledger struct {
	mu   sync.Mutex
	txs  *store.Collection[domain.Transaction]
	deps Deps
}

func NewLedger(txs *store.Collection[domain.Transaction], deps Deps) *Ledger {
	return &Ledger{txs: txs, deps: deps.withDefaults()}
}

func (l *Ledger) Add(ctx context.Context, in NewTransaction) (domain.Transaction, error) {
	tx, err := l.build(in)
	if err != nil {
		return domain.Transaction{}, l.deps.fail(err, "invalid transaction")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.txs.Get(ctx)
	if err != nil {
		return domain.Transaction{}, err
	}
	if err := l.txs.Save(ctx, append(all, tx)); err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

// AddBatch appends every transaction with a single save. Nothing is written
// when any input is invalid.
func (l *Ledger) AddBatch(ctx context.Context, ins []NewTransaction) ([]domain.Transaction, error) {
	built := make([]domain.Transaction, 0, len(ins))
	for _, in := range ins {
		tx, err := l.build(in)
		if err != nil {
			return nil, l.deps.fail(err, "invalid transaction in batch")
		}
		built = append(built, tx)
	}
	if len(built) == 0 {
		return built, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.txs.Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := l.txs.Save(ctx, append(all, built...)); err != nil {
		return nil, err
	}
	return built, nil
}

// ImportEntries commits validated exchange entries to the ledger.
func (l *Ledger) ImportEntries(ctx context.Context, entries []exchange.Entry) ([]domain.Transaction, error) {
	ins := make([]NewTransaction, 0, len(entries))
	for _, e := range entries {
		ins = append(ins, NewTransaction{
			Type:        e.Type,
			Description: e.Description,
			Amount:      e.Amount,
			Category:    e.Category,
			Reference:   e.Reference,
			Timestamp:   e.Date,
		})
	}
	return l.AddBatch(ctx, ins)
}

func (l *Ledger) build(in NewTransaction) (domain.Transaction, error) {
	var v domain.Validation
	v.Check(in.Type.Valid(), "type", "must be inflow or outflow")
	v.Check(strings.TrimSpace(in.Description) != "", "description", "is required")
	v.Check(in.Amount.IsPositive(), "amount", "must be greater than zero")
	if in.COGS != nil {
		v.Check(!in.COGS.IsNegative(), "cogs", "must not be negative")
	}
	if err := v.Err(); err != nil {
		return domain.Transaction{}, err
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = l.deps.Now()
	}
	return domain.Transaction{
		ID:            domain.TransactionID(xid.New("tx")),
		Type:          in.Type,
		Description:   strings.TrimSpace(in.Description),
		Amount:        in.Amount,
		Timestamp:     ts,
		Category:      strings.TrimSpace(in.Category),
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		Reference:     strings.TrimSpace(in.Reference),
		Items:         in.Items,
		COGS:          in.COGS,
	}, nil
}

// Query filters the whole ledger in memory and returns newest first. The end
// date is inclusive up to the end of its day.
func (l *Ledger) Query(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	all, err := l.txs.Get(ctx)
	if err != nil {
		return nil, err
	}

	search := normalizeSearch(filter.SearchTerm)
	var end time.Time
	if filter.EndDate != nil {
		end = endOfDay(*filter.EndDate)
	}

	out := make([]domain.Transaction, 0, len(all))
	for _, tx := range all {
		if filter.StartDate != nil && tx.Timestamp.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && tx.Timestamp.After(end) {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if search != "" && !containsFold(tx.Description, search) && !containsFold(tx.Category, search) {
			continue
		}
		out = append(out, tx)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (l *Ledger) GetByID(ctx context.Context, id domain.TransactionID) (domain.Transaction, error) {
	all, err := l.txs.Get(ctx)
	if err != nil {
		return domain.Transaction{}, err
	}
	for _, tx := range all {
		if tx.ID == id {
			return tx, nil
		}
	}
	return domain.Transaction{}, l.deps.fail(domain.ErrNotFound, "transaction not found")
}

func (l *Ledger) Summarize(ctx context.Context, filter domain.TransactionFilter) (domain.LedgerSummary, error) {
	txs, err := l.Query(ctx, filter)
	if err != nil {
		return domain.LedgerSummary{}, err
	}
	return domain.Summarize(txs), nil
}

func (l *Ledger) ByCategory(ctx context.Context, filter domain.TransactionFilter) ([]domain.CategoryTotal, error) {
	txs, err := l.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	return domain.TotalsByCategory(txs), nil
}

// discard removes a transaction written moments ago whose companion write
// failed. It is the only removal the ledger performs.
func (l *Ledger) discard(ctx context.Context, id domain.TransactionID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.txs.Reload(ctx)
	if err != nil {
		return err
	}
	kept := all[:0]
	for _, tx := range all {
		if tx.ID != id {
			kept = append(kept, tx)
		}
	}
	return l.txs.Save(ctx, kept)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
