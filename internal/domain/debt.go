package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeriveStatus is the status a debt has at now. A pending debt whose due date
// has passed is overdue; paid is terminal.
func DeriveStatus(d DebtEntry, now time.Time) DebtStatus {
	switch {
	case d.Status == DebtPaid:
		return DebtPaid
	case !d.Amount.IsPositive():
		return DebtPaid
	case d.Status == DebtPending && now.After(d.DueDate):
		return DebtOverdue
	case d.Status == "":
		if now.After(d.DueDate) {
			return DebtOverdue
		}
		return DebtPending
	default:
		return d.Status
	}
}

func (d DebtEntry) PaidTotal() decimal.Decimal {
	return Sum(d.Payments, func(p DebtPayment) decimal.Decimal { return p.Amount })
}

// Balanced reports whether Amount equals OriginalAmount minus the payments.
func (d DebtEntry) Balanced() bool {
	return d.Amount.Equal(d.OriginalAmount.Sub(d.PaidTotal()))
}

func (d DebtEntry) Settled() bool {
	return d.Status == DebtPaid
}

// SettlementType is the ledger direction a payment on this debt moves cash.
func (d DebtEntry) SettlementType() TransactionType {
	if d.Type == DebtPayable {
		return TransactionOutflow
	}
	return TransactionInflow
}
