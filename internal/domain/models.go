package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ids are plain strings on the wire. A field holding another entity's id is a
// weak reference: nothing guarantees the referenced entity still exists, so
// callers resolve it defensively and treat a miss as a normal outcome.
type (
	TransactionID string
	ProductID     string
	VariantID     string
	DebtID        string
	PaymentID     string
	ContactID     string
)

type TransactionType string

type LineItem struct {
	ProductID   ProductID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	VariantName string          `json:"variantName,omitempty"`
}

// Transaction is an immutable money movement. Items, when present, are a
// snapshot and do not have to add up to Amount.
type Transaction struct {
	ID            TransactionID    `json:"id"`
	Type          TransactionType  `json:"type"`
	Description   string           `json:"description"`
	Amount        decimal.Decimal  `json:"amount"`
	Timestamp     time.Time        `json:"timestamp"`
	Category      string           `json:"category,omitempty"`
	PaymentMethod string           `json:"paymentMethod,omitempty"`
	Reference     string           `json:"reference,omitempty"`
	Items         []LineItem       `json:"items,omitempty"`
	COGS          *decimal.Decimal `json:"cogs,omitempty"`
}

type TransactionFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	Type       TransactionType
	SearchTerm string
}

type LedgerSummary struct {
	TotalInflow  decimal.Decimal `json:"totalInflow"`
	TotalOutflow decimal.Decimal `json:"totalOutflow"`
	Balance      decimal.Decimal `json:"balance"`
	InflowCount  int             `json:"inflowCount"`
	OutflowCount int             `json:"outflowCount"`
	TotalCOGS    decimal.Decimal `json:"totalCogs"`
	GrossProfit  decimal.Decimal `json:"grossProfit"`
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Type     TransactionType `json:"type"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

type ProductVariant struct {
	ID       VariantID `json:"id"`
	Name     string    `json:"name"`
	Quantity int       `json:"quantity"`
	SKU      string    `json:"sku,omitempty"`
}

type Product struct {
	ID                 ProductID        `json:"id"`
	Name               string           `json:"name"`
	Description        string           `json:"description,omitempty"`
	Category           string           `json:"category,omitempty"`
	SKU                string           `json:"sku,omitempty"`
	Price              decimal.Decimal  `json:"price"`
	Cost               *decimal.Decimal `json:"cost,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
	HasVariants        bool             `json:"hasVariants"`
	Variants           []ProductVariant `json:"variants"`
	StandaloneQuantity int              `json:"standaloneQuantity"`
	TotalQuantity      int              `json:"totalQuantity"`
}

type ProductFilter struct {
	SearchTerm string
	Category   string
	// LowStock, when set, keeps products whose total is at or below it.
	LowStock *int
}

type StockAdjustment struct {
	ProductID     ProductID `json:"productId"`
	VariantID     VariantID `json:"variantId,omitempty"`
	VariantName   string    `json:"variantName,omitempty"`
	QuantityDelta int       `json:"quantityDelta"`
}

type StockAdjustmentResult struct {
	ProductID ProductID `json:"productId"`
	OK        bool      `json:"ok"`
	Quantity  int       `json:"quantity"`
	Error     string    `json:"error,omitempty"`
}

type StockShortage struct {
	ProductID   ProductID `json:"productId"`
	ProductName string    `json:"productName"`
	VariantName string    `json:"variantName,omitempty"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
}

type DebtType string

type DebtStatus string

type DebtPayment struct {
	ID            PaymentID       `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	TransactionID TransactionID   `json:"transactionId"`
}

// DebtEntry keeps Amount equal to OriginalAmount minus the sum of Payments.
// Counterparty is free text, not a Contact id. LinkedTransactionID is a weak
// reference and may dangle.
type DebtEntry struct {
	ID                  DebtID          `json:"id"`
	Type                DebtType        `json:"type"`
	Counterparty        string          `json:"counterparty"`
	Amount              decimal.Decimal `json:"amount"`
	OriginalAmount      decimal.Decimal `json:"originalAmount"`
	Description         string          `json:"description"`
	DueDate             time.Time       `json:"dueDate"`
	Status              DebtStatus      `json:"status"`
	CreatedAt           time.Time       `json:"createdAt"`
	PaidAt              *time.Time      `json:"paidAt,omitempty"`
	LinkedTransactionID *TransactionID  `json:"linkedTransactionId,omitempty"`
	Category            string          `json:"category,omitempty"`
	Notes               string          `json:"notes,omitempty"`
	Payments            []DebtPayment   `json:"payments"`
}

type DebtFilter struct {
	Type       DebtType
	Status     DebtStatus
	SearchTerm string
}

type DebtSummary struct {
	OutstandingReceivable decimal.Decimal `json:"outstandingReceivable"`
	OutstandingPayable    decimal.Decimal `json:"outstandingPayable"`
	OverdueCount          int             `json:"overdueCount"`
	PendingCount          int             `json:"pendingCount"`
	PaidCount             int             `json:"paidCount"`
}

type ContactType string

type Contact struct {
	ID        ContactID   `json:"id"`
	Type      ContactType `json:"type"`
	Name      string      `json:"name"`
	Phone     string      `json:"phone,omitempty"`
	Address   string      `json:"address,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type ContactFilter struct {
	Type       ContactType
	SearchTerm string
}

const (
	TransactionInflow  TransactionType = "inflow"
	TransactionOutflow TransactionType = "outflow"
)

const (
	DebtReceivable DebtType = "receivable"
	DebtPayable    DebtType = "payable"
)

const (
	DebtPending DebtStatus = "pending"
	DebtOverdue DebtStatus = "overdue"
	DebtPaid    DebtStatus = "paid"
)

const (
	ContactClient   ContactType = "client"
	ContactSupplier ContactType = "supplier"
)

func (t TransactionType) Valid() bool {
	return t == TransactionInflow || t == TransactionOutflow
}

func (t DebtType) Valid() bool {
	return t == DebtReceivable || t == DebtPayable
}

func (t ContactType) Valid() bool {
	return t == ContactClient || t == ContactSupplier
}
