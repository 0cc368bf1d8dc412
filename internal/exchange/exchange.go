// Package exchange reads and writes the bulk ledger file formats.
package exchange

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kasbook/backend/internal/domain"
)

const Version = "1.0.0"

// StatusCompleted is written for every exported ledger entry; the ledger
// keeps no other state.
const StatusCompleted = "completed"

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q", raw)
	}
}

// Entry is the portable form of a ledger transaction.
type Entry struct {
	Date        time.Time              `json:"date"`
	Type        domain.TransactionType `json:"type"`
	Amount      decimal.Decimal        `json:"amount"`
	Category    string                 `json:"category"`
	Description string                 `json:"description"`
	Reference   string                 `json:"reference,omitempty"`
	Status      string                 `json:"status,omitempty"`
}

// Document is the JSON export envelope.
type Document struct {
	Version      string    `json:"version"`
	ExportDate   time.Time `json:"exportDate"`
	TotalEntries int       `json:"totalEntries"`
	Entries      []Entry   `json:"entries"`
}

func FromTransactions(txs []domain.Transaction) []Entry {
	out := make([]Entry, 0, len(txs))
	for _, tx := range txs {
		out = append(out, Entry{
			Date:        tx.Timestamp,
			Type:        tx.Type,
			Amount:      tx.Amount,
			Category:    tx.Category,
			Description: tx.Description,
			Reference:   tx.Reference,
			Status:      StatusCompleted,
		})
	}
	return out
}

// Result summarizes an import. Entries holds the valid subset; nothing has
// been written anywhere yet.
type Result struct {
	Success        bool     `json:"success"`
	TotalEntries   int      `json:"totalEntries"`
	ValidEntries   int      `json:"validEntries"`
	InvalidEntries int      `json:"invalidEntries"`
	Errors         []string `json:"errors"`
	Entries        []Entry  `json:"entries,omitempty"`
}
