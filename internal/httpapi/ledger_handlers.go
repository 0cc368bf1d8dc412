package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kasbook/backend/internal/domain"
	"kasbook/backend/internal/service"
)

type transactionRequest struct {
	Type          domain.TransactionType `json:"type"`
	Description   string                 `json:"description"`
	Amount        decimal.Decimal        `json:"amount"`
	Category      string                 `json:"category,omitempty"`
	PaymentMethod string                 `json:"paymentMethod,omitempty"`
	Reference     string                 `json:"reference,omitempty"`
	Items         []domain.LineItem      `json:"items,omitempty"`
	COGS          *decimal.Decimal       `json:"cogs,omitempty"`
	Timestamp     *time.Time             `json:"timestamp,omitempty"`
}

func (req transactionRequest) toService() service.NewTransaction {
	in := service.NewTransaction{
		Type:          req.Type,
		Description:   req.Description,
		Amount:        req.Amount,
		Category:      req.Category,
		PaymentMethod: req.PaymentMethod,
		Reference:     req.Reference,
		Items:         req.Items,
		COGS:          req.COGS,
	}
	if req.Timestamp != nil {
		in.Timestamp = req.Timestamp.UTC()
	}
	return in
}

func transactionFilterFrom(r *http.Request) (domain.TransactionFilter, error) {
	q := r.URL.Query()
	start, err := parseDateParam(q.Get("start"))
	if err != nil {
		return domain.TransactionFilter{}, err
	}
	end, err := parseDateParam(q.Get("end"))
	if err != nil {
		return domain.TransactionFilter{}, err
	}
	typ := domain.TransactionType(strings.ToLower(strings.TrimSpace(q.Get("type"))))
	if typ != "" && !typ.Valid() {
		return domain.TransactionFilter{}, errors.New("type must be inflow or outflow")
	}
	return domain.TransactionFilter{
		StartDate:  start,
		EndDate:    end,
		Type:       typ,
		SearchTerm: q.Get("q"),
	}, nil
}

func (a *API) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter, err := transactionFilterFrom(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		txs, err := a.app.Ledger.Query(r.Context(), filter)
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
	case http.MethodPost:
		var req transactionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		tx, err := a.app.Ledger.Add(r.Context(), req.toService())
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"transaction": tx})
	default:
		writeMethodNotAllowed(w)
	}
}

// handleTransactionActions serves /transactions/summary,
// /transactions/categories, /transactions/batch and /transactions/{id}.
func (a *API) handleTransactionActions(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r, "/api/v1/transactions/")
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, errors.New("unknown transaction path"))
		return
	}

	switch parts[0] {
	case "batch":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var reqs []transactionRequest
		if err := decodeJSON(r, &reqs); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		ins := make([]service.NewTransaction, 0, len(reqs))
		for _, req := range reqs {
			ins = append(ins, req.toService())
		}
		txs, err := a.app.Ledger.AddBatch(r.Context(), ins)
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"transactions": txs})
	case "summary", "categories":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		filter, err := transactionFilterFrom(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if parts[0] == "summary" {
			summary, err := a.app.Ledger.Summarize(r.Context(), filter)
			if err != nil {
				a.writeFailure(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"summary": summary})
			return
		}
		totals, err := a.app.Ledger.ByCategory(r.Context(), filter)
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": totals})
	default:
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		tx, err := a.app.Ledger.GetByID(r.Context(), domain.TransactionID(parts[0]))
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"transaction": tx})
	}
}
