package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"kasbook/backend/internal/domain"
	"kasbook/backend/internal/service"
)

// debtRequest takes the due date as RFC 3339 or a plain YYYY-MM-DD day.
type debtRequest struct {
	Type         domain.DebtType `json:"type"`
	Counterparty string          `json:"counterparty"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	DueDate      string          `json:"dueDate"`
	Category     string          `json:"category,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

func (req debtRequest) toService() (service.NewDebt, error) {
	in := service.NewDebt{
		Type:         req.Type,
		Counterparty: req.Counterparty,
		Amount:       req.Amount,
		Description:  req.Description,
		Category:     req.Category,
		Notes:        req.Notes,
	}
	due, err := parseDateParam(req.DueDate)
	if err != nil {
		return service.NewDebt{}, err
	}
	if due != nil {
		in.DueDate = due.UTC()
	}
	return in, nil
}

func (a *API) handleDebts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		debts, err := a.app.Debts.ListAll(r.Context(), domain.DebtFilter{
			Type:       domain.DebtType(strings.ToLower(strings.TrimSpace(q.Get("type")))),
			Status:     domain.DebtStatus(strings.ToLower(strings.TrimSpace(q.Get("status")))),
			SearchTerm: q.Get("q"),
		})
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"debts": debts})
	case http.MethodPost:
		var req debtRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		in, err := req.toService()
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		debt, err := a.app.Debts.Create(r.Context(), in)
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"debt": debt})
	default:
		writeMethodNotAllowed(w)
	}
}

// handleDebtActions serves /debts/summary, /debts/{id} and
// /debts/{id}/payments. A payment without an amount settles the debt.
func (a *API) handleDebtActions(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r, "/api/v1/debts/")
	if len(parts) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("debt id required"))
		return
	}

	if len(parts) == 1 && parts[0] == "summary" {
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		summary, err := a.app.Debts.Summarize(r.Context())
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"summary": summary})
		return
	}

	id := domain.DebtID(parts[0])
	if len(parts) == 2 && parts[1] == "payments" {
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var req struct {
			Amount *decimal.Decimal `json:"amount,omitempty"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var (
			debt domain.DebtEntry
			err  error
		)
		if req.Amount == nil {
			debt, err = a.app.Debts.MakeFullPayment(r.Context(), id)
		} else {
			debt, err = a.app.Debts.MakePartialPayment(r.Context(), id, *req.Amount)
		}
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"debt": debt})
		return
	}
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, errors.New("unknown debt path"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		debt, err := a.app.Debts.GetByID(r.Context(), id)
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"debt": debt})
	case http.MethodDelete:
		if err := a.app.Debts.Delete(r.Context(), id); err != nil {
			a.writeFailure(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}
