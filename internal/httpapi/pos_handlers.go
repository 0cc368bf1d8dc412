package httpapi

import (
	"net/http"

	"kasbook/backend/internal/service"
)

type cartRequest struct {
	Lines         []service.CartLine `json:"lines"`
	PaymentMethod string             `json:"paymentMethod,omitempty"`
	Supplier      string             `json:"supplier,omitempty"`
}

func (a *API) handleStockCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req cartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	shortages, err := a.app.POS.CheckStock(r.Context(), req.Lines)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"available": len(shortages) == 0,
		"shortages": shortages,
	})
}

func (a *API) handleSale(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req cartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	receipt, err := a.app.POS.CompleteSale(r.Context(), req.Lines, req.PaymentMethod)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"receipt": receipt})
}

func (a *API) handlePurchase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req cartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	receipt, err := a.app.POS.CompletePurchase(r.Context(), req.Lines, req.Supplier, req.PaymentMethod)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"receipt": receipt})
}

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := a.app.Settings.Get(r.Context())
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
	case http.MethodPut:
		var req service.AppSettings
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		settings, err := a.app.Settings.Update(r.Context(), req)
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
	default:
		writeMethodNotAllowed(w)
	}
}
