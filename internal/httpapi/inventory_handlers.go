package httpapi

import (
	"errors"
	"net/http"

	"kasbook/backend/internal/domain"
	"kasbook/backend/internal/service"
)

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		lowStock, err := parseIntParam(q.Get("low_stock"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		products, err := a.app.Inventory.List(r.Context(), domain.ProductFilter{
			SearchTerm: q.Get("q"),
			Category:   q.Get("category"),
			LowStock:   lowStock,
		})
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products})
	case http.MethodPost:
		var req service.ProductInput
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.app.Inventory.Create(r.Context(), req)
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"product": product})
	default:
		writeMethodNotAllowed(w)
	}
}

// handleProductActions serves /products/{id} and
// /products/{id}/variants/{variantID}.
func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r, "/api/v1/products/")
	if len(parts) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("product id required"))
		return
	}
	id := domain.ProductID(parts[0])

	if len(parts) == 3 && parts[1] == "variants" {
		if r.Method != http.MethodPut {
			writeMethodNotAllowed(w)
			return
		}
		var req struct {
			Quantity int `json:"quantity"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.app.Inventory.UpdateVariantQuantity(r.Context(), id, domain.VariantID(parts[2]), req.Quantity)
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": product})
		return
	}
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, errors.New("unknown product path"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		product, err := a.app.Inventory.GetByID(r.Context(), id)
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": product})
	case http.MethodPatch:
		var req service.ProductUpdate
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.app.Inventory.Update(r.Context(), id, req)
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": product})
	case http.MethodDelete:
		if err := a.app.Inventory.Delete(r.Context(), id); err != nil {
			a.writeFailure(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}

// handleStockAdjust applies a batch of relative stock movements. Items fail
// independently, so the response is 200 even when some of them did.
func (a *API) handleStockAdjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req struct {
		Adjustments []domain.StockAdjustment `json:"adjustments"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	results, err := a.app.Inventory.BatchAdjustStock(r.Context(), req.Adjustments)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
