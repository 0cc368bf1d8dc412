package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"kasbook/backend/internal/exchange"
)

const maxImportBody = 10 << 20

// handleExport streams the filtered ledger as a download.
func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	format, err := exchange.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
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

	now := time.Now().UTC()
	entries := exchange.FromTransactions(txs)
	filename := fmt.Sprintf("kasbook-export-%s.%s", now.Format("2006-01-02"), format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	switch format {
	case exchange.FormatCSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		err = exchange.WriteCSV(w, entries)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err = exchange.WriteJSON(w, entries, now)
	}
	if err != nil {
		a.log.Warn().Err(err).Str("format", string(format)).Msg("export interrupted")
	}
}

// handleImport validates an uploaded file. Nothing is written unless
// commit=true, and then only the valid entries are appended.
func (a *API) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	format, err := exchange.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	commit, _ := strconv.ParseBool(q.Get("commit"))

	body := http.MaxBytesReader(w, r.Body, maxImportBody)
	result := a.app.Importer.Import(format, body)
	if !result.Success {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"result": result, "imported": 0})
		return
	}
	if !commit {
		writeJSON(w, http.StatusOK, map[string]any{"result": result, "imported": 0})
		return
	}

	txs, err := a.app.Ledger.ImportEntries(r.Context(), result.Entries)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result, "imported": len(txs)})
}
