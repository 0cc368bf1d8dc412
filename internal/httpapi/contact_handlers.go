package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"kasbook/backend/internal/domain"
	"kasbook/backend/internal/service"
)

func (a *API) handleContacts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		contacts, err := a.app.Contacts.List(r.Context(), domain.ContactFilter{
			Type:       domain.ContactType(strings.ToLower(strings.TrimSpace(q.Get("type")))),
			SearchTerm: q.Get("q"),
		})
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"contacts": contacts})
	case http.MethodPost:
		var req service.NewContact
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		contact, err := a.app.Contacts.Create(r.Context(), req)
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"contact": contact})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleContactActions(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r, "/api/v1/contacts/")
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, errors.New("unknown contact path"))
		return
	}
	id := domain.ContactID(parts[0])

	switch r.Method {
	case http.MethodGet:
		contact, err := a.app.Contacts.GetByID(r.Context(), id)
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"contact": contact})
	case http.MethodPatch:
		var req service.ContactUpdate
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		contact, err := a.app.Contacts.Update(r.Context(), id, req)
		if err != nil {
			a.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"contact": contact})
	case http.MethodDelete:
		if err := a.app.Contacts.Delete(r.Context(), id); err != nil {
			a.writeFailure(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}
