package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"kasbook/backend/internal/apperr"
	"kasbook/backend/internal/broadcast"
)

const (
	eventBuffer       = 64
	keepAliveInterval = 25 * time.Second
)

type changeEvent struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

type sseEvent struct {
	name    string
	payload any
}

// handleEvents streams bus changes and reported failures as server-sent
// events. A slow client loses events rather than stalling publishers; it
// should re-read whatever key it cares about after reconnecting.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	events := make(chan sseEvent, eventBuffer)
	offer := func(ev sseEvent) {
		select {
		case events <- ev:
		default:
		}
	}
	cancelChanges := a.app.Bus.Subscribe(func(change broadcast.Change) {
		offer(sseEvent{name: "change", payload: changeEvent{Key: change.Key, Origin: change.Origin}})
	})
	defer cancelChanges()
	cancelErrors := a.app.Reporter.Register(func(e *apperr.Error) {
		offer(sseEvent{name: "error", payload: e})
	})
	defer cancelErrors()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := writeEvent(w, sseEvent{name: "ready", payload: map[string]string{"origin": a.app.Origin}}); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev := <-events:
			if err := writeEvent(w, ev); err != nil {
				a.log.Debug().Err(err).Msg("event stream closed")
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev sseEvent) error {
	data, err := json.Marshal(ev.payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, data)
	return err
}
