// Package apperr carries failures out of band to whoever presents them.
// Operations still return their error; the Reporter additionally fans every
// failure out to the handlers registered at startup.
package apperr

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"kasbook/backend/internal/domain"
)

type Kind string

const (
	KindStorage    Kind = "storage"
	KindValidation Kind = "validation"
	KindNetwork    Kind = "network"
	KindUnknown    Kind = "unknown"
)

var (
	ErrStorageFull = errors.New("storage full")
	ErrSaveFailed  = errors.New("save failed")
	ErrLoadFailed  = errors.New("load failed")
)

type Error struct {
	Kind      Kind      `json:"type"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Err       error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string, cause error) *Error {
	e := &Error{
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Err:       cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// From classifies an arbitrary error. Errors that already are *Error pass
// through untouched.
func From(err error, message string) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	kind := KindUnknown
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrDebtSettled):
		kind = KindValidation
	case errors.Is(err, ErrStorageFull), errors.Is(err, ErrSaveFailed), errors.Is(err, ErrLoadFailed):
		kind = KindStorage
	}
	if message == "" {
		message = err.Error()
	}
	return New(kind, message, err)
}

func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

type Handler func(*Error)

// Reporter is the process-wide handler registry.
type Reporter struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]Handler
}

func NewReporter() *Reporter {
	return &Reporter{handlers: make(map[int]Handler)}
}

// Register adds a handler and returns the func that removes it again.
func (r *Reporter) Register(h Handler) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.handlers[id] = h
	return func() {
		r.mu.Lock()
		delete(r.handlers, id)
		r.mu.Unlock()
	}
}

func (r *Reporter) Report(e *Error) {
	if r == nil || e == nil {
		return
	}
	r.mu.RLock()
	handlers := make([]Handler, 0, len(r.handlers))
	for _, h := range r.handlers {
		handlers = append(handlers, h)
	}
	r.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// Fail classifies err, reports it and returns it for the caller to propagate.
// An err that already is an *Error was reported where it was created and is
// returned as is.
func (r *Reporter) Fail(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	e := From(err, message)
	r.Report(e)
	return e
}
