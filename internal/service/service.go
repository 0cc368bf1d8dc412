// Package service holds the bookkeeping services. Each service owns one
// collection and serializes its own read-modify-write cycles; state shared
// with other processes is last-write-wins at collection granularity.
package service

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"kasbook/backend/internal/apperr"
)

// Deps are the collaborators every service shares.
type Deps struct {
	Reporter *apperr.Reporter
	Log      zerolog.Logger
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Reporter == nil {
		d.Reporter = apperr.NewReporter()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// fail reports err and returns it classified. Storage failures were already
// reported by the accessor and pass through.
func (d Deps) fail(err error, message string) error {
	return d.Reporter.Fail(err, message)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

func normalizeSearch(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
