package xid

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a prefixed random id such as "tx-3f0c...". Prefixes keep ids
// readable in exported files and logs.
func New(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}
