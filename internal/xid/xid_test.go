package xid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsPrefixedAndUnique(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for n := 0; n < 100; n++ {
		id := New("tx")
		assert.True(t, strings.HasPrefix(id, "tx-"))
		assert.Len(t, id, len("tx-")+32)
		_, dup := seen[id]
		assert.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, New(""), 32)
}
