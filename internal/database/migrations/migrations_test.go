package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationIDsAreOrderedAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	prev := ""
	for _, m := range All() {
		assert.NotNil(t, m.Migrate, m.ID)
		assert.NotNil(t, m.Rollback, m.ID)
		assert.False(t, seen[m.ID], "duplicate migration %s", m.ID)
		assert.Greater(t, m.ID, prev)
		seen[m.ID] = true
		prev = m.ID
	}
	assert.Len(t, seen, 2)
}
