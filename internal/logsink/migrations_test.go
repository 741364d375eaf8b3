package logsink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsRegisteredInOrder(t *testing.T) {
	require.Len(t, Migrations, 2)
	assert.Equal(t, "0001_create_feed_logs", Migrations[0].ID)
	assert.Equal(t, "0002_create_transaction_logs", Migrations[1].ID)

	for _, m := range Migrations {
		assert.NotNil(t, m.Migrate, "migration %s missing Migrate func", m.ID)
		assert.NotNil(t, m.Rollback, "migration %s missing Rollback func", m.ID)
	}
}

func TestMigrationIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, m := range Migrations {
		assert.False(t, seen[m.ID], "duplicate migration ID %s", m.ID)
		seen[m.ID] = true
	}
}
