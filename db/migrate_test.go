package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWithMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenWithMigrations(dbPath, nil)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"schema_migrations", "domains", "scheduled_updates", "domain_history"} {
		var exists int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&exists)
		require.NoError(t, err)
		assert.Equal(t, 1, exists, "table %s should exist after migrations", table)
	}

	var versions int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 4, versions)
}

func TestMigrate(t *testing.T) {
	t.Run("is idempotent", func(t *testing.T) {
		db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, Migrate(db, nil))
		require.NoError(t, Migrate(db, nil), "running migrations multiple times should be safe")

		var versions int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
		assert.Equal(t, 4, versions)
	})

	t.Run("fails on closed database", func(t *testing.T) {
		db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
		require.NoError(t, err)
		db.Close()

		assert.Error(t, Migrate(db, nil))
	})

	t.Run("schedule constraints are enforced", func(t *testing.T) {
		db, err := OpenWithMigrations(filepath.Join(t.TempDir(), "test.db"), nil)
		require.NoError(t, err)
		defer db.Close()

		// recurring without a unit violates the recurrence CHECK
		_, err = db.Exec(`INSERT INTO scheduled_updates
			(id, domain_id, updates, schedule_type, execute_at, status, created_by, created_at)
			VALUES ('s1', 'd1', '{}', 'recurring', '2030-01-01T00:00:00.000000Z', 'pending', 'a', '2030-01-01T00:00:00.000000Z')`)
		assert.Error(t, err)

		_, err = db.Exec(`INSERT INTO scheduled_updates
			(id, domain_id, updates, schedule_type, execute_at, status, created_by, created_at)
			VALUES ('s2', 'd1', '{}', 'once', '2030-01-01T00:00:00.000000Z', 'paused', 'a', '2030-01-01T00:00:00.000000Z')`)
		assert.Error(t, err, "unknown status must be rejected")
	})
}
