package db

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharanvkt/insane-dashboard-v2/errors"
)

func openMigrated(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenWithMigrations(filepath.Join(t.TempDir(), "tx.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func countDomains(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM domains").Scan(&n))
	return n
}

const insertDomain = `INSERT INTO domains (id, name, url, last_updated, updated_by, created_at)
	VALUES (?, 'A', 'https://a.com', '', 'x', '')`

func TestWithTx(t *testing.T) {
	db := openMigrated(t)

	t.Run("commits on success", func(t *testing.T) {
		err := WithTx(db, func(tx *sql.Tx) error {
			_, err := tx.Exec(insertDomain, "d1")
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 1, countDomains(t, db))
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := WithTx(db, func(tx *sql.Tx) error {
			if _, err := tx.Exec(insertDomain, "d2"); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, countDomains(t, db))
	})

	t.Run("rolls back and re-panics", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = WithTx(db, func(tx *sql.Tx) error {
				_, _ = tx.Exec(insertDomain, "d3")
				panic("handler bug")
			})
		})
		assert.Equal(t, 1, countDomains(t, db))
	})
}

func TestTimeLayout(t *testing.T) {
	local := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2024, 3, 9, 14, 30, 0, 123456789, local)

	s := FormatTime(ts)
	assert.Equal(t, "2024-03-09T12:30:00.123456Z", s)

	parsed, err := ParseTime(s)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts.Truncate(time.Microsecond)))

	// lexical order matches chronological order across second boundaries
	earlier := FormatTime(time.Date(2024, 3, 9, 12, 29, 59, 999999000, time.UTC))
	assert.Less(t, earlier, s)

	_, err = ParseTime("yesterday")
	assert.Error(t, err)
}

func TestNullHelpers(t *testing.T) {
	assert.Nil(t, NullTime(nil))
	assert.Nil(t, NullString(nil))

	v := "x"
	assert.Equal(t, "x", NullString(&v))
	assert.Nil(t, StringPtr(sql.NullString{}))
	assert.Equal(t, "y", *StringPtr(sql.NullString{String: "y", Valid: true}))

	parsed, err := ParseNullTime(sql.NullString{})
	require.NoError(t, err)
	assert.Nil(t, parsed)
}
