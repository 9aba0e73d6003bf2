package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vsaq.sqlite")

	db, err := Open(path)
	require.NoError(t, err)

	var version int
	var dirty bool
	require.NoError(t, db.QueryRow(`SELECT version, dirty FROM schema_migrations`).Scan(&version, &dirty))
	assert.Equal(t, 1, version)
	assert.False(t, dirty)

	_, err = db.Exec(`INSERT INTO admin (username, password_hash, created_at) VALUES ('root', 'x', 0)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	again, err := migrateDB(db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, again)

	var admins int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM admin`).Scan(&admins))
	assert.Equal(t, 1, admins, "reopening keeps the data")
}

func TestOpenEnablesForeignKeys(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "vsaq.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	var on int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&on))
	assert.Equal(t, 1, on)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file:vsaq.sqlite?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL", dsn("vsaq.sqlite"))
	assert.Equal(t, "file:x.db?mode=rwc&_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL", dsn("file:x.db?mode=rwc"))
}
