package store

import (
	"path/filepath"
	"testing"

	"github.com/adrewards/backend/internal/database"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db, database.SQLite))
	return NewSQLStore(db, database.SQLite)
}

func TestSQLStore_SQLite(t *testing.T) {
	runStoreSuite(t, newSQLiteStore)
}
