package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.env")))
	err := rootCmd.Execute()
	// failed commands skip the post-run hook
	_ = closeLedger(rootCmd, nil)
	return out.String(), err
}

func TestLedgerctl_SQLite(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_SQLITE_PATH", filepath.Join(t.TempDir(), "ledger.db"))

	t.Run("migrate", func(t *testing.T) {
		out, err := execute(t, "migrate")
		require.NoError(t, err)
		assert.Contains(t, out, "Schema is up to date")
	})

	t.Run("seed creates catalog and admin", func(t *testing.T) {
		out, err := execute(t, "seed", "--admin-id", "admin-1", "--admin-email", "ops@example.com")
		require.NoError(t, err)
		assert.Contains(t, out, `"Ceylon Tea Sampler" (50.00)`)
		assert.Contains(t, out, `"Mobile Data Pack" (75.50)`)
		assert.Contains(t, out, "Admin account admin-1 ready")
	})

	t.Run("seed is idempotent", func(t *testing.T) {
		out, err := execute(t, "seed")
		require.NoError(t, err)
		assert.Contains(t, out, "Catalog already has 3 ads, skipping")
	})

	t.Run("user show", func(t *testing.T) {
		out, err := execute(t, "user", "show", "admin-1")
		require.NoError(t, err)
		assert.Contains(t, out, `"isAdmin": true`)
		assert.Contains(t, out, `"status": "active"`)
	})

	t.Run("user status", func(t *testing.T) {
		out, err := execute(t, "user", "status", "admin-1", "frozen")
		require.NoError(t, err)
		assert.Contains(t, out, `"status": "frozen"`)

		_, err = execute(t, "user", "status", "admin-1", "banned")
		assert.Error(t, err)
	})

	t.Run("user admin", func(t *testing.T) {
		out, err := execute(t, "user", "admin", "admin-1", "--revoke")
		require.NoError(t, err)
		assert.Contains(t, out, `"isAdmin": false`)

		out, err = execute(t, "seed", "--admin-id", "admin-1", "--skip-ads")
		require.NoError(t, err)
		assert.Contains(t, out, "Promoted existing user admin-1 to admin")
		assert.Contains(t, out, "Admin account admin-1 ready")

		_, err = execute(t, "user", "admin", "--revoke=false", "nobody")
		assert.Error(t, err)
	})

	t.Run("reset daily rewards", func(t *testing.T) {
		out, err := execute(t, "reset-daily-rewards")
		require.NoError(t, err)
		assert.Contains(t, out, "Reset daily rewards for 1 users")
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := execute(t, "user", "show", "nobody")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "User not found")
	})
}

func TestLedgerctl_RejectsMemoryDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "memory")

	_, err := execute(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persistent database")
}
