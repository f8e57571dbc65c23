// Package dbtest opens migrated SQLite databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"suzukitracker/internal/database"
)

// New returns a migrated SQLite database in a temporary directory, closed when the test ends
func New(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.RunMigrations(context.Background(), "")
	require.NoError(t, err)
	return db
}

// Teacher inserts a teacher row and returns its ID
func Teacher(t testing.TB, db database.DBTX, email string) int64 {
	t.Helper()
	id, err := db.ExecReturningID(context.Background(),
		"INSERT INTO teachers (email, password_hash, name) VALUES (?, ?, ?)", email, "hash", email)
	require.NoError(t, err)
	return id
}
