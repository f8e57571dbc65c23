package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMigrated(t *testing.T) *DB {
	t.Helper()
	db, err := Initialize(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.RunMigrations(context.Background(), "")
	require.NoError(t, err)
	return db
}

func TestDatabaseIntegration(t *testing.T) {
	db := openMigrated(t)
	ctx := context.Background()

	tables := []string{
		"teachers", "password_resets", "students", "book_templates", "song_templates",
		"book_assignments", "student_songs", "progress_notes", "attendance",
	}
	for _, table := range tables {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s not found", table)
	}

	t.Run("migrations are recorded once", func(t *testing.T) {
		applied, err := db.RunMigrations(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, applied)

		var count int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations").Scan(&count))
		assert.Equal(t, 1, count)
	})
}

func TestWithTx(t *testing.T) {
	db := openMigrated(t)
	ctx := context.Background()

	countTeachers := func() int {
		var n int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM teachers").Scan(&n))
		return n
	}

	t.Run("commit", func(t *testing.T) {
		err := db.WithTx(ctx, func(tx *Tx) error {
			id, err := tx.ExecReturningID(ctx,
				"INSERT INTO teachers (email, password_hash, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
				"commit@example.com", "x", "Commit", time.Now().UTC(), time.Now().UTC())
			assert.Positive(t, id)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 1, countTeachers())
	})

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.WithTx(ctx, func(tx *Tx) error {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO teachers (email, password_hash, name) VALUES (?, ?, ?)",
				"rollback@example.com", "x", "Rollback")
			require.NoError(t, err)
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, countTeachers())
	})

	t.Run("rollback on panic", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = db.WithTx(ctx, func(tx *Tx) error {
				_, _ = tx.ExecContext(ctx,
					"INSERT INTO teachers (email, password_hash, name) VALUES (?, ?, ?)",
					"panic@example.com", "x", "Panic")
				panic("boom")
			})
		})
		assert.Equal(t, 1, countTeachers())
	})
}

func TestUniqueViolation(t *testing.T) {
	db := openMigrated(t)
	ctx := context.Background()

	insert := "INSERT INTO teachers (email, password_hash, name) VALUES (?, ?, ?)"
	_, err := db.ExecContext(ctx, insert, "dup@example.com", "x", "One")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, insert, "dup@example.com", "x", "Two")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(errors.New("other")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestUpsertAgainstSQLite(t *testing.T) {
	db := openMigrated(t)
	ctx := context.Background()

	teacherID, err := db.ExecReturningID(ctx, "INSERT INTO teachers (email, password_hash, name) VALUES (?, ?, ?)", "t@example.com", "x", "T")
	require.NoError(t, err)
	studentID, err := db.ExecReturningID(ctx, "INSERT INTO students (teacher_id, name) VALUES (?, ?)", teacherID, "Ana")
	require.NoError(t, err)

	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	query := db.Dialect.Upsert("attendance", []string{"student_id", "date", "present"}, []string{"student_id", "date"}, []string{"present"})

	_, err = db.ExecContext(ctx, query, studentID, day, true)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, query, studentID, day, false)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM attendance WHERE student_id = ?", studentID).Scan(&count))
	assert.Equal(t, 1, count)

	var present bool
	require.NoError(t, db.QueryRowContext(ctx, "SELECT present FROM attendance WHERE student_id = ?", studentID).Scan(&present))
	assert.False(t, present)
}
