package database

import (
	"database/sql"
	"regexp"
	"strconv"
	"strings"
)

// Dialect defines the interface for database-specific operations
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string

	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string

	// SupportsLastInsertId returns true if the driver supports LastInsertId()
	SupportsLastInsertId() bool

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir returns the subdirectory name for migrations (e.g., "sqlite", "postgres")
	MigrationsSubdir() string

	// CreateMigrationsTableQuery returns the SQL to create the migrations tracking table
	CreateMigrationsTableQuery() string

	// Upsert returns an INSERT that resolves a conflict on the natural key.
	// With no updateCols the existing row is left untouched.
	Upsert(table string, insertCols, conflictCols, updateCols []string) string

	// ForUpdate returns the row-locking suffix for SELECTs inside a transaction
	ForUpdate() string

	// ResetSequenceQuery returns the statement that moves table's id generator past
	// explicitly inserted ids, or "" when the database does this itself
	ResetSequenceQuery(table string) string
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

// placeholderRegexp matches ? placeholders not inside quotes
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

// Placeholders returns n comma separated ? placeholders
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// insertPrefix renders "INSERT INTO t (a, b) VALUES (?, ?)"
func insertPrefix(table string, cols []string) string {
	return "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + Placeholders(len(cols)) + ")"
}

// onConflictUpsert is shared by SQLite and PostgreSQL, which both accept ON CONFLICT
func onConflictUpsert(table string, insertCols, conflictCols, updateCols []string) string {
	query := insertPrefix(table, insertCols) + " ON CONFLICT (" + strings.Join(conflictCols, ", ") + ")"
	if len(updateCols) == 0 {
		return query + " DO NOTHING"
	}
	sets := make([]string, len(updateCols))
	for i, col := range updateCols {
		sets[i] = col + " = excluded." + col
	}
	return query + " DO UPDATE SET " + strings.Join(sets, ", ")
}
