package repository

import (
	"database/sql"
	"time"

	"suzukitracker/internal/database"
)

// inArgs renders "?, ?, ?" for ids and returns them as query args
func inArgs(ids []int64) (string, []interface{}) {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return database.Placeholders(len(ids)), args
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func timeArg(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func now() time.Time {
	return time.Now().UTC()
}

// rowsAffected returns how many rows a write touched
func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// lockSuffix returns the dialect's row lock clause when lock is set
func lockSuffix(db database.DBTX, lock bool) string {
	if !lock {
		return ""
	}
	return db.GetDialect().ForUpdate()
}
