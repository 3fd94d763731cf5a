package database

import "database/sql"

// Binding links one end user to the staff group forum topic that holds their
// conversation. Rows are keyed by UserID; ThreadID is indexed for the reverse
// lookup but not unique.
type Binding struct {
	UserID   int64 `db:"user_id"`
	ThreadID int   `db:"topic_id"`

	// CreatedAt is empty for rows written before the column existed.
	CreatedAt sql.NullTime `db:"created_at"`
}
