package postgres

import "database/sql"

// NewStoreForTest wraps an existing *sql.DB (test-only).
func NewStoreForTest(conn *sql.DB, table string) *Store {
	return newStore(conn, table)
}
