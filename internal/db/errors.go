package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	ErrKeyExists   = errors.New("db: key already exists")
	ErrQueryType   = errors.New("db: query handle belongs to another store")
)

// Op names give storage errors context.
const (
	OpGet       = "GET"
	OpSet       = "SET"
	OpIncr      = "INCR"
	OpGeoAdd    = "GEOADD"
	OpGeoRemove = "ZREM"
	OpGeoSearch = "GEOSEARCH"
	OpSelect    = "SELECT"
	OpCount     = "COUNT"
	OpUpsert    = "UPSERT"
	OpDelete    = "DELETE"
	OpSearch    = "SEARCH"
	OpIndex     = "INDEX"
	OpMigrate   = "MIGRATE"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
