package querycache

import "errors"

// ErrUnresolvedTable is returned when a table reference cannot be turned into
// a canonical table name. It is a programming error: the cache refuses to
// index or invalidate under a guessed name.
var ErrUnresolvedTable = errors.New("querycache: table reference cannot be resolved")

// StoreError reports a key-value store fault for a single operation.
type StoreError struct {
	Op  string // get, set or delete
	Key string
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return "querycache: store " + e.Op + " " + e.Key + ": " + e.Err.Error()
}

// Unwrap returns the underlying store client error.
func (e *StoreError) Unwrap() error {
	return e.Err
}
