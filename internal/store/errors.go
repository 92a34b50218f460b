package store

import "errors"

// Error kinds for store operations. Every failure returned by the store
// wraps exactly one of these; callers match with errors.Is.
var (
	// ErrOpen means the embedded engine refused to open or upgrade.
	ErrOpen = errors.New("log store: open failed")

	// ErrWrite means an insert or clear transaction aborted. The caller
	// must not assume the record was persisted.
	ErrWrite = errors.New("log store: write transaction failed")

	// ErrRead means a scan transaction aborted.
	ErrRead = errors.New("log store: read transaction failed")
)
