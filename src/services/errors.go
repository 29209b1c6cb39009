package services

import "errors"

var (
	// ErrParsingFailed wraps materialization failures (unreadable file,
	// unusable header).
	ErrParsingFailed = errors.New("file parsing failed")

	// ErrSessionNotFound means the import session expired or never existed.
	ErrSessionNotFound = errors.New("import session not found")

	// ErrRowNotFound means the row id does not belong to the session.
	ErrRowNotFound = errors.New("row not found in session")

	// ErrCommitInFlight rejects a second commit while one is running.
	ErrCommitInFlight = errors.New("a commit is already in flight for this session")

	// ErrNoPortfolio is the precondition failure reported before any
	// network call when no target portfolio was given.
	ErrNoPortfolio = errors.New("a portfolio must be selected before importing")

	// ErrNothingToImport means the session has no rows in a valid state.
	ErrNothingToImport = errors.New("no valid rows to import")
)
