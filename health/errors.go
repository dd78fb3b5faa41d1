package health

import "errors"

var (
	// ErrCheckTimeout indicates a health check did not finish in time.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrDuplicateChecker indicates two checkers share a name.
	ErrDuplicateChecker = errors.New("health: duplicate checker name")
)
