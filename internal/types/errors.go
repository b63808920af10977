package types

import "errors"

var (
	// ErrInvalidCoordinate rejects an analysis before any subtask starts.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrProviderTimeout marks a provider call that exceeded its deadline.
	ErrProviderTimeout = errors.New("provider timeout")

	// ErrProviderUnavailable marks a provider that returned a non-retryable
	// failure (bad status, malformed body, connection refused).
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrNoRoute is returned by a routing tier that answered but found no
	// usable route; the fallback chain treats it like any tier failure.
	ErrNoRoute = errors.New("no route found")

	// ErrBudgetExceeded signals that optional work should be skipped. It is
	// never surfaced past the orchestrator.
	ErrBudgetExceeded = errors.New("cost budget would be exceeded")
)
