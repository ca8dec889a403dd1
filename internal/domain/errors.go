package domain

import "errors"

// Error kinds surfaced by the adapters. Callers match them with errors.Is.
var (
	// ErrFetch means a rate could not be fetched or parsed. It aborts a valuation run.
	ErrFetch = errors.New("rate fetch failed")
	// ErrStore means the value store could not be read or written.
	ErrStore = errors.New("value store failed")
	// ErrNotify means a notification could not be delivered.
	ErrNotify = errors.New("notification failed")
)
