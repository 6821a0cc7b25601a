package domain

import "errors"

// Closed set of business outcomes. Callers branch on these with errors.Is;
// anything else bubbling out of the engine is an infrastructure failure.
var (
	// ErrNotFound covers missing members, trades and rates alike.
	ErrNotFound = errors.New("not found")

	// ErrNoActiveRate means trade creation was attempted before any gold
	// rate was published (or the active one was lost to a failed insert).
	ErrNoActiveRate = errors.New("no active gold rate")

	// ErrInsufficientHoldings rejects any operation that would drive a
	// member's holdings below zero.
	ErrInsufficientHoldings = errors.New("insufficient gold holdings")

	// ErrInvalidStateTransition rejects a status change the trade state
	// machine does not allow (wrong current status or wrong trade type).
	ErrInvalidStateTransition = errors.New("invalid trade state transition")

	// ErrCannotReverse rejects a BUY cancellation when the member no longer
	// holds the purchased quantity.
	ErrCannotReverse = errors.New("cannot reverse trade: gold already sold or transferred")

	// ErrConflict surfaces after the facade exhausts its retries against a
	// concurrent writer.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrNotAllowed rejects operations reserved for admins (BUY creation).
	ErrNotAllowed = errors.New("operation not allowed for caller")

	// ErrInvalidInput rejects requests that fail field validation.
	ErrInvalidInput = errors.New("invalid input")
)
