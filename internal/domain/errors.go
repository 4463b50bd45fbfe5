package domain

import "errors"

// Sentinel errors shared across the engine. Callers match them with
// errors.Is after any number of fmt.Errorf %w wrappings.
var (
	// ErrInvalidAmount rejects a candidate whose amount is missing,
	// unparsable, zero or negative.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrUnknownRecordType rejects a candidate whose kind is not one of
	// the recognized variants.
	ErrUnknownRecordType = errors.New("unknown record type")

	// ErrExtractionFailed means the completion service returned nothing
	// usable (empty or malformed output). No record is guessed.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrServiceUnavailable means the completion service could not be
	// reached within the configured timeout and retry budget.
	ErrServiceUnavailable = errors.New("completion service unavailable")

	// ErrNoMatch means no stored record scored above the resolver's
	// minimum threshold.
	ErrNoMatch = errors.New("no matching record")

	// ErrAmbiguousMatch means two or more records tied within the
	// resolver's similarity margin; the caller must ask the user.
	ErrAmbiguousMatch = errors.New("ambiguous match")

	// ErrCurrencyMismatch flags records excluded from a report because
	// their currency differs from the reporting currency.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrNotFound is returned by the ledger store for an unknown id.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized rejects input from any user other than the
	// configured ledger owner.
	ErrUnauthorized = errors.New("unauthorized user")
)
