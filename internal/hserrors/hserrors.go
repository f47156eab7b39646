// Package hserrors defines the sentinel error groups shared across Hardstop
// operators. Each operator wraps these with fmt.Errorf("%w: ...") context;
// callers match with errors.Is.
package hserrors

import "errors"

// Configuration errors — returned while loading or resolving config.
var (
	// ErrConfigParse is returned when a config file fails to parse.
	ErrConfigParse = errors.New("config parse error")

	// ErrSchemaDrift is returned when a config file is missing required
	// fields or carries fields the current schema no longer recognizes.
	ErrSchemaDrift = errors.New("config schema drift")

	// ErrInvalidSuppressionRule is returned at load time for a malformed
	// suppression rule (bad regex, duplicate id).
	ErrInvalidSuppressionRule = errors.New("invalid suppression rule")
)

// Ingestion errors — returned while fetching or normalizing raw items.
var (
	// ErrFetchFailure is returned when a source fetch fails outright.
	ErrFetchFailure = errors.New("fetch failure")

	// ErrCanonicalization is a non-fatal warning raised when an item cannot
	// be fully normalized; processing continues with partial fields.
	ErrCanonicalization = errors.New("canonicalization warning")
)

// Linking and scoring errors — returned while resolving network linkage or
// computing impact.
var (
	// ErrLinkagePartial is a non-fatal warning raised when network data is
	// incomplete for an event.
	ErrLinkagePartial = errors.New("linkage partial")

	// ErrScoringDegraded is a non-fatal warning raised when a scoring
	// subcomponent cannot be computed and was defaulted to zero.
	ErrScoringDegraded = errors.New("scoring degraded")
)

// Correlation errors — returned while creating or updating alerts.
var (
	// ErrCorrelationConflict is returned when two concurrent updates target
	// the same correlation key and cannot both apply.
	ErrCorrelationConflict = errors.New("correlation conflict")
)

// Determinism errors — returned by the provenance kernel in strict mode.
var (
	// ErrDeterminismViolation is returned by Tracker.Finalize when an
	// operator running in strict mode recorded best-effort metadata.
	ErrDeterminismViolation = errors.New("determinism violation in strict mode")
)

// Storage errors — returned by append-only log and repository implementations.
var (
	// ErrNotFound is returned when a lookup finds no matching record.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when an append would violate a store's
	// uniqueness constraint.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrCorruptLog is returned when a log file fails replay validation.
	ErrCorruptLog = errors.New("corrupt log file")
)
