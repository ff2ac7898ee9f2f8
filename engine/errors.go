/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The HTTP layer maps these onto status codes; domain packages never
  define their own.

ERROR CATEGORIES:
  1. Schema errors     - configuration mistakes, fatal at startup
  2. Validation errors - a single insert/update is rejected, store unchanged
  3. Derivation errors - recovered locally with a documented fallback value

USAGE:
  rec, err := ctx.Insert(c, raw)
  var verr *engine.ValidationError
  if errors.As(err, &verr) {
      fmt.Println(verr.Kind, verr.Field)
  }

SEE ALSO:
  - schema.go: raises SchemaError
  - validate.go: raises ValidationError
  - expr.go: raises DerivationError
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrSchema is the root of every configuration error.
	ErrSchema = errors.New("schema error")

	// ErrValidation is the root of every rejected insert/update.
	ErrValidation = errors.New("validation error")

	// ErrDerivation marks a recovered evaluation failure.
	ErrDerivation = errors.New("derivation error")

	// ErrRecordNotFound is returned when a record id or key does not exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrCapacityExceeded is returned when the store already holds the
	// configured maximum number of records.
	ErrCapacityExceeded = errors.New("record capacity exceeded")

	// ErrInvalidRange is returned when a date range ends before it starts.
	ErrInvalidRange = errors.New("invalid range: to before from")

	// ErrInvalidAggregation is returned when an aggregation spec names
	// something the schema cannot group or sum by.
	ErrInvalidAggregation = errors.New("invalid aggregation")

	// ErrTransitionRejected is returned by a transition guard.
	ErrTransitionRejected = errors.New("status transition rejected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

type SchemaErrorKind string

const (
	SchemaDuplicateField    SchemaErrorKind = "duplicate_field"
	SchemaUnknownField      SchemaErrorKind = "unknown_field"
	SchemaCycle             SchemaErrorKind = "cycle"
	SchemaInvalidExpression SchemaErrorKind = "invalid_expression"
	SchemaInvalidField      SchemaErrorKind = "invalid_field"
	SchemaInvalidSlotGroup  SchemaErrorKind = "invalid_slot_group"
)

// SchemaError is raised while building a Schema. It is never recoverable.
type SchemaError struct {
	Kind   SchemaErrorKind
	Field  string
	Detail string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema %s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("schema %s on %q: %s", e.Kind, e.Field, e.Detail)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

type ValidationKind string

const (
	ValidationMissingRequired ValidationKind = "missing_required"
	ValidationOutOfDomain     ValidationKind = "out_of_domain"
	ValidationNotNumeric      ValidationKind = "not_numeric"
	ValidationInvalidDate     ValidationKind = "invalid_date"
	ValidationOutOfRange      ValidationKind = "out_of_range"
	ValidationPrecision       ValidationKind = "precision"
	ValidationUnknownField    ValidationKind = "unknown_field"
	ValidationDerivedWrite    ValidationKind = "derived_field_write"
	ValidationTooManySlots    ValidationKind = "too_many_slots"
	ValidationOrphanSlotValue ValidationKind = "orphan_slot_value"
)

// ValidationError rejects a single insert or update.
// Record is zero for inserts (no identity has been assigned yet).
type ValidationError struct {
	Kind    ValidationKind
	Field   string
	Record  RecordID
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: field %q", e.Kind, e.Field)
	if e.Record != 0 {
		msg += fmt.Sprintf(" (record %d)", e.Record)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// DerivationError records an evaluation failure and the value substituted
// for it. It is attached to the record, never returned to the caller.
type DerivationError struct {
	Field    string
	Record   RecordID
	Cause    string
	Fallback Value
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("derivation of %q (record %d): %s, using %q",
		e.Field, e.Record, e.Cause, e.Fallback.String())
}

func (e *DerivationError) Unwrap() error { return ErrDerivation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidAggregation) ||
		errors.Is(err, ErrTransitionRejected)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}
