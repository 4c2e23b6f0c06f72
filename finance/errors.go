/*
errors.go - Centralized error taxonomy for the ledger engines

PURPOSE:
  All error classes in one place for consistency and discoverability.
  The payroll and billing packages wrap these with domain context; the API
  layer maps each class to an HTTP status.

ERROR CLASSES:
  1. Validation errors  - Bad input shape/range (hours out of bounds,
                          non-positive payment amount)
  2. Not-found errors   - Unknown teacher/student/installment/request id
  3. Conflict errors    - Duplicate hour request for a date; installment
                          creation race
  4. Invariant errors   - Would break a ledger invariant (negative total,
                          MODIFIED review without modified values)

All four classes are recoverable at the caller boundary. Storage failures
propagate as plain infrastructure errors outside this taxonomy.

USAGE:
  if errors.Is(err, finance.ErrConflict) {
      // duplicate row, safe to re-read
  }

SEE ALSO:
  - api/handlers.go: Maps these classes to HTTP statuses
*/
package finance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all bad-input errors.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced entity doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned on uniqueness violations: a second hour request
	// for the same (teacher, date), or an installment creation race.
	ErrConflict = errors.New("conflict")

	// ErrDomainInvariant is returned when an operation would break a ledger
	// invariant that validation alone cannot catch.
	ErrDomainInvariant = errors.New("domain invariant violated")

	// ErrInvalidAmount is returned when an operation would produce a negative
	// monetary value where the domain forbids one.
	ErrInvalidAmount = errors.New("invalid amount")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a bad input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports a missing entity by kind and id.
type NotFoundError struct {
	Kind string // "teacher", "student", "installment", "hour request", ...
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports a uniqueness violation.
type ConflictError struct {
	Kind string
	Key  string // the natural key that collided, e.g. "teacher-1/2025-03-10"
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists for %s", e.Kind, e.Key)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// DomainInvariantError reports an operation that would break a ledger rule.
type DomainInvariantError struct {
	Invariant string // short rule name, e.g. "non_negative_total"
	Message   string
}

func (e *DomainInvariantError) Error() string {
	return fmt.Sprintf("%s: %s", e.Invariant, e.Message)
}

func (e *DomainInvariantError) Unwrap() error { return ErrDomainInvariant }

// InvalidAmountError reports a forbidden negative or non-positive amount.
type InvalidAmountError struct {
	Field  string
	Amount Money
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount for %s: %s", e.Field, e.Amount)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is attributable to caller input
// and should surface as a 4xx-equivalent outcome.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrDomainInvariant) ||
		errors.Is(err, ErrInvalidAmount)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict returns true if the error indicates a uniqueness violation.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsValidation returns true for bad-input errors, including forbidden
// negative amounts.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidAmount)
}
