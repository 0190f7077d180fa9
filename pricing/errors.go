/*
errors.go - Centralized error types for the pricing engine

PURPOSE:
  All pricing error kinds in one place. The API layer maps them to HTTP
  statuses with errors.Is/As, so the engine never needs to know about HTTP.

ERROR CATEGORIES:
  1. Validation errors - caller input violates a documented precondition (400)
  2. Not-found errors  - config/member/factor/option missing (404)
  3. State errors      - operation illegal in the current status (409)
  4. Concurrency       - unique-constraint collision, retried then surfaced (409)
  5. Dependency errors - catalog data missing; operator data-setup bug (500)

USAGE:
  if pricing.IsClientError(err) { ... 400 ... }
  var verr *pricing.ValidationError
  if errors.As(err, &verr) { ... verr.Rule ... }

SEE ALSO:
  - engine.go: Where these are raised
  - api/handlers.go: HTTP mapping
*/
package pricing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConfigNotFound is returned when a referenced configuration doesn't exist.
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrMemberNotFound is returned when a referenced member doesn't exist.
	ErrMemberNotFound = errors.New("member not found")

	// ErrFactorNotFound is returned for an unknown T&C factor code.
	ErrFactorNotFound = errors.New("factor not found")

	// ErrOptionNotFound is returned for an unknown T&C option value.
	ErrOptionNotFound = errors.New("option not found")

	// ErrStepNotFound is returned when no workflow step matches the name.
	ErrStepNotFound = errors.New("workflow step not found")

	// ErrInvalidState is returned when an operation is illegal in the
	// configuration's current status (e.g. submitting a QUOTED config).
	ErrInvalidState = errors.New("operation not allowed in current status")

	// ErrNumberCollision is returned when quote/policy number generation
	// exhausts its retries against the unique constraint.
	ErrNumberCollision = errors.New("number generation collision")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a violated precondition, naming the rule.
type ValidationError struct {
	Rule    string // machine-readable, e.g. "min_participants"
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func newValidation(rule, format string, args ...any) *ValidationError {
	return &ValidationError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// StateError reports an operation attempted in the wrong status.
type StateError struct {
	ConfigID ConfigID
	Status   Status
	Message  string
}

func (e *StateError) Error() string { return e.Message }

func (e *StateError) Unwrap() error { return ErrInvalidState }

// DependencyError reports missing catalog data the engine requires.
// Operators treat this as a data-setup bug, not a caller mistake.
type DependencyError struct {
	Kind string // "template", "factor_option", "age_band", ...
	Key  string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("catalog dependency missing: %s %q", e.Kind, e.Key)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrConfigNotFound) ||
		errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrFactorNotFound) ||
		errors.Is(err, ErrOptionNotFound) ||
		errors.Is(err, ErrStepNotFound)
}

// IsClientError reports whether the error is due to invalid caller input.
func IsClientError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsStateError reports whether the error is a status conflict.
func IsStateError(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsDependencyError reports whether the error is a catalog data-setup bug.
func IsDependencyError(err error) bool {
	var derr *DependencyError
	return errors.As(err, &derr)
}
