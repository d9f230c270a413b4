/*
errors.go - Centralized error types for the guest-services engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer maps these onto HTTP statuses in a single switch; the
  engine itself never deals in status codes.

ERROR CATEGORIES:
  1. Not-found errors  - id does not resolve within the caller's hotel
  2. Validation errors - missing or malformed input
  3. State conflicts   - request not in the status a transition requires
  4. Staffing errors   - no eligible assignee, or assignee over capacity

USAGE:
  Callers classify with the helpers:

    if core.IsNotFound(err) { ... 404 ... }
    if core.IsConflict(err) { ... 409 ... }

SEE ALSO:
  - api/handlers.go: maps these onto HTTP responses
*/
package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRequestNotFound is returned when a request id does not resolve
	// within the caller's hotel. Cross-tenant ids are indistinguishable
	// from missing ids on purpose.
	ErrRequestNotFound = errors.New("service request not found")

	// ErrStaffNotFound is returned when a staff id does not resolve to a
	// staff-role user in the caller's hotel.
	ErrStaffNotFound = errors.New("staff member not found")

	// ErrHotelNotFound is returned when a hotel id does not resolve.
	ErrHotelNotFound = errors.New("hotel not found")

	// ErrRequestNotPending is returned when assignment requires a pending
	// request and the request has already moved on. Also covers the lost
	// side of a concurrent assignment race.
	ErrRequestNotPending = errors.New("service request is not pending")

	// ErrNoStaffAvailable is returned when automatic assignment finds no
	// staff member under the concurrency ceiling.
	ErrNoStaffAvailable = errors.New("no staff available for assignment")

	// ErrStaffUnavailable is returned when an explicitly preferred staff
	// member is over capacity and the caller did not force the assignment.
	ErrStaffUnavailable = errors.New("staff member is at capacity")

	// ErrValidation is the base error for malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrTerminalStatus is returned when a transition is attempted out of
	// completed or cancelled.
	ErrTerminalStatus = errors.New("request is in a terminal status")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a specific malformed or missing field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError describes a request in the wrong status for a transition.
type ConflictError struct {
	RequestID string
	Status    Status // current status
	Action    string // what was attempted, e.g. "assign"
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("request %s is %s, cannot %s", e.RequestID, e.Status, e.Action)
}

func (e *ConflictError) Unwrap() error { return ErrRequestNotPending }

// UnavailableStaffError describes a preferred staff member over capacity.
type UnavailableStaffError struct {
	StaffID        string
	ActiveRequests int
}

func (e *UnavailableStaffError) Error() string {
	return fmt.Sprintf("staff %s has %d active requests (max %d)",
		e.StaffID, e.ActiveRequests, MaxConcurrentRequests)
}

func (e *UnavailableStaffError) Unwrap() error { return ErrStaffUnavailable }

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing or
// out-of-tenant resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrStaffNotFound) ||
		errors.Is(err, ErrHotelNotFound)
}

// IsConflict reports whether the error is a lifecycle state conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrRequestNotPending) ||
		errors.Is(err, ErrTerminalStatus)
}

// IsClientError reports whether the error is due to invalid client input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNoStaffAvailable) ||
		errors.Is(err, ErrStaffUnavailable)
}
