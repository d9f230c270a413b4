/*
Package core implements the guest-services engine.

PURPOSE:
  This package contains the tenant-scoped domain model and the algorithms
  that govern a service request from creation to completion: the workload
  inspector, the assignment engine, the lifecycle controller, and the bulk
  operation processor. Persistence is behind interfaces (see store.go) so
  the same engine runs against SQLite in production and an in-memory store
  in tests.

KEY CONCEPTS IN THIS FILE (types.go):
  - ServiceRequest: the unit of work, scoped to exactly one hotel
  - Priority/Status: the request's urgency and lifecycle state
  - User/Role: guests raise requests, staff fulfill them
  - CallerContext: the authenticated identity every operation receives
  - StaffWorkload: derived per-staff view of active load

DESIGN PRINCIPLES:
  1. Tenant isolation: every read and write is keyed by HotelID
  2. Explicit identity: CallerContext is passed in, never read from globals
  3. Derived workload: active counts are recomputed per call, never cached
  4. Auditability: every mutation appends an analytics event (events.go)

SEE ALSO:
  - assign.go: staff selection and the assignment transaction
  - lifecycle.go: status transitions and reassignment
  - bulk.go: batch operations with per-item failure isolation
*/
package core

import "time"

// =============================================================================
// ENUMS - Status, priority, roles
// =============================================================================

// Status is the lifecycle state of a service request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Priority is the urgency of a service request.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank orders priorities for sorting: urgent > high > medium > low.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Role is a user's role within a hotel.
type Role string

const (
	RoleGuest      Role = "guest"
	RoleHotelStaff Role = "hotel_staff"
	RoleHotelAdmin Role = "hotel_admin"
)

// IsStaff reports whether the role can be assigned service requests.
func (r Role) IsStaff() bool {
	return r == RoleHotelStaff || r == RoleHotelAdmin
}

// =============================================================================
// CALLER CONTEXT - Who is acting
// =============================================================================

// CallerContext identifies the authenticated caller of an operation.
// Session issuance is external; the engine only consumes the resolved
// identity and re-verifies tenant scope on every read.
type CallerContext struct {
	UserID  string
	Role    Role
	HotelID string
}

// =============================================================================
// ENTITIES
// =============================================================================

// Hotel is the tenant. All request and staff data is scoped by its ID.
type Hotel struct {
	ID        string
	Name      string
	PlanTier  string // billing tier, gates room/staff limits
	CreatedAt time.Time
}

// Room is a physical room guests request services for.
type Room struct {
	ID        string
	HotelID   string
	Number    string
	Floor     int
	CreatedAt time.Time
}

// Service is a category of guest service (room service, housekeeping, ...).
type Service struct {
	ID        string
	HotelID   string
	Name      string
	Category  string
	CreatedAt time.Time
}

// User is a guest or staff member belonging to one hotel.
type User struct {
	ID        string
	HotelID   string
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// ServiceRequest is the unit of work: one guest-initiated request routed
// to staff. It belongs to exactly one hotel for its whole life.
//
// Invariants:
//   - AssignedStaffID is empty iff Status is pending (single-item paths;
//     the ad-hoc status update deliberately relaxes this, see lifecycle.go)
//   - StartedAt is set when the request first enters in_progress and is
//     never cleared by later transitions
//   - CompletedAt is set iff Status is completed
type ServiceRequest struct {
	ID              string
	HotelID         string
	RoomID          string // optional, empty when the flow has no room
	GuestID         string
	ServiceID       string
	AssignedStaffID string // empty until assigned

	Title       string
	Description string
	Priority    Priority
	Status      Status

	RequestedAt time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// RequestDetail is a ServiceRequest with its related entities joined,
// returned by the single-item operations.
type RequestDetail struct {
	ServiceRequest
	Guest         *User
	AssignedStaff *User
	Room          *Room
	Service       *Service
}

// =============================================================================
// WORKLOAD
// =============================================================================

// MaxConcurrentRequests is the per-staff active request ceiling. A staff
// member at or over this count is unavailable for assignment unless the
// caller forces the assignment explicitly.
const MaxConcurrentRequests = 5

// StaffWorkload is the derived per-staff load snapshot used for
// assignment decisions. Recomputed on every call; never cached.
type StaffWorkload struct {
	StaffID               string
	StaffName             string
	ActiveRequests        int
	MaxConcurrentRequests int
	IsAvailable           bool
	LastAssignedAt        *time.Time
}

// =============================================================================
// FILTERS
// =============================================================================

// RequestFilter narrows request listings. Zero values mean "no filter".
// Results are ordered by priority rank descending, then recency.
type RequestFilter struct {
	Status          Status
	Priority        Priority
	AssignedStaffID string
	GuestID         string
}
