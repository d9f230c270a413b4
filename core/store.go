/*
store.go - Persistence interfaces for the engine

PURPOSE:
  Defines the boundary between the domain logic and the datastore. The
  engine only assumes a relational store with atomic multi-statement
  transactions; SQLite and the in-memory store both satisfy it.

KEY INTERFACES:
  RequestStore: service request persistence, tenant-scoped reads,
                conditional claim for the assignment race
  UserStore:    users and staff lookups
  HotelStore:   hotels, rooms, services (onboarding surface)
  EventLog:     append-only analytics events
  Store:        all of the above plus WithTx for atomic sequences

CONDITIONAL CLAIM:
  ClaimPending is the compare-and-swap that makes concurrent assignment
  safe: "set assignee and flip to in_progress where the request is still
  pending". Two callers racing on one request means exactly one claim
  succeeds; the loser sees ErrRequestNotPending.

ATOMICITY:
  Any mutation paired with its analytics event runs inside WithTx so the
  audit trail never records a change that did not commit.

IMPLEMENTATIONS:
  - store/sqlite:      production store
  - core/store/memory: in-memory store for tests and dev
*/
package core

import (
	"context"
	"time"
)

// =============================================================================
// REQUEST STORE
// =============================================================================

// RequestStore persists service requests. Every read is scoped by hotel:
// an id that exists under another hotel behaves as missing.
type RequestStore interface {
	CreateRequest(ctx context.Context, r ServiceRequest) error

	// GetRequest returns nil (no error) when the id does not resolve
	// within the hotel.
	GetRequest(ctx context.Context, hotelID, id string) (*ServiceRequest, error)

	// GetRequests returns the subset of ids that resolve within the
	// hotel, in no particular order. Callers compare lengths to detect
	// out-of-tenant ids.
	GetRequests(ctx context.Context, hotelID string, ids []string) ([]ServiceRequest, error)

	// ListRequests returns requests matching the filter, ordered by
	// priority rank descending then RequestedAt descending.
	ListRequests(ctx context.Context, hotelID string, f RequestFilter) ([]ServiceRequest, error)

	// UpdateRequest overwrites the mutable fields of an existing request.
	UpdateRequest(ctx context.Context, r ServiceRequest) error

	// ClaimPending conditionally assigns a pending request: sets the
	// assignee, status=in_progress and startedAt only if the request is
	// still pending. Returns false when the request was already claimed
	// or is otherwise past pending.
	ClaimPending(ctx context.Context, hotelID, requestID, staffID string, at time.Time) (bool, error)

	// CountActiveByStaff returns, per staff id, the number of requests
	// assigned to them with status pending or in_progress.
	CountActiveByStaff(ctx context.Context, hotelID string) (map[string]int, error)
}

// =============================================================================
// USER / HOTEL STORES
// =============================================================================

type UserStore interface {
	SaveUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (*User, error)

	// ListStaff returns users with a staff role in the hotel.
	ListStaff(ctx context.Context, hotelID string) ([]User, error)
	CountStaff(ctx context.Context, hotelID string) (int, error)
}

type HotelStore interface {
	SaveHotel(ctx context.Context, h Hotel) error
	GetHotel(ctx context.Context, id string) (*Hotel, error)

	SaveRoom(ctx context.Context, r Room) error
	GetRoom(ctx context.Context, hotelID, id string) (*Room, error)
	CountRooms(ctx context.Context, hotelID string) (int, error)

	SaveService(ctx context.Context, s Service) error
	GetService(ctx context.Context, hotelID, id string) (*Service, error)
	ListServices(ctx context.Context, hotelID string) ([]Service, error)
}

// =============================================================================
// EVENT LOG - Append-only analytics trail
// =============================================================================

// EventLog stores analytics events. Append-only: no update, no delete.
// The engine writes events as a side effect of mutations and reads them
// back only for LastAssignments and the admin event listing.
type EventLog interface {
	AppendEvent(ctx context.Context, e Event) error
	QueryEvents(ctx context.Context, hotelID string, f EventFilter) ([]Event, error)

	// LastAssignments returns, per staff id, the timestamp of the most
	// recent assignment or reassignment event in the hotel.
	LastAssignments(ctx context.Context, hotelID string) (map[string]time.Time, error)
}

// EventFilter narrows event queries.
type EventFilter struct {
	Types []string
	Since time.Time
	Limit int
}

// =============================================================================
// STORE - Everything, plus transactions
// =============================================================================

// Store is the full persistence surface the engine operates on.
type Store interface {
	RequestStore
	UserStore
	HotelStore
	EventLog

	// WithTx executes fn within a transaction. If fn returns an error
	// the transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
