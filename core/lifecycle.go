/*
lifecycle.go - Request status transitions and reassignment

PURPOSE:
  Governs what happens to a request after creation:

    pending ──▶ in_progress ──▶ completed
       │             │
       └─────────────┴────────▶ cancelled

  completed and cancelled are terminal.

TWO ENTRY POINTS, TWO STRICTNESS LEVELS:
  UpdateStatus is the ad-hoc staff-driven path: it permits any transition
  between non-terminal source states, including jumping straight to
  completed from pending. The bulk `complete` action (bulk.go) is strict
  and requires in_progress. The asymmetry is intentional and tested; do
  not unify the two paths.

ASSIGNMENT INDEPENDENCE:
  UpdateStatus never touches the assignee. A staff member may self-assign
  then update status, or update status without any reassignment.

TIMESTAMPS:
  startedAt is set the first time a request enters in_progress and never
  cleared. completedAt is set on completion; completed is terminal, so it
  is set exactly once.
*/
package core

import (
	"context"
	"fmt"
	"time"
)

// DefaultReassignReason is recorded when the caller gives no reason.
const DefaultReassignReason = "No reason provided"

// LifecycleController enforces the request state machine.
type LifecycleController struct {
	Store    Store
	Notifier Notifier
}

// UpdateStatus applies an ad-hoc status change. Terminal states reject
// further transitions; everything else is permitted, including
// pending → completed (the strict precondition lives on the bulk path).
func (lc *LifecycleController) UpdateStatus(ctx context.Context, caller CallerContext, requestID string, newStatus Status) (*RequestDetail, error) {
	if requestID == "" {
		return nil, &ValidationError{Field: "request_id", Message: "must not be empty"}
	}
	if !newStatus.Valid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", newStatus)}
	}

	req, err := lc.Store.GetRequest(ctx, caller.HotelID, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request: %w", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.Status.Terminal() {
		return nil, ErrTerminalStatus
	}

	applyStatus(req, newStatus, time.Now().UTC())

	if err := lc.Store.UpdateRequest(ctx, *req); err != nil {
		return nil, fmt.Errorf("update request: %w", err)
	}

	return loadDetail(ctx, lc.Store, caller.HotelID, requestID)
}

// applyStatus mutates status and the transition timestamps in one place,
// shared by the ad-hoc path and the bulk processor.
func applyStatus(req *ServiceRequest, newStatus Status, at time.Time) {
	req.Status = newStatus
	if newStatus == StatusInProgress && req.StartedAt == nil {
		t := at
		req.StartedAt = &t
	}
	if newStatus == StatusCompleted {
		t := at
		req.CompletedAt = &t
	}
}

// Reassign changes the assignee of a request in any status without
// altering the status itself. The new staff member must belong to the
// caller's hotel and hold a staff role.
func (lc *LifecycleController) Reassign(ctx context.Context, caller CallerContext, requestID, newStaffID, reason string) (*RequestDetail, error) {
	if requestID == "" {
		return nil, &ValidationError{Field: "request_id", Message: "must not be empty"}
	}
	if newStaffID == "" {
		return nil, &ValidationError{Field: "staff_id", Message: "must not be empty"}
	}
	if reason == "" {
		reason = DefaultReassignReason
	}

	req, err := lc.Store.GetRequest(ctx, caller.HotelID, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request: %w", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	staff, err := lc.Store.GetUser(ctx, newStaffID)
	if err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}
	if staff == nil || staff.HotelID != caller.HotelID || !staff.Role.IsStaff() {
		return nil, ErrStaffNotFound
	}

	previous := req.AssignedStaffID
	req.AssignedStaffID = newStaffID

	event, err := NewEvent(caller.HotelID, ReassignedEvent{
		RequestID:       req.ID,
		PreviousStaffID: previous,
		NewStaffID:      newStaffID,
		ReassignedBy:    caller.UserID,
		Reason:          reason,
	})
	if err != nil {
		return nil, err
	}

	err = lc.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.UpdateRequest(ctx, *req); err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	lc.Notifier.Notify(ctx, Notification{
		UserID:  newStaffID,
		HotelID: caller.HotelID,
		Title:   "Request reassigned to you",
		Body:    req.Title,
	})

	return loadDetail(ctx, lc.Store, caller.HotelID, requestID)
}
