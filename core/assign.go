/*
assign.go - Staff assignment engine

PURPOSE:
  Decides which staff member receives a pending service request and binds
  them atomically: assignee, status=in_progress and startedAt move in one
  conditional update, with the analytics event in the same transaction.

SELECTION:
  Manual:    caller names a staff member. They must belong to the hotel,
             hold a staff role, and be under the concurrency ceiling -
             unless the caller forces the assignment.
  Automatic: rank available staff by (active requests asc, name asc).
             High/urgent requests take the head of the ranking. Low and
             medium requests recompute the minimum load, filter to the
             staff achieving it, and take the first of that subset. Both
             branches currently pick the same candidate; the second
             branch is the seam where a round-robin policy would diverge.

RACE SAFETY:
  The availability snapshot and the claim are not one serializable unit.
  The claim itself is conditional on status=pending, so when two callers
  race on one request exactly one wins; the loser gets a state conflict.

SEE ALSO:
  - workload.go: the candidate ranking
  - lifecycle.go: reassignment after the initial bind
*/
package core

import (
	"context"
	"fmt"
	"time"
)

// AssignOptions modify a single assignment call.
type AssignOptions struct {
	// PreferredStaffID selects manual assignment. Empty means automatic.
	PreferredStaffID string

	// ForceAssign bypasses the availability check for a preferred staff
	// member. Ignored for automatic assignment.
	ForceAssign bool
}

// AssignmentEngine binds staff to pending requests.
type AssignmentEngine struct {
	Store     Store
	Inspector *WorkloadInspector
	Notifier  Notifier
}

// Assign assigns a pending request to a staff member, manually or
// automatically, and returns the updated request with details joined.
func (e *AssignmentEngine) Assign(ctx context.Context, caller CallerContext, requestID string, opts AssignOptions) (*RequestDetail, error) {
	if requestID == "" {
		return nil, &ValidationError{Field: "request_id", Message: "must not be empty"}
	}

	req, err := e.Store.GetRequest(ctx, caller.HotelID, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request: %w", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.Status != StatusPending {
		return nil, &ConflictError{RequestID: requestID, Status: req.Status, Action: "assign"}
	}

	workloads, err := e.Inspector.AvailableStaff(ctx, caller.HotelID)
	if err != nil {
		return nil, err
	}

	var (
		staffID string
		method  AssignmentMethod
	)
	if opts.PreferredStaffID != "" {
		method = MethodManual
		staffID, err = pickPreferred(workloads, opts.PreferredStaffID, opts.ForceAssign)
	} else {
		method = MethodAutomatic
		staffID, err = pickAutomatic(workloads, req.Priority)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	event, err := NewEvent(caller.HotelID, AssignedEvent{
		RequestID:       req.ID,
		AssignedStaffID: staffID,
		AssignedBy:      caller.UserID,
		Method:          method,
		Priority:        req.Priority,
		ServiceID:       req.ServiceID,
	})
	if err != nil {
		return nil, err
	}

	// Claim and audit commit together or not at all.
	err = e.Store.WithTx(ctx, func(tx Store) error {
		claimed, err := tx.ClaimPending(ctx, caller.HotelID, req.ID, staffID, now)
		if err != nil {
			return fmt.Errorf("claim request: %w", err)
		}
		if !claimed {
			return &ConflictError{RequestID: req.ID, Status: req.Status, Action: "assign"}
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	detail, err := loadDetail(ctx, e.Store, caller.HotelID, req.ID)
	if err != nil {
		return nil, err
	}

	e.Notifier.Notify(ctx, Notification{
		UserID:  staffID,
		HotelID: caller.HotelID,
		Title:   "New request assigned",
		Body:    detail.Title,
	})

	return detail, nil
}

// =============================================================================
// CANDIDATE SELECTION
// =============================================================================

// pickPreferred validates an explicitly named staff member against the
// workload snapshot.
func pickPreferred(workloads []StaffWorkload, staffID string, force bool) (string, error) {
	for _, w := range workloads {
		if w.StaffID != staffID {
			continue
		}
		if !w.IsAvailable && !force {
			return "", &UnavailableStaffError{StaffID: staffID, ActiveRequests: w.ActiveRequests}
		}
		return staffID, nil
	}
	return "", ErrStaffNotFound
}

// pickAutomatic selects the least-loaded available staff member. The
// workload slice is already ranked by (active asc, name asc).
func pickAutomatic(workloads []StaffWorkload, priority Priority) (string, error) {
	var eligible []StaffWorkload
	for _, w := range workloads {
		if w.IsAvailable {
			eligible = append(eligible, w)
		}
	}
	if len(eligible) == 0 {
		return "", ErrNoStaffAvailable
	}

	if priority == PriorityHigh || priority == PriorityUrgent {
		// Urgent work goes straight to the least-loaded candidate.
		return eligible[0].StaffID, nil
	}

	// Normal priority: take the first of the staff tied at the minimum
	// load. Today this is eligible[0] as well; this branch is where a
	// round-robin policy over the tied subset would plug in.
	minActive := eligible[0].ActiveRequests
	for _, w := range eligible[1:] {
		if w.ActiveRequests < minActive {
			minActive = w.ActiveRequests
		}
	}
	var tied []StaffWorkload
	for _, w := range eligible {
		if w.ActiveRequests == minActive {
			tied = append(tied, w)
		}
	}
	return tied[0].StaffID, nil
}

// =============================================================================
// DETAIL LOADING
// =============================================================================

// loadDetail joins the related entities onto a request. Missing relations
// are left nil rather than failing the read.
func loadDetail(ctx context.Context, s Store, hotelID, requestID string) (*RequestDetail, error) {
	req, err := s.GetRequest(ctx, hotelID, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	detail := &RequestDetail{ServiceRequest: *req}
	if req.GuestID != "" {
		detail.Guest, _ = s.GetUser(ctx, req.GuestID)
	}
	if req.AssignedStaffID != "" {
		detail.AssignedStaff, _ = s.GetUser(ctx, req.AssignedStaffID)
	}
	if req.RoomID != "" {
		detail.Room, _ = s.GetRoom(ctx, hotelID, req.RoomID)
	}
	if req.ServiceID != "" {
		detail.Service, _ = s.GetService(ctx, hotelID, req.ServiceID)
	}
	return detail, nil
}
