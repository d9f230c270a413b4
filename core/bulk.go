/*
bulk.go - Bulk operation processor

PURPOSE:
  Applies one action to a set of requests with per-item success/failure
  isolation. Validation happens in two phases:

  Pre-flight (aborts the whole call, nothing mutated):
    - request_ids must be non-empty
    - every id must resolve inside the caller's hotel
    - action-required data must be present and resolvable

  Per-item (independent; one failure never aborts the rest):
    - state preconditions (assign needs pending, complete needs
      in_progress) become per-item errors
    - datastore failures are converted to generic per-item failures

AUDIT:
  One bulk_{action} event per successfully processed item, carrying the
  previous and applied field snapshots, then one bulk_operation_completed
  summary event for the whole call.
*/
package core

import (
	"context"
	"fmt"
	"time"
)

// BulkAction is the operation applied to every request in a bulk call.
type BulkAction string

const (
	BulkAssign         BulkAction = "assign"
	BulkUpdateStatus   BulkAction = "update_status"
	BulkUpdatePriority BulkAction = "update_priority"
	BulkComplete       BulkAction = "complete"
	BulkCancel         BulkAction = "cancel"
)

func (a BulkAction) Valid() bool {
	switch a {
	case BulkAssign, BulkUpdateStatus, BulkUpdatePriority, BulkComplete, BulkCancel:
		return true
	}
	return false
}

// BulkData carries the action-specific payload. Only the field the action
// requires is consulted.
type BulkData struct {
	AssignedStaffID string
	Status          Status
	Priority        Priority
	Reason          string
}

// BulkItemResult is one successfully processed request.
type BulkItemResult struct {
	RequestID string
	Request   ServiceRequest
}

// BulkItemError is one skipped or failed request.
type BulkItemError struct {
	RequestID string
	Reason    string
}

// BulkResult summarizes a bulk call.
type BulkResult struct {
	TotalRequests int
	Successful    int
	Failed        int
	Results       []BulkItemResult
	Errors        []BulkItemError
}

// BulkProcessor applies one action across many requests.
type BulkProcessor struct {
	Store Store
}

// BulkApply validates the batch, processes items independently in input
// order, and appends the per-item and summary analytics events.
func (bp *BulkProcessor) BulkApply(ctx context.Context, caller CallerContext, requestIDs []string, action BulkAction, data BulkData) (*BulkResult, error) {
	if len(requestIDs) == 0 {
		return nil, &ValidationError{Field: "request_ids", Message: "must not be empty"}
	}
	if !action.Valid() {
		return nil, &ValidationError{Field: "action", Message: fmt.Sprintf("unknown action %q", action)}
	}

	// Pre-flight: all ids must resolve in the caller's hotel. A single
	// foreign or missing id aborts the batch before any mutation.
	requests, err := bp.Store.GetRequests(ctx, caller.HotelID, requestIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve requests: %w", err)
	}
	if len(requests) != len(requestIDs) {
		return nil, ErrRequestNotFound
	}
	byID := make(map[string]ServiceRequest, len(requests))
	for _, r := range requests {
		byID[r.ID] = r
	}

	if err := bp.validateData(ctx, caller, action, data); err != nil {
		return nil, err
	}

	result := &BulkResult{TotalRequests: len(requestIDs)}
	now := time.Now().UTC()

	for _, id := range requestIDs {
		req := byID[id]
		updated, itemErr := bp.applyItem(ctx, caller, req, action, data, now)
		if itemErr != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkItemError{RequestID: id, Reason: itemErr.Error()})
			continue
		}
		result.Successful++
		result.Results = append(result.Results, BulkItemResult{RequestID: id, Request: *updated})
	}

	summary, err := NewEvent(caller.HotelID, BulkSummaryEvent{
		Action:      action,
		PerformedBy: caller.UserID,
		Total:       result.TotalRequests,
		Successful:  result.Successful,
		Failed:      result.Failed,
		RequestIDs:  requestIDs,
		Timestamp:   now,
	})
	if err == nil {
		err = bp.Store.AppendEvent(ctx, summary)
	}
	if err != nil {
		return nil, fmt.Errorf("append summary event: %w", err)
	}

	return result, nil
}

// validateData checks action-required fields before any per-item work.
func (bp *BulkProcessor) validateData(ctx context.Context, caller CallerContext, action BulkAction, data BulkData) error {
	switch action {
	case BulkAssign:
		if data.AssignedStaffID == "" {
			return &ValidationError{Field: "assigned_staff_id", Message: "required for assign"}
		}
		staff, err := bp.Store.GetUser(ctx, data.AssignedStaffID)
		if err != nil {
			return fmt.Errorf("resolve staff: %w", err)
		}
		if staff == nil || staff.HotelID != caller.HotelID || !staff.Role.IsStaff() {
			return ErrStaffNotFound
		}
	case BulkUpdateStatus:
		if !data.Status.Valid() {
			return &ValidationError{Field: "status", Message: "required for update_status"}
		}
	case BulkUpdatePriority:
		if !data.Priority.Valid() {
			return &ValidationError{Field: "priority", Message: "required for update_priority"}
		}
	}
	return nil
}

// applyItem processes a single request. State precondition violations
// come back as per-item errors; store failures are wrapped generically so
// the batch continues.
func (bp *BulkProcessor) applyItem(ctx context.Context, caller CallerContext, req ServiceRequest, action BulkAction, data BulkData, now time.Time) (*ServiceRequest, error) {
	previous := map[string]any{
		"status":            req.Status,
		"priority":          req.Priority,
		"assigned_staff_id": req.AssignedStaffID,
	}
	applied := map[string]any{}

	switch action {
	case BulkAssign:
		if req.Status != StatusPending {
			return nil, fmt.Errorf("Request is %s, cannot assign", req.Status)
		}
		req.AssignedStaffID = data.AssignedStaffID
		applyStatus(&req, StatusInProgress, now)
		applied["assigned_staff_id"] = data.AssignedStaffID
		applied["status"] = StatusInProgress

	case BulkUpdateStatus:
		applyStatus(&req, data.Status, now)
		applied["status"] = data.Status

	case BulkUpdatePriority:
		req.Priority = data.Priority
		applied["priority"] = data.Priority

	case BulkComplete:
		if req.Status != StatusInProgress {
			return nil, fmt.Errorf("Request is %s, cannot complete", req.Status)
		}
		applyStatus(&req, StatusCompleted, now)
		applied["status"] = StatusCompleted

	case BulkCancel:
		req.Status = StatusCancelled
		applied["status"] = StatusCancelled
	}

	event, err := NewEvent(caller.HotelID, BulkItemEvent{
		RequestID:   req.ID,
		Action:      action,
		PerformedBy: caller.UserID,
		Previous:    previous,
		Applied:     applied,
		Reason:      data.Reason,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process request %s", req.ID)
	}

	err = bp.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		// Datastore failure, not a validation skip. Generic reason so the
		// batch keeps going without leaking internals per item.
		return nil, fmt.Errorf("failed to process request %s", req.ID)
	}

	return &req, nil
}
