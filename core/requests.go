/*
requests.go - Guest-facing request creation and tenant-scoped queries

PURPOSE:
  The entry point of the data flow: a guest creates a ServiceRequest in
  status pending, staff list and inspect requests through typed filters.
  Everything downstream (assignment, lifecycle, bulk) operates on what is
  created here.
*/
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateRequestInput is the guest-facing creation payload.
type CreateRequestInput struct {
	Title       string
	Description string
	Priority    Priority
	ServiceID   string
	RoomID      string // optional
}

// RequestRepository creates and queries service requests for one hotel.
type RequestRepository struct {
	Store    Store
	Notifier Notifier
}

// Create validates the input and persists a new pending request raised by
// the caller. Staff are notified fire-and-forget.
func (rr *RequestRepository) Create(ctx context.Context, caller CallerContext, in CreateRequestInput) (*RequestDetail, error) {
	if in.Title == "" {
		return nil, &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, &ValidationError{Field: "priority", Message: fmt.Sprintf("unknown priority %q", in.Priority)}
	}
	if in.ServiceID == "" {
		return nil, &ValidationError{Field: "service_id", Message: "must not be empty"}
	}

	svc, err := rr.Store.GetService(ctx, caller.HotelID, in.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("resolve service: %w", err)
	}
	if svc == nil {
		return nil, &ValidationError{Field: "service_id", Message: "unknown service"}
	}
	if in.RoomID != "" {
		room, err := rr.Store.GetRoom(ctx, caller.HotelID, in.RoomID)
		if err != nil {
			return nil, fmt.Errorf("resolve room: %w", err)
		}
		if room == nil {
			return nil, &ValidationError{Field: "room_id", Message: "unknown room"}
		}
	}

	req := ServiceRequest{
		ID:          uuid.NewString(),
		HotelID:     caller.HotelID,
		RoomID:      in.RoomID,
		GuestID:     caller.UserID,
		ServiceID:   in.ServiceID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      StatusPending,
		RequestedAt: time.Now().UTC(),
	}

	event, err := NewEvent(caller.HotelID, RequestCreatedEvent{
		RequestID: req.ID,
		GuestID:   req.GuestID,
		ServiceID: req.ServiceID,
		Priority:  req.Priority,
	})
	if err != nil {
		return nil, err
	}

	err = rr.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.CreateRequest(ctx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	staff, err := rr.Store.ListStaff(ctx, caller.HotelID)
	if err == nil {
		for _, s := range staff {
			rr.Notifier.Notify(ctx, Notification{
				UserID:  s.ID,
				HotelID: caller.HotelID,
				Title:   "New service request",
				Body:    req.Title,
			})
		}
	}

	return loadDetail(ctx, rr.Store, caller.HotelID, req.ID)
}

// Get returns one request with details joined, or ErrRequestNotFound.
// Guests may only see their own requests.
func (rr *RequestRepository) Get(ctx context.Context, caller CallerContext, requestID string) (*RequestDetail, error) {
	detail, err := loadDetail(ctx, rr.Store, caller.HotelID, requestID)
	if err != nil {
		return nil, err
	}
	if caller.Role == RoleGuest && detail.GuestID != caller.UserID {
		return nil, ErrRequestNotFound
	}
	return detail, nil
}

// List returns requests matching the filter, ordered by priority rank
// descending then recency. Guest callers are pinned to their own requests.
func (rr *RequestRepository) List(ctx context.Context, caller CallerContext, f RequestFilter) ([]ServiceRequest, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", f.Status)}
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return nil, &ValidationError{Field: "priority", Message: fmt.Sprintf("unknown priority %q", f.Priority)}
	}
	if caller.Role == RoleGuest {
		f.GuestID = caller.UserID
	}
	return rr.Store.ListRequests(ctx, caller.HotelID, f)
}
