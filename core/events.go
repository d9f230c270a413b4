/*
events.go - Append-only analytics events

PURPOSE:
  Every state-changing action appends one immutable event describing what
  happened, to whom, and by whom. Events are the audit trail: they are
  never consulted for business decisions, with one deliberate exception -
  LastAssignments, which derives the workload view's lastAssignedAt.

SHAPE:
  In code each event type is a concrete struct (tagged union) so payloads
  are type-checked at the write site. At the storage boundary the payload
  is serialized to opaque JSON, matching the analytics_events table's
  event_data column.

EVENT TYPES:
  service_request_created      guest created a request
  service_request_assigned     staff bound to a pending request
  service_request_reassigned   assignee changed
  bulk_{action}                one per successfully processed bulk item
  bulk_operation_completed     one per bulk call, with counts
  subscription_changed         billing webhook applied a tier change
*/
package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// EVENT ENVELOPE
// =============================================================================

// Event is the persisted envelope: typed tag plus opaque JSON payload.
type Event struct {
	ID        string
	HotelID   string
	Type      string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// EventPayload is implemented by every concrete event type.
type EventPayload interface {
	EventType() string
}

// NewEvent wraps a payload into a persistable envelope.
func NewEvent(hotelID string, p EventPayload) (Event, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s event: %w", p.EventType(), err)
	}
	return Event{
		ID:        uuid.NewString(),
		HotelID:   hotelID,
		Type:      p.EventType(),
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// =============================================================================
// CONCRETE EVENTS
// =============================================================================

const (
	EventRequestCreated      = "service_request_created"
	EventRequestAssigned     = "service_request_assigned"
	EventRequestReassigned   = "service_request_reassigned"
	EventBulkCompleted       = "bulk_operation_completed"
	EventSubscriptionChanged = "subscription_changed"
)

// AssignmentMethod distinguishes manual from automatic assignment.
type AssignmentMethod string

const (
	MethodManual    AssignmentMethod = "manual"
	MethodAutomatic AssignmentMethod = "automatic"
)

// RequestCreatedEvent records a new guest request.
type RequestCreatedEvent struct {
	RequestID string   `json:"request_id"`
	GuestID   string   `json:"guest_id"`
	ServiceID string   `json:"service_id"`
	Priority  Priority `json:"priority"`
}

func (RequestCreatedEvent) EventType() string { return EventRequestCreated }

// AssignedEvent records one assignment decision.
type AssignedEvent struct {
	RequestID       string           `json:"request_id"`
	AssignedStaffID string           `json:"assigned_staff_id"`
	AssignedBy      string           `json:"assigned_by"`
	Method          AssignmentMethod `json:"assignment_method"`
	Priority        Priority         `json:"priority"`
	ServiceID       string           `json:"service_id"`
}

func (AssignedEvent) EventType() string { return EventRequestAssigned }

// ReassignedEvent records an assignee change.
type ReassignedEvent struct {
	RequestID       string `json:"request_id"`
	PreviousStaffID string `json:"previous_staff_id"`
	NewStaffID      string `json:"new_staff_id"`
	ReassignedBy    string `json:"reassigned_by"`
	Reason          string `json:"reason"`
}

func (ReassignedEvent) EventType() string { return EventRequestReassigned }

// BulkItemEvent records one successfully processed item of a bulk call.
// Its type tag is bulk_{action}.
type BulkItemEvent struct {
	RequestID   string         `json:"request_id"`
	Action      BulkAction     `json:"action"`
	PerformedBy string         `json:"performed_by"`
	Previous    map[string]any `json:"previous_data"`
	Applied     map[string]any `json:"new_data"`
	Reason      string         `json:"reason,omitempty"`
}

func (e BulkItemEvent) EventType() string { return "bulk_" + string(e.Action) }

// BulkSummaryEvent records the outcome of a whole bulk call.
type BulkSummaryEvent struct {
	Action      BulkAction `json:"action"`
	PerformedBy string     `json:"performed_by"`
	Total       int        `json:"total_requests"`
	Successful  int        `json:"successful"`
	Failed      int        `json:"failed"`
	RequestIDs  []string   `json:"request_ids"`
	Timestamp   time.Time  `json:"timestamp"`
}

func (BulkSummaryEvent) EventType() string { return EventBulkCompleted }

// SubscriptionChangedEvent records a plan tier change applied from the
// billing gateway webhook.
type SubscriptionChangedEvent struct {
	Tier   string `json:"tier"`
	Status string `json:"status"`
}

func (SubscriptionChangedEvent) EventType() string { return EventSubscriptionChanged }
