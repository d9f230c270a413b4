/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes for the HTTP boundary, decoupled from the domain types so
  the wire contract can evolve independently.

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients
*/
package api

import (
	"time"

	"github.com/stayops/concierge-engine/core"
)

// =============================================================================
// REQUESTS
// =============================================================================

// CreateRequestRequest is the guest-facing creation body.
type CreateRequestRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	ServiceID   string `json:"service_id"`
	RoomID      string `json:"room_id,omitempty"`
}

// AssignRequest selects manual or automatic assignment.
type AssignRequest struct {
	StaffID     string `json:"staff_id,omitempty"`
	ForceAssign bool   `json:"force_assign,omitempty"`
}

// ReassignRequest changes the assignee.
type ReassignRequest struct {
	StaffID string `json:"staff_id"`
	Reason  string `json:"reason,omitempty"`
}

// UpdateStatusRequest is the ad-hoc status change body.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// BulkRequest applies one action to many requests.
type BulkRequest struct {
	RequestIDs []string     `json:"request_ids"`
	Action     string       `json:"action"`
	Data       BulkDataBody `json:"data,omitempty"`
}

type BulkDataBody struct {
	AssignedStaffID string `json:"assigned_staff_id,omitempty"`
	Status          string `json:"status,omitempty"`
	Priority        string `json:"priority,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// ServiceRequestDTO is the wire shape of a service request.
type ServiceRequestDTO struct {
	ID              string      `json:"id"`
	HotelID         string      `json:"hotel_id"`
	RoomID          string      `json:"room_id,omitempty"`
	GuestID         string      `json:"guest_id"`
	ServiceID       string      `json:"service_id"`
	AssignedStaffID string      `json:"assigned_staff_id,omitempty"`
	Title           string      `json:"title"`
	Description     string      `json:"description,omitempty"`
	Priority        string      `json:"priority"`
	Status          string      `json:"status"`
	RequestedAt     string      `json:"requested_at"`
	StartedAt       *string     `json:"started_at,omitempty"`
	CompletedAt     *string     `json:"completed_at,omitempty"`
	Guest           *UserDTO    `json:"guest,omitempty"`
	AssignedStaff   *UserDTO    `json:"assigned_staff,omitempty"`
	Room            *RoomDTO    `json:"room,omitempty"`
	Service         *ServiceDTO `json:"service,omitempty"`
}

type UserDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

type RoomDTO struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Floor  int    `json:"floor"`
}

type ServiceDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// StaffWorkloadDTO is one row of the availability listing.
type StaffWorkloadDTO struct {
	StaffID               string  `json:"staff_id"`
	StaffName             string  `json:"staff_name"`
	ActiveRequests        int     `json:"active_requests"`
	MaxConcurrentRequests int     `json:"max_concurrent_requests"`
	IsAvailable           bool    `json:"is_available"`
	LastAssignedAt        *string `json:"last_assigned_at,omitempty"`
}

// BulkResultDTO summarizes a bulk call.
type BulkResultDTO struct {
	TotalRequests int                 `json:"total_requests"`
	Successful    int                 `json:"successful"`
	Failed        int                 `json:"failed"`
	Results       []BulkItemDTO       `json:"results"`
	Errors        []BulkItemErrorDTO  `json:"errors,omitempty"`
}

type BulkItemDTO struct {
	RequestID string            `json:"request_id"`
	Request   ServiceRequestDTO `json:"request"`
}

type BulkItemErrorDTO struct {
	RequestID string `json:"request_id"`
	Reason    string `json:"reason"`
}

// EventDTO is one analytics event.
type EventDTO struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	EventData any    `json:"event_data"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toRequestDTO(r core.ServiceRequest) ServiceRequestDTO {
	dto := ServiceRequestDTO{
		ID:              r.ID,
		HotelID:         r.HotelID,
		RoomID:          r.RoomID,
		GuestID:         r.GuestID,
		ServiceID:       r.ServiceID,
		AssignedStaffID: r.AssignedStaffID,
		Title:           r.Title,
		Description:     r.Description,
		Priority:        string(r.Priority),
		Status:          string(r.Status),
		RequestedAt:     r.RequestedAt.Format(time.RFC3339),
	}
	dto.StartedAt = fmtTimeDTO(r.StartedAt)
	dto.CompletedAt = fmtTimeDTO(r.CompletedAt)
	return dto
}

func toDetailDTO(d *core.RequestDetail) ServiceRequestDTO {
	dto := toRequestDTO(d.ServiceRequest)
	if d.Guest != nil {
		dto.Guest = toUserDTO(d.Guest)
	}
	if d.AssignedStaff != nil {
		dto.AssignedStaff = toUserDTO(d.AssignedStaff)
	}
	if d.Room != nil {
		dto.Room = &RoomDTO{ID: d.Room.ID, Number: d.Room.Number, Floor: d.Room.Floor}
	}
	if d.Service != nil {
		dto.Service = &ServiceDTO{ID: d.Service.ID, Name: d.Service.Name, Category: d.Service.Category}
	}
	return dto
}

func toUserDTO(u *core.User) *UserDTO {
	return &UserDTO{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
}

func fmtTimeDTO(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
