/*
handlers.go - HTTP handlers for the guest-services engine

PURPOSE:
  Exposes the engine over REST. Handlers parse and validate the HTTP
  shape, resolve the caller, delegate to the core services, and map
  domain errors onto statuses.

ENDPOINTS:
  Requests:
    POST   /api/requests                  create (guest)
    GET    /api/requests                  list with filters (staff)
    GET    /api/requests/{id}             detail
    POST   /api/requests/{id}/assign      manual/automatic assignment
    POST   /api/requests/{id}/reassign    change assignee
    PUT    /api/requests/{id}/status      ad-hoc status update
    POST   /api/requests/bulk             bulk operations

  Staff:
    GET    /api/staff/availability        workload listing

  Onboarding:
    POST   /api/hotels                    register a hotel (trial tier)
    GET    /api/hotels/{id}               hotel detail (admin)
    POST   /api/rooms                     add room (admin, plan-gated)
    POST   /api/services                  add service category (admin)
    GET    /api/services                  list service categories
    POST   /api/users                     add user (admin, staff plan-gated)

  Analytics / billing:
    GET    /api/events                    audit events (admin)
    POST   /api/webhooks/billing          gateway subscription webhook

ERROR HANDLING:
  - 400: validation, no eligible staff
  - 401/403: missing or insufficient caller context
  - 404: id missing within the caller's hotel
  - 409: lifecycle state conflicts
  - 500: everything else
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stayops/concierge-engine/billing"
	"github.com/stayops/concierge-engine/core"
)

// =============================================================================
// HANDLER
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     core.Store
	Requests  *core.RequestRepository
	Engine    *core.AssignmentEngine
	Lifecycle *core.LifecycleController
	Bulk      *core.BulkProcessor
	Inspector *core.WorkloadInspector
	Gate      *billing.Gate
}

// NewHandler wires the core services over one store.
func NewHandler(store core.Store, notifier core.Notifier) *Handler {
	inspector := &core.WorkloadInspector{Store: store}
	return &Handler{
		Store:     store,
		Requests:  &core.RequestRepository{Store: store, Notifier: notifier},
		Engine:    &core.AssignmentEngine{Store: store, Inspector: inspector, Notifier: notifier},
		Lifecycle: &core.LifecycleController{Store: store, Notifier: notifier},
		Bulk:      &core.BulkProcessor{Store: store},
		Inspector: inspector,
		Gate:      &billing.Gate{Store: store},
	}
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// CreateRequest creates a pending service request.
// POST /api/requests
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	var req CreateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	detail, err := h.Requests.Create(r.Context(), caller, core.CreateRequestInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    core.Priority(req.Priority),
		ServiceID:   req.ServiceID,
		RoomID:      req.RoomID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toDetailDTO(detail))
}

// ListRequests lists requests with optional filters.
// GET /api/requests?status=&priority=&assigned_staff_id=
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	q := r.URL.Query()
	requests, err := h.Requests.List(r.Context(), caller, core.RequestFilter{
		Status:          core.Status(q.Get("status")),
		Priority:        core.Priority(q.Get("priority")),
		AssignedStaffID: q.Get("assigned_staff_id"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]ServiceRequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRequest returns one request with joined detail.
// GET /api/requests/{id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	detail, err := h.Requests.Get(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailDTO(detail))
}

// AssignRequest binds a staff member to a pending request.
// POST /api/requests/{id}/assign
func (h *Handler) AssignRequest(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	var req AssignRequest
	if r.Body != nil && r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	detail, err := h.Engine.Assign(r.Context(), caller, chi.URLParam(r, "id"), core.AssignOptions{
		PreferredStaffID: req.StaffID,
		ForceAssign:      req.ForceAssign,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailDTO(detail))
}

// ReassignRequest changes the assignee of a request.
// POST /api/requests/{id}/reassign
func (h *Handler) ReassignRequest(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	var req ReassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	detail, err := h.Lifecycle.Reassign(r.Context(), caller, chi.URLParam(r, "id"), req.StaffID, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailDTO(detail))
}

// UpdateStatus applies an ad-hoc status change.
// PUT /api/requests/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	detail, err := h.Lifecycle.UpdateStatus(r.Context(), caller, chi.URLParam(r, "id"), core.Status(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailDTO(detail))
}

// BulkApply applies one action to a set of requests.
// POST /api/requests/bulk
func (h *Handler) BulkApply(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Bulk.BulkApply(r.Context(), caller, req.RequestIDs, core.BulkAction(req.Action), core.BulkData{
		AssignedStaffID: req.Data.AssignedStaffID,
		Status:          core.Status(req.Data.Status),
		Priority:        core.Priority(req.Data.Priority),
		Reason:          req.Data.Reason,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dto := BulkResultDTO{
		TotalRequests: result.TotalRequests,
		Successful:    result.Successful,
		Failed:        result.Failed,
		Results:       make([]BulkItemDTO, len(result.Results)),
	}
	for i, item := range result.Results {
		dto.Results[i] = BulkItemDTO{RequestID: item.RequestID, Request: toRequestDTO(item.Request)}
	}
	for _, e := range result.Errors {
		dto.Errors = append(dto.Errors, BulkItemErrorDTO{RequestID: e.RequestID, Reason: e.Reason})
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// STAFF HANDLERS
// =============================================================================

// StaffAvailability returns the workload listing for the caller's hotel.
// GET /api/staff/availability
func (h *Handler) StaffAvailability(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	workloads, err := h.Inspector.AvailableStaff(r.Context(), caller.HotelID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]StaffWorkloadDTO, len(workloads))
	for i, wl := range workloads {
		dtos[i] = StaffWorkloadDTO{
			StaffID:               wl.StaffID,
			StaffName:             wl.StaffName,
			ActiveRequests:        wl.ActiveRequests,
			MaxConcurrentRequests: wl.MaxConcurrentRequests,
			IsAvailable:           wl.IsAvailable,
			LastAssignedAt:        fmtTimeDTO(wl.LastAssignedAt),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ONBOARDING HANDLERS
// =============================================================================

// CreateHotel registers a hotel on the trial tier.
// POST /api/hotels
func (h *Handler) CreateHotel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Hotel name is required", err)
		return
	}

	hotel := core.Hotel{
		ID:        uuid.NewString(),
		Name:      req.Name,
		PlanTier:  string(billing.TierTrial),
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveHotel(r.Context(), hotel); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create hotel", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        hotel.ID,
		"name":      hotel.Name,
		"plan_tier": hotel.PlanTier,
	})
}

// GetHotel returns hotel detail with its plan limits.
// GET /api/hotels/{id}
func (h *Handler) GetHotel(w http.ResponseWriter, r *http.Request) {
	hotel, err := h.Store.GetHotel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get hotel", err)
		return
	}
	if hotel == nil {
		writeError(w, http.StatusNotFound, "Hotel not found", nil)
		return
	}

	plan := billing.PlanFor(hotel.PlanTier)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":            hotel.ID,
		"name":          hotel.Name,
		"plan_tier":     hotel.PlanTier,
		"monthly_price": plan.MonthlyPrice.StringFixed(2),
		"max_rooms":     plan.MaxRooms,
		"max_staff":     plan.MaxStaff,
	})
}

// CreateRoom adds a room, gated by the hotel's plan limit.
// POST /api/rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	var req struct {
		Number string `json:"number"`
		Floor  int    `json:"floor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Number == "" {
		writeError(w, http.StatusBadRequest, "Room number is required", err)
		return
	}

	if err := h.Gate.CanAddRoom(r.Context(), caller.HotelID); err != nil {
		writeDomainError(w, err)
		return
	}

	room := core.Room{
		ID:        uuid.NewString(),
		HotelID:   caller.HotelID,
		Number:    req.Number,
		Floor:     req.Floor,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveRoom(r.Context(), room); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create room", err)
		return
	}
	writeJSON(w, http.StatusCreated, RoomDTO{ID: room.ID, Number: room.Number, Floor: room.Floor})
}

// CreateService adds a service category.
// POST /api/services
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	var req struct {
		Name     string `json:"name"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Service name is required", err)
		return
	}

	svc := core.Service{
		ID:        uuid.NewString(),
		HotelID:   caller.HotelID,
		Name:      req.Name,
		Category:  req.Category,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveService(r.Context(), svc); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create service", err)
		return
	}
	writeJSON(w, http.StatusCreated, ServiceDTO{ID: svc.ID, Name: svc.Name, Category: svc.Category})
}

// ListServices lists service categories for the caller's hotel.
// GET /api/services
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	services, err := h.Store.ListServices(r.Context(), caller.HotelID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list services", err)
		return
	}
	dtos := make([]ServiceDTO, len(services))
	for i, svc := range services {
		dtos[i] = ServiceDTO{ID: svc.ID, Name: svc.Name, Category: svc.Category}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUser adds a guest or staff user; staff creation is plan-gated.
// POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "User name is required", err)
		return
	}
	role := core.Role(req.Role)
	if role != core.RoleGuest && !role.IsStaff() {
		writeError(w, http.StatusBadRequest, "Unknown role", nil)
		return
	}

	if role.IsStaff() {
		if err := h.Gate.CanAddStaff(r.Context(), caller.HotelID); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	user := core.User{
		ID:        uuid.NewString(),
		HotelID:   caller.HotelID,
		Name:      req.Name,
		Email:     req.Email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveUser(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(&user))
}

// =============================================================================
// ANALYTICS / BILLING HANDLERS
// =============================================================================

// ListEvents returns the audit trail, newest first.
// GET /api/events?type=&limit=
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	filter := core.EventFilter{Limit: 100}
	if t := r.URL.Query().Get("type"); t != "" {
		filter.Types = []string{t}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	events, err := h.Store.QueryEvents(r.Context(), caller.HotelID, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query events", err)
		return
	}

	dtos := make([]EventDTO, len(events))
	for i, e := range events {
		var payload any
		json.Unmarshal(e.Payload, &payload)
		dtos[i] = EventDTO{
			ID:        e.ID,
			EventType: e.Type,
			EventData: payload,
			Timestamp: e.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// BillingWebhook applies a gateway subscription notification. Signature
// verification is the gateway collaborator's job; this endpoint assumes
// the body already passed it.
// POST /api/webhooks/billing
func (h *Handler) BillingWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unreadable body", err)
		return
	}

	change, err := billing.ParseWebhook(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid webhook payload", err)
		return
	}

	if err := billing.Apply(r.Context(), h.Store, change); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": true, "tier": change.Tier})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case core.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflict", err)
	case core.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, billing.ErrLimitReached):
		writeError(w, http.StatusForbidden, "Plan limit reached", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
