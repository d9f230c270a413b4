// Package store provides an in-memory core.Store implementation for
// tests and development.
package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/stayops/concierge-engine/core"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	requests map[string]core.ServiceRequest
	users    map[string]core.User
	hotels   map[string]core.Hotel
	rooms    map[string]core.Room
	services map[string]core.Service
	events   []core.Event
}

func NewMemory() *Memory {
	return &Memory{
		requests: make(map[string]core.ServiceRequest),
		users:    make(map[string]core.User),
		hotels:   make(map[string]core.Hotel),
		rooms:    make(map[string]core.Room),
		services: make(map[string]core.Service),
	}
}

// =============================================================================
// REQUESTS
// =============================================================================

func (m *Memory) CreateRequest(_ context.Context, r core.ServiceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = r
	return nil
}

func (m *Memory) GetRequest(_ context.Context, hotelID, id string) (*core.ServiceRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getRequestLocked(hotelID, id), nil
}

func (m *Memory) getRequestLocked(hotelID, id string) *core.ServiceRequest {
	r, ok := m.requests[id]
	if !ok || r.HotelID != hotelID {
		return nil
	}
	cp := r
	return &cp
}

func (m *Memory) GetRequests(_ context.Context, hotelID string, ids []string) ([]core.ServiceRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []core.ServiceRequest
	for _, id := range ids {
		if r, ok := m.requests[id]; ok && r.HotelID == hotelID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *Memory) ListRequests(_ context.Context, hotelID string, f core.RequestFilter) ([]core.ServiceRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []core.ServiceRequest
	for _, r := range m.requests {
		if r.HotelID != hotelID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Priority != "" && r.Priority != f.Priority {
			continue
		}
		if f.AssignedStaffID != "" && r.AssignedStaffID != f.AssignedStaffID {
			continue
		}
		if f.GuestID != "" && r.GuestID != f.GuestID {
			continue
		}
		result = append(result, r)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority.Rank() != result[j].Priority.Rank() {
			return result[i].Priority.Rank() > result[j].Priority.Rank()
		}
		return result[i].RequestedAt.After(result[j].RequestedAt)
	})
	return result, nil
}

func (m *Memory) UpdateRequest(_ context.Context, r core.ServiceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateRequestLocked(r)
}

func (m *Memory) updateRequestLocked(r core.ServiceRequest) error {
	if _, ok := m.requests[r.ID]; !ok {
		return core.ErrRequestNotFound
	}
	m.requests[r.ID] = r
	return nil
}

func (m *Memory) ClaimPending(_ context.Context, hotelID, requestID, staffID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claimPendingLocked(hotelID, requestID, staffID, at)
}

func (m *Memory) claimPendingLocked(hotelID, requestID, staffID string, at time.Time) (bool, error) {
	r, ok := m.requests[requestID]
	if !ok || r.HotelID != hotelID || r.Status != core.StatusPending {
		return false, nil
	}
	r.AssignedStaffID = staffID
	r.Status = core.StatusInProgress
	t := at
	r.StartedAt = &t
	m.requests[requestID] = r
	return true, nil
}

func (m *Memory) CountActiveByStaff(_ context.Context, hotelID string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[string]int)
	for _, r := range m.requests {
		if r.HotelID != hotelID || r.AssignedStaffID == "" {
			continue
		}
		if r.Status == core.StatusPending || r.Status == core.StatusInProgress {
			counts[r.AssignedStaffID]++
		}
	}
	return counts, nil
}

// =============================================================================
// USERS / HOTELS / ROOMS / SERVICES
// =============================================================================

func (m *Memory) SaveUser(_ context.Context, u core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		cp := u
		return &cp, nil
	}
	return nil, nil
}

func (m *Memory) ListStaff(_ context.Context, hotelID string) ([]core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var staff []core.User
	for _, u := range m.users {
		if u.HotelID == hotelID && u.Role.IsStaff() {
			staff = append(staff, u)
		}
	}
	sort.Slice(staff, func(i, j int) bool { return staff[i].Name < staff[j].Name })
	return staff, nil
}

func (m *Memory) CountStaff(_ context.Context, hotelID string) (int, error) {
	staff, _ := m.ListStaff(context.Background(), hotelID)
	return len(staff), nil
}

func (m *Memory) SaveHotel(_ context.Context, h core.Hotel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotels[h.ID] = h
	return nil
}

func (m *Memory) GetHotel(_ context.Context, id string) (*core.Hotel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if h, ok := m.hotels[id]; ok {
		cp := h
		return &cp, nil
	}
	return nil, nil
}

func (m *Memory) SaveRoom(_ context.Context, r core.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.ID] = r
	return nil
}

func (m *Memory) GetRoom(_ context.Context, hotelID, id string) (*core.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rooms[id]; ok && r.HotelID == hotelID {
		cp := r
		return &cp, nil
	}
	return nil, nil
}

func (m *Memory) CountRooms(_ context.Context, hotelID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.rooms {
		if r.HotelID == hotelID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) SaveService(_ context.Context, s core.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[s.ID] = s
	return nil
}

func (m *Memory) GetService(_ context.Context, hotelID, id string) (*core.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.services[id]; ok && s.HotelID == hotelID {
		cp := s
		return &cp, nil
	}
	return nil, nil
}

func (m *Memory) ListServices(_ context.Context, hotelID string) ([]core.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []core.Service
	for _, s := range m.services {
		if s.HotelID == hotelID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// =============================================================================
// EVENTS
// =============================================================================

func (m *Memory) AppendEvent(_ context.Context, e core.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendEventLocked(e)
}

func (m *Memory) appendEventLocked(e core.Event) error {
	m.events = append(m.events, e)
	return nil
}

func (m *Memory) QueryEvents(_ context.Context, hotelID string, f core.EventFilter) ([]core.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	typeSet := make(map[string]bool, len(f.Types))
	for _, t := range f.Types {
		typeSet[t] = true
	}

	var result []core.Event
	for _, e := range m.events {
		if e.HotelID != hotelID {
			continue
		}
		if len(typeSet) > 0 && !typeSet[e.Type] {
			continue
		}
		if !f.Since.IsZero() && e.CreatedAt.Before(f.Since) {
			continue
		}
		result = append(result, e)
	}
	// Newest first, like the sqlite store.
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (m *Memory) LastAssignments(_ context.Context, hotelID string) (map[string]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	last := make(map[string]time.Time)
	for _, e := range m.events {
		if e.HotelID != hotelID {
			continue
		}
		var staffID string
		switch e.Type {
		case core.EventRequestAssigned:
			var p core.AssignedEvent
			if json.Unmarshal(e.Payload, &p) == nil {
				staffID = p.AssignedStaffID
			}
		case core.EventRequestReassigned:
			var p core.ReassignedEvent
			if json.Unmarshal(e.Payload, &p) == nil {
				staffID = p.NewStaffID
			}
		default:
			continue
		}
		if staffID == "" {
			continue
		}
		if at, ok := last[staffID]; !ok || e.CreatedAt.After(at) {
			last[staffID] = e.CreatedAt
		}
	}
	return last, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn against a transactional view. For the memory store
// this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(core.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	view := &txMemoryView{parent: m}

	if err := fn(view); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	requests map[string]core.ServiceRequest
	events   []core.Event
}

func (m *Memory) snapshot() memorySnapshot {
	reqs := make(map[string]core.ServiceRequest, len(m.requests))
	for k, v := range m.requests {
		reqs[k] = v
	}
	return memorySnapshot{
		requests: reqs,
		events:   append([]core.Event(nil), m.events...),
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.requests = s.requests
	m.events = s.events
}

// txMemoryView runs against the already-locked parent. Only the methods
// the engine mutates inside transactions bypass the lock; reads delegate
// to the parent's internals directly.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) CreateRequest(_ context.Context, r core.ServiceRequest) error {
	tv.parent.requests[r.ID] = r
	return nil
}

func (tv *txMemoryView) GetRequest(_ context.Context, hotelID, id string) (*core.ServiceRequest, error) {
	return tv.parent.getRequestLocked(hotelID, id), nil
}

func (tv *txMemoryView) GetRequests(_ context.Context, hotelID string, ids []string) ([]core.ServiceRequest, error) {
	var result []core.ServiceRequest
	for _, id := range ids {
		if r, ok := tv.parent.requests[id]; ok && r.HotelID == hotelID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (tv *txMemoryView) ListRequests(context.Context, string, core.RequestFilter) ([]core.ServiceRequest, error) {
	return nil, nil
}

func (tv *txMemoryView) UpdateRequest(_ context.Context, r core.ServiceRequest) error {
	return tv.parent.updateRequestLocked(r)
}

func (tv *txMemoryView) ClaimPending(_ context.Context, hotelID, requestID, staffID string, at time.Time) (bool, error) {
	return tv.parent.claimPendingLocked(hotelID, requestID, staffID, at)
}

func (tv *txMemoryView) CountActiveByStaff(context.Context, string) (map[string]int, error) {
	return nil, nil
}

func (tv *txMemoryView) SaveUser(_ context.Context, u core.User) error {
	tv.parent.users[u.ID] = u
	return nil
}

func (tv *txMemoryView) GetUser(_ context.Context, id string) (*core.User, error) {
	if u, ok := tv.parent.users[id]; ok {
		cp := u
		return &cp, nil
	}
	return nil, nil
}

func (tv *txMemoryView) ListStaff(context.Context, string) ([]core.User, error) { return nil, nil }
func (tv *txMemoryView) CountStaff(context.Context, string) (int, error)       { return 0, nil }

func (tv *txMemoryView) SaveHotel(_ context.Context, h core.Hotel) error {
	tv.parent.hotels[h.ID] = h
	return nil
}

func (tv *txMemoryView) GetHotel(_ context.Context, id string) (*core.Hotel, error) {
	if h, ok := tv.parent.hotels[id]; ok {
		cp := h
		return &cp, nil
	}
	return nil, nil
}

func (tv *txMemoryView) SaveRoom(_ context.Context, r core.Room) error {
	tv.parent.rooms[r.ID] = r
	return nil
}

func (tv *txMemoryView) GetRoom(_ context.Context, hotelID, id string) (*core.Room, error) {
	if r, ok := tv.parent.rooms[id]; ok && r.HotelID == hotelID {
		cp := r
		return &cp, nil
	}
	return nil, nil
}

func (tv *txMemoryView) CountRooms(context.Context, string) (int, error) { return 0, nil }

func (tv *txMemoryView) SaveService(_ context.Context, s core.Service) error {
	tv.parent.services[s.ID] = s
	return nil
}

func (tv *txMemoryView) GetService(_ context.Context, hotelID, id string) (*core.Service, error) {
	if s, ok := tv.parent.services[id]; ok && s.HotelID == hotelID {
		cp := s
		return &cp, nil
	}
	return nil, nil
}

func (tv *txMemoryView) ListServices(context.Context, string) ([]core.Service, error) {
	return nil, nil
}

func (tv *txMemoryView) AppendEvent(_ context.Context, e core.Event) error {
	return tv.parent.appendEventLocked(e)
}

func (tv *txMemoryView) QueryEvents(context.Context, string, core.EventFilter) ([]core.Event, error) {
	return nil, nil
}

func (tv *txMemoryView) LastAssignments(context.Context, string) (map[string]time.Time, error) {
	return nil, nil
}

// WithTx on a view is a no-op wrapper; nesting reuses the outer
// transaction.
func (tv *txMemoryView) WithTx(_ context.Context, fn func(core.Store) error) error {
	return fn(tv)
}
