package core_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stayops/concierge-engine/core"
	"github.com/stayops/concierge-engine/core/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const (
	testHotel  = "hotel-1"
	otherHotel = "hotel-2"
)

func adminCaller() core.CallerContext {
	return core.CallerContext{UserID: "admin-1", Role: core.RoleHotelAdmin, HotelID: testHotel}
}

func guestCaller() core.CallerContext {
	return core.CallerContext{UserID: "guest-1", Role: core.RoleGuest, HotelID: testHotel}
}

// newTestStore seeds a memory store with a hotel, a service, and one
// guest. Staff and requests are added per test.
func newTestStore(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory()

	for _, h := range []core.Hotel{
		{ID: testHotel, Name: "Grand Plaza", PlanTier: "premium", CreatedAt: time.Now().UTC()},
		{ID: otherHotel, Name: "Harbor View", PlanTier: "trial", CreatedAt: time.Now().UTC()},
	} {
		if err := m.SaveHotel(ctx, h); err != nil {
			t.Fatalf("seed hotel: %v", err)
		}
	}
	if err := m.SaveService(ctx, core.Service{ID: "svc-1", HotelID: testHotel, Name: "Room Service", Category: "food"}); err != nil {
		t.Fatalf("seed service: %v", err)
	}
	if err := m.SaveUser(ctx, core.User{ID: "guest-1", HotelID: testHotel, Name: "Guest One", Role: core.RoleGuest}); err != nil {
		t.Fatalf("seed guest: %v", err)
	}
	return m
}

func addStaff(t *testing.T, m *store.Memory, id, name string) {
	t.Helper()
	err := m.SaveUser(context.Background(), core.User{
		ID: id, HotelID: testHotel, Name: name, Role: core.RoleHotelStaff,
	})
	if err != nil {
		t.Fatalf("seed staff %s: %v", id, err)
	}
}

// addRequest persists a request directly, bypassing the repository.
func addRequest(t *testing.T, m *store.Memory, id string, status core.Status, staffID string, priority core.Priority) {
	t.Helper()
	req := core.ServiceRequest{
		ID:              id,
		HotelID:         testHotel,
		GuestID:         "guest-1",
		ServiceID:       "svc-1",
		AssignedStaffID: staffID,
		Title:           "Request " + id,
		Priority:        priority,
		Status:          status,
		RequestedAt:     time.Now().UTC(),
	}
	if err := m.CreateRequest(context.Background(), req); err != nil {
		t.Fatalf("seed request %s: %v", id, err)
	}
}

// loadStaff gives a staff member n active requests.
func loadStaff(t *testing.T, m *store.Memory, staffID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		addRequest(t, m, fmt.Sprintf("load-%s-%d", staffID, i), core.StatusInProgress, staffID, core.PriorityMedium)
	}
}

func newEngine(m *store.Memory) *core.AssignmentEngine {
	return &core.AssignmentEngine{
		Store:     m,
		Inspector: &core.WorkloadInspector{Store: m},
		Notifier:  core.NopNotifier{},
	}
}

// recordNotifier captures notifications for assertions.
type recordNotifier struct {
	sent []core.Notification
}

func (r *recordNotifier) Notify(_ context.Context, n core.Notification) {
	r.sent = append(r.sent, n)
}

// =============================================================================
// AUTOMATIC ASSIGNMENT
// =============================================================================

func TestAssign_Automatic_PicksLeastLoaded(t *testing.T) {
	// GIVEN: Alice and Bob hold 2 active requests, Carol holds 1
	// WHEN: A high priority request is auto-assigned
	// THEN: Carol receives it

	ctx := context.Background()
	m := newTestStore(t)
	addStaff(t, m, "staff-a", "Alice")
	addStaff(t, m, "staff-b", "Bob")
	addStaff(t, m, "staff-c", "Carol")
	loadStaff(t, m, "staff-a", 2)
	loadStaff(t, m, "staff-b", 2)
	loadStaff(t, m, "staff-c", 1)
	addRequest(t, m, "req-1", core.StatusPending, "", core.PriorityHigh)

	detail, err := newEngine(m).Assign(ctx, adminCaller(), "req-1", core.AssignOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.AssignedStaffID != "staff-c" {
		t.Errorf("expected staff-c, got %s", detail.AssignedStaffID)
	}
	if detail.Status != core.StatusInProgress {
		t.Errorf("expected in_progress, got %s", detail.Status)
	}
	if detail.StartedAt == nil {
		t.Error("expected startedAt to be set on assignment")
	}
}

func TestAssign_Automatic_TieBreaksByName(t *testing.T) {
	// GIVEN: Alice and Bob both hold 1 active request
	// WHEN: A medium priority request is auto-assigned
	// THEN: Alice wins the tie alphabetically

	ctx := context.Background()
	m := newTestStore(t)
	addStaff(t, m, "staff-b", "Bob")
	addStaff(t, m, "staff-a", "Alice")
	loadStaff(t, m, "staff-a", 1)
	loadStaff(t, m, "staff-b", 1)
	addRequest(t, m, "req-1", core.StatusPending, "", core.PriorityMedium)

	detail, err := newEngine(m).Assign(ctx, adminCaller(), "req-1", core.AssignOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.AssignedStaffID != "staff-a" {
		t.Errorf("expected staff-a (alphabetical tie-break), got %s", detail.AssignedStaffID)
	}
}

func TestAssign_Automatic_IsDeterministic(t *testing.T) {
	// GIVEN: The same staff landscape twice
	// WHEN: Equivalent requests are auto-assigned
	// THEN: The same staff member is picked both times

	ctx := context.Background()
	for run := 0; run < 2; run++ {
		m := newTestStore(t)
		addStaff(t, m, "staff-c", "Carol")
		addStaff(t, m, "staff-a", "Alice")
		addStaff(t, m, "staff-b", "Bob")
		addRequest(t, m, "req-1", core.StatusPending, "", core.PriorityLow)

		detail, err := newEngine(m).Assign(ctx, adminCaller(), "req-1", core.AssignOptions{})
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", run, err)
		}
		if detail.AssignedStaffID != "staff-a" {
			t.Errorf("run %d: expected staff-a, got %s", run, detail.AssignedStaffID)
		}
	}
}

func TestAssign_Automatic_SkipsUnavailableStaff(t *testing.T) {
	// GIVEN: Alice is at the concurrency ceiling, Bob has capacity
	// WHEN: A request is auto-assigned
	// THEN: Bob receives it despite Alice sorting first

	ctx := context.Background()
	m := newTestStore(t)
	addStaff(t, m, "staff-a", "Alice")
	addStaff(t, m, "staff-b", "Bob")
	loadStaff(t, m, "staff-a", core.MaxConcurrentRequests)
	loadStaff(t, m, "staff-b", core.MaxConcurrentRequests-1)
	addRequest(t, m, "req-1", core.StatusPending, "", core.PriorityUrgent)

	detail, err := newEngine(m).Assign(ctx, adminCaller(), "req-1", core.AssignOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.AssignedStaffID != "staff-b" {
		t.Errorf("expected staff-b, got %s", detail.AssignedStaffID)
	}
}

func TestAssign_Automatic_NoStaffAvailable(t *testing.T) {
	// GIVEN: Every staff member is at the ceiling
	// WHEN: Auto-assignment runs
	// THEN: ErrNoStaffAvailable, request untouched

	ctx := context.Background()
	m := newTestStore(t)
	addStaff(t, m, "staff-a", "Alice")
	loadStaff(t, m, "staff-a", core.MaxConcurrentRequests)
	addRequest(t, m, "req-1", core.StatusPending, "", core.PriorityHigh)

	_, err := newEngine(m).Assign(ctx, adminCaller(), "req-1", core.AssignOptions{})
	if !errors.Is(err, core.ErrNoStaffAvailable) {
		t.Fatalf("expected ErrNoStaffAvailable, got %v", err)
	}

	req, _ := m.GetRequest(ctx, testHotel, "req-1")
	if req.Status != core.StatusPending {
		t.Errorf("request should remain pending, got %s", req.Status)
	}
}

// =============================================================================
// MANUAL ASSIGNMENT
// =============================================================================

func TestAssign_Manual_Success(t *testing.T) {
	ctx := context.Background()
	m := newTestStore(t)
	addStaff(t, m, "staff-a", "Alice")
	addStaff(t, m, "staff-b", "Bob")
	addRequest(t, m, "req-1", core.StatusPending, "", core.PriorityLow)

	detail, err := newEngine(m).Assign(ctx, adminCaller(), "req-1", core.AssignOptions{PreferredStaffID: "staff-b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.AssignedStaffID != "staff-b" {
		t.Errorf("expected staff-b, got %s", detail.AssignedStaffID)
	}
}

func TestAssign_Manual_UnavailableStaffRejected(t *testing.T) {
	// GIVEN: Alice is at the ceiling
	// WHEN: She is named explicitly without force
	// THEN: StaffUnavailable error

	ctx := context.Background()
	m := newTestStore(t)
	addStaff(t, m, "staff-a", "Alice")
	loadStaff(t, m, "staff-a", core.MaxConcurrentRequests)
	addRequest(t, m, "req-1", core.StatusPending, "", core.PriorityLow)

	_, err := newEngine(m).Assign(ctx, adminCaller(), "req-1", core.AssignOptions{PreferredStaffID: "staff-a"})
	if !errors.Is(err, core.ErrStaffUnavailable) {
		t.Fatalf("expected ErrStaffUnavailable, got %v", err)
	}
}

func TestAssign_Manual_ForceOverridesCeiling(t *testing.T) {
	ctx := context.Background()
	m := newTestStore(t)
	addStaff(t, m, "staff-a", "Alice")
	loadStaff(t, m, "staff-a", core.MaxConcurrentRequests)
	addRequest(t, m, "req-1", core.StatusPending, "", core.PriorityLow)

	detail, err := newEngine(m).Assign(ctx, adminCaller(), "req-1", core.AssignOptions{PreferredStaffID: "staff-a", ForceAssign: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.AssignedStaffID != "staff-a" {
		t.Errorf("expected forced assignment to staff-a, got %s", detail.AssignedStaffID)
	}
}

func TestAssign_Manual_UnknownStaff(t *testing.T) {
	ctx := context.Background()
	m := newTestStore(t)
	addStaff(t, m, "staff-a", "Alice")
	addRequest(t, m, "req-1", core.StatusPending, "", core.PriorityLow)

	_, err := newEngine(m).Assign(ctx, adminCaller(), "req-1", core.AssignOptions{PreferredStaffID: "nobody"})
	if !errors.Is(err, core.ErrStaffNotFound) {
		t.Fatalf("expected ErrStaffNotFound, got %v", err)
	}
}

// =============================================================================
// STATE AND TENANT GUARDS
// =============================================================================

func TestAssign_NonPendingConflicts(t *testing.T) {
	// GIVEN: An already in_progress request
	// WHEN: Assignment is attempted again
	// THEN: Conflict carrying the current status

	ctx := context.Background()
	m := newTestStore(t)
	addStaff(t, m, "staff-a", "Alice")
	addRequest(t, m, "req-1", core.StatusInProgress, "staff-a", core.PriorityLow)

	_, err := newEngine(m).Assign(ctx, adminCaller(), "req-1", core.AssignOptions{})
	if !core.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAssign_SecondAssignLosesRace(t *testing.T) {
	// GIVEN: A pending request assigned once
	// WHEN: A second assignment call arrives
	// THEN: It conflicts; the first assignee is untouched

	ctx := context.Background()
	m := newTestStore(t)
	addStaff(t, m, "staff-a", "Alice")
	addStaff(t, m, "staff-b", "Bob")
	addRequest(t, m, "req-1", core.StatusPending, "", core.PriorityHigh)
	engine := newEngine(m)

	first, err := engine.Assign(ctx, adminCaller(), "req-1", core.AssignOptions{})
	if err != nil {
		t.Fatalf("first assign: %v", err)
	}

	_, err = engine.Assign(ctx, adminCaller(), "req-1", core.AssignOptions{PreferredStaffID: "staff-b"})
	if !core.IsConflict(err) {
		t.Fatalf("expected conflict on second assign, got %v", err)
	}

	req, _ := m.GetRequest(ctx, testHotel, "req-1")
	if req.AssignedStaffID != first.AssignedStaffID {
		t.Errorf("assignee changed by losing call: %s", req.AssignedStaffID)
	}
}

func TestAssign_TenantIsolation(t *testing.T) {
	// GIVEN: A request belonging to another hotel
	// WHEN: A caller from testHotel tries to assign it
	// THEN: Not found, never a cross-tenant mutation

	ctx := context.Background()
	m := newTestStore(t)
	addStaff(t, m, "staff-a", "Alice")
	foreign := core.ServiceRequest{
		ID: "req-foreign", HotelID: otherHotel, GuestID: "g2", ServiceID: "s2",
		Title: "Foreign", Priority: core.PriorityLow, Status: core.StatusPending,
		RequestedAt: time.Now().UTC(),
	}
	if err := m.CreateRequest(ctx, foreign); err != nil {
		t.Fatal(err)
	}

	_, err := newEngine(m).Assign(ctx, adminCaller(), "req-foreign", core.AssignOptions{})
	if !errors.Is(err, core.ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestAssign_NotifiesAssignee(t *testing.T) {
	ctx := context.Background()
	m := newTestStore(t)
	addStaff(t, m, "staff-a", "Alice")
	addRequest(t, m, "req-1", core.StatusPending, "", core.PriorityHigh)

	notifier := &recordNotifier{}
	engine := newEngine(m)
	engine.Notifier = notifier

	if _, err := engine.Assign(ctx, adminCaller(), "req-1", core.AssignOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].UserID != "staff-a" {
		t.Errorf("expected one notification to staff-a, got %+v", notifier.sent)
	}
}

func TestAssign_AppendsAuditEvent(t *testing.T) {
	// GIVEN: A successful assignment
	// THEN: Exactly one service_request_assigned event exists for it

	ctx := context.Background()
	m := newTestStore(t)
	addStaff(t, m, "staff-a", "Alice")
	addRequest(t, m, "req-1", core.StatusPending, "", core.PriorityUrgent)

	if _, err := newEngine(m).Assign(ctx, adminCaller(), "req-1", core.AssignOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events, err := m.QueryEvents(ctx, testHotel, core.EventFilter{Types: []string{core.EventRequestAssigned}})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 assigned event, got %d", len(events))
	}
}
