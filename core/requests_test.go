package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stayops/concierge-engine/core"
	"github.com/stayops/concierge-engine/core/store"
)

func newRepo(m *store.Memory) *core.RequestRepository {
	return &core.RequestRepository{Store: m, Notifier: core.NopNotifier{}}
}

func TestCreateRequest_DefaultsAndEvent(t *testing.T) {
	// GIVEN: A guest creating a request with no priority
	// THEN: It lands pending at medium priority with a created event

	ctx := context.Background()
	m := newTestStore(t)

	detail, err := newRepo(m).Create(ctx, guestCaller(), core.CreateRequestInput{
		Title:     "Extra towels",
		ServiceID: "svc-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.Status != core.StatusPending {
		t.Errorf("expected pending, got %s", detail.Status)
	}
	if detail.Priority != core.PriorityMedium {
		t.Errorf("expected medium default, got %s", detail.Priority)
	}
	if detail.GuestID != "guest-1" {
		t.Errorf("guest id not taken from caller: %s", detail.GuestID)
	}
	if detail.AssignedStaffID != "" {
		t.Errorf("new request must be unassigned, got %q", detail.AssignedStaffID)
	}

	events, _ := m.QueryEvents(ctx, testHotel, core.EventFilter{Types: []string{core.EventRequestCreated}})
	if len(events) != 1 {
		t.Errorf("expected 1 created event, got %d", len(events))
	}
}

func TestCreateRequest_Validation(t *testing.T) {
	ctx := context.Background()
	m := newTestStore(t)
	repo := newRepo(m)

	cases := []struct {
		name string
		in   core.CreateRequestInput
	}{
		{"missing title", core.CreateRequestInput{ServiceID: "svc-1"}},
		{"missing service", core.CreateRequestInput{Title: "Towels"}},
		{"unknown service", core.CreateRequestInput{Title: "Towels", ServiceID: "ghost"}},
		{"unknown priority", core.CreateRequestInput{Title: "Towels", ServiceID: "svc-1", Priority: "asap"}},
		{"unknown room", core.CreateRequestInput{Title: "Towels", ServiceID: "svc-1", RoomID: "ghost"}},
	}
	for _, tc := range cases {
		_, err := repo.Create(ctx, guestCaller(), tc.in)
		var verr *core.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestGetRequest_GuestsSeeOnlyTheirOwn(t *testing.T) {
	ctx := context.Background()
	m := newTestStore(t)
	addRequest(t, m, "req-1", core.StatusPending, "", core.PriorityLow)
	repo := newRepo(m)

	// Owner sees it.
	if _, err := repo.Get(ctx, guestCaller(), "req-1"); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}

	// Another guest of the same hotel does not.
	other := core.CallerContext{UserID: "guest-2", Role: core.RoleGuest, HotelID: testHotel}
	if _, err := repo.Get(ctx, other, "req-1"); !errors.Is(err, core.ErrRequestNotFound) {
		t.Errorf("expected ErrRequestNotFound for foreign guest, got %v", err)
	}

	// Staff see everything in their hotel.
	if _, err := repo.Get(ctx, adminCaller(), "req-1"); err != nil {
		t.Errorf("staff read failed: %v", err)
	}
}

func TestListRequests_GuestsArePinned(t *testing.T) {
	ctx := context.Background()
	m := newTestStore(t)
	addRequest(t, m, "req-1", core.StatusPending, "", core.PriorityLow)
	own := core.ServiceRequest{
		ID: "req-2", HotelID: testHotel, GuestID: "guest-2", ServiceID: "svc-1",
		Title: "Other guest's request", Priority: core.PriorityLow, Status: core.StatusPending,
	}
	if err := m.CreateRequest(ctx, own); err != nil {
		t.Fatal(err)
	}

	list, err := newRepo(m).List(ctx, guestCaller(), core.RequestFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].ID != "req-1" {
		t.Errorf("guest listing leaked foreign requests: %+v", list)
	}
}

func TestListRequests_FilterValidation(t *testing.T) {
	m := newTestStore(t)
	repo := newRepo(m)

	_, err := repo.List(context.Background(), adminCaller(), core.RequestFilter{Status: "archived"})
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
