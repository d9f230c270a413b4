package billing_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stayops/concierge-engine/billing"
	"github.com/stayops/concierge-engine/core"
	"github.com/stayops/concierge-engine/core/store"
)

func seedHotel(t *testing.T, m *store.Memory, tier string) {
	t.Helper()
	err := m.SaveHotel(context.Background(), core.Hotel{
		ID: "hotel-1", Name: "Grand Plaza", PlanTier: tier, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}
}

// =============================================================================
// LIMIT GATE
// =============================================================================

func TestGate_RoomLimit(t *testing.T) {
	// GIVEN: A trial hotel at its 10-room cap
	// THEN: CanAddRoom returns a LimitError naming the resource

	ctx := context.Background()
	m := store.NewMemory()
	seedHotel(t, m, "trial")
	gate := &billing.Gate{Store: m}

	limit := billing.Catalog[billing.TierTrial].MaxRooms
	for i := 0; i < limit-1; i++ {
		if err := m.SaveRoom(ctx, core.Room{ID: fmt.Sprintf("room-%d", i), HotelID: "hotel-1", Number: fmt.Sprint(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := gate.CanAddRoom(ctx, "hotel-1"); err != nil {
		t.Fatalf("under the cap should pass: %v", err)
	}

	if err := m.SaveRoom(ctx, core.Room{ID: "room-last", HotelID: "hotel-1", Number: "last"}); err != nil {
		t.Fatal(err)
	}
	err := gate.CanAddRoom(ctx, "hotel-1")
	if !errors.Is(err, billing.ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}
	var lerr *billing.LimitError
	if !errors.As(err, &lerr) || lerr.Resource != "rooms" || lerr.Limit != limit {
		t.Errorf("unexpected limit error: %+v", lerr)
	}
}

func TestGate_StaffLimitScalesWithTier(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	seedHotel(t, m, "trial")
	gate := &billing.Gate{Store: m}

	trialCap := billing.Catalog[billing.TierTrial].MaxStaff
	for i := 0; i < trialCap; i++ {
		err := m.SaveUser(ctx, core.User{
			ID: fmt.Sprintf("staff-%d", i), HotelID: "hotel-1",
			Name: fmt.Sprintf("Staff %d", i), Role: core.RoleHotelStaff,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := gate.CanAddStaff(ctx, "hotel-1"); !errors.Is(err, billing.ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached on trial, got %v", err)
	}

	// An upgrade lifts the cap.
	seedHotel(t, m, "premium")
	if err := gate.CanAddStaff(ctx, "hotel-1"); err != nil {
		t.Errorf("premium should allow more staff: %v", err)
	}
}

func TestGate_UnknownHotel(t *testing.T) {
	gate := &billing.Gate{Store: store.NewMemory()}
	if err := gate.CanAddRoom(context.Background(), "ghost"); !errors.Is(err, core.ErrHotelNotFound) {
		t.Fatalf("expected ErrHotelNotFound, got %v", err)
	}
}

func TestPlanFor_UnknownTierFallsBackToTrial(t *testing.T) {
	p := billing.PlanFor("enterprise-gold")
	if p.Tier != billing.TierTrial {
		t.Errorf("expected trial fallback, got %s", p.Tier)
	}
}

// =============================================================================
// WEBHOOK
// =============================================================================

func TestParseWebhook_Valid(t *testing.T) {
	body := []byte(`{
		"event_type": "subscription.updated",
		"data": {
			"hotel_id": "hotel-1",
			"tier": "premium",
			"status": "active",
			"occurred_at": "2026-08-01T12:00:00Z"
		}
	}`)
	change, err := billing.ParseWebhook(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if change.HotelID != "hotel-1" || change.Tier != billing.TierPremium || change.Status != "active" {
		t.Errorf("unexpected change: %+v", change)
	}
}

func TestParseWebhook_Rejections(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"wrong event type", `{"event_type":"invoice.paid","data":{"hotel_id":"h","tier":"basic"}}`},
		{"missing hotel", `{"event_type":"subscription.updated","data":{"tier":"basic"}}`},
		{"unknown tier", `{"event_type":"subscription.updated","data":{"hotel_id":"h","tier":"platinum"}}`},
		{"bad timestamp", `{"event_type":"subscription.updated","data":{"hotel_id":"h","tier":"basic","occurred_at":"yesterday"}}`},
	}
	for _, tc := range cases {
		if _, err := billing.ParseWebhook([]byte(tc.body)); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestApply_UpdatesTierAndAppendsEvent(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	seedHotel(t, m, "trial")

	change := &billing.SubscriptionChange{
		HotelID: "hotel-1", Tier: billing.TierBasic, Status: "active", OccurredAt: time.Now().UTC(),
	}
	if err := billing.Apply(ctx, m, change); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hotel, _ := m.GetHotel(ctx, "hotel-1")
	if hotel.PlanTier != "basic" {
		t.Errorf("tier not applied: %s", hotel.PlanTier)
	}

	events, _ := m.QueryEvents(ctx, "hotel-1", core.EventFilter{Types: []string{core.EventSubscriptionChanged}})
	if len(events) != 1 {
		t.Errorf("expected 1 subscription_changed event, got %d", len(events))
	}
}

func TestApply_UnknownHotel(t *testing.T) {
	change := &billing.SubscriptionChange{HotelID: "ghost", Tier: billing.TierBasic}
	err := billing.Apply(context.Background(), store.NewMemory(), change)
	if !errors.Is(err, core.ErrHotelNotFound) {
		t.Fatalf("expected ErrHotelNotFound, got %v", err)
	}
}
