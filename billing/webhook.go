package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stayops/concierge-engine/core"
)

// =============================================================================
// GATEWAY WEBHOOK - Subscription change notifications
// =============================================================================

// SubscriptionChange is a validated gateway notification. Signature
// verification happens before this package sees the payload.
type SubscriptionChange struct {
	HotelID    string
	Tier       Tier
	Status     string // "active", "past_due", "cancelled"
	OccurredAt time.Time
}

// webhookEnvelope is the gateway's wire shape.
type webhookEnvelope struct {
	EventType string `json:"event_type"`
	Data      struct {
		HotelID    string `json:"hotel_id"`
		Tier       string `json:"tier"`
		Status     string `json:"status"`
		OccurredAt string `json:"occurred_at"`
	} `json:"data"`
}

// ParseWebhook validates a gateway notification body and returns the
// typed change. Only subscription.updated events are meaningful here.
func ParseWebhook(body []byte) (*SubscriptionChange, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}
	if env.EventType != "subscription.updated" {
		return nil, fmt.Errorf("unsupported webhook event %q", env.EventType)
	}
	if env.Data.HotelID == "" {
		return nil, fmt.Errorf("webhook payload missing hotel_id")
	}
	if _, ok := Catalog[Tier(env.Data.Tier)]; !ok {
		return nil, fmt.Errorf("unknown plan tier %q", env.Data.Tier)
	}

	change := &SubscriptionChange{
		HotelID: env.Data.HotelID,
		Tier:    Tier(env.Data.Tier),
		Status:  env.Data.Status,
	}
	if env.Data.OccurredAt != "" {
		at, err := time.Parse(time.RFC3339, env.Data.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("malformed occurred_at: %w", err)
		}
		change.OccurredAt = at
	} else {
		change.OccurredAt = time.Now().UTC()
	}
	return change, nil
}

// Apply persists a subscription change onto the hotel and records the
// audit event, atomically.
func Apply(ctx context.Context, store core.Store, change *SubscriptionChange) error {
	hotel, err := store.GetHotel(ctx, change.HotelID)
	if err != nil {
		return err
	}
	if hotel == nil {
		return core.ErrHotelNotFound
	}

	hotel.PlanTier = string(change.Tier)

	event, err := core.NewEvent(hotel.ID, core.SubscriptionChangedEvent{
		Tier:   string(change.Tier),
		Status: change.Status,
	})
	if err != nil {
		return err
	}

	return store.WithTx(ctx, func(tx core.Store) error {
		if err := tx.SaveHotel(ctx, *hotel); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, event)
	})
}
