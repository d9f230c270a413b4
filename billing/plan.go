/*
Package billing carries the subscription layer that gates tenant limits.

PURPOSE:
  Hotels subscribe to a plan tier; the tier caps how many rooms and staff
  members the hotel may configure. The engine consults the Gate before
  onboarding mutations. Payment collection and recurring charges are
  external; this package only knows tiers, limits and the gateway's
  webhook envelope (webhook.go).
*/
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stayops/concierge-engine/core"
)

// =============================================================================
// PLANS
// =============================================================================

// Tier identifies a subscription plan.
type Tier string

const (
	TierTrial   Tier = "trial"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)

// Plan is one subscription tier with its monthly price and limits.
type Plan struct {
	Tier         Tier
	MonthlyPrice decimal.Decimal
	MaxRooms     int
	MaxStaff     int
}

// Catalog is the fixed plan lineup. Prices are monthly, in USD.
var Catalog = map[Tier]Plan{
	TierTrial:   {Tier: TierTrial, MonthlyPrice: decimal.Zero, MaxRooms: 10, MaxStaff: 3},
	TierBasic:   {Tier: TierBasic, MonthlyPrice: decimal.NewFromInt(49), MaxRooms: 50, MaxStaff: 15},
	TierPremium: {Tier: TierPremium, MonthlyPrice: decimal.RequireFromString("149.99"), MaxRooms: 500, MaxStaff: 100},
}

// PlanFor resolves a tier name, falling back to trial for unknown tiers
// so a bad gateway payload never locks a hotel out entirely.
func PlanFor(tier string) Plan {
	if p, ok := Catalog[Tier(tier)]; ok {
		return p
	}
	return Catalog[TierTrial]
}

// =============================================================================
// LIMIT GATE
// =============================================================================

// ErrLimitReached is returned when a plan limit blocks an onboarding
// mutation.
var ErrLimitReached = errors.New("plan limit reached")

// LimitError names which limit blocked the mutation.
type LimitError struct {
	Resource string // "rooms" or "staff"
	Limit    int
	Tier     Tier
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s plan allows at most %d %s", e.Tier, e.Limit, e.Resource)
}

func (e *LimitError) Unwrap() error { return ErrLimitReached }

// Gate checks plan limits against current tenant counts.
type Gate struct {
	Store core.Store
}

// CanAddRoom returns a LimitError when the hotel is at its room cap.
func (g *Gate) CanAddRoom(ctx context.Context, hotelID string) error {
	hotel, err := g.Store.GetHotel(ctx, hotelID)
	if err != nil {
		return err
	}
	if hotel == nil {
		return core.ErrHotelNotFound
	}
	plan := PlanFor(hotel.PlanTier)

	n, err := g.Store.CountRooms(ctx, hotelID)
	if err != nil {
		return err
	}
	if n >= plan.MaxRooms {
		return &LimitError{Resource: "rooms", Limit: plan.MaxRooms, Tier: plan.Tier}
	}
	return nil
}

// CanAddStaff returns a LimitError when the hotel is at its staff cap.
func (g *Gate) CanAddStaff(ctx context.Context, hotelID string) error {
	hotel, err := g.Store.GetHotel(ctx, hotelID)
	if err != nil {
		return err
	}
	if hotel == nil {
		return core.ErrHotelNotFound
	}
	plan := PlanFor(hotel.PlanTier)

	n, err := g.Store.CountStaff(ctx, hotelID)
	if err != nil {
		return err
	}
	if n >= plan.MaxStaff {
		return &LimitError{Resource: "staff", Limit: plan.MaxStaff, Tier: plan.Tier}
	}
	return nil
}
