/*
workload.go - Per-staff workload inspection

PURPOSE:
  Computes the derived workload view the assignment engine ranks
  candidates with: for every staff member of a hotel, how many requests
  they currently hold in pending or in_progress, and whether they are
  under the concurrency ceiling.

NO CACHING:
  The snapshot is recomputed from the store on every call. Staleness here
  translates directly into double-assignment risk, so there is nothing to
  invalidate - the conditional claim in the store is the real guard.

ORDERING:
  Results are sorted ascending by active count, ties broken by staff name.
  This is the canonical candidate ranking; the engine relies on it.
*/
package core

import (
	"context"
	"fmt"
	"sort"
)

// WorkloadInspector derives per-staff load snapshots for a hotel.
type WorkloadInspector struct {
	Store Store
}

// AvailableStaff returns the workload snapshot for every staff member of
// the hotel, sorted by (ActiveRequests asc, StaffName asc). The listing
// includes unavailable staff; callers filter on IsAvailable.
func (wi *WorkloadInspector) AvailableStaff(ctx context.Context, hotelID string) ([]StaffWorkload, error) {
	if hotelID == "" {
		return nil, &ValidationError{Field: "hotel_id", Message: "must not be empty"}
	}

	staff, err := wi.Store.ListStaff(ctx, hotelID)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}

	active, err := wi.Store.CountActiveByStaff(ctx, hotelID)
	if err != nil {
		return nil, fmt.Errorf("count active requests: %w", err)
	}

	lastAssigned, err := wi.Store.LastAssignments(ctx, hotelID)
	if err != nil {
		return nil, fmt.Errorf("resolve last assignments: %w", err)
	}

	workloads := make([]StaffWorkload, 0, len(staff))
	for _, s := range staff {
		w := StaffWorkload{
			StaffID:               s.ID,
			StaffName:             s.Name,
			ActiveRequests:        active[s.ID],
			MaxConcurrentRequests: MaxConcurrentRequests,
		}
		w.IsAvailable = w.ActiveRequests < MaxConcurrentRequests
		if at, ok := lastAssigned[s.ID]; ok {
			t := at
			w.LastAssignedAt = &t
		}
		workloads = append(workloads, w)
	}

	sort.Slice(workloads, func(i, j int) bool {
		if workloads[i].ActiveRequests != workloads[j].ActiveRequests {
			return workloads[i].ActiveRequests < workloads[j].ActiveRequests
		}
		return workloads[i].StaffName < workloads[j].StaffName
	})

	return workloads, nil
}
