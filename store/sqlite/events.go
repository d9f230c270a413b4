package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stayops/concierge-engine/core"
)

// =============================================================================
// ANALYTICS EVENTS - Append-only
// =============================================================================

func (s *Store) AppendEvent(ctx context.Context, e core.Event) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO analytics_events (id, hotel_id, event_type, event_data, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.HotelID, e.Type, string(e.Payload), fmtTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *Store) QueryEvents(ctx context.Context, hotelID string, f core.EventFilter) ([]core.Event, error) {
	query := `
		SELECT id, hotel_id, event_type, event_data, created_at
		FROM analytics_events
		WHERE hotel_id = ?`
	args := []any{hotelID}

	if len(f.Types) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Types)), ",")
		query += " AND event_type IN (" + placeholders + ")"
		for _, t := range f.Types {
			args = append(args, t)
		}
	}
	if !f.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, fmtTime(f.Since))
	}

	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var result []core.Event
	for rows.Next() {
		var e core.Event
		var payload, createdAt string
		if err := rows.Scan(&e.ID, &e.HotelID, &e.Type, &payload, &createdAt); err != nil {
			return nil, err
		}
		e.Payload = []byte(payload)
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// LastAssignments derives each staff member's most recent assignment
// timestamp from the audit trail. Assigned events carry the staff id as
// assigned_staff_id, reassigned events as new_staff_id.
func (s *Store) LastAssignments(ctx context.Context, hotelID string) (map[string]time.Time, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT COALESCE(
				json_extract(event_data, '$.assigned_staff_id'),
				json_extract(event_data, '$.new_staff_id')
			) AS staff_id,
			MAX(created_at)
		FROM analytics_events
		WHERE hotel_id = ? AND event_type IN (?, ?)
		GROUP BY staff_id`,
		hotelID, core.EventRequestAssigned, core.EventRequestReassigned)
	if err != nil {
		return nil, fmt.Errorf("last assignments: %w", err)
	}
	defer rows.Close()

	last := make(map[string]time.Time)
	for rows.Next() {
		var staffID, createdAt string
		if err := rows.Scan(&staffID, &createdAt); err != nil {
			return nil, err
		}
		if staffID == "" {
			continue
		}
		at, err := parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		last[staffID] = at
	}
	return last, rows.Err()
}
