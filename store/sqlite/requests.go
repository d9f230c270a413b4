package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/stayops/concierge-engine/core"
)

// =============================================================================
// SERVICE REQUESTS
// =============================================================================

const requestColumns = `id, hotel_id, room_id, guest_id, service_id, assigned_staff_id,
	title, description, priority, status, requested_at, started_at, completed_at`

func (s *Store) CreateRequest(ctx context.Context, r core.ServiceRequest) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO service_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.HotelID, r.RoomID, r.GuestID, r.ServiceID, r.AssignedStaffID,
		r.Title, r.Description, string(r.Priority), string(r.Status),
		fmtTime(r.RequestedAt), fmtTimePtr(r.StartedAt), fmtTimePtr(r.CompletedAt))
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, hotelID, id string) (*core.ServiceRequest, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM service_requests
		WHERE id = ? AND hotel_id = ?`, id, hotelID)

	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	return r, nil
}

func (s *Store) GetRequests(ctx context.Context, hotelID string, ids []string) ([]core.ServiceRequest, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, hotelID)

	rows, err := s.q.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM service_requests
		WHERE id IN (`+placeholders+`) AND hotel_id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("get requests: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

func (s *Store) ListRequests(ctx context.Context, hotelID string, f core.RequestFilter) ([]core.ServiceRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM service_requests
		WHERE hotel_id = ?`
	args := []any{hotelID}

	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.Priority != "" {
		query += " AND priority = ?"
		args = append(args, string(f.Priority))
	}
	if f.AssignedStaffID != "" {
		query += " AND assigned_staff_id = ?"
		args = append(args, f.AssignedStaffID)
	}
	if f.GuestID != "" {
		query += " AND guest_id = ?"
		args = append(args, f.GuestID)
	}

	// Priority rank descending, then newest first.
	query += `
		ORDER BY CASE priority
			WHEN 'urgent' THEN 3
			WHEN 'high' THEN 2
			WHEN 'medium' THEN 1
			ELSE 0
		END DESC, requested_at DESC`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

func (s *Store) UpdateRequest(ctx context.Context, r core.ServiceRequest) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE service_requests
		SET assigned_staff_id = ?, title = ?, description = ?, priority = ?,
			status = ?, started_at = ?, completed_at = ?
		WHERE id = ? AND hotel_id = ?`,
		r.AssignedStaffID, r.Title, r.Description, string(r.Priority),
		string(r.Status), fmtTimePtr(r.StartedAt), fmtTimePtr(r.CompletedAt),
		r.ID, r.HotelID)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrRequestNotFound
	}
	return nil
}

// ClaimPending is the compare-and-swap that makes assignment race-safe:
// the update matches only while the request is still pending.
func (s *Store) ClaimPending(ctx context.Context, hotelID, requestID, staffID string, at time.Time) (bool, error) {
	res, err := s.q.ExecContext(ctx, `
		UPDATE service_requests
		SET assigned_staff_id = ?, status = 'in_progress',
			started_at = COALESCE(started_at, ?)
		WHERE id = ? AND hotel_id = ? AND status = 'pending'`,
		staffID, fmtTime(at), requestID, hotelID)
	if err != nil {
		return false, fmt.Errorf("claim request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) CountActiveByStaff(ctx context.Context, hotelID string) (map[string]int, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT assigned_staff_id, COUNT(*)
		FROM service_requests
		WHERE hotel_id = ? AND assigned_staff_id != ''
			AND status IN ('pending', 'in_progress')
		GROUP BY assigned_staff_id`, hotelID)
	if err != nil {
		return nil, fmt.Errorf("count active requests: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var staffID string
		var n int
		if err := rows.Scan(&staffID, &n); err != nil {
			return nil, err
		}
		counts[staffID] = n
	}
	return counts, rows.Err()
}

// =============================================================================
// ROW SCANNING
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*core.ServiceRequest, error) {
	var (
		r                      core.ServiceRequest
		priority, status       string
		requestedAt            string
		startedAt, completedAt sql.NullString
	)
	err := row.Scan(&r.ID, &r.HotelID, &r.RoomID, &r.GuestID, &r.ServiceID,
		&r.AssignedStaffID, &r.Title, &r.Description, &priority, &status,
		&requestedAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	r.Priority = core.Priority(priority)
	r.Status = core.Status(status)
	if r.RequestedAt, err = parseTime(requestedAt); err != nil {
		return nil, fmt.Errorf("parse requested_at: %w", err)
	}
	if r.StartedAt, err = parseTimePtr(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if r.CompletedAt, err = parseTimePtr(completedAt); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}
	return &r, nil
}

func scanRequests(rows *sql.Rows) ([]core.ServiceRequest, error) {
	var result []core.ServiceRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}
