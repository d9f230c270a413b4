package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stayops/concierge-engine/core"
)

// =============================================================================
// HOTELS
// =============================================================================

func (s *Store) SaveHotel(ctx context.Context, h core.Hotel) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO hotels (id, name, plan_tier, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, plan_tier = excluded.plan_tier`,
		h.ID, h.Name, h.PlanTier, fmtTime(h.CreatedAt))
	if err != nil {
		return fmt.Errorf("save hotel: %w", err)
	}
	return nil
}

func (s *Store) GetHotel(ctx context.Context, id string) (*core.Hotel, error) {
	var h core.Hotel
	var createdAt string
	err := s.q.QueryRowContext(ctx, `
		SELECT id, name, plan_tier, created_at FROM hotels WHERE id = ?`, id).
		Scan(&h.ID, &h.Name, &h.PlanTier, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get hotel: %w", err)
	}
	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &h, nil
}

// =============================================================================
// ROOMS
// =============================================================================

func (s *Store) SaveRoom(ctx context.Context, r core.Room) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO rooms (id, hotel_id, number, floor, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET number = excluded.number, floor = excluded.floor`,
		r.ID, r.HotelID, r.Number, r.Floor, fmtTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("save room: %w", err)
	}
	return nil
}

func (s *Store) GetRoom(ctx context.Context, hotelID, id string) (*core.Room, error) {
	var r core.Room
	var createdAt string
	err := s.q.QueryRowContext(ctx, `
		SELECT id, hotel_id, number, floor, created_at
		FROM rooms WHERE id = ? AND hotel_id = ?`, id, hotelID).
		Scan(&r.ID, &r.HotelID, &r.Number, &r.Floor, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) CountRooms(ctx context.Context, hotelID string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rooms WHERE hotel_id = ?`, hotelID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rooms: %w", err)
	}
	return n, nil
}

// =============================================================================
// SERVICES
// =============================================================================

func (s *Store) SaveService(ctx context.Context, svc core.Service) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO services (id, hotel_id, name, category, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, category = excluded.category`,
		svc.ID, svc.HotelID, svc.Name, svc.Category, fmtTime(svc.CreatedAt))
	if err != nil {
		return fmt.Errorf("save service: %w", err)
	}
	return nil
}

func (s *Store) GetService(ctx context.Context, hotelID, id string) (*core.Service, error) {
	var svc core.Service
	var createdAt string
	err := s.q.QueryRowContext(ctx, `
		SELECT id, hotel_id, name, category, created_at
		FROM services WHERE id = ? AND hotel_id = ?`, id, hotelID).
		Scan(&svc.ID, &svc.HotelID, &svc.Name, &svc.Category, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	if svc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &svc, nil
}

func (s *Store) ListServices(ctx context.Context, hotelID string) ([]core.Service, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, hotel_id, name, category, created_at
		FROM services WHERE hotel_id = ? ORDER BY name`, hotelID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var result []core.Service
	for rows.Next() {
		var svc core.Service
		var createdAt string
		if err := rows.Scan(&svc.ID, &svc.HotelID, &svc.Name, &svc.Category, &createdAt); err != nil {
			return nil, err
		}
		if svc.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		result = append(result, svc)
	}
	return result, rows.Err()
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) SaveUser(ctx context.Context, u core.User) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO users (id, hotel_id, name, email, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, email = excluded.email, role = excluded.role`,
		u.ID, u.HotelID, u.Name, u.Email, string(u.Role), fmtTime(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*core.User, error) {
	var u core.User
	var role, createdAt string
	err := s.q.QueryRowContext(ctx, `
		SELECT id, hotel_id, name, email, role, created_at
		FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.HotelID, &u.Name, &u.Email, &role, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = core.Role(role)
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) ListStaff(ctx context.Context, hotelID string) ([]core.User, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, hotel_id, name, email, role, created_at
		FROM users
		WHERE hotel_id = ? AND role IN ('hotel_staff', 'hotel_admin')
		ORDER BY name`, hotelID)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	var staff []core.User
	for rows.Next() {
		var u core.User
		var role, createdAt string
		if err := rows.Scan(&u.ID, &u.HotelID, &u.Name, &u.Email, &role, &createdAt); err != nil {
			return nil, err
		}
		u.Role = core.Role(role)
		if u.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		staff = append(staff, u)
	}
	return staff, rows.Err()
}

func (s *Store) CountStaff(ctx context.Context, hotelID string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users
		WHERE hotel_id = ? AND role IN ('hotel_staff', 'hotel_admin')`, hotelID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count staff: %w", err)
	}
	return n, nil
}
