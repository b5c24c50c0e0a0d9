package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"
)

// PostgresRoomsRepository 房间 Repository 实现
type PostgresRoomsRepository struct {
	db *sql.DB
}

// NewPostgresRoomsRepository 创建房间 Repository
func NewPostgresRoomsRepository(db *sql.DB) *PostgresRoomsRepository {
	return &PostgresRoomsRepository{db: db}
}

var _ RoomsRepository = (*PostgresRoomsRepository)(nil)

// ListRooms 房间列表，occupancy = 当前有效分配数
func (r *PostgresRoomsRepository) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	query := `
		SELECT
			r.id::text,
			r.room_number,
			r.room_type,
			r.capacity,
			r.monthly_rate,
			COUNT(ra.id) AS occupancy
		FROM rooms r
		LEFT JOIN room_assignments ra
			ON ra.room_id = r.id AND ra.end_date IS NULL
		GROUP BY r.id
		ORDER BY r.room_number ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	rooms := []*domain.Room{}
	for rows.Next() {
		var room domain.Room
		var roomType sql.NullString
		if err := rows.Scan(&room.ID, &room.RoomNumber, &roomType, &room.Capacity, &room.MonthlyRate, &room.Occupancy); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		room.RoomType = roomType.String
		rooms = append(rooms, &room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}
	return rooms, nil
}

// GetActiveRoomForResident 住户当前房间
func (r *PostgresRoomsRepository) GetActiveRoomForResident(ctx context.Context, residentID string) (*domain.Room, error) {
	query := `
		SELECT r.id::text, r.room_number, r.room_type, r.capacity, r.monthly_rate
		FROM room_assignments ra
		JOIN rooms r ON r.id = ra.room_id
		WHERE ra.resident_id = $1 AND ra.end_date IS NULL
		ORDER BY ra.start_date DESC
		LIMIT 1
	`
	var room domain.Room
	var roomType sql.NullString
	err := r.db.QueryRowContext(ctx, query, residentID).Scan(&room.ID, &room.RoomNumber, &roomType, &room.Capacity, &room.MonthlyRate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active room: %w", err)
	}
	room.RoomType = roomType.String
	return &room, nil
}
