package repository

import (
	"context"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"
)

// RoomsRepository 房间 Repository 接口（对账单只读）
type RoomsRepository interface {
	// ListRooms 所有房间及当前入住数
	ListRooms(ctx context.Context) ([]*domain.Room, error)

	// GetActiveRoomForResident 住户当前入住的房间，未分配返回 ErrNotFound
	GetActiveRoomForResident(ctx context.Context, residentID string) (*domain.Room, error)
}
