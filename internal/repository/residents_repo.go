package repository

import (
	"context"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"
)

// ResidentsRepository 住户 Repository 接口（提醒引擎只读）
type ResidentsRepository interface {
	// ListActiveResidents 所有 status='active' 的住户
	ListActiveResidents(ctx context.Context) ([]*domain.Resident, error)

	// GetResident 按 ID 获取住户，不存在返回 ErrNotFound
	GetResident(ctx context.Context, residentID string) (*domain.Resident, error)
}
