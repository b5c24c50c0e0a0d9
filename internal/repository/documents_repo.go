package repository

import (
	"context"
	"time"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"
)

// DocumentsRepository 文档 Repository 接口
type DocumentsRepository interface {
	CreateDocument(ctx context.Context, doc *domain.Document) error
	ListDocuments(ctx context.Context, residentID string) ([]*domain.Document, error)
}

// DriveConfigRepository Drive OAuth 配置（单行）
type DriveConfigRepository interface {
	// GetDriveConfig 未配置返回 ErrNotFound
	GetDriveConfig(ctx context.Context) (*domain.DriveConfig, error)

	// SaveAccessToken 保存刷新后的 access token
	SaveAccessToken(ctx context.Context, accessToken string, expiry time.Time) error
}

// UserRolesRepository 管理端角色
type UserRolesRepository interface {
	// GetRole 未分配角色返回 ErrNotFound
	GetRole(ctx context.Context, userID string) (string, error)
}
