package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"

	"github.com/google/uuid"
)

// PostgresDocumentsRepository 文档、Drive 配置与管理端角色 Repository 实现
type PostgresDocumentsRepository struct {
	db *sql.DB
}

// NewPostgresDocumentsRepository 创建文档 Repository
func NewPostgresDocumentsRepository(db *sql.DB) *PostgresDocumentsRepository {
	return &PostgresDocumentsRepository{db: db}
}

var (
	_ DocumentsRepository   = (*PostgresDocumentsRepository)(nil)
	_ DriveConfigRepository = (*PostgresDocumentsRepository)(nil)
	_ UserRolesRepository   = (*PostgresDocumentsRepository)(nil)
)

// CreateDocument 记录已上传的文档
func (r *PostgresDocumentsRepository) CreateDocument(ctx context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO documents (id, resident_id, document_type, file_name, mime_type, drive_file_id, drive_folder_id, web_view_link)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`,
		doc.ID,
		doc.ResidentID,
		doc.DocumentType,
		doc.FileName,
		doc.MimeType,
		doc.DriveFileID,
		doc.DriveFolder,
		doc.WebViewLink,
	).Scan(&doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// ListDocuments 住户文档，按上传时间倒序
func (r *PostgresDocumentsRepository) ListDocuments(ctx context.Context, residentID string) ([]*domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id::text, resident_id::text, document_type, file_name, mime_type, drive_file_id, drive_folder_id, web_view_link, created_at
		FROM documents
		WHERE resident_id = $1
		ORDER BY created_at DESC
	`, residentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []*domain.Document{}
	for rows.Next() {
		var d domain.Document
		var link sql.NullString
		if err := rows.Scan(&d.ID, &d.ResidentID, &d.DocumentType, &d.FileName, &d.MimeType, &d.DriveFileID, &d.DriveFolder, &link, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.WebViewLink = link.String
		docs = append(docs, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// GetDriveConfig 读取 drive_config 单行
func (r *PostgresDocumentsRepository) GetDriveConfig(ctx context.Context) (*domain.DriveConfig, error) {
	var c domain.DriveConfig
	var accessToken, rootFolder sql.NullString
	var expiry sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, client_id, client_secret, refresh_token, access_token, token_expiry, root_folder_id
		FROM drive_config
		WHERE id = 1
	`).Scan(&c.ID, &c.ClientID, &c.ClientSecret, &c.RefreshToken, &accessToken, &expiry, &rootFolder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get drive config: %w", err)
	}
	c.AccessToken = accessToken.String
	c.RootFolderID = rootFolder.String
	if expiry.Valid {
		c.TokenExpiry = expiry.Time
	}
	return &c, nil
}

// SaveAccessToken 保存刷新后的 token
func (r *PostgresDocumentsRepository) SaveAccessToken(ctx context.Context, accessToken string, expiry time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE drive_config SET access_token = $1, token_expiry = $2, updated_at = NOW() WHERE id = 1`,
		accessToken, expiry,
	)
	if err != nil {
		return fmt.Errorf("failed to save drive token: %w", err)
	}
	return requireAffected(res)
}

// GetRole 管理端角色
func (r *PostgresDocumentsRepository) GetRole(ctx context.Context, userID string) (string, error) {
	var role string
	err := r.db.QueryRowContext(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get user role: %w", err)
	}
	return role, nil
}
