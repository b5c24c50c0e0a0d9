package domain

import "time"

// Document 住户文档（文件本体保存在 Drive，对应 documents 表）
type Document struct {
	ID           string    `db:"id"`
	ResidentID   string    `db:"resident_id"`
	DocumentType string    `db:"document_type"`
	FileName     string    `db:"file_name"`
	MimeType     string    `db:"mime_type"`
	DriveFileID  string    `db:"drive_file_id"`
	DriveFolder  string    `db:"drive_folder_id"`
	WebViewLink  string    `db:"web_view_link"`
	CreatedAt    time.Time `db:"created_at"`
}

// DriveConfig Drive OAuth 配置（对应 drive_config 表，单行）
type DriveConfig struct {
	ID           int       `db:"id"`
	ClientID     string    `db:"client_id"`
	ClientSecret string    `db:"client_secret"`
	RefreshToken string    `db:"refresh_token"`
	AccessToken  string    `db:"access_token"`
	TokenExpiry  time.Time `db:"token_expiry"`
	RootFolderID string    `db:"root_folder_id"`
}

// 管理端角色（对应 user_roles 表）
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
)
