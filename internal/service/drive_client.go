package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/config"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/repository"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrDriveNotConfigured drive_config 未配置
var ErrDriveNotConfigured = errors.New("drive is not configured")

// DriveFolderMimeType Drive 文件夹 MIME
const DriveFolderMimeType = "application/vnd.google-apps.folder"

// 提前刷新的时间窗口
const tokenRefreshSkew = 60 * time.Second

// DriveStore 文档存储接口（DocumentService 依赖）
type DriveStore interface {
	// RootFolderID 所有住户文件夹的父目录
	RootFolderID(ctx context.Context) (string, error)

	// EnsureFolder 按名称查找子文件夹，不存在则创建
	EnsureFolder(ctx context.Context, name, parentID string) (string, error)

	// Upload 上传文件到指定文件夹
	Upload(ctx context.Context, folderID, name, mimeType string, content []byte) (*DriveFile, error)
}

// DriveFile Drive 文件元数据
type DriveFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType"`
	WebViewLink string `json:"webViewLink"`
}

type driveFileList struct {
	Files []DriveFile `json:"files"`
}

type driveTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type driveErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// DriveClient Google Drive REST 客户端
// access token 保存在 drive_config 中，过期前 60 秒刷新并回写
// 只有查询（GET）会重试，创建与上传只发送一次
type DriveClient struct {
	api        *resty.Client // GET，失败重试
	write      *resty.Client // POST / DELETE，不重试
	upload     *resty.Client // media 上传，不重试
	tokenURL   string
	configRepo repository.DriveConfigRepository
	logger     *zap.Logger
	mu         sync.Mutex
	now        func() time.Time
}

var _ DriveStore = (*DriveClient)(nil)

// NewDriveClient 创建 Drive 客户端
func NewDriveClient(cfg config.DriveConfig, configRepo repository.DriveConfigRepository, logger *zap.Logger) *DriveClient {
	newClient := func(baseURL string) *resty.Client {
		return resty.New().
			SetBaseURL(baseURL).
			SetTimeout(60*time.Second). // 大文件上传
			SetHeader("Accept", "application/json")
	}
	api := newClient(cfg.APIBaseURL).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError)
		})
	return &DriveClient{
		api:        api,
		write:      newClient(cfg.APIBaseURL),
		upload:     newClient(cfg.UploadBaseURL),
		tokenURL:   cfg.TokenURL,
		configRepo: configRepo,
		logger:     logger,
		now:        time.Now,
	}
}

// RootFolderID drive_config.root_folder_id
func (c *DriveClient) RootFolderID(ctx context.Context) (string, error) {
	cfg, err := c.loadConfig(ctx)
	if err != nil {
		return "", err
	}
	return cfg.RootFolderID, nil
}

// EnsureFolder 查找 parentID 下名为 name 的文件夹，不存在则创建
func (c *DriveClient) EnsureFolder(ctx context.Context, name, parentID string) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeDriveQuery(name), DriveFolderMimeType)
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeDriveQuery(parentID))
	}

	var list driveFileList
	resp, err := c.api.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("q", q).
		SetQueryParam("fields", "files(id,name,mimeType)").
		SetResult(&list).
		Get("/files")
	if err := driveError("search folder", resp, err); err != nil {
		return "", err
	}
	if len(list.Files) > 0 {
		return list.Files[0].ID, nil
	}

	body := map[string]any{"name": name, "mimeType": DriveFolderMimeType}
	if parentID != "" {
		body["parents"] = []string{parentID}
	}
	var created DriveFile
	resp, err = c.write.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("fields", "id,name,mimeType").
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&created).
		Post("/files")
	if err := driveError("create folder", resp, err); err != nil {
		return "", err
	}

	c.logger.Info("Drive folder created",
		zap.String("folder_id", created.ID),
		zap.String("name", name),
	)
	return created.ID, nil
}

// Upload 先创建文件元数据，再以 media 方式上传内容
func (c *DriveClient) Upload(ctx context.Context, folderID, name, mimeType string, content []byte) (*DriveFile, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	meta := map[string]any{"name": name, "mimeType": mimeType}
	if folderID != "" {
		meta["parents"] = []string{folderID}
	}
	var file DriveFile
	resp, err := c.write.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("fields", "id,name,mimeType,webViewLink").
		SetHeader("Content-Type", "application/json").
		SetBody(meta).
		SetResult(&file).
		Post("/files")
	if err := driveError("create file", resp, err); err != nil {
		return nil, err
	}

	var uploaded DriveFile
	resp, err = c.upload.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("uploadType", "media").
		SetQueryParam("fields", "id,name,mimeType,webViewLink").
		SetHeader("Content-Type", mimeType).
		SetBody(content).
		SetResult(&uploaded).
		Patch("/files/" + file.ID)
	if err := driveError("upload content", resp, err); err != nil {
		// 内容没有写入，删除空的元数据文件
		c.deleteFile(ctx, token, file.ID)
		return nil, err
	}
	if uploaded.WebViewLink == "" {
		uploaded.WebViewLink = file.WebViewLink
	}
	if uploaded.ID == "" {
		uploaded.ID = file.ID
	}

	c.logger.Info("Drive file uploaded",
		zap.String("file_id", uploaded.ID),
		zap.String("folder_id", folderID),
		zap.Int("size", len(content)),
	)
	return &uploaded, nil
}

// deleteFile 尽力删除，失败只记录
func (c *DriveClient) deleteFile(ctx context.Context, token, fileID string) {
	resp, err := c.write.R().
		SetContext(ctx).
		SetAuthToken(token).
		Delete("/files/" + fileID)
	if err := driveError("delete file", resp, err); err != nil {
		c.logger.Warn("Failed to remove orphaned drive file",
			zap.String("file_id", fileID),
			zap.Error(err),
		)
	}
}

func (c *DriveClient) loadConfig(ctx context.Context) (*domain.DriveConfig, error) {
	cfg, err := c.configRepo.GetDriveConfig(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDriveNotConfigured
		}
		return nil, err
	}
	return cfg, nil
}

// accessToken 返回有效 token，必要时刷新
func (c *DriveClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, err := c.loadConfig(ctx)
	if err != nil {
		return "", err
	}
	if cfg.AccessToken != "" && cfg.TokenExpiry.After(c.now().Add(tokenRefreshSkew)) {
		return cfg.AccessToken, nil
	}
	if cfg.RefreshToken == "" {
		return "", ErrDriveNotConfigured
	}

	var tok driveTokenResponse
	resp, err := resty.New().
		SetTimeout(30*time.Second).
		R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     cfg.ClientID,
			"client_secret": cfg.ClientSecret,
			"refresh_token": cfg.RefreshToken,
			"grant_type":    "refresh_token",
		}).
		SetResult(&tok).
		Post(c.tokenURL)
	if err := driveError("refresh token", resp, err); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("drive refresh token: empty access_token")
	}

	expiry := c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	if err := c.configRepo.SaveAccessToken(ctx, tok.AccessToken, expiry); err != nil {
		// token 仍可用，仅记录
		c.logger.Warn("Failed to persist drive access token", zap.Error(err))
	}
	c.logger.Info("Drive access token refreshed", zap.Time("expiry", expiry))
	return tok.AccessToken, nil
}

func driveError(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("drive %s: %w", op, err)
	}
	if resp.IsError() {
		var e driveErrorResponse
		msg := strings.TrimSpace(resp.String())
		if jerr := json.Unmarshal(resp.Body(), &e); jerr == nil && e.Error.Message != "" {
			msg = e.Error.Message
		}
		return fmt.Errorf("drive %s: status %d: %s", op, resp.StatusCode(), msg)
	}
	return nil
}

func escapeDriveQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
