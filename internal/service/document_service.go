package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/repository"

	"go.uber.org/zap"
)

// MaxDocumentSize 单个文档上限
const MaxDocumentSize = 20 << 20

// DocumentService 住户文档
type DocumentService interface {
	Upload(ctx context.Context, req UploadDocumentRequest) (*domain.Document, error)
	List(ctx context.Context, residentID string) ([]*domain.Document, error)
}

// UploadDocumentRequest 上传请求
type UploadDocumentRequest struct {
	ResidentID   string
	DocumentType string // id_proof / medical / agreement / other
	FileName     string
	MimeType     string
	Content      []byte
}

type documentService struct {
	residentsRepo repository.ResidentsRepository
	documentsRepo repository.DocumentsRepository
	drive         DriveStore
	logger        *zap.Logger
}

// NewDocumentService 创建文档服务
func NewDocumentService(
	residentsRepo repository.ResidentsRepository,
	documentsRepo repository.DocumentsRepository,
	drive DriveStore,
	logger *zap.Logger,
) DocumentService {
	return &documentService{
		residentsRepo: residentsRepo,
		documentsRepo: documentsRepo,
		drive:         drive,
		logger:        logger,
	}
}

// Upload 住户文件夹 -> 上传文件 -> 写 documents 记录
func (s *documentService) Upload(ctx context.Context, req UploadDocumentRequest) (*domain.Document, error) {
	fileName := path.Base(strings.TrimSpace(req.FileName))
	if fileName == "" || fileName == "." || fileName == "/" {
		return nil, fmt.Errorf("%w: file name is required", ErrValidation)
	}
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrValidation)
	}
	if len(req.Content) > MaxDocumentSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, MaxDocumentSize)
	}
	docType := strings.TrimSpace(req.DocumentType)
	if docType == "" {
		docType = "other"
	}
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	resident, err := s.residentsRepo.GetResident(ctx, req.ResidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load resident: %w", err)
	}

	rootID, err := s.drive.RootFolderID(ctx)
	if err != nil {
		return nil, err
	}
	folderID, err := s.drive.EnsureFolder(ctx, ResidentFolderName(resident), rootID)
	if err != nil {
		return nil, err
	}
	file, err := s.drive.Upload(ctx, folderID, fileName, mimeType, req.Content)
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ResidentID:   resident.ID,
		DocumentType: docType,
		FileName:     fileName,
		MimeType:     mimeType,
		DriveFileID:  file.ID,
		DriveFolder:  folderID,
		WebViewLink:  file.WebViewLink,
	}
	if err := s.documentsRepo.CreateDocument(ctx, doc); err != nil {
		// 文件已在 Drive 上，记录 file_id 便于人工清理
		s.logger.Error("Document uploaded but record not saved",
			zap.String("resident_id", resident.ID),
			zap.String("drive_file_id", file.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to save document: %w", err)
	}
	return doc, nil
}

func (s *documentService) List(ctx context.Context, residentID string) ([]*domain.Document, error) {
	return s.documentsRepo.ListDocuments(ctx, residentID)
}

// ResidentFolderName 住户文件夹名，附带 ID 避免同名冲突
func ResidentFolderName(r *domain.Resident) string {
	return fmt.Sprintf("%s (%s)", strings.TrimSpace(r.FullName), r.ID)
}
