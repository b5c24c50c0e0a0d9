package httpapi

import (
	"io"
	"net/http"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/service"

	"go.uber.org/zap"
)

// DocumentHandler 住户文档
type DocumentHandler struct {
	documents service.DocumentService
	logger    *zap.Logger
}

func NewDocumentHandler(documents service.DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{documents: documents, logger: logger}
}

// ServeHTTP GET/POST /api/v1/residents/{id}/documents
func (h *DocumentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request, residentID string) {
	switch r.Method {
	case http.MethodGet:
		h.List(w, r, residentID)
	case http.MethodPost:
		h.Upload(w, r, residentID)
	default:
		methodNotAllowed(w)
	}
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request, residentID string) {
	docs, err := h.documents.List(r.Context(), residentID)
	if err != nil {
		writeServiceError(w, h.logger, "ListDocuments", err)
		return
	}
	out := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, map[string]any{
			"id":            d.ID,
			"resident_id":   d.ResidentID,
			"document_type": d.DocumentType,
			"file_name":     d.FileName,
			"mime_type":     d.MimeType,
			"drive_file_id": d.DriveFileID,
			"web_view_link": d.WebViewLink,
			"created_at":    d.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": len(out)}))
}

// Upload multipart/form-data: file + document_type
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request, residentID string) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxDocumentSize+(1<<20))
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("file is required"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("failed to read file"))
		return
	}

	doc, err := h.documents.Upload(r.Context(), service.UploadDocumentRequest{
		ResidentID:   residentID,
		DocumentType: r.FormValue("document_type"),
		FileName:     header.Filename,
		MimeType:     header.Header.Get("Content-Type"),
		Content:      content,
	})
	if err != nil {
		writeServiceError(w, h.logger, "UploadDocument", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"id":            doc.ID,
		"file_name":     doc.FileName,
		"drive_file_id": doc.DriveFileID,
		"web_view_link": doc.WebViewLink,
	}))
}
