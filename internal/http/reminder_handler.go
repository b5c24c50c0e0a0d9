package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/reminder"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/repository"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/scheduler"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/service"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/store"

	"go.uber.org/zap"
)

// LastRunSource 最近一次定时执行摘要
type LastRunSource interface {
	LastRun(ctx context.Context) (*scheduler.RunSummary, error)
}

// ReminderHandler 提醒 API
type ReminderHandler struct {
	reminders service.ReminderService
	lastRun   LastRunSource
	today     func() time.Time
	logger    *zap.Logger
}

// NewReminderHandler today 为 nil 时使用 UTC 当天；lastRun 可为 nil
func NewReminderHandler(reminders service.ReminderService, lastRun LastRunSource, today func() time.Time, logger *zap.Logger) *ReminderHandler {
	if today == nil {
		today = func() time.Time { return reminder.Date(time.Now().UTC()) }
	}
	return &ReminderHandler{
		reminders: reminders,
		lastRun:   lastRun,
		today:     today,
		logger:    logger,
	}
}

// ServeCollection /api/v1/reminders
func (h *ReminderHandler) ServeCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.List(w, r)
	case http.MethodPost:
		h.Create(w, r)
	default:
		methodNotAllowed(w)
	}
}

// ServeItem /api/v1/reminders/...
//   - POST   /generate
//   - POST   /run-scheduled
//   - GET    /last-run
//   - PUT    /{id}/complete
//   - DELETE /{id}
func (h *ReminderHandler) ServeItem(w http.ResponseWriter, r *http.Request) {
	id, rest := pathID(r.URL.Path, "/api/v1/reminders/")
	switch {
	case id == "":
		w.WriteHeader(http.StatusNotFound)
	case id == "generate" && rest == "":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.Generate(w, r)
	case id == "run-scheduled" && rest == "":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.RunScheduled(w, r)
	case id == "last-run" && rest == "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.LastRun(w, r)
	case rest == "complete":
		if r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		h.Complete(w, r, id)
	case rest == "":
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		h.Delete(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// List GET /api/v1/reminders?status=&type=&resident_id=
// 列表前先清理过期生日提醒
func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := &repository.ReminderFilters{
		Status:       strings.TrimSpace(q.Get("status")),
		ReminderType: domain.ReminderType(strings.TrimSpace(q.Get("type"))),
		ResidentID:   strings.TrimSpace(q.Get("resident_id")),
	}
	if filters.ReminderType != "" && !filters.ReminderType.Valid() {
		writeJSON(w, http.StatusOK, Fail("invalid type"))
		return
	}

	items, err := h.reminders.ListReminders(r.Context(), filters, h.today())
	if err != nil {
		writeServiceError(w, h.logger, "ListReminders", err)
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, reminderJSON(item))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": len(out)}))
}

// Create POST /api/v1/reminders
func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		ReminderType string `json:"reminder_type"`
		DueDate      string `json:"due_date"`
		ResidentID   string `json:"resident_id"`
	}
	if err := readBodyJSON(r, maxJSONBody, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	due, err := parseDate(payload.DueDate)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid due_date, expected YYYY-MM-DD"))
		return
	}

	rem, err := h.reminders.CreateReminder(r.Context(), service.CreateReminderRequest{
		Title:        payload.Title,
		Description:  payload.Description,
		ReminderType: domain.ReminderType(payload.ReminderType),
		DueDate:      due,
		ResidentID:   strings.TrimSpace(payload.ResidentID),
	})
	if err != nil {
		writeServiceError(w, h.logger, "CreateReminder", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(reminderJSON(rem)))
}

// Generate POST /api/v1/reminders/generate 手动生成生日提醒 -> {created}
func (h *ReminderHandler) Generate(w http.ResponseWriter, r *http.Request) {
	res, err := h.reminders.RunOnDemandBirthdayGeneration(r.Context(), h.today())
	if err != nil {
		writeServiceError(w, h.logger, "RunOnDemandBirthdayGeneration", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"created": res.RemindersCreated}))
}

// RunScheduled POST /api/v1/reminders/run-scheduled（super_admin）-> {remindersCreated}
func (h *ReminderHandler) RunScheduled(w http.ResponseWriter, r *http.Request) {
	if !requireSuperAdmin(w, r) {
		return
	}
	res, err := h.reminders.RunScheduledGeneration(r.Context(), h.today())
	if err != nil {
		writeServiceError(w, h.logger, "RunScheduledGeneration", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"remindersCreated": res.RemindersCreated}))
}

// LastRun GET /api/v1/reminders/last-run
func (h *ReminderHandler) LastRun(w http.ResponseWriter, r *http.Request) {
	if h.lastRun == nil {
		writeJSON(w, http.StatusOK, Ok[any](nil))
		return
	}
	summary, err := h.lastRun.LastRun(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			writeJSON(w, http.StatusOK, Ok[any](nil))
			return
		}
		writeServiceError(w, h.logger, "LastRun", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(summary))
}

// Complete PUT /api/v1/reminders/{id}/complete
func (h *ReminderHandler) Complete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.reminders.CompleteReminder(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "CompleteReminder", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"id": id, "status": domain.ReminderStatusCompleted}))
}

// Delete DELETE /api/v1/reminders/{id}
func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.reminders.DeleteReminder(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "DeleteReminder", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"id": id}))
}

func reminderJSON(r *domain.Reminder) map[string]any {
	return map[string]any{
		"id":            r.ID,
		"title":         r.Title,
		"description":   r.Description,
		"reminder_type": r.ReminderType,
		"due_date":      r.DueDateString(),
		"status":        r.Status,
		"resident_id":   r.ResidentID,
		"created_at":    r.CreatedAt,
	}
}
