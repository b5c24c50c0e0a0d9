package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterHealthRoutes 健康检查（不需要认证）
func (r *Router) RegisterHealthRoutes() {
	r.Handle(HealthPath, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})
}

// RegisterReminderRoutes 提醒
func (r *Router) RegisterReminderRoutes(h *ReminderHandler) {
	r.Handle("/api/v1/reminders", h.ServeCollection)
	r.Handle("/api/v1/reminders/", h.ServeItem)
}

// RegisterBillingRoutes 房间 / 账单 / 缴费
func (r *Router) RegisterBillingRoutes(h *BillingHandler) {
	r.Handle("/api/v1/rooms", h.ListRooms)
	r.Handle("/api/v1/payments", h.RecordPayment)
	r.Handle("/api/v1/payments/", h.Receipt)
}

// RegisterResidentRoutes /api/v1/residents/{id}/... 按子路径分发到账单和文档
func (r *Router) RegisterResidentRoutes(billing *BillingHandler, documents *DocumentHandler) {
	r.Handle("/api/v1/residents/", func(w http.ResponseWriter, req *http.Request) {
		residentID, rest := pathID(req.URL.Path, "/api/v1/residents/")
		if residentID == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch rest {
		case "billing-draft":
			billing.Draft(w, req, residentID)
		case "extra-charges":
			billing.ExtraCharges(w, req, residentID)
		case "documents":
			if documents == nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			documents.ServeHTTP(w, req, residentID)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}
