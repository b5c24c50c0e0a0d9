package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BillingHandler 房间 / 账单 / 额外费用 / 缴费
type BillingHandler struct {
	billing service.BillingService
	logger  *zap.Logger
}

func NewBillingHandler(billing service.BillingService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{billing: billing, logger: logger}
}

// ListRooms GET /api/v1/rooms
func (h *BillingHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	rooms, err := h.billing.ListRooms(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "ListRooms", err)
		return
	}
	out := make([]map[string]any, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, map[string]any{
			"id":           room.ID,
			"room_number":  room.RoomNumber,
			"room_type":    room.RoomType,
			"capacity":     room.Capacity,
			"occupancy":    room.Occupancy,
			"available":    room.Available(),
			"monthly_rate": room.MonthlyRate.StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": len(out)}))
}

// Draft GET /api/v1/residents/{id}/billing-draft
func (h *BillingHandler) Draft(w http.ResponseWriter, r *http.Request, residentID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	draft, err := h.billing.Draft(r.Context(), residentID)
	if err != nil {
		writeServiceError(w, h.logger, "BillingDraft", err)
		return
	}
	charges := make([]map[string]any, 0, len(draft.ExtraCharges))
	for _, c := range draft.ExtraCharges {
		charges = append(charges, extraChargeJSON(c))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"resident_id":   draft.ResidentID,
		"resident_name": draft.ResidentName,
		"room_number":   draft.RoomNumber,
		"base_amount":   draft.BaseAmount.StringFixed(2),
		"extra_charges": charges,
		"extra_total":   draft.ExtraTotal.StringFixed(2),
		"total":         draft.Total.StringFixed(2),
	}))
}

// ExtraCharges GET/POST /api/v1/residents/{id}/extra-charges
func (h *BillingHandler) ExtraCharges(w http.ResponseWriter, r *http.Request, residentID string) {
	switch r.Method {
	case http.MethodGet:
		unbilledOnly := r.URL.Query().Get("unbilled") == "true"
		charges, err := h.billing.ListExtraCharges(r.Context(), residentID, unbilledOnly)
		if err != nil {
			writeServiceError(w, h.logger, "ListExtraCharges", err)
			return
		}
		out := make([]map[string]any, 0, len(charges))
		for _, c := range charges {
			out = append(out, extraChargeJSON(c))
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": len(out)}))
	case http.MethodPost:
		var payload struct {
			Description string          `json:"description"`
			Amount      decimal.Decimal `json:"amount"`
			ChargeDate  string          `json:"charge_date"`
		}
		if err := readBodyJSON(r, maxJSONBody, &payload); err != nil {
			writeJSON(w, http.StatusOK, Fail("invalid body"))
			return
		}
		chargeDate, err := parseDate(payload.ChargeDate)
		if err != nil {
			writeJSON(w, http.StatusOK, Fail("invalid charge_date, expected YYYY-MM-DD"))
			return
		}
		charge, err := h.billing.AddExtraCharge(r.Context(), service.AddExtraChargeRequest{
			ResidentID:  residentID,
			Description: payload.Description,
			Amount:      payload.Amount,
			ChargeDate:  chargeDate,
		})
		if err != nil {
			writeServiceError(w, h.logger, "AddExtraCharge", err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(extraChargeJSON(charge)))
	default:
		methodNotAllowed(w)
	}
}

// RecordPayment POST /api/v1/payments
func (h *BillingHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var payload struct {
		ResidentID    string          `json:"resident_id"`
		PaymentDate   string          `json:"payment_date"`
		Amount        decimal.Decimal `json:"amount"`
		MonthYear     string          `json:"month_year"`
		PaymentMethod string          `json:"payment_method"`
		Notes         string          `json:"notes"`
		ChargeIDs     []string        `json:"extra_charge_ids"`
	}
	if err := readBodyJSON(r, maxJSONBody, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	paymentDate, err := parseDate(payload.PaymentDate)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid payment_date, expected YYYY-MM-DD"))
		return
	}

	payment, err := h.billing.RecordPayment(r.Context(), service.RecordPaymentRequest{
		ResidentID:    strings.TrimSpace(payload.ResidentID),
		PaymentDate:   paymentDate,
		Amount:        payload.Amount,
		MonthYear:     payload.MonthYear,
		PaymentMethod: payload.PaymentMethod,
		Notes:         payload.Notes,
		ChargeIDs:     payload.ChargeIDs,
	})
	if err != nil {
		writeServiceError(w, h.logger, "RecordPayment", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"id":             payment.ID,
		"resident_id":    payment.ResidentID,
		"payment_date":   payment.PaymentDate.Format(domain.DateLayout),
		"amount":         payment.Amount.StringFixed(2),
		"month_year":     payment.MonthYear,
		"payment_method": payment.PaymentMethod,
		"notes":          payment.Notes,
		"created_at":     payment.CreatedAt,
	}))
}

// Receipt GET /api/v1/payments/{id}/receipt
func (h *BillingHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	paymentID, rest := pathID(r.URL.Path, "/api/v1/payments/")
	if paymentID == "" || rest != "receipt" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	receipt, err := h.billing.Receipt(r.Context(), paymentID)
	if err != nil {
		writeServiceError(w, h.logger, "Receipt", err)
		return
	}
	w.Header().Set("Content-Type", service.ReceiptContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", receipt.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(receipt.Content)
}

func extraChargeJSON(c *domain.ExtraCharge) map[string]any {
	return map[string]any{
		"id":          c.ID,
		"resident_id": c.ResidentID,
		"description": c.Description,
		"amount":      c.Amount.StringFixed(2),
		"charge_date": c.ChargeDate.Format(domain.DateLayout),
		"payment_id":  c.PaymentID,
		"created_at":  c.CreatedAt,
	}
}
