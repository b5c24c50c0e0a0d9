package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/reminder"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BillingService 账单 / 缴费 / 收据
// 只被管理端调用，提醒引擎不依赖它
type BillingService interface {
	// Draft 当月账单草稿：房间月费 + 未计入缴费的额外费用
	Draft(ctx context.Context, residentID string) (*BillingDraft, error)

	// RecordPayment 记录缴费并关联额外费用（同一事务）
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*domain.Payment, error)

	// Receipt 生成收据 xlsx
	Receipt(ctx context.Context, paymentID string) (*Receipt, error)

	AddExtraCharge(ctx context.Context, req AddExtraChargeRequest) (*domain.ExtraCharge, error)
	ListExtraCharges(ctx context.Context, residentID string, unbilledOnly bool) ([]*domain.ExtraCharge, error)

	// ListRooms 房间及入住数
	ListRooms(ctx context.Context) ([]*domain.Room, error)
}

// BillingDraft 账单草稿
type BillingDraft struct {
	ResidentID   string                `json:"resident_id"`
	ResidentName string                `json:"resident_name"`
	RoomNumber   string                `json:"room_number,omitempty"`
	BaseAmount   decimal.Decimal       `json:"base_amount"`
	ExtraCharges []*domain.ExtraCharge `json:"extra_charges"`
	ExtraTotal   decimal.Decimal       `json:"extra_total"`
	Total        decimal.Decimal       `json:"total"`
}

// ChargeIDs 草稿中所有额外费用 ID
func (d *BillingDraft) ChargeIDs() []string {
	ids := make([]string, 0, len(d.ExtraCharges))
	for _, c := range d.ExtraCharges {
		ids = append(ids, c.ID)
	}
	return ids
}

// RecordPaymentRequest 记录缴费请求
// Amount 为零时取草稿合计并关联草稿中全部未结额外费用
// Amount 非零时只关联 ChargeIDs 列出的费用
type RecordPaymentRequest struct {
	ResidentID    string
	PaymentDate   time.Time
	Amount        decimal.Decimal
	MonthYear     string
	PaymentMethod string
	Notes         string
	ChargeIDs     []string
}

// AddExtraChargeRequest 新增额外费用请求
type AddExtraChargeRequest struct {
	ResidentID  string
	Description string
	Amount      decimal.Decimal
	ChargeDate  time.Time
}

type billingService struct {
	residentsRepo repository.ResidentsRepository
	paymentsRepo  repository.PaymentsRepository
	chargesRepo   repository.ExtraChargesRepository
	roomsRepo     repository.RoomsRepository
	logger        *zap.Logger
	now           func() time.Time
}

// NewBillingService 创建账单服务
func NewBillingService(
	residentsRepo repository.ResidentsRepository,
	paymentsRepo repository.PaymentsRepository,
	chargesRepo repository.ExtraChargesRepository,
	roomsRepo repository.RoomsRepository,
	logger *zap.Logger,
) BillingService {
	return &billingService{
		residentsRepo: residentsRepo,
		paymentsRepo:  paymentsRepo,
		chargesRepo:   chargesRepo,
		roomsRepo:     roomsRepo,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *billingService) Draft(ctx context.Context, residentID string) (*BillingDraft, error) {
	resident, err := s.lookupResident(ctx, residentID)
	if err != nil {
		return nil, err
	}

	draft := &BillingDraft{
		ResidentID:   resident.ID,
		ResidentName: resident.FullName,
		BaseAmount:   decimal.Zero,
		ExtraTotal:   decimal.Zero,
	}

	room, err := s.roomsRepo.GetActiveRoomForResident(ctx, residentID)
	switch {
	case err == nil:
		draft.RoomNumber = room.RoomNumber
		draft.BaseAmount = room.MonthlyRate
	case errors.Is(err, repository.ErrNotFound):
		// 未分配房间，基础费用为 0
	default:
		return nil, fmt.Errorf("failed to load room: %w", err)
	}

	charges, err := s.chargesRepo.ListExtraCharges(ctx, residentID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load extra charges: %w", err)
	}
	draft.ExtraCharges = charges
	for _, c := range charges {
		draft.ExtraTotal = draft.ExtraTotal.Add(c.Amount)
	}
	draft.Total = draft.BaseAmount.Add(draft.ExtraTotal)
	return draft, nil
}

func (s *billingService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*domain.Payment, error) {
	if strings.TrimSpace(req.ResidentID) == "" {
		return nil, fmt.Errorf("%w: resident_id is required", ErrValidation)
	}
	if req.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}

	draft, err := s.Draft(ctx, req.ResidentID)
	if err != nil {
		return nil, err
	}

	paymentDate := req.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = s.now()
	}
	paymentDate = reminder.Date(paymentDate)

	chargeIDs := req.ChargeIDs
	amount := req.Amount
	if amount.IsZero() {
		amount = draft.Total
		if chargeIDs == nil {
			chargeIDs = draft.ChargeIDs()
		}
	}
	monthYear := strings.TrimSpace(req.MonthYear)
	if monthYear == "" {
		monthYear = reminder.MonthYearLabel(paymentDate)
	}

	payment := &domain.Payment{
		ResidentID:    req.ResidentID,
		PaymentDate:   paymentDate,
		Amount:        amount.Round(2),
		MonthYear:     monthYear,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		Notes:         strings.TrimSpace(req.Notes),
	}
	if err := s.paymentsRepo.CreatePayment(ctx, payment, chargeIDs); err != nil {
		if errors.Is(err, repository.ErrChargeUnavailable) {
			return nil, fmt.Errorf("%w: extra charge already billed or not found", ErrValidation)
		}
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.logger.Info("Payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("resident_id", payment.ResidentID),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.Int("charge_count", len(chargeIDs)),
	)
	return payment, nil
}

func (s *billingService) Receipt(ctx context.Context, paymentID string) (*Receipt, error) {
	payment, err := s.paymentsRepo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	resident, err := s.residentsRepo.GetResident(ctx, payment.ResidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load resident: %w", err)
	}
	charges, err := s.chargesRepo.ListChargesForPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load extra charges: %w", err)
	}
	return BuildReceipt(payment, resident, charges)
}

func (s *billingService) AddExtraCharge(ctx context.Context, req AddExtraChargeRequest) (*domain.ExtraCharge, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if _, err := s.lookupResident(ctx, req.ResidentID); err != nil {
		return nil, err
	}

	chargeDate := req.ChargeDate
	if chargeDate.IsZero() {
		chargeDate = s.now()
	}
	charge := &domain.ExtraCharge{
		ResidentID:  req.ResidentID,
		Description: description,
		Amount:      req.Amount.Round(2),
		ChargeDate:  reminder.Date(chargeDate),
	}
	if err := s.chargesRepo.CreateExtraCharge(ctx, charge); err != nil {
		return nil, fmt.Errorf("failed to add extra charge: %w", err)
	}
	return charge, nil
}

func (s *billingService) ListExtraCharges(ctx context.Context, residentID string, unbilledOnly bool) ([]*domain.ExtraCharge, error) {
	return s.chargesRepo.ListExtraCharges(ctx, residentID, unbilledOnly)
}

func (s *billingService) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	return s.roomsRepo.ListRooms(ctx)
}

func (s *billingService) lookupResident(ctx context.Context, residentID string) (*domain.Resident, error) {
	if strings.TrimSpace(residentID) == "" {
		return nil, fmt.Errorf("%w: resident_id is required", ErrValidation)
	}
	resident, err := s.residentsRepo.GetResident(ctx, residentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: resident not found", ErrValidation)
		}
		return nil, fmt.Errorf("failed to load resident: %w", err)
	}
	return resident, nil
}
