package repository

import (
	"context"
	"time"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"
)

// PaymentsRepository 缴费 Repository 接口
type PaymentsRepository interface {
	// EarliestPaymentDates resident_id -> 最早 payment_date
	EarliestPaymentDates(ctx context.Context) (map[string]time.Time, error)

	// GetPayment 获取缴费记录
	GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error)

	// CreatePayment 插入缴费并在同一事务内把 chargeIDs 关联到该缴费
	// 任一额外费用已被计入其他缴费时整体失败
	CreatePayment(ctx context.Context, payment *domain.Payment, chargeIDs []string) error
}

// ExtraChargesRepository 额外费用 Repository 接口
type ExtraChargesRepository interface {
	CreateExtraCharge(ctx context.Context, charge *domain.ExtraCharge) error

	// ListExtraCharges 住户的额外费用；unbilledOnly 时只返回未计入缴费的
	ListExtraCharges(ctx context.Context, residentID string, unbilledOnly bool) ([]*domain.ExtraCharge, error)

	// ListChargesForPayment 某笔缴费关联的额外费用
	ListChargesForPayment(ctx context.Context, paymentID string) ([]*domain.ExtraCharge, error)
}
