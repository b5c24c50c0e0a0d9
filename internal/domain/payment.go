package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment 缴费记录（对应 payments 表）
// 创建后不可修改；同一住户最早的 payment_date 决定每月缴费提醒日
type Payment struct {
	ID            string          `db:"id"`
	ResidentID    string          `db:"resident_id"`
	PaymentDate   time.Time       `db:"payment_date"` // DATE
	Amount        decimal.Decimal `db:"amount"`       // NUMERIC(12,2)
	MonthYear     string          `db:"month_year"`   // 展示用标签，如 "March 2025"
	PaymentMethod string          `db:"payment_method"`
	Notes         string          `db:"notes"`
	CreatedAt     time.Time       `db:"created_at"`
}

// ExtraCharge 额外费用（对应 resident_extra_charges 表）
// PaymentID 为空表示尚未计入任何缴费
type ExtraCharge struct {
	ID          string          `db:"id"`
	ResidentID  string          `db:"resident_id"`
	Description string          `db:"description"`
	Amount      decimal.Decimal `db:"amount"`
	ChargeDate  time.Time       `db:"charge_date"`
	PaymentID   *string         `db:"payment_id"`
	CreatedAt   time.Time       `db:"created_at"`
}

// Billed 是否已计入缴费
func (c *ExtraCharge) Billed() bool {
	return c.PaymentID != nil && *c.PaymentID != ""
}
