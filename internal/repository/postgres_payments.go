package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresPaymentsRepository 缴费 + 额外费用 Repository 实现
type PostgresPaymentsRepository struct {
	db *sql.DB
}

// NewPostgresPaymentsRepository 创建缴费 Repository
func NewPostgresPaymentsRepository(db *sql.DB) *PostgresPaymentsRepository {
	return &PostgresPaymentsRepository{db: db}
}

var (
	_ PaymentsRepository     = (*PostgresPaymentsRepository)(nil)
	_ ExtraChargesRepository = (*PostgresPaymentsRepository)(nil)
)

// EarliestPaymentDates resident_id -> 最早 payment_date
func (r *PostgresPaymentsRepository) EarliestPaymentDates(ctx context.Context) (map[string]time.Time, error) {
	query := `
		SELECT resident_id::text, MIN(payment_date)
		FROM payments
		GROUP BY resident_id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment dates: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var residentID string
		var first time.Time
		if err := rows.Scan(&residentID, &first); err != nil {
			return nil, fmt.Errorf("failed to scan payment date: %w", err)
		}
		out[residentID] = first
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment dates: %w", err)
	}
	return out, nil
}

// GetPayment 获取缴费记录
func (r *PostgresPaymentsRepository) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrNotFound
	}
	query := `
		SELECT id::text, resident_id::text, payment_date, amount, month_year, payment_method, notes, created_at
		FROM payments
		WHERE id = $1
	`
	var p domain.Payment
	var method, notes sql.NullString
	err := r.db.QueryRowContext(ctx, query, paymentID).Scan(
		&p.ID,
		&p.ResidentID,
		&p.PaymentDate,
		&p.Amount,
		&p.MonthYear,
		&method,
		&notes,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	p.PaymentMethod = method.String
	p.Notes = notes.String
	return &p, nil
}

// CreatePayment 插入缴费并关联额外费用（单事务）
func (r *PostgresPaymentsRepository) CreatePayment(ctx context.Context, payment *domain.Payment, chargeIDs []string) error {
	if payment.ResidentID == "" {
		return fmt.Errorf("resident_id is required")
	}
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO payments (id, resident_id, payment_date, amount, month_year, payment_method, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`,
		payment.ID,
		payment.ResidentID,
		payment.PaymentDate.Format(domain.DateLayout),
		payment.Amount,
		payment.MonthYear,
		payment.PaymentMethod,
		payment.Notes,
	).Scan(&payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	if len(chargeIDs) > 0 {
		res, err := tx.ExecContext(ctx, `
			UPDATE resident_extra_charges
			SET payment_id = $1
			WHERE id = ANY($2) AND resident_id = $3 AND payment_id IS NULL
		`, payment.ID, pq.Array(chargeIDs), payment.ResidentID)
		if err != nil {
			return fmt.Errorf("failed to link extra charges: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n != int64(len(chargeIDs)) {
			return ErrChargeUnavailable
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment: %w", err)
	}
	return nil
}

// CreateExtraCharge 新增额外费用
func (r *PostgresPaymentsRepository) CreateExtraCharge(ctx context.Context, charge *domain.ExtraCharge) error {
	if charge.ResidentID == "" {
		return fmt.Errorf("resident_id is required")
	}
	if charge.ID == "" {
		charge.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO resident_extra_charges (id, resident_id, description, amount, charge_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`,
		charge.ID,
		charge.ResidentID,
		charge.Description,
		charge.Amount,
		charge.ChargeDate.Format(domain.DateLayout),
	).Scan(&charge.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create extra charge: %w", err)
	}
	return nil
}

// ListExtraCharges 住户的额外费用
func (r *PostgresPaymentsRepository) ListExtraCharges(ctx context.Context, residentID string, unbilledOnly bool) ([]*domain.ExtraCharge, error) {
	query := `
		SELECT id::text, resident_id::text, description, amount, charge_date, payment_id::text, created_at
		FROM resident_extra_charges
		WHERE resident_id = $1`
	if unbilledOnly {
		query += ` AND payment_id IS NULL`
	}
	query += `
		ORDER BY charge_date ASC, created_at ASC`
	return r.queryCharges(ctx, query, residentID)
}

// ListChargesForPayment 某笔缴费关联的额外费用
func (r *PostgresPaymentsRepository) ListChargesForPayment(ctx context.Context, paymentID string) ([]*domain.ExtraCharge, error) {
	query := `
		SELECT id::text, resident_id::text, description, amount, charge_date, payment_id::text, created_at
		FROM resident_extra_charges
		WHERE payment_id = $1
		ORDER BY charge_date ASC, created_at ASC`
	return r.queryCharges(ctx, query, paymentID)
}

func (r *PostgresPaymentsRepository) queryCharges(ctx context.Context, query string, arg string) ([]*domain.ExtraCharge, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list extra charges: %w", err)
	}
	defer rows.Close()

	charges := []*domain.ExtraCharge{}
	for rows.Next() {
		var c domain.ExtraCharge
		var paymentID sql.NullString
		if err := rows.Scan(&c.ID, &c.ResidentID, &c.Description, &c.Amount, &c.ChargeDate, &paymentID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan extra charge: %w", err)
		}
		if paymentID.Valid {
			id := paymentID.String
			c.PaymentID = &id
		}
		charges = append(charges, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate extra charges: %w", err)
	}
	return charges, nil
}
