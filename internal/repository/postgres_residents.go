package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"
)

// PostgresResidentsRepository 住户 Repository 实现
type PostgresResidentsRepository struct {
	db *sql.DB
}

// NewPostgresResidentsRepository 创建住户 Repository
func NewPostgresResidentsRepository(db *sql.DB) *PostgresResidentsRepository {
	return &PostgresResidentsRepository{db: db}
}

var _ ResidentsRepository = (*PostgresResidentsRepository)(nil)

// ListActiveResidents 所有在住住户
func (r *PostgresResidentsRepository) ListActiveResidents(ctx context.Context) ([]*domain.Resident, error) {
	query := `
		SELECT id::text, full_name, date_of_birth, status, created_at
		FROM residents
		WHERE status = 'active'
		ORDER BY full_name ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list residents: %w", err)
	}
	defer rows.Close()

	var residents []*domain.Resident
	for rows.Next() {
		res, err := scanResident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resident: %w", err)
		}
		residents = append(residents, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate residents: %w", err)
	}
	return residents, nil
}

// GetResident 按 ID 获取住户
func (r *PostgresResidentsRepository) GetResident(ctx context.Context, residentID string) (*domain.Resident, error) {
	if residentID == "" {
		return nil, ErrNotFound
	}
	query := `
		SELECT id::text, full_name, date_of_birth, status, created_at
		FROM residents
		WHERE id = $1
	`
	res, err := scanResident(r.db.QueryRowContext(ctx, query, residentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get resident: %w", err)
	}
	return res, nil
}

func scanResident(row rowScanner) (*domain.Resident, error) {
	var res domain.Resident
	var dob sql.NullTime
	if err := row.Scan(&res.ID, &res.FullName, &dob, &res.Status, &res.CreatedAt); err != nil {
		return nil, err
	}
	if dob.Valid {
		d := dob.Time
		res.DateOfBirth = &d
	}
	return &res, nil
}
