package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"

	"github.com/google/uuid"
)

// PostgresRemindersRepository 提醒 Repository 实现
type PostgresRemindersRepository struct {
	db *sql.DB
}

// NewPostgresRemindersRepository 创建提醒 Repository
func NewPostgresRemindersRepository(db *sql.DB) *PostgresRemindersRepository {
	return &PostgresRemindersRepository{db: db}
}

// 确保实现了接口
var _ RemindersRepository = (*PostgresRemindersRepository)(nil)

const reminderColumns = `
			id::text,
			title,
			description,
			reminder_type,
			due_date,
			status,
			resident_id::text,
			created_at`

// ExistsPending 住户在 [from, to) 内是否已有该类型的待处理提醒
func (r *PostgresRemindersRepository) ExistsPending(ctx context.Context, residentID string, reminderType domain.ReminderType, from, to time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM reminders
			WHERE resident_id = $1
			  AND reminder_type = $2
			  AND status = 'pending'
			  AND due_date >= $3
			  AND due_date < $4
		)
	`
	var exists bool
	err := r.db.QueryRowContext(ctx, query,
		residentID,
		string(reminderType),
		from.Format(domain.DateLayout),
		to.Format(domain.DateLayout),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existing reminder: %w", err)
	}
	return exists, nil
}

// CreateReminder 插入提醒
// 部分唯一索引冲突时 ON CONFLICT DO NOTHING 不返回行，转换为 ErrReminderExists
func (r *PostgresRemindersRepository) CreateReminder(ctx context.Context, reminder *domain.Reminder) error {
	if reminder.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !reminder.ReminderType.Valid() {
		return fmt.Errorf("invalid reminder_type: %s", reminder.ReminderType)
	}
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	if reminder.Status == "" {
		reminder.Status = domain.ReminderStatusPending
	}

	var residentID sql.NullString
	if reminder.ResidentID != nil && *reminder.ResidentID != "" {
		residentID = sql.NullString{String: *reminder.ResidentID, Valid: true}
	}

	query := `
		INSERT INTO reminders (id, title, description, reminder_type, due_date, status, resident_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		reminder.ID,
		reminder.Title,
		reminder.Description,
		string(reminder.ReminderType),
		reminder.DueDate.Format(domain.DateLayout),
		reminder.Status,
		residentID,
	).Scan(&reminder.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return ErrReminderExists
		}
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

// GetReminder 获取提醒
func (r *PostgresRemindersRepository) GetReminder(ctx context.Context, reminderID string) (*domain.Reminder, error) {
	if reminderID == "" {
		return nil, ErrNotFound
	}
	query := `SELECT` + reminderColumns + `
		FROM reminders
		WHERE id = $1
	`
	rem, err := scanReminder(r.db.QueryRowContext(ctx, query, reminderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return rem, nil
}

// ListReminders 按 due_date 升序列出提醒
func (r *PostgresRemindersRepository) ListReminders(ctx context.Context, filters *ReminderFilters) ([]*domain.Reminder, error) {
	var where []string
	var args []any
	argN := 1

	if filters != nil {
		if filters.Status != "" {
			where = append(where, fmt.Sprintf("status = $%d", argN))
			args = append(args, filters.Status)
			argN++
		}
		if filters.ReminderType != "" {
			where = append(where, fmt.Sprintf("reminder_type = $%d", argN))
			args = append(args, string(filters.ReminderType))
			argN++
		}
		if filters.ResidentID != "" {
			where = append(where, fmt.Sprintf("resident_id = $%d", argN))
			args = append(args, filters.ResidentID)
			argN++
		}
	}

	query := `SELECT` + reminderColumns + `
		FROM reminders`
	if len(where) > 0 {
		query += `
		WHERE ` + strings.Join(where, " AND ")
	}
	query += `
		ORDER BY due_date ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	reminders := []*domain.Reminder{}
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminders: %w", err)
	}
	return reminders, nil
}

// SetReminderStatus 更新提醒状态
func (r *PostgresRemindersRepository) SetReminderStatus(ctx context.Context, reminderID, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reminders SET status = $2 WHERE id = $1`, reminderID, status)
	if err != nil {
		return fmt.Errorf("failed to update reminder status: %w", err)
	}
	return requireAffected(res)
}

// DeleteReminder 删除提醒
func (r *PostgresRemindersRepository) DeleteReminder(ctx context.Context, reminderID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = $1`, reminderID)
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	return requireAffected(res)
}

// DeleteRemindersDueBefore 批量删除过期提醒
func (r *PostgresRemindersRepository) DeleteRemindersDueBefore(ctx context.Context, reminderType domain.ReminderType, status string, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE reminder_type = $1 AND status = $2 AND due_date < $3`,
		string(reminderType), status, before.Format(domain.DateLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reminders: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*domain.Reminder, error) {
	var rem domain.Reminder
	var reminderType string
	var description, residentID sql.NullString
	if err := row.Scan(
		&rem.ID,
		&rem.Title,
		&description,
		&reminderType,
		&rem.DueDate,
		&rem.Status,
		&residentID,
		&rem.CreatedAt,
	); err != nil {
		return nil, err
	}
	rem.ReminderType = domain.ReminderType(reminderType)
	if description.Valid {
		rem.Description = description.String
	}
	if residentID.Valid {
		id := residentID.String
		rem.ResidentID = &id
	}
	return &rem, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
