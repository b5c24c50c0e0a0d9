package repository

import (
	"context"
	"time"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"
)

// ReminderFilters 提醒查询过滤器
type ReminderFilters struct {
	Status       string              // 'pending' / 'completed'
	ReminderType domain.ReminderType // birthday / payment / document / general
	ResidentID   string
}

// RemindersRepository 提醒 Repository 接口
type RemindersRepository interface {
	// ExistsPending 住户在 [from, to) 内是否已有该类型的待处理提醒
	ExistsPending(ctx context.Context, residentID string, reminderType domain.ReminderType, from, to time.Time) (bool, error)

	// CreateReminder 插入提醒；ID 为空时自动生成
	// 违反唯一约束返回 ErrReminderExists
	CreateReminder(ctx context.Context, reminder *domain.Reminder) error

	// GetReminder 获取提醒
	GetReminder(ctx context.Context, reminderID string) (*domain.Reminder, error)

	// ListReminders 按 due_date 升序
	ListReminders(ctx context.Context, filters *ReminderFilters) ([]*domain.Reminder, error)

	// SetReminderStatus 更新状态，不存在返回 ErrNotFound
	SetReminderStatus(ctx context.Context, reminderID, status string) error

	// DeleteReminder 删除提醒，不存在返回 ErrNotFound
	DeleteReminder(ctx context.Context, reminderID string) error

	// DeleteRemindersDueBefore 删除指定类型、状态且 due_date < before 的提醒，返回删除条数
	DeleteRemindersDueBefore(ctx context.Context, reminderType domain.ReminderType, status string, before time.Time) (int64, error)
}
