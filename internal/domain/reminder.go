package domain

import "time"

// ReminderType 提醒类型
type ReminderType string

const (
	ReminderTypeBirthday ReminderType = "birthday"
	ReminderTypePayment  ReminderType = "payment"
	ReminderTypeDocument ReminderType = "document"
	ReminderTypeGeneral  ReminderType = "general"
)

// Valid 是否为已知类型
func (t ReminderType) Valid() bool {
	switch t {
	case ReminderTypeBirthday, ReminderTypePayment, ReminderTypeDocument, ReminderTypeGeneral:
		return true
	}
	return false
}

// 提醒状态：只允许 pending -> completed
const (
	ReminderStatusPending   = "pending"
	ReminderStatusCompleted = "completed"
)

// Reminder 提醒（对应 reminders 表）
// birthday/payment 由提醒引擎生成，document/general 由用户创建
type Reminder struct {
	ID           string       `db:"id" json:"id"`
	Title        string       `db:"title" json:"title"`
	Description  string       `db:"description" json:"description"`
	ReminderType ReminderType `db:"reminder_type" json:"reminder_type"`
	DueDate      time.Time    `db:"due_date" json:"-"`              // DATE
	Status       string       `db:"status" json:"status"`           // 'pending' | 'completed'
	ResidentID   *string      `db:"resident_id" json:"resident_id"` // general 提醒可为空
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}

// DueDateString due_date 的 YYYY-MM-DD 形式
func (r *Reminder) DueDateString() string {
	return r.DueDate.Format(DateLayout)
}

// IsPending 是否待处理
func (r *Reminder) IsPending() bool {
	return r.Status == ReminderStatusPending
}

// DateLayout 日期列统一格式
const DateLayout = "2006-01-02"
