package domain

import "time"

// 住户状态
const (
	ResidentStatusActive   = "active"
	ResidentStatusInactive = "inactive"
)

// Resident 住户领域模型（对应 residents 表）
type Resident struct {
	ID          string     `db:"id"`            // UUID, PRIMARY KEY
	FullName    string     `db:"full_name"`     // TEXT, NOT NULL
	DateOfBirth *time.Time `db:"date_of_birth"` // DATE, nullable（为空时不生成生日提醒）
	Status      string     `db:"status"`        // 'active' | 'inactive'
	CreatedAt   time.Time  `db:"created_at"`
}

// IsActive 是否在住
func (r *Resident) IsActive() bool {
	return r.Status == ResidentStatusActive
}
