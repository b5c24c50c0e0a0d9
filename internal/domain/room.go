package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Room 房间（对应 rooms 表）
type Room struct {
	ID          string          `db:"id"`
	RoomNumber  string          `db:"room_number"`
	RoomType    string          `db:"room_type"`
	Capacity    int             `db:"capacity"`
	MonthlyRate decimal.Decimal `db:"monthly_rate"` // 默认月费，缴费金额的基础部分
	Occupancy   int             `db:"-"`            // 当前有效入住数（由查询计算）
}

// Available 剩余床位
func (r *Room) Available() int {
	if n := r.Capacity - r.Occupancy; n > 0 {
		return n
	}
	return 0
}

// RoomAssignment 入住分配（对应 room_assignments 表），EndDate 为空表示当前有效
type RoomAssignment struct {
	ID         string     `db:"id"`
	ResidentID string     `db:"resident_id"`
	RoomID     string     `db:"room_id"`
	StartDate  time.Time  `db:"start_date"`
	EndDate    *time.Time `db:"end_date"`
}
