package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound 目标行不存在
	ErrNotFound = errors.New("not found")
	// ErrReminderExists 违反提醒唯一约束（同一住户同一年/月已有待处理提醒）
	ErrReminderExists = errors.New("reminder already exists")
)

// pgUniqueViolation unique_violation
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

// ErrChargeUnavailable 额外费用不存在、不属于该住户或已计入其他缴费
var ErrChargeUnavailable = errors.New("extra charge unavailable")
