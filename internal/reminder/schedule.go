// Package reminder 提醒引擎的日期计算（纯函数，"今天" 一律由调用方传入）
package reminder

import (
	"fmt"
	"math"
	"time"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"
)

// DefaultBirthdayGraceDays 生日提醒过期宽限天数（吸收客户端与存储之间的时区偏差）
const DefaultBirthdayGraceDays = 2

// BirthdayWindow 生日提醒的前瞻窗口
type BirthdayWindow struct {
	Name          string
	LookaheadDays int
}

// 两个调用点使用不同窗口：定时批处理 30 天，手动触发 60 天
var (
	ScheduledBirthdayWindow = BirthdayWindow{Name: "scheduled", LookaheadDays: 30}
	OnDemandBirthdayWindow  = BirthdayWindow{Name: "on_demand", LookaheadDays: 60}
)

// Contains 0 < daysUntil <= LookaheadDays（生日当天不生成）
func (w BirthdayWindow) Contains(daysUntil int) bool {
	return daysUntil > 0 && daysUntil <= w.LookaheadDays
}

// Date 截断为 UTC 零点的日历日期
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween from 到 to 的整天数（to 在前时为负）
func DaysBetween(from, to time.Time) int {
	return int(math.Round(Date(to).Sub(Date(from)).Hours() / 24))
}

// NextBirthday 下一个生日：今年的月/日，若严格早于今天则顺延到明年
// 2 月 29 日出生在非闰年按 3 月 1 日计
func NextBirthday(dob, today time.Time) time.Time {
	today = Date(today)
	next := time.Date(today.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)
	if next.Before(today) {
		next = time.Date(today.Year()+1, dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)
	}
	return next
}

// Age 在 birthday 那天满的岁数
func Age(dob, birthday time.Time) int {
	return birthday.Year() - dob.Year()
}

// DaysIn 某年某月的天数
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// PaymentReminderDay min(anchorDay, 当月天数)，例如 31 号在 30 天的月份落到 30 号
func PaymentReminderDay(anchorDay, year int, month time.Month) int {
	if n := DaysIn(year, month); anchorDay > n {
		return n
	}
	return anchorDay
}

// PaymentDueDate 当前账期的缴费提醒日期（锚定首次缴费的日）
func PaymentDueDate(firstPayment, today time.Time) time.Time {
	today = Date(today)
	day := PaymentReminderDay(firstPayment.Day(), today.Year(), today.Month())
	return time.Date(today.Year(), today.Month(), day, 0, 0, 0, 0, time.UTC)
}

// PaymentDueToday 今天是否为该住户的缴费提醒日
func PaymentDueToday(firstPayment, today time.Time) bool {
	return Date(today).Equal(PaymentDueDate(firstPayment, today))
}

// BirthdayExpired today > due + graceDays
func BirthdayExpired(due, today time.Time, graceDays int) bool {
	return Date(due).Before(ExpiryCutoff(today, graceDays))
}

// ExpiryCutoff due_date 早于该日期的生日提醒已过期（today - graceDays）
func ExpiryCutoff(today time.Time, graceDays int) time.Time {
	return Date(today).AddDate(0, 0, -graceDays)
}

// YearRange [1 月 1 日, 次年 1 月 1 日)
func YearRange(d time.Time) (time.Time, time.Time) {
	start := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// MonthRange [当月 1 日, 次月 1 日)
func MonthRange(d time.Time) (time.Time, time.Time) {
	start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// MonthYearLabel 账期标签，如 "March 2025"
func MonthYearLabel(d time.Time) string {
	return d.Format("January 2006")
}

// NewBirthdayReminder 构造待插入的生日提醒
func NewBirthdayReminder(r *domain.Resident, birthday time.Time) *domain.Reminder {
	residentID := r.ID
	return &domain.Reminder{
		Title:        fmt.Sprintf("%s's Birthday", r.FullName),
		Description:  fmt.Sprintf("%s will turn %d years old", r.FullName, Age(*r.DateOfBirth, birthday)),
		ReminderType: domain.ReminderTypeBirthday,
		DueDate:      Date(birthday),
		Status:       domain.ReminderStatusPending,
		ResidentID:   &residentID,
	}
}

// NewPaymentReminder 构造待插入的缴费提醒
func NewPaymentReminder(r *domain.Resident, due time.Time) *domain.Reminder {
	residentID := r.ID
	return &domain.Reminder{
		Title:        fmt.Sprintf("Payment Due - %s", r.FullName),
		Description:  fmt.Sprintf("Monthly payment for %s is due for %s", r.FullName, MonthYearLabel(due)),
		ReminderType: domain.ReminderTypePayment,
		DueDate:      Date(due),
		Status:       domain.ReminderStatusPending,
		ResidentID:   &residentID,
	}
}
