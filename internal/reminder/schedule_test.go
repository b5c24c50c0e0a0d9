package reminder

import (
	"testing"
	"time"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNextBirthday(t *testing.T) {
	tests := []struct {
		name  string
		dob   string
		today string
		want  string
	}{
		{"later this year", "1940-03-10", "2025-02-15", "2025-03-10"},
		{"today counts as not passed", "1940-02-15", "2025-02-15", "2025-02-15"},
		{"already passed rolls over", "1940-01-05", "2025-02-15", "2026-01-05"},
		{"leap day in non-leap year", "1944-02-29", "2025-02-01", "2025-03-01"},
		{"leap day in leap year", "1944-02-29", "2028-02-01", "2028-02-29"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, day(tt.want), NextBirthday(day(tt.dob), day(tt.today)))
		})
	}
}

func TestBirthdayWindows(t *testing.T) {
	assert.False(t, ScheduledBirthdayWindow.Contains(0))
	assert.True(t, ScheduledBirthdayWindow.Contains(1))
	assert.True(t, ScheduledBirthdayWindow.Contains(30))
	assert.False(t, ScheduledBirthdayWindow.Contains(31))

	assert.False(t, OnDemandBirthdayWindow.Contains(0))
	assert.True(t, OnDemandBirthdayWindow.Contains(60))
	assert.False(t, OnDemandBirthdayWindow.Contains(61))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 23, DaysBetween(day("2025-02-15"), day("2025-03-10")))
	assert.Equal(t, -3, DaysBetween(day("2025-02-15"), day("2025-02-12")))
	// 非零点时间按日历日计算
	from := time.Date(2025, 2, 15, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysBetween(from, day("2025-02-16")))
}

func TestAge(t *testing.T) {
	assert.Equal(t, 85, Age(day("1940-03-10"), day("2025-03-10")))
	assert.Equal(t, 86, Age(day("1940-01-05"), NextBirthday(day("1940-01-05"), day("2025-02-15"))))
}

func TestPaymentReminderDay_Clamping(t *testing.T) {
	assert.Equal(t, 30, PaymentReminderDay(31, 2025, time.April))
	assert.Equal(t, 28, PaymentReminderDay(31, 2025, time.February))
	assert.Equal(t, 29, PaymentReminderDay(31, 2024, time.February))
	assert.Equal(t, 31, PaymentReminderDay(31, 2025, time.March))
	assert.Equal(t, 5, PaymentReminderDay(5, 2025, time.February))
}

func TestPaymentDueToday(t *testing.T) {
	first := day("2024-01-31")
	assert.True(t, PaymentDueToday(first, day("2025-04-30")))
	assert.False(t, PaymentDueToday(first, day("2025-04-29")))
	assert.True(t, PaymentDueToday(first, day("2025-02-28")))
	assert.True(t, PaymentDueToday(first, day("2024-02-29")))
	assert.Equal(t, day("2025-06-30"), PaymentDueDate(first, day("2025-06-10")))
}

func TestBirthdayExpired(t *testing.T) {
	today := day("2025-03-20")
	assert.True(t, BirthdayExpired(day("2025-03-17"), today, DefaultBirthdayGraceDays))
	assert.False(t, BirthdayExpired(day("2025-03-18"), today, DefaultBirthdayGraceDays))
	assert.False(t, BirthdayExpired(day("2025-03-19"), today, DefaultBirthdayGraceDays))
	assert.False(t, BirthdayExpired(day("2025-03-25"), today, DefaultBirthdayGraceDays))
	assert.Equal(t, day("2025-03-18"), ExpiryCutoff(today, DefaultBirthdayGraceDays))
}

func TestRanges(t *testing.T) {
	start, end := YearRange(day("2025-03-10"))
	assert.Equal(t, day("2025-01-01"), start)
	assert.Equal(t, day("2026-01-01"), end)

	start, end = MonthRange(day("2025-12-10"))
	assert.Equal(t, day("2025-12-01"), start)
	assert.Equal(t, day("2026-01-01"), end)
}

func TestNewBirthdayReminder(t *testing.T) {
	dob := day("1940-03-10")
	r := &domain.Resident{ID: "res-1", FullName: "Asha Rao", DateOfBirth: &dob, Status: domain.ResidentStatusActive}

	rem := NewBirthdayReminder(r, day("2025-03-10"))
	assert.Equal(t, "Asha Rao's Birthday", rem.Title)
	assert.Equal(t, "Asha Rao will turn 85 years old", rem.Description)
	assert.Equal(t, domain.ReminderTypeBirthday, rem.ReminderType)
	assert.Equal(t, "2025-03-10", rem.DueDateString())
	assert.Equal(t, domain.ReminderStatusPending, rem.Status)
	assert.Equal(t, "res-1", *rem.ResidentID)
}

func TestNewPaymentReminder(t *testing.T) {
	r := &domain.Resident{ID: "res-2", FullName: "Ravi Menon", Status: domain.ResidentStatusActive}

	rem := NewPaymentReminder(r, day("2025-04-30"))
	assert.Equal(t, "Payment Due - Ravi Menon", rem.Title)
	assert.Contains(t, rem.Description, "April 2025")
	assert.Equal(t, domain.ReminderTypePayment, rem.ReminderType)
	assert.Equal(t, "2025-04-30", rem.DueDateString())
}
