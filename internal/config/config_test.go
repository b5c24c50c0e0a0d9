package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 30, cfg.Reminder.ScheduledLookaheadDays)
	assert.Equal(t, 60, cfg.Reminder.OnDemandLookaheadDays)
	assert.Equal(t, 2, cfg.Reminder.BirthdayGraceDays)
	assert.Equal(t, 6, cfg.Reminder.RunHour)
	assert.Equal(t, "UTC", cfg.Reminder.Timezone)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "https://www.googleapis.com/drive/v3", cfg.Drive.APIBaseURL)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REMINDER_SCHEDULED_LOOKAHEAD_DAYS", "14")
	t.Setenv("REMINDER_ONDEMAND_LOOKAHEAD_DAYS", "90")
	t.Setenv("REMINDER_RUN_HOUR", "25")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("DRIVE_API_BASE_URL", "http://localhost:1234/drive/")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 14, cfg.Reminder.ScheduledLookaheadDays)
	assert.Equal(t, 90, cfg.Reminder.OnDemandLookaheadDays)
	assert.Equal(t, 6, cfg.Reminder.RunHour, "out of range hour falls back to default")
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "http://localhost:1234/drive", cfg.Drive.APIBaseURL)
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 5, parseInt(" 5 ", 1))
	assert.Equal(t, 1, parseInt("x", 1))
}
