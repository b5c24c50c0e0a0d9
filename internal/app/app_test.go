package app

import (
	"context"
	"testing"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/config"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/notify"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/repository"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReminderOptions(t *testing.T) {
	opts := ReminderOptions(config.ReminderConfig{})
	assert.Equal(t, 30, opts.ScheduledWindow.LookaheadDays)
	assert.Equal(t, 60, opts.OnDemandWindow.LookaheadDays)
	assert.Equal(t, 2, opts.BirthdayGraceDays)

	opts = ReminderOptions(config.ReminderConfig{ScheduledLookaheadDays: 14, OnDemandLookaheadDays: 90, BirthdayGraceDays: 5})
	assert.Equal(t, 14, opts.ScheduledWindow.LookaheadDays)
	assert.Equal(t, 90, opts.OnDemandWindow.LookaheadDays)
	assert.Equal(t, 5, opts.BirthdayGraceDays)
}

func testConfig(redisAddr string) *config.Config {
	cfg := config.Load()
	cfg.DBEnabled = false
	cfg.MQTT.Enabled = false
	cfg.Redis.Addr = redisAddr
	cfg.Reminder.Timezone = "UTC"
	return cfg
}

func TestNewFallsBackToMemory(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	a, err := New(context.Background(), testConfig(addr), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Redis)
	assert.IsType(t, &repository.MemoryStore{}, a.Repos.Reminders)
	assert.IsType(t, &store.MemoryKV{}, a.KV)
	assert.Equal(t, notify.Nop{}, a.Notifier)
	assert.NotNil(t, a.Scheduler)
	assert.False(t, a.SchedulerAllowed())
}

func TestNewFailsWhenDatabaseUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(mr.Addr())
	cfg.DBEnabled = true
	cfg.Database.Host = "127.0.0.1"
	cfg.Database.Port = 1

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, a)
	assert.Contains(t, err.Error(), "database unavailable")

	// 没有任何批处理占用当天的锁
	assert.Empty(t, mr.Keys())
}

func TestNewUsesRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	a, err := New(context.Background(), testConfig(mr.Addr()), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Redis)
	assert.IsType(t, &store.RedisKV{}, a.KV)
	assert.IsType(t, notify.Multi{}, a.Notifier)
}

func TestNewRejectsBadTimezone(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(mr.Addr())
	cfg.Reminder.Timezone = "Mars/Olympus"

	_, err := New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}
