// Package scheduler 每日提醒批处理的进程内调度
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // 容器镜像可能没有时区数据库

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/config"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/reminder"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/service"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/store"

	"go.uber.org/zap"
)

// 触发来源
const (
	TriggerStartup = "startup"
	TriggerTicker  = "ticker"
	TriggerCLI     = "cli"
)

const (
	lockKeyPrefix = "haven:reminders:scheduled:"
	lastRunKey    = "haven:reminders:last_run"
	lockTTL       = 48 * time.Hour
)

// ErrAlreadyRan 当天已执行过（其他副本或 CLI 持有锁）
var ErrAlreadyRan = errors.New("scheduled generation already ran today")

// RunSummary 最近一次执行的摘要（保存在 KV）
type RunSummary struct {
	Date             string    `json:"date"`
	Trigger          string    `json:"trigger"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	RemindersCreated int       `json:"reminders_created"`
	BirthdayCreated  int       `json:"birthday_created"`
	PaymentCreated   int       `json:"payment_created"`
	Skipped          int       `json:"skipped"`
	Failed           int       `json:"failed"`
	Swept            int64     `json:"swept"`
	Error            string    `json:"error,omitempty"`
}

// Daily 每天在 RunHour（Timezone 时区）之后执行一次定时批处理
// 启动时也会尝试一次；同一天只执行一次由 KV 锁保证
type Daily struct {
	reminders service.ReminderService
	kv        store.KV
	loc       *time.Location
	runHour   int
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewDaily 创建调度器
func NewDaily(reminders service.ReminderService, kv store.KV, cfg config.ReminderConfig, logger *zap.Logger) (*Daily, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder timezone %q: %w", cfg.Timezone, err)
	}
	return &Daily{
		reminders: reminders,
		kv:        kv,
		loc:       loc,
		runHour:   cfg.RunHour,
		interval:  time.Minute,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Today 调度时区下的今天
func (d *Daily) Today() time.Time {
	return reminder.Date(d.now().In(d.loc))
}

// Start 阻塞运行直到 ctx 取消
func (d *Daily) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("Starting reminder scheduler",
		zap.Int("run_hour", d.runHour),
		zap.String("timezone", d.loc.String()),
	)

	d.tick(ctx, TriggerStartup)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Reminder scheduler stopped")
			return nil
		case <-ticker.C:
			if d.now().In(d.loc).Hour() < d.runHour {
				continue
			}
			d.tick(ctx, TriggerTicker)
		}
	}
}

func (d *Daily) tick(ctx context.Context, trigger string) {
	if _, err := d.RunOnce(ctx, trigger, false); err != nil && !errors.Is(err, ErrAlreadyRan) {
		d.logger.Error("Scheduled reminder generation failed",
			zap.String("trigger", trigger),
			zap.Error(err),
		)
	}
}

// RunOnce 执行一次定时批处理 + 过期清理
// force 为 true 时忽略当天锁（CLI 手工补跑）
func (d *Daily) RunOnce(ctx context.Context, trigger string, force bool) (*RunSummary, error) {
	today := d.Today()
	date := today.Format(domain.DateLayout)
	lockKey := lockKeyPrefix + date

	if !force {
		ok, err := d.kv.AcquireOnce(ctx, lockKey, lockTTL)
		if err != nil {
			// KV 不可用时仍然执行，重复执行由存储层唯一约束兜底
			d.logger.Warn("Failed to acquire daily lock, running anyway", zap.Error(err))
		} else if !ok {
			return nil, ErrAlreadyRan
		}
	}

	summary := &RunSummary{Date: date, Trigger: trigger, StartedAt: d.now().UTC()}
	result, err := d.reminders.RunScheduledGeneration(ctx, today)
	if err != nil {
		summary.Error = err.Error()
		summary.FinishedAt = d.now().UTC()
		d.saveSummary(ctx, summary)
		// 释放锁，下一次 tick 重试
		if delErr := d.kv.Del(ctx, lockKey); delErr != nil {
			d.logger.Warn("Failed to release daily lock", zap.Error(delErr))
		}
		return summary, err
	}
	summary.RemindersCreated = result.RemindersCreated
	summary.BirthdayCreated = result.BirthdayCreated
	summary.PaymentCreated = result.PaymentCreated
	summary.Skipped = result.Skipped
	summary.Failed = result.Failed

	swept, err := d.reminders.SweepExpiredBirthdayReminders(ctx, today)
	if err != nil {
		d.logger.Warn("Sweep after scheduled generation failed", zap.Error(err))
	}
	summary.Swept = swept
	summary.FinishedAt = d.now().UTC()
	d.saveSummary(ctx, summary)

	d.logger.Info("Daily reminder run finished",
		zap.String("date", date),
		zap.String("trigger", trigger),
		zap.Int("reminders_created", summary.RemindersCreated),
		zap.Int64("swept", summary.Swept),
	)
	return summary, nil
}

func (d *Daily) saveSummary(ctx context.Context, summary *RunSummary) {
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := d.kv.Set(ctx, lastRunKey, string(data), 0); err != nil {
		d.logger.Warn("Failed to save last run summary", zap.Error(err))
	}
}

// LastRun 最近一次执行摘要；从未执行返回 store.ErrMiss
func (d *Daily) LastRun(ctx context.Context) (*RunSummary, error) {
	return LoadLastRun(ctx, d.kv)
}

// LoadLastRun 从 KV 读取最近一次执行摘要
func LoadLastRun(ctx context.Context, kv store.KV) (*RunSummary, error) {
	raw, err := kv.Get(ctx, lastRunKey)
	if err != nil {
		return nil, err
	}
	var summary RunSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return nil, fmt.Errorf("failed to decode last run summary: %w", err)
	}
	return &summary, nil
}
