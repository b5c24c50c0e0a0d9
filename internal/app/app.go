// Package app 组装 haven-data / haven-ctl 共用的依赖
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/common/database"
	commonmqtt "github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/common/mqtt"
	commonredis "github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/common/redis"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/config"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/notify"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/repository"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/scheduler"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/service"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Repositories 所有存储接口
type Repositories struct {
	Residents   repository.ResidentsRepository
	Payments    repository.PaymentsRepository
	Charges     repository.ExtraChargesRepository
	Rooms       repository.RoomsRepository
	Reminders   repository.RemindersRepository
	Documents   repository.DocumentsRepository
	DriveConfig repository.DriveConfigRepository
	UserRoles   repository.UserRolesRepository
}

// PostgresRepositories Postgres 实现
func PostgresRepositories(db *sql.DB) *Repositories {
	payments := repository.NewPostgresPaymentsRepository(db)
	documents := repository.NewPostgresDocumentsRepository(db)
	return &Repositories{
		Residents:   repository.NewPostgresResidentsRepository(db),
		Payments:    payments,
		Charges:     payments,
		Rooms:       repository.NewPostgresRoomsRepository(db),
		Reminders:   repository.NewPostgresRemindersRepository(db),
		Documents:   documents,
		DriveConfig: documents,
		UserRoles:   documents,
	}
}

// MemoryRepositories 内存实现（DB 未启用或不可用时）
func MemoryRepositories(s *repository.MemoryStore) *Repositories {
	return &Repositories{
		Residents:   s,
		Payments:    s,
		Charges:     s,
		Rooms:       s,
		Reminders:   s,
		Documents:   s,
		DriveConfig: s,
		UserRoles:   s,
	}
}

// App 进程级依赖
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *sql.DB
	Redis    *redis.Client
	MQTT     *commonmqtt.Client
	KV       store.KV
	Repos    *Repositories
	Notifier notify.Notifier

	Reminders service.ReminderService
	Billing   service.BillingService
	Documents service.DocumentService
	Scheduler *scheduler.Daily
}

// New 按配置连接外部依赖；DB 启用但不可达时返回错误，Redis / MQTT 不可用时降级并记录告警
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	// DB 启用但不可达属于系统级错误；内存库只用于 DB_ENABLED=false 的本地开发
	if cfg.DBEnabled {
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("database unavailable: %w", err)
		}
		a.DB = db
		a.Repos = PostgresRepositories(db)
		logger.Info("DB enabled for haven-data")
	} else {
		logger.Warn("DB disabled, using in-memory store; the reminder scheduler will not run")
		a.Repos = MemoryRepositories(repository.NewMemoryStore())
	}

	var notifiers notify.Multi
	client := commonredis.NewRedisClient(&cfg.Redis)
	if err := commonredis.Ping(ctx, client); err == nil {
		a.Redis = client
		a.KV = store.NewRedisKV(client)
		if cfg.Reminder.NotifyStream != "" {
			notifiers = append(notifiers, notify.NewRedisStreamNotifier(client, cfg.Reminder.NotifyStream, cfg.Reminder.NotifyStreamMaxLen))
		}
	} else {
		logger.Warn("Redis unavailable, using in-process run lock", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = commonredis.Close(client)
		a.KV = store.NewMemoryKV()
	}

	if cfg.MQTT.Enabled {
		if c, err := commonmqtt.NewClient(&cfg.MQTT.MQTTConfig, logger); err == nil {
			a.MQTT = c
			notifiers = append(notifiers, notify.NewMQTTNotifier(c, cfg.Reminder.NotifyTopic, c.QoS()))
		} else {
			logger.Warn("MQTT enabled but connection failed, reminder events not published to MQTT", zap.Error(err))
		}
	}
	if len(notifiers) > 0 {
		a.Notifier = notifiers
	} else {
		a.Notifier = notify.Nop{}
	}

	opts := ReminderOptions(cfg.Reminder)
	a.Reminders = service.NewReminderService(a.Repos.Residents, a.Repos.Payments, a.Repos.Reminders, a.Notifier, opts, logger)
	a.Billing = service.NewBillingService(a.Repos.Residents, a.Repos.Payments, a.Repos.Charges, a.Repos.Rooms, logger)
	drive := service.NewDriveClient(cfg.Drive, a.Repos.DriveConfig, logger)
	a.Documents = service.NewDocumentService(a.Repos.Residents, a.Repos.Documents, drive, logger)

	daily, err := scheduler.NewDaily(a.Reminders, a.KV, cfg.Reminder, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Scheduler = daily

	return a, nil
}

// SchedulerAllowed 只有连接真实数据库时才运行定时批处理
// 内存库上的批处理会占用当天的共享锁
func (a *App) SchedulerAllowed() bool {
	return a.DB != nil
}

// ReminderOptions 配置 -> 提醒引擎参数；非正数使用默认值
func ReminderOptions(cfg config.ReminderConfig) service.ReminderOptions {
	opts := service.DefaultReminderOptions()
	if cfg.ScheduledLookaheadDays > 0 {
		opts.ScheduledWindow.LookaheadDays = cfg.ScheduledLookaheadDays
	}
	if cfg.OnDemandLookaheadDays > 0 {
		opts.OnDemandWindow.LookaheadDays = cfg.OnDemandLookaheadDays
	}
	if cfg.BirthdayGraceDays > 0 {
		opts.BirthdayGraceDays = cfg.BirthdayGraceDays
	}
	return opts
}

// Close 释放连接（允许重复调用）
func (a *App) Close() {
	if a.MQTT != nil {
		a.MQTT.Disconnect()
		a.MQTT = nil
	}
	if a.Redis != nil {
		_ = commonredis.Close(a.Redis)
		a.Redis = nil
	}
	if a.DB != nil {
		_ = database.Close(a.DB)
		a.DB = nil
	}
}
