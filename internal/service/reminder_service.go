package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/notify"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/reminder"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/repository"

	"go.uber.org/zap"
)

// ErrValidation 请求参数不合法
var ErrValidation = errors.New("validation failed")

// 事件来源
const (
	SourceScheduled = "scheduled"
	SourceOnDemand  = "on_demand"
	SourceUser      = "user"
)

// ReminderService 提醒引擎接口
// 所有依赖 "今天" 的操作都由调用方传入 today
type ReminderService interface {
	// RunScheduledGeneration 定时批处理：生日（定时窗口）+ 缴费提醒，可重复执行
	RunScheduledGeneration(ctx context.Context, today time.Time) (*GenerationResult, error)

	// RunOnDemandBirthdayGeneration 手动触发：只生成生日提醒（手动窗口）
	RunOnDemandBirthdayGeneration(ctx context.Context, today time.Time) (*GenerationResult, error)

	// SweepExpiredBirthdayReminders 删除超过宽限期的待处理生日提醒
	SweepExpiredBirthdayReminders(ctx context.Context, today time.Time) (int64, error)

	CompleteReminder(ctx context.Context, reminderID string) error
	DeleteReminder(ctx context.Context, reminderID string) error

	// CreateReminder 用户创建 document / general 提醒
	CreateReminder(ctx context.Context, req CreateReminderRequest) (*domain.Reminder, error)

	// ListReminders 先执行过期清理，再查询
	ListReminders(ctx context.Context, filters *repository.ReminderFilters, today time.Time) ([]*domain.Reminder, error)
}

// ReminderOptions 引擎参数
// 定时与手动两个生日窗口有意保持独立
type ReminderOptions struct {
	ScheduledWindow   reminder.BirthdayWindow
	OnDemandWindow    reminder.BirthdayWindow
	BirthdayGraceDays int
}

// DefaultReminderOptions 30 / 60 天窗口，2 天宽限
func DefaultReminderOptions() ReminderOptions {
	return ReminderOptions{
		ScheduledWindow:   reminder.ScheduledBirthdayWindow,
		OnDemandWindow:    reminder.OnDemandBirthdayWindow,
		BirthdayGraceDays: reminder.DefaultBirthdayGraceDays,
	}
}

// GenerationResult 一次生成的统计
type GenerationResult struct {
	RemindersCreated int `json:"remindersCreated"`
	BirthdayCreated  int `json:"birthdayCreated"`
	PaymentCreated   int `json:"paymentCreated"`
	Skipped          int `json:"skipped"` // 已存在
	Failed           int `json:"failed"`  // 单个住户处理失败（已记录日志）
}

// CreateReminderRequest 用户创建提醒请求
type CreateReminderRequest struct {
	Title        string
	Description  string
	ReminderType domain.ReminderType
	DueDate      time.Time
	ResidentID   string // 可选
}

type reminderService struct {
	residentsRepo repository.ResidentsRepository
	paymentsRepo  repository.PaymentsRepository
	remindersRepo repository.RemindersRepository
	notifier      notify.Notifier
	opts          ReminderOptions
	logger        *zap.Logger
}

// NewReminderService 创建提醒引擎；notifier 为 nil 时不发布通知
func NewReminderService(
	residentsRepo repository.ResidentsRepository,
	paymentsRepo repository.PaymentsRepository,
	remindersRepo repository.RemindersRepository,
	notifier notify.Notifier,
	opts ReminderOptions,
	logger *zap.Logger,
) ReminderService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &reminderService{
		residentsRepo: residentsRepo,
		paymentsRepo:  paymentsRepo,
		remindersRepo: remindersRepo,
		notifier:      notifier,
		opts:          opts,
		logger:        logger,
	}
}

// RunScheduledGeneration 定时批处理
func (s *reminderService) RunScheduledGeneration(ctx context.Context, today time.Time) (*GenerationResult, error) {
	today = reminder.Date(today)

	residents, err := s.residentsRepo.ListActiveResidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load residents: %w", err)
	}
	firstPayments, err := s.paymentsRepo.EarliestPaymentDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment history: %w", err)
	}

	result := &GenerationResult{}
	s.generateBirthdays(ctx, residents, today, s.opts.ScheduledWindow, SourceScheduled, result)
	s.generatePayments(ctx, residents, firstPayments, today, result)

	s.logger.Info("Scheduled reminder generation completed",
		zap.String("today", today.Format(domain.DateLayout)),
		zap.Int("resident_count", len(residents)),
		zap.Int("birthday_created", result.BirthdayCreated),
		zap.Int("payment_created", result.PaymentCreated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// RunOnDemandBirthdayGeneration 手动触发生日提醒
func (s *reminderService) RunOnDemandBirthdayGeneration(ctx context.Context, today time.Time) (*GenerationResult, error) {
	today = reminder.Date(today)

	residents, err := s.residentsRepo.ListActiveResidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load residents: %w", err)
	}

	result := &GenerationResult{}
	s.generateBirthdays(ctx, residents, today, s.opts.OnDemandWindow, SourceOnDemand, result)

	s.logger.Info("On-demand birthday generation completed",
		zap.String("today", today.Format(domain.DateLayout)),
		zap.Int("created", result.BirthdayCreated),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// generateBirthdays 单个住户出错只记录日志，继续处理后续住户
func (s *reminderService) generateBirthdays(ctx context.Context, residents []*domain.Resident, today time.Time, window reminder.BirthdayWindow, source string, result *GenerationResult) {
	for _, r := range residents {
		if !r.IsActive() || r.DateOfBirth == nil {
			continue
		}
		next := reminder.NextBirthday(*r.DateOfBirth, today)
		if !window.Contains(reminder.DaysBetween(today, next)) {
			continue
		}

		from, to := reminder.YearRange(next)
		created, err := s.ensureReminder(ctx, r, reminder.NewBirthdayReminder(r, next), from, to, source)
		switch {
		case err != nil:
			result.Failed++
			s.logger.Warn("Failed to generate birthday reminder",
				zap.String("resident_id", r.ID),
				zap.String("window", window.Name),
				zap.Error(err),
			)
		case created:
			result.BirthdayCreated++
			result.RemindersCreated++
		default:
			result.Skipped++
		}
	}
}

// generatePayments 只在住户的缴费提醒日触发
func (s *reminderService) generatePayments(ctx context.Context, residents []*domain.Resident, firstPayments map[string]time.Time, today time.Time, result *GenerationResult) {
	for _, r := range residents {
		first, ok := firstPayments[r.ID]
		if !r.IsActive() || !ok {
			continue
		}
		if !reminder.PaymentDueToday(first, today) {
			continue
		}

		from, to := reminder.MonthRange(today)
		due := reminder.PaymentDueDate(first, today)
		created, err := s.ensureReminder(ctx, r, reminder.NewPaymentReminder(r, due), from, to, SourceScheduled)
		switch {
		case err != nil:
			result.Failed++
			s.logger.Warn("Failed to generate payment reminder",
				zap.String("resident_id", r.ID),
				zap.Error(err),
			)
		case created:
			result.PaymentCreated++
			result.RemindersCreated++
		default:
			result.Skipped++
		}
	}
}

// ensureReminder 先查是否已有同期待处理提醒，再插入
// 并发时检查与插入之间存在竞争，由存储层唯一约束兜底（ErrReminderExists 视为已存在）
func (s *reminderService) ensureReminder(ctx context.Context, r *domain.Resident, rem *domain.Reminder, from, to time.Time, source string) (bool, error) {
	exists, err := s.remindersRepo.ExistsPending(ctx, r.ID, rem.ReminderType, from, to)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := s.remindersRepo.CreateReminder(ctx, rem); err != nil {
		if errors.Is(err, repository.ErrReminderExists) {
			return false, nil
		}
		return false, err
	}

	s.publish(ctx, rem, source)
	return true, nil
}

func (s *reminderService) publish(ctx context.Context, rem *domain.Reminder, source string) {
	if err := s.notifier.NotifyReminderCreated(ctx, notify.NewReminderEvent(rem, source)); err != nil {
		s.logger.Warn("Failed to publish reminder notification",
			zap.String("reminder_id", rem.ID),
			zap.Error(err),
		)
	}
}

// SweepExpiredBirthdayReminders today > due_date + grace 的待处理生日提醒被删除
// 缴费、文档、通用提醒不会自动过期
func (s *reminderService) SweepExpiredBirthdayReminders(ctx context.Context, today time.Time) (int64, error) {
	cutoff := reminder.ExpiryCutoff(today, s.opts.BirthdayGraceDays)
	n, err := s.remindersRepo.DeleteRemindersDueBefore(ctx, domain.ReminderTypeBirthday, domain.ReminderStatusPending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired birthday reminders: %w", err)
	}
	if n > 0 {
		s.logger.Info("Expired birthday reminders removed",
			zap.Int64("deleted", n),
			zap.String("cutoff", cutoff.Format(domain.DateLayout)),
		)
	}
	return n, nil
}

// CompleteReminder 无条件置为 completed
func (s *reminderService) CompleteReminder(ctx context.Context, reminderID string) error {
	if strings.TrimSpace(reminderID) == "" {
		return fmt.Errorf("%w: reminder id is required", ErrValidation)
	}
	return s.remindersRepo.SetReminderStatus(ctx, reminderID, domain.ReminderStatusCompleted)
}

// DeleteReminder 无条件删除
func (s *reminderService) DeleteReminder(ctx context.Context, reminderID string) error {
	if strings.TrimSpace(reminderID) == "" {
		return fmt.Errorf("%w: reminder id is required", ErrValidation)
	}
	return s.remindersRepo.DeleteReminder(ctx, reminderID)
}

// CreateReminder 用户创建提醒；birthday / payment 只能由引擎生成
func (s *reminderService) CreateReminder(ctx context.Context, req CreateReminderRequest) (*domain.Reminder, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if req.ReminderType != domain.ReminderTypeDocument && req.ReminderType != domain.ReminderTypeGeneral {
		return nil, fmt.Errorf("%w: reminder_type must be document or general", ErrValidation)
	}
	if req.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: due_date is required", ErrValidation)
	}

	rem := &domain.Reminder{
		Title:        title,
		Description:  strings.TrimSpace(req.Description),
		ReminderType: req.ReminderType,
		DueDate:      reminder.Date(req.DueDate),
		Status:       domain.ReminderStatusPending,
	}
	if req.ResidentID != "" {
		if _, err := s.residentsRepo.GetResident(ctx, req.ResidentID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: resident not found", ErrValidation)
			}
			return nil, err
		}
		residentID := req.ResidentID
		rem.ResidentID = &residentID
	}

	if err := s.remindersRepo.CreateReminder(ctx, rem); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}
	s.publish(ctx, rem, SourceUser)
	return rem, nil
}

// ListReminders 清理失败不影响查询
func (s *reminderService) ListReminders(ctx context.Context, filters *repository.ReminderFilters, today time.Time) ([]*domain.Reminder, error) {
	if _, err := s.SweepExpiredBirthdayReminders(ctx, today); err != nil {
		s.logger.Warn("Sweep before listing failed", zap.Error(err))
	}
	return s.remindersRepo.ListReminders(ctx, filters)
}
