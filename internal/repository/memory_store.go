package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"

	"github.com/google/uuid"
)

// MemoryStore DB 未启用时的内存实现（本地联调与单元测试）
// 提醒唯一性与 Postgres 部分唯一索引保持一致：
//   - birthday + pending：(resident_id, 年)
//   - payment + pending：(resident_id, 年, 月)
type MemoryStore struct {
	mu sync.RWMutex

	residents   map[string]*domain.Resident
	payments    map[string]*domain.Payment
	charges     map[string]*domain.ExtraCharge
	reminders   map[string]*domain.Reminder
	rooms       map[string]*domain.Room
	assignments []*domain.RoomAssignment
	roles       map[string]string
	documents   map[string]*domain.Document
	driveConfig *domain.DriveConfig

	now func() time.Time
}

// NewMemoryStore 创建空的内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		residents: map[string]*domain.Resident{},
		payments:  map[string]*domain.Payment{},
		charges:   map[string]*domain.ExtraCharge{},
		reminders: map[string]*domain.Reminder{},
		rooms:     map[string]*domain.Room{},
		roles:     map[string]string{},
		documents: map[string]*domain.Document{},
		now:       time.Now,
	}
}

var (
	_ ResidentsRepository    = (*MemoryStore)(nil)
	_ PaymentsRepository     = (*MemoryStore)(nil)
	_ ExtraChargesRepository = (*MemoryStore)(nil)
	_ RemindersRepository    = (*MemoryStore)(nil)
	_ RoomsRepository        = (*MemoryStore)(nil)
	_ UserRolesRepository    = (*MemoryStore)(nil)
	_ DocumentsRepository    = (*MemoryStore)(nil)
	_ DriveConfigRepository  = (*MemoryStore)(nil)
)

// ---- seed helpers ----

// AddResident 写入住户（ID 为空时生成）
func (s *MemoryStore) AddResident(r *domain.Resident) *domain.Resident {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = domain.ResidentStatusActive
	}
	cp := *r
	s.residents[r.ID] = &cp
	return r
}

// AddRoom 写入房间
func (s *MemoryStore) AddRoom(room *domain.Room) *domain.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	cp := *room
	s.rooms[room.ID] = &cp
	return room
}

// AssignRoom 新增有效入住分配
func (s *MemoryStore) AssignRoom(residentID, roomID string, start time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = append(s.assignments, &domain.RoomAssignment{
		ID:         uuid.NewString(),
		ResidentID: residentID,
		RoomID:     roomID,
		StartDate:  start,
	})
}

// SetRole 设置管理端角色
func (s *MemoryStore) SetRole(userID, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[userID] = role
}

// SetDriveConfig 设置 Drive OAuth 配置
func (s *MemoryStore) SetDriveConfig(cfg *domain.DriveConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cfg
	s.driveConfig = &cp
}

// ---- residents ----

func (s *MemoryStore) ListActiveResidents(_ context.Context) ([]*domain.Resident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Resident{}
	for _, r := range s.residents {
		if r.IsActive() {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetResident(_ context.Context, residentID string) (*domain.Resident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.residents[residentID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// ---- payments / extra charges ----

func (s *MemoryStore) EarliestPaymentDates(_ context.Context) (map[string]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]time.Time{}
	for _, p := range s.payments {
		if first, ok := out[p.ResidentID]; !ok || p.PaymentDate.Before(first) {
			out[p.ResidentID] = p.PaymentDate
		}
	}
	return out, nil
}

func (s *MemoryStore) GetPayment(_ context.Context, paymentID string) (*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) CreatePayment(_ context.Context, payment *domain.Payment, chargeIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if payment.ResidentID == "" {
		return fmt.Errorf("resident_id is required")
	}
	for _, id := range chargeIDs {
		c, ok := s.charges[id]
		if !ok || c.ResidentID != payment.ResidentID || c.Billed() {
			return ErrChargeUnavailable
		}
	}
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	payment.CreatedAt = s.now()
	cp := *payment
	s.payments[payment.ID] = &cp
	for _, id := range chargeIDs {
		pid := payment.ID
		s.charges[id].PaymentID = &pid
	}
	return nil
}

func (s *MemoryStore) CreateExtraCharge(_ context.Context, charge *domain.ExtraCharge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if charge.ResidentID == "" {
		return fmt.Errorf("resident_id is required")
	}
	if charge.ID == "" {
		charge.ID = uuid.NewString()
	}
	charge.CreatedAt = s.now()
	cp := *charge
	s.charges[charge.ID] = &cp
	return nil
}

func (s *MemoryStore) ListExtraCharges(_ context.Context, residentID string, unbilledOnly bool) ([]*domain.ExtraCharge, error) {
	return s.filterCharges(func(c *domain.ExtraCharge) bool {
		return c.ResidentID == residentID && (!unbilledOnly || !c.Billed())
	}), nil
}

func (s *MemoryStore) ListChargesForPayment(_ context.Context, paymentID string) ([]*domain.ExtraCharge, error) {
	return s.filterCharges(func(c *domain.ExtraCharge) bool {
		return c.PaymentID != nil && *c.PaymentID == paymentID
	}), nil
}

func (s *MemoryStore) filterCharges(keep func(*domain.ExtraCharge) bool) []*domain.ExtraCharge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.ExtraCharge{}
	for _, c := range s.charges {
		if keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ChargeDate.Equal(out[j].ChargeDate) {
			return out[i].ChargeDate.Before(out[j].ChargeDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ---- reminders ----

func (s *MemoryStore) ExistsPending(_ context.Context, residentID string, reminderType domain.ReminderType, from, to time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reminders {
		if r.ResidentID == nil || *r.ResidentID != residentID {
			continue
		}
		if r.ReminderType != reminderType || !r.IsPending() {
			continue
		}
		if !r.DueDate.Before(from) && r.DueDate.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CreateReminder(_ context.Context, reminder *domain.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reminder.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !reminder.ReminderType.Valid() {
		return fmt.Errorf("invalid reminder_type: %s", reminder.ReminderType)
	}
	if reminder.Status == "" {
		reminder.Status = domain.ReminderStatusPending
	}
	if key, ok := uniqueKey(reminder); ok {
		for _, existing := range s.reminders {
			if k, ok := uniqueKey(existing); ok && k == key {
				return ErrReminderExists
			}
		}
	}
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	reminder.CreatedAt = s.now()
	cp := *reminder
	s.reminders[reminder.ID] = &cp
	return nil
}

// uniqueKey 与部分唯一索引一致的冲突键；不受约束的提醒返回 false
func uniqueKey(r *domain.Reminder) (string, bool) {
	if !r.IsPending() || r.ResidentID == nil {
		return "", false
	}
	switch r.ReminderType {
	case domain.ReminderTypeBirthday:
		return fmt.Sprintf("birthday:%s:%d", *r.ResidentID, r.DueDate.Year()), true
	case domain.ReminderTypePayment:
		return fmt.Sprintf("payment:%s:%d-%02d", *r.ResidentID, r.DueDate.Year(), r.DueDate.Month()), true
	}
	return "", false
}

func (s *MemoryStore) GetReminder(_ context.Context, reminderID string) (*domain.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reminders[reminderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) ListReminders(_ context.Context, filters *ReminderFilters) ([]*domain.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Reminder{}
	for _, r := range s.reminders {
		if filters != nil {
			if filters.Status != "" && r.Status != filters.Status {
				continue
			}
			if filters.ReminderType != "" && r.ReminderType != filters.ReminderType {
				continue
			}
			if filters.ResidentID != "" && (r.ResidentID == nil || *r.ResidentID != filters.ResidentID) {
				continue
			}
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) SetReminderStatus(_ context.Context, reminderID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[reminderID]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	return nil
}

func (s *MemoryStore) DeleteReminder(_ context.Context, reminderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reminders[reminderID]; !ok {
		return ErrNotFound
	}
	delete(s.reminders, reminderID)
	return nil
}

func (s *MemoryStore) DeleteRemindersDueBefore(_ context.Context, reminderType domain.ReminderType, status string, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.reminders {
		if r.ReminderType == reminderType && r.Status == status && r.DueDate.Before(before) {
			delete(s.reminders, id)
			n++
		}
	}
	return n, nil
}

// ---- rooms ----

func (s *MemoryStore) ListRooms(_ context.Context) ([]*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	occupancy := map[string]int{}
	for _, a := range s.assignments {
		if a.EndDate == nil {
			occupancy[a.RoomID]++
		}
	}
	out := []*domain.Room{}
	for _, room := range s.rooms {
		cp := *room
		cp.Occupancy = occupancy[room.ID]
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomNumber < out[j].RoomNumber })
	return out, nil
}

func (s *MemoryStore) GetActiveRoomForResident(_ context.Context, residentID string) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *domain.RoomAssignment
	for _, a := range s.assignments {
		if a.ResidentID == residentID && a.EndDate == nil {
			if latest == nil || a.StartDate.After(latest.StartDate) {
				latest = a
			}
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	room, ok := s.rooms[latest.RoomID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *room
	return &cp, nil
}

// ---- user roles ----

func (s *MemoryStore) GetRole(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.roles[userID]
	if !ok {
		return "", ErrNotFound
	}
	return role, nil
}

// ---- documents / drive config ----

func (s *MemoryStore) CreateDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ResidentID == "" {
		return fmt.Errorf("resident_id is required")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.CreatedAt = s.now()
	cp := *doc
	s.documents[doc.ID] = &cp
	return nil
}

func (s *MemoryStore) ListDocuments(_ context.Context, residentID string) ([]*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Document{}
	for _, d := range s.documents {
		if d.ResidentID == residentID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetDriveConfig(_ context.Context) (*domain.DriveConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.driveConfig == nil {
		return nil, ErrNotFound
	}
	cp := *s.driveConfig
	return &cp, nil
}

func (s *MemoryStore) SaveAccessToken(_ context.Context, accessToken string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.driveConfig == nil {
		return ErrNotFound
	}
	s.driveConfig.AccessToken = accessToken
	s.driveConfig.TokenExpiry = expiry
	return nil
}
