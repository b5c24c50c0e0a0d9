// Package notify 提醒生成后的通知发布（Redis Streams / MQTT）
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	rediscommon "github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/common/redis"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"

	"github.com/go-redis/redis/v8"
)

// ReminderEvent 提醒创建事件
type ReminderEvent struct {
	Event        string `json:"event"` // "reminder.created"
	ReminderID   string `json:"reminder_id"`
	ReminderType string `json:"reminder_type"`
	ResidentID   string `json:"resident_id,omitempty"`
	Title        string `json:"title"`
	DueDate      string `json:"due_date"`
	Source       string `json:"source"` // "scheduled" | "on_demand" | "user"
	CreatedAt    int64  `json:"created_at"`
}

// EventReminderCreated 事件名
const EventReminderCreated = "reminder.created"

// NewReminderEvent 由提醒行构造事件
func NewReminderEvent(r *domain.Reminder, source string) ReminderEvent {
	ev := ReminderEvent{
		Event:        EventReminderCreated,
		ReminderID:   r.ID,
		ReminderType: string(r.ReminderType),
		Title:        r.Title,
		DueDate:      r.DueDateString(),
		Source:       source,
		CreatedAt:    r.CreatedAt.Unix(),
	}
	if r.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().Unix()
	}
	if r.ResidentID != nil {
		ev.ResidentID = *r.ResidentID
	}
	return ev
}

// Notifier 通知发布接口
type Notifier interface {
	NotifyReminderCreated(ctx context.Context, ev ReminderEvent) error
}

// Nop 不发布任何通知
type Nop struct{}

func (Nop) NotifyReminderCreated(context.Context, ReminderEvent) error { return nil }

// RedisStreamNotifier 写入 Redis Streams
type RedisStreamNotifier struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamNotifier 创建 Streams 通知
func NewRedisStreamNotifier(client *redis.Client, stream string, maxLen int64) *RedisStreamNotifier {
	return &RedisStreamNotifier{client: client, stream: stream, maxLen: maxLen}
}

func (n *RedisStreamNotifier) NotifyReminderCreated(ctx context.Context, ev ReminderEvent) error {
	if _, err := rediscommon.PublishJSONToStream(ctx, n.client, n.stream, n.maxLen, ev); err != nil {
		return fmt.Errorf("publish to stream %s: %w", n.stream, err)
	}
	return nil
}

// MQTTPublisher common/mqtt.Client 满足该接口
type MQTTPublisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTNotifier 发布到 <topic>/<reminder_type>
type MQTTNotifier struct {
	publisher MQTTPublisher
	topic     string
	qos       byte
}

// NewMQTTNotifier 创建 MQTT 通知
func NewMQTTNotifier(publisher MQTTPublisher, topic string, qos byte) *MQTTNotifier {
	return &MQTTNotifier{publisher: publisher, topic: topic, qos: qos}
}

func (n *MQTTNotifier) NotifyReminderCreated(_ context.Context, ev ReminderEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.publisher.Publish(n.topic+"/"+ev.ReminderType, n.qos, false, payload)
}

// Multi 依次调用所有 Notifier，合并错误
type Multi []Notifier

func (m Multi) NotifyReminderCreated(ctx context.Context, ev ReminderEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyReminderCreated(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
