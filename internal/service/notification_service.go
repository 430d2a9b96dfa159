package service

import (
	"context"
	"encoding/json"
	"study_companion_backend/internal/model"
	"study_companion_backend/pkg/logger"
	"study_companion_backend/pkg/monitoring"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Notifier 引擎事件的下游消费者，投递失败不影响引擎状态
type Notifier interface {
	Name() string
	Notify(ctx context.Context, note model.Notification) error
}

// NotificationDispatcher 在学习者锁释放后逐个投递通知
type NotificationDispatcher struct {
	sinks   []Notifier
	timeout time.Duration
}

func NewNotificationDispatcher(timeout time.Duration, sinks ...Notifier) *NotificationDispatcher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &NotificationDispatcher{sinks: sinks, timeout: timeout}
}

func (d *NotificationDispatcher) Dispatch(ctx context.Context, notes ...model.Notification) {
	if d == nil || len(notes) == 0 {
		return
	}
	// 请求结束不应中断投递
	base := context.WithoutCancel(ctx)
	for _, note := range notes {
		for _, sink := range d.sinks {
			d.deliver(base, sink, note)
		}
	}
}

func (d *NotificationDispatcher) deliver(ctx context.Context, sink Notifier, note model.Notification) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := sink.Notify(ctx, note); err != nil {
		monitoring.SinkFailures.WithLabelValues(sink.Name()).Inc()
		logger.Log.Warn("Notification delivery failed",
			zap.String("sink", sink.Name()),
			zap.String("kind", string(note.Kind)),
			zap.Uint("learnerID", note.UserID),
			zap.Error(err),
		)
	}
}

// RedisNotifier 通过 Redis PUBLISH 推送事件
type RedisNotifier struct {
	Client  *redis.Client
	Channel string
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{Client: client, Channel: channel}
}

func (n *RedisNotifier) Name() string { return "redis" }

func (n *RedisNotifier) Notify(ctx context.Context, note model.Notification) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return errors.Wrap(err, "marshal notification")
	}
	return errors.Wrap(n.Client.Publish(ctx, n.Channel, payload).Err(), "publish notification")
}

// ActivityLogSink 把事件写入学习活动日志
type ActivityLogSink struct {
	Logs ActivityLogStore
}

func NewActivityLogSink(logs ActivityLogStore) *ActivityLogSink {
	return &ActivityLogSink{Logs: logs}
}

func (s *ActivityLogSink) Name() string { return "activity_log" }

func (s *ActivityLogSink) Notify(ctx context.Context, note model.Notification) error {
	payload, err := json.Marshal(note.Data)
	if err != nil {
		return errors.Wrap(err, "marshal activity payload")
	}
	return s.Logs.Create(ctx, &model.ActivityLog{
		UserID:    note.UserID,
		Kind:      string(note.Kind),
		Payload:   datatypes.JSON(payload),
		CreatedAt: note.OccurredAt,
	})
}

// LogNotifier 仅记录日志，未启用 Redis 时使用
type LogNotifier struct{}

func (LogNotifier) Name() string { return "log" }

func (LogNotifier) Notify(ctx context.Context, note model.Notification) error {
	logger.Log.Info("Learner event",
		zap.String("kind", string(note.Kind)),
		zap.Uint("learnerID", note.UserID),
		zap.Any("data", note.Data),
	)
	return nil
}
