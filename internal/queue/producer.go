package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"TripPlanner/internal/model"
	"TripPlanner/pkg/logger"
	"TripPlanner/storage/mq"
)

type publishFunc func(ctx context.Context, routingKey, messageID string, body interface{}) error

// Publisher 发布行程事件
type Publisher struct {
	publish publishFunc
	now     func() time.Time
}

func NewPublisher() *Publisher {
	return &Publisher{publish: mq.PublishMessage, now: time.Now}
}

// PublishCopySaved 发布行程副本已保存事件
func (p *Publisher) PublishCopySaved(ctx context.Context, msg model.PlanCopySavedMessage) error {
	if msg.MessageID == "" {
		msg.MessageID = "copy_saved_" + uuid.NewString()
	}
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = p.now().UTC()
	}

	if err := p.publish(ctx, mq.RoutingKeyCopySaved, msg.MessageID, msg); err != nil {
		return err
	}

	logger.Logger.Info("Published plan copy saved event",
		zap.String("message_id", msg.MessageID),
		zap.String("source_plan_id", msg.SourcePlanID),
		zap.String("copy_plan_id", msg.CopyPlanID),
	)
	return nil
}

// PublishInvited 发布行程邀请事件
func (p *Publisher) PublishInvited(ctx context.Context, msg model.PlanInvitedMessage) error {
	if msg.MessageID == "" {
		msg.MessageID = "invited_" + uuid.NewString()
	}
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = p.now().UTC()
	}

	if err := p.publish(ctx, mq.RoutingKeyInvited, msg.MessageID, msg); err != nil {
		return err
	}

	logger.Logger.Info("Published plan invited event",
		zap.String("message_id", msg.MessageID),
		zap.String("plan_id", msg.PlanID),
		zap.Int("email_count", len(msg.Emails)),
	)
	return nil
}
