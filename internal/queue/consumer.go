package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"TripPlanner/internal/model"
	"TripPlanner/pkg/errors"
	"TripPlanner/pkg/logger"
	"TripPlanner/storage/mq"
)

// Deduper 消息幂等标记
type Deduper interface {
	TryMarkProcessing(ctx context.Context, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, messageID string) error
	Unmark(ctx context.Context, messageID string) error
}

// SaveCounter 累加源行程的被保存次数
type SaveCounter interface {
	IncrementSaveCount(ctx context.Context, planID string) error
}

// Handlers 行程事件处理器
type Handlers struct {
	plans SaveCounter
	dedup Deduper
}

func NewHandlers(plans SaveCounter, dedup Deduper) *Handlers {
	return &Handlers{plans: plans, dedup: dedup}
}

// HandleCopySaved 累加源行程 save_count，同一消息只处理一次
func (h *Handlers) HandleCopySaved(ctx context.Context, body []byte) error {
	var msg model.PlanCopySavedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("malformed copy saved message: %v", err)}
	}

	if skip := h.claim(ctx, msg.MessageID); skip != nil {
		return skip
	}

	if err := h.plans.IncrementSaveCount(ctx, msg.SourcePlanID); err != nil {
		if uerr := h.dedup.Unmark(ctx, msg.MessageID); uerr != nil {
			logger.Logger.Warn("Failed to unmark message", zap.String("message_id", msg.MessageID), zap.Error(uerr))
		}
		return fmt.Errorf("failed to increment save count: %w", err)
	}

	logger.Logger.Info("Save count incremented",
		zap.String("message_id", msg.MessageID),
		zap.String("source_plan_id", msg.SourcePlanID),
		zap.String("viewer_id", msg.ViewerID),
	)

	h.done(ctx, msg.MessageID)
	return nil
}

// HandleInvited 记录邀请通知，邮件投递不在本服务内
func (h *Handlers) HandleInvited(ctx context.Context, body []byte) error {
	var msg model.PlanInvitedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("malformed invited message: %v", err)}
	}

	if skip := h.claim(ctx, msg.MessageID); skip != nil {
		return skip
	}

	for _, email := range msg.Emails {
		logger.Logger.Info("Plan invitation",
			zap.String("plan_id", msg.PlanID),
			zap.String("owner_id", msg.OwnerID),
			zap.String("destination", msg.Destination),
			zap.String("email", email),
		)
	}

	h.done(ctx, msg.MessageID)
	return nil
}

// claim 标记消息处理中；Redis 异常时继续处理，可能重复
func (h *Handlers) claim(ctx context.Context, messageID string) error {
	if messageID == "" {
		return nil
	}
	ok, err := h.dedup.TryMarkProcessing(ctx, messageID)
	if err != nil {
		logger.Logger.Warn("Failed to check message processed status",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		return nil
	}
	if !ok {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("message %s already processed", messageID)}
	}
	return nil
}

func (h *Handlers) done(ctx context.Context, messageID string) {
	if messageID == "" {
		return
	}
	if err := h.dedup.MarkProcessed(ctx, messageID); err != nil {
		logger.Logger.Warn("Failed to mark message processed",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}

// StartAllConsumers 启动所有消费者，阻塞到 ctx 取消
func StartAllConsumers(ctx context.Context, h *Handlers) {
	consumers := []mq.ConsumeOptions{
		{Queue: mq.QueueCopySaved, ConsumerTag: "worker.copy_saved", PrefetchCount: 10, Handler: h.HandleCopySaved},
		{Queue: mq.QueueInvited, ConsumerTag: "worker.invited", PrefetchCount: 10, Handler: h.HandleInvited},
	}

	var wg sync.WaitGroup
	for _, opts := range consumers {
		wg.Add(1)
		go func(opts mq.ConsumeOptions) {
			defer wg.Done()

			logger.Logger.Info("Starting consumer", zap.String("queue", opts.Queue))
			if err := mq.Consume(ctx, opts); err != nil {
				logger.Logger.Error("Consumer exited with error",
					zap.String("queue", opts.Queue),
					zap.Error(err),
				)
			}
		}(opts)
	}

	wg.Wait()
	logger.Logger.Info("All consumers stopped")
}
