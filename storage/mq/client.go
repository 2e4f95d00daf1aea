package mq

import (
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"TripPlanner/config"
	"TripPlanner/pkg/logger"
	pkgmq "TripPlanner/pkg/mq"
)

const (
	// ExchangePlanEvents 计划事件交换机
	ExchangePlanEvents = "plan.events"

	RoutingKeyCopySaved = "plan.copy_saved"
	RoutingKeyInvited   = "plan.invited"

	QueueCopySaved = "plan.copy_saved"
	QueueInvited   = "plan.invited"
)

var (
	conn     *amqp.Connection
	connMu   sync.RWMutex
	tracer   *pkgmq.Tracer
	initOnce sync.Once
	initErr  error
)

// bindings 队列与路由键的绑定关系
var bindings = map[string]string{
	QueueCopySaved: RoutingKeyCopySaved,
	QueueInvited:   RoutingKeyInvited,
}

func Init() error {
	initOnce.Do(func() {
		c, err := amqp.Dial(config.Cfg.GetRabbitMQURL())
		if err != nil {
			initErr = fmt.Errorf("failed to connect RabbitMQ: %w", err)
			return
		}

		if err := declareTopology(c); err != nil {
			_ = c.Close()
			initErr = err
			return
		}

		connMu.Lock()
		conn = c
		connMu.Unlock()
		tracer = pkgmq.NewTracer(config.Cfg.ServiceName)

		logger.Logger.Info("RabbitMQ connected",
			zap.String("component", "rabbitmq"),
			zap.String("exchange", ExchangePlanEvents),
		)
	})
	return initErr
}

// declareTopology 声明交换机、队列及绑定，重复声明是幂等的
func declareTopology(c *amqp.Connection) error {
	ch, err := c.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(ExchangePlanEvents, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ExchangePlanEvents, err)
	}

	for queue, key := range bindings {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
		if err := ch.QueueBind(queue, key, ExchangePlanEvents, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", queue, err)
		}
	}
	return nil
}

// Connection 返回当前连接，未初始化时为 nil
func Connection() *amqp.Connection {
	connMu.RLock()
	defer connMu.RUnlock()
	return conn
}

func getTracer() *pkgmq.Tracer {
	if tracer == nil {
		return pkgmq.NewTracer(config.Cfg.ServiceName)
	}
	return tracer
}
