package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Notifier announces stored task batches.
type Notifier interface {
	NotifyTasksGenerated(ctx context.Context, event TasksGeneratedEvent) error
}

// PublishChannel is the part of *amqp.Channel the notifier uses.
type PublishChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type rabbitMQNotifier struct {
	channel  PublishChannel
	exchange string
	logger   *zap.Logger
}

// NewRabbitMQNotifier declares the durable topic exchange and returns a
// Notifier publishing to it. The channel is owned by the caller.
func NewRabbitMQNotifier(ch PublishChannel, exchange string, logger *zap.Logger) (Notifier, error) {
	if exchange == "" {
		return nil, fmt.Errorf("tasks exchange name is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchange, err)
	}
	logger = logger.Named("Notifier")
	logger.Info("Tasks exchange declared", zap.String("exchange", exchange))
	return &rabbitMQNotifier{channel: ch, exchange: exchange, logger: logger}, nil
}

func (n *rabbitMQNotifier) NotifyTasksGenerated(ctx context.Context, event TasksGeneratedEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event for batch %s: %w", event.BatchID, err)
	}

	err = n.channel.PublishWithContext(ctx,
		n.exchange,
		RoutingKeyTasksGenerated,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    event.CreatedAt,
			AppId:        appID,
			MessageId:    event.EventID,
		},
	)
	if err != nil {
		n.logger.Error("Failed to publish tasks generated event",
			zap.String("batch_id", event.BatchID),
			zap.String("user_id", event.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to publish event for batch %s: %w", event.BatchID, err)
	}

	n.logger.Info("Tasks generated event published",
		zap.String("event_id", event.EventID),
		zap.String("batch_id", event.BatchID),
		zap.Int("task_count", event.TaskCount))
	return nil
}
