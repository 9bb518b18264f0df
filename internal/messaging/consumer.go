package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"innerbloom-server/shared/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	dlxName        = "task_generation_requests_dlx"
	dlqRoutingKey  = "dlq"
	consumerTag    = "taskgen-worker"
	stopTimeout    = 5 * time.Second
	releaseTimeout = 5 * time.Second
)

// RequestHandler processes one generation request. A returned error rejects
// the message to the dead-letter queue.
type RequestHandler func(ctx context.Context, req GenerationRequest) error

// ConsumeChannel is the part of *amqp.Channel the consumer uses.
type ConsumeChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
}

// RequestConsumer reads GenerationRequest messages one at a time.
type RequestConsumer struct {
	channel ConsumeChannel
	queue   string
	handler RequestHandler
	guard   RequestGuard
	logger  *zap.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// NewRequestConsumer creates a consumer for queue. The channel is owned by the caller.
func NewRequestConsumer(ch ConsumeChannel, queue string, handler RequestHandler, logger *zap.Logger) *RequestConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestConsumer{
		channel: ch,
		queue:   queue,
		handler: handler,
		logger:  logger.Named("RequestConsumer"),
		done:    make(chan struct{}),
	}
}

// WithGuard makes the consumer skip requests whose id was already claimed.
func (c *RequestConsumer) WithGuard(g RequestGuard) *RequestConsumer {
	c.guard = g
	return c
}

// declare sets up the request queue with its dead-letter exchange and queue.
func (c *RequestConsumer) declare() error {
	if err := c.channel.ExchangeDeclare(dlxName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLX '%s': %w", dlxName, err)
	}
	dlq := c.queue + "_dlq"
	if _, err := c.channel.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ '%s': %w", dlq, err)
	}
	if err := c.channel.QueueBind(dlq, dlqRoutingKey, dlxName, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ '%s': %w", dlq, err)
	}
	args := amqp.Table{
		"x-dead-letter-exchange":    dlxName,
		"x-dead-letter-routing-key": dlqRoutingKey,
	}
	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare queue '%s': %w", c.queue, err)
	}
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	return nil
}

// Start declares the topology and processes deliveries in a goroutine until
// ctx is cancelled, Stop is called or the delivery channel closes.
func (c *RequestConsumer) Start(ctx context.Context) error {
	if err := c.declare(); err != nil {
		c.logger.Error("Failed to declare request topology", zap.Error(err))
		return err
	}
	msgs, err := c.channel.Consume(c.queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		c.logger.Error("Failed to register consumer", zap.String("queue", c.queue), zap.Error(err))
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Request consumer started", zap.String("queue", c.queue))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Panic recovered in request consumer goroutine", zap.Any("panic", r))
			}
			close(c.done)
		}()

		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Info("Delivery channel closed")
					return
				}
				c.handleDelivery(ctx, msg)
			case <-ctx.Done():
				c.logger.Info("Context cancelled, stopping request consumer")
				return
			}
		}
	}()
	return nil
}

// Done is closed when the consumer goroutine exits.
func (c *RequestConsumer) Done() <-chan struct{} {
	return c.done
}

func (c *RequestConsumer) handleDelivery(ctx context.Context, msg amqp.Delivery) {
	var req GenerationRequest
	if err := utils.DecodeStrict(msg.Body, &req); err != nil || req.UserID == "" {
		if err == nil {
			err = fmt.Errorf("user_id is required")
		}
		c.logger.Error("Rejecting malformed request",
			zap.String("message_id", msg.MessageId),
			zap.Error(err))
		c.nack(msg)
		return
	}

	log := c.logger.With(zap.String("request_id", req.RequestID), zap.String("user_id", req.UserID))
	if c.guard != nil && req.RequestID != "" {
		claimed, err := c.guard.Claim(ctx, req.RequestID)
		switch {
		case err != nil:
			log.Warn("Request claim failed, processing anyway", zap.Error(err))
		case !claimed:
			log.Info("Duplicate request, skipping")
			if err := msg.Ack(false); err != nil {
				log.Error("Failed to ack message", zap.Error(err))
			}
			return
		default:
			// A failed or panicking handler gives the claim back so a replay can run.
			succeeded := false
			defer func() {
				if !succeeded {
					c.release(ctx, req.RequestID, log)
				}
			}()
			succeeded = c.handle(ctx, msg, req, log) == nil
			return
		}
	}
	_ = c.handle(ctx, msg, req, log)
}

// handle runs the handler and acknowledges msg according to its outcome.
func (c *RequestConsumer) handle(ctx context.Context, msg amqp.Delivery, req GenerationRequest, log *zap.Logger) error {
	if err := c.handler(ctx, req); err != nil {
		log.Error("Request failed, rejecting (no requeue)", zap.Error(err))
		c.nack(msg)
		return err
	}
	if err := msg.Ack(false); err != nil {
		log.Error("Failed to ack message", zap.Error(err))
		return nil
	}
	log.Info("Request processed")
	return nil
}

func (c *RequestConsumer) release(ctx context.Context, requestID string, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := c.guard.Release(ctx, requestID); err != nil {
		log.Warn("Failed to release request claim", zap.Error(err))
	}
}

func (c *RequestConsumer) nack(msg amqp.Delivery) {
	if err := msg.Nack(false, false); err != nil {
		c.logger.Error("Failed to nack message", zap.Error(err))
	}
}

// Stop cancels the subscription and waits for the goroutine to finish.
func (c *RequestConsumer) Stop() {
	c.stopOnce.Do(func() {
		c.logger.Info("Stopping request consumer")
		if err := c.channel.Cancel(consumerTag, false); err != nil {
			c.logger.Warn("Error cancelling consumer", zap.Error(err))
		}
		select {
		case <-c.done:
			c.logger.Info("Request consumer stopped")
		case <-time.After(stopTimeout):
			c.logger.Warn("Timeout waiting for request consumer to stop")
		}
	})
}
