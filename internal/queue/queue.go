package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/config"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

const (
	DefaultQueueName = "shortforge_runs"
	ExchangeName     = "shortforge"
)

// ErrPermanent marks a handler failure that must not be retried
var ErrPermanent = errors.New("permanent failure")

// Handler processes one run request. Returning an error wrapping ErrPermanent
// dead-letters the message; any other error schedules a retry.
type Handler func(ctx context.Context, req models.RunRequest) error

// publisher is the subset of *amqp.Channel used for publishing
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Queue provides message queue operations
type Queue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	pub     publisher
	name    string
	logger  *logging.Logger
}

// URL builds the AMQP connection URL
func URL(cfg config.QueueConfig) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Vhost)
}

// New creates a new queue client and declares the run topology
func New(cfg config.QueueConfig, logger *logging.Logger) (*Queue, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	name := cfg.Name
	if name == "" {
		name = DefaultQueueName
	}

	conn, err := amqp.Dial(URL(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &Queue{
		conn:    conn,
		channel: channel,
		pub:     channel,
		name:    name,
		logger:  logger.WithField("queue", name),
	}

	if err := q.declare(); err != nil {
		q.Close()
		return nil, err
	}
	if err := q.SetupDeadLetterQueue(); err != nil {
		q.Close()
		return nil, err
	}

	return q, nil
}

func (q *Queue) declare() error {
	err := q.channel.ExchangeDeclare(
		ExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		q.name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := q.channel.QueueBind(q.name, q.name, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

// Name returns the run queue name
func (q *Queue) Name() string {
	return q.name
}

// Close closes the queue connection
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// Publish enqueues a run request
func (q *Queue) Publish(ctx context.Context, req models.RunRequest) error {
	return q.publish(ctx, ExchangeName, q.name, req, amqp.Table{retryHeader: 0}, "")
}

func (q *Queue) publish(ctx context.Context, exchange, key string, req models.RunRequest, headers amqp.Table, expiration string) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal run request: %w", err)
	}

	err = q.pub.PublishWithContext(ctx,
		exchange,
		key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    req.ID,
			Body:         body,
			Timestamp:    time.Now(),
			Headers:      headers,
			Expiration:   expiration,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish run request: %w", err)
	}

	return nil
}

// Consume delivers run requests to handler one at a time until ctx is done
// or the broker closes the delivery channel.
func (q *Queue) Consume(ctx context.Context, handler Handler) error {
	// One unacknowledged run per consumer
	if err := q.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := q.channel.Consume(
		q.name,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	return q.consume(ctx, msgs, handler)
}

func (q *Queue) consume(ctx context.Context, msgs <-chan amqp.Delivery, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			q.handle(ctx, msg, handler)
		}
	}
}

func (q *Queue) handle(ctx context.Context, msg amqp.Delivery, handler Handler) {
	var req models.RunRequest
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		q.logger.WithError(err).Warn("Dropping malformed run request")
		metrics.RecordQueueMessage("malformed")
		_ = msg.Nack(false, false)
		return
	}

	log := q.logger.WithRunID(req.ID)
	err := handler(ctx, req)
	switch {
	case err == nil:
		metrics.RecordQueueMessage("processed")
		_ = msg.Ack(false)
	case ctx.Err() != nil:
		// Shutting down: hand the message back for another consumer
		log.Info("Requeueing run request on shutdown")
		metrics.RecordQueueMessage("requeued")
		_ = msg.Nack(false, true)
	case errors.Is(err, ErrPermanent):
		log.WithError(err).Error("Run request failed permanently")
		if pubErr := q.PublishToDeadLetterQueue(ctx, req, err.Error()); pubErr != nil {
			log.WithError(pubErr).Error("Failed to dead-letter run request")
			_ = msg.Nack(false, true)
			return
		}
		metrics.RecordQueueMessage("dead_lettered")
		_ = msg.Ack(false)
	default:
		retries := retryCount(msg.Headers)
		log.WithError(err).Warnf("Run request failed, scheduling retry %d", retries+1)
		if pubErr := q.PublishToRetryQueue(ctx, req, retries, err.Error()); pubErr != nil {
			log.WithError(pubErr).Error("Failed to schedule retry")
			_ = msg.Nack(false, true)
			return
		}
		metrics.RecordQueueMessage("retried")
		_ = msg.Ack(false)
	}
}

// GetQueueDepth returns the number of messages in the queue
func (q *Queue) GetQueueDepth() (int, error) {
	info, err := q.channel.QueueInspect(q.name)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return info.Messages, nil
}
