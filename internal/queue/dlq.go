package queue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

const (
	DeadLetterExchangeName = "shortforge_dlq"
	MaxRetries             = 3

	retryHeader  = "x-retry-count"
	reasonHeader = "x-failure-reason"
)

// DeadLetterQueueName is the dead letter queue paired with the run queue
func (q *Queue) DeadLetterQueueName() string {
	return q.name + "_dlq"
}

// RetryQueueName is the delay queue that feeds back into the run queue
func (q *Queue) RetryQueueName() string {
	return q.name + "_retry"
}

// SetupDeadLetterQueue sets up the dead letter queue infrastructure
func (q *Queue) SetupDeadLetterQueue() error {
	err := q.channel.ExchangeDeclare(
		DeadLetterExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}

	dlq := q.DeadLetterQueueName()
	if _, err := q.channel.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	if err := q.channel.QueueBind(dlq, dlq, DeadLetterExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	// Expired retry messages are dead-lettered back onto the run queue
	retryArgs := amqp.Table{
		"x-dead-letter-exchange":    ExchangeName,
		"x-dead-letter-routing-key": q.name,
	}
	if _, err := q.channel.QueueDeclare(q.RetryQueueName(), true, false, false, false, retryArgs); err != nil {
		return fmt.Errorf("failed to declare retry queue: %w", err)
	}

	q.logger.Debug("Dead letter queue infrastructure set up")
	return nil
}

// PublishToRetryQueue schedules req for another attempt after a backoff delay.
// Requests that already used MaxRetries go to the dead letter queue.
func (q *Queue) PublishToRetryQueue(ctx context.Context, req models.RunRequest, retries int, reason string) error {
	if retries >= MaxRetries {
		return q.PublishToDeadLetterQueue(ctx, req, "max retries exceeded: "+reason)
	}

	delay := calculateBackoffDelay(retries)
	headers := amqp.Table{
		retryHeader:  retries + 1,
		reasonHeader: reason,
	}

	if err := q.publish(ctx, "", q.RetryQueueName(), req, headers, fmt.Sprintf("%d", delay.Milliseconds())); err != nil {
		return fmt.Errorf("failed to publish to retry queue: %w", err)
	}

	q.logger.WithRunID(req.ID).Infof("Run queued for retry #%d in %v", retries+1, delay)
	return nil
}

// PublishToDeadLetterQueue publishes a failed run request to the dead letter queue
func (q *Queue) PublishToDeadLetterQueue(ctx context.Context, req models.RunRequest, reason string) error {
	headers := amqp.Table{
		reasonHeader:  reason,
		"x-failed-at": time.Now().Format(time.RFC3339),
	}

	if err := q.publish(ctx, DeadLetterExchangeName, q.DeadLetterQueueName(), req, headers, ""); err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}

	q.logger.WithRunID(req.ID).Warnf("Run moved to dead letter queue: %s", reason)
	return nil
}

// GetDLQDepth returns the number of messages in the dead letter queue
func (q *Queue) GetDLQDepth() (int, error) {
	info, err := q.channel.QueueInspect(q.DeadLetterQueueName())
	if err != nil {
		return 0, fmt.Errorf("failed to inspect DLQ: %w", err)
	}

	return info.Messages, nil
}

// retryCount reads the retry header; brokers may hand integers back in any width
func retryCount(headers amqp.Table) int {
	switch v := headers[retryHeader].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int16:
		return int(v)
	case int8:
		return int(v)
	default:
		return 0
	}
}

// calculateBackoffDelay calculates exponential backoff delay
func calculateBackoffDelay(retries int) time.Duration {
	// 30s, 1m, 2m, 4m ...
	delay := 30 * time.Second * time.Duration(1<<retries)

	if delay > 30*time.Minute {
		delay = 30 * time.Minute
	}

	return delay
}
