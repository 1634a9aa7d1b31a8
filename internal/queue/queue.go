package queue

import "context"

const (
	// RetryQueueName is the durable work queue for registration retry tasks.
	RetryQueueName = "registration.retry"
	// RetryDLQName receives retry tasks the consumer rejects permanently.
	RetryDLQName = "dlq.registration.retry"
	// MaxDeliveryAttempts is the queue-level retry budget per message. It is
	// independent of the per-registration retry counter: the retrier keeps
	// its own bookkeeping, this cap bounds redelivery of a single task.
	MaxDeliveryAttempts = 3
)

// Publisher publishes retry messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg RetryMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg RetryMessage) error

// Consumer consumes retry messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}
