package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rwandex/registrar-engine/internal/observability"
	"github.com/rwandex/registrar-engine/internal/queue"
)

const minWorkerConcurrency = 1

// Retrier is the slice of RegistrationRetrier the worker depends on.
type Retrier interface {
	Retry(ctx context.Context, id string) error
	ForceAbandon(ctx context.Context, id string) error
}

// RetryWorker consumes the retry queue and drives the retrier. Provider-level
// failures are settled inside the retrier and acknowledged here; only a
// bookkeeping error is re-dispatched, with a bumped attempt counter, until
// the delivery budget runs out, at which point the record is force-abandoned
// and the message acknowledged.
type RetryWorker struct {
	consumer    queue.Consumer
	publisher   queue.Publisher
	retrier     Retrier
	metrics     *observability.Metrics
	logger      *zap.Logger
	concurrency int
}

func NewRetryWorker(
	consumer queue.Consumer,
	publisher queue.Publisher,
	retrier Retrier,
	metrics *observability.Metrics,
	concurrency int,
	logger *zap.Logger,
) (*RetryWorker, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if retrier == nil {
		return nil, fmt.Errorf("retrier is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RetryWorker{
		consumer:    consumer,
		publisher:   publisher,
		retrier:     retrier,
		metrics:     metrics,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

// Start consumes the retry queue until context cancellation.
func (w *RetryWorker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			w.logger.Info("retry worker started", zap.Int("workerId", workerID))

			err := w.consumer.Consume(groupCtx, queue.RetryQueueName, w.processMessage)
			if err != nil {
				w.logger.Error("retry worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			w.logger.Info("retry worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

func (w *RetryWorker) processMessage(ctx context.Context, msg queue.RetryMessage) error {
	w.metrics.IncWorkerInFlight()
	defer w.metrics.DecWorkerInFlight()

	err := w.retrier.Retry(ctx, msg.FailedRegistrationID)
	if err == nil {
		return nil
	}

	nextAttempt := msg.Attempt + 1
	if nextAttempt >= queue.MaxDeliveryAttempts {
		w.logger.Error("delivery budget exhausted, force-abandoning registration",
			zap.String("failedRegistrationId", msg.FailedRegistrationID),
			zap.Int("attempts", nextAttempt),
			zap.Error(err),
		)
		if abandonErr := w.retrier.ForceAbandon(ctx, msg.FailedRegistrationID); abandonErr != nil {
			w.logger.Error("failed to force-abandon registration",
				zap.String("failedRegistrationId", msg.FailedRegistrationID),
				zap.Error(abandonErr),
			)
			return abandonErr
		}
		return nil
	}

	redispatch := msg
	redispatch.Attempt = nextAttempt
	if publishErr := w.publisher.Publish(ctx, queue.RetryQueueName, redispatch); publishErr != nil {
		w.logger.Error("failed to re-dispatch retry message",
			zap.String("failedRegistrationId", msg.FailedRegistrationID),
			zap.Error(publishErr),
		)
		return publishErr
	}

	w.logger.Warn("retry attempt failed, re-dispatched",
		zap.String("failedRegistrationId", msg.FailedRegistrationID),
		zap.Int("attempt", nextAttempt),
		zap.Error(err),
	)
	return nil
}
