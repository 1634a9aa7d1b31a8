package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rwandex/registrar-engine/internal/queue"
	"github.com/rwandex/registrar-engine/internal/repository"
)

const (
	defaultRetryScanInterval = 30 * time.Second
	defaultRetryScanLimit    = 100
)

// RetryScanner periodically dispatches due failed registrations to the retry
// queue. MarkRetrying is the dedupe gate: a row is published only by the
// scanner pass that wins the pending->retrying transition.
type RetryScanner struct {
	failures  repository.FailedRegistrationRepository
	publisher queue.Publisher
	logger    *zap.Logger
	interval  time.Duration
	limit     int
}

func NewRetryScanner(
	failures repository.FailedRegistrationRepository,
	publisher queue.Publisher,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) (*RetryScanner, error) {
	if failures == nil {
		return nil, fmt.Errorf("failed registration repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if interval <= 0 {
		interval = defaultRetryScanInterval
	}
	if limit <= 0 {
		limit = defaultRetryScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RetryScanner{
		failures:  failures,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		limit:     limit,
	}, nil
}

func (s *RetryScanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial scan so already-due retries do not wait for the first ticker edge.
	if err := s.scanDue(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("retry scanner initial scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.scanDue(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("retry scanner scan failed", zap.Error(err))
			}
		}
	}
}

func (s *RetryScanner) scanDue(ctx context.Context) error {
	due, err := s.failures.GetDueForRetry(ctx, s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch due retries: %w", err)
	}

	for i := range due {
		record := due[i]

		dispatched, err := s.failures.MarkRetrying(ctx, record.ID)
		if err != nil {
			s.logger.Error("failed to claim due registration for retry",
				zap.String("failedRegistrationId", record.ID),
				zap.Error(err),
			)
			continue
		}
		if !dispatched {
			continue
		}

		msg := queue.RetryMessage{
			FailedRegistrationID: record.ID,
			DomainName:           record.DomainName,
			Attempt:              0,
		}
		if err := s.publisher.Publish(ctx, queue.RetryQueueName, msg); err != nil {
			s.logger.Error("failed to enqueue registration retry",
				zap.String("failedRegistrationId", record.ID),
				zap.Error(err),
			)
			// Put the row back on the schedule so the claim is not lost.
			next := time.Now().Add(s.interval)
			if recoverErr := s.failures.RecordFailure(
				ctx,
				record.ID,
				record.RetryCount,
				record.FailureReason,
				&next,
				record.Status,
			); recoverErr != nil {
				s.logger.Error("failed to reschedule after enqueue failure",
					zap.String("failedRegistrationId", record.ID),
					zap.Error(recoverErr),
				)
			}
			continue
		}
	}

	return nil
}
