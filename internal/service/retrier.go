package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rwandex/registrar-engine/internal/domain"
	"github.com/rwandex/registrar-engine/internal/notify"
	"github.com/rwandex/registrar-engine/internal/observability"
	"github.com/rwandex/registrar-engine/internal/repository"
)

const defaultRetryDelay = time.Hour

// Registrar is the slice of RegistrationService the retrier depends on.
type Registrar interface {
	Register(ctx context.Context, params RegisterParams) *RegistrationResult
}

// FileFailureParams captures a failed registration for later retry.
type FileFailureParams struct {
	DomainName  string
	ContactIDs  domain.RoleContactIDs
	OrderID     int64
	OrderItemID int64
	Reason      string
}

// RegistrationRetrier re-drives failed registrations. Attempts move a record
// pending -> retrying -> resolved | abandoned; both terminal states are
// sticky, so a late redelivery of an already-settled record is a no-op.
type RegistrationRetrier struct {
	failures   repository.FailedRegistrationRepository
	orders     repository.OrderRepository
	registrar  Registrar
	notifier   notify.Notifier
	metrics    *observability.Metrics
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration

	now func() time.Time
}

func NewRegistrationRetrier(
	failures repository.FailedRegistrationRepository,
	orders repository.OrderRepository,
	registrar Registrar,
	notifier notify.Notifier,
	metrics *observability.Metrics,
	maxRetries int,
	retryDelay time.Duration,
	logger *zap.Logger,
) (*RegistrationRetrier, error) {
	if failures == nil {
		return nil, fmt.Errorf("failed registration repository is required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if registrar == nil {
		return nil, fmt.Errorf("registrar is required")
	}
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	if maxRetries <= 0 {
		maxRetries = domain.DefaultMaxRegistrationRetries
	}
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RegistrationRetrier{
		failures:   failures,
		orders:     orders,
		registrar:  registrar,
		notifier:   notifier,
		metrics:    metrics,
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		now:        time.Now,
	}, nil
}

// FileFailure records a failed registration and schedules its first retry.
func (r *RegistrationRetrier) FileFailure(ctx context.Context, params FileFailureParams) (*domain.FailedDomainRegistration, error) {
	if params.DomainName == "" {
		return nil, fmt.Errorf("%w: domain name is required", domain.ErrValidation)
	}

	next := r.now().Add(r.retryDelay)
	record := &domain.FailedDomainRegistration{
		ID:            uuid.NewString(),
		DomainName:    params.DomainName,
		ContactIDs:    params.ContactIDs,
		OrderID:       params.OrderID,
		OrderItemID:   params.OrderItemID,
		Status:        domain.FailedRegistrationPending,
		RetryCount:    0,
		MaxRetries:    r.maxRetries,
		NextRetryAt:   &next,
		FailureReason: params.Reason,
	}

	if err := r.failures.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to file registration failure: %w", err)
	}

	r.metrics.IncRetryScheduled()
	r.logger.Info("registration failure filed for retry",
		zap.String("failedRegistrationId", record.ID),
		zap.String("domain", record.DomainName),
		zap.Time("nextRetryAt", next),
	)

	return record, nil
}

// Retry runs one attempt for a filed failure. Provider-level failures are
// settled internally: the record is rescheduled for the next slot (or
// abandoned at the budget) and nil is returned, so the attempt waits out the
// configured delay. A returned error means the bookkeeping itself failed;
// only those re-throw to the delivery layer.
func (r *RegistrationRetrier) Retry(ctx context.Context, id string) error {
	record, err := r.failures.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn("retry dispatched for unknown failed registration", zap.String("failedRegistrationId", id))
			return nil
		}
		return err
	}

	if record.Status.IsTerminal() {
		r.logger.Info("skipping retry: record already settled",
			zap.String("failedRegistrationId", record.ID),
			zap.String("status", record.Status.String()),
		)
		return nil
	}

	if !record.CanRetry() {
		// Exhausted records are settled by the failing attempt itself or by
		// ForceAbandon; a stray dispatch must not change state.
		r.logger.Warn("skipping retry: retry budget exhausted",
			zap.String("failedRegistrationId", record.ID),
			zap.Int("retryCount", record.RetryCount),
		)
		return nil
	}

	order, err := r.orders.GetByID(ctx, record.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order %d: %w", record.OrderID, err)
	}

	years := 1
	item, err := r.orders.GetItemByID(ctx, record.OrderItemID)
	if err != nil {
		r.logger.Warn("failed to load order item, defaulting to one year",
			zap.String("failedRegistrationId", record.ID),
			zap.Error(err),
		)
	} else if item.Years > 0 {
		years = item.Years
	}

	result := r.registrar.Register(ctx, RegisterParams{
		DomainName: record.DomainName,
		Contacts:   record.ContactIDs,
		Years:      years,
		UserID:     order.UserID,
	})

	if result.Success {
		return r.resolve(ctx, record, result)
	}

	return r.recordAttemptFailure(ctx, record, result.Message)
}

// ForceAbandon settles a record as abandoned regardless of its retry budget.
// Used when an outer retry layer has exhausted its own attempts.
func (r *RegistrationRetrier) ForceAbandon(ctx context.Context, id string) error {
	record, err := r.failures.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if record.Status.IsTerminal() {
		return nil
	}
	return r.abandon(ctx, record, "delivery attempts exhausted")
}

func (r *RegistrationRetrier) resolve(ctx context.Context, record *domain.FailedDomainRegistration, result *RegistrationResult) error {
	if result.Domain != nil {
		if err := r.orders.SetItemDomain(ctx, record.OrderItemID, result.Domain.ID); err != nil {
			r.logger.Error("failed to link registered domain to order item",
				zap.String("failedRegistrationId", record.ID),
				zap.Error(err),
			)
		}
	}

	if err := r.failures.MarkTerminal(ctx, record.ID, domain.FailedRegistrationResolved); err != nil {
		return fmt.Errorf("failed to mark registration resolved: %w", err)
	}

	r.logger.Info("failed registration resolved",
		zap.String("failedRegistrationId", record.ID),
		zap.String("domain", record.DomainName),
		zap.Int("retryCount", record.RetryCount),
	)

	unresolved, err := r.failures.CountUnresolvedForOrder(ctx, record.OrderID)
	if err != nil {
		r.logger.Error("failed to count unresolved registrations for order",
			zap.Int64("orderId", record.OrderID),
			zap.Error(err),
		)
		return nil
	}
	if unresolved == 0 {
		if err := r.orders.UpdateStatus(ctx, record.OrderID, domain.OrderStatusCompleted); err != nil {
			r.logger.Error("failed to complete order after last resolution",
				zap.Int64("orderId", record.OrderID),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (r *RegistrationRetrier) recordAttemptFailure(ctx context.Context, record *domain.FailedDomainRegistration, reason string) error {
	newCount := record.RetryCount + 1

	maxRetries := record.MaxRetries
	if maxRetries <= 0 {
		maxRetries = r.maxRetries
	}

	if newCount >= maxRetries {
		if err := r.failures.RecordFailure(ctx, record.ID, newCount, reason, nil, domain.FailedRegistrationAbandoned); err != nil {
			return fmt.Errorf("failed to record abandonment: %w", err)
		}
		r.metrics.IncRegistrationAbandoned()
		record.RetryCount = newCount
		record.FailureReason = reason
		_ = r.notifier.AdminRegistrationAbandoned(ctx, record.OrderID, record)
		r.logger.Error("registration abandoned after exhausting retries",
			zap.String("failedRegistrationId", record.ID),
			zap.String("domain", record.DomainName),
			zap.String("reason", reason),
		)
		return nil
	}

	next := r.now().Add(r.retryDelay)
	if err := r.failures.RecordFailure(ctx, record.ID, newCount, reason, &next, domain.FailedRegistrationPending); err != nil {
		return fmt.Errorf("failed to record retry failure: %w", err)
	}

	r.metrics.IncRetryScheduled()
	r.logger.Warn("registration retry failed, rescheduled",
		zap.String("failedRegistrationId", record.ID),
		zap.String("domain", record.DomainName),
		zap.Int("retryCount", newCount),
		zap.Time("nextRetryAt", next),
	)

	// The scanner picks the record up again at next_retry_at; returning an
	// error here would make the delivery layer re-drive the attempt
	// immediately and burn the whole budget without the delay.
	return nil
}

func (r *RegistrationRetrier) abandon(ctx context.Context, record *domain.FailedDomainRegistration, reason string) error {
	if err := r.failures.MarkTerminal(ctx, record.ID, domain.FailedRegistrationAbandoned); err != nil {
		return fmt.Errorf("failed to mark registration abandoned: %w", err)
	}

	r.metrics.IncRegistrationAbandoned()
	_ = r.notifier.AdminRegistrationAbandoned(ctx, record.OrderID, record)

	r.logger.Error("registration abandoned",
		zap.String("failedRegistrationId", record.ID),
		zap.String("domain", record.DomainName),
		zap.String("reason", reason),
	)

	return nil
}
