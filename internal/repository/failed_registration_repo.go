package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rwandex/registrar-engine/internal/domain"
	"gorm.io/gorm"
)

type FailedRegistrationRepository interface {
	Create(ctx context.Context, f *domain.FailedDomainRegistration) error
	GetByID(ctx context.Context, id string) (*domain.FailedDomainRegistration, error)
	List(ctx context.Context, status *domain.FailedRegistrationStatus, limit int) ([]domain.FailedDomainRegistration, error)
	MarkRetrying(ctx context.Context, id string) (bool, error)
	RecordFailure(ctx context.Context, id string, retryCount int, reason string, nextRetryAt *time.Time, status domain.FailedRegistrationStatus) error
	MarkTerminal(ctx context.Context, id string, status domain.FailedRegistrationStatus) error
	GetDueForRetry(ctx context.Context, limit int) ([]domain.FailedDomainRegistration, error)
	CountUnresolvedForOrder(ctx context.Context, orderID int64) (int64, error)
}

type GormFailedRegistrationRepo struct {
	db *gorm.DB
}

func NewGormFailedRegistrationRepo(db *gorm.DB) *GormFailedRegistrationRepo {
	return &GormFailedRegistrationRepo{db: db}
}

func (r *GormFailedRegistrationRepo) Create(ctx context.Context, f *domain.FailedDomainRegistration) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *GormFailedRegistrationRepo) GetByID(ctx context.Context, id string) (*domain.FailedDomainRegistration, error) {
	var record domain.FailedDomainRegistration
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *GormFailedRegistrationRepo) List(ctx context.Context, status *domain.FailedRegistrationStatus, limit int) ([]domain.FailedDomainRegistration, error) {
	query := r.db.WithContext(ctx).Model(&domain.FailedDomainRegistration{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []domain.FailedDomainRegistration
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// MarkRetrying moves pending->retrying and clears next_retry_at so the
// scanner does not dispatch the same row twice. Returns false when the row is
// no longer dispatchable (terminal or already in flight).
func (r *GormFailedRegistrationRepo) MarkRetrying(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.FailedDomainRegistration{}).
		Where("id = ? AND status = ?", id, domain.FailedRegistrationPending).
		Updates(map[string]any{
			"status":        domain.FailedRegistrationRetrying,
			"next_retry_at": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RecordFailure persists the post-attempt bookkeeping in one write: the new
// retry count, the latest failure reason, and either the next schedule or a
// terminal status.
func (r *GormFailedRegistrationRepo) RecordFailure(
	ctx context.Context,
	id string,
	retryCount int,
	reason string,
	nextRetryAt *time.Time,
	status domain.FailedRegistrationStatus,
) error {
	result := r.db.WithContext(ctx).
		Model(&domain.FailedDomainRegistration{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retry_count":    retryCount,
			"failure_reason": reason,
			"next_retry_at":  nextRetryAt,
			"status":         status,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkTerminal sets a terminal status. Rows already terminal are left
// untouched, which keeps resolved/abandoned sticky under redelivery.
func (r *GormFailedRegistrationRepo) MarkTerminal(ctx context.Context, id string, status domain.FailedRegistrationStatus) error {
	if !status.IsTerminal() {
		return domain.ErrConflict
	}

	result := r.db.WithContext(ctx).
		Model(&domain.FailedDomainRegistration{}).
		Where("id = ? AND status NOT IN ?", id, []domain.FailedRegistrationStatus{
			domain.FailedRegistrationResolved,
			domain.FailedRegistrationAbandoned,
		}).
		Updates(map[string]any{
			"status":        status,
			"next_retry_at": nil,
		})
	return result.Error
}

func (r *GormFailedRegistrationRepo) GetDueForRetry(ctx context.Context, limit int) ([]domain.FailedDomainRegistration, error) {
	var records []domain.FailedDomainRegistration
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", domain.FailedRegistrationPending, time.Now()).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *GormFailedRegistrationRepo) CountUnresolvedForOrder(ctx context.Context, orderID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.FailedDomainRegistration{}).
		Where("order_id = ? AND status != ?", orderID, domain.FailedRegistrationResolved).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
