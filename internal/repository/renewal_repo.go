package repository

import (
	"context"

	"github.com/rwandex/registrar-engine/internal/domain"
	"gorm.io/gorm"
)

type RenewalRepository interface {
	Create(ctx context.Context, renewal *domain.DomainRenewal) error
	GetByDomainID(ctx context.Context, domainID int64) ([]domain.DomainRenewal, error)
}

type GormRenewalRepo struct {
	db *gorm.DB
}

func NewGormRenewalRepo(db *gorm.DB) *GormRenewalRepo {
	return &GormRenewalRepo{db: db}
}

// Create writes one immutable ledger row; there is deliberately no update
// method on this repository.
func (r *GormRenewalRepo) Create(ctx context.Context, renewal *domain.DomainRenewal) error {
	return r.db.WithContext(ctx).Create(renewal).Error
}

func (r *GormRenewalRepo) GetByDomainID(ctx context.Context, domainID int64) ([]domain.DomainRenewal, error) {
	var renewals []domain.DomainRenewal
	err := r.db.WithContext(ctx).
		Where("domain_id = ?", domainID).
		Order("created_at DESC").
		Find(&renewals).Error
	if err != nil {
		return nil, err
	}
	return renewals, nil
}
