package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/rwandex/registrar-engine/internal/domain"
	"gorm.io/gorm"
)

type PricingRepository interface {
	GetByTLD(ctx context.Context, tld string) (*domain.TLDPricing, error)
}

type GormPricingRepo struct {
	db *gorm.DB
}

func NewGormPricingRepo(db *gorm.DB) *GormPricingRepo {
	return &GormPricingRepo{db: db}
}

func (r *GormPricingRepo) GetByTLD(ctx context.Context, tld string) (*domain.TLDPricing, error) {
	var pricing domain.TLDPricing
	err := r.db.WithContext(ctx).First(&pricing, "tld = ?", strings.ToLower(strings.TrimSpace(tld))).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pricing, nil
}
