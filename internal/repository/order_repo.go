package repository

import (
	"context"
	"errors"

	"github.com/rwandex/registrar-engine/internal/domain"
	"gorm.io/gorm"
)

type OrderRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetItemByID(ctx context.Context, itemID int64) (*domain.OrderItem, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
	SetItemDomain(ctx context.Context, itemID int64, domainID int64) error
}

type GormOrderRepo struct {
	db *gorm.DB
}

func NewGormOrderRepo(db *gorm.DB) *GormOrderRepo {
	return &GormOrderRepo{db: db}
}

func (r *GormOrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormOrderRepo) GetItemByID(ctx context.Context, itemID int64) (*domain.OrderItem, error) {
	var item domain.OrderItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormOrderRepo) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormOrderRepo) SetItemDomain(ctx context.Context, itemID int64, domainID int64) error {
	result := r.db.WithContext(ctx).
		Model(&domain.OrderItem{}).
		Where("id = ?", itemID).
		Update("domain_id", domainID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
