package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rwandex/registrar-engine/internal/domain"
	"gorm.io/gorm"
)

type NameserverRepository interface {
	UpsertByName(ctx context.Context, ns *domain.Nameserver) error
	GetByName(ctx context.Context, name string) (*domain.Nameserver, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Nameserver, error)
}

type GormNameserverRepo struct {
	db *gorm.DB
}

func NewGormNameserverRepo(db *gorm.DB) *GormNameserverRepo {
	return &GormNameserverRepo{db: db}
}

// UpsertByName gets-or-creates the hostname row, then unconditionally
// overwrites the mutable fields with the current pass's values. Last writer
// wins on type/priority/status; hostname rows are shared across domains.
func (r *GormNameserverRepo) UpsertByName(ctx context.Context, ns *domain.Nameserver) error {
	if ns == nil {
		return domain.ErrNotFound
	}
	if err := ns.Validate(); err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Nameserver
		err := tx.Where("name = ?", ns.Name).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if ns.UUID == "" {
				ns.UUID = uuid.NewString()
			}
			return tx.Create(ns).Error
		}
		if err != nil {
			return err
		}

		updateErr := tx.Model(&domain.Nameserver{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"type":     ns.Type,
				"priority": ns.Priority,
				"status":   ns.Status,
			}).Error
		if updateErr != nil {
			return updateErr
		}

		ns.ID = existing.ID
		ns.UUID = existing.UUID
		return nil
	})
}

func (r *GormNameserverRepo) GetByIDs(ctx context.Context, ids []int64) ([]domain.Nameserver, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var records []domain.Nameserver
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *GormNameserverRepo) GetByName(ctx context.Context, name string) (*domain.Nameserver, error) {
	var ns domain.Nameserver
	err := r.db.WithContext(ctx).First(&ns, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ns, nil
}
