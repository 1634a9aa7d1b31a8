package repository

import (
	"context"
	"errors"

	"github.com/rwandex/registrar-engine/internal/domain"
	"gorm.io/gorm"
)

type ContactRepository interface {
	Create(ctx context.Context, c *domain.Contact) error
	GetByID(ctx context.Context, id int64) (*domain.Contact, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Contact, error)
	Update(ctx context.Context, c *domain.Contact) error
	SetRegistryContactID(ctx context.Context, id int64, registryContactID string) error
}

type GormContactRepo struct {
	db *gorm.DB
}

func NewGormContactRepo(db *gorm.DB) *GormContactRepo {
	return &GormContactRepo{db: db}
}

func (r *GormContactRepo) Create(ctx context.Context, c *domain.Contact) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *GormContactRepo) GetByID(ctx context.Context, id int64) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.WithContext(ctx).First(&contact, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *GormContactRepo) GetByIDs(ctx context.Context, ids []int64) ([]domain.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var contacts []domain.Contact
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *GormContactRepo) Update(ctx context.Context, c *domain.Contact) error {
	if c == nil || c.ID == 0 {
		return domain.ErrNotFound
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Contact{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"name":         c.Name,
			"organization": c.Organization,
			"address_one":  c.AddressOne,
			"address_two":  c.AddressTwo,
			"city":         c.City,
			"province":     c.Province,
			"postal_code":  c.PostalCode,
			"country_code": c.CountryCode,
			"phone":        c.Phone,
			"phone_ext":    c.PhoneExt,
			"fax":          c.Fax,
			"email":        c.Email,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetRegistryContactID assigns the upstream identifier exactly once. A second
// call with the same value is a no-op; a different value is rejected, since
// registries do not support renaming.
func (r *GormContactRepo) SetRegistryContactID(ctx context.Context, id int64, registryContactID string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Contact{}).
		Where("id = ? AND (registry_contact_id IS NULL OR registry_contact_id = ?)", id, registryContactID).
		Update("registry_contact_id", registryContactID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&domain.Contact{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	return nil
}
