package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rwandex/registrar-engine/internal/domain"
	"gorm.io/gorm"
)

type DomainRepository interface {
	Create(ctx context.Context, d *domain.Domain) error
	GetByID(ctx context.Context, id int64) (*domain.Domain, error)
	GetByName(ctx context.Context, name string) (*domain.Domain, error)
	UpdateExpiry(ctx context.Context, id int64, newExpiresAt time.Time, renewedAt time.Time) error
	ReplaceContacts(ctx context.Context, domainID int64, contacts domain.RoleContactIDs, userID int64) error
	SyncNameservers(ctx context.Context, domainID int64, nameserverIDs []int64) error
	GetContacts(ctx context.Context, domainID int64) ([]domain.DomainContact, error)
	GetNameservers(ctx context.Context, domainID int64) ([]domain.DomainNameserver, error)
}

type GormDomainRepo struct {
	db *gorm.DB
}

func NewGormDomainRepo(db *gorm.DB) *GormDomainRepo {
	return &GormDomainRepo{db: db}
}

func (r *GormDomainRepo) Create(ctx context.Context, d *domain.Domain) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *GormDomainRepo) GetByID(ctx context.Context, id int64) (*domain.Domain, error) {
	var record domain.Domain
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *GormDomainRepo) GetByName(ctx context.Context, name string) (*domain.Domain, error) {
	var record domain.Domain
	err := r.db.WithContext(ctx).First(&record, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateExpiry is the only write path for expires_at; registration sets the
// initial value at insert and renewal advances it here.
func (r *GormDomainRepo) UpdateExpiry(ctx context.Context, id int64, newExpiresAt time.Time, renewedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Domain{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"expires_at":      newExpiresAt,
			"last_renewed_at": renewedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReplaceContacts swaps the full role pivot in one transaction so the
// one-contact-per-role invariant holds at every point in time.
func (r *GormDomainRepo) ReplaceContacts(ctx context.Context, domainID int64, contacts domain.RoleContactIDs, userID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("domain_id = ?", domainID).Delete(&domain.DomainContact{}).Error; err != nil {
			return err
		}

		pivots := make([]domain.DomainContact, 0, len(contacts))
		for _, role := range domain.ContactRoles() {
			contactID, ok := contacts[role]
			if !ok {
				continue
			}
			pivots = append(pivots, domain.DomainContact{
				DomainID:  domainID,
				ContactID: contactID,
				Type:      role,
				UserID:    userID,
			})
		}
		if len(pivots) == 0 {
			return nil
		}

		return tx.Create(&pivots).Error
	})
}

// SyncNameservers replaces the ordered association with exactly the given
// set; positions are 1-based list order.
func (r *GormDomainRepo) SyncNameservers(ctx context.Context, domainID int64, nameserverIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("domain_id = ?", domainID).Delete(&domain.DomainNameserver{}).Error; err != nil {
			return err
		}
		if len(nameserverIDs) == 0 {
			return nil
		}

		pivots := make([]domain.DomainNameserver, 0, len(nameserverIDs))
		for i, nameserverID := range nameserverIDs {
			pivots = append(pivots, domain.DomainNameserver{
				DomainID:     domainID,
				NameserverID: nameserverID,
				Position:     i + 1,
			})
		}

		return tx.Create(&pivots).Error
	})
}

func (r *GormDomainRepo) GetContacts(ctx context.Context, domainID int64) ([]domain.DomainContact, error) {
	var pivots []domain.DomainContact
	err := r.db.WithContext(ctx).
		Where("domain_id = ?", domainID).
		Find(&pivots).Error
	if err != nil {
		return nil, err
	}
	return pivots, nil
}

func (r *GormDomainRepo) GetNameservers(ctx context.Context, domainID int64) ([]domain.DomainNameserver, error) {
	var pivots []domain.DomainNameserver
	err := r.db.WithContext(ctx).
		Where("domain_id = ?", domainID).
		Order("position ASC").
		Find(&pivots).Error
	if err != nil {
		return nil, err
	}
	return pivots, nil
}
