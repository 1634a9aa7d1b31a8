package domain

import (
	"fmt"
	"strings"
	"time"
)

// DomainStatus represents the lifecycle state of a registered domain.
type DomainStatus string

const (
	DomainStatusActive    DomainStatus = "ACTIVE"
	DomainStatusExpired   DomainStatus = "EXPIRED"
	DomainStatusSuspended DomainStatus = "SUSPENDED"
	DomainStatusPending   DomainStatus = "PENDING"
)

func (s DomainStatus) String() string { return string(s) }

func (s DomainStatus) IsValid() bool {
	switch s {
	case DomainStatusActive, DomainStatusExpired, DomainStatusSuspended, DomainStatusPending:
		return true
	}
	return false
}

func ParseDomainStatusFromString(s string) (DomainStatus, error) {
	st := DomainStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid domain status %q", ErrValidation, s)
	}
	return st, nil
}

// Domain is the aggregate root for a registered name. It is created only
// after the upstream provider confirms a registration; ExpiresAt is mutated
// only by the renewal flow.
type Domain struct {
	ID            int64        `gorm:"primaryKey;autoIncrement"`
	UUID          string       `gorm:"type:uuid;not null;uniqueIndex"`
	Name          string       `gorm:"type:varchar(255);not null;uniqueIndex"`
	OwnerID       int64        `gorm:"not null;index"`
	RegisteredAt  time.Time    `gorm:"not null"`
	ExpiresAt     time.Time    `gorm:"not null"`
	LastRenewedAt *time.Time
	Years         int          `gorm:"not null"`
	Status        DomainStatus `gorm:"type:varchar(20);not null"`
	IsLocked      bool         `gorm:"not null;default:true"`
	AutoRenew     bool         `gorm:"not null;default:false"`
	Provider      string       `gorm:"type:varchar(20);not null"`
	TLDPricingID  *int64       `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (d *Domain) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: domain is required", ErrValidation)
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: domain name is required", ErrValidation)
	}
	if d.OwnerID <= 0 {
		return fmt.Errorf("%w: domain owner is required", ErrValidation)
	}
	if d.Years < 1 {
		return fmt.Errorf("%w: registration years must be >= 1", ErrValidation)
	}
	if !d.Status.IsValid() {
		return fmt.Errorf("%w: invalid domain status %q", ErrValidation, d.Status)
	}
	return nil
}

// DomainContact is the domain<->contact pivot. Exactly one row per role type
// per domain; the set is fully replaced on update, never appended.
type DomainContact struct {
	ID        int64       `gorm:"primaryKey;autoIncrement"`
	DomainID  int64       `gorm:"not null;uniqueIndex:idx_domain_contact_role,priority:1"`
	ContactID int64       `gorm:"not null;index"`
	Type      ContactRole `gorm:"type:varchar(16);not null;uniqueIndex:idx_domain_contact_role,priority:2"`
	UserID    int64       `gorm:"not null"`
	CreatedAt time.Time
}

// DomainNameserver is the ordered domain<->nameserver pivot. The association
// is synced to the effective list on each update (replace, not append).
type DomainNameserver struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	DomainID     int64 `gorm:"not null;uniqueIndex:idx_domain_nameserver,priority:1"`
	NameserverID int64 `gorm:"not null;uniqueIndex:idx_domain_nameserver,priority:2"`
	Position     int   `gorm:"not null"`
	CreatedAt    time.Time
}

// TLD extracts the lowercased substring after the final dot, or "" when the
// name has no dot.
func TLD(domainName string) string {
	name := strings.ToLower(strings.TrimSpace(domainName))
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return name[idx+1:]
}
