package domain

import (
	"fmt"
	"strings"
	"time"
)

// FailedRegistrationStatus is the retry state machine status.
// pending -> retrying -> resolved | abandoned; both terminal states are sticky.
type FailedRegistrationStatus string

const (
	FailedRegistrationPending   FailedRegistrationStatus = "PENDING"
	FailedRegistrationRetrying  FailedRegistrationStatus = "RETRYING"
	FailedRegistrationResolved  FailedRegistrationStatus = "RESOLVED"
	FailedRegistrationAbandoned FailedRegistrationStatus = "ABANDONED"
)

func (s FailedRegistrationStatus) String() string { return string(s) }

func (s FailedRegistrationStatus) IsValid() bool {
	switch s {
	case FailedRegistrationPending, FailedRegistrationRetrying,
		FailedRegistrationResolved, FailedRegistrationAbandoned:
		return true
	}
	return false
}

func (s FailedRegistrationStatus) IsTerminal() bool {
	return s == FailedRegistrationResolved || s == FailedRegistrationAbandoned
}

func ParseFailedRegistrationStatusFromString(s string) (FailedRegistrationStatus, error) {
	st := FailedRegistrationStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid failed registration status %q", ErrValidation, s)
	}
	return st, nil
}

// DefaultMaxRegistrationRetries caps automated re-attempts per failed registration.
const DefaultMaxRegistrationRetries = 3

// RoleContactIDs maps a contact role to a local contact id.
type RoleContactIDs map[ContactRole]int64

// FailedDomainRegistration tracks a registration that failed at the provider
// call, so the retry pipeline can re-drive it.
type FailedDomainRegistration struct {
	ID            string                   `gorm:"type:uuid;primaryKey"`
	DomainName    string                   `gorm:"type:varchar(255);not null;index"`
	ContactIDs    RoleContactIDs           `gorm:"serializer:json;type:jsonb;not null"`
	OrderID       int64                    `gorm:"not null;index"`
	OrderItemID   int64                    `gorm:"not null"`
	Status        FailedRegistrationStatus `gorm:"type:varchar(16);not null"`
	RetryCount    int                      `gorm:"not null;default:0"`
	MaxRetries    int                      `gorm:"not null;default:3"`
	NextRetryAt   *time.Time               `gorm:"index"`
	FailureReason string                   `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CanRetry reports whether another attempt may be dispatched. Terminal states
// never allow one, regardless of the counter.
func (f *FailedDomainRegistration) CanRetry() bool {
	if f == nil {
		return false
	}
	if f.Status != FailedRegistrationPending && f.Status != FailedRegistrationRetrying {
		return false
	}
	maxRetries := f.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRegistrationRetries
	}
	return f.RetryCount < maxRetries
}
