package domain

import (
	"fmt"
	"strings"
	"time"
)

// RenewalStatus is the outcome recorded on a renewal ledger entry.
type RenewalStatus string

const (
	RenewalStatusCompleted RenewalStatus = "COMPLETED"
	RenewalStatusFailed    RenewalStatus = "FAILED"
)

func (s RenewalStatus) String() string { return string(s) }

func (s RenewalStatus) IsValid() bool {
	switch s {
	case RenewalStatusCompleted, RenewalStatusFailed:
		return true
	}
	return false
}

func ParseRenewalStatusFromString(s string) (RenewalStatus, error) {
	st := RenewalStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid renewal status %q", ErrValidation, s)
	}
	return st, nil
}

// DomainRenewal is an immutable audit entry written once per renewal attempt,
// success or failure. It is never updated after creation.
type DomainRenewal struct {
	ID           int64         `gorm:"primaryKey;autoIncrement"`
	DomainID     int64         `gorm:"not null;index"`
	OrderID      *int64        `gorm:"index"`
	Years        int           `gorm:"not null"`
	Amount       float64       `gorm:"not null;default:0"`
	Currency     string        `gorm:"type:varchar(3);not null"`
	OldExpiresAt time.Time     `gorm:"not null"`
	NewExpiresAt time.Time     `gorm:"not null"`
	Status       RenewalStatus `gorm:"type:varchar(16);not null"`
	CreatedAt    time.Time
}
