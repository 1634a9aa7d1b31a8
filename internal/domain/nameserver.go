package domain

import (
	"fmt"
	"strings"
	"time"
)

// NameserverType distinguishes operator defaults from customer-supplied hosts.
type NameserverType string

const (
	NameserverTypeDefault NameserverType = "DEFAULT"
	NameserverTypeCustom  NameserverType = "CUSTOM"
)

func (t NameserverType) String() string { return string(t) }

func (t NameserverType) IsValid() bool {
	switch t {
	case NameserverTypeDefault, NameserverTypeCustom:
		return true
	}
	return false
}

// NameserverStatus represents the propagation state of a nameserver record.
type NameserverStatus string

const (
	NameserverStatusActive   NameserverStatus = "ACTIVE"
	NameserverStatusInactive NameserverStatus = "INACTIVE"
)

func (s NameserverStatus) String() string { return string(s) }

// Nameserver is a hostname record shared across domains. Name is globally
// unique; re-registering an existing hostname overwrites Type/Priority/Status
// in place rather than duplicating the row.
type Nameserver struct {
	ID        int64            `gorm:"primaryKey;autoIncrement"`
	UUID      string           `gorm:"type:uuid;not null;uniqueIndex"`
	Name      string           `gorm:"type:varchar(255);not null;uniqueIndex"`
	Type      NameserverType   `gorm:"type:varchar(16);not null"`
	Priority  int              `gorm:"not null;default:1"`
	Status    NameserverStatus `gorm:"type:varchar(16);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (n *Nameserver) Validate() error {
	if n == nil {
		return fmt.Errorf("%w: nameserver is required", ErrValidation)
	}
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("%w: nameserver name is required", ErrValidation)
	}
	if !n.Type.IsValid() {
		return fmt.Errorf("%w: invalid nameserver type %q", ErrValidation, n.Type)
	}
	if n.Priority < 1 {
		return fmt.Errorf("%w: nameserver priority must be >= 1", ErrValidation)
	}
	return nil
}

// NormalizeNameserverNames lowercases and trims hostnames, drops empties and
// deduplicates while preserving first-seen order.
func NormalizeNameserverNames(names []string) []string {
	normalized := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))

	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		normalized = append(normalized, name)
	}

	return normalized
}
