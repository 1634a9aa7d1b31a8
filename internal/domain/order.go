package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OrderStatus is the fulfilment state of a checkout order.
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusFailed     OrderStatus = "FAILED"
)

func (s OrderStatus) String() string { return string(s) }

// OrderItemType distinguishes registration and renewal line items.
type OrderItemType string

const (
	OrderItemRegistration OrderItemType = "REGISTRATION"
	OrderItemRenewal      OrderItemType = "RENEWAL"
)

func (t OrderItemType) String() string { return string(t) }

// Order is the minimal checkout aggregate the registration core needs:
// ownership, status, and the line items that reference domains.
type Order struct {
	ID        int64       `gorm:"primaryKey;autoIncrement"`
	UUID      string      `gorm:"type:uuid;not null;uniqueIndex"`
	UserID    int64       `gorm:"not null;index"`
	Status    OrderStatus `gorm:"type:varchar(16);not null"`
	Currency  string      `gorm:"type:varchar(3);not null"`
	Items     []OrderItem `gorm:"foreignKey:OrderID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem is a single purchasable line on an order.
type OrderItem struct {
	ID        int64         `gorm:"primaryKey;autoIncrement"`
	OrderID   int64         `gorm:"not null;index"`
	Type      OrderItemType `gorm:"type:varchar(16);not null"`
	ItemID    string        `gorm:"type:varchar(64);not null"`
	DomainID  *int64        `gorm:"index"`
	Years     int           `gorm:"not null;default:1"`
	Amount    float64       `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MatchesRenewal reports whether this line item is the renewal of the given
// domain, either via the DomainID column or the legacy "renewal-<id>" item id.
func (i OrderItem) MatchesRenewal(domainID int64) bool {
	if i.Type != OrderItemRenewal {
		return false
	}
	if i.DomainID != nil && *i.DomainID == domainID {
		return true
	}
	encoded := strings.TrimPrefix(strings.TrimSpace(i.ItemID), "renewal-")
	if encoded == i.ItemID {
		return false
	}
	parsed, err := strconv.ParseInt(encoded, 10, 64)
	return err == nil && parsed == domainID
}

// RenewalAmount scans the order's line items for the renewal of domainID and
// returns its amount, or 0 when no line item matches.
func (o *Order) RenewalAmount(domainID int64) float64 {
	if o == nil {
		return 0
	}
	for _, item := range o.Items {
		if item.MatchesRenewal(domainID) {
			return item.Amount
		}
	}
	return 0
}

// TLDPricing is the price snapshot a domain records at registration time.
type TLDPricing struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	TLD           string    `gorm:"type:varchar(63);not null;uniqueIndex"`
	RegisterPrice float64   `gorm:"not null"`
	RenewPrice    float64   `gorm:"not null"`
	Currency      string    `gorm:"type:varchar(3);not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p *TLDPricing) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: tld pricing is required", ErrValidation)
	}
	if strings.TrimSpace(p.TLD) == "" {
		return fmt.Errorf("%w: tld is required", ErrValidation)
	}
	return nil
}
