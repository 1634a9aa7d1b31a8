package domain

import (
	"fmt"
	"strings"
	"time"
)

// ContactRole is one of the four contact slots every domain carries.
type ContactRole string

const (
	RoleRegistrant ContactRole = "registrant"
	RoleAdmin      ContactRole = "admin"
	RoleTechnical  ContactRole = "technical"
	RoleBilling    ContactRole = "billing"
)

func (r ContactRole) String() string { return string(r) }

func (r ContactRole) IsValid() bool {
	switch r {
	case RoleRegistrant, RoleAdmin, RoleTechnical, RoleBilling:
		return true
	}
	return false
}

func ParseContactRoleFromString(s string) (ContactRole, error) {
	role := ContactRole(strings.ToLower(strings.TrimSpace(s)))
	if !role.IsValid() {
		return "", fmt.Errorf("%w: invalid contact role %q", ErrValidation, s)
	}
	return role, nil
}

// ContactRoles returns the four roles in fallback-inheritance order:
// a missing role inherits the nearest previously resolved one.
func ContactRoles() []ContactRole {
	return []ContactRole{RoleRegistrant, RoleAdmin, RoleTechnical, RoleBilling}
}

// Contact is a registrant/admin/technical/billing identity. RegistryContactID
// is nil until the contact has been provisioned upstream; once set it is
// immutable (registries do not support renaming).
type Contact struct {
	ID                int64     `gorm:"primaryKey;autoIncrement"`
	UUID              string    `gorm:"type:uuid;not null;uniqueIndex"`
	RegistryContactID *string   `gorm:"type:varchar(64);uniqueIndex"`
	Name              string    `gorm:"type:varchar(255);not null"`
	Organization      string    `gorm:"type:varchar(255)"`
	AddressOne        string    `gorm:"type:varchar(255)"`
	AddressTwo        string    `gorm:"type:varchar(255)"`
	City              string    `gorm:"type:varchar(128)"`
	Province          string    `gorm:"type:varchar(128)"`
	PostalCode        string    `gorm:"type:varchar(32)"`
	CountryCode       string    `gorm:"type:varchar(2)"`
	Phone             string    `gorm:"type:varchar(32)"`
	PhoneExt          string    `gorm:"type:varchar(16)"`
	Fax               string    `gorm:"type:varchar(32)"`
	Email             string    `gorm:"type:varchar(255)"`
	UserID            int64     `gorm:"not null;index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsProvisioned reports whether an upstream registry identifier exists.
func (c *Contact) IsProvisioned() bool {
	return c != nil && c.RegistryContactID != nil && strings.TrimSpace(*c.RegistryContactID) != ""
}

// DisplayName is used in operator-facing error messages.
func (c *Contact) DisplayName() string {
	if c == nil {
		return "<nil contact>"
	}
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return fmt.Sprintf("contact #%d", c.ID)
}

// MissingProvisioningField returns the first field a registry requires for
// contact creation that this record does not have, or "" if complete.
func (c *Contact) MissingProvisioningField() string {
	if c == nil {
		return "contact"
	}
	checks := []struct {
		field string
		value string
	}{
		{"name", c.Name},
		{"address line 1", c.AddressOne},
		{"city", c.City},
		{"country code", c.CountryCode},
		{"phone", c.Phone},
		{"email", c.Email},
	}
	for _, check := range checks {
		if strings.TrimSpace(check.value) == "" {
			return check.field
		}
	}
	return ""
}

// SplitName splits a full name into first/last for providers that take the
// pair instead of a single concatenated name.
func (c *Contact) SplitName() (string, string) {
	parts := strings.Fields(strings.TrimSpace(c.Name))
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], parts[0]
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
