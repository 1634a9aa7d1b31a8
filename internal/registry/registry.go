package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/rwandex/registrar-engine/internal/domain"
)

// Kind tags which upstream registry a Service talks to. Callers switch on the
// kind directly instead of type-testing concrete clients.
type Kind string

const (
	// KindLocal is the ccTLD registry handling .rw names (EPP gateway).
	KindLocal Kind = "epp"
	// KindInternational is the reseller-API registrar handling everything else.
	KindInternational Kind = "international"
)

func (k Kind) String() string { return string(k) }

// ContactPayload is the provider-facing contact field set. It replaces the
// loose maps passed around historically; required fields are checked at the
// call boundary, not by scattered lookups.
type ContactPayload struct {
	ContactID    string
	Name         string
	FirstName    string
	LastName     string
	Organization string
	Street1      string
	Street2      string
	City         string
	Province     string
	PostalCode   string
	CountryCode  string
	Voice        string
	VoiceExt     string
	Fax          string
	Email        string
}

func (p ContactPayload) Validate() error {
	checks := []struct {
		field string
		value string
	}{
		{"name", p.Name},
		{"street1", p.Street1},
		{"city", p.City},
		{"country code", p.CountryCode},
		{"voice", p.Voice},
		{"email", p.Email},
	}
	for _, check := range checks {
		if strings.TrimSpace(check.value) == "" {
			return fmt.Errorf("%w: contact payload is missing %s", domain.ErrValidation, check.field)
		}
	}
	return nil
}

// ContactAssignment is one role slot in a register call. The local registry
// takes pre-provisioned identifiers; the international provider takes the
// full field set instead.
type ContactAssignment struct {
	ContactID string
	Fields    *ContactPayload
}

// RoleAssignments maps each of the four roles to its contact assignment.
type RoleAssignments map[domain.ContactRole]ContactAssignment

// ContactResult is the upstream acknowledgement of a contact creation.
type ContactResult struct {
	ContactID string
	Message   string
}

// Availability is one entry of a domain search result.
type Availability struct {
	Available bool
	Reason    string
	Price     float64
}

// Service is the capability port every concrete registry client implements.
// Register/renew/nameserver rejections surface as *ProviderError.
type Service interface {
	Kind() Kind
	RegisterDomain(ctx context.Context, name string, contacts RoleAssignments, years int) error
	RenewDomainRegistration(ctx context.Context, name string, years int) error
	UpdateNameservers(ctx context.Context, name string, nameservers []string) error
	CreateContacts(ctx context.Context, payload ContactPayload) (*ContactResult, error)
	SearchDomains(ctx context.Context, base string, tlds []string) (map[string]Availability, error)
}

// Clients bundles the two upstream registries so orchestrators receive both
// via plain constructor injection.
type Clients struct {
	Local         Service
	International Service
}

// Select routes a domain name to its registry: .rw goes to the local ccTLD
// registry, every other TLD to the international provider. This binary split
// is the sole routing rule in the system.
func (c Clients) Select(domainName string) (Service, Kind) {
	if domain.TLD(domainName) == "rw" {
		return c.Local, KindLocal
	}
	return c.International, KindInternational
}

// ByKind returns the client registered for a kind.
func (c Clients) ByKind(kind Kind) (Service, error) {
	switch kind {
	case KindLocal:
		return c.Local, nil
	case KindInternational:
		return c.International, nil
	default:
		return nil, fmt.Errorf("unknown registry kind %q", kind)
	}
}
