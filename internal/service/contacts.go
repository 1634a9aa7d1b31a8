package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/rwandex/registrar-engine/internal/domain"
	"github.com/rwandex/registrar-engine/internal/ratelimit"
	"github.com/rwandex/registrar-engine/internal/registry"
	"github.com/rwandex/registrar-engine/internal/repository"
)

// ProvisioningPayload maps a stored contact onto the provider-facing field set.
func ProvisioningPayload(c *domain.Contact) registry.ContactPayload {
	if c == nil {
		return registry.ContactPayload{}
	}

	firstName, lastName := c.SplitName()
	registryContactID := ""
	if c.RegistryContactID != nil {
		registryContactID = *c.RegistryContactID
	}

	return registry.ContactPayload{
		ContactID:    registryContactID,
		Name:         c.Name,
		FirstName:    firstName,
		LastName:     lastName,
		Organization: c.Organization,
		Street1:      c.AddressOne,
		Street2:      c.AddressTwo,
		City:         c.City,
		Province:     c.Province,
		PostalCode:   c.PostalCode,
		CountryCode:  c.CountryCode,
		Voice:        c.Phone,
		VoiceExt:     c.PhoneExt,
		Fax:          c.Fax,
		Email:        c.Email,
	}
}

// ContactProvisioner ensures a stored contact exists at the local registry
// before it is referenced in a register call. Provisioning happens at most
// once per contact; the stored registry identifier short-circuits every later
// call.
type ContactProvisioner struct {
	contacts repository.ContactRepository
	client   registry.Service
	limiter  ratelimit.RateLimiter
	logger   *zap.Logger
}

func NewContactProvisioner(
	contacts repository.ContactRepository,
	client registry.Service,
	limiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*ContactProvisioner, error) {
	if contacts == nil {
		return nil, fmt.Errorf("contact repository is required")
	}
	if client == nil {
		return nil, fmt.Errorf("registry client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ContactProvisioner{
		contacts: contacts,
		client:   client,
		limiter:  limiter,
		logger:   logger,
	}, nil
}

// EnsureProvisioned returns the upstream registry identifier for a contact,
// creating the contact at the registry on first use.
func (p *ContactProvisioner) EnsureProvisioned(ctx context.Context, contactID int64) (string, error) {
	contact, err := p.contacts.GetByID(ctx, contactID)
	if err != nil {
		return "", fmt.Errorf("failed to load contact %d: %w", contactID, err)
	}

	if contact.IsProvisioned() {
		return *contact.RegistryContactID, nil
	}

	if missing := contact.MissingProvisioningField(); missing != "" {
		return "", fmt.Errorf("%w: contact %q is missing %s", domain.ErrValidation, contact.DisplayName(), missing)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, p.client.Kind().String()); err != nil {
			return "", err
		}
	}

	result, err := p.client.CreateContacts(ctx, ProvisioningPayload(contact))
	if err != nil {
		return "", fmt.Errorf("failed to create contact %q upstream: %w", contact.DisplayName(), err)
	}

	registryContactID := strings.TrimSpace(result.ContactID)
	if registryContactID == "" {
		return "", fmt.Errorf("registry returned empty identifier for contact %q", contact.DisplayName())
	}

	if err := p.contacts.SetRegistryContactID(ctx, contact.ID, registryContactID); err != nil {
		return "", fmt.Errorf("failed to store registry identifier for contact %d: %w", contact.ID, err)
	}

	p.logger.Info("contact provisioned upstream",
		zap.Int64("contactId", contact.ID),
		zap.String("registryContactId", registryContactID),
	)

	return registryContactID, nil
}

// DualContactResult tags one provider-side creation in a dual-create call.
type DualContactResult struct {
	ContactID string
	Provider  registry.Kind
	Message   string
}

// DualContactCoordinator creates the same contact at both registries in one
// pass. The local registry goes first; its failure aborts the whole call
// before the international provider is touched. A contact created locally is
// never rolled back when the second creation fails.
type DualContactCoordinator struct {
	clients registry.Clients
	limiter ratelimit.RateLimiter
	logger  *zap.Logger

	randIntn func(n int) int
}

func NewDualContactCoordinator(
	clients registry.Clients,
	limiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*DualContactCoordinator, error) {
	if clients.Local == nil || clients.International == nil {
		return nil, fmt.Errorf("both registry clients are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DualContactCoordinator{
		clients:  clients,
		limiter:  limiter,
		logger:   logger,
		randIntn: rand.Intn,
	}, nil
}

const contactIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func (c *DualContactCoordinator) newContactID() string {
	var b strings.Builder
	b.WriteString("RWX")
	for i := 0; i < 8; i++ {
		b.WriteByte(contactIDAlphabet[c.randIntn(len(contactIDAlphabet))])
	}
	return b.String()
}

// CreateDual creates the contact at both providers and returns one tagged
// result per successful creation. On a second-leg failure the first result is
// returned alongside the error.
func (c *DualContactCoordinator) CreateDual(ctx context.Context, payload registry.ContactPayload) ([]DualContactResult, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.ContactID) == "" {
		payload.ContactID = c.newContactID()
	}

	results := make([]DualContactResult, 0, 2)

	for _, client := range []registry.Service{c.clients.Local, c.clients.International} {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, client.Kind().String()); err != nil {
				return results, err
			}
		}

		created, err := client.CreateContacts(ctx, payload)
		if err != nil {
			if len(results) > 0 {
				c.logger.Warn("contact created at one provider only",
					zap.String("contactId", payload.ContactID),
					zap.String("failedProvider", client.Kind().String()),
					zap.Error(err),
				)
			}
			return results, fmt.Errorf("failed to create contact at %s provider: %w", client.Kind(), err)
		}

		results = append(results, DualContactResult{
			ContactID: created.ContactID,
			Provider:  client.Kind(),
			Message:   created.Message,
		})
	}

	return results, nil
}
