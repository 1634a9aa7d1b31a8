package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rwandex/registrar-engine/internal/domain"
	"github.com/rwandex/registrar-engine/internal/notify"
	"github.com/rwandex/registrar-engine/internal/observability"
	"github.com/rwandex/registrar-engine/internal/ratelimit"
	"github.com/rwandex/registrar-engine/internal/registry"
	"github.com/rwandex/registrar-engine/internal/repository"
)

// ContactProvisioning is the slice of ContactProvisioner the registration
// flow depends on.
type ContactProvisioning interface {
	EnsureProvisioned(ctx context.Context, contactID int64) (string, error)
}

// RegisterParams is one registration request after checkout.
type RegisterParams struct {
	DomainName       string
	Contacts         domain.RoleContactIDs
	Years            int
	Nameservers      []string
	UseSingleContact bool
	UserID           int64
}

// RegistrationResult is the outcome of a registration attempt. A failed
// attempt carries a customer-facing message instead of an error; the flow
// never lets an internal failure escape to the caller.
type RegistrationResult struct {
	Success  bool
	Domain   *domain.Domain
	Message  string
	Provider registry.Kind
}

// RegistrationService drives a domain registration end to end: role
// normalization, provider-specific contact preparation, the upstream register
// call, and local persistence of the confirmed domain.
type RegistrationService struct {
	domains     repository.DomainRepository
	contacts    repository.ContactRepository
	nameservers repository.NameserverRepository
	pricing     repository.PricingRepository
	clients     registry.Clients
	provisioner ContactProvisioning
	limiter     ratelimit.RateLimiter
	notifier    notify.Notifier
	metrics     *observability.Metrics
	logger      *zap.Logger

	defaultNameservers []string
	now                func() time.Time
}

func NewRegistrationService(
	domains repository.DomainRepository,
	contacts repository.ContactRepository,
	nameservers repository.NameserverRepository,
	pricing repository.PricingRepository,
	clients registry.Clients,
	provisioner ContactProvisioning,
	limiter ratelimit.RateLimiter,
	notifier notify.Notifier,
	metrics *observability.Metrics,
	defaultNameservers []string,
	logger *zap.Logger,
) (*RegistrationService, error) {
	if domains == nil {
		return nil, fmt.Errorf("domain repository is required")
	}
	if contacts == nil {
		return nil, fmt.Errorf("contact repository is required")
	}
	if nameservers == nil {
		return nil, fmt.Errorf("nameserver repository is required")
	}
	if clients.Local == nil || clients.International == nil {
		return nil, fmt.Errorf("both registry clients are required")
	}
	if provisioner == nil {
		return nil, fmt.Errorf("contact provisioner is required")
	}
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RegistrationService{
		domains:            domains,
		contacts:           contacts,
		nameservers:        nameservers,
		pricing:            pricing,
		clients:            clients,
		provisioner:        provisioner,
		limiter:            limiter,
		notifier:           notifier,
		metrics:            metrics,
		logger:             logger,
		defaultNameservers: domain.NormalizeNameserverNames(defaultNameservers),
		now:                time.Now,
	}, nil
}

// Register attempts one registration and always returns a result, converting
// every internal failure into Success=false with a message.
func (s *RegistrationService) Register(ctx context.Context, params RegisterParams) (result *RegistrationResult) {
	domainName := strings.ToLower(strings.TrimSpace(params.DomainName))

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("registration panicked",
				zap.String("domain", domainName),
				zap.Any("panic", r),
			)
			result = &RegistrationResult{
				Success: false,
				Message: fmt.Sprintf("Registration of %s failed due to an internal error.", domainName),
			}
		}
	}()

	if domainName == "" {
		return &RegistrationResult{Success: false, Message: "A domain name is required."}
	}
	if params.Years < 1 {
		return &RegistrationResult{Success: false, Message: "Registration period must be at least one year."}
	}
	if params.UserID <= 0 {
		return &RegistrationResult{Success: false, Message: "A domain owner is required."}
	}

	roles, err := normalizeRoles(params.Contacts, params.UseSingleContact)
	if err != nil {
		s.logger.Warn("registration rejected: invalid contacts",
			zap.String("domain", domainName),
			zap.Error(err),
		)
		return &RegistrationResult{Success: false, Message: "At least one contact is required."}
	}

	client, kind := s.clients.Select(domainName)

	assignments, err := s.prepareContacts(ctx, client.Kind(), roles)
	if err != nil {
		s.logger.Error("registration failed: contact preparation",
			zap.String("domain", domainName),
			zap.String("provider", kind.String()),
			zap.Error(err),
		)
		return &RegistrationResult{
			Success:  false,
			Message:  registry.FailureMessage(err),
			Provider: kind,
		}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, kind.String()); err != nil {
			return &RegistrationResult{
				Success:  false,
				Message:  registry.FailureMessage(err),
				Provider: kind,
			}
		}
	}

	start := s.now()
	registerErr := client.RegisterDomain(ctx, domainName, assignments, params.Years)
	s.metrics.ObserveRegistryCallDuration(kind.String(), "register", s.now().Sub(start))

	if registerErr != nil {
		s.metrics.IncRegistration(kind.String(), false)
		s.logger.Warn("registration rejected upstream",
			zap.String("domain", domainName),
			zap.String("provider", kind.String()),
			zap.Error(registerErr),
		)
		return &RegistrationResult{
			Success:  false,
			Message:  friendlyRegistrationFailure(domainName, registerErr),
			Provider: kind,
		}
	}

	s.metrics.IncRegistration(kind.String(), true)

	registered, err := s.persistDomain(ctx, domainName, kind, roles, params)
	if err != nil {
		s.logger.Error("registration confirmed upstream but persistence failed",
			zap.String("domain", domainName),
			zap.String("provider", kind.String()),
			zap.Error(err),
		)
		return &RegistrationResult{
			Success:  false,
			Message:  fmt.Sprintf("Registration of %s could not be completed.", domainName),
			Provider: kind,
		}
	}

	s.applyNameservers(ctx, client, registered, params.Nameservers)

	_ = s.notifier.DomainRegistered(ctx, params.UserID, domainName, params.Years)

	return &RegistrationResult{
		Success:  true,
		Domain:   registered,
		Message:  fmt.Sprintf("%s has been registered successfully.", domainName),
		Provider: kind,
	}
}

// normalizeRoles fills all four role slots from any non-empty contact set.
// Single-contact mode fans one contact out to every role; otherwise a missing
// role inherits the nearest previously resolved one in
// registrant/admin/technical/billing order. The registrant slot itself
// resolves from the first supplied role in that order, so a set without a
// registrant is still valid.
func normalizeRoles(contacts domain.RoleContactIDs, useSingleContact bool) (domain.RoleContactIDs, error) {
	var seed int64
	for _, role := range domain.ContactRoles() {
		if id, ok := contacts[role]; ok && id > 0 {
			seed = id
			break
		}
	}
	if seed == 0 {
		return nil, fmt.Errorf("%w: at least one contact is required", domain.ErrValidation)
	}

	normalized := make(domain.RoleContactIDs, 4)

	if useSingleContact {
		for _, role := range domain.ContactRoles() {
			normalized[role] = seed
		}
		return normalized, nil
	}

	last := seed
	for _, role := range domain.ContactRoles() {
		if id, ok := contacts[role]; ok && id > 0 {
			last = id
		}
		normalized[role] = last
	}
	return normalized, nil
}

// prepareContacts builds the provider-facing role assignments. The local
// registry takes pre-provisioned identifiers; the international provider
// takes the full contact field set per role.
func (s *RegistrationService) prepareContacts(
	ctx context.Context,
	kind registry.Kind,
	roles domain.RoleContactIDs,
) (registry.RoleAssignments, error) {
	assignments := make(registry.RoleAssignments, len(roles))

	if kind == registry.KindLocal {
		provisioned := make(map[int64]string, len(roles))
		for role, contactID := range roles {
			registryContactID, ok := provisioned[contactID]
			if !ok {
				var err error
				registryContactID, err = s.provisioner.EnsureProvisioned(ctx, contactID)
				if err != nil {
					return nil, err
				}
				provisioned[contactID] = registryContactID
			}
			assignments[role] = registry.ContactAssignment{ContactID: registryContactID}
		}
		return assignments, nil
	}

	loaded := make(map[int64]*domain.Contact, len(roles))
	for role, contactID := range roles {
		contact, ok := loaded[contactID]
		if !ok {
			var err error
			contact, err = s.contacts.GetByID(ctx, contactID)
			if err != nil {
				return nil, fmt.Errorf("failed to load contact %d: %w", contactID, err)
			}
			loaded[contactID] = contact
		}
		if missing := contact.MissingProvisioningField(); missing != "" {
			return nil, fmt.Errorf("%w: contact %q is missing %s", domain.ErrValidation, contact.DisplayName(), missing)
		}
		payload := ProvisioningPayload(contact)
		assignments[role] = registry.ContactAssignment{Fields: &payload}
	}
	return assignments, nil
}

func (s *RegistrationService) persistDomain(
	ctx context.Context,
	domainName string,
	kind registry.Kind,
	roles domain.RoleContactIDs,
	params RegisterParams,
) (*domain.Domain, error) {
	now := s.now()

	registered := &domain.Domain{
		UUID:         uuid.NewString(),
		Name:         domainName,
		OwnerID:      params.UserID,
		RegisteredAt: now,
		ExpiresAt:    now.AddDate(params.Years, 0, 0),
		Years:        params.Years,
		Status:       domain.DomainStatusActive,
		IsLocked:     true,
		Provider:     kind.String(),
	}

	if s.pricing != nil {
		pricing, err := s.pricing.GetByTLD(ctx, domain.TLD(domainName))
		switch {
		case err == nil:
			registered.TLDPricingID = &pricing.ID
		case errors.Is(err, domain.ErrNotFound):
			// A registered TLD without a pricing row is a data problem, not
			// a reason to fail the registration.
			s.logger.Error("no pricing row for registered tld",
				zap.String("domain", domainName),
				zap.String("tld", domain.TLD(domainName)),
			)
		default:
			s.logger.Error("failed to load tld pricing", zap.String("domain", domainName), zap.Error(err))
		}
	}

	if err := s.domains.Create(ctx, registered); err != nil {
		return nil, fmt.Errorf("failed to persist domain: %w", err)
	}

	if err := s.domains.ReplaceContacts(ctx, registered.ID, roles, params.UserID); err != nil {
		return nil, fmt.Errorf("failed to persist domain contacts: %w", err)
	}

	return registered, nil
}

// applyNameservers persists and pushes the effective nameserver set. An empty
// request falls back to the operator defaults; when those are empty too the
// whole step is skipped. The upstream push is advisory: a rejection is logged
// and never fails the registration.
func (s *RegistrationService) applyNameservers(
	ctx context.Context,
	client registry.Service,
	registered *domain.Domain,
	requested []string,
) {
	names := domain.NormalizeNameserverNames(requested)
	nsType := domain.NameserverTypeCustom
	if len(names) == 0 {
		names = s.defaultNameservers
		nsType = domain.NameserverTypeDefault
	}
	if len(names) == 0 {
		return
	}

	nameserverIDs := make([]int64, 0, len(names))
	for i, name := range names {
		ns := &domain.Nameserver{
			Name:     name,
			Type:     nsType,
			Priority: i + 1,
			Status:   domain.NameserverStatusActive,
		}
		if err := s.nameservers.UpsertByName(ctx, ns); err != nil {
			s.logger.Error("failed to upsert nameserver",
				zap.String("domain", registered.Name),
				zap.String("nameserver", name),
				zap.Error(err),
			)
			return
		}
		nameserverIDs = append(nameserverIDs, ns.ID)
	}

	if err := s.domains.SyncNameservers(ctx, registered.ID, nameserverIDs); err != nil {
		s.logger.Error("failed to sync domain nameservers",
			zap.String("domain", registered.Name),
			zap.Error(err),
		)
		return
	}

	if err := client.UpdateNameservers(ctx, registered.Name, names); err != nil {
		s.logger.Warn("upstream nameserver update rejected",
			zap.String("domain", registered.Name),
			zap.Strings("nameservers", names),
			zap.Error(err),
		)
	}
}

// friendlyRegistrationFailure rewrites availability races into a
// customer-facing message; everything else passes through as reported.
func friendlyRegistrationFailure(domainName string, err error) string {
	message := registry.FailureMessage(err)
	lowered := strings.ToLower(message)
	if strings.Contains(lowered, "not available") || strings.Contains(lowered, "already registered") {
		return fmt.Sprintf("The domain %s is no longer available. It may have been registered by someone else just now.", domainName)
	}
	return message
}
