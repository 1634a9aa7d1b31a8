package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rwandex/registrar-engine/internal/domain"
	"github.com/rwandex/registrar-engine/internal/registry"
)

func TestNormalizeRolesSingleContact(t *testing.T) {
	t.Parallel()

	roles, err := normalizeRoles(domain.RoleContactIDs{domain.RoleRegistrant: 7}, true)
	if err != nil {
		t.Fatalf("normalizeRoles() error = %v", err)
	}

	for _, role := range domain.ContactRoles() {
		if roles[role] != 7 {
			t.Fatalf("role %s = %d, want 7", role, roles[role])
		}
	}
}

func TestNormalizeRolesInheritsNearestResolved(t *testing.T) {
	t.Parallel()

	roles, err := normalizeRoles(domain.RoleContactIDs{
		domain.RoleRegistrant: 1,
		domain.RoleTechnical:  3,
	}, false)
	if err != nil {
		t.Fatalf("normalizeRoles() error = %v", err)
	}

	if roles[domain.RoleAdmin] != 1 {
		t.Fatalf("admin = %d, want 1 (inherited from registrant)", roles[domain.RoleAdmin])
	}
	if roles[domain.RoleTechnical] != 3 {
		t.Fatalf("technical = %d, want 3", roles[domain.RoleTechnical])
	}
	if roles[domain.RoleBilling] != 3 {
		t.Fatalf("billing = %d, want 3 (inherited from technical)", roles[domain.RoleBilling])
	}
}

func TestNormalizeRolesSeedsRegistrantFromFirstSuppliedRole(t *testing.T) {
	t.Parallel()

	roles, err := normalizeRoles(domain.RoleContactIDs{domain.RoleTechnical: 7}, false)
	if err != nil {
		t.Fatalf("normalizeRoles() error = %v", err)
	}

	for _, role := range domain.ContactRoles() {
		if roles[role] != 7 {
			t.Fatalf("role %s = %d, want 7 (seeded from technical)", role, roles[role])
		}
	}
}

func TestNormalizeRolesSeedsThenInherits(t *testing.T) {
	t.Parallel()

	roles, err := normalizeRoles(domain.RoleContactIDs{
		domain.RoleAdmin:   2,
		domain.RoleBilling: 9,
	}, false)
	if err != nil {
		t.Fatalf("normalizeRoles() error = %v", err)
	}

	if roles[domain.RoleRegistrant] != 2 {
		t.Fatalf("registrant = %d, want 2 (seeded from admin)", roles[domain.RoleRegistrant])
	}
	if roles[domain.RoleAdmin] != 2 {
		t.Fatalf("admin = %d, want 2", roles[domain.RoleAdmin])
	}
	if roles[domain.RoleTechnical] != 2 {
		t.Fatalf("technical = %d, want 2 (inherited from admin)", roles[domain.RoleTechnical])
	}
	if roles[domain.RoleBilling] != 9 {
		t.Fatalf("billing = %d, want 9", roles[domain.RoleBilling])
	}
}

func TestNormalizeRolesRequiresAContact(t *testing.T) {
	t.Parallel()

	if _, err := normalizeRoles(domain.RoleContactIDs{}, false); err == nil {
		t.Fatal("expected error without any contact")
	}
	if _, err := normalizeRoles(domain.RoleContactIDs{domain.RoleAdmin: 0}, false); err == nil {
		t.Fatal("expected error when every supplied id is zero")
	}
}

type registrationFixture struct {
	domains     *fakeDomainRepo
	contacts    *fakeContactRepo
	nameservers *fakeNameserverRepo
	pricing     *fakePricingRepo
	local       *fakeRegistryService
	intl        *fakeRegistryService
	provisioner *fakeProvisioner
	notifier    *fakeNotifier
}

func newRegistrationFixture() *registrationFixture {
	return &registrationFixture{
		domains:     &fakeDomainRepo{},
		contacts:    &fakeContactRepo{},
		nameservers: &fakeNameserverRepo{},
		pricing:     &fakePricingRepo{},
		local:       &fakeRegistryService{kind: registry.KindLocal},
		intl:        &fakeRegistryService{kind: registry.KindInternational},
		provisioner: &fakeProvisioner{},
		notifier:    &fakeNotifier{},
	}
}

func (f *registrationFixture) build(t *testing.T) *RegistrationService {
	t.Helper()

	svc, err := NewRegistrationService(
		f.domains,
		f.contacts,
		f.nameservers,
		f.pricing,
		registry.Clients{Local: f.local, International: f.intl},
		f.provisioner,
		nil,
		f.notifier,
		nil,
		[]string{"ns1.registrar.rw", "ns2.registrar.rw"},
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("NewRegistrationService() error = %v", err)
	}
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestRegisterLocalDomainHappyPath(t *testing.T) {
	t.Parallel()

	f := newRegistrationFixture()

	f.provisioner.fn = func(ctx context.Context, contactID int64) (string, error) {
		return "C9-1700000000", nil
	}

	var registeredAssignments registry.RoleAssignments
	f.local.registerDomainFn = func(ctx context.Context, name string, contacts registry.RoleAssignments, years int) error {
		if name != "example.rw" {
			t.Fatalf("registered name = %q, want example.rw", name)
		}
		if years != 2 {
			t.Fatalf("years = %d, want 2", years)
		}
		registeredAssignments = contacts
		return nil
	}

	var created *domain.Domain
	f.domains.createFn = func(ctx context.Context, d *domain.Domain) error {
		d.ID = 11
		created = d
		return nil
	}

	var syncedIDs []int64
	f.domains.syncNameserversFn = func(ctx context.Context, domainID int64, nameserverIDs []int64) error {
		syncedIDs = nameserverIDs
		return nil
	}

	upserted := make([]*domain.Nameserver, 0, 2)
	f.nameservers.upsertByNameFn = func(ctx context.Context, ns *domain.Nameserver) error {
		ns.ID = int64(len(upserted) + 1)
		upserted = append(upserted, ns)
		return nil
	}

	var pushedNameservers []string
	f.local.updateNameserversFn = func(ctx context.Context, name string, nameservers []string) error {
		pushedNameservers = nameservers
		return nil
	}

	svc := f.build(t)
	result := svc.Register(context.Background(), RegisterParams{
		DomainName: "Example.RW",
		Contacts:   domain.RoleContactIDs{domain.RoleRegistrant: 9},
		Years:      2,
		UserID:     5,
	})

	if !result.Success {
		t.Fatalf("Register() failed: %s", result.Message)
	}
	if result.Provider != registry.KindLocal {
		t.Fatalf("provider = %s, want epp", result.Provider)
	}

	if len(registeredAssignments) != 4 {
		t.Fatalf("assignments count = %d, want 4", len(registeredAssignments))
	}
	for role, assignment := range registeredAssignments {
		if assignment.ContactID != "C9-1700000000" {
			t.Fatalf("role %s contact id = %q", role, assignment.ContactID)
		}
	}
	if f.provisioner.calls != 1 {
		t.Fatalf("provisioner calls = %d, want 1 (shared contact provisioned once)", f.provisioner.calls)
	}

	if created == nil {
		t.Fatal("domain was not persisted")
	}
	if !created.IsLocked {
		t.Fatal("new domain must be locked")
	}
	if created.Status != domain.DomainStatusActive {
		t.Fatalf("status = %s, want ACTIVE", created.Status)
	}
	if created.Provider != "epp" {
		t.Fatalf("provider column = %q, want epp", created.Provider)
	}
	wantExpiry := time.Date(2028, 9, 1, 12, 0, 0, 0, time.UTC)
	if !created.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expiry = %v, want %v", created.ExpiresAt, wantExpiry)
	}

	if len(upserted) != 2 {
		t.Fatalf("upserted nameservers = %d, want 2 defaults", len(upserted))
	}
	if upserted[0].Name != "ns1.registrar.rw" || upserted[0].Priority != 1 {
		t.Fatalf("first default = %+v", upserted[0])
	}
	if upserted[1].Name != "ns2.registrar.rw" || upserted[1].Priority != 2 {
		t.Fatalf("second default = %+v", upserted[1])
	}
	if upserted[0].Type != domain.NameserverTypeDefault {
		t.Fatalf("default nameserver type = %s", upserted[0].Type)
	}
	if len(syncedIDs) != 2 {
		t.Fatalf("synced ids = %v, want 2", syncedIDs)
	}
	if len(pushedNameservers) != 2 {
		t.Fatalf("pushed nameservers = %v", pushedNameservers)
	}

	if f.notifier.registered != 1 {
		t.Fatalf("owner notifications = %d, want 1", f.notifier.registered)
	}
}

func TestRegisterCustomNameserversKeepOrder(t *testing.T) {
	t.Parallel()

	f := newRegistrationFixture()
	f.provisioner.fn = func(ctx context.Context, contactID int64) (string, error) { return "C1-1", nil }
	f.domains.createFn = func(ctx context.Context, d *domain.Domain) error {
		d.ID = 1
		return nil
	}

	upserted := make([]*domain.Nameserver, 0, 2)
	f.nameservers.upsertByNameFn = func(ctx context.Context, ns *domain.Nameserver) error {
		ns.ID = int64(len(upserted) + 1)
		upserted = append(upserted, ns)
		return nil
	}

	svc := f.build(t)
	result := svc.Register(context.Background(), RegisterParams{
		DomainName:  "example.rw",
		Contacts:    domain.RoleContactIDs{domain.RoleRegistrant: 1},
		Years:       1,
		Nameservers: []string{"NS1.Custom.com ", "ns1.custom.com", "ns2.custom.com"},
		UserID:      5,
	})

	if !result.Success {
		t.Fatalf("Register() failed: %s", result.Message)
	}
	if len(upserted) != 2 {
		t.Fatalf("upserted = %d, want 2 after dedupe", len(upserted))
	}
	if upserted[0].Name != "ns1.custom.com" || upserted[1].Name != "ns2.custom.com" {
		t.Fatalf("upserted order = %v, %v", upserted[0].Name, upserted[1].Name)
	}
	if upserted[0].Type != domain.NameserverTypeCustom {
		t.Fatalf("custom nameserver type = %s", upserted[0].Type)
	}
}

func TestRegisterInternationalSendsFullContactFields(t *testing.T) {
	t.Parallel()

	f := newRegistrationFixture()

	f.contacts.getByIDFn = func(ctx context.Context, id int64) (*domain.Contact, error) {
		return &domain.Contact{
			ID:          id,
			Name:        "Jane Doe",
			AddressOne:  "1 Main St",
			City:        "Austin",
			CountryCode: "US",
			Phone:       "+15125550100",
			Email:       "jane@example.com",
		}, nil
	}

	var assignments registry.RoleAssignments
	f.intl.registerDomainFn = func(ctx context.Context, name string, contacts registry.RoleAssignments, years int) error {
		assignments = contacts
		return nil
	}
	f.domains.createFn = func(ctx context.Context, d *domain.Domain) error {
		d.ID = 2
		return nil
	}

	svc := f.build(t)
	result := svc.Register(context.Background(), RegisterParams{
		DomainName: "example.com",
		Contacts:   domain.RoleContactIDs{domain.RoleRegistrant: 4},
		Years:      1,
		UserID:     5,
	})

	if !result.Success {
		t.Fatalf("Register() failed: %s", result.Message)
	}
	if result.Provider != registry.KindInternational {
		t.Fatalf("provider = %s, want international", result.Provider)
	}
	if f.provisioner.calls != 0 {
		t.Fatal("international registrations must not provision local registry contacts")
	}
	for role, assignment := range assignments {
		if assignment.Fields == nil {
			t.Fatalf("role %s has no field set", role)
		}
		if assignment.Fields.Street1 != "1 Main St" {
			t.Fatalf("role %s street1 = %q", role, assignment.Fields.Street1)
		}
	}
}

func TestRegisterNotAvailableGetsFriendlyMessage(t *testing.T) {
	t.Parallel()

	f := newRegistrationFixture()
	f.provisioner.fn = func(ctx context.Context, contactID int64) (string, error) { return "C1-1", nil }
	f.local.registerDomainFn = func(ctx context.Context, name string, contacts registry.RoleAssignments, years int) error {
		return &registry.ProviderError{StatusCode: 409, Message: "Domain not available"}
	}

	svc := f.build(t)
	result := svc.Register(context.Background(), RegisterParams{
		DomainName: "taken.rw",
		Contacts:   domain.RoleContactIDs{domain.RoleRegistrant: 1},
		Years:      1,
		UserID:     5,
	})

	if result.Success {
		t.Fatal("expected failure result")
	}
	if !strings.Contains(result.Message, "no longer available") {
		t.Fatalf("message = %q, want availability wording", result.Message)
	}
	if !strings.Contains(result.Message, "someone else") {
		t.Fatalf("message = %q, want race explanation", result.Message)
	}
}

func TestRegisterUpstreamMessagePassesThrough(t *testing.T) {
	t.Parallel()

	f := newRegistrationFixture()
	f.provisioner.fn = func(ctx context.Context, contactID int64) (string, error) { return "C1-1", nil }
	f.local.registerDomainFn = func(ctx context.Context, name string, contacts registry.RoleAssignments, years int) error {
		return &registry.ProviderError{StatusCode: 400, Message: "Invalid nameserver host"}
	}

	svc := f.build(t)
	result := svc.Register(context.Background(), RegisterParams{
		DomainName: "example.rw",
		Contacts:   domain.RoleContactIDs{domain.RoleRegistrant: 1},
		Years:      1,
		UserID:     5,
	})

	if result.Success {
		t.Fatal("expected failure result")
	}
	if result.Message != "Invalid nameserver host" {
		t.Fatalf("message = %q, want upstream message", result.Message)
	}
}

func TestRegisterNameserverPushFailureStillSucceeds(t *testing.T) {
	t.Parallel()

	f := newRegistrationFixture()
	f.provisioner.fn = func(ctx context.Context, contactID int64) (string, error) { return "C1-1", nil }
	f.domains.createFn = func(ctx context.Context, d *domain.Domain) error {
		d.ID = 3
		return nil
	}
	f.nameservers.upsertByNameFn = func(ctx context.Context, ns *domain.Nameserver) error {
		ns.ID = 1
		return nil
	}
	f.local.updateNameserversFn = func(ctx context.Context, name string, nameservers []string) error {
		return &registry.ProviderError{StatusCode: 500, Message: "nameserver sync unavailable", Transient: true}
	}

	svc := f.build(t)
	result := svc.Register(context.Background(), RegisterParams{
		DomainName: "example.rw",
		Contacts:   domain.RoleContactIDs{domain.RoleRegistrant: 1},
		Years:      1,
		UserID:     5,
	})

	if !result.Success {
		t.Fatalf("registration must survive advisory nameserver push failure: %s", result.Message)
	}
}

func TestRegisterWaitsOnProviderLimiter(t *testing.T) {
	t.Parallel()

	f := newRegistrationFixture()
	f.provisioner.fn = func(ctx context.Context, contactID int64) (string, error) { return "C1-1", nil }
	f.domains.createFn = func(ctx context.Context, d *domain.Domain) error {
		d.ID = 4
		return nil
	}

	limiter := &fakeLimiter{}
	registerCalled := false
	f.local.registerDomainFn = func(ctx context.Context, name string, contacts registry.RoleAssignments, years int) error {
		if len(limiter.waited) == 0 {
			t.Fatal("limiter must be consulted before the upstream call")
		}
		registerCalled = true
		return nil
	}

	svc, err := NewRegistrationService(
		f.domains,
		f.contacts,
		f.nameservers,
		f.pricing,
		registry.Clients{Local: f.local, International: f.intl},
		f.provisioner,
		limiter,
		f.notifier,
		nil,
		nil,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("NewRegistrationService() error = %v", err)
	}

	result := svc.Register(context.Background(), RegisterParams{
		DomainName: "example.rw",
		Contacts:   domain.RoleContactIDs{domain.RoleRegistrant: 1},
		Years:      1,
		UserID:     5,
	})

	if !result.Success {
		t.Fatalf("Register() failed: %s", result.Message)
	}
	if !registerCalled {
		t.Fatal("upstream register was not reached")
	}
	if limiter.waited[len(limiter.waited)-1] != "epp" {
		t.Fatalf("limiter keys = %v, want epp last", limiter.waited)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	t.Parallel()

	svc := newRegistrationFixture().build(t)

	if result := svc.Register(context.Background(), RegisterParams{Years: 1, UserID: 1}); result.Success {
		t.Fatal("empty domain name must fail")
	}
	if result := svc.Register(context.Background(), RegisterParams{DomainName: "a.rw", UserID: 1}); result.Success {
		t.Fatal("zero years must fail")
	}
	if result := svc.Register(context.Background(), RegisterParams{DomainName: "a.rw", Years: 1}); result.Success {
		t.Fatal("missing owner must fail")
	}
}

func TestRegisterRecoversFromPanic(t *testing.T) {
	t.Parallel()

	f := newRegistrationFixture()
	f.provisioner.fn = func(ctx context.Context, contactID int64) (string, error) { return "C1-1", nil }
	f.domains.createFn = func(ctx context.Context, d *domain.Domain) error {
		panic("storage driver bug")
	}

	svc := f.build(t)
	result := svc.Register(context.Background(), RegisterParams{
		DomainName: "example.rw",
		Contacts:   domain.RoleContactIDs{domain.RoleRegistrant: 1},
		Years:      1,
		UserID:     5,
	})

	if result == nil {
		t.Fatal("result must not be nil after panic")
	}
	if result.Success {
		t.Fatal("panicked registration must report failure")
	}
}

type fakeDomainRepo struct {
	createFn          func(ctx context.Context, d *domain.Domain) error
	getByIDFn         func(ctx context.Context, id int64) (*domain.Domain, error)
	getByNameFn       func(ctx context.Context, name string) (*domain.Domain, error)
	updateExpiryFn    func(ctx context.Context, id int64, newExpiresAt time.Time, renewedAt time.Time) error
	replaceContactsFn func(ctx context.Context, domainID int64, contacts domain.RoleContactIDs, userID int64) error
	syncNameserversFn func(ctx context.Context, domainID int64, nameserverIDs []int64) error
	getContactsFn     func(ctx context.Context, domainID int64) ([]domain.DomainContact, error)
	getNameserversFn  func(ctx context.Context, domainID int64) ([]domain.DomainNameserver, error)
}

func (f *fakeDomainRepo) Create(ctx context.Context, d *domain.Domain) error {
	if f.createFn != nil {
		return f.createFn(ctx, d)
	}
	return nil
}

func (f *fakeDomainRepo) GetByID(ctx context.Context, id int64) (*domain.Domain, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDomainRepo) GetByName(ctx context.Context, name string) (*domain.Domain, error) {
	if f.getByNameFn != nil {
		return f.getByNameFn(ctx, name)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDomainRepo) UpdateExpiry(ctx context.Context, id int64, newExpiresAt time.Time, renewedAt time.Time) error {
	if f.updateExpiryFn != nil {
		return f.updateExpiryFn(ctx, id, newExpiresAt, renewedAt)
	}
	return nil
}

func (f *fakeDomainRepo) ReplaceContacts(ctx context.Context, domainID int64, contacts domain.RoleContactIDs, userID int64) error {
	if f.replaceContactsFn != nil {
		return f.replaceContactsFn(ctx, domainID, contacts, userID)
	}
	return nil
}

func (f *fakeDomainRepo) SyncNameservers(ctx context.Context, domainID int64, nameserverIDs []int64) error {
	if f.syncNameserversFn != nil {
		return f.syncNameserversFn(ctx, domainID, nameserverIDs)
	}
	return nil
}

func (f *fakeDomainRepo) GetContacts(ctx context.Context, domainID int64) ([]domain.DomainContact, error) {
	if f.getContactsFn != nil {
		return f.getContactsFn(ctx, domainID)
	}
	return nil, nil
}

func (f *fakeDomainRepo) GetNameservers(ctx context.Context, domainID int64) ([]domain.DomainNameserver, error) {
	if f.getNameserversFn != nil {
		return f.getNameserversFn(ctx, domainID)
	}
	return nil, nil
}

type fakeContactRepo struct {
	createFn               func(ctx context.Context, c *domain.Contact) error
	getByIDFn              func(ctx context.Context, id int64) (*domain.Contact, error)
	getByIDsFn             func(ctx context.Context, ids []int64) ([]domain.Contact, error)
	updateFn               func(ctx context.Context, c *domain.Contact) error
	setRegistryContactIDFn func(ctx context.Context, id int64, registryContactID string) error
}

func (f *fakeContactRepo) Create(ctx context.Context, c *domain.Contact) error {
	if f.createFn != nil {
		return f.createFn(ctx, c)
	}
	return nil
}

func (f *fakeContactRepo) GetByID(ctx context.Context, id int64) (*domain.Contact, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeContactRepo) GetByIDs(ctx context.Context, ids []int64) ([]domain.Contact, error) {
	if f.getByIDsFn != nil {
		return f.getByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (f *fakeContactRepo) Update(ctx context.Context, c *domain.Contact) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, c)
	}
	return nil
}

func (f *fakeContactRepo) SetRegistryContactID(ctx context.Context, id int64, registryContactID string) error {
	if f.setRegistryContactIDFn != nil {
		return f.setRegistryContactIDFn(ctx, id, registryContactID)
	}
	return nil
}

type fakeNameserverRepo struct {
	upsertByNameFn func(ctx context.Context, ns *domain.Nameserver) error
	getByNameFn    func(ctx context.Context, name string) (*domain.Nameserver, error)
	getByIDsFn     func(ctx context.Context, ids []int64) ([]domain.Nameserver, error)
}

func (f *fakeNameserverRepo) UpsertByName(ctx context.Context, ns *domain.Nameserver) error {
	if f.upsertByNameFn != nil {
		return f.upsertByNameFn(ctx, ns)
	}
	ns.ID = 1
	return nil
}

func (f *fakeNameserverRepo) GetByName(ctx context.Context, name string) (*domain.Nameserver, error) {
	if f.getByNameFn != nil {
		return f.getByNameFn(ctx, name)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeNameserverRepo) GetByIDs(ctx context.Context, ids []int64) ([]domain.Nameserver, error) {
	if f.getByIDsFn != nil {
		return f.getByIDsFn(ctx, ids)
	}
	return nil, nil
}

type fakePricingRepo struct {
	getByTLDFn func(ctx context.Context, tld string) (*domain.TLDPricing, error)
}

func (f *fakePricingRepo) GetByTLD(ctx context.Context, tld string) (*domain.TLDPricing, error) {
	if f.getByTLDFn != nil {
		return f.getByTLDFn(ctx, tld)
	}
	return nil, domain.ErrNotFound
}

type fakeRegistryService struct {
	kind                    registry.Kind
	registerDomainFn        func(ctx context.Context, name string, contacts registry.RoleAssignments, years int) error
	renewDomainFn           func(ctx context.Context, name string, years int) error
	updateNameserversFn     func(ctx context.Context, name string, nameservers []string) error
	createContactsFn        func(ctx context.Context, payload registry.ContactPayload) (*registry.ContactResult, error)
	searchDomainsFn         func(ctx context.Context, base string, tlds []string) (map[string]registry.Availability, error)
	createContactsCallCount int
}

func (f *fakeRegistryService) Kind() registry.Kind { return f.kind }

func (f *fakeRegistryService) RegisterDomain(ctx context.Context, name string, contacts registry.RoleAssignments, years int) error {
	if f.registerDomainFn != nil {
		return f.registerDomainFn(ctx, name, contacts, years)
	}
	return nil
}

func (f *fakeRegistryService) RenewDomainRegistration(ctx context.Context, name string, years int) error {
	if f.renewDomainFn != nil {
		return f.renewDomainFn(ctx, name, years)
	}
	return nil
}

func (f *fakeRegistryService) UpdateNameservers(ctx context.Context, name string, nameservers []string) error {
	if f.updateNameserversFn != nil {
		return f.updateNameserversFn(ctx, name, nameservers)
	}
	return nil
}

func (f *fakeRegistryService) CreateContacts(ctx context.Context, payload registry.ContactPayload) (*registry.ContactResult, error) {
	f.createContactsCallCount++
	if f.createContactsFn != nil {
		return f.createContactsFn(ctx, payload)
	}
	return &registry.ContactResult{ContactID: "C-fake"}, nil
}

func (f *fakeRegistryService) SearchDomains(ctx context.Context, base string, tlds []string) (map[string]registry.Availability, error) {
	if f.searchDomainsFn != nil {
		return f.searchDomainsFn(ctx, base, tlds)
	}
	return nil, nil
}

type fakeProvisioner struct {
	fn    func(ctx context.Context, contactID int64) (string, error)
	calls int
}

func (f *fakeProvisioner) EnsureProvisioned(ctx context.Context, contactID int64) (string, error) {
	f.calls++
	if f.fn != nil {
		return f.fn(ctx, contactID)
	}
	return "C-fake", nil
}

type fakeLimiter struct {
	waitFn func(ctx context.Context, provider string) error
	waited []string
}

func (f *fakeLimiter) Allow(ctx context.Context, provider string) (bool, error) {
	return true, nil
}

func (f *fakeLimiter) Wait(ctx context.Context, provider string) error {
	f.waited = append(f.waited, provider)
	if f.waitFn != nil {
		return f.waitFn(ctx, provider)
	}
	return nil
}

type fakeNotifier struct {
	registered int
	abandoned  int
	lastOrder  int64
}

func (f *fakeNotifier) DomainRegistered(ctx context.Context, ownerUserID int64, domainName string, years int) error {
	f.registered++
	return nil
}

func (f *fakeNotifier) AdminRegistrationAbandoned(ctx context.Context, orderID int64, failed *domain.FailedDomainRegistration) error {
	f.abandoned++
	f.lastOrder = orderID
	return nil
}
