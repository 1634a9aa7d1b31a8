package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/rwandex/registrar-engine/internal/domain"
	"github.com/rwandex/registrar-engine/internal/registry"
	"github.com/rwandex/registrar-engine/internal/repository"
	"github.com/rwandex/registrar-engine/internal/service"
)

const (
	defaultFailedListLimit = 50
	maxFailedListLimit     = 200
	maxSearchTLDs          = 10
)

type Registrar interface {
	Register(ctx context.Context, params service.RegisterParams) *service.RegistrationResult
}

type Renewer interface {
	Renew(ctx context.Context, d *domain.Domain, years int, order *domain.Order) *service.RenewalResult
}

type FailureFiler interface {
	FileFailure(ctx context.Context, params service.FileFailureParams) (*domain.FailedDomainRegistration, error)
}

type DualContactCreator interface {
	CreateDual(ctx context.Context, payload registry.ContactPayload) ([]service.DualContactResult, error)
}

type RegistrarHandler struct {
	registrar   Registrar
	renewer     Renewer
	filer       FailureFiler
	dual        DualContactCreator
	domains     repository.DomainRepository
	contacts    repository.ContactRepository
	nameservers repository.NameserverRepository
	orders      repository.OrderRepository
	failures    repository.FailedRegistrationRepository
	clients     registry.Clients
}

func NewRegistrarHandler(
	registrar Registrar,
	renewer Renewer,
	filer FailureFiler,
	dual DualContactCreator,
	domains repository.DomainRepository,
	contacts repository.ContactRepository,
	nameservers repository.NameserverRepository,
	orders repository.OrderRepository,
	failures repository.FailedRegistrationRepository,
	clients registry.Clients,
) (*RegistrarHandler, error) {
	if registrar == nil {
		return nil, fmt.Errorf("registrar is required")
	}
	if renewer == nil {
		return nil, fmt.Errorf("renewer is required")
	}
	if domains == nil || contacts == nil || nameservers == nil || orders == nil || failures == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if clients.Local == nil || clients.International == nil {
		return nil, fmt.Errorf("both registry clients are required")
	}

	return &RegistrarHandler{
		registrar:   registrar,
		renewer:     renewer,
		filer:       filer,
		dual:        dual,
		domains:     domains,
		contacts:    contacts,
		nameservers: nameservers,
		orders:      orders,
		failures:    failures,
		clients:     clients,
	}, nil
}

func RegisterRegistrarRoutes(router fiber.Router, h *RegistrarHandler) {
	v1 := router.Group("/v1")
	v1.Post("/domains/register", h.RegisterDomain)
	v1.Post("/domains/:id/renew", h.RenewDomain)
	v1.Get("/domains/search", h.SearchDomains)
	v1.Get("/domains/:id", h.GetDomain)
	v1.Post("/contacts", h.CreateContact)
	v1.Put("/contacts/:id", h.UpdateContact)
	v1.Post("/contacts/:id/provision-dual", h.ProvisionContactDual)
	v1.Get("/failed-registrations", h.ListFailedRegistrations)
}

type registerDomainRequest struct {
	DomainName       string           `json:"domainName"`
	Years            int              `json:"years"`
	Contacts         map[string]int64 `json:"contacts"`
	Nameservers      []string         `json:"nameservers"`
	UseSingleContact bool             `json:"useSingleContact"`
	UserID           int64            `json:"userId"`
	OrderID          int64            `json:"orderId"`
	OrderItemID      int64            `json:"orderItemId"`
}

type registerDomainResponse struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Provider string          `json:"provider,omitempty"`
	Domain   *domainResponse `json:"domain,omitempty"`
}

type renewDomainRequest struct {
	Years   int   `json:"years"`
	OrderID int64 `json:"orderId"`
}

type renewDomainResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	OldExpiry time.Time `json:"oldExpiry"`
	NewExpiry time.Time `json:"newExpiry"`
}

type domainResponse struct {
	ID            int64      `json:"id"`
	UUID          string     `json:"uuid"`
	Name          string     `json:"name"`
	OwnerID       int64      `json:"ownerId"`
	RegisteredAt  time.Time  `json:"registeredAt"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	LastRenewedAt *time.Time `json:"lastRenewedAt,omitempty"`
	Years         int        `json:"years"`
	Status        string     `json:"status"`
	IsLocked      bool       `json:"isLocked"`
	AutoRenew     bool       `json:"autoRenew"`
	Provider      string     `json:"provider"`
}

type domainDetailResponse struct {
	domainResponse
	Contacts    []domainContactItem `json:"contacts"`
	Nameservers []string            `json:"nameservers"`
}

type domainContactItem struct {
	Role      string `json:"role"`
	ContactID int64  `json:"contactId"`
}

type contactRequest struct {
	Name         string `json:"name"`
	Organization string `json:"organization"`
	AddressOne   string `json:"addressOne"`
	AddressTwo   string `json:"addressTwo"`
	City         string `json:"city"`
	Province     string `json:"province"`
	PostalCode   string `json:"postalCode"`
	CountryCode  string `json:"countryCode"`
	Phone        string `json:"phone"`
	PhoneExt     string `json:"phoneExt"`
	Fax          string `json:"fax"`
	Email        string `json:"email"`
	UserID       int64  `json:"userId"`
}

type contactResponse struct {
	ID                int64   `json:"id"`
	UUID              string  `json:"uuid"`
	RegistryContactID *string `json:"registryContactId,omitempty"`
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	UserID            int64   `json:"userId"`
	Warning           string  `json:"warning,omitempty"`
}

type dualProvisionResponse struct {
	Results []dualProvisionItem `json:"results"`
	Warning string              `json:"warning,omitempty"`
}

type dualProvisionItem struct {
	ContactID string `json:"contactId"`
	Provider  string `json:"provider"`
}

type failedRegistrationResponse struct {
	ID            string     `json:"id"`
	DomainName    string     `json:"domainName"`
	OrderID       int64      `json:"orderId"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retryCount"`
	MaxRetries    int        `json:"maxRetries"`
	NextRetryAt   *time.Time `json:"nextRetryAt,omitempty"`
	FailureReason string     `json:"failureReason,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (h *RegistrarHandler) RegisterDomain(c *fiber.Ctx) error {
	var req registerDomainRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	contactIDs, err := parseRoleContacts(req.Contacts)
	if err != nil {
		return toHTTPError(err)
	}

	result := h.registrar.Register(c.Context(), service.RegisterParams{
		DomainName:       req.DomainName,
		Contacts:         contactIDs,
		Years:            req.Years,
		Nameservers:      req.Nameservers,
		UseSingleContact: req.UseSingleContact,
		UserID:           req.UserID,
	})

	if result.Success {
		return c.Status(fiber.StatusCreated).JSON(registerDomainResponse{
			Success:  true,
			Message:  result.Message,
			Provider: result.Provider.String(),
			Domain:   toDomainResponse(result.Domain),
		})
	}

	if h.filer != nil && req.OrderID > 0 {
		if _, fileErr := h.filer.FileFailure(c.Context(), service.FileFailureParams{
			DomainName:  strings.ToLower(strings.TrimSpace(req.DomainName)),
			ContactIDs:  contactIDs,
			OrderID:     req.OrderID,
			OrderItemID: req.OrderItemID,
			Reason:      result.Message,
		}); fileErr != nil {
			return fileErr
		}
	}

	return c.Status(fiber.StatusUnprocessableEntity).JSON(registerDomainResponse{
		Success:  false,
		Message:  result.Message,
		Provider: result.Provider.String(),
	})
}

func (h *RegistrarHandler) RenewDomain(c *fiber.Ctx) error {
	domainID, err := c.ParamsInt("id")
	if err != nil || domainID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid domain id")
	}

	var req renewDomainRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	d, err := h.domains.GetByID(c.Context(), int64(domainID))
	if err != nil {
		return toHTTPError(err)
	}

	var order *domain.Order
	if req.OrderID > 0 {
		order, err = h.orders.GetByID(c.Context(), req.OrderID)
		if err != nil {
			return toHTTPError(err)
		}
	}

	result := h.renewer.Renew(c.Context(), d, req.Years, order)

	status := fiber.StatusOK
	if !result.Success {
		status = fiber.StatusUnprocessableEntity
	}

	return c.Status(status).JSON(renewDomainResponse{
		Success:   result.Success,
		Message:   result.Message,
		OldExpiry: result.OldExpiry,
		NewExpiry: result.NewExpiry,
	})
}

func (h *RegistrarHandler) SearchDomains(c *fiber.Ctx) error {
	base := strings.ToLower(strings.TrimSpace(c.Query("base")))
	if base == "" {
		return toHTTPError(fmt.Errorf("%w: base is required", domain.ErrValidation))
	}

	tlds := splitTLDs(c.Query("tlds"))
	if len(tlds) == 0 {
		return toHTTPError(fmt.Errorf("%w: at least one tld is required", domain.ErrValidation))
	}
	if len(tlds) > maxSearchTLDs {
		return toHTTPError(fmt.Errorf("%w: at most %d tlds per search", domain.ErrValidation, maxSearchTLDs))
	}

	var localTLDs, intlTLDs []string
	for _, tld := range tlds {
		if tld == "rw" {
			localTLDs = append(localTLDs, tld)
		} else {
			intlTLDs = append(intlTLDs, tld)
		}
	}

	results := make(map[string]registry.Availability, len(tlds))
	if len(localTLDs) > 0 {
		local, err := h.clients.Local.SearchDomains(c.Context(), base, localTLDs)
		if err != nil {
			return toHTTPError(err)
		}
		for name, availability := range local {
			results[name] = availability
		}
	}
	if len(intlTLDs) > 0 {
		intl, err := h.clients.International.SearchDomains(c.Context(), base, intlTLDs)
		if err != nil {
			return toHTTPError(err)
		}
		for name, availability := range intl {
			results[name] = availability
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"results": results})
}

func (h *RegistrarHandler) GetDomain(c *fiber.Ctx) error {
	domainID, err := c.ParamsInt("id")
	if err != nil || domainID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid domain id")
	}

	d, err := h.domains.GetByID(c.Context(), int64(domainID))
	if err != nil {
		return toHTTPError(err)
	}

	contacts, err := h.domains.GetContacts(c.Context(), d.ID)
	if err != nil {
		return toHTTPError(err)
	}

	pivots, err := h.domains.GetNameservers(c.Context(), d.ID)
	if err != nil {
		return toHTTPError(err)
	}

	nameserverIDs := make([]int64, 0, len(pivots))
	for _, pivot := range pivots {
		nameserverIDs = append(nameserverIDs, pivot.NameserverID)
	}
	hosts, err := h.nameservers.GetByIDs(c.Context(), nameserverIDs)
	if err != nil {
		return toHTTPError(err)
	}
	hostByID := make(map[int64]string, len(hosts))
	for _, host := range hosts {
		hostByID[host.ID] = host.Name
	}

	detail := domainDetailResponse{
		domainResponse: *toDomainResponse(d),
		Contacts:       make([]domainContactItem, 0, len(contacts)),
		Nameservers:    make([]string, 0, len(pivots)),
	}
	for _, pivot := range contacts {
		detail.Contacts = append(detail.Contacts, domainContactItem{
			Role:      pivot.Type.String(),
			ContactID: pivot.ContactID,
		})
	}
	for _, pivot := range pivots {
		if name, ok := hostByID[pivot.NameserverID]; ok {
			detail.Nameservers = append(detail.Nameservers, name)
		}
	}

	return c.Status(fiber.StatusOK).JSON(detail)
}

func (h *RegistrarHandler) CreateContact(c *fiber.Ctx) error {
	var req contactRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.Name) == "" {
		return toHTTPError(fmt.Errorf("%w: name is required", domain.ErrValidation))
	}
	if req.UserID <= 0 {
		return toHTTPError(fmt.Errorf("%w: userId is required", domain.ErrValidation))
	}

	contact := &domain.Contact{
		UUID:         uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Organization: strings.TrimSpace(req.Organization),
		AddressOne:   strings.TrimSpace(req.AddressOne),
		AddressTwo:   strings.TrimSpace(req.AddressTwo),
		City:         strings.TrimSpace(req.City),
		Province:     strings.TrimSpace(req.Province),
		PostalCode:   strings.TrimSpace(req.PostalCode),
		CountryCode:  strings.ToUpper(strings.TrimSpace(req.CountryCode)),
		Phone:        strings.TrimSpace(req.Phone),
		PhoneExt:     strings.TrimSpace(req.PhoneExt),
		Fax:          strings.TrimSpace(req.Fax),
		Email:        strings.TrimSpace(req.Email),
		UserID:       req.UserID,
	}

	if err := h.contacts.Create(c.Context(), contact); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toContactResponse(contact))
}

func (h *RegistrarHandler) UpdateContact(c *fiber.Ctx) error {
	contactID, err := c.ParamsInt("id")
	if err != nil || contactID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid contact id")
	}

	var req contactRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	contact, err := h.contacts.GetByID(c.Context(), int64(contactID))
	if err != nil {
		return toHTTPError(err)
	}

	contact.Name = strings.TrimSpace(req.Name)
	contact.Organization = strings.TrimSpace(req.Organization)
	contact.AddressOne = strings.TrimSpace(req.AddressOne)
	contact.AddressTwo = strings.TrimSpace(req.AddressTwo)
	contact.City = strings.TrimSpace(req.City)
	contact.Province = strings.TrimSpace(req.Province)
	contact.PostalCode = strings.TrimSpace(req.PostalCode)
	contact.CountryCode = strings.ToUpper(strings.TrimSpace(req.CountryCode))
	contact.Phone = strings.TrimSpace(req.Phone)
	contact.PhoneExt = strings.TrimSpace(req.PhoneExt)
	contact.Fax = strings.TrimSpace(req.Fax)
	contact.Email = strings.TrimSpace(req.Email)

	if err := h.contacts.Update(c.Context(), contact); err != nil {
		return toHTTPError(err)
	}

	response := toContactResponse(contact)

	// A contact that already exists upstream gets its new field values pushed
	// there too; a rejected push never rolls back the local update.
	if contact.IsProvisioned() && contact.MissingProvisioningField() == "" {
		if _, pushErr := h.clients.Local.CreateContacts(c.Context(), service.ProvisioningPayload(contact)); pushErr != nil {
			response.Warning = fmt.Sprintf("contact saved, but the registry update failed: %s", registry.FailureMessage(pushErr))
		}
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *RegistrarHandler) ProvisionContactDual(c *fiber.Ctx) error {
	if h.dual == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "dual provisioning is not configured")
	}

	contactID, err := c.ParamsInt("id")
	if err != nil || contactID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid contact id")
	}

	contact, err := h.contacts.GetByID(c.Context(), int64(contactID))
	if err != nil {
		return toHTTPError(err)
	}

	results, dualErr := h.dual.CreateDual(c.Context(), service.ProvisioningPayload(contact))

	response := dualProvisionResponse{Results: make([]dualProvisionItem, 0, len(results))}
	for _, result := range results {
		response.Results = append(response.Results, dualProvisionItem{
			ContactID: result.ContactID,
			Provider:  result.Provider.String(),
		})
	}

	if dualErr != nil {
		if len(results) == 0 {
			return toHTTPError(dualErr)
		}
		response.Warning = dualErr.Error()
		return c.Status(fiber.StatusMultiStatus).JSON(response)
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}

func (h *RegistrarHandler) ListFailedRegistrations(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultFailedListLimit)
	if limit < 1 || limit > maxFailedListLimit {
		return toHTTPError(fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, maxFailedListLimit))
	}

	var status *domain.FailedRegistrationStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, err := domain.ParseFailedRegistrationStatusFromString(raw)
		if err != nil {
			return toHTTPError(err)
		}
		status = &parsed
	}

	records, err := h.failures.List(c.Context(), status, limit)
	if err != nil {
		return toHTTPError(err)
	}

	items := make([]failedRegistrationResponse, 0, len(records))
	for _, record := range records {
		items = append(items, failedRegistrationResponse{
			ID:            record.ID,
			DomainName:    record.DomainName,
			OrderID:       record.OrderID,
			Status:        record.Status.String(),
			RetryCount:    record.RetryCount,
			MaxRetries:    record.MaxRetries,
			NextRetryAt:   record.NextRetryAt,
			FailureReason: record.FailureReason,
			CreatedAt:     record.CreatedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": items})
}

func parseRoleContacts(raw map[string]int64) (domain.RoleContactIDs, error) {
	contacts := make(domain.RoleContactIDs, len(raw))
	for key, id := range raw {
		role, err := domain.ParseContactRoleFromString(key)
		if err != nil {
			return nil, err
		}
		contacts[role] = id
	}
	return contacts, nil
}

func splitTLDs(raw string) []string {
	parts := strings.Split(raw, ",")
	tlds := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		tld := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(part, ".")))
		if tld == "" {
			continue
		}
		if _, ok := seen[tld]; ok {
			continue
		}
		seen[tld] = struct{}{}
		tlds = append(tlds, tld)
	}
	return tlds
}

func toDomainResponse(d *domain.Domain) *domainResponse {
	if d == nil {
		return nil
	}
	return &domainResponse{
		ID:            d.ID,
		UUID:          d.UUID,
		Name:          d.Name,
		OwnerID:       d.OwnerID,
		RegisteredAt:  d.RegisteredAt,
		ExpiresAt:     d.ExpiresAt,
		LastRenewedAt: d.LastRenewedAt,
		Years:         d.Years,
		Status:        d.Status.String(),
		IsLocked:      d.IsLocked,
		AutoRenew:     d.AutoRenew,
		Provider:      d.Provider,
	}
}

func toContactResponse(contact *domain.Contact) contactResponse {
	return contactResponse{
		ID:                contact.ID,
		UUID:              contact.UUID,
		RegistryContactID: contact.RegistryContactID,
		Name:              contact.Name,
		Email:             contact.Email,
		UserID:            contact.UserID,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
