package registry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rwandex/registrar-engine/internal/domain"
)

const defaultInternationalTimeout = 20 * time.Second

// InternationalClient talks to the reseller API of the international
// registrar. Registrations carry full contact field sets per role; there is
// no separate contact provisioning step.
type InternationalClient struct {
	client  *resty.Client
	baseURL string
}

func NewInternationalClient(baseURL string, apiKey string) (*InternationalClient, error) {
	client := resty.New()
	client.SetTimeout(defaultInternationalTimeout)
	client.SetRetryCount(0)
	if key := strings.TrimSpace(apiKey); key != "" {
		client.SetHeader("X-Api-Key", key)
	}

	return NewInternationalClientWithClient(baseURL, client)
}

func NewInternationalClientWithClient(baseURL string, client *resty.Client) (*InternationalClient, error) {
	trimmedURL := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmedURL == "" {
		return nil, fmt.Errorf("international api url is required")
	}
	if _, err := url.ParseRequestURI(trimmedURL); err != nil {
		return nil, fmt.Errorf("invalid international api url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultInternationalTimeout)
	}
	client.SetRetryCount(0)

	return &InternationalClient{
		client:  client,
		baseURL: trimmedURL,
	}, nil
}

func (c *InternationalClient) Kind() Kind { return KindInternational }

type intlContactFields struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Organization string `json:"organization,omitempty"`
	Address1     string `json:"address1"`
	Address2     string `json:"address2,omitempty"`
	City         string `json:"city"`
	StateProvince string `json:"stateProvince,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
	PhoneExt     string `json:"phoneExt,omitempty"`
	Fax          string `json:"fax,omitempty"`
	Email        string `json:"email"`
}

func intlFieldsFromPayload(p ContactPayload) intlContactFields {
	firstName := p.FirstName
	lastName := p.LastName
	if firstName == "" && lastName == "" {
		parts := strings.Fields(strings.TrimSpace(p.Name))
		if len(parts) > 0 {
			firstName = parts[0]
			lastName = parts[len(parts)-1]
		}
	}

	return intlContactFields{
		FirstName:     firstName,
		LastName:      lastName,
		Organization:  p.Organization,
		Address1:      p.Street1,
		Address2:      p.Street2,
		City:          p.City,
		StateProvince: p.Province,
		PostalCode:    p.PostalCode,
		Country:       p.CountryCode,
		Phone:         p.Voice,
		PhoneExt:      p.VoiceExt,
		Fax:           p.Fax,
		Email:         p.Email,
	}
}

type intlRegisterRequest struct {
	DomainName string                       `json:"domainName"`
	Years      int                          `json:"years"`
	Contacts   map[string]intlContactFields `json:"contacts"`
}

func (c *InternationalClient) RegisterDomain(ctx context.Context, name string, contacts RoleAssignments, years int) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("international client is not initialized")
	}

	roleFields := make(map[string]intlContactFields, len(contacts))
	for role, assignment := range contacts {
		if assignment.Fields == nil {
			return fmt.Errorf("%w: missing contact fields for role %s", domain.ErrValidation, role)
		}
		roleFields[role.String()] = intlFieldsFromPayload(*assignment.Fields)
	}

	req := intlRegisterRequest{
		DomainName: strings.ToLower(strings.TrimSpace(name)),
		Years:      years,
		Contacts:   roleFields,
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(c.baseURL + "/api/domains/create")

	return checkRegistryResponse(response, err)
}

func (c *InternationalClient) RenewDomainRegistration(ctx context.Context, name string, years int) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("international client is not initialized")
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"domainName": strings.ToLower(strings.TrimSpace(name)),
			"years":      years,
		}).
		Post(c.baseURL + "/api/domains/renew")

	return checkRegistryResponse(response, err)
}

func (c *InternationalClient) UpdateNameservers(ctx context.Context, name string, nameservers []string) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("international client is not initialized")
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"domainName":  strings.ToLower(strings.TrimSpace(name)),
			"nameservers": nameservers,
		}).
		Post(c.baseURL + "/api/domains/setns")

	return checkRegistryResponse(response, err)
}

type intlContactResponse struct {
	ContactID string `json:"contactId"`
	Message   string `json:"message"`
}

func (c *InternationalClient) CreateContacts(ctx context.Context, payload ContactPayload) (*ContactResult, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("international client is not initialized")
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	var out intlContactResponse
	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(intlFieldsFromPayload(payload)).
		SetResult(&out).
		Post(c.baseURL + "/api/contacts/create")
	if err := checkRegistryResponse(response, err); err != nil {
		return nil, err
	}

	if strings.TrimSpace(out.ContactID) == "" {
		return nil, &ProviderError{
			StatusCode: response.StatusCode(),
			Message:    "registrar returned no contact identifier",
		}
	}

	return &ContactResult{ContactID: out.ContactID, Message: out.Message}, nil
}

type intlCheckResponse struct {
	Domains []struct {
		DomainName string  `json:"domainName"`
		Available  bool    `json:"available"`
		Reason     string  `json:"reason"`
		Price      float64 `json:"price"`
	} `json:"domains"`
}

func (c *InternationalClient) SearchDomains(ctx context.Context, base string, tlds []string) (map[string]Availability, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("international client is not initialized")
	}

	var out intlCheckResponse
	response, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("base", strings.ToLower(strings.TrimSpace(base))).
		SetQueryParam("tlds", strings.Join(tlds, ",")).
		SetResult(&out).
		Get(c.baseURL + "/api/domains/check")
	if err := checkRegistryResponse(response, err); err != nil {
		return nil, err
	}

	results := make(map[string]Availability, len(out.Domains))
	for _, entry := range out.Domains {
		results[strings.ToLower(entry.DomainName)] = Availability{
			Available: entry.Available,
			Reason:    entry.Reason,
			Price:     entry.Price,
		}
	}

	return results, nil
}
