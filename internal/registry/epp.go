package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rwandex/registrar-engine/internal/domain"
)

const defaultRegistryTimeout = 15 * time.Second

// EPPGatewayClient talks to the local ccTLD registry through its HTTP gateway.
// Registrations pass pre-provisioned contact identifiers, never full field sets.
type EPPGatewayClient struct {
	client  *resty.Client
	baseURL string
}

func NewEPPGatewayClient(baseURL string, authToken string) (*EPPGatewayClient, error) {
	client := resty.New()
	client.SetTimeout(defaultRegistryTimeout)
	client.SetRetryCount(0)
	if token := strings.TrimSpace(authToken); token != "" {
		client.SetAuthToken(token)
	}

	return NewEPPGatewayClientWithClient(baseURL, client)
}

func NewEPPGatewayClientWithClient(baseURL string, client *resty.Client) (*EPPGatewayClient, error) {
	trimmedURL := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmedURL == "" {
		return nil, fmt.Errorf("epp gateway url is required")
	}
	if _, err := url.ParseRequestURI(trimmedURL); err != nil {
		return nil, fmt.Errorf("invalid epp gateway url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultRegistryTimeout)
	}
	client.SetRetryCount(0)

	return &EPPGatewayClient{
		client:  client,
		baseURL: trimmedURL,
	}, nil
}

func (c *EPPGatewayClient) Kind() Kind { return KindLocal }

type eppRegisterRequest struct {
	Name     string            `json:"name"`
	Years    int               `json:"years"`
	Contacts map[string]string `json:"contacts"`
}

func (c *EPPGatewayClient) RegisterDomain(ctx context.Context, name string, contacts RoleAssignments, years int) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("epp client is not initialized")
	}

	contactIDs := make(map[string]string, len(contacts))
	for role, assignment := range contacts {
		if strings.TrimSpace(assignment.ContactID) == "" {
			return fmt.Errorf("%w: missing registry contact id for role %s", domain.ErrValidation, role)
		}
		contactIDs[role.String()] = assignment.ContactID
	}

	req := eppRegisterRequest{
		Name:     strings.ToLower(strings.TrimSpace(name)),
		Years:    years,
		Contacts: contactIDs,
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(c.baseURL + "/domains")

	return checkRegistryResponse(response, err)
}

func (c *EPPGatewayClient) RenewDomainRegistration(ctx context.Context, name string, years int) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("epp client is not initialized")
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"name":  strings.ToLower(strings.TrimSpace(name)),
			"years": years,
		}).
		Post(c.baseURL + "/domains/renew")

	return checkRegistryResponse(response, err)
}

func (c *EPPGatewayClient) UpdateNameservers(ctx context.Context, name string, nameservers []string) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("epp client is not initialized")
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"name":        strings.ToLower(strings.TrimSpace(name)),
			"nameservers": nameservers,
		}).
		Put(c.baseURL + "/domains/nameservers")

	return checkRegistryResponse(response, err)
}

type eppContactRequest struct {
	ContactID    string `json:"contact_id,omitempty"`
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
	Street1      string `json:"street1"`
	Street2      string `json:"street2,omitempty"`
	City         string `json:"city"`
	Province     string `json:"province,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	CountryCode  string `json:"country_code"`
	Voice        string `json:"voice"`
	VoiceExt     string `json:"voice_ext,omitempty"`
	Fax          string `json:"fax,omitempty"`
	Email        string `json:"email"`
}

type eppContactResponse struct {
	ContactID string `json:"contact_id"`
	Message   string `json:"message"`
}

func (c *EPPGatewayClient) CreateContacts(ctx context.Context, payload ContactPayload) (*ContactResult, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("epp client is not initialized")
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	req := eppContactRequest{
		ContactID:    payload.ContactID,
		Name:         payload.Name,
		Organization: payload.Organization,
		Street1:      payload.Street1,
		Street2:      payload.Street2,
		City:         payload.City,
		Province:     payload.Province,
		PostalCode:   payload.PostalCode,
		CountryCode:  payload.CountryCode,
		Voice:        payload.Voice,
		VoiceExt:     payload.VoiceExt,
		Fax:          payload.Fax,
		Email:        payload.Email,
	}

	var out eppContactResponse
	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&out).
		Post(c.baseURL + "/contacts")
	if err := checkRegistryResponse(response, err); err != nil {
		return nil, err
	}

	if strings.TrimSpace(out.ContactID) == "" {
		return nil, &ProviderError{
			StatusCode: response.StatusCode(),
			Message:    "registry returned no contact identifier",
		}
	}

	return &ContactResult{ContactID: out.ContactID, Message: out.Message}, nil
}

type eppSearchResponse struct {
	Results map[string]struct {
		Available bool    `json:"available"`
		Reason    string  `json:"reason"`
		Price     float64 `json:"price"`
	} `json:"results"`
}

func (c *EPPGatewayClient) SearchDomains(ctx context.Context, base string, tlds []string) (map[string]Availability, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("epp client is not initialized")
	}

	var out eppSearchResponse
	response, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("base", strings.ToLower(strings.TrimSpace(base))).
		SetQueryParam("tlds", strings.Join(tlds, ",")).
		SetResult(&out).
		Get(c.baseURL + "/domains/search")
	if err := checkRegistryResponse(response, err); err != nil {
		return nil, err
	}

	results := make(map[string]Availability, len(out.Results))
	for name, entry := range out.Results {
		results[strings.ToLower(name)] = Availability{
			Available: entry.Available,
			Reason:    entry.Reason,
			Price:     entry.Price,
		}
	}

	return results, nil
}

// checkRegistryResponse folds resty transport errors and non-2xx statuses
// into the ProviderError taxonomy.
func checkRegistryResponse(response *resty.Response, err error) error {
	if err != nil {
		return &ProviderError{
			Message:   "registry request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return &ProviderError{
			Message:   "registry returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &ProviderError{
		StatusCode: statusCode,
		Message:    registryErrorMessage(statusCode, response.Body()),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func registryErrorMessage(statusCode int, body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if msg := strings.TrimSpace(envelope.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(envelope.Error); msg != "" {
			return msg
		}
	}

	base := fmt.Sprintf("registry returned status %d", statusCode)
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		return fmt.Sprintf("%s: %s", base, trimmed)
	}
	return base
}
