package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/rwandex/registrar-engine/internal/domain"
)

const defaultWebhookTimeout = 10 * time.Second

// Notifier delivers customer and operator notifications. Delivery is
// best-effort: callers log failures and move on.
type Notifier interface {
	DomainRegistered(ctx context.Context, ownerUserID int64, domainName string, years int) error
	AdminRegistrationAbandoned(ctx context.Context, orderID int64, failed *domain.FailedDomainRegistration) error
}

type webhookEvent struct {
	Event      string `json:"event"`
	UserID     int64  `json:"userId,omitempty"`
	OrderID    int64  `json:"orderId,omitempty"`
	DomainName string `json:"domainName"`
	Years      int    `json:"years,omitempty"`
	Reason     string `json:"reason,omitempty"`
	RetryCount int    `json:"retryCount,omitempty"`
}

// WebhookNotifier posts notification events to a configured webhook endpoint.
type WebhookNotifier struct {
	client   *resty.Client
	endpoint string
}

func NewWebhookNotifier(endpoint string) (*WebhookNotifier, error) {
	client := resty.New()
	client.SetTimeout(defaultWebhookTimeout)
	client.SetRetryCount(0)

	return NewWebhookNotifierWithClient(endpoint, client)
}

func NewWebhookNotifierWithClient(endpoint string, client *resty.Client) (*WebhookNotifier, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("webhook endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultWebhookTimeout)
	}
	client.SetRetryCount(0)

	return &WebhookNotifier{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (n *WebhookNotifier) DomainRegistered(ctx context.Context, ownerUserID int64, domainName string, years int) error {
	return n.post(ctx, webhookEvent{
		Event:      "domain.registered",
		UserID:     ownerUserID,
		DomainName: domainName,
		Years:      years,
	})
}

func (n *WebhookNotifier) AdminRegistrationAbandoned(ctx context.Context, orderID int64, failed *domain.FailedDomainRegistration) error {
	event := webhookEvent{
		Event:   "registration.abandoned",
		OrderID: orderID,
	}
	if failed != nil {
		event.DomainName = failed.DomainName
		event.Reason = failed.FailureReason
		event.RetryCount = failed.RetryCount
	}
	return n.post(ctx, event)
}

func (n *WebhookNotifier) post(ctx context.Context, event webhookEvent) error {
	if n == nil || n.client == nil {
		return fmt.Errorf("notifier is not initialized")
	}

	response, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(n.endpoint)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	if response.IsError() {
		return fmt.Errorf("webhook returned status %d", response.StatusCode())
	}

	return nil
}

// NopNotifier drops all notifications. Used when no webhook is configured.
type NopNotifier struct{}

func (NopNotifier) DomainRegistered(context.Context, int64, string, int) error {
	return nil
}

func (NopNotifier) AdminRegistrationAbandoned(context.Context, int64, *domain.FailedDomainRegistration) error {
	return nil
}

// LoggingNotifier wraps another notifier and logs delivery failures so
// callers do not have to.
type LoggingNotifier struct {
	next   Notifier
	logger *zap.Logger
}

func NewLoggingNotifier(next Notifier, logger *zap.Logger) *LoggingNotifier {
	if next == nil {
		next = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingNotifier{next: next, logger: logger}
}

func (l *LoggingNotifier) DomainRegistered(ctx context.Context, ownerUserID int64, domainName string, years int) error {
	if err := l.next.DomainRegistered(ctx, ownerUserID, domainName, years); err != nil {
		l.logger.Warn("failed to send registration notification",
			zap.Error(err),
			zap.String("domain", domainName),
			zap.Int64("userId", ownerUserID),
		)
	}
	return nil
}

func (l *LoggingNotifier) AdminRegistrationAbandoned(ctx context.Context, orderID int64, failed *domain.FailedDomainRegistration) error {
	if err := l.next.AdminRegistrationAbandoned(ctx, orderID, failed); err != nil {
		fields := []zap.Field{zap.Error(err), zap.Int64("orderId", orderID)}
		if failed != nil {
			fields = append(fields, zap.String("domain", failed.DomainName))
		}
		l.logger.Warn("failed to send abandonment notification", fields...)
	}
	return nil
}
