package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"

	"github.com/rwandex/registrar-engine/internal/domain"
)

func TestWebhookNotifierDomainRegistered(t *testing.T) {
	t.Parallel()

	var got webhookEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifierWithClient(server.URL, resty.New())
	if err != nil {
		t.Fatalf("NewWebhookNotifierWithClient() error = %v", err)
	}

	if err := notifier.DomainRegistered(context.Background(), 5, "example.rw", 2); err != nil {
		t.Fatalf("DomainRegistered() error = %v", err)
	}

	if got.Event != "domain.registered" {
		t.Fatalf("event = %q", got.Event)
	}
	if got.UserID != 5 || got.DomainName != "example.rw" || got.Years != 2 {
		t.Fatalf("event payload = %+v", got)
	}
}

func TestWebhookNotifierAbandonedCarriesFailureDetails(t *testing.T) {
	t.Parallel()

	var got webhookEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifierWithClient(server.URL, resty.New())
	if err != nil {
		t.Fatalf("NewWebhookNotifierWithClient() error = %v", err)
	}

	failed := &domain.FailedDomainRegistration{
		DomainName:    "example.rw",
		FailureReason: "Registry timeout",
		RetryCount:    3,
	}
	if err := notifier.AdminRegistrationAbandoned(context.Background(), 44, failed); err != nil {
		t.Fatalf("AdminRegistrationAbandoned() error = %v", err)
	}

	if got.Event != "registration.abandoned" {
		t.Fatalf("event = %q", got.Event)
	}
	if got.OrderID != 44 || got.Reason != "Registry timeout" || got.RetryCount != 3 {
		t.Fatalf("event payload = %+v", got)
	}
}

func TestWebhookNotifierSurfacesServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifierWithClient(server.URL, resty.New())
	if err != nil {
		t.Fatalf("NewWebhookNotifierWithClient() error = %v", err)
	}

	if err := notifier.DomainRegistered(context.Background(), 1, "example.rw", 1); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestLoggingNotifierSwallowsDeliveryFailure(t *testing.T) {
	t.Parallel()

	notifier := NewLoggingNotifier(failingNotifier{}, nil)

	if err := notifier.DomainRegistered(context.Background(), 1, "example.rw", 1); err != nil {
		t.Fatalf("DomainRegistered() error = %v, want swallowed", err)
	}
	if err := notifier.AdminRegistrationAbandoned(context.Background(), 1, nil); err != nil {
		t.Fatalf("AdminRegistrationAbandoned() error = %v, want swallowed", err)
	}
}

type failingNotifier struct{}

func (failingNotifier) DomainRegistered(context.Context, int64, string, int) error {
	return context.DeadlineExceeded
}

func (failingNotifier) AdminRegistrationAbandoned(context.Context, int64, *domain.FailedDomainRegistration) error {
	return context.DeadlineExceeded
}
