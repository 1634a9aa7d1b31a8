package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rwandex/registrar-engine/internal/domain"
	"github.com/rwandex/registrar-engine/internal/observability"
	"github.com/rwandex/registrar-engine/internal/ratelimit"
	"github.com/rwandex/registrar-engine/internal/registry"
	"github.com/rwandex/registrar-engine/internal/repository"
)

const defaultRenewalCurrency = "USD"

// RenewalResult is the outcome of one renewal attempt.
type RenewalResult struct {
	Success   bool
	Message   string
	OldExpiry time.Time
	NewExpiry time.Time
}

// RenewalService drives domain renewals. Every attempt, success or failure,
// leaves exactly one immutable ledger row; the domain's expiry moves only on
// success and always extends from the stored expiry, never from today.
type RenewalService struct {
	domains  repository.DomainRepository
	renewals repository.RenewalRepository
	clients  registry.Clients
	limiter  ratelimit.RateLimiter
	metrics  *observability.Metrics
	logger   *zap.Logger

	now func() time.Time
}

func NewRenewalService(
	domains repository.DomainRepository,
	renewals repository.RenewalRepository,
	clients registry.Clients,
	limiter ratelimit.RateLimiter,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*RenewalService, error) {
	if domains == nil {
		return nil, fmt.Errorf("domain repository is required")
	}
	if renewals == nil {
		return nil, fmt.Errorf("renewal repository is required")
	}
	if clients.Local == nil || clients.International == nil {
		return nil, fmt.Errorf("both registry clients are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RenewalService{
		domains:  domains,
		renewals: renewals,
		clients:  clients,
		limiter:  limiter,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Renew attempts one renewal and always returns a result; internal failures
// are recorded on the ledger and reported as Success=false.
func (s *RenewalService) Renew(ctx context.Context, d *domain.Domain, years int, order *domain.Order) (result *RenewalResult) {
	defer func() {
		if r := recover(); r != nil {
			name := ""
			if d != nil {
				name = d.Name
			}
			s.logger.Error("renewal panicked",
				zap.String("domain", name),
				zap.Any("panic", r),
			)
			result = &RenewalResult{
				Success: false,
				Message: "Renewal failed due to an internal error.",
			}
		}
	}()

	if d == nil || d.ID == 0 {
		return &RenewalResult{Success: false, Message: "A registered domain is required."}
	}
	if years < 1 {
		return &RenewalResult{Success: false, Message: "Renewal period must be at least one year."}
	}

	client, kind := s.clients.Select(d.Name)

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, kind.String()); err != nil {
			return s.recordFailure(ctx, d, years, order, registry.FailureMessage(err), kind)
		}
	}

	start := s.now()
	renewErr := client.RenewDomainRegistration(ctx, d.Name, years)
	s.metrics.ObserveRegistryCallDuration(kind.String(), "renew", s.now().Sub(start))

	if renewErr != nil {
		s.logger.Warn("renewal rejected upstream",
			zap.String("domain", d.Name),
			zap.String("provider", kind.String()),
			zap.Error(renewErr),
		)
		return s.recordFailure(ctx, d, years, order, registry.FailureMessage(renewErr), kind)
	}

	oldExpiry := d.ExpiresAt
	newExpiry := oldExpiry.AddDate(years, 0, 0)
	renewedAt := s.now()

	if err := s.domains.UpdateExpiry(ctx, d.ID, newExpiry, renewedAt); err != nil {
		s.logger.Error("renewal confirmed upstream but expiry update failed",
			zap.String("domain", d.Name),
			zap.Error(err),
		)
		return s.recordFailure(ctx, d, years, order, "Renewal could not be completed.", kind)
	}

	entry := &domain.DomainRenewal{
		DomainID:     d.ID,
		Years:        years,
		Amount:       order.RenewalAmount(d.ID),
		Currency:     renewalCurrency(order),
		OldExpiresAt: oldExpiry,
		NewExpiresAt: newExpiry,
		Status:       domain.RenewalStatusCompleted,
	}
	if order != nil {
		entry.OrderID = &order.ID
	}
	if err := s.renewals.Create(ctx, entry); err != nil {
		s.logger.Error("failed to write renewal ledger entry",
			zap.String("domain", d.Name),
			zap.Error(err),
		)
	}

	s.metrics.IncRenewal(kind.String(), true)

	d.ExpiresAt = newExpiry
	d.LastRenewedAt = &renewedAt

	return &RenewalResult{
		Success:   true,
		Message:   fmt.Sprintf("%s has been renewed until %s.", d.Name, newExpiry.Format("2006-01-02")),
		OldExpiry: oldExpiry,
		NewExpiry: newExpiry,
	}
}

// recordFailure writes the failed ledger row: amount zero, both expiries the
// current stored expiry, domain untouched.
func (s *RenewalService) recordFailure(
	ctx context.Context,
	d *domain.Domain,
	years int,
	order *domain.Order,
	message string,
	kind registry.Kind,
) *RenewalResult {
	entry := &domain.DomainRenewal{
		DomainID:     d.ID,
		Years:        years,
		Amount:       0,
		Currency:     renewalCurrency(order),
		OldExpiresAt: d.ExpiresAt,
		NewExpiresAt: d.ExpiresAt,
		Status:       domain.RenewalStatusFailed,
	}
	if order != nil {
		entry.OrderID = &order.ID
	}
	if err := s.renewals.Create(ctx, entry); err != nil {
		s.logger.Error("failed to write failed renewal ledger entry",
			zap.String("domain", d.Name),
			zap.Error(err),
		)
	}

	s.metrics.IncRenewal(kind.String(), false)

	return &RenewalResult{
		Success:   false,
		Message:   message,
		OldExpiry: d.ExpiresAt,
		NewExpiry: d.ExpiresAt,
	}
}

func renewalCurrency(order *domain.Order) string {
	if order != nil && order.Currency != "" {
		return order.Currency
	}
	return defaultRenewalCurrency
}
