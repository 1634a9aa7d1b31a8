package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rwandex/registrar-engine/internal/domain"
	"github.com/rwandex/registrar-engine/internal/registry"
)

var retrierNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestRetrier(t *testing.T, failures *fakeFailureRepo, orders *fakeOrderRepo, registrar *fakeRegistrar, notifier *fakeNotifier) *RegistrationRetrier {
	t.Helper()

	if notifier == nil {
		notifier = &fakeNotifier{}
	}
	retrier, err := NewRegistrationRetrier(failures, orders, registrar, notifier, nil, 3, time.Hour, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRegistrationRetrier() error = %v", err)
	}
	retrier.now = func() time.Time { return retrierNow }
	return retrier
}

func pendingRecord() *domain.FailedDomainRegistration {
	return &domain.FailedDomainRegistration{
		ID:            "f4c7c7c8-9b1a-4a41-8f2e-3d4b5c6d7e8f",
		DomainName:    "example.rw",
		ContactIDs:    domain.RoleContactIDs{domain.RoleRegistrant: 9},
		OrderID:       44,
		OrderItemID:   55,
		Status:        domain.FailedRegistrationRetrying,
		RetryCount:    0,
		MaxRetries:    3,
		FailureReason: "Registry timeout",
	}
}

func TestFileFailureSchedulesFirstRetry(t *testing.T) {
	t.Parallel()

	failures := &fakeFailureRepo{}
	retrier := newTestRetrier(t, failures, &fakeOrderRepo{}, &fakeRegistrar{}, nil)

	record, err := retrier.FileFailure(context.Background(), FileFailureParams{
		DomainName:  "example.rw",
		ContactIDs:  domain.RoleContactIDs{domain.RoleRegistrant: 9},
		OrderID:     44,
		OrderItemID: 55,
		Reason:      "Registry timeout",
	})
	if err != nil {
		t.Fatalf("FileFailure() error = %v", err)
	}

	if record.ID == "" {
		t.Fatal("record must get an identifier")
	}
	if record.Status != domain.FailedRegistrationPending {
		t.Fatalf("status = %s, want PENDING", record.Status)
	}
	if record.MaxRetries != 3 {
		t.Fatalf("max retries = %d, want 3", record.MaxRetries)
	}
	if record.NextRetryAt == nil || !record.NextRetryAt.Equal(retrierNow.Add(time.Hour)) {
		t.Fatalf("next retry at = %v, want one hour out", record.NextRetryAt)
	}
	if len(failures.created) != 1 {
		t.Fatalf("created rows = %d, want 1", len(failures.created))
	}
}

func TestFileFailureUsesConfiguredMaxRetries(t *testing.T) {
	t.Parallel()

	failures := &fakeFailureRepo{}
	retrier, err := NewRegistrationRetrier(failures, &fakeOrderRepo{}, &fakeRegistrar{}, &fakeNotifier{}, nil, 5, time.Hour, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRegistrationRetrier() error = %v", err)
	}

	record, err := retrier.FileFailure(context.Background(), FileFailureParams{
		DomainName: "example.rw",
		OrderID:    44,
	})
	if err != nil {
		t.Fatalf("FileFailure() error = %v", err)
	}
	if record.MaxRetries != 5 {
		t.Fatalf("max retries = %d, want configured 5", record.MaxRetries)
	}
}

func TestFileFailureRequiresDomainName(t *testing.T) {
	t.Parallel()

	retrier := newTestRetrier(t, &fakeFailureRepo{}, &fakeOrderRepo{}, &fakeRegistrar{}, nil)

	if _, err := retrier.FileFailure(context.Background(), FileFailureParams{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRetrySuccessResolvesRecordAndCompletesOrder(t *testing.T) {
	t.Parallel()

	record := pendingRecord()
	failures := &fakeFailureRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.FailedDomainRegistration, error) {
			return record, nil
		},
		countUnresolvedFn: func(ctx context.Context, orderID int64) (int64, error) {
			return 0, nil
		},
	}

	var linkedDomainID int64
	var completedOrderID int64
	orders := &fakeOrderRepo{
		getByIDFn: func(ctx context.Context, id int64) (*domain.Order, error) {
			return &domain.Order{ID: id, UserID: 5, Status: domain.OrderStatusProcessing}, nil
		},
		getItemByIDFn: func(ctx context.Context, itemID int64) (*domain.OrderItem, error) {
			return &domain.OrderItem{ID: itemID, Years: 2}, nil
		},
		setItemDomainFn: func(ctx context.Context, itemID int64, domainID int64) error {
			linkedDomainID = domainID
			return nil
		},
		updateStatusFn: func(ctx context.Context, id int64, status domain.OrderStatus) error {
			if status == domain.OrderStatusCompleted {
				completedOrderID = id
			}
			return nil
		},
	}

	registrar := &fakeRegistrar{
		registerFn: func(ctx context.Context, params RegisterParams) *RegistrationResult {
			if params.DomainName != "example.rw" {
				t.Fatalf("retried domain = %q", params.DomainName)
			}
			if params.Years != 2 {
				t.Fatalf("retried years = %d, want order item years", params.Years)
			}
			if params.UserID != 5 {
				t.Fatalf("retried owner = %d, want order user", params.UserID)
			}
			return &RegistrationResult{
				Success:  true,
				Domain:   &domain.Domain{ID: 11, Name: "example.rw"},
				Provider: registry.KindLocal,
			}
		},
	}

	retrier := newTestRetrier(t, failures, orders, registrar, nil)

	if err := retrier.Retry(context.Background(), record.ID); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}

	if failures.terminalStatus != domain.FailedRegistrationResolved {
		t.Fatalf("terminal status = %s, want RESOLVED", failures.terminalStatus)
	}
	if linkedDomainID != 11 {
		t.Fatalf("linked domain = %d, want 11", linkedDomainID)
	}
	if completedOrderID != 44 {
		t.Fatalf("completed order = %d, want 44", completedOrderID)
	}
}

func TestRetryFailureUnderBudgetReschedulesWithoutRethrow(t *testing.T) {
	t.Parallel()

	record := pendingRecord()
	failures := &fakeFailureRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.FailedDomainRegistration, error) {
			return record, nil
		},
	}
	orders := &fakeOrderRepo{
		getByIDFn: func(ctx context.Context, id int64) (*domain.Order, error) {
			return &domain.Order{ID: id, UserID: 5}, nil
		},
	}
	registrar := &fakeRegistrar{
		registerFn: func(ctx context.Context, params RegisterParams) *RegistrationResult {
			return &RegistrationResult{Success: false, Message: "Registry timeout"}
		},
	}

	retrier := newTestRetrier(t, failures, orders, registrar, nil)

	// A rescheduled attempt is settled; an error here would make the delivery
	// layer re-drive it immediately instead of waiting out the delay.
	if err := retrier.Retry(context.Background(), record.ID); err != nil {
		t.Fatalf("Retry() error = %v, want rescheduled attempt settled", err)
	}

	if failures.recordedCount != 1 {
		t.Fatalf("recorded retry count = %d, want 1", failures.recordedCount)
	}
	if failures.recordedStatus != domain.FailedRegistrationPending {
		t.Fatalf("recorded status = %s, want PENDING", failures.recordedStatus)
	}
	if failures.recordedNext == nil || !failures.recordedNext.Equal(retrierNow.Add(time.Hour)) {
		t.Fatalf("recorded next = %v, want one hour out", failures.recordedNext)
	}
}

func TestRetryFailureAtBudgetAbandonsAndNotifies(t *testing.T) {
	t.Parallel()

	record := pendingRecord()
	record.RetryCount = 2

	failures := &fakeFailureRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.FailedDomainRegistration, error) {
			return record, nil
		},
	}
	orders := &fakeOrderRepo{
		getByIDFn: func(ctx context.Context, id int64) (*domain.Order, error) {
			return &domain.Order{ID: id, UserID: 5}, nil
		},
	}
	registrar := &fakeRegistrar{
		registerFn: func(ctx context.Context, params RegisterParams) *RegistrationResult {
			return &RegistrationResult{Success: false, Message: "Registry timeout"}
		},
	}
	notifier := &fakeNotifier{}

	retrier := newTestRetrier(t, failures, orders, registrar, notifier)

	if err := retrier.Retry(context.Background(), record.ID); err != nil {
		t.Fatalf("abandonment is terminal bookkeeping, not an attempt failure: %v", err)
	}

	if failures.recordedCount != 3 {
		t.Fatalf("recorded retry count = %d, want 3", failures.recordedCount)
	}
	if failures.recordedStatus != domain.FailedRegistrationAbandoned {
		t.Fatalf("recorded status = %s, want ABANDONED", failures.recordedStatus)
	}
	if failures.recordedNext != nil {
		t.Fatal("abandoned record must not carry a next retry time")
	}
	if notifier.abandoned != 1 || notifier.lastOrder != 44 {
		t.Fatalf("admin notifications = %d for order %d, want 1 for 44", notifier.abandoned, notifier.lastOrder)
	}
}

func TestRetrySettledRecordIsNoOp(t *testing.T) {
	t.Parallel()

	record := pendingRecord()
	record.Status = domain.FailedRegistrationResolved

	failures := &fakeFailureRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.FailedDomainRegistration, error) {
			return record, nil
		},
	}
	registrar := &fakeRegistrar{
		registerFn: func(ctx context.Context, params RegisterParams) *RegistrationResult {
			t.Fatal("settled record must not be re-registered")
			return nil
		},
	}

	retrier := newTestRetrier(t, failures, &fakeOrderRepo{}, registrar, nil)

	if err := retrier.Retry(context.Background(), record.ID); err != nil {
		t.Fatalf("Retry() on settled record error = %v", err)
	}
}

func TestRetryUnknownRecordIsNoOp(t *testing.T) {
	t.Parallel()

	retrier := newTestRetrier(t, &fakeFailureRepo{}, &fakeOrderRepo{}, &fakeRegistrar{}, nil)

	if err := retrier.Retry(context.Background(), "missing"); err != nil {
		t.Fatalf("Retry() on unknown record error = %v", err)
	}
}

func TestRetryExhaustedBudgetIsNoOp(t *testing.T) {
	t.Parallel()

	record := pendingRecord()
	record.RetryCount = 3
	record.Status = domain.FailedRegistrationPending

	failures := &fakeFailureRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.FailedDomainRegistration, error) {
			return record, nil
		},
		markTerminalFn: func(ctx context.Context, id string, status domain.FailedRegistrationStatus) error {
			t.Fatal("exhausted record must keep its state")
			return nil
		},
	}
	registrar := &fakeRegistrar{
		registerFn: func(ctx context.Context, params RegisterParams) *RegistrationResult {
			t.Fatal("exhausted record must not be re-registered")
			return nil
		},
	}
	notifier := &fakeNotifier{}

	retrier := newTestRetrier(t, failures, &fakeOrderRepo{}, registrar, notifier)

	if err := retrier.Retry(context.Background(), record.ID); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if record.Status != domain.FailedRegistrationPending || record.RetryCount != 3 {
		t.Fatalf("record mutated: status=%s retryCount=%d", record.Status, record.RetryCount)
	}
	if notifier.abandoned != 0 {
		t.Fatalf("admin notifications = %d, want none", notifier.abandoned)
	}
}

func TestForceAbandon(t *testing.T) {
	t.Parallel()

	record := pendingRecord()
	failures := &fakeFailureRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.FailedDomainRegistration, error) {
			return record, nil
		},
	}
	notifier := &fakeNotifier{}

	retrier := newTestRetrier(t, failures, &fakeOrderRepo{}, &fakeRegistrar{}, notifier)

	if err := retrier.ForceAbandon(context.Background(), record.ID); err != nil {
		t.Fatalf("ForceAbandon() error = %v", err)
	}
	if failures.terminalStatus != domain.FailedRegistrationAbandoned {
		t.Fatalf("terminal status = %s, want ABANDONED", failures.terminalStatus)
	}
	if notifier.abandoned != 1 {
		t.Fatalf("admin notifications = %d, want 1", notifier.abandoned)
	}
}

func TestForceAbandonSettledRecordIsNoOp(t *testing.T) {
	t.Parallel()

	record := pendingRecord()
	record.Status = domain.FailedRegistrationAbandoned

	failures := &fakeFailureRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.FailedDomainRegistration, error) {
			return record, nil
		},
		markTerminalFn: func(ctx context.Context, id string, status domain.FailedRegistrationStatus) error {
			t.Fatal("settled record must not be touched")
			return nil
		},
	}

	retrier := newTestRetrier(t, failures, &fakeOrderRepo{}, &fakeRegistrar{}, nil)

	if err := retrier.ForceAbandon(context.Background(), record.ID); err != nil {
		t.Fatalf("ForceAbandon() error = %v", err)
	}
}

type fakeFailureRepo struct {
	createFn          func(ctx context.Context, f *domain.FailedDomainRegistration) error
	getByIDFn         func(ctx context.Context, id string) (*domain.FailedDomainRegistration, error)
	listFn            func(ctx context.Context, status *domain.FailedRegistrationStatus, limit int) ([]domain.FailedDomainRegistration, error)
	markRetryingFn    func(ctx context.Context, id string) (bool, error)
	recordFailureFn   func(ctx context.Context, id string, retryCount int, reason string, nextRetryAt *time.Time, status domain.FailedRegistrationStatus) error
	markTerminalFn    func(ctx context.Context, id string, status domain.FailedRegistrationStatus) error
	getDueForRetryFn  func(ctx context.Context, limit int) ([]domain.FailedDomainRegistration, error)
	countUnresolvedFn func(ctx context.Context, orderID int64) (int64, error)

	created        []*domain.FailedDomainRegistration
	recordedCount  int
	recordedStatus domain.FailedRegistrationStatus
	recordedNext   *time.Time
	terminalStatus domain.FailedRegistrationStatus
}

func (f *fakeFailureRepo) Create(ctx context.Context, record *domain.FailedDomainRegistration) error {
	f.created = append(f.created, record)
	if f.createFn != nil {
		return f.createFn(ctx, record)
	}
	return nil
}

func (f *fakeFailureRepo) GetByID(ctx context.Context, id string) (*domain.FailedDomainRegistration, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeFailureRepo) List(ctx context.Context, status *domain.FailedRegistrationStatus, limit int) ([]domain.FailedDomainRegistration, error) {
	if f.listFn != nil {
		return f.listFn(ctx, status, limit)
	}
	return nil, nil
}

func (f *fakeFailureRepo) MarkRetrying(ctx context.Context, id string) (bool, error) {
	if f.markRetryingFn != nil {
		return f.markRetryingFn(ctx, id)
	}
	return true, nil
}

func (f *fakeFailureRepo) RecordFailure(ctx context.Context, id string, retryCount int, reason string, nextRetryAt *time.Time, status domain.FailedRegistrationStatus) error {
	f.recordedCount = retryCount
	f.recordedStatus = status
	f.recordedNext = nextRetryAt
	if f.recordFailureFn != nil {
		return f.recordFailureFn(ctx, id, retryCount, reason, nextRetryAt, status)
	}
	return nil
}

func (f *fakeFailureRepo) MarkTerminal(ctx context.Context, id string, status domain.FailedRegistrationStatus) error {
	f.terminalStatus = status
	if f.markTerminalFn != nil {
		return f.markTerminalFn(ctx, id, status)
	}
	return nil
}

func (f *fakeFailureRepo) GetDueForRetry(ctx context.Context, limit int) ([]domain.FailedDomainRegistration, error) {
	if f.getDueForRetryFn != nil {
		return f.getDueForRetryFn(ctx, limit)
	}
	return nil, nil
}

func (f *fakeFailureRepo) CountUnresolvedForOrder(ctx context.Context, orderID int64) (int64, error) {
	if f.countUnresolvedFn != nil {
		return f.countUnresolvedFn(ctx, orderID)
	}
	return 0, nil
}

type fakeOrderRepo struct {
	getByIDFn       func(ctx context.Context, id int64) (*domain.Order, error)
	getItemByIDFn   func(ctx context.Context, itemID int64) (*domain.OrderItem, error)
	updateStatusFn  func(ctx context.Context, id int64, status domain.OrderStatus) error
	setItemDomainFn func(ctx context.Context, itemID int64, domainID int64) error
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOrderRepo) GetItemByID(ctx context.Context, itemID int64) (*domain.OrderItem, error) {
	if f.getItemByIDFn != nil {
		return f.getItemByIDFn(ctx, itemID)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, id, status)
	}
	return nil
}

func (f *fakeOrderRepo) SetItemDomain(ctx context.Context, itemID int64, domainID int64) error {
	if f.setItemDomainFn != nil {
		return f.setItemDomainFn(ctx, itemID, domainID)
	}
	return nil
}

type fakeRegistrar struct {
	registerFn func(ctx context.Context, params RegisterParams) *RegistrationResult
	calls      int
}

func (f *fakeRegistrar) Register(ctx context.Context, params RegisterParams) *RegistrationResult {
	f.calls++
	if f.registerFn != nil {
		return f.registerFn(ctx, params)
	}
	return &RegistrationResult{Success: true}
}
