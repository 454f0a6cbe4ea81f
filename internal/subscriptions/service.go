package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
	pkgerrors "github.com/subhub-labs/subhub-backend/pkg/errors"
	"github.com/subhub-labs/subhub-backend/pkg/logger"
)

const expiryNoticeDays = 5

// ActivationResult reports the outcome of an activation attempt.
type ActivationResult struct {
	Subscription  *models.Subscription
	AlreadyActive bool
}

// SweepResult summarizes one expiry sweep run.
type SweepResult struct {
	Expired      []uuid.UUID
	ExpiringSoon []uuid.UUID
}

// Service drives the subscription state machine.
type Service interface {
	Create(ctx context.Context, customerID uuid.UUID, req CreateSubscriptionRequest) (*SubscriptionDTO, error)
	Activate(ctx context.Context, id uuid.UUID, at time.Time) (*ActivationResult, error)
	ActivateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) (*ActivationResult, error)
	Cancel(ctx context.Context, id, actorID uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*SubscriptionDTO, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]SubscriptionDTO, error)
	ExpireDueToday(ctx context.Context, today time.Time) (*SweepResult, error)
	NotifyExpiringSoon(ctx context.Context, today time.Time) (*SweepResult, error)
}

type planReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error)
}

// Notifier delivers lifecycle notifications to a single recipient contact.
type Notifier interface {
	Notify(ctx context.Context, title string, notifType enums.NotificationType, details, recipient string) error
}

type service struct {
	repo     Repository
	plans    planReader
	notifier Notifier
	logger   *logger.Logger
	now      func() time.Time
}

// ServiceParams bundles the dependencies for the subscriptions service.
type ServiceParams struct {
	Repo     Repository
	Plans    planReader
	Notifier Notifier
	Logger   *logger.Logger
	Now      func() time.Time
}

// NewService validates params and builds the lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscriptions repository is required")
	}
	if params.Plans == nil {
		return nil, fmt.Errorf("plans reader is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		plans:    params.Plans,
		notifier: params.Notifier,
		logger:   params.Logger,
		now:      now,
	}, nil
}

func (s *service) Create(ctx context.Context, customerID uuid.UUID, req CreateSubscriptionRequest) (*SubscriptionDTO, error) {
	phone := strings.TrimSpace(req.PhoneNumber)
	address := strings.TrimSpace(req.Address)
	if phone == "" || address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone number and address are required")
	}
	method, err := enums.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}

	plan, err := s.plans.FindByID(ctx, req.PlanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan not available")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load plan")
	}
	if plan.Status != enums.PlanStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan not available")
	}

	subscription := &models.Subscription{
		CustomerID:    customerID,
		PlanID:        plan.ID,
		Status:        enums.SubscriptionStatusPending,
		IsActive:      false,
		PhoneNumber:   phone,
		Address:       address,
		PaymentMethod: method,
	}
	if err := s.repo.Create(ctx, subscription); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create subscription")
	}
	subscription.Plan = plan
	return fromModel(subscription, s.now()), nil
}

func (s *service) Activate(ctx context.Context, id uuid.UUID, at time.Time) (*ActivationResult, error) {
	return s.activate(ctx, s.repo, id, at)
}

// ActivateTx runs activation against an open transaction so payment recording
// and the state flip commit together.
func (s *service) ActivateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) (*ActivationResult, error) {
	return s.activate(ctx, s.repo.WithTx(tx), id, at)
}

func (s *service) activate(ctx context.Context, repo Repository, id uuid.UUID, at time.Time) (*ActivationResult, error) {
	subscription, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load subscription")
	}

	start := dateOnly(at)
	end := start.AddDate(0, 0, durationDays(subscription.Plan))

	updated, err := repo.ActivatePending(ctx, id, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "activate subscription")
	}
	if !updated {
		// Lost the precondition race or re-delivered callback. An already
		// active row keeps its original window untouched.
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload subscription")
		}
		if current.Status == enums.SubscriptionStatusActive {
			return &ActivationResult{Subscription: current, AlreadyActive: true}, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is not pending")
	}

	subscription.Status = enums.SubscriptionStatusActive
	subscription.IsActive = true
	subscription.StartDate = &start
	subscription.EndDate = &end
	return &ActivationResult{Subscription: subscription}, nil
}

func (s *service) Cancel(ctx context.Context, id, actorID uuid.UUID) error {
	subscription, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load subscription")
	}
	if subscription.CustomerID != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "subscription belongs to another customer")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete subscription")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*SubscriptionDTO, error) {
	subscription, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load subscription")
	}
	return fromModel(subscription, s.now()), nil
}

func (s *service) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]SubscriptionDTO, error) {
	list, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list subscriptions")
	}
	return fromModels(list, s.now()), nil
}

// ExpireDueToday flips active subscriptions whose end_date is today to
// inactive and emits an ended notification per row. Per-item failures are
// accumulated so one bad row never aborts the sweep.
func (s *service) ExpireDueToday(ctx context.Context, today time.Time) (*SweepResult, error) {
	due, err := s.repo.ListActiveEndingOn(ctx, dateOnly(today))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list due subscriptions")
	}

	result := &SweepResult{}
	var sweepErr error
	for i := range due {
		sub := due[i]
		updated, err := s.repo.MarkInactive(ctx, sub.ID)
		if err != nil {
			sweepErr = multierr.Append(sweepErr, fmt.Errorf("expire %s: %w", sub.ID, err))
			continue
		}
		if !updated {
			continue
		}
		result.Expired = append(result.Expired, sub.ID)
		s.notifyLifecycle(ctx, &sub, "Subscription ended",
			fmt.Sprintf("Your %s subscription ended on %s.", planName(&sub), dateOnly(today).Format("2006-01-02")))
	}
	return result, sweepErr
}

// NotifyExpiringSoon warns customers five days ahead without touching state.
func (s *service) NotifyExpiringSoon(ctx context.Context, today time.Time) (*SweepResult, error) {
	soon, err := s.repo.ListActiveEndingOn(ctx, dateOnly(today).AddDate(0, 0, expiryNoticeDays))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list expiring subscriptions")
	}

	result := &SweepResult{}
	for i := range soon {
		sub := soon[i]
		result.ExpiringSoon = append(result.ExpiringSoon, sub.ID)
		s.notifyLifecycle(ctx, &sub, "Subscription ends soon",
			fmt.Sprintf("Your %s subscription ends in %d days.", planName(&sub), expiryNoticeDays))
	}
	return result, nil
}

func (s *service) notifyLifecycle(ctx context.Context, sub *models.Subscription, title, details string) {
	if s.notifier == nil {
		return
	}
	recipient := ""
	if sub.Customer != nil {
		recipient = sub.Customer.Email
	}
	if recipient == "" {
		recipient = sub.PhoneNumber
	}
	if recipient == "" {
		return
	}
	if err := s.notifier.Notify(ctx, title, enums.NotificationTypeSubscription, details, recipient); err != nil && s.logger != nil {
		s.logger.Warn(s.logger.WithFields(ctx, map[string]any{
			"subscription_id": sub.ID.String(),
			"error":           err.Error(),
		}), "subscription.notify.failed")
	}
}

// durationDays maps plan duration to the subscription window length. Unknown
// durations fall back to 30 days rather than failing activation.
func durationDays(plan *models.Plan) int {
	if plan == nil {
		return 30
	}
	switch plan.Duration {
	case enums.PlanDurationMonthly:
		return 30
	case enums.PlanDurationYearly:
		return 365
	default:
		return 30
	}
}

func planName(sub *models.Subscription) string {
	if sub.Plan != nil && sub.Plan.Name != "" {
		return sub.Plan.Name
	}
	return "subscription"
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
