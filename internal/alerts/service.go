package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
	pkgerrors "github.com/subhub-labs/subhub-backend/pkg/errors"
	"github.com/subhub-labs/subhub-backend/pkg/logger"
)

// Service generates and administers payment-due alerts.
type Service interface {
	GenerateDueAlerts(ctx context.Context, today time.Time) (*GenerateResult, error)
	List(ctx context.Context, unreadOnly bool) ([]AlertDTO, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

type dueReader interface {
	ListActiveEndingOn(ctx context.Context, date time.Time) ([]models.Subscription, error)
}

// Mailer delivers one alert mail. Failures are recorded and logged, never
// propagated out of the sweep.
type Mailer interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// ServiceParams packages the dependencies for the alert sweep.
type ServiceParams struct {
	Repo          Repository
	Subscriptions dueReader
	Mailer        Mailer
	DueSoonDays   int
	Logger        *logger.Logger
}

type service struct {
	repo        Repository
	subs        dueReader
	mailer      Mailer
	dueSoonDays int
	logger      *logger.Logger
}

// NewService builds an alert service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("alerts repository is required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions reader is required")
	}
	days := params.DueSoonDays
	if days <= 0 {
		days = 7
	}
	return &service{
		repo:        params.Repo,
		subs:        params.Subscriptions,
		mailer:      params.Mailer,
		dueSoonDays: days,
		logger:      params.Logger,
	}, nil
}

// GenerateDueAlerts creates one alert per subscription whose renewal falls on
// today or the due-soon horizon. A matching alert generated earlier today
// suppresses the duplicate on re-runs.
func (s *service) GenerateDueAlerts(ctx context.Context, today time.Time) (*GenerateResult, error) {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	result := &GenerateResult{}
	var sweepErr error

	dueToday, err := s.subs.ListActiveEndingOn(ctx, day)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list due subscriptions")
	}
	for i := range dueToday {
		sub := dueToday[i]
		created, err := s.generate(ctx, &sub, "Payment Due Today",
			fmt.Sprintf("Your payment of %s is due today.", renewalAmount(&sub, day)), day)
		if err != nil {
			sweepErr = multierr.Append(sweepErr, err)
			continue
		}
		if created {
			result.DueToday++
		} else {
			result.Skipped++
		}
	}

	dueSoon, err := s.subs.ListActiveEndingOn(ctx, day.AddDate(0, 0, s.dueSoonDays))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list upcoming subscriptions")
	}
	for i := range dueSoon {
		sub := dueSoon[i]
		created, err := s.generate(ctx, &sub, "Payment Due Soon",
			fmt.Sprintf("Your payment of %s is due in %d days.", renewalAmount(&sub, day), s.dueSoonDays), day)
		if err != nil {
			sweepErr = multierr.Append(sweepErr, err)
			continue
		}
		if created {
			result.DueSoon++
		} else {
			result.Skipped++
		}
	}

	return result, sweepErr
}

func (s *service) generate(ctx context.Context, sub *models.Subscription, subject, message string, day time.Time) (bool, error) {
	if sub.Customer == nil || sub.Customer.Email == "" {
		return false, nil
	}
	email := sub.Customer.Email

	exists, err := s.repo.ExistsFor(ctx, email, subject, day)
	if err != nil {
		return false, fmt.Errorf("check alert for %s: %w", email, err)
	}
	if exists {
		return false, nil
	}

	alert := &models.Alert{
		Category: enums.AlertCategorySubscription,
		Subject:  subject,
		Message:  message,
		Email:    email,
	}
	if err := s.repo.Create(ctx, alert); err != nil {
		return false, fmt.Errorf("create alert for %s: %w", email, err)
	}

	if s.mailer != nil {
		if err := s.mailer.Send(ctx, email, subject, message); err != nil && s.logger != nil {
			s.logger.Warn(s.logger.WithFields(ctx, map[string]any{
				"email": email,
				"error": err.Error(),
			}), "alert.mail.failed")
		}
	}
	return true, nil
}

func (s *service) List(ctx context.Context, unreadOnly bool) ([]AlertDTO, error) {
	list, err := s.repo.List(ctx, unreadOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list alerts")
	}
	return fromModels(list), nil
}

func (s *service) MarkRead(ctx context.Context, id uuid.UUID) error {
	updated, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark alert read")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeNotFound, "alert not found or already read")
	}
	return nil
}

func renewalAmount(sub *models.Subscription, at time.Time) string {
	if sub.Plan == nil {
		return "your renewal"
	}
	return sub.Plan.FinalPrice(at).StringFixed(2)
}
