package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/subhub-labs/subhub-backend/pkg/config"
	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
	pkgerrors "github.com/subhub-labs/subhub-backend/pkg/errors"
	"github.com/subhub-labs/subhub-backend/pkg/logger"
	"github.com/subhub-labs/subhub-backend/pkg/pagination"
)

// Provider delivers one message to one recipient contact. Implementations
// wrap a concrete channel such as SMTP or Twilio.
type Provider interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// Service dispatches and administers notifications.
type Service interface {
	Send(ctx context.Context, req SendRequest) (*DeliveryResult, error)
	Notify(ctx context.Context, title string, notifType enums.NotificationType, details, recipient string) error
	Broadcast(ctx context.Context, req BroadcastRequest) (*BroadcastResult, error)
	List(ctx context.Context, params ListQuery) (*ListResult, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Cleanup(ctx context.Context, now time.Time) (int64, error)
}

// ListQuery configures a notification listing.
type ListQuery struct {
	RecipientUserID *uuid.UUID
	Search          string
	SortBy          string
	Desc            bool
	Limit           int
	Cursor          string
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []NotificationDTO `json:"items"`
	Cursor string            `json:"cursor"`
}

type userResolver interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByMobile(ctx context.Context, mobile string) (*models.User, error)
}

type customerLister interface {
	ListByRole(ctx context.Context, role enums.UserRole) ([]models.User, error)
}

// ServiceParams packages the dependencies for the dispatch layer.
type ServiceParams struct {
	Repo   Repository
	Users  userResolver
	Roster customerLister
	Email  Provider
	SMS    Provider
	Config config.NotificationsConfig
	Logger *logger.Logger
	Now    func() time.Time
	Sleep  func(time.Duration)
}

type service struct {
	repo   Repository
	users  userResolver
	roster customerLister
	email  Provider
	sms    Provider
	cfg    config.NotificationsConfig
	logger *logger.Logger
	now    func() time.Time
	sleep  func(time.Duration)
}

// NewService builds a notification service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user resolver is required")
	}
	if params.Roster == nil {
		return nil, fmt.Errorf("customer roster is required")
	}
	cfg := params.Config
	if cfg.BroadcastPaceEvery <= 0 {
		cfg.BroadcastPaceEvery = 10
	}
	if cfg.BroadcastPaceStep <= 0 {
		cfg.BroadcastPaceStep = time.Second
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	sleep := params.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &service{
		repo:   params.Repo,
		users:  params.Users,
		roster: params.Roster,
		email:  params.Email,
		sms:    params.SMS,
		cfg:    cfg,
		logger: params.Logger,
		now:    now,
		sleep:  sleep,
	}, nil
}

// Send creates one notification row and delivers it synchronously. A provider
// failure is recorded on the row, never returned to the caller.
func (s *service) Send(ctx context.Context, req SendRequest) (*DeliveryResult, error) {
	title := strings.TrimSpace(req.Title)
	recipient := strings.TrimSpace(req.Recipient)
	if title == "" || recipient == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and recipient are required")
	}
	notifType, err := enums.ParseNotificationType(req.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification type")
	}

	notification := &models.Notification{
		Title:           title,
		Recipient:       recipient,
		RecipientUserID: s.resolveRecipient(ctx, recipient),
		Type:            notifType,
		Details:         strings.TrimSpace(req.Details),
		Status:          enums.NotificationStatusPending,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record notification")
	}

	delivered := s.dispatch(ctx, notification)
	return &DeliveryResult{Notification: fromModel(notification), Delivered: delivered}, nil
}

// Notify adapts Send to the lifecycle notifier contract used by the
// subscription sweeps.
func (s *service) Notify(ctx context.Context, title string, notifType enums.NotificationType, details, recipient string) error {
	_, err := s.Send(ctx, SendRequest{
		Title:     title,
		Type:      string(notifType),
		Details:   details,
		Recipient: recipient,
	})
	return err
}

// Broadcast fans the message out to every active customer. An identical
// pending or sent row suppresses the insert for that customer, which makes a
// retried broadcast safe.
func (s *service) Broadcast(ctx context.Context, req BroadcastRequest) (*BroadcastResult, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	notifType, err := enums.ParseNotificationType(req.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification type")
	}

	customers, err := s.roster.ListByRole(ctx, enums.UserRoleCustomer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list customers")
	}

	details := strings.TrimSpace(req.Details)
	result := &BroadcastResult{}
	dispatched := 0
	for i := range customers {
		customer := customers[i]
		recipient := customer.Email
		if recipient == "" && customer.MobileNumber != nil {
			recipient = *customer.MobileNumber
		}
		if recipient == "" {
			continue
		}

		userID := customer.ID
		notification := &models.Notification{
			Title:           title,
			Recipient:       recipient,
			RecipientUserID: &userID,
			Type:            notifType,
			Details:         details,
			Status:          enums.NotificationStatusPending,
		}
		created, err := s.repo.InsertUnlessDuplicate(ctx, notification)
		if err != nil {
			result.Failed++
			s.logBroadcastError(ctx, recipient, err)
			continue
		}
		if !created {
			result.Skipped++
			continue
		}

		if dispatched > 0 && dispatched%s.cfg.BroadcastPaceEvery == 0 {
			// Delay grows with the batch index to stay under provider limits.
			s.sleep(s.cfg.BroadcastPaceStep * time.Duration(dispatched/s.cfg.BroadcastPaceEvery))
		}
		if s.dispatch(ctx, notification) {
			result.Sent++
		} else {
			result.Failed++
		}
		dispatched++
	}
	return result, nil
}

func (s *service) List(ctx context.Context, params ListQuery) (*ListResult, error) {
	query := ListParams{
		RecipientUserID: params.RecipientUserID,
		Search:          strings.TrimSpace(params.Search),
		SortBy:          params.SortBy,
		Desc:            params.Desc,
		Limit:           params.Limit,
	}
	if params.Cursor != "" {
		if _, ok := orderColumns[params.SortBy]; ok && params.SortBy != "created" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cursor pagination requires date ordering")
		}
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: fromModels(rows), Cursor: cursor}, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil || notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and notification id are required")
	}
	result, err := s.repo.MarkRead(ctx, userID, notificationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	count, err := s.repo.MarkAllRead(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notifications read")
	}
	return count, nil
}

// Cleanup prunes read notifications past the retention window.
func (s *service) Cleanup(ctx context.Context, now time.Time) (int64, error) {
	retention := s.cfg.CleanupRetention
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	deleted, err := s.repo.DeleteOlderThan(ctx, now.Add(-retention))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cleanup notifications")
	}
	return deleted, nil
}

// dispatch routes by recipient shape, email for addresses and SMS otherwise,
// and records the attempt outcome on the row.
func (s *service) dispatch(ctx context.Context, notification *models.Notification) bool {
	provider := s.sms
	if looksLikeEmail(notification.Recipient) {
		provider = s.email
	}

	at := s.now().UTC()
	var deliveryErr error
	if provider == nil {
		deliveryErr = fmt.Errorf("no provider configured for recipient %q", notification.Recipient)
	} else {
		deliveryErr = provider.Send(ctx, notification.Recipient, notification.Title, notification.Details)
	}

	delivered := deliveryErr == nil
	if err := s.repo.RecordAttempt(ctx, notification.ID, delivered, at); err != nil && s.logger != nil {
		s.logger.Error(ctx, "notification.attempt.record_failed", err)
	}

	notification.Attempts++
	notification.LastAttemptAt = &at
	if delivered {
		notification.Status = enums.NotificationStatusSent
		notification.SentAt = &at
	} else {
		notification.Status = enums.NotificationStatusFailed
		if s.logger != nil {
			s.logger.Warn(s.logger.WithFields(ctx, map[string]any{
				"notification_id": notification.ID.String(),
				"error":           deliveryErr.Error(),
			}), "notification.delivery.failed")
		}
	}
	return delivered
}

func (s *service) resolveRecipient(ctx context.Context, recipient string) *uuid.UUID {
	var user *models.User
	var err error
	if looksLikeEmail(recipient) {
		user, err = s.users.FindByEmail(ctx, strings.ToLower(recipient))
	} else {
		user, err = s.users.FindByMobile(ctx, recipient)
	}
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) && s.logger != nil {
			s.logger.Error(ctx, "notification.recipient.resolve_failed", err)
		}
		return nil
	}
	id := user.ID
	return &id
}

func (s *service) logBroadcastError(ctx context.Context, recipient string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(s.logger.WithFields(ctx, map[string]any{
		"recipient": recipient,
		"error":     err.Error(),
	}), "notification.broadcast.insert_failed")
}

func looksLikeEmail(recipient string) bool {
	at := strings.Index(recipient, "@")
	return at > 0 && at < len(recipient)-1
}
