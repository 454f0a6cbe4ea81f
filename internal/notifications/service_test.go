package notifications

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/subhub-labs/subhub-backend/pkg/config"
	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
	pkgerrors "github.com/subhub-labs/subhub-backend/pkg/errors"
	"github.com/subhub-labs/subhub-backend/pkg/pagination"
)

type fakeNotificationRepo struct {
	rows map[uuid.UUID]*models.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{rows: map[uuid.UUID]*models.Notification{}}
}

func (f *fakeNotificationRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	notification.ID = uuid.New()
	stored := *notification
	f.rows[notification.ID] = &stored
	return nil
}

func (f *fakeNotificationRepo) InsertUnlessDuplicate(ctx context.Context, notification *models.Notification) (bool, error) {
	for _, row := range f.rows {
		if row.RecipientUserID != nil && notification.RecipientUserID != nil &&
			*row.RecipientUserID == *notification.RecipientUserID &&
			row.Title == notification.Title && row.Details == notification.Details &&
			(row.Status == enums.NotificationStatusPending || row.Status == enums.NotificationStatusSent) {
			return false, nil
		}
	}
	notification.ID = uuid.New()
	notification.Status = enums.NotificationStatusPending
	stored := *notification
	f.rows[notification.ID] = &stored
	return true, nil
}

func (f *fakeNotificationRepo) RecordAttempt(ctx context.Context, id uuid.UUID, delivered bool, at time.Time) error {
	row, ok := f.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.Attempts++
	row.LastAttemptAt = &at
	if delivered {
		row.Status = enums.NotificationStatusSent
		row.SentAt = &at
	} else {
		row.Status = enums.NotificationStatusFailed
	}
	return nil
}

func (f *fakeNotificationRepo) List(ctx context.Context, params ListParams) ([]models.Notification, *pagination.Cursor, error) {
	var out []models.Notification
	for _, row := range f.rows {
		if params.RecipientUserID != nil &&
			(row.RecipientUserID == nil || *row.RecipientUserID != *params.RecipientUserID) {
			continue
		}
		out = append(out, *row)
	}
	return out, nil, nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (markResult, error) {
	row, ok := f.rows[notificationID]
	if !ok || row.RecipientUserID == nil || *row.RecipientUserID != userID {
		return markResult{}, nil
	}
	if row.IsRead {
		return markResult{Found: true}, nil
	}
	row.IsRead = true
	row.ReadAt = &now
	return markResult{Found: true, Updated: true}, nil
}

func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	var count int64
	for _, row := range f.rows {
		if row.RecipientUserID != nil && *row.RecipientUserID == userID && !row.IsRead {
			row.IsRead = true
			row.ReadAt = &now
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	for id, row := range f.rows {
		if row.IsRead && row.CreatedAt.Before(cutoff) {
			delete(f.rows, id)
			count++
		}
	}
	return count, nil
}

type fakeUserResolver struct {
	byEmail  map[string]*models.User
	byMobile map[string]*models.User
}

func (f *fakeUserResolver) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := f.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserResolver) FindByMobile(ctx context.Context, mobile string) (*models.User, error) {
	if user, ok := f.byMobile[mobile]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeRoster struct {
	customers []models.User
}

func (f *fakeRoster) ListByRole(ctx context.Context, role enums.UserRole) ([]models.User, error) {
	return f.customers, nil
}

type fakeProvider struct {
	sent []string
	fail map[string]bool
}

func (f *fakeProvider) Send(ctx context.Context, recipient, subject, body string) error {
	if f.fail[recipient] {
		return fmt.Errorf("provider rejected %s", recipient)
	}
	f.sent = append(f.sent, recipient)
	return nil
}

type dispatchTestSetup struct {
	service  Service
	repo     *fakeNotificationRepo
	resolver *fakeUserResolver
	roster   *fakeRoster
	email    *fakeProvider
	sms      *fakeProvider
	sleeps   []time.Duration
}

func newDispatchTestSetup(t *testing.T) *dispatchTestSetup {
	t.Helper()
	setup := &dispatchTestSetup{
		repo:     newFakeNotificationRepo(),
		resolver: &fakeUserResolver{byEmail: map[string]*models.User{}, byMobile: map[string]*models.User{}},
		roster:   &fakeRoster{},
		email:    &fakeProvider{fail: map[string]bool{}},
		sms:      &fakeProvider{fail: map[string]bool{}},
	}
	svc, err := NewService(ServiceParams{
		Repo:   setup.repo,
		Users:  setup.resolver,
		Roster: setup.roster,
		Email:  setup.email,
		SMS:    setup.sms,
		Config: config.NotificationsConfig{BroadcastPaceEvery: 2, BroadcastPaceStep: time.Second},
		Now:    func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) },
		Sleep:  func(d time.Duration) { setup.sleeps = append(setup.sleeps, d) },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	setup.service = svc
	return setup
}

func customerUser(email string) models.User {
	return models.User{ID: uuid.New(), Email: email, Role: enums.UserRoleCustomer, IsActive: true}
}

func TestSendEmailResolvesRecipientUser(t *testing.T) {
	setup := newDispatchTestSetup(t)
	user := customerUser("amit@example.com")
	setup.resolver.byEmail["amit@example.com"] = &user

	result, err := setup.service.Send(context.Background(), SendRequest{
		Title:     "Payment received",
		Type:      "Payment",
		Details:   "Thanks for your payment.",
		Recipient: "amit@example.com",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !result.Delivered || result.Notification.Status != enums.NotificationStatusSent {
		t.Fatalf("expected delivered, got %+v", result)
	}
	if result.Notification.Attempts != 1 || result.Notification.SentAt == nil {
		t.Fatalf("attempt bookkeeping missing: %+v", result.Notification)
	}
	if len(setup.email.sent) != 1 || len(setup.sms.sent) != 0 {
		t.Fatal("expected the email provider to carry the message")
	}

	stored := setup.repo.rows[result.Notification.ID]
	if stored.RecipientUserID == nil || *stored.RecipientUserID != user.ID {
		t.Fatal("expected the recipient to resolve to the known user")
	}
}

func TestSendRoutesPhoneNumbersToSMS(t *testing.T) {
	setup := newDispatchTestSetup(t)

	result, err := setup.service.Send(context.Background(), SendRequest{
		Title:     "Subscription ends soon",
		Type:      "Subscription",
		Recipient: "+919900112233",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !result.Delivered {
		t.Fatal("expected delivery")
	}
	if len(setup.sms.sent) != 1 || len(setup.email.sent) != 0 {
		t.Fatal("expected the SMS provider to carry the message")
	}
}

func TestSendRecordsProviderFailureWithoutRaising(t *testing.T) {
	setup := newDispatchTestSetup(t)
	setup.email.fail["broken@example.com"] = true

	result, err := setup.service.Send(context.Background(), SendRequest{
		Title:     "Test",
		Type:      "Discount",
		Recipient: "broken@example.com",
	})
	if err != nil {
		t.Fatalf("delivery failures must not surface as errors, got %v", err)
	}
	if result.Delivered {
		t.Fatal("expected failed delivery")
	}
	if result.Notification.Status != enums.NotificationStatusFailed || result.Notification.Attempts != 1 {
		t.Fatalf("expected failed row with one attempt, got %+v", result.Notification)
	}
}

func TestSendRejectsUnknownType(t *testing.T) {
	setup := newDispatchTestSetup(t)

	_, err := setup.service.Send(context.Background(), SendRequest{
		Title:     "Hello",
		Type:      "Carrier-Pigeon",
		Recipient: "someone@example.com",
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestBroadcastSkipsExistingIdenticalRow(t *testing.T) {
	setup := newDispatchTestSetup(t)
	a := customerUser("a@example.com")
	b := customerUser("b@example.com")
	c := customerUser("c@example.com")
	setup.roster.customers = []models.User{a, b, c}

	// Customer b already has an identical pending row from a prior run.
	existingID := b.ID
	setup.repo.rows[uuid.New()] = &models.Notification{
		ID:              uuid.New(),
		Title:           "Maintenance window",
		Details:         "Sunday 02:00",
		Recipient:       b.Email,
		RecipientUserID: &existingID,
		Type:            enums.NotificationTypeSubscription,
		Status:          enums.NotificationStatusPending,
	}

	result, err := setup.service.Broadcast(context.Background(), BroadcastRequest{
		Title:   "Maintenance window",
		Type:    "Subscription",
		Details: "Sunday 02:00",
	})
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if result.Sent != 2 || result.Skipped != 1 || result.Failed != 0 {
		t.Fatalf("expected 2 sent / 1 skipped, got %+v", result)
	}
	if len(setup.email.sent) != 2 {
		t.Fatalf("expected 2 provider calls, got %d", len(setup.email.sent))
	}
}

func TestBroadcastCountsProviderFailures(t *testing.T) {
	setup := newDispatchTestSetup(t)
	a := customerUser("a@example.com")
	b := customerUser("b@example.com")
	setup.roster.customers = []models.User{a, b}
	setup.email.fail["b@example.com"] = true

	result, err := setup.service.Broadcast(context.Background(), BroadcastRequest{
		Title: "Price change",
		Type:  "Discount",
	})
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if result.Sent != 1 || result.Failed != 1 {
		t.Fatalf("expected 1 sent / 1 failed, got %+v", result)
	}
}

func TestBroadcastPacesLargeBatches(t *testing.T) {
	setup := newDispatchTestSetup(t)
	var customers []models.User
	for i := 0; i < 5; i++ {
		customers = append(customers, customerUser(fmt.Sprintf("c%d@example.com", i)))
	}
	setup.roster.customers = customers

	if _, err := setup.service.Broadcast(context.Background(), BroadcastRequest{
		Title: "Newsletter",
		Type:  "Discount",
	}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	// Pace every 2 dispatches with a growing step.
	if len(setup.sleeps) != 2 || setup.sleeps[0] != time.Second || setup.sleeps[1] != 2*time.Second {
		t.Fatalf("unexpected pacing %v", setup.sleeps)
	}
}

func TestMarkReadScopedToRecipient(t *testing.T) {
	setup := newDispatchTestSetup(t)
	user := customerUser("a@example.com")
	setup.resolver.byEmail[user.Email] = &user

	result, err := setup.service.Send(context.Background(), SendRequest{
		Title:     "Hello",
		Type:      "Payment",
		Recipient: user.Email,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	err = setup.service.MarkRead(context.Background(), uuid.New(), result.Notification.ID)
	assertCode(t, err, pkgerrors.CodeNotFound)

	if err := setup.service.MarkRead(context.Background(), user.ID, result.Notification.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !setup.repo.rows[result.Notification.ID].IsRead {
		t.Fatal("expected row marked read")
	}
}

func TestListRejectsCursorWithColumnSort(t *testing.T) {
	setup := newDispatchTestSetup(t)

	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: time.Now(), ID: uuid.New()})
	_, err := setup.service.List(context.Background(), ListQuery{SortBy: "title", Cursor: cursor})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s", code, typed.Code())
	}
}
