package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
	pkgerrors "github.com/subhub-labs/subhub-backend/pkg/errors"
)

type fakeAlertRepo struct {
	alerts []*models.Alert
}

func (f *fakeAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	alert.ID = uuid.New()
	alert.DateSent = time.Now().UTC()
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeAlertRepo) ExistsFor(ctx context.Context, email, subject string, since time.Time) (bool, error) {
	for _, alert := range f.alerts {
		if alert.Email == email && alert.Subject == subject {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAlertRepo) List(ctx context.Context, unreadOnly bool) ([]models.Alert, error) {
	var out []models.Alert
	for _, alert := range f.alerts {
		if unreadOnly && alert.Read {
			continue
		}
		out = append(out, *alert)
	}
	return out, nil
}

func (f *fakeAlertRepo) MarkRead(ctx context.Context, id uuid.UUID) (bool, error) {
	for _, alert := range f.alerts {
		if alert.ID == id && !alert.Read {
			alert.Read = true
			return true, nil
		}
	}
	return false, nil
}

type fakeDueReader struct {
	byDate map[string][]models.Subscription
}

func (f *fakeDueReader) ListActiveEndingOn(ctx context.Context, date time.Time) ([]models.Subscription, error) {
	return f.byDate[date.Format("2006-01-02")], nil
}

type fakeAlertMailer struct {
	sent []string
}

func (f *fakeAlertMailer) Send(ctx context.Context, recipient, subject, body string) error {
	f.sent = append(f.sent, recipient)
	return nil
}

func dueSubscription(email string, price int64) models.Subscription {
	return models.Subscription{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		Status:     enums.SubscriptionStatusActive,
		Customer:   &models.User{Email: email},
		Plan:       &models.Plan{Name: "Gold", Price: decimal.NewFromInt(price)},
	}
}

func newAlertService(t *testing.T, repo *fakeAlertRepo, due *fakeDueReader, mailer *fakeAlertMailer) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:          repo,
		Subscriptions: due,
		Mailer:        mailer,
		DueSoonDays:   7,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestGenerateDueAlerts(t *testing.T) {
	today := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	due := &fakeDueReader{byDate: map[string][]models.Subscription{
		"2024-07-01": {dueSubscription("now@example.com", 199)},
		"2024-07-08": {dueSubscription("soon@example.com", 499)},
	}}
	repo := &fakeAlertRepo{}
	mailer := &fakeAlertMailer{}
	svc := newAlertService(t, repo, due, mailer)

	result, err := svc.GenerateDueAlerts(context.Background(), today)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.DueToday != 1 || result.DueSoon != 1 || result.Skipped != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(repo.alerts) != 2 || len(mailer.sent) != 2 {
		t.Fatalf("expected 2 alerts and 2 mails, got %d/%d", len(repo.alerts), len(mailer.sent))
	}
	if repo.alerts[0].Subject != "Payment Due Today" || repo.alerts[1].Subject != "Payment Due Soon" {
		t.Fatalf("unexpected subjects %q / %q", repo.alerts[0].Subject, repo.alerts[1].Subject)
	}
	if repo.alerts[0].Message != "Your payment of 199.00 is due today." {
		t.Fatalf("unexpected message %q", repo.alerts[0].Message)
	}
}

func TestGenerateDueAlertsSkipsDuplicatesOnRerun(t *testing.T) {
	today := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	due := &fakeDueReader{byDate: map[string][]models.Subscription{
		"2024-07-01": {dueSubscription("now@example.com", 199)},
	}}
	repo := &fakeAlertRepo{}
	svc := newAlertService(t, repo, due, &fakeAlertMailer{})

	if _, err := svc.GenerateDueAlerts(context.Background(), today); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	result, err := svc.GenerateDueAlerts(context.Background(), today)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if result.DueToday != 0 || result.Skipped != 1 {
		t.Fatalf("expected duplicate skip, got %+v", result)
	}
	if len(repo.alerts) != 1 {
		t.Fatalf("expected a single alert row, got %d", len(repo.alerts))
	}
}

func TestMarkRead(t *testing.T) {
	repo := &fakeAlertRepo{}
	svc := newAlertService(t, repo, &fakeDueReader{}, nil)

	alert := &models.Alert{Email: "a@example.com", Subject: "Payment Due Today"}
	if err := repo.Create(context.Background(), alert); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := svc.MarkRead(context.Background(), alert.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	err := svc.MarkRead(context.Background(), alert.ID)
	assertCode(t, err, pkgerrors.CodeNotFound)
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
