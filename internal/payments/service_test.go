package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/subhub-labs/subhub-backend/internal/subscriptions"
	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
	pkgerrors "github.com/subhub-labs/subhub-backend/pkg/errors"
	"github.com/subhub-labs/subhub-backend/pkg/razorpay"
)

type fakePaymentRepo struct {
	byID    map[uuid.UUID]*models.Payment
	byOrder map[string]uuid.UUID
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byID: map[uuid.UUID]*models.Payment{}, byOrder: map[string]uuid.UUID{}}
}

func (f *fakePaymentRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakePaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	payment.ID = uuid.New()
	stored := *payment
	f.byID[payment.ID] = &stored
	f.byOrder[payment.GatewayOrderID] = payment.ID
	return nil
}

func (f *fakePaymentRepo) FindByGatewayOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	id, ok := f.byOrder[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f.byID[id]
	return &copied, nil
}

func (f *fakePaymentRepo) CompletePending(ctx context.Context, id uuid.UUID, gatewayPaymentID, signature, transactionID string) (bool, error) {
	payment, ok := f.byID[id]
	if !ok || payment.Status != enums.PaymentStatusPending {
		return false, nil
	}
	payment.Status = enums.PaymentStatusCompleted
	pid, txn := gatewayPaymentID, transactionID
	payment.GatewayPaymentID = &pid
	payment.GatewaySignature = signature
	payment.TransactionID = &txn
	return true, nil
}

func (f *fakePaymentRepo) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	payment, ok := f.byID[id]
	if !ok || payment.Status != enums.PaymentStatusPending {
		return false, nil
	}
	payment.Status = enums.PaymentStatusFailed
	return true, nil
}

func (f *fakePaymentRepo) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]models.Payment, error) {
	var out []models.Payment
	for _, payment := range f.byID {
		if payment.SubscriptionID == subscriptionID {
			out = append(out, *payment)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Payment, error) {
	return nil, nil
}

type fakeSubReader struct {
	subs map[uuid.UUID]*models.Subscription
}

func (f *fakeSubReader) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	if sub, ok := f.subs[id]; ok {
		copied := *sub
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeActivator struct {
	subs      map[uuid.UUID]*models.Subscription
	activated []uuid.UUID
}

func (f *fakeActivator) ActivateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) (*subscriptions.ActivationResult, error) {
	sub, ok := f.subs[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	if sub.Status == enums.SubscriptionStatusActive {
		return &subscriptions.ActivationResult{Subscription: sub, AlreadyActive: true}, nil
	}
	sub.Status = enums.SubscriptionStatusActive
	sub.IsActive = true
	f.activated = append(f.activated, id)
	return &subscriptions.ActivationResult{Subscription: sub}, nil
}

type fakeGateway struct {
	orders  int
	lastAmt decimal.Decimal
	valid   map[string]bool
}

func (f *fakeGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*razorpay.Order, error) {
	f.orders++
	f.lastAmt = amount
	return &razorpay.Order{ID: "order_test_1", Amount: razorpay.AmountToSubunits(amount), Currency: "INR"}, nil
}

func (f *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return f.valid[signature]
}

func (f *fakeGateway) KeyID() string { return "rzp_test_key" }

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type paymentTestSetup struct {
	service   Service
	repo      *fakePaymentRepo
	gateway   *fakeGateway
	activator *fakeActivator
	customer  uuid.UUID
	sub       *models.Subscription
}

func newPaymentTestSetup(t *testing.T) *paymentTestSetup {
	t.Helper()
	customer := uuid.New()
	plan := &models.Plan{
		ID:       uuid.New(),
		Name:     "Gold",
		Price:    decimal.NewFromInt(200),
		Duration: enums.PlanDurationMonthly,
		Status:   enums.PlanStatusActive,
	}
	sub := &models.Subscription{
		ID:            uuid.New(),
		CustomerID:    customer,
		PlanID:        plan.ID,
		Plan:          plan,
		Status:        enums.SubscriptionStatusPending,
		PaymentMethod: enums.PaymentMethodCreditCard,
	}
	subs := map[uuid.UUID]*models.Subscription{sub.ID: sub}

	repo := newFakePaymentRepo()
	gateway := &fakeGateway{valid: map[string]bool{"good-signature": true}}
	activator := &fakeActivator{subs: subs}
	svc, err := NewService(ServiceParams{
		Repo:          repo,
		Subscriptions: &fakeSubReader{subs: subs},
		Activator:     activator,
		Gateway:       gateway,
		TxRunner:      stubTxRunner{},
		Now:           func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &paymentTestSetup{service: svc, repo: repo, gateway: gateway, activator: activator, customer: customer, sub: sub}
}

func TestStartCreatesPendingPayment(t *testing.T) {
	setup := newPaymentTestSetup(t)

	resp, err := setup.service.Start(context.Background(), setup.customer, StartPaymentRequest{SubscriptionID: setup.sub.ID})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if resp.OrderID != "order_test_1" || resp.KeyID != "rzp_test_key" || resp.Currency != "INR" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !resp.Amount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected amount 200, got %s", resp.Amount)
	}

	payment, err := setup.repo.FindByGatewayOrderID(context.Background(), "order_test_1")
	if err != nil {
		t.Fatalf("find payment: %v", err)
	}
	if payment.Status != enums.PaymentStatusPending || payment.SubscriptionID != setup.sub.ID {
		t.Fatalf("unexpected payment %+v", payment)
	}
}

func TestStartChargesDiscountedPrice(t *testing.T) {
	setup := newPaymentTestSetup(t)
	discount := decimal.NewFromInt(25)
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	setup.sub.Plan.DiscountPercent = &discount
	setup.sub.Plan.DiscountActivatedDate = &from
	setup.sub.Plan.DiscountDeactivatedDate = &until

	resp, err := setup.service.Start(context.Background(), setup.customer, StartPaymentRequest{SubscriptionID: setup.sub.ID})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !resp.Amount.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected discounted amount 150, got %s", resp.Amount)
	}
}

func TestStartRejectsForeignSubscription(t *testing.T) {
	setup := newPaymentTestSetup(t)

	_, err := setup.service.Start(context.Background(), uuid.New(), StartPaymentRequest{SubscriptionID: setup.sub.ID})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestStartRejectsNonPendingSubscription(t *testing.T) {
	setup := newPaymentTestSetup(t)
	setup.sub.Status = enums.SubscriptionStatusActive

	_, err := setup.service.Start(context.Background(), setup.customer, StartPaymentRequest{SubscriptionID: setup.sub.ID})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestConfirmRejectsBadSignature(t *testing.T) {
	setup := newPaymentTestSetup(t)

	_, err := setup.service.Confirm(context.Background(), ConfirmPaymentRequest{
		OrderID:   "order_test_1",
		PaymentID: "pay_1",
		Signature: "forged",
	})
	assertCode(t, err, pkgerrors.CodeDependency)
	if setup.gateway.orders != 0 {
		t.Fatal("confirm must not touch the gateway order API")
	}
}

func TestConfirmRejectsUnknownOrder(t *testing.T) {
	setup := newPaymentTestSetup(t)

	_, err := setup.service.Confirm(context.Background(), ConfirmPaymentRequest{
		OrderID:   "order_unknown",
		PaymentID: "pay_1",
		Signature: "good-signature",
	})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestConfirmSettlesAndActivates(t *testing.T) {
	setup := newPaymentTestSetup(t)
	if _, err := setup.service.Start(context.Background(), setup.customer, StartPaymentRequest{SubscriptionID: setup.sub.ID}); err != nil {
		t.Fatalf("start: %v", err)
	}

	resp, err := setup.service.Confirm(context.Background(), ConfirmPaymentRequest{
		OrderID:   "order_test_1",
		PaymentID: "pay_1",
		Signature: "good-signature",
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if resp.AlreadyActive {
		t.Fatal("first confirmation should activate, not report already active")
	}
	if resp.Payment.Status != enums.PaymentStatusCompleted || resp.Payment.TransactionID == "" {
		t.Fatalf("unexpected payment %+v", resp.Payment)
	}
	if len(setup.activator.activated) != 1 || setup.activator.activated[0] != setup.sub.ID {
		t.Fatalf("expected subscription activation, got %v", setup.activator.activated)
	}
}

func TestConfirmDuplicateCallbackIsIdempotent(t *testing.T) {
	setup := newPaymentTestSetup(t)
	if _, err := setup.service.Start(context.Background(), setup.customer, StartPaymentRequest{SubscriptionID: setup.sub.ID}); err != nil {
		t.Fatalf("start: %v", err)
	}

	req := ConfirmPaymentRequest{OrderID: "order_test_1", PaymentID: "pay_1", Signature: "good-signature"}
	first, err := setup.service.Confirm(context.Background(), req)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	second, err := setup.service.Confirm(context.Background(), req)
	if err != nil {
		t.Fatalf("duplicate confirm: %v", err)
	}
	if !second.AlreadyActive {
		t.Fatal("duplicate callback should report already active")
	}
	if second.Payment.TransactionID != first.Payment.TransactionID {
		t.Fatal("duplicate callback must not mint a new transaction id")
	}
	if len(setup.activator.activated) != 1 {
		t.Fatalf("subscription activated %d times", len(setup.activator.activated))
	}
}

func TestConfirmRejectsMismatchedPaymentOnSettledOrder(t *testing.T) {
	setup := newPaymentTestSetup(t)
	if _, err := setup.service.Start(context.Background(), setup.customer, StartPaymentRequest{SubscriptionID: setup.sub.ID}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := setup.service.Confirm(context.Background(), ConfirmPaymentRequest{
		OrderID: "order_test_1", PaymentID: "pay_1", Signature: "good-signature",
	}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	_, err := setup.service.Confirm(context.Background(), ConfirmPaymentRequest{
		OrderID: "order_test_1", PaymentID: "pay_other", Signature: "good-signature",
	})
	assertCode(t, err, pkgerrors.CodeConflict)
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
