package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/subhub-labs/subhub-backend/internal/subscriptions"
	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
	pkgerrors "github.com/subhub-labs/subhub-backend/pkg/errors"
	"github.com/subhub-labs/subhub-backend/pkg/logger"
	"github.com/subhub-labs/subhub-backend/pkg/razorpay"
)

// Service reconciles gateway checkouts against subscriptions.
type Service interface {
	Start(ctx context.Context, customerID uuid.UUID, req StartPaymentRequest) (*StartPaymentResponse, error)
	Confirm(ctx context.Context, req ConfirmPaymentRequest) (*ConfirmPaymentResponse, error)
	ListBySubscription(ctx context.Context, subscriptionID, actorID uuid.UUID) ([]PaymentDTO, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]PaymentDTO, error)
}

// Gateway is the slice of the payment gateway the reconciler depends on.
type Gateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*razorpay.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

// TxRunner executes a function within a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type subscriptionReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
}

type subscriptionActivator interface {
	ActivateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) (*subscriptions.ActivationResult, error)
}

// ServiceParams packages the dependencies for the payment reconciler.
type ServiceParams struct {
	Repo          Repository
	Subscriptions subscriptionReader
	Activator     subscriptionActivator
	Gateway       Gateway
	TxRunner      TxRunner
	Logger        *logger.Logger
	Now           func() time.Time
}

type service struct {
	repo      Repository
	subs      subscriptionReader
	activator subscriptionActivator
	gateway   Gateway
	tx        TxRunner
	logger    *logger.Logger
	now       func() time.Time
}

// NewService builds a payment service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository is required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions reader is required")
	}
	if params.Activator == nil {
		return nil, fmt.Errorf("subscription activator is required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway is required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		subs:      params.Subscriptions,
		activator: params.Activator,
		gateway:   params.Gateway,
		tx:        params.TxRunner,
		logger:    params.Logger,
		now:       now,
	}, nil
}

// Start opens a gateway order for a pending subscription. The charged amount
// is the plan's final price at this moment, so a discount that lapses between
// enrollment and checkout is not honored.
func (s *service) Start(ctx context.Context, customerID uuid.UUID, req StartPaymentRequest) (*StartPaymentResponse, error) {
	sub, err := s.subs.FindByID(ctx, req.SubscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load subscription")
	}
	if sub.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	if sub.Status != enums.SubscriptionStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is not awaiting payment")
	}
	if sub.Plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription has no plan loaded")
	}

	amount := sub.Plan.FinalPrice(s.now())
	order, err := s.gateway.CreateOrder(ctx, amount, sub.ID.String())
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		SubscriptionID: sub.ID,
		Amount:         amount,
		Method:         sub.PaymentMethod,
		Status:         enums.PaymentStatusPending,
		GatewayOrderID: order.ID,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record pending payment")
	}

	if s.logger != nil {
		s.logger.Info(s.logger.WithFields(ctx, map[string]any{
			"subscription_id": sub.ID.String(),
			"order_id":        order.ID,
		}), "payment.checkout.started")
	}

	return &StartPaymentResponse{
		OrderID:  order.ID,
		Amount:   amount,
		Currency: order.Currency,
		KeyID:    s.gateway.KeyID(),
	}, nil
}

// Confirm settles the gateway callback. The signature is verified before any
// lookup so a forged callback learns nothing about known order ids.
func (s *service) Confirm(ctx context.Context, req ConfirmPaymentRequest) (*ConfirmPaymentResponse, error) {
	orderID := strings.TrimSpace(req.OrderID)
	paymentID := strings.TrimSpace(req.PaymentID)
	signature := strings.TrimSpace(req.Signature)
	if orderID == "" || paymentID == "" || signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id, payment id and signature are required")
	}

	if !s.gateway.VerifySignature(orderID, paymentID, signature) {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment signature verification failed")
	}

	payment, err := s.repo.FindByGatewayOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment found for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
	}

	if payment.Status == enums.PaymentStatusCompleted {
		return s.confirmDuplicate(ctx, payment, paymentID)
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not pending")
	}

	transactionID := newTransactionID()
	var activation *subscriptions.ActivationResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.repo.WithTx(tx).CompletePending(ctx, payment.ID, paymentID, signature, transactionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle payment")
		}
		if !updated {
			// Lost the race with a concurrent callback. Surfaced after the
			// rollback as a duplicate confirmation.
			return errSettledElsewhere
		}
		activation, err = s.activator.ActivateTx(ctx, tx, payment.SubscriptionID, s.now())
		return err
	})
	if errors.Is(err, errSettledElsewhere) {
		reloaded, reloadErr := s.repo.FindByGatewayOrderID(ctx, orderID)
		if reloadErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, reloadErr, "reload settled payment")
		}
		return s.confirmDuplicate(ctx, reloaded, paymentID)
	}
	if err != nil {
		return nil, err
	}

	payment.Status = enums.PaymentStatusCompleted
	payment.GatewayPaymentID = &paymentID
	payment.TransactionID = &transactionID

	if s.logger != nil {
		s.logger.Info(s.logger.WithFields(ctx, map[string]any{
			"subscription_id": payment.SubscriptionID.String(),
			"order_id":        orderID,
			"transaction_id":  transactionID,
		}), "payment.settled")
	}

	return &ConfirmPaymentResponse{
		Payment:        fromModel(payment),
		SubscriptionID: payment.SubscriptionID,
		AlreadyActive:  activation != nil && activation.AlreadyActive,
	}, nil
}

var errSettledElsewhere = errors.New("payment settled by concurrent callback")

// confirmDuplicate acknowledges a repeated callback for an already settled
// payment without touching the subscription again.
func (s *service) confirmDuplicate(ctx context.Context, payment *models.Payment, paymentID string) (*ConfirmPaymentResponse, error) {
	if payment.GatewayPaymentID == nil || *payment.GatewayPaymentID != paymentID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already settled by a different payment")
	}
	return &ConfirmPaymentResponse{
		Payment:        fromModel(payment),
		SubscriptionID: payment.SubscriptionID,
		AlreadyActive:  true,
	}, nil
}

func (s *service) ListBySubscription(ctx context.Context, subscriptionID, actorID uuid.UUID) ([]PaymentDTO, error) {
	sub, err := s.subs.FindByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load subscription")
	}
	if sub.CustomerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}

	list, err := s.repo.ListBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments")
	}
	return fromModels(list), nil
}

func (s *service) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]PaymentDTO, error) {
	list, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments")
	}
	return fromModels(list), nil
}

func newTransactionID() string {
	return "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:20])
}
