package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	rzpsdk "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"

	"github.com/subhub-labs/subhub-backend/pkg/config"
	pkgerrors "github.com/subhub-labs/subhub-backend/pkg/errors"
	"github.com/subhub-labs/subhub-backend/pkg/logger"
)

var (
	errKeyIDRequired  = errors.New("razorpay key id is required")
	errSecretRequired = errors.New("razorpay key secret is required")
)

// subunitFactor converts major currency units to the gateway's smallest unit.
var subunitFactor = decimal.NewFromInt(100)

// Order is the subset of a gateway order the billing flow needs.
type Order struct {
	ID       string
	Amount   int64
	Currency string
}

// Client wraps the Razorpay SDK with centralized credentials and signature
// verification.
type Client struct {
	sdk       *rzpsdk.Client
	keyID     string
	keySecret string
	currency  string
	logger    *logger.Logger
}

// NewClient initializes the Razorpay wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}

	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errSecretRequired
	}

	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "INR"
	}

	sdk := rzpsdk.NewClient(keyID, keySecret)

	if logg != nil {
		logg.Info(ctx, "razorpay client initialized")
	}

	return &Client{
		sdk:       sdk,
		keyID:     keyID,
		keySecret: keySecret,
		currency:  currency,
		logger:    logg,
	}, nil
}

// KeyID returns the publishable key the checkout widget needs.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// CreateOrder registers an order with the gateway for the given major-unit
// amount and returns the gateway order id the client completes against.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*Order, error) {
	if c == nil || c.sdk == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "razorpay client is not configured")
	}
	if amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount cannot be negative")
	}

	subunits := AmountToSubunits(amount)
	payload := map[string]interface{}{
		"amount":   subunits,
		"currency": c.currency,
		"receipt":  receipt,
	}

	body, err := c.sdk.Order.Create(payload, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create razorpay order")
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay order response missing id")
	}

	return &Order{ID: id, Amount: subunits, Currency: c.currency}, nil
}

// VerifySignature checks the checkout callback signature. Razorpay signs
// "<order_id>|<payment_id>" with the key secret using HMAC-SHA256 and sends
// the hex digest back with the callback.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	if c == nil {
		return false
	}
	return VerifySignature(orderID, paymentID, signature, c.keySecret)
}

// VerifySignature reports whether signature is a valid HMAC-SHA256 digest of
// the order and payment ids under the given secret. The comparison is
// constant time.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%s", orderID, paymentID)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// AmountToSubunits converts a major-unit amount to the gateway's integer
// subunit representation, rounding to the nearest subunit.
func AmountToSubunits(amount decimal.Decimal) int64 {
	return amount.Mul(subunitFactor).Round(0).IntPart()
}
