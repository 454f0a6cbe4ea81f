package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subhub-labs/subhub-backend/pkg/enums"
)

// MetricsSnapshot bundles every dashboard figure for one scope at one moment.
type MetricsSnapshot struct {
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	MRR          decimal.Decimal `json:"mrr"`
	ARPU         decimal.Decimal `json:"arpu"`
	ChurnRate    decimal.Decimal `json:"churn_rate"`

	PaymentMethodMix map[enums.PaymentMethod]decimal.Decimal `json:"payment_method_mix"`
	TopPlan          string                                  `json:"top_plan"`
	TopLocation      string                                  `json:"top_location"`

	MonthlyRevenue      []decimal.Decimal `json:"monthly_revenue"`
	MonthlySubscription []int             `json:"monthly_subscriptions"`

	TotalCustomers     int64            `json:"total_customers"`
	TotalPlans         int64            `json:"total_plans"`
	NewSubsThisMonth   int              `json:"new_subscriptions_this_month"`
	RecentTransactions []TransactionRow `json:"recent_transactions"`
	GeneratedAt        time.Time        `json:"generated_at"`
}

// TransactionRow is a single line of the dashboard's recent-payments table.
type TransactionRow struct {
	PaymentID     uuid.UUID           `json:"payment_id"`
	PlanName      string              `json:"plan_name"`
	Amount        decimal.Decimal     `json:"amount"`
	Method        enums.PaymentMethod `json:"method"`
	TransactionID string              `json:"transaction_id,omitempty"`
	PaidAt        time.Time           `json:"paid_at"`
}

// PaymentFact is one completed payment flattened for aggregation.
type PaymentFact struct {
	PaymentID     uuid.UUID
	Amount        decimal.Decimal
	Method        enums.PaymentMethod
	CustomerID    uuid.UUID
	PlanName      string
	TransactionID string
	CreatedAt     time.Time
}

// SubscriptionFact is one subscription flattened for aggregation.
type SubscriptionFact struct {
	ID           uuid.UUID
	CustomerID   uuid.UUID
	PlanName     string
	PlanPrice    decimal.Decimal
	PlanDuration enums.PlanDuration
	Status       enums.SubscriptionStatus
	Address      string
	CreatedAt    time.Time
	EndDate      *time.Time
}
