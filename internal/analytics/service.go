package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/subhub-labs/subhub-backend/pkg/config"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
	pkgerrors "github.com/subhub-labs/subhub-backend/pkg/errors"
	"github.com/subhub-labs/subhub-backend/pkg/logger"
)

const monthsPerYear = 12

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// Service computes dashboard metric snapshots, optionally scoped to the
// categories owned by one administrator.
type Service interface {
	Snapshot(ctx context.Context, owner *uuid.UUID) (*MetricsSnapshot, error)
}

type categoryScopeReader interface {
	OwnedIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error)
}

// ServiceParams packages the dependencies for the aggregator.
type ServiceParams struct {
	Repo       Repository
	Categories categoryScopeReader
	Config     config.AnalyticsConfig
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo       Repository
	categories categoryScopeReader
	cfg        config.AnalyticsConfig
	cache      *gocache.Cache
	logger     *logger.Logger
	now        func() time.Time
}

// NewService builds an analytics service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("analytics repository is required")
	}
	if params.Categories == nil {
		return nil, fmt.Errorf("category scope reader is required")
	}
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.ChurnPeriod <= 0 {
		cfg.ChurnPeriod = 30 * 24 * time.Hour
	}
	if cfg.RecentTransactions <= 0 {
		cfg.RecentTransactions = 10
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:       params.Repo,
		categories: params.Categories,
		cfg:        cfg,
		cache:      gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger:     params.Logger,
		now:        now,
	}, nil
}

// Snapshot returns the metric bundle for the given scope, served from cache
// within the TTL. An owner whose category set resolves empty gets the zero
// snapshot rather than an unscoped one, so a mis-scoped admin leaks nothing.
func (s *service) Snapshot(ctx context.Context, owner *uuid.UUID) (*MetricsSnapshot, error) {
	key := "scope:global"
	if owner != nil {
		key = "scope:owner:" + owner.String()
	}
	if cached, ok := s.cache.Get(key); ok {
		if snapshot, ok := cached.(*MetricsSnapshot); ok {
			return snapshot, nil
		}
	}

	var categoryIDs []uuid.UUID
	if owner != nil {
		ids, err := s.categories.OwnedIDs(ctx, *owner)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve owned categories")
		}
		if len(ids) == 0 {
			snapshot := emptySnapshot(s.now())
			s.cache.Set(key, snapshot, gocache.DefaultExpiration)
			return snapshot, nil
		}
		categoryIDs = ids
	}

	snapshot, err := s.compute(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, snapshot, gocache.DefaultExpiration)
	return snapshot, nil
}

func (s *service) compute(ctx context.Context, categoryIDs []uuid.UUID) (*MetricsSnapshot, error) {
	payments, err := s.repo.ListPaymentFacts(ctx, categoryIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payment facts")
	}
	subscriptions, err := s.repo.ListSubscriptionFacts(ctx, categoryIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list subscription facts")
	}
	totalCustomers, err := s.repo.CountCustomers(ctx, categoryIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count customers")
	}
	totalPlans, err := s.repo.CountPlans(ctx, categoryIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count plans")
	}

	now := s.now()
	snapshot := emptySnapshot(now)
	snapshot.TotalCustomers = totalCustomers
	snapshot.TotalPlans = totalPlans

	snapshot.TotalRevenue = lo.Reduce(payments, func(sum decimal.Decimal, p PaymentFact, _ int) decimal.Decimal {
		return sum.Add(p.Amount)
	}, decimal.Zero)

	active := lo.Filter(subscriptions, func(f SubscriptionFact, _ int) bool {
		return f.Status == enums.SubscriptionStatusActive
	})
	snapshot.MRR = monthlyRecurringRevenue(active)
	snapshot.ARPU = averageRevenuePerUser(snapshot.TotalRevenue, active)
	snapshot.ChurnRate = churnRate(subscriptions, now, s.cfg.ChurnPeriod)
	snapshot.PaymentMethodMix = paymentMethodMix(payments)
	snapshot.TopPlan = modeOf(subscriptions, func(f SubscriptionFact) string { return f.PlanName })
	snapshot.TopLocation = modeOf(subscriptions, func(f SubscriptionFact) string { return f.Address })
	snapshot.MonthlyRevenue = monthlyRevenueSeries(payments, now.Year())
	snapshot.MonthlySubscription = monthlySubscriptionSeries(subscriptions, now.Year())
	snapshot.NewSubsThisMonth = lo.CountBy(subscriptions, func(f SubscriptionFact) bool {
		return f.CreatedAt.Year() == now.Year() && f.CreatedAt.Month() == now.Month()
	})
	snapshot.RecentTransactions = recentTransactions(payments, s.cfg.RecentTransactions)
	return snapshot, nil
}

func emptySnapshot(at time.Time) *MetricsSnapshot {
	revenue := make([]decimal.Decimal, monthsPerYear)
	for i := range revenue {
		revenue[i] = decimal.Zero
	}
	return &MetricsSnapshot{
		TotalRevenue:        decimal.Zero,
		MRR:                 decimal.Zero,
		ARPU:                decimal.Zero,
		ChurnRate:           decimal.Zero,
		PaymentMethodMix:    map[enums.PaymentMethod]decimal.Decimal{},
		MonthlyRevenue:      revenue,
		MonthlySubscription: make([]int, monthsPerYear),
		RecentTransactions:  []TransactionRow{},
		GeneratedAt:         at,
	}
}

// monthlyRecurringRevenue normalizes active subscriptions to their monthly
// equivalent. Yearly plans contribute one twelfth of their price.
func monthlyRecurringRevenue(active []SubscriptionFact) decimal.Decimal {
	return lo.Reduce(active, func(sum decimal.Decimal, f SubscriptionFact, _ int) decimal.Decimal {
		if f.PlanDuration == enums.PlanDurationYearly {
			return sum.Add(f.PlanPrice.Div(twelve).Round(2))
		}
		return sum.Add(f.PlanPrice)
	}, decimal.Zero)
}

func averageRevenuePerUser(revenue decimal.Decimal, active []SubscriptionFact) decimal.Decimal {
	customers := lo.UniqBy(active, func(f SubscriptionFact) uuid.UUID { return f.CustomerID })
	if len(customers) == 0 {
		return decimal.Zero
	}
	return revenue.Div(decimal.NewFromInt(int64(len(customers)))).Round(2)
}

// churnRate compares subscriptions that went inactive inside the period
// against the population that existed before the period started.
func churnRate(subscriptions []SubscriptionFact, now time.Time, period time.Duration) decimal.Decimal {
	periodStart := now.Add(-period)
	existedBefore := lo.CountBy(subscriptions, func(f SubscriptionFact) bool {
		return f.CreatedAt.Before(periodStart)
	})
	if existedBefore == 0 {
		return decimal.Zero
	}
	churned := lo.CountBy(subscriptions, func(f SubscriptionFact) bool {
		return f.Status == enums.SubscriptionStatusInactive &&
			f.EndDate != nil &&
			f.EndDate.After(periodStart) && !f.EndDate.After(now)
	})
	return decimal.NewFromInt(int64(churned)).
		Div(decimal.NewFromInt(int64(existedBefore))).
		Mul(hundred).
		Round(2)
}

func paymentMethodMix(payments []PaymentFact) map[enums.PaymentMethod]decimal.Decimal {
	mix := map[enums.PaymentMethod]decimal.Decimal{}
	if len(payments) == 0 {
		return mix
	}
	total := decimal.NewFromInt(int64(len(payments)))
	counts := lo.CountValuesBy(payments, func(p PaymentFact) enums.PaymentMethod { return p.Method })
	for method, count := range counts {
		mix[method] = decimal.NewFromInt(int64(count)).Div(total).Mul(hundred).Round(2)
	}
	return mix
}

// modeOf returns the most frequent non-empty key. Ties resolve to whichever
// candidate sorts first after the count ordering, which keeps the pick
// deterministic for tests without promising business meaning.
func modeOf(subscriptions []SubscriptionFact, key func(SubscriptionFact) string) string {
	counts := map[string]int{}
	for _, f := range subscriptions {
		if k := key(f); k != "" {
			counts[k]++
		}
	}
	if len(counts) == 0 {
		return ""
	}
	keys := lo.Keys(counts)
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys[0]
}

func monthlyRevenueSeries(payments []PaymentFact, year int) []decimal.Decimal {
	series := make([]decimal.Decimal, monthsPerYear)
	for i := range series {
		series[i] = decimal.Zero
	}
	for _, p := range payments {
		if p.CreatedAt.Year() != year {
			continue
		}
		bucket := int(p.CreatedAt.Month()) - 1
		series[bucket] = series[bucket].Add(p.Amount)
	}
	return series
}

func monthlySubscriptionSeries(subscriptions []SubscriptionFact, year int) []int {
	series := make([]int, monthsPerYear)
	for _, f := range subscriptions {
		if f.CreatedAt.Year() != year {
			continue
		}
		series[int(f.CreatedAt.Month())-1]++
	}
	return series
}

func recentTransactions(payments []PaymentFact, limit int) []TransactionRow {
	sorted := make([]PaymentFact, len(payments))
	copy(sorted, payments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return lo.Map(sorted, func(p PaymentFact, _ int) TransactionRow {
		return TransactionRow{
			PaymentID:     p.PaymentID,
			PlanName:      p.PlanName,
			Amount:        p.Amount,
			Method:        p.Method,
			TransactionID: p.TransactionID,
			PaidAt:        p.CreatedAt,
		}
	})
}
