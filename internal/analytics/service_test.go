package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subhub-labs/subhub-backend/pkg/config"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
)

type fakeAnalyticsRepo struct {
	payments      []PaymentFact
	subscriptions []SubscriptionFact
	customers     int64
	plans         int64
	calls         int
	customerScope []uuid.UUID
}

func (f *fakeAnalyticsRepo) ListPaymentFacts(ctx context.Context, categoryIDs []uuid.UUID) ([]PaymentFact, error) {
	f.calls++
	return f.payments, nil
}

func (f *fakeAnalyticsRepo) ListSubscriptionFacts(ctx context.Context, categoryIDs []uuid.UUID) ([]SubscriptionFact, error) {
	return f.subscriptions, nil
}

func (f *fakeAnalyticsRepo) CountCustomers(ctx context.Context, categoryIDs []uuid.UUID) (int64, error) {
	f.customerScope = categoryIDs
	return f.customers, nil
}

func (f *fakeAnalyticsRepo) CountPlans(ctx context.Context, categoryIDs []uuid.UUID) (int64, error) {
	return f.plans, nil
}

type fakeScopeReader struct {
	owned map[uuid.UUID][]uuid.UUID
}

func (f *fakeScopeReader) OwnedIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	return f.owned[ownerID], nil
}

var analyticsNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newAnalyticsService(t *testing.T, repo *fakeAnalyticsRepo, scopes *fakeScopeReader) Service {
	t.Helper()
	if scopes == nil {
		scopes = &fakeScopeReader{owned: map[uuid.UUID][]uuid.UUID{}}
	}
	svc, err := NewService(ServiceParams{
		Repo:       repo,
		Categories: scopes,
		Config:     config.AnalyticsConfig{CacheTTL: time.Minute, ChurnPeriod: 30 * 24 * time.Hour, RecentTransactions: 5},
		Now:        func() time.Time { return analyticsNow },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func subFact(status enums.SubscriptionStatus, plan string, price int64, duration enums.PlanDuration) SubscriptionFact {
	return SubscriptionFact{
		ID:           uuid.New(),
		CustomerID:   uuid.New(),
		PlanName:     plan,
		PlanPrice:    decimal.NewFromInt(price),
		PlanDuration: duration,
		Status:       status,
		CreatedAt:    analyticsNow.AddDate(0, -2, 0),
	}
}

func TestSnapshotFailsClosedForUnresolvableOwner(t *testing.T) {
	repo := &fakeAnalyticsRepo{
		payments:  []PaymentFact{{Amount: decimal.NewFromInt(500), Method: enums.PaymentMethodPaypal, CreatedAt: analyticsNow}},
		customers: 9,
	}
	svc := newAnalyticsService(t, repo, nil)
	owner := uuid.New()

	snapshot, err := svc.Snapshot(context.Background(), &owner)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snapshot.TotalRevenue.IsZero() || snapshot.TotalCustomers != 0 || snapshot.TopPlan != "" {
		t.Fatalf("expected zero snapshot, got %+v", snapshot)
	}
	if repo.calls != 0 {
		t.Fatal("unscoped queries must not run when the owner resolves no categories")
	}
}

func TestSnapshotRevenueAndMRR(t *testing.T) {
	repo := &fakeAnalyticsRepo{
		payments: []PaymentFact{
			{Amount: decimal.NewFromInt(199), Method: enums.PaymentMethodCreditCard, CreatedAt: analyticsNow},
			{Amount: decimal.NewFromInt(301), Method: enums.PaymentMethodPaypal, CreatedAt: analyticsNow},
		},
		subscriptions: []SubscriptionFact{
			subFact(enums.SubscriptionStatusActive, "Gold", 120, enums.PlanDurationMonthly),
			subFact(enums.SubscriptionStatusActive, "Annual", 1200, enums.PlanDurationYearly),
			subFact(enums.SubscriptionStatusPending, "Gold", 120, enums.PlanDurationMonthly),
		},
		customers: 4,
		plans:     2,
	}
	svc := newAnalyticsService(t, repo, nil)

	snapshot, err := svc.Snapshot(context.Background(), nil)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snapshot.TotalRevenue.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected revenue 500, got %s", snapshot.TotalRevenue)
	}
	// 120 monthly plus 1200/12 for the yearly plan; the pending row is excluded.
	if !snapshot.MRR.Equal(decimal.NewFromInt(220)) {
		t.Fatalf("expected MRR 220, got %s", snapshot.MRR)
	}
	// Two distinct active customers share the 500 revenue.
	if !snapshot.ARPU.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected ARPU 250, got %s", snapshot.ARPU)
	}
	if snapshot.TotalCustomers != 4 || snapshot.TotalPlans != 2 {
		t.Fatalf("unexpected totals %+v", snapshot)
	}
}

func TestSnapshotChurnRate(t *testing.T) {
	periodStart := analyticsNow.Add(-30 * 24 * time.Hour)
	var subs []SubscriptionFact
	for i := 0; i < 10; i++ {
		fact := subFact(enums.SubscriptionStatusActive, "Gold", 100, enums.PlanDurationMonthly)
		fact.CreatedAt = periodStart.AddDate(0, -1, 0)
		subs = append(subs, fact)
	}
	for i := 0; i < 2; i++ {
		end := analyticsNow.AddDate(0, 0, -3)
		subs[i].Status = enums.SubscriptionStatusInactive
		subs[i].EndDate = &end
	}

	svc := newAnalyticsService(t, &fakeAnalyticsRepo{subscriptions: subs}, nil)
	snapshot, err := svc.Snapshot(context.Background(), nil)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snapshot.ChurnRate.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected churn 20, got %s", snapshot.ChurnRate)
	}
}

func TestSnapshotPaymentMethodMix(t *testing.T) {
	repo := &fakeAnalyticsRepo{
		payments: []PaymentFact{
			{Amount: decimal.NewFromInt(1), Method: enums.PaymentMethodCreditCard, CreatedAt: analyticsNow},
			{Amount: decimal.NewFromInt(1), Method: enums.PaymentMethodCreditCard, CreatedAt: analyticsNow},
			{Amount: decimal.NewFromInt(1), Method: enums.PaymentMethodPaypal, CreatedAt: analyticsNow},
		},
	}
	svc := newAnalyticsService(t, repo, nil)

	snapshot, err := svc.Snapshot(context.Background(), nil)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snapshot.PaymentMethodMix[enums.PaymentMethodCreditCard].Equal(decimal.RequireFromString("66.67")) {
		t.Fatalf("unexpected mix %v", snapshot.PaymentMethodMix)
	}
	if !snapshot.PaymentMethodMix[enums.PaymentMethodPaypal].Equal(decimal.RequireFromString("33.33")) {
		t.Fatalf("unexpected mix %v", snapshot.PaymentMethodMix)
	}
}

func TestSnapshotTopPlanAndLocation(t *testing.T) {
	gold := subFact(enums.SubscriptionStatusActive, "Gold", 100, enums.PlanDurationMonthly)
	gold.Address = "Mumbai"
	gold2 := subFact(enums.SubscriptionStatusActive, "Gold", 100, enums.PlanDurationMonthly)
	gold2.Address = "Mumbai"
	silver := subFact(enums.SubscriptionStatusActive, "Silver", 50, enums.PlanDurationMonthly)
	silver.Address = "Pune"

	svc := newAnalyticsService(t, &fakeAnalyticsRepo{subscriptions: []SubscriptionFact{gold, gold2, silver}}, nil)
	snapshot, err := svc.Snapshot(context.Background(), nil)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.TopPlan != "Gold" || snapshot.TopLocation != "Mumbai" {
		t.Fatalf("expected Gold/Mumbai, got %s/%s", snapshot.TopPlan, snapshot.TopLocation)
	}
}

func TestSnapshotMonthlySeries(t *testing.T) {
	january := time.Date(analyticsNow.Year(), 1, 10, 0, 0, 0, 0, time.UTC)
	lastYear := analyticsNow.AddDate(-1, 0, 0)
	repo := &fakeAnalyticsRepo{
		payments: []PaymentFact{
			{Amount: decimal.NewFromInt(100), Method: enums.PaymentMethodPaypal, CreatedAt: january},
			{Amount: decimal.NewFromInt(40), Method: enums.PaymentMethodPaypal, CreatedAt: analyticsNow},
			{Amount: decimal.NewFromInt(999), Method: enums.PaymentMethodPaypal, CreatedAt: lastYear},
		},
	}
	svc := newAnalyticsService(t, repo, nil)

	snapshot, err := svc.Snapshot(context.Background(), nil)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snapshot.MonthlyRevenue[0].Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected 100 in January bucket, got %s", snapshot.MonthlyRevenue[0])
	}
	if !snapshot.MonthlyRevenue[5].Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected 40 in June bucket, got %s", snapshot.MonthlyRevenue[5])
	}
	total := decimal.Zero
	for _, v := range snapshot.MonthlyRevenue {
		total = total.Add(v)
	}
	if !total.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("prior-year payment leaked into series, total %s", total)
	}
}

func TestSnapshotCustomerCountFollowsOwnerScope(t *testing.T) {
	owner := uuid.New()
	owned := []uuid.UUID{uuid.New(), uuid.New()}
	repo := &fakeAnalyticsRepo{customers: 7}
	scopes := &fakeScopeReader{owned: map[uuid.UUID][]uuid.UUID{owner: owned}}
	svc := newAnalyticsService(t, repo, scopes)

	snapshot, err := svc.Snapshot(context.Background(), &owner)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.TotalCustomers != 7 {
		t.Fatalf("unexpected customer total %d", snapshot.TotalCustomers)
	}
	if len(repo.customerScope) != len(owned) {
		t.Fatalf("customer count must use the owner scope, got %v", repo.customerScope)
	}
	for i, id := range owned {
		if repo.customerScope[i] != id {
			t.Fatalf("customer count scope mismatch at %d: %s vs %s", i, repo.customerScope[i], id)
		}
	}

	unscoped := &fakeAnalyticsRepo{customers: 50}
	svc = newAnalyticsService(t, unscoped, nil)
	if _, err := svc.Snapshot(context.Background(), nil); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if unscoped.customerScope != nil {
		t.Fatalf("global snapshot must count the whole base, got scope %v", unscoped.customerScope)
	}
}

func TestSnapshotCachesPerScope(t *testing.T) {
	repo := &fakeAnalyticsRepo{customers: 3}
	svc := newAnalyticsService(t, repo, nil)

	if _, err := svc.Snapshot(context.Background(), nil); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if _, err := svc.Snapshot(context.Background(), nil); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if repo.calls != 1 {
		t.Fatalf("expected one repository pass, got %d", repo.calls)
	}
}
