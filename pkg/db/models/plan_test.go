package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subhub-labs/subhub-backend/pkg/enums"
)

func discountedPlan(price int64, percent int64, start, end time.Time) Plan {
	pct := decimal.NewFromInt(percent)
	return Plan{
		Name:                    "Pro",
		Duration:                enums.PlanDurationMonthly,
		Status:                  enums.PlanStatusActive,
		Price:                   decimal.NewFromInt(price),
		DiscountPercent:         &pct,
		DiscountActivatedDate:   &start,
		DiscountDeactivatedDate: &end,
	}
}

func TestFinalPriceInsideWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	plan := discountedPlan(200, 25, start, end)

	got := plan.FinalPrice(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	if !got.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected 150, got %s", got)
	}

	// Window boundaries are inclusive.
	if got := plan.FinalPrice(start); !got.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected discount at activation instant, got %s", got)
	}
	if got := plan.FinalPrice(end); !got.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected discount at deactivation instant, got %s", got)
	}
}

func TestFinalPriceOutsideWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	plan := discountedPlan(200, 25, start, end)

	before := start.Add(-time.Second)
	after := end.Add(time.Second)
	if got := plan.FinalPrice(before); !got.Equal(plan.Price) {
		t.Fatalf("expected nominal price before window, got %s", got)
	}
	if got := plan.FinalPrice(after); !got.Equal(plan.Price) {
		t.Fatalf("expected nominal price after window, got %s", got)
	}
}

func TestFinalPriceWithoutWindow(t *testing.T) {
	plan := Plan{Price: decimal.NewFromInt(199), Duration: enums.PlanDurationMonthly}
	if got := plan.FinalPrice(time.Now()); !got.Equal(plan.Price) {
		t.Fatalf("expected nominal price, got %s", got)
	}
}

func TestFinalPriceNeverNegative(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	plan := discountedPlan(100, 100, start, end)

	if got := plan.FinalPrice(start.AddDate(0, 0, 10)); got.IsNegative() {
		t.Fatalf("final price went negative: %s", got)
	}
}

func TestDiscountStatus(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	plan := discountedPlan(200, 25, start, end)

	if got := plan.DiscountStatus(start.AddDate(0, 0, 5)); got != enums.DiscountStatusActive {
		t.Fatalf("expected active, got %s", got)
	}
	if got := plan.DiscountStatus(end.AddDate(0, 0, 5)); got != enums.DiscountStatusExpired {
		t.Fatalf("expected expired, got %s", got)
	}

	plan.Status = enums.PlanStatusExpired
	if got := plan.DiscountStatus(start.AddDate(0, 0, 5)); got != enums.DiscountStatusExpired {
		t.Fatalf("expired plan should report expired discount, got %s", got)
	}

	bare := Plan{Price: decimal.NewFromInt(10), Status: enums.PlanStatusActive}
	if got := bare.DiscountStatus(time.Now()); got != enums.DiscountStatusNone {
		t.Fatalf("expected none, got %s", got)
	}
}

func TestDaysLeft(t *testing.T) {
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	sub := Subscription{EndDate: &end}

	got := sub.DaysLeft(time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	if got == nil || *got != 11 {
		t.Fatalf("expected 11 days left, got %v", got)
	}

	past := sub.DaysLeft(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if past == nil || *past != 0 {
		t.Fatalf("expected floor at zero, got %v", past)
	}

	if got := (Subscription{}).DaysLeft(time.Now()); got != nil {
		t.Fatalf("expected nil without end date, got %v", got)
	}
}
