package enums

import "fmt"

// PlanDuration defines the billing cadence for a plan.
type PlanDuration string

const (
	PlanDurationMonthly PlanDuration = "monthly"
	PlanDurationYearly  PlanDuration = "yearly"
)

var validPlanDurations = []PlanDuration{
	PlanDurationMonthly,
	PlanDurationYearly,
}

// String implements fmt.Stringer.
func (d PlanDuration) String() string {
	return string(d)
}

// IsValid reports whether the value is a known PlanDuration.
func (d PlanDuration) IsValid() bool {
	for _, candidate := range validPlanDurations {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParsePlanDuration converts raw input into a PlanDuration.
func ParsePlanDuration(value string) (PlanDuration, error) {
	for _, candidate := range validPlanDurations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan duration %q", value)
}
