package enums

// AlertCategory classifies periodic reminder alerts.
type AlertCategory string

const (
	AlertCategorySubscription AlertCategory = "Subscription"
)

// String implements fmt.Stringer.
func (a AlertCategory) String() string {
	return string(a)
}
