package enums

// DiscountStatus describes whether a plan's discount window is currently live.
// DiscountStatusNone is reported when no window is configured at all.
type DiscountStatus string

const (
	DiscountStatusActive  DiscountStatus = "active"
	DiscountStatusExpired DiscountStatus = "expired"
	DiscountStatusNone    DiscountStatus = "NIL"
)

// String implements fmt.Stringer.
func (s DiscountStatus) String() string {
	return string(s)
}
