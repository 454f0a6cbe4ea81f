package enums

import "fmt"

// NotificationType groups notifications for filtering in the admin portal.
type NotificationType string

const (
	NotificationTypePayment      NotificationType = "Payment"
	NotificationTypeSubscription NotificationType = "Subscription"
	NotificationTypeDiscount     NotificationType = "Discount"
)

var validNotificationTypes = []NotificationType{
	NotificationTypePayment,
	NotificationTypeSubscription,
	NotificationTypeDiscount,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// NotificationStatus tracks delivery progress for a notification row.
// Read receipts are orthogonal and never feed back into this state.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

var validNotificationStatuses = []NotificationStatus{
	NotificationStatusPending,
	NotificationStatusSent,
	NotificationStatusFailed,
}

// IsValid reports whether the value is a known NotificationStatus.
func (n NotificationStatus) IsValid() bool {
	for _, candidate := range validNotificationStatuses {
		if candidate == n {
			return true
		}
	}
	return false
}
