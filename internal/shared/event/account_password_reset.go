package event

import "time"

const AccountPasswordResetDestination string = "account.password_reset"
const AccountPasswordResetConsumerNotification string = "account_password_reset_notification"

// AccountPasswordResetMessage never carries the code or any password material.
type AccountPasswordResetMessage struct {
	AccountID int64     `json:"account_id,string"`
	Email     string    `json:"email"`
	ResetAt   time.Time `json:"reset_at"`
}
