package event

const AccountRegisteredDestination string = "account.registered"
const AccountRegisteredConsumerNotification string = "account_registered_notification"

type AccountRegisteredMessage struct {
	AccountID int64  `json:"account_id,string"`
	Email     string `json:"email"`
}
