package entity

// Kind names an entry the service writes on its own, in reply to an account event.
type Kind string

const (
	KindWelcome       Kind = "welcome"
	KindPasswordReset Kind = "password_reset"
)

// SystemCurrency marks entries that carry no money movement.
const SystemCurrency = "N/A"

func (k Kind) Title() string {
	switch k {
	case KindWelcome:
		return "Welcome to CoinCraze"
	case KindPasswordReset:
		return "Password changed"
	default:
		return "Notification"
	}
}

func (k Kind) Message() string {
	switch k {
	case KindWelcome:
		return "Your account is ready. Notifications about your transactions will appear here."
	case KindPasswordReset:
		return "Your password was reset. If this was not you, contact support immediately."
	default:
		return ""
	}
}
