package entity

// FlowState is the position of an email in the password recovery flow.
type FlowState int16

const (
	// FlowStateNone means no recovery is in progress.
	FlowStateNone FlowState = 0

	// FlowStateOTPIssued means a code was issued and not yet verified.
	FlowStateOTPIssued FlowState = 1

	// FlowStateOTPVerified means the code was presented and matched.
	FlowStateOTPVerified FlowState = 2

	// FlowStateExpired means the record outlived its window and will be removed on next access.
	FlowStateExpired FlowState = 3
)

func (fs FlowState) String() string {
	switch fs {
	case FlowStateOTPIssued:
		return "OtpIssued"
	case FlowStateOTPVerified:
		return "OtpVerified"
	case FlowStateExpired:
		return "Expired"
	default:
		return "NoFlow"
	}
}

// AccountEventKind names the account lifecycle events published to the broker.
type AccountEventKind string

const (
	AccountEventRegistered    AccountEventKind = "registered"
	AccountEventPasswordReset AccountEventKind = "password_reset"
)
