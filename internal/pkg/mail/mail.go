package mail

import (
	"context"
	"io"
)

// Transactional are the headers every machine-sent account mail carries:
// they tell mail servers and clients not to answer it with out-of-office
// or other automatic replies (RFC 3834).
var Transactional = map[string]string{
	"Auto-Submitted":           "auto-generated",
	"X-Auto-Response-Suppress": "All",
}

// Message is one outgoing email. At least one of TextBody and HTMLBody is set;
// with both, receivers pick the part they can render.
type Message struct {
	From     string // empty means the sender configured on the Mail
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	TextBody string
	HTMLBody string

	// Headers are written verbatim after the standard ones.
	Headers map[string]string
}

// Mail delivers messages.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}
