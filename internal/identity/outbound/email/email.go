package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/coincraze/authd/internal/pkg/instrument"
	"github.com/coincraze/authd/internal/pkg/mail"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:embed template/*
var templates embed.FS

const (
	defaultBrand   = "CoinCraze"
	defaultTimeout = 10 * time.Second
	defaultBackoff = 200 * time.Millisecond
)

type Config struct {
	// Brand is shown in the subject and body.
	Brand string
	// Timeout bounds one notification, retries included.
	Timeout time.Duration
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// Backoff is the first retry delay; it doubles on each attempt.
	Backoff time.Duration
}

type Mail struct {
	client mail.Mail
	ins    instrument.Instrumentation
	cfg    Config
	html   *htmltemplate.Template
	text   *texttemplate.Template
	now    func() time.Time
}

func New(client mail.Mail, ins instrument.Instrumentation, cfg Config) (*Mail, error) {
	if cfg.Brand == "" {
		cfg.Brand = defaultBrand
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}

	html, err := htmltemplate.ParseFS(templates, "template/password_reset_otp.html")
	if err != nil {
		return nil, err
	}
	text, err := texttemplate.ParseFS(templates, "template/password_reset_otp.txt")
	if err != nil {
		return nil, err
	}

	return &Mail{client: client, ins: ins, cfg: cfg, html: html, text: text, now: time.Now}, nil
}

type otpData struct {
	Brand        string
	Code         string
	ValidMinutes int
	Year         int
}

// SendPasswordResetOTP mails code to email. Transient failures are retried
// with exponential backoff until cfg.Timeout elapses.
func (m *Mail) SendPasswordResetOTP(ctx context.Context, email, code string, validFor time.Duration) (err error) {
	ctx, span := m.ins.Tracer("identity.outbound.email").Start(ctx, "SendPasswordResetOTP")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	msg, err := m.render(email, code, validFor)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	attempts := 0
	backoff := retry.WithMaxRetries(uint64(m.cfg.MaxRetries), retry.NewExponential(m.cfg.Backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if err := m.client.Send(ctx, msg); err != nil {
			if permanent(err) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	span.SetAttributes(attribute.Int("mail.attempts", attempts))

	return err
}

func (m *Mail) render(email, code string, validFor time.Duration) (mail.Message, error) {
	data := otpData{
		Brand:        m.cfg.Brand,
		Code:         code,
		ValidMinutes: int(validFor / time.Minute),
		Year:         m.now().Year(),
	}

	var html, text bytes.Buffer
	if err := m.html.Execute(&html, data); err != nil {
		return mail.Message{}, err
	}
	if err := m.text.Execute(&text, data); err != nil {
		return mail.Message{}, err
	}

	return mail.Message{
		To:       []string{email},
		Subject:  "Your " + m.cfg.Brand + " Password Reset OTP",
		TextBody: text.String(),
		HTMLBody: html.String(),
		Headers:  mail.Transactional,
	}, nil
}

// permanent reports errors that a resend cannot fix.
func permanent(err error) bool {
	return errors.Is(err, mail.ErrSMTPNoRecipients) ||
		errors.Is(err, mail.ErrSMTPNoSender) ||
		errors.Is(err, mail.ErrSMTPHeaderInjection)
}
