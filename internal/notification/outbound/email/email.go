package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/coincraze/authd/internal/pkg/instrument"
	"github.com/coincraze/authd/internal/pkg/mail"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

//go:embed template/*
var templates embed.FS

var (
	changedText = texttemplate.Must(texttemplate.ParseFS(templates, "template/password_changed.txt"))
	changedHTML = htmltemplate.Must(htmltemplate.ParseFS(templates, "template/password_changed.html"))
)

type Mail struct {
	client mail.Mail
	tracer trace.Tracer
	brand  string
}

func New(client mail.Mail, ins instrument.Instrumentation, brand string) *Mail {
	if brand == "" {
		brand = "CoinCraze"
	}
	return &Mail{client: client, tracer: ins.Tracer("notification.outbound.email"), brand: brand}
}

type changedData struct {
	Brand string
	When  string
}

// SendPasswordChanged tells the account owner that the password was replaced.
func (m *Mail) SendPasswordChanged(ctx context.Context, to string, at time.Time) (err error) {
	ctx, span := m.tracer.Start(ctx, "SendPasswordChanged")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	data := changedData{Brand: m.brand, When: at.UTC().Format("2 Jan 2006 15:04 MST")}

	var text, html bytes.Buffer
	if err = changedText.Execute(&text, data); err != nil {
		return err
	}
	if err = changedHTML.Execute(&html, data); err != nil {
		return err
	}

	return m.client.Send(ctx, mail.Message{
		To:       []string{to},
		Subject:  fmt.Sprintf("Your %s password was changed", m.brand),
		TextBody: text.String(),
		HTMLBody: html.String(),
		Headers:  mail.Transactional,
	})
}
