package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coincraze/authd/internal/pkg/instrument"
	"github.com/coincraze/authd/internal/pkg/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureMail struct {
	sent []mail.Message
	err  error
}

func (c *captureMail) Send(_ context.Context, msg mail.Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureMail) Close() error { return nil }

func TestMail_SendPasswordChanged(t *testing.T) {
	// Arrange
	client := &captureMail{}
	m := New(client, instrument.NewNoop(), "")
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	// Act
	err := m.SendPasswordChanged(context.Background(), "a@x.com", at)

	// Assert
	require.NoError(t, err)
	require.Len(t, client.sent, 1)
	assert.Equal(t, []string{"a@x.com"}, client.sent[0].To)
	assert.Equal(t, "Your CoinCraze password was changed", client.sent[0].Subject)
	assert.Contains(t, client.sent[0].TextBody, "1 Mar 2026 12:30 UTC")
}

func TestMail_SendPasswordChanged_Error(t *testing.T) {
	boom := errors.New("smtp down")
	m := New(&captureMail{err: boom}, instrument.NewNoop(), "Acme")

	err := m.SendPasswordChanged(context.Background(), "a@x.com", time.Now())

	assert.ErrorIs(t, err, boom)
}

func TestMail_SendPasswordChanged_HTMLEscapesBrand(t *testing.T) {
	client := &captureMail{}
	m := New(client, instrument.NewNoop(), "<Acme>")

	err := m.SendPasswordChanged(context.Background(), "a@x.com", time.Now())

	require.NoError(t, err)
	require.Len(t, client.sent, 1)
	assert.Contains(t, client.sent[0].HTMLBody, "&lt;Acme&gt;")
	assert.Contains(t, client.sent[0].TextBody, "<Acme>")
}
