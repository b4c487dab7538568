package mail

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTP is a single-connection SMTP server that records the envelope
// and the DATA payload.
type fakeSMTP struct {
	ln   net.Listener
	wg   sync.WaitGroup
	mu   sync.Mutex
	from string
	rcpt []string
	data string
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeSMTP{ln: ln}
	f.wg.Add(1)
	go f.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		f.wg.Wait()
	})
	return f
}

func (f *fakeSMTP) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeSMTP) serve() {
	defer f.wg.Done()

	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	reply := func(s string) {
		_, _ = rw.WriteString(s + "\r\n")
		_ = rw.Flush()
	}

	reply("220 fake ESMTP")
	for {
		line, err := rw.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])

		switch verb {
		case "EHLO", "HELO":
			reply("250-fake")
			reply("250 8BITMIME")
		case "MAIL":
			f.mu.Lock()
			f.from = line
			f.mu.Unlock()
			reply("250 OK")
		case "RCPT":
			f.mu.Lock()
			f.rcpt = append(f.rcpt, line)
			f.mu.Unlock()
			reply("250 OK")
		case "DATA":
			reply("354 go ahead")
			var sb strings.Builder
			for {
				l, err := rw.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				sb.WriteString(l)
			}
			f.mu.Lock()
			f.data = sb.String()
			f.mu.Unlock()
			reply("250 queued")
		case "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 not implemented")
		}
	}
}

func TestSMTP_Send(t *testing.T) {
	// Arrange
	srv := startFakeSMTP(t)
	m, err := NewSMTP(SMTPConfig{Host: "127.0.0.1", Port: srv.port(), From: `"CoinCraze" <no-reply@coincraze.test>`})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Act
	err = m.Send(ctx, Message{
		To:       []string{"a@x.com"},
		Bcc:      []string{"audit@x.com"},
		Subject:  "Your CoinCraze Password Reset OTP",
		TextBody: "code 1234",
		HTMLBody: "<b>1234</b>",
		Headers:  Transactional,
	})

	// Assert
	require.NoError(t, err)
	srv.wg.Wait()

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, "MAIL FROM:<no-reply@coincraze.test> BODY=8BITMIME", srv.from)
	assert.Equal(t, []string{"RCPT TO:<a@x.com>", "RCPT TO:<audit@x.com>"}, srv.rcpt)
	assert.Contains(t, srv.data, "Subject: Your CoinCraze Password Reset OTP\r\n")
	assert.Contains(t, srv.data, `From: "CoinCraze" <no-reply@coincraze.test>`)
	assert.Contains(t, srv.data, "multipart/alternative")
	assert.NotContains(t, srv.data, "audit@x.com")
	assert.Contains(t, srv.data, "Auto-Submitted: auto-generated\r\n")
}

func TestSMTP_SendValidation(t *testing.T) {
	m, err := NewSMTP(SMTPConfig{Host: "127.0.0.1", Port: 1})
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{Subject: "x"})
	assert.ErrorIs(t, err, ErrSMTPNoRecipients)

	err = m.Send(context.Background(), Message{To: []string{"a@x.com"}})
	assert.ErrorIs(t, err, ErrSMTPNoSender)

	err = m.Send(context.Background(), Message{From: "a@x.com", To: []string{"b@x.com"}, Subject: "hi\r\nBcc: evil@x.com"})
	assert.ErrorIs(t, err, ErrSMTPHeaderInjection)

	err = m.Send(context.Background(), Message{From: "a@x.com", To: []string{"b@x.com"}, Headers: map[string]string{"X-Ref": "1\nBcc: evil@x.com"}})
	assert.ErrorIs(t, err, ErrSMTPHeaderInjection)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = m.Send(ctx, Message{From: "a@x.com", To: []string{"b@x.com"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSMTP_RequiresHostPort(t *testing.T) {
	_, err := NewSMTP(SMTPConfig{Host: "smtp.test"})
	assert.ErrorIs(t, err, ErrSMTPHostPortRequired)
}

func TestEnvelopeAddress(t *testing.T) {
	assert.Equal(t, "a@x.com", envelopeAddress(`"CoinCraze" <a@x.com>`))
	assert.Equal(t, "a@x.com", envelopeAddress(" a@x.com "))
}

func TestBuildBody(t *testing.T) {
	body, ct := buildBody(Message{TextBody: "plain"})
	assert.Equal(t, "plain", body)
	assert.Equal(t, "text/plain; charset=UTF-8", ct)

	body, ct = buildBody(Message{HTMLBody: "<p>x</p>"})
	assert.Equal(t, "<p>x</p>", body)
	assert.Equal(t, "text/html; charset=UTF-8", ct)

	_, ct = buildBody(Message{HTMLBody: "<p>x</p>", TextBody: "x"})
	assert.True(t, strings.HasPrefix(ct, "multipart/alternative; boundary=authd-"))
}
