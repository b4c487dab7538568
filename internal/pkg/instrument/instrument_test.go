package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetCorrelationID(ctx))

	ctx = SetCorrelationID(ctx, "cid-1")
	assert.Equal(t, "cid-1", GetCorrelationID(ctx))
}

func TestClientIP(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.InfoContext(SetClientIP(context.Background(), "203.0.113.9"), "login failed")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "203.0.113.9", rec["client_ip"])
	assert.Empty(t, GetClientIP(context.Background()))
}

func TestNew_Disabled(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	ins, err := New(context.Background(), &Config{ServiceName: "authd", LogLevel: "warn"})
	require.NoError(t, err)

	_, span := ins.Tracer("test").Start(context.Background(), "op")
	span.End()
	assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelWarn))
	assert.NoError(t, ins.Shutdown(context.Background()))
}

func TestConfig_Level(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, (&Config{}).level())
	assert.Equal(t, slog.LevelInfo, (&Config{LogLevel: "loud"}).level())
	assert.Equal(t, slog.LevelDebug, (&Config{LogLevel: "debug"}).level())
	assert.Equal(t, slog.LevelError, (&Config{LogLevel: "error"}).level())
}

func newTestLogger(buf *bytes.Buffer, extra ...string) *slog.Logger {
	return slog.New(&contextHandler{
		Handler: newRedactHandler(slog.NewJSONHandler(buf, nil), extra),
		service: "authd",
	})
}

func TestRedactHandler_Credentials(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := newTestLogger(&buf, "ip")

	// Act
	logger.InfoContext(SetCorrelationID(context.Background(), "cid-9"), "login",
		"account_id", 42,
		"password", "hunter2",
		"ip", "10.0.0.1",
		"body", map[string]any{"otp": "1234", "nested": map[string]any{"newPassword": "x"}},
	)

	// Assert
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.EqualValues(t, 42, rec["account_id"])
	assert.Equal(t, "***", rec["password"])
	assert.Equal(t, "***", rec["ip"])
	assert.Equal(t, "cid-9", rec["_cID"])
	assert.Equal(t, "authd", rec["service"])

	body, ok := rec["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "***", body["otp"])
	assert.Equal(t, "***", body["nested"].(map[string]any)["newPassword"])
}

func TestRedactHandler_PII(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf).With("email", "alice@coincraze.io")

	logger.Info("signup", "phone_number", "+62 811 234", "payload", `{"email":"bob@x.com","amount":3}`)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "a***@coincraze.io", rec["email"])
	assert.Equal(t, "***234", rec["phone_number"])
	assert.JSONEq(t, `{"email":"b***@x.com","amount":3}`, rec["payload"].(string))
}

func TestRedactHelpers(t *testing.T) {
	assert.Equal(t, "***", redactEmail("not-an-email"))
	assert.Equal(t, "***", redactEmail("@x.com"))
	assert.Equal(t, "***", redactPhone("12"))
	assert.Equal(t, "***890", redactPhone("(123) 456-7890"))

	h := newRedactHandler(nil, nil)
	_, ok := h.jsonText([]byte("plain text"))
	assert.False(t, ok)
}

func TestRenameAttr(t *testing.T) {
	src := &slog.Source{File: "/go/src/authd/internal/app/app.go", Line: 12}

	got := renameAttr(nil, slog.Any(slog.SourceKey, src))
	assert.Equal(t, "file", got.Key)
	assert.Equal(t, "internal/app/app.go:12", got.Value.String())

	outside := renameAttr(nil, slog.Any(slog.SourceKey, &slog.Source{File: "/usr/lib/go/x.go"}))
	assert.Equal(t, slog.Attr{}, outside)
	assert.Equal(t, "severity", renameAttr(nil, slog.String(slog.LevelKey, "INFO")).Key)
}
