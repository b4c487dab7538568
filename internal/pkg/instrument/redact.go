package instrument

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
)

const masked = "***"

// credentialFields are always replaced by "***". Matching ignores case.
var credentialFields = []string{
	"password", "newpassword", "password_hash", "otp", "code", "code_hash",
	"token", "authorization", "secret",
}

// piiFields keep just enough to correlate a record with an account:
// "alice@coincraze.io" becomes "a***@coincraze.io", "+62 811 234" becomes "***234".
var piiFields = map[string]func(string) string{
	"email":        redactEmail,
	"phone":        redactPhone,
	"phone_number": redactPhone,
	"phonenumber":  redactPhone,
}

type redactHandler struct {
	next   slog.Handler
	secret map[string]struct{}
}

func newRedactHandler(next slog.Handler, extra []string) *redactHandler {
	secret := make(map[string]struct{}, len(credentialFields)+len(extra))
	for _, f := range append(credentialFields, extra...) {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			secret[f] = struct{}{}
		}
	}
	return &redactHandler{next: next, secret: secret}
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.attr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	red := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		red[i] = h.attr(a)
	}
	return &redactHandler{next: h.next.WithAttrs(red), secret: h.secret}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{next: h.next.WithGroup(name), secret: h.secret}
}

func (h *redactHandler) attr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	key := strings.ToLower(a.Key)

	if _, ok := h.secret[key]; ok {
		return slog.String(a.Key, masked)
	}
	if fn, ok := piiFields[key]; ok && a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, fn(a.Value.String()))
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		red := make([]slog.Attr, len(group))
		for i, ga := range group {
			red[i] = h.attr(ga)
		}
		a.Value = slog.GroupValue(red...)
	case slog.KindString:
		if s, ok := h.jsonText([]byte(a.Value.String())); ok {
			a.Value = slog.StringValue(s)
		}
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case map[string]any:
			a.Value = slog.AnyValue(h.walk(v))
		case map[string]string:
			m := make(map[string]any, len(v))
			for k, s := range v {
				m[k] = s
			}
			a.Value = slog.AnyValue(h.walk(m))
		case []any:
			a.Value = slog.AnyValue(h.walk(v))
		case []byte:
			if s, ok := h.jsonText(v); ok {
				a.Value = slog.StringValue(s)
			}
		}
	}
	return a
}

// jsonText redacts a JSON object or array held in text, such as a logged
// request body. Anything that is not JSON is left alone.
func (h *redactHandler) jsonText(b []byte) (string, bool) {
	if len(b) == 0 || (b[0] != '{' && b[0] != '[') {
		return "", false
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return "", false
	}
	out, err := json.Marshal(h.walk(v))
	if err != nil {
		return "", false
	}
	return string(out), true
}

func (h *redactHandler) walk(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			key := strings.ToLower(k)
			if _, ok := h.secret[key]; ok {
				out[k] = masked
				continue
			}
			if fn, ok := piiFields[key]; ok {
				if s, isStr := inner.(string); isStr {
					out[k] = fn(s)
					continue
				}
			}
			out[k] = h.walk(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = h.walk(inner)
		}
		return out
	default:
		return v
	}
}

func redactEmail(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" {
		return masked
	}
	return local[:1] + masked + "@" + domain
}

func redactPhone(s string) string {
	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	if len(digits) <= 3 {
		return masked
	}
	return masked + string(digits[len(digits)-3:])
}
