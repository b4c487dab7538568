package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/coincraze/authd/internal/pkg/config"
	"github.com/coincraze/authd/internal/pkg/goerror"
	"github.com/coincraze/authd/internal/pkg/instrument"
	"github.com/coincraze/authd/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJWT struct{}

func (stubJWT) Generate(int64, string) (string, error) { return "good", nil }

func (stubJWT) Verify(token string) (jwt.Claims, error) {
	if token != "good" {
		return jwt.Claims{}, jwt.ErrInvalidToken
	}
	return jwt.Claims{UserID: 7, UserEmail: "a@x.com"}, nil
}

type fixedID string

func (f fixedID) Generate() string { return string(f) }

type created struct {
	ID int64 `json:"id"`
}

func (created) StatusCode() int { return http.StatusCreated }
func (created) Message() string { return "Account created" }

func newTestRouter(t *testing.T, yaml string) *Router {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	require.NoError(t, err)

	return NewRouter(Config{
		Config:     cfg,
		UUID:       fixedID("generated-cid"),
		JWT:        stubJWT{},
		Instrument: instrument.NewNoop(),
	})
}

func do(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRouter_PublicAndProtected(t *testing.T) {
	// Arrange
	r := newTestRouter(t, "app: {}")
	r.POST("/api/v1/auth/signup", func(*Request) (any, error) { return created{ID: 1}, nil })
	r.Public(http.MethodPost, "/api/v1/auth/signup")
	r.GET("/api/v1/auth/me", func(req *Request) (any, error) {
		return map[string]any{"id": jwt.GetAuth(req.Context()).UserID}, nil
	})

	// Act
	signup := do(r, http.MethodPost, "/api/v1/auth/signup", "{}", nil)
	anon := do(r, http.MethodGet, "/api/v1/auth/me", "", nil)
	bad := do(r, http.MethodGet, "/api/v1/auth/me", "", map[string]string{"Authorization": "Bearer nope"})
	me := do(r, http.MethodGet, "/api/v1/auth/me", "", map[string]string{"Authorization": "Bearer good"})

	// Assert
	assert.Equal(t, http.StatusCreated, signup.Code)
	assert.Equal(t, "Account created", decode(t, signup)["message"])

	assert.Equal(t, http.StatusUnauthorized, anon.Code)
	assert.Equal(t, "ERROR_CODE_UNAUTHORIZED", decode(t, anon)["code"])
	assert.Equal(t, http.StatusUnauthorized, bad.Code)

	require.Equal(t, http.StatusOK, me.Code)
	data := decode(t, me)["data"].(map[string]any)
	assert.InDelta(t, 7, data["id"], 0)
}

func TestRouter_ErrorEnvelope(t *testing.T) {
	r := newTestRouter(t, "app: {}")
	r.POST("/otp", func(*Request) (any, error) {
		return nil, goerror.NewBusiness("OTP expired. Please request again.", goerror.CodeExpired)
	})
	r.POST("/boom", func(*Request) (any, error) { return nil, errors.New("db down") })
	r.POST("/fields", func(*Request) (any, error) {
		return nil, goerror.NewInvalidInput(nil, "email", "email is required")
	})
	r.Public(http.MethodPost, "/otp")
	r.Public(http.MethodPost, "/boom")
	r.Public(http.MethodPost, "/fields")

	rec := do(r, http.MethodPost, "/otp", "", nil)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, map[string]any{
		"message": "OTP expired. Please request again.",
		"code":    "ERROR_CODE_EXPIRED",
	}, decode(t, rec))

	rec = do(r, http.MethodPost, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec)["message"])

	rec = do(r, http.MethodPost, "/fields", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, map[string]any{"email": "email is required"}, decode(t, rec)["error"])
}

func TestRouter_NoContent(t *testing.T) {
	r := newTestRouter(t, "app: {}")
	r.DELETE("/things/:id", func(*Request) (any, error) { return nil, nil })
	r.Public(http.MethodDelete, "/things/:id")

	rec := do(r, http.MethodDelete, "/things/1", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestRouter_CorrelationID(t *testing.T) {
	r := newTestRouter(t, "app: {}")
	var seen string
	r.GET("/health", func(req *Request) (any, error) {
		seen = instrument.GetCorrelationID(req.Context())
		return map[string]string{"status": "ok"}, nil
	})

	rec := do(r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, "generated-cid", rec.Header().Get(HeaderCorrelationID))
	assert.Equal(t, "generated-cid", seen)

	rec = do(r, http.MethodGet, "/health", "", map[string]string{HeaderRequestID: "from-proxy"})
	assert.Equal(t, "from-proxy", rec.Header().Get(HeaderCorrelationID))

	rec = do(r, http.MethodGet, "/health", "", map[string]string{HeaderCorrelationID: "bad id\x00"})
	assert.Equal(t, "generated-cid", rec.Header().Get(HeaderCorrelationID))
}

func TestValidCID(t *testing.T) {
	assert.True(t, validCID("0195f3c2-7d1e-7c3a-9b1e-1f2e3d4c5b6a"))
	assert.True(t, validCID("svc.gw:42_a"))
	assert.False(t, validCID(""))
	assert.False(t, validCID("has space"))
	assert.False(t, validCID(strings.Repeat("a", maxCIDLength+1)))
}

func TestClientIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{name: "direct peer", remote: "203.0.113.7:5555", want: "203.0.113.7"},
		{name: "untrusted peer cannot forge", remote: "203.0.113.7:5555", headers: map[string]string{"X-Forwarded-For": "1.2.3.4"}, want: "203.0.113.7"},
		{name: "trusted proxy real ip", remote: "10.0.0.2:80", headers: map[string]string{"X-Real-IP": "198.51.100.4"}, want: "198.51.100.4"},
		{name: "trusted proxy chain", remote: "10.0.0.2:80", headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 198.51.100.9, 10.0.0.3"}, want: "198.51.100.9"},
		{name: "trusted proxy garbage header", remote: "10.0.0.2:80", headers: map[string]string{"X-Forwarded-For": "nope"}, want: "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, clientIP(req, trusted).String())
		})
	}
}

func TestRouter_ClientIPInContext(t *testing.T) {
	r := newTestRouter(t, "app:\n  server:\n    trusted_proxies: \"192.0.2.0/24\"\n")
	var seen string
	r.GET("/health", func(req *Request) (any, error) {
		seen = instrument.GetClientIP(req.Context())
		return map[string]string{}, nil
	})

	do(r, http.MethodGet, "/health", "", map[string]string{"X-Forwarded-For": "198.51.100.1"})

	// httptest requests come from 192.0.2.1:1234.
	assert.Equal(t, "198.51.100.1", seen)
}

func TestStatusRecorder_SkipsEventStreams(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), body: &bytes.Buffer{}}
	rec.Header().Set("Content-Type", "text/event-stream")

	_, err := rec.Write([]byte(": keep-alive\n"))
	require.NoError(t, err)

	assert.Nil(t, rec.body)
	assert.Equal(t, http.StatusOK, rec.code())
	assert.Equal(t, 13, rec.bytes)
}

func TestLoggable(t *testing.T) {
	assert.Nil(t, loggable(nil, false))
	assert.Equal(t, map[string]any{"a": float64(1)}, loggable([]byte(`{"a":1}`), false))
	assert.Equal(t, "plain", loggable([]byte("plain"), false))
	assert.Equal(t, "<binary body omitted>", loggable([]byte{0xff, 0xfe}, false))
	assert.Equal(t, map[string]any{"body": "abc", "truncated": true}, loggable([]byte("abc"), true))
}

func TestRouter_Maintenance(t *testing.T) {
	r := newTestRouter(t, "app:\n  maintenance:\n    endpoints: \"/api/v1/auth/login\"\n")
	r.POST("/api/v1/auth/login", func(*Request) (any, error) { return map[string]string{}, nil })
	r.Public(http.MethodPost, "/api/v1/auth/login")

	rec := do(r, http.MethodPost, "/api/v1/auth/login", "{}", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "120", rec.Header().Get("Retry-After"))
}

func TestRouter_Recover(t *testing.T) {
	r := newTestRouter(t, "app: {}")
	r.GET("/panic", func(*Request) (any, error) { panic("kaboom") })
	r.Public(http.MethodGet, "/panic")

	rec := do(r, http.MethodGet, "/panic", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "ERROR_CODE_INTERNAL", decode(t, rec)["code"])
}

func TestRouter_NotFound(t *testing.T) {
	r := newTestRouter(t, "app: {}")

	rec := do(r, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ERROR_CODE_NOT_FOUND", decode(t, rec)["code"])
}

func TestRequest_Bind(t *testing.T) {
	type body struct {
		Email string `json:"email"`
		Age   int    `json:"age"`
	}

	tests := []struct {
		name        string
		payload     string
		contentType string
		wantMsg     string
	}{
		{name: "ok", payload: `{"email":"a@x.com"}`},
		{name: "json with charset", payload: `{"email":"a@x.com"}`, contentType: "application/json; charset=utf-8"},
		{name: "unknown field", payload: `{"email":"a@x.com","x":1}`, wantMsg: "Invalid request body"},
		{name: "trailing document", payload: `{"email":"a"}{"email":"b"}`, wantMsg: "Invalid request body"},
		{name: "not json", payload: `email=a`, wantMsg: "Invalid request body"},
		{name: "empty", payload: ``, wantMsg: "Invalid request body"},
		{name: "wrong type", payload: `{"email":"a@x.com","age":"ten"}`, wantMsg: "Invalid value for age"},
		{name: "form content type", payload: `{"email":"a@x.com"}`, contentType: "application/x-www-form-urlencoded", wantMsg: "Content-Type must be application/json"},
		{name: "too large", payload: `{"email":"` + strings.Repeat("a", maxBodyBytes) + `"}`, wantMsg: "Request body too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			hr := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			if tt.contentType != "" {
				hr.Header.Set("Content-Type", tt.contentType)
			}
			req := &Request{Request: hr}

			// Act
			var b body
			err := req.Bind(&b)

			// Assert
			if tt.wantMsg != "" {
				var gerr *goerror.Error
				require.ErrorAs(t, err, &gerr)
				assert.Equal(t, goerror.CodeInvalidFormat, gerr.Code())
				assert.Equal(t, tt.wantMsg, gerr.Msg())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a@x.com", b.Email)
		})
	}
}

func TestRequest_QueryInt(t *testing.T) {
	req := &Request{Request: httptest.NewRequest(http.MethodGet, "/?page=3&limit=x&blank=%20", nil)}

	page, err := req.QueryInt("page", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page)

	def, err := req.QueryInt("missing", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, def)

	blank, err := req.QueryInt("blank", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, blank)

	_, err = req.QueryInt("limit", 20)
	assert.Equal(t, goerror.CodeInvalidFormat, goerror.CodeOf(err))
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("a"), nil, mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "handler"}, order)
}
