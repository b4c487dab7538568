package router

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/coincraze/authd/internal/pkg/goerror"
	"github.com/julienschmidt/httprouter"
)

// maxBodyBytes caps JSON request bodies. Every payload here is a handful of
// short fields.
const maxBodyBytes = 64 * 1024

// Request is what handlers receive: the http.Request plus typed accessors
// that fail with goerror values the router already knows how to render.
type Request struct {
	*http.Request
}

func (r *Request) Param(name string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(name)
}

// ParamInt64 parses a numeric path segment such as a notification id.
func (r *Request) ParamInt64(name string) (int64, error) {
	n, err := strconv.ParseInt(r.Param(name), 10, 64)
	if err != nil {
		return 0, goerror.NewInvalidFormat("Invalid " + name)
	}
	return n, nil
}

func (r *Request) Query(name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}

// QueryInt returns fallback when name is absent or blank.
func (r *Request) QueryInt(name string, fallback int) (int, error) {
	raw := r.Query(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, goerror.NewInvalidFormat("Invalid query " + name)
	}
	return n, nil
}

// HeaderValue returns the trimmed value of a request header.
func (r *Request) HeaderValue(name string) string {
	return strings.TrimSpace(r.Header.Get(name))
}

// Bind decodes exactly one JSON object into dst. It rejects a non-JSON
// Content-Type, unknown fields, values of the wrong type, trailing data and
// bodies over maxBodyBytes. A missing Content-Type is accepted.
func (r *Request) Bind(dst any) error {
	if r == nil || r.Body == nil || r.Body == http.NoBody {
		return goerror.NewInvalidFormat()
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			return goerror.NewInvalidFormat("Content-Type must be application/json")
		}
	}

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return bindError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat()
	}
	return nil
}

func bindError(err error) error {
	var (
		tooLarge *http.MaxBytesError
		typeErr  *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &tooLarge):
		return goerror.NewInvalidFormat("Request body too large")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return goerror.NewInvalidFormat("Invalid value for " + typeErr.Field)
	default:
		return goerror.NewInvalidFormat()
	}
}
