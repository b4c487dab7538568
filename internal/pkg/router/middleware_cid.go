package router

import (
	"net/http"

	"github.com/coincraze/authd/internal/pkg/instrument"
	"github.com/coincraze/authd/internal/pkg/uid"
)

const (
	// HeaderCorrelationID carries the id that ties a request to its logs,
	// spans and the account events it publishes.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is read when a proxy sets it instead.
	HeaderRequestID = "X-Request-ID"

	maxCIDLength = 128
)

// validCID accepts the characters uuids, ulids and common tracing ids use.
// Anything else is replaced so that caller input never lands raw in logs.
func validCID(v string) bool {
	if v == "" || len(v) > maxCIDLength {
		return false
	}
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}

func middlewareCorrelationID(gen uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := r.Header.Get(HeaderCorrelationID)
			if !validCID(cid) {
				cid = r.Header.Get(HeaderRequestID)
			}
			if !validCID(cid) {
				cid = ""
				if gen != nil {
					cid = gen.Generate()
				}
			}

			if cid != "" {
				w.Header().Set(HeaderCorrelationID, cid)
				r = r.WithContext(instrument.SetCorrelationID(r.Context(), cid))
			}
			next.ServeHTTP(w, r)
		})
	}
}
