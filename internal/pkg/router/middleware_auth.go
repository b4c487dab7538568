package router

import (
	"net/http"
	"strings"

	"github.com/coincraze/authd/internal/pkg/goerror"
	"github.com/coincraze/authd/internal/pkg/jwt"
)

func bearerToken(r *http.Request) (string, bool) {
	p := strings.Fields(r.Header.Get("Authorization"))
	if len(p) != 2 || !strings.EqualFold(p[0], "Bearer") {
		return "", false
	}
	return p[1], true
}

func middlewareAuthentication(verifier jwt.JWT, isPublic func(method, path string) bool) Middleware {
	unauthorized := func(w http.ResponseWriter, msg string) {
		writeJSON(w, errorResponse{Message: msg, Code: goerror.CodeUnauthorized.String()}, http.StatusUnauthorized)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.Method, matchedRoutePath(r)) {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok || verifier == nil {
				unauthorized(w, "Authentication required")
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				unauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}
