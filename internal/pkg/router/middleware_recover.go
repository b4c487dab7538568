package router

import (
	"log/slog"
	"net/http"

	"github.com/coincraze/authd/internal/pkg/goerror"
	"github.com/coincraze/authd/internal/pkg/stacktrace"
)

// middlewareRecoverer turns a handler panic into the standard 500 envelope.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			//nolint:errorlint // sentinel is compared by identity on purpose
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			slog.ErrorContext(r.Context(), "panic on the server",
				"panic", rvr,
				"method", r.Method,
				"path", matchedRoutePath(r),
				"stack", stacktrace.Capture(),
			)
			writeJSON(w, errorResponse{
				Message: "Internal server error",
				Code:    goerror.CodeInternal.String(),
			}, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
