package router

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/coincraze/authd/internal/pkg/config"
)

// middlewareMaintenance answers 503 for the route patterns listed in
// app.maintenance.endpoints, or for every route when the list holds "*".
// The list is read per request, so editing the watched config file takes a
// route in or out of maintenance without a restart. Health probes always pass.
func middlewareMaintenance(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		if cfg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			blocked := cfg.GetArray("app.maintenance.endpoints")
			if len(blocked) == 0 || r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}
			if !slices.Contains(blocked, "*") && !slices.Contains(blocked, matchedRoutePath(r)) {
				next.ServeHTTP(w, r)
				return
			}

			retry := cfg.GetInt("app.maintenance.retry_after_seconds")
			if retry <= 0 {
				retry = 120
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
		})
	}
}
