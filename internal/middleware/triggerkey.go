package middleware

import (
	"crypto/subtle"
	"net/http"

	"shelfsync-api/pkg/apierror"
)

// TriggerKey guards the queue trigger and sync endpoints with a shared
// secret in the X-Trigger-Key header. An empty configured key leaves
// the endpoints open (single-host deployments behind a private network).
func TriggerKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-Trigger-Key")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				writeError(w, apierror.Unauthorized("invalid trigger key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}
