package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// localOrigins are the wallet (3000) and merchant dashboard (5173) dev
// servers, used when no origins are configured.
var localOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// CORS allows credentialed requests from origins. Idempotency-Replayed is
// exposed so clients can tell a replayed response from a fresh one.
func CORS(origins []string) func(http.Handler) http.Handler {
	var allowed []string
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		allowed = localOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, replayedHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
