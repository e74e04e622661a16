package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// localOrigins are allowed when no origin list is configured.
var localOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}

// CORS lets the browser clients call the API. Wildcard origins are dropped because
// credentials are allowed.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" || origin == "*" {
			continue
		}
		allowed = append(allowed, origin)
	}
	if len(allowed) == 0 {
		allowed = localOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, replayHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           600,
	})
}
