package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

const localStorefront = "http://localhost:3000"

// CORS applies the storefront origin policy. Credentials are allowed, so a
// "*" entry is dropped rather than reflected back to arbitrary sites.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: normalizeOrigins(origins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			idempotencyHeader, requestIDHeader,
		},
		ExposedHeaders:   []string{"Content-Disposition", requestIDHeader, replayedHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || o == "*" {
			continue
		}
		out = append(out, o)
	}
	if len(out) == 0 {
		return []string{localStorefront}
	}
	return out
}
